package testutil

import (
	"sync"

	"github.com/roach88/stockpile/internal/storage"
)

// ListenerRecorder installs itself as a storage's change listener and
// remembers the storage version at every notification.
type ListenerRecorder struct {
	mu       sync.Mutex
	versions []uint64
	onNotify func(version uint64)
}

// RecordListener replaces s's listener with a recorder. onNotify, if not
// nil, is called after each notification is recorded.
func RecordListener(s *storage.Storage, onNotify func(version uint64)) *ListenerRecorder {
	r := &ListenerRecorder{onNotify: onNotify}
	s.SetListener(func() {
		v := s.Version()
		r.mu.Lock()
		r.versions = append(r.versions, v)
		r.mu.Unlock()
		if r.onNotify != nil {
			r.onNotify(v)
		}
	})
	return r
}

// Calls returns how many notifications were received.
func (r *ListenerRecorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.versions)
}

// Versions returns the storage version seen at each notification.
func (r *ListenerRecorder) Versions() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, len(r.versions))
	copy(out, r.versions)
	return out
}
