package harness

import (
	"fmt"

	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/storage"
)

// AssertionError describes one assertion that did not hold.
type AssertionError struct {
	Index   int
	Type    string
	Message string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion[%d] %s: %s", e.Index, e.Type, e.Message)
}

// EvaluateAssertions evaluates assertions against h's storages and trace.
// It returns one error per failed assertion.
func EvaluateAssertions(h *Harness, assertions []Assertion) []error {
	var errs []error

	for i, a := range assertions {
		var msg string
		var err error

		switch a.Type {
		case AssertTraceCount:
			msg = assertTraceCount(h.result.Trace, a)
		case AssertNotifications:
			msg, err = h.assertNotifications(a)
		default:
			msg, err = h.assertStorage(a)
		}

		if err != nil {
			msg = err.Error()
		}
		if msg != "" {
			errs = append(errs, &AssertionError{Index: i, Type: a.Type, Message: msg})
		}
	}

	return errs
}

func (h *Harness) assertStorage(a Assertion) (string, error) {
	ep, err := h.resolve(Endpoint{Storage: a.Storage, Group: a.Group})
	if err != nil {
		return "", err
	}
	t, err := h.lookupResource(a.Resource)
	if err != nil {
		return "", err
	}
	meta, err := resource.FromMap(a.Metadata)
	if err != nil {
		return "", fmt.Errorf("metadata: %w", err)
	}
	meta = resource.Strip(meta)
	s := ep.storage

	switch a.Type {
	case AssertSlot:
		slot, err := slotAt(ep, *a.Slot)
		if err != nil {
			return "", err
		}
		return checkSlot(slot, t, meta, a.Amount), nil

	case AssertCount:
		if got := s.CountOf(t, meta); got != a.Amount {
			return fmt.Sprintf("count of %s: got %d, want %d", t, got, a.Amount), nil
		}

	case AssertCapacity:
		if got := s.CapacityOf(t, meta); got != a.Amount {
			return fmt.Sprintf("capacity for %s: got %d, want %d", t, got, a.Amount), nil
		}

	case AssertVersion:
		if got := s.Version(); got != a.Version {
			return fmt.Sprintf("version: got %d, want %d", got, a.Version), nil
		}

	case AssertEmpty:
		empty := s.IsEmpty()
		if ep.group != nil {
			empty = ep.group.IsEmpty()
		}
		if !empty {
			return "not empty", nil
		}

	default:
		return "", fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return "", nil
}

func (h *Harness) assertNotifications(a Assertion) (string, error) {
	rec, ok := h.listeners[a.Storage]
	if !ok {
		return "", fmt.Errorf("unknown storage %q", a.Storage)
	}
	if got := rec.Calls(); got != a.Count {
		return fmt.Sprintf("got %d notifications, want %d (versions %v)", got, a.Count, rec.Versions()), nil
	}
	return "", nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) string {
	count := 0
	for _, ev := range trace {
		if a.Op == EventNotify {
			if ev.Type == EventNotify && (a.Storage == "" || ev.At.Storage == a.Storage) {
				count++
			}
			continue
		}
		if ev.Type == EventStep && ev.Op == a.Op && (a.Storage == "" || (ev.At != nil && ev.At.Storage == a.Storage)) {
			count++
		}
	}
	if count != a.Count {
		return fmt.Sprintf("%s appears %d times, want %d", a.Op, count, a.Count)
	}
	return ""
}

// slotAt returns the slot at a group-relative or absolute index without
// panicking.
func slotAt(ep endpoint, i int) (*storage.Slot, error) {
	if ep.group != nil {
		if i < 0 || i >= ep.group.Size() {
			return nil, fmt.Errorf("group %q has no slot %d", ep.group.Type().ID, i)
		}
		return ep.group.Slot(i), nil
	}
	if i < 0 || i >= ep.storage.Size() {
		return nil, fmt.Errorf("storage has no slot %d", i)
	}
	return ep.storage.Slot(i), nil
}

func checkSlot(slot *storage.Slot, t *resource.Type, meta resource.Metadata, amount uint64) string {
	if t == nil {
		if !slot.IsEmpty() {
			return fmt.Sprintf("slot %d: got %d %s, want empty", slot.Index(), slot.Amount(), slot.Resource())
		}
		return ""
	}
	if slot.Resource() != t || slot.Amount() != amount {
		return fmt.Sprintf("slot %d: got %d %s, want %d %s", slot.Index(), slot.Amount(), slot.Resource(), amount, t)
	}
	if !resource.Equal(slot.Metadata(), meta) {
		got, _ := resource.MarshalCanonical(slot.Metadata())
		want, _ := resource.MarshalCanonical(meta)
		return fmt.Sprintf("slot %d: metadata %s, want %s", slot.Index(), got, want)
	}
	return ""
}
