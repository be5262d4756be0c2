// Package metrics exports storage batch outcomes to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/stockpile/internal/storage"
)

const (
	namespace = "stockpile"
	subsystem = "storage"
)

// Recorder owns the storage collectors. Attach a storage to have its root
// transaction outcomes counted.
type Recorder struct {
	committed *prometheus.CounterVec
	aborted   *prometheus.CounterVec
	version   *prometheus.GaugeVec
	slots     *prometheus.GaugeVec
}

// NewRecorder registers the collectors with reg. Pass
// prometheus.DefaultRegisterer to export through the default handler.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		committed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "batches_committed_total",
				Help:      "Root transactions that committed a change to a storage",
			},
			[]string{"layout"},
		),
		aborted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "batches_aborted_total",
				Help:      "Root transactions touching a storage that aborted, excluding simulations",
			},
			[]string{"layout"},
		),
		version: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "version",
				Help:      "Current modification counter of a storage",
			},
			[]string{"layout", "storage"},
		),
		slots: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "occupied_slots",
				Help:      "Non-empty slots in a storage after the last committed batch",
			},
			[]string{"layout", "storage"},
		),
	}
}

// Attach installs an observer on s labelled with layout. It replaces any
// observer s already had.
func (r *Recorder) Attach(s *storage.Storage, layout string) {
	o := &observer{recorder: r, layout: layout}
	s.SetObserver(o)
	o.record(s)
}

// Detach removes s's observer and deletes its per-storage series.
func (r *Recorder) Detach(s *storage.Storage, layout string) {
	s.SetObserver(nil)
	r.version.DeleteLabelValues(layout, s.ID().String())
	r.slots.DeleteLabelValues(layout, s.ID().String())
}

type observer struct {
	recorder *Recorder
	layout   string
}

func (o *observer) BatchCommitted(s *storage.Storage) {
	o.recorder.committed.WithLabelValues(o.layout).Inc()
	o.record(s)
}

func (o *observer) BatchAborted(*storage.Storage) {
	o.recorder.aborted.WithLabelValues(o.layout).Inc()
}

func (o *observer) record(s *storage.Storage) {
	id := s.ID().String()
	o.recorder.version.WithLabelValues(o.layout, id).Set(float64(s.Version()))

	occupied := 0
	for _, slot := range s.Slots() {
		if !slot.IsEmpty() {
			occupied++
		}
	}
	o.recorder.slots.WithLabelValues(o.layout, id).Set(float64(occupied))
}
