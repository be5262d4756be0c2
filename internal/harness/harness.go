package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/stockpile/internal/layout"
	"github.com/roach88/stockpile/internal/metrics"
	"github.com/roach88/stockpile/internal/storage"
	"github.com/roach88/stockpile/internal/testutil"
	"github.com/roach88/stockpile/internal/txn"
)

// Harness executes one scenario. Build a new one per run.
type Harness struct {
	catalog  *layout.Catalog
	scenario *Scenario
	clock    *testutil.StepClock
	ids      storage.IDGenerator
	logger   *slog.Logger
	recorder *metrics.Recorder

	storages  map[string]*storage.Storage
	layouts   map[string]string
	trackers  map[string]*storage.SyncTracker
	listeners map[string]*testutil.ListenerRecorder
	scopes    []*txn.Transaction

	// pending collects notifications raised while a step runs; they are
	// traced right after the step itself.
	pending []TraceEvent
	result  *Result
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger. Logs are discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// WithIDGenerator overrides the deterministic storage ID sequence.
func WithIDGenerator(gen storage.IDGenerator) Option {
	return func(h *Harness) { h.ids = gen }
}

// WithMetrics attaches every scenario storage to r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(h *Harness) { h.recorder = r }
}

// New prepares a harness for scenario over catalog.
func New(catalog *layout.Catalog, scenario *Scenario, opts ...Option) *Harness {
	h := &Harness{
		catalog:   catalog,
		scenario:  scenario,
		clock:     testutil.NewStepClock(),
		ids:       testutil.NewSequenceIDGenerator(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		storages:  make(map[string]*storage.Storage),
		layouts:   make(map[string]string),
		trackers:  make(map[string]*storage.SyncTracker),
		listeners: make(map[string]*testutil.ListenerRecorder),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes scenario over catalog with default options.
func Run(catalog *layout.Catalog, scenario *Scenario) (*Result, error) {
	return New(catalog, scenario).Execute()
}

// Execute builds the scenario's storages, runs setup and flow, and
// evaluates assertions.
//
// A returned error means the scenario could not be run at all: an unknown
// layout, storage, group or resource name, or a failing setup step. Step
// expectations and assertions that do not hold are reported in the Result.
func (h *Harness) Execute() (*Result, error) {
	if h.result != nil {
		return nil, errors.New("harness already executed")
	}
	if err := validateScenario(h.scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	h.result = NewResult()

	for _, decl := range h.scenario.Storages {
		if err := h.build(decl); err != nil {
			return nil, err
		}
	}

	for i, step := range h.scenario.Setup {
		ev, err := h.execute(step)
		if err != nil {
			return nil, fmt.Errorf("setup[%d] %s: %w", i, step.Op, err)
		}
		if ev.Panic != "" {
			return nil, fmt.Errorf("setup[%d] %s: panicked with %s", i, step.Op, ev.Panic)
		}
	}
	if len(h.scopes) > 0 {
		return nil, fmt.Errorf("setup left %d transaction scopes open", len(h.scopes))
	}

	for _, decl := range h.scenario.Storages {
		h.listeners[decl.Name] = testutil.RecordListener(h.storages[decl.Name], h.notifier(decl.Name))
	}

	for i, step := range h.scenario.Flow {
		ev, err := h.execute(step)
		if err != nil {
			return nil, fmt.Errorf("flow[%d] %s: %w", i, step.Op, err)
		}
		ev.Seq = h.clock.Tick()
		h.result.addEvent(ev)
		for _, n := range h.pending {
			n.Seq = h.clock.Tick()
			h.result.addEvent(n)
		}
		h.pending = h.pending[:0]

		h.checkStep(i, step, ev)
		h.logger.Debug("step executed", "index", i, "op", step.Op, "seq", ev.Seq)
	}

	if open := len(h.scopes); open > 0 {
		h.result.AddError(fmt.Sprintf("flow left %d transaction scopes open", open))
		for len(h.scopes) > 0 {
			h.pop().Abort()
		}
		h.pending = h.pending[:0]
	}

	for _, err := range EvaluateAssertions(h, h.scenario.Assertions) {
		h.result.AddError(err.Error())
	}

	for _, decl := range h.scenario.Storages {
		h.result.State[decl.Name] = h.storages[decl.Name].WriteState()
	}

	h.logger.Info("scenario executed",
		"scenario", h.scenario.Name,
		"pass", h.result.Pass,
		"events", len(h.result.Trace))
	return h.result, nil
}

// Storage returns a scenario storage by name.
func (h *Harness) Storage(name string) (*storage.Storage, bool) {
	s, ok := h.storages[name]
	return s, ok
}

// Layout returns the layout a scenario storage was built from.
func (h *Harness) Layout(name string) string {
	return h.layouts[name]
}

// StorageNames returns scenario storage names in declaration order.
func (h *Harness) StorageNames() []string {
	names := make([]string, 0, len(h.scenario.Storages))
	for _, decl := range h.scenario.Storages {
		if _, ok := h.storages[decl.Name]; ok {
			names = append(names, decl.Name)
		}
	}
	return names
}

func (h *Harness) build(decl StorageDecl) error {
	s, err := h.catalog.Build(decl.Layout, storage.WithIDGenerator(h.ids))
	if err != nil {
		return fmt.Errorf("storage %q: %w", decl.Name, err)
	}
	h.storages[decl.Name] = s
	h.layouts[decl.Name] = decl.Layout
	h.trackers[decl.Name] = storage.NewSyncTracker(s)
	if h.recorder != nil {
		h.recorder.Attach(s, decl.Layout)
	}
	h.logger.Debug("storage built", "name", decl.Name, "layout", decl.Layout, "id", s.ID())
	return nil
}

func (h *Harness) notifier(name string) func(uint64) {
	return func(version uint64) {
		h.pending = append(h.pending, TraceEvent{
			Type:    EventNotify,
			At:      &Endpoint{Storage: name},
			Version: version,
		})
	}
}

func (h *Harness) current() *txn.Transaction {
	if len(h.scopes) == 0 {
		return nil
	}
	return h.scopes[len(h.scopes)-1]
}

func (h *Harness) pop() *txn.Transaction {
	tx := h.scopes[len(h.scopes)-1]
	h.scopes = h.scopes[:len(h.scopes)-1]
	return tx
}

// checkStep compares a traced step against its expectations.
func (h *Harness) checkStep(i int, step Step, ev TraceEvent) {
	switch {
	case step.Panics != "" && ev.Panic != step.Panics:
		got := ev.Panic
		if got == "" {
			got = "no panic"
		}
		h.result.AddError(fmt.Sprintf("flow[%d] %s: expected panic %s, got %s", i, step.Op, step.Panics, got))
		return
	case step.Panics == "" && ev.Panic != "":
		h.result.AddError(fmt.Sprintf("flow[%d] %s: unexpected panic %s", i, step.Op, ev.Panic))
		return
	}

	if step.Expect != nil && ev.Panic == "" {
		if ev.Result == nil {
			h.result.AddError(fmt.Sprintf("flow[%d] %s: step reports no amount to compare", i, step.Op))
		} else if *ev.Result != *step.Expect {
			h.result.AddError(fmt.Sprintf("flow[%d] %s: moved %d, want %d", i, step.Op, *ev.Result, *step.Expect))
		}
	}
}
