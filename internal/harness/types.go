package harness

import (
	"github.com/roach88/stockpile/internal/resource"
	"github.com/roach88/stockpile/internal/storage"
)

// Trace event types.
const (
	EventStep   = "step"
	EventNotify = "notify"
)

// TraceEvent is one flow step or one listener notification.
type TraceEvent struct {
	Seq      int64             `json:"seq"`
	Type     string            `json:"type"` // "step" or "notify"
	Op       string            `json:"op,omitempty"`
	At       *Endpoint         `json:"at,omitempty"`
	To       *Endpoint         `json:"to,omitempty"`
	Resource string            `json:"resource,omitempty"`
	Metadata resource.Metadata `json:"metadata,omitempty"`
	Amount   uint64            `json:"amount,omitempty"`

	// Result is the amount the step moved. Nil for steps that do not move
	// anything and for steps that panicked.
	Result *uint64 `json:"result,omitempty"`

	// Panic is the recovered contract or misuse code.
	Panic string `json:"panic,omitempty"`

	// Version is the storage version at notification time.
	Version uint64 `json:"version,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds flow steps and notifications in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`

	// State is the final WriteState of every storage, by scenario name.
	State map[string][]storage.SlotRecord `json:"state,omitempty"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string][]storage.SlotRecord),
	}
}

// AddError adds an error message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

func amountResult(n uint64) *uint64 {
	return &n
}
