package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/stockpile/internal/storage"
)

// Scenario is a scripted run against one or more storages.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Storages are built from catalog layouts in declaration order.
	Storages []StorageDecl `yaml:"storages"`

	// Setup establishes initial state. Setup steps are not traced and
	// any failure aborts the run.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow is the traced part of the scenario.
	Flow []Step `yaml:"flow"`

	// Assertions are evaluated after the flow.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// StorageDecl binds a scenario-local name to a catalog layout.
type StorageDecl struct {
	Name   string `yaml:"name"`
	Layout string `yaml:"layout"`
}

// Endpoint addresses a storage, one of its groups, or one slot. Slot is
// group-relative when Group is set and absolute otherwise.
type Endpoint struct {
	Storage string `yaml:"storage,omitempty" json:"storage"`
	Group   string `yaml:"group,omitempty" json:"group,omitempty"`
	Slot    *int   `yaml:"slot,omitempty" json:"slot,omitempty"`
	Actor   string `yaml:"actor,omitempty" json:"actor,omitempty"`
}

// Step is one operation.
type Step struct {
	Op       string `yaml:"op"`
	Endpoint `yaml:",inline"`
	To       *Endpoint      `yaml:"to,omitempty"`
	Resource string         `yaml:"resource,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
	Amount   uint64         `yaml:"amount,omitempty"`

	// Scope selects the scope commit or abort acts on, 0 being the
	// outermost. Defaults to the innermost.
	Scope *int `yaml:"scope,omitempty"`

	// Expect is the amount the step must move.
	Expect *uint64 `yaml:"expect,omitempty"`

	// Panics is the contract or misuse code the step must raise.
	Panics string `yaml:"panics,omitempty"`
}

// Step operations.
const (
	OpInsert      = "insert"
	OpExtract     = "extract"
	OpExtractType = "extract_type"
	OpConsume     = "consume"
	OpSet         = "set"
	OpMove        = "move"
	OpMoveAll     = "move_all"
	OpSync        = "sync"
	OpCopy        = "copy"
	OpBegin       = "begin"
	OpCommit      = "commit"
	OpAbort       = "abort"
)

// Assertion checks final state or the trace.
type Assertion struct {
	Type     string         `yaml:"type"`
	Storage  string         `yaml:"storage,omitempty"`
	Group    string         `yaml:"group,omitempty"`
	Slot     *int           `yaml:"slot,omitempty"`
	Resource string         `yaml:"resource,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`

	// Amount is the expected slot amount, CountOf or CapacityOf.
	Amount uint64 `yaml:"amount,omitempty"`

	// Version is the expected storage version.
	Version uint64 `yaml:"version,omitempty"`

	// Count is the expected number of notifications or trace events.
	Count int `yaml:"count,omitempty"`

	// Op selects trace events for trace_count.
	Op string `yaml:"op,omitempty"`
}

// Assertion type constants.
const (
	AssertSlot          = "slot"
	AssertCount         = "count"
	AssertCapacity      = "capacity"
	AssertVersion       = "version"
	AssertNotifications = "notifications"
	AssertEmpty         = "empty"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario. Unknown fields are
// rejected so that typos like "assertion:" fail loudly.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks structure only. Storage, layout, group and
// resource names are resolved against the catalog at run time.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Storages) == 0 {
		return fmt.Errorf("storages list is required and must be non-empty")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	seen := make(map[string]bool, len(s.Storages))
	for i, decl := range s.Storages {
		if decl.Name == "" {
			return fmt.Errorf("storages[%d]: name is required", i)
		}
		if decl.Layout == "" {
			return fmt.Errorf("storages[%d]: layout is required", i)
		}
		if seen[decl.Name] {
			return fmt.Errorf("storages[%d]: duplicate storage %q", i, decl.Name)
		}
		seen[decl.Name] = true
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	switch step.Op {
	case OpBegin, OpCommit, OpAbort:
		if step.Storage != "" || step.To != nil {
			return fmt.Errorf("%s takes no storage", step.Op)
		}
		if step.Op == OpBegin && step.Scope != nil {
			return fmt.Errorf("begin takes no scope")
		}
		return nil
	case "":
		return fmt.Errorf("op is required")
	}

	if step.Storage == "" {
		return fmt.Errorf("%s: storage is required", step.Op)
	}
	if step.Scope != nil {
		return fmt.Errorf("%s: scope only applies to commit and abort", step.Op)
	}
	if err := validateActor(step.Op, step.Endpoint); err != nil {
		return err
	}

	switch step.Op {
	case OpInsert, OpExtractType:
		if step.Resource == "" {
			return fmt.Errorf("%s: resource is required", step.Op)
		}
	case OpExtract:
		if step.Resource == "" && step.Slot == nil {
			return fmt.Errorf("extract: resource is required unless slot is given")
		}
	case OpConsume, OpSet:
		if step.Slot == nil {
			return fmt.Errorf("%s: slot is required", step.Op)
		}
	case OpMove, OpMoveAll, OpSync, OpCopy:
		if step.To == nil || step.To.Storage == "" {
			return fmt.Errorf("%s: to.storage is required", step.Op)
		}
		if err := validateActor(step.Op, *step.To); err != nil {
			return err
		}
		if step.Op == OpMove && step.Resource == "" {
			return fmt.Errorf("move: resource is required")
		}
		if step.Op == OpSync || step.Op == OpCopy {
			if step.Group != "" || step.Slot != nil || step.To.Group != "" || step.To.Slot != nil {
				return fmt.Errorf("%s works on whole storages", step.Op)
			}
		}
	default:
		return fmt.Errorf("unknown op %q", step.Op)
	}
	return nil
}

func validateActor(op string, e Endpoint) error {
	if e.Actor == "" {
		return nil
	}
	switch op {
	case OpInsert, OpExtract, OpMove, OpMoveAll:
	default:
		return fmt.Errorf("%s: actor is not supported", op)
	}
	if _, err := storage.ParseActor(e.Actor); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("trace_count: op is required")
		}
		return nil
	case AssertSlot:
		if a.Slot == nil {
			return fmt.Errorf("slot: slot is required")
		}
	case AssertCount, AssertCapacity:
		if a.Resource == "" {
			return fmt.Errorf("%s: resource is required", a.Type)
		}
	case AssertVersion, AssertNotifications, AssertEmpty:
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	if a.Storage == "" {
		return fmt.Errorf("%s: storage is required", a.Type)
	}
	return nil
}
