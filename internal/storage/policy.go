package storage

import "fmt"

// IOPolicy says which actors may move resources in or out of a slot.
// Machines (the host's own logic) ignore it.
type IOPolicy struct {
	Name            string
	ExternalInsert  bool
	ExternalExtract bool
	PlayerInsert    bool
	PlayerExtract   bool
}

// Preset policies.
var (
	// PolicyInput accepts automation input; players may insert and take back.
	PolicyInput = IOPolicy{Name: "input", ExternalInsert: true, PlayerInsert: true, PlayerExtract: true}

	// PolicyOutput offers results to automation; players may only take.
	PolicyOutput = IOPolicy{Name: "output", ExternalExtract: true, PlayerExtract: true}

	// PolicyStorage is open to everyone in both directions.
	PolicyStorage = IOPolicy{Name: "storage", ExternalInsert: true, ExternalExtract: true, PlayerInsert: true, PlayerExtract: true}

	// PolicyTransfer is player-only, e.g. charge or upgrade slots.
	PolicyTransfer = IOPolicy{Name: "transfer", PlayerInsert: true, PlayerExtract: true}
)

var presetPolicies = map[string]IOPolicy{
	PolicyInput.Name:    PolicyInput,
	PolicyOutput.Name:   PolicyOutput,
	PolicyStorage.Name:  PolicyStorage,
	PolicyTransfer.Name: PolicyTransfer,
}

// PolicyByName returns the preset policy with the given name.
func PolicyByName(name string) (IOPolicy, error) {
	p, ok := presetPolicies[name]
	if !ok {
		return IOPolicy{}, fmt.Errorf("unknown io policy %q: must be input, output, storage, or transfer", name)
	}
	return p, nil
}

// Flow is the direction automation may move resources through a slot.
type Flow int

const (
	FlowNone Flow = iota
	FlowIn
	FlowOut
	FlowBoth
)

func (f Flow) String() string {
	switch f {
	case FlowIn:
		return "in"
	case FlowOut:
		return "out"
	case FlowBoth:
		return "both"
	default:
		return "none"
	}
}

// ExternalFlow summarizes the external insert/extract flags.
func (p IOPolicy) ExternalFlow() Flow {
	switch {
	case p.ExternalInsert && p.ExternalExtract:
		return FlowBoth
	case p.ExternalInsert:
		return FlowIn
	case p.ExternalExtract:
		return FlowOut
	default:
		return FlowNone
	}
}

// Actor identifies who is performing an operation. It selects both the
// filter (loose or strict) and the IO policy flags that apply.
type Actor int

const (
	// ActorMachine is the host's own logic: loose filter, IO policy ignored.
	ActorMachine Actor = iota
	// ActorExternal is automation (pipes, hoppers): loose filter, external flags.
	ActorExternal
	// ActorPlayer is a privileged manual caller: strict filter, player flags.
	ActorPlayer
)

func (a Actor) String() string {
	switch a {
	case ActorExternal:
		return "external"
	case ActorPlayer:
		return "player"
	default:
		return "machine"
	}
}

// ParseActor parses "machine", "external" or "player".
func ParseActor(s string) (Actor, error) {
	switch s {
	case "", "machine":
		return ActorMachine, nil
	case "external":
		return ActorExternal, nil
	case "player":
		return ActorPlayer, nil
	default:
		return 0, fmt.Errorf("unknown actor %q: must be machine, external, or player", s)
	}
}

func (a Actor) mayInsert(p IOPolicy) bool {
	switch a {
	case ActorExternal:
		return p.ExternalInsert
	case ActorPlayer:
		return p.PlayerInsert
	default:
		return true
	}
}

func (a Actor) mayExtract(p IOPolicy) bool {
	switch a {
	case ActorExternal:
		return p.ExternalExtract
	case ActorPlayer:
		return p.PlayerExtract
	default:
		return true
	}
}
