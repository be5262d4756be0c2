// Package harness runs storage scenarios against a compiled layout catalog.
//
// A scenario declares named storages, each built from a catalog layout,
// then drives them through setup and flow steps. Every flow step and every
// change notification becomes a trace event; assertions check the final
// contents and the trace.
//
// # Scenario Format
//
//	name: smelt_batch
//	description: "Inputs and fuel land in one committed batch"
//	storages:
//	  - name: furnace
//	    layout: furnace
//	setup:
//	  - op: insert
//	    storage: furnace
//	    group: fuel
//	    resource: coal
//	    amount: 8
//	flow:
//	  - op: begin
//	  - op: insert
//	    storage: furnace
//	    group: input
//	    resource: iron_ore
//	    amount: 80
//	    expect: 80
//	  - op: commit
//	  - op: move
//	    storage: furnace
//	    group: output
//	    actor: external
//	    to: {storage: chest}
//	    resource: iron_ingot
//	    amount: 16
//	  - op: set
//	    storage: furnace
//	    slot: 3
//	    resource: iron_ingot
//	    amount: 100
//	    panics: INVALID_STATE
//	assertions:
//	  - type: slot
//	    storage: furnace
//	    slot: 0
//	    resource: iron_ore
//	    amount: 64
//	  - type: notifications
//	    storage: furnace
//	    count: 1
//
// # Operations
//
//   - insert, extract, extract_type: route through a storage, a group or one slot
//   - consume, set: act on one slot
//   - move, move_all: transfer between two endpoints atomically
//   - sync: encode the source's changed slots and apply them to the target
//   - copy: WriteState on the source, ReadState on the target
//   - begin, commit, abort: manage the scenario's transaction scope stack
//
// A step's expect checks the amount it moved. A step's panics names the
// contract or misuse code the step must raise; the panic is recovered and
// recorded in the trace.
//
// # Assertion Types
//
//   - slot: contents of one slot (omit resource to require it empty)
//   - count, capacity: CountOf / CapacityOf across a storage
//   - version: the storage's change counter
//   - notifications: how many committed batches notified the listener
//   - empty: every slot of a storage or group is empty
//   - trace_count: how many trace events carry an op ("notify" counts notifications)
//
// # Determinism
//
// Storage IDs come from testutil.SequenceIDGenerator and trace sequence
// numbers from testutil.StepClock, so the same scenario always produces the
// same trace. Golden traces live under testdata/golden.
package harness
