// Package layout compiles CUE storage declarations into storages.
//
// A layout directory declares three top-level sections:
//
//	resource: {
//	    "iron_ingot": {}
//	    "bucket": {max: 16}
//	    "water_bucket": {max: 1, remainder: "bucket"}
//	}
//
//	group_type: {
//	    input: {name: "Input", colour: 0x3366ff, policy: "input"}
//	    output: {name: "Output", colour: 0xff6633, policy: "output"}
//	}
//
//	layout: {
//	    furnace: groups: [
//	        {type: "input", slots: 2, capacity: 64, filter: allow: ["iron_ingot"]},
//	        {type: "output", slots: 1, capacity: 64},
//	    ]
//	}
//
// Compile turns the CUE value into a Catalog; Catalog.Build instantiates a
// named layout as a *storage.Storage. Structural errors (wrong kinds,
// missing fields) fail fast as *CompileError. Cross-reference errors are
// collected and returned together as ValidationErrors.
package layout
