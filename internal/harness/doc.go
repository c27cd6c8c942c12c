// Package harness runs rule tables against scripted observation sequences.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: pets
//	description: "Dog owners with few cats are calm"
//	table: pets            # a CUE table passed with WithTables, or:
//	variables:             # an inline table
//	  - {name: has_dog, kind: bool}
//	rules:
//	  - name: calm
//	    when:
//	      - {var: has_dog, op: EQ, value: true}
//	predictor: linear      # last (default) or linear
//	duplicates: overwrite  # overwrite (default) or reject
//	steps:
//	  - observe: {has_dog: true}
//	    history: {level: [1, 2, 3]}   # earlier readings, oldest first
//	    expect:
//	      match: calm                 # rule name, or "none"
//	      satisfied: [calm]
//	      satisfiable: [calm]
//	      error: DUPLICATE            # substring of the step error
//
// Observations accumulate across steps. A later step observing the same
// variable replaces the earlier observation, carrying its readings forward
// as history unless the step gives one; with duplicates: reject it fails
// instead.
//
// # Determinism
//
// Each step is stamped with a seq from testutil.DeterministicClock, and all
// lists in a Result are in rule-table order, so Report output is
// byte-identical across runs and can be compared against golden files.
package harness
