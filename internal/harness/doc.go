// Package harness runs YAML conformance scenarios against any driver.
//
// A scenario seeds tables, executes a list of driver operations, and checks
// each step's outcome against an optional expect clause. Every run uses a
// fixed clock and sequential ids, so the same scenario produces the same
// trace on every driver; RunWithGolden pins that trace in a goldie golden
// file shared by all drivers.
//
// Scenario format:
//
//	name: scenario_c_range_filter
//	description: a left-to-right conjunction selects the middle ages
//	strict_mode: false          # optional
//	id_prefix: user             # optional, generated ids are user-1, user-2, ...
//	initial_data:               # optional, field order is preserved
//	  t:
//	    - {id: 1, age: 25}
//	steps:
//	  - op: find
//	    object: t
//	    query:
//	      filters: [[age, ">", 28], and, [age, "<", 40]]
//	    expect:
//	      ids: [2, 3]
//
// Operations: create, update, delete, find_one, find, count, distinct.
// Expect keys: error, absent, ids, count, values, removed, record, present.
package harness
