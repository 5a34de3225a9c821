// Package primitives defines the definition document of a statechart: the plain data that
// describes states, transitions and action descriptors before the machine is compiled.
//
// A document can be assembled in Go (NewStateConfig, MachineBuilder) or decoded from YAML
// and JSON with LoadYAML / LoadJSON. Mapping order of `states` and `on` is preserved and
// defines document order, which the engine relies on for deterministic action ordering.
//
// Core invariants:
//   - Documents are consumed once at machine construction and never re-read.
//   - Event and Action are value types; the engine copies, never mutates them.
//   - Function-valued fields (Exec, Fn, Assign...) are dropped by serialization and are
//     rebound by name against the machine's registries.
package primitives
