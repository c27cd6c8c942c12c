// Package engine implements the satset condition-satisfaction engine.
//
// The engine answers two questions about a snapshot of typed observations:
// whether a group of conditions is definitely satisfied now, and whether it
// is still satisfiable given what has not been measured yet. An ordered list
// of condition sets turns the first question into a priority rule table.
//
// ARCHITECTURE:
//
// Leaf-first:
//   - Registry: create-or-get table of Variables, keyed by name
//   - Observation: a Variable bound to a value, with optional rolling history
//   - Condition: one typed predicate (variable, operator, threshold[s])
//   - ObservationSet: at most one Observation per variable name
//   - ConditionSet: AND over conditions; SatisfiedBy vs SatisfiableBy
//   - RuleList: condition sets matched in order, first match wins
//
// Evaluation Semantics:
//
// A condition only ever looks at observations of its own variable.
// Observations of other variables are ignored, not compared. When no
// observation of the variable exists, the condition is neither satisfied
// nor violated:
//   - SatisfiedBy treats unknown as false (cannot confirm)
//   - SatisfiableBy treats unknown as true (not ruled out)
//
// Therefore SatisfiedBy implies SatisfiableBy, never the reverse.
//
// Construction vs Evaluation Errors:
//
// Malformed conditions (unknown operator, IN without an upper bound,
// TLT/TGT without a prediction range, inverted IN bounds, threshold of the
// wrong kind) are rejected by NewCondition. Evaluation itself can only fail
// on misuse (comparing a condition with another variable's observation) or
// when a prediction hook fails.
//
// Concurrency:
//
// Evaluation never mutates anything. Condition sets, rule lists and
// observation sets can be shared across goroutines for read-only
// evaluation. Add, Append and Observation.Push are owner-only mutations and
// must not race with evaluation. Registry is safe for concurrent use.
package engine
