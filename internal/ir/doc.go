// Package ir provides the value and rule-table representation for satset.
//
// This package contains type definitions and serialization only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is sealed: Bool, Int (int64) and Float (float64) only
//   - Non-finite floats are rejected at every construction boundary
//   - All JSON tags use snake_case
//   - Rule order inside a RuleTable is priority order
package ir
