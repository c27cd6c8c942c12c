// Package store provides a SQLite-backed readings feed.
//
// The feed is where observations come from: producers append readings
// (satset record), and the matcher loads the newest ones per variable
// to build an ObservationSet. Evaluation results and rule tables are never
// stored here.
//
// The store holds:
//   - Variables: name, unit and kind of every measured quantity
//   - Readings: append-only values, each stamped with a seq
//
// # Ordering
//
//   - All ordering uses seq INTEGER (logical clock), NEVER timestamps
//   - Queries include ORDER BY seq with a COLLATE BINARY tie-break on names
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Values are stored as JSON text written by ir.MarshalValue, so a float
// reading of 3 reads back as a float.
package store
