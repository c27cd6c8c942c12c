package ir

// Version constants for the rule-table schema and engine.
const (
	// IRVersion is the rule-table schema version.
	IRVersion = "1"

	// EngineVersion is the satset engine version.
	EngineVersion = "0.1.0"
)
