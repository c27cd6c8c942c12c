package harness

// StepResult records what one step observed and how the table evaluated.
type StepResult struct {
	// Index is the 1-based step number.
	Index int `json:"index"`

	// Seq is the logical time stamped on the step's observations.
	Seq int64 `json:"seq"`

	// Observations renders the accumulated observation set after the step.
	Observations string `json:"observations"`

	// Match is the name of the first matching rule, or "" for none.
	Match string `json:"match,omitempty"`

	// Satisfied and Satisfiable list rule names in table order.
	Satisfied   []string `json:"satisfied"`
	Satisfiable []string `json:"satisfiable"`

	// Error is set when the step's observations could not be applied
	// or evaluated.
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Scenario and Table name what ran.
	Scenario string `json:"scenario"`
	Table    string `json:"table"`

	// Rules is the number of rules in the table.
	Rules int `json:"rules"`

	// Pass indicates overall test success.
	// True if all expect clauses match.
	Pass bool `json:"pass"`

	// Steps holds one entry per scenario step, in order.
	Steps []StepResult `json:"steps"`

	// Errors contains expectation failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
