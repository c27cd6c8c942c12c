package engine

import (
	"errors"
	"fmt"
)

// EvalError represents an error detected while building or evaluating
// conditions.
//
// EvalError includes structured fields for diagnostics. All of these errors
// are deterministic: retrying the same call yields the same error.
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// Message is a human-readable description.
	Message string

	// Variable names the variable the failing condition refers to.
	Variable string

	// Operator is the operator text, when relevant.
	Operator string

	// Details contains additional context.
	Details map[string]string
}

// EvalErrorCode categorizes engine errors.
type EvalErrorCode string

const (
	// ErrCodeIncomparable indicates a condition was evaluated against an
	// observation of a different variable.
	ErrCodeIncomparable EvalErrorCode = "INCOMPARABLE_OPERANDS"

	// ErrCodeMissingParameter indicates IN without an upper bound, or
	// TLT/TGT without a prediction range.
	ErrCodeMissingParameter EvalErrorCode = "MISSING_OPERATOR_PARAMETER"

	// ErrCodeUnsupportedOperator indicates an unrecognized operator.
	ErrCodeUnsupportedOperator EvalErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeInvalidBounds indicates IN bounds with value >= value1, or a
	// non-positive prediction range.
	ErrCodeInvalidBounds EvalErrorCode = "INVALID_BOUNDS"

	// ErrCodeKindMismatch indicates a value that does not fit the
	// variable's kind.
	ErrCodeKindMismatch EvalErrorCode = "KIND_MISMATCH"

	// ErrCodeDuplicate indicates a second observation for a variable in a
	// set configured to reject duplicates.
	ErrCodeDuplicate EvalErrorCode = "DUPLICATE_OBSERVATION"

	// ErrCodePredictionFailed indicates the prediction hook of an
	// observation returned an error.
	ErrCodePredictionFailed EvalErrorCode = "PREDICTION_FAILED"

	// ErrCodeInvalidVariable indicates an empty or otherwise unusable
	// variable name.
	ErrCodeInvalidVariable EvalErrorCode = "INVALID_VARIABLE"
)

// Error implements the error interface.
func (e *EvalError) Error() string {
	switch {
	case e.Variable != "" && e.Operator != "":
		return fmt.Sprintf("%s: %s (variable=%s, operator=%s)", e.Code, e.Message, e.Variable, e.Operator)
	case e.Variable != "":
		return fmt.Sprintf("%s: %s (variable=%s)", e.Code, e.Message, e.Variable)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func hasCode(err error, code EvalErrorCode) bool {
	var ee *EvalError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsIncomparable returns true if err is an INCOMPARABLE_OPERANDS error.
// Uses errors.As to handle wrapped errors.
func IsIncomparable(err error) bool { return hasCode(err, ErrCodeIncomparable) }

// IsMissingParameter returns true if err is a MISSING_OPERATOR_PARAMETER error.
func IsMissingParameter(err error) bool { return hasCode(err, ErrCodeMissingParameter) }

// IsUnsupportedOperator returns true if err is an UNSUPPORTED_OPERATOR error.
func IsUnsupportedOperator(err error) bool { return hasCode(err, ErrCodeUnsupportedOperator) }

// IsInvalidBounds returns true if err is an INVALID_BOUNDS error.
func IsInvalidBounds(err error) bool { return hasCode(err, ErrCodeInvalidBounds) }

// IsKindMismatch returns true if err is a KIND_MISMATCH error.
func IsKindMismatch(err error) bool { return hasCode(err, ErrCodeKindMismatch) }

// IsDuplicate returns true if err is a DUPLICATE_OBSERVATION error.
func IsDuplicate(err error) bool { return hasCode(err, ErrCodeDuplicate) }

// NewIncomparableError creates an EvalError for a condition evaluated
// against an observation of another variable.
func NewIncomparableError(conditionVar, observationVar string) *EvalError {
	return &EvalError{
		Code:     ErrCodeIncomparable,
		Message:  fmt.Sprintf("improper comparison of %s with %s", observationVar, conditionVar),
		Variable: conditionVar,
		Details: map[string]string{
			"observation_variable": observationVar,
		},
	}
}

// NewMissingParameterError creates an EvalError for an operator whose
// auxiliary parameter was not supplied.
func NewMissingParameterError(variable string, op Operator, param string) *EvalError {
	return &EvalError{
		Code:     ErrCodeMissingParameter,
		Message:  fmt.Sprintf("%s requires %s", op, param),
		Variable: variable,
		Operator: op.String(),
		Details: map[string]string{
			"parameter": param,
		},
	}
}

// NewUnsupportedOperatorError creates an EvalError for an unknown operator.
func NewUnsupportedOperatorError(variable, op string) *EvalError {
	return &EvalError{
		Code:     ErrCodeUnsupportedOperator,
		Message:  fmt.Sprintf("no operation defined for %q", op),
		Variable: variable,
		Operator: op,
	}
}

// NewKindMismatchError creates an EvalError wrapping a coercion failure.
func NewKindMismatchError(variable string, cause error) *EvalError {
	return &EvalError{
		Code:     ErrCodeKindMismatch,
		Message:  cause.Error(),
		Variable: variable,
	}
}
