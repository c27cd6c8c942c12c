package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Exit codes. A rule table that matches nothing is still ExitSuccess.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // failed scenarios, invalid tables, evaluation errors
	ExitCommandError = 2 // bad arguments, unreadable files, load errors
)

// ExitError carries the process exit code for a command error.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code: the code of the first
// ExitError in its chain, ExitFailure otherwise.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// IDGenerator produces trace IDs for JSON responses.
type IDGenerator interface {
	Next() string
}

// UUIDv7IDs generates time-sortable UUIDv7 trace IDs. Safe for concurrent
// use.
type UUIDv7IDs struct{}

// Next returns a new hyphenated UUIDv7. Panics if the random source fails.
func (UUIDv7IDs) Next() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CLIResponse is the envelope of every JSON response.
type CLIResponse struct {
	Status  string    `json:"status"` // "ok" or "error"
	Data    any       `json:"data,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// CLIError is the error member of a JSON response.
type CLIError struct {
	Code    string `json:"code"` // E0xx for command errors, E1xx for table problems
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; Writer when nil
	Verbose   bool
	TraceID   string // stamped on every JSON response
}

// newFormatter builds the formatter for one command invocation, drawing a
// fresh trace ID from opts.TraceIDs (UUIDv7 when unset).
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	var ids IDGenerator = UUIDv7IDs{}
	if opts.TraceIDs != nil {
		ids = opts.TraceIDs
	}
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
		TraceID:   ids.Next(),
	}
}

// Success writes data as an "ok" response, or its fmt form as a text line.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data}, false)
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes an "error" response. Text output shows details only in
// verbose mode.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		}, false)
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog writes a diagnostic line to ErrWriter when verbose, so JSON on
// Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
	}
}

// GetErrWriter returns ErrWriter, or Writer when ErrWriter is nil.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

// encodeIndented writes an indented JSON response carrying the trace ID.
func (f *OutputFormatter) encodeIndented(response CLIResponse) error {
	return f.encode(response, true)
}

func (f *OutputFormatter) encode(response CLIResponse, indent bool) error {
	response.TraceID = f.TraceID
	enc := json.NewEncoder(f.Writer)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(response)
}
