package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/satset/internal/compiler"
	"github.com/roach88/satset/internal/ir"
)

// LoadMode controls how errors are handled during table loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the rule tables loaded from a directory.
type LoadResult struct {
	Tables    []ir.RuleTable
	FileCount int // Number of CUE files found
}

// Table returns the loaded table with the given name.
func (r *LoadResult) Table(name string) (ir.RuleTable, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return ir.RuleTable{}, false
}

// LoadError represents an error that occurred during table loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadTables loads and compiles every table under the top-level "table"
// struct of the CUE package in dir.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadTables(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rules directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing rules directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	// Find CUE files
	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	// Load CUE instances
	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	// Check for load errors
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	// Build value from instance
	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{FileCount: len(cueFiles)}

	tablesVal := value.LookupPath(cue.ParsePath("table"))
	if tablesVal.Exists() {
		iter, iterErr := tablesVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating tables: %v", iterErr)})
			return result, errs
		}
		for iter.Next() {
			table, compileErr := compiler.CompileTable(iter.Value())
			if compileErr != nil {
				errs = append(errs, convertCompileError(compileErr, "table."+iter.Label()))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Tables = append(result.Tables, *table)
		}
	}

	if len(result.Tables) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoTables, Message: fmt.Sprintf("no rule tables found in %s", dir)})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s: %s", context, compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// Error code constants - unified across all CLI commands.
// Table validation codes (E1xx) come from the compiler package.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeNoTables    = "E008" // No rule tables defined

	ErrCodeUnknownTable = "E020" // --table names no loaded table
	ErrCodeBadArgument  = "E021" // Malformed name=value argument or flag
	ErrCodeStore        = "E022" // Readings database error
	ErrCodeEvaluation   = "E030" // Evaluation failed
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.HasSuffix(field, ".kind"):
		return compiler.ErrUnknownKind
	case strings.HasSuffix(field, ".name"), strings.HasSuffix(field, ".var"):
		return compiler.ErrEmptyName
	case strings.HasSuffix(field, ".op"):
		return compiler.ErrUnsupportedOperator
	case strings.HasSuffix(field, ".range"):
		return compiler.ErrInvalidBounds
	case strings.HasSuffix(field, ".value"), strings.HasSuffix(field, ".value1"):
		return compiler.ErrThresholdKind
	case field == "rules":
		return compiler.ErrRuleNoCondition
	default:
		return ErrCodeGeneric
	}
}

// loadTable loads the rules directory and picks one table. name may be
// empty when the directory defines exactly one table.
func loadTable(dir, name string) (ir.RuleTable, *LoadError) {
	result, errs := LoadTables(dir, LoadModeFailFast)
	if len(errs) > 0 {
		var loadErr *LoadError
		if errors.As(errs[0], &loadErr) {
			return ir.RuleTable{}, loadErr
		}
		return ir.RuleTable{}, &LoadError{Code: ErrCodeGeneric, Message: errs[0].Error()}
	}

	if name == "" {
		if len(result.Tables) != 1 {
			names := make([]string, len(result.Tables))
			for i, t := range result.Tables {
				names[i] = t.Name
			}
			return ir.RuleTable{}, &LoadError{
				Code:    ErrCodeUnknownTable,
				Message: fmt.Sprintf("--table is required: %s defines %d tables (%s)", dir, len(names), strings.Join(names, ", ")),
			}
		}
		return result.Tables[0], nil
	}

	table, ok := result.Table(name)
	if !ok {
		return ir.RuleTable{}, &LoadError{Code: ErrCodeUnknownTable, Message: fmt.Sprintf("table %q not found in %s", name, dir)}
	}
	return table, nil
}

// loadFailure reports an error that stopped LoadTables before any table
// compiled (missing directory, no CUE files, unparsable package).
func loadFailure(formatter *OutputFormatter, errs []error) error {
	code, message := ErrCodeGeneric, errs[0].Error()
	var loadErr *LoadError
	if errors.As(errs[0], &loadErr) {
		code, message = loadErr.Code, loadErr.Message
	}
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, code+": "+message)
}

// position renders a CUE position as file:line:col, or "" when unknown.
func position(pos token.Pos) string {
	if !pos.IsValid() {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", pos.Filename(), pos.Line(), pos.Column())
}
