package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/stockpile/internal/layout"
)

// LoadMode controls how errors are handled during catalog loading.
type LoadMode int

const (
	// LoadModeFailFast reports only the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll reports every validation error.
	LoadModeCollectAll
)

// LoadResult contains the results of loading a layouts directory.
type LoadResult struct {
	Catalog   *layout.Catalog
	FileCount int // Number of CUE files found
}

// LoadError represents an error that occurred during catalog loading.
type LoadError struct {
	Code    string
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
	Line    int       // set when only a line is known
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", e.Line, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LineNumber returns the best known source line, or zero.
func (e *LoadError) LineNumber() int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return e.Line
}

// LoadCatalog loads every CUE file in dir as one instance and compiles it
// into a layout catalog.
// A nil result means the directory itself could not be loaded.
func LoadCatalog(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("layouts directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing layouts directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{FileCount: len(cueFiles)}

	catalog, err := layout.Compile(value)
	if err != nil {
		errs := convertCompileError(err)
		if mode == LoadModeFailFast {
			errs = errs[:1]
		}
		return result, errs
	}
	result.Catalog = catalog

	if len(catalog.Layouts) == 0 {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: "no layouts found in catalog"}}
	}
	return result, nil
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

// convertCompileError flattens a layout compile failure into LoadErrors.
func convertCompileError(err error) []error {
	var verrs layout.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]error, len(verrs))
		for i, v := range verrs {
			out[i] = &LoadError{Code: v.Code, Field: v.Field, Message: v.Message, Line: v.Line}
		}
		return out
	}

	var compileErr *layout.CompileError
	if errors.As(err, &compileErr) {
		return []error{&LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Field:   compileErr.Field,
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}}
	}

	return []error{&LoadError{Code: ErrCodeGeneric, Message: err.Error()}}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Snapshot database error

	// Structural layout errors
	ErrCodeSchema        = "E101" // Field has the wrong shape or type
	ErrCodeInvalidColour = "E102" // Colour does not fit in 32 bits

	// Scenario errors
	ErrCodeScenario = "E301" // Scenario file failed to load or run
)

// MapFieldToErrorCode maps a layout compile error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.HasSuffix(field, ".colour"):
		return ErrCodeInvalidColour
	case strings.HasSuffix(field, ".remainder"):
		return layout.ErrUnknownRemainder
	case strings.HasSuffix(field, ".type"):
		return layout.ErrUnknownGroupType
	case strings.HasSuffix(field, ".policy"):
		return layout.ErrInvalidPolicy
	case strings.HasSuffix(field, ".slots"), strings.HasSuffix(field, ".capacity"):
		return layout.ErrInvalidSize
	case strings.HasSuffix(field, ".groups"):
		return layout.ErrEmptyLayout
	default:
		return ErrCodeSchema
	}
}
