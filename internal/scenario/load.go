package scenario

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
)

// LoadMode controls how errors are handled during scenario loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the scenarios loaded from a directory.
type LoadResult struct {
	Scenarios []Scenario
	CUEValue  cue.Value // raw CUE value for additional processing
	FileCount int       // number of CUE files found
}

// LoadError is a loading error, with CUE position when available.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants, shared with the CLI's output layer.
const (
	ErrCodeGeneric     = "E001" // generic/unknown error
	ErrCodeScanError   = "E002" // directory scan error
	ErrCodeNoFiles     = "E003" // no CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeBadActor  = "E101" // actor definition invalid
	ErrCodeBadInvoke = "E102" // invoke clause invalid
	ErrCodeBadExpect = "E103" // expect clause invalid
	ErrCodeBadSetup  = "E104" // setup rows invalid
)

// Load loads and compiles all CUE scenarios from a directory. With
// LoadModeFailFast it returns on the first error; with
// LoadModeCollectAll it reports every broken scenario at once.
func Load(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("scenario directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing scenario directory: %v", err)}}
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
	cfg := &load.Config{Dir: dir}
	// Scenario files carry no package clause, so load them by explicit
	// file list rather than as a package instance.
	instances := load.Instances(cueFiles, cfg)
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

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	scenariosVal := value.LookupPath(cue.ParsePath("scenario"))
	if scenariosVal.Exists() {
		iter, iterErr := scenariosVal.Fields()
		if iterErr != nil {
			errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating scenarios: %v", iterErr)})
			return result, errs
		}
		for iter.Next() {
			sc, compileErr := Compile(iter.Value())
			if compileErr != nil {
				errs = append(errs, convertCompileError(compileErr, "scenario."+iter.Label()))
				if mode == LoadModeFailFast {
					return result, errs
				}
				continue
			}
			result.Scenarios = append(result.Scenarios, *sc)
		}
	}

	if len(result.Scenarios) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeGeneric, Message: "no scenarios found"})
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

// convertCompileError converts a compile error to a LoadError with
// position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    mapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// mapFieldToErrorCode maps a compile error field to an error code.
func mapFieldToErrorCode(field string) string {
	switch {
	case field == "actors" || strings.HasPrefix(field, "actors."):
		return ErrCodeBadActor
	case field == "invoke" || strings.HasPrefix(field, "invoke."):
		return ErrCodeBadInvoke
	case field == "expect" || strings.HasPrefix(field, "expect."):
		return ErrCodeBadExpect
	case strings.HasPrefix(field, "setup"):
		return ErrCodeBadSetup
	default:
		return ErrCodeGeneric
	}
}
