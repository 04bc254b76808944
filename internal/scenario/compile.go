package scenario

import (
	"fmt"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/calyxlab/calyx/internal/script"
)

// Compile parses one CUE value into a Scenario. The value is the
// scenario struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`scenario: happy_path: { ... }`)
//	sc, err := Compile(v.LookupPath(cue.ParsePath("scenario.happy_path")))
func Compile(v cue.Value) (*Scenario, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	sc := &Scenario{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		sc.Name = labels[len(labels)-1].String()
	}

	actors, err := compileActors(v)
	if err != nil {
		return nil, err
	}
	sc.Actors = actors
	if len(sc.Actors) == 0 {
		return nil, &CompileError{
			Field:   "actors",
			Message: "at least one actor is required",
			Pos:     v.Pos(),
		}
	}

	setupVal := v.LookupPath(cue.ParsePath("setup"))
	if setupVal.Exists() {
		if err := setupVal.Decode(&sc.Setup); err != nil {
			return nil, formatCUEError(err)
		}
		for i, row := range sc.Setup {
			if row.Actor == "" || row.Key == "" {
				return nil, &CompileError{
					Field:   fmt.Sprintf("setup[%d]", i),
					Message: "setup rows need actor and key",
					Pos:     setupVal.Pos(),
				}
			}
		}
	}

	invokeVal := v.LookupPath(cue.ParsePath("invoke"))
	if !invokeVal.Exists() {
		return nil, &CompileError{
			Field:   "invoke",
			Message: "invoke is required",
			Pos:     v.Pos(),
		}
	}
	if err := invokeVal.Decode(&sc.Invoke); err != nil {
		return nil, formatCUEError(err)
	}
	if sc.Invoke.Target == "" {
		return nil, &CompileError{
			Field:   "invoke.target",
			Message: "invoke target is required",
			Pos:     invokeVal.Pos(),
		}
	}

	expectVal := v.LookupPath(cue.ParsePath("expect"))
	if !expectVal.Exists() {
		return nil, &CompileError{
			Field:   "expect",
			Message: "expect is required",
			Pos:     v.Pos(),
		}
	}
	if err := expectVal.Decode(&sc.Expect); err != nil {
		return nil, formatCUEError(err)
	}
	switch sc.Expect.Outcome {
	case "success", "failure":
	default:
		return nil, &CompileError{
			Field:   "expect.outcome",
			Message: fmt.Sprintf("outcome must be success or failure, got %q", sc.Expect.Outcome),
			Pos:     expectVal.Pos(),
		}
	}
	if sc.Expect.Outcome == "success" && sc.Expect.Code != "" {
		return nil, &CompileError{
			Field:   "expect.code",
			Message: "a success expectation cannot carry a failure code",
			Pos:     expectVal.Pos(),
		}
	}

	return sc, nil
}

// compileActors iterates the actors struct; the field label is the
// actor ID. Each definition is validated through the script package so
// bad reply policies and malformed rules surface at compile time, not
// mid-run.
func compileActors(v cue.Value) ([]script.Definition, error) {
	actorsVal := v.LookupPath(cue.ParsePath("actors"))
	if !actorsVal.Exists() {
		return nil, nil
	}

	iter, err := actorsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var defs []script.Definition
	for iter.Next() {
		var def script.Definition
		if err := iter.Value().Decode(&def); err != nil {
			return nil, formatCUEError(err)
		}
		def.ID = iter.Label()

		if err := def.Validate(); err != nil {
			return nil, &CompileError{
				Field:   "actors." + def.ID,
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		defs = append(defs, def)
	}

	return defs, nil
}

// CompileError is a scenario compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
