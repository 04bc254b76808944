package cli

import (
	"fmt"

	"github.com/calyxlab/calyx/internal/actor"
	"github.com/calyxlab/calyx/internal/config"
	"github.com/calyxlab/calyx/internal/engine"
	"github.com/calyxlab/calyx/internal/scenario"
	"github.com/calyxlab/calyx/internal/script"
	"github.com/calyxlab/calyx/internal/store"
	"github.com/calyxlab/calyx/internal/wire"
)

// runtime bundles the store and engine a command operates on.
type runtime struct {
	store  *store.Store
	engine *engine.Engine
}

func (r *runtime) Close() error {
	return r.store.Close()
}

// openRuntime opens the configured store and builds an engine with a
// registry populated from the actor definitions in a CUE directory.
func openRuntime(cfg config.Config, actorsDir string) (*runtime, error) {
	reg := actor.NewRegistry()
	if actorsDir != "" {
		defs, err := loadActorDefs(actorsDir)
		if err != nil {
			return nil, err
		}
		for _, def := range defs {
			h, err := script.New(def)
			if err != nil {
				return nil, NewExitError(ExitCommandError, fmt.Sprintf("actor %s: %v", def.ID, err))
			}
			if err := reg.Register(actor.ID(def.ID), h); err != nil {
				return nil, NewExitError(ExitCommandError, err.Error())
			}
		}
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("open store %s: %v", cfg.StorePath, err))
	}

	eng := engine.New(st, reg, wire.UUIDv7Generator{}, cfg.EngineOptions()...)

	return &runtime{store: st, engine: eng}, nil
}

// loadActorDefs collects the scripted actor definitions from every
// scenario in a CUE directory. The same actor ID appearing in multiple
// scenarios resolves to its first definition.
func loadActorDefs(dir string) ([]script.Definition, error) {
	result, errs := scenario.Load(dir, scenario.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("load actors from %s: %v", dir, errs[0]))
	}

	seen := make(map[string]bool)
	var defs []script.Definition
	for _, sc := range result.Scenarios {
		for _, def := range sc.Actors {
			if seen[def.ID] {
				continue
			}
			seen[def.ID] = true
			defs = append(defs, def)
		}
	}
	return defs, nil
}
