package cli

import (
	"fmt"
	"path"

	"github.com/spf13/cobra"

	"github.com/calyxlab/calyx/internal/harness"
	"github.com/calyxlab/calyx/internal/scenario"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario name filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario run.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall run result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenarios through the conformance harness",
		Long: `Run every scenario in a CUE directory against a fresh in-memory
store and a real engine, evaluating its expectations.

Exit codes:
  0 - all scenarios passed
  1 - one or more scenarios failed
  2 - command error (invalid paths, broken scenario files)

Examples:
  calyx test ./scenarios
  calyx test ./scenarios --filter "transfer_*"
  calyx test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	loaded, errs := scenario.Load(scenariosDir, scenario.LoadModeCollectAll)
	if len(errs) > 0 {
		out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		details := make([]string, len(errs))
		for i, e := range errs {
			details[i] = e.Error()
		}
		if err := out.Error(scenario.ErrCodeBuildFailed, "scenario compilation failed", details); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("%d scenario error(s) in %s", len(errs), scenariosDir))
	}

	result := TestResult{}
	for _, sc := range loaded.Scenarios {
		if opts.Filter != "" {
			match, err := path.Match(opts.Filter, sc.Name)
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("bad filter %q: %v", opts.Filter, err))
			}
			if !match {
				continue
			}
		}

		run, err := harness.Run(cmd.Context(), &sc, cfg.EngineOptions()...)
		if err != nil {
			return NewExitError(ExitCommandError, fmt.Sprintf("scenario %s: %v", sc.Name, err))
		}

		result.Scenarios = append(result.Scenarios, ScenarioResult{
			Name:   run.Name,
			Pass:   run.Passed(),
			Errors: run.Errors,
		})
		result.Total++
		if run.Passed() {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		if err := out.JSON(result); err != nil {
			return err
		}
	} else {
		for _, sr := range result.Scenarios {
			status := "PASS"
			if !sr.Pass {
				status = "FAIL"
			}
			out.Textf("%s  %s\n", status, sr.Name)
			for _, msg := range sr.Errors {
				out.Textf("      %s\n", msg)
			}
		}
		out.Textf("\n%d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}
