package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calyxlab/calyx/internal/scenario"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
}

// validateDoc is the serializable validation summary.
type validateDoc struct {
	Scenarios []string `json:"scenarios"`
	Files     int      `json:"files"`
	Errors    []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <scenarios-dir>",
		Short: "Compile CUE scenarios without executing them",
		Long: `Compile every scenario in a CUE directory and report problems with
source positions. Nothing is executed.

Exit codes:
  0 - all scenarios compiled
  1 - one or more scenarios are invalid
  2 - command error (invalid paths)

Examples:
  calyx validate ./scenarios
  calyx validate ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *ValidateOptions, scenariosDir string, cmd *cobra.Command) error {
	loaded, errs := scenario.Load(scenariosDir, scenario.LoadModeCollectAll)
	if loaded == nil {
		// Directory level failure: nothing was loadable.
		return NewExitError(ExitCommandError, errs[0].Error())
	}

	doc := validateDoc{Files: loaded.FileCount}
	for _, sc := range loaded.Scenarios {
		doc.Scenarios = append(doc.Scenarios, sc.Name)
	}
	for _, e := range errs {
		doc.Errors = append(doc.Errors, e.Error())
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		if err := out.JSON(doc); err != nil {
			return err
		}
	} else {
		out.Textf("%d file(s), %d scenario(s)\n", doc.Files, len(doc.Scenarios))
		for _, name := range doc.Scenarios {
			out.Textf("  ok  %s\n", name)
		}
		for _, msg := range doc.Errors {
			out.Textf("  err %s\n", msg)
		}
	}

	if len(doc.Errors) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario error(s)", len(doc.Errors)))
	}
	return nil
}
