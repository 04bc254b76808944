package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calyxlab/calyx/internal/actor"
	"github.com/calyxlab/calyx/internal/engine"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Payload   string
	ActorsDir string
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query <target>",
		Short: "Run a read-only query against committed state",
		Long: `Run a read-only query against the committed store.

Queries never observe in-flight speculative writes and never mutate
state. The target actor must declare the query capability.

Examples:
  calyx query inventory --payload stock --actors ./scenarios
  calyx query inventory --payload stock --actors ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Payload, "payload", "", "query payload")
	cmd.Flags().StringVar(&opts.ActorsDir, "actors", "", "CUE directory with actor definitions")

	return cmd
}

func runQuery(opts *QueryOptions, target string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	rt, err := openRuntime(cfg, opts.ActorsDir)
	if err != nil {
		return err
	}
	defer rt.Close()

	var payload []byte
	if opts.Payload != "" {
		payload = []byte(opts.Payload)
	}

	data, err := rt.engine.Query(cmd.Context(), actor.ID(target), payload)
	if err != nil {
		code := ExitFailure
		if engine.IsNotFound(err) {
			code = ExitCommandError
		}
		return NewExitError(code, fmt.Sprintf("query %s: %v", target, err))
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.JSON(map[string]string{"target": target, "data": string(data)})
	}
	out.Textf("%s\n", data)
	return nil
}
