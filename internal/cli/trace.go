package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calyxlab/calyx/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
}

// flowDoc is the serializable form of a committed flow.
type flowDoc struct {
	FlowToken string     `json:"flow_token"`
	Target    string     `json:"target"`
	Outcome   string     `json:"outcome"`
	Code      string     `json:"code,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Data      string     `json:"data,omitempty"`
	Seq       int64      `json:"seq"`
	Events    []eventDoc `json:"events,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <flow-token>",
		Short: "Show a journaled flow's receipt and events",
		Long: `Show the journaled receipt and committed events of a flow.

Failed flows have a receipt but no events or state: the journal is the
only trace a rolled-back tree leaves.

Examples:
  calyx trace 01919f5e-...-c1a0
  calyx trace 01919f5e-...-c1a0 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	return cmd
}

func runTrace(opts *TraceOptions, flowToken string, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("open store %s: %v", cfg.StorePath, err))
	}
	defer st.Close()

	ctx := cmd.Context()

	receipt, err := st.ReadReceipt(ctx, flowToken)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("flow %s not found", flowToken))
	}
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("read receipt: %v", err))
	}

	events, err := st.ReadEvents(ctx, flowToken)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("read events: %v", err))
	}

	doc := flowDoc{
		FlowToken: receipt.FlowToken,
		Target:    string(receipt.Target),
		Outcome:   outcomeWord(receipt.Outcome.OK()),
		Code:      string(receipt.Outcome.Code()),
		Reason:    receipt.Outcome.Reason(),
		Data:      string(receipt.Data),
		Seq:       receipt.Seq,
	}
	for _, ev := range events {
		doc.Events = append(doc.Events, eventDoc{Key: ev.Key, Value: ev.Value})
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return out.JSON(doc)
	}

	out.Textf("Flow:    %s\n", doc.FlowToken)
	out.Textf("Target:  %s\n", doc.Target)
	out.Textf("Outcome: %s\n", receipt.Outcome)
	if doc.Data != "" {
		out.Textf("Data:    %s\n", doc.Data)
	}
	if len(doc.Events) > 0 {
		out.Textf("Events:\n")
		for _, ev := range doc.Events {
			out.Textf("  %s=%s\n", ev.Key, ev.Value)
		}
	}
	return nil
}
