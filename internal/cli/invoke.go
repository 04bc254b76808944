package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calyxlab/calyx/internal/actor"
	"github.com/calyxlab/calyx/internal/engine"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Payload   string
	ActorsDir string
}

// receiptDoc is the serializable form of an engine receipt.
type receiptDoc struct {
	FlowToken string     `json:"flow_token"`
	Outcome   string     `json:"outcome"`
	Code      string     `json:"code,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Events    []eventDoc `json:"events,omitempty"`
	Data      string     `json:"data,omitempty"`
	Trace     []nodeDoc  `json:"trace"`
}

type eventDoc struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type nodeDoc struct {
	NodeID        string `json:"node_id"`
	Target        string `json:"target"`
	Depth         int    `json:"depth"`
	CorrelationID uint64 `json:"correlation_id"`
	Seq           int64  `json:"seq"`
	Outcome       string `json:"outcome"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <target>",
		Short: "Run a root invocation tree against the store",
		Long: `Run a root invocation tree against the configured store.

Actors are scripted definitions loaded from a CUE directory. On
success the tree's state changes, events, and receipt commit in one
transaction; on failure only the failure receipt is journaled.

Exit codes:
  0 - tree resolved Success
  1 - tree resolved Failure (rolled back)
  2 - command error (bad paths, store, actor definitions)

Examples:
  calyx invoke bank --payload transfer --actors ./scenarios
  calyx invoke bank --payload transfer --actors ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Payload, "payload", "", "invocation payload")
	cmd.Flags().StringVar(&opts.ActorsDir, "actors", "", "CUE directory with actor definitions")

	return cmd
}

func runInvoke(opts *InvokeOptions, target string, cmd *cobra.Command) error {
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

	receipt, err := rt.engine.Invoke(cmd.Context(), actor.ID(target), payload)
	if err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("invoke %s: %v", target, err))
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		if err := out.JSON(receiptToDoc(receipt)); err != nil {
			return err
		}
	} else {
		printReceipt(out, receipt)
	}

	if !receipt.Outcome.OK() {
		return NewExitError(ExitFailure, fmt.Sprintf("flow %s rolled back: %s", receipt.FlowToken, receipt.Outcome))
	}
	return nil
}

func receiptToDoc(r engine.Receipt) receiptDoc {
	doc := receiptDoc{
		FlowToken: r.FlowToken,
		Outcome:   outcomeWord(r.Outcome.OK()),
		Code:      string(r.Outcome.Code()),
		Reason:    r.Outcome.Reason(),
		Data:      string(r.Data),
	}
	for _, ev := range r.Events {
		doc.Events = append(doc.Events, eventDoc{Key: ev.Key, Value: ev.Value})
	}
	for _, node := range r.Trace {
		doc.Trace = append(doc.Trace, nodeDoc{
			NodeID:        node.NodeID,
			Target:        string(node.Target),
			Depth:         node.Depth,
			CorrelationID: node.CorrelationID,
			Seq:           node.Seq,
			Outcome:       node.Outcome.String(),
		})
	}
	return doc
}

func outcomeWord(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func printReceipt(out *OutputFormatter, r engine.Receipt) {
	out.Textf("Flow:    %s\n", r.FlowToken)
	out.Textf("Outcome: %s\n", r.Outcome)
	if len(r.Events) > 0 {
		out.Textf("Events:\n")
		for _, ev := range r.Events {
			out.Textf("  %s=%s\n", ev.Key, ev.Value)
		}
	}
	if len(r.Data) > 0 {
		out.Textf("Data:    %s\n", r.Data)
	}
	if out.Verbose {
		out.Textf("Trace:\n")
		for _, node := range r.Trace {
			out.Textf("  seq=%d depth=%d target=%s outcome=%s\n",
				node.Seq, node.Depth, node.Target, node.Outcome)
		}
	}
}
