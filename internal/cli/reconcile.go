package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcp-tool-shop-org/attestia/internal/ledger"
	"github.com/mcp-tool-shop-org/attestia/internal/recon"
	"github.com/mcp-tool-shop-org/attestia/internal/store"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Inputs   string
	Ledger   string
	Chains   string
	Database string
	From     string
	To       string
	Entities []string
}

// ReconcileOutput is the command's JSON payload.
type ReconcileOutput struct {
	ReportID   string                      `json:"report_id"`
	ReportHash string                      `json:"report_hash,omitempty"`
	Saved      bool                        `json:"saved"`
	Summary    recon.ReconciliationSummary `json:"summary"`
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run three-way reconciliation over an input file",
		Long: `Cross-check intents, ledger entries and chain events from a JSON input
file and report per-pair verdicts plus a summary.

With --ledger, a ledger snapshot file is restored and its derived entries
reconcile alongside the entries from the input file.

Exit codes:
  0 - All records reconciled
  1 - Mismatches, missing counterparts or orphans found
  2 - Command error (invalid paths, bad chain config, etc.)

Examples:
  attestia reconcile --inputs records.json
  attestia reconcile --inputs records.json --ledger ledger.json
  attestia reconcile --inputs records.json --chains chains.cue --db attestia.db
  attestia reconcile --inputs records.json --from 2025-01-01T00:00:00Z --to 2025-02-01T00:00:00Z
  attestia reconcile --inputs records.json --entity acct-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Inputs, "inputs", "", "path to reconciliation input JSON (required)")
	_ = cmd.MarkFlagRequired("inputs")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "reconcile against this ledger snapshot file as well")
	cmd.Flags().StringVar(&opts.Chains, "chains", "", "path to CUE chain config (default: built-in topology)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "save the report to this SQLite database")
	cmd.Flags().StringVar(&opts.From, "from", "", "scope window start, inclusive (RFC 3339)")
	cmd.Flags().StringVar(&opts.To, "to", "", "scope window end, exclusive (RFC 3339)")
	cmd.Flags().StringArrayVar(&opts.Entities, "entity", nil, "restrict to this entity (repeatable)")

	return cmd
}

func runReconcile(opts *ReconcileOptions, cmd *cobra.Command) error {
	inputs, err := LoadReconInputs(opts.Inputs)
	if err != nil {
		return err
	}

	if opts.Ledger != "" {
		snap, err := LoadLedgerSnapshot(opts.Ledger)
		if err != nil {
			return err
		}
		l, err := ledger.FromSnapshot(snap)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("restoring %s", opts.Ledger), err)
		}
		inputs.Entries = append(inputs.Entries, l.Entries()...)
	}

	registry, err := LoadRegistry(opts.Chains)
	if err != nil {
		return err
	}

	scope, err := buildScope(opts.From, opts.To, opts.Entities)
	if err != nil {
		return err
	}

	slog.Debug("reconciling",
		"intents", len(inputs.Intents),
		"entries", len(inputs.Entries),
		"events", len(inputs.Events))

	reconciler := recon.NewReconciler(recon.NewCrossChainRules(registry))
	report := reconciler.Reconcile(inputs.Intents, inputs.Entries, inputs.Events, scope)

	slog.Debug("reconciliation complete",
		"report", report.ID,
		"all_reconciled", report.Summary.AllReconciled)

	out := ReconcileOutput{
		ReportID: report.ID,
		Summary:  report.Summary,
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		hash, inserted, err := st.SaveReport(context.Background(), report)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to save report", err)
		}
		out.ReportHash = hash
		out.Saved = inserted
	}

	f := NewFormatter(cmd, opts.RootOptions)
	if f.JSON() {
		return outputReconcileJSON(f, out)
	}
	return outputReconcileText(f, out, report)
}

// buildScope parses the scope flags. All empty means no scope at all.
func buildScope(from, to string, entities []string) (*recon.Scope, error) {
	if from == "" && to == "" && len(entities) == 0 {
		return nil, nil
	}

	scope := &recon.Scope{Entities: entities}
	if from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --from timestamp", err)
		}
		scope.From = &t
	}
	if to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --to timestamp", err)
		}
		scope.To = &t
	}
	return scope, nil
}

func outputReconcileJSON(f *OutputFormatter, out ReconcileOutput) error {
	if !out.Summary.AllReconciled {
		if err := f.Failure(ErrCodeVerifyFailed, "reconciliation found discrepancies", out); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "reconciliation found discrepancies")
	}
	return f.Success(out)
}

func outputReconcileText(f *OutputFormatter, out ReconcileOutput, report *recon.ReconciliationReport) error {
	w := f.Writer
	s := out.Summary

	fmt.Fprintf(w, "Report: %s\n", out.ReportID)
	if out.ReportHash != "" {
		fmt.Fprintf(w, "Hash:   %s (saved: %v)\n", out.ReportHash, out.Saved)
	}
	fmt.Fprintf(w, "Inputs: %d intents, %d ledger entries, %d chain events\n",
		s.TotalIntents, s.TotalLedgerEntries, s.TotalChainEvents)
	fmt.Fprintf(w, "Verdicts: %d matched, %d mismatched, %d missing, %d orphaned\n",
		s.MatchedCount, s.MismatchCount, s.MissingCount, s.OrphanCount)
	if len(report.CrossChainLinks) > 0 {
		fmt.Fprintf(w, "Cross-chain links: %d\n", len(report.CrossChainLinks))
	}
	fmt.Fprintln(w)

	if f.Verbose {
		for _, d := range s.Discrepancies {
			fmt.Fprintf(w, "  - %s\n", d)
		}
		if len(s.Discrepancies) > 0 {
			fmt.Fprintln(w)
		}
	}

	if s.AllReconciled {
		fmt.Fprintln(w, "✓ All records reconciled")
		return nil
	}

	fmt.Fprintln(w, "✗ Reconciliation found discrepancies")
	return NewExitError(ExitFailure, "reconciliation found discrepancies")
}
