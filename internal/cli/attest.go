package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mcp-tool-shop-org/attestia/internal/attest"
	"github.com/mcp-tool-shop-org/attestia/internal/recon"
	"github.com/mcp-tool-shop-org/attestia/internal/store"
)

// AttestOptions holds flags for the attest command.
type AttestOptions struct {
	*RootOptions
	Inputs     string
	ReportHash string
	Chains     string
	Database   string
	AttestorID string
}

// AttestOutput is the command's JSON payload.
type AttestOutput struct {
	RecordID      string `json:"record_id"`
	ReportID      string `json:"report_id"`
	ReportHash    string `json:"report_hash"`
	StateID       string `json:"state_id"`
	AttestedBy    string `json:"attested_by"`
	AllReconciled bool   `json:"all_reconciled"`
	Saved         bool   `json:"saved"`
}

// NewAttestCommand creates the attest command.
func NewAttestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AttestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "attest",
		Short: "Attest a reconciliation report",
		Long: `Produce a signed-off attestation record for a reconciliation report and
register its state transition.

The report comes either from a fresh reconciliation of --inputs or from a
stored report addressed by --report hash. Attestation records the outcome
whether or not the report reconciled; only registrar invariant violations
reject it.

Exit codes:
  0 - Attestation registered
  1 - Attestation rejected by the registrar
  2 - Command error (invalid paths, unknown report hash, etc.)

Examples:
  attestia attest --inputs records.json --attestor controller-1 --db attestia.db
  attestia attest --report 4ac1...e2 --attestor controller-1 --db attestia.db
  attestia attest --inputs records.json --attestor controller-1 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttest(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Inputs, "inputs", "", "path to reconciliation input JSON")
	cmd.Flags().StringVar(&opts.ReportHash, "report", "", "hash of a stored report to attest")
	cmd.Flags().StringVar(&opts.Chains, "chains", "", "path to CUE chain config (default: built-in topology)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database for stored reports and attestations")
	cmd.Flags().StringVar(&opts.AttestorID, "attestor", "", "attestor identity (required)")
	_ = cmd.MarkFlagRequired("attestor")
	cmd.MarkFlagsMutuallyExclusive("inputs", "report")
	cmd.MarkFlagsOneRequired("inputs", "report")

	return cmd
}

func runAttest(opts *AttestOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	var st *store.Store
	if opts.Database != "" {
		var err error
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
	}

	report, err := resolveReport(ctx, opts, st)
	if err != nil {
		return err
	}

	registrar := attest.NewRegistrar()
	attestor := attest.NewAttestor(opts.AttestorID, registrar)

	record, err := attestor.Attest(ctx, report)
	if err != nil {
		if attest.IsRejection(err) {
			return WrapExitError(ExitFailure, "attestation rejected", err)
		}
		return WrapExitError(ExitCommandError, "attestation failed", err)
	}

	slog.Debug("attestation registered",
		"record", record.ID,
		"state", record.StateID,
		"attestor", record.AttestedBy)

	out := AttestOutput{
		RecordID:      record.ID,
		ReportID:      record.ReconciliationID,
		ReportHash:    record.ReportHash,
		StateID:       record.StateID,
		AttestedBy:    record.AttestedBy,
		AllReconciled: record.AllReconciled,
	}

	if st != nil {
		if _, _, err := st.SaveReport(ctx, report); err != nil {
			return WrapExitError(ExitCommandError, "failed to save report", err)
		}
		inserted, err := st.SaveAttestation(ctx, record)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to save attestation", err)
		}
		out.Saved = inserted
	}

	f := NewFormatter(cmd, opts.RootOptions)
	if f.JSON() {
		return f.Success(out)
	}

	w := f.Writer
	fmt.Fprintf(w, "Attestation: %s\n", out.RecordID)
	fmt.Fprintf(w, "Report:      %s (%s)\n", out.ReportID, out.ReportHash)
	fmt.Fprintf(w, "State:       %s\n", out.StateID)
	fmt.Fprintf(w, "Attestor:    %s\n", out.AttestedBy)
	fmt.Fprintf(w, "Reconciled:  %v\n", out.AllReconciled)
	if opts.Database != "" {
		fmt.Fprintf(w, "Saved:       %v\n", out.Saved)
	}
	return nil
}

// resolveReport loads the report to attest: stored by hash, or a fresh
// reconciliation of the input file.
func resolveReport(ctx context.Context, opts *AttestOptions, st *store.Store) (*recon.ReconciliationReport, error) {
	if opts.ReportHash != "" {
		if st == nil {
			return nil, NewExitError(ExitCommandError, "--report requires --db")
		}
		report, err := st.GetReport(ctx, opts.ReportHash)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load report", err)
		}
		return report, nil
	}

	inputs, err := LoadReconInputs(opts.Inputs)
	if err != nil {
		return nil, err
	}
	registry, err := LoadRegistry(opts.Chains)
	if err != nil {
		return nil, err
	}
	reconciler := recon.NewReconciler(recon.NewCrossChainRules(registry))
	return reconciler.Reconcile(inputs.Intents, inputs.Entries, inputs.Events, nil), nil
}
