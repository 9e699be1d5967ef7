package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcp-tool-shop-org/attestia/internal/statehash"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	LedgerSnapshot    string
	RegistrarSnapshot string
	Expected          string
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify snapshots against an expected global hash",
		Long: `Recompute the global state hash from the snapshots and compare it to the
expected digest. This is the fast path: no subsystems are reconstructed.
Use replay for the full round-trip proof.

Exit codes:
  0 - PASS, the recomputed hash equals the expected digest
  1 - FAIL, the hashes diverge
  2 - Command error (invalid paths, malformed snapshots)

Examples:
  attestia verify --ledger ledger.json --registrar registrar.json --expected 4ac1...e2
  attestia verify --ledger ledger.json --registrar registrar.json --expected 4ac1...e2 --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.LedgerSnapshot, "ledger", "", "path to ledger snapshot JSON (required)")
	_ = cmd.MarkFlagRequired("ledger")
	cmd.Flags().StringVar(&opts.RegistrarSnapshot, "registrar", "", "path to registrar snapshot JSON (required)")
	_ = cmd.MarkFlagRequired("registrar")
	cmd.Flags().StringVar(&opts.Expected, "expected", "", "expected global hash (required)")
	_ = cmd.MarkFlagRequired("expected")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	ledgerSnap, err := LoadLedgerSnapshot(opts.LedgerSnapshot)
	if err != nil {
		return err
	}
	registrarSnap, err := LoadRegistrarSnapshot(opts.RegistrarSnapshot)
	if err != nil {
		return err
	}

	verifier := statehash.NewVerifier()
	result, err := verifier.VerifyHash(ledgerSnap, registrarSnap, opts.Expected)
	if err != nil {
		return WrapExitError(ExitCommandError, "verification failed to run", err)
	}

	f := NewFormatter(cmd, opts.RootOptions)
	if f.JSON() {
		if result.Verdict != statehash.VerdictPass {
			if err := f.Failure(ErrCodeVerifyFailed, "hash verification failed", result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "hash verification failed")
		}
		return f.Success(result)
	}

	w := f.Writer
	fmt.Fprintf(w, "Expected: %s\n", result.ExpectedHash)
	fmt.Fprintf(w, "Computed: %s\n", result.ComputedHash.Hash)
	for _, d := range result.Discrepancies {
		fmt.Fprintf(w, "  %s: %s\n", d.Subsystem, d.Description)
	}
	if result.Verdict == statehash.VerdictPass {
		fmt.Fprintln(w, "✓ PASS")
		return nil
	}
	fmt.Fprintln(w, "✗ FAIL")
	return NewExitError(ExitFailure, "hash verification failed")
}
