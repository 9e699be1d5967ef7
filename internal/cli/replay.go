package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mcp-tool-shop-org/attestia/internal/statehash"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	LedgerSnapshot    string
	RegistrarSnapshot string
	Expected          string // optional - also check against a recorded digest
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Verify snapshots by full replay",
		Long: `Reconstruct fresh ledger and registrar instances purely from the
snapshots, re-hash them, and compare against the digests of the original
snapshots. Proves the snapshots are losslessly replayable.

With --expected, the original digest is additionally compared against a
previously recorded global hash.

Exit codes:
  0 - PASS, replayed state hashes identically
  1 - FAIL, one or more subsystems diverged
  2 - Command error (invalid paths, snapshot restore failure)

Examples:
  attestia replay --ledger ledger.json --registrar registrar.json
  attestia replay --ledger ledger.json --registrar registrar.json --expected 4ac1...e2
  attestia replay --ledger ledger.json --registrar registrar.json --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplayVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.LedgerSnapshot, "ledger", "", "path to ledger snapshot JSON (required)")
	_ = cmd.MarkFlagRequired("ledger")
	cmd.Flags().StringVar(&opts.RegistrarSnapshot, "registrar", "", "path to registrar snapshot JSON (required)")
	_ = cmd.MarkFlagRequired("registrar")
	cmd.Flags().StringVar(&opts.Expected, "expected", "", "previously recorded global hash to check against")

	return cmd
}

func runReplayVerify(opts *ReplayOptions, cmd *cobra.Command) error {
	ledgerSnap, err := LoadLedgerSnapshot(opts.LedgerSnapshot)
	if err != nil {
		return err
	}
	registrarSnap, err := LoadRegistrarSnapshot(opts.RegistrarSnapshot)
	if err != nil {
		return err
	}

	verifier := statehash.NewVerifier()
	result, err := verifier.VerifyByReplay(context.Background(), ledgerSnap, registrarSnap, opts.Expected)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed to run", err)
	}

	slog.Debug("replay complete",
		"verdict", result.Verdict,
		"discrepancies", len(result.Discrepancies))

	f := NewFormatter(cmd, opts.RootOptions)
	if f.JSON() {
		return outputReplayJSON(f, result)
	}
	return outputReplayText(f, result)
}

func outputReplayJSON(f *OutputFormatter, result *statehash.ReplayResult) error {
	if result.Verdict != statehash.VerdictPass {
		if err := f.Failure(ErrCodeVerifyFailed, "replay verification failed", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return f.Success(result)
}

func outputReplayText(f *OutputFormatter, result *statehash.ReplayResult) error {
	w := f.Writer

	fmt.Fprintf(w, "Original: %s\n", result.OriginalHash.Hash)
	fmt.Fprintf(w, "Replayed: %s\n", result.ReplayedHash.Hash)

	if f.Verbose {
		fmt.Fprintf(w, "  ledger:    %s -> %s\n", result.OriginalHash.Subsystems.Ledger, result.ReplayedHash.Subsystems.Ledger)
		fmt.Fprintf(w, "  registrum: %s -> %s\n", result.OriginalHash.Subsystems.Registrum, result.ReplayedHash.Subsystems.Registrum)
	}

	for _, d := range result.Discrepancies {
		fmt.Fprintf(w, "  %s: %s\n", d.Subsystem, d.Description)
	}

	if result.Verdict == statehash.VerdictPass {
		fmt.Fprintln(w, "✓ PASS")
		return nil
	}
	fmt.Fprintln(w, "✗ FAIL")
	return NewExitError(ExitFailure, "replay verification failed")
}
