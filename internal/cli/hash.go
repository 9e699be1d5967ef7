package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mcp-tool-shop-org/attestia/internal/statehash"
)

// HashOptions holds flags for the hash command.
type HashOptions struct {
	*RootOptions
	LedgerSnapshot    string
	RegistrarSnapshot string
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Compute the global state hash over subsystem snapshots",
		Long: `Canonicalize and hash the ledger and registrar snapshots independently,
then combine the per-subsystem digests into one global hash.

Wall-clock fields like snapshot creation timestamps do not participate, so
two snapshots of the same logical state always produce the same hash.

Exit codes:
  0 - Hash computed
  2 - Command error (invalid paths, malformed snapshots)

Examples:
  attestia hash --ledger ledger.json --registrar registrar.json
  attestia hash --ledger ledger.json --registrar registrar.json --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.LedgerSnapshot, "ledger", "", "path to ledger snapshot JSON (required)")
	_ = cmd.MarkFlagRequired("ledger")
	cmd.Flags().StringVar(&opts.RegistrarSnapshot, "registrar", "", "path to registrar snapshot JSON (required)")
	_ = cmd.MarkFlagRequired("registrar")

	return cmd
}

func runHash(opts *HashOptions, cmd *cobra.Command) error {
	ledgerSnap, err := LoadLedgerSnapshot(opts.LedgerSnapshot)
	if err != nil {
		return err
	}
	registrarSnap, err := LoadRegistrarSnapshot(opts.RegistrarSnapshot)
	if err != nil {
		return err
	}

	gsh, err := statehash.ComputeGlobalStateHash(ledgerSnap, registrarSnap, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compute state hash", err)
	}

	f := NewFormatter(cmd, opts.RootOptions)
	if f.JSON() {
		return f.Success(gsh)
	}

	w := f.Writer
	fmt.Fprintf(w, "Global:    %s\n", gsh.Hash)
	fmt.Fprintf(w, "Ledger:    %s\n", gsh.Subsystems.Ledger)
	fmt.Fprintf(w, "Registrum: %s\n", gsh.Subsystems.Registrum)
	return nil
}
