package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ChainsOptions holds flags for the chains command.
type ChainsOptions struct {
	*RootOptions
	Config string
}

// ChainInfo is one chain in the chains command output.
type ChainInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Decimals  int64  `json:"decimals"`
	Symbol    string `json:"symbol"`
	SettlesTo string `json:"settles_to,omitempty"`
}

// NewChainsCommand creates the chains command.
func NewChainsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChainsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "chains",
		Short: "Validate and list the chain topology",
		Long: `Compile the chain configuration, validate it against the schema, and
list the resulting topology. Without --config the built-in topology is shown.

Exit codes:
  0 - Configuration valid
  2 - Configuration invalid or not found

Examples:
  attestia chains
  attestia chains --config chains.cue
  attestia chains --config chains.cue --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChains(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "path to CUE chain config")

	return cmd
}

func runChains(opts *ChainsOptions, cmd *cobra.Command) error {
	registry, err := LoadRegistry(opts.Config)
	if err != nil {
		return err
	}

	infos := make([]ChainInfo, 0)
	for _, id := range registry.IDs() {
		c, _ := registry.Chain(id)
		infos = append(infos, ChainInfo{
			ID:        c.ID,
			Name:      c.Name,
			Decimals:  c.Decimals,
			Symbol:    c.Symbol,
			SettlesTo: c.SettlesTo,
		})
	}

	f := NewFormatter(cmd, opts.RootOptions)
	if f.JSON() {
		return f.Success(infos)
	}

	w := f.Writer
	fmt.Fprintf(w, "Chains: %d\n", len(infos))
	for _, c := range infos {
		if c.SettlesTo != "" {
			fmt.Fprintf(w, "  %s (%s, %d decimals, %s) settles to %s\n", c.ID, c.Name, c.Decimals, c.Symbol, c.SettlesTo)
		} else {
			fmt.Fprintf(w, "  %s (%s, %d decimals, %s)\n", c.ID, c.Name, c.Decimals, c.Symbol)
		}
	}
	return nil
}
