// Package cli implements the dphcar command line.
package cli

import (
	"flag"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Workers int
}

// NewRootCommand creates the root command of the dphcar CLI. glog's flags
// (-v, -logtostderr, ...) are accepted by every command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "dphcar",
		Short: "Differentially private high-confidence association rules",
		Long: `dphcar counts the n-grams of a corpus of symbol sequences, releases a
differentially private version of the counts and mines the rules of highest
confidence from it.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main reports the error through glog
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Marks the Go flag set as parsed; cobra has already set the values.
			return flag.CommandLine.Parse(nil)
		},
	}

	cmd.PersistentFlags().IntVar(&opts.Workers, "workers", 0, "mining goroutines (0 = GOMAXPROCS)")
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	cmd.AddCommand(NewMineCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewCountCommand(opts))

	return cmd
}
