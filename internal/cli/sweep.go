package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/dphcar/dphcar/experiment"
	"github.com/spf13/cobra"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Output string
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sweep <config.yaml>",
		Short: "Run a parameter sweep and write averaged results as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "CSV output file (default stdout)")

	return cmd
}

func runSweep(cmd *cobra.Command, opts *SweepOptions, path string) error {
	cfg, err := experiment.LoadConfig(path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = opts.Workers
	}
	summaries, err := experiment.Sweep(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	return writeTo(cmd.OutOrStdout(), opts.Output, func(w io.Writer) error {
		return experiment.WriteCSV(w, summaries)
	})
}

// writeTo calls write on the named file, or on stdout if name is empty.
func writeTo(stdout io.Writer, name string, write func(io.Writer) error) error {
	if name == "" {
		return write(stdout)
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("couldn't create the output file = %q, err = %w", name, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("couldn't write to the output file = %q, err = %w", name, err)
	}
	return f.Close()
}
