package cli

import (
	"fmt"
	"os"

	"github.com/dphcar/dphcar/corpus"
	"github.com/dphcar/dphcar/experiment"
	"github.com/dphcar/dphcar/ngram"
	"github.com/dphcar/dphcar/noise"
	"github.com/dphcar/dphcar/sanitize"
	log "github.com/golang/glog"
	"github.com/spf13/cobra"
)

// MineOptions holds flags for the mine command.
type MineOptions struct {
	*RootOptions
	Epsilon        float64
	Delta          float64
	RuleLength     int
	K              int
	Seed           int64
	Allocator      string
	Noise          string
	ThresholdDelta float64
	Rules          string // file receiving the private rules
}

// NewMineCommand creates the mine command.
func NewMineCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MineOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "mine <corpus-file>",
		Short: "Mine the top-k rules of a corpus under a privacy budget",
		Long: `Mine sanitizes the n-gram counts of the corpus with the given budget, mines
the k rules of highest confidence from both the private and the exact counts
and prints their confidence histograms and the per-decile precision, recall
and F1 of the private rules.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMine(cmd, opts, args[0])
		},
	}

	cmd.Flags().Float64VarP(&opts.Epsilon, "epsilon", "e", 1, "privacy budget")
	cmd.Flags().Float64Var(&opts.Delta, "delta", 0, "noise delta, gaussian noise only")
	cmd.Flags().IntVarP(&opts.RuleLength, "rule-length", "r", 2, "longest rule consequent")
	cmd.Flags().IntVarP(&opts.K, "k", "k", 10, "number of rules retained")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 42, "noise seed")
	cmd.Flags().StringVar(&opts.Allocator, "allocator", "uniform", "budget split across lengths: uniform, geometric[:ratio] or weights:w1,w2,...")
	cmd.Flags().StringVar(&opts.Noise, "noise", "laplace", "noise distribution: laplace or gaussian")
	cmd.Flags().Float64Var(&opts.ThresholdDelta, "threshold-delta", 0, "probability that an unseen n-gram is kept (0 = 0.1/n)")
	cmd.Flags().StringVar(&opts.Rules, "rules", "", "write the private rules to this file")

	return cmd
}

func runMine(cmd *cobra.Command, opts *MineOptions, path string) error {
	alloc, err := sanitize.ParseAllocator(opts.Allocator)
	if err != nil {
		return err
	}
	kind, err := noise.ParseKind(opts.Noise)
	if err != nil {
		return err
	}
	c, err := corpus.ReadFile(path)
	if err != nil {
		return err
	}
	exact, err := ngram.Build(c, opts.RuleLength)
	if err != nil {
		return err
	}
	rep, err := experiment.Run(cmd.Context(), c, exact, experiment.Params{
		Epsilon:        opts.Epsilon,
		Delta:          opts.Delta,
		RuleLength:     opts.RuleLength,
		K:              opts.K,
		Seed:           opts.Seed,
		Allocator:      alloc,
		Noise:          noise.ToNoise(kind),
		ThresholdDelta: opts.ThresholdDelta,
		Workers:        opts.Workers,
	})
	if err != nil {
		return err
	}
	log.Infof("Private mining: %+v", rep.Private.Stats)
	if err := rep.WriteText(cmd.OutOrStdout()); err != nil {
		return err
	}
	if opts.Rules == "" {
		return nil
	}
	f, err := os.Create(opts.Rules)
	if err != nil {
		return fmt.Errorf("couldn't create the rules file = %q, err = %w", opts.Rules, err)
	}
	if err := rep.WriteRules(f); err != nil {
		f.Close()
		return fmt.Errorf("couldn't write to the rules file = %q, err = %w", opts.Rules, err)
	}
	return f.Close()
}
