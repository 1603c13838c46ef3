package cli

import (
	"fmt"
	"strings"

	"github.com/dphcar/dphcar/corpus"
	"github.com/dphcar/dphcar/rand"
	"github.com/spf13/cobra"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Kind   string
	Seed   int64
	Output string
	corpus.GenerateOptions
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic corpus of random walks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "random", "graph: ring or random")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 42, "generator seed")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "corpus file (default stdout)")
	cmd.Flags().IntVarP(&opts.N, "n", "n", 10, "alphabet size")
	cmd.Flags().Float64Var(&opts.FillRatio, "fill-ratio", 0.5, "fraction of possible edges present (random graph)")
	cmd.Flags().IntVarP(&opts.NumDocs, "docs", "t", 10, "number of documents")
	cmd.Flags().IntVar(&opts.MinDocLen, "min-len", 3, "minimum document length")
	cmd.Flags().IntVar(&opts.MaxDocLen, "max-len", 6, "maximum document length")

	return cmd
}

func runGenerate(cmd *cobra.Command, opts *GenerateOptions) error {
	r := rand.New(opts.Seed)
	var c *corpus.Corpus
	var err error
	switch strings.ToLower(opts.Kind) {
	case "ring":
		c, err = corpus.GenerateRing(opts.GenerateOptions, r)
	case "random":
		c, err = corpus.GenerateRandomGraph(opts.GenerateOptions, r)
	default:
		return fmt.Errorf("kind is %q, must be ring or random", opts.Kind)
	}
	if err != nil {
		return err
	}
	return writeTo(cmd.OutOrStdout(), opts.Output, c.Write)
}
