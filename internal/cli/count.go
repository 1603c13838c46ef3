package cli

import (
	"io"

	"github.com/dphcar/dphcar/corpus"
	"github.com/dphcar/dphcar/ngram"
	"github.com/dphcar/dphcar/noise"
	"github.com/dphcar/dphcar/sanitize"
	log "github.com/golang/glog"
	"github.com/spf13/cobra"
)

// CountOptions holds flags for the count command.
type CountOptions struct {
	*RootOptions
	MaxLength int
	Output    string
	// A positive Epsilon dumps the sanitized table instead of the exact one.
	Epsilon   float64
	Delta     float64
	Seed      int64
	Allocator string
	Noise     string
}

// NewCountCommand creates the count command.
func NewCountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "count <corpus-file>",
		Short: "Dump the n-gram counts of a corpus",
		Long: `Count writes one line per n-gram of the corpus, "count<TAB>symbols", after a
"n max-length" header. With --epsilon it writes the sanitized counts instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd, opts, args[0])
		},
	}

	cmd.Flags().IntVarP(&opts.MaxLength, "max-length", "l", 0, "longest n-gram counted (0 = longest document)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "table file (default stdout)")
	cmd.Flags().Float64VarP(&opts.Epsilon, "epsilon", "e", 0, "privacy budget; 0 dumps the exact counts")
	cmd.Flags().Float64Var(&opts.Delta, "delta", 0, "noise delta, gaussian noise only")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 42, "noise seed")
	cmd.Flags().StringVar(&opts.Allocator, "allocator", "uniform", "budget split across lengths")
	cmd.Flags().StringVar(&opts.Noise, "noise", "laplace", "noise distribution: laplace or gaussian")

	return cmd
}

func runCount(cmd *cobra.Command, opts *CountOptions, path string) error {
	c, err := corpus.ReadFile(path)
	if err != nil {
		return err
	}
	exact, err := ngram.Build(c, opts.MaxLength)
	if err != nil {
		return err
	}
	var table ngram.Walker = exact
	if opts.Epsilon != 0 {
		alloc, err := sanitize.ParseAllocator(opts.Allocator)
		if err != nil {
			return err
		}
		kind, err := noise.ParseKind(opts.Noise)
		if err != nil {
			return err
		}
		private, err := sanitize.Sanitize(exact, sanitize.Options{
			Epsilon:     opts.Epsilon,
			Delta:       opts.Delta,
			Sensitivity: int64(c.Lmax()),
			Allocator:   alloc,
			Noise:       noise.ToNoise(kind),
			Seed:        opts.Seed,
		})
		if err != nil {
			return err
		}
		log.Infof("Sanitized table keeps %v n-grams per length", private.Levels())
		table = private
	}
	return writeTo(cmd.OutOrStdout(), opts.Output, func(w io.Writer) error {
		return ngram.WriteTable(w, table)
	})
}
