// Package experiment runs the private mining pipeline against its exact
// counterpart and measures how well the private rules match.
package experiment

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/dphcar/dphcar/corpus"
	"github.com/dphcar/dphcar/histogram"
	"github.com/dphcar/dphcar/ngram"
	"github.com/dphcar/dphcar/noise"
	"github.com/dphcar/dphcar/rules"
	"github.com/dphcar/dphcar/sanitize"
	log "github.com/golang/glog"
)

// Params are the parameters of a single run.
type Params struct {
	Epsilon        float64
	Delta          float64 // Only for Gaussian noise.
	RuleLength     int
	K              int
	Seed           int64
	Allocator      sanitize.Allocator // Defaults to sanitize.Uniform.
	Noise          noise.Noise        // Defaults to Laplace noise.
	ThresholdDelta float64            // 0 selects the sanitizer default.
	Workers        int                // 0 selects GOMAXPROCS.
}

// Decile compares private and exact rules at one confidence threshold c.
type Decile struct {
	Threshold float64
	Retrieved int // Private rules with private confidence ≥ c.
	Correct   int // Retrieved rules whose exact confidence is also ≥ c.
	Found     int // Private rules with exact confidence ≥ c.
	Real      int // Exact rules with confidence ≥ c.
	Precision float64
	Recall    float64
	F1        float64
}

// Report is the outcome of Run.
type Report struct {
	Params  Params
	Private *rules.Result // Mined on the private table, with exact references.
	Exact   *rules.Result // Mined on the exact table.
	// Levels is the number of n-grams the private table kept per length.
	Levels []int
	// Margins is the half-width of the 1-Alpha confidence interval of the
	// private counts per length.
	Margins []float64
	Alpha   float64
	Deciles []Decile
}

// Run sanitizes exact, mines both tables and compares the results. c must be
// the corpus exact was built from; its longest document bounds the
// contribution of a single document.
func Run(ctx context.Context, c *corpus.Corpus, exact *ngram.Exact, p Params) (*Report, error) {
	if exact.MaxLength() < p.RuleLength {
		return nil, fmt.Errorf("experiment: RuleLength is %d, the exact table only holds lengths up to %d", p.RuleLength, exact.MaxLength())
	}
	log.Infof("Run: epsilon = %g, rule length = %d, k = %d, seed = %d", p.Epsilon, p.RuleLength, p.K, p.Seed)
	private, err := sanitize.Sanitize(exact, sanitize.Options{
		Epsilon:        p.Epsilon,
		Delta:          p.Delta,
		Sensitivity:    int64(c.Lmax()),
		Allocator:      p.Allocator,
		Noise:          p.Noise,
		ThresholdDelta: p.ThresholdDelta,
		Seed:           p.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}
	m, err := rules.NewMiner(rules.Options{MaxRuleLength: p.RuleLength, K: p.K, Workers: p.Workers})
	if err != nil {
		return nil, fmt.Errorf("experiment: %w", err)
	}
	priv, err := m.Mine(ctx, private, exact)
	if err != nil {
		return nil, fmt.Errorf("experiment: mining the private table: %w", err)
	}
	ex, err := m.Mine(ctx, exact, nil)
	if err != nil {
		return nil, fmt.Errorf("experiment: mining the exact table: %w", err)
	}
	return &Report{
		Params:  p,
		Private: priv,
		Exact:   ex,
		Levels:  private.Levels(),
		Margins: private.Margins(),
		Alpha:   private.Alpha(),
		Deciles: compare(priv.Rules(), ex.Rules()),
	}, nil
}

// compare scores the private rules against the exact ones at every decile.
// Ratios with a zero denominator are 1.
func compare(private, exact []rules.Rule) []Decile {
	conf := make([]float64, len(private))
	ref := make([]float64, len(private))
	for i, r := range private {
		conf[i], ref[i] = r.Confidence, r.Reference
	}
	retrieved := histogram.Summarize(conf)
	found := histogram.Summarize(ref)
	baseline := histogram.FromRules(exact)

	var res []Decile
	for _, b := range retrieved.Bins() {
		d := Decile{
			Threshold: b.Threshold,
			Retrieved: b.Count,
			Found:     found.Count(b.Threshold),
			Real:      baseline.Count(b.Threshold),
		}
		for _, r := range private {
			if r.Confidence >= d.Threshold && r.Reference >= d.Threshold {
				d.Correct++
			}
		}
		d.Precision = ratio(d.Correct, d.Retrieved)
		d.Recall = ratio(d.Found, d.Real)
		if s := d.Precision + d.Recall; s > 0 {
			d.F1 = 2 * d.Precision * d.Recall / s
		}
		res = append(res, d)
	}
	return res
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 1
	}
	return float64(a) / float64(b)
}

// WriteText writes the histograms and the decile comparison of r.
func (r *Report) WriteText(w io.Writer) error {
	p := r.Params
	if _, err := fmt.Fprintf(w, "Epsilon %g, rule length %d, k %d, seed %d\n", p.Epsilon, p.RuleLength, p.K, p.Seed); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Private n-grams kept per length: %v\n", r.Levels); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Private count margins at %.4g%% confidence per length: %.4g\n", 100*(1-r.Alpha), r.Margins); err != nil {
		return err
	}
	for _, s := range []struct {
		title string
		h     *histogram.Histogram
	}{
		{"Final private histogram:", histogram.FromRules(r.Private.Rules())},
		{"Final non-private histogram:", histogram.FromRules(r.Exact.Rules())},
	} {
		if _, err := fmt.Fprintln(w, s.title); err != nil {
			return err
		}
		if _, err := s.h.WriteTo(w); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "Decile\tPrecision\tRecall\tF1"); err != nil {
		return err
	}
	for _, d := range r.Deciles {
		if _, err := fmt.Fprintf(w, "%5.2f\t%5.2f\t%5.2f\t%5.2f\n", d.Threshold, d.Precision, d.Recall, d.F1); err != nil {
			return err
		}
	}
	return nil
}

// WriteRules writes the private rules, highest ranked first.
func (r *Report) WriteRules(w io.Writer) error {
	for _, rule := range r.Private.Rules() {
		ref := "nan"
		if !math.IsNaN(rule.Reference) {
			ref = fmt.Sprintf("%.4f", rule.Reference)
		}
		if _, err := fmt.Fprintf(w, "%v\t%v\t%.4f\t%s\n", rule.Antecedent, rule.Consequent, rule.Confidence, ref); err != nil {
			return err
		}
	}
	return nil
}
