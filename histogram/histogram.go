// Package histogram summarizes mined rules by confidence decile.
package histogram

import (
	"fmt"
	"io"
	"math"

	"github.com/dphcar/dphcar/rules"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/stat"
)

// deciles are the bin thresholds, highest first.
var deciles = [...]float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4, 0.3, 0.2, 0.1, 0}

// dividers bound the bins passed to stat.Histogram, ascending. The outer
// bins catch negative confidences and anything at or above 0.9.
var dividers = []float64{math.Inf(-1), 0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, math.Inf(1)}

// Bin is a decile threshold and the number of confidences it covers.
type Bin struct {
	Threshold float64
	Count     int
}

// Histogram is a cumulative confidence histogram: the bin of decile c counts
// the confidences that are at least c.
type Histogram struct {
	sorted  []float64 // non-NaN confidences, ascending
	total   int
	buckets []float64 // per-divider counts from stat.Histogram
}

// Summarize builds the histogram of confidences. NaN confidences count
// towards Total but not towards any bin.
func Summarize(confidences []float64) *Histogram {
	h := &Histogram{total: len(confidences)}
	for _, c := range confidences {
		switch {
		case math.IsNaN(c):
			continue
		case math.IsInf(c, 1):
			c = math.MaxFloat64
		}
		h.sorted = append(h.sorted, c)
	}
	slices.Sort(h.sorted)
	h.buckets = stat.Histogram(nil, dividers, h.sorted, nil)
	return h
}

// FromRules builds the histogram of the confidences of rs.
func FromRules(rs []rules.Rule) *Histogram {
	cs := make([]float64, len(rs))
	for i, r := range rs {
		cs[i] = r.Confidence
	}
	return Summarize(cs)
}

// Total returns the number of summarized confidences.
func (h *Histogram) Total() int { return h.total }

// Bins returns the cumulative bins from 0.9 down to 0.0. Counts never
// decrease along the result.
func (h *Histogram) Bins() []Bin {
	res := make([]Bin, len(deciles))
	var cum float64
	// h.buckets[j] counts [dividers[j], dividers[j+1]).
	for i, d := range deciles {
		cum += h.buckets[len(h.buckets)-1-i]
		res[i] = Bin{Threshold: d, Count: int(cum)}
	}
	return res
}

// Count returns the number of confidences that are at least threshold.
func (h *Histogram) Count(threshold float64) int {
	i, _ := slices.BinarySearch(h.sorted, threshold)
	return len(h.sorted) - i
}

// Exclusive returns per-bin counts where each confidence lands in the bin of
// the highest decile it strictly exceeds. NaN and zero confidences, and
// negative ones, are not counted.
func (h *Histogram) Exclusive() []Bin {
	res := make([]Bin, len(deciles))
	for i, d := range deciles {
		res[i].Threshold = d
	}
	for _, c := range h.sorted {
		for i, d := range deciles {
			if c > d {
				res[i].Count++
				break
			}
		}
	}
	return res
}

// WriteTo writes one "threshold<TAB>count" line per cumulative bin.
func (h *Histogram) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, b := range h.Bins() {
		n, err := fmt.Fprintf(w, "%5.2f\t%d\n", b.Threshold, b.Count)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
