package histogram

import (
	"bytes"
	"math"
	"testing"

	"github.com/dphcar/dphcar/ngram"
	"github.com/dphcar/dphcar/rand"
	"github.com/dphcar/dphcar/rules"
	"github.com/google/go-cmp/cmp"
	"github.com/sebdah/goldie/v2"
)

var mixed = []float64{1, 0.75, 2.0 / 3, 0.5, 0.25, 0, -0.4, math.NaN(), 0.95, 0.1}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t, goldie.WithFixtureDir("testdata/golden"), goldie.WithNameSuffix(".golden"))
}

func TestWriteTo(t *testing.T) {
	for _, tc := range []struct {
		name string
		h    *Histogram
	}{
		{"mixed", Summarize(mixed)},
		{"scenario", FromRules([]rules.Rule{{
			Antecedent: ngram.NGram{1},
			Consequent: ngram.NGram{1, 2},
			Confidence: 1,
			Reference:  math.NaN(),
		}})},
	} {
		var buf bytes.Buffer
		n, err := tc.h.WriteTo(&buf)
		if err != nil {
			t.Fatalf("%s: WriteTo: %v", tc.name, err)
		}
		if n != int64(buf.Len()) {
			t.Errorf("%s: WriteTo returned %d, wrote %d bytes", tc.name, n, buf.Len())
		}
		newGoldie(t).Assert(t, tc.name, buf.Bytes())
	}
}

func TestCount(t *testing.T) {
	h := Summarize(mixed)
	for _, tc := range []struct {
		threshold float64
		want      int
	}{
		{1.0, 1},
		{0.95, 2},
		{0.7, 3},
		{0.5, 5},
		{0, 8},
		{-1, 9},
		{2, 0},
	} {
		if got := h.Count(tc.threshold); got != tc.want {
			t.Errorf("Count(%v)=%d, want %d", tc.threshold, got, tc.want)
		}
	}
	if h.Total() != len(mixed) {
		t.Errorf("Total()=%d, want %d", h.Total(), len(mixed))
	}
}

func TestBinsMatchCount(t *testing.T) {
	h := Summarize(mixed)
	for _, b := range h.Bins() {
		if want := h.Count(b.Threshold); b.Count != want {
			t.Errorf("bin %.1f has count %d, Count gives %d", b.Threshold, b.Count, want)
		}
	}
}

func TestBinsAreMonotone(t *testing.T) {
	r := rand.New(5)
	for trial := 0; trial < 20; trial++ {
		cs := make([]float64, 1+r.Intn(200))
		for i := range cs {
			cs[i] = 1.4*r.Float64() - 0.2
		}
		bins := Summarize(cs).Bins()
		for i := 1; i < len(bins); i++ {
			if bins[i].Threshold >= bins[i-1].Threshold {
				t.Fatalf("thresholds not descending: %v", bins)
			}
			if bins[i].Count < bins[i-1].Count {
				t.Errorf("count(%.1f)=%d < count(%.1f)=%d", bins[i].Threshold, bins[i].Count, bins[i-1].Threshold, bins[i-1].Count)
			}
		}
	}
}

func TestExclusive(t *testing.T) {
	want := []Bin{
		{0.9, 2}, {0.8, 0}, {0.7, 1}, {0.6, 1}, {0.5, 0},
		{0.4, 1}, {0.3, 0}, {0.2, 1}, {0.1, 0}, {0, 1},
	}
	if diff := cmp.Diff(want, Summarize(mixed).Exclusive()); diff != "" {
		t.Errorf("Exclusive() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmpty(t *testing.T) {
	h := Summarize(nil)
	for _, b := range h.Bins() {
		if b.Count != 0 {
			t.Errorf("empty histogram has count %d at %.1f", b.Count, b.Threshold)
		}
	}
	if h.Total() != 0 || h.Count(0) != 0 {
		t.Errorf("empty histogram: Total()=%d Count(0)=%d", h.Total(), h.Count(0))
	}
}

func TestInfiniteConfidence(t *testing.T) {
	h := Summarize([]float64{math.Inf(1), 0.5})
	if got := h.Count(0.9); got != 1 {
		t.Errorf("Count(0.9)=%d, want 1", got)
	}
}
