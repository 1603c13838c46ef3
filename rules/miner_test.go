package rules

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/dphcar/dphcar/corpus"
	"github.com/dphcar/dphcar/ngram"
	"github.com/dphcar/dphcar/rand"
	"github.com/google/go-cmp/cmp"
)

func exactTable(t *testing.T, n, maxLength int, docs ...corpus.Document) *ngram.Exact {
	t.Helper()
	c, err := corpus.New(n, docs)
	if err != nil {
		t.Fatalf("corpus.New: %v", err)
	}
	e, err := ngram.Build(c, maxLength)
	if err != nil {
		t.Fatalf("ngram.Build: %v", err)
	}
	return e
}

func scenarioTable(t *testing.T) *ngram.Exact {
	return exactTable(t, 3, 0, corpus.Document{1, 2, 3}, corpus.Document{1, 2}, corpus.Document{2, 3}, corpus.Document{1, 2, 3})
}

func generatedTable(t *testing.T) *ngram.Exact {
	t.Helper()
	c, err := corpus.GenerateRandomGraph(corpus.GenerateOptions{N: 6, NumDocs: 200, MinDocLen: 2, MaxDocLen: 5}, rand.New(11))
	if err != nil {
		t.Fatalf("GenerateRandomGraph: %v", err)
	}
	e, err := ngram.Build(c, 4)
	if err != nil {
		t.Fatalf("ngram.Build: %v", err)
	}
	return e
}

func mine(t *testing.T, opts Options, table, reference ngram.Table) *Result {
	t.Helper()
	m, err := NewMiner(opts)
	if err != nil {
		t.Fatalf("NewMiner(%+v): %v", opts, err)
	}
	res, err := m.Mine(context.Background(), table, reference)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	return res
}

func rule(a, ab ngram.NGram, conf float64) Rule {
	return Rule{Antecedent: a, Consequent: ab, Confidence: conf, Reference: math.NaN()}
}

func TestMineScenario(t *testing.T) {
	e := scenarioTable(t)
	for _, tc := range []struct {
		k    int
		want []Rule
	}{
		{1, []Rule{rule(ngram.NGram{1}, ngram.NGram{1, 2}, 1)}},
		{3, []Rule{
			rule(ngram.NGram{1}, ngram.NGram{1, 2}, 1),
			rule(ngram.NGram{2}, ngram.NGram{2, 3}, 0.75),
			rule(ngram.NGram{1, 2}, ngram.NGram{1, 2, 3}, 2.0/3),
		}},
	} {
		res := mine(t, Options{MaxRuleLength: 3, K: tc.k, Workers: 1}, e, nil)
		if diff := cmp.Diff(tc.want, res.Rules(), equateNaNs); diff != "" {
			t.Errorf("k=%d: Rules() mismatch (-want +got):\n%s", tc.k, diff)
		}
		if res.CompletedLength != 3 {
			t.Errorf("k=%d: CompletedLength=%d, want 3", tc.k, res.CompletedLength)
		}
	}
}

func TestMineScenarioStats(t *testing.T) {
	res := mine(t, Options{MaxRuleLength: 3, K: 1, Workers: 2, ChunkSize: 4}, scenarioTable(t), nil)
	// Length 2: 9 tuples with one prefix each. Length 3: 27 tuples with two
	// prefixes each, of which only (1,2) and (2,3) have positive counts.
	want := Stats{Candidates: 63, Evaluated: 42, ZeroDenominator: 21}
	if diff := cmp.Diff(want, res.Stats); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
}

// bruteRules scores every candidate of t up to maxRuleLength.
func bruteRules(t *testing.T, table ngram.Table, maxRuleLength int) []Rule {
	t.Helper()
	n := table.AlphabetSize()
	var res []Rule
	var rec func(ab ngram.NGram)
	rec = func(ab ngram.NGram) {
		if len(ab) >= 2 {
			y, err := table.Count(ab)
			if err != nil {
				t.Fatalf("Count(%v): %v", ab, err)
			}
			for al := 1; al < len(ab); al++ {
				x, err := table.Count(ab[:al])
				if err != nil {
					t.Fatalf("Count(%v): %v", ab[:al], err)
				}
				if x > 0 {
					res = append(res, rule(ab[:al], ab, y/x))
				}
			}
		}
		if len(ab) == maxRuleLength {
			return
		}
		for s := 1; s <= n; s++ {
			rec(append(ab.Clone(), s))
		}
	}
	rec(nil)
	return res
}

func TestMineMatchesBruteForce(t *testing.T) {
	e := generatedTable(t)
	all := bruteRules(t, e, 4)
	for _, k := range []int{1, 10, 100} {
		res := mine(t, Options{MaxRuleLength: 4, K: k, Workers: 3, ChunkSize: 7}, e, nil)
		if res.Top.Len() > k {
			t.Errorf("k=%d: retained %d rules", k, res.Top.Len())
		}
		if diff := cmp.Diff(bruteTop(all, k), res.Rules(), equateNaNs); diff != "" {
			t.Errorf("k=%d: Rules() mismatch (-brute force +mined):\n%s", k, diff)
		}
	}
}

func TestMineParallelEqualsSerial(t *testing.T) {
	e := generatedTable(t)
	serial := mine(t, Options{MaxRuleLength: 4, K: 50, Workers: 1}, e, nil)
	for _, tc := range []struct {
		workers, chunk int
	}{
		{2, 1},
		{4, 5},
		{8, 64},
		{0, 0},
	} {
		par := mine(t, Options{MaxRuleLength: 4, K: 50, Workers: tc.workers, ChunkSize: tc.chunk}, e, nil)
		if diff := cmp.Diff(serial.Rules(), par.Rules(), equateNaNs); diff != "" {
			t.Errorf("Workers=%d ChunkSize=%d: Rules() mismatch (-serial +parallel):\n%s", tc.workers, tc.chunk, diff)
		}
		if diff := cmp.Diff(serial.Stats, par.Stats); diff != "" {
			t.Errorf("Workers=%d ChunkSize=%d: Stats mismatch (-serial +parallel):\n%s", tc.workers, tc.chunk, diff)
		}
	}
}

func TestMineReportsProgress(t *testing.T) {
	var calls []Progress
	mine(t, Options{MaxRuleLength: 3, K: 1, Workers: 1, ChunkSize: 4, Progress: func(p Progress) { calls = append(calls, p) }}, scenarioTable(t), nil)
	want := []Progress{
		{Length: 2, Done: 4, Total: 9},
		{Length: 2, Done: 8, Total: 9},
		{Length: 2, Done: 9, Total: 9},
	}
	for done := int64(4); done < 27; done += 4 {
		want = append(want, Progress{Length: 3, Done: done, Total: 27})
	}
	want = append(want, Progress{Length: 3, Done: 27, Total: 27})
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("Progress calls mismatch (-want +got):\n%s", diff)
	}
}

func TestMineCancelAndResume(t *testing.T) {
	e := generatedTable(t)
	full := mine(t, Options{MaxRuleLength: 4, K: 20, Workers: 2}, e, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, err := NewMiner(Options{MaxRuleLength: 4, K: 20, Workers: 1, ChunkSize: 1 << 20, Progress: func(p Progress) {
		if p.Length == 2 && p.Done == p.Total {
			cancel()
		}
	}})
	if err != nil {
		t.Fatalf("NewMiner: %v", err)
	}
	partial, err := m.Mine(ctx, e, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Mine after cancellation: got err %v, want context.Canceled", err)
	}
	if partial.CompletedLength != 2 {
		t.Errorf("CompletedLength=%d, want 2", partial.CompletedLength)
	}
	for _, r := range partial.Rules() {
		if len(r.Consequent) != 2 {
			t.Errorf("cancelled run retained %v, want only length-2 rules", r)
		}
	}
	if diff := cmp.Diff(bruteTop(bruteRules(t, e, 2), 20), partial.Rules(), equateNaNs); diff != "" {
		t.Errorf("cancelled run Rules() mismatch (-want +got):\n%s", diff)
	}

	resumer, err := NewMiner(Options{MaxRuleLength: 4, K: 20, Workers: 3, ChunkSize: 16})
	if err != nil {
		t.Fatalf("NewMiner: %v", err)
	}
	resumed, err := resumer.Resume(context.Background(), partial, e, nil)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if diff := cmp.Diff(full.Rules(), resumed.Rules(), equateNaNs); diff != "" {
		t.Errorf("resumed Rules() mismatch (-full +resumed):\n%s", diff)
	}
	if diff := cmp.Diff(full.Stats, resumed.Stats); diff != "" {
		t.Errorf("resumed Stats mismatch (-full +resumed):\n%s", diff)
	}
	if resumed.CompletedLength != 4 {
		t.Errorf("resumed CompletedLength=%d, want 4", resumed.CompletedLength)
	}
}

func TestMineCancelledWithinLengthKeepsCompletedLengths(t *testing.T) {
	e := scenarioTable(t)
	upTo2 := mine(t, Options{MaxRuleLength: 2, K: 10}, e, nil)
	full := mine(t, Options{MaxRuleLength: 3, K: 10}, e, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// 27 tuples of length 3 in chunks of 14: the first length-3 chunk ends
	// halfway through the level.
	m, err := NewMiner(Options{MaxRuleLength: 3, K: 10, Workers: 1, ChunkSize: 14, Progress: func(p Progress) {
		if p.Length == 3 {
			cancel()
		}
	}})
	if err != nil {
		t.Fatalf("NewMiner: %v", err)
	}
	partial, err := m.Mine(ctx, e, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Mine after cancellation: got err %v, want context.Canceled", err)
	}
	if partial.CompletedLength != 2 {
		t.Errorf("CompletedLength=%d, want 2", partial.CompletedLength)
	}
	for _, r := range partial.Rules() {
		if len(r.Consequent) != 2 {
			t.Errorf("cancelled run retained %v, want only length-2 rules", r)
		}
	}
	if diff := cmp.Diff(upTo2.Rules(), partial.Rules(), equateNaNs); diff != "" {
		t.Errorf("cancelled run Rules() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(upTo2.Stats, partial.Stats); diff != "" {
		t.Errorf("cancelled run Stats mismatch (-want +got):\n%s", diff)
	}

	resumer, err := NewMiner(Options{MaxRuleLength: 3, K: 10, Workers: 2, ChunkSize: 5})
	if err != nil {
		t.Fatalf("NewMiner: %v", err)
	}
	resumed, err := resumer.Resume(context.Background(), partial, e, nil)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if diff := cmp.Diff(full.Rules(), resumed.Rules(), equateNaNs); diff != "" {
		t.Errorf("resumed Rules() mismatch (-full +resumed):\n%s", diff)
	}
	if diff := cmp.Diff(full.Stats, resumed.Stats); diff != "" {
		t.Errorf("resumed Stats mismatch (-full +resumed):\n%s", diff)
	}
}

func TestMineCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, err := NewMiner(Options{MaxRuleLength: 3, K: 5})
	if err != nil {
		t.Fatalf("NewMiner: %v", err)
	}
	res, err := m.Mine(ctx, scenarioTable(t), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Mine: got err %v, want context.Canceled", err)
	}
	if res.CompletedLength != 1 || res.Top.Len() != 0 {
		t.Errorf("got CompletedLength=%d with %d rules, want 1 and none", res.CompletedLength, res.Top.Len())
	}
}

func TestResumeRejectsForeignResults(t *testing.T) {
	m, err := NewMiner(Options{MaxRuleLength: 3, K: 5})
	if err != nil {
		t.Fatalf("NewMiner: %v", err)
	}
	e := scenarioTable(t)
	if _, err := m.Resume(context.Background(), &Result{Top: NewTopK(5)}, e, nil); err == nil {
		t.Errorf("Resume of a hand-made result: got nil error")
	}
	other := mine(t, Options{MaxRuleLength: 3, K: 2}, e, nil)
	if _, err := m.Resume(context.Background(), other, e, nil); err == nil {
		t.Errorf("Resume of a result with a different K: got nil error")
	}
}

func TestMineReference(t *testing.T) {
	e := scenarioTable(t)
	// The reference only contains (1,3): (1) → (1,2) has reference confidence
	// 0, and rules whose antecedent it never saw have none.
	ref := exactTable(t, 3, 3, corpus.Document{1, 3})
	res := mine(t, Options{MaxRuleLength: 3, K: 3}, e, ref)
	want := []Rule{
		{Antecedent: ngram.NGram{1}, Consequent: ngram.NGram{1, 2}, Confidence: 1, Reference: 0},
		{Antecedent: ngram.NGram{2}, Consequent: ngram.NGram{2, 3}, Confidence: 0.75, Reference: math.NaN()},
		{Antecedent: ngram.NGram{1, 2}, Consequent: ngram.NGram{1, 2, 3}, Confidence: 2.0 / 3, Reference: math.NaN()},
	}
	if diff := cmp.Diff(want, res.Rules(), equateNaNs); diff != "" {
		t.Errorf("Rules() mismatch (-want +got):\n%s", diff)
	}

	self := mine(t, Options{MaxRuleLength: 3, K: 3}, e, e)
	for _, r := range self.Rules() {
		if r.Reference != r.Confidence {
			t.Errorf("mined against itself, %v has a different reference", r)
		}
	}
}

// failingTable fails every query longer than maxOK.
type failingTable struct {
	ngram.Table
	maxOK int
}

func (f failingTable) Count(g ngram.NGram) (float64, error) {
	if len(g) > f.maxOK {
		return 0, errors.New("unavailable")
	}
	return f.Table.Count(g)
}

func TestMineCountsFailedQueries(t *testing.T) {
	res := mine(t, Options{MaxRuleLength: 3, K: 10}, failingTable{scenarioTable(t), 2}, nil)
	// Every length-3 candidate with a positive antecedent fails on count(ab).
	want := Stats{Candidates: 63, Evaluated: 9, ZeroDenominator: 21, Invalid: 33}
	if diff := cmp.Diff(want, res.Stats); diff != "" {
		t.Errorf("Stats mismatch (-want +got):\n%s", diff)
	}
	for _, r := range res.Rules() {
		if len(r.Consequent) != 2 {
			t.Errorf("retained %v, want only length-2 rules", r)
		}
	}
}

// wideTable claims a huge alphabet.
type wideTable struct{}

func (wideTable) Count(ngram.NGram) (float64, error) { return 1, nil }
func (wideTable) AlphabetSize() int                  { return 1 << 40 }
func (wideTable) MaxLength() int                     { return 4 }

func TestMineErrors(t *testing.T) {
	e := scenarioTable(t)
	for _, tc := range []struct {
		desc      string
		opts      Options
		table     ngram.Table
		reference ngram.Table
		wantErr   error
	}{
		{"search space overflows", Options{MaxRuleLength: 4, K: 1}, wideTable{}, nil, ErrSearchSpaceTooLarge},
		{"rule length beyond the table", Options{MaxRuleLength: 4, K: 1}, e, nil, ngram.ErrInvalidQueryLength},
		{"rule length beyond the reference", Options{MaxRuleLength: 3, K: 1}, e, exactTable(t, 3, 2, corpus.Document{1, 2}), ngram.ErrInvalidQueryLength},
		{"reference over another alphabet", Options{MaxRuleLength: 3, K: 1}, e, exactTable(t, 4, 3, corpus.Document{1, 2}), nil},
	} {
		m, err := NewMiner(tc.opts)
		if err != nil {
			t.Fatalf("NewMiner: %v", err)
		}
		_, err = m.Mine(context.Background(), tc.table, tc.reference)
		if err == nil {
			t.Errorf("Mine: when %s got nil error", tc.desc)
			continue
		}
		if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
			t.Errorf("Mine: when %s got err %v, want %v", tc.desc, err, tc.wantErr)
		}
	}
}

func TestNewMinerErrors(t *testing.T) {
	for _, tc := range []struct {
		desc string
		opts Options
	}{
		{"MaxRuleLength of 1", Options{MaxRuleLength: 1, K: 1}},
		{"K of 0", Options{MaxRuleLength: 2, K: 0}},
		{"negative Workers", Options{MaxRuleLength: 2, K: 1, Workers: -1}},
		{"negative ChunkSize", Options{MaxRuleLength: 2, K: 1, ChunkSize: -1}},
	} {
		if _, err := NewMiner(tc.opts); err == nil {
			t.Errorf("NewMiner: when %s got nil error", tc.desc)
		}
	}
}

func TestPower(t *testing.T) {
	if got, ok := power(3, 4); !ok || got != 81 {
		t.Errorf("power(3, 4)=%d, %t, want 81, true", got, ok)
	}
	if _, ok := power(1<<40, 2); ok {
		t.Errorf("power(2^40, 2) reported no overflow")
	}
}

func TestIncrementIsLexicographic(t *testing.T) {
	sub := []int{0, 0}
	var got [][]int
	for i := 0; i < 4; i++ {
		got = append(got, append([]int(nil), sub...))
		increment(sub, 2)
	}
	want := [][]int{{0, 0}, {0, 1}, {1, 0}, {1, 1}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("increment order mismatch (-want +got):\n%s", diff)
	}
}
