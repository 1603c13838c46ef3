// Package rules mines high-confidence association rules from n-gram tables.
//
// For every rule length l in 2..MaxRuleLength, every tuple ab in {1..n}^l and
// every proper prefix a of ab, the rule a → ab has confidence
// count(ab)/count(a). Only the K highest ranked rules are retained. The
// Cartesian power is split into chunks of consecutive indexes shared by a
// pool of workers, each with its own TopK.
package rules

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dphcar/dphcar/checks"
	"github.com/dphcar/dphcar/ngram"
	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/combin"
)

var (
	// ErrZeroDenominator marks a candidate whose antecedent count is not
	// strictly positive. Such candidates are skipped and counted in
	// Stats.ZeroDenominator; the error is never returned by Mine.
	ErrZeroDenominator = errors.New("antecedent count is not positive")
	// ErrSearchSpaceTooLarge is returned when n^MaxRuleLength does not fit in
	// an int.
	ErrSearchSpaceTooLarge = errors.New("search space too large")
)

const defaultChunkSize = 1024

// Options configures a Miner.
type Options struct {
	MaxRuleLength int // Longest consequent. Must be at least 2.
	K             int // Number of rules retained. Must be at least 1.
	Workers       int // Number of goroutines. Defaults to GOMAXPROCS.
	ChunkSize     int // Tuples handed to a worker at a time. Defaults to 1024.
	// Progress, if set, is called after every chunk. Calls come from the
	// worker goroutines one at a time.
	Progress func(Progress)
}

// Progress reports how far the enumeration of one rule length has gone.
type Progress struct {
	Length      int   // Rule length being enumerated.
	Done, Total int64 // Tuples of this length evaluated so far, and in all.
}

// Stats counts the candidates seen by a mining run.
type Stats struct {
	Candidates      int64 // (a, ab) pairs enumerated.
	Evaluated       int64 // Candidates scored and offered to the top-k set.
	ZeroDenominator int64 // Candidates skipped because count(a) ≤ 0.
	Invalid         int64 // Candidates skipped because a table query failed.
}

func (s *Stats) add(o Stats) {
	s.Candidates += o.Candidates
	s.Evaluated += o.Evaluated
	s.ZeroDenominator += o.ZeroDenominator
	s.Invalid += o.Invalid
}

// Result is the outcome of a mining run, complete or not.
type Result struct {
	// Top holds the retained rules. After a cancellation it holds only rules
	// of lengths up to CompletedLength, and Stats counts only those lengths.
	Top   *TopK
	Stats Stats
	// CompletedLength is the longest rule length whose enumeration finished,
	// 1 if none did.
	CompletedLength int

	committed      *TopK
	committedStats Stats
}

// Rules returns the retained rules, highest ranked first.
func (r *Result) Rules() []Rule { return r.Top.Rules() }

// Miner enumerates and ranks rules. A Miner is immutable and may be used for
// several concurrent runs.
type Miner struct {
	maxRuleLength int
	k             int
	workers       int
	chunkSize     int
	progress      func(Progress)
}

// NewMiner returns a Miner for opts.
func NewMiner(opts Options) (*Miner, error) {
	if err := checks.CheckRuleLength(opts.MaxRuleLength); err != nil {
		return nil, fmt.Errorf("rules.NewMiner: %w", err)
	}
	if err := checks.CheckK(opts.K); err != nil {
		return nil, fmt.Errorf("rules.NewMiner: %w", err)
	}
	if err := checks.CheckWorkers(opts.Workers); err != nil {
		return nil, fmt.Errorf("rules.NewMiner: %w", err)
	}
	workers := opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	chunk := opts.ChunkSize
	if chunk < 0 {
		return nil, fmt.Errorf("rules.NewMiner: ChunkSize is %d, cannot be negative", chunk)
	}
	if chunk == 0 {
		chunk = defaultChunkSize
	}
	return &Miner{
		maxRuleLength: opts.MaxRuleLength,
		k:             opts.K,
		workers:       workers,
		chunkSize:     chunk,
		progress:      opts.Progress,
	}, nil
}

// Mine ranks the rules of table. If reference is non-nil, each retained rule
// also carries its confidence in reference.
//
// Per-candidate failures are counted in Stats and never abort the run. If ctx
// is cancelled, Mine stops within one candidate and returns the rules of the
// completed lengths together with ctx.Err(); the result can be passed to
// Resume.
func (m *Miner) Mine(ctx context.Context, table, reference ngram.Table) (*Result, error) {
	return m.run(ctx, &Result{Top: NewTopK(m.k), CompletedLength: 1, committed: NewTopK(m.k)}, table, reference)
}

// Resume continues a run interrupted by cancellation from the first rule
// length it did not complete. Rules of the interrupted length are recomputed.
func (m *Miner) Resume(ctx context.Context, prev *Result, table, reference ngram.Table) (*Result, error) {
	if prev.committed == nil {
		return nil, fmt.Errorf("rules.Resume: result was not produced by Mine")
	}
	if prev.committed.K() != m.k {
		return nil, fmt.Errorf("rules.Resume: result retains %d rules, miner retains %d", prev.committed.K(), m.k)
	}
	return m.run(ctx, &Result{
		Top:             prev.committed.Clone(),
		Stats:           prev.committedStats,
		CompletedLength: prev.CompletedLength,
		committed:       prev.committed.Clone(),
		committedStats:  prev.committedStats,
	}, table, reference)
}

func (m *Miner) run(ctx context.Context, res *Result, table, reference ngram.Table) (*Result, error) {
	n := table.AlphabetSize()
	if err := checks.CheckAlphabetSize(n); err != nil {
		return nil, fmt.Errorf("rules: %w", err)
	}
	if table.MaxLength() < m.maxRuleLength {
		return nil, fmt.Errorf("rules: MaxRuleLength is %d, the table only answers lengths up to %d: %w", m.maxRuleLength, table.MaxLength(), ngram.ErrInvalidQueryLength)
	}
	if reference != nil {
		if reference.AlphabetSize() != n {
			return nil, fmt.Errorf("rules: reference alphabet size is %d, table alphabet size is %d", reference.AlphabetSize(), n)
		}
		if reference.MaxLength() < m.maxRuleLength {
			return nil, fmt.Errorf("rules: MaxRuleLength is %d, the reference only answers lengths up to %d: %w", m.maxRuleLength, reference.MaxLength(), ngram.ErrInvalidQueryLength)
		}
	}
	if _, ok := power(n, m.maxRuleLength); !ok {
		return nil, fmt.Errorf("rules: %d^%d tuples: %w", n, m.maxRuleLength, ErrSearchSpaceTooLarge)
	}

	for rl := res.CompletedLength + 1; rl <= m.maxRuleLength; rl++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		locals, stats, err := m.mineLength(ctx, rl, n, table, reference)
		if err != nil {
			// Partial results of rl are dropped.
			res.Top = res.committed.Clone()
			res.Stats = res.committedStats
			log.Warningf("Mining interrupted at rule length %d, keeping rules up to length %d: %v", rl, res.CompletedLength, err)
			return res, err
		}
		for _, l := range locals {
			res.Top.Merge(l)
		}
		for _, s := range stats {
			res.Stats.add(s)
		}
		res.CompletedLength = rl
		res.committed = res.Top.Clone()
		res.committedStats = res.Stats
		minConf := math.NaN()
		if r, ok := res.Top.Min(); ok {
			minConf = r.Confidence
		}
		log.Infof("Rule length %d done: %d candidates, %d evaluated, %d zero denominators, %d invalid; top-k minimum confidence %g",
			rl, res.Stats.Candidates, res.Stats.Evaluated, res.Stats.ZeroDenominator, res.Stats.Invalid, minConf)
	}
	return res, nil
}

// mineLength evaluates every tuple of length rl and returns the per-worker
// top-k sets and stats. They are incomplete when err is non-nil.
func (m *Miner) mineLength(ctx context.Context, rl, n int, table, reference ngram.Table) ([]*TopK, []Stats, error) {
	dims := make([]int, rl)
	for i := range dims {
		dims[i] = n
	}
	total := int64(combin.Card(dims))
	chunk := int64(m.chunkSize)
	workers := m.workers
	if nChunks := (total + chunk - 1) / chunk; int64(workers) > nChunks {
		workers = int(nChunks)
	}

	locals := make([]*TopK, workers)
	stats := make([]Stats, workers)
	var cursor, done atomic.Int64
	var progressMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		locals[w] = NewTopK(m.k)
		g.Go(func() error {
			e := &evaluator{
				table:     table,
				reference: reference,
				top:       locals[w],
				stats:     &stats[w],
				sub:       make([]int, rl),
				ab:        make(ngram.NGram, rl),
			}
			for {
				start := cursor.Add(chunk) - chunk
				if start >= total {
					return nil
				}
				end := min(start+chunk, total)
				combin.SubFor(e.sub, int(start), dims)
				for i := start; i < end; i++ {
					select {
					case <-gctx.Done():
						return gctx.Err()
					default:
					}
					e.evaluate()
					increment(e.sub, n)
				}
				d := done.Add(end - start)
				if m.progress != nil {
					progressMu.Lock()
					m.progress(Progress{Length: rl, Done: d, Total: total})
					progressMu.Unlock()
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return locals, stats, ctxErr
		}
		return locals, stats, err
	}
	return locals, stats, nil
}

// evaluator scores the rules of one tuple at a time. It is owned by a single
// worker.
type evaluator struct {
	table, reference ngram.Table
	top              *TopK
	stats            *Stats
	sub              []int
	ab               ngram.NGram
}

// evaluate offers a → ab for every proper prefix a of the tuple at e.sub.
func (e *evaluator) evaluate() {
	for i, v := range e.sub {
		e.ab[i] = v + 1
	}
	var y, y1 float64
	var yErr, y1Err error
	yDone, y1Done := false, false
	for al := 1; al < len(e.ab); al++ {
		e.stats.Candidates++
		a := e.ab[:al]
		x, err := denominator(e.table, a)
		switch {
		case errors.Is(err, ErrZeroDenominator):
			e.stats.ZeroDenominator++
			continue
		case err != nil:
			e.stats.Invalid++
			continue
		}
		if !yDone {
			y, yErr = e.table.Count(e.ab)
			yDone = true
		}
		if yErr != nil {
			e.stats.Invalid++
			continue
		}
		ref := math.NaN()
		if e.reference != nil {
			if x1, err := e.reference.Count(a); err == nil && x1 > 0 {
				if !y1Done {
					y1, y1Err = e.reference.Count(e.ab)
					y1Done = true
				}
				if y1Err == nil {
					ref = y1 / x1
				}
			}
		}
		e.stats.Evaluated++
		e.top.Add(Rule{Antecedent: a, Consequent: e.ab, Confidence: y / x, Reference: ref})
	}
}

// denominator returns count(a) in t, or ErrZeroDenominator if it is not
// strictly positive. Sanitized counts may be zero or negative.
func denominator(t ngram.Table, a ngram.NGram) (float64, error) {
	x, err := t.Count(a)
	if err != nil {
		return 0, err
	}
	if !(x > 0) {
		return 0, fmt.Errorf("count%v = %g: %w", a, x, ErrZeroDenominator)
	}
	return x, nil
}

// increment advances sub to the next tuple in lexicographic order, each digit
// in [0, n).
func increment(sub []int, n int) {
	for i := len(sub) - 1; i >= 0; i-- {
		sub[i]++
		if sub[i] < n {
			return
		}
		sub[i] = 0
	}
}

// power returns n^k and whether it fits in an int.
func power(n, k int) (int, bool) {
	res := 1
	for i := 0; i < k; i++ {
		if res > math.MaxInt/n {
			return 0, false
		}
		res *= n
	}
	return res, true
}
