// Package sanitize releases a differentially private version of an exact
// n-gram table.
//
// The private table is a tree grown level by level from the root: every node
// kept at length l-1 has its n possible children counted with noise from the
// level's share of the budget, and a child is kept when its noisy count
// reaches the level threshold. Each document changes the length-l counts by
// at most lmax in total, so each level is ε_l-differentially private with
// L1 sensitivity lmax, and the whole tree is ε-differentially private by
// sequential composition.
package sanitize

import (
	"errors"
	"fmt"
	"math"

	"github.com/dphcar/dphcar/checks"
	"github.com/dphcar/dphcar/corpus"
	"github.com/dphcar/dphcar/dpagg"
	"github.com/dphcar/dphcar/ngram"
	"github.com/dphcar/dphcar/noise"
	"github.com/dphcar/dphcar/rand"
	log "github.com/golang/glog"
)

var (
	// ErrInvalidBudget is returned when ε is not a finite positive number.
	ErrInvalidBudget = errors.New("invalid privacy budget")
	// ErrBudgetExhausted is returned when the per-level shares produced by an
	// allocator do not add up to ε.
	ErrBudgetExhausted = errors.New("privacy budget exhausted")
)

// Options configures Sanitize.
type Options struct {
	Epsilon        float64     // Total privacy budget ε. Required.
	Delta          float64     // Noise δ. Must be 0 for Laplace noise and positive for Gaussian noise.
	Sensitivity    int64       // How much a single document can change the counts of one level. Defaults to the table's MaxLength, which should be lmax.
	MaxLength      int         // Depth of the private tree. Defaults to the table's MaxLength.
	Allocator      Allocator   // Split of ε across levels. Defaults to Uniform.
	Noise          noise.Noise // Defaults to Laplace noise.
	ThresholdDelta float64     // Probability that a never-seen child passes the threshold. Defaults to 0.1/n.
	Alpha          float64     // Kept counts lie within Margins of their exact value with probability 1-Alpha. Defaults to 0.05.
	Seed           int64       // Seed of the noise.
}

// Sanitize returns a private table answering the same queries as exact.
//
// The result depends only on exact and opts: equal seeds give bit-identical
// tables. Budget errors are detected before any noise is drawn.
func Sanitize(exact *ngram.Exact, opts Options) (*Private, error) {
	eps := opts.Epsilon
	if !(eps > 0) || math.IsInf(eps, 0) {
		return nil, fmt.Errorf("sanitize: Epsilon is %v, must be finite and strictly positive: %w", eps, ErrInvalidBudget)
	}
	n := exact.AlphabetSize()
	maxLength := opts.MaxLength
	if maxLength == 0 {
		maxLength = exact.MaxLength()
	}
	if maxLength > exact.MaxLength() {
		return nil, fmt.Errorf("sanitize: MaxLength is %d, the exact table only holds lengths up to %d", maxLength, exact.MaxLength())
	}
	if err := checks.CheckMaxLength(maxLength); err != nil {
		return nil, fmt.Errorf("sanitize: %w", err)
	}
	sensitivity := opts.Sensitivity
	if sensitivity == 0 {
		sensitivity = int64(exact.MaxLength())
	}
	if err := checks.CheckMaxContributions(sensitivity); err != nil {
		return nil, fmt.Errorf("sanitize: %w", err)
	}
	alloc := opts.Allocator
	if alloc == nil {
		alloc = Uniform{}
	}
	nz := opts.Noise
	if nz == nil {
		nz = noise.Laplace()
	}
	thresholdDelta := opts.ThresholdDelta
	if thresholdDelta == 0 {
		thresholdDelta = 0.1 / float64(n)
	}
	alpha := opts.Alpha
	if alpha == 0 {
		alpha = 0.05
	}

	shares, err := alloc.Allocate(eps, maxLength)
	if err != nil {
		return nil, fmt.Errorf("sanitize: allocator %v: %w", alloc, err)
	}
	if len(shares) != maxLength {
		return nil, fmt.Errorf("sanitize: allocator %v returned %d shares for %d levels: %w", alloc, len(shares), maxLength, ErrBudgetExhausted)
	}
	if err := checks.CheckBudgetShares(eps, shares); err != nil {
		return nil, fmt.Errorf("sanitize: allocator %v: %v: %w", alloc, err, ErrBudgetExhausted)
	}

	p := &Private{
		n:          n,
		maxLength:  maxLength,
		seed:       opts.Seed,
		root:       &node{},
		epsilons:   shares,
		thresholds: make([]float64, maxLength),
		alpha:      alpha,
		margins:    make([]float64, maxLength),
		levels:     make([]int, maxLength),
	}
	// Every child of a kept node is noised whether or not it occurs, so the
	// candidate set does not depend on the data and the threshold is the
	// noise quantile alone.
	for l := 0; l < maxLength; l++ {
		t, err := nz.Threshold(1, float64(sensitivity), shares[l], opts.Delta, thresholdDelta)
		if err != nil {
			return nil, fmt.Errorf("sanitize: level %d: %w", l+1, err)
		}
		p.thresholds[l] = t - float64(sensitivity)
		ci, err := nz.ComputeConfidenceIntervalFloat64(0, 1, float64(sensitivity), shares[l], opts.Delta, alpha)
		if err != nil {
			return nil, fmt.Errorf("sanitize: level %d: %w", l+1, err)
		}
		p.margins[l] = ci.UpperBound
	}

	base := rand.New(opts.Seed)
	type pair struct {
		exact   *ngram.Node
		private *node
	}
	level := []pair{{exact.Root(), p.root}}
	for l := 0; l < maxLength && len(level) > 0; l++ {
		r := base.Split(uint64(l + 1))
		var next []pair
		for _, pr := range level {
			for s := corpus.Symbol(1); s <= n; s++ {
				var exactCount int64
				var exactChild *ngram.Node
				if pr.exact != nil {
					if exactChild = pr.exact.Child(s); exactChild != nil {
						exactCount = exactChild.Count()
					}
				}
				c, err := dpagg.NewCount(&dpagg.CountOptions{
					Epsilon:                      shares[l],
					Delta:                        opts.Delta,
					MaxPartitionsContributed:     1,
					MaxContributionsPerPartition: sensitivity,
					Noise:                        nz,
					Rand:                         r,
				})
				if err != nil {
					return nil, fmt.Errorf("sanitize: level %d: %w", l+1, err)
				}
				if err := c.IncrementBy(exactCount); err != nil {
					return nil, err
				}
				v, err := c.ResultAbove(p.thresholds[l])
				if err != nil {
					return nil, fmt.Errorf("sanitize: level %d: %w", l+1, err)
				}
				if v == nil {
					continue
				}
				child := pr.private.add(s, *v)
				next = append(next, pair{exactChild, child})
			}
		}
		p.levels[l] = len(next)
		log.V(1).Infof("sanitize level %d: ε = %g, threshold = %g, margin = %g, kept %d of %d candidates", l+1, shares[l], p.thresholds[l], p.margins[l], len(next), len(level)*n)
		level = next
	}
	log.Infof("Sanitized n-gram table: ε = %g, seed = %d, allocator = %v, nodes per level = %v", eps, opts.Seed, alloc, p.levels)
	return p, nil
}
