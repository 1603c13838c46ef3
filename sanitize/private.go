package sanitize

import (
	"github.com/dphcar/dphcar/corpus"
	"github.com/dphcar/dphcar/ngram"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type node struct {
	count    float64
	children map[corpus.Symbol]*node
}

func (nd *node) add(s corpus.Symbol, count float64) *node {
	if nd.children == nil {
		nd.children = make(map[corpus.Symbol]*node)
	}
	c := &node{count: count}
	nd.children[s] = c
	return c
}

// Private is a sanitized n-gram table. Counts may be negative or fractional.
// It is read-only and safe for concurrent queries.
type Private struct {
	n          int
	maxLength  int
	seed       int64
	root       *node
	epsilons   []float64
	thresholds []float64
	alpha      float64
	margins    []float64
	levels     []int
}

// AlphabetSize returns n.
func (p *Private) AlphabetSize() int { return p.n }

// MaxLength returns the depth of the tree.
func (p *Private) MaxLength() int { return p.maxLength }

// Seed returns the seed the noise was drawn with.
func (p *Private) Seed() int64 { return p.seed }

// Epsilons returns the budget spent on each level.
func (p *Private) Epsilons() []float64 { return append([]float64(nil), p.epsilons...) }

// Thresholds returns the pruning threshold of each level.
func (p *Private) Thresholds() []float64 { return append([]float64(nil), p.thresholds...) }

// Alpha returns the significance level of Margins.
func (p *Private) Alpha() float64 { return p.alpha }

// Margins returns, for each level, the half-width of the 1-Alpha confidence
// interval of a noisy count around its exact value.
func (p *Private) Margins() []float64 { return append([]float64(nil), p.margins...) }

// Levels returns the number of kept n-grams of each length.
func (p *Private) Levels() []int { return append([]int(nil), p.levels...) }

// Count returns the noisy count of g, or 0 if g was pruned.
func (p *Private) Count(g ngram.NGram) (float64, error) {
	if err := ngram.Validate(g, p.n, p.maxLength); err != nil {
		return 0, err
	}
	nd := p.root
	for _, s := range g {
		if nd = nd.children[s]; nd == nil {
			return 0, nil
		}
	}
	return nd.count, nil
}

// Walk calls fn for every kept n-gram in depth-first order with ascending
// symbols.
func (p *Private) Walk(fn func(g ngram.NGram, count float64) error) error {
	return walk(p.root, make(ngram.NGram, 0, p.maxLength), fn)
}

func walk(nd *node, prefix ngram.NGram, fn func(ngram.NGram, float64) error) error {
	syms := maps.Keys(nd.children)
	slices.Sort(syms)
	for _, s := range syms {
		c := nd.children[s]
		g := append(prefix, s)
		if err := fn(g, c.count); err != nil {
			return err
		}
		if err := walk(c, g, fn); err != nil {
			return err
		}
	}
	return nil
}
