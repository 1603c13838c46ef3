package ngram

import (
	"fmt"

	"github.com/dphcar/dphcar/checks"
	"github.com/dphcar/dphcar/corpus"
	log "github.com/golang/glog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Node is a trie node. The path from the root spells an n-gram and Count is
// the number of times it occurs as a window of the corpus.
type Node struct {
	count    int64
	children map[corpus.Symbol]*Node
}

// Count returns the number of occurrences of the node's n-gram. The root
// counts every symbol occurrence of the corpus.
func (nd *Node) Count() int64 { return nd.count }

// Child returns the child reached by s, or nil.
func (nd *Node) Child(s corpus.Symbol) *Node { return nd.children[s] }

// Symbols returns the symbols of nd's children in ascending order.
func (nd *Node) Symbols() []corpus.Symbol {
	syms := maps.Keys(nd.children)
	slices.Sort(syms)
	return syms
}

func (nd *Node) child(s corpus.Symbol) *Node {
	c, ok := nd.children[s]
	if !ok {
		if nd.children == nil {
			nd.children = make(map[corpus.Symbol]*Node)
		}
		c = &Node{}
		nd.children[s] = c
	}
	return c
}

// Exact holds the exact count of every n-gram of length 1..MaxLength that
// occurs in a corpus. It is read-only after Build and safe for concurrent
// queries.
type Exact struct {
	n         int
	maxLength int
	root      *Node
	levels    []int
}

// Build counts every window of length 1..maxLength of every document of c.
// A maxLength of 0 selects c.Lmax(), or 1 for a corpus of empty documents.
// No window is longer than c.Lmax(), so a larger maxLength is rejected with
// ErrInvalidQueryLength.
func Build(c *corpus.Corpus, maxLength int) (*Exact, error) {
	longest := max(c.Lmax(), 1)
	if maxLength == 0 {
		maxLength = longest
	}
	if err := checks.CheckMaxLength(maxLength); err != nil {
		return nil, fmt.Errorf("ngram.Build: %w", err)
	}
	if maxLength > longest {
		return nil, fmt.Errorf("ngram.Build: maxLength is %d, longest document has %d symbols: %w", maxLength, c.Lmax(), ErrInvalidQueryLength)
	}
	e := newExact(c.AlphabetSize(), maxLength)
	for _, d := range c.Docs() {
		for i := range d {
			e.addWindows(d[i:min(i+maxLength, len(d))], 1)
		}
	}
	e.computeLevels()
	log.Infof("Built exact n-gram table: n = %d, max length = %d, distinct n-grams per length = %v", e.n, e.maxLength, e.levels)
	return e, nil
}

func newExact(n, maxLength int) *Exact {
	return &Exact{n: n, maxLength: maxLength, root: &Node{}}
}

// addWindows adds count to every prefix of w.
func (e *Exact) addWindows(w []corpus.Symbol, count int64) {
	nd := e.root
	nd.count += count
	for _, s := range w {
		nd = nd.child(s)
		nd.count += count
	}
}

func (e *Exact) computeLevels() {
	e.levels = make([]int, e.maxLength)
	level := []*Node{e.root}
	for l := 0; l < e.maxLength && len(level) > 0; l++ {
		var next []*Node
		for _, nd := range level {
			for _, c := range nd.children {
				next = append(next, c)
			}
		}
		e.levels[l] = len(next)
		log.V(1).Infof("exact level %d: %d distinct n-grams", l+1, len(next))
		level = next
	}
}

// AlphabetSize returns n.
func (e *Exact) AlphabetSize() int { return e.n }

// MaxLength returns the longest counted n-gram length.
func (e *Exact) MaxLength() int { return e.maxLength }

// Root returns the trie root.
func (e *Exact) Root() *Node { return e.root }

// Levels returns the number of distinct n-grams of each length, index 0
// holding length 1.
func (e *Exact) Levels() []int { return append([]int(nil), e.levels...) }

// Nodes returns the number of distinct n-grams in the table.
func (e *Exact) Nodes() int {
	var total int
	for _, l := range e.levels {
		total += l
	}
	return total
}

// Lookup returns the trie node of g, or nil if g never occurs. It does not
// validate g.
func (e *Exact) Lookup(g NGram) *Node {
	nd := e.root
	for _, s := range g {
		if nd = nd.children[s]; nd == nil {
			return nil
		}
	}
	return nd
}

// CountInt64 returns the exact count of g.
func (e *Exact) CountInt64(g NGram) (int64, error) {
	if err := Validate(g, e.n, e.maxLength); err != nil {
		return 0, err
	}
	if nd := e.Lookup(g); nd != nil {
		return nd.count, nil
	}
	return 0, nil
}

// Count returns the exact count of g as a float64.
func (e *Exact) Count(g NGram) (float64, error) {
	c, err := e.CountInt64(g)
	return float64(c), err
}

// Walk calls fn for every n-gram of the table in depth-first order with
// ascending symbols.
func (e *Exact) Walk(fn func(g NGram, count float64) error) error {
	return e.walk(e.root, make(NGram, 0, e.maxLength), fn)
}

func (e *Exact) walk(nd *Node, prefix NGram, fn func(NGram, float64) error) error {
	for _, s := range nd.Symbols() {
		c := nd.children[s]
		g := append(prefix, s)
		if err := fn(g, float64(c.count)); err != nil {
			return err
		}
		if err := e.walk(c, g, fn); err != nil {
			return err
		}
	}
	return nil
}
