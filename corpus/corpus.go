// Package corpus holds the documents mined for frequent sequences.
//
// A Corpus is a list of documents over the alphabet 1..n. It is built once,
// either from a file, from in-memory documents or by a generator, and is
// read-only afterwards.
package corpus

import (
	"errors"
	"fmt"

	"github.com/dphcar/dphcar/checks"
)

var (
	// ErrInvalidSymbol is returned when a symbol lies outside [1, n].
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInvalidQueryLength is returned when a queried tuple is empty or
	// longer than the longest window that can be counted.
	ErrInvalidQueryLength = errors.New("invalid query length")
)

// Symbol is an element of the alphabet 1..n.
type Symbol = int

// Document is an ordered sequence of symbols.
type Document []Symbol

// Corpus is an immutable collection of documents over an alphabet of size n,
// optionally with the transition graph the documents were generated from.
type Corpus struct {
	n     int
	docs  []Document
	graph map[Symbol][]Symbol
	edges int
	lmax  int
	total int64
}

// New returns a Corpus over the alphabet 1..n holding a copy of docs.
// It fails with ErrInvalidSymbol if any document symbol is outside [1, n].
func New(n int, docs []Document) (*Corpus, error) {
	return newCorpus(n, docs, nil, 0)
}

func newCorpus(n int, docs []Document, graph map[Symbol][]Symbol, edges int) (*Corpus, error) {
	if err := checks.CheckAlphabetSize(n); err != nil {
		return nil, fmt.Errorf("corpus.New: %w", err)
	}
	c := &Corpus{
		n:     n,
		docs:  make([]Document, len(docs)),
		graph: graph,
		edges: edges,
	}
	for i, d := range docs {
		for j, s := range d {
			if s < 1 || s > n {
				return nil, fmt.Errorf("corpus.New: document %d position %d: symbol %d not in [1, %d]: %w", i, j, s, n, ErrInvalidSymbol)
			}
		}
		c.docs[i] = append(Document(nil), d...)
		if len(d) > c.lmax {
			c.lmax = len(d)
		}
		c.total += int64(len(d))
	}
	return c, nil
}

// AlphabetSize returns n.
func (c *Corpus) AlphabetSize() int { return c.n }

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.docs) }

// Doc returns the i-th document. The returned slice must not be modified.
func (c *Corpus) Doc(i int) Document { return c.docs[i] }

// Docs returns all documents. The returned slices must not be modified.
func (c *Corpus) Docs() []Document { return c.docs }

// Lmax returns the length of the longest document, 0 for an empty corpus.
// It bounds how many times a single document can contribute to any one count.
func (c *Corpus) Lmax() int { return c.lmax }

// Symbols returns the total number of symbol occurrences over all documents.
func (c *Corpus) Symbols() int64 { return c.total }

// Edges returns the number of undirected edges of the transition graph, 0
// when the corpus has no graph.
func (c *Corpus) Edges() int { return c.edges }

// Neighbours returns the graph neighbours of s in insertion order, nil when
// the corpus has no graph or s is isolated.
func (c *Corpus) Neighbours(s Symbol) []Symbol { return c.graph[s] }

// ValidateSymbol returns ErrInvalidSymbol if s is outside [1, n].
func (c *Corpus) ValidateSymbol(s Symbol) error {
	if s < 1 || s > c.n {
		return fmt.Errorf("symbol %d not in [1, %d]: %w", s, c.n, ErrInvalidSymbol)
	}
	return nil
}

// Count returns how many times tuple occurs as a contiguous window across all
// documents. It scans every document and is meant for small corpora and for
// checking the n-gram tables; the tables answer the same query in O(len(tuple)).
func (c *Corpus) Count(tuple []Symbol) (int64, error) {
	if len(tuple) == 0 {
		return 0, fmt.Errorf("corpus.Count: empty tuple: %w", ErrInvalidQueryLength)
	}
	if len(tuple) > c.lmax {
		return 0, fmt.Errorf("corpus.Count: tuple of length %d, longest document has %d symbols: %w", len(tuple), c.lmax, ErrInvalidQueryLength)
	}
	for _, s := range tuple {
		if err := c.ValidateSymbol(s); err != nil {
			return 0, fmt.Errorf("corpus.Count: %w", err)
		}
	}
	var count int64
	for _, d := range c.docs {
		for i := 0; i+len(tuple) <= len(d); i++ {
			if windowEqual(d[i:i+len(tuple)], tuple) {
				count++
			}
		}
	}
	return count, nil
}

func windowEqual(w, tuple []Symbol) bool {
	for i := range w {
		if w[i] != tuple[i] {
			return false
		}
	}
	return true
}
