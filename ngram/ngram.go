// Package ngram counts the contiguous windows ("n-grams") of a corpus.
//
// The exact counts are kept in a trie keyed directly by symbols, so any
// alphabet size representable as an int can be queried.
package ngram

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dphcar/dphcar/corpus"
)

// Errors returned by Validate and by the Count methods of tables.
var (
	ErrInvalidSymbol      = corpus.ErrInvalidSymbol
	ErrInvalidQueryLength = corpus.ErrInvalidQueryLength
)

// NGram is an ordered tuple of symbols used as a count query.
type NGram []corpus.Symbol

// String formats g as (s1,s2,...).
func (g NGram) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, s := range g {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(s))
	}
	b.WriteByte(')')
	return b.String()
}

// Clone returns a copy of g that does not share its backing array.
func (g NGram) Clone() NGram {
	return append(NGram(nil), g...)
}

// Compare orders n-grams lexicographically, a proper prefix first. It returns
// -1, 0 or +1.
func Compare(a, b NGram) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

// Table answers count queries. Counts of private tables may be negative or
// fractional.
type Table interface {
	// Count returns the count of g. N-grams that were never observed (or were
	// pruned) count 0. It fails with ErrInvalidQueryLength or ErrInvalidSymbol
	// for malformed queries.
	Count(g NGram) (float64, error)
	// AlphabetSize returns n; valid symbols are 1..n.
	AlphabetSize() int
	// MaxLength returns the longest n-gram length that may be queried.
	MaxLength() int
}

// Walker is a table whose tracked n-grams can be enumerated.
type Walker interface {
	Table
	// Walk calls fn for every tracked n-gram in depth-first order with
	// ascending symbols, stopping at the first error. fn must not retain g.
	Walk(fn func(g NGram, count float64) error) error
}

// Validate checks that g is a valid query for a table over the alphabet 1..n
// holding n-grams up to maxLength symbols.
func Validate(g NGram, n, maxLength int) error {
	if len(g) == 0 || len(g) > maxLength {
		return fmt.Errorf("n-gram %v has length %d, must be in [1, %d]: %w", g, len(g), maxLength, ErrInvalidQueryLength)
	}
	for _, s := range g {
		if s < 1 || s > n {
			return fmt.Errorf("n-gram %v: symbol %d not in [1, %d]: %w", g, s, n, ErrInvalidSymbol)
		}
	}
	return nil
}
