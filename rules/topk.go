package rules

import (
	"container/heap"
	"fmt"
	"math"

	"github.com/dphcar/dphcar/ngram"
	"golang.org/x/exp/slices"
)

// Rule is an association rule Antecedent → Consequent, where Antecedent is a
// proper prefix of Consequent.
type Rule struct {
	Antecedent ngram.NGram
	Consequent ngram.NGram
	// Confidence is count(Consequent)/count(Antecedent) in the mined table.
	Confidence float64
	// Reference is the same ratio in the reference table, NaN when there is
	// no reference table or its antecedent count is not positive. It never
	// affects which rules are retained.
	Reference float64
}

func (r Rule) String() string {
	if math.IsNaN(r.Reference) {
		return fmt.Sprintf("%v -> %v %.4f", r.Antecedent, r.Consequent, r.Confidence)
	}
	return fmt.Sprintf("%v -> %v %.4f (reference %.4f)", r.Antecedent, r.Consequent, r.Confidence, r.Reference)
}

// clone returns r with its n-grams copied. Consequent and Antecedent share the
// copied backing array.
func (r Rule) clone() Rule {
	c := r.Consequent.Clone()
	r.Consequent = c
	r.Antecedent = c[:len(r.Antecedent):len(r.Antecedent)]
	return r
}

// ranksBelow reports whether a is evicted before b. Rules are ordered by
// confidence, then by consequent, then by antecedent length, so the order is
// total and the retained set does not depend on insertion order.
func ranksBelow(a, b Rule) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence < b.Confidence
	}
	if c := ngram.Compare(a.Consequent, b.Consequent); c != 0 {
		return c < 0
	}
	return len(a.Antecedent) < len(b.Antecedent)
}

// ruleHeap is a min-heap of rules under ranksBelow.
type ruleHeap []Rule

func (h ruleHeap) Len() int           { return len(h) }
func (h ruleHeap) Less(i, j int) bool { return ranksBelow(h[i], h[j]) }
func (h ruleHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *ruleHeap) Push(x any)        { *h = append(*h, x.(Rule)) }
func (h *ruleHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopK retains the k highest ranked rules offered to it.
//
// Not thread-safe. Concurrent miners keep one TopK each and Merge them.
type TopK struct {
	k int
	h ruleHeap
}

// NewTopK returns an empty TopK bounded by k, which must be positive.
func NewTopK(k int) *TopK {
	return &TopK{k: k, h: make(ruleHeap, 0, min(k, 1024))}
}

// K returns the bound.
func (t *TopK) K() int { return t.k }

// Len returns the number of retained rules, at most K.
func (t *TopK) Len() int { return len(t.h) }

// Min returns the lowest ranked retained rule, the next to be evicted.
func (t *TopK) Min() (Rule, bool) {
	if len(t.h) == 0 {
		return Rule{}, false
	}
	return t.h[0], true
}

// Add offers r and reports whether it was retained. When the set is full, r
// replaces the minimum if it ranks above it. r's n-grams are copied only when
// it is retained, so callers may reuse their buffers.
func (t *TopK) Add(r Rule) bool {
	if len(t.h) < t.k {
		heap.Push(&t.h, r.clone())
		return true
	}
	if !ranksBelow(t.h[0], r) {
		return false
	}
	t.h[0] = r.clone()
	heap.Fix(&t.h, 0)
	return true
}

// Merge offers every rule of o to t. o is left unchanged.
func (t *TopK) Merge(o *TopK) {
	for _, r := range o.h {
		if len(t.h) < t.k {
			heap.Push(&t.h, r)
			continue
		}
		if ranksBelow(t.h[0], r) {
			t.h[0] = r
			heap.Fix(&t.h, 0)
		}
	}
}

// Clone returns an independent copy of t.
func (t *TopK) Clone() *TopK {
	return &TopK{k: t.k, h: append(make(ruleHeap, 0, cap(t.h)), t.h...)}
}

// Rules returns the retained rules, highest ranked first.
func (t *TopK) Rules() []Rule {
	res := append([]Rule(nil), t.h...)
	slices.SortFunc(res, func(a, b Rule) int {
		switch {
		case ranksBelow(b, a):
			return -1
		case ranksBelow(a, b):
			return 1
		}
		return 0
	})
	return res
}
