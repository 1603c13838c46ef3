package corpus

import (
	"fmt"

	"github.com/dphcar/dphcar/checks"
	"github.com/dphcar/dphcar/rand"
	"golang.org/x/exp/slices"
)

const (
	// maxPreferredNext is the maximum number of preferred transitions per node.
	maxPreferredNext = 4
	// maxPreferredWeight bounds the probability of each preferred transition.
	maxPreferredWeight = 0.2
)

// GenerateOptions controls synthetic corpus generation.
type GenerateOptions struct {
	N         int     // Alphabet size (number of graph nodes). Defaults to 10.
	FillRatio float64 // Fraction of the n(n-1)/2 possible edges present, random graph only. Defaults to 0.5.
	NumDocs   int     // Number of documents. Defaults to 10.
	MinDocLen int     // Minimum document length. Defaults to 3.
	MaxDocLen int     // Maximum document length. Defaults to 6.
}

func (o GenerateOptions) withDefaults() (GenerateOptions, error) {
	if o.N == 0 {
		o.N = 10
	}
	if o.FillRatio == 0 {
		o.FillRatio = 0.5
	}
	if o.NumDocs == 0 {
		o.NumDocs = 10
	}
	if o.MinDocLen == 0 {
		o.MinDocLen = 3
	}
	if o.MaxDocLen == 0 {
		o.MaxDocLen = 6
	}
	if err := checks.CheckAlphabetSize(o.N); err != nil {
		return o, err
	}
	if o.FillRatio < 0 || o.FillRatio > 1 {
		return o, fmt.Errorf("FillRatio is %f, must be in [0, 1]", o.FillRatio)
	}
	if o.NumDocs < 0 {
		return o, fmt.Errorf("NumDocs is %d, cannot be negative", o.NumDocs)
	}
	if o.MinDocLen < 1 || o.MaxDocLen < o.MinDocLen {
		return o, fmt.Errorf("document lengths [%d, %d] must satisfy 1 <= MinDocLen <= MaxDocLen", o.MinDocLen, o.MaxDocLen)
	}
	return o, nil
}

// GenerateRing returns a corpus over a ring graph 1-2-...-n-1. Every document
// walks the ring from 1, so the i-th symbol of a document is 1 + i mod n.
func GenerateRing(opt GenerateOptions, r *rand.Rand) (*Corpus, error) {
	opt, err := opt.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("GenerateRing: %w", err)
	}
	graph := make(map[Symbol][]Symbol)
	for x := 1; x <= opt.N; x++ {
		y := 1 + x%opt.N
		graph[x] = append(graph[x], y)
		graph[y] = append(graph[y], x)
	}
	docs := make([]Document, opt.NumDocs)
	for i := range docs {
		l := opt.MinDocLen + r.Intn(opt.MaxDocLen-opt.MinDocLen+1)
		d := make(Document, l)
		for j := range d {
			d[j] = 1 + j%opt.N
		}
		docs[i] = d
	}
	return newCorpus(opt.N, docs, graph, opt.N)
}

type transition struct {
	weight float64
	next   Symbol
}

// GenerateRandomGraph returns a corpus of random walks over a random
// undirected graph with FillRatio·n(n-1)/2 edges.
//
// Each node with neighbours gets up to four preferred transitions, each
// taken with a probability drawn from [0, 0.2); otherwise the walk moves to
// a uniformly chosen neighbour. A walk stops early on an isolated node.
func GenerateRandomGraph(opt GenerateOptions, r *rand.Rand) (*Corpus, error) {
	opt, err := opt.withDefaults()
	if err != nil {
		return nil, fmt.Errorf("GenerateRandomGraph: %w", err)
	}
	n := opt.N

	// Sample e distinct pairs x < y by a partial Fisher-Yates shuffle.
	var pairs [][2]Symbol
	for x := 1; x <= n; x++ {
		for y := x + 1; y <= n; y++ {
			pairs = append(pairs, [2]Symbol{x, y})
		}
	}
	e := int(opt.FillRatio * float64(len(pairs)))
	for i := 0; i < e; i++ {
		j := i + r.Intn(len(pairs)-i)
		pairs[i], pairs[j] = pairs[j], pairs[i]
	}
	chosen := pairs[:e]
	sortPairs(chosen)
	graph := make(map[Symbol][]Symbol)
	for _, p := range chosen {
		graph[p[0]] = append(graph[p[0]], p[1])
		graph[p[1]] = append(graph[p[1]], p[0])
	}

	nexts := make(map[Symbol][]transition)
	for node := 1; node <= n; node++ {
		neigh := graph[node]
		cnt := min(maxPreferredNext, len(neigh))
		for i := 0; i < cnt; i++ {
			nexts[node] = append(nexts[node], transition{
				weight: maxPreferredWeight * r.Float64(),
				next:   neigh[r.Intn(len(neigh))],
			})
		}
	}

	docs := make([]Document, opt.NumDocs)
	for i := range docs {
		l := opt.MinDocLen + r.Intn(opt.MaxDocLen-opt.MinDocLen+1)
		cn := 1 + r.Intn(n)
		var d Document
		for j := 0; j < l; j++ {
			d = append(d, cn)
			if len(nexts[cn]) == 0 {
				break
			}
			cn = step(r, nexts[cn], graph[cn])
		}
		docs[i] = d
	}
	return newCorpus(n, docs, graph, e)
}

// step picks the next node of a walk: a preferred transition if the uniform
// draw falls within its cumulative weight, a random neighbour otherwise.
func step(r *rand.Rand, preferred []transition, neigh []Symbol) Symbol {
	s := r.Float64()
	for _, t := range preferred {
		s -= t.weight
		if s < 0 {
			return t.next
		}
	}
	return neigh[r.Intn(len(neigh))]
}

func sortPairs(p [][2]Symbol) {
	slices.SortFunc(p, func(a, b [2]Symbol) int {
		if a[0] != b[0] {
			return a[0] - b[0]
		}
		return a[1] - b[1]
	})
}
