package sanitize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Allocator splits a total budget ε across the levels of the n-gram tree.
// Level i of the result (0-based) is spent on n-grams of length i+1.
type Allocator interface {
	Allocate(epsilon float64, levels int) ([]float64, error)
}

// Uniform gives every level the same share ε/levels.
type Uniform struct{}

// Allocate implements Allocator.
func (Uniform) Allocate(epsilon float64, levels int) ([]float64, error) {
	if levels < 1 {
		return nil, fmt.Errorf("levels is %d, must be at least 1", levels)
	}
	shares := make([]float64, levels)
	for i := range shares {
		shares[i] = epsilon / float64(levels)
	}
	return shares, nil
}

func (Uniform) String() string { return "uniform" }

// Geometric gives level i a share proportional to Ratio^i. A Ratio above 1
// favours long n-grams, whose counts are small and most affected by noise.
type Geometric struct {
	Ratio float64
}

// Allocate implements Allocator.
func (g Geometric) Allocate(epsilon float64, levels int) ([]float64, error) {
	if g.Ratio <= 0 || math.IsInf(g.Ratio, 0) || math.IsNaN(g.Ratio) {
		return nil, fmt.Errorf("Geometric Ratio is %f, must be finite and strictly positive", g.Ratio)
	}
	w := make(Weights, levels)
	for i := range w {
		w[i] = math.Pow(g.Ratio, float64(i))
	}
	return w.Allocate(epsilon, levels)
}

func (g Geometric) String() string {
	return "geometric:" + strconv.FormatFloat(g.Ratio, 'g', -1, 64)
}

// Weights gives level i a share proportional to the i-th weight. It needs
// exactly one positive weight per level.
type Weights []float64

// Allocate implements Allocator.
func (w Weights) Allocate(epsilon float64, levels int) ([]float64, error) {
	if levels < 1 {
		return nil, fmt.Errorf("levels is %d, must be at least 1", levels)
	}
	if len(w) != levels {
		return nil, fmt.Errorf("got %d weights for %d levels", len(w), levels)
	}
	var sum float64
	for i, x := range w {
		if !(x > 0) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("weight %d is %f, must be finite and strictly positive", i, x)
		}
		sum += x
	}
	shares := make([]float64, levels)
	for i, x := range w {
		shares[i] = epsilon * x / sum
	}
	return shares, nil
}

func (w Weights) String() string {
	parts := make([]string, len(w))
	for i, x := range w {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return "weights:" + strings.Join(parts, ",")
}

// ParseAllocator parses an allocation policy:
//
//	uniform            (also the empty string)
//	geometric          Geometric{Ratio: 2}
//	geometric:R        Geometric{Ratio: R}
//	weights:w1,w2,...  Weights{w1, w2, ...}
func ParseAllocator(spec string) (Allocator, error) {
	name, arg, hasArg := strings.Cut(strings.TrimSpace(spec), ":")
	switch strings.ToLower(name) {
	case "", "uniform":
		if hasArg {
			return nil, fmt.Errorf("allocator %q takes no argument", spec)
		}
		return Uniform{}, nil
	case "geometric":
		if !hasArg {
			return Geometric{Ratio: 2}, nil
		}
		r, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("allocator %q: bad ratio, err = %v", spec, err)
		}
		return Geometric{Ratio: r}, nil
	case "weights":
		var w Weights
		for _, f := range strings.Split(arg, ",") {
			x, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, fmt.Errorf("allocator %q: bad weight, err = %v", spec, err)
			}
			w = append(w, x)
		}
		return w, nil
	}
	return nil, fmt.Errorf("unknown allocator %q, must be one of uniform, geometric[:ratio], weights:w1,w2,...", spec)
}
