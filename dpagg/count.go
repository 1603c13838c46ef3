// Package dpagg contains differentially private aggregations over the counts
// of a single n-gram.
package dpagg

import (
	"fmt"

	"github.com/dphcar/dphcar/checks"
	"github.com/dphcar/dphcar/noise"
	"github.com/dphcar/dphcar/rand"
)

// Count calculates a differentially private count of a collection of values
// using the Laplace or Gaussian mechanism.
//
// A privacy unit (a document) may contribute several times to the same count:
// a document of length L contains an n-gram at most L times, so
// MaxContributionsPerPartition is typically the longest document length. It may
// also contribute to MaxPartitionsContributed distinct counts released with the
// same budget.
//
// The provided differentially private count is an unbiased estimate of the raw
// count meaning that its expected value is equal to the raw count. It is a
// float64 and may be negative.
//
// Not thread-safe.
type Count struct {
	// Parameters
	epsilon         float64
	delta           float64
	l0Sensitivity   int64
	lInfSensitivity int64
	noise           noise.Noise
	noiseKind       noise.Kind
	rand            *rand.Rand

	// State variables
	count int64
	state aggregationState
}

// CountOptions contains the options necessary to initialize a Count.
type CountOptions struct {
	Epsilon                      float64     // Privacy parameter ε. Required.
	Delta                        float64     // Privacy parameter δ. Required with Gaussian noise, must be 0 with Laplace noise.
	MaxPartitionsContributed     int64       // How many distinct counts may a single privacy unit contribute to? Defaults to 1.
	MaxContributionsPerPartition int64       // How much may a single privacy unit add to this count? Defaults to 1.
	Noise                        noise.Noise // Type of noise used. Defaults to Laplace noise.
	Rand                         *rand.Rand  // Source of the noise. Required.
}

// NewCount returns a new Count, initialized at 0.
func NewCount(opt *CountOptions) (*Count, error) {
	if opt == nil {
		opt = &CountOptions{}
	}
	// Set defaults.
	l0 := opt.MaxPartitionsContributed
	if l0 == 0 {
		l0 = 1
	}
	lInf := opt.MaxContributionsPerPartition
	if lInf == 0 {
		lInf = 1
	}
	if err := checks.CheckMaxContributions(lInf); err != nil {
		return nil, fmt.Errorf("NewCount: %w", err)
	}
	n := opt.Noise
	if n == nil {
		n = noise.Laplace()
	}
	if opt.Rand == nil {
		return nil, fmt.Errorf("NewCount: Rand is required")
	}
	// Check that the parameters are compatible with the noise chosen.
	eps, del := opt.Epsilon, opt.Delta
	if _, err := n.Scale(l0, float64(lInf), eps, del); err != nil {
		return nil, fmt.Errorf("NewCount: %w", err)
	}

	return &Count{
		epsilon:         eps,
		delta:           del,
		l0Sensitivity:   l0,
		lInfSensitivity: lInf,
		noise:           n,
		noiseKind:       noise.ToKind(n),
		rand:            opt.Rand,
		count:           0,
		state:           defaultState,
	}, nil
}

// Increment increments the count by one.
func (c *Count) Increment() error {
	return c.IncrementBy(1)
}

// IncrementBy increments the count by the given value.
func (c *Count) IncrementBy(count int64) error {
	if c.state != defaultState {
		return fmt.Errorf("Count cannot be amended: %v", c.state.errorMessage())
	}
	c.count += count
	return nil
}

// Result returns a differentially private estimate of the current count. The
// method can be called only once.
//
// The returned value is an unbiased estimate of the raw count. It may be
// negative or fractional.
func (c *Count) Result() (float64, error) {
	if c.state != defaultState {
		return 0, fmt.Errorf("Count's noised result cannot be computed: %v", c.state.errorMessage())
	}
	c.state = resultReturned
	return c.noise.AddNoiseFloat64(c.rand, float64(c.count), c.l0Sensitivity, float64(c.lInfSensitivity), c.epsilon, c.delta)
}

// ResultAbove returns the noised count if it is at least threshold, and nil
// otherwise. Callers that apply the same threshold to many counts compute it
// once with noise.Threshold.
func (c *Count) ResultAbove(threshold float64) (*float64, error) {
	result, err := c.Result()
	if err != nil {
		return nil, err
	}
	if result < threshold {
		return nil, nil
	}
	return &result, nil
}
