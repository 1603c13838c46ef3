// Package rand provides a seeded source of random numbers and the sampling
// primitives the noise mechanisms are built from.
//
// Every sanitization run draws its noise from a Rand created from an explicit
// seed, so that repeating a run with the same seed reproduces the same noisy
// counts bit for bit.
package rand

import (
	"math"
	"math/bits"

	xrand "golang.org/x/exp/rand"
)

// golden is the 64-bit golden ratio increment used by splitmix64.
const golden = 0x9e3779b97f4a7c15

// Rand is a deterministic pseudo-random generator.
//
// Not thread-safe. Concurrent consumers should each use their own Rand
// obtained from Split.
type Rand struct {
	seed uint64
	src  *xrand.PCGSource
	r    *xrand.Rand

	bitBuf uint8
	bitPos int8
}

// New returns a Rand seeded with seed.
func New(seed int64) *Rand {
	return newRand(uint64(seed))
}

func newRand(seed uint64) *Rand {
	src := &xrand.PCGSource{}
	src.Seed(seed)
	return &Rand{
		seed:   seed,
		src:    src,
		r:      xrand.New(src),
		bitPos: math.MaxInt8,
	}
}

// Seed returns the seed the generator was created with.
func (r *Rand) Seed() uint64 {
	return r.seed
}

// Split returns a new generator whose sequence depends only on r's seed and
// stream. It does not consume randomness from r.
func (r *Rand) Split(stream uint64) *Rand {
	return newRand(splitmix64(r.seed ^ splitmix64(stream+golden)))
}

// Source returns r's underlying source, for use with gonum distributions.
// Draws made through the source advance r.
func (r *Rand) Source() xrand.Source {
	return r.src
}

// splitmix64 is the finalizer of the SplitMix64 generator.
func splitmix64(x uint64) uint64 {
	x += golden
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Uint64 returns a uniformly random uint64.
func (r *Rand) Uint64() uint64 {
	return r.r.Uint64()
}

// U8 returns a uniformly random uint8.
func (r *Rand) U8() uint8 {
	return uint8(r.r.Uint64() >> 56)
}

// Sign returns +1.0 or -1.0 with equal probabilities.
func (r *Rand) Sign() float64 {
	if r.Boolean() {
		return 1.0
	}
	return -1.0
}

// Boolean returns true or false with equal probability.
func (r *Rand) Boolean() bool {
	if r.bitPos > 7 { // Out of random bits.
		r.bitBuf = r.U8()
		r.bitPos = 0
	}
	res := r.bitBuf&(1<<r.bitPos) > 0
	r.bitPos++
	return res
}

// I63n returns an integer from the set {0,...,n-1} uniformly at random.
// The value of n must be positive.
func (r *Rand) I63n(n int64) int64 {
	largestMultipleOfN := (math.MaxInt64 / n) * n
	var positiveRandomInteger int64
	for {
		// Draw random 64 bit sequence and set sign bit to 0.
		positiveRandomInteger = int64(r.Uint64()) & 0x7fffffffffffffff
		if positiveRandomInteger < largestMultipleOfN {
			break
		}
	}
	return positiveRandomInteger % n
}

// Uniform returns a float64 from the interval (0,1] such that each float
// in the interval is returned with positive probability and the resulting
// distribution simulates a continuous uniform distribution on (0, 1].
func (r *Rand) Uniform() float64 {
	i := r.Uint64() % (1 << 53)
	u := (1 + float64(i)/(1<<53)) / math.Pow(2, r.Geometric())
	// We want to avoid returning 0, since we're taking the log of the output.
	if u == 0 {
		return 1
	}
	return u
}

// Geometric returns a float64 that counts the number of Bernoulli trials until
// the first success for a success probability of 0.5.
func (r *Rand) Geometric() float64 {
	// 1 plus the number of leading zeros from an infinite stream of random bits
	// follows the desired geometric distribution.
	b := 1
	var u uint8
	for u == 0 {
		u = r.U8()
		b += bits.LeadingZeros8(u)
	}
	return float64(b)
}

// Normal returns a normally distributed float with mean 0 and standard deviation 1.
func (r *Rand) Normal() float64 {
	return r.r.NormFloat64()
}

// Intn returns an int from the set {0,...,n-1} uniformly at random.
// The value of n must be positive.
func (r *Rand) Intn(n int) int {
	return int(r.I63n(int64(n)))
}

// Float64 returns a float64 from the interval [0,1).
func (r *Rand) Float64() float64 {
	return r.r.Float64()
}
