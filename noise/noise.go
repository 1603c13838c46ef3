// Package noise contains methods to generate and add noise to counts.
//
// All randomness is drawn from a caller supplied *rand.Rand, so that a
// sanitization run is reproducible from its seed.
package noise

import (
	"fmt"
	"strings"

	"github.com/dphcar/dphcar/rand"
	log "github.com/golang/glog"
)

// Kind is an enum type. Its values are the supported noise distributions types
// for differential privacy operations.
type Kind int

// Noise distributions used to achieve Differential Privacy.
const (
	GaussianNoise Kind = iota
	LaplaceNoise
	Unrecognised
)

// String returns the lower case name of the kind, as accepted by ParseKind.
func (k Kind) String() string {
	switch k {
	case GaussianNoise:
		return "gaussian"
	case LaplaceNoise:
		return "laplace"
	}
	return "unrecognised"
}

// ParseKind converts a noise name ("laplace" or "gaussian", case insensitive)
// into a Kind.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "laplace", "":
		return LaplaceNoise, nil
	case "gaussian":
		return GaussianNoise, nil
	}
	return Unrecognised, fmt.Errorf("unknown noise %q, must be one of laplace, gaussian", name)
}

// ToNoise converts a Kind into a Noise instance.
func ToNoise(k Kind) Noise {
	switch k {
	case GaussianNoise:
		return Gaussian()
	case LaplaceNoise:
		return Laplace()
	case Unrecognised:
		log.Warningf("ToNoise: Unrecognised noise specified, returning nil")
	default:
		log.Warningf("ToNoise: unknown kind (%v) specified, returning nil", k)
	}
	return nil
}

// ToKind converts a Noise instance into a Kind.
func ToKind(n Noise) Kind {
	switch n {
	case Gaussian():
		return GaussianNoise
	case Laplace():
		return LaplaceNoise
	case nil:
		log.Warningf("ToKind: nil noise specified, returning Unrecognised")
	default:
		log.Warningf("ToKind: unknown Noise (%v) specified, returning Unrecognised", n)
	}
	return Unrecognised
}

// ConfidenceInterval holds lower and upper bounds as float64 for the confidence interval.
type ConfidenceInterval struct {
	LowerBound, UpperBound float64
}

// Noise is an interface for primitives that add noise to data to make it differentially private.
type Noise interface {
	// AddNoiseInt64 adds noise drawn from r to the specified int64 x so that the
	// output is ε-differentially private given the L_0 and L_∞ sensitivities of the database.
	AddNoiseInt64(r *rand.Rand, x, l0Sensitivity, lInfSensitivity int64, epsilon, delta float64) (int64, error)

	// AddNoiseFloat64 adds noise drawn from r to the specified float64 x so that the
	// output is ε-differentially private given the L_0 and L_∞ sensitivities of the database.
	AddNoiseFloat64(r *rand.Rand, x float64, l0Sensitivity int64, lInfSensitivity, epsilon, delta float64) (float64, error)

	// Threshold returns the smallest threshold k such that a count to which a
	// single privacy unit contributed at most lInfSensitivity (and which would
	// not exist without it) exceeds k after noising with probability at most
	// thresholdDelta, taking the l0Sensitivity partitions a unit may touch into
	// account.
	Threshold(l0Sensitivity int64, lInfSensitivity, epsilon, noiseDelta, thresholdDelta float64) (float64, error)

	// Scale returns the scale parameter of the noise distribution: λ for
	// Laplace noise, σ for Gaussian noise.
	Scale(l0Sensitivity int64, lInfSensitivity, epsilon, delta float64) (float64, error)

	// ComputeConfidenceIntervalFloat64 computes a confidence interval that contains the raw value x from which float64
	// noisedX is computed with a probability equal to 1 - alpha based on the specified noise parameters.
	ComputeConfidenceIntervalFloat64(noisedX float64, l0Sensitivity int64, lInfSensitivity, epsilon, delta, alpha float64) (ConfidenceInterval, error)
}
