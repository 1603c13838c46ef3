// Package stattestutils provides basic statistical utility functions.
//
// This package is not optimized for performance or speed and is only intended
// to be used in tests.
package stattestutils

import "math"

// SampleMean returns the mean of a slice, calculated as the average over the
// values in the slice.
func SampleMean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / math.Max(1, float64(len(values)))
}

// SampleVariance returns the variance of a slice, calculated as the sum of
// squares of the distance to the mean of each of the values, divided by the
// number of values.
func SampleVariance(values []float64) float64 {
	mean := SampleMean(values)
	var sumOfSquares float64
	for _, v := range values {
		sumOfSquares += math.Pow(v-mean, 2)
	}
	return sumOfSquares / math.Max(1, float64(len(values)))
}

// MeanAbsoluteError returns the average of |got[i]-want[i]| over the common
// prefix of the two slices.
func MeanAbsoluteError(got, want []float64) float64 {
	n := len(got)
	if len(want) < n {
		n = len(want)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Abs(got[i] - want[i])
	}
	return sum / math.Max(1, float64(n))
}
