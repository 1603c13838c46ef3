package dpagg

import (
	"math"

	"github.com/dphcar/dphcar/noise"
	"github.com/dphcar/dphcar/rand"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// This file contains structs, functions, and values used to test DP aggregations.

var (
	ln3     = math.Log(3)
	tenten  = math.Pow10(-10)
	tenfive = math.Pow10(-5)
)

// noNoise is a Noise instance that doesn't add noise to the data.
type noNoise struct {
	noise.Noise
}

func (noNoise) AddNoiseInt64(_ *rand.Rand, x, _, _ int64, _, _ float64) (int64, error) {
	return x, nil
}

func (noNoise) AddNoiseFloat64(_ *rand.Rand, x float64, _ int64, _, _, _ float64) (float64, error) {
	return x, nil
}

func (noNoise) Scale(_ int64, _, _, _ float64) (float64, error) {
	return 0, nil
}

func ApproxEqual(x, y float64) bool {
	return cmp.Equal(x, y, cmpopts.EquateApprox(0, tenten))
}

func getNoiselessCount() *Count {
	c, err := NewCount(&CountOptions{
		Epsilon:                  ln3,
		Delta:                    tenten,
		MaxPartitionsContributed: 1,
		Noise:                    noNoise{},
		Rand:                     rand.New(0),
	})
	if err != nil {
		panic(err)
	}
	return c
}
