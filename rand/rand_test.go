package rand

import (
	"math"
	"testing"

	"github.com/grd/stat"
)

func TestBooleanBufIsShifting(t *testing.T) {
	r := New(7)
	b := r.Split(0)
	buf := b.U8()
	for pos := 0; pos < 8; pos++ {
		want := buf&(1<<pos) > 0
		if got := r.Split(0).bitsAt(pos); got != want {
			t.Errorf("Boolean: got %v, want %v in %v-th iteration", got, want, pos)
		}
	}
}

// bitsAt returns the pos-th Boolean drawn from a fresh generator.
func (r *Rand) bitsAt(pos int) bool {
	var res bool
	for i := 0; i <= pos; i++ {
		res = r.Boolean()
	}
	return res
}

func TestSameSeedSameSequence(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 1000; i++ {
		if x, y := a.Uniform(), b.Uniform(); x != y {
			t.Fatalf("Uniform: draw %d differs for equal seeds: %v != %v", i, x, y)
		}
	}
}

func TestDifferentSeedDifferentSequence(t *testing.T) {
	a, b := New(1), New(2)
	same := 0
	for i := 0; i < 100; i++ {
		if a.Uint64() == b.Uint64() {
			same++
		}
	}
	if same == 100 {
		t.Errorf("Uint64: seeds 1 and 2 produced identical sequences")
	}
}

func TestSplitIsDeterministicAndIndependent(t *testing.T) {
	r := New(42)
	s1, s2 := r.Split(3), New(42).Split(3)
	for i := 0; i < 100; i++ {
		if x, y := s1.Uint64(), s2.Uint64(); x != y {
			t.Fatalf("Split(3): draw %d differs: %d != %d", i, x, y)
		}
	}
	if New(42).Split(3).Uint64() == New(42).Split(4).Uint64() {
		t.Errorf("Split: streams 3 and 4 start with the same value")
	}
	// Splitting does not advance the parent.
	p1, p2 := New(9), New(9)
	p1.Split(1)
	if p1.Uint64() != p2.Uint64() {
		t.Errorf("Split advanced the parent generator")
	}
}

func TestUniformRange(t *testing.T) {
	r := New(0)
	for i := 0; i < 100000; i++ {
		if u := r.Uniform(); u <= 0 || u > 1 {
			t.Fatalf("Uniform()=%v, want value in (0,1]", u)
		}
	}
}

func TestI63nRange(t *testing.T) {
	r := New(0)
	for _, n := range []int64{1, 2, 7, 1 << 40} {
		for i := 0; i < 1000; i++ {
			if got := r.I63n(n); got < 0 || got >= n {
				t.Fatalf("I63n(%d)=%d, want value in [0,%d)", n, got, n)
			}
		}
	}
}

func TestIntnAndFloat64Range(t *testing.T) {
	r := New(5)
	seen := make([]bool, 6)
	for i := 0; i < 1000; i++ {
		got := r.Intn(6)
		if got < 0 || got >= 6 {
			t.Fatalf("Intn(6)=%d, want value in [0,6)", got)
		}
		seen[got] = true
		if f := r.Float64(); f < 0 || f >= 1 {
			t.Fatalf("Float64()=%v, want value in [0,1)", f)
		}
	}
	for v, ok := range seen {
		if !ok {
			t.Errorf("Intn(6) never returned %d in 1000 draws", v)
		}
	}
}

func TestNormalStatistics(t *testing.T) {
	const numberOfSamples = 100000
	r := New(11)
	samples := make(stat.Float64Slice, numberOfSamples)
	for i := range samples {
		samples[i] = r.Normal()
	}
	// 99.9995% quantile of the sample mean / variance distributions.
	meanTolerance := 4.41717 / math.Sqrt(numberOfSamples)
	varianceTolerance := 4.41717 * math.Sqrt2 / math.Sqrt(numberOfSamples)
	if m := stat.Mean(samples); math.Abs(m) > meanTolerance {
		t.Errorf("Normal: got mean %f, want 0 ± %f", m, meanTolerance)
	}
	if v := stat.Variance(samples); math.Abs(v-1) > varianceTolerance {
		t.Errorf("Normal: got variance %f, want 1 ± %f", v, varianceTolerance)
	}
}

func TestGeometricStatistics(t *testing.T) {
	const numberOfSamples = 100000
	r := New(5)
	samples := make(stat.Float64Slice, numberOfSamples)
	for i := range samples {
		samples[i] = r.Geometric()
	}
	// Geometric(1/2) on {1,2,...}: mean 2, variance 2.
	tol := 4.41717 * math.Sqrt(2.0/numberOfSamples)
	if m := stat.Mean(samples); math.Abs(m-2) > tol {
		t.Errorf("Geometric: got mean %f, want 2 ± %f", m, tol)
	}
}
