package noise

import (
	"math"
	"testing"

	"github.com/dphcar/dphcar/rand"
)

var (
	ln3 = math.Log(3)

	lap   = Laplace()
	gauss = Gaussian()
)

func nearEqual(a, b, maxError float64) bool {
	return math.Abs(a-b) < maxError
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []Kind{LaplaceNoise, GaussianNoise} {
		if got := ToKind(ToNoise(k)); got != k {
			t.Errorf("ToKind(ToNoise(%v))=%v, want %v", k, got, k)
		}
		parsed, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if parsed != k {
			t.Errorf("ParseKind(%q)=%v, want %v", k.String(), parsed, k)
		}
	}
	if ToNoise(Unrecognised) != nil {
		t.Errorf("ToNoise(Unrecognised) should be nil")
	}
	if got := ToKind(nil); got != Unrecognised {
		t.Errorf("ToKind(nil)=%v, want Unrecognised", got)
	}
}

func TestParseKind(t *testing.T) {
	for _, tc := range []struct {
		name    string
		want    Kind
		wantErr bool
	}{
		{"", LaplaceNoise, false},
		{"Laplace", LaplaceNoise, false},
		{" GAUSSIAN ", GaussianNoise, false},
		{"uniform", Unrecognised, true},
	} {
		got, err := ParseKind(tc.name)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseKind(%q): got err %v, want error %t", tc.name, err, tc.wantErr)
		}
		if got != tc.want {
			t.Errorf("ParseKind(%q)=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestSameSeedSameNoise(t *testing.T) {
	for _, n := range []Noise{lap, gauss} {
		delta := 0.0
		if n == gauss {
			delta = 1e-5
		}
		r1, r2 := rand.New(42), rand.New(42)
		for i := 0; i < 100; i++ {
			a, err := n.AddNoiseFloat64(r1, 10, 1, 3, 0.5, delta)
			if err != nil {
				t.Fatalf("%v.AddNoiseFloat64: %v", n, err)
			}
			b, err := n.AddNoiseFloat64(r2, 10, 1, 3, 0.5, delta)
			if err != nil {
				t.Fatalf("%v.AddNoiseFloat64: %v", n, err)
			}
			if a != b {
				t.Fatalf("%v: draw %d differs for equal seeds: %v != %v", n, i, a, b)
			}
		}
	}
}

var benchResultFloat64 float64

func BenchmarkLaplaceFloat64(b *testing.B) {
	r := rand.New(1)
	var res float64
	for i := 0; i < b.N; i++ {
		res, _ = lap.AddNoiseFloat64(r, 42, 1, 1, ln3, 0)
	}
	benchResultFloat64 = res
}

func BenchmarkGaussianFloat64(b *testing.B) {
	r := rand.New(1)
	var res float64
	for i := 0; i < b.N; i++ {
		res, _ = gauss.AddNoiseFloat64(r, 42, 1, 1, ln3, 1e-5)
	}
	benchResultFloat64 = res
}
