package quadrature

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
)

const threshold float64 = 1e-8

func TestGaussianNodesAndWeights(t *testing.T) {
	tests := []struct {
		mean, variance float64
		n              int
	}{
		{0, 1, 21},
		{3, 0.25, 21},
		{-2, 9, 7},
	}

	for _, test := range tests {
		nodes := make([]float64, test.n)
		weights := make([]float64, test.n)
		GaussianNodesAndWeights(test.mean, test.variance, nodes, weights)

		var z, m1, m2 float64
		for i, x := range nodes {
			z += weights[i]
			m1 += weights[i] * x
			m2 += weights[i] * x * x
		}

		if math.Abs(z-1) > threshold {
			t.Errorf("weights should sum to 1, got %v", z)
		}
		if math.Abs(m1-test.mean) > threshold {
			t.Errorf("mean: expected %v, got %v", test.mean, m1)
		}
		want := test.variance + test.mean*test.mean
		if math.Abs(m2-want) > threshold*math.Max(1, want) {
			t.Errorf("second moment: expected %v, got %v", want, m2)
		}
	}
}

func TestIntegrate(t *testing.T) {
	got := Integrate(math.Exp, 0, 1, 20)
	if want := math.E - 1; math.Abs(got-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestAdaptiveClenshawCurtis(t *testing.T) {
	tests := []struct {
		name  string
		f     func(float64) float64
		scale float64
		want  float64
	}{
		{
			name:  "standard normal kernel",
			f:     func(x float64) float64 { return math.Exp(-x * x / 2) },
			scale: 1,
			want:  math.Sqrt(2 * math.Pi),
		},
		{
			name: "shifted normal density",
			f: func(x float64) float64 {
				return distuv.Normal{Mu: 3, Sigma: 2}.Prob(x)
			},
			scale: 2,
			want:  1,
		},
		{
			name: "normal second moment",
			f: func(x float64) float64 {
				return x * x * distuv.UnitNormal.Prob(x)
			},
			scale: 1,
			want:  1,
		},
	}

	for _, test := range tests {
		got, err := AdaptiveClenshawCurtis(test.f, test.scale, 21, 1e-10)
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
			continue
		}
		if math.Abs(got-test.want) > 1e-8 {
			t.Errorf("%s: expected %v, got %v", test.name, test.want, got)
		}
	}

	if _, err := AdaptiveClenshawCurtis(math.Exp, -1, 21, 1e-10); err == nil {
		t.Error("expected an error for a negative scale")
	}
}

func TestAdaptiveClenshawCurtisNaN(t *testing.T) {
	// Inf·0 once exp(x²) overflows, past |x| ≈ 27.
	f := func(x float64) float64 { return math.Exp(x*x) * math.Exp(-2*x*x) }
	if _, err := AdaptiveClenshawCurtis(f, 1, 21, 1e-10); err == nil {
		t.Error("expected an error for a NaN integrand")
	}
}
