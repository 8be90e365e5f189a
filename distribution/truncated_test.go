package distribution

import (
	"math"
	"testing"

	"github.com/samuelfneumann/factor/quadrature"
)

// numericalMoments integrates exp(logp) over [lo, hi] and returns the
// normalized mean and variance.
func numericalMoments(logp func(float64) float64, lo, hi float64) (mean, variance float64) {
	const nodes = 200
	z := quadrature.Integrate(func(x float64) float64 { return math.Exp(logp(x)) }, lo, hi, nodes)
	m1 := quadrature.Integrate(func(x float64) float64 { return x * math.Exp(logp(x)) }, lo, hi, nodes)
	m2 := quadrature.Integrate(func(x float64) float64 { return x * x * math.Exp(logp(x)) }, lo, hi, nodes)
	mean = m1 / z
	return mean, m2/z - mean*mean
}

func TestTruncatedGaussianMoments(t *testing.T) {
	const m, v = 0.5, 2.0
	s := math.Sqrt(v)
	g := NewGaussian(m, v)

	tests := []struct {
		lower, upper float64
	}{
		{0, math.Inf(1)},
		{math.Inf(-1), -1},
		{-1, 2},
		{3, 4},
		{-6, -5},
	}

	for _, test := range tests {
		tg := NewTruncatedGaussian(m, v, test.lower, test.upper)
		lo := math.Max(test.lower, m-12*s)
		hi := math.Min(test.upper, m+12*s)
		wantMean, wantVar := numericalMoments(g.GetLogProb, lo, hi)

		gotMean, gotVar := tg.GetMeanAndVariance()
		if math.Abs(gotMean-wantMean) > 1e-8 || math.Abs(gotVar-wantVar) > 1e-8 {
			t.Errorf("%v: expected (%v, %v), got (%v, %v)", tg, wantMean,
				wantVar, gotMean, gotVar)
		}

		// The truncated density integrates to one.
		mass := quadrature.Integrate(func(x float64) float64 {
			return math.Exp(tg.GetLogProb(x))
		}, lo, hi, 200)
		if math.Abs(mass-1) > 1e-8 {
			t.Errorf("%v: density integrates to %v", tg, mass)
		}
	}
}

func TestTruncatedGaussianPointMass(t *testing.T) {
	tg := NewTruncatedGaussian(0, 1, 2, 2)
	if !tg.IsPointMass() || tg.Point() != 2 {
		t.Errorf("equal bounds should be a point mass, got %v", tg)
	}
	if mean, variance := tg.GetMeanAndVariance(); mean != 2 || variance != 0 {
		t.Errorf("expected (2, 0), got (%v, %v)", mean, variance)
	}
}

func TestTruncatedGammaMoments(t *testing.T) {
	g := NewGamma(3, 2)
	tests := []struct {
		lower, upper float64
	}{
		{0.5, 2},
		{0, 1},
		{4, math.Inf(1)},
	}

	for _, test := range tests {
		tg := NewTruncatedGamma(g.Shape, g.Rate, test.lower, test.upper)
		hi := math.Min(test.upper, 40)
		wantMean, wantVar := numericalMoments(g.GetLogProb, test.lower, hi)

		if got := tg.GetMean(); math.Abs(got-wantMean) > 1e-8 {
			t.Errorf("%v: expected mean %v, got %v", tg, wantMean, got)
		}
		if got := tg.GetVariance(); math.Abs(got-wantVar) > 1e-8 {
			t.Errorf("%v: expected variance %v, got %v", tg, wantVar, got)
		}
	}

	tg := NewTruncatedGamma(3, 2, 0, math.Inf(1))
	if got := tg.ToGamma(); got.MaxDiff(g) > 1e-10 {
		t.Errorf("untruncated projection: expected %v, got %v", g, got)
	}
}
