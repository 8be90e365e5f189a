package distribution

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

const threshold float64 = 1e-10

func TestGaussianRatioRoundTrip(t *testing.T) {
	gaussians := []Gaussian{
		NewGaussian(0, 1),
		NewGaussian(-3.5, 0.01),
		NewGaussian(12, 400),
		GaussianUniform(),
	}

	for _, g := range gaussians {
		r, err := g.Ratio(g, false)
		if err != nil {
			t.Error(err)
			continue
		}
		if !r.IsUniform() {
			t.Errorf("%v / %v should be uniform, got %v", g, g, r)
		}
		if back := g.Product(r); back.MaxDiff(g) > threshold {
			t.Errorf("%v * uniform should be unchanged, got %v", g, back)
		}
	}
}

func TestGaussianPointMass(t *testing.T) {
	p := GaussianPointMass(2.5)
	g := NewGaussian(1, 3)

	if got := p.Product(g); !got.IsPointMass() || got.Point() != 2.5 {
		t.Errorf("point mass should absorb the product, got %v", got)
	}
	if got := g.Product(p); !got.IsPointMass() || got.Point() != 2.5 {
		t.Errorf("point mass should absorb the product, got %v", got)
	}
	if got, err := p.Ratio(g, false); err != nil || got != p {
		t.Errorf("point mass / gaussian should be the point mass, got %v, %v",
			got, err)
	}
	if _, err := g.Ratio(p, false); !errors.Is(err, ErrDivideByZero) {
		t.Errorf("expected ErrDivideByZero, got %v", err)
	}
	if got, err := p.Ratio(p, false); err != nil || !got.IsUniform() {
		t.Errorf("point mass / itself should be uniform, got %v, %v", got, err)
	}
	if mean, variance := p.GetMeanAndVariance(); mean != 2.5 || variance != 0 {
		t.Errorf("expected moments (2.5, 0), got (%v, %v)", mean, variance)
	}
}

func TestGaussianRatioImproper(t *testing.T) {
	narrow := NewGaussian(1, 1)
	wide := NewGaussian(0, 0.5)

	if _, err := narrow.Ratio(wide, false); !errors.Is(err, ErrImproper) {
		t.Errorf("expected ErrImproper, got %v", err)
	}

	r, err := narrow.Ratio(wide, true)
	if err != nil {
		t.Fatal(err)
	}
	if r.Precision != 0 {
		t.Errorf("forced ratio should have zero precision, got %v", r.Precision)
	}
	if got := r.Product(wide).GetMean(); math.Abs(got-narrow.GetMean()) > threshold {
		t.Errorf("forced ratio should preserve the mean: expected %v, got %v",
			narrow.GetMean(), got)
	}
}

func TestGaussianLogProb(t *testing.T) {
	tests := []struct {
		mean, variance, x float64
	}{
		{0, 1, 0.3},
		{-2, 0.04, -2.1},
		{10, 25, 3},
	}

	for _, test := range tests {
		g := NewGaussian(test.mean, test.variance)
		want := distuv.Normal{Mu: test.mean, Sigma: math.Sqrt(test.variance)}.LogProb(test.x)
		if got := g.GetLogProb(test.x); math.Abs(got-want) > threshold {
			t.Errorf("%v at %v: expected %v, got %v", g, test.x, want, got)
		}

		// log ∫ N(x; m, v) N(x; 0, 1) dx = log N(m; 0, v+1)
		std := NewGaussian(0, 1)
		want = distuv.Normal{Mu: 0, Sigma: math.Sqrt(test.variance + 1)}.LogProb(test.mean)
		if got := g.GetLogAverageOf(std); math.Abs(got-want) > threshold {
			t.Errorf("logAverageOf: expected %v, got %v", want, got)
		}
	}
}

func TestGaussianFromDerivatives(t *testing.T) {
	g := NewGaussian(1.5, 0.2)
	x := 0.7
	dlogp := -(x - 1.5) / 0.2
	ddlogp := -1 / 0.2

	if got := GaussianFromDerivatives(x, dlogp, ddlogp, false); got.MaxDiff(g) > threshold {
		t.Errorf("expected %v, got %v", g, got)
	}
	if got := GaussianFromDerivatives(x, 1, 2, true); got.Precision != 0 {
		t.Errorf("forced message should have zero precision, got %v", got)
	}
}
