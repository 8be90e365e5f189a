package distribution

import (
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/quadrature"
)

func TestGammaPowerFromMeanAndVariance(t *testing.T) {
	for _, g := range []GammaPower{
		NewGammaPower(3, 2, 2),
		NewGammaPower(4, 3, -1),
		NewGammaPower(3, 2, 0.5),
		NewGammaPower(5, 1, 1),
	} {
		mean, variance := g.GetMeanAndVariance()
		got := GammaPowerFromMeanAndVariance(mean, variance, g.Power)
		if math.Abs(got.Shape-g.Shape) > 1e-8*g.Shape ||
			math.Abs(got.Rate-g.Rate) > 1e-8*g.Rate {
			t.Errorf("expected %v, got %v", g, got)
		}
	}
}

func TestGammaPowerFromDerivatives(t *testing.T) {
	for _, g := range []GammaPower{
		NewGammaPower(3, 2, 2),
		NewGammaPower(2.5, 0.7, -1),
		NewGammaPower(6, 4, 0.5),
	} {
		y := 0.8
		s, r, p := g.Shape, g.Rate, g.Power
		q := 1 / p
		dlogp := (s/p-1)/y - r/p*math.Pow(y, q-1)
		ddlogp := -(s/p-1)/(y*y) - r/p*(q-1)*math.Pow(y, q-2)

		got := GammaPowerFromDerivatives(y, dlogp, ddlogp, p, false)
		if got.MaxDiff(g) > 1e-10 {
			t.Errorf("expected %v, got %v", g, got)
		}
	}
}

func TestGammaPowerLogProb(t *testing.T) {
	// y = x² with x ~ Gamma(3, 2): p(y) = p_x(√y)/(2√y)
	g := NewGammaPower(3, 2, 2)
	x := NewGamma(3, 2)
	for _, y := range []float64{0.1, 1, 4} {
		want := x.GetLogProb(math.Sqrt(y)) - math.Log(2*math.Sqrt(y))
		if got := g.GetLogProb(y); math.Abs(got-want) > threshold {
			t.Errorf("logProb(%v): expected %v, got %v", y, want, got)
		}
	}
}

func TestGammaPowerMismatch(t *testing.T) {
	a := NewGammaPower(3, 2, 2)
	b := NewGammaPower(3, 2, -1)

	if _, err := a.Ratio(b, false); !errors.Is(err, ErrPowerMismatch) {
		t.Errorf("expected ErrPowerMismatch, got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("product of mismatched powers should panic")
		}
	}()
	a.Product(b)
}

func TestGammaPowerRatioForceProper(t *testing.T) {
	a := NewGammaPower(5, 3, -1)
	b := NewGammaPower(2, 4, -1)

	forced, err := a.Ratio(b, true)
	if err != nil {
		t.Fatal(err)
	}
	if forced.Rate < 0 {
		t.Errorf("forced ratio should have a non-negative rate, got %v", forced)
	}
	product := forced.Product(b)
	if got, want := product.Shape/product.Rate, a.Shape/a.Rate; math.Abs(got-want) > threshold {
		t.Errorf("expected shape/rate %v, got %v", want, got)
	}
}

func TestGammaPowerLogAverageOf(t *testing.T) {
	a := NewGammaPower(3, 2, 2)
	b := NewGammaPower(2.5, 1, 2)
	integrand := func(y float64) float64 {
		return math.Exp(a.GetLogProb(y) + b.GetLogProb(y))
	}
	want := math.Log(quadrature.Integrate(integrand, 0, 100, 400))
	if got := a.GetLogAverageOf(b); math.Abs(got-want) > 1e-6 {
		t.Errorf("expected %v, got %v", want, got)
	}

	improper := GammaPower{Shape: 1, Rate: -0.5, Power: 2}
	if got := improper.GetLogAverageOf(NewGammaPower(1, 0.2, 2)); !math.IsInf(got, 1) {
		t.Errorf("divergent product: expected +Inf, got %v", got)
	}
}
