package factor

import (
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/quadrature"
)

// expCases are moderate inputs where every ExpOp variant applies.
var expCases = []struct {
	exp distribution.Gamma
	d   distribution.Gaussian
}{
	{distribution.NewGamma(3, 2), distribution.NewGaussian(0, 1)},
	{distribution.NewGamma(1.5, 0.5), distribution.NewGaussian(1, 0.25)},
	{distribution.NewGamma(10, 10), distribution.NewGaussian(0.5, 0.1)},
}

func TestExpPointMass(t *testing.T) {
	op := ExpOp{}
	exp := distribution.NewGamma(3, 2)

	got, err := op.ExpAverageConditional(exp, distribution.GaussianPointMass(0.5),
		distribution.GaussianUniform())
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsPointMass() || !closeTo(got.Point(), math.Exp(0.5), threshold) {
		t.Errorf("expected Gamma.PointMass(%v), got %v", math.Exp(0.5), got)
	}

	got, err = op.ExpAverageConditional(exp, distribution.GaussianUniform(),
		distribution.GaussianUniform())
	if err != nil || !got.IsUniform() {
		t.Errorf("uniform d should give a uniform message, got %v, %v", got, err)
	}

	msg, err := op.DAverageConditional(distribution.GammaPointMass(2),
		distribution.NewGaussian(0, 1), distribution.GaussianUniform())
	if err != nil || !msg.IsPointMass() || !closeTo(msg.Point(), math.Ln2, threshold) {
		t.Errorf("expected Gaussian.PointMass(log 2), got %v, %v", msg, err)
	}

	if got := op.ExpAverageLogarithm(distribution.GaussianPointMass(1)); !got.IsPointMass() ||
		!closeTo(got.Point(), math.E, threshold) {
		t.Errorf("expected Gamma.PointMass(e), got %v", got)
	}
}

func TestExpFastAgreesWithSlow(t *testing.T) {
	fast := ExpOp{}
	slow := ExpOpSlow{}
	const tol = 1e-4

	for _, c := range expCases {
		toD := distribution.GaussianUniform()

		fastD, err := fast.DAverageConditional(c.exp, c.d, toD)
		if err != nil {
			t.Fatal(err)
		}
		slowD, err := slow.DAverageConditional(c.exp, c.d)
		if err != nil {
			t.Fatal(err)
		}
		if !sameGaussian(fastD.Product(c.d), slowD.Product(c.d), tol) {
			t.Errorf("dAverageConditional(%v, %v): fast %v, slow %v", c.exp, c.d,
				fastD, slowD)
		}

		fastExp, err := fast.ExpAverageConditional(c.exp, c.d, toD)
		if err != nil {
			t.Fatal(err)
		}
		slowExp, err := slow.ExpAverageConditional(c.exp, c.d)
		if err != nil {
			t.Fatal(err)
		}
		if !sameGamma(fastExp.Product(c.exp), slowExp.Product(c.exp), tol) {
			t.Errorf("expAverageConditional(%v, %v): fast %v, slow %v", c.exp,
				c.d, fastExp, slowExp)
		}

		fastZ, err := fast.LogAverageFactor(c.exp, c.d, toD)
		if err != nil {
			t.Fatal(err)
		}
		slowZ, err := slow.LogAverageFactor(c.exp, c.d)
		if err != nil {
			t.Fatal(err)
		}
		if !closeTo(fastZ, slowZ, tol) {
			t.Errorf("logAverageFactor(%v, %v): fast %v, slow %v", c.exp, c.d,
				fastZ, slowZ)
		}
	}
}

func TestExpLogAverageFactor(t *testing.T) {
	exp := distribution.NewGamma(3, 2)
	d := distribution.NewGaussian(0, 1)

	integrand := func(x float64) float64 {
		return math.Exp(d.GetLogProb(x) + exp.GetLogProb(math.Exp(x)))
	}
	want := math.Log(quadrature.Integrate(integrand, -12, 5, 400))

	got, err := ExpOp{}.LogAverageFactor(exp, d, distribution.GaussianUniform())
	if err != nil {
		t.Fatal(err)
	}
	if !closeTo(got, want, 1e-5) {
		t.Errorf("expected %v, got %v", want, got)
	}

	toExp := distribution.NewGamma(2, 1)
	ratio, err := ExpOp{}.LogEvidenceRatio(exp, d, distribution.GaussianUniform(), toExp)
	if err != nil {
		t.Fatal(err)
	}
	if want := got - toExp.GetLogAverageOf(exp); ratio != want {
		t.Errorf("logEvidenceRatio: expected %v, got %v", want, ratio)
	}

	if got, want := (ExpOp{}).LogEvidenceRatioPoint(2, d), d.GetLogProb(math.Ln2)-math.Ln2; !closeTo(got, want, threshold) {
		t.Errorf("logEvidenceRatioPoint: expected %v, got %v", want, got)
	}
}

func TestExpDiffuseFallsBack(t *testing.T) {
	exp := distribution.NewGamma(3, 2)

	fast, err := ExpOp{}.DAverageConditional(exp, distribution.GaussianUniform(),
		distribution.GaussianUniform())
	if err != nil {
		t.Fatal(err)
	}
	slow, err := ExpOpSlow{}.DAverageConditional(exp, distribution.GaussianUniform())
	if err != nil {
		t.Fatal(err)
	}
	if !sameGaussian(fast, slow, threshold) {
		t.Errorf("uniform d: expected the slow result %v, got %v", slow, fast)
	}

	// The posterior of d is the law of log y for y ~ Gamma(2, 2).
	mean, variance := fast.GetMeanAndVariance()
	if want := distribution.NewGamma(2, 2).GetMeanLog(); !closeTo(mean, want, 1e-6) {
		t.Errorf("expected mean %v, got %v", want, mean)
	}
	if want := 0.6449340668482264; !closeTo(variance, want, 1e-6) {
		t.Errorf("expected variance %v, got %v", want, variance)
	}
}

func TestExpTruncated(t *testing.T) {
	d := distribution.NewGaussian(0, 1)
	untruncated := distribution.NewTruncatedGamma(3, 2, 0, math.Inf(1))

	slow := ExpOpSlow{}
	got, err := slow.DAverageConditionalTruncated(untruncated, d)
	if err != nil {
		t.Fatal(err)
	}
	want, err := slow.DAverageConditional(untruncated.Gamma, d)
	if err != nil {
		t.Fatal(err)
	}
	if !sameGaussian(got.Product(d), want.Product(d), 1e-6) {
		t.Errorf("untruncated: expected %v, got %v", want, got)
	}

	truncated := distribution.NewTruncatedGamma(3, 2, 1, 2)
	msg, err := slow.DAverageConditionalTruncated(truncated, d)
	if err != nil {
		t.Fatal(err)
	}
	mean := msg.Product(d).GetMean()
	if mean < 0 || mean > math.Ln2 {
		t.Errorf("posterior mean %v outside [0, log 2]", mean)
	}

	logZ, err := slow.LogAverageFactorTruncated(truncated, d)
	if err != nil {
		t.Fatal(err)
	}
	integrand := func(x float64) float64 {
		return math.Exp(d.GetLogProb(x) + truncated.GetLogProb(math.Exp(x)))
	}
	if want := math.Log(quadrature.Integrate(integrand, 0, math.Ln2, 200)); !closeTo(logZ, want, 1e-6) {
		t.Errorf("logAverageFactorTruncated: expected %v, got %v", want, logZ)
	}
}

func TestExpLaplace(t *testing.T) {
	op := ExpOpLaplace{}
	slow := ExpOpSlow{}

	for _, c := range expCases[2:] {
		x, err := op.X(c.exp, c.d)
		if err != nil {
			t.Fatal(err)
		}
		if next := op.X2(c.exp, c.d, x); !closeTo(next, x, 1e-9) {
			t.Errorf("x should be a fixed point of x2: %v -> %v", x, next)
		}

		got, err := op.DAverageConditional(c.exp, c.d, x)
		if err != nil {
			t.Fatal(err)
		}
		want, err := slow.DAverageConditional(c.exp, c.d)
		if err != nil {
			t.Fatal(err)
		}
		if !sameGaussian(got.Product(c.d), want.Product(c.d), 1e-2) {
			t.Errorf("dAverageConditional: laplace %v, slow %v", got, want)
		}

		logZ, err := op.LogAverageFactor(c.exp, c.d, x)
		if err != nil {
			t.Fatal(err)
		}
		wantZ, err := slow.LogAverageFactor(c.exp, c.d)
		if err != nil {
			t.Fatal(err)
		}
		if !closeTo(logZ, wantZ, 1e-2) {
			t.Errorf("logAverageFactor: laplace %v, slow %v", logZ, wantZ)
		}

		expMsg, err := op.ExpAverageConditional(c.exp, c.d, x)
		if err != nil {
			t.Fatal(err)
		}
		wantExp, err := slow.ExpAverageConditional(c.exp, c.d)
		if err != nil {
			t.Fatal(err)
		}
		if gm, wm := expMsg.Product(c.exp).GetMean(), wantExp.Product(c.exp).GetMean(); !closeTo(gm, wm, 1e-2) {
			t.Errorf("expAverageConditional: laplace mean %v, slow mean %v", gm, wm)
		}
	}
}

func TestExpLaplaceProp(t *testing.T) {
	op := ExpOpLaplaceProp{}
	exp := distribution.NewGamma(3, 2)
	d := distribution.NewGaussian(0, 1)

	x, err := op.X(exp, d)
	if err != nil {
		t.Fatal(err)
	}
	msg, err := op.DAverageConditional(exp, d, x)
	if err != nil {
		t.Fatal(err)
	}
	if want := exp.Rate * math.Exp(x); !closeTo(msg.Precision, want, threshold) {
		t.Errorf("expected precision %v, got %v", want, msg.Precision)
	}

	// At the mode the slope of the product vanishes.
	posterior := msg.Product(d)
	if !closeTo(posterior.GetMean(), x, 1e-8) {
		t.Errorf("expected the posterior to be centred on %v, got %v", x,
			posterior.GetMean())
	}
}

func TestExpBFGS(t *testing.T) {
	exp := distribution.NewGamma(3, 2)
	prior := distribution.NewGaussian(0, 1)

	msg, err := ExpOpBFGS{}.DAverageLogarithm(exp, prior)
	if err != nil {
		t.Fatal(err)
	}
	next, err := ExpOp{}.DAverageLogarithm(exp, prior.Product(msg))
	if err != nil {
		t.Fatal(err)
	}
	if msg.MaxDiff(next) > 1e-5 {
		t.Errorf("expected a fixed point of the conjugate update: %v vs %v", msg,
			next)
	}
}

func TestExpAverageLogarithm(t *testing.T) {
	d := distribution.NewGaussian(0.3, 0.4)
	got := ExpOp{}.ExpAverageLogarithm(d)

	if want := math.Exp(0.3 + 0.2); !closeTo(got.GetMean(), want, 1e-9) {
		t.Errorf("expected mean %v, got %v", want, got.GetMean())
	}
	if !closeTo(got.GetMeanLog(), 0.3, 1e-9) {
		t.Errorf("expected mean log 0.3, got %v", got.GetMeanLog())
	}

	_, err := ExpOp{}.DAverageLogarithm(distribution.NewGamma(3, 2), distribution.GaussianUniform())
	if !errors.Is(err, ErrImproperMessage) {
		t.Errorf("expected ErrImproperMessage, got %v", err)
	}
}
