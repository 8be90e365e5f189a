package factor

import (
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/quadrature"
)

// productPosterior integrates functions of a against A(a)·N(mp; a·mb,
// vp + a²·vb) on a fixed grid.
func productPosterior(product, a, b distribution.Gaussian) func(func(float64) float64) float64 {
	logf := productLikelihood(product, b)
	ma, va := a.GetMeanAndVariance()
	lo, hi := ma-12*math.Sqrt(va), ma+12*math.Sqrt(va)
	return func(h func(float64) float64) float64 {
		return quadrature.Integrate(func(x float64) float64 {
			return h(x) * math.Exp(a.GetLogProb(x)+logf(x))
		}, lo, hi, 600)
	}
}

func TestGaussianProductConstant(t *testing.T) {
	op := GaussianProductOp{}
	a := distribution.NewGaussian(1, 2)

	got := op.ProductAverageConditional(a, 3)
	if !sameGaussian(got, distribution.NewGaussian(3, 18), threshold) {
		t.Errorf("expected N(3, 18), got %v", got)
	}

	toA, err := op.AAverageConditional(distribution.NewGaussian(3, 18), 3)
	if err != nil || !sameGaussian(toA, distribution.NewGaussian(1, 2), threshold) {
		t.Errorf("expected N(1, 2), got %v, %v", toA, err)
	}

	toA, err = op.AAverageConditional(distribution.GaussianPointMass(6), 3)
	if err != nil || !toA.IsPointMass() || toA.Point() != 2 {
		t.Errorf("expected Gaussian.PointMass(2), got %v, %v", toA, err)
	}

	_, err = op.AAverageConditional(distribution.GaussianPointMass(6), 0)
	if !errors.Is(err, ErrArgument) {
		t.Errorf("expected ErrArgument, got %v", err)
	}
}

func TestGaussianProductMoments(t *testing.T) {
	op := GaussianProductOp{}
	a := distribution.NewGaussian(1, 2)
	b := distribution.NewGaussian(3, 0.5)

	// var(ab) = va·vb + va·mb² + vb·ma²
	got := op.ProductAverageConditionalGaussian(a, b)
	if !sameGaussian(got, distribution.NewGaussian(3, 1+18+0.5), threshold) {
		t.Errorf("expected N(3, 19.5), got %v", got)
	}

	// VMP uses E[a²]·E[b²] - E[a]²·E[b]² = 3·9.5 - 9.
	got = op.ProductAverageLogarithm(a, b)
	if !sameGaussian(got, distribution.NewGaussian(3, 19.5), threshold) {
		t.Errorf("expected N(3, 19.5), got %v", got)
	}
}

func TestGaussianProductEP(t *testing.T) {
	op := GaussianProductOp{}

	tests := []struct {
		product, a, b distribution.Gaussian
	}{
		{distribution.NewGaussian(2, 1), distribution.NewGaussian(1, 1), distribution.NewGaussian(1.5, 0.5)},
		{distribution.NewGaussian(0, 0.1), distribution.NewGaussian(0, 1), distribution.NewGaussian(2, 1)},
		{distribution.GaussianPointMass(3), distribution.NewGaussian(1, 0.5), distribution.NewGaussian(2, 0.2)},
	}

	for _, test := range tests {
		integrate := productPosterior(test.product, test.a, test.b)
		z := integrate(func(float64) float64 { return 1 })
		mean := integrate(func(x float64) float64 { return x }) / z
		variance := integrate(func(x float64) float64 { return x * x })/z - mean*mean

		toA, err := op.AAverageConditionalGaussian(test.product, test.a, test.b)
		if err != nil {
			t.Fatal(err)
		}
		if !sameGaussian(toA.Product(test.a), distribution.NewGaussian(mean, variance), 1e-6) {
			t.Errorf("aAverageConditionalGaussian(%v, %v, %v): expected posterior N(%v, %v), got %v",
				test.product, test.a, test.b, mean, variance, toA.Product(test.a))
		}

		toB, err := op.BAverageConditionalGaussian(test.product, test.b, test.a)
		if err != nil {
			t.Fatal(err)
		}
		if toB != toA {
			t.Errorf("bAverageConditionalGaussian %v differs from aAverageConditionalGaussian %v",
				toB, toA)
		}

		logZ, err := op.LogAverageFactor(test.product, test.a, test.b)
		if err != nil {
			t.Fatal(err)
		}
		if !closeTo(logZ, math.Log(z), 1e-6) {
			t.Errorf("logAverageFactor: expected %v, got %v", math.Log(z), logZ)
		}
	}
}

func TestGaussianProductPointMass(t *testing.T) {
	op := GaussianProductOp{}
	product := distribution.NewGaussian(2, 1)
	b := distribution.NewGaussian(1.5, 0.5)

	got, err := op.AAverageConditionalGaussian(product, distribution.NewGaussian(1, 1),
		distribution.GaussianPointMass(2))
	if err != nil {
		t.Fatal(err)
	}
	want, _ := op.AAverageConditional(product, 2)
	if got != want {
		t.Errorf("point mass b: expected %v, got %v", want, got)
	}

	// At a point mass a the message matches the curvature of the factor.
	const x = 0.8
	toA, err := op.AAverageConditionalGaussian(product, distribution.GaussianPointMass(x), b)
	if err != nil {
		t.Fatal(err)
	}
	logf := productLikelihood(product, b)
	logMsg := func(y float64) float64 {
		return toA.MeanTimesPrecision*y - toA.Precision*y*y/2
	}
	if got, want := logMsg(x+0.01)-logMsg(x), logf(x+0.01)-logf(x); !closeTo(got, want, 1e-5) {
		t.Errorf("point mass a: log ratio %v, want %v", got, want)
	}

	_, err = op.AAverageConditionalGaussian(product, distribution.GaussianUniform(), b)
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}

func TestGaussianProductVMP(t *testing.T) {
	op := GaussianProductOp{}
	product := distribution.NewGaussian(2, 0.5)
	b := distribution.NewGaussian(3, 1)

	toA, err := op.AAverageLogarithm(product, b)
	if err != nil {
		t.Fatal(err)
	}
	// precision 2·E[b²] = 20, mean times precision 4·E[b] = 12
	if !closeTo(toA.Precision, 20, threshold) || !closeTo(toA.MeanTimesPrecision, 12, threshold) {
		t.Errorf("expected precision 20 and mean times precision 12, got %v", toA)
	}

	_, err = op.AAverageLogarithm(distribution.GaussianPointMass(2), b)
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
}
