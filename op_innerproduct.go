package factor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/factor/distribution"
)

// InnerProductArrayOp computes messages for ip = Σ a[k]·b[k] over arrays
// of Gaussian variables.
type InnerProductArrayOp struct {
	Config
}

// InnerProductAverageConditional returns the Gaussian with the mean and
// variance of the inner product of independent arrays.
func (InnerProductArrayOp) InnerProductAverageConditional(a, b []distribution.Gaussian) (distribution.Gaussian, error) {
	if err := checkLength("innerProductAverageConditional", len(a), len(b)); err != nil {
		return distribution.Gaussian{}, err
	}
	var mean, variance float64
	for k := range a {
		if a[k].IsUniform() || b[k].IsUniform() {
			return distribution.GaussianUniform(), nil
		}
		ma, mb := a[k].GetMean(), b[k].GetMean()
		mean += ma * mb
		variance += gaussianMeanSquare(a[k])*gaussianMeanSquare(b[k]) - ma*ma*mb*mb
	}
	return distribution.NewGaussian(mean, variance), nil
}

// InnerProductAverageLogarithm returns the VMP message to ip.
func (o InnerProductArrayOp) InnerProductAverageLogarithm(a, b []distribution.Gaussian) (distribution.Gaussian, error) {
	return o.InnerProductAverageConditional(a, b)
}

// AAverageLogarithm returns the VMP messages to a given the marginals of
// a and b and the previous messages toA. The elements are updated in
// order and each update sees the marginals of the elements before it, so
// the result depends on the order of the array.
func (o InnerProductArrayOp) AAverageLogarithm(ip distribution.Gaussian, a, b, toA []distribution.Gaussian) ([]distribution.Gaussian, error) {
	if err := checkLength("aAverageLogarithm", len(a), len(b)); err != nil {
		return nil, err
	}
	if err := checkLength("aAverageLogarithm", len(a), len(toA)); err != nil {
		return nil, err
	}
	result := make([]distribution.Gaussian, len(a))
	if ip.IsUniform() {
		return result, nil
	}
	if ip.IsPointMass() {
		return nil, errors.Wrap(ErrNotSupported, "aAverageLogarithm: observed inner product")
	}

	means := make([]float64, len(a))
	var total float64
	for k := range a {
		means[k] = a[k].GetMean() * b[k].GetMean()
		total += means[k]
	}

	for k := range a {
		mb := b[k].GetMean()
		rest := total - means[k]
		result[k] = distribution.Gaussian{
			MeanTimesPrecision: ip.Precision * mb * (ip.GetMean() - rest),
			Precision:          ip.Precision * gaussianMeanSquare(b[k]),
		}

		// Replace the old message in the marginal of a[k] before moving on.
		prior, err := a[k].Ratio(toA[k], true)
		if err != nil {
			return nil, errors.Wrapf(err, "aAverageLogarithm: element %d", k)
		}
		marginal := prior.Product(result[k])
		means[k] = marginal.GetMean() * mb
		total = rest + means[k]
	}
	return result, nil
}

// BAverageLogarithm returns the VMP messages to b.
func (o InnerProductArrayOp) BAverageLogarithm(ip distribution.Gaussian, a, b, toB []distribution.Gaussian) ([]distribution.Gaussian, error) {
	return o.AAverageLogarithm(ip, b, a, toB)
}

// AverageLogFactor is zero for a deterministic factor.
func (InnerProductArrayOp) AverageLogFactor() float64 { return 0 }

// InnerProductOp computes messages for ip = aᵀb where a is a
// VectorGaussian and b is a known weight vector.
type InnerProductOp struct{}

// InnerProductAverageConditional returns N(bᵀμ, bᵀΣb).
func (InnerProductOp) InnerProductAverageConditional(a distribution.VectorGaussian, b []float64) (distribution.Gaussian, error) {
	if err := checkLength("innerProductAverageConditional", a.Dimension(), len(b)); err != nil {
		return distribution.Gaussian{}, err
	}
	w := mat.NewVecDense(len(b), b)
	return distribution.NewGaussian(mat.Dot(w, a.Mean), mat.Inner(w, a.Variance, w)), nil
}

// InnerProductAverageLogarithm returns the VMP message to ip.
func (o InnerProductOp) InnerProductAverageLogarithm(a distribution.VectorGaussian, b []float64) (distribution.Gaussian, error) {
	return o.InnerProductAverageConditional(a, b)
}

// AAverageConditional returns the posterior of a given the message from
// ip. The message itself has rank one and is not a proper VectorGaussian,
// so the marginal is returned instead.
func (o InnerProductOp) AAverageConditional(ip distribution.Gaussian, a distribution.VectorGaussian, b []float64) (distribution.VectorGaussian, error) {
	if err := checkLength("aAverageConditional", a.Dimension(), len(b)); err != nil {
		return distribution.VectorGaussian{}, err
	}
	if ip.IsUniform() {
		return a, nil
	}

	d := len(b)
	w := mat.NewVecDense(d, b)
	var sw mat.VecDense
	sw.MulVec(a.Variance, w)
	mip, vip := ip.GetMeanAndVariance()
	s := mat.Dot(w, &sw) + vip
	if !(s > 0) {
		return distribution.VectorGaussian{}, errors.Wrapf(ErrArgument,
			"aAverageConditional: b has zero variance under a and ip is observed")
	}

	mean := mat.NewVecDense(d, nil)
	mean.AddScaledVec(a.Mean, (mip-mat.Dot(w, a.Mean))/s, &sw)
	variance := mat.NewSymDense(d, nil)
	variance.CopySym(a.Variance)
	variance.SymRankOne(variance, -1/s, &sw)
	return distribution.VectorGaussian{Mean: mean, Variance: variance}, nil
}

// LogAverageFactor returns log ∫ ip(aᵀb)·a(a) da.
func (o InnerProductOp) LogAverageFactor(ip distribution.Gaussian, a distribution.VectorGaussian, b []float64) (float64, error) {
	toIP, err := o.InnerProductAverageConditional(a, b)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logAverageFactor")
	}
	return toIP.GetLogAverageOf(ip), nil
}
