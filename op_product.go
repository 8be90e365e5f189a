package factor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/quadrature"
)

// GaussianProductOp computes messages for product = a·b with Gaussian
// arguments.
//
// With a constant factor the messages are exact. With two random factors
// the message to product is the moment matched distribution of a·b, and
// the messages to a and b are found by one dimensional adaptive
// quadrature: given a, the product is Gaussian with mean a·E[b] and
// variance a²·var(b), so b integrates out in closed form.
type GaussianProductOp struct {
	Config
}

// ProductAverageConditional returns the distribution of a·b for a
// constant b.
func (GaussianProductOp) ProductAverageConditional(a distribution.Gaussian, b float64) distribution.Gaussian {
	switch {
	case a.IsPointMass():
		return distribution.GaussianPointMass(a.Point() * b)
	case b == 0:
		return distribution.GaussianPointMass(0)
	}
	return distribution.Gaussian{
		MeanTimesPrecision: a.MeanTimesPrecision / b,
		Precision:          a.Precision / (b * b),
	}
}

// AAverageConditional returns the message to a for a constant b.
func (GaussianProductOp) AAverageConditional(product distribution.Gaussian, b float64) (distribution.Gaussian, error) {
	switch {
	case product.IsPointMass():
		if b == 0 {
			if product.Point() != 0 {
				return distribution.Gaussian{}, errors.Wrapf(ErrArgument,
					"aAverageConditional: product %v with b = 0", product.Point())
			}
			return distribution.GaussianUniform(), nil
		}
		return distribution.GaussianPointMass(product.Point() / b), nil
	case b == 0:
		return distribution.GaussianUniform(), nil
	}
	return distribution.Gaussian{
		MeanTimesPrecision: product.MeanTimesPrecision * b,
		Precision:          product.Precision * b * b,
	}, nil
}

// ProductAverageConditionalGaussian returns the Gaussian with the mean
// and variance of a·b for independent a and b.
func (o GaussianProductOp) ProductAverageConditionalGaussian(a, b distribution.Gaussian) distribution.Gaussian {
	switch {
	case b.IsPointMass():
		return o.ProductAverageConditional(a, b.Point())
	case a.IsPointMass():
		return o.ProductAverageConditional(b, a.Point())
	case a.IsUniform() || b.IsUniform():
		return distribution.GaussianUniform()
	}
	ma, va := a.GetMeanAndVariance()
	mb, vb := b.GetMeanAndVariance()
	return distribution.NewGaussian(ma*mb, va*vb+va*mb*mb+vb*ma*ma)
}

// productLikelihood returns log N(mp; a·mb, vp + a²·vb), the factor with
// b integrated out, as a function of a.
func productLikelihood(product, b distribution.Gaussian) func(float64) float64 {
	mp, vp := product.GetMeanAndVariance()
	mb, vb := b.GetMeanAndVariance()
	return func(a float64) float64 {
		v := vp + a*a*vb
		if !(v > 0) {
			if a*mb == mp {
				return 0
			}
			return math.Inf(-1)
		}
		d := mp - a*mb
		return -0.5*(math.Log(2*math.Pi*v)) - d*d/(2*v)
	}
}

// posteriorA returns log Z and the posterior moments of a under
// A(a)·exp(logf(a)). With u the standardised offset from the mean of A,
// the moments come from integrals of (1 ± u)² so that every integrand is
// positive and the relative tolerance of the quadrature applies.
func (o GaussianProductOp) posteriorA(logf func(float64) float64, a distribution.Gaussian, cfg Config) (logZ, mean, variance float64, err error) {
	ma, va := a.GetMeanAndVariance()
	scale := math.Sqrt(va)
	weight := func(c float64) func(float64) float64 {
		return func(x float64) float64 {
			w := math.Exp(a.GetLogProb(ma+x) + logf(ma+x))
			if c == 0 {
				return w
			}
			u := 1 + c*x/scale
			return u * u * w
		}
	}

	var m [3]float64
	for k, c := range []float64{0, 1, -1} {
		m[k], err = quadrature.AdaptiveClenshawCurtis(weight(c), scale,
			cfg.QuadratureNodeCount, cfg.RelativeTolerance)
		if err != nil {
			return 0, 0, 0, errors.Wrap(ErrNumerical, err.Error())
		}
	}
	z, plus, minus := m[0], m[1], m[2]
	if !(z > 0) {
		return 0, 0, 0, errors.Wrapf(ErrNumerical, "z = %v", z)
	}
	mu := (plus - minus) / (4 * z)
	mu2 := (plus+minus)/(2*z) - 1
	mean = ma + scale*mu
	variance = scale * scale * (mu2 - mu*mu)
	if !(variance > 0) {
		return 0, 0, 0, errors.Wrapf(ErrNumerical, "posterior variance %v", variance)
	}
	return math.Log(z), mean, variance, nil
}

// AAverageConditionalGaussian returns the EP message to a when both
// factors are random.
func (o GaussianProductOp) AAverageConditionalGaussian(product, a, b distribution.Gaussian) (distribution.Gaussian, error) {
	cfg := o.withDefaults()

	switch {
	case b.IsPointMass():
		return o.AAverageConditional(product, b.Point())
	case product.IsUniform() || b.IsUniform():
		return distribution.GaussianUniform(), nil
	case !informative(product) || !informative(b):
		return distribution.Gaussian{}, errors.Wrap(ErrImproperMessage,
			"aAverageConditionalGaussian: improper product or b")
	}

	logf := productLikelihood(product, b)
	switch KindOf(a) {
	case PointMass:
		x := a.Point()
		d1 := fd.Derivative(logf, x, &fd.Settings{Formula: fd.Central})
		d2 := fd.Derivative(logf, x, &fd.Settings{Formula: fd.Central2nd})
		return distribution.GaussianFromDerivatives(x, d1, d2, cfg.ForceProper), nil
	case Uniform, Improper:
		return distribution.Gaussian{}, errors.Wrapf(ErrNotSupported,
			"aAverageConditionalGaussian: a is %v", KindOf(a))
	}

	_, mean, variance, err := o.posteriorA(logf, a, cfg)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "aAverageConditionalGaussian")
	}
	msg, err := distribution.NewGaussian(mean, variance).Ratio(a, cfg.ForceProper)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "aAverageConditionalGaussian")
	}
	return msg, nil
}

// BAverageConditionalGaussian returns the EP message to b when both
// factors are random.
func (o GaussianProductOp) BAverageConditionalGaussian(product, a, b distribution.Gaussian) (distribution.Gaussian, error) {
	msg, err := o.AAverageConditionalGaussian(product, b, a)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "bAverageConditionalGaussian")
	}
	return msg, nil
}

// LogAverageFactor returns log ∫∫ a(x)·b(y)·product(x·y) dx dy.
func (o GaussianProductOp) LogAverageFactor(product, a, b distribution.Gaussian) (float64, error) {
	cfg := o.withDefaults()

	switch {
	case b.IsPointMass():
		return o.ProductAverageConditional(a, b.Point()).GetLogAverageOf(product), nil
	case a.IsPointMass():
		return o.ProductAverageConditional(b, a.Point()).GetLogAverageOf(product), nil
	case product.IsUniform():
		return 0, nil
	case !a.IsProper() || !b.IsProper():
		return math.NaN(), errors.Wrap(ErrImproperMessage, "logAverageFactor: improper factor")
	}
	if a.GetVariance() < b.GetVariance() {
		a, b = b, a
	}
	logZ, _, _, err := o.posteriorA(productLikelihood(product, b), a, cfg)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logAverageFactor")
	}
	return logZ, nil
}

// LogEvidenceRatio returns the evidence contribution of the factor. An
// observed product contributes its log average factor.
func (o GaussianProductOp) LogEvidenceRatio(product, a, b, toProduct distribution.Gaussian) (float64, error) {
	logZ, err := o.LogAverageFactor(product, a, b)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logEvidenceRatio")
	}
	if product.IsPointMass() {
		return logZ, nil
	}
	return logZ - toProduct.GetLogAverageOf(product), nil
}

// ProductAverageLogarithm returns the VMP message to product.
func (GaussianProductOp) ProductAverageLogarithm(a, b distribution.Gaussian) distribution.Gaussian {
	if a.IsPointMass() && b.IsPointMass() {
		return distribution.GaussianPointMass(a.Point() * b.Point())
	}
	ma, mb := a.GetMean(), b.GetMean()
	variance := gaussianMeanSquare(a)*gaussianMeanSquare(b) - ma*ma*mb*mb
	return distribution.NewGaussian(ma*mb, variance)
}

// AAverageLogarithm returns the VMP message to a. An observed product
// with a random b has no VMP update.
func (GaussianProductOp) AAverageLogarithm(product, b distribution.Gaussian) (distribution.Gaussian, error) {
	switch {
	case product.IsUniform():
		return distribution.GaussianUniform(), nil
	case product.IsPointMass():
		if !b.IsPointMass() {
			return distribution.Gaussian{}, errors.Wrap(ErrNotSupported,
				"aAverageLogarithm: observed product with a random b")
		}
		return GaussianProductOp{}.AAverageConditional(product, b.Point())
	}
	return distribution.Gaussian{
		MeanTimesPrecision: product.MeanTimesPrecision * b.GetMean(),
		Precision:          product.Precision * gaussianMeanSquare(b),
	}, nil
}

// BAverageLogarithm returns the VMP message to b.
func (o GaussianProductOp) BAverageLogarithm(product, a distribution.Gaussian) (distribution.Gaussian, error) {
	msg, err := o.AAverageLogarithm(product, a)
	return msg, errors.Wrap(err, "bAverageLogarithm")
}

// gaussianMeanSquare returns E[x²].
func gaussianMeanSquare(g distribution.Gaussian) float64 {
	m, v := g.GetMeanAndVariance()
	return m*m + v
}
