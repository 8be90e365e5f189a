package factor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
)

// ExpOpLaplace computes ExpOp messages by Laplace's method around a buffer
// x, the mode of the posterior of d. The caller owns the buffer: X finds it
// from scratch and X2 refines it by one Newton step per scheduling pass.
type ExpOpLaplace struct {
	Config
}

// logPosteriorDerivatives returns the derivatives of
// log d(x) + (shape-1)·x - rate·e^x at x.
func logPosteriorDerivatives(exp distribution.Gamma, d distribution.Gaussian, x float64) distribution.Derivatives {
	ex := exp.Rate * math.Exp(x)
	return distribution.Derivatives{
		DLogF:   d.MeanTimesPrecision - d.Precision*x + (exp.Shape - 1) - ex,
		DDLogF:  -d.Precision - ex,
		DDDLogF: -ex,
		D4LogF:  -ex,
	}
}

// X returns the mode of the posterior of d by damped Newton iteration.
func (e ExpOpLaplace) X(exp distribution.Gamma, d distribution.Gaussian) (float64, error) {
	cfg := e.withDefaults()

	if d.IsPointMass() {
		return d.Point(), nil
	}
	if exp.IsPointMass() {
		return math.Log(exp.Point()), nil
	}
	x := startingPoint(d, exp)
	for i := 0; i < cfg.MaxNewtonIterations; i++ {
		next := e.X2(exp, d, x)
		if math.IsNaN(next) {
			return math.NaN(), errors.Wrapf(ErrNumerical, "x: NaN after %d iterations", i)
		}
		if math.Abs(next-x) <= cfg.NewtonTolerance*(1+math.Abs(x)) {
			return next, nil
		}
		x = next
	}
	return x, nil
}

// X2 returns the buffer after one Newton step from x. The step is halved
// until it stays within one unit of x, which keeps e^x from overflowing.
func (e ExpOpLaplace) X2(exp distribution.Gamma, d distribution.Gaussian, x float64) float64 {
	if d.IsPointMass() {
		return d.Point()
	}
	der := logPosteriorDerivatives(exp, d, x)
	if !(der.DDLogF < 0) {
		return x
	}
	step := -der.DLogF / der.DDLogF
	for math.Abs(step) > 1 {
		step /= 2
	}
	return x + step
}

// DAverageConditional returns the EP message to d using the corrected
// Laplace moments of the posterior at x.
func (e ExpOpLaplace) DAverageConditional(exp distribution.Gamma, d distribution.Gaussian, x float64) (distribution.Gaussian, error) {
	cfg := e.withDefaults()

	switch KindOf(exp) {
	case Uniform:
		return distribution.GaussianUniform(), nil
	case PointMass:
		return distribution.GaussianPointMass(math.Log(exp.Point())), nil
	}
	if d.IsPointMass() {
		return ExpOp{Config: cfg}.DAverageConditional(exp, d, distribution.GaussianUniform())
	}

	mean, variance := LaplaceMoments(x, logPosteriorDerivatives(exp, d, x))
	if !(variance > 0) {
		return distribution.Gaussian{}, errors.Wrapf(ErrNumerical,
			"dAverageConditional: variance %v", variance)
	}
	result, err := distribution.NewGaussian(mean, variance).Ratio(d, cfg.ForceProper)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "dAverageConditional")
	}
	return result, nil
}

// ExpAverageConditional returns the EP message to exp. The posterior of d is
// summarized by its Laplace moments and pushed through exp as a
// log-normal.
func (e ExpOpLaplace) ExpAverageConditional(exp distribution.Gamma, d distribution.Gaussian, x float64) (distribution.Gamma, error) {
	cfg := e.withDefaults()

	switch {
	case !informative(d):
		return distribution.GammaUniform(), nil
	case exp.IsPointMass() || d.IsPointMass():
		return ExpOp{Config: cfg}.ExpAverageConditional(exp, d, distribution.GaussianUniform())
	}

	mean, variance := LaplaceMoments(x, logPosteriorDerivatives(exp, d, x))
	return e.expMessage(exp, mean, variance, cfg)
}

func (e ExpOpLaplace) expMessage(exp distribution.Gamma, mean, variance float64, cfg Config) (distribution.Gamma, error) {
	if !(variance > 0) {
		return distribution.Gamma{}, errors.Wrapf(ErrNumerical,
			"expAverageConditional: variance %v", variance)
	}
	marginal := ExpOp{}.ExpAverageLogarithm(distribution.NewGaussian(mean, variance))
	result, err := marginal.Ratio(exp, cfg.ForceProper)
	if err != nil {
		return distribution.Gamma{}, errors.Wrap(err, "expAverageConditional")
	}
	return result, nil
}

// LogAverageFactor returns the Laplace estimate of
// log ∫ N(x; d) Ga(e^x; exp) dx around the buffer x.
func (e ExpOpLaplace) LogAverageFactor(exp distribution.Gamma, d distribution.Gaussian, x float64) (float64, error) {
	if exp.IsPointMass() || d.IsPointMass() || exp.IsUniform() {
		return ExpOp{Config: e.Config}.LogAverageFactor(exp, d, distribution.GaussianUniform())
	}
	der := logPosteriorDerivatives(exp, d, x)
	if !(der.DDLogF < 0) {
		return math.NaN(), errors.Wrapf(ErrNumerical, "logAverageFactor: curvature %v", der.DDLogF)
	}
	logf := gaussianLogMessage(d, x) + expLogProb(distribution.GammaPowerFromGamma(exp, 1), x)
	return laplaceLogIntegral(logf, der.DDLogF), nil
}

// ExpOpLaplaceProp is ExpOpLaplace without the higher order corrections.
// The message to d matches only the slope and curvature of the factor at
// x, as in Laplace propagation.
type ExpOpLaplaceProp struct {
	ExpOpLaplace
}

// DAverageConditional returns the Gaussian whose log has the slope and
// curvature of the factor at x.
func (e ExpOpLaplaceProp) DAverageConditional(exp distribution.Gamma, d distribution.Gaussian, x float64) (distribution.Gaussian, error) {
	cfg := e.withDefaults()

	switch KindOf(exp) {
	case Uniform:
		return distribution.GaussianUniform(), nil
	case PointMass:
		return distribution.GaussianPointMass(math.Log(exp.Point())), nil
	}
	ex := exp.Rate * math.Exp(x)
	return distribution.GaussianFromDerivatives(x, (exp.Shape-1)-ex, -ex, cfg.ForceProper), nil
}

// ExpAverageConditional returns the EP message to exp using the Gaussian
// with mode x and the posterior curvature at x.
func (e ExpOpLaplaceProp) ExpAverageConditional(exp distribution.Gamma, d distribution.Gaussian, x float64) (distribution.Gamma, error) {
	cfg := e.withDefaults()

	switch {
	case !informative(d):
		return distribution.GammaUniform(), nil
	case exp.IsPointMass() || d.IsPointMass():
		return ExpOp{Config: cfg}.ExpAverageConditional(exp, d, distribution.GaussianUniform())
	}
	der := logPosteriorDerivatives(exp, d, x)
	return e.expMessage(exp, x, -1/der.DDLogF, cfg)
}
