package factor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/quadrature"
	"github.com/samuelfneumann/factor/special"
)

// PlusGammaOp computes EP messages for sum = a + b with Gamma distributed
// arguments.
//
// The message to sum is moment matched. When sum is observed at y the
// posterior of b lives on (0, y) and is approximated by Laplace's method
// around the mode held in the buffer q, as in GammaPowerProductOpLaplace.
// Messages to a and b for an unobserved sum are not supported.
type PlusGammaOp struct {
	Config
}

// SumAverageConditional returns the Gamma with the mean and variance of
// a + b.
func (o PlusGammaOp) SumAverageConditional(a, b distribution.Gamma) (distribution.Gamma, error) {
	switch {
	case a.IsPointMass() && b.IsPointMass():
		return distribution.GammaPointMass(a.Point() + b.Point()), nil
	case a.IsUniform() || b.IsUniform():
		return distribution.GammaUniform(), nil
	case !informative(a) || !informative(b):
		return distribution.Gamma{}, errors.Wrapf(ErrImproperMessage,
			"sumAverageConditional: %v + %v", a, b)
	}
	mean := a.GetMean() + b.GetMean()
	variance := a.GetVariance() + b.GetVariance()
	return distribution.GammaFromMeanAndVariance(mean, variance), nil
}

// gammaDerivatives returns the derivatives of log g(x).
func gammaDerivatives(g distribution.Gamma, x float64) distribution.Derivatives {
	return gammaPowerDerivatives(distribution.GammaPowerFromGamma(g, 1), x)
}

// Dlogfs returns the derivatives with respect to b of log A(y - b) for an
// observed sum y.
func (o PlusGammaOp) Dlogfs(b float64, sum, A distribution.Gamma) distribution.Derivatives {
	w := sum.Point() - b
	c := A.Shape - 1
	// Odd derivatives change sign under w = y - b.
	d := logDerivatives(c, w)
	return distribution.Derivatives{
		DLogF:   -d.DLogF + A.Rate,
		DDLogF:  d.DDLogF,
		DDDLogF: -d.DDDLogF,
		D4LogF:  d.D4LogF,
	}
}

// Q returns the buffer for the posterior of b given an observed sum: a
// Gamma with its mode at the mode of B(b)·A(y - b) and the curvature
// found there.
func (o PlusGammaOp) Q(sum, A, B distribution.Gamma) (distribution.Gamma, error) {
	switch {
	case B.IsPointMass():
		return distribution.GammaPointMass(B.Point()), nil
	case !sum.IsPointMass():
		return distribution.Gamma{}, errors.Wrap(ErrNotSupported, "q: random sum")
	}
	y := sum.Point()
	if A.IsPointMass() {
		return distribution.GammaPointMass(y - A.Point()), nil
	}

	// b = y·σ(z) keeps the search inside (0, y).
	logf := func(z float64) float64 {
		b := y * special.Logistic(z)
		return A.GetLogProb(y-b) + B.GetLogProb(b)
	}
	z0 := 0.0
	if B.IsProper() && A.IsProper() {
		ma, mb := A.GetMean(), B.GetMean()
		z0 = math.Log(mb / ma)
	}
	z, err := quadrature.FindMaximum(logf, z0)
	if err != nil {
		return distribution.Gamma{}, errors.Wrapf(ErrNumerical, "q: %v", err)
	}
	b := y * special.Logistic(z)
	if !(b > 0 && b < y) {
		return distribution.Gamma{}, errors.Wrapf(ErrNumerical, "q: mode %v outside (0, %v)", b, y)
	}

	d := addDerivatives(gammaDerivatives(B, b), o.Dlogfs(b, sum, A))
	if !(d.DDLogF < 0) {
		return distribution.Gamma{}, errors.Wrapf(ErrNumerical, "q: curvature %v at %v",
			d.DDLogF, b)
	}
	return distribution.GammaFromDerivatives(b, 0, d.DDLogF, true), nil
}

// posteriorB returns the Laplace mean and variance of b at the mode of q.
func (o PlusGammaOp) posteriorB(sum, A, B, q distribution.Gamma) (mean, variance float64, err error) {
	b := q.GetMode()
	if !(b > 0 && b < sum.Point()) {
		return 0, 0, errors.Wrapf(ErrNumerical, "buffer %v has no mode inside (0, %v)",
			q, sum.Point())
	}
	d := addDerivatives(gammaDerivatives(B, b), o.Dlogfs(b, sum, A))
	mean, variance = LaplaceMoments(b, d)
	if !(variance > 0) {
		return 0, 0, errors.Wrapf(ErrNumerical, "posterior variance %v", variance)
	}
	return mean, variance, nil
}

// BAverageConditional returns the EP message to b.
func (o PlusGammaOp) BAverageConditional(sum, A, B, q distribution.Gamma) (distribution.Gamma, error) {
	cfg := o.withDefaults()

	switch {
	case sum.IsUniform() || A.IsUniform():
		return distribution.GammaUniform(), nil
	case !sum.IsPointMass():
		return distribution.Gamma{}, errors.Wrap(ErrNotSupported,
			"bAverageConditional: random sum")
	case A.IsPointMass():
		b := sum.Point() - A.Point()
		if !(b >= 0) {
			return distribution.Gamma{}, errors.Wrapf(ErrArgument,
				"bAverageConditional: sum %v is less than a = %v", sum.Point(), A.Point())
		}
		return distribution.GammaPointMass(b), nil
	case B.IsPointMass():
		b := B.Point()
		d := o.Dlogfs(b, sum, A)
		return distribution.GammaFromDerivatives(b, d.DLogF, d.DDLogF, cfg.ForceProper), nil
	}

	mean, variance, err := o.posteriorB(sum, A, B, q)
	if err != nil {
		return distribution.Gamma{}, errors.Wrap(err, "bAverageConditional")
	}
	return o.project("bAverageConditional", mean, variance, B, cfg)
}

// AAverageConditional returns the EP message to a. The posterior of a is
// that of y - b.
func (o PlusGammaOp) AAverageConditional(sum, A, B, q distribution.Gamma) (distribution.Gamma, error) {
	cfg := o.withDefaults()

	switch {
	case sum.IsUniform() || B.IsUniform():
		return distribution.GammaUniform(), nil
	case !sum.IsPointMass():
		return distribution.Gamma{}, errors.Wrap(ErrNotSupported,
			"aAverageConditional: random sum")
	case B.IsPointMass() || A.IsPointMass():
		return o.BAverageConditional(sum, B, A, q)
	}

	mean, variance, err := o.posteriorB(sum, A, B, q)
	if err != nil {
		return distribution.Gamma{}, errors.Wrap(err, "aAverageConditional")
	}
	return o.project("aAverageConditional", sum.Point()-mean, variance, A, cfg)
}

func (o PlusGammaOp) project(op string, mean, variance float64, prior distribution.Gamma, cfg Config) (distribution.Gamma, error) {
	if !(mean > 0) {
		return distribution.Gamma{}, errors.Wrapf(ErrNumerical, "%s: mean %v", op, mean)
	}
	marginal := distribution.GammaFromMeanAndVariance(mean, variance)
	result, err := marginal.Ratio(prior, cfg.ForceProper)
	if err != nil {
		return distribution.Gamma{}, errors.Wrap(err, op)
	}
	if err := checkFinite(op, result.Shape, result.Rate); err != nil {
		return distribution.Gamma{}, err
	}
	return result, nil
}

// LogAverageFactor returns log ∫∫ A(a)·B(b)·sum(a + b) da db. It is the
// Laplace estimate when sum is observed and the moment matched estimate
// otherwise.
func (o PlusGammaOp) LogAverageFactor(sum, A, B, q distribution.Gamma) (float64, error) {
	switch {
	case sum.IsUniform():
		return 0, nil
	case !sum.IsPointMass():
		toSum, err := o.SumAverageConditional(A, B)
		if err != nil {
			return math.NaN(), errors.Wrap(err, "logAverageFactor")
		}
		return toSum.GetLogAverageOf(sum), nil
	case A.IsPointMass():
		return B.GetLogProb(sum.Point() - A.Point()), nil
	case B.IsPointMass():
		return A.GetLogProb(sum.Point() - B.Point()), nil
	}

	y := sum.Point()
	b := q.GetMode()
	if !(b > 0 && b < y) {
		return math.NaN(), errors.Wrapf(ErrNumerical, "logAverageFactor: buffer %v", q)
	}
	d := addDerivatives(gammaDerivatives(B, b), o.Dlogfs(b, sum, A))
	if !(d.DDLogF < 0) {
		return math.NaN(), errors.Wrapf(ErrNumerical, "logAverageFactor: curvature %v",
			d.DDLogF)
	}
	return laplaceLogIntegral(B.GetLogProb(b)+A.GetLogProb(y-b), d.DDLogF), nil
}

// LogEvidenceRatio returns the evidence contribution of the factor.
func (o PlusGammaOp) LogEvidenceRatio(sum, A, B, q, toSum distribution.Gamma) (float64, error) {
	logZ, err := o.LogAverageFactor(sum, A, B, q)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logEvidenceRatio")
	}
	if sum.IsPointMass() {
		return logZ, nil
	}
	return logZ - toSum.GetLogAverageOf(sum), nil
}
