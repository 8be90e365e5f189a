package factor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/special"
)

// IsPositiveOp computes messages for the factor isPositive = (x > 0) with
// a Gaussian x and a Bernoulli isPositive.
//
// The message to x can have negative precision when isPositive is soft.
// It is returned as is unless ForceProper is set; IsPositiveOpProper
// always clamps it.
type IsPositiveOp struct {
	Config
}

// IsPositiveAverageConditional returns the probability that x is
// positive as a Bernoulli.
func (IsPositiveOp) IsPositiveAverageConditional(x distribution.Gaussian) distribution.Bernoulli {
	switch KindOf(x) {
	case PointMass:
		return distribution.BernoulliPointMass(x.Point() > 0)
	case Uniform, Improper:
		return distribution.BernoulliUniform()
	}
	m, v := x.GetMeanAndVariance()
	return distribution.BernoulliFromLogOdds(special.NormalCdfLogit(m / math.Sqrt(v)))
}

// IsPositiveAverageLogarithm returns the VMP message to isPositive.
func (o IsPositiveOp) IsPositiveAverageLogarithm(x distribution.Gaussian) distribution.Bernoulli {
	return o.IsPositiveAverageConditional(x)
}

// XAverageConditional returns the EP message to x.
func (o IsPositiveOp) XAverageConditional(isPositive distribution.Bernoulli, x distribution.Gaussian) (distribution.Gaussian, error) {
	cfg := o.withDefaults()
	msg, err := xAverageConditional(isPositive, x, cfg.ForceProper)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "xAverageConditional")
	}
	return msg, nil
}

// XAverageConditionalBool returns the EP message to x for an observed
// isPositive.
func (o IsPositiveOp) XAverageConditionalBool(isPositive bool, x distribution.Gaussian) (distribution.Gaussian, error) {
	return o.XAverageConditional(distribution.BernoulliPointMass(isPositive), x)
}

// xAverageConditional moment matches the posterior of x. alpha and beta
// are the first and negated second derivatives of log Z with respect to
// the mean of x.
func xAverageConditional(isPositive distribution.Bernoulli, x distribution.Gaussian, forceProper bool) (distribution.Gaussian, error) {
	switch {
	case isPositive.IsUniform() || x.IsUniform():
		return distribution.GaussianUniform(), nil
	case x.IsPointMass():
		if isPositive.IsPointMass() && (x.Point() > 0) != isPositive.Point() && x.Point() != 0 {
			// The nearest value consistent with the evidence.
			return distribution.GaussianPointMass(0), nil
		}
		return distribution.GaussianUniform(), nil
	case !x.IsProper():
		return distribution.Gaussian{}, errors.Wrapf(ErrImproperMessage, "x = %v", x)
	}

	m, v := x.GetMeanAndVariance()
	prec := 1 / v
	sd := math.Sqrt(v)
	z := m / sd

	var alpha, beta float64
	if isPositive.IsPointMass() {
		s := -1.0
		if isPositive.Point() {
			s = 1
		}
		lambda, delta := special.NormalTailMoments(s * z)
		if !(delta < 1) {
			// All of the posterior mass is at the boundary.
			return distribution.GaussianPointMass(0), nil
		}
		alpha = s * lambda / sd
		beta = delta * prec
	} else {
		pt, pf := isPositive.GetProbTrue(), 1-isPositive.GetProbTrue()
		logZ := special.LogSumExp(math.Log(pt)+special.NormalCdfLn(z),
			math.Log(pf)+special.NormalCdfLn(-z))
		alpha = (pt - pf) * math.Exp(special.NormalPdfLn(z)-logZ) / sd
		beta = alpha * (alpha + m*prec)
	}
	if forceProper && beta < 0 {
		beta = 0
	}

	weight := beta / (prec - beta)
	result := distribution.Gaussian{
		MeanTimesPrecision: weight*(m*prec+alpha) + alpha,
		Precision:          prec * weight,
	}
	if err := checkFinite("xAverageConditional", result.MeanTimesPrecision, result.Precision); err != nil {
		return distribution.Gaussian{}, err
	}
	return result, nil
}

// LogAverageFactor returns log ∫ x(y)·isPositive(y > 0) dy.
func (o IsPositiveOp) LogAverageFactor(isPositive distribution.Bernoulli, x distribution.Gaussian) float64 {
	return o.IsPositiveAverageConditional(x).GetLogAverageOf(isPositive)
}

// LogAverageFactorBool returns the log probability that the sign of x
// matches isPositive.
func (o IsPositiveOp) LogAverageFactorBool(isPositive bool, x distribution.Gaussian) float64 {
	return o.IsPositiveAverageConditional(x).GetLogProb(isPositive)
}

// LogEvidenceRatio returns the evidence contribution of a random
// isPositive, which is zero.
func (o IsPositiveOp) LogEvidenceRatio(isPositive distribution.Bernoulli, x distribution.Gaussian) float64 {
	toIsPositive := o.IsPositiveAverageConditional(x)
	return o.LogAverageFactor(isPositive, x) - toIsPositive.GetLogAverageOf(isPositive)
}

// LogEvidenceRatioBool returns the evidence contribution of an observed
// isPositive.
func (o IsPositiveOp) LogEvidenceRatioBool(isPositive bool, x distribution.Gaussian) float64 {
	return o.LogAverageFactorBool(isPositive, x)
}

// XAverageLogarithm returns the VMP message to x, the indicator of the
// observed sign as a truncated uniform. A random isPositive has no VMP
// update.
func (IsPositiveOp) XAverageLogarithm(isPositive distribution.Bernoulli) (distribution.TruncatedGaussian, error) {
	uniform := distribution.TruncatedGaussian{
		Gaussian:   distribution.GaussianUniform(),
		LowerBound: math.Inf(-1),
		UpperBound: math.Inf(1),
	}
	switch {
	case isPositive.IsUniform():
		return uniform, nil
	case !isPositive.IsPointMass():
		return distribution.TruncatedGaussian{}, errors.Wrap(ErrNotSupported,
			"xAverageLogarithm: random isPositive")
	case isPositive.Point():
		uniform.LowerBound = 0
	default:
		uniform.UpperBound = 0
	}
	return uniform, nil
}

// IsPositiveOpProper is IsPositiveOp with messages to x always clamped to
// non-negative precision.
type IsPositiveOpProper struct {
	IsPositiveOp
}

// XAverageConditional returns the EP message to x with non-negative
// precision.
func (o IsPositiveOpProper) XAverageConditional(isPositive distribution.Bernoulli, x distribution.Gaussian) (distribution.Gaussian, error) {
	msg, err := xAverageConditional(isPositive, x, true)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "xAverageConditional")
	}
	return msg, nil
}

// XAverageConditionalBool returns the EP message to x for an observed
// isPositive.
func (o IsPositiveOpProper) XAverageConditionalBool(isPositive bool, x distribution.Gaussian) (distribution.Gaussian, error) {
	return o.XAverageConditional(distribution.BernoulliPointMass(isPositive), x)
}
