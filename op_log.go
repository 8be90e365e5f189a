package factor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/special"
)

// LogOp computes messages for the factor log = ln(x), where x is Gamma
// and log is Gaussian. EP messages are those of ExpOp with the Jacobian of
// the change of variables folded into the Gamma message: as a function of
// log, Ga(e^log; s, r)·e^log is proportional to Ga(e^log; s+1, r).
type LogOp struct {
	Config
}

// shifted returns the Gamma that absorbs the Jacobian e^log.
func shifted(x distribution.Gamma) distribution.Gamma {
	if x.IsPointMass() {
		return x
	}
	return distribution.NewGamma(x.Shape+1, x.Rate)
}

// LogAverageConditional returns the EP message to log.
func (o LogOp) LogAverageConditional(log distribution.Gaussian, x distribution.Gamma, toLog distribution.Gaussian) (distribution.Gaussian, error) {
	msg, err := ExpOp{Config: o.Config}.DAverageConditional(shifted(x), log, toLog)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "logAverageConditional")
	}
	return msg, nil
}

// XAverageConditional returns the EP message to x.
func (o LogOp) XAverageConditional(log distribution.Gaussian, x distribution.Gamma, toLog distribution.Gaussian) (distribution.Gamma, error) {
	switch {
	case !informative(log):
		return distribution.GammaUniform(), nil
	case log.IsPointMass():
		return distribution.GammaPointMass(math.Exp(log.Point())), nil
	}
	msg, err := ExpOp{Config: o.Config}.ExpAverageConditional(shifted(x), log, toLog)
	if err != nil {
		return distribution.Gamma{}, errors.Wrap(err, "xAverageConditional")
	}
	if msg.IsPointMass() {
		return msg, nil
	}

	// msg divides the posterior by x·y, so multiply the y back in.
	msg.Shape++
	return msg, nil
}

// LogAverageFactor returns log ∫ Ga(x) N(ln x; log) dx.
func (o LogOp) LogAverageFactor(log distribution.Gaussian, x distribution.Gamma, toLog distribution.Gaussian) (float64, error) {
	switch {
	case x.IsPointMass():
		return log.GetLogProb(math.Log(x.Point())), nil
	case log.IsPointMass():
		return x.GetLogProb(math.Exp(log.Point())), nil
	case !x.IsProper() || log.IsUniform():
		return 0, nil
	}
	logZ, err := ExpOp{Config: o.Config}.LogAverageFactor(shifted(x), log, toLog)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logAverageFactor")
	}
	return logZ + math.Log(x.Shape) - math.Log(x.Rate), nil
}

// LogEvidenceRatio returns the evidence contribution of the factor.
func (o LogOp) LogEvidenceRatio(log distribution.Gaussian, x distribution.Gamma, toLog distribution.Gaussian) (float64, error) {
	logZ, err := o.LogAverageFactor(log, x, toLog)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logEvidenceRatio")
	}
	return logZ - toLog.GetLogAverageOf(log), nil
}

// LogAverageLogarithm returns the VMP message to log: the Gaussian with
// the mean and variance of ln x.
func (o LogOp) LogAverageLogarithm(x distribution.Gamma) (distribution.Gaussian, error) {
	switch KindOf(x) {
	case PointMass:
		return distribution.GaussianPointMass(math.Log(x.Point())), nil
	case Uniform, Improper:
		return distribution.Gaussian{}, errors.Wrapf(ErrImproperMessage,
			"logAverageLogarithm: x is %v", KindOf(x))
	}
	return distribution.NewGaussian(x.GetMeanLog(), special.Trigamma(x.Shape)), nil
}

// XAverageLogarithm returns the non-conjugate VMP message to x. With
// S(s, r) = E[ln N(ln x; log)] under x ~ Ga(s, r), the message parameters
// are the gradient of S with respect to the expected sufficient
// statistics (E[ln x], E[x]).
func (o LogOp) XAverageLogarithm(log distribution.Gaussian, x distribution.Gamma) (distribution.Gamma, error) {
	cfg := o.withDefaults()

	switch KindOf(log) {
	case Uniform:
		return distribution.GammaUniform(), nil
	case PointMass:
		return distribution.GammaPointMass(math.Exp(log.Point())), nil
	case Improper:
		return distribution.Gamma{}, errors.Wrap(ErrImproperMessage,
			"xAverageLogarithm: log is improper")
	}
	m, v := log.GetMeanAndVariance()
	if x.IsPointMass() {
		y := x.Point()
		diff := math.Log(y) - m
		dlogp := -diff / (v * y)
		ddlogp := (diff - 1) / (v * y * y)
		return distribution.GammaFromDerivatives(y, dlogp, ddlogp, cfg.ForceProper), nil
	}
	if !x.IsProper() {
		return distribution.Gamma{}, errors.Wrap(ErrImproperMessage,
			"xAverageLogarithm: x is improper")
	}

	s, r := x.Shape, x.Rate
	tri := special.Trigamma(s)
	e := special.Digamma(s) - math.Log(r) - m
	dS := -(special.Tetragamma(s) + 2*e*tri) / (2 * v)
	dR := e / (r * v)

	// Solve Jᵀg = (dS, dR) where J = ∂(E[ln x], E[x])/∂(s, r).
	a, b := tri, 1/r
	c, d := -1/r, -s/(r*r)
	det := a*d - b*c
	g1 := (dS*d - b*dR) / det
	g2 := (a*dR - c*dS) / det

	result := distribution.NewGamma(1+g1, -g2)
	if err := checkFinite("xAverageLogarithm", result.Shape, result.Rate); err != nil {
		return distribution.Gamma{}, err
	}
	return result, nil
}
