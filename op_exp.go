package factor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/quadrature"
)

// minQuadratureVariance is the posterior variance of d below which the
// Gauss-Hermite estimate of E[exp(x)] loses precision.
const minQuadratureVariance = 1e-6

// ExpOp computes messages for the factor exp = e^d, where d is Gaussian and
// exp is Gamma or GammaPower distributed. The general case is solved by
// Gauss-Hermite quadrature centred on the posterior of d.
type ExpOp struct {
	Config
}

// expMoments holds the moments of the posterior of d under the factor.
type expMoments struct {
	logZ     float64
	mean     float64
	variance float64

	// meanExp is E[exp(d/power)], the mean of the underlying Gamma variable.
	meanExp float64
}

// expLogProb returns the log density of exp at e^x.
func expLogProb(exp distribution.GammaPower, x float64) float64 {
	y := math.Exp(x)
	if math.IsInf(y, 1) {
		return math.Inf(-1)
	}
	return exp.GetLogProb(y)
}

// moments integrates the posterior of d by Gauss-Hermite quadrature. The
// nodes are placed on d·toD when it is proper, then recentred on the
// posterior found in the previous iteration.
func (e ExpOp) moments(exp distribution.GammaPower, d, toD distribution.Gaussian) (expMoments, error) {
	cfg := e.withDefaults()

	q := d.Product(toD)
	if !q.IsProper() {
		q = d
	}
	m, v := q.GetMeanAndVariance()

	n := cfg.QuadratureNodeCount
	nodes := make([]float64, n)
	weights := make([]float64, n)
	logw := make([]float64, n)

	var mo expMoments
	for iter := 0; iter < cfg.QuadratureIterations; iter++ {
		quadrature.GaussianNodesAndWeights(m, v, nodes, weights)
		proposal := distribution.NewGaussian(m, v)
		for i, x := range nodes {
			logw[i] = math.Log(weights[i]) + d.GetLogProb(x) +
				expLogProb(exp, x) - proposal.GetLogProb(x)
		}

		logZ := floats.LogSumExp(logw)
		if math.IsInf(logZ, -1) || math.IsNaN(logZ) {
			return expMoments{}, errors.Wrapf(ErrNumerical, "moments: Z = %v", math.Exp(logZ))
		}

		var m1, m2, me float64
		for i, x := range nodes {
			w := math.Exp(logw[i] - logZ)
			m1 += w * x
			m2 += w * x * x
			me += w * math.Exp(x/exp.Power)
		}
		mo = expMoments{
			logZ:     logZ,
			mean:     m1,
			variance: m2 - m1*m1,
			meanExp:  me,
		}
		if !(mo.variance > 0) {
			break
		}
		m, v = mo.mean, mo.variance
	}
	return mo, nil
}

// ExpAverageConditional returns the EP message to exp.
func (e ExpOp) ExpAverageConditional(exp distribution.Gamma, d, toD distribution.Gaussian) (distribution.Gamma, error) {
	result, err := e.ExpAverageConditionalPower(distribution.GammaPowerFromGamma(exp, 1), d, toD)
	if err != nil {
		return distribution.Gamma{}, err
	}
	return result.ToGamma(), nil
}

// ExpAverageConditionalPower returns the EP message to exp when exp is a
// GammaPower.
func (e ExpOp) ExpAverageConditionalPower(exp distribution.GammaPower, d, toD distribution.Gaussian) (distribution.GammaPower, error) {
	cfg := e.withDefaults()
	p := exp.Power

	switch {
	case !informative(d):
		return distribution.GammaPowerUniform(p), nil
	case exp.IsPointMass() && !d.IsPointMass():
		return expPointMessage(exp.Point(), d, p, cfg.ForceProper), nil
	case d.IsPointMass():
		return distribution.GammaPowerPointMass(math.Exp(d.Point()), p), nil
	}

	mo, err := e.moments(exp, d, toD)
	if err != nil {
		return distribution.GammaPower{}, errors.Wrap(err, "expAverageConditional")
	}

	var marginal distribution.GammaPower
	if mo.variance < minQuadratureVariance {
		cfg.Logger.Debug("exp: posterior too narrow for quadrature",
			"variance", mo.variance)
		marginal = e.ExpAverageLogarithmPower(distribution.NewGaussian(mo.mean,
			math.Max(mo.variance, 0)), p)
	} else {
		marginal = distribution.GammaPowerFromGamma(
			distribution.GammaFromMeanAndMeanLog(mo.meanExp, mo.mean/p), p)
	}

	result, err := marginal.Ratio(exp, cfg.ForceProper)
	if err != nil {
		return distribution.GammaPower{}, errors.Wrap(err, "expAverageConditional")
	}
	if err := checkFinite("expAverageConditional", result.Shape, result.Rate); err != nil {
		return distribution.GammaPower{}, err
	}
	return result, nil
}

// expPointMessage returns the GammaPower message to an observed exp = y
// that matches the slope and curvature of N(log y; m, v)/y at y.
func expPointMessage(y float64, d distribution.Gaussian, power float64, forceProper bool) distribution.GammaPower {
	m, v := d.GetMeanAndVariance()
	diff := math.Log(y) - m
	dlogp := -diff/(v*y) - 1/y
	ddlogp := diff/(v*y*y) - 1/(v*y*y) + 1/(y*y)
	return distribution.GammaPowerFromDerivatives(y, dlogp, ddlogp, power, forceProper)
}

// DAverageConditional returns the EP message to d. If quadrature breaks
// down it falls back to ExpOpSlow.
func (e ExpOp) DAverageConditional(exp distribution.Gamma, d, toD distribution.Gaussian) (distribution.Gaussian, error) {
	cfg := e.withDefaults()

	switch KindOf(exp) {
	case Uniform:
		return distribution.GaussianUniform(), nil
	case PointMass:
		return distribution.GaussianPointMass(math.Log(exp.Point())), nil
	}
	switch KindOf(d) {
	case PointMass:
		x := d.Point()
		ex := math.Exp(x)
		dlogf := (exp.Shape - 1) - exp.Rate*ex
		ddlogf := -exp.Rate * ex
		return distribution.GaussianFromDerivatives(x, dlogf, ddlogf, cfg.ForceProper), nil
	case Uniform, Improper:
		return ExpOpSlow{Config: cfg}.DAverageConditional(exp, d)
	}

	mo, err := e.moments(distribution.GammaPowerFromGamma(exp, 1), d, toD)
	if err != nil || !(mo.variance > 0) {
		cfg.Logger.Debug("exp: falling back to slow quadrature",
			"exp", exp.String(), "d", d.String(), "err", err)
		return ExpOpSlow{Config: cfg}.DAverageConditional(exp, d)
	}

	posterior := distribution.NewGaussian(mo.mean, mo.variance)
	result, err := posterior.Ratio(d, cfg.ForceProper)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "dAverageConditional")
	}
	return result, nil
}

// LogAverageFactor returns log ∫ N(x; d) Ga(e^x; exp) dx.
func (e ExpOp) LogAverageFactor(exp distribution.Gamma, d, toD distribution.Gaussian) (float64, error) {
	switch {
	case exp.IsPointMass():
		return e.logAverageFactorPoint(exp.Point(), d), nil
	case d.IsPointMass():
		return exp.GetLogProb(math.Exp(d.Point())), nil
	case exp.IsUniform():
		return 0, nil
	case !d.IsProper():
		return ExpOpSlow{Config: e.Config}.LogAverageFactor(exp, d)
	}

	mo, err := e.moments(distribution.GammaPowerFromGamma(exp, 1), d, toD)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logAverageFactor")
	}
	return mo.logZ, nil
}

// logAverageFactorPoint returns the log density of e^d at y.
func (e ExpOp) logAverageFactorPoint(y float64, d distribution.Gaussian) float64 {
	if d.IsPointMass() {
		if math.Exp(d.Point()) == y {
			return 0
		}
		return math.Inf(-1)
	}
	return d.GetLogProb(math.Log(y)) - math.Log(y)
}

// LogEvidenceRatio returns the evidence contribution of the factor when exp
// is random.
func (e ExpOp) LogEvidenceRatio(exp distribution.Gamma, d, toD distribution.Gaussian, toExp distribution.Gamma) (float64, error) {
	logZ, err := e.LogAverageFactor(exp, d, toD)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logEvidenceRatio")
	}
	return logZ - toExp.GetLogAverageOf(exp), nil
}

// LogEvidenceRatioPoint returns the evidence contribution of the factor
// when exp is observed.
func (e ExpOp) LogEvidenceRatioPoint(exp float64, d distribution.Gaussian) float64 {
	return e.logAverageFactorPoint(exp, d)
}

// ExpAverageLogarithm returns the VMP message to exp: the Gamma with the
// mean and mean log of e^d.
func (e ExpOp) ExpAverageLogarithm(d distribution.Gaussian) distribution.Gamma {
	return e.ExpAverageLogarithmPower(d, 1).ToGamma()
}

// ExpAverageLogarithmPower returns the VMP message to a GammaPower exp.
func (e ExpOp) ExpAverageLogarithmPower(d distribution.Gaussian, power float64) distribution.GammaPower {
	switch KindOf(d) {
	case PointMass:
		return distribution.GammaPowerPointMass(math.Exp(d.Point()), power)
	case Uniform, Improper:
		return distribution.GammaPowerUniform(power)
	}
	m, v := d.GetMeanAndVariance()
	mean := math.Exp(m/power + v/(2*power*power))
	return distribution.GammaPowerFromGamma(
		distribution.GammaFromMeanAndMeanLog(mean, m/power), power)
}

// DAverageLogarithm returns the non-conjugate VMP message to d. With
// S(m, v) = E[log Ga(e^x; exp)] under d = N(m, v), the message has
// precision -2∂S/∂v and mean times precision ∂S/∂m + m·precision.
func (e ExpOp) DAverageLogarithm(exp distribution.Gamma, d distribution.Gaussian) (distribution.Gaussian, error) {
	switch KindOf(exp) {
	case PointMass:
		return distribution.GaussianPointMass(math.Log(exp.Point())), nil
	case Uniform:
		return distribution.GaussianUniform(), nil
	}
	if !informative(d) {
		return distribution.Gaussian{}, errors.Wrapf(ErrImproperMessage,
			"dAverageLogarithm: d is %v", KindOf(d))
	}

	m, v := d.GetMeanAndVariance()
	meanExp := exp.Rate * math.Exp(m+v/2)
	result := distribution.Gaussian{
		Precision:          meanExp,
		MeanTimesPrecision: (exp.Shape - 1) - meanExp + m*meanExp,
	}
	if err := checkFinite("dAverageLogarithm", result.Precision, result.MeanTimesPrecision); err != nil {
		return distribution.Gaussian{}, err
	}
	return result, nil
}
