package factor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/quadrature"
)

// ExpOpSlow is a reference implementation of ExpOp. It locates the mode of
// the unnormalized posterior of d and integrates a dense Gauss-Legendre
// rule over the region where the posterior is above machine precision. It
// works for diffuse inputs where ExpOp's quadrature does not.
type ExpOpSlow struct {
	Config
}

// posterior integrates exp(logp) over [lower, upper]. modeLogp is used to
// locate the mode; it must be finite everywhere and agree with logp inside
// the bounds up to a constant.
func (e ExpOpSlow) posterior(logp, modeLogp func(float64) float64, x0, lower, upper float64) (expMoments, error) {
	cfg := e.withDefaults()

	mode, err := quadrature.FindMaximum(modeLogp, x0)
	if err != nil {
		return expMoments{}, errors.Wrap(ErrNumerical, err.Error())
	}
	mode = math.Min(math.Max(mode, lower), upper)

	scale := 1.0
	curvature := fd.Derivative(modeLogp, mode, &fd.Settings{Formula: fd.Central2nd})
	if curvature < 0 {
		scale = 1 / math.Sqrt(-curvature)
	}
	lo, hi := quadrature.GetIntegrationBounds(modeLogp, mode, scale)
	lo = math.Max(lo, lower)
	hi = math.Min(hi, upper)

	n := cfg.SlowNodeCount
	nodes := make([]float64, n)
	weights := make([]float64, n)
	quadrature.LegendreNodesAndWeights(lo, hi, nodes, weights)

	logw := make([]float64, n)
	for i, x := range nodes {
		logw[i] = math.Log(weights[i]) + logp(x)
	}
	logZ := floats.LogSumExp(logw)
	if math.IsInf(logZ, -1) || math.IsNaN(logZ) {
		return expMoments{}, errors.Wrapf(ErrNumerical, "posterior: Z = %v", math.Exp(logZ))
	}

	var m1, m2, me float64
	for i, x := range nodes {
		w := math.Exp(logw[i] - logZ)
		m1 += w * x
		m2 += w * x * x
		me += w * math.Exp(x)
	}
	return expMoments{
		logZ:     logZ,
		mean:     m1,
		variance: m2 - m1*m1,
		meanExp:  me,
	}, nil
}

// startingPoint returns a point where both messages have finite density.
func startingPoint(d distribution.Gaussian, exp distribution.Gamma) float64 {
	if d.IsProper() {
		return d.GetMean()
	}
	if exp.IsProper() {
		return math.Log(exp.GetMean())
	}
	return 0
}

// gaussianLogMessage returns the log of d at x, unnormalized when d is not
// proper.
func gaussianLogMessage(d distribution.Gaussian, x float64) float64 {
	if d.IsProper() || d.IsPointMass() {
		return d.GetLogProb(x)
	}
	return d.MeanTimesPrecision*x - d.Precision*x*x/2
}

func (e ExpOpSlow) moments(exp distribution.Gamma, d distribution.Gaussian) (expMoments, error) {
	logp := func(x float64) float64 {
		return gaussianLogMessage(d, x) + expLogProb(distribution.GammaPowerFromGamma(exp, 1), x)
	}
	return e.posterior(logp, logp, startingPoint(d, exp), math.Inf(-1), math.Inf(1))
}

// DAverageConditional returns the EP message to d.
func (e ExpOpSlow) DAverageConditional(exp distribution.Gamma, d distribution.Gaussian) (distribution.Gaussian, error) {
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

	mo, err := e.moments(exp, d)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "dAverageConditional")
	}
	if !(mo.variance > 0) {
		return distribution.Gaussian{}, errors.Wrapf(ErrNumerical,
			"dAverageConditional: variance %v", mo.variance)
	}
	result, err := distribution.NewGaussian(mo.mean, mo.variance).Ratio(d, cfg.ForceProper)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "dAverageConditional")
	}
	return result, nil
}

// ExpAverageConditional returns the EP message to exp.
func (e ExpOpSlow) ExpAverageConditional(exp distribution.Gamma, d distribution.Gaussian) (distribution.Gamma, error) {
	cfg := e.withDefaults()

	switch {
	case !informative(d):
		return distribution.GammaUniform(), nil
	case exp.IsPointMass() || d.IsPointMass():
		return ExpOp{Config: cfg}.ExpAverageConditional(exp, d, distribution.GaussianUniform())
	}

	mo, err := e.moments(exp, d)
	if err != nil {
		return distribution.Gamma{}, errors.Wrap(err, "expAverageConditional")
	}
	marginal := distribution.GammaFromMeanAndMeanLog(mo.meanExp, mo.mean)
	result, err := marginal.Ratio(exp, cfg.ForceProper)
	if err != nil {
		return distribution.Gamma{}, errors.Wrap(err, "expAverageConditional")
	}
	return result, nil
}

// LogAverageFactor returns log ∫ N(x; d) Ga(e^x; exp) dx.
func (e ExpOpSlow) LogAverageFactor(exp distribution.Gamma, d distribution.Gaussian) (float64, error) {
	switch {
	case exp.IsPointMass() || d.IsPointMass() || exp.IsUniform():
		return ExpOp{Config: e.Config}.LogAverageFactor(exp, d, distribution.GaussianUniform())
	}
	mo, err := e.moments(exp, d)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logAverageFactor")
	}
	return mo.logZ, nil
}

// truncatedMoments integrates the posterior of d when exp is a truncated
// Gamma. The mode is found without the truncation and then clamped to the
// bounds of log(exp).
func (e ExpOpSlow) truncatedMoments(exp distribution.TruncatedGamma, d distribution.Gaussian) (expMoments, error) {
	free := distribution.GammaPowerFromGamma(exp.Gamma, 1)
	modeLogp := func(x float64) float64 {
		return gaussianLogMessage(d, x) + expLogProb(free, x)
	}
	logp := func(x float64) float64 {
		y := math.Exp(x)
		if math.IsInf(y, 1) {
			return math.Inf(-1)
		}
		return gaussianLogMessage(d, x) + exp.GetLogProb(y)
	}
	lower := math.Log(exp.LowerBound)
	upper := math.Log(exp.UpperBound)
	return e.posterior(logp, modeLogp, startingPoint(d, exp.Gamma), lower, upper)
}

// DAverageConditionalTruncated returns the EP message to d when exp is a
// TruncatedGamma.
func (e ExpOpSlow) DAverageConditionalTruncated(exp distribution.TruncatedGamma, d distribution.Gaussian) (distribution.Gaussian, error) {
	cfg := e.withDefaults()

	if exp.IsPointMass() {
		return distribution.GaussianPointMass(math.Log(exp.Point())), nil
	}
	if d.IsPointMass() {
		return distribution.GaussianUniform(), nil
	}

	mo, err := e.truncatedMoments(exp, d)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "dAverageConditionalTruncated")
	}
	result, err := distribution.NewGaussian(mo.mean, mo.variance).Ratio(d, cfg.ForceProper)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "dAverageConditionalTruncated")
	}
	return result, nil
}

// LogAverageFactorTruncated returns log ∫ N(x; d) p(e^x) dx for a
// TruncatedGamma p.
func (e ExpOpSlow) LogAverageFactorTruncated(exp distribution.TruncatedGamma, d distribution.Gaussian) (float64, error) {
	switch {
	case exp.IsPointMass():
		return ExpOp{}.logAverageFactorPoint(exp.Point(), d), nil
	case d.IsPointMass():
		return exp.GetLogProb(math.Exp(d.Point())), nil
	}
	mo, err := e.truncatedMoments(exp, d)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logAverageFactorTruncated")
	}
	return mo.logZ, nil
}
