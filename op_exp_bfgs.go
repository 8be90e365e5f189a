package factor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/optimize"

	"github.com/samuelfneumann/factor/distribution"
)

// bfgsGradientThreshold stops the KL minimisation.
const bfgsGradientThreshold = 1e-10

// ExpOpBFGS computes the VMP message to d by minimising
// KL(q || prior·factor) over Gaussians q = N(m, e^t) with BFGS. At the
// optimum q/prior is the fixed point of ExpOp.DAverageLogarithm.
type ExpOpBFGS struct {
	Config
}

// DAverageLogarithm returns q/prior where q minimises the KL divergence.
func (e ExpOpBFGS) DAverageLogarithm(exp distribution.Gamma, prior distribution.Gaussian) (distribution.Gaussian, error) {
	cfg := e.withDefaults()

	switch KindOf(exp) {
	case PointMass:
		return distribution.GaussianPointMass(math.Log(exp.Point())), nil
	case Uniform:
		return distribution.GaussianUniform(), nil
	}
	if prior.IsPointMass() {
		return ExpOp{Config: cfg}.DAverageLogarithm(exp, prior)
	}

	s, r := exp.Shape, exp.Rate
	mtp, prec := prior.MeanTimesPrecision, prior.Precision

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			m, v := x[0], math.Exp(x[1])
			return -(s-1)*m + r*math.Exp(m+v/2) - mtp*m + prec*(m*m+v)/2 - x[1]/2
		},
		Grad: func(grad, x []float64) {
			m, v := x[0], math.Exp(x[1])
			re := r * math.Exp(m+v/2)
			grad[0] = -(s - 1) + re - mtp + prec*m
			grad[1] = v*(re+prec)/2 - 0.5
		},
	}

	x0 := []float64{startingPoint(prior, exp), 0}
	if prior.IsProper() {
		x0[1] = math.Log(prior.GetVariance())
	}
	settings := &optimize.Settings{GradientThreshold: bfgsGradientThreshold}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if result == nil {
		return distribution.Gaussian{}, errors.Wrap(err, "dAverageLogarithm")
	}
	if err != nil {
		cfg.Logger.Debug("exp: BFGS stopped early", "status", result.Status,
			"err", err)
	}

	m, v := result.X[0], math.Exp(result.X[1])
	if err := checkFinite("dAverageLogarithm", m, v); err != nil {
		return distribution.Gaussian{}, err
	}
	q := distribution.NewGaussian(m, v)
	msg, err := q.Ratio(prior, cfg.ForceProper)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "dAverageLogarithm")
	}
	return msg, nil
}
