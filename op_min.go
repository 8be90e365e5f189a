package factor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/special"
)

// MinOp computes messages for min = Min(a, b) with Gaussian arguments.
//
// The posterior splits into the region a < b, where min = a, and the
// region b < a, where min = b. In each region a Gaussian times a normal
// CDF has closed-form moments, so every message is the moment-matched
// two-component mixture. With a uniform min this is Clark's formula for
// the moments of a minimum.
type MinOp struct {
	Config
}

// component is one region of the posterior with its log mass and the
// moments of the variable of interest.
type component struct {
	logWeight, mean, variance float64
}

// xIsMin returns the region x < y, where min = x, with the moments of x.
func xIsMin(min, x, y distribution.Gaussian) component {
	p := x.Product(min)
	mp, vp := p.GetMeanAndVariance()
	my, vy := y.GetMeanAndVariance()
	s := math.Sqrt(vy + vp)
	z := (my - mp) / s
	lambda, delta := special.NormalTailMoments(z)
	return component{
		logWeight: x.GetLogAverageOf(min) + special.NormalCdfLn(z),
		mean:      mp - vp/s*lambda,
		variance:  vp - vp*vp/(s*s)*delta,
	}
}

// xAboveMin returns the region x > y, where min = y, with the moments of
// x.
func xAboveMin(min, x, y distribution.Gaussian) component {
	p := y.Product(min)
	mp, vp := p.GetMeanAndVariance()
	mx, vx := x.GetMeanAndVariance()
	s := math.Sqrt(vx + vp)
	z := (mx - mp) / s
	lambda, delta := special.NormalTailMoments(z)
	return component{
		logWeight: y.GetLogAverageOf(min) + special.NormalCdfLn(z),
		mean:      mx + vx/s*lambda,
		variance:  vx - vx*vx/(s*s)*delta,
	}
}

// mixture returns the log mass and moments of two weighted components.
func mixture(op string, c1, c2 component) (logZ, mean, variance float64, err error) {
	logZ = special.LogSumExp(c1.logWeight, c2.logWeight)
	if math.IsInf(logZ, -1) {
		return logZ, math.NaN(), math.NaN(), errors.Wrapf(ErrNumerical, "%s: zero mass", op)
	}
	w1 := math.Exp(c1.logWeight - logZ)
	w2 := math.Exp(c2.logWeight - logZ)
	mean = w1*c1.mean + w2*c2.mean
	d1, d2 := c1.mean-mean, c2.mean-mean
	variance = w1*(c1.variance+d1*d1) + w2*(c2.variance+d2*d2)
	if err := checkFinite(op, mean, variance); err != nil {
		return logZ, mean, variance, err
	}
	return logZ, mean, variance, nil
}

func (o MinOp) check(op string, ms ...distribution.Gaussian) error {
	for _, m := range ms {
		if KindOf(m) == Improper {
			return errors.Wrapf(ErrImproperMessage, "%s: %v", op, m)
		}
	}
	return nil
}

// MinAverageConditional returns the EP message to min. An observed min
// receives the predictive distribution.
func (o MinOp) MinAverageConditional(min, a, b distribution.Gaussian) (distribution.Gaussian, error) {
	cfg := o.withDefaults()

	switch {
	case a.IsUniform() || b.IsUniform():
		return distribution.GaussianUniform(), nil
	case a.IsPointMass() && b.IsPointMass():
		return distribution.GaussianPointMass(math.Min(a.Point(), b.Point())), nil
	}
	if err := o.check("minAverageConditional", min, a, b); err != nil {
		return distribution.Gaussian{}, err
	}
	if min.IsPointMass() {
		min = distribution.GaussianUniform()
	}

	_, mean, variance, err := mixture("minAverageConditional", xIsMin(min, a, b), xIsMin(min, b, a))
	if err != nil {
		return distribution.Gaussian{}, err
	}
	msg, err := distribution.NewGaussian(mean, variance).Ratio(min, cfg.ForceProper)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "minAverageConditional")
	}
	return msg, nil
}

// AAverageConditional returns the EP message to a.
func (o MinOp) AAverageConditional(min, a, b distribution.Gaussian) (distribution.Gaussian, error) {
	cfg := o.withDefaults()

	switch {
	case min.IsUniform() || a.IsUniform() || b.IsUniform():
		return distribution.GaussianUniform(), nil
	}
	if err := o.check("aAverageConditional", min, a, b); err != nil {
		return distribution.Gaussian{}, err
	}

	switch {
	case a.IsPointMass():
		if min.IsPointMass() {
			return distribution.GaussianUniform(), nil
		}
		logf := func(x float64) float64 {
			logZ, _ := o.LogAverageFactor(min, distribution.GaussianPointMass(x), b)
			return logZ
		}
		x := a.Point()
		d1 := fd.Derivative(logf, x, &fd.Settings{Formula: fd.Central})
		d2 := fd.Derivative(logf, x, &fd.Settings{Formula: fd.Central2nd})
		if err := checkFinite("aAverageConditional", d1, d2); err != nil {
			return distribution.Gaussian{}, err
		}
		return distribution.GaussianFromDerivatives(x, d1, d2, cfg.ForceProper), nil

	case b.IsPointMass() && min.IsPointMass():
		y, c := min.Point(), b.Point()
		switch {
		case y < c:
			return distribution.GaussianPointMass(y), nil
		case y > c:
			return distribution.Gaussian{}, errors.Wrapf(ErrArgument,
				"aAverageConditional: min %v above b %v", y, c)
		}
		ma, va := a.GetMeanAndVariance()
		posterior := distribution.NewTruncatedGaussian(ma, va, c, math.Inf(1)).ToGaussian()
		msg, err := posterior.Ratio(a, cfg.ForceProper)
		if err != nil {
			return distribution.Gaussian{}, errors.Wrap(err, "aAverageConditional")
		}
		return msg, nil
	}

	_, mean, variance, err := mixture("aAverageConditional", xIsMin(min, a, b), xAboveMin(min, a, b))
	if err != nil {
		return distribution.Gaussian{}, err
	}
	if !(variance > 0) {
		return distribution.Gaussian{}, errors.Wrapf(ErrNumerical,
			"aAverageConditional: posterior variance %v", variance)
	}
	msg, err := distribution.NewGaussian(mean, variance).Ratio(a, cfg.ForceProper)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "aAverageConditional")
	}
	return msg, nil
}

// BAverageConditional returns the EP message to b.
func (o MinOp) BAverageConditional(min, a, b distribution.Gaussian) (distribution.Gaussian, error) {
	return o.AAverageConditional(min, b, a)
}

// LogAverageFactor returns log ∫∫ a(x)·b(y)·min(Min(x, y)) dx dy. An
// observed min equal to an observed argument contributes the probability
// that the other argument is at least as large.
func (o MinOp) LogAverageFactor(min, a, b distribution.Gaussian) (float64, error) {
	switch {
	case min.IsUniform() || a.IsUniform() || b.IsUniform():
		return 0, nil
	}
	if err := o.check("logAverageFactor", min, a, b); err != nil {
		return math.NaN(), err
	}

	switch {
	case a.IsPointMass() && b.IsPointMass():
		return min.GetLogProb(math.Min(a.Point(), b.Point())), nil
	case min.IsPointMass() && (a.IsPointMass() || b.IsPointMass()):
		x, other := a.Point(), b
		if b.IsPointMass() {
			x, other = b.Point(), a
		}
		y := min.Point()
		switch {
		case y < x:
			return other.GetLogProb(y), nil
		case y > x:
			return math.Inf(-1), nil
		}
		mo, vo := other.GetMeanAndVariance()
		return special.NormalCdfLn((mo - x) / math.Sqrt(vo)), nil
	}

	logZ, _, _, err := mixture("logAverageFactor", xIsMin(min, a, b), xAboveMin(min, a, b))
	return logZ, err
}

// LogEvidenceRatio returns the evidence contribution of the factor. An
// observed min contributes its log average factor.
func (o MinOp) LogEvidenceRatio(min, a, b, toMin distribution.Gaussian) (float64, error) {
	logZ, err := o.LogAverageFactor(min, a, b)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logEvidenceRatio")
	}
	if min.IsPointMass() {
		return logZ, nil
	}
	return logZ - toMin.GetLogAverageOf(min), nil
}
