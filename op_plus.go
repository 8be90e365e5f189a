package factor

import (
	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
)

// DoublePlusOp computes messages for sum = a + b with Gaussian arguments.
// The factor is linear, so EP messages are exact. Methods with a Point
// suffix take the named argument as a known constant.
type DoublePlusOp struct{}

// SumAverageConditional returns the distribution of a + b.
func (DoublePlusOp) SumAverageConditional(a, b distribution.Gaussian) distribution.Gaussian {
	switch {
	case a.IsPointMass() && b.IsPointMass():
		return distribution.GaussianPointMass(a.Point() + b.Point())
	case a.IsUniform() || b.IsUniform():
		return distribution.GaussianUniform()
	}
	return distribution.NewGaussian(a.GetMean()+b.GetMean(), a.GetVariance()+b.GetVariance())
}

// SumAverageConditionalPoint returns the distribution of a + b for a
// constant b.
func (o DoublePlusOp) SumAverageConditionalPoint(a distribution.Gaussian, b float64) distribution.Gaussian {
	return o.SumAverageConditional(a, distribution.GaussianPointMass(b))
}

// AAverageConditional returns the message to a, the distribution of
// sum - b.
func (DoublePlusOp) AAverageConditional(sum, b distribution.Gaussian) distribution.Gaussian {
	switch {
	case sum.IsPointMass() && b.IsPointMass():
		return distribution.GaussianPointMass(sum.Point() - b.Point())
	case sum.IsUniform() || b.IsUniform():
		return distribution.GaussianUniform()
	}
	return distribution.NewGaussian(sum.GetMean()-b.GetMean(), sum.GetVariance()+b.GetVariance())
}

// AAverageConditionalPoint returns the message to a for an observed sum.
func (o DoublePlusOp) AAverageConditionalPoint(sum float64, b distribution.Gaussian) distribution.Gaussian {
	return o.AAverageConditional(distribution.GaussianPointMass(sum), b)
}

// BAverageConditional returns the message to b.
func (o DoublePlusOp) BAverageConditional(sum, a distribution.Gaussian) distribution.Gaussian {
	return o.AAverageConditional(sum, a)
}

// BAverageConditionalPoint returns the message to b for an observed sum.
func (o DoublePlusOp) BAverageConditionalPoint(sum float64, a distribution.Gaussian) distribution.Gaussian {
	return o.AAverageConditionalPoint(sum, a)
}

// SumAverageLogarithm returns the VMP message to sum.
func (o DoublePlusOp) SumAverageLogarithm(a, b distribution.Gaussian) distribution.Gaussian {
	return o.SumAverageConditional(a, b)
}

// AAverageLogarithm returns the VMP message to a: sum shifted by E[b]
// with the precision of sum. An observed sum with a random b has no VMP
// update.
func (DoublePlusOp) AAverageLogarithm(sum, b distribution.Gaussian) (distribution.Gaussian, error) {
	switch {
	case sum.IsUniform():
		return distribution.GaussianUniform(), nil
	case sum.IsPointMass():
		if !b.IsPointMass() {
			return distribution.Gaussian{}, errors.Wrap(ErrNotSupported,
				"aAverageLogarithm: observed sum with a random b")
		}
		return distribution.GaussianPointMass(sum.Point() - b.Point()), nil
	}
	return distribution.Gaussian{
		MeanTimesPrecision: sum.MeanTimesPrecision - sum.Precision*b.GetMean(),
		Precision:          sum.Precision,
	}, nil
}

// BAverageLogarithm returns the VMP message to b.
func (o DoublePlusOp) BAverageLogarithm(sum, a distribution.Gaussian) (distribution.Gaussian, error) {
	msg, err := o.AAverageLogarithm(sum, a)
	return msg, errors.Wrap(err, "bAverageLogarithm")
}

// LogAverageFactor returns log ∫∫ a(x)·b(y)·sum(x + y) dx dy.
func (o DoublePlusOp) LogAverageFactor(sum, a, b distribution.Gaussian) float64 {
	return o.SumAverageConditional(a, b).GetLogAverageOf(sum)
}

// LogAverageFactorPoint returns the log density of a + b at sum.
func (o DoublePlusOp) LogAverageFactorPoint(sum float64, a, b distribution.Gaussian) float64 {
	return o.SumAverageConditional(a, b).GetLogProb(sum)
}

// LogEvidenceRatio returns the evidence contribution of a random sum.
func (o DoublePlusOp) LogEvidenceRatio(sum, a, b, toSum distribution.Gaussian) float64 {
	return o.LogAverageFactor(sum, a, b) - toSum.GetLogAverageOf(sum)
}

// LogEvidenceRatioPoint returns the evidence contribution of an observed
// sum.
func (o DoublePlusOp) LogEvidenceRatioPoint(sum float64, a, b distribution.Gaussian) float64 {
	return o.LogAverageFactorPoint(sum, a, b)
}

// AverageLogFactor is the VMP contribution of the deterministic factor.
func (DoublePlusOp) AverageLogFactor() float64 { return 0 }

