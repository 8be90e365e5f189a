package factor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
)

// GammaProductOp computes messages for product = a·b where b is a known
// positive constant. The messages are exact, so EP and VMP agree.
type GammaProductOp struct{}

// ProductAverageConditional returns the distribution of a·b.
func (GammaProductOp) ProductAverageConditional(a distribution.Gamma, b float64) distribution.Gamma {
	switch {
	case a.IsPointMass():
		return distribution.GammaPointMass(a.Point() * b)
	case b == 0:
		return distribution.GammaPointMass(0)
	}
	return distribution.NewGamma(a.Shape, a.Rate/b)
}

// AAverageConditional returns the message to a, Ga(a·b; product) as a
// function of a.
func (GammaProductOp) AAverageConditional(product distribution.Gamma, b float64) (distribution.Gamma, error) {
	switch {
	case product.IsPointMass():
		if b == 0 {
			return distribution.Gamma{}, errors.Wrapf(ErrArgument,
				"aAverageConditional: product %v with b = 0", product.Point())
		}
		return distribution.GammaPointMass(product.Point() / b), nil
	case b == 0:
		return distribution.GammaUniform(), nil
	}
	return distribution.NewGamma(product.Shape, product.Rate*b), nil
}

// BAverageConditional returns the message to b when a is the constant.
func (o GammaProductOp) BAverageConditional(product distribution.Gamma, a float64) (distribution.Gamma, error) {
	return o.AAverageConditional(product, a)
}

// ProductAverageConditionalPower returns the distribution of a·b when a
// is a GammaPower.
func (GammaProductOp) ProductAverageConditionalPower(a distribution.GammaPower, b float64) distribution.GammaPower {
	switch {
	case a.IsPointMass():
		return distribution.GammaPowerPointMass(a.Point()*b, a.Power)
	case b == 0:
		return distribution.GammaPowerPointMass(0, a.Power)
	}
	return distribution.NewGammaPower(a.Shape, a.Rate*math.Pow(b, -1/a.Power), a.Power)
}

// AAverageConditionalPower returns the message to a GammaPower a.
func (GammaProductOp) AAverageConditionalPower(product distribution.GammaPower, b float64) (distribution.GammaPower, error) {
	p := product.Power
	switch {
	case product.IsPointMass():
		if b == 0 {
			return distribution.GammaPower{}, errors.Wrapf(ErrArgument,
				"aAverageConditionalPower: product %v with b = 0", product.Point())
		}
		return distribution.GammaPowerPointMass(product.Point()/b, p), nil
	case b == 0:
		return distribution.GammaPowerUniform(p), nil
	}
	return distribution.NewGammaPower(product.Shape, product.Rate*math.Pow(b, 1/p), p), nil
}

// ProductAverageLogarithm returns the VMP message to product.
func (o GammaProductOp) ProductAverageLogarithm(a distribution.Gamma, b float64) distribution.Gamma {
	return o.ProductAverageConditional(a, b)
}

// AAverageLogarithm returns the VMP message to a.
func (o GammaProductOp) AAverageLogarithm(product distribution.Gamma, b float64) (distribution.Gamma, error) {
	return o.AAverageConditional(product, b)
}

// LogAverageFactor returns log ∫ Ga(a; a)·Ga(a·b; product) da.
func (o GammaProductOp) LogAverageFactor(product, a distribution.Gamma, b float64) float64 {
	return o.ProductAverageConditional(a, b).GetLogAverageOf(product)
}

// LogEvidenceRatio returns the evidence contribution when product is
// random.
func (o GammaProductOp) LogEvidenceRatio(product, a distribution.Gamma, b float64, toProduct distribution.Gamma) float64 {
	return o.LogAverageFactor(product, a, b) - toProduct.GetLogAverageOf(product)
}

// LogEvidenceRatioPoint returns the log density of a·b at an observed
// product.
func (GammaProductOp) LogEvidenceRatioPoint(product float64, a distribution.Gamma, b float64) float64 {
	return a.GetLogProb(product/b) - math.Log(b)
}
