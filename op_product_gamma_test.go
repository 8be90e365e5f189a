package factor

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/quadrature"
)

func TestGammaProductConstant(t *testing.T) {
	op := GammaProductOp{}
	a := distribution.NewGamma(3, 2)

	product := op.ProductAverageConditional(a, 4)
	assert.InDelta(t, 4*a.GetMean(), product.GetMean(), threshold)
	assert.InDelta(t, 16*a.GetVariance(), product.GetVariance(), threshold)

	toA, err := op.AAverageConditional(distribution.NewGamma(5, 1), 4)
	assert.NoError(t, err)
	assert.Equal(t, distribution.NewGamma(5, 4), toA)

	toA, err = op.AAverageConditional(distribution.GammaPointMass(6), 3)
	assert.NoError(t, err)
	assert.True(t, toA.IsPointMass())
	assert.Equal(t, 2.0, toA.Point())

	toA, err = op.AAverageConditional(distribution.NewGamma(5, 1), 0)
	assert.NoError(t, err)
	assert.True(t, toA.IsUniform())

	_, err = op.AAverageConditional(distribution.GammaPointMass(6), 0)
	assert.True(t, errors.Is(err, ErrArgument))

	assert.True(t, op.ProductAverageConditional(a, 0).IsPointMass())
}

func TestGammaProductPower(t *testing.T) {
	op := GammaProductOp{}
	a := distribution.NewGammaPower(3, 2, 2)

	product := op.ProductAverageConditionalPower(a, 4)
	assert.InDelta(t, 4*a.GetMean(), product.GetMean(), 1e-8)

	toA, err := op.AAverageConditionalPower(product, 4)
	assert.NoError(t, err)
	// The message to a, evaluated at a, is the density of product at 4a.
	for _, x := range []float64{0.5, 1, 2} {
		want := product.GetLogProb(4*x) - product.GetLogProb(4)
		got := toA.GetLogProb(x) - toA.GetLogProb(1)
		assert.InDelta(t, want, got, 1e-10)
	}
}

func TestGammaProductEvidence(t *testing.T) {
	op := GammaProductOp{}
	a := distribution.NewGamma(3, 2)
	product := distribution.NewGamma(4, 1)
	const b = 2.5

	integrand := func(x float64) float64 {
		return math.Exp(a.GetLogProb(x) + product.GetLogProb(x*b))
	}
	want := math.Log(quadrature.Integrate(integrand, 0, 30, 400))
	assert.InDelta(t, want, op.LogAverageFactor(product, a, b), 1e-8)

	toProduct := op.ProductAverageConditional(a, b)
	assert.InDelta(t, want-toProduct.GetLogAverageOf(product),
		op.LogEvidenceRatio(product, a, b, toProduct), 1e-12)

	// The density of a·b at 3.
	want = a.GetLogProb(3/b) - math.Log(b)
	assert.InDelta(t, want, op.LogEvidenceRatioPoint(3, a, b), 1e-12)
	assert.InDelta(t, op.ProductAverageConditional(a, b).GetLogProb(3),
		op.LogEvidenceRatioPoint(3, a, b), 1e-10)
}
