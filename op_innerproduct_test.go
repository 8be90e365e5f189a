package factor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/factor/distribution"
)

func TestInnerProductArrayAverageConditional(t *testing.T) {
	op := InnerProductArrayOp{}
	a := []distribution.Gaussian{
		distribution.NewGaussian(1, 1),
		distribution.NewGaussian(2, 0.5),
	}
	b := []distribution.Gaussian{
		distribution.NewGaussian(3, 2),
		distribution.GaussianPointMass(-1),
	}

	// E[ab] = 3 - 2, Var[ab] = (2·11 - 9) + (4.5·1 - 4).
	got, err := op.InnerProductAverageConditional(a, b)
	require.NoError(t, err)
	assert.True(t, sameGaussian(got, distribution.NewGaussian(1, 13.5), threshold), "got %v", got)

	vmp, err := op.InnerProductAverageLogarithm(a, b)
	require.NoError(t, err)
	assert.Equal(t, got, vmp)

	b[0] = distribution.GaussianUniform()
	got, err = op.InnerProductAverageConditional(a, b)
	require.NoError(t, err)
	assert.True(t, got.IsUniform())

	_, err = op.InnerProductAverageConditional(a, b[:1])
	assert.ErrorIs(t, err, ErrArgument)
}

func TestInnerProductArrayAverageLogarithm(t *testing.T) {
	op := InnerProductArrayOp{}
	ip := distribution.NewGaussian(3, 1)
	a := []distribution.Gaussian{distribution.NewGaussian(1, 1)}
	b := []distribution.Gaussian{distribution.NewGaussian(2, 0.5)}
	toA := []distribution.Gaussian{distribution.GaussianUniform()}

	msgs, err := op.AAverageLogarithm(ip, a, b, toA)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, msgs[0].Precision, threshold)
	assert.InDelta(t, 6, msgs[0].MeanTimesPrecision, threshold)

	// With two elements the second update sees the refreshed marginal of
	// the first.
	a = append(a, distribution.NewGaussian(-1, 2))
	b = append(b, distribution.NewGaussian(1, 1))
	toA = append(toA, distribution.GaussianUniform())
	msgs, err = op.AAverageLogarithm(ip, a, b, toA)
	require.NoError(t, err)

	first := distribution.Gaussian{
		MeanTimesPrecision: 2 * (3 - (-1)),
		Precision:          4.5,
	}
	assert.True(t, sameGaussian(msgs[0], first, threshold), "got %v", msgs[0])
	refreshed := a[0].Product(first).GetMean() * 2
	second := distribution.Gaussian{
		MeanTimesPrecision: 1 * (3 - refreshed),
		Precision:          2,
	}
	assert.True(t, sameGaussian(msgs[1], second, threshold), "got %v", msgs[1])

	toB, err := op.BAverageLogarithm(ip, a[:1], b[:1], toA[:1])
	require.NoError(t, err)
	assert.InDelta(t, 3, toB[0].MeanTimesPrecision, threshold)
	assert.InDelta(t, 2, toB[0].Precision, threshold)

	_, err = op.AAverageLogarithm(distribution.GaussianPointMass(3), a, b, toA)
	assert.ErrorIs(t, err, ErrNotSupported)
	_, err = op.AAverageLogarithm(ip, a, b, toA[:1])
	assert.ErrorIs(t, err, ErrArgument)

	msgs, err = op.AAverageLogarithm(distribution.GaussianUniform(), a, b, toA)
	require.NoError(t, err)
	assert.True(t, msgs[0].IsUniform() && msgs[1].IsUniform())
	assert.Zero(t, op.AverageLogFactor())
}

func TestInnerProduct(t *testing.T) {
	op := InnerProductOp{}

	// In one dimension the posterior is the product with the scaled
	// likelihood N(a; 3/2, 1/4).
	a := distribution.NewVectorGaussian([]float64{1}, mat.NewSymDense(1, []float64{1}))
	ip := distribution.NewGaussian(3, 1)
	post, err := op.AAverageConditional(ip, a, []float64{2})
	require.NoError(t, err)
	want := distribution.NewGaussian(1, 1).Product(distribution.NewGaussian(1.5, 0.25))
	m, v := want.GetMeanAndVariance()
	assert.InDelta(t, m, post.Mean.AtVec(0), threshold)
	assert.InDelta(t, v, post.Variance.At(0, 0), threshold)

	a = distribution.NewVectorGaussian([]float64{1, -2}, mat.NewSymDense(2, []float64{2, 0.5, 0.5, 1}))
	b := []float64{1, 3}
	toIP, err := op.InnerProductAverageConditional(a, b)
	require.NoError(t, err)
	assert.True(t, sameGaussian(toIP, distribution.NewGaussian(-5, 14), threshold), "got %v", toIP)

	vmp, err := op.InnerProductAverageLogarithm(a, b)
	require.NoError(t, err)
	assert.Equal(t, toIP, vmp)

	laf, err := op.LogAverageFactor(ip, a, b)
	require.NoError(t, err)
	assert.InDelta(t, -0.5*math.Log(2*math.Pi*15)-64.0/30, laf, threshold)

	// Conditioning on an exact observation pins bᵀa.
	post, err = op.AAverageConditional(distribution.GaussianPointMass(4), a, b)
	require.NoError(t, err)
	var proj mat.VecDense
	proj.MulVec(post.Variance, mat.NewVecDense(2, b))
	assert.InDelta(t, 4, mat.Dot(mat.NewVecDense(2, b), post.Mean), 1e-12)
	assert.InDelta(t, 0, proj.AtVec(0), 1e-12)
	assert.InDelta(t, 0, proj.AtVec(1), 1e-12)

	post, err = op.AAverageConditional(distribution.GaussianUniform(), a, b)
	require.NoError(t, err)
	assert.Equal(t, a, post)

	_, err = op.AAverageConditional(distribution.GaussianPointMass(4),
		distribution.VectorGaussianPointMass([]float64{1, 1}), b)
	assert.ErrorIs(t, err, ErrArgument)
	_, err = op.InnerProductAverageConditional(a, []float64{1})
	assert.ErrorIs(t, err, ErrArgument)
}
