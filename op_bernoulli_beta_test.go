package factor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/quadrature"
)

func TestBernoulliFromBetaConditional(t *testing.T) {
	op := BernoulliFromBetaOp{}
	assert.Equal(t, distribution.NewBeta(2, 1), op.ProbTrueConditional(true))
	assert.Equal(t, distribution.NewBeta(1, 2), op.ProbTrueConditional(false))

	msg, err := op.ProbTrueAverageConditional(distribution.BernoulliPointMass(false), distribution.NewBeta(3, 4))
	require.NoError(t, err)
	assert.Equal(t, distribution.NewBeta(1, 2), msg)

	msg, err = op.ProbTrueAverageConditional(distribution.BernoulliUniform(), distribution.NewBeta(3, 4))
	require.NoError(t, err)
	assert.True(t, msg.IsUniform())

	assert.InDelta(t, 0.4, op.SampleAverageConditional(distribution.NewBeta(2, 3)).GetProbTrue(), threshold)
	assert.True(t, op.SampleAverageConditional(distribution.BetaUniform()).IsUniform())
	assert.InDelta(t, 0.25, op.SampleConditional(0.25).GetProbTrue(), threshold)
}

func TestBernoulliFromBetaEP(t *testing.T) {
	op := BernoulliFromBetaOp{}
	prior := distribution.NewBeta(2, 3)
	sample := distribution.BernoulliFromProbTrue(0.8)

	msg, err := op.ProbTrueAverageConditional(sample, prior)
	require.NoError(t, err)

	likelihood := func(p float64) float64 {
		return math.Exp(prior.GetLogProb(p)) * (0.8*p + 0.2*(1-p))
	}
	z := quadrature.Integrate(likelihood, 0, 1, 50)
	m1 := quadrature.Integrate(func(p float64) float64 { return p * likelihood(p) }, 0, 1, 50) / z
	m2 := quadrature.Integrate(func(p float64) float64 { return p * p * likelihood(p) }, 0, 1, 50) / z

	post := prior.Product(msg)
	assert.InDelta(t, m1, post.GetMean(), 1e-12)
	assert.InDelta(t, m2-m1*m1, post.GetVariance(), 1e-12)

	assert.InDelta(t, math.Log(0.44), op.LogAverageFactor(sample, prior), 1e-12)
	assert.InDelta(t, math.Log(z), op.LogAverageFactor(sample, prior), 1e-12)
	assert.InDelta(t, 0, op.LogEvidenceRatio(sample, prior), 1e-12)
	assert.InDelta(t, math.Log(0.4), op.LogAverageFactorBool(true, prior), threshold)
	assert.InDelta(t, math.Log(0.6), op.LogEvidenceRatioBool(false, prior), threshold)
}

func TestBernoulliFromBetaPointMass(t *testing.T) {
	op := BernoulliFromBetaOp{}
	msg, err := op.ProbTrueAverageConditional(distribution.BernoulliFromProbTrue(0.8), distribution.BetaPointMass(0.3))
	require.NoError(t, err)

	// The message matches the slope of log(0.8p + 0.2(1-p)) at 0.3.
	p := 0.3
	slope := (msg.TrueCount-1)/p - (msg.FalseCount-1)/(1-p)
	assert.InDelta(t, 0.6/(0.24+0.14), slope, 1e-10)
}

func TestBernoulliFromBetaVMP(t *testing.T) {
	op := BernoulliFromBetaOp{}
	prior := distribution.NewBeta(2, 3)

	assert.InDelta(t, -0.5, op.SampleAverageLogarithm(prior).LogOdds, 1e-12)
	assert.InDelta(t, 0.3, op.SampleAverageLogarithm(distribution.BetaPointMass(0.3)).GetProbTrue(), 1e-12)

	got := op.ProbTrueAverageLogarithm(distribution.BernoulliFromProbTrue(0.25))
	assert.InDelta(t, 1.25, got.TrueCount, threshold)
	assert.InDelta(t, 1.75, got.FalseCount, threshold)

	eLogP, eLogQ := prior.GetMeanLogs()
	assert.InDelta(t, 0.25*eLogP+0.75*eLogQ,
		op.AverageLogFactor(distribution.BernoulliFromProbTrue(0.25), prior), 1e-12)
	assert.InDelta(t, eLogP, op.AverageLogFactor(distribution.BernoulliPointMass(true), prior), threshold)
	assert.Equal(t, math.Inf(-1),
		op.AverageLogFactor(distribution.BernoulliPointMass(false), distribution.BetaPointMass(1)))
}
