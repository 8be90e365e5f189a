package factor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/factor/distribution"
)

func bernoullis(probs ...float64) []distribution.Bernoulli {
	array := make([]distribution.Bernoulli, len(probs))
	for i, p := range probs {
		array[i] = distribution.BernoulliFromProbTrue(p)
	}
	return array
}

func TestAllTrueBoundaries(t *testing.T) {
	op := AllTrueOp{}

	got := op.AllTrueAverageConditional(nil)
	assert.True(t, got.IsPointMass() && got.Point(), "empty array: %v", got)

	array := append(bernoullis(0.9, 0.4), distribution.BernoulliPointMass(false))
	got = op.AllTrueAverageConditional(array)
	assert.True(t, got.IsPointMass() && !got.Point(), "false entry: %v", got)

	uniform := distribution.BernoulliUniform()
	got = op.AllTrueAverageConditional([]distribution.Bernoulli{uniform, uniform, uniform})
	assert.True(t, got.IsUniform(), "uniform entries: %v", got)

	got = op.AllTrueAverageConditional(bernoullis(0.8, 0.6))
	assert.InDelta(t, 0.48, got.GetProbTrue(), threshold)

	// Long arrays stay accurate in log-odds space.
	long := make([]distribution.Bernoulli, 2000)
	for i := range long {
		long[i] = distribution.BernoulliFromProbTrue(0.5)
	}
	long[0] = distribution.BernoulliFromProbTrue(0.6)
	got = op.AllTrueAverageConditional(long)
	assert.InDelta(t, math.Log(0.6)+1999*math.Log(0.5), got.GetLogProbTrue(), 1e-8)
}

func TestAllTrueObserved(t *testing.T) {
	op := AllTrueOp{}

	assert.True(t, math.IsInf(op.LogAverageFactorBool(true, []bool{true, true, false}), -1))
	assert.Equal(t, 0.0, op.LogAverageFactorBool(false, []bool{true, true, false}))
	assert.Equal(t, 0.0, op.LogAverageFactorBool(true, []bool{true, true}))
	assert.Equal(t, 0.0, op.LogAverageFactorBool(true, nil))

	got := op.AllTrueAverageConditionalBool([]bool{true, false})
	assert.True(t, got.IsPointMass() && !got.Point())
}

func TestAllTrueArray(t *testing.T) {
	op := AllTrueOp{}
	probs := []float64{0.8, 0.6, 0.3}
	array := bernoullis(probs...)
	const pt = 0.7

	msgs, err := op.ArrayAverageConditional(distribution.BernoulliFromProbTrue(pt), array)
	require.NoError(t, err)
	require.Len(t, msgs, len(array))

	for i := range probs {
		q := 1.0
		for j, p := range probs {
			if j != i {
				q *= p
			}
		}
		want := math.Log((pt*q + (1-pt)*(1-q)) / (1 - pt))
		assert.InDelta(t, want, msgs[i].LogOdds, 1e-12, "entry %d", i)
	}

	msgs, err = op.ArrayAverageConditionalBool(true, array)
	require.NoError(t, err)
	for i, m := range msgs {
		assert.True(t, m.IsPointMass() && m.Point(), "entry %d: %v", i, m)
	}

	// A false entry explains an observed false, so the others learn
	// nothing.
	array[1] = distribution.BernoulliPointMass(false)
	msgs, err = op.ArrayAverageConditionalBool(false, array)
	require.NoError(t, err)
	assert.True(t, msgs[0].IsUniform(), "entry 0: %v", msgs[0])
	assert.InDelta(t, math.Log(1-0.8*0.3), msgs[1].LogOdds, 1e-12)

	_, err = op.ArrayAverageConditionalBool(true, array)
	assert.ErrorIs(t, err, ErrArgument)

	msgs, err = op.ArrayAverageConditional(distribution.BernoulliUniform(), array)
	require.NoError(t, err)
	for _, m := range msgs {
		assert.True(t, m.IsUniform())
	}
}

func TestAllTrueEvidence(t *testing.T) {
	op := AllTrueOp{}
	array := bernoullis(0.8, 0.6)
	allTrue := distribution.BernoulliFromProbTrue(0.9)

	want := math.Log(0.9*0.48 + 0.1*0.52)
	assert.InDelta(t, want, op.LogAverageFactor(allTrue, array), threshold)
	assert.InDelta(t, 0, op.LogEvidenceRatio(allTrue, array), threshold)
	assert.InDelta(t, math.Log(0.48), op.LogEvidenceRatioBool(true, array), threshold)
}
