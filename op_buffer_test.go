package factor

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/factor/distribution"
)

func TestBufferLaplaceMode(t *testing.T) {
	laplace := ExpOpLaplace{}
	exp := distribution.NewGamma(3, 2)
	d := distribution.NewGaussian(0.5, 2)

	want, err := laplace.X(exp, d)
	require.NoError(t, err)

	op := BufferOp[float64]{}
	step := func(x float64) (float64, error) { return laplace.X2(exp, d, x), nil }
	converged := func(prev, next float64) bool { return math.Abs(next-prev) < 1e-12 }

	buf, err := op.Iterate(op.Init(startingPoint(d, exp)), step, converged, 0)
	require.NoError(t, err)
	assert.InDelta(t, want, buf.Value, 1e-9)
	assert.Greater(t, buf.Iteration, 1)

	// One pass per scheduling iteration keeps refining the same buffer.
	again, err := op.Update(buf, step)
	require.NoError(t, err)
	assert.Equal(t, buf.Iteration+1, again.Iteration)
	assert.InDelta(t, buf.Value, again.Value, 1e-9)

	msg, err := laplace.DAverageConditional(exp, d, buf.Value)
	require.NoError(t, err)
	assert.True(t, msg.IsProper())
}

func TestBufferLimit(t *testing.T) {
	var logs bytes.Buffer
	op := BufferOp[int]{Config: Config{
		Logger: slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})),
	}}
	inc := func(n int) (int, error) { return n + 1, nil }
	never := func(int, int) bool { return false }

	buf, err := op.Iterate(op.Init(10), inc, never, 5)
	require.NoError(t, err)
	assert.Equal(t, Buffer[int]{Value: 15, Iteration: 5}, buf)
	assert.Contains(t, logs.String(), "iteration limit reached")
}

func TestBufferError(t *testing.T) {
	op := BufferOp[distribution.Gamma]{}
	start := op.Init(distribution.NewGamma(2, 1))
	fail := func(g distribution.Gamma) (distribution.Gamma, error) {
		if g.Shape > 3 {
			return g, errors.Wrap(ErrNumerical, "step")
		}
		return distribution.NewGamma(g.Shape+1, g.Rate), nil
	}

	buf, err := op.Iterate(start, fail, func(prev, next distribution.Gamma) bool { return false }, 10)
	assert.ErrorIs(t, err, ErrNumerical)
	assert.Equal(t, 2, buf.Iteration)
	assert.Equal(t, 4.0, buf.Value.Shape)

	same, err := op.Update(buf, fail)
	assert.ErrorIs(t, err, ErrNumerical)
	assert.Equal(t, buf, same)
}
