package factor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samuelfneumann/factor/distribution"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultQuadratureNodeCount, cfg.QuadratureNodeCount)
	assert.Equal(t, DefaultSlowNodeCount, cfg.SlowNodeCount)
	assert.Equal(t, DefaultNewtonTolerance, cfg.NewtonTolerance)
	assert.False(t, cfg.ForceProper)
	assert.NotNil(t, cfg.Logger)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "factor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("quadratureNodeCount: 41\nforceProper: true\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 41, cfg.QuadratureNodeCount)
	assert.True(t, cfg.ForceProper)
	assert.Equal(t, DefaultMaxNewtonIterations, cfg.MaxNewtonIterations)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("slowNodeCount: -3\n"), 0o600))
	_, err = LoadConfig(bad)
	assert.ErrorIs(t, err, ErrArgument)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigForceProper(t *testing.T) {
	// A Gaussian message with a wider posterior than its prior is
	// improper unless the operator is told to clamp it.
	marginal := distribution.NewGaussian(0, 4)
	prior := distribution.NewGaussian(0, 1)

	_, err := ReplicateOpDivide[distribution.Gaussian]{}.UsesAverageConditional(prior, marginal)
	assert.ErrorIs(t, err, ErrImproperMessage)

	msg, err := ReplicateOpDivide[distribution.Gaussian]{Config: Config{ForceProper: true}}.UsesAverageConditional(prior, marginal)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, msg.Precision, 0.0)
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		m    classifiable
		want Kind
	}{
		{"gaussian uniform", distribution.GaussianUniform(), Uniform},
		{"gaussian point", distribution.GaussianPointMass(1), PointMass},
		{"gaussian proper", distribution.NewGaussian(0, 1), Proper},
		{"gaussian improper", distribution.Gaussian{Precision: -1}, Improper},
		{"gamma uniform", distribution.GammaUniform(), Uniform},
		{"gamma point", distribution.GammaPointMass(2), PointMass},
		{"beta proper", distribution.NewBeta(2, 3), Proper},
		{"bernoulli point", distribution.BernoulliPointMass(true), PointMass},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, KindOf(c.m))
		})
	}
	assert.Equal(t, "PointMass", PointMass.String())
	assert.True(t, informative(distribution.NewGamma(2, 1)))
	assert.False(t, informative(distribution.GammaUniform()))
}
