// Package factor implements message updates for the factors of a factor
// graph under expectation propagation (EP) and variational message passing
// (VMP).
//
// Each factor has an operator type whose methods are named after the
// argument that receives the message. XAverageConditional is the EP message
// to argument X, XAverageLogarithm the VMP message, and LogAverageFactor and
// LogEvidenceRatio the factor's contribution to the model evidence.
// Operators hold no state besides their Config, so the zero value of each
// operator is ready to use and operators may be shared between goroutines.
package factor

import (
	"log/slog"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults used for zero fields of Config.
const (
	DefaultQuadratureNodeCount  = 21
	DefaultQuadratureIterations = 2
	DefaultSlowNodeCount        = 400
	DefaultRelativeTolerance    = 1e-10
	DefaultMaxNewtonIterations  = 1000
	DefaultNewtonTolerance      = 1e-10
)

// Config holds the numerical tunables of the operators.
type Config struct {
	// QuadratureNodeCount is the number of Gauss-Hermite nodes used by
	// the fast quadrature paths.
	QuadratureNodeCount int `yaml:"quadratureNodeCount"`

	// QuadratureIterations is the number of times the quadrature is
	// recentred on the posterior it computed.
	QuadratureIterations int `yaml:"quadratureIterations"`

	// ForceProper makes operators clamp messages that would otherwise be
	// improper instead of returning ErrImproperMessage.
	ForceProper bool `yaml:"forceProper"`

	// SlowNodeCount is the number of Gauss-Legendre nodes used by the
	// slow reference paths.
	SlowNodeCount int `yaml:"slowNodeCount"`

	// RelativeTolerance is the stopping rule of adaptive quadrature.
	RelativeTolerance float64 `yaml:"relativeTolerance"`

	MaxNewtonIterations int     `yaml:"maxNewtonIterations"`
	NewtonTolerance     float64 `yaml:"newtonTolerance"`

	// Logger receives debug records when an operator takes a fallback
	// path. Nil means slog.Default().
	Logger *slog.Logger `yaml:"-"`
}

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

// LoadConfig reads a YAML configuration file. Keys that are absent keep
// their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "loadConfig")
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "loadConfig: %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "loadConfig: %s", path)
	}
	return cfg, nil
}

// Validate reports an ErrArgument error if a field holds a value that no
// operator can work with. Zero fields are valid and mean the default.
func (c Config) Validate() error {
	switch {
	case c.QuadratureNodeCount < 0:
		return errors.Wrapf(ErrArgument, "quadratureNodeCount %d",
			c.QuadratureNodeCount)
	case c.QuadratureIterations < 0:
		return errors.Wrapf(ErrArgument, "quadratureIterations %d",
			c.QuadratureIterations)
	case c.SlowNodeCount < 0:
		return errors.Wrapf(ErrArgument, "slowNodeCount %d", c.SlowNodeCount)
	case c.RelativeTolerance < 0:
		return errors.Wrapf(ErrArgument, "relativeTolerance %v",
			c.RelativeTolerance)
	case c.MaxNewtonIterations < 0:
		return errors.Wrapf(ErrArgument, "maxNewtonIterations %d",
			c.MaxNewtonIterations)
	case c.NewtonTolerance < 0:
		return errors.Wrapf(ErrArgument, "newtonTolerance %v",
			c.NewtonTolerance)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.QuadratureNodeCount == 0 {
		c.QuadratureNodeCount = DefaultQuadratureNodeCount
	}
	if c.QuadratureIterations == 0 {
		c.QuadratureIterations = DefaultQuadratureIterations
	}
	if c.SlowNodeCount == 0 {
		c.SlowNodeCount = DefaultSlowNodeCount
	}
	if c.RelativeTolerance == 0 {
		c.RelativeTolerance = DefaultRelativeTolerance
	}
	if c.MaxNewtonIterations == 0 {
		c.MaxNewtonIterations = DefaultMaxNewtonIterations
	}
	if c.NewtonTolerance == 0 {
		c.NewtonTolerance = DefaultNewtonTolerance
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
