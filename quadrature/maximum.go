package quadrature

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

const (
	gradientThreshold = 1e-10
	polishIterations  = 50
	maxHalvings       = 40
	maxExpansions     = 100

	// logEpsilon is log(2⁻⁵²).
	logEpsilon = -36.04365338911715
)

// FindMaximum returns a local maximiser of f starting from x0. f must be
// finite at x0 and smooth near the maximum.
func FindMaximum(f func(float64) float64, x0 float64) (float64, error) {
	f0 := f(x0)
	if math.IsNaN(f0) || math.IsInf(f0, 0) {
		return math.NaN(), errors.Errorf("findMaximum: f(%v) = %v", x0, f0)
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return -f(x[0])
		},
		Grad: func(grad, x []float64) {
			grad[0] = -fd.Derivative(f, x[0], &fd.Settings{
				Formula: fd.Central,
			})
		},
	}
	settings := &optimize.Settings{GradientThreshold: gradientThreshold}

	x := x0
	result, err := optimize.Minimize(problem, []float64{x0}, settings,
		&optimize.BFGS{})
	if result != nil && len(result.X) == 1 {
		if fx := f(result.X[0]); !math.IsNaN(fx) && fx >= f0 {
			x = result.X[0]
		}
	} else if err != nil {
		return math.NaN(), errors.Wrap(err, "findMaximum")
	}

	// BFGS may stop early on a line search failure near the optimum, so
	// finish with damped Newton steps.
	return polish(f, x), nil
}

// polish takes damped Newton steps on f from x, never decreasing f.
func polish(f func(float64) float64, x float64) float64 {
	fx := f(x)
	for i := 0; i < polishIterations; i++ {
		g := fd.Derivative(f, x, &fd.Settings{Formula: fd.Central})
		h := fd.Derivative(f, x, &fd.Settings{Formula: fd.Central2nd})
		if !(h < 0) || g == 0 {
			break
		}

		step := -g / h
		accepted := false
		for j := 0; j < maxHalvings; j++ {
			if fn := f(x + step); fn >= fx {
				x, fx = x+step, fn
				accepted = true
				break
			}
			step /= 2
		}
		if !accepted || math.Abs(step) < 1e-12*(1+math.Abs(x)) {
			break
		}
	}
	return x
}

// GetIntegrationBounds returns an interval around mode outside of which
// exp(logf) is below machine epsilon relative to its value at mode. scale
// is the initial step, usually the posterior standard deviation.
func GetIntegrationBounds(logf func(float64) float64, mode,
	scale float64) (lo, hi float64) {
	if !(scale > 0) || math.IsInf(scale, 1) {
		scale = 1
	}
	threshold := logf(mode) + logEpsilon

	lo = expand(logf, mode, -scale, threshold)
	hi = expand(logf, mode, scale, threshold)
	return lo, hi
}

func expand(logf func(float64) float64, mode, step,
	threshold float64) float64 {
	x := mode + step
	for i := 0; i < maxExpansions; i++ {
		if !(logf(x) > threshold) {
			return x
		}
		step *= 2
		x = mode + step
	}
	return x
}
