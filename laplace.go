package factor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/diff/fd"

	"github.com/samuelfneumann/factor/distribution"
)

// LaplaceMoments returns the approximate mean and variance of a density
// whose log has derivatives d at x. The expansion is Laplace's method with
// third and fourth order corrections, so x need not be exactly the mode:
// the first derivative contributes a Newton step.
func LaplaceMoments(x float64, d distribution.Derivatives) (mean, variance float64) {
	v := -1 / d.DDLogF
	mean = x + d.DLogF*v + d.DDDLogF*v*v/2
	variance = v + d.D4LogF*v*v*v/2 + d.DDDLogF*d.DDDLogF*v*v*v*v
	return mean, variance
}

// laplaceLogIntegral returns the Laplace estimate of log ∫ exp(h) at the
// mode x, where h(x) = logf and its second derivative is ddlogf.
func laplaceLogIntegral(logf, ddlogf float64) float64 {
	return logf + 0.5*math.Log(2*math.Pi/-ddlogf)
}

// laplaceExpectation returns E[g(x)] ≈ g(m) + g''(m)·v/2 for x with mean m
// and variance v.
func laplaceExpectation(g func(float64) float64, m, v float64) float64 {
	step := 1e-4 * math.Max(math.Abs(m), 1e-8)
	dd := fd.Derivative(g, m, &fd.Settings{Formula: fd.Central2nd, Step: step})
	return g(m) + dd*v/2
}

// addDerivatives returns the derivative bundle of a sum of log-densities.
func addDerivatives(a, b distribution.Derivatives) distribution.Derivatives {
	return distribution.Derivatives{
		DLogF:   a.DLogF + b.DLogF,
		DDLogF:  a.DDLogF + b.DDLogF,
		DDDLogF: a.DDDLogF + b.DDDLogF,
		D4LogF:  a.D4LogF + b.D4LogF,
	}
}

// logDerivatives returns the derivatives of c·log(x).
func logDerivatives(c, x float64) distribution.Derivatives {
	return distribution.Derivatives{
		DLogF:   c / x,
		DDLogF:  -c / (x * x),
		DDDLogF: 2 * c / (x * x * x),
		D4LogF:  -6 * c / (x * x * x * x),
	}
}

// powerDerivatives returns the derivatives of -k·x^e.
func powerDerivatives(k, e, x float64) distribution.Derivatives {
	return distribution.Derivatives{
		DLogF:   -k * e * math.Pow(x, e-1),
		DDLogF:  -k * e * (e - 1) * math.Pow(x, e-2),
		DDDLogF: -k * e * (e - 1) * (e - 2) * math.Pow(x, e-3),
		D4LogF:  -k * e * (e - 1) * (e - 2) * (e - 3) * math.Pow(x, e-4),
	}
}

// logSumDerivatives returns the derivatives of -t·log(g(x)) given g and
// its first four derivatives at x.
func logSumDerivatives(t, g, g1, g2, g3, g4 float64) distribution.Derivatives {
	r1 := g1 / g
	r2 := g2 / g
	r3 := g3 / g
	r4 := g4 / g
	return distribution.Derivatives{
		DLogF:   -t * r1,
		DDLogF:  -t * (r2 - r1*r1),
		DDDLogF: -t * (r3 - 3*r1*r2 + 2*r1*r1*r1),
		D4LogF:  -t * (r4 - 4*r1*r3 - 3*r2*r2 + 12*r1*r1*r2 - 6*r1*r1*r1*r1),
	}
}

// solveDecreasing returns the root of a decreasing function f with
// derivative df, starting from x0. Newton steps that leave the current
// bracket are replaced by bisection.
func solveDecreasing(f, df func(float64) float64, x0 float64, cfg Config) (float64, error) {
	if math.IsNaN(f(x0)) {
		return math.NaN(), errors.Wrapf(ErrNumerical, "solveDecreasing: f(%v) is NaN", x0)
	}

	// Bracket the root.
	lo, hi := x0, x0
	step := 1.0
	for i := 0; f(lo) < 0; i++ {
		if i == maxBracketExpansions {
			return math.NaN(), errors.Wrap(ErrNumerical, "solveDecreasing: "+
				"no sign change below the starting point")
		}
		hi = lo
		lo -= step
		step *= 2
	}
	step = 1.0
	for i := 0; f(hi) > 0; i++ {
		if i == maxBracketExpansions {
			return math.NaN(), errors.Wrap(ErrNumerical, "solveDecreasing: "+
				"no sign change above the starting point")
		}
		lo = hi
		hi += step
		step *= 2
	}

	x := math.Min(math.Max(x0, lo), hi)
	for i := 0; i < cfg.MaxNewtonIterations; i++ {
		fx := f(x)
		if fx == 0 {
			return x, nil
		}
		if fx > 0 {
			lo = x
		} else {
			hi = x
		}

		next := x - fx/df(x)
		if !(next > lo && next < hi) {
			next = (lo + hi) / 2
		}
		if math.Abs(next-x) <= cfg.NewtonTolerance*(1+math.Abs(x)) {
			return next, nil
		}
		x = next
	}
	return x, nil
}

const maxBracketExpansions = 60
