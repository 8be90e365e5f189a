// Package special implements the special functions needed to compute
// messages: the digamma family, the normal CDF family in log space and
// logistic helpers.
package special

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// shiftLimit is the argument above which the asymptotic series are used
// for the polygamma functions.
const shiftLimit = 8

// GammaLn returns log Γ(x) for x > 0.
func GammaLn(x float64) float64 {
	lg, _ := math.Lgamma(x)
	return lg
}

// Digamma returns ψ(x), the derivative of log Γ(x).
func Digamma(x float64) float64 {
	return mathext.Digamma(x)
}

// Trigamma returns ψ'(x).
func Trigamma(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return math.NaN()
	case math.IsInf(x, 1):
		return 0
	case x <= 0 && x == math.Floor(x):
		return math.Inf(1)
	case x < 0:
		// Reflection: ψ'(1-x) + ψ'(x) = π²/sin²(πx)
		s := math.Pi / math.Sin(math.Pi*x)
		return s*s - Trigamma(1-x)
	}

	var result float64
	for x < shiftLimit {
		result += 1 / (x * x)
		x++
	}

	inv := 1 / x
	inv2 := inv * inv
	series := inv2 * (1.0/30 - inv2*(1.0/42-inv2*(1.0/30-inv2*5.0/66)))
	result += inv + inv2/2 + inv*inv2*(1.0/6-series)
	return result
}

// Tetragamma returns ψ''(x).
func Tetragamma(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return math.NaN()
	case math.IsInf(x, 1):
		return 0
	case x <= 0 && x == math.Floor(x):
		return math.NaN()
	}

	var result float64
	for x < shiftLimit {
		result -= 2 / (x * x * x)
		x++
	}

	inv := 1 / x
	inv2 := inv * inv
	// -1/x² - 1/x³ - 1/(2x⁴) + 1/(6x⁶) - 1/(6x⁸) + 3/(10x¹⁰) - 5/(6x¹²)
	tail := inv2 * inv2 * inv2 * (1.0/6 - inv2*(1.0/6-inv2*(3.0/10-inv2*5.0/6)))
	result += -inv2 - inv2*inv - inv2*inv2/2 + tail
	return result
}

// GammaLnRatio returns log Γ(x+a) - log Γ(x).
func GammaLnRatio(x, a float64) float64 {
	if a == 0 {
		return 0
	}
	return GammaLn(x+a) - GammaLn(x)
}
