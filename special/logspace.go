package special

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// logisticCutoff is the argument below which log σ(x) is x to double
// precision.
const logisticCutoff = -36

// Logistic returns 1/(1+exp(-x)).
func Logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// LogisticLn returns log(1/(1+exp(-x))).
func LogisticLn(x float64) float64 {
	if x < logisticCutoff {
		return x
	}
	return -math.Log1p(math.Exp(-x))
}

// Logit returns log(p/(1-p)).
func Logit(p float64) float64 {
	return math.Log(p) - math.Log1p(-p)
}

// Log1MinusExp returns log(1 - exp(x)) for x <= 0.
func Log1MinusExp(x float64) float64 {
	if x > -math.Ln2 {
		return math.Log(-math.Expm1(x))
	}
	return math.Log1p(-math.Exp(x))
}

// LogDifferenceOfExp returns log(exp(a) - exp(b)) for a >= b.
func LogDifferenceOfExp(a, b float64) float64 {
	if math.IsInf(b, -1) {
		return a
	}
	if a == b {
		return math.Inf(-1)
	}
	return a + Log1MinusExp(b-a)
}

// LogSumExp returns log(Σ exp(v)). An empty argument list gives -Inf.
func LogSumExp(v ...float64) float64 {
	if len(v) == 0 || floats.Max(v) == math.Inf(-1) {
		return math.Inf(-1)
	}
	return floats.LogSumExp(v)
}
