package special

import "math"

const (
	// LogSqrt2Pi is log(√(2π)).
	LogSqrt2Pi = 0.91893853320467274178032973640562

	// cdfRatioCutoff is the argument below which NormalCdfRatio switches
	// to a continued fraction.
	cdfRatioCutoff = -8
	cdfRatioTerms  = 100

	// Regimes of NormalTailMoments.
	tailAsymptotic = -1e10
	tailSeries     = -100
)

// NormalPdf returns the standard normal density at x.
func NormalPdf(x float64) float64 {
	return math.Exp(NormalPdfLn(x))
}

// NormalPdfLn returns the log of the standard normal density at x.
func NormalPdfLn(x float64) float64 {
	return -0.5*x*x - LogSqrt2Pi
}

// NormalCdf returns Φ(x), the standard normal cumulative distribution.
func NormalCdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

// NormalCdfRatio returns Φ(x)/φ(x). For very negative x this is evaluated
// with the continued fraction of the Mills ratio, which stays accurate
// where both Φ and φ underflow.
func NormalCdfRatio(x float64) float64 {
	if math.IsInf(x, -1) {
		return 0
	}
	if x >= cdfRatioCutoff {
		return NormalCdf(x) / NormalPdf(x)
	}

	// Φ(x)/φ(x) = 1/(t + 1/(t + 2/(t + 3/(t + ...)))) with t = -x
	t := -x
	f := t
	for k := cdfRatioTerms; k >= 1; k-- {
		f = t + float64(k)/f
	}
	return 1 / f
}

// NormalCdfLn returns log Φ(x).
func NormalCdfLn(x float64) float64 {
	switch {
	case math.IsInf(x, -1):
		return math.Inf(-1)
	case x < -5:
		return math.Log(NormalCdfRatio(x)) + NormalPdfLn(x)
	case x > 5:
		return math.Log1p(-NormalCdf(-x))
	}
	return math.Log(NormalCdf(x))
}

// NormalCdfLogit returns log Φ(x) - log Φ(-x), the log-odds that a
// standard normal variable is below x.
func NormalCdfLogit(x float64) float64 {
	return NormalCdfLn(x) - NormalCdfLn(-x)
}

// NormalTailMoments returns lambda = φ(z)/Φ(z) and delta = lambda*(z +
// lambda). A standard normal truncated to [-z, ∞) has mean lambda and
// variance 1 - delta. Far in the tail lambda and -z nearly cancel, so
// asymptotic expansions in 1/z² are used there.
func NormalTailMoments(z float64) (lambda, delta float64) {
	switch {
	case z < tailAsymptotic:
		return -z, 1
	case z < tailSeries:
		y := 1 / (z * z)
		lambda = -z * (1 + y - 2*y*y + 10*y*y*y)
		delta = 1 - y + 6*y*y
		return lambda, delta
	}
	lambda = 1 / NormalCdfRatio(z)
	delta = lambda * (z + lambda)
	return lambda, delta
}
