package distribution

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"

	"github.com/samuelfneumann/factor/special"
)

// TruncatedGaussian is a Gaussian restricted to [LowerBound, UpperBound].
type TruncatedGaussian struct {
	Gaussian
	LowerBound float64
	UpperBound float64
}

// NewTruncatedGaussian returns a Gaussian with the given mean and variance
// truncated to [lower, upper].
func NewTruncatedGaussian(mean, variance, lower, upper float64) TruncatedGaussian {
	return TruncatedGaussian{
		Gaussian:   NewGaussian(mean, variance),
		LowerBound: lower,
		UpperBound: upper,
	}
}

func (t TruncatedGaussian) IsPointMass() bool {
	return t.Gaussian.IsPointMass() || t.LowerBound == t.UpperBound
}

func (t TruncatedGaussian) Point() float64 {
	if t.LowerBound == t.UpperBound {
		return t.LowerBound
	}
	return t.Gaussian.Point()
}

func (t TruncatedGaussian) IsUniform() bool {
	return t.Gaussian.IsUniform() && math.IsInf(t.LowerBound, -1) &&
		math.IsInf(t.UpperBound, 1)
}

// ProductGaussian multiplies the underlying Gaussian by g, keeping the
// bounds.
func (t TruncatedGaussian) ProductGaussian(g Gaussian) TruncatedGaussian {
	t.Gaussian = t.Gaussian.Product(g)
	return t
}

// GetMeanAndVariance returns the moments of the truncated density.
func (t TruncatedGaussian) GetMeanAndVariance() (mean, variance float64) {
	if t.IsPointMass() {
		return t.Point(), 0
	}
	m, v := t.Gaussian.GetMeanAndVariance()
	s := math.Sqrt(v)
	alpha := (t.LowerBound - m) / s
	beta := (t.UpperBound - m) / s

	var shift, scale float64
	switch {
	case math.IsInf(beta, 1):
		// One-sided lower bound: standard normal truncated to [alpha, ∞).
		lambda, delta := special.NormalTailMoments(-alpha)
		shift, scale = lambda, 1-delta
	case math.IsInf(alpha, -1):
		lambda, delta := special.NormalTailMoments(beta)
		shift, scale = -lambda, 1-delta
	case alpha > 0:
		// Both bounds in the upper tail; reflect into the lower tail.
		sh, sc := twoSidedMoments(-beta, -alpha)
		shift, scale = -sh, sc
	default:
		shift, scale = twoSidedMoments(alpha, beta)
	}
	return m + s*shift, v * scale
}

// twoSidedMoments returns the mean and variance of a standard normal
// truncated to [alpha, beta] with alpha <= 0.
func twoSidedMoments(alpha, beta float64) (mean, variance float64) {
	var ratio, weightedDiff float64
	if beta < 0 {
		// Work relative to φ(beta) to avoid underflow in the tail.
		r := math.Exp((beta*beta - alpha*alpha) / 2)
		d := special.NormalCdfRatio(beta) - r*special.NormalCdfRatio(alpha)
		ratio = (r - 1) / d
		weightedDiff = (alpha*r - beta) / d
	} else {
		z := special.NormalCdf(beta) - special.NormalCdf(alpha)
		pa, pb := special.NormalPdf(alpha), special.NormalPdf(beta)
		ratio = (pa - pb) / z
		weightedDiff = (alpha*pa - beta*pb) / z
	}
	return ratio, 1 + weightedDiff - ratio*ratio
}

// GetLogProb returns the log density at x.
func (t TruncatedGaussian) GetLogProb(x float64) float64 {
	if x < t.LowerBound || x > t.UpperBound {
		return math.Inf(-1)
	}
	if t.IsPointMass() {
		if x == t.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	return t.Gaussian.GetLogProb(x) - t.logMass()
}

// logMass returns the log of the Gaussian mass inside the bounds.
func (t TruncatedGaussian) logMass() float64 {
	m, v := t.Gaussian.GetMeanAndVariance()
	s := math.Sqrt(v)
	alpha := (t.LowerBound - m) / s
	beta := (t.UpperBound - m) / s
	if alpha > 0 {
		alpha, beta = -beta, -alpha
	}
	return special.LogDifferenceOfExp(special.NormalCdfLn(beta),
		special.NormalCdfLn(alpha))
}

// ToGaussian returns the moment-matched Gaussian.
func (t TruncatedGaussian) ToGaussian() Gaussian {
	return NewGaussian(t.GetMeanAndVariance())
}

func (t TruncatedGaussian) String() string {
	return fmt.Sprintf("TruncatedGaussian(%v, [%g, %g])", t.Gaussian,
		t.LowerBound, t.UpperBound)
}

// TruncatedGamma is a Gamma restricted to [LowerBound, UpperBound].
type TruncatedGamma struct {
	Gamma
	LowerBound float64
	UpperBound float64
}

func NewTruncatedGamma(shape, rate, lower, upper float64) TruncatedGamma {
	return TruncatedGamma{
		Gamma:      Gamma{Shape: shape, Rate: rate},
		LowerBound: lower,
		UpperBound: upper,
	}
}

func (t TruncatedGamma) IsPointMass() bool {
	return t.Gamma.IsPointMass() || t.LowerBound == t.UpperBound
}

func (t TruncatedGamma) Point() float64 {
	if t.LowerBound == t.UpperBound {
		return t.LowerBound
	}
	return t.Gamma.Point()
}

func (t TruncatedGamma) IsUniform() bool {
	return t.Gamma.IsUniform() && t.LowerBound == 0 && math.IsInf(t.UpperBound, 1)
}

// mass returns the Gamma(shape, rate) probability of the bounds.
func (t TruncatedGamma) mass(shape float64) float64 {
	lo := t.Rate * t.LowerBound
	hi := t.Rate * t.UpperBound
	if lo > shape {
		// Upper tail: difference of complements is more accurate.
		return mathext.GammaIncRegComp(shape, lo) - upperComp(shape, hi)
	}
	return lowerReg(shape, hi) - mathext.GammaIncReg(shape, lo)
}

func upperComp(shape, x float64) float64 {
	if math.IsInf(x, 1) {
		return 0
	}
	return mathext.GammaIncRegComp(shape, x)
}

func lowerReg(shape, x float64) float64 {
	if math.IsInf(x, 1) {
		return 1
	}
	return mathext.GammaIncReg(shape, x)
}

// GetMeanPower returns E[x^p] for p in {1, 2}, the moments needed for
// projection.
func (t TruncatedGamma) GetMeanPower(p int) float64 {
	if t.IsPointMass() {
		return math.Pow(t.Point(), float64(p))
	}
	z := t.mass(t.Shape)
	m := t.mass(t.Shape + float64(p))
	return math.Exp(special.GammaLnRatio(t.Shape, float64(p))-
		float64(p)*math.Log(t.Rate)) * m / z
}

func (t TruncatedGamma) GetMean() float64 { return t.GetMeanPower(1) }

func (t TruncatedGamma) GetVariance() float64 {
	if t.IsPointMass() {
		return 0
	}
	m := t.GetMeanPower(1)
	return t.GetMeanPower(2) - m*m
}

func (t TruncatedGamma) GetLogProb(x float64) float64 {
	if x < t.LowerBound || x > t.UpperBound {
		return math.Inf(-1)
	}
	if t.IsPointMass() {
		if x == t.Point() {
			return 0
		}
		return math.Inf(-1)
	}
	return t.Gamma.GetLogProb(x) - math.Log(t.mass(t.Shape))
}

// ToGamma returns the moment-matched Gamma.
func (t TruncatedGamma) ToGamma() Gamma {
	if t.IsPointMass() {
		return GammaPointMass(t.Point())
	}
	return GammaFromMeanAndVariance(t.GetMean(), t.GetVariance())
}

func (t TruncatedGamma) String() string {
	return fmt.Sprintf("TruncatedGamma(%v, [%g, %g])", t.Gamma, t.LowerBound,
		t.UpperBound)
}
