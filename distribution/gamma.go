package distribution

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/special"
)

// Gamma is a message over a positive variable with message function
// x^(Shape-1)·exp(-Rate·x).
//
// A point mass at p has Shape = +Inf and Rate = p. The uniform message is
// Shape = 1, Rate = 0.
type Gamma struct {
	Shape float64
	Rate  float64
}

// NewGamma returns a Gamma with the given shape and rate.
func NewGamma(shape, rate float64) Gamma {
	return Gamma{Shape: shape, Rate: rate}
}

// GammaFromShapeAndScale returns a Gamma with the given shape and scale.
func GammaFromShapeAndScale(shape, scale float64) Gamma {
	return Gamma{Shape: shape, Rate: 1 / scale}
}

func GammaPointMass(x float64) Gamma {
	return Gamma{Shape: math.Inf(1), Rate: x}
}

func GammaUniform() Gamma { return Gamma{Shape: 1} }

// GammaFromMeanAndVariance returns the Gamma with the given mean and
// variance. A zero variance gives a point mass.
func GammaFromMeanAndVariance(mean, variance float64) Gamma {
	if variance == 0 {
		return GammaPointMass(mean)
	}
	if math.IsInf(variance, 1) {
		return GammaUniform()
	}
	return Gamma{Shape: mean * mean / variance, Rate: mean / variance}
}

// GammaFromMeanAndMeanLog returns the Gamma with E[x] = mean and
// E[log x] = meanLog.
func GammaFromMeanAndMeanLog(mean, meanLog float64) Gamma {
	return GammaFromLogMeanMinusMeanLog(mean, math.Log(mean)-meanLog)
}

// GammaFromLogMeanMinusMeanLog returns the Gamma with E[x] = mean and
// log E[x] - E[log x] = delta. delta is non-negative by Jensen's
// inequality; zero gives a point mass.
func GammaFromLogMeanMinusMeanLog(mean, delta float64) Gamma {
	if !(delta > 0) {
		return GammaPointMass(mean)
	}
	shape := shapeFromLogMeanMinusMeanLog(delta)
	return Gamma{Shape: shape, Rate: shape / mean}
}

// shapeFromLogMeanMinusMeanLog solves log(s) - ψ(s) = delta for s.
func shapeFromLogMeanMinusMeanLog(delta float64) float64 {
	// Minka's approximation as a starting point
	s := (3 - delta + math.Sqrt((delta-3)*(delta-3)+24*delta)) / (12 * delta)
	if delta < 1e-8 {
		// log(s) - ψ(s) cancels catastrophically for large s
		return s
	}
	for i := 0; i < 100; i++ {
		f := math.Log(s) - special.Digamma(s) - delta
		df := 1/s - special.Trigamma(s)
		next := s - f/df
		if !(next > 0) {
			next = s / 2
		}
		if math.Abs(next-s) <= 1e-14*s {
			return next
		}
		s = next
	}
	return s
}

// GammaFromDerivatives returns the Gamma message whose log matches the
// first and second derivatives of a log-density at x > 0. If forceProper
// is true the result is clamped to Shape >= 1 and Rate >= 0.
func GammaFromDerivatives(x, dlogp, ddlogp float64, forceProper bool) Gamma {
	shape := 1 - ddlogp*x*x
	rate := (shape-1)/x - dlogp
	if forceProper {
		if shape < 1 {
			shape = 1
			rate = -dlogp
		}
		if rate < 0 {
			// x^(shape-1) alone reproduces the slope at x
			rate = 0
			shape = math.Max(1, 1+dlogp*x)
		}
	}
	return Gamma{Shape: shape, Rate: rate}
}

func (g Gamma) IsPointMass() bool { return math.IsInf(g.Shape, 1) }

// Point returns the location of a point mass.
func (g Gamma) Point() float64 { return g.Rate }

func (g Gamma) IsUniform() bool { return g.Shape == 1 && g.Rate == 0 }

func (g Gamma) IsProper() bool { return g.Shape > 0 && g.Rate > 0 }

func (g Gamma) GetMean() float64 {
	if g.IsPointMass() {
		return g.Point()
	}
	return g.Shape / g.Rate
}

func (g Gamma) GetVariance() float64 {
	if g.IsPointMass() {
		return 0
	}
	return g.Shape / (g.Rate * g.Rate)
}

func (g Gamma) GetMeanAndVariance() (mean, variance float64) {
	return g.GetMean(), g.GetVariance()
}

// GetMeanLog returns E[log x].
func (g Gamma) GetMeanLog() float64 {
	if g.IsPointMass() {
		return math.Log(g.Point())
	}
	return special.Digamma(g.Shape) - math.Log(g.Rate)
}

// GetMeanPower returns E[x^p], +Inf when it does not exist.
func (g Gamma) GetMeanPower(p float64) float64 {
	switch {
	case p == 0:
		return 1
	case g.IsPointMass():
		return math.Pow(g.Point(), p)
	case g.Shape+p <= 0:
		return math.Inf(1)
	}
	return math.Exp(special.GammaLnRatio(g.Shape, p) - p*math.Log(g.Rate))
}

// GetMode returns the mode, 0 when Shape <= 1.
func (g Gamma) GetMode() float64 {
	if g.IsPointMass() {
		return g.Point()
	}
	if g.Shape <= 1 {
		return 0
	}
	return (g.Shape - 1) / g.Rate
}

func (g Gamma) Product(b Gamma) Gamma {
	switch {
	case g.IsPointMass():
		return g
	case b.IsPointMass():
		return b
	}
	return Gamma{Shape: g.Shape + b.Shape - 1, Rate: g.Rate + b.Rate}
}

// Ratio returns g/b. A negative rate is improper. With forceProper such a
// quotient is replaced by a message with Shape >= 1 and Rate >= 0 whose
// product with b has the mean of g.
func (g Gamma) Ratio(b Gamma, forceProper bool) (Gamma, error) {
	if b.IsPointMass() {
		if g.IsPointMass() && g.Point() == b.Point() {
			return GammaUniform(), nil
		}
		return Gamma{}, errors.Wrapf(ErrDivideByZero, "ratio: %v / %v", g, b)
	}
	if g.IsPointMass() {
		return g, nil
	}

	r := Gamma{Shape: g.Shape - b.Shape + 1, Rate: g.Rate - b.Rate}
	if r.Rate >= 0 {
		return r, nil
	}
	if !forceProper {
		return Gamma{}, errors.Wrapf(ErrImproper, "ratio: rate %v", r.Rate)
	}

	m := g.GetMean()
	r.Shape = 1
	r.Rate = b.Shape/m - b.Rate
	if r.Rate < 0 {
		r.Rate = 0
		r.Shape = m*b.Rate - b.Shape + 1
	}
	return r, nil
}

func (g Gamma) Pow(n float64) Gamma {
	if g.IsPointMass() {
		return g
	}
	return Gamma{Shape: n*(g.Shape-1) + 1, Rate: n * g.Rate}
}

// GetLogProb returns the log density at x.
func (g Gamma) GetLogProb(x float64) float64 {
	switch {
	case g.IsPointMass():
		if x == g.Point() {
			return 0
		}
		return math.Inf(-1)
	case x < 0:
		return math.Inf(-1)
	case g.IsUniform():
		return 0
	}
	return (g.Shape-1)*math.Log(x) - g.Rate*x - g.GetLogNormalizer()
}

// GetLogNormalizer returns log Γ(Shape) - Shape·log(Rate).
func (g Gamma) GetLogNormalizer() float64 {
	if !g.IsProper() || g.IsPointMass() {
		return 0
	}
	return special.GammaLn(g.Shape) - g.Shape*math.Log(g.Rate)
}

func (g Gamma) GetLogAverageOf(b Gamma) float64 {
	switch {
	case g.IsPointMass():
		return b.GetLogProb(g.Point())
	case b.IsPointMass():
		return g.GetLogProb(b.Point())
	case g.IsUniform() || b.IsUniform():
		return 0
	}
	product := g.Product(b)
	if !product.IsProper() {
		// The integral diverges.
		return math.Inf(1)
	}
	return product.GetLogNormalizer() - g.GetLogNormalizer() -
		b.GetLogNormalizer()
}

func (g Gamma) ToUniform() Gamma { return GammaUniform() }

func (g Gamma) MaxDiff(b Gamma) float64 {
	if g.IsPointMass() || b.IsPointMass() {
		if g.IsPointMass() && b.IsPointMass() {
			return math.Abs(g.Point() - b.Point())
		}
		return math.Inf(1)
	}
	return math.Max(math.Abs(g.Shape-b.Shape), math.Abs(g.Rate-b.Rate))
}

func (g Gamma) String() string {
	switch {
	case g.IsPointMass():
		return fmt.Sprintf("Gamma.PointMass(%g)", g.Point())
	case g.IsUniform():
		return "Gamma.Uniform"
	}
	return fmt.Sprintf("Gamma(%g, %g)", g.Shape, g.Rate)
}
