package distribution

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

const logTwoPi = 1.8378770664093454835606594728112

// Gaussian is a univariate normal message in natural parameters. The
// message function is exp(MeanTimesPrecision·x - Precision·x²/2).
//
// A point mass at p has Precision = +Inf and MeanTimesPrecision = p. The
// uniform message has both parameters zero. A negative Precision is an
// improper message.
type Gaussian struct {
	MeanTimesPrecision float64
	Precision          float64
}

// NewGaussian returns a Gaussian with the given mean and variance. A zero
// variance gives a point mass, an infinite variance the uniform message.
func NewGaussian(mean, variance float64) Gaussian {
	switch {
	case variance == 0:
		return GaussianPointMass(mean)
	case math.IsInf(variance, 1):
		return GaussianUniform()
	}
	return Gaussian{MeanTimesPrecision: mean / variance, Precision: 1 / variance}
}

// GaussianFromMeanAndPrecision returns a Gaussian with the given mean and
// precision.
func GaussianFromMeanAndPrecision(mean, precision float64) Gaussian {
	if math.IsInf(precision, 1) {
		return GaussianPointMass(mean)
	}
	return Gaussian{MeanTimesPrecision: mean * precision, Precision: precision}
}

// GaussianPointMass returns a Gaussian with all of its mass at x.
func GaussianPointMass(x float64) Gaussian {
	return Gaussian{MeanTimesPrecision: x, Precision: math.Inf(1)}
}

// GaussianUniform returns the uniform Gaussian message.
func GaussianUniform() Gaussian { return Gaussian{} }

// GaussianFromDerivatives returns the Gaussian message whose log matches
// the first and second derivatives of a log-density at x. If forceProper
// is true a positive curvature is replaced by zero.
func GaussianFromDerivatives(x, dlogp, ddlogp float64, forceProper bool) Gaussian {
	prec := -ddlogp
	if forceProper && prec < 0 {
		prec = 0
	}
	return Gaussian{MeanTimesPrecision: dlogp + prec*x, Precision: prec}
}

func (g Gaussian) IsPointMass() bool { return math.IsInf(g.Precision, 1) }

// Point returns the location of a point mass.
func (g Gaussian) Point() float64 { return g.MeanTimesPrecision }

func (g Gaussian) IsUniform() bool {
	return g.Precision == 0 && g.MeanTimesPrecision == 0
}

// IsProper reports whether the message is a normalisable density.
func (g Gaussian) IsProper() bool { return g.Precision > 0 }

// GetMean returns the mean. The uniform message has mean 0.
func (g Gaussian) GetMean() float64 {
	switch {
	case g.IsPointMass():
		return g.Point()
	case g.Precision == 0:
		return 0
	}
	return g.MeanTimesPrecision / g.Precision
}

// GetVariance returns the variance, +Inf for a uniform message.
func (g Gaussian) GetVariance() float64 {
	if g.IsPointMass() {
		return 0
	}
	return 1 / g.Precision
}

func (g Gaussian) GetMeanAndVariance() (mean, variance float64) {
	return g.GetMean(), g.GetVariance()
}

// Product returns the product of two Gaussian messages. A point mass
// absorbs the other argument. The product of two different point masses
// is zero everywhere; the receiver is returned in that case.
func (g Gaussian) Product(b Gaussian) Gaussian {
	switch {
	case g.IsPointMass():
		return g
	case b.IsPointMass():
		return b
	}
	return Gaussian{
		MeanTimesPrecision: g.MeanTimesPrecision + b.MeanTimesPrecision,
		Precision:          g.Precision + b.Precision,
	}
}

// Ratio returns g/b. If the quotient has negative precision and
// forceProper is set, the result is the flat-precision message that keeps
// the mean of the quotient times b equal to the mean of g.
func (g Gaussian) Ratio(b Gaussian, forceProper bool) (Gaussian, error) {
	if b.IsPointMass() {
		if g.IsPointMass() && g.Point() == b.Point() {
			return GaussianUniform(), nil
		}
		return Gaussian{}, errors.Wrapf(ErrDivideByZero, "ratio: %v / %v", g, b)
	}
	if g.IsPointMass() {
		return g, nil
	}

	r := Gaussian{
		MeanTimesPrecision: g.MeanTimesPrecision - b.MeanTimesPrecision,
		Precision:          g.Precision - b.Precision,
	}
	if r.Precision < 0 {
		if !forceProper {
			return Gaussian{}, errors.Wrapf(ErrImproper, "ratio: precision %v",
				r.Precision)
		}
		r.Precision = 0
		r.MeanTimesPrecision = g.GetMean()*b.Precision - b.MeanTimesPrecision
	}
	return r, nil
}

// Pow returns the message raised to the power n.
func (g Gaussian) Pow(n float64) Gaussian {
	if g.IsPointMass() {
		return g
	}
	return Gaussian{
		MeanTimesPrecision: n * g.MeanTimesPrecision,
		Precision:          n * g.Precision,
	}
}

// GetLogProb returns the log density at x. The uniform message has log
// density 0 everywhere.
func (g Gaussian) GetLogProb(x float64) float64 {
	switch {
	case g.IsPointMass():
		if x == g.Point() {
			return 0
		}
		return math.Inf(-1)
	case g.IsUniform():
		return 0
	}
	mean, variance := g.GetMeanAndVariance()
	d := x - mean
	return -0.5*(logTwoPi+math.Log(variance)) - d*d/(2*variance)
}

// GetLogNormalizer returns log ∫ exp(MeanTimesPrecision·x -
// Precision·x²/2) dx for a proper message.
func (g Gaussian) GetLogNormalizer() float64 {
	if !g.IsProper() || g.IsPointMass() {
		return 0
	}
	return 0.5*(logTwoPi-math.Log(g.Precision)) +
		g.MeanTimesPrecision*g.MeanTimesPrecision/(2*g.Precision)
}

// GetLogAverageOf returns log ∫ g(x) b(x) dx for normalised g and b.
func (g Gaussian) GetLogAverageOf(b Gaussian) float64 {
	switch {
	case g.IsPointMass():
		return b.GetLogProb(g.Point())
	case b.IsPointMass():
		return g.GetLogProb(b.Point())
	case g.IsUniform() || b.IsUniform():
		return 0
	}
	m1, v1 := g.GetMeanAndVariance()
	m2, v2 := b.GetMeanAndVariance()
	return NewGaussian(m2, v1+v2).GetLogProb(m1)
}

func (g Gaussian) ToUniform() Gaussian { return GaussianUniform() }

// MaxDiff returns the largest absolute difference between the natural
// parameters of g and b.
func (g Gaussian) MaxDiff(b Gaussian) float64 {
	if g.IsPointMass() || b.IsPointMass() {
		if g.IsPointMass() && b.IsPointMass() {
			return math.Abs(g.Point() - b.Point())
		}
		return math.Inf(1)
	}
	return math.Max(
		math.Abs(g.MeanTimesPrecision-b.MeanTimesPrecision),
		math.Abs(g.Precision-b.Precision),
	)
}

func (g Gaussian) String() string {
	switch {
	case g.IsPointMass():
		return fmt.Sprintf("Gaussian.PointMass(%g)", g.Point())
	case g.IsUniform():
		return "Gaussian.Uniform"
	}
	return fmt.Sprintf("Gaussian(%g, %g)", g.GetMean(), g.GetVariance())
}
