package distribution

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/special"
)

// ErrPowerMismatch is returned when two GammaPower messages with different
// powers are combined.
var ErrPowerMismatch = errors.New("gammaPower: power mismatch")

const shapeSearchIterations = 200

// GammaPower is the distribution of y = x^Power where x ~ Gamma(Shape,
// Rate). Its message function is y^(Shape/Power - 1)·exp(-Rate·y^(1/Power)).
// Power 1 is a Gamma, power -1 an inverse Gamma.
//
// A point mass at y has Shape = +Inf and Rate = y. The uniform message is
// Shape = Power, Rate = 0.
type GammaPower struct {
	Shape float64
	Rate  float64
	Power float64
}

func NewGammaPower(shape, rate, power float64) GammaPower {
	return GammaPower{Shape: shape, Rate: rate, Power: power}
}

func GammaPowerPointMass(y, power float64) GammaPower {
	return GammaPower{Shape: math.Inf(1), Rate: y, Power: power}
}

func GammaPowerUniform(power float64) GammaPower {
	return GammaPower{Shape: power, Power: power}
}

// GammaPowerFromGamma returns the distribution of x^power for x ~ g.
func GammaPowerFromGamma(g Gamma, power float64) GammaPower {
	if g.IsPointMass() {
		return GammaPowerPointMass(math.Pow(g.Point(), power), power)
	}
	return GammaPower{Shape: g.Shape, Rate: g.Rate, Power: power}
}

// ToGamma returns the distribution of y^(1/Power).
func (g GammaPower) ToGamma() Gamma {
	if g.IsPointMass() {
		return GammaPointMass(math.Pow(g.Point(), 1/g.Power))
	}
	return Gamma{Shape: g.Shape, Rate: g.Rate}
}

// InverseGammaFromMeanAndVarianceOverMeanSquared returns the inverse Gamma
// (power -1) with the given mean and variance/mean². An infinite ratio
// gives shape 2, the boundary where the variance stops existing.
func InverseGammaFromMeanAndVarianceOverMeanSquared(mean,
	varianceOverMeanSquared float64) GammaPower {
	if varianceOverMeanSquared == 0 {
		return GammaPowerPointMass(mean, -1)
	}
	shape := 2 + 1/varianceOverMeanSquared
	return GammaPower{Shape: shape, Rate: mean * (shape - 1), Power: -1}
}

// GammaPowerFromMeanAndVariance returns the GammaPower with the given
// power whose mean and variance over y match.
func GammaPowerFromMeanAndVariance(mean, variance, power float64) GammaPower {
	switch {
	case variance == 0:
		return GammaPowerPointMass(mean, power)
	case math.IsInf(variance, 1):
		return GammaPowerUniform(power)
	case power == 1:
		return GammaPowerFromGamma(GammaFromMeanAndVariance(mean, variance), 1)
	case power == -1:
		return InverseGammaFromMeanAndVarianceOverMeanSquared(mean,
			variance/(mean*mean))
	}

	target := variance / (mean * mean)
	shape := shapeFromVarianceRatio(target, power)
	logRate := (special.GammaLnRatio(shape, power) - math.Log(mean)) / power
	return GammaPower{Shape: shape, Rate: math.Exp(logRate), Power: power}
}

// shapeFromVarianceRatio solves Γ(s+2p)Γ(s)/Γ(s+p)² - 1 = target for s.
// The left side decreases from +Inf to 0 as s grows.
func shapeFromVarianceRatio(target, power float64) float64 {
	ratio := func(s float64) float64 {
		return math.Exp(special.GammaLn(s+2*power)+special.GammaLn(s)-
			2*special.GammaLn(s+power)) - 1
	}

	// Search over u = s - sMin on a log scale.
	sMin := math.Max(0, -2*power)
	lo, hi := math.Log(1e-10), math.Log(1.0)
	for ratio(sMin+math.Exp(hi)) > target && hi < 700 {
		hi += 2
	}
	for i := 0; i < shapeSearchIterations; i++ {
		mid := (lo + hi) / 2
		if ratio(sMin+math.Exp(mid)) > target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return sMin + math.Exp((lo+hi)/2)
}

// GammaPowerFromDerivatives returns the GammaPower message whose log
// matches the first and second derivatives of a log-density at y > 0.
func GammaPowerFromDerivatives(y, dlogp, ddlogp, power float64,
	forceProper bool) GammaPower {
	q := 1 / power
	rate := -(ddlogp + dlogp/y) * power * power * math.Pow(y, 2-q)
	if forceProper && rate < 0 {
		rate = 0
	}
	c := y*dlogp + rate/power*math.Pow(y, q)
	return GammaPower{Shape: power * (c + 1), Rate: rate, Power: power}
}

func (g GammaPower) IsPointMass() bool { return math.IsInf(g.Shape, 1) }

func (g GammaPower) Point() float64 { return g.Rate }

func (g GammaPower) IsUniform() bool { return g.Shape == g.Power && g.Rate == 0 }

func (g GammaPower) IsProper() bool { return g.Shape > 0 && g.Rate > 0 }

// GetMean returns E[y], +Inf when it does not exist.
func (g GammaPower) GetMean() float64 {
	if g.IsPointMass() {
		return g.Point()
	}
	return g.ToGamma().GetMeanPower(g.Power)
}

// GetVariance returns Var[y], +Inf when it does not exist.
func (g GammaPower) GetVariance() float64 {
	if g.IsPointMass() {
		return 0
	}
	x := g.ToGamma()
	m2 := x.GetMeanPower(2 * g.Power)
	if math.IsInf(m2, 1) {
		return m2
	}
	m := x.GetMeanPower(g.Power)
	return m2 - m*m
}

func (g GammaPower) GetMeanAndVariance() (mean, variance float64) {
	return g.GetMean(), g.GetVariance()
}

// GetMeanLog returns E[log y].
func (g GammaPower) GetMeanLog() float64 {
	if g.IsPointMass() {
		return math.Log(g.Point())
	}
	return g.Power * g.ToGamma().GetMeanLog()
}

// GetMeanPower returns E[y^p].
func (g GammaPower) GetMeanPower(p float64) float64 {
	if g.IsPointMass() {
		return math.Pow(g.Point(), p)
	}
	return g.ToGamma().GetMeanPower(p * g.Power)
}

// Product returns the product of two messages. It panics if the powers
// differ.
func (g GammaPower) Product(b GammaPower) GammaPower {
	if g.Power != b.Power {
		panic(fmt.Sprintf("gammaPower: product of powers %v and %v", g.Power,
			b.Power))
	}
	switch {
	case g.IsPointMass():
		return g
	case b.IsPointMass():
		return b
	}
	return GammaPower{
		Shape: g.Shape + b.Shape - g.Power,
		Rate:  g.Rate + b.Rate,
		Power: g.Power,
	}
}

// Ratio returns g/b. A negative rate is improper. With forceProper such a
// quotient is replaced by the message with Shape >= Power and Rate >= 0
// whose product with b has the same mean of y^(1/Power) as g.
func (g GammaPower) Ratio(b GammaPower, forceProper bool) (GammaPower, error) {
	if g.Power != b.Power {
		return GammaPower{}, errors.Wrapf(ErrPowerMismatch, "ratio: %v / %v",
			g.Power, b.Power)
	}
	p := g.Power
	if b.IsPointMass() {
		if g.IsPointMass() && g.Point() == b.Point() {
			return GammaPowerUniform(p), nil
		}
		return GammaPower{}, errors.Wrapf(ErrDivideByZero, "ratio: %v / %v",
			g, b)
	}
	if g.IsPointMass() {
		return g, nil
	}

	r := GammaPower{Shape: g.Shape - b.Shape + p, Rate: g.Rate - b.Rate, Power: p}
	if r.Rate >= 0 {
		return r, nil
	}
	if !forceProper {
		return GammaPower{}, errors.Wrapf(ErrImproper, "ratio: rate %v", r.Rate)
	}

	m := g.Shape / g.Rate
	r.Shape = p
	r.Rate = b.Shape/m - b.Rate
	if r.Rate < 0 {
		r.Rate = 0
		r.Shape = m*b.Rate - b.Shape + p
	}
	return r, nil
}

func (g GammaPower) Pow(n float64) GammaPower {
	if g.IsPointMass() {
		return g
	}
	return GammaPower{
		Shape: n*(g.Shape-g.Power) + g.Power,
		Rate:  n * g.Rate,
		Power: g.Power,
	}
}

// GetLogProb returns the log density of y.
func (g GammaPower) GetLogProb(y float64) float64 {
	switch {
	case g.IsPointMass():
		if y == g.Point() {
			return 0
		}
		return math.Inf(-1)
	case y <= 0:
		return math.Inf(-1)
	case g.IsUniform():
		return 0
	}
	return (g.Shape/g.Power-1)*math.Log(y) - g.Rate*math.Pow(y, 1/g.Power) -
		g.GetLogNormalizer()
}

// GetLogNormalizer returns log Γ(Shape) - Shape·log(Rate) + log|Power|.
func (g GammaPower) GetLogNormalizer() float64 {
	if !g.IsProper() || g.IsPointMass() {
		return 0
	}
	return special.GammaLn(g.Shape) - g.Shape*math.Log(g.Rate) +
		math.Log(math.Abs(g.Power))
}

func (g GammaPower) GetLogAverageOf(b GammaPower) float64 {
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

func (g GammaPower) ToUniform() GammaPower { return GammaPowerUniform(g.Power) }

func (g GammaPower) MaxDiff(b GammaPower) float64 {
	if g.Power != b.Power {
		return math.Inf(1)
	}
	return g.ToGamma().MaxDiff(b.ToGamma())
}

func (g GammaPower) String() string {
	switch {
	case g.IsPointMass():
		return fmt.Sprintf("GammaPower.PointMass(%g, %g)", g.Point(), g.Power)
	case g.IsUniform():
		return fmt.Sprintf("GammaPower.Uniform(%g)", g.Power)
	}
	return fmt.Sprintf("GammaPower(%g, %g, %g)", g.Shape, g.Rate, g.Power)
}
