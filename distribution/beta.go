package distribution

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mathext"

	"github.com/samuelfneumann/factor/special"
)

// Beta is a message over a probability with message function
// p^(TrueCount-1)·(1-p)^(FalseCount-1).
//
// A point mass at p has TrueCount = +Inf and FalseCount = p. The uniform
// message is Beta(1, 1).
type Beta struct {
	TrueCount  float64
	FalseCount float64
}

func NewBeta(trueCount, falseCount float64) Beta {
	return Beta{TrueCount: trueCount, FalseCount: falseCount}
}

func BetaPointMass(p float64) Beta {
	return Beta{TrueCount: math.Inf(1), FalseCount: p}
}

func BetaUniform() Beta { return Beta{TrueCount: 1, FalseCount: 1} }

// BetaFromMeanAndVariance returns the Beta with the given moments. The
// variance must be below mean·(1-mean).
func BetaFromMeanAndVariance(mean, variance float64) Beta {
	if variance == 0 {
		return BetaPointMass(mean)
	}
	total := mean*(1-mean)/variance - 1
	return Beta{TrueCount: mean * total, FalseCount: (1 - mean) * total}
}

// BetaFromDerivatives returns the Beta message whose log matches the first
// and second derivatives of a log-density at 0 < x < 1.
func BetaFromDerivatives(x, dlogp, ddlogp float64, forceProper bool) Beta {
	a := (dlogp - ddlogp*(1-x)) * x * x
	b := -(dlogp + ddlogp*x) * (1 - x) * (1 - x)
	if forceProper {
		a = math.Max(a, 0)
		b = math.Max(b, 0)
	}
	return Beta{TrueCount: a + 1, FalseCount: b + 1}
}

func (b Beta) IsPointMass() bool { return math.IsInf(b.TrueCount, 1) }

func (b Beta) Point() float64 { return b.FalseCount }

func (b Beta) IsUniform() bool { return b.TrueCount == 1 && b.FalseCount == 1 }

func (b Beta) IsProper() bool { return b.TrueCount > 0 && b.FalseCount > 0 }

func (b Beta) TotalCount() float64 { return b.TrueCount + b.FalseCount }

func (b Beta) GetMean() float64 {
	if b.IsPointMass() {
		return b.Point()
	}
	return b.TrueCount / b.TotalCount()
}

func (b Beta) GetVariance() float64 {
	if b.IsPointMass() {
		return 0
	}
	n := b.TotalCount()
	return b.TrueCount * b.FalseCount / (n * n * (n + 1))
}

// GetMeanLogs returns E[log p] and E[log(1-p)].
func (b Beta) GetMeanLogs() (eLogP, eLogOneMinusP float64) {
	if b.IsPointMass() {
		return math.Log(b.Point()), math.Log1p(-b.Point())
	}
	d := special.Digamma(b.TotalCount())
	return special.Digamma(b.TrueCount) - d, special.Digamma(b.FalseCount) - d
}

func (b Beta) Product(c Beta) Beta {
	switch {
	case b.IsPointMass():
		return b
	case c.IsPointMass():
		return c
	}
	return Beta{
		TrueCount:  b.TrueCount + c.TrueCount - 1,
		FalseCount: b.FalseCount + c.FalseCount - 1,
	}
}

// Ratio returns b/c. Negative counts are improper; with forceProper they
// are raised to 1, which makes the message flat in that direction.
func (b Beta) Ratio(c Beta, forceProper bool) (Beta, error) {
	if c.IsPointMass() {
		if b.IsPointMass() && b.Point() == c.Point() {
			return BetaUniform(), nil
		}
		return Beta{}, errors.Wrapf(ErrDivideByZero, "ratio: %v / %v", b, c)
	}
	if b.IsPointMass() {
		return b, nil
	}

	r := Beta{
		TrueCount:  b.TrueCount - c.TrueCount + 1,
		FalseCount: b.FalseCount - c.FalseCount + 1,
	}
	if r.TrueCount >= 0 && r.FalseCount >= 0 {
		return r, nil
	}
	if !forceProper {
		return Beta{}, errors.Wrapf(ErrImproper, "ratio: %v", r)
	}
	r.TrueCount = math.Max(r.TrueCount, 1)
	r.FalseCount = math.Max(r.FalseCount, 1)
	return r, nil
}

func (b Beta) GetLogProb(p float64) float64 {
	switch {
	case b.IsPointMass():
		if p == b.Point() {
			return 0
		}
		return math.Inf(-1)
	case p < 0 || p > 1:
		return math.Inf(-1)
	case b.IsUniform():
		return 0
	}
	return (b.TrueCount-1)*math.Log(p) + (b.FalseCount-1)*math.Log1p(-p) -
		b.GetLogNormalizer()
}

// GetLogNormalizer returns log B(TrueCount, FalseCount).
func (b Beta) GetLogNormalizer() float64 {
	if !b.IsProper() || b.IsPointMass() {
		return 0
	}
	return mathext.Lbeta(b.TrueCount, b.FalseCount)
}

func (b Beta) GetLogAverageOf(c Beta) float64 {
	switch {
	case b.IsPointMass():
		return c.GetLogProb(b.Point())
	case c.IsPointMass():
		return b.GetLogProb(c.Point())
	case b.IsUniform() || c.IsUniform():
		return 0
	}
	return b.Product(c).GetLogNormalizer() - b.GetLogNormalizer() -
		c.GetLogNormalizer()
}

func (b Beta) ToUniform() Beta { return BetaUniform() }

func (b Beta) String() string {
	switch {
	case b.IsPointMass():
		return fmt.Sprintf("Beta.PointMass(%g)", b.Point())
	case b.IsUniform():
		return "Beta.Uniform"
	}
	return fmt.Sprintf("Beta(%g, %g)", b.TrueCount, b.FalseCount)
}
