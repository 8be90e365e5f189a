package distribution

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/special"
)

// Bernoulli is a message over a boolean, stored as log-odds. ±Inf log-odds
// are point masses, zero is uniform.
type Bernoulli struct {
	LogOdds float64
}

func BernoulliFromLogOdds(logOdds float64) Bernoulli {
	return Bernoulli{LogOdds: logOdds}
}

func BernoulliFromProbTrue(p float64) Bernoulli {
	return Bernoulli{LogOdds: special.Logit(p)}
}

func BernoulliPointMass(value bool) Bernoulli {
	if value {
		return Bernoulli{LogOdds: math.Inf(1)}
	}
	return Bernoulli{LogOdds: math.Inf(-1)}
}

func BernoulliUniform() Bernoulli { return Bernoulli{} }

func (b Bernoulli) IsPointMass() bool { return math.IsInf(b.LogOdds, 0) }

func (b Bernoulli) Point() bool { return b.LogOdds > 0 }

func (b Bernoulli) IsUniform() bool { return b.LogOdds == 0 }

// IsProper reports whether the log-odds is a number. Every Bernoulli
// message normalizes.
func (b Bernoulli) IsProper() bool { return !math.IsNaN(b.LogOdds) }

func (b Bernoulli) GetProbTrue() float64 { return special.Logistic(b.LogOdds) }

// GetLogProbTrue returns log P(true).
func (b Bernoulli) GetLogProbTrue() float64 { return special.LogisticLn(b.LogOdds) }

// GetLogProbFalse returns log P(false).
func (b Bernoulli) GetLogProbFalse() float64 { return special.LogisticLn(-b.LogOdds) }

// Product returns the product of two messages. Opposite point masses
// conflict; the receiver is returned in that case.
func (b Bernoulli) Product(c Bernoulli) Bernoulli {
	switch {
	case b.IsPointMass():
		return b
	case c.IsPointMass():
		return c
	}
	return Bernoulli{LogOdds: b.LogOdds + c.LogOdds}
}

// Ratio returns b/c. Bernoulli messages are always proper.
func (b Bernoulli) Ratio(c Bernoulli, forceProper bool) (Bernoulli, error) {
	if c.IsPointMass() {
		if b.IsPointMass() && b.Point() == c.Point() {
			return BernoulliUniform(), nil
		}
		return Bernoulli{}, errors.Wrapf(ErrDivideByZero, "ratio: %v / %v", b, c)
	}
	if b.IsPointMass() {
		return b, nil
	}
	return Bernoulli{LogOdds: b.LogOdds - c.LogOdds}, nil
}

func (b Bernoulli) GetLogProb(value bool) float64 {
	if value {
		return b.GetLogProbTrue()
	}
	return b.GetLogProbFalse()
}

// GetLogAverageOf returns log(P_b(true)P_c(true) + P_b(false)P_c(false)).
func (b Bernoulli) GetLogAverageOf(c Bernoulli) float64 {
	return special.LogSumExp(
		b.GetLogProbTrue()+c.GetLogProbTrue(),
		b.GetLogProbFalse()+c.GetLogProbFalse(),
	)
}

func (b Bernoulli) ToUniform() Bernoulli { return BernoulliUniform() }

func (b Bernoulli) String() string {
	if b.IsPointMass() {
		return fmt.Sprintf("Bernoulli.PointMass(%v)", b.Point())
	}
	return fmt.Sprintf("Bernoulli(%g)", b.GetProbTrue())
}

// Or returns the log-odds of a ∨ b for independent a and b given as
// log-odds.
func Or(a, b float64) float64 {
	logQ := special.LogisticLn(-a) + special.LogisticLn(-b)
	return special.Log1MinusExp(logQ) - logQ
}

// And returns the log-odds of a ∧ b for independent a and b given as
// log-odds.
func And(a, b float64) float64 {
	return -Or(-a, -b)
}
