// Package distribution provides the message types exchanged by factor
// operators. Every type is a small value: natural parameters plus the
// conventions needed to represent point masses and uniform messages.
//
// Point masses are encoded in-band. A Gaussian point mass has infinite
// precision and stores the point in MeanTimesPrecision, a Gamma point mass
// has infinite shape and stores the point in Rate, and so on. Uniform
// messages are the identity of Product.
package distribution

import "github.com/pkg/errors"

var (
	// ErrImproper is returned by Ratio when the quotient is not
	// normalisable and the caller did not ask for it to be forced proper.
	ErrImproper = errors.New("improper distribution")

	// ErrDivideByZero is returned by Ratio when the denominator is a point
	// mass and the numerator is not the same point mass.
	ErrDivideByZero = errors.New("division by a point mass")
)

// Message is the algebra shared by every distribution type that flows
// along an edge of a factor graph. It is satisfied by the value types in
// this package and lets operators such as Replicate and GetItems be
// written once.
type Message[T any] interface {
	// Product returns the pointwise product of the receiver and the
	// argument as a function of the variable.
	Product(T) T

	// Ratio returns the receiver divided by the argument. If forceProper
	// is true an improper quotient is replaced by the nearest proper
	// message, otherwise ErrImproper is returned.
	Ratio(T, bool) (T, error)

	// GetLogAverageOf returns log ∫ p(x) q(x) dx for normalised p and q.
	GetLogAverageOf(T) float64

	ToUniform() T
	IsUniform() bool
	IsPointMass() bool
}

// Derivatives holds the first four derivatives of a log-density at a
// point, as needed by Laplace approximations.
type Derivatives struct {
	DLogF, DDLogF, DDDLogF, D4LogF float64
}
