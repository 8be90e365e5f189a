package factor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
)

var (
	// ErrImproperMessage is returned when a message would have a negative
	// precision or rate and Config.ForceProper is false. It matches
	// distribution.ErrImproper under errors.Is.
	ErrImproperMessage = distribution.ErrImproper

	// ErrNotSupported is returned for combinations of inputs that an
	// operator has no update for.
	ErrNotSupported = errors.New("not supported")

	// ErrNumerical is returned when a computation breaks down, such as a
	// zero normalizer or a NaN parameter. A slower operator variant may
	// still succeed.
	ErrNumerical = errors.New("numerical breakdown")

	// ErrArgument is returned for inconsistent arguments such as arrays of
	// different lengths.
	ErrArgument = errors.New("invalid argument")
)

// checkFinite returns an ErrNumerical error naming op if any of the
// values is NaN.
func checkFinite(op string, values ...float64) error {
	for _, v := range values {
		if math.IsNaN(v) {
			return errors.Wrapf(ErrNumerical, "%s: NaN result", op)
		}
	}
	return nil
}

// checkLength returns an ErrArgument error if the lengths differ.
func checkLength(op string, n, m int) error {
	if n != m {
		return errors.Wrapf(ErrArgument, "%s: lengths %d and %d", op, n, m)
	}
	return nil
}
