package factor

import (
	"math"

	"github.com/samuelfneumann/factor/distribution"
)

// threshold is the tolerance of closed-form identities.
const threshold float64 = 1e-10

// closeTo reports whether got is within tol of want, relative to want
// when |want| > 1.
func closeTo(got, want, tol float64) bool {
	if math.IsInf(want, 0) {
		return got == want
	}
	return math.Abs(got-want) <= tol*math.Max(1, math.Abs(want))
}

// sameGaussian reports whether two Gaussians have moments within tol.
func sameGaussian(a, b distribution.Gaussian, tol float64) bool {
	if a.IsPointMass() || b.IsPointMass() {
		return a.IsPointMass() && b.IsPointMass() && closeTo(a.Point(), b.Point(), tol)
	}
	ma, va := a.GetMeanAndVariance()
	mb, vb := b.GetMeanAndVariance()
	return closeTo(ma, mb, tol) && closeTo(va, vb, tol)
}

// sameGamma reports whether two Gammas have parameters within tol.
func sameGamma(a, b distribution.Gamma, tol float64) bool {
	if a.IsPointMass() || b.IsPointMass() {
		return a.IsPointMass() && b.IsPointMass() && closeTo(a.Point(), b.Point(), tol)
	}
	return closeTo(a.Shape, b.Shape, tol) && closeTo(a.Rate, b.Rate, tol)
}
