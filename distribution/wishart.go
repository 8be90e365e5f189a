package distribution

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"

	"github.com/samuelfneumann/factor/special"
)

// Wishart is a message over positive definite matrices with message
// function |X|^(Shape-(d+1)/2)·exp(-tr(Rate·X)). Rate is the inverse
// scale matrix.
//
// A point mass stores its location in point and has Shape = +Inf.
type Wishart struct {
	Shape float64
	Rate  *mat.SymDense

	point *mat.SymDense
}

// NewWishart returns a Wishart with the given shape and rate. The rate is
// copied.
func NewWishart(shape float64, rate mat.Symmetric) Wishart {
	r := mat.NewSymDense(rate.SymmetricDim(), nil)
	r.CopySym(rate)
	return Wishart{Shape: shape, Rate: r}
}

// WishartPointMass returns a Wishart with all of its mass at x.
func WishartPointMass(x mat.Symmetric) Wishart {
	p := mat.NewSymDense(x.SymmetricDim(), nil)
	p.CopySym(x)
	return Wishart{Shape: math.Inf(1), point: p}
}

// WishartUniform returns the uniform message over d×d matrices.
func WishartUniform(d int) Wishart {
	return Wishart{
		Shape: float64(d+1) / 2,
		Rate:  mat.NewSymDense(d, nil),
	}
}

func (w Wishart) Dimension() int {
	if w.point != nil {
		return w.point.SymmetricDim()
	}
	return w.Rate.SymmetricDim()
}

func (w Wishart) IsPointMass() bool { return w.point != nil }

// Point returns a copy of the location of a point mass.
func (w Wishart) Point() *mat.SymDense {
	p := mat.NewSymDense(w.point.SymmetricDim(), nil)
	p.CopySym(w.point)
	return p
}

func (w Wishart) IsUniform() bool {
	if w.IsPointMass() {
		return false
	}
	d := w.Dimension()
	if w.Shape != float64(d+1)/2 {
		return false
	}
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			if w.Rate.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// IsProper reports whether Shape > (d-1)/2 and Rate is positive definite.
func (w Wishart) IsProper() bool {
	if w.IsPointMass() {
		return true
	}
	if w.Shape <= float64(w.Dimension()-1)/2 {
		return false
	}
	var chol mat.Cholesky
	return chol.Factorize(w.Rate)
}

// GetMean returns Shape·Rate⁻¹.
func (w Wishart) GetMean() (*mat.SymDense, error) {
	if w.IsPointMass() {
		return w.Point(), nil
	}
	var chol mat.Cholesky
	if !chol.Factorize(w.Rate) {
		return nil, errors.Wrap(ErrImproper, "getMean: rate is not positive definite")
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, errors.Wrap(err, "getMean")
	}
	mean := mat.NewSymDense(w.Dimension(), nil)
	mean.ScaleSym(w.Shape, &inv)
	return mean, nil
}

// GetMeanLogDeterminant returns E[log|X|].
func (w Wishart) GetMeanLogDeterminant() float64 {
	if w.IsPointMass() {
		return logDet(w.point)
	}
	d := w.Dimension()
	var sum float64
	for i := 0; i < d; i++ {
		sum += special.Digamma(w.Shape - float64(i)/2)
	}
	return sum - logDet(w.Rate)
}

// logDet returns log|a|, NaN when a is not positive definite.
func logDet(a mat.Symmetric) float64 {
	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return math.NaN()
	}
	return chol.LogDet()
}

func (w Wishart) Product(b Wishart) Wishart {
	switch {
	case w.IsPointMass():
		return w
	case b.IsPointMass():
		return b
	}
	d := w.Dimension()
	if b.Dimension() != d {
		panic(fmt.Sprintf("wishart: product of dimensions %d and %d", d,
			b.Dimension()))
	}
	rate := mat.NewSymDense(d, nil)
	rate.AddSym(w.Rate, b.Rate)
	return Wishart{Shape: w.Shape + b.Shape - float64(d+1)/2, Rate: rate}
}

// Ratio returns w/b. A rate that is not positive semi-definite is improper.
// With forceProper its negative eigenvalues are clipped to zero.
func (w Wishart) Ratio(b Wishart, forceProper bool) (Wishart, error) {
	if b.IsPointMass() {
		if w.IsPointMass() && mat.EqualApprox(w.point, b.point, 0) {
			return WishartUniform(w.Dimension()), nil
		}
		return Wishart{}, errors.Wrap(ErrDivideByZero, "ratio")
	}
	if w.IsPointMass() {
		return w, nil
	}
	d := w.Dimension()
	if b.Dimension() != d {
		return Wishart{}, errors.Errorf("ratio: dimensions %d and %d", d,
			b.Dimension())
	}

	negated := mat.NewSymDense(d, nil)
	negated.ScaleSym(-1, b.Rate)
	rate := mat.NewSymDense(d, nil)
	rate.AddSym(w.Rate, negated)
	r := Wishart{Shape: w.Shape - b.Shape + float64(d+1)/2, Rate: rate}

	var eig mat.EigenSym
	if !eig.Factorize(rate, true) {
		return Wishart{}, errors.New("ratio: eigendecomposition failed")
	}
	values := eig.Values(nil)
	negative := false
	for i, v := range values {
		if v < 0 {
			negative = true
			values[i] = 0
		}
	}
	if !negative {
		return r, nil
	}
	if !forceProper {
		return Wishart{}, errors.Wrap(ErrImproper, "ratio: rate is not "+
			"positive semi-definite")
	}

	var vectors mat.Dense
	eig.VectorsTo(&vectors)
	var scaled, clipped mat.Dense
	scaled.Mul(&vectors, mat.NewDiagDense(d, values))
	clipped.Mul(&scaled, vectors.T())
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			r.Rate.SetSym(i, j, clipped.At(i, j))
		}
	}
	return r, nil
}

// GetLogProb returns the log density at x.
func (w Wishart) GetLogProb(x mat.Symmetric) float64 {
	if w.IsPointMass() {
		if mat.EqualApprox(w.point, x, 0) {
			return 0
		}
		return math.Inf(-1)
	}
	if w.IsUniform() {
		return 0
	}
	d := w.Dimension()
	var trace float64
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			trace += w.Rate.At(i, j) * x.At(j, i)
		}
	}
	return (w.Shape-float64(d+1)/2)*logDet(x) - trace - w.GetLogNormalizer()
}

// GetLogNormalizer returns log Γ_d(Shape) - Shape·log|Rate|.
func (w Wishart) GetLogNormalizer() float64 {
	if w.IsPointMass() || !w.IsProper() {
		return 0
	}
	return mathext.MvLgamma(w.Shape, w.Dimension()) - w.Shape*logDet(w.Rate)
}

func (w Wishart) GetLogAverageOf(b Wishart) float64 {
	switch {
	case w.IsPointMass():
		return b.GetLogProb(w.point)
	case b.IsPointMass():
		return w.GetLogProb(b.point)
	case w.IsUniform() || b.IsUniform():
		return 0
	}
	return w.Product(b).GetLogNormalizer() - w.GetLogNormalizer() -
		b.GetLogNormalizer()
}

func (w Wishart) ToUniform() Wishart { return WishartUniform(w.Dimension()) }

func (w Wishart) String() string {
	if w.IsPointMass() {
		return fmt.Sprintf("Wishart.PointMass(%v)", mat.Formatted(w.point,
			mat.Squeeze()))
	}
	return fmt.Sprintf("Wishart(%g, %v)", w.Shape, mat.Formatted(w.Rate,
		mat.Squeeze()))
}
