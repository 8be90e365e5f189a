package distribution

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// VectorGaussian is a multivariate normal message in moment form. A
// variance of all zeros is a point mass at Mean.
type VectorGaussian struct {
	Mean     *mat.VecDense
	Variance *mat.SymDense
}

// NewVectorGaussian returns a VectorGaussian with copies of the given mean
// and variance.
func NewVectorGaussian(mean []float64, variance mat.Symmetric) VectorGaussian {
	m := mat.NewVecDense(len(mean), nil)
	m.CopyVec(mat.NewVecDense(len(mean), mean))
	v := mat.NewSymDense(variance.SymmetricDim(), nil)
	v.CopySym(variance)
	return VectorGaussian{Mean: m, Variance: v}
}

func VectorGaussianPointMass(x []float64) VectorGaussian {
	return NewVectorGaussian(x, mat.NewSymDense(len(x), nil))
}

func (v VectorGaussian) Dimension() int { return v.Mean.Len() }

func (v VectorGaussian) IsPointMass() bool {
	d := v.Dimension()
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			if v.Variance.At(i, j) != 0 {
				return false
			}
		}
	}
	return true
}

// Add returns the distribution of the sum of independent v and b.
func (v VectorGaussian) Add(b VectorGaussian) (VectorGaussian, error) {
	if v.Dimension() != b.Dimension() {
		return VectorGaussian{}, errors.Errorf("add: dimensions %d and %d",
			v.Dimension(), b.Dimension())
	}
	mean := mat.NewVecDense(v.Dimension(), nil)
	mean.AddVec(v.Mean, b.Mean)
	variance := mat.NewSymDense(v.Dimension(), nil)
	variance.AddSym(v.Variance, b.Variance)
	return VectorGaussian{Mean: mean, Variance: variance}, nil
}

// GetLogProb returns the log density at x.
func (v VectorGaussian) GetLogProb(x []float64) float64 {
	if v.IsPointMass() {
		for i, xi := range x {
			if xi != v.Mean.AtVec(i) {
				return math.Inf(-1)
			}
		}
		return 0
	}
	normal, ok := distmv.NewNormal(v.Mean.RawVector().Data, v.Variance, nil)
	if !ok {
		return math.NaN()
	}
	return normal.LogProb(x)
}

func (v VectorGaussian) String() string {
	return fmt.Sprintf("VectorGaussian(%v, %v)",
		mat.Formatted(v.Mean.T(), mat.Squeeze()),
		mat.Formatted(v.Variance, mat.Squeeze()))
}
