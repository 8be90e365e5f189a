package graph

import (
	"fmt"
	"hash"
	"math"

	"github.com/chewxy/hm"
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// SampleGaussian draws n samples from each of a batch of Gaussian messages
// with the given means and variances. The result has shape (n, shape...)
// where shape is the shape of mean. A zero variance gives the mean.
func SampleGaussian(mean, variance *G.Node, seed uint64, n int) (*G.Node, error) {
	if mean.Dtype() != variance.Dtype() {
		return nil, errors.Errorf("sampleGaussian: mean has dtype %v but "+
			"variance has dtype %v", mean.Dtype(), variance.Dtype())
	}
	if !mean.Shape().Eq(variance.Shape()) {
		return nil, errors.Errorf("sampleGaussian: mean has shape %v but "+
			"variance has shape %v", mean.Shape(), variance.Shape())
	}
	op, err := newSampleOp(mean.Dtype(), seed, n, mean.Shape()...)
	if err != nil {
		return nil, errors.Wrap(err, "sampleGaussian")
	}
	return G.ApplyOp(op, mean, variance)
}

type sampleOp struct {
	dt    tensor.Dtype
	shape tensor.Shape
	seed  uint64
	n     int
	dist  distuv.Normal
}

func newSampleOp(dt tensor.Dtype, seed uint64, n int, shape ...int) (*sampleOp, error) {
	if dt != tensor.Float64 && dt != tensor.Float32 {
		return nil, errors.Errorf("dtype %v not supported", dt)
	}
	if n <= 0 {
		return nil, errors.Errorf("sample count must be positive, got %d", n)
	}
	return &sampleOp{
		dt:    dt,
		shape: tensor.Shape(shape).Clone(),
		seed:  seed,
		n:     n,
		dist:  distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)},
	}, nil
}

func (s *sampleOp) Arity() int { return 2 }

func (s *sampleOp) Type() hm.Type {
	in := G.TensorType{Dims: s.shape.Dims(), Of: s.dt}
	out := G.TensorType{Dims: s.shape.Dims() + 1, Of: s.dt}
	return hm.NewFnType(in, in, out)
}

func (s *sampleOp) InferShape(...G.DimSizer) (tensor.Shape, error) {
	return append(tensor.Shape{s.n}, s.shape...), nil
}

func (s *sampleOp) ReturnsPtr() bool { return false }

func (s *sampleOp) CallsExtern() bool { return false }

func (s *sampleOp) OverwritesInput() int { return -1 }

func (s *sampleOp) String() string {
	return fmt.Sprintf("SampleGaussian{shape=%v, n=%v, seed=%v}()", s.shape, s.n, s.seed)
}

func (s *sampleOp) WriteHash(h hash.Hash) { fmt.Fprint(h, s.String()) }

func (s *sampleOp) Hashcode() uint32 { return simpleHash(s) }

func (s *sampleOp) Do(values ...G.Value) (G.Value, error) {
	means, variances, err := s.checkInputs(values...)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}

	size := len(means)
	out := tensor.New(tensor.WithShape(append([]int{s.n}, s.shape...)...), tensor.Of(s.dt))
	for i := range means {
		if variances[i] < 0 || math.IsNaN(variances[i]) {
			return nil, errors.Errorf("do: variance %v at index %d", variances[i], i)
		}
		s.dist.Mu = means[i]
		s.dist.Sigma = math.Sqrt(variances[i])
		for j := 0; j < s.n; j++ {
			x := s.dist.Rand()
			switch data := out.Data().(type) {
			case []float64:
				data[j*size+i] = x
			case []float32:
				data[j*size+i] = float32(x)
			}
		}
	}
	return out, nil
}

// checkInputs returns the means and variances as float64 slices.
func (s *sampleOp) checkInputs(values ...G.Value) (means, variances []float64, err error) {
	if err := checkArity(s, len(values)); err != nil {
		return nil, nil, err
	}
	ts := make([][]float64, 2)
	for i := range ts {
		t, err := tensorInput(values, i)
		if err != nil {
			return nil, nil, err
		}
		if !t.Shape().Eq(s.shape) {
			return nil, nil, errors.Errorf("input %d has shape %v, want %v",
				i, t.Shape(), s.shape)
		}
		switch data := t.Data().(type) {
		case []float64:
			ts[i] = data
		case []float32:
			ts[i] = make([]float64, len(data))
			for j, v := range data {
				ts[i][j] = float64(v)
			}
		default:
			return nil, nil, errors.Errorf("input %d has dtype %v", i, t.Dtype())
		}
	}
	return ts[0], ts[1], nil
}
