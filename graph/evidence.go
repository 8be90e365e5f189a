package graph

import (
	"math"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GaussianLogDensity returns the element-wise log N(x; mean, variance),
// the batched log evidence of observing x under Gaussian messages.
func GaussianLogDensity(x, mean, variance *G.Node) (*G.Node, error) {
	if !x.Shape().Eq(mean.Shape()) || !x.Shape().Eq(variance.Shape()) {
		return nil, errors.Errorf("gaussianLogDensity: shapes %v, %v and %v "+
			"differ", x.Shape(), mean.Shape(), variance.Shape())
	}

	var negativeHalf, lnTwoPi *G.Node
	switch x.Dtype() {
	case tensor.Float64:
		negativeHalf = x.Graph().Constant(G.NewF64(-0.5))
		lnTwoPi = x.Graph().Constant(G.NewF64(math.Log(2 * math.Pi)))
	case tensor.Float32:
		negativeHalf = x.Graph().Constant(G.NewF32(-0.5))
		lnTwoPi = x.Graph().Constant(G.NewF32(float32(math.Log(2 * math.Pi))))
	default:
		return nil, errors.Errorf("gaussianLogDensity: dtype %v not supported",
			x.Dtype())
	}

	d, err := G.Sub(x, mean)
	if err != nil {
		return nil, errors.Wrap(err, "gaussianLogDensity")
	}
	d = G.Must(G.Square(d))
	d = G.Must(G.HadamardDiv(d, variance))
	d = G.Must(G.Add(d, G.Must(G.Log(variance))))
	d = G.Must(G.Add(d, lnTwoPi))
	return G.HadamardProd(negativeHalf, d)
}
