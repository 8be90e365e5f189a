// Package graph provides batched message computations as Gorgonia
// operations, so that updates over many independent factors can be built
// into an expression graph over tensors and differentiated.
//
// Gaussian messages are held as a pair of tensors of means and variances
// and Bernoulli messages as a tensor of log-odds.
package graph

import (
	"hash/fnv"
	"math"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NormalCdfLogit computes the element-wise log-odds of the standard
// normal CDF, log Φ(x) - log Φ(-x).
func NormalCdfLogit(x *G.Node) (*G.Node, error) {
	return G.ApplyOp(&normalCdfLogitOp{}, x)
}

// IsPositiveLogOdds returns the log-odds of the messages to
// isPositive = (x > 0) for a batch of Gaussian messages to x with the
// given means and variances. Variances must be positive.
func IsPositiveLogOdds(mean, variance *G.Node) (*G.Node, error) {
	if !mean.Shape().Eq(variance.Shape()) {
		return nil, errors.Errorf("isPositiveLogOdds: mean has shape %v "+
			"but variance has shape %v", mean.Shape(), variance.Shape())
	}
	sd, err := G.Sqrt(variance)
	if err != nil {
		return nil, errors.Wrap(err, "isPositiveLogOdds")
	}
	z, err := G.HadamardDiv(mean, sd)
	if err != nil {
		return nil, errors.Wrap(err, "isPositiveLogOdds")
	}
	return NormalCdfLogit(z)
}

// ClampPrecision clamps a tensor of precisions to [0, +Inf), the batched
// version of forcing Gaussian messages to be proper. If passGradient is
// true the gradient passes through the clamp unchanged; otherwise it is
// zero where the precision was clamped.
func ClampPrecision(prec *G.Node, passGradient bool) (*G.Node, error) {
	var min, max interface{}
	switch prec.Dtype() {
	case tensor.Float64:
		min, max = 0.0, math.Inf(1)
	case tensor.Float32:
		min, max = float32(0), float32(math.Inf(1))
	default:
		return nil, errors.Errorf("clampPrecision: dtype %v not supported",
			prec.Dtype())
	}
	return G.ApplyOp(newClampOp(min, max, passGradient), prec)
}

// GatherMessages selects the messages at the given indices along axis,
// the batched version of GetItems over a tensor of natural parameters.
// The gradient with respect to params is scattered back to the gathered
// positions.
func GatherMessages(params *G.Node, axis int, indices *G.Node) (*G.Node, error) {
	if indices.Dtype() != tensor.Int {
		return nil, errors.Errorf("gatherMessages: indices must have dtype "+
			"int, got %v", indices.Dtype())
	}
	if axis < 0 || axis >= params.Dims() {
		return nil, errors.Errorf("gatherMessages: axis %d out of range for "+
			"%d dimensions", axis, params.Dims())
	}
	if indices.Dims() != params.Dims() {
		return nil, errors.Errorf("gatherMessages: indices have %d "+
			"dimensions, params have %d", indices.Dims(), params.Dims())
	}
	return G.ApplyOp(&gatherOp{axis: axis, dims: indices.Dims()}, params,
		indices)
}

// ReplicateMessages copies each message along axis repeats times, the
// batched version of sending one marginal to every use of a variable.
func ReplicateMessages(x *G.Node, axis, repeats int) (*G.Node, error) {
	if repeats <= 0 {
		return nil, errors.Errorf("replicateMessages: repeats must be "+
			"positive, got %d", repeats)
	}
	if axis < 0 || axis >= x.Dims() {
		return nil, errors.Errorf("replicateMessages: axis %d out of range "+
			"for %d dimensions", axis, x.Dims())
	}
	return G.ApplyOp(&repeatOp{axis: axis, repeats: repeats}, x)
}

// simpleHash returns the 32-bit FNV-1a hash of op.
func simpleHash(op G.Op) uint32 {
	h := fnv.New32a()
	op.WriteHash(h)
	return h.Sum32()
}

func checkArity(op G.Op, inputs int) error {
	if inputs != op.Arity() && op.Arity() >= 0 {
		return errors.Errorf("%v has an arity of %d, got %d", op,
			op.Arity(), inputs)
	}
	return nil
}

// tensorInput returns values[i] as a non-empty tensor.
func tensorInput(values []G.Value, i int) (tensor.Tensor, error) {
	t, ok := values[i].(tensor.Tensor)
	switch {
	case !ok:
		return nil, errors.Errorf("expected input %d to be a tensor, got %T",
			i, values[i])
	case t == nil:
		return nil, errors.Errorf("input %d is nil", i)
	case t.Size() == 0:
		return nil, errors.Errorf("input %d is empty", i)
	}
	return t, nil
}
