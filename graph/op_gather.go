package graph

import (
	"fmt"
	"hash"

	"github.com/chewxy/hm"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/top"
)

// gatherOp selects out[p] = params[p with p[axis] replaced by indices[p]]
// for every position p of indices. params and indices have the same number
// of dimensions.
type gatherOp struct {
	axis int
	dims int
}

func (g *gatherOp) Arity() int { return 2 }

func (g *gatherOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	indices := G.TensorType{Dims: g.dims, Of: tensor.Int}
	return hm.NewFnType(a, indices, a)
}

func (g *gatherOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := checkArity(g, len(inputs)); err != nil {
		return nil, errors.Wrap(err, "inferShape")
	}
	s, ok := inputs[1].(tensor.Shape)
	if !ok {
		return nil, errors.Errorf("inferShape: expected a shape, got %T", inputs[1])
	}
	return s.Clone(), nil
}

func (g *gatherOp) ReturnsPtr() bool { return false }

func (g *gatherOp) CallsExtern() bool { return false }

func (g *gatherOp) OverwritesInput() int { return -1 }

func (g *gatherOp) String() string {
	return fmt.Sprintf("Gather{axis=%v, dims=%v}()", g.axis, g.dims)
}

func (g *gatherOp) WriteHash(h hash.Hash) { fmt.Fprint(h, g.String()) }

func (g *gatherOp) Hashcode() uint32 { return simpleHash(g) }

func (g *gatherOp) Do(values ...G.Value) (G.Value, error) {
	params, indices, err := g.checkInputs(values...)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	out, err := top.Gather(params, g.axis, indices)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	return out, nil
}

func (g *gatherOp) checkInputs(values ...G.Value) (params, indices tensor.Tensor, err error) {
	if err := checkArity(g, len(values)); err != nil {
		return nil, nil, err
	}
	if params, err = tensorInput(values, 0); err != nil {
		return nil, nil, err
	}
	if indices, err = tensorInput(values, 1); err != nil {
		return nil, nil, err
	}
	switch {
	case g.axis >= params.Dims():
		return nil, nil, errors.Errorf("axis %d out of range for params "+
			"with shape %v", g.axis, params.Shape())
	case indices.Dims() != params.Dims():
		return nil, nil, errors.Errorf("indices with shape %v and params "+
			"with shape %v have different dimensions", indices.Shape(),
			params.Shape())
	}
	return params, indices, nil
}

// Only params is differentiable.
func (g *gatherOp) DiffWRT(inputs int) []bool { return []bool{true, false} }

func (g *gatherOp) SymDiff(inputs G.Nodes, output, grad *G.Node) (G.Nodes, error) {
	if err := checkArity(g, len(inputs)); err != nil {
		return nil, errors.Wrap(err, "symDiff")
	}
	diff, err := G.ApplyOp(&gatherDiffOp{g}, inputs[0], inputs[1], grad)
	if err != nil {
		return nil, errors.Wrap(err, "symDiff")
	}
	return G.Nodes{diff, nil}, nil
}

// gatherDiffOp scatters the upstream gradient back onto the gathered
// positions of params. A position gathered more than once receives the
// sum of its gradients.
type gatherDiffOp struct {
	op *gatherOp
}

func (g *gatherDiffOp) Arity() int { return 3 }

func (g *gatherDiffOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	indices := G.TensorType{Dims: g.op.dims, Of: tensor.Int}
	return hm.NewFnType(a, indices, a, a)
}

func (g *gatherDiffOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := checkArity(g, len(inputs)); err != nil {
		return nil, errors.Wrap(err, "inferShape")
	}
	s, ok := inputs[0].(tensor.Shape)
	if !ok {
		return nil, errors.Errorf("inferShape: expected a shape, got %T", inputs[0])
	}
	return s.Clone(), nil
}

func (g *gatherDiffOp) ReturnsPtr() bool { return false }

func (g *gatherDiffOp) CallsExtern() bool { return false }

func (g *gatherDiffOp) OverwritesInput() int { return -1 }

func (g *gatherDiffOp) String() string {
	return fmt.Sprintf("GatherDiff{axis=%v, dims=%v}()", g.op.axis, g.op.dims)
}

func (g *gatherDiffOp) WriteHash(h hash.Hash) { fmt.Fprint(h, g.String()) }

func (g *gatherDiffOp) Hashcode() uint32 { return simpleHash(g) }

func (g *gatherDiffOp) Do(values ...G.Value) (G.Value, error) {
	if err := checkArity(g, len(values)); err != nil {
		return nil, errors.Wrap(err, "do")
	}
	params, indices, err := g.op.checkInputs(values[:2]...)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	grad, err := tensorInput(values, 2)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	if !grad.Shape().Eq(indices.Shape()) {
		return nil, errors.Errorf("do: gradient has shape %v, want %v",
			grad.Shape(), indices.Shape())
	}

	idx, ok := indices.Data().([]int)
	if !ok {
		return nil, errors.Errorf("do: indices have dtype %v", indices.Dtype())
	}
	targets, err := scatterTargets(params.Shape(), indices.Shape(), idx, g.op.axis)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}

	ret := tensor.New(tensor.WithShape(params.Shape().Clone()...), tensor.Of(params.Dtype()))
	switch gd := grad.Data().(type) {
	case []float64:
		out := ret.Data().([]float64)
		for i, t := range targets {
			out[t] += gd[i]
		}
	case []float32:
		out := ret.Data().([]float32)
		for i, t := range targets {
			out[t] += gd[i]
		}
	default:
		return nil, errors.Errorf("do: dtype %v not supported", grad.Dtype())
	}
	return ret, nil
}

// scatterTargets returns, for each position of a row-major indices tensor,
// the row-major offset into params that it gathers from.
func scatterTargets(paramsShape, indicesShape tensor.Shape, indices []int, axis int) ([]int, error) {
	dims := len(indicesShape)
	paramsStrides := rowMajorStrides(paramsShape)
	indicesStrides := rowMajorStrides(indicesShape)

	targets := make([]int, len(indices))
	for i, k := range indices {
		if k < 0 || k >= paramsShape[axis] {
			return nil, errors.Errorf("index %d out of range [0, %d)", k,
				paramsShape[axis])
		}
		offset, rem := 0, i
		for d := 0; d < dims; d++ {
			coord := rem / indicesStrides[d]
			rem %= indicesStrides[d]
			if d == axis {
				coord = k
			} else if coord >= paramsShape[d] {
				return nil, errors.Errorf("indices shape %v exceeds params "+
					"shape %v", indicesShape, paramsShape)
			}
			offset += coord * paramsStrides[d]
		}
		targets[i] = offset
	}
	return targets, nil
}

func rowMajorStrides(shape tensor.Shape) []int {
	strides := make([]int, len(shape))
	acc := 1
	for d := len(shape) - 1; d >= 0; d-- {
		strides[d] = acc
		acc *= shape[d]
	}
	return strides
}
