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

// clampOp clamps a tensor to [min, max]. min and max must have the Go type
// of the tensor's dtype.
type clampOp struct {
	min, max     interface{}
	passGradient bool
}

func newClampOp(min, max interface{}, passGradient bool) *clampOp {
	return &clampOp{min: min, max: max, passGradient: passGradient}
}

func (c *clampOp) Arity() int { return 1 }

func (c *clampOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (c *clampOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := checkArity(c, len(inputs)); err != nil {
		return nil, errors.Wrap(err, "inferShape")
	}
	s, ok := inputs[0].(tensor.Shape)
	if !ok {
		return nil, errors.Errorf("inferShape: expected a shape, got %T", inputs[0])
	}
	return s.Clone(), nil
}

func (c *clampOp) ReturnsPtr() bool { return false }

func (c *clampOp) CallsExtern() bool { return false }

func (c *clampOp) OverwritesInput() int { return -1 }

func (c *clampOp) String() string {
	return fmt.Sprintf("Clamp{min=%v, max=%v, pass=%v}()", c.min, c.max, c.passGradient)
}

func (c *clampOp) WriteHash(h hash.Hash) { fmt.Fprint(h, c.String()) }

func (c *clampOp) Hashcode() uint32 { return simpleHash(c) }

func (c *clampOp) Do(values ...G.Value) (G.Value, error) {
	if err := checkArity(c, len(values)); err != nil {
		return nil, errors.Wrap(err, "do")
	}
	in, err := tensorInput(values, 0)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	out, err := tensor.Clamp(in, c.min, c.max)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	return out, nil
}

func (c *clampOp) DiffWRT(inputs int) []bool { return []bool{true} }

func (c *clampOp) SymDiff(inputs G.Nodes, output, grad *G.Node) (G.Nodes, error) {
	if err := checkArity(c, len(inputs)); err != nil {
		return nil, errors.Wrap(err, "symDiff")
	}
	diff, err := G.ApplyOp(&clampDiffOp{c}, inputs[0], grad)
	if err != nil {
		return nil, errors.Wrap(err, "symDiff")
	}
	return G.Nodes{diff}, nil
}

// clampDiffOp masks the upstream gradient to the positions that were not
// clamped, or passes it through unchanged.
type clampDiffOp struct {
	op *clampOp
}

func (c *clampDiffOp) Arity() int { return 2 }

func (c *clampDiffOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a, a)
}

func (c *clampDiffOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := checkArity(c, len(inputs)); err != nil {
		return nil, errors.Wrap(err, "inferShape")
	}
	s, ok := inputs[0].(tensor.Shape)
	if !ok {
		return nil, errors.Errorf("inferShape: expected a shape, got %T", inputs[0])
	}
	return s.Clone(), nil
}

func (c *clampDiffOp) ReturnsPtr() bool { return false }

func (c *clampDiffOp) CallsExtern() bool { return false }

func (c *clampDiffOp) OverwritesInput() int { return -1 }

func (c *clampDiffOp) String() string {
	return fmt.Sprintf("ClampDiff{min=%v, max=%v, pass=%v}()", c.op.min, c.op.max,
		c.op.passGradient)
}

func (c *clampDiffOp) WriteHash(h hash.Hash) { fmt.Fprint(h, c.String()) }

func (c *clampDiffOp) Hashcode() uint32 { return simpleHash(c) }

func (c *clampDiffOp) Do(values ...G.Value) (G.Value, error) {
	if err := checkArity(c, len(values)); err != nil {
		return nil, errors.Wrap(err, "do")
	}
	in, err := tensorInput(values, 0)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	grad, err := tensorInput(values, 1)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}

	if c.op.passGradient {
		return grad.Clone().(tensor.Tensor), nil
	}
	mask, err := top.ClampB(in, c.op.min, c.op.max)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	out, err := tensor.Mul(mask, grad)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	return out, nil
}
