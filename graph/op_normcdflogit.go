package graph

import (
	"fmt"
	"hash"
	"math"

	"github.com/chewxy/hm"
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/factor/special"
)

// normalCdfLogitOp computes logit(Φ(x)) element-wise.
type normalCdfLogitOp struct{}

func (n *normalCdfLogitOp) Arity() int { return 1 }

func (n *normalCdfLogitOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (n *normalCdfLogitOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := checkArity(n, len(inputs)); err != nil {
		return nil, errors.Wrap(err, "inferShape")
	}
	s, ok := inputs[0].(tensor.Shape)
	if !ok {
		return nil, errors.Errorf("inferShape: expected a shape, got %T", inputs[0])
	}
	return s.Clone(), nil
}

func (n *normalCdfLogitOp) ReturnsPtr() bool { return false }

func (n *normalCdfLogitOp) CallsExtern() bool { return false }

func (n *normalCdfLogitOp) OverwritesInput() int { return -1 }

func (n *normalCdfLogitOp) String() string { return "NormalCdfLogit" }

func (n *normalCdfLogitOp) WriteHash(h hash.Hash) { fmt.Fprint(h, n.String()) }

func (n *normalCdfLogitOp) Hashcode() uint32 { return simpleHash(n) }

func (n *normalCdfLogitOp) Do(values ...G.Value) (G.Value, error) {
	if err := checkArity(n, len(values)); err != nil {
		return nil, errors.Wrap(err, "do")
	}
	x, err := tensorInput(values, 0)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}

	ret := tensor.New(tensor.WithShape(x.Shape().Clone()...), tensor.Of(x.Dtype()))
	switch data := x.Data().(type) {
	case []float64:
		out := ret.Data().([]float64)
		for i, v := range data {
			out[i] = special.NormalCdfLogit(v)
		}
	case []float32:
		out := ret.Data().([]float32)
		for i, v := range data {
			out[i] = float32(special.NormalCdfLogit(float64(v)))
		}
	default:
		return nil, errors.Errorf("do: dtype %v not supported", x.Dtype())
	}
	return ret, nil
}

func (n *normalCdfLogitOp) DiffWRT(inputs int) []bool {
	if inputs != 1 {
		panic(fmt.Sprintf("normalCdfLogit has 1 input, got %d", inputs))
	}
	return []bool{true}
}

func (n *normalCdfLogitOp) SymDiff(inputs G.Nodes, output, grad *G.Node) (G.Nodes, error) {
	if err := checkArity(n, len(inputs)); err != nil {
		return nil, errors.Wrap(err, "symDiff")
	}
	diff, err := G.ApplyOp(&normalCdfLogitDiffOp{}, inputs[0], grad)
	if err != nil {
		return nil, errors.Wrap(err, "symDiff")
	}
	return G.Nodes{diff}, nil
}

// normalCdfLogitDerivative returns φ(x) / (Φ(x)·Φ(-x)).
func normalCdfLogitDerivative(x float64) float64 {
	return math.Exp(special.NormalPdfLn(x) - special.NormalCdfLn(x) - special.NormalCdfLn(-x))
}

// normalCdfLogitDiffOp multiplies the upstream gradient by the
// derivative of logit(Φ(x)).
type normalCdfLogitDiffOp struct{}

func (n *normalCdfLogitDiffOp) Arity() int { return 2 }

func (n *normalCdfLogitDiffOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a, a)
}

func (n *normalCdfLogitDiffOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := checkArity(n, len(inputs)); err != nil {
		return nil, errors.Wrap(err, "inferShape")
	}
	s, ok := inputs[0].(tensor.Shape)
	if !ok {
		return nil, errors.Errorf("inferShape: expected a shape, got %T", inputs[0])
	}
	return s.Clone(), nil
}

func (n *normalCdfLogitDiffOp) ReturnsPtr() bool { return false }

func (n *normalCdfLogitDiffOp) CallsExtern() bool { return false }

func (n *normalCdfLogitDiffOp) OverwritesInput() int { return -1 }

func (n *normalCdfLogitDiffOp) String() string { return "NormalCdfLogitDiff" }

func (n *normalCdfLogitDiffOp) WriteHash(h hash.Hash) { fmt.Fprint(h, n.String()) }

func (n *normalCdfLogitDiffOp) Hashcode() uint32 { return simpleHash(n) }

func (n *normalCdfLogitDiffOp) Do(values ...G.Value) (G.Value, error) {
	if err := checkArity(n, len(values)); err != nil {
		return nil, errors.Wrap(err, "do")
	}
	x, err := tensorInput(values, 0)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	grad, err := tensorInput(values, 1)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	if !x.Shape().Eq(grad.Shape()) {
		return nil, errors.Errorf("do: input has shape %v but gradient has "+
			"shape %v", x.Shape(), grad.Shape())
	}

	ret := tensor.New(tensor.WithShape(x.Shape().Clone()...), tensor.Of(x.Dtype()))
	switch data := x.Data().(type) {
	case []float64:
		g := grad.Data().([]float64)
		out := ret.Data().([]float64)
		for i, v := range data {
			out[i] = g[i] * normalCdfLogitDerivative(v)
		}
	case []float32:
		g := grad.Data().([]float32)
		out := ret.Data().([]float32)
		for i, v := range data {
			logd := special.NormalPdfLn(float64(v)) - special.NormalCdfLn(float64(v)) -
				special.NormalCdfLn(-float64(v))
			out[i] = g[i] * math32.Exp(float32(logd))
		}
	default:
		return nil, errors.Errorf("do: dtype %v not supported", x.Dtype())
	}
	return ret, nil
}
