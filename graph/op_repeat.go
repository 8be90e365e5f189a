package graph

import (
	"fmt"
	"hash"

	"github.com/chewxy/hm"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// repeatOp repeats each slice of a tensor along axis.
type repeatOp struct {
	axis    int
	repeats int
}

func (r *repeatOp) Arity() int { return 1 }

func (r *repeatOp) Type() hm.Type {
	a := hm.TypeVariable('a')
	return hm.NewFnType(a, a)
}

func (r *repeatOp) InferShape(inputs ...G.DimSizer) (tensor.Shape, error) {
	if err := checkArity(r, len(inputs)); err != nil {
		return nil, errors.Wrap(err, "inferShape")
	}
	s, ok := inputs[0].(tensor.Shape)
	if !ok {
		return nil, errors.Errorf("inferShape: expected a shape, got %T", inputs[0])
	}
	if r.axis >= len(s) {
		return nil, errors.Errorf("inferShape: axis %d out of range for shape %v",
			r.axis, s)
	}
	shape := s.Clone()
	shape[r.axis] *= r.repeats
	return shape, nil
}

func (r *repeatOp) ReturnsPtr() bool { return false }

func (r *repeatOp) CallsExtern() bool { return false }

func (r *repeatOp) OverwritesInput() int { return -1 }

func (r *repeatOp) String() string {
	return fmt.Sprintf("Repeat{axis=%v, repeats=%v}()", r.axis, r.repeats)
}

func (r *repeatOp) WriteHash(h hash.Hash) { fmt.Fprint(h, r.String()) }

func (r *repeatOp) Hashcode() uint32 { return simpleHash(r) }

func (r *repeatOp) Do(values ...G.Value) (G.Value, error) {
	if err := checkArity(r, len(values)); err != nil {
		return nil, errors.Wrap(err, "do")
	}
	in, err := tensorInput(values, 0)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	if r.axis >= in.Dims() {
		return nil, errors.Errorf("do: axis %d out of range for shape %v",
			r.axis, in.Shape())
	}
	out, err := tensor.Repeat(in, r.axis, r.repeats)
	if err != nil {
		return nil, errors.Wrap(err, "do")
	}
	return out, nil
}
