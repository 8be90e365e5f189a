package factor

import (
	"github.com/pkg/errors"
)

// Buffer is auxiliary state that a scheduler threads through successive
// calls of an operator, such as the mode x of ExpOpLaplace or the Q
// message of GammaPowerProductOpLaplace. Iteration counts the updates
// applied since Init.
type Buffer[T any] struct {
	Value     T
	Iteration int
}

// BufferOp updates a Buffer by a caller-supplied step. It never keeps a
// reference to the buffer between calls.
type BufferOp[T any] struct {
	Config
}

// Init returns a fresh buffer holding value.
func (BufferOp[T]) Init(value T) Buffer[T] {
	return Buffer[T]{Value: value}
}

// Update returns the buffer after one application of step. On error the
// input buffer is returned unchanged.
func (BufferOp[T]) Update(b Buffer[T], step func(T) (T, error)) (Buffer[T], error) {
	next, err := step(b.Value)
	if err != nil {
		return b, errors.Wrapf(err, "update: iteration %d", b.Iteration)
	}
	return Buffer[T]{Value: next, Iteration: b.Iteration + 1}, nil
}

// Iterate applies step until converged reports true for consecutive
// values or limit updates have been applied. A non-positive limit means
// Config.MaxNewtonIterations.
func (o BufferOp[T]) Iterate(b Buffer[T], step func(T) (T, error), converged func(prev, next T) bool, limit int) (Buffer[T], error) {
	cfg := o.withDefaults()
	if limit <= 0 {
		limit = cfg.MaxNewtonIterations
	}
	for i := 0; i < limit; i++ {
		next, err := o.Update(b, step)
		if err != nil {
			return b, errors.Wrap(err, "iterate")
		}
		done := converged(b.Value, next.Value)
		b = next
		if done {
			return b, nil
		}
	}
	cfg.Logger.Debug("buffer: iteration limit reached", "iterations", limit)
	return b, nil
}
