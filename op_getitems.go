package factor

import (
	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
)

// GetItemsOp computes messages for items[i] = array[indices[i]]. An index
// may appear more than once, so the message to an item includes the
// other items that read the same element.
type GetItemsOp[T distribution.Message[T]] struct{}

func checkIndices(op string, indices []int, n int) error {
	for i, k := range indices {
		if k < 0 || k >= n {
			return errors.Wrapf(ErrArgument, "%s: indices[%d] = %d out of range [0, %d)",
				op, i, k, n)
		}
	}
	return nil
}

// ItemsAverageConditional returns the message to items[i]: the message
// from the array element it reads times the other items that read the
// same element.
func (GetItemsOp[T]) ItemsAverageConditional(array, items []T, indices []int, i int) (T, error) {
	var zero T
	if err := checkLength("itemsAverageConditional", len(items), len(indices)); err != nil {
		return zero, err
	}
	if err := checkIndices("itemsAverageConditional", indices, len(array)); err != nil {
		return zero, err
	}
	if i < 0 || i >= len(items) {
		return zero, errors.Wrapf(ErrArgument, "itemsAverageConditional: item %d of %d", i, len(items))
	}

	k := indices[i]
	result := array[k]
	for j, item := range items {
		if j != i && indices[j] == k {
			result = result.Product(item)
		}
	}
	return result, nil
}

// ArrayAverageConditional returns the messages to the array elements.
// Element k receives the product of the items that read it, and elements
// that no item reads receive a uniform message.
func (GetItemsOp[T]) ArrayAverageConditional(items []T, indices []int, array []T) ([]T, error) {
	if err := checkLength("arrayAverageConditional", len(items), len(indices)); err != nil {
		return nil, err
	}
	if err := checkIndices("arrayAverageConditional", indices, len(array)); err != nil {
		return nil, err
	}

	result := make([]T, len(array))
	for k, a := range array {
		result[k] = a.ToUniform()
	}
	for j, item := range items {
		k := indices[j]
		result[k] = result[k].Product(item)
	}
	return result, nil
}

// ItemsAverageLogarithm returns the VMP message to items[i], the marginal
// of the element it reads.
func (o GetItemsOp[T]) ItemsAverageLogarithm(array, items []T, indices []int, i int) (T, error) {
	msg, err := o.ItemsAverageConditional(array, items, indices, i)
	if err != nil {
		var zero T
		return zero, errors.Wrap(err, "itemsAverageLogarithm")
	}
	return msg.Product(items[i]), nil
}

// ArrayAverageLogarithm returns the VMP messages to the array elements.
func (o GetItemsOp[T]) ArrayAverageLogarithm(items []T, indices []int, array []T) ([]T, error) {
	return o.ArrayAverageConditional(items, indices, array)
}

// GetItemsFromJaggedOp computes messages for
// items[i] = array[outer[i]][inner[i]].
type GetItemsFromJaggedOp[T distribution.Message[T]] struct{}

func checkJagged[T any](op string, array [][]T, items []T, outer, inner []int) error {
	if err := checkLength(op, len(items), len(outer)); err != nil {
		return err
	}
	if err := checkLength(op, len(items), len(inner)); err != nil {
		return err
	}
	if err := checkIndices(op, outer, len(array)); err != nil {
		return err
	}
	for i, k := range outer {
		if inner[i] < 0 || inner[i] >= len(array[k]) {
			return errors.Wrapf(ErrArgument, "%s: inner[%d] = %d out of range [0, %d)",
				op, i, inner[i], len(array[k]))
		}
	}
	return nil
}

// ItemsAverageConditional returns the message to items[i].
func (GetItemsFromJaggedOp[T]) ItemsAverageConditional(array [][]T, items []T, outer, inner []int, i int) (T, error) {
	var zero T
	if err := checkJagged("itemsAverageConditional", array, items, outer, inner); err != nil {
		return zero, err
	}
	if i < 0 || i >= len(items) {
		return zero, errors.Wrapf(ErrArgument, "itemsAverageConditional: item %d of %d", i, len(items))
	}

	result := array[outer[i]][inner[i]]
	for j, item := range items {
		if j != i && outer[j] == outer[i] && inner[j] == inner[i] {
			result = result.Product(item)
		}
	}
	return result, nil
}

// ArrayAverageConditional returns the messages to the jagged array.
func (GetItemsFromJaggedOp[T]) ArrayAverageConditional(items []T, outer, inner []int, array [][]T) ([][]T, error) {
	if err := checkJagged("arrayAverageConditional", array, items, outer, inner); err != nil {
		return nil, err
	}

	result := make([][]T, len(array))
	for k, row := range array {
		result[k] = make([]T, len(row))
		for l, a := range row {
			result[k][l] = a.ToUniform()
		}
	}
	for j, item := range items {
		k, l := outer[j], inner[j]
		result[k][l] = result[k][l].Product(item)
	}
	return result, nil
}
