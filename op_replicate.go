package factor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
)

// ReplicateOpNoDivide computes messages for the factor that copies one
// definition variable def to several uses. The message to each use is
// recomputed from all the other messages, which costs O(n) per use but
// never divides.
type ReplicateOpNoDivide[T distribution.Message[T]] struct{}

// UsesAverageConditional returns the message to uses[index], the product
// of def and every other use.
func (ReplicateOpNoDivide[T]) UsesAverageConditional(uses []T, def T, index int) (T, error) {
	if index < 0 || index >= len(uses) {
		var zero T
		return zero, errors.Wrapf(ErrArgument, "usesAverageConditional: index %d of %d",
			index, len(uses))
	}
	result := def
	for i, use := range uses {
		if i != index {
			result = result.Product(use)
		}
	}
	return result, nil
}

// DefAverageConditional returns the message to def, the product of all
// uses.
func (ReplicateOpNoDivide[T]) DefAverageConditional(uses []T, def T) T {
	result := def.ToUniform()
	for _, use := range uses {
		result = result.Product(use)
	}
	return result
}

// MarginalAverageConditional returns the product of def and all uses.
func (o ReplicateOpNoDivide[T]) MarginalAverageConditional(uses []T, def T) T {
	return def.Product(o.DefAverageConditional(uses, def))
}

// UsesAverageLogarithm returns the VMP message to every use, the marginal
// of def.
func (o ReplicateOpNoDivide[T]) UsesAverageLogarithm(uses []T, def T) T {
	return o.MarginalAverageConditional(uses, def)
}

// DefAverageLogarithm returns the VMP message to def.
func (o ReplicateOpNoDivide[T]) DefAverageLogarithm(uses []T, def T) T {
	return o.DefAverageConditional(uses, def)
}

// LogAverageFactor returns log ∫ def(x)·Π uses(x) dx.
func (ReplicateOpNoDivide[T]) LogAverageFactor(uses []T, def T) float64 {
	var logZ float64
	acc := def
	for _, use := range uses {
		logZ += acc.GetLogAverageOf(use)
		acc = acc.Product(use)
	}
	return logZ
}

// LogEvidenceRatio returns the log average factor minus the normalizers
// of the messages sent to the uses.
func (o ReplicateOpNoDivide[T]) LogEvidenceRatio(uses []T, def T, toUses []T) (float64, error) {
	if err := checkLength("logEvidenceRatio", len(uses), len(toUses)); err != nil {
		return math.NaN(), err
	}
	logZ := o.LogAverageFactor(uses, def)
	for i, use := range uses {
		logZ -= toUses[i].GetLogAverageOf(use)
	}
	return logZ, nil
}

// ReplicateOpDivide computes the same messages as ReplicateOpNoDivide by
// dividing each use out of the marginal, which costs O(1) per use. The
// division fails when the use is a point mass.
type ReplicateOpDivide[T distribution.Message[T]] struct {
	Config
}

// MarginalAverageConditional returns the product of def and all uses.
func (ReplicateOpDivide[T]) MarginalAverageConditional(uses []T, def T) T {
	return ReplicateOpNoDivide[T]{}.MarginalAverageConditional(uses, def)
}

// UsesAverageConditional returns marginal / use.
func (o ReplicateOpDivide[T]) UsesAverageConditional(use, marginal T) (T, error) {
	cfg := o.withDefaults()
	msg, err := marginal.Ratio(use, cfg.ForceProper)
	if err != nil {
		var zero T
		return zero, errors.Wrap(err, "usesAverageConditional")
	}
	return msg, nil
}

// DefAverageConditional returns marginal / def.
func (o ReplicateOpDivide[T]) DefAverageConditional(def, marginal T) (T, error) {
	cfg := o.withDefaults()
	msg, err := marginal.Ratio(def, cfg.ForceProper)
	if err != nil {
		var zero T
		return zero, errors.Wrap(err, "defAverageConditional")
	}
	return msg, nil
}

// ReplicateOp divides when it can and falls back to recomputing the
// product when a use is a point mass.
type ReplicateOp[T distribution.Message[T]] struct {
	Config
}

// UsesAverageConditional returns the message to uses[index] given the
// current marginal.
func (o ReplicateOp[T]) UsesAverageConditional(uses []T, def, marginal T, index int) (T, error) {
	cfg := o.withDefaults()
	if index < 0 || index >= len(uses) {
		var zero T
		return zero, errors.Wrapf(ErrArgument, "usesAverageConditional: index %d of %d",
			index, len(uses))
	}

	msg, err := ReplicateOpDivide[T]{Config: cfg}.UsesAverageConditional(uses[index], marginal)
	if err == nil {
		return msg, nil
	}
	if !errors.Is(err, distribution.ErrDivideByZero) {
		return msg, err
	}
	cfg.Logger.Debug("replicate: dividing by a point mass, recomputing the product",
		"index", index, "uses", len(uses))
	return ReplicateOpNoDivide[T]{}.UsesAverageConditional(uses, def, index)
}

// DefAverageConditional returns the product of all uses.
func (o ReplicateOp[T]) DefAverageConditional(uses []T, def T) T {
	return ReplicateOpNoDivide[T]{}.DefAverageConditional(uses, def)
}

// MarginalAverageConditional returns the product of def and all uses.
func (o ReplicateOp[T]) MarginalAverageConditional(uses []T, def T) T {
	return ReplicateOpNoDivide[T]{}.MarginalAverageConditional(uses, def)
}

// LogEvidenceRatio returns the evidence contribution of the factor.
func (o ReplicateOp[T]) LogEvidenceRatio(uses []T, def T, toUses []T) (float64, error) {
	return ReplicateOpNoDivide[T]{}.LogEvidenceRatio(uses, def, toUses)
}
