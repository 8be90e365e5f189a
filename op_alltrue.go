package factor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/special"
)

// AllTrueOp computes messages for allTrue = AND(array...) over Bernoulli
// variables. Log-odds are combined with distribution.And so that long
// arrays do not underflow.
type AllTrueOp struct{}

// AllTrueAverageConditional returns the distribution of the AND of the
// array. The AND of an empty array is true. An array of uniform entries
// gives a uniform message.
func (AllTrueOp) AllTrueAverageConditional(array []distribution.Bernoulli) distribution.Bernoulli {
	allUniform := len(array) > 0
	logOdds := math.Inf(1)
	for _, b := range array {
		if b.IsPointMass() && !b.Point() {
			return distribution.BernoulliPointMass(false)
		}
		if !b.IsUniform() {
			allUniform = false
		}
		logOdds = distribution.And(logOdds, b.LogOdds)
	}
	if allUniform {
		return distribution.BernoulliUniform()
	}
	return distribution.BernoulliFromLogOdds(logOdds)
}

// AllTrueAverageConditionalBool returns the AND of an observed array.
func (AllTrueOp) AllTrueAverageConditionalBool(array []bool) distribution.Bernoulli {
	for _, b := range array {
		if !b {
			return distribution.BernoulliPointMass(false)
		}
	}
	return distribution.BernoulliPointMass(true)
}

// AllTrueAverageLogarithm returns the VMP message to allTrue.
func (o AllTrueOp) AllTrueAverageLogarithm(array []distribution.Bernoulli) distribution.Bernoulli {
	return o.AllTrueAverageConditional(array)
}

// othersTrue returns, for every i, the log probability that all entries
// except array[i] are true. Entries that are certainly false are counted
// separately so the total never has to subtract -Inf.
func othersTrue(array []distribution.Bernoulli) []float64 {
	logProbs := make([]float64, len(array))
	finite := make([]float64, 0, len(array))
	zeros := 0
	for i, b := range array {
		logProbs[i] = b.GetLogProbTrue()
		if math.IsInf(logProbs[i], -1) {
			zeros++
			continue
		}
		finite = append(finite, logProbs[i])
	}
	total := floats.Sum(finite)

	result := make([]float64, len(array))
	for i, lp := range logProbs {
		switch {
		case zeros == 0:
			result[i] = total - lp
		case zeros == 1 && math.IsInf(lp, -1):
			result[i] = total
		default:
			result[i] = math.Inf(-1)
		}
	}
	return result
}

// ArrayAverageConditional returns the EP messages to the array entries.
// The message to entry i depends on the probability that every other
// entry is true, which is computed for all entries in one pass.
func (AllTrueOp) ArrayAverageConditional(allTrue distribution.Bernoulli, array []distribution.Bernoulli) ([]distribution.Bernoulli, error) {
	result := make([]distribution.Bernoulli, len(array))
	if allTrue.IsUniform() {
		return result, nil
	}

	logTrue, logFalse := allTrue.GetLogProbTrue(), allTrue.GetLogProbFalse()
	for i, logQ := range othersTrue(array) {
		// f(x = true) = pT·Q + pF·(1 - Q), f(x = false) = pF
		logOdds := special.LogSumExp(logTrue+logQ, logFalse+special.Log1MinusExp(logQ)) - logFalse
		if math.IsNaN(logOdds) {
			return nil, errors.Wrapf(ErrArgument,
				"arrayAverageConditional: entry %d: %v is impossible given the other entries",
				i, allTrue)
		}
		result[i] = distribution.BernoulliFromLogOdds(logOdds)
	}
	return result, nil
}

// ArrayAverageConditionalBool returns the EP messages to the array
// entries for an observed allTrue.
func (o AllTrueOp) ArrayAverageConditionalBool(allTrue bool, array []distribution.Bernoulli) ([]distribution.Bernoulli, error) {
	return o.ArrayAverageConditional(distribution.BernoulliPointMass(allTrue), array)
}

// ArrayAverageLogarithm returns the VMP messages to the array entries for
// an observed allTrue.
func (o AllTrueOp) ArrayAverageLogarithm(allTrue bool, array []distribution.Bernoulli) ([]distribution.Bernoulli, error) {
	return o.ArrayAverageConditionalBool(allTrue, array)
}

// LogAverageFactor returns the log probability that allTrue agrees with
// the AND of the array.
func (o AllTrueOp) LogAverageFactor(allTrue distribution.Bernoulli, array []distribution.Bernoulli) float64 {
	return o.AllTrueAverageConditional(array).GetLogAverageOf(allTrue)
}

// LogAverageFactorBool returns 0 if allTrue is the AND of the array and
// -Inf otherwise.
func (o AllTrueOp) LogAverageFactorBool(allTrue bool, array []bool) float64 {
	return o.AllTrueAverageConditionalBool(array).GetLogProb(allTrue)
}

// LogEvidenceRatio returns the evidence contribution of a random allTrue,
// which is zero.
func (o AllTrueOp) LogEvidenceRatio(allTrue distribution.Bernoulli, array []distribution.Bernoulli) float64 {
	toAllTrue := o.AllTrueAverageConditional(array)
	return o.LogAverageFactor(allTrue, array) - toAllTrue.GetLogAverageOf(allTrue)
}

// LogEvidenceRatioBool returns the evidence contribution of an observed
// allTrue.
func (o AllTrueOp) LogEvidenceRatioBool(allTrue bool, array []distribution.Bernoulli) float64 {
	return o.AllTrueAverageConditional(array).GetLogProb(allTrue)
}
