package factor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/factor/distribution"
)

// SumOp computes messages for sum = Σ array[i] over Gaussian variables.
type SumOp struct{}

// moments returns the means and variances of the array.
func moments(array []distribution.Gaussian) (means, variances []float64) {
	means = make([]float64, len(array))
	variances = make([]float64, len(array))
	for i, a := range array {
		means[i], variances[i] = a.GetMeanAndVariance()
	}
	return means, variances
}

// SumAverageConditional returns the distribution of the sum. The sum of
// an empty array is the point mass at zero.
func (SumOp) SumAverageConditional(array []distribution.Gaussian) distribution.Gaussian {
	for _, a := range array {
		if a.IsUniform() {
			return distribution.GaussianUniform()
		}
	}
	means, variances := moments(array)
	return distribution.NewGaussian(floats.Sum(means), floats.Sum(variances))
}

// ArrayAverageConditional returns the EP messages to the array elements.
// Element i receives sum minus every other element.
func (SumOp) ArrayAverageConditional(sum distribution.Gaussian, array []distribution.Gaussian) []distribution.Gaussian {
	result := make([]distribution.Gaussian, len(array))
	uniform := 0
	for _, a := range array {
		if a.IsUniform() {
			uniform++
		}
	}
	if sum.IsUniform() || uniform > 1 {
		return result
	}

	means, variances := moments(array)
	ms, vs := sum.GetMeanAndVariance()
	totalMean, totalVariance := floats.Sum(means), floats.Sum(variances)
	for i, a := range array {
		switch {
		case uniform == 1 && !a.IsUniform():
			// Another element is unconstrained.
			continue
		case uniform == 1:
			var others, otherVariance float64
			for j := range array {
				if j != i {
					others += means[j]
					otherVariance += variances[j]
				}
			}
			result[i] = distribution.NewGaussian(ms-others, vs+otherVariance)
		default:
			result[i] = distribution.NewGaussian(ms-(totalMean-means[i]), vs+(totalVariance-variances[i]))
		}
	}
	return result
}

// SumAverageLogarithm returns the VMP message to sum.
func (o SumOp) SumAverageLogarithm(array []distribution.Gaussian) distribution.Gaussian {
	return o.SumAverageConditional(array)
}

// ArrayAverageLogarithm returns the VMP messages to the array elements.
// An observed sum with more than one random element is not supported.
func (SumOp) ArrayAverageLogarithm(sum distribution.Gaussian, array []distribution.Gaussian) ([]distribution.Gaussian, error) {
	result := make([]distribution.Gaussian, len(array))
	if sum.IsUniform() {
		return result, nil
	}
	if sum.IsPointMass() {
		random := 0
		for _, a := range array {
			if !a.IsPointMass() {
				random++
			}
		}
		if random > 1 {
			return nil, errors.Wrap(ErrNotSupported,
				"arrayAverageLogarithm: observed sum with random elements")
		}
	}

	means := make([]float64, len(array))
	for i, a := range array {
		means[i] = a.GetMean()
	}
	total := floats.Sum(means)
	for i := range array {
		rest := total - means[i]
		if sum.IsPointMass() {
			result[i] = distribution.GaussianPointMass(sum.Point() - rest)
			continue
		}
		result[i] = distribution.Gaussian{
			MeanTimesPrecision: sum.MeanTimesPrecision - sum.Precision*rest,
			Precision:          sum.Precision,
		}
	}
	return result, nil
}

// LogAverageFactor returns log ∫ sum(Σ x)·Π array(x) dx.
func (o SumOp) LogAverageFactor(sum distribution.Gaussian, array []distribution.Gaussian) float64 {
	return o.SumAverageConditional(array).GetLogAverageOf(sum)
}

// LogEvidenceRatio returns the evidence contribution of a random sum,
// which is zero.
func (o SumOp) LogEvidenceRatio(sum distribution.Gaussian, array []distribution.Gaussian) float64 {
	toSum := o.SumAverageConditional(array)
	return o.LogAverageFactor(sum, array) - toSum.GetLogAverageOf(sum)
}

// LogEvidenceRatioPoint returns the evidence contribution of an observed
// sum.
func (o SumOp) LogEvidenceRatioPoint(sum float64, array []distribution.Gaussian) float64 {
	return o.SumAverageConditional(array).GetLogProb(sum)
}

// VectorSumOp computes messages for sum = Σ array[i] over VectorGaussian
// variables of a common dimension.
type VectorSumOp struct{}

func checkDimensions(op string, d int, array []distribution.VectorGaussian) error {
	for i, a := range array {
		if a.Dimension() != d {
			return errors.Wrapf(ErrArgument, "%s: array[%d] has dimension %d, want %d",
				op, i, a.Dimension(), d)
		}
	}
	return nil
}

// SumAverageConditional returns the distribution of the sum. The array
// must not be empty.
func (VectorSumOp) SumAverageConditional(array []distribution.VectorGaussian) (distribution.VectorGaussian, error) {
	if len(array) == 0 {
		return distribution.VectorGaussian{}, errors.Wrap(ErrArgument,
			"sumAverageConditional: empty array")
	}
	if err := checkDimensions("sumAverageConditional", array[0].Dimension(), array); err != nil {
		return distribution.VectorGaussian{}, err
	}
	result := array[0]
	for _, a := range array[1:] {
		var err error
		result, err = result.Add(a)
		if err != nil {
			return distribution.VectorGaussian{}, errors.Wrap(err, "sumAverageConditional")
		}
	}
	return result, nil
}

// ArrayAverageConditional returns the message to array[index]: sum minus
// every other element, as a distribution in moment form.
func (o VectorSumOp) ArrayAverageConditional(sum distribution.VectorGaussian, array []distribution.VectorGaussian, index int) (distribution.VectorGaussian, error) {
	d := sum.Dimension()
	if err := checkDimensions("arrayAverageConditional", d, array); err != nil {
		return distribution.VectorGaussian{}, err
	}
	if index < 0 || index >= len(array) {
		return distribution.VectorGaussian{}, errors.Wrapf(ErrArgument,
			"arrayAverageConditional: index %d of %d", index, len(array))
	}

	mean := mat.NewVecDense(d, nil)
	mean.CopyVec(sum.Mean)
	variance := mat.NewSymDense(d, nil)
	variance.CopySym(sum.Variance)
	for i, a := range array {
		if i == index {
			continue
		}
		mean.SubVec(mean, a.Mean)
		variance.AddSym(variance, a.Variance)
	}
	return distribution.VectorGaussian{Mean: mean, Variance: variance}, nil
}

// LogEvidenceRatioPoint returns the log density of an observed sum.
func (o VectorSumOp) LogEvidenceRatioPoint(sum []float64, array []distribution.VectorGaussian) (float64, error) {
	toSum, err := o.SumAverageConditional(array)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logEvidenceRatioPoint")
	}
	if toSum.Dimension() != len(sum) {
		return math.NaN(), errors.Wrapf(ErrArgument, "logEvidenceRatioPoint: sum has dimension %d, want %d",
			len(sum), toSum.Dimension())
	}
	return toSum.GetLogProb(sum), nil
}
