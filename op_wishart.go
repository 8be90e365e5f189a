package factor

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/mathext"

	"github.com/samuelfneumann/factor/distribution"
)

// WishartFromShapeAndRateOp computes messages for
// sample ~ Wishart(shape, rate) with a known shape.
type WishartFromShapeAndRateOp struct{}

// SampleAverageConditional returns Wishart(shape, rate) for a known rate.
func (WishartFromShapeAndRateOp) SampleAverageConditional(shape float64, rate mat.Symmetric) distribution.Wishart {
	return distribution.NewWishart(shape, rate)
}

// SampleAverageLogarithm returns Wishart(shape, E[rate]).
func (WishartFromShapeAndRateOp) SampleAverageLogarithm(shape float64, rate distribution.Wishart) (distribution.Wishart, error) {
	if rate.IsUniform() {
		return distribution.WishartUniform(rate.Dimension()), nil
	}
	mean, err := rate.GetMean()
	if err != nil {
		return distribution.Wishart{}, errors.Wrap(err, "sampleAverageLogarithm")
	}
	return distribution.NewWishart(shape, mean), nil
}

// RateAverageLogarithm returns Wishart(shape + (d+1)/2, E[sample]), the
// VMP message to rate.
func (WishartFromShapeAndRateOp) RateAverageLogarithm(sample distribution.Wishart, shape float64) (distribution.Wishart, error) {
	d := sample.Dimension()
	if sample.IsUniform() {
		return distribution.WishartUniform(d), nil
	}
	mean, err := sample.GetMean()
	if err != nil {
		return distribution.Wishart{}, errors.Wrap(err, "rateAverageLogarithm")
	}
	return distribution.NewWishart(shape+float64(d+1)/2, mean), nil
}

// RateAverageConditional returns the EP message to rate. Only an observed
// or uniform sample gives a Wishart message.
func (o WishartFromShapeAndRateOp) RateAverageConditional(sample distribution.Wishart, shape float64) (distribution.Wishart, error) {
	switch KindOf(sample) {
	case PointMass, Uniform:
		return o.RateAverageLogarithm(sample, shape)
	}
	return distribution.Wishart{}, errors.Wrap(ErrNotSupported,
		"rateAverageConditional: random sample")
}

// LogAverageFactor returns log ∫ Wishart(X; shape, rate)·sample(X) dX.
func (WishartFromShapeAndRateOp) LogAverageFactor(sample distribution.Wishart, shape float64, rate mat.Symmetric) (float64, error) {
	if rate.SymmetricDim() != sample.Dimension() {
		return math.NaN(), errors.Wrapf(ErrArgument, "logAverageFactor: dimensions %d and %d",
			rate.SymmetricDim(), sample.Dimension())
	}
	return distribution.NewWishart(shape, rate).GetLogAverageOf(sample), nil
}

// LogEvidenceRatio returns the evidence contribution of a random sample,
// which is zero.
func (o WishartFromShapeAndRateOp) LogEvidenceRatio(sample distribution.Wishart, shape float64, rate mat.Symmetric) (float64, error) {
	if rate.SymmetricDim() != sample.Dimension() {
		return math.NaN(), errors.Wrapf(ErrArgument, "logEvidenceRatio: dimensions %d and %d",
			rate.SymmetricDim(), sample.Dimension())
	}
	return 0, nil
}

// LogEvidenceRatioPoint returns the log density of an observed sample.
func (o WishartFromShapeAndRateOp) LogEvidenceRatioPoint(sample, rate mat.Symmetric, shape float64) (float64, error) {
	return o.LogAverageFactor(distribution.WishartPointMass(sample), shape, rate)
}

// AverageLogFactor returns E[log Wishart(X; shape, R)] under independent
// sample and rate:
//
//	(shape-(d+1)/2)·E[log|X|] - tr(E[R]·E[X]) - log Γ_d(shape) + shape·E[log|R|]
func (WishartFromShapeAndRateOp) AverageLogFactor(sample distribution.Wishart, shape float64, rate distribution.Wishart) (float64, error) {
	d := sample.Dimension()
	if rate.Dimension() != d {
		return math.NaN(), errors.Wrapf(ErrArgument, "averageLogFactor: dimensions %d and %d",
			rate.Dimension(), d)
	}
	meanX, err := sample.GetMean()
	if err != nil {
		return math.NaN(), errors.Wrap(err, "averageLogFactor: sample")
	}
	meanR, err := rate.GetMean()
	if err != nil {
		return math.NaN(), errors.Wrap(err, "averageLogFactor: rate")
	}

	var prod mat.Dense
	prod.Mul(meanR, meanX)
	result := (shape-float64(d+1)/2)*sample.GetMeanLogDeterminant() - mat.Trace(&prod) -
		mathext.MvLgamma(shape, d) + shape*rate.GetMeanLogDeterminant()
	if err := checkFinite("averageLogFactor", result); err != nil {
		return math.NaN(), err
	}
	return result, nil
}
