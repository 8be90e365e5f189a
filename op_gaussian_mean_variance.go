package factor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/quadrature"
	"github.com/samuelfneumann/factor/special"
)

// GaussianFromMeanAndVarianceOp computes messages for sample ~ N(mean,
// variance), where variance is either a known constant or Gamma
// distributed. Methods with a Gamma suffix take a random variance.
//
// With a Gamma variance w the factor, as a function of d = sample - mean,
// is a variance-gamma density. Its moments come from one dimensional
// quadrature over log w, where given w everything is Gaussian.
type GaussianFromMeanAndVarianceOp struct {
	Config
}

// SampleAverageConditional returns the message to sample for a known
// variance.
func (GaussianFromMeanAndVarianceOp) SampleAverageConditional(mean distribution.Gaussian, variance float64) distribution.Gaussian {
	if mean.IsUniform() {
		return distribution.GaussianUniform()
	}
	return distribution.NewGaussian(mean.GetMean(), mean.GetVariance()+variance)
}

// MeanAverageConditional returns the message to mean for a known
// variance.
func (o GaussianFromMeanAndVarianceOp) MeanAverageConditional(sample distribution.Gaussian, variance float64) distribution.Gaussian {
	return o.SampleAverageConditional(sample, variance)
}

// LogAverageFactor returns log ∫∫ sample(x)·mean(m)·N(x; m, variance).
func (o GaussianFromMeanAndVarianceOp) LogAverageFactor(sample, mean distribution.Gaussian, variance float64) float64 {
	return o.SampleAverageConditional(mean, variance).GetLogAverageOf(sample)
}

// LogEvidenceRatio returns the evidence contribution of a random sample,
// which is zero.
func (o GaussianFromMeanAndVarianceOp) LogEvidenceRatio(sample, mean distribution.Gaussian, variance float64) float64 {
	toSample := o.SampleAverageConditional(mean, variance)
	return o.LogAverageFactor(sample, mean, variance) - toSample.GetLogAverageOf(sample)
}

// LogEvidenceRatioPoint returns the evidence contribution of an observed
// sample.
func (o GaussianFromMeanAndVarianceOp) LogEvidenceRatioPoint(sample float64, mean distribution.Gaussian, variance float64) float64 {
	return o.SampleAverageConditional(mean, variance).GetLogProb(sample)
}

// SampleAverageLogarithm returns the VMP message to sample.
func (GaussianFromMeanAndVarianceOp) SampleAverageLogarithm(mean distribution.Gaussian, variance float64) distribution.Gaussian {
	return distribution.NewGaussian(mean.GetMean(), variance)
}

// MeanAverageLogarithm returns the VMP message to mean.
func (o GaussianFromMeanAndVarianceOp) MeanAverageLogarithm(sample distribution.Gaussian, variance float64) distribution.Gaussian {
	return o.SampleAverageLogarithm(sample, variance)
}

// AverageLogFactor returns E[log N(sample; mean, variance)].
func (GaussianFromMeanAndVarianceOp) AverageLogFactor(sample, mean distribution.Gaussian, variance float64) float64 {
	ms, mm := sample.GetMean(), mean.GetMean()
	e2 := gaussianMeanSquare(sample) - 2*ms*mm + gaussianMeanSquare(mean)
	return -0.5*math.Log(2*math.Pi*variance) - e2/(2*variance)
}

// vgMoments are integrals of Ga(w)·N(d; 0, v + w) over w divided by the
// normalizer z.
type vgMoments struct {
	logZ float64

	// First and second derivatives of log z with respect to d.
	dlogz, ddlogz float64

	// Posterior moments of w.
	meanW, meanW2 float64
}

func (o GaussianFromMeanAndVarianceOp) moments(d, v float64, w distribution.Gamma, cfg Config) (vgMoments, error) {
	if !w.IsProper() {
		return vgMoments{}, errors.Wrapf(ErrImproperMessage, "variance %v", w)
	}
	center := w.GetMeanLog()
	scale := math.Sqrt(special.Trigamma(w.Shape))

	// Ga(w)·N(d; 0, v + w) in terms of u = log w, including the Jacobian.
	logNormalizer := w.GetLogNormalizer()
	logWeight := func(u float64) float64 {
		x := math.Exp(u)
		total := v + x
		return w.Shape*u - w.Rate*x - logNormalizer -
			0.5*math.Log(2*math.Pi*total) - d*d/(2*total)
	}
	moment := func(g func(x, total float64) float64) func(float64) float64 {
		return func(t float64) float64 {
			u := center + t
			lw := logWeight(u)
			if math.IsInf(lw, 0) || math.IsNaN(lw) {
				// Underflow or overflow of w at the ends of the line.
				return 0
			}
			weight := math.Exp(lw)
			if weight == 0 {
				return 0
			}
			x := math.Exp(u)
			return g(x, v+x) * weight
		}
	}

	integrands := []func(x, total float64) float64{
		func(x, total float64) float64 { return 1 },
		func(x, total float64) float64 { return 1 / total },
		func(x, total float64) float64 { return 1 / (total * total) },
		func(x, total float64) float64 { return x },
		func(x, total float64) float64 { return x * x },
	}
	values := make([]float64, len(integrands))
	for i, g := range integrands {
		var err error
		values[i], err = quadrature.AdaptiveClenshawCurtis(moment(g), scale,
			cfg.QuadratureNodeCount, cfg.RelativeTolerance)
		if err != nil {
			return vgMoments{}, errors.Wrap(ErrNumerical, err.Error())
		}
	}
	z := values[0]
	if !(z > 0) {
		return vgMoments{}, errors.Wrapf(ErrNumerical, "z = %v", z)
	}

	e1, e2 := values[1]/z, values[2]/z
	dlogz := -d * e1
	return vgMoments{
		logZ:   math.Log(z),
		dlogz:  dlogz,
		ddlogz: d*d*e2 - e1 - dlogz*dlogz,
		meanW:  values[3] / z,
		meanW2: values[4] / z,
	}, nil
}

// VarianceGammaTimesGaussianMoments returns log Z and the mean and
// variance of e under N(e; m, v)·∫ N(e; 0, w)·Ga(w) dw.
func (o GaussianFromMeanAndVarianceOp) VarianceGammaTimesGaussianMoments(m, v float64, w distribution.Gamma) (logZ, mean, variance float64, err error) {
	cfg := o.withDefaults()
	if w.IsPointMass() {
		total := v + w.Point()
		logZ = distribution.NewGaussian(0, total).GetLogProb(m)
		return logZ, m * w.Point() / total, v * w.Point() / total, nil
	}
	mom, err := o.moments(m, v, w, cfg)
	if err != nil {
		return math.NaN(), math.NaN(), math.NaN(), errors.Wrap(err, "varianceGammaTimesGaussianMoments")
	}
	return mom.logZ, m + v*mom.dlogz, v + v*v*mom.ddlogz, nil
}

// SampleAverageConditionalGamma returns the EP message to sample.
func (o GaussianFromMeanAndVarianceOp) SampleAverageConditionalGamma(sample, mean distribution.Gaussian, variance distribution.Gamma) (distribution.Gaussian, error) {
	cfg := o.withDefaults()

	switch {
	case variance.IsPointMass():
		return o.SampleAverageConditional(mean, variance.Point()), nil
	case mean.IsUniform() || variance.IsUniform():
		return distribution.GaussianUniform(), nil
	case sample.IsUniform():
		if !variance.IsProper() {
			return distribution.Gaussian{}, errors.Wrapf(ErrImproperMessage,
				"sampleAverageConditionalGamma: variance %v", variance)
		}
		return distribution.NewGaussian(mean.GetMean(), mean.GetVariance()+variance.GetMean()), nil
	case !informative(sample) || !informative(mean):
		return distribution.Gaussian{}, errors.Wrap(ErrImproperMessage,
			"sampleAverageConditionalGamma: improper sample or mean")
	}

	ms, vs := sample.GetMeanAndVariance()
	mm, vm := mean.GetMeanAndVariance()
	mom, err := o.moments(ms-mm, vs+vm, variance, cfg)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "sampleAverageConditionalGamma")
	}
	if sample.IsPointMass() {
		return distribution.GaussianFromDerivatives(ms, mom.dlogz, mom.ddlogz, cfg.ForceProper), nil
	}
	return o.project("sampleAverageConditionalGamma", ms+vs*mom.dlogz, vs+vs*vs*mom.ddlogz, sample, cfg)
}

// MeanAverageConditionalGamma returns the EP message to mean. The factor
// is symmetric in sample and mean.
func (o GaussianFromMeanAndVarianceOp) MeanAverageConditionalGamma(sample, mean distribution.Gaussian, variance distribution.Gamma) (distribution.Gaussian, error) {
	msg, err := o.SampleAverageConditionalGamma(mean, sample, variance)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, "meanAverageConditionalGamma")
	}
	return msg, nil
}

func (o GaussianFromMeanAndVarianceOp) project(op string, mean, variance float64, prior distribution.Gaussian, cfg Config) (distribution.Gaussian, error) {
	if !(variance > 0) {
		return distribution.Gaussian{}, errors.Wrapf(ErrNumerical, "%s: posterior variance %v",
			op, variance)
	}
	msg, err := distribution.NewGaussian(mean, variance).Ratio(prior, cfg.ForceProper)
	if err != nil {
		return distribution.Gaussian{}, errors.Wrap(err, op)
	}
	return msg, nil
}

// VarianceAverageConditional returns the EP message to variance.
func (o GaussianFromMeanAndVarianceOp) VarianceAverageConditional(sample, mean distribution.Gaussian, variance distribution.Gamma) (distribution.Gamma, error) {
	cfg := o.withDefaults()

	switch {
	case sample.IsUniform() || mean.IsUniform():
		return distribution.GammaUniform(), nil
	case !informative(sample) || !informative(mean):
		return distribution.Gamma{}, errors.Wrap(ErrImproperMessage,
			"varianceAverageConditional: improper sample or mean")
	}
	ms, vs := sample.GetMeanAndVariance()
	mm, vm := mean.GetMeanAndVariance()
	d, v := ms-mm, vs+vm

	if variance.IsPointMass() {
		total := v + variance.Point()
		dlogp := -1/(2*total) + d*d/(2*total*total)
		ddlogp := 1/(2*total*total) - d*d/(total*total*total)
		return distribution.GammaFromDerivatives(variance.Point(), dlogp, ddlogp, cfg.ForceProper), nil
	}

	mom, err := o.moments(d, v, variance, cfg)
	if err != nil {
		return distribution.Gamma{}, errors.Wrap(err, "varianceAverageConditional")
	}
	varW := mom.meanW2 - mom.meanW*mom.meanW
	if !(varW > 0) {
		return distribution.Gamma{}, errors.Wrapf(ErrNumerical,
			"varianceAverageConditional: posterior variance %v", varW)
	}
	posterior := distribution.GammaFromMeanAndVariance(mom.meanW, varW)
	msg, err := posterior.Ratio(variance, cfg.ForceProper)
	if err != nil {
		return distribution.Gamma{}, errors.Wrap(err, "varianceAverageConditional")
	}
	return msg, nil
}

// LogAverageFactorGamma returns log ∫∫∫ sample(x)·mean(m)·Ga(w)·N(x; m, w).
func (o GaussianFromMeanAndVarianceOp) LogAverageFactorGamma(sample, mean distribution.Gaussian, variance distribution.Gamma) (float64, error) {
	cfg := o.withDefaults()

	switch {
	case variance.IsPointMass():
		return o.LogAverageFactor(sample, mean, variance.Point()), nil
	case sample.IsUniform() || mean.IsUniform():
		return 0, nil
	case !informative(sample) || !informative(mean):
		return math.NaN(), errors.Wrap(ErrImproperMessage,
			"logAverageFactorGamma: improper sample or mean")
	}
	ms, vs := sample.GetMeanAndVariance()
	mm, vm := mean.GetMeanAndVariance()
	mom, err := o.moments(ms-mm, vs+vm, variance, cfg)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logAverageFactorGamma")
	}
	return mom.logZ, nil
}

// LogEvidenceRatioGamma returns the evidence contribution of the factor.
// An observed sample contributes its log average factor.
func (o GaussianFromMeanAndVarianceOp) LogEvidenceRatioGamma(sample, mean distribution.Gaussian, variance distribution.Gamma, toSample distribution.Gaussian) (float64, error) {
	logZ, err := o.LogAverageFactorGamma(sample, mean, variance)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logEvidenceRatioGamma")
	}
	if sample.IsPointMass() {
		return logZ, nil
	}
	return logZ - toSample.GetLogAverageOf(sample), nil
}
