package factor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/special"
)

// BernoulliFromBetaOp computes messages for sample ~ Bernoulli(probTrue)
// where probTrue is Beta distributed.
type BernoulliFromBetaOp struct {
	Config
}

// SampleAverageConditional returns Bernoulli(E[probTrue]).
func (BernoulliFromBetaOp) SampleAverageConditional(probTrue distribution.Beta) distribution.Bernoulli {
	if probTrue.IsUniform() {
		return distribution.BernoulliUniform()
	}
	return distribution.BernoulliFromProbTrue(probTrue.GetMean())
}

// SampleConditional returns the message to sample for a known probTrue.
func (BernoulliFromBetaOp) SampleConditional(probTrue float64) distribution.Bernoulli {
	return distribution.BernoulliFromProbTrue(probTrue)
}

// ProbTrueConditional returns the message to probTrue from an observed
// sample: Beta(2, 1) for true and Beta(1, 2) for false.
func (BernoulliFromBetaOp) ProbTrueConditional(sample bool) distribution.Beta {
	if sample {
		return distribution.NewBeta(2, 1)
	}
	return distribution.NewBeta(1, 2)
}

// ProbTrueAverageConditional returns the EP message to probTrue. The
// posterior is a two-component Beta mixture which is projected onto a
// Beta by matching the mean and variance.
func (o BernoulliFromBetaOp) ProbTrueAverageConditional(sample distribution.Bernoulli, probTrue distribution.Beta) (distribution.Beta, error) {
	cfg := o.withDefaults()

	switch {
	case sample.IsUniform():
		return distribution.BetaUniform(), nil
	case sample.IsPointMass():
		return o.ProbTrueConditional(sample.Point()), nil
	}

	pT, pF := sample.GetProbTrue(), special.Logistic(-sample.LogOdds)
	if probTrue.IsPointMass() {
		// The likelihood pT·p + pF·(1-p) is linear in p.
		p := probTrue.Point()
		d1 := (pT - pF) / (pT*p + pF*(1-p))
		return distribution.BetaFromDerivatives(p, d1, -d1*d1, cfg.ForceProper), nil
	}

	a, n := probTrue.TrueCount, probTrue.TotalCount()
	m := a / n
	wT, wF := pT*m, pF*(1-m)
	z := wT + wF
	if !(z > 0) {
		return distribution.Beta{}, errors.Wrapf(ErrNumerical,
			"probTrueAverageConditional: zero evidence for %v under %v", sample, probTrue)
	}
	wT, wF = wT/z, wF/z

	mean := (wT*(a+1) + wF*a) / (n + 1)
	meanSquare := (wT*(a+2) + wF*a) * (a + 1) / ((n + 1) * (n + 2))
	if err := checkFinite("probTrueAverageConditional", mean, meanSquare); err != nil {
		return distribution.Beta{}, err
	}
	post := distribution.BetaFromMeanAndVariance(mean, meanSquare-mean*mean)
	msg, err := post.Ratio(probTrue, cfg.ForceProper)
	if err != nil {
		return distribution.Beta{}, errors.Wrap(err, "probTrueAverageConditional")
	}
	return msg, nil
}

// SampleAverageLogarithm returns the VMP message to sample, with log-odds
// E[log p] - E[log(1-p)].
func (BernoulliFromBetaOp) SampleAverageLogarithm(probTrue distribution.Beta) distribution.Bernoulli {
	if probTrue.IsPointMass() {
		return distribution.BernoulliFromProbTrue(probTrue.Point())
	}
	eLogP, eLogQ := probTrue.GetMeanLogs()
	return distribution.BernoulliFromLogOdds(eLogP - eLogQ)
}

// ProbTrueAverageLogarithm returns the VMP message to probTrue.
func (BernoulliFromBetaOp) ProbTrueAverageLogarithm(sample distribution.Bernoulli) distribution.Beta {
	pT := sample.GetProbTrue()
	return distribution.NewBeta(1+pT, 2-pT)
}

// LogAverageFactor returns log(P(true)·E[p] + P(false)·E[1-p]).
func (o BernoulliFromBetaOp) LogAverageFactor(sample distribution.Bernoulli, probTrue distribution.Beta) float64 {
	return o.SampleAverageConditional(probTrue).GetLogAverageOf(sample)
}

// LogAverageFactorBool returns log E[p] or log E[1-p].
func (BernoulliFromBetaOp) LogAverageFactorBool(sample bool, probTrue distribution.Beta) float64 {
	m := probTrue.GetMean()
	if sample {
		return math.Log(m)
	}
	return math.Log1p(-m)
}

// LogEvidenceRatio returns the evidence contribution of a random sample,
// which is zero.
func (o BernoulliFromBetaOp) LogEvidenceRatio(sample distribution.Bernoulli, probTrue distribution.Beta) float64 {
	return o.LogAverageFactor(sample, probTrue) - o.SampleAverageConditional(probTrue).GetLogAverageOf(sample)
}

// LogEvidenceRatioBool returns the evidence contribution of an observed
// sample.
func (o BernoulliFromBetaOp) LogEvidenceRatioBool(sample bool, probTrue distribution.Beta) float64 {
	return o.LogAverageFactorBool(sample, probTrue)
}

// AverageLogFactor returns P(true)·E[log p] + P(false)·E[log(1-p)].
func (BernoulliFromBetaOp) AverageLogFactor(sample distribution.Bernoulli, probTrue distribution.Beta) float64 {
	eLogP, eLogQ := probTrue.GetMeanLogs()
	pT := sample.GetProbTrue()
	var result float64
	if pT > 0 {
		result += pT * eLogP
	}
	if pT < 1 {
		result += (1 - pT) * eLogQ
	}
	return result
}
