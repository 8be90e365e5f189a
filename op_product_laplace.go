package factor

import (
	"math"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
	"github.com/samuelfneumann/factor/special"
)

// GammaPowerProductOpLaplace computes EP messages for product = a·b where
// all three variables are GammaPower messages with a common power p.
//
// Integrating a out of the factor leaves a one dimensional function f(b).
// The operator approximates the posterior of b by Laplace's method around
// a buffer q, a Gamma over b whose mode is the mode of B(b)·f(b). The
// scheduler refreshes q with Q once per pass and threads it through the
// message calls. Messages are moment matched on x = y^(1/p), the Gamma
// variable underlying each GammaPower, or on y itself for an inverse Gamma
// message with shape <= 2.
//
// The argument with the larger shape is always treated as b. Calls that
// violate this swap their arguments and rebuild the buffer.
type GammaPowerProductOpLaplace struct {
	Config
}

// checkPowers returns an ErrNotSupported error unless every message has
// the same power.
func checkPowers(op string, messages ...distribution.GammaPower) error {
	for _, m := range messages[1:] {
		if m.Power != messages[0].Power {
			return errors.Wrapf(ErrNotSupported, "%s: powers %v and %v", op,
				messages[0].Power, m.Power)
		}
	}
	return nil
}

// gammaPowerDerivatives returns the derivatives of the log of the message
// function of g at y.
func gammaPowerDerivatives(g distribution.GammaPower, y float64) distribution.Derivatives {
	return addDerivatives(logDerivatives(g.Shape/g.Power-1, y),
		powerDerivatives(g.Rate, 1/g.Power, y))
}

// Dlogfs returns the derivatives with respect to b of log f(b), where
// f(b) = ∫ A(a)·product(a·b) da.
func (o GammaPowerProductOpLaplace) Dlogfs(b float64, product, A distribution.GammaPower) distribution.Derivatives {
	p := A.Power
	q := 1 / p

	switch {
	case product.IsPointMass():
		// f(b) = A(y/b)/b
		k := A.Rate * math.Pow(product.Point(), q)
		return addDerivatives(logDerivatives(-A.Shape/p, b), powerDerivatives(k, -q, b))
	case A.IsPointMass():
		// f(b) = product(a·b)
		k := product.Rate * math.Pow(A.Point(), q)
		return addDerivatives(logDerivatives(product.Shape/p-1, b), powerDerivatives(k, q, b))
	}

	// f(b) ∝ b^(sy/p-1)·(ry·b^q + rA)^-T
	t := product.Shape + A.Shape - p
	ry := product.Rate
	bq := math.Pow(b, q)
	g := ry*bq + A.Rate
	g1 := ry * q * bq / b
	g2 := g1 * (q - 1) / b
	g3 := g2 * (q - 2) / b
	g4 := g3 * (q - 3) / b
	return addDerivatives(logDerivatives(product.Shape*q-1, b),
		logSumDerivatives(t, g, g1, g2, g3, g4))
}

// Q returns the buffer for the posterior of b: the Gamma whose log has
// zero slope at the mode of B(b)·f(b) and the curvature found there.
func (o GammaPowerProductOpLaplace) Q(product, A, B distribution.GammaPower) (distribution.Gamma, error) {
	cfg := o.withDefaults()

	if err := checkPowers("q", product, A, B); err != nil {
		return distribution.Gamma{}, err
	}
	if B.IsPointMass() {
		return distribution.GammaPointMass(B.Point()), nil
	}

	p := B.Power
	var b float64
	switch {
	case product.IsPointMass():
		// With u = b^(1/p) the mode solves -rB·u² + c·u + k = 0.
		k := A.Rate * math.Pow(product.Point(), 1/p)
		c := B.Shape - A.Shape - p
		disc := math.Sqrt(c*c + 4*B.Rate*k)
		var u float64
		if c >= 0 {
			u = (c + disc) / (2 * B.Rate)
		} else {
			u = 2 * k / (disc - c)
		}
		b = math.Pow(u, p)
	case A.IsPointMass():
		k := product.Rate * math.Pow(A.Point(), 1/p)
		u := (B.Shape + product.Shape - 2*p) / (B.Rate + k)
		b = math.Pow(u, p)
	default:
		// In z = log(b^(1/p)) the log posterior is concave.
		t := product.Shape + A.Shape - p
		c := B.Shape + product.Shape - 2*p
		ry, rA, rB := product.Rate, A.Rate, B.Rate
		slope := func(z float64) float64 {
			e := math.Exp(z)
			return c - rB*e - t*ry*e/(ry*e+rA)
		}
		curvature := func(z float64) float64 {
			e := math.Exp(z)
			den := ry*e + rA
			return -rB*e - t*ry*rA*e/(den*den)
		}
		z0 := 0.0
		if B.IsProper() {
			z0 = math.Log(B.Shape / B.Rate)
		}
		z, err := solveDecreasing(slope, curvature, z0, cfg)
		if err != nil {
			return distribution.Gamma{}, errors.Wrap(err, "q")
		}
		b = math.Exp(p * z)
	}
	if !(b > 0) || math.IsInf(b, 1) {
		return distribution.Gamma{}, errors.Wrapf(ErrNumerical, "q: mode %v", b)
	}

	d := addDerivatives(gammaPowerDerivatives(B, b), o.Dlogfs(b, product, A))
	if !(d.DDLogF < 0) {
		return distribution.Gamma{}, errors.Wrapf(ErrNumerical, "q: curvature %v at %v",
			d.DDLogF, b)
	}
	return distribution.GammaFromDerivatives(b, 0, d.DDLogF, true), nil
}

// posteriorB returns the Laplace mean and variance of b at the mode of q.
func (o GammaPowerProductOpLaplace) posteriorB(product, A, B distribution.GammaPower, q distribution.Gamma) (mean, variance float64, err error) {
	b := q.GetMode()
	if !(b > 0) {
		return 0, 0, errors.Wrapf(ErrNumerical, "buffer %v has no interior mode", q)
	}
	d := addDerivatives(gammaPowerDerivatives(B, b), o.Dlogfs(b, product, A))
	mean, variance = LaplaceMoments(b, d)
	if !(variance > 0) {
		return 0, 0, errors.Wrapf(ErrNumerical, "posterior variance %v", variance)
	}
	if !(mean > 0) {
		mean = b
	}
	return mean, variance, nil
}

// gammaMeanPower returns E[x^k] for x ~ Ga(shape, rate), +Inf when it
// does not exist.
func gammaMeanPower(shape, rate, k float64) float64 {
	return distribution.NewGamma(shape, rate).GetMeanPower(k)
}

// laplaceMoments returns k ↦ E[x^k] where conditional(k, b) is E[x^k | b]
// and b has the Laplace mean mb and variance vb.
func laplaceMoments(conditional func(k, b float64) float64, mb, vb float64) func(k float64) float64 {
	return func(k float64) float64 {
		if m := conditional(k, mb); math.IsInf(m, 1) {
			return m
		}
		return laplaceExpectation(func(b float64) float64 { return conditional(k, b) }, mb, vb)
	}
}

// project moment matches the marginal of y = x^p, given k ↦ E[x^k], and
// divides out prior. Moments are matched over x except for an inverse
// Gamma prior with shape <= 2, which has no variance over y; there the
// mean of y and its variance over mean² are matched instead, and an
// infinite variance gives shape 2.
func (o GammaPowerProductOpLaplace) project(op string, moment func(k float64) float64, prior distribution.GammaPower, cfg Config) (distribution.GammaPower, error) {
	var marginal distribution.GammaPower
	if p := prior.Power; p == -1 && prior.Shape <= 2 {
		m1, m2 := moment(p), moment(2*p)
		if !(m1 > 0) || math.IsInf(m1, 1) {
			return distribution.GammaPower{}, errors.Wrapf(ErrNumerical,
				"%s: mean %v", op, m1)
		}
		variance := m2 - m1*m1
		switch {
		case math.IsInf(m2, 1):
			marginal = distribution.InverseGammaFromMeanAndVarianceOverMeanSquared(m1, math.Inf(1))
		case !(variance > 0):
			return distribution.GammaPower{}, errors.Wrapf(ErrNumerical,
				"%s: moments (%v, %v)", op, m1, variance)
		default:
			marginal = distribution.GammaPowerFromMeanAndVariance(m1, variance, p)
		}
	} else {
		m1, m2 := moment(1), moment(2)
		variance := m2 - m1*m1
		if !(m1 > 0) || !(variance > 0) {
			return distribution.GammaPower{}, errors.Wrapf(ErrNumerical,
				"%s: moments (%v, %v)", op, m1, variance)
		}
		marginal = distribution.GammaPowerFromGamma(
			distribution.GammaFromMeanAndVariance(m1, variance), prior.Power)
	}
	result, err := marginal.Ratio(prior, cfg.ForceProper)
	if err != nil {
		return distribution.GammaPower{}, errors.Wrap(err, op)
	}
	if err := checkFinite(op, result.Shape, result.Rate); err != nil {
		return distribution.GammaPower{}, err
	}
	return result, nil
}

// AAverageConditional returns the EP message to A.
func (o GammaPowerProductOpLaplace) AAverageConditional(product, A, B distribution.GammaPower, q distribution.Gamma) (distribution.GammaPower, error) {
	cfg := o.withDefaults()

	if err := checkPowers("aAverageConditional", product, A, B); err != nil {
		return distribution.GammaPower{}, err
	}
	p := A.Power
	switch {
	case B.IsPointMass():
		msg, err := GammaProductOp{}.AAverageConditionalPower(product, B.Point())
		return msg, errors.Wrap(err, "aAverageConditional")
	case A.IsPointMass():
		a := A.Point()
		d := o.Dlogfs(a, product, B)
		return distribution.GammaPowerFromDerivatives(a, d.DLogF, d.DDLogF, p, cfg.ForceProper), nil
	case product.IsUniform() || B.IsUniform():
		return distribution.GammaPowerUniform(p), nil
	case A.Shape > B.Shape:
		swapped, err := o.Q(product, B, A)
		if err != nil {
			return distribution.GammaPower{}, errors.Wrap(err, "aAverageConditional")
		}
		return o.BAverageConditional(product, B, A, swapped)
	}

	mb, vb, err := o.posteriorB(product, A, B, q)
	if err != nil {
		return distribution.GammaPower{}, errors.Wrap(err, "aAverageConditional")
	}

	if product.IsPointMass() {
		// a = y/b
		yq := math.Pow(product.Point(), 1/p)
		moment := laplaceMoments(func(k, b float64) float64 {
			return math.Pow(yq*math.Pow(b, -1/p), k)
		}, mb, vb)
		return o.project("aAverageConditional", moment, A, cfg)
	}

	// Given b, a^(1/p) ~ Ga(t, rA + ry·b^(1/p)).
	t := product.Shape + A.Shape - p
	moment := laplaceMoments(func(k, b float64) float64 {
		return gammaMeanPower(t, A.Rate+product.Rate*math.Pow(b, 1/p), k)
	}, mb, vb)
	return o.project("aAverageConditional", moment, A, cfg)
}

// BAverageConditional returns the EP message to B.
func (o GammaPowerProductOpLaplace) BAverageConditional(product, A, B distribution.GammaPower, q distribution.Gamma) (distribution.GammaPower, error) {
	cfg := o.withDefaults()

	if err := checkPowers("bAverageConditional", product, A, B); err != nil {
		return distribution.GammaPower{}, err
	}
	p := B.Power
	switch {
	case A.IsPointMass():
		msg, err := GammaProductOp{}.AAverageConditionalPower(product, A.Point())
		return msg, errors.Wrap(err, "bAverageConditional")
	case B.IsPointMass():
		b := B.Point()
		d := o.Dlogfs(b, product, A)
		return distribution.GammaPowerFromDerivatives(b, d.DLogF, d.DDLogF, p, cfg.ForceProper), nil
	case product.IsUniform() || A.IsUniform():
		return distribution.GammaPowerUniform(p), nil
	case A.Shape > B.Shape:
		swapped, err := o.Q(product, B, A)
		if err != nil {
			return distribution.GammaPower{}, errors.Wrap(err, "bAverageConditional")
		}
		return o.AAverageConditional(product, B, A, swapped)
	}

	mb, vb, err := o.posteriorB(product, A, B, q)
	if err != nil {
		return distribution.GammaPower{}, errors.Wrap(err, "bAverageConditional")
	}
	moment := laplaceMoments(func(k, b float64) float64 { return math.Pow(b, k/p) }, mb, vb)
	return o.project("bAverageConditional", moment, B, cfg)
}

// ProductAverageConditional returns the EP message to product. When the
// product is uniform or observed this is the moment matched distribution
// of a·b.
func (o GammaPowerProductOpLaplace) ProductAverageConditional(product, A, B distribution.GammaPower, q distribution.Gamma) (distribution.GammaPower, error) {
	cfg := o.withDefaults()

	if err := checkPowers("productAverageConditional", product, A, B); err != nil {
		return distribution.GammaPower{}, err
	}
	p := product.Power
	switch {
	case A.IsPointMass():
		return GammaProductOp{}.ProductAverageConditionalPower(B, A.Point()), nil
	case B.IsPointMass():
		return GammaProductOp{}.ProductAverageConditionalPower(A, B.Point()), nil
	case math.IsInf(A.Rate, 1) || math.IsInf(B.Rate, 1):
		// One factor has all of its mass at zero.
		return distribution.GammaPowerPointMass(math.Pow(0, p), p), nil
	case A.IsUniform() || B.IsUniform():
		return distribution.GammaPowerUniform(p), nil
	case product.IsUniform() || product.IsPointMass():
		return o.predictive(product, A, B, cfg)
	case A.Shape > B.Shape:
		swapped, err := o.Q(product, B, A)
		if err != nil {
			return distribution.GammaPower{}, errors.Wrap(err, "productAverageConditional")
		}
		return o.ProductAverageConditional(product, B, A, swapped)
	}

	mb, vb, err := o.posteriorB(product, A, B, q)
	if err != nil {
		return distribution.GammaPower{}, errors.Wrap(err, "productAverageConditional")
	}

	// y^(1/p) = a^(1/p)·b^(1/p) and a^(1/p) given b is Gamma.
	t := product.Shape + A.Shape - p
	moment := laplaceMoments(func(k, b float64) float64 {
		return math.Pow(b, k/p) * gammaMeanPower(t, A.Rate+product.Rate*math.Pow(b, 1/p), k)
	}, mb, vb)
	return o.project("productAverageConditional", moment, product, cfg)
}

// predictive returns the moment matched distribution of a·b for
// independent A and B.
func (o GammaPowerProductOpLaplace) predictive(product, A, B distribution.GammaPower, cfg Config) (distribution.GammaPower, error) {
	if !A.IsProper() || !B.IsProper() {
		return distribution.GammaPower{}, errors.Wrap(ErrImproperMessage,
			"productAverageConditional: improper factor")
	}
	xa, xb := A.ToGamma(), B.ToGamma()
	moment := func(k float64) float64 { return xa.GetMeanPower(k) * xb.GetMeanPower(k) }
	if product.IsPointMass() {
		// Nothing to divide out of an observed product.
		product = distribution.GammaPowerUniform(product.Power)
	}
	return o.project("productAverageConditional", moment, product, cfg)
}

// LogAverageFactor returns the Laplace estimate of
// log ∫∫ A(a)·B(b)·product(a·b) da db.
func (o GammaPowerProductOpLaplace) LogAverageFactor(product, A, B distribution.GammaPower, q distribution.Gamma) (float64, error) {
	if err := checkPowers("logAverageFactor", product, A, B); err != nil {
		return math.NaN(), err
	}
	p := product.Power
	switch {
	case A.IsPointMass():
		return GammaProductOp{}.ProductAverageConditionalPower(B, A.Point()).GetLogAverageOf(product), nil
	case B.IsPointMass():
		return GammaProductOp{}.ProductAverageConditionalPower(A, B.Point()).GetLogAverageOf(product), nil
	case product.IsUniform() || A.IsUniform() || B.IsUniform():
		return 0, nil
	case A.Shape > B.Shape:
		swapped, err := o.Q(product, B, A)
		if err != nil {
			return math.NaN(), errors.Wrap(err, "logAverageFactor")
		}
		return o.LogAverageFactor(product, B, A, swapped)
	}

	b := q.GetMode()
	if !(b > 0) {
		return math.NaN(), errors.Wrapf(ErrNumerical, "logAverageFactor: buffer %v", q)
	}

	var logf float64
	if product.IsPointMass() {
		logf = A.GetLogProb(product.Point()/b) - math.Log(b)
	} else {
		t := product.Shape + A.Shape - p
		logf = math.Log(math.Abs(p)) + special.GammaLn(t) -
			product.GetLogNormalizer() - A.GetLogNormalizer() +
			(product.Shape/p-1)*math.Log(b) -
			t*math.Log(A.Rate+product.Rate*math.Pow(b, 1/p))
	}
	d := addDerivatives(gammaPowerDerivatives(B, b), o.Dlogfs(b, product, A))
	if !(d.DDLogF < 0) {
		return math.NaN(), errors.Wrapf(ErrNumerical, "logAverageFactor: curvature %v",
			d.DDLogF)
	}
	return laplaceLogIntegral(B.GetLogProb(b)+logf, d.DDLogF), nil
}

// LogEvidenceRatio returns the evidence contribution of the factor. An
// observed product contributes its log average factor.
func (o GammaPowerProductOpLaplace) LogEvidenceRatio(product, A, B distribution.GammaPower, q distribution.Gamma, toProduct distribution.GammaPower) (float64, error) {
	logZ, err := o.LogAverageFactor(product, A, B, q)
	if err != nil {
		return math.NaN(), errors.Wrap(err, "logEvidenceRatio")
	}
	if product.IsPointMass() {
		return logZ, nil
	}
	return logZ - toProduct.GetLogAverageOf(product), nil
}
