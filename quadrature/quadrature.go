// Package quadrature provides the numerical integration and optimisation
// routines used to compute messages that have no closed form.
package quadrature

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/integrate/quad"
)

// ErrNotConverged is returned when an adaptive rule exhausts its node
// budget before meeting the requested tolerance.
var ErrNotConverged = errors.New("quadrature: did not converge")

// maxClenshawCurtisNodes bounds the doubling in AdaptiveClenshawCurtis.
const maxClenshawCurtisNodes = 4096

// GaussianNodesAndWeights fills nodes and weights so that
// Σ weights[i]·g(nodes[i]) approximates E[g(x)] for x ~ N(mean, variance).
// The rule is exact for polynomials of degree below 2*len(nodes).
func GaussianNodesAndWeights(mean, variance float64, nodes, weights []float64) {
	quad.Hermite{}.FixedLocations(nodes, weights, math.Inf(-1), math.Inf(1))

	scale := math.Sqrt(2 * variance)
	for i := range nodes {
		nodes[i] = mean + scale*nodes[i]
		weights[i] /= math.SqrtPi
	}
}

// LegendreNodesAndWeights fills nodes and weights with the Gauss-Legendre
// rule on the finite interval [lo, hi].
func LegendreNodesAndWeights(lo, hi float64, nodes, weights []float64) {
	quad.Legendre{}.FixedLocations(nodes, weights, lo, hi)
}

// Integrate returns the n-point Gauss-Legendre estimate of ∫ f over the
// finite interval [lo, hi].
func Integrate(f func(float64) float64, lo, hi float64, n int) float64 {
	return quad.Fixed(f, lo, hi, n, quad.Legendre{}, 0)
}

// AdaptiveClenshawCurtis integrates f over the real line. The substitution
// x = scale·t/(1-t²) maps (-1, 1) onto the line, so scale should be
// comparable to the width of the integrand. The node count is doubled,
// starting from nodeCount, until two successive estimates agree to within
// relTol.
func AdaptiveClenshawCurtis(f func(float64) float64, scale float64,
	nodeCount int, relTol float64) (float64, error) {
	if !(scale > 0) || math.IsInf(scale, 1) {
		return math.NaN(), errors.Errorf("adaptiveClenshawCurtis: invalid "+
			"scale %v", scale)
	}

	n := nodeCount
	if n < 2 {
		n = 2
	}
	if n%2 == 1 {
		n++
	}

	prev := math.NaN()
	for ; n <= maxClenshawCurtisNodes; n *= 2 {
		t, w := clenshawCurtis(n)

		// The endpoints map to ±∞ where the integrand vanishes.
		var sum float64
		for k := 1; k < n; k++ {
			d := 1 - t[k]*t[k]
			x := scale * t[k] / d
			fx := f(x)
			if fx == 0 {
				continue
			}
			if math.IsNaN(fx) || math.IsInf(fx, 0) {
				return math.NaN(), errors.Errorf("adaptiveClenshawCurtis: "+
					"integrand is %v at %v", fx, x)
			}
			sum += w[k] * fx * scale * (1 + t[k]*t[k]) / (d * d)
		}

		if math.Abs(sum-prev) <= relTol*math.Abs(sum) {
			return sum, nil
		}
		prev = sum
	}

	return prev, errors.Wrapf(ErrNotConverged, "adaptiveClenshawCurtis: "+
		"%d nodes", maxClenshawCurtisNodes)
}

// clenshawCurtis returns the n+1 Clenshaw-Curtis nodes and weights on
// [-1, 1]. n must be even.
func clenshawCurtis(n int) (nodes, weights []float64) {
	nodes = make([]float64, n+1)
	weights = make([]float64, n+1)

	for k := 0; k <= n; k++ {
		theta := float64(k) * math.Pi / float64(n)
		nodes[k] = math.Cos(theta)

		var s float64
		for j := 1; j <= n/2; j++ {
			b := 2.0
			if 2*j == n {
				b = 1
			}
			s += b / float64(4*j*j-1) * math.Cos(2*float64(j)*theta)
		}

		c := 2.0
		if k == 0 || k == n {
			c = 1
		}
		weights[k] = c / float64(n) * (1 - s)
	}

	return nodes, weights
}
