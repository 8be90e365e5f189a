package factor

import (
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/samuelfneumann/factor/distribution"
)

func TestDoublePlusSum(t *testing.T) {
	op := DoublePlusOp{}

	tests := []struct {
		a, b distribution.Gaussian
		want distribution.Gaussian
	}{
		{
			distribution.NewGaussian(2, 1),
			distribution.NewGaussian(3, 2),
			distribution.NewGaussian(5, 3),
		},
		{
			distribution.GaussianPointMass(2),
			distribution.NewGaussian(3, 2),
			distribution.NewGaussian(5, 2),
		},
		{
			distribution.GaussianPointMass(2),
			distribution.GaussianPointMass(-0.5),
			distribution.GaussianPointMass(1.5),
		},
		{
			distribution.GaussianUniform(),
			distribution.NewGaussian(3, 2),
			distribution.GaussianUniform(),
		},
	}

	for _, test := range tests {
		got := op.SumAverageConditional(test.a, test.b)
		if test.want.IsUniform() {
			if !got.IsUniform() {
				t.Errorf("sumAverageConditional(%v, %v): expected uniform, got %v",
					test.a, test.b, got)
			}
			continue
		}
		if !sameGaussian(got, test.want, threshold) {
			t.Errorf("sumAverageConditional(%v, %v): expected %v, got %v",
				test.a, test.b, test.want, got)
		}
	}

	got := op.SumAverageConditionalPoint(distribution.NewGaussian(3, 2), 2)
	if !sameGaussian(got, distribution.NewGaussian(5, 2), threshold) {
		t.Errorf("expected N(5, 2), got %v", got)
	}
}

func TestDoublePlusSymmetry(t *testing.T) {
	op := DoublePlusOp{}
	sum := distribution.NewGaussian(4, 0.5)
	a := distribution.NewGaussian(2, 1)
	b := distribution.NewGaussian(3, 2)

	toA := op.AAverageConditional(sum, b)
	if !sameGaussian(toA, distribution.NewGaussian(1, 2.5), threshold) {
		t.Errorf("aAverageConditional: expected N(1, 2.5), got %v", toA)
	}
	if toB := op.BAverageConditional(sum, a); toB != op.AAverageConditional(sum, a) {
		t.Errorf("bAverageConditional %v differs from swapped aAverageConditional", toB)
	}

	toA = op.AAverageConditionalPoint(4, b)
	if !sameGaussian(toA, distribution.NewGaussian(1, 2), threshold) {
		t.Errorf("aAverageConditionalPoint: expected N(1, 2), got %v", toA)
	}
	if toA := op.AAverageConditionalPoint(4, distribution.GaussianPointMass(3)); !toA.IsPointMass() ||
		toA.Point() != 1 {
		t.Errorf("expected Gaussian.PointMass(1), got %v", toA)
	}
}

func TestDoublePlusEvidence(t *testing.T) {
	op := DoublePlusOp{}
	sum := distribution.NewGaussian(4, 0.5)
	a := distribution.NewGaussian(2, 1)
	b := distribution.NewGaussian(3, 2)

	// a + b - sum ~ N(1, 3.5) evaluated at 0.
	want := -0.5*math.Log(2*math.Pi*3.5) - 1/(2*3.5)
	if got := op.LogAverageFactor(sum, a, b); !closeTo(got, want, threshold) {
		t.Errorf("logAverageFactor: expected %v, got %v", want, got)
	}

	toSum := op.SumAverageConditional(a, b)
	if got := op.LogEvidenceRatio(sum, a, b, toSum); got != op.LogAverageFactor(sum, a, b)-
		toSum.GetLogAverageOf(sum) {
		t.Errorf("logEvidenceRatio %v is not logAverageFactor minus the sum normalizer", got)
	}

	want = distribution.NewGaussian(5, 3).GetLogProb(4)
	if got := op.LogEvidenceRatioPoint(4, a, b); !closeTo(got, want, threshold) {
		t.Errorf("logEvidenceRatioPoint: expected %v, got %v", want, got)
	}
}

func TestDoublePlusVMP(t *testing.T) {
	op := DoublePlusOp{}
	sum := distribution.NewGaussian(4, 0.5)
	b := distribution.NewGaussian(3, 2)

	toA, err := op.AAverageLogarithm(sum, b)
	if err != nil {
		t.Fatal(err)
	}
	if !sameGaussian(toA, distribution.NewGaussian(1, 0.5), threshold) {
		t.Errorf("aAverageLogarithm: expected N(1, 0.5), got %v", toA)
	}

	_, err = op.AAverageLogarithm(distribution.GaussianPointMass(4), b)
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}
	_, err = op.BAverageLogarithm(distribution.GaussianPointMass(4), b)
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("expected ErrNotSupported, got %v", err)
	}

	toA, err = op.AAverageLogarithm(distribution.GaussianPointMass(4), distribution.GaussianPointMass(3))
	if err != nil || !toA.IsPointMass() || toA.Point() != 1 {
		t.Errorf("expected Gaussian.PointMass(1), got %v, %v", toA, err)
	}
}
