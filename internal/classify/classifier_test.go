package classify

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-critical-point/internal/deriv"
	"github.com/Veraticus/the-critical-point/internal/model"
	"github.com/Veraticus/the-critical-point/internal/objective"
)

func refined(x ...float64) *model.RefinedPoint {
	return &model.RefinedPoint{X: x, Converged: true}
}

func TestClassify_PositiveDefiniteIsMinimum(t *testing.T) {
	c := New(deriv.NewFiniteDifference(), 0)

	// A = [[2,1],[1,3]] is positive-definite, so xᵀAx classifies as a
	// minimum at every sampled point.
	f := objective.Quadratic([]float64{2, 1, 1, 3}, 2)

	for _, x := range [][]float64{{0, 0}, {1, -1}, {0.3, 2}} {
		res := c.Classify(f, refined(x...))
		require.Equal(t, model.TypeMinimum, res.Type, "at %v", x)
		assert.Greater(t, res.EigMin, 0.0)
		assert.Greater(t, res.EigMax, 0.0)
		assert.InDelta(t, res.EigMin, res.BoundaryEigenvalue, 1e-12)
	}
}

func TestClassify_Maximum(t *testing.T) {
	c := New(deriv.NewFiniteDifference(), 0)
	f := func(x []float64) float64 { return -(2*x[0]*x[0] + 3*x[1]*x[1]) }

	res := c.Classify(f, refined(0, 0))
	require.Equal(t, model.TypeMaximum, res.Type)
	assert.Less(t, res.EigMax, 0.0)
	// Largest negative eigenvalue is the boundary signal for maxima.
	assert.InDelta(t, res.EigMax, res.BoundaryEigenvalue, 1e-6)
}

func TestClassify_Saddle(t *testing.T) {
	c := New(deriv.NewFiniteDifference(), 0)
	f := func(x []float64) float64 { return x[0]*x[0] - x[1]*x[1] }

	res := c.Classify(f, refined(0, 0))
	require.Equal(t, model.TypeSaddle, res.Type)
	assert.Less(t, res.EigMin, 0.0)
	assert.Greater(t, res.EigMax, 0.0)
	assert.True(t, math.IsNaN(res.BoundaryEigenvalue))
}

func TestClassify_Degenerate(t *testing.T) {
	c := New(deriv.NewFiniteDifference(), 1e-6)
	// Flat along x2: one eigenvalue is numerically zero.
	f := func(x []float64) float64 { return x[0] * x[0] }

	res := c.Classify(f, refined(0, 0))
	assert.Equal(t, model.TypeDegenerate, res.Type)
}

func TestClassify_WellCriticalPoints(t *testing.T) {
	c := New(deriv.NewFiniteDifference(), 0)
	f := func(x []float64) float64 { return objective.XYWell(x[0], x[1]) }
	s := objective.WellScale

	tests := []struct {
		name string
		x    []float64
		want model.CriticalPointType
	}{
		{"minimum at (s,-s)", []float64{s, -s}, model.TypeMinimum},
		{"minimum at (-s,s)", []float64{-s, s}, model.TypeMinimum},
		{"maximum at (s,s)", []float64{s, s}, model.TypeMaximum},
		{"saddle at origin", []float64{0, 0}, model.TypeSaddle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.Classify(f, refined(tt.x...))
			assert.Equal(t, tt.want, res.Type)
		})
	}
}

func TestClassify_Diagnostics(t *testing.T) {
	c := New(deriv.NewFiniteDifference(), 0)

	// Hessian of xᵀAx is 2A = [[4,0],[0,2]]: eigenvalues 4 and 2.
	f := objective.Quadratic([]float64{2, 0, 0, 1}, 2)
	res := c.Classify(f, refined(0.5, 0.5))

	assert.InDelta(t, 2, res.EigMin, 1e-4)
	assert.InDelta(t, 4, res.EigMax, 1e-4)
	assert.InDelta(t, 2, res.ConditionNumber, 1e-4)
	assert.InDelta(t, 8, res.Determinant, 1e-3)
	assert.InDelta(t, 6, res.Trace, 1e-3)
	assert.InDelta(t, math.Sqrt(16+4), res.FrobeniusNorm, 1e-3)
}

func TestClassify_HessianFailureYieldsErrorType(t *testing.T) {
	c := New(deriv.NewFiniteDifference(), 0)
	f := func(x []float64) float64 {
		if x[0] != 0.25 || x[1] != 0.25 {
			return math.NaN()
		}
		return 0
	}

	res := c.Classify(f, refined(0.25, 0.25))
	assert.Equal(t, model.TypeError, res.Type)
	assert.True(t, math.IsNaN(res.EigMin))
	assert.True(t, math.IsNaN(res.ConditionNumber))
	assert.True(t, math.IsNaN(res.Determinant))
	// The point survives classification failure.
	require.NotNil(t, res.Point)
}

func TestDecide_PureRule(t *testing.T) {
	tests := []struct {
		name string
		eig  []float64
		tol  float64
		want model.CriticalPointType
	}{
		{"all positive", []float64{0.1, 2, 5}, 1e-8, model.TypeMinimum},
		{"all negative", []float64{-4, -1}, 1e-8, model.TypeMaximum},
		{"mixed signs", []float64{-1, 3}, 1e-8, model.TypeSaddle},
		{"near-zero eigenvalue", []float64{1e-12, 1}, 1e-8, model.TypeDegenerate},
		{"tolerance boundary", []float64{1e-8, 1}, 1e-8, model.TypeDegenerate},
		{"just above tolerance", []float64{2e-8, 1}, 1e-8, model.TypeMinimum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decide(tt.eig, tt.tol))
		})
	}
}
