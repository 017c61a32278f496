package extract

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-critical-point/internal/approx"
	"github.com/Veraticus/the-critical-point/internal/common"
	"github.com/Veraticus/the-critical-point/internal/model"
	"github.com/Veraticus/the-critical-point/internal/objective"
)

// fitQuadratic fits x ↦ xᵀAx + c on the given domain; the stationarity
// system then has a single root at the origin.
func fitQuadratic(t *testing.T, domain model.DomainSpec) (*approx.Polynomial, objective.Func) {
	t.Helper()
	f := objective.Quadratic([]float64{2, 0.5, 0.5, 1}, 2)
	poly, err := approx.Approximate(context.Background(), f, domain, approx.Config{
		InitialDegree: 2,
		MaxDegree:     2,
	})
	require.NoError(t, err)
	require.True(t, poly.ToleranceMet)
	return poly, f
}

func TestNewtonSolver_FindsStationaryPoint(t *testing.T) {
	domain := model.NewDomainSpec([]float64{0, 0}, 2)
	poly, _ := fitQuadratic(t, domain)

	roots, err := NewNewtonSolver().Solve(context.Background(), &System{Poly: poly, Domain: domain})
	require.NoError(t, err)
	require.NotEmpty(t, roots)

	found := false
	for _, r := range roots {
		if math.Abs(r.Real[0]) < 1e-6 && math.Abs(r.Real[1]) < 1e-6 {
			found = true
		}
	}
	assert.True(t, found, "origin must be among the roots: %v", roots)
}

func TestNewtonSolver_XYWellCriticalPoints(t *testing.T) {
	domain := model.NewDomainSpec([]float64{0, 0}, 1.5)
	f := func(x []float64) float64 { return objective.XYWell(x[0], x[1]) }

	poly, err := approx.Approximate(context.Background(), f, domain, approx.Config{
		InitialDegree: 8,
		MaxDegree:     12,
		Tolerance:     1e-7,
	})
	require.NoError(t, err)

	roots, err := NewNewtonSolver().Solve(context.Background(), &System{Poly: poly, Domain: domain})
	require.NoError(t, err)

	s := objective.WellScale
	// The two minima of the well must appear among the stationary points of
	// a good fit, to within approximation error.
	for _, want := range [][]float64{{s, -s}, {-s, s}} {
		found := false
		for _, r := range roots {
			d := math.Hypot(r.Real[0]-want[0], r.Real[1]-want[1])
			if d < 0.05 {
				found = true
				break
			}
		}
		assert.True(t, found, "no root near %v in %v", want, roots)
	}
}

func TestExtractor_FiltersAndEvaluates(t *testing.T) {
	domain := model.NewDomainSpec([]float64{0, 0}, 1)
	poly, f := fitQuadratic(t, domain)

	stub := &stubSolver{roots: []Root{
		{Real: []float64{0.5, 0.5}, Imag: []float64{0, 0}},     // kept
		{Real: []float64{0.2, -0.1}, Imag: []float64{0, 1e-3}}, // imaginary
		{Real: []float64{3, 0}, Imag: []float64{0, 0}},         // out of domain
		{Real: []float64{1.05, 0}, Imag: []float64{1e-12, 0}},  // inside 10% slack
	}}

	ex := New(stub, DefaultConfig())
	candidates, err := ex.Extract(context.Background(), f, poly, domain)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, []float64{0.5, 0.5}, candidates[0].X)
	assert.InDelta(t, f([]float64{0.5, 0.5}), candidates[0].RawValue, 1e-12)
	assert.Equal(t, []float64{1.05, 0}, candidates[1].X)
}

func TestExtractor_SolverFailureWrapped(t *testing.T) {
	domain := model.NewDomainSpec([]float64{0, 0}, 1)
	poly, f := fitQuadratic(t, domain)

	ex := New(&stubSolver{err: errors.New("kaboom")}, DefaultConfig())
	_, err := ex.Extract(context.Background(), f, poly, domain)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSolverFailure)
}

type stubSolver struct {
	roots []Root
	err   error
}

func (s *stubSolver) Solve(_ context.Context, _ *System) ([]Root, error) {
	return s.roots, s.err
}
