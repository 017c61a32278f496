// Package extract turns a fitted polynomial into in-domain critical-point
// candidates by solving its stationarity system and filtering the raw
// solver output.
package extract

import (
	"context"

	"github.com/Veraticus/the-critical-point/internal/approx"
	"github.com/Veraticus/the-critical-point/internal/model"
)

// Root is one raw solution of a stationarity system. Components may be
// complex; Imag is all zeros for purely numeric backends.
type Root struct {
	Real []float64
	Imag []float64
}

// System is the stationarity system of a fitted polynomial: one gradient
// component set to zero per dimension. Solvers read it through the
// polynomial's analytic gradient and Hessian.
type System struct {
	Poly   *approx.Polynomial
	Domain model.DomainSpec
}

// Dim returns the number of equations (and unknowns).
func (s *System) Dim() int {
	return s.Poly.Dim()
}

// RootSolver is the external root-solving contract. Numeric (approximate,
// possibly incomplete) and exact (symbolic, guaranteed-complete) backends
// both conform; the extractor filters either kind the same way.
type RootSolver interface {
	Solve(ctx context.Context, sys *System) ([]Root, error)
}
