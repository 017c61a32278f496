// Package deriv defines the differentiation contract consumed by the
// refiner and classifier, with a finite-difference default backend. Exact
// automatic-differentiation engines plug in behind the same interface.
package deriv

import (
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/Veraticus/the-critical-point/internal/objective"
)

// Differentiator supplies gradients and Hessians of an objective. The
// pipeline treats implementations as pure and re-entrant; one instance is
// shared read-only across all workers.
type Differentiator interface {
	Gradient(f objective.Func, x []float64) []float64
	Hessian(f objective.Func, x []float64) *mat.Dense
}

// FiniteDifference approximates derivatives with central differences. It is
// the default backend; step sizes of zero select gonum's defaults.
type FiniteDifference struct {
	GradStep    float64
	HessianStep float64
}

// NewFiniteDifference returns a finite-difference backend with default steps.
func NewFiniteDifference() *FiniteDifference {
	return &FiniteDifference{}
}

// Gradient computes the central-difference gradient of f at x.
func (d *FiniteDifference) Gradient(f objective.Func, x []float64) []float64 {
	grad := make([]float64, len(x))
	settings := &fd.Settings{Formula: fd.Central}
	if d.GradStep > 0 {
		settings.Step = d.GradStep
	}
	fd.Gradient(grad, f, x, settings)
	return grad
}

// Hessian computes the central-difference Hessian of f at x, returned as a
// dense matrix (symmetric by construction).
func (d *FiniteDifference) Hessian(f objective.Func, x []float64) *mat.Dense {
	n := len(x)
	sym := mat.NewSymDense(n, nil)
	var settings *fd.Settings
	if d.HessianStep > 0 {
		settings = &fd.Settings{Step: d.HessianStep}
	}
	fd.Hessian(sym, f, x, settings)

	dense := mat.NewDense(n, n, nil)
	dense.Copy(sym)
	return dense
}

// GradientNorm is a convenience returning the Euclidean norm of the
// gradient of f at x.
func GradientNorm(d Differentiator, f objective.Func, x []float64) float64 {
	return floats.Norm(d.Gradient(f, x), 2)
}
