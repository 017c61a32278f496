package extract

import (
	"context"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// NewtonSolver is the built-in numeric root-solving backend: damped Newton
// iteration on the polynomial gradient, multi-started from a coarse grid
// over the (slack-expanded) domain. Approximate and possibly incomplete,
// which the extractor contract allows.
type NewtonSolver struct {
	// StartsPerAxis controls the multi-start grid density.
	StartsPerAxis int
	// MaxIterations bounds each Newton run.
	MaxIterations int
	// ResidualTol is the gradient-norm convergence threshold.
	ResidualTol float64
	// StepTol terminates a run whose updates have stalled.
	StepTol float64
	// Jitter perturbs grid starts to avoid symmetry traps; Seed makes the
	// perturbation reproducible.
	Jitter float64
	Seed   int64
}

// NewNewtonSolver returns a solver with the default budgets.
func NewNewtonSolver() *NewtonSolver {
	return &NewtonSolver{
		StartsPerAxis: 4,
		MaxIterations: 60,
		ResidualTol:   1e-10,
		StepTol:       1e-13,
		Jitter:        0.05,
		Seed:          1,
	}
}

// Solve runs damped Newton from every start point and returns the distinct
// converged roots. Duplicates are left to the duplicate resolver; only
// exact repeats from neighboring starts are collapsed here.
func (s *NewtonSolver) Solve(ctx context.Context, sys *System) ([]Root, error) {
	cfg := *s
	if cfg.StartsPerAxis <= 0 {
		cfg.StartsPerAxis = 4
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 60
	}
	if cfg.ResidualTol <= 0 {
		cfg.ResidualTol = 1e-10
	}
	if cfg.StepTol <= 0 {
		cfg.StepTol = 1e-13
	}

	dim := sys.Dim()
	rng := rand.New(rand.NewSource(cfg.Seed))
	starts := cfg.startPoints(sys, rng)

	var roots []Root
	for _, x0 := range starts {
		if err := ctx.Err(); err != nil {
			return roots, err
		}
		x, ok := cfg.newton(sys, x0)
		if !ok {
			continue
		}
		if duplicateRoot(roots, x) {
			continue
		}
		roots = append(roots, Root{
			Real: x,
			Imag: make([]float64, dim),
		})
	}
	return roots, nil
}

func (s *NewtonSolver) startPoints(sys *System, rng *rand.Rand) [][]float64 {
	dim := sys.Dim()
	domain := sys.Domain
	per := s.StartsPerAxis

	// Equally spaced interior points on each axis, jittered.
	axisVals := make([][]float64, dim)
	for axis := 0; axis < dim; axis++ {
		axisVals[axis] = make([]float64, per)
		for i := 0; i < per; i++ {
			u := -1 + (2*float64(i)+1)/float64(per)
			u += s.Jitter * (2*rng.Float64() - 1) / float64(per)
			axisVals[axis][i] = domain.Center[axis] + u*domain.HalfWidth[axis]
		}
	}

	total := 1
	for i := 0; i < dim; i++ {
		total *= per
	}
	starts := make([][]float64, 0, total)
	ix := make([]int, dim)
	for n := 0; n < total; n++ {
		x := make([]float64, dim)
		for axis := 0; axis < dim; axis++ {
			x[axis] = axisVals[axis][ix[axis]]
		}
		starts = append(starts, x)

		for axis := dim - 1; axis >= 0; axis-- {
			ix[axis]++
			if ix[axis] < per {
				break
			}
			ix[axis] = 0
		}
	}
	return starts
}

// newton iterates x <- x - H(x)^{-1} g(x) with step damping and a
// singular-Hessian fallback to scaled gradient descent on |g|².
func (s *NewtonSolver) newton(sys *System, x0 []float64) ([]float64, bool) {
	dim := sys.Dim()
	x := append([]float64(nil), x0...)
	step := mat.NewVecDense(dim, nil)

	for iter := 0; iter < s.MaxIterations; iter++ {
		grad := sys.Poly.Gradient(x)
		gnorm := floats.Norm(grad, 2)
		if gnorm < s.ResidualTol {
			return x, true
		}
		if !allFinite(grad) {
			return nil, false
		}

		hess := sys.Poly.Hessian(x)
		neg := mat.NewVecDense(dim, grad)
		neg.ScaleVec(-1, neg)

		if err := step.SolveVec(hess, neg); err != nil || !vecFinite(step) {
			// Singular Hessian: fall back to a small gradient step.
			for i := 0; i < dim; i++ {
				step.SetVec(i, -grad[i]/(1+gnorm))
			}
		}

		// Damp: halve the step until the residual no longer grows.
		lambda := 1.0
		improved := false
		trial := make([]float64, dim)
		for k := 0; k < 8; k++ {
			for i := 0; i < dim; i++ {
				trial[i] = x[i] + lambda*step.AtVec(i)
			}
			if floats.Norm(sys.Poly.Gradient(trial), 2) < gnorm {
				improved = true
				break
			}
			lambda /= 2
		}
		if !improved {
			// Take the smallest step anyway; stalling is caught below.
			for i := 0; i < dim; i++ {
				trial[i] = x[i] + lambda*step.AtVec(i)
			}
		}

		moved := 0.0
		for i := 0; i < dim; i++ {
			moved += (trial[i] - x[i]) * (trial[i] - x[i])
		}
		copy(x, trial)
		if math.Sqrt(moved) < s.StepTol {
			return x, floats.Norm(sys.Poly.Gradient(x), 2) < math.Sqrt(s.ResidualTol)
		}

		// Diverging away from any reasonable neighborhood of the domain.
		if !sys.Domain.Contains(x, 4) {
			return nil, false
		}
	}

	if floats.Norm(sys.Poly.Gradient(x), 2) < s.ResidualTol {
		return x, true
	}
	return nil, false
}

func duplicateRoot(roots []Root, x []float64) bool {
	for _, r := range roots {
		if floats.Distance(r.Real, x, 2) < 1e-9 {
			return true
		}
	}
	return false
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func vecFinite(v *mat.VecDense) bool {
	for i := 0; i < v.Len(); i++ {
		x := v.AtVec(i)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
