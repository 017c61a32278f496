// Package refine runs tolerance-adaptive local optimization against the
// true objective, seeded at each surviving candidate.
package refine

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"github.com/Veraticus/the-critical-point/internal/deriv"
	"github.com/Veraticus/the-critical-point/internal/model"
	"github.com/Veraticus/the-critical-point/internal/objective"
)

// Config controls refinement behavior and budgets.
type Config struct {
	// PrecisionThreshold: candidates whose |raw value| falls below it get
	// the high-precision gradient tolerance, guarding against premature
	// convergence when the objective is near machine epsilon.
	PrecisionThreshold float64
	HighPrecisionTol   float64
	StandardTol        float64

	// MaxIterations bounds each optimizer run.
	MaxIterations int

	// TopK caps refinement to the best-valued candidates; zero refines all.
	TopK int

	// UltraPrecision enables the staged mode: after the standard run, up to
	// MaxStages further rounds with tolerances shrunk by ShrinkFactor,
	// stopping early once stage-to-stage improvement drops below
	// TargetPrecision.
	UltraPrecision  bool
	MaxStages       int
	ShrinkFactor    float64
	TargetPrecision float64

	// Polish runs one derivative-free simplex pass after the final
	// gradient-based stage, confined to a trust region proportional to the
	// point's magnitude.
	Polish           bool
	TrustRegionScale float64
}

// DefaultConfig returns the default refinement configuration.
func DefaultConfig() Config {
	return Config{
		PrecisionThreshold: 1e-6,
		HighPrecisionTol:   1e-12,
		StandardTol:        1e-8,
		MaxIterations:      200,
		MaxStages:          4,
		ShrinkFactor:       1e-2,
		TargetPrecision:    1e-14,
		TrustRegionScale:   1e-3,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PrecisionThreshold <= 0 {
		c.PrecisionThreshold = def.PrecisionThreshold
	}
	if c.HighPrecisionTol <= 0 {
		c.HighPrecisionTol = def.HighPrecisionTol
	}
	if c.StandardTol <= 0 {
		c.StandardTol = def.StandardTol
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = def.MaxIterations
	}
	if c.MaxStages <= 0 {
		c.MaxStages = def.MaxStages
	}
	if c.ShrinkFactor <= 0 || c.ShrinkFactor >= 1 {
		c.ShrinkFactor = def.ShrinkFactor
	}
	if c.TargetPrecision <= 0 {
		c.TargetPrecision = def.TargetPrecision
	}
	if c.TrustRegionScale <= 0 {
		c.TrustRegionScale = def.TrustRegionScale
	}
	return c
}

// gradientFloor keeps staged tolerances above what float64 can resolve.
const gradientFloor = 1e-15

// Refiner runs local optimization with an injected differentiator.
type Refiner struct {
	deriv deriv.Differentiator
	cfg   Config
}

// New creates a refiner.
func New(d deriv.Differentiator, cfg Config) *Refiner {
	return &Refiner{deriv: d, cfg: cfg.withDefaults()}
}

// Order sorts candidates by raw value (best first) and applies the TopK
// cap. Callers running their own parallel loop use it to bound cost the
// same way Refine does.
func (r *Refiner) Order(candidates []model.CandidatePoint) []model.CandidatePoint {
	sorted := append([]model.CandidatePoint(nil), candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RawValue < sorted[j].RawValue
	})
	if r.cfg.TopK > 0 && len(sorted) > r.cfg.TopK {
		sorted = sorted[:r.cfg.TopK]
	}
	return sorted
}

// Refine processes candidates in value order (best first), optionally
// capped to the top K. Non-convergence is recorded on the point, never
// returned as an error; a cancelled context stops between candidates.
func (r *Refiner) Refine(ctx context.Context, f objective.Func, candidates []model.CandidatePoint) []model.RefinedPoint {
	sorted := r.Order(candidates)

	out := make([]model.RefinedPoint, 0, len(sorted))
	for _, cand := range sorted {
		if ctx.Err() != nil {
			break
		}
		out = append(out, r.RefineOne(ctx, f, cand))
	}
	return out
}

// RefineOne refines a single candidate.
func (r *Refiner) RefineOne(ctx context.Context, f objective.Func, cand model.CandidatePoint) model.RefinedPoint {
	tol, reason := r.selectTolerance(cand.RawValue)

	rp := model.RefinedPoint{
		Subdomain:       cand.Subdomain,
		X:               append([]float64(nil), cand.X...),
		Value:           cand.RawValue,
		ToleranceUsed:   tol,
		ToleranceReason: reason,
	}

	x, val, converged := r.gradientStage(f, rp.X, tol, &rp)
	rp.X, rp.Value, rp.Converged = x, val, converged
	rp.Stages = 1

	if r.cfg.UltraPrecision && converged {
		r.ultraStages(ctx, f, &rp, tol)
	}
	if r.cfg.Polish {
		r.polish(f, &rp)
	}

	rp.GradientNorm = floats.Norm(r.deriv.Gradient(f, rp.X), 2)
	rp.Displacement = floats.Distance(rp.X, cand.X, 2)
	rp.Improvement = cand.RawValue - rp.Value

	if !rp.Converged {
		slog.Debug("Refinement did not converge, keeping best point",
			"subdomain", cand.Subdomain,
			"candidate", cand.X,
			"gradient_norm", rp.GradientNorm)
	}
	return rp
}

func (r *Refiner) selectTolerance(rawValue float64) (float64, model.ToleranceReason) {
	if math.Abs(rawValue) < r.cfg.PrecisionThreshold {
		return r.cfg.HighPrecisionTol, model.ToleranceHighPrecision
	}
	return r.cfg.StandardTol, model.ToleranceStandard
}

// gradientStage runs one bounded BFGS minimization from x0, accumulating
// evaluation counters onto rp. On optimizer failure the best iterate
// reached is still returned.
func (r *Refiner) gradientStage(f objective.Func, x0 []float64, gradTol float64, rp *model.RefinedPoint) (x []float64, value float64, converged bool) {
	problem := optimize.Problem{
		Func: f,
		Grad: func(grad, x []float64) {
			copy(grad, r.deriv.Gradient(f, x))
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: gradTol,
		MajorIterations:   r.cfg.MaxIterations,
		Converger:         optimize.NeverTerminate{},
	}

	result, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if result == nil {
		// Linesearch blew up on the very first evaluation; keep the seed.
		return append([]float64(nil), x0...), f(x0), false
	}

	rp.Iterations += result.Stats.MajorIterations
	rp.FuncEvals += result.Stats.FuncEvaluations
	rp.GradEvals += result.Stats.GradEvaluations

	converged = err == nil && result.Status == optimize.GradientThreshold
	return append([]float64(nil), result.X...), result.F, converged
}

// ultraStages escalates precision: each stage shrinks the gradient
// tolerance and restarts BFGS from the current best point. Values are
// monotone non-increasing because each stage starts where the last ended.
func (r *Refiner) ultraStages(ctx context.Context, f objective.Func, rp *model.RefinedPoint, tol float64) {
	for stage := 0; stage < r.cfg.MaxStages; stage++ {
		if ctx.Err() != nil {
			return
		}
		tol *= r.cfg.ShrinkFactor
		if tol < gradientFloor {
			tol = gradientFloor
		}

		prev := rp.Value
		x, val, converged := r.gradientStage(f, rp.X, tol, rp)
		if val <= rp.Value {
			rp.X, rp.Value = x, val
			rp.Converged = rp.Converged || converged
		}
		rp.Stages++
		rp.ToleranceUsed = tol
		rp.ToleranceReason = model.ToleranceStage

		if prev-rp.Value < r.cfg.TargetPrecision {
			return
		}
		if tol == gradientFloor {
			return
		}
	}
}

// polish runs one Nelder-Mead pass confined to a small trust region around
// the current best point, accepting the result only when it stays inside
// the region and strictly improves the value.
func (r *Refiner) polish(f objective.Func, rp *model.RefinedPoint) {
	dim := len(rp.X)
	mag := floats.Norm(rp.X, 2)
	if mag < 1 {
		mag = 1
	}
	radius := r.cfg.TrustRegionScale * mag

	vertices := make([][]float64, dim+1)
	values := make([]float64, dim+1)
	vertices[0] = append([]float64(nil), rp.X...)
	values[0] = rp.Value
	for i := 0; i < dim; i++ {
		v := append([]float64(nil), rp.X...)
		v[i] += radius
		vertices[i+1] = v
		values[i+1] = f(v)
	}

	problem := optimize.Problem{Func: f}
	settings := &optimize.Settings{
		MajorIterations: 20 * dim,
		Converger: &optimize.FunctionConverge{
			Absolute:   r.cfg.TargetPrecision,
			Iterations: 10 * dim,
		},
	}
	method := &optimize.NelderMead{InitialVertices: vertices, InitialValues: values}

	result, err := optimize.Minimize(problem, rp.X, settings, method)
	if err != nil || result == nil {
		return
	}
	rp.FuncEvals += result.Stats.FuncEvaluations
	rp.Iterations += result.Stats.MajorIterations

	if result.F < rp.Value && floats.Distance(result.X, rp.X, 2) <= 2*radius {
		rp.X = append([]float64(nil), result.X...)
		rp.Value = result.F
	}
}
