package extract

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/Veraticus/the-critical-point/internal/approx"
	"github.com/Veraticus/the-critical-point/internal/common"
	"github.com/Veraticus/the-critical-point/internal/model"
	"github.com/Veraticus/the-critical-point/internal/objective"
)

// Config controls candidate filtering.
type Config struct {
	// ImagTolerance is the largest imaginary component magnitude a solution
	// may carry and still count as real.
	ImagTolerance float64
}

// DefaultConfig returns the default extraction configuration.
func DefaultConfig() Config {
	return Config{ImagTolerance: 1e-8}
}

// Extractor drives a root solver against a polynomial's stationarity
// system and filters the raw output into real, in-domain candidates.
type Extractor struct {
	solver RootSolver
	cfg    Config
}

// New creates an extractor backed by the given solver.
func New(solver RootSolver, cfg Config) *Extractor {
	if cfg.ImagTolerance <= 0 {
		cfg.ImagTolerance = DefaultConfig().ImagTolerance
	}
	return &Extractor{solver: solver, cfg: cfg}
}

// Extract solves the stationarity system of poly and returns surviving
// candidates with the true objective evaluated at each. A solver failure is
// returned wrapped in ErrSolverFailure so callers can degrade that
// sub-domain to zero candidates without aborting siblings.
func (e *Extractor) Extract(ctx context.Context, f objective.Func, poly *approx.Polynomial, domain model.DomainSpec) ([]model.CandidatePoint, error) {
	sys := &System{Poly: poly, Domain: domain}

	roots, err := e.solver.Solve(ctx, sys)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSolverFailure, err)
	}

	slack := domain.Slack()
	candidates := make([]model.CandidatePoint, 0, len(roots))
	discardedImag, discardedDomain := 0, 0

	for _, root := range roots {
		if !e.isReal(root) {
			discardedImag++
			continue
		}
		if !domain.Contains(root.Real, slack) {
			discardedDomain++
			slog.Debug("Candidate outside slack-expanded domain",
				"subdomain", domain.Label,
				"point", root.Real)
			continue
		}

		x := append([]float64(nil), root.Real...)
		value := f(x)
		if math.IsNaN(value) || math.IsInf(value, 0) {
			discardedDomain++
			continue
		}
		candidates = append(candidates, model.CandidatePoint{
			Subdomain: domain.Label,
			X:         x,
			RawValue:  value,
		})
	}

	slog.Debug("Extracted candidates",
		"subdomain", domain.Label,
		"raw_roots", len(roots),
		"kept", len(candidates),
		"discarded_imaginary", discardedImag,
		"discarded_domain", discardedDomain)

	return candidates, nil
}

func (e *Extractor) isReal(r Root) bool {
	for _, im := range r.Imag {
		if math.Abs(im) > e.cfg.ImagTolerance {
			return false
		}
	}
	return true
}
