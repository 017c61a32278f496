// Package engine orchestrates the critical-point pipeline: approximation,
// candidate extraction, deduplication, refinement, classification, and
// aggregation, across independently processed sub-domains.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/the-critical-point/internal/aggregate"
	"github.com/Veraticus/the-critical-point/internal/approx"
	"github.com/Veraticus/the-critical-point/internal/classify"
	"github.com/Veraticus/the-critical-point/internal/common"
	"github.com/Veraticus/the-critical-point/internal/dedupe"
	"github.com/Veraticus/the-critical-point/internal/deriv"
	"github.com/Veraticus/the-critical-point/internal/extract"
	"github.com/Veraticus/the-critical-point/internal/model"
	"github.com/Veraticus/the-critical-point/internal/objective"
	"github.com/Veraticus/the-critical-point/internal/refine"
)

// Config holds configuration for one engine.
type Config struct {
	Approx  approx.Config
	Extract extract.Config
	Refine  refine.Config

	// DistanceTol is the Euclidean merge radius for deduplication and
	// basin grouping.
	DistanceTol float64

	// ZeroTol is the classifier's degenerate-eigenvalue threshold.
	ZeroTol float64

	// MaxWorkers bounds concurrent sub-domain and refinement tasks; zero
	// means GOMAXPROCS.
	MaxWorkers int

	// Orthants decomposes the domain into its 2^n orthants, processed
	// independently and merged.
	Orthants bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		Approx:      approx.DefaultConfig(),
		Extract:     extract.DefaultConfig(),
		Refine:      refine.DefaultConfig(),
		DistanceTol: dedupe.DefaultDistanceTol,
		ZeroTol:     classify.DefaultZeroTol,
	}
}

// Result is the owned, immutable output of one pipeline run.
type Result struct {
	Domain     model.DomainSpec
	Subdomains int
	Candidates int
	Classified []model.ClassificationResult
	Minimizers []model.MinimizerRecord
	Summary    aggregate.Summary

	// Degraded records sub-domains that contributed nothing, keyed by
	// label, with the condition that sidelined them.
	Degraded map[string]string

	Elapsed time.Duration
}

// Engine runs the full pipeline. The objective, differentiator, and solver
// are treated as pure and re-entrant; the engine shares them read-only
// across workers.
type Engine struct {
	f          objective.Func
	deriv      deriv.Differentiator
	solver     extract.RootSolver
	classifier *classify.Classifier
	refiner    *refine.Refiner
	cfg        Config
}

// New creates an engine with the given collaborators.
func New(f objective.Func, d deriv.Differentiator, solver extract.RootSolver, cfg Config) *Engine {
	if cfg.DistanceTol <= 0 {
		cfg.DistanceTol = dedupe.DefaultDistanceTol
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		f:          f,
		deriv:      d,
		solver:     solver,
		classifier: classify.New(d, cfg.ZeroTol),
		refiner:    refine.New(d, cfg.Refine),
		cfg:        cfg,
	}
}

// Run executes the pipeline over the domain. Only a malformed domain, a
// panicking objective, or cancellation abort the run; every other failure
// degrades the affected sub-domain or point and is reported on the Result.
func (e *Engine) Run(ctx context.Context, domain model.DomainSpec) (*Result, error) {
	start := time.Now()
	if err := domain.Validate(); err != nil {
		return nil, err
	}

	subdomains := []model.DomainSpec{domain}
	if e.cfg.Orthants {
		subdomains = domain.Orthants()
	}

	slog.Info("Starting critical-point hunt",
		"dim", domain.Dim(),
		"subdomains", len(subdomains),
		"workers", e.cfg.MaxWorkers)

	var mu sync.Mutex
	classified := make([]model.ClassificationResult, 0)
	degraded := make(map[string]string)
	candidateTotal := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxWorkers)

	for _, sub := range subdomains {
		sub := sub
		g.Go(func() error {
			batch, candidates, err := e.runSubdomain(gctx, sub)
			if err != nil {
				if isFatalRunError(err) {
					return err
				}
				// Degrade: this sub-domain contributes zero results.
				common.LogError(err, "Sub-domain degraded", common.Fields{
					"subdomain": sub.Label,
				})
				mu.Lock()
				degraded[sub.Label] = err.Error()
				mu.Unlock()
				return nil
			}
			mu.Lock()
			classified = append(classified, batch...)
			candidateTotal += candidates
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	minimizers, summary := aggregate.Aggregate(classified, e.cfg.DistanceTol, e.deriv, e.f)

	result := &Result{
		Domain:     domain,
		Subdomains: len(subdomains),
		Candidates: candidateTotal,
		Classified: classified,
		Minimizers: minimizers,
		Summary:    summary,
		Degraded:   degraded,
		Elapsed:    time.Since(start),
	}

	slog.Info("Critical-point hunt complete",
		"candidates", result.Candidates,
		"classified", len(result.Classified),
		"minimizers", len(result.Minimizers),
		"degraded_subdomains", len(degraded),
		"elapsed", result.Elapsed)
	return result, nil
}

// runSubdomain executes the per-sub-domain chain: approximate, extract,
// dedupe, refine, classify. The returned batch is owned by the caller.
func (e *Engine) runSubdomain(ctx context.Context, sub model.DomainSpec) (batch []model.ClassificationResult, candidates int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", common.ErrObjectivePanic, r)
		}
	}()

	poly, err := approx.Approximate(ctx, e.f, sub, e.cfg.Approx)
	if err != nil {
		return nil, 0, err
	}
	if !poly.ToleranceMet {
		slog.Warn("Proceeding with under-converged approximation",
			"subdomain", sub.Label,
			"l2_error", poly.L2Error)
	}

	extractor := extract.New(e.solver, e.cfg.Extract)
	raw, err := extractor.Extract(ctx, e.f, poly, sub)
	if err != nil {
		return nil, 0, err
	}
	if len(raw) == 0 {
		slog.Info("No candidates in sub-domain", "subdomain", sub.Label)
		return nil, 0, nil
	}

	unique := dedupe.Resolve(raw, e.cfg.DistanceTol)
	refined := e.refineParallel(ctx, unique)

	batch = make([]model.ClassificationResult, 0, len(refined))
	for i := range refined {
		batch = append(batch, e.classifier.Classify(e.f, &refined[i]))
	}
	return batch, len(unique), nil
}

// refineParallel refines candidates concurrently; refinement dominates
// pipeline cost and touches only its own candidate.
func (e *Engine) refineParallel(ctx context.Context, candidates []model.CandidatePoint) []model.RefinedPoint {
	sorted := e.refiner.Order(candidates)

	out := make([]model.RefinedPoint, len(sorted))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.MaxWorkers)
	for i, cand := range sorted {
		i, cand := i, cand
		g.Go(func() error {
			out[i] = e.refiner.RefineOne(gctx, e.f, cand)
			return nil
		})
	}
	// Workers never return errors; Wait only observes cancellation.
	_ = g.Wait()

	if ctx.Err() != nil {
		// Keep whatever completed; cancelled slots have nil coordinates.
		kept := out[:0]
		for _, rp := range out {
			if rp.X != nil {
				kept = append(kept, rp)
			}
		}
		return kept
	}
	return out
}

func isFatalRunError(err error) bool {
	return common.IsFatal(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
