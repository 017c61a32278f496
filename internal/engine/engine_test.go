package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-critical-point/internal/approx"
	"github.com/Veraticus/the-critical-point/internal/deriv"
	"github.com/Veraticus/the-critical-point/internal/extract"
	"github.com/Veraticus/the-critical-point/internal/model"
	"github.com/Veraticus/the-critical-point/internal/objective"
)

func newTestEngine(f objective.Func, cfg Config) *Engine {
	return New(f, deriv.NewFiniteDifference(), extract.NewNewtonSolver(), cfg)
}

func quickApprox() approx.Config {
	return approx.Config{InitialDegree: 2, MaxDegree: 4, Tolerance: 1e-8}
}

func TestEngine_BowlRecovery(t *testing.T) {
	center := []float64{0.4, -0.3}
	f := objective.Bowl(center, []float64{1.5, 2.5}, -7)

	cfg := DefaultConfig()
	cfg.Approx = quickApprox()
	eng := newTestEngine(f, cfg)

	result, err := eng.Run(context.Background(), model.NewDomainSpec([]float64{0, 0}, 1.5))
	require.NoError(t, err)
	require.Len(t, result.Minimizers, 1)

	rec := result.Minimizers[0]
	assert.InDelta(t, center[0], rec.Representative.X[0], 1e-5)
	assert.InDelta(t, center[1], rec.Representative.X[1], 1e-5)
	assert.InDelta(t, -7, rec.Representative.Value, 1e-8)
	assert.Less(t, rec.VerifiedGradientNorm, 1e-5)
	assert.Equal(t, model.TypeMinimum, result.Classified[0].Type)
	assert.GreaterOrEqual(t, result.Candidates, 1)
}

func TestEngine_OrderIndependence(t *testing.T) {
	// The same minimizer set must come out of a whole-domain run and an
	// orthant-decomposed run.
	center := []float64{0.4, 0.4}
	f := objective.Bowl(center, nil, 2)
	domain := model.NewDomainSpec([]float64{0, 0}, 1)

	cfg := DefaultConfig()
	cfg.Approx = quickApprox()

	whole, err := newTestEngine(f, cfg).Run(context.Background(), domain)
	require.NoError(t, err)

	cfg.Orthants = true
	split, err := newTestEngine(f, cfg).Run(context.Background(), domain)
	require.NoError(t, err)
	assert.Equal(t, 4, split.Subdomains)

	require.Len(t, whole.Minimizers, 1)
	require.Len(t, split.Minimizers, 1)

	w := whole.Minimizers[0].Representative
	s := split.Minimizers[0].Representative
	assert.InDelta(t, w.X[0], s.X[0], 1e-4)
	assert.InDelta(t, w.X[1], s.X[1], 1e-4)
	assert.InDelta(t, w.Value, s.Value, 1e-8)
}

func TestEngine_XYWellPipeline(t *testing.T) {
	// Full chain on the two-well objective restricted to the quadrant
	// holding one minimum.
	f := func(x []float64) float64 { return objective.XYWell(x[0], x[1]) }
	domain := model.NewDomainSpec([]float64{0.75, -0.75}, 0.5)

	cfg := DefaultConfig()
	cfg.Approx = approx.Config{InitialDegree: 6, MaxDegree: 10, Tolerance: 1e-8}
	cfg.Refine.UltraPrecision = true

	result, err := newTestEngine(f, cfg).Run(context.Background(), domain)
	require.NoError(t, err)
	require.NotEmpty(t, result.Minimizers)

	s := objective.WellScale
	rec := result.Minimizers[0]
	assert.InDelta(t, s, rec.Representative.X[0], 0.01)
	assert.InDelta(t, -s, rec.Representative.X[1], 0.01)
	assert.InDelta(t, -objective.WellDepth, rec.Representative.Value, 1e-6)
	assert.Less(t, rec.Representative.GradientNorm, 1e-6)
}

func TestEngine_SolverFailureDegradesSubdomain(t *testing.T) {
	f := objective.Bowl([]float64{0, 0}, nil, 0)

	cfg := DefaultConfig()
	cfg.Approx = quickApprox()
	eng := New(f, deriv.NewFiniteDifference(), &failingSolver{}, cfg)

	result, err := eng.Run(context.Background(), model.NewDomainSpec([]float64{0, 0}, 1))
	require.NoError(t, err, "solver failure must degrade, not abort")
	assert.Empty(t, result.Classified)
	assert.Len(t, result.Degraded, 1)
}

func TestEngine_InvalidDomainFatal(t *testing.T) {
	f := objective.Bowl([]float64{0}, nil, 0)
	eng := newTestEngine(f, DefaultConfig())

	_, err := eng.Run(context.Background(), model.DomainSpec{
		Center:    []float64{0},
		HalfWidth: []float64{0},
	})
	require.Error(t, err)
}

func TestEngine_PanickingObjectiveFatal(t *testing.T) {
	f := func(_ []float64) float64 { panic("bad objective") }

	cfg := DefaultConfig()
	cfg.Approx = quickApprox()
	eng := newTestEngine(f, cfg)

	_, err := eng.Run(context.Background(), model.NewDomainSpec([]float64{0, 0}, 1))
	require.Error(t, err)
}

func TestEngine_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := objective.Bowl([]float64{0, 0}, nil, 0)
	cfg := DefaultConfig()
	cfg.Approx = quickApprox()

	_, err := newTestEngine(f, cfg).Run(ctx, model.NewDomainSpec([]float64{0, 0}, 1))
	require.Error(t, err)
}

type failingSolver struct{}

func (s *failingSolver) Solve(_ context.Context, _ *extract.System) ([]extract.Root, error) {
	return nil, errors.New("backend unavailable")
}
