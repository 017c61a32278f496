package dedupe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-critical-point/internal/model"
)

func cand(sub string, value float64, x ...float64) model.CandidatePoint {
	return model.CandidatePoint{Subdomain: sub, X: x, RawValue: value}
}

func TestResolve_MergesNearDuplicates(t *testing.T) {
	candidates := []model.CandidatePoint{
		cand("a", 1.0, 0, 0),
		cand("a", 0.5, 1e-6, 1e-6), // near-duplicate, better value
		cand("a", 2.0, 1, 1),       // distinct
		cand("b", 0.9, 2e-6, 0),    // near-duplicate of first, worse value
	}

	out := Resolve(candidates, 1e-3)
	require.Len(t, out, 2)

	// The best-valued member represents the first cluster.
	assert.InDelta(t, 0.5, out[0].RawValue, 1e-15)
	assert.Equal(t, []float64{1e-6, 1e-6}, out[0].X)
	assert.InDelta(t, 2.0, out[1].RawValue, 1e-15)
}

func TestResolve_StrictImprovementKeepsFirst(t *testing.T) {
	// Equal values: the first-seen representative must win, which makes the
	// merge deterministic under value ties.
	candidates := []model.CandidatePoint{
		cand("a", 1.0, 0, 0),
		cand("b", 1.0, 1e-7, 0),
	}

	out := Resolve(candidates, 1e-3)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Subdomain)
}

func TestResolve_Idempotent(t *testing.T) {
	candidates := []model.CandidatePoint{
		cand("a", 3, 0, 0),
		cand("a", 1, 0.0001, 0),
		cand("a", 2, 0.5, 0.5),
		cand("b", -1, 0.50001, 0.5),
		cand("b", 7, -2, 3),
	}

	once := Resolve(candidates, 1e-3)
	twice := Resolve(once, 1e-3)

	require.Len(t, twice, len(once))
	for i := range once {
		assert.Equal(t, once[i].X, twice[i].X)
		assert.Equal(t, once[i].RawValue, twice[i].RawValue)
	}
}

func TestResolve_RepresentativeDriftStillMerges(t *testing.T) {
	// The third point is a better value inside the first cluster, so it
	// replaces the representative — and the new representative sits within
	// tolerance of the second cluster. The merge must settle before
	// returning, or re-running Resolve on the output would shrink it.
	candidates := []model.CandidatePoint{
		cand("a", 10, 0),
		cand("a", 20, 1.5),
		cand("a", 5, 0.8),
	}

	out := Resolve(candidates, 1.0)
	require.Len(t, out, 1)
	assert.Equal(t, []float64{0.8}, out[0].X)
	assert.InDelta(t, 5, out[0].RawValue, 1e-15)

	again := Resolve(out, 1.0)
	require.Len(t, again, 1)
	assert.Equal(t, out[0].X, again[0].X)
	assert.Equal(t, out[0].RawValue, again[0].RawValue)

	clusters := ResolveClusters(candidates, 1.0)
	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].Size())
}

func TestResolve_EmptyAndSingle(t *testing.T) {
	assert.Empty(t, Resolve(nil, 1e-3))

	single := []model.CandidatePoint{cand("a", 1, 0.5)}
	out := Resolve(single, 1e-3)
	require.Len(t, out, 1)
	assert.Equal(t, single[0], out[0])
}

func TestResolveClusters_Membership(t *testing.T) {
	candidates := []model.CandidatePoint{
		cand("a", 1.0, 0, 0),
		cand("b", 0.5, 1e-6, 0),
		cand("a", 2.0, 1, 1),
	}

	clusters := ResolveClusters(candidates, 1e-3)
	require.Len(t, clusters, 2)
	assert.Equal(t, 2, clusters[0].Size())
	assert.Equal(t, 1, clusters[1].Size())
	assert.Equal(t, "b", clusters[0].Representative.Subdomain)
}

func TestResolve_DefaultTolerance(t *testing.T) {
	candidates := []model.CandidatePoint{
		cand("a", 1, 0, 0),
		cand("a", 0, 1e-5, 0), // inside the 1e-4 default radius
	}
	out := Resolve(candidates, 0)
	require.Len(t, out, 1)
}
