package storage

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-critical-point/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_SaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &Run{
		Objective:  "paired-wells",
		Dim:        4,
		Subdomains: 16,
		Candidates: 42,
		ElapsedMS:  1234,
		Points: []Point{
			{
				Subdomain:       "root[+-]",
				X:               []float64{0.7412, -0.7412},
				Value:           -0.87107,
				Type:            model.TypeMinimum,
				Converged:       true,
				Iterations:      17,
				GradientNorm:    1e-10,
				EigMin:          0.5,
				EigMax:          3.2,
				ConditionNumber: 6.4,
			},
			{
				Subdomain:       "root[++]",
				X:               []float64{0, 0},
				Value:           0,
				Type:            model.TypeError,
				Converged:       false,
				GradientNorm:    math.NaN(),
				EigMin:          math.NaN(),
				EigMax:          math.NaN(),
				ConditionNumber: math.NaN(),
			},
		},
	}

	id, err := store.SaveRun(ctx, run)
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := store.GetRun(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, "paired-wells", got.Objective)
	assert.Equal(t, 4, got.Dim)
	assert.Equal(t, 16, got.Subdomains)
	require.Len(t, got.Points, 2)

	// Points come back value-ascending: the minimum first.
	min := got.Points[0]
	assert.Equal(t, model.TypeMinimum, min.Type)
	assert.Equal(t, []float64{0.7412, -0.7412}, min.X)
	assert.InDelta(t, -0.87107, min.Value, 1e-12)
	assert.True(t, min.Converged)
	assert.Equal(t, 17, min.Iterations)

	// NaN diagnostics survive the round trip as NaN.
	errPt := got.Points[1]
	assert.Equal(t, model.TypeError, errPt.Type)
	assert.True(t, math.IsNaN(errPt.EigMin))
	assert.True(t, math.IsNaN(errPt.ConditionNumber))

	assert.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
}

func TestSQLiteStore_GetRunMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetRun(context.Background(), 999)
	require.Error(t, err)
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.SaveRun(ctx, &Run{
			Objective: "bowl",
			Dim:       2,
			Points: []Point{
				{X: []float64{0, 0}, Value: 0, Type: model.TypeMinimum, Converged: true},
				{X: []float64{1, 1}, Value: 2, Type: model.TypeSaddle, Converged: true},
			},
		})
		require.NoError(t, err)
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first.
	assert.Greater(t, runs[0].ID, runs[1].ID)
	assert.Equal(t, 2, runs[0].Points)
	assert.Equal(t, 1, runs[0].Minima)
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Migrate(context.Background()))
}
