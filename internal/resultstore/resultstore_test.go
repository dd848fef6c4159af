package resultstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrolab/toposcan/internal/monitoring"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })

	store, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSaveAndGetRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	results := []FileResult{
		{
			Source: "scans/a.sur",
			Format: "sur",
			Parameters: map[string]float64{
				"Sa": 0.42, "Sq": 0.51, "Sz": 3.1,
			},
		},
		{
			Source:              "scans/b.vk4",
			Format:              "vk4",
			ConvergenceExceeded: true,
			Parameters:          map[string]float64{"Sa": 1.2},
		},
		{
			Source: "scans/c.opd",
			Error:  "decode scans/c.opd: truncated data",
		},
	}
	id, err := store.SaveRun(ctx, Run{
		FilterType:    "robust_gaussian",
		CutoffUM:      80,
		LevelingOrder: 1,
	}, results)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	run, got, err := store.GetRun(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, id, run.ID)
	assert.Equal(t, "robust_gaussian", run.FilterType)
	assert.Equal(t, 80.0, run.CutoffUM)
	assert.Equal(t, 2, run.AnalysedCount)
	assert.Equal(t, 1, run.FailedCount)
	assert.False(t, run.CreatedAt.IsZero())

	if diff := cmp.Diff(results, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("results round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestGetRunMissing(t *testing.T) {
	store := openTestStore(t)

	_, _, err := store.GetRun(context.Background(), "no-such-run")
	assert.Error(t, err)
}

func TestRecentRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.SaveRun(ctx, Run{FilterType: "gaussian", CutoffUM: float64(10 * (i + 1))}, nil)
		require.NoError(t, err)
	}

	runs, err := store.RecentRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	all, err := store.RecentRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestOpenIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "results.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening an already-migrated database applies nothing.
	store, err = Open(path)
	require.NoError(t, err)
	assert.NoError(t, store.Close())
}
