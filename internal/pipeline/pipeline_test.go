package pipeline

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrolab/toposcan/internal/filter"
	"github.com/metrolab/toposcan/internal/formats"
	"github.com/metrolab/toposcan/internal/monitoring"
	"github.com/metrolab/toposcan/internal/surface"
)

func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }

// testSurface is a tilted plane with a superimposed short-wavelength
// sinusoid: leveling removes the tilt, filtering isolates the ripple.
func testSurface(n int, amp, tilt float64) *surface.Surface {
	data := make([]float64, n*n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			data[r*n+c] = amp*math.Cos(2*math.Pi*float64(c)/16) + tilt*float64(c)
		}
	}
	return surface.MustNew(data, n, n, 1, 1)
}

// writeSUR encodes a surface to a temporary measurement file.
func writeSUR(t *testing.T, dir, name string, s *surface.Surface) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, formats.EncodeSUR(s, f))
	return path
}

func muteLogs(t *testing.T) {
	t.Helper()
	original := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = original })
}

func TestRunFile(t *testing.T) {
	muteLogs(t)

	amp := 1.0
	path := writeSUR(t, t.TempDir(), "ripple.sur", testSurface(64, amp, 0.05))

	runner, err := New(&Config{
		FilterType: ptrString("gaussian"),
		CutoffUM:   ptrFloat64(100),
	})
	require.NoError(t, err)

	rep, err := runner.RunFile(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "sur", rep.Format)
	assert.Equal(t, path, rep.Source)
	assert.Zero(t, rep.InvalidFraction)
	require.NotNil(t, rep.Params)

	// Leveling removes the tilt and the 100 um cutoff passes the
	// 16 um ripple through to the roughness surface almost intact.
	assert.InDelta(t, 2*amp/math.Pi, rep.Params.Sa, 0.05*amp)
	assert.InDelta(t, amp/math.Sqrt2, rep.Params.Sq, 0.05*amp)

	// The decomposition is cached on the analysis.
	again, err := rep.Analysis.Decompose(context.Background(), filter.Gaussian, 100)
	require.NoError(t, err)
	assert.Same(t, rep.Filter, again)
}

func TestRunFileRejectsUnknownFormat(t *testing.T) {
	muteLogs(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "noise.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a measurement at all, just text"), 0o644))

	runner, err := New(&Config{})
	require.NoError(t, err)

	_, err = runner.RunFile(context.Background(), path)
	assert.ErrorIs(t, err, formats.ErrNotRecognized)
}

func TestRunBatchCollectsFailures(t *testing.T) {
	muteLogs(t)

	dir := t.TempDir()
	paths := []string{
		writeSUR(t, dir, "a.sur", testSurface(32, 1, 0.02)),
		writeSUR(t, dir, "b.sur", testSurface(32, 2, 0)),
	}
	bad := filepath.Join(dir, "broken.sur")
	require.NoError(t, os.WriteFile(bad, []byte("DIGITAL"), 0o644))
	paths = append(paths, bad, writeSUR(t, dir, "c.sur", testSurface(32, 0.5, -0.01)))

	runner, err := New(&Config{Workers: ptrInt(2)})
	require.NoError(t, err)

	var progressCalls int
	runner.Progress = func(done, total int, source string) {
		progressCalls++
		assert.Equal(t, 4, total)
	}

	batch, err := runner.RunBatch(context.Background(), paths)
	require.NoError(t, err)

	require.Len(t, batch.Reports, 3)
	require.Len(t, batch.Failures, 1)
	assert.Equal(t, bad, batch.Failures[0].Source)
	assert.Equal(t, 4, progressCalls)

	// Successful reports keep the input order.
	assert.Equal(t, paths[0], batch.Reports[0].Source)
	assert.Equal(t, paths[1], batch.Reports[1].Source)
	assert.Equal(t, paths[3], batch.Reports[2].Source)
}

func TestRunBatchHonoursCancellation(t *testing.T) {
	muteLogs(t)

	dir := t.TempDir()
	paths := []string{writeSUR(t, dir, "a.sur", testSurface(32, 1, 0))}

	runner, err := New(&Config{FilterType: ptrString("robust_gaussian")})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = runner.RunBatch(ctx, paths)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cfg  *Config
	}{
		{"bad filter", &Config{FilterType: ptrString("box")}},
		{"bad cutoff", &Config{CutoffUM: ptrFloat64(-5)}},
		{"bad order", &Config{LevelingOrder: ptrInt(9)}},
		{"bad invalid fraction", &Config{MaxInvalidFraction: ptrFloat64(1.5)}},
		{"bad window", &Config{MaterialRatioWindow: ptrFloat64(100)}},
		{"bad workers", &Config{Workers: ptrInt(-1)}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.cfg)
			assert.Error(t, err)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := &Config{}
	assert.Equal(t, filter.Gaussian, cfg.GetFilterType())
	assert.Equal(t, 80.0, cfg.GetCutoffUM())
	assert.Equal(t, 1, cfg.GetLevelingOrder())
	assert.Equal(t, 0.5, cfg.GetMaxInvalidFraction())
	assert.Equal(t, 40.0, cfg.GetMaterialRatioWindow())
	assert.Positive(t, cfg.GetWorkers())
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "recipe.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"filter_type": "spline",
		"cutoff_um": 25,
		"leveling_order": 2
	}`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, filter.Spline, cfg.GetFilterType())
	assert.Equal(t, 25.0, cfg.GetCutoffUM())
	assert.Equal(t, 2, cfg.GetLevelingOrder())
	// Omitted fields keep defaults.
	assert.Equal(t, 0.5, cfg.GetMaxInvalidFraction())

	_, err = LoadConfig(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	txt := filepath.Join(dir, "recipe.txt")
	require.NoError(t, os.WriteFile(txt, []byte(`{}`), 0o644))
	_, err = LoadConfig(txt)
	assert.Error(t, err)

	badVals := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badVals, []byte(`{"cutoff_um": -1}`), 0o644))
	_, err = LoadConfig(badVals)
	assert.Error(t, err)
}
