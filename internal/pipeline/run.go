// Package pipeline chains the analysis stages end to end: decode a raw
// measurement file, level it, decompose it into waviness and roughness
// and evaluate the areal parameter set. Batches run the same recipe
// over many files concurrently, collecting per-file failures without
// aborting the rest of the batch.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/metrolab/toposcan/internal/filter"
	"github.com/metrolab/toposcan/internal/formats"
	"github.com/metrolab/toposcan/internal/level"
	"github.com/metrolab/toposcan/internal/monitoring"
	"github.com/metrolab/toposcan/internal/params"
	"github.com/metrolab/toposcan/internal/surface"
)

// Analysis wraps a prepared surface and memoizes filter decompositions
// so repeated parameter queries at the same cutoff reuse the expensive
// filtering work. Safe for concurrent use.
type Analysis struct {
	Surface *surface.Surface

	opts  filter.Options
	mu    sync.Mutex
	cache map[filterKey]*filter.Result
}

type filterKey struct {
	typ    filter.Type
	cutoff float64
}

// NewAnalysis wraps a leveled, dense surface for repeated filtering.
func NewAnalysis(s *surface.Surface, opts filter.Options) *Analysis {
	return &Analysis{
		Surface: s,
		opts:    opts,
		cache:   make(map[filterKey]*filter.Result),
	}
}

// Decompose returns the waviness/roughness split at the given cutoff,
// computing it on first use and serving it from cache afterwards.
func (a *Analysis) Decompose(ctx context.Context, typ filter.Type, cutoff float64) (*filter.Result, error) {
	key := filterKey{typ: typ, cutoff: cutoff}
	a.mu.Lock()
	if res, ok := a.cache[key]; ok {
		a.mu.Unlock()
		return res, nil
	}
	a.mu.Unlock()

	res, err := filter.ApplyOptions(ctx, a.Surface, typ, cutoff, a.opts)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[key] = res
	a.mu.Unlock()
	return res, nil
}

// FileReport is the outcome of running the recipe over one file.
type FileReport struct {
	// Source identifies the input, usually a file path.
	Source string
	// Format is the decoder that recognised the file.
	Format string
	// Encoding is the detected text encoding of the file's metadata.
	Encoding string
	// InvalidFraction is the share of non-measured samples in the raw
	// file, before filling.
	InvalidFraction float64
	// Analysis holds the leveled surface with its cached
	// decompositions, for follow-up queries at other cutoffs.
	Analysis *Analysis
	// Filter is the decomposition at the configured cutoff.
	Filter *filter.Result
	// Params is the areal parameter set of the roughness surface.
	Params *params.Set
	// Warnings lists non-fatal conditions hit while processing.
	Warnings []string
}

// Failure records one file that could not be processed.
type Failure struct {
	Source string
	Err    error
}

// BatchReport aggregates a batch run. Reports keeps the input order of
// the files that succeeded.
type BatchReport struct {
	Reports  []*FileReport
	Failures []Failure
}

// Runner executes one validated recipe.
type Runner struct {
	cfg *Config

	// Progress, when set, is called after each file of a batch
	// finishes, whether it succeeded or failed.
	Progress func(done, total int, source string)
}

// New validates the recipe and builds a Runner for it.
func New(cfg *Config) (*Runner, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg}, nil
}

// RunReader runs the recipe over one measurement stream. The source
// string only labels logs and reports.
func (r *Runner) RunReader(ctx context.Context, source string, rd io.Reader) (*FileReport, error) {
	raw, err := formats.Decode(rd)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}
	monitoring.Logf("decoded %s: %dx%d grid, format %s", source, raw.Rows, raw.Cols, raw.Meta.SourceFormat)

	report := &FileReport{
		Source:          source,
		Format:          raw.Meta.SourceFormat,
		Encoding:        raw.Meta.TextEncoding,
		InvalidFraction: raw.InvalidFraction(),
	}

	leveled, err := level.Process(raw, level.Options{
		Order:            r.cfg.GetLevelingOrder(),
		OutlierThreshold: r.cfg.GetMaxInvalidFraction(),
	})
	if err != nil {
		return nil, fmt.Errorf("level %s: %w", source, err)
	}
	if report.InvalidFraction > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("filled %.1f%% non-measured samples", report.InvalidFraction*100))
	}

	report.Analysis = NewAnalysis(leveled, r.cfg.GetFilterOptions())
	res, err := report.Analysis.Decompose(ctx, r.cfg.GetFilterType(), r.cfg.GetCutoffUM())
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", source, err)
	}
	report.Filter = res
	if res.ConvergenceExceeded {
		msg := fmt.Sprintf("robust filter hit its iteration cap after %d passes", res.Iterations)
		report.Warnings = append(report.Warnings, msg)
		monitoring.Warnf("%s: %s", source, msg)
	}

	set, err := params.Compute(res.Roughness, params.Options{
		MaterialRatioWindow: r.cfg.GetMaterialRatioWindow(),
	})
	if err != nil {
		return nil, fmt.Errorf("parameters %s: %w", source, err)
	}
	report.Params = set

	monitoring.Logf("analysed %s: Sa=%.4g Sq=%.4g Sz=%.4g", source, set.Sa, set.Sq, set.Sz)
	return report, nil
}

// RunFile runs the recipe over one file on disk.
func (r *Runner) RunFile(ctx context.Context, path string) (*FileReport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return r.RunReader(ctx, path, f)
}

// RunBatch runs the recipe over many files with bounded concurrency.
// A file that fails is recorded in the report and never aborts the
// remaining files; only context cancellation stops the batch early.
func (r *Runner) RunBatch(ctx context.Context, paths []string) (*BatchReport, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.GetWorkers())

	reports := make([]*FileReport, len(paths))
	var (
		mu       sync.Mutex
		failures []Failure
		done     int
	)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			rep, err := r.RunFile(ctx, path)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failures = append(failures, Failure{Source: path, Err: err})
				monitoring.Warnf("batch: %v", err)
			} else {
				reports[i] = rep
			}
			done++
			if r.Progress != nil {
				r.Progress(done, len(paths), path)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	batch := &BatchReport{Failures: failures}
	for _, rep := range reports {
		if rep != nil {
			batch.Reports = append(batch.Reports, rep)
		}
	}
	monitoring.Logf("batch finished: %d analysed, %d failed", len(batch.Reports), len(batch.Failures))
	return batch, nil
}
