// Command toposcan runs the surface texture analysis pipeline over one
// or more raw measurement files and reports the areal parameter set
// for each, optionally persisting the run to a results database.
//
// Usage:
//
//	toposcan [flags] file.sur [file.vk4 ...]
//
// Defaults may also be supplied through TOPOSCAN_* environment
// variables; explicit flags win.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/kelseyhightower/envconfig"
	"github.com/lmittmann/tint"

	"github.com/metrolab/toposcan/internal/monitoring"
	"github.com/metrolab/toposcan/internal/pipeline"
	"github.com/metrolab/toposcan/internal/resultstore"
	"github.com/metrolab/toposcan/internal/units"
	"github.com/metrolab/toposcan/internal/version"
)

// envDefaults are the settings that may come from the environment.
type envDefaults struct {
	Config  string `envconfig:"CONFIG"`
	DB      string `envconfig:"DB"`
	Verbose bool   `envconfig:"VERBOSE"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "toposcan: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var env envDefaults
	if err := envconfig.Process("toposcan", &env); err != nil {
		return fmt.Errorf("read environment: %w", err)
	}

	var (
		configPath = flag.String("config", env.Config, "path to a JSON recipe file")
		dbPath     = flag.String("db", env.DB, "persist the run to this SQLite results database")
		filterType = flag.String("filter", "", "filter type: gaussian, robust_gaussian or spline")
		cutoff     = flag.Float64("cutoff", 0, "cutoff wavelength in micrometres")
		order      = flag.Int("order", -1, "polynomial leveling order, 0 to 6")
		workers    = flag.Int("workers", 0, "batch concurrency, 0 for one worker per CPU")
		unit       = flag.String("unit", units.UM, "height unit for the report table: "+units.GetValidUnitsString())
		verbose    = flag.Bool("v", env.Verbose, "log per-stage progress")
		showVer    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()
	if *showVer {
		fmt.Printf("toposcan %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return nil
	}
	if !units.IsValid(*unit) {
		return fmt.Errorf("invalid unit %q, valid units are %s", *unit, units.GetValidUnitsString())
	}
	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("no measurement files given")
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level}))
	slog.SetDefault(logger)
	monitoring.SetLogger(func(format string, v ...interface{}) {
		logger.Info(fmt.Sprintf(format, v...))
	})

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *filterType != "" {
		cfg.FilterType = filterType
	}
	if *cutoff > 0 {
		cfg.CutoffUM = cutoff
	}
	if *order >= 0 {
		cfg.LevelingOrder = order
	}
	if *workers > 0 {
		cfg.Workers = workers
	}

	runner, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	runner.Progress = func(done, total int, source string) {
		logger.Info("progress", "done", done, "total", total, "file", source)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch, err := runner.RunBatch(ctx, flag.Args())
	if err != nil {
		return err
	}

	printReports(batch, *unit)
	for _, f := range batch.Failures {
		fmt.Fprintf(os.Stderr, "failed: %s: %v\n", f.Source, f.Err)
	}

	if *dbPath != "" {
		id, err := persist(ctx, *dbPath, cfg, batch)
		if err != nil {
			return err
		}
		fmt.Printf("run stored as %s\n", id)
	}

	if len(batch.Reports) == 0 {
		return fmt.Errorf("all %d files failed", len(batch.Failures))
	}
	return nil
}

func loadConfig(path string) (*pipeline.Config, error) {
	if path == "" {
		return &pipeline.Config{}, nil
	}
	return pipeline.LoadConfig(path)
}

// reportColumns are the columns of the summary table; the full set is
// still persisted to the database. Height-valued parameters honour the
// -unit flag, dimensionless ones do not.
var reportColumns = []struct {
	sym    string
	height bool
}{
	{"Sa", true}, {"Sq", true}, {"Ssk", false}, {"Sku", false},
	{"Sz", true}, {"Sdr", false}, {"Sal", true},
	{"Sk", true}, {"Spk", true}, {"Svk", true},
}

func printReports(batch *pipeline.BatchReport, unit string) {
	if len(batch.Reports) == 0 {
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprint(w, "file\tformat")
	for _, col := range reportColumns {
		if col.height {
			fmt.Fprintf(w, "\t%s[%s]", col.sym, unit)
		} else {
			fmt.Fprintf(w, "\t%s", col.sym)
		}
	}
	fmt.Fprintln(w)
	for _, rep := range batch.Reports {
		fmt.Fprintf(w, "%s\t%s", rep.Source, rep.Format)
		values := rep.Params.Map()
		for _, col := range reportColumns {
			v := values[col.sym]
			if col.height {
				v = units.ConvertHeight(v, unit)
			}
			fmt.Fprintf(w, "\t%.4g", v)
		}
		fmt.Fprintln(w)
		for _, warn := range rep.Warnings {
			fmt.Fprintf(w, "\t%s\n", warn)
		}
	}
	w.Flush()
}

func persist(ctx context.Context, path string, cfg *pipeline.Config, batch *pipeline.BatchReport) (string, error) {
	store, err := resultstore.Open(path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	results := make([]resultstore.FileResult, 0, len(batch.Reports)+len(batch.Failures))
	for _, rep := range batch.Reports {
		results = append(results, resultstore.FileResult{
			Source:              rep.Source,
			Format:              rep.Format,
			ConvergenceExceeded: rep.Filter.ConvergenceExceeded,
			Parameters:          rep.Params.Map(),
		})
	}
	for _, f := range batch.Failures {
		results = append(results, resultstore.FileResult{
			Source: f.Source,
			Error:  f.Err.Error(),
		})
	}

	return store.SaveRun(ctx, resultstore.Run{
		FilterType:    string(cfg.GetFilterType()),
		CutoffUM:      cfg.GetCutoffUM(),
		LevelingOrder: cfg.GetLevelingOrder(),
	}, results)
}
