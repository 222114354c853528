package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/getsentry/sentry-go"
	"github.com/gigurra/spend-insights/internal"
	"github.com/joho/godotenv"
)

// exitInvalidParams is used when the caller passed a value outside an accepted range.
const exitInvalidParams = 2

type Params struct {
	Files       []string `descr:"Transaction files, optionally prefixed with their format (simple-json:path)" positional:"true"`
	Report      string   `descr:"Report to produce" alts:"summary,insights,predict,anomalies,recurring,budgets" strict:"true" default:"insights"`
	Source      string   `descr:"Data source type for files without a prefix (guessed from the extension when empty)" optional:"true"`
	Timeframe   string   `descr:"Analysis window (week, month, quarter, year)" default:"month"`
	Categories  string   `descr:"Comma separated category ids to include" optional:"true"`
	MonthsAhead int      `descr:"Months to forecast (1-12)" default:"3"`
	Sensitivity string   `descr:"Anomaly sensitivity (low, medium, high); defaults to the config value or medium" optional:"true"`
	Output      string   `descr:"Output format" alts:"table,json" strict:"true" default:"table"`
	Currency    string   `descr:"Currency code for display (auto-detected from locale)" optional:"true"`
	User        string   `descr:"User identity the insight cache is keyed by" default:"local"`
	Now         string   `descr:"Reference date YYYY-MM-DD (defaults to today)" optional:"true"`
	Config      string   `descr:"Path to config file (default ~/.spend-insights/config.yaml)" optional:"true"`
	InitConfig  bool     `descr:"Write a config template naming the categories found in the files and exit" default:"false"`
	Verbose     bool     `descr:"Enable debug logging" default:"false"`
}

func main() {
	boa.NewCmdT[Params]("spend-insights").
		WithShort("Analyze personal spending: summaries, insights, forecasts, anomalies and subscriptions").
		WithLong("Reads expense exports and reports spending by category, narrated insights (with an optional " +
			"Ollama-compatible reasoning service), monthly forecasts, unusual transactions, recurring payments " +
			"with probable subscriptions, and budget recommendations.").
		WithRunFunc(func(params *Params) {
			os.Exit(run(params))
		}).
		Run()
}

func run(params *Params) int {
	logger := newLogger(params.Verbose)
	slog.SetDefault(logger)

	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("could not load .env", "error", err)
	}

	cfg, cfgPath, err := loadConfig(params.Config, params.InitConfig, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	cfg.ApplyEnv(os.Getenv)

	flush := initSentry(cfg.SentryDSN, logger)
	defer flush()

	transactions, err := loadTransactions(params.Files, params.Source, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if params.InitConfig {
		tmpl := internal.GenerateConfigTemplate(transactions, cfg.CategoryLookup())
		if err := tmpl.Save(cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Wrote config template to %s\n", cfgPath)
		return 0
	}

	req, err := parseRequest(params, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitInvalidParams
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, cleanup, err := newApp(cfg, params, req.now, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer cleanup()

	if err := app.report(ctx, params.Report, transactions, req, params.Output); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if internal.IsInvalidParameter(err) {
			return exitInvalidParams
		}
		return 1
	}
	return 0
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the config file. A missing default config is not an error, and
// neither is a missing explicit one when a template is about to be written there.
func loadConfig(path string, creating bool, logger *slog.Logger) (*internal.Config, string, error) {
	explicit := path != ""
	if !explicit {
		path = internal.DefaultConfigPath()
	}

	if _, err := os.Stat(path); err != nil {
		if (!explicit || creating) && errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no config file, using defaults", "path", path)
			return internal.NewDefaultConfig(), path, nil
		}
		return nil, path, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg, err := internal.LoadConfig(path)
	if err != nil {
		return nil, path, err
	}
	logger.Debug("loaded config", "path", path)
	return cfg, path, nil
}

// initSentry enables error reporting when a DSN is configured and returns a flush func.
func initSentry(dsn string, logger *slog.Logger) func() {
	if dsn == "" {
		return func() {}
	}
	if err := sentry.Init(sentry.ClientOptions{Dsn: dsn}); err != nil {
		logger.Warn("sentry init failed", "error", err)
		return func() {}
	}
	return func() { sentry.Flush(2 * time.Second) }
}

// reportExternalFailure forwards reasoning-service failures to Sentry.
func reportExternalFailure(_ context.Context, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", "narrator")
		sentry.CaptureException(err)
	})
}

func loadTransactions(files []string, source string, logger *slog.Logger) ([]internal.Transaction, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("no transaction files given")
	}

	var all []internal.Transaction
	for _, arg := range files {
		format, path := internal.ParseFileArg(arg)
		if format == "" {
			format = source
		}
		if format == "" {
			format = internal.SourceForPath(path)
		}
		parser, err := internal.GetParser(format)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		txs, err := parser.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		logger.Debug("loaded transactions", "path", path, "format", format, "count", len(txs))
		all = append(all, txs...)
	}
	if r, ok := internal.DataRange(all); ok {
		logger.Debug("transaction history", "from", r.Start.Format("2006-01-02"), "to", r.End.Format("2006-01-02"), "days", r.Days())
	}
	return all, nil
}
