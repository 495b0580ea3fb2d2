package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"logiflow/internal/config"
	"logiflow/internal/extract"
	"logiflow/internal/metrics"
	"logiflow/internal/metrics/datadog"
	"logiflow/internal/metrics/prompush"
	"logiflow/internal/pipeline"
	"logiflow/internal/schema"
	"logiflow/internal/storage"
	"logiflow/internal/validate"

	// register all backends with the storage factory.
	// config selects which to use but the binary supports all of them.
	_ "logiflow/internal/storage/all"
)

// main is the entry point for the logiflow binary. It loads the config,
// wires the extractors, storage backend and optional metrics backend, and
// executes one pipeline run. The exit code is non-zero exactly when the run
// failed.
func main() {
	var (
		cfgPath        string
		source         string
		dbFlag         string
		noValidate     bool
		drop           bool
		jsonOut        bool
		metricsBackend string
		gatewayURL     string
	)

	flag.StringVar(&cfgPath, "config", "", "config YAML path (default: search . and ./config)")
	flag.StringVar(&source, "source", extract.SourceAPI, "data source to use: api, csv or both")
	flag.StringVar(&dbFlag, "db", "", "database backend: sqlite or postgresql (default: config database.type)")
	flag.BoolVar(&noValidate, "no-validate", false, "skip the validation phase")
	flag.BoolVar(&drop, "drop", false, "drop the managed tables before loading")
	flag.BoolVar(&jsonOut, "json", false, "print the run summary as JSON instead of text")
	flag.StringVar(&metricsBackend, "metrics-backend", "", "metrics backend: pushgateway, datadog or none (default: config metrics.backend)")
	flag.StringVar(&gatewayURL, "pushgateway-url", "", "Pushgateway base URL (overrides config metrics.gateway_url)")

	flag.Parse()

	if !extract.ValidSource(source) {
		fatalf("unsupported --source=%s (expected api, csv or both)", source)
	}

	cfg, issues, err := config.Load(cfgPath)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if err != nil {
		fatalf("%v", err)
	}

	log, closeLog, err := newLogger(cfg.Logging)
	if err != nil {
		fatalf("%v", err)
	}
	defer closeLog()

	// CLI flags override the config.
	if dbFlag != "" {
		cfg.Database.Type = dbFlag
	}
	if metricsBackend != "" {
		cfg.Metrics.Backend = metricsBackend
	}
	if gatewayURL != "" {
		cfg.Metrics.GatewayURL = gatewayURL
	}

	kind := storage.NormalizeKind(cfg.Database.Type)
	dsn, err := cfg.Database.DSN()
	if err != nil {
		fatalf("%v", err)
	}

	ctx := context.Background()

	repo, err := storage.New(ctx, storage.Config{Kind: kind, DSN: dsn})
	if err != nil {
		fatalf("open %s repository: %v", kind, err)
	}
	defer repo.Close()

	if drop || cfg.Database.DropExisting {
		log.Warn().Str("db", kind).Msg("dropping managed tables")
		if err := storage.DropSchema(ctx, repo); err != nil {
			fatalf("drop schema: %v", err)
		}
	}

	flush := setupMetrics(cfg.Metrics, log)
	defer flush()

	httpClient := extract.NewClient(extract.ClientConfig{
		Timeout:        cfg.API.FakeStore.Timeout,
		MaxRetries:     cfg.API.FakeStore.RetryAttempts,
		InitialBackoff: cfg.API.FakeStore.RetryDelay,
	})
	api := extract.NewAPIClient(cfg.API.FakeStore.BaseURL, httpClient, log)
	api.RawDir = cfg.Paths.RawData

	p := pipeline.New(repo, kind, log)
	p.Extract = &extract.Fetcher{
		API: api,
		CSV: extract.NewCSVReader(cfg.Paths.OlistData, log),
		Log: log,
	}
	p.Source = source
	p.Validate = !noValidate
	if cfg.Load.BatchSize > 0 {
		p.Loader.BatchSize = cfg.Load.BatchSize
	}
	if cfg.Validation.RulesDir != "" {
		rules, err := validate.RuleSets(cfg.Validation.RulesDir)
		if err != nil {
			fatalf("load validation rules: %v", err)
		}
		p.Rules = rules
	}

	sum, runErr := p.Run(ctx)

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			log.Warn().Err(err).Msg("encode summary")
		}
	} else {
		printSummary(os.Stdout, sum)
	}

	if runErr != nil {
		// os.Exit skips the deferred cleanups, so run them here.
		flush()
		repo.Close()
		os.Exit(1)
	}
}

// newLogger builds the root logger: a console writer on stderr, duplicated
// into a JSON log file when logging.file is set.
func newLogger(cfg config.Logging) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), func() {}, fmt.Errorf("parse logging.level: %w", err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	var w io.Writer = console
	closeLog := func() {}

	if cfg.File != "" {
		if dir := filepath.Dir(cfg.File); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return zerolog.Nop(), closeLog, fmt.Errorf("create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), closeLog, fmt.Errorf("open log file: %w", err)
		}
		w = zerolog.MultiLevelWriter(console, f)
		closeLog = func() { f.Close() }
	}

	log := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return log, closeLog, nil
}

// setupMetrics installs the configured metrics backend and returns the flush
// hook. Backend init failures disable metrics rather than aborting the run.
func setupMetrics(m config.Metrics, log zerolog.Logger) func() {
	switch m.Backend {
	case "", "none":
		return func() {}

	case "pushgateway":
		b, err := prompush.NewBackend(m.Job, m.GatewayURL)
		if err != nil {
			log.Warn().Err(err).Msg("metrics: pushgateway init failed; metrics disabled")
			return func() {}
		}
		metrics.SetBackend(b)
		log.Info().Str("gateway", m.GatewayURL).Str("job", m.Job).Msg("metrics: pushgateway enabled")

	case "datadog":
		b, err := datadog.NewBackend(datadog.Config{Addr: m.StatsdAddr, Namespace: m.Namespace})
		if err != nil {
			log.Warn().Err(err).Msg("metrics: datadog init failed; metrics disabled")
			return func() {}
		}
		metrics.SetBackend(b)
		log.Info().Str("statsd", m.StatsdAddr).Msg("metrics: datadog enabled")

	default:
		log.Warn().Str("backend", m.Backend).Msg("metrics: unknown backend; metrics disabled")
		return func() {}
	}

	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn().Err(err).Msg("metrics: flush failed")
		}
	}
}

// printSummary renders the run summary for humans, tables in load order.
func printSummary(w io.Writer, sum *pipeline.Summary) {
	line := strings.Repeat("=", 50)
	fmt.Fprintf(w, "\n%s\n", line)
	fmt.Fprintln(w, "ETL Pipeline Results")
	fmt.Fprintln(w, line)
	fmt.Fprintf(w, "Status: %s\n", sum.Status)
	fmt.Fprintf(w, "Duration: %.2fs\n", sum.DurationSeconds)

	loaded := make([]string, 0, len(sum.Tables))
	for _, tbl := range schema.LoadOrder() {
		if _, ok := sum.Tables[tbl.Name]; ok {
			loaded = append(loaded, tbl.Name)
		}
	}
	fmt.Fprintf(w, "Tables loaded: %s\n", strings.Join(loaded, ", "))
	for _, name := range loaded {
		fmt.Fprintf(w, "  - %s: %d rows\n", name, sum.Tables[name].Loaded)
	}

	if len(sum.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		for _, e := range sum.Errors {
			fmt.Fprintf(w, "  - %s\n", e)
		}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
