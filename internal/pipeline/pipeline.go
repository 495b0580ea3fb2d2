// Package pipeline orchestrates one ETL run: initialize the destination
// schema, extract raw datasets, clean them into entities, validate against
// the rule sets, and load the survivors in dependency order. Phases run
// strictly in sequence and any phase failure ends the run.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"logiflow/internal/dataset"
	"logiflow/internal/metrics"
	"logiflow/internal/schema"
	"logiflow/internal/storage"
	"logiflow/internal/transform"
	"logiflow/internal/validate"
)

// Extractor yields raw datasets for a source selector.
type Extractor interface {
	FetchAll(ctx context.Context, source string) (map[string]*dataset.Dataset, error)
}

// Transformer routes raw datasets onto content entities and cleans them.
type Transformer interface {
	Run(raw map[string]*dataset.Dataset) map[string]*dataset.Dataset
}

// Pipeline wires the run collaborators together. Construct with New, then
// set Extract (and any overrides) before calling Run.
type Pipeline struct {
	Extract   Extractor
	Transform Transformer
	Rules     map[string]*validate.RuleSet
	Loader    *storage.Loader
	Repo      storage.Repository
	Kind      string // storage backend kind, drives DDL bootstrap
	Source    string
	Validate  bool
	Log       zerolog.Logger

	now      func() time.Time // test seam for summary timestamps
	newRunID func() string
}

// New returns a Pipeline bound to repo with the stock transformer, rule-set
// presets and reconcile loader. The extractor depends on endpoint and
// directory configuration, so the caller supplies it.
func New(repo storage.Repository, kind string, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		Transform: transform.NewTransformer(log),
		Rules:     validate.Defaults(),
		Loader:    storage.NewLoader(repo, log),
		Repo:      repo,
		Kind:      kind,
		Source:    "api",
		Validate:  true,
		Log:       log,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
}

// Run executes the full pipeline once. The returned Summary is always
// populated, on failure as well; err is non-nil exactly when the run failed.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := p.now()
	sum := &Summary{
		RunID:     p.newRunID(),
		Source:    p.Source,
		StartTime: start.UTC(),
		Tables:    map[string]TableCount{},
		Reports:   map[string]validate.Report{},
		Errors:    []string{},
	}
	log := p.Log.With().Str("run_id", sum.RunID).Logger()

	log.Info().
		Str("source", p.Source).
		Str("db", p.Kind).
		Bool("validate", p.Validate).
		Msg("starting pipeline run")

	err := p.execute(ctx, log, sum)

	end := p.now()
	sum.EndTime = end.UTC()
	sum.DurationSeconds = math.Round(end.Sub(start).Seconds()*100) / 100

	if err != nil {
		sum.Status = StatusFailed
		sum.Errors = append(sum.Errors, err.Error())
		p.recordFailure(ctx, log, sum, err)
		log.Error().Err(err).Float64("duration_seconds", sum.DurationSeconds).Msg("pipeline run failed")
		return sum, err
	}

	sum.Status = StatusCompleted
	log.Info().Float64("duration_seconds", sum.DurationSeconds).Msg("pipeline run complete")
	return sum, nil
}

// execute walks the phases in order. Each phase is timed and recorded; the
// first failure stops the walk.
func (p *Pipeline) execute(ctx context.Context, log zerolog.Logger, sum *Summary) error {
	if err := p.phase(log, sum.RunID, "schema", func() error {
		return storage.EnsureSchema(ctx, p.Kind, p.Repo)
	}); err != nil {
		return err
	}

	var raw map[string]*dataset.Dataset
	if err := p.phase(log, sum.RunID, "extract", func() error {
		var err error
		raw, err = p.Extract.FetchAll(ctx, p.Source)
		return err
	}); err != nil {
		return err
	}
	p.countExtracted(sum, raw)

	var cleaned map[string]*dataset.Dataset
	if err := p.phase(log, sum.RunID, "transform", func() error {
		cleaned = p.Transform.Run(raw)
		return nil
	}); err != nil {
		return err
	}
	p.countTransformed(sum, cleaned)

	if p.Validate {
		if err := p.phase(log, sum.RunID, "validate", func() error {
			return p.runValidation(log, sum, cleaned)
		}); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("validation disabled, skipping")
	}

	if err := p.phase(log, sum.RunID, "load", func() error {
		return p.runLoad(ctx, log, sum, cleaned)
	}); err != nil {
		return err
	}

	p.logTableCounts(ctx, log)
	return nil
}

// phase runs fn, records its latency and outcome, and logs the transition.
// A failure comes back wrapped with the phase name.
func (p *Pipeline) phase(log zerolog.Logger, run, name string, fn func() error) error {
	log.Info().Str("phase", name).Msg("phase started")
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	metrics.RecordPhase(run, name, err, elapsed)
	if err != nil {
		log.Error().Str("phase", name).Dur("elapsed", elapsed.Truncate(time.Millisecond)).Err(err).Msg("phase failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Info().Str("phase", name).Dur("elapsed", elapsed.Truncate(time.Millisecond)).Msg("phase complete")
	return nil
}

// countExtracted attributes raw dataset sizes to their destination entities.
// Keys with no routing entry are not counted; they never reach a table.
func (p *Pipeline) countExtracted(sum *Summary, raw map[string]*dataset.Dataset) {
	for key, ds := range raw {
		entity, ok := transform.EntityFor(key)
		if !ok || ds == nil {
			continue
		}
		sum.addExtracted(entity, int64(ds.Len()))
		metrics.RecordRows(sum.RunID, entity, "extracted", int64(ds.Len()))
	}
}

func (p *Pipeline) countTransformed(sum *Summary, cleaned map[string]*dataset.Dataset) {
	for _, tbl := range schema.LoadOrder() {
		ds, ok := cleaned[tbl.Name]
		if !ok || ds == nil {
			continue
		}
		sum.setTransformed(tbl.Name, int64(ds.Len()))
		metrics.RecordRows(sum.RunID, tbl.Name, "transformed", int64(ds.Len()))
	}
}

// runValidation validates every cleaned entity that has a rule set,
// collecting all reports before deciding. Any critical failure fails the
// phase and nothing is loaded.
func (p *Pipeline) runValidation(log zerolog.Logger, sum *Summary, cleaned map[string]*dataset.Dataset) error {
	names := make([]string, 0, len(p.Rules))
	for name := range cleaned {
		if _, ok := p.Rules[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	critical := ""
	for _, name := range names {
		rep := p.Rules[name].Validate(cleaned[name])
		sum.Reports[name] = rep

		ev := log.Info()
		if !rep.Passed() {
			ev = log.Warn()
		}
		ev.Str("table", name).
			Int("rows", rep.RowCount).
			Int("failed_checks", rep.ErrorCount()).
			Bool("critical", rep.HasCriticalFailures()).
			Msg("validation report")

		if critical == "" && rep.HasCriticalFailures() {
			critical = name
		}
	}

	if critical != "" {
		return fmt.Errorf("%s: %w", critical, validate.ErrCritical)
	}
	return nil
}

// runLoad loads each entity table in dependency order and appends one run
// record per table it touched. Tables with no cleaned rows are skipped
// without a record.
func (p *Pipeline) runLoad(ctx context.Context, log zerolog.Logger, sum *Summary, cleaned map[string]*dataset.Dataset) error {
	for _, tbl := range schema.LoadOrder() {
		ds, ok := cleaned[tbl.Name]
		if !ok || ds == nil || ds.Len() == 0 {
			log.Debug().Str("table", tbl.Name).Msg("no rows for table, skipping")
			continue
		}

		start := time.Now()
		res, err := p.Loader.Load(ctx, tbl, ds)
		if err != nil {
			return fmt.Errorf("load %s: %w", tbl.Name, err)
		}

		sum.setLoaded(tbl.Name, res.Loaded)
		metrics.RecordRows(sum.RunID, tbl.Name, "loaded", res.Loaded)
		metrics.RecordRows(sum.RunID, tbl.Name, "skipped", res.Skipped)

		status := storage.RunStatusSuccess
		if res.Mode == storage.ModeSkipped {
			status = storage.RunStatusSkipped
		}
		counts := sum.Tables[tbl.Name]
		rec := storage.RunRecord{
			Timestamp:        p.now(),
			Table:            tbl.Name,
			Source:           p.Source,
			RowsExtracted:    counts.Extracted,
			RowsTransformed:  counts.Transformed,
			RowsLoaded:       res.Loaded,
			ValidationPassed: p.validationOutcome(tbl.Name, sum),
			Duration:         time.Since(start),
			Status:           status,
		}
		if err := storage.AppendRunRecord(ctx, p.Repo, rec); err != nil {
			log.Warn().Err(err).Str("table", tbl.Name).Msg("failed to append run record")
		}
	}
	return nil
}

// validationOutcome reports whether validation passed for a table: nil when
// validation was disabled or no rule set covers the table.
func (p *Pipeline) validationOutcome(table string, sum *Summary) *bool {
	if !p.Validate {
		return nil
	}
	rep, ok := sum.Reports[table]
	if !ok {
		return nil
	}
	passed := rep.Passed()
	return &passed
}

// recordFailure appends a run-level failure record. Bookkeeping must not
// mask the original error, so append failures only warn.
func (p *Pipeline) recordFailure(ctx context.Context, log zerolog.Logger, sum *Summary, runErr error) {
	rec := storage.RunRecord{
		Timestamp:        p.now(),
		Table:            "all",
		Source:           p.Source,
		ValidationErrors: runErr.Error(),
		Duration:         time.Duration(sum.DurationSeconds * float64(time.Second)),
		Status:           storage.RunStatusFailed,
	}
	if err := storage.AppendRunRecord(ctx, p.Repo, rec); err != nil {
		log.Warn().Err(err).Msg("failed to append failure record")
	}
}

// logTableCounts reads the live row count of every content table and logs
// them in load order.
func (p *Pipeline) logTableCounts(ctx context.Context, log zerolog.Logger) {
	names := make([]string, 0, len(schema.LoadOrder()))
	for _, t := range schema.LoadOrder() {
		names = append(names, t.Name)
	}

	counts, err := storage.TableCounts(ctx, p.Repo, names)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read table counts")
		return
	}

	ev := log.Info()
	for _, n := range names {
		if c, ok := counts[n]; ok {
			ev = ev.Int64(n, c)
		}
	}
	ev.Msg("table counts after load")
}
