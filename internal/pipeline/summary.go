package pipeline

import (
	"time"

	"logiflow/internal/validate"
)

// Run outcomes reported in Summary.Status.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// TableCount tracks how many rows moved through each stage for one table.
type TableCount struct {
	Extracted   int64 `json:"extracted"`
	Transformed int64 `json:"transformed"`
	Loaded      int64 `json:"loaded"`
}

// Summary is the stable record of one pipeline run: identity, timing,
// per-table row movement, validation reports and any errors. It marshals to
// the JSON payload the CLI can emit.
type Summary struct {
	RunID           string                     `json:"run_id"`
	Status          string                     `json:"status"`
	Source          string                     `json:"source"`
	StartTime       time.Time                  `json:"start_time"`
	EndTime         time.Time                  `json:"end_time"`
	DurationSeconds float64                    `json:"duration_seconds"`
	Tables          map[string]TableCount      `json:"tables"`
	Reports         map[string]validate.Report `json:"validation_reports"`
	Errors          []string                   `json:"errors"`
}

// addExtracted accumulates extracted rows for an entity table.
func (s *Summary) addExtracted(table string, n int64) {
	c := s.Tables[table]
	c.Extracted += n
	s.Tables[table] = c
}

func (s *Summary) setTransformed(table string, n int64) {
	c := s.Tables[table]
	c.Transformed = n
	s.Tables[table] = c
}

func (s *Summary) setLoaded(table string, n int64) {
	c := s.Tables[table]
	c.Loaded = n
	s.Tables[table] = c
}
