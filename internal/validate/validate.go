// Package validate implements a rule-based data quality engine. A RuleSet
// holds the declared checks for one table; Validate runs every rule against a
// dataset snapshot and produces a Report that classifies each failure by
// severity. Only a critical failure is meant to stop a pipeline run.
package validate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrCritical marks a run-stopping validation failure. Orchestration code
// wraps it with the offending table name so callers can branch on it with
// errors.Is.
var ErrCritical = errors.New("critical validation failure")

// Severity classifies how bad a failed check is.
type Severity int8

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	}
	return fmt.Sprintf("severity(%d)", int8(s))
}

// ParseSeverity maps a config string onto a Severity. Matching is
// case-insensitive; "warn" is accepted for "warning".
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	case "critical":
		return SeverityCritical, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

// MarshalJSON renders the severity as its lowercase name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Result is the outcome of a single check. It is immutable once produced.
type Result struct {
	Rule     string         `json:"rule"`
	Passed   bool           `json:"passed"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// Report collects the results of every rule run against one dataset. It is a
// pure function of (dataset, rule set) at one point in time and is never
// recomputed incrementally.
type Report struct {
	Table    string
	RowCount int
	Results  []Result
}

// Passed reports whether every check passed.
func (r Report) Passed() bool {
	for _, res := range r.Results {
		if !res.Passed {
			return false
		}
	}
	return true
}

// HasCriticalFailures reports whether any failed check carries
// SeverityCritical. This is the one signal that aborts a run before loading.
func (r Report) HasCriticalFailures() bool {
	for _, res := range r.Results {
		if !res.Passed && res.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of failed checks at any severity.
func (r Report) ErrorCount() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed {
			n++
		}
	}
	return n
}

// MarshalJSON emits the report with its derived properties inlined.
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Table      string   `json:"table_name"`
		RowCount   int      `json:"row_count"`
		Passed     bool     `json:"passed"`
		ErrorCount int      `json:"error_count"`
		Critical   bool     `json:"has_critical_failures"`
		Results    []Result `json:"results"`
	}{r.Table, r.RowCount, r.Passed(), r.ErrorCount(), r.HasCriticalFailures(), r.Results})
}
