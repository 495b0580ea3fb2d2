package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// IssueSeverity ranks a validation finding.
type IssueSeverity string

const (
	// SeverityError marks findings that make the config unusable.
	SeverityError IssueSeverity = "error"
	// SeverityWarning marks findings worth surfacing that still allow a run.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one validation finding. Path points into the config in dotted
// form, "database.postgresql.port" for example, and Message is free text.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error renders the finding as "severity at path: message", letting an Issue
// travel as a plain error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// errf and warnf build findings at the two severities.
func errf(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityError, Path: path, Message: fmt.Sprintf(format, args...)}
}

func warnf(path, format string, args ...any) Issue {
	return Issue{Severity: SeverityWarning, Path: path, Message: fmt.Sprintf(format, args...)}
}

// ValidateConfig runs every static check against c and reports the findings
// without mutating anything. Load fails on error-severity findings and passes
// warnings through to the caller.
func ValidateConfig(c Config) []Issue {
	var issues []Issue
	issues = append(issues, validateAPI(c.API)...)
	issues = append(issues, validateDatabase(c.Database)...)
	issues = append(issues, validateLoad(c.Load)...)
	issues = append(issues, validateLogging(c.Logging)...)
	issues = append(issues, validateMetrics(c.Metrics)...)
	return issues
}

func validateAPI(a API) []Issue {
	var issues []Issue

	fs := a.FakeStore
	if u, err := url.Parse(fs.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		issues = append(issues, errf("api.fake_store.base_url", "%q is not an http(s) URL", fs.BaseURL))
	}
	if fs.Timeout <= 0 {
		issues = append(issues, errf("api.fake_store.timeout", "timeout must be positive"))
	}
	if fs.RetryAttempts < 0 {
		issues = append(issues, errf("api.fake_store.retry_attempts", "retry_attempts must not be negative"))
	}

	return issues
}

func validateDatabase(d Database) []Issue {
	var issues []Issue

	switch strings.ToLower(strings.TrimSpace(d.Type)) {
	case "sqlite":
		if strings.TrimSpace(d.SQLite.Path) == "" {
			issues = append(issues, errf("database.sqlite.path", "path must not be empty for the sqlite backend"))
		}
	case "postgres", "postgresql":
		pg := d.PostgreSQL
		if strings.TrimSpace(pg.Host) == "" {
			issues = append(issues, errf("database.postgresql.host", "host must not be empty for the postgresql backend"))
		}
		if pg.Port <= 0 || pg.Port > 65535 {
			issues = append(issues, errf("database.postgresql.port", "port %d is out of range", pg.Port))
		}
		if strings.TrimSpace(pg.Database) == "" {
			issues = append(issues, errf("database.postgresql.database", "database name must not be empty"))
		}
		if pg.Username == "" {
			issues = append(issues, warnf("database.postgresql.username", "username is empty; the server may reject the connection"))
		}
	default:
		issues = append(issues, errf("database.type", "unsupported type %q; expected sqlite or postgresql", d.Type))
	}

	return issues
}

func validateLoad(l LoadSettings) []Issue {
	var issues []Issue
	if l.BatchSize <= 0 {
		issues = append(issues, warnf("load.batch_size", "batch_size is not positive; the loader falls back to its default"))
	}
	return issues
}

func validateLogging(l Logging) []Issue {
	var issues []Issue
	if _, err := zerolog.ParseLevel(strings.ToLower(l.Level)); err != nil {
		issues = append(issues, errf("logging.level", "unknown level %q", l.Level))
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
		// Metrics disabled.
	case "pushgateway":
		if strings.TrimSpace(m.GatewayURL) == "" {
			issues = append(issues, errf("metrics.gateway_url", "gateway_url is required for the pushgateway backend"))
		}
	case "datadog":
		if strings.TrimSpace(m.StatsdAddr) == "" {
			issues = append(issues, errf("metrics.statsd_addr", "statsd_addr is required for the datadog backend"))
		}
	default:
		issues = append(issues, errf("metrics.backend", "unsupported backend %q; expected pushgateway or datadog", m.Backend))
	}

	return issues
}
