package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"logiflow/internal/config"
	"logiflow/internal/pipeline"
)

func TestPrintSummary(t *testing.T) {
	sum := &pipeline.Summary{
		Status:          pipeline.StatusCompleted,
		DurationSeconds: 1.25,
		Tables: map[string]pipeline.TableCount{
			"orders":    {Loaded: 99},
			"customers": {Loaded: 10},
		},
	}

	var buf bytes.Buffer
	printSummary(&buf, sum)
	out := buf.String()

	if !strings.Contains(out, "Status: completed") {
		t.Errorf("output missing status:\n%s", out)
	}
	if !strings.Contains(out, "Duration: 1.25s") {
		t.Errorf("output missing duration:\n%s", out)
	}
	ci := strings.Index(out, "- customers: 10 rows")
	oi := strings.Index(out, "- orders: 99 rows")
	if ci < 0 || oi < 0 {
		t.Fatalf("output missing per-table counts:\n%s", out)
	}
	// customers loads before orders.
	if ci > oi {
		t.Errorf("tables not in load order:\n%s", out)
	}
	if strings.Contains(out, "Errors:") {
		t.Errorf("unexpected errors section:\n%s", out)
	}
}

func TestPrintSummary_Errors(t *testing.T) {
	sum := &pipeline.Summary{
		Status: pipeline.StatusFailed,
		Errors: []string{"validate: orders: critical validation failure"},
	}

	var buf bytes.Buffer
	printSummary(&buf, sum)
	out := buf.String()

	if !strings.Contains(out, "Status: failed") {
		t.Errorf("output missing failed status:\n%s", out)
	}
	if !strings.Contains(out, "critical validation failure") {
		t.Errorf("output missing error detail:\n%s", out)
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, _, err := newLogger(config.Logging{Level: "verbose"})
	if err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewLogger_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "etl.log")

	log, closeLog, err := newLogger(config.Logging{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("newLogger: %v", err)
	}
	log.Info().Str("table", "orders").Msg("loaded")
	closeLog()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"table":"orders"`) {
		t.Fatalf("log file missing structured event: %s", data)
	}
}
