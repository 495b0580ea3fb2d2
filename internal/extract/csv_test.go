// internal/extract/csv_test.go
//
// These tests feed the Olist CSV reader real files written into temp
// directories, covering BOM handling, header normalization, null mapping,
// ragged rows and the degrade-to-warning behavior for missing inputs.

package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"logiflow/internal/dataset"
)

func writeCSVFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

func TestReadFile_NormalizesHeadersAndNulls(t *testing.T) {
	t.Parallel()

	content := "\xEF\xBB\xBFSeller ID,Seller City ,Preço (R$)\n" +
		"s1,campinas,12.5\n" +
		"s2,,\n"
	path := writeCSVFile(t, t.TempDir(), "sellers.csv", content)

	r := NewCSVReader("", zerolog.Nop())
	ds, err := r.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}

	wantCols := []string{"seller_id", "seller_city", "preco_r"}
	if !reflect.DeepEqual(ds.Columns(), wantCols) {
		t.Fatalf("columns = %v, want %v", ds.Columns(), wantCols)
	}
	if ds.Len() != 2 {
		t.Fatalf("rows = %d, want 2", ds.Len())
	}

	first := ds.Row(0)
	if first["seller_id"] != "s1" || first["seller_city"] != "campinas" {
		t.Errorf("first row = %v", first)
	}
	// Cell values stay strings; typing happens downstream.
	if v, ok := first["preco_r"].(string); !ok || v != "12.5" {
		t.Errorf("preco_r = %v (%T), want string 12.5", first["preco_r"], first["preco_r"])
	}

	// Empty cells become nulls, like a dataframe reader's NaN.
	second := ds.Row(1)
	if !dataset.IsNull(second["seller_city"]) || !dataset.IsNull(second["preco_r"]) {
		t.Errorf("expected nulls for empty cells, got %v", second)
	}
}

func TestReadFile_ToleratesRaggedAndQuotedRows(t *testing.T) {
	t.Parallel()

	content := "a,b,c\n" +
		"1,say \"hi\",3\n" +
		"4,5\n"
	path := writeCSVFile(t, t.TempDir(), "ragged.csv", content)

	r := NewCSVReader("", zerolog.Nop())
	ds, err := r.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("rows = %d, want 2", ds.Len())
	}
	if v := ds.Row(0)["b"]; v != `say "hi"` {
		t.Errorf("quoted field = %v, want say \"hi\"", v)
	}
	// The short row leaves its missing trailing cell null.
	if !dataset.IsNull(ds.Row(1)["c"]) {
		t.Errorf("expected null for missing trailing cell, got %v", ds.Row(1)["c"])
	}
}

func TestReadFile_EmptyFileIsError(t *testing.T) {
	t.Parallel()

	path := writeCSVFile(t, t.TempDir(), "empty.csv", "")

	r := NewCSVReader("", zerolog.Nop())
	_, err := r.ReadFile(path)
	if err == nil {
		t.Fatalf("expected error for empty file, got nil")
	}
	if !strings.Contains(err.Error(), "empty file") {
		t.Errorf("error = %v, want mention of empty file", err)
	}
}

func TestReadFile_MissingFileIsError(t *testing.T) {
	t.Parallel()

	r := NewCSVReader("", zerolog.Nop())
	if _, err := r.ReadFile(filepath.Join(t.TempDir(), "nope.csv")); err == nil {
		t.Fatalf("expected error for missing file, got nil")
	}
}

func TestCSVFetchAll_LoadsPresentFilesOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSVFile(t, dir, "olist_sellers_dataset.csv",
		"seller_id,seller_city,seller_state\ns1,campinas,SP\ns2,osasco,SP\n")
	writeCSVFile(t, dir, "olist_orders_dataset.csv",
		"order_id,customer_id,order_status\no1,c1,delivered\n")

	r := NewCSVReader(dir, zerolog.Nop())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }

	data, err := r.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll error: %v", err)
	}
	if len(data) != 2 {
		t.Fatalf("loaded %d datasets, want 2: %v", len(data), data)
	}

	sellers, ok := data["sellers"]
	if !ok {
		t.Fatalf("missing sellers dataset, got keys %v", keysOf(data))
	}
	if sellers.Len() != 2 {
		t.Errorf("sellers rows = %d, want 2", sellers.Len())
	}
	row := sellers.Row(0)
	if row["source_file"] != "olist_sellers_dataset.csv" {
		t.Errorf("source_file = %v, want olist_sellers_dataset.csv", row["source_file"])
	}
	ts, ok := row["extracted_at"].(time.Time)
	if !ok || !ts.Equal(fixed) {
		t.Errorf("extracted_at = %v (%T), want %v", row["extracted_at"], row["extracted_at"], fixed)
	}

	if _, ok := data["orders"]; !ok {
		t.Errorf("missing orders dataset, got keys %v", keysOf(data))
	}
}

func TestCSVFetchAll_MissingDirDegrades(t *testing.T) {
	t.Parallel()

	r := NewCSVReader(filepath.Join(t.TempDir(), "does-not-exist"), zerolog.Nop())
	data, err := r.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("expected nil error for missing directory, got %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected empty result, got %d datasets", len(data))
	}
}

func TestCSVFetchAll_SkipsUnreadableFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// An empty file fails to parse; the reader should warn and move on.
	writeCSVFile(t, dir, "olist_orders_dataset.csv", "")
	writeCSVFile(t, dir, "olist_sellers_dataset.csv",
		"seller_id,seller_city,seller_state\ns1,campinas,SP\n")

	r := NewCSVReader(dir, zerolog.Nop())
	data, err := r.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll error: %v", err)
	}
	if _, ok := data["orders"]; ok {
		t.Errorf("expected orders to be skipped")
	}
	if _, ok := data["sellers"]; !ok {
		t.Errorf("expected sellers to load, got keys %v", keysOf(data))
	}
}

func TestCSVFetchAll_CancelledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSVFile(t, dir, "olist_sellers_dataset.csv",
		"seller_id,seller_city,seller_state\ns1,campinas,SP\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewCSVReader(dir, zerolog.Nop())
	_, err := r.FetchAll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func keysOf(m map[string]*dataset.Dataset) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
