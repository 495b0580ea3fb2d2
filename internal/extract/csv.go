package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"logiflow/internal/dataset"
)

// olistFiles maps dataset names onto the standard Olist export filenames.
var olistFiles = map[string]string{
	"orders":         "olist_orders_dataset.csv",
	"order_items":    "olist_order_items_dataset.csv",
	"order_payments": "olist_order_payments_dataset.csv",
	"order_reviews":  "olist_order_reviews_dataset.csv",
	"customers":      "olist_customers_dataset.csv",
	"sellers":        "olist_sellers_dataset.csv",
	"products":       "olist_products_dataset.csv",
	"geolocation":    "olist_geolocation_dataset.csv",
}

// olistOrder fixes the iteration order over olistFiles.
var olistOrder = []string{
	"orders", "order_items", "order_payments", "order_reviews",
	"customers", "sellers", "products", "geolocation",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVReader loads the Olist CSV exports from one directory.
type CSVReader struct {
	Dir string
	Log zerolog.Logger

	now func() time.Time
}

// NewCSVReader returns a CSVReader over dir.
func NewCSVReader(dir string, log zerolog.Logger) *CSVReader {
	return &CSVReader{Dir: dir, Log: log, now: time.Now}
}

// FetchAll loads every Olist file present under Dir. A missing directory
// degrades to a warning and an empty result; an unreadable file is skipped
// with a warning. Each loaded dataset gains extracted_at and source_file
// columns and is profiled at debug level.
func (r *CSVReader) FetchAll(ctx context.Context) (map[string]*dataset.Dataset, error) {
	data := make(map[string]*dataset.Dataset, len(olistOrder))

	if _, err := os.Stat(r.Dir); err != nil {
		r.Log.Warn().Str("dir", r.Dir).Msg("olist data directory not found")
		return data, nil
	}

	for _, name := range olistOrder {
		if err := ctx.Err(); err != nil {
			return data, err
		}

		filename := olistFiles[name]
		path := filepath.Join(r.Dir, filename)
		if _, err := os.Stat(path); err != nil {
			r.Log.Warn().Str("file", filename).Msg("file not found")
			continue
		}

		ds, err := r.ReadFile(path)
		if err != nil {
			r.Log.Warn().Err(err).Str("dataset", name).Str("file", filename).Msg("failed to load csv")
			continue
		}
		ds.SetColumn("extracted_at", r.now().UTC())
		ds.SetColumn("source_file", filename)

		r.Log.Debug().Str("file", filename).Interface("profile", ProfileDataset(ds)).Msg("dataset profile")
		r.Log.Info().
			Str("file", filename).
			Int("rows", ds.Len()).
			Int("columns", len(ds.Columns())).
			Msg("csv file loaded")

		data[name] = ds
	}

	r.Log.Info().Int("loaded_tables", len(data)).Msg("olist data loading complete")
	return data, nil
}

// ReadFile parses one CSV file into a dataset. The reader tolerates a UTF-8
// BOM, lazy quotes and ragged rows; headers are normalized via
// NormalizeHeader and empty cells become nulls.
func (r *CSVReader) ReadFile(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if peek, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(peek, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read %s: empty file", path)
		}
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = NormalizeHeader(h)
	}

	ds := dataset.New(cols...)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		row := make(dataset.Row, len(cols))
		for i, c := range cols {
			if i < len(rec) && rec[i] != "" {
				row[c] = rec[i]
			} else {
				row[c] = nil
			}
		}
		ds.Append(row)
	}
	return ds, nil
}
