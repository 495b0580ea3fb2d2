package extract

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"logiflow/internal/dataset"
)

// Source selects where the pipeline extracts from.
const (
	SourceAPI  = "api"
	SourceCSV  = "csv"
	SourceBoth = "both"
)

// ValidSource reports whether s names a known extraction source.
func ValidSource(s string) bool {
	switch s {
	case SourceAPI, SourceCSV, SourceBoth:
		return true
	}
	return false
}

// Fetcher runs extraction across the configured sources and merges the
// results under suffixed keys, products_api or orders_csv and so on, so the
// two sources never collide.
type Fetcher struct {
	API *APIClient
	CSV *CSVReader
	Log zerolog.Logger
}

// FetchAll extracts from the sources selected by source and returns the
// merged datasets. An API failure is fatal; CSV extraction degrades.
func (f *Fetcher) FetchAll(ctx context.Context, source string) (map[string]*dataset.Dataset, error) {
	if !ValidSource(source) {
		return nil, fmt.Errorf("unsupported source=%s", source)
	}

	merged := make(map[string]*dataset.Dataset)

	if source == SourceAPI || source == SourceBoth {
		f.Log.Info().Msg("extracting from API")
		data, err := f.API.FetchAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("extract from api: %w", err)
		}
		for key, ds := range data {
			merged[key+"_api"] = ds
		}
	}

	if source == SourceCSV || source == SourceBoth {
		f.Log.Info().Msg("extracting from CSV files")
		data, err := f.CSV.FetchAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("extract from csv: %w", err)
		}
		for key, ds := range data {
			merged[key+"_csv"] = ds
		}
	}

	return merged, nil
}
