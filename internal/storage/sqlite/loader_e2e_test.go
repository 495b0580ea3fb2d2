package sqlite

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"logiflow/internal/dataset"
	"logiflow/internal/schema"
	"logiflow/internal/storage"
)

/*
Loader tests against a real database. The fake-backed tests in
internal/storage pin the strategy selection; these pin the property the fakes
cannot: repeated loads of the same dataset converge instead of accumulating.
*/

func customersDataset() *dataset.Dataset {
	return dataset.FromRows(
		[]string{"customer_id", "first_name", "customer_city", "customer_state"},
		[]dataset.Row{
			{"customer_id": "c1", "first_name": "Ana", "customer_city": "sao paulo", "customer_state": "SP"},
			{"customer_id": "c2", "first_name": "Bruno", "customer_city": "curitiba", "customer_state": "PR"},
			{"customer_id": "c3", "first_name": "Clara", "customer_city": "recife", "customer_state": "PE"},
		})
}

func TestLoaderDoubleLoadConverges(t *testing.T) {
	t.Parallel()

	r := newFileRepo(t)
	ctx := context.Background()
	mustCreate(t, r, schema.Customers)
	l := storage.NewLoader(r, zerolog.Nop())

	first, err := l.Load(ctx, schema.Customers, customersDataset())
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.Mode != storage.ModeBulk || first.Loaded != 3 {
		t.Fatalf("first load: mode=%s loaded=%d, want %s/3", first.Mode, first.Loaded, storage.ModeBulk)
	}

	second, err := l.Load(ctx, schema.Customers, customersDataset())
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if second.Mode != storage.ModeUpsert || second.Loaded != 3 {
		t.Fatalf("second load: mode=%s loaded=%d, want %s/3", second.Mode, second.Loaded, storage.ModeUpsert)
	}

	count, err := r.RowCount(ctx, "customers")
	if err != nil {
		t.Fatalf("RowCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("row count after double load: got %d, want the dataset size 3", count)
	}
}

func TestLoaderUpsertLastWriterWins(t *testing.T) {
	t.Parallel()

	r := newFileRepo(t)
	ctx := context.Background()
	mustCreate(t, r, schema.Customers)
	l := storage.NewLoader(r, zerolog.Nop())

	load := func(city string) {
		t.Helper()
		ds := dataset.FromRows(
			[]string{"customer_id", "customer_city"},
			[]dataset.Row{{"customer_id": "c1", "customer_city": city}})
		if _, err := l.Load(ctx, schema.Customers, ds); err != nil {
			t.Fatalf("load with city %q: %v", city, err)
		}
	}
	load("New York")
	load("Boston")

	count, err := r.RowCount(ctx, "customers")
	if err != nil {
		t.Fatalf("RowCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("row count: got %d, want the conflicting key collapsed to 1", count)
	}

	var city string
	q := `SELECT customer_city FROM customers WHERE customer_id = ?`
	if err := r.db.QueryRowContext(ctx, q, "c1").Scan(&city); err != nil {
		t.Fatalf("verify row: %v", err)
	}
	if city != "Boston" {
		t.Fatalf("customer_city: got %q, want the later write", city)
	}
}
