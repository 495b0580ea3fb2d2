// internal/extract/api_test.go
//
// These tests run the Fake Store API extractor against httptest servers
// serving realistic payloads, covering the flattening of nested objects,
// cart expansion into order rows, metadata stamping and raw snapshots.

package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"logiflow/internal/dataset"
)

const productsJSON = `[
  {
    "id": 1,
    "title": "Fjallraven Backpack",
    "price": 109.95,
    "description": "Fits 15 inch laptops",
    "category": "men's clothing",
    "image": "https://example.com/1.jpg",
    "rating": {"rate": 3.9, "count": 120}
  },
  {
    "id": 2,
    "title": "Mens Casual T-Shirt",
    "price": 22.3,
    "description": "Slim fit",
    "category": "men's clothing",
    "image": "https://example.com/2.jpg",
    "rating": null
  }
]`

const cartsJSON = `[
  {
    "id": 1,
    "userId": 1,
    "date": "2020-03-02T00:00:00.000Z",
    "products": [
      {"productId": 1, "quantity": 4},
      {"productId": 2, "quantity": 1}
    ]
  },
  {
    "id": 2,
    "userId": 3,
    "date": "2020-03-01T00:00:00.000Z",
    "products": [
      {"productId": 5, "quantity": 2}
    ]
  }
]`

const usersJSON = `[
  {
    "id": 1,
    "email": "john@gmail.com",
    "username": "johnd",
    "phone": "1-570-236-7033",
    "name": {"firstname": "john", "lastname": "doe"},
    "address": {
      "city": "kilcoole",
      "street": "new road",
      "zipcode": "12926-3874",
      "geolocation": {"lat": "-37.3159", "long": "81.1496"}
    }
  }
]`

// newFakeStoreServer serves the canned payloads on the three endpoints the
// extractor hits.
func newFakeStoreServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/products", serve(productsJSON))
	mux.HandleFunc("/carts", serve(cartsJSON))
	mux.HandleFunc("/users", serve(usersJSON))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestAPIClient(baseURL string) *APIClient {
	c := NewClient(ClientConfig{Timeout: 2 * time.Second})
	c.sleep = func(time.Duration) {}
	return NewAPIClient(baseURL, c, zerolog.Nop())
}

func TestFetchProducts_FlattensRating(t *testing.T) {
	t.Parallel()

	srv := newFakeStoreServer(t)
	a := newTestAPIClient(srv.URL)

	ds, err := a.FetchProducts(context.Background())
	if err != nil {
		t.Fatalf("FetchProducts error: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected 2 products, got %d", ds.Len())
	}

	for _, col := range []string{"id", "title", "price", "rating_rate", "rating_count", "extracted_at", "source"} {
		if !ds.HasColumn(col) {
			t.Fatalf("expected column %q, got %v", col, ds.Columns())
		}
	}

	first := ds.Row(0)
	if first["title"] != "Fjallraven Backpack" {
		t.Errorf("title = %v, want Fjallraven Backpack", first["title"])
	}
	if first["price"] != 109.95 {
		t.Errorf("price = %v, want 109.95", first["price"])
	}
	if first["rating_rate"] != 3.9 {
		t.Errorf("rating_rate = %v, want 3.9", first["rating_rate"])
	}
	if first["rating_count"] != int64(120) {
		t.Errorf("rating_count = %v, want 120", first["rating_count"])
	}

	// The second product has a null rating: both flattened columns stay null.
	second := ds.Row(1)
	if !dataset.IsNull(second["rating_rate"]) || !dataset.IsNull(second["rating_count"]) {
		t.Errorf("expected null rating columns, got rate=%v count=%v",
			second["rating_rate"], second["rating_count"])
	}
}

func TestFetchCarts_ExpandsProductsIntoOrderRows(t *testing.T) {
	t.Parallel()

	srv := newFakeStoreServer(t)
	a := newTestAPIClient(srv.URL)

	ds, err := a.FetchCarts(context.Background())
	if err != nil {
		t.Fatalf("FetchCarts error: %v", err)
	}
	// Two carts carrying 2 and 1 products expand into 3 order rows.
	if ds.Len() != 3 {
		t.Fatalf("expected 3 order rows, got %d", ds.Len())
	}

	type orderRow struct {
		orderID, customerID, productID, quantity int64
	}
	var got []orderRow
	for _, row := range ds.Rows() {
		got = append(got, orderRow{
			orderID:    row["order_id"].(int64),
			customerID: row["customer_id"].(int64),
			productID:  row["product_id"].(int64),
			quantity:   row["quantity"].(int64),
		})
	}
	want := []orderRow{
		{1, 1, 1, 4},
		{1, 1, 2, 1},
		{2, 3, 5, 2},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order rows mismatch:\n got %+v\nwant %+v", got, want)
	}

	if v := ds.Row(0)["order_date"]; v != "2020-03-02T00:00:00.000Z" {
		t.Errorf("order_date = %v, want the raw API date string", v)
	}
}

func TestFetchUsers_FlattensNestedObjects(t *testing.T) {
	t.Parallel()

	srv := newFakeStoreServer(t)
	a := newTestAPIClient(srv.URL)

	ds, err := a.FetchUsers(context.Background())
	if err != nil {
		t.Fatalf("FetchUsers error: %v", err)
	}
	if ds.Len() != 1 {
		t.Fatalf("expected 1 user, got %d", ds.Len())
	}

	row := ds.Row(0)
	checks := map[string]any{
		"user_id":    int64(1),
		"email":      "john@gmail.com",
		"username":   "johnd",
		"first_name": "john",
		"last_name":  "doe",
		"city":       "kilcoole",
		"street":     "new road",
		"zipcode":    "12926-3874",
	}
	for col, want := range checks {
		if row[col] != want {
			t.Errorf("%s = %v, want %v", col, row[col], want)
		}
	}

	// Geolocation coordinates arrive as strings and must stay strings.
	if lat, ok := row["lat"].(string); !ok || lat != "-37.3159" {
		t.Errorf("lat = %v (%T), want string -37.3159", row["lat"], row["lat"])
	}
	if lng, ok := row["lng"].(string); !ok || lng != "81.1496" {
		t.Errorf("lng = %v (%T), want string 81.1496", row["lng"], row["lng"])
	}
}

func TestFetchAll_ReturnsAllDatasetsWithStamps(t *testing.T) {
	t.Parallel()

	srv := newFakeStoreServer(t)
	a := newTestAPIClient(srv.URL)

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	data, err := a.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("FetchAll error: %v", err)
	}

	for _, key := range []string{"products", "orders", "users"} {
		ds, ok := data[key]
		if !ok {
			t.Fatalf("missing dataset %q in FetchAll result", key)
		}
		if ds.Len() == 0 {
			t.Fatalf("dataset %q is empty", key)
		}
		row := ds.Row(0)
		ts, ok := row["extracted_at"].(time.Time)
		if !ok {
			t.Fatalf("%s extracted_at is %T, want time.Time", key, row["extracted_at"])
		}
		if !ts.Equal(fixed) {
			t.Errorf("%s extracted_at = %v, want %v", key, ts, fixed)
		}
		if row["source"] != "fake_store_api" {
			t.Errorf("%s source = %v, want fake_store_api", key, row["source"])
		}
	}
}

func TestFetchAll_EndpointFailureIsFatal(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	ok := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/products", ok(productsJSON))
	mux.HandleFunc("/carts", ok(cartsJSON))
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(ClientConfig{
		MaxRetries:     1,
		Timeout:        2 * time.Second,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	})
	c.sleep = func(time.Duration) {}
	a := NewAPIClient(srv.URL, c, zerolog.Nop())

	if _, err := a.FetchAll(context.Background()); err == nil {
		t.Fatalf("expected error when one endpoint keeps failing, got nil")
	}
}

func TestFetchAll_WritesRawSnapshots(t *testing.T) {
	t.Parallel()

	srv := newFakeStoreServer(t)
	a := newTestAPIClient(srv.URL)
	a.RawDir = filepath.Join(t.TempDir(), "raw")

	if _, err := a.FetchAll(context.Background()); err != nil {
		t.Fatalf("FetchAll error: %v", err)
	}

	for _, name := range []string{"products_raw.csv", "orders_raw.csv", "users_raw.csv"} {
		path := filepath.Join(a.RawDir, name)
		body, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("expected raw snapshot %s: %v", name, err)
		}
		if len(body) == 0 {
			t.Fatalf("raw snapshot %s is empty", name)
		}
	}

	// Spot-check a header: the snapshot carries the dataset columns.
	body, err := os.ReadFile(filepath.Join(a.RawDir, "orders_raw.csv"))
	if err != nil {
		t.Fatalf("read orders snapshot: %v", err)
	}
	header := strings.SplitN(string(body), "\n", 2)[0]
	for _, col := range []string{"order_id", "customer_id", "product_id", "quantity"} {
		if !strings.Contains(header, col) {
			t.Errorf("orders snapshot header %q missing column %q", header, col)
		}
	}
}
