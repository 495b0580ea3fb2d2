package transform

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"logiflow/internal/dataset"
)

func TestOrdersCleaner_DeliveryDuration24h(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"order_id", "order_status", "order_purchase_timestamp", "order_delivered_customer_date"},
		[]dataset.Row{{
			"order_id":                      "o1",
			"order_status":                  "DELIVERED ",
			"order_purchase_timestamp":      "2024-01-01 10:00:00",
			"order_delivered_customer_date": "2024-01-02 10:00:00",
		}},
	)

	out := OrdersCleaner{Log: zerolog.Nop()}.Clean(ds)
	if out.Len() != 1 {
		t.Fatalf("rows = %d, want 1", out.Len())
	}

	row := out.Row(0)
	if row["delivery_duration_hours"] != 24.0 {
		t.Errorf("delivery_duration_hours = %v, want 24", row["delivery_duration_hours"])
	}
	if row["order_status"] != "delivered" {
		t.Errorf("order_status = %v, want delivered", row["order_status"])
	}

	ts, ok := row["order_purchase_timestamp"].(time.Time)
	if !ok {
		t.Fatalf("purchase timestamp is %T, want time.Time", row["order_purchase_timestamp"])
	}
	if ts.Location() != time.UTC {
		t.Errorf("timestamp location = %v, want UTC", ts.Location())
	}
}

func TestOrdersCleaner_FractionalDuration(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"order_id", "order_purchase_timestamp", "order_delivered_customer_date"},
		[]dataset.Row{{
			"order_id":                      "o1",
			"order_purchase_timestamp":      "2024-01-01 10:00:00",
			"order_delivered_customer_date": "2024-01-02 10:30:00",
		}},
	)

	out := OrdersCleaner{Log: zerolog.Nop()}.Clean(ds)
	if got := out.Row(0)["delivery_duration_hours"]; got != 24.5 {
		t.Errorf("delivery_duration_hours = %v, want 24.5", got)
	}
}

func TestOrdersCleaner_DurationNullWhenUndelivered(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"order_id", "order_purchase_timestamp", "order_delivered_customer_date"},
		[]dataset.Row{{
			"order_id":                      "o1",
			"order_purchase_timestamp":      "2024-01-01 10:00:00",
			"order_delivered_customer_date": nil,
		}},
	)

	out := OrdersCleaner{Log: zerolog.Nop()}.Clean(ds)
	if out.Len() != 1 {
		t.Fatalf("rows = %d, want 1", out.Len())
	}
	if !dataset.IsNull(out.Row(0)["delivery_duration_hours"]) {
		t.Errorf("expected null duration for undelivered order, got %v",
			out.Row(0)["delivery_duration_hours"])
	}
}

func TestOrdersCleaner_DropsRowsMissingRequiredFields(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"order_id", "order_purchase_timestamp"},
		[]dataset.Row{
			{"order_id": "o1", "order_purchase_timestamp": "2024-01-01 10:00:00"},
			{"order_id": nil, "order_purchase_timestamp": "2024-01-01 11:00:00"},
			{"order_id": "o3", "order_purchase_timestamp": "not a timestamp"},
			{"order_id": "o4", "order_purchase_timestamp": nil},
		},
	)

	out := OrdersCleaner{Log: zerolog.Nop()}.Clean(ds)
	if out.Len() != 1 {
		t.Fatalf("rows = %d, want 1 (only the fully populated order)", out.Len())
	}
	if out.Row(0)["order_id"] != "o1" {
		t.Errorf("surviving row = %v", out.Row(0))
	}
}

func TestOrdersCleaner_DedupesByOrderID(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"order_id", "order_purchase_timestamp"},
		[]dataset.Row{
			{"order_id": "o1", "order_purchase_timestamp": "2024-01-01 10:00:00"},
			{"order_id": "o1", "order_purchase_timestamp": "2024-01-01 10:00:00"},
			{"order_id": "o2", "order_purchase_timestamp": "2024-01-01 12:00:00"},
		},
	)

	out := OrdersCleaner{Log: zerolog.Nop()}.Clean(ds)
	if out.Len() != 2 {
		t.Fatalf("rows = %d, want 2", out.Len())
	}
}

func TestOrdersCleaner_DoesNotMutateInput(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"order_id", "order_status", "order_purchase_timestamp"},
		[]dataset.Row{{
			"order_id":                 "o1",
			"order_status":             "DELIVERED",
			"order_purchase_timestamp": "2024-01-01 10:00:00",
		}},
	)

	OrdersCleaner{Log: zerolog.Nop()}.Clean(ds)

	row := ds.Row(0)
	if row["order_status"] != "DELIVERED" {
		t.Errorf("input status mutated to %v", row["order_status"])
	}
	if _, isTime := row["order_purchase_timestamp"].(time.Time); isTime {
		t.Errorf("input timestamp mutated into time.Time")
	}
	if ds.HasColumn("delivery_duration_hours") {
		t.Errorf("derived column leaked into input dataset")
	}
}

func TestProductsCleaner_RenamesAndFills(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"id", "category", "price"},
		[]dataset.Row{
			{"id": int64(1), "category": " Electronics ", "price": 99.5},
			{"id": int64(1), "category": "Electronics", "price": 99.5},
			{"id": int64(2), "category": "Books", "price": nil},
		},
	)

	out := ProductsCleaner{Log: zerolog.Nop()}.Clean(ds)

	if out.HasColumn("id") || !out.HasColumn("product_id") {
		t.Fatalf("expected id renamed to product_id, columns = %v", out.Columns())
	}
	if out.Len() != 2 {
		t.Fatalf("rows = %d, want 2 after dedupe", out.Len())
	}
	if out.Row(0)["category"] != "electronics" {
		t.Errorf("category = %v, want electronics", out.Row(0)["category"])
	}
	if out.Row(1)["price"] != 0.0 {
		t.Errorf("missing price = %v, want 0", out.Row(1)["price"])
	}
}

func TestProductsCleaner_KeepsExistingProductID(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"product_id", "category"},
		[]dataset.Row{{"product_id": "p1", "category": "books"}},
	)

	out := ProductsCleaner{Log: zerolog.Nop()}.Clean(ds)
	if !out.HasColumn("product_id") {
		t.Fatalf("product_id column lost, columns = %v", out.Columns())
	}
}

func TestOrderItemsCleaner_RatioAndFills(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"order_id", "product_id", "price", "freight_value"},
		[]dataset.Row{
			{"order_id": "o1", "product_id": "p1", "price": 100.0, "freight_value": 12.34},
			{"order_id": "o1", "product_id": "p1", "price": 100.0, "freight_value": 12.34},
			{"order_id": "o2", "product_id": "p2", "price": 50.0, "freight_value": nil},
			{"order_id": "o3", "product_id": "p3", "price": 0.0, "freight_value": 5.0},
			{"order_id": "o4", "product_id": "p4", "price": nil, "freight_value": 5.0},
		},
	)

	out := OrderItemsCleaner{Log: zerolog.Nop()}.Clean(ds)
	if out.Len() != 4 {
		t.Fatalf("rows = %d, want 4 after composite dedupe", out.Len())
	}

	if got := out.Row(0)["shipping_cost_ratio"]; got != 0.1234 {
		t.Errorf("ratio = %v, want 0.1234", got)
	}
	// Filled freight of 0 over a real price gives a zero ratio.
	if got := out.Row(1)["freight_value"]; got != 0.0 {
		t.Errorf("freight_value = %v, want filled 0", got)
	}
	if got := out.Row(1)["shipping_cost_ratio"]; got != 0.0 {
		t.Errorf("ratio = %v, want 0", got)
	}
	// Zero or missing price cannot produce a ratio.
	if !dataset.IsNull(out.Row(2)["shipping_cost_ratio"]) {
		t.Errorf("expected null ratio for zero price, got %v", out.Row(2)["shipping_cost_ratio"])
	}
	if !dataset.IsNull(out.Row(3)["shipping_cost_ratio"]) {
		t.Errorf("expected null ratio for missing price, got %v", out.Row(3)["shipping_cost_ratio"])
	}
}

func TestOrderItemsCleaner_RoundsRatioTo4Places(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"order_id", "product_id", "price", "freight_value"},
		[]dataset.Row{
			{"order_id": "o1", "product_id": "p1", "price": 3.0, "freight_value": 1.0},
		},
	)

	out := OrderItemsCleaner{Log: zerolog.Nop()}.Clean(ds)
	if got := out.Row(0)["shipping_cost_ratio"]; got != 0.3333 {
		t.Errorf("ratio = %v, want 0.3333", got)
	}
}

func TestCustomersCleaner_RenamesAndNormalizes(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"user_id", "email", "first_name", "last_name"},
		[]dataset.Row{{
			"user_id":    int64(1),
			"email":      " John.Doe@Example.COM ",
			"first_name": " john ",
			"last_name":  "doe",
		}},
	)

	out := CustomersCleaner{Log: zerolog.Nop()}.Clean(ds)

	if out.HasColumn("user_id") || !out.HasColumn("customer_id") {
		t.Fatalf("expected user_id renamed to customer_id, columns = %v", out.Columns())
	}
	row := out.Row(0)
	if row["email"] != "john.doe@example.com" {
		t.Errorf("email = %v, want john.doe@example.com", row["email"])
	}
	if row["first_name"] != "john" {
		t.Errorf("first_name = %v, want john", row["first_name"])
	}
}

func TestCustomersCleaner_KeepsExistingCustomerID(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"customer_id", "email"},
		[]dataset.Row{{"customer_id": "c1", "email": "a@b.c"}},
	)

	out := CustomersCleaner{Log: zerolog.Nop()}.Clean(ds)
	if !out.HasColumn("customer_id") {
		t.Fatalf("customer_id column lost, columns = %v", out.Columns())
	}
	if out.Row(0)["customer_id"] != "c1" {
		t.Errorf("customer_id = %v, want c1", out.Row(0)["customer_id"])
	}
}

func TestSellersCleaner_NormalizesCityAndState(t *testing.T) {
	ds := dataset.FromRows(
		[]string{"seller_id", "seller_city", "seller_state"},
		[]dataset.Row{
			{"seller_id": "s1", "seller_city": " Campinas ", "seller_state": "sp"},
			{"seller_id": "s2", "seller_city": "OSASCO", "seller_state": " rj "},
		},
	)

	out := SellersCleaner{Log: zerolog.Nop()}.Clean(ds)

	if out.Row(0)["seller_city"] != "campinas" || out.Row(0)["seller_state"] != "SP" {
		t.Errorf("row 0 = %v", out.Row(0))
	}
	if out.Row(1)["seller_city"] != "osasco" || out.Row(1)["seller_state"] != "RJ" {
		t.Errorf("row 1 = %v", out.Row(1))
	}
}
