package transform

import (
	"github.com/rs/zerolog"

	"logiflow/internal/dataset"
)

// OrdersCleaner prepares order data: dedupe, timestamp standardization,
// required-field drops, delivery duration and status normalization.
type OrdersCleaner struct {
	Log zerolog.Logger
}

func (c OrdersCleaner) Clean(ds *dataset.Dataset) *dataset.Dataset {
	out := ds.Clone()
	before := out.Len()

	if out.HasColumn("order_id") {
		out = dedupeByKey(out, []string{"order_id"})
	} else {
		out = dedupeByKey(out, out.Columns())
	}
	c.Log.Debug().Int("removed", before-out.Len()).Msg("orders deduplicated")

	standardizeTimestamps(out, timestampColumns(out))

	// Rows without an identity or purchase time cannot be loaded or
	// analyzed; drop them. A purchase timestamp that failed to parse counts
	// as missing.
	var required []string
	for _, col := range []string{"order_id", "order_purchase_timestamp"} {
		if out.HasColumn(col) {
			required = append(required, col)
		}
	}
	if len(required) > 0 {
		beforeDrop := out.Len()
		out = out.Filter(func(row dataset.Row) bool {
			for _, col := range required {
				if dataset.IsNull(row[col]) {
					return false
				}
			}
			return true
		})
		c.Log.Debug().Int("dropped", beforeDrop-out.Len()).Msg("orders missing required fields dropped")
	}

	if out.HasColumn("order_purchase_timestamp") && out.HasColumn("order_delivered_customer_date") {
		deriveDeliveryDuration(out)
	}

	if out.HasColumn("order_status") {
		normalizeText(out, []string{"order_status"}, caseLower)
	}

	c.Log.Info().Int("rows", out.Len()).Msg("orders cleaning complete")
	return out
}

// deriveDeliveryDuration adds delivery_duration_hours, the elapsed hours
// between purchase and customer delivery rounded to 2 decimals, null when
// either timestamp is missing.
func deriveDeliveryDuration(ds *dataset.Dataset) {
	for i, row := range ds.Rows() {
		delivered, okD := dataset.AsTime(row["order_delivered_customer_date"], TimestampLayouts...)
		purchased, okP := dataset.AsTime(row["order_purchase_timestamp"], TimestampLayouts...)
		if okD && okP {
			ds.Set(i, "delivery_duration_hours", roundTo(delivered.Sub(purchased).Hours(), 2))
		} else {
			ds.Set(i, "delivery_duration_hours", nil)
		}
	}
}

// ProductsCleaner prepares catalog data: key rename, dedupe, category case
// and price fills.
type ProductsCleaner struct {
	Log zerolog.Logger
}

func (c ProductsCleaner) Clean(ds *dataset.Dataset) *dataset.Dataset {
	out := ds.Clone()

	if out.HasColumn("id") && !out.HasColumn("product_id") {
		out.RenameColumn("id", "product_id")
	}

	if out.HasColumn("product_id") {
		before := out.Len()
		out = dedupeByKey(out, []string{"product_id"})
		c.Log.Debug().Int("removed", before-out.Len()).Msg("products deduplicated")
	}

	if out.HasColumn("category") {
		normalizeText(out, []string{"category"}, caseLower)
	}

	fillNumeric(out, "price", 0.0)

	c.Log.Info().Int("rows", out.Len()).Msg("products cleaning complete")
	return out
}

// OrderItemsCleaner prepares line items: composite dedupe, cost fills and
// the shipping cost ratio.
type OrderItemsCleaner struct {
	Log zerolog.Logger
}

func (c OrderItemsCleaner) Clean(ds *dataset.Dataset) *dataset.Dataset {
	out := ds.Clone()

	var keyCols []string
	for _, col := range []string{"order_id", "product_id"} {
		if out.HasColumn(col) {
			keyCols = append(keyCols, col)
		}
	}
	if len(keyCols) > 0 {
		before := out.Len()
		out = dedupeByKey(out, keyCols)
		c.Log.Debug().Int("removed", before-out.Len()).Msg("order items deduplicated")
	}

	fillNumeric(out, "freight_value", 0.0)
	fillNumeric(out, "shipping_cost", 0.0)

	if out.HasColumn("freight_value") && out.HasColumn("price") {
		deriveShippingCostRatio(out)
	}

	c.Log.Info().Int("rows", out.Len()).Msg("order items cleaning complete")
	return out
}

// deriveShippingCostRatio adds shipping_cost_ratio, freight over price
// rounded to 4 decimals, null when price is zero or missing.
func deriveShippingCostRatio(ds *dataset.Dataset) {
	for i, row := range ds.Rows() {
		freight, okF := dataset.AsFloat(row["freight_value"])
		price, okP := dataset.AsFloat(row["price"])
		if okF && okP && price != 0 {
			ds.Set(i, "shipping_cost_ratio", roundTo(freight/price, 4))
		} else {
			ds.Set(i, "shipping_cost_ratio", nil)
		}
	}
}

// CustomersCleaner prepares customer data: key rename, identity trims and
// email case.
type CustomersCleaner struct {
	Log zerolog.Logger
}

func (c CustomersCleaner) Clean(ds *dataset.Dataset) *dataset.Dataset {
	out := ds.Clone()

	if out.HasColumn("user_id") && !out.HasColumn("customer_id") {
		out.RenameColumn("user_id", "customer_id")
	}

	normalizeText(out, []string{"username", "first_name", "last_name", "phone"}, caseKeep)
	normalizeText(out, []string{"email"}, caseLower)

	c.Log.Info().Int("rows", out.Len()).Msg("customers cleaning complete")
	return out
}

// SellersCleaner prepares seller data: city and state normalization.
type SellersCleaner struct {
	Log zerolog.Logger
}

func (c SellersCleaner) Clean(ds *dataset.Dataset) *dataset.Dataset {
	out := ds.Clone()

	normalizeText(out, []string{"seller_city"}, caseLower)
	normalizeText(out, []string{"seller_state"}, caseUpper)

	c.Log.Info().Int("rows", out.Len()).Msg("sellers cleaning complete")
	return out
}
