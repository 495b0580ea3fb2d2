// Package schema declares the persisted table catalog: dialect-neutral column
// definitions, natural keys, and the dependency-ordered table lists the loader
// and DDL bootstrappers work from. Backends render these definitions into
// their own CREATE TABLE dialect.
package schema

// ColumnKind is the dialect-neutral type of a declared column.
type ColumnKind int

const (
	KindText      ColumnKind = iota // VARCHAR(Length), or TEXT when Length is 0
	KindInteger                     // plain integer
	KindDecimal                     // DECIMAL(Precision, Scale)
	KindBool                        // boolean
	KindTimestamp                   // timestamp without time zone
	KindAutoID                      // auto-increment integer primary key, dialect-rendered
)

// Column describes one declared column.
type Column struct {
	Name       string
	Kind       ColumnKind
	Length     int // text width, 0 = unbounded
	Precision  int // decimal digits
	Scale      int // decimal fraction digits
	NotNull    bool
	Default    string // raw SQL default expression
	PrimaryKey bool
}

// Table couples a table name with its columns and reconcile behavior. An
// empty UpsertKey (or Upsert = false) makes the table append-only.
type Table struct {
	Name      string
	Columns   []Column
	UpsertKey string
	Upsert    bool
}

// ColumnNames returns the declared column names in definition order.
func (t Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

func text(name string, length int) Column {
	return Column{Name: name, Kind: KindText, Length: length}
}

func pk(name string, length int) Column {
	return Column{Name: name, Kind: KindText, Length: length, PrimaryKey: true}
}

func integer(name string) Column {
	return Column{Name: name, Kind: KindInteger}
}

func decimal(name string, precision, scale int) Column {
	return Column{Name: name, Kind: KindDecimal, Precision: precision, Scale: scale}
}

func timestamp(name string) Column {
	return Column{Name: name, Kind: KindTimestamp}
}

func stamped(name string) Column {
	return Column{Name: name, Kind: KindTimestamp, Default: "CURRENT_TIMESTAMP"}
}

// Customers holds buyer records keyed by the natural customer id. It carries
// both the marketplace address fields and the flattened API profile fields.
var Customers = Table{
	Name:      "customers",
	UpsertKey: "customer_id",
	Upsert:    true,
	Columns: []Column{
		pk("customer_id", 50),
		text("customer_unique_id", 50),
		text("customer_city", 100),
		text("customer_state", 10),
		text("customer_zip_code", 20),
		text("first_name", 100),
		text("last_name", 100),
		text("email", 200),
		text("phone", 50),
		text("city", 100),
		text("street", 200),
		text("zipcode", 20),
		text("lat", 50),
		text("lng", 50),
		timestamp("extracted_at"),
		text("source", 50),
		stamped("created_at"),
		stamped("updated_at"),
	},
}

var Sellers = Table{
	Name:      "sellers",
	UpsertKey: "seller_id",
	Upsert:    true,
	Columns: []Column{
		pk("seller_id", 50),
		text("seller_city", 100),
		text("seller_state", 10),
		text("seller_zip_code", 20),
		stamped("created_at"),
		stamped("updated_at"),
	},
}

var Products = Table{
	Name:      "products",
	UpsertKey: "product_id",
	Upsert:    true,
	Columns: []Column{
		pk("product_id", 50),
		text("title", 500),
		text("description", 0),
		text("category", 100),
		decimal("price", 10, 2),
		text("image", 500),
		decimal("rating_rate", 3, 2),
		integer("rating_count"),
		text("source", 50),
		timestamp("extracted_at"),
		stamped("created_at"),
		stamped("updated_at"),
	},
}

var Orders = Table{
	Name:      "orders",
	UpsertKey: "order_id",
	Upsert:    true,
	Columns: []Column{
		pk("order_id", 50),
		text("customer_id", 50),
		text("order_status", 30),
		timestamp("order_date"),
		timestamp("order_purchase_timestamp"),
		timestamp("order_approved_at"),
		timestamp("order_delivered_carrier_date"),
		timestamp("order_delivered_customer_date"),
		timestamp("order_estimated_delivery_date"),
		decimal("delivery_duration_hours", 10, 2),
		text("source", 50),
		timestamp("extracted_at"),
		stamped("created_at"),
		stamped("updated_at"),
	},
}

// OrderItems is append-only: line items have no stable natural key in the
// incoming data, so reloads append rather than reconcile.
var OrderItems = Table{
	Name: "order_items",
	Columns: []Column{
		{Name: "id", Kind: KindAutoID},
		{Name: "order_id", Kind: KindText, Length: 50, NotNull: true},
		text("product_id", 50),
		text("seller_id", 50),
		integer("order_item_id"),
		{Name: "quantity", Kind: KindInteger, Default: "1"},
		decimal("price", 10, 2),
		decimal("freight_value", 10, 2),
		decimal("shipping_cost", 10, 2),
		decimal("shipping_cost_ratio", 6, 4),
		timestamp("shipping_limit_date"),
		text("source", 50),
		timestamp("extracted_at"),
		stamped("created_at"),
		stamped("updated_at"),
	},
}

// RunLog is the bookkeeping table; one row per table per pipeline run.
var RunLog = Table{
	Name: "etl_run_log",
	Columns: []Column{
		{Name: "run_id", Kind: KindAutoID},
		stamped("run_timestamp"),
		{Name: "table_name", Kind: KindText, Length: 50, NotNull: true},
		text("source", 50),
		integer("rows_extracted"),
		integer("rows_transformed"),
		integer("rows_loaded"),
		{Name: "validation_passed", Kind: KindBool},
		text("validation_errors", 0),
		decimal("duration_seconds", 10, 2),
		{Name: "status", Kind: KindText, Length: 20, Default: "'running'"},
	},
}

// LoadOrder lists the content tables in foreign-key dependency order:
// referenced tables first, line items last.
func LoadOrder() []Table {
	return []Table{Customers, Sellers, Products, Orders, OrderItems}
}

// AllTables lists every managed table in creation order.
func AllTables() []Table {
	return []Table{Customers, Sellers, Products, Orders, OrderItems, RunLog}
}

// DropOrder lists every managed table name with dependents first, for schema
// resets.
func DropOrder() []string {
	return []string{"order_items", "orders", "products", "sellers", "customers", "etl_run_log"}
}

// ByName looks up a managed table by name.
func ByName(name string) (Table, bool) {
	for _, t := range AllTables() {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
