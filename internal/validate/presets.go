package validate

// fptr is a convenience for optional range bounds.
func fptr(v float64) *float64 { return &v }

// OrdersRules returns the stock rule set for the orders table.
func OrdersRules() *RuleSet {
	return NewRuleSet("orders").
		AddNullCheck("order_id", 0, SeverityCritical).
		AddNullCheck("customer_id", 0, SeverityError).
		AddNullCheck("order_purchase_timestamp", 0, SeverityError).
		AddUniqueCheck([]string{"order_id"}, SeverityError)
}

// OrderItemsRules returns the stock rule set for the order_items table.
func OrderItemsRules() *RuleSet {
	return NewRuleSet("order_items").
		AddNullCheck("order_id", 0, SeverityCritical).
		AddNullCheck("product_id", 0, SeverityError).
		AddRangeCheck("price", fptr(0), nil, SeverityWarning).
		AddRangeCheck("freight_value", fptr(0), nil, SeverityWarning)
}

// Defaults returns the built-in rule sets keyed by table name. The map is
// fresh on every call so callers may overlay file-defined sets on top.
func Defaults() map[string]*RuleSet {
	return map[string]*RuleSet{
		"orders":      OrdersRules(),
		"order_items": OrderItemsRules(),
	}
}
