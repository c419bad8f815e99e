package partition

// Kinds of the built-in rules.
const (
	KindInventory = "inventory"
	KindStock     = "stock"
	KindStatement = "statement"
)

// Inventory partitions inventory movements by bucket and warehouse.
// Outbound and sold movements are stored negative.
func Inventory() Rule {
	return Rule{
		Kind:        KindInventory,
		Fields:      []string{"bucket_type", "warehouse"},
		Granularity: Day,
		Sign:        NegateWhen("action", "out", "sell", "transfer_out"),
	}
}

// Stock partitions stock movements by product category.
func Stock() Rule {
	return Rule{
		Kind:        KindStock,
		Fields:      []string{"category"},
		Granularity: Day,
		Sign:        NegateWhen("action", "sell", "out"),
	}
}

// Statement partitions account statement lines by account. Lines keep
// their full timestamp; debits are stored negative.
func Statement() Rule {
	return Rule{
		Kind:        KindStatement,
		Fields:      []string{"account"},
		Granularity: Instant,
		Sign:        NegateWhen("direction", "debit"),
	}
}

// Builtin returns the built-in rules.
func Builtin() []Rule {
	return []Rule{Inventory(), Stock(), Statement()}
}
