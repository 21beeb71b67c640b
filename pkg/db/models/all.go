package models

// All lists every persisted model, in dependency order. Tests use it to build
// SQLite schemas; production schemas come from the goose migrations.
func All() []any {
	return []any{
		&Customer{},
		&Seller{},
		&Product{},
		&Order{},
		&OrderItem{},
		&Rating{},
		&ReturnRequest{},
		&CreditLedgerEvent{},
		&HireRequest{},
		&HireRating{},
		&OutboxEvent{},
	}
}
