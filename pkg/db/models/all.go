package models

// All lists every model owned by this service, in dependency order. Used by
// sqlite AutoMigrate in tests and local dev.
func All() []any {
	return []any{
		&Product{},
		&Order{},
		&OrderLineItem{},
		&OrderSequence{},
		&Payment{},
		&OwnerStock{},
		&OutboxEvent{},
		&OutboxDLQ{},
		&Notification{},
	}
}
