package models

import "github.com/google/uuid"

// assignID fills a missing primary key. Postgres also defaults ids via
// gen_random_uuid(); sqlite has no equivalent.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model, in dependency order.
func All() []any {
	return []any{
		&Supplier{},
		&Customer{},
		&Part{},
		&Bill{},
		&Serial{},
		&SerialMovement{},
	}
}
