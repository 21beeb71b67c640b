package models

import "github.com/google/uuid"

// ensureID fills surrogate keys client-side so inserts behave the same on
// Postgres (which also has a column default) and SQLite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
