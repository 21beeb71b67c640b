// Package customers reads customer rows. Credit balances are written only
// through the ledger.
package customers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/db/models"
)

type Repository struct {
	conn *gorm.DB
}

func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{conn: conn}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{conn: tx}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return db.FindByID[models.Customer](ctx, r.conn, id)
}
