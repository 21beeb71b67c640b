// Package products reads the catalog rows checkout and ratings need.
package products

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

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return db.FindByID[models.Product](ctx, r.conn, id)
}

// FindByIDsWithSeller preloads each product's seller, since checkout prices
// delivery and installation from seller settings.
func (r *Repository) FindByIDsWithSeller(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	return db.FindByIDs(ctx, r.conn, ids, func(p models.Product) uuid.UUID { return p.ID }, "Seller")
}
