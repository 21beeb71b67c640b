package hires

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	"github.com/casamarket/casa-backend/pkg/pagination"
)

// Party is the side of a hire request a listing is scoped to.
type Party int

const (
	PartyCustomer Party = iota + 1
	PartyDesigner
)

func (p Party) column() (string, error) {
	switch p {
	case PartyCustomer:
		return "customer_id", nil
	case PartyDesigner:
		return "designer_id", nil
	}
	return "", fmt.Errorf("unknown hire party %d", p)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, hire *models.HireRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.HireRequest, error)
	// CompareAndSetStatus reports false when the row was no longer in from.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to enums.HireStatus) (bool, error)
	CreateRating(ctx context.Context, rating *models.HireRating) error
	ListForParty(ctx context.Context, party Party, partyID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.HireRequest, error)
}

type gormRepository struct {
	conn *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return gormRepository{conn: conn}
}

func (r gormRepository) WithTx(tx *gorm.DB) Repository {
	if tx != nil {
		r.conn = tx
	}
	return r
}

func (r gormRepository) Create(ctx context.Context, hire *models.HireRequest) error {
	return r.conn.WithContext(ctx).Create(hire).Error
}

func (r gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.HireRequest, error) {
	return db.FindByID[models.HireRequest](ctx, r.conn, id)
}

func (r gormRepository) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to enums.HireStatus) (bool, error) {
	res := r.conn.WithContext(ctx).
		Model(&models.HireRequest{}).
		Where("id = ?", id).
		Where("status = ?", from).
		Update("status", to)
	return res.RowsAffected == 1, res.Error
}

func (r gormRepository) CreateRating(ctx context.Context, rating *models.HireRating) error {
	return r.conn.WithContext(ctx).Create(rating).Error
}

func (r gormRepository) ListForParty(ctx context.Context, party Party, partyID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.HireRequest, error) {
	column, err := party.column()
	if err != nil {
		return nil, err
	}
	var hires []models.HireRequest
	err = r.conn.WithContext(ctx).
		Where(column+" = ?", partyID).
		Scopes(pagination.Keyset(cursor, limit, "")).
		Find(&hires).Error
	return hires, err
}
