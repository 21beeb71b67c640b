package ratings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/db/models"
)

// Subject selects what a rating summary is computed over.
type Subject string

const (
	SubjectProduct Subject = "product_id"
	SubjectSeller  Subject = "seller_id"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	Create(ctx context.Context, rating *models.Rating) error
	Aggregate(ctx context.Context, subject Subject, id uuid.UUID) (Aggregate, error)
}

// Aggregate is the raw count and star sum; averages are derived on read.
type Aggregate struct {
	Count int64 `gorm:"column:rating_count"`
	Sum   int64 `gorm:"column:star_sum"`
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

// FindItem loads the line with its order, which carries the buyer and status.
func (r gormRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	return db.FindByID[models.OrderItem](ctx, r.conn, itemID, "Order")
}

func (r gormRepository) Create(ctx context.Context, rating *models.Rating) error {
	return r.conn.WithContext(ctx).Create(rating).Error
}

func (r gormRepository) Aggregate(ctx context.Context, subject Subject, id uuid.UUID) (Aggregate, error) {
	var agg Aggregate
	q := r.conn.WithContext(ctx).Model(&models.Rating{})
	switch subject {
	case SubjectProduct:
		q = q.Where("product_id = ?", id)
	case SubjectSeller:
		q = q.Where("seller_id = ?", id)
	default:
		return agg, fmt.Errorf("unknown rating subject %q", subject)
	}
	err := q.Select("COUNT(*) AS rating_count, COALESCE(SUM(stars), 0) AS star_sum").Scan(&agg).Error
	return agg, err
}
