package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db/models"
)

// Repository owns the customers.credit_cents column and its audit trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Balance(ctx context.Context, customerID uuid.UUID) (int64, error)
	DebitIfSufficient(ctx context.Context, customerID uuid.UUID, amount int64) (bool, error)
	Increment(ctx context.Context, customerID uuid.UUID, amount int64) (bool, error)
	CreateEvent(ctx context.Context, event *models.CreditLedgerEvent) error
	ListEvents(ctx context.Context, customerID uuid.UUID, limit int) ([]models.CreditLedgerEvent, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Balance(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Select("credit_cents").
		Where("id = ?", customerID).
		Take(&customer).Error
	if err != nil {
		return 0, err
	}
	return customer.CreditCents, nil
}

// DebitIfSufficient is a single conditional UPDATE; the row count tells
// whether the balance covered the amount at the instant of the write.
func (r *repository) DebitIfSufficient(ctx context.Context, customerID uuid.UUID, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ? AND credit_cents >= ?", customerID, amount).
		Update("credit_cents", gorm.Expr("credit_cents - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) Increment(ctx context.Context, customerID uuid.UUID, amount int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Customer{}).
		Where("id = ?", customerID).
		Update("credit_cents", gorm.Expr("credit_cents + ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateEvent(ctx context.Context, event *models.CreditLedgerEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListEvents(ctx context.Context, customerID uuid.UUID, limit int) ([]models.CreditLedgerEvent, error) {
	var events []models.CreditLedgerEvent
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
