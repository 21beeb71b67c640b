package returns

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	"github.com/casamarket/casa-backend/pkg/pagination"
)

// Repository persists return requests and the return marker on order items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.ReturnRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error)
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	CompareAndSetGate(ctx context.Context, id uuid.UUID, gate Gate, to enums.ApprovalStatus, note *string) (bool, error)
	MarkRefunded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	SetItemReturnStatus(ctx context.Context, itemID uuid.UUID, status enums.ItemReturnStatus, keepFulfilled bool) error
	ListForSeller(ctx context.Context, sellerID uuid.UUID, pendingOnly bool, cursor *pagination.Cursor, limit int) ([]models.ReturnRequest, error)
	ListAwaitingAdmin(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.ReturnRequest, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, request *models.ReturnRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ReturnRequest, error) {
	return db.FindByID[models.ReturnRequest](ctx, r.db, id)
}

func (r *repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	return db.FindByID[models.OrderItem](ctx, r.db, itemID, "Order")
}

// CompareAndSetGate moves one gate out of PENDING. The admin gate only moves
// once the seller has approved.
func (r *repository) CompareAndSetGate(ctx context.Context, id uuid.UUID, gate Gate, to enums.ApprovalStatus, note *string) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.ReturnRequest{}).Where("id = ?", id)
	updates := map[string]any{}
	switch gate {
	case GateAdmin:
		q = q.Where("admin_approval_status = ? AND seller_approval_status = ?", enums.ApprovalPending, enums.ApprovalApproved)
		updates["admin_approval_status"] = to
		updates["admin_note"] = note
	default:
		q = q.Where("seller_approval_status = ?", enums.ApprovalPending)
		updates["seller_approval_status"] = to
		updates["seller_note"] = note
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkRefunded(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.ReturnRequest{}).
		Where("id = ? AND refunded_at IS NULL", id).
		Update("refunded_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) SetItemReturnStatus(ctx context.Context, itemID uuid.UUID, status enums.ItemReturnStatus, keepFulfilled bool) error {
	updates := map[string]any{"return_status": status}
	if keepFulfilled {
		updates["status"] = enums.OrderItemStatusFulfilled
	}
	return r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Updates(updates).Error
}

func (r *repository) ListForSeller(ctx context.Context, sellerID uuid.UUID, pendingOnly bool, cursor *pagination.Cursor, limit int) ([]models.ReturnRequest, error) {
	q := r.db.WithContext(ctx).Where("seller_id = ?", sellerID)
	if pendingOnly {
		q = q.Where("seller_approval_status = ?", enums.ApprovalPending)
	}
	var rows []models.ReturnRequest
	err := q.Scopes(pagination.Keyset(cursor, limit, "")).Find(&rows).Error
	return rows, err
}

func (r *repository) ListAwaitingAdmin(ctx context.Context, cursor *pagination.Cursor, limit int) ([]models.ReturnRequest, error) {
	var rows []models.ReturnRequest
	err := r.db.WithContext(ctx).
		Where("seller_approval_status = ? AND admin_approval_status = ?", enums.ApprovalApproved, enums.ApprovalPending).
		Scopes(pagination.Keyset(cursor, limit, "")).
		Find(&rows).Error
	return rows, err
}
