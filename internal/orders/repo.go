package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db"
	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	"github.com/casamarket/casa-backend/pkg/pagination"
)

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

// itemsInPlacementOrder keeps line items in the order the cart listed them.
func itemsInPlacementOrder(q *gorm.DB) *gorm.DB {
	return q.Order("created_at ASC, id ASC")
}

// CreateOrder writes the header only; items go through CreateItems so each
// batch insert stays in one statement.
func (r gormRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	return r.conn.WithContext(ctx).Omit("Items").Create(order).Error
}

func (r gormRepository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.conn.WithContext(ctx).Omit("Order").Create(&items).Error
}

func (r gormRepository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.conn.WithContext(ctx).
		Preload("Items", itemsInPlacementOrder).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r gormRepository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error) {
	return db.FindByID[models.OrderItem](ctx, r.conn, itemID, "Order")
}

// CompareAndSetStatus moves one item between statuses. It reports false when
// another request changed the item first.
func (r gormRepository) CompareAndSetStatus(ctx context.Context, itemID uuid.UUID, from, to enums.OrderItemStatus) (bool, error) {
	res := r.conn.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ?", itemID).
		Where("status = ?", from).
		Update("status", to)
	return res.RowsAffected == 1, res.Error
}

func (r gormRepository) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	var orders []models.Order
	err := r.conn.WithContext(ctx).
		Preload("Items", itemsInPlacementOrder).
		Where("customer_id = ?", customerID).
		Scopes(pagination.Keyset(cursor, limit, "")).
		Find(&orders).Error
	return orders, err
}

func (r gormRepository) ListSellerItems(ctx context.Context, sellerID uuid.UUID, filter SellerItemFilter, cursor *pagination.Cursor, limit int) ([]models.OrderItem, error) {
	q := r.conn.WithContext(ctx).Preload("Order").Where("seller_id = ?", sellerID)
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	var items []models.OrderItem
	err := q.Scopes(pagination.Keyset(cursor, limit, "")).Find(&items).Error
	return items, err
}
