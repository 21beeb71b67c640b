package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	"github.com/casamarket/casa-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// FindItem loads the item with its parent order so ownership can be checked.
	FindItem(ctx context.Context, itemID uuid.UUID) (*models.OrderItem, error)
	// CompareAndSetStatus moves the item only if it is still in from.
	CompareAndSetStatus(ctx context.Context, itemID uuid.UUID, from, to enums.OrderItemStatus) (bool, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)
	ListSellerItems(ctx context.Context, sellerID uuid.UUID, filter SellerItemFilter, cursor *pagination.Cursor, limit int) ([]models.OrderItem, error)
}

// SellerItemFilter narrows a seller's fulfilment queue.
type SellerItemFilter struct {
	Status *enums.OrderItemStatus
}
