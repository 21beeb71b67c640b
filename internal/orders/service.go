package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
	"github.com/casamarket/casa-backend/pkg/metrics"
	"github.com/casamarket/casa-backend/pkg/outbox"
	"github.com/casamarket/casa-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the order item lifecycle and order reads.
type Service interface {
	UpdateItemStatus(ctx context.Context, itemID, sellerID uuid.UUID, status enums.OrderItemStatus) (enums.OrderItemStatus, error)
	CancelItem(ctx context.Context, itemID, customerID uuid.UUID) (enums.OrderItemStatus, error)
	GetOrder(ctx context.Context, orderID uuid.UUID, viewer Viewer) (*OrderDTO, error)
	ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error)
	ListSellerItems(ctx context.Context, sellerID uuid.UUID, filter SellerItemFilter, params pagination.Params) (*pagination.Page[OrderItemDTO], error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outbox.Emitter
	logg    *logger.Logger
	metrics *metrics.Domain
}

func NewService(repo Repository, tx txRunner, emitter outbox.Emitter, logg *logger.Logger, m *metrics.Domain) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, tx: tx, outbox: emitter, logg: logg, metrics: m}, nil
}

func (s *service) UpdateItemStatus(ctx context.Context, itemID, sellerID uuid.UUID, status enums.OrderItemStatus) (enums.OrderItemStatus, error) {
	if itemID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order item id required")
	}
	if sellerID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if !status.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown order item status").
			WithDetails(map[string]any{"status": status})
	}

	// Ownership is checked first, then terminal state, then the seller's
	// right to the target. A finished item answers InvalidState to its
	// seller whatever the target.
	actor := &outbox.ActorRef{ID: sellerID, Role: string(enums.RoleSeller)}
	return s.transition(ctx, itemID, status, actor, func(item *models.OrderItem) error {
		if item.SellerID != sellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order item does not belong to seller")
		}
		if item.Status.IsTerminal() {
			return invalidTransition(item.Status, status)
		}
		if !sellerMayApply(status) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "sellers cannot cancel order items")
		}
		return nil
	})
}

func (s *service) CancelItem(ctx context.Context, itemID, customerID uuid.UUID) (enums.OrderItemStatus, error) {
	if itemID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "order item id required")
	}
	if customerID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}

	actor := &outbox.ActorRef{ID: customerID, Role: string(enums.RoleCustomer)}
	return s.transition(ctx, itemID, enums.OrderItemStatusCancelled, actor, func(item *models.OrderItem) error {
		if item.Order == nil || item.Order.CustomerID != customerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order item does not belong to customer")
		}
		return nil
	})
}

// transition applies a single status change as a compare-and-swap on the
// current status, so two racing updates cannot both succeed.
func (s *service) transition(
	ctx context.Context,
	itemID uuid.UUID,
	to enums.OrderItemStatus,
	actor *outbox.ActorRef,
	authorize func(*models.OrderItem) error,
) (enums.OrderItemStatus, error) {
	var from enums.OrderItemStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindItem(ctx, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order item")
		}
		if err := authorize(item); err != nil {
			return err
		}

		from = item.Status
		if !CanTransition(from, to) {
			return invalidTransition(from, to)
		}

		ok, err := repo.CompareAndSetStatus(ctx, item.ID, from, to)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update order item status")
		}
		if !ok {
			current, err := repo.FindItem(ctx, itemID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload order item")
			}
			return invalidTransition(current.Status, to)
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderItemStatusChanged,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Actor:         actor,
			Data: outbox.OrderItemStatusChangedEvent{
				OrderItemID: item.ID,
				OrderID:     item.OrderID,
				SellerID:    item.SellerID,
				From:        string(from),
				To:          string(to),
			},
		})
	})
	if err != nil {
		return "", err
	}

	s.metrics.ItemTransitioned(string(from), string(to))
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_item_id": itemID.String(),
		"from":          from,
		"to":            to,
		"actor_role":    actor.Role,
	})
	s.logg.Info(logCtx, "order item status changed")
	return to, nil
}

func invalidTransition(from, to enums.OrderItemStatus) error {
	return pkgerrors.Newf(pkgerrors.CodeInvalidState, "cannot move order item from %s to %s", from, to).
		WithDetails(map[string]any{"from": from, "to": to})
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, viewer Viewer) (*OrderDTO, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}

	switch viewer.Role {
	case enums.RoleAdmin:
	case enums.RoleCustomer:
		if order.CustomerID != viewer.ID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
	case enums.RoleSeller:
		// sellers only see their own lines of a mixed order
		mine := order.Items[:0]
		for _, item := range order.Items {
			if item.SellerID == viewer.ID {
				mine = append(mine, item)
			}
		}
		if len(mine) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order has no items for seller")
		}
		order.Items = mine
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot read orders")
	}

	dto := NewOrderDTO(*order)
	return &dto, nil
}

func (s *service) ListCustomerOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*pagination.Page[OrderDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListCustomerOrders(ctx, customerID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}
	dtos := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewOrderDTO(row))
	}
	page := pagination.Build(dtos, params.Limit, orderCursor)
	return &page, nil
}

func (s *service) ListSellerItems(ctx context.Context, sellerID uuid.UUID, filter SellerItemFilter, params pagination.Params) (*pagination.Page[OrderItemDTO], error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order item status")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListSellerItems(ctx, sellerID, filter, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list seller items")
	}
	dtos := make([]OrderItemDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, NewOrderItemDTO(row))
	}
	page := pagination.Build(dtos, params.Limit, itemCursor)
	return &page, nil
}
