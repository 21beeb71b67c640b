package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/internal/ledger"
	"github.com/casamarket/casa-backend/internal/orders"
	"github.com/casamarket/casa-backend/internal/pricing"
	"github.com/casamarket/casa-backend/internal/sellers"
	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
	"github.com/casamarket/casa-backend/pkg/logger"
	"github.com/casamarket/casa-backend/pkg/metrics"
	"github.com/casamarket/casa-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type productLoader interface {
	FindByIDsWithSeller(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// OrderNotifier receives placed orders after commit. Failures never affect
// the order.
type OrderNotifier interface {
	OrderPlaced(ctx context.Context, order models.Order, customer models.Customer) error
}

// Service places orders as one atomic unit.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
	Quote(ctx context.Context, lines []LineInput) (*QuoteResult, error)
}

type Deps struct {
	Tx         txRunner
	Customers  customerLoader
	Products   productLoader
	Orders     orders.Repository
	Ledger     ledger.Service
	Outbox     outbox.Emitter
	Calculator *pricing.Calculator
	Notifier   OrderNotifier
	Logger     *logger.Logger
	Metrics    *metrics.Domain
}

type service struct {
	tx        txRunner
	customers customerLoader
	products  productLoader
	orders    orders.Repository
	ledger    ledger.Service
	outbox    outbox.Emitter
	calc      *pricing.Calculator
	notifier  OrderNotifier
	logg      *logger.Logger
	metrics   *metrics.Domain
}

func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if deps.Calculator == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	return &service{
		tx:        deps.Tx,
		customers: deps.Customers,
		products:  deps.Products,
		orders:    deps.Orders,
		ledger:    deps.Ledger,
		outbox:    deps.Outbox,
		calc:      deps.Calculator,
		notifier:  deps.Notifier,
		logg:      deps.Logger,
		metrics:   deps.Metrics,
	}, nil
}

// pricedLine pairs the trusted product snapshot with its normalized terms.
type pricedLine struct {
	product models.Product
	terms   sellers.DeliveryTerms
	line    pricing.Line
}

func (s *service) Quote(ctx context.Context, lines []LineInput) (*QuoteResult, error) {
	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}
	priced, totals, err := s.price(ctx, merged)
	if err != nil {
		return nil, err
	}
	out := &QuoteResult{Totals: totals, Lines: make([]QuoteLine, 0, len(priced))}
	for i, p := range priced {
		out.Lines = append(out.Lines, QuoteLine{
			ProductID:      p.product.ID,
			MaterialName:   p.product.Name,
			SellerID:       p.product.SellerID,
			SellerName:     p.product.Seller.Name,
			Quantity:       p.line.Quantity,
			UnitPriceCents: p.line.UnitPriceCents,
			Totals:         totals.Lines[i],
		})
	}
	return out, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	result, err := s.placeOrder(ctx, input)
	if err != nil {
		s.metrics.OrderPlacementFailed(string(pkgerrors.CodeOf(err)))
		return nil, err
	}
	return result, nil
}

func (s *service) placeOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	input, err := validatePlacement(input)
	if err != nil {
		return nil, err
	}

	customer, err := s.customers.FindByID(ctx, input.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customer")
	}

	priced, totals, err := s.price(ctx, input.Lines)
	if err != nil {
		return nil, err
	}

	if input.CreditToUseCents > 0 {
		// store credit is all-or-nothing
		if input.CreditToUseCents != totals.GrandTotalCents {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "store credit must cover the full order total").
				WithDetails(map[string]any{
					"field":            "creditToUseCents",
					"creditToUseCents": input.CreditToUseCents,
					"grandTotalCents":  totals.GrandTotalCents,
				})
		}
		if input.CreditToUseCents > customer.CreditCents {
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientCredit, "insufficient store credit").
				WithDetails(map[string]any{
					"balanceCents":   customer.CreditCents,
					"requestedCents": input.CreditToUseCents,
				})
		}
	}

	shippingAddress := input.ShippingAddress
	if shippingAddress == "" && customer.Address != nil {
		shippingAddress = *customer.Address
	}

	order := &models.Order{
		ID:                      uuid.New(),
		CustomerID:              customer.ID,
		CustomerName:            customer.Name,
		ShippingAddress:         shippingAddress,
		PaymentMethod:           input.PaymentMethod,
		SubtotalCents:           totals.SubtotalCents,
		CasaChargeCents:         totals.CasaChargeCents,
		DeliveryChargeCents:     totals.DeliveryChargeCents,
		InstallationChargeCents: totals.InstallationTotalCents,
		GrandTotalCents:         totals.GrandTotalCents,
		CreditAppliedCents:      input.CreditToUseCents,
	}
	items := buildItems(order.ID, priced, totals)
	var debit ledger.Movement

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order items")
		}

		if input.CreditToUseCents > 0 {
			moved, err := s.ledger.ReserveAndDebit(ctx, tx, ledger.Entry{
				CustomerID:  customer.ID,
				AmountCents: input.CreditToUseCents,
				OrderID:     &order.ID,
			})
			if err != nil {
				return err
			}
			debit = moved
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{ID: customer.ID, Role: string(enums.RoleCustomer)},
			Data: outbox.OrderPlacedEvent{
				OrderID:            order.ID,
				CustomerID:         customer.ID,
				SellerIDs:          sellerIDs(items),
				ItemCount:          len(items),
				PaymentMethod:      order.PaymentMethod,
				GrandTotalCents:    order.GrandTotalCents,
				CreditAppliedCents: order.CreditAppliedCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	order.Items = items
	s.ledger.Committed(ctx, debit)
	s.afterCommit(ctx, *order, *customer)

	newBalance := customer.CreditCents
	if debit.AmountCents > 0 {
		newBalance = debit.BalanceAfterCents
	}

	return &PlaceOrderResult{
		OrderID:         order.ID,
		PaymentMethod:   order.PaymentMethod,
		NewBalanceCents: newBalance,
		Totals:          totals,
	}, nil
}

func (s *service) afterCommit(ctx context.Context, order models.Order, customer models.Customer) {
	s.metrics.OrderPlaced(order.PaymentMethod, order.GrandTotalCents)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":          order.ID.String(),
		"customer_id":       customer.ID.String(),
		"payment_method":    order.PaymentMethod,
		"grand_total_cents": order.GrandTotalCents,
		"items":             len(order.Items),
	})
	s.logg.Info(logCtx, "order placed")

	if s.notifier == nil {
		return
	}
	if err := s.notifier.OrderPlaced(ctx, order, customer); err != nil {
		s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "order confirmation email failed")
	}
}

// price reloads every product and its seller and prices the cart from
// storage values only.
func (s *service) price(ctx context.Context, lines []LineInput) ([]pricedLine, pricing.Totals, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := s.products.FindByIDsWithSeller(ctx, ids)
	if err != nil {
		return nil, pricing.Totals{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load products")
	}

	priced := make([]pricedLine, 0, len(lines))
	calcLines := make([]pricing.Line, 0, len(lines))
	for i, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, pricing.Totals{}, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"line": i, "productId": line.ProductID})
		}
		if !product.Availability.Orderable() {
			return nil, pricing.Totals{}, pkgerrors.New(pkgerrors.CodeValidation, "product unavailable").
				WithDetails(map[string]any{"line": i, "productId": line.ProductID, "availability": product.Availability})
		}
		if product.Seller == nil {
			return nil, pricing.Totals{}, pkgerrors.Newf(pkgerrors.CodeInternal, "product %s has no seller", product.ID)
		}
		terms, err := sellers.NormalizeTerms(*product.Seller)
		if err != nil {
			return nil, pricing.Totals{}, err
		}
		calcLine := pricing.Line{
			Quantity:                line.Quantity,
			UnitPriceCents:          product.PriceCents,
			ShippingType:            terms.ShippingType,
			ShippingChargeCents:     terms.ShippingChargeCents,
			Installation:            terms.Installation,
			InstallationChargeCents: terms.InstallationChargeCents,
		}
		calcLines = append(calcLines, calcLine)
		priced = append(priced, pricedLine{product: product, terms: terms, line: calcLine})
	}

	totals, err := s.calc.Calculate(calcLines)
	if err != nil {
		return nil, pricing.Totals{}, err
	}
	return priced, totals, nil
}

func buildItems(orderID uuid.UUID, priced []pricedLine, totals pricing.Totals) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(priced))
	for i, p := range priced {
		items = append(items, models.OrderItem{
			ID:                       uuid.New(),
			OrderID:                  orderID,
			ProductID:                p.product.ID,
			SellerID:                 p.product.SellerID,
			MaterialName:             p.product.Name,
			SellerName:               p.product.Seller.Name,
			UnitPriceCents:           p.line.UnitPriceCents,
			Quantity:                 p.line.Quantity,
			ShippingChargeType:       p.terms.ShippingType,
			ShippingChargeCents:      p.terms.ShippingChargeCents,
			InstallationAvailability: p.terms.Installation,
			InstallationChargeCents:  p.terms.InstallationChargeCents,
			MinDeliveryDays:          p.terms.MinDeliveryDays,
			MaxDeliveryDays:          p.terms.MaxDeliveryDays,
			ItemTotalCents:           totals.Lines[i].TotalCents,
			Status:                   enums.OrderItemStatusPending,
			ReturnStatus:             enums.ItemReturnNone,
		})
	}
	return items
}

func sellerIDs(items []models.OrderItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	out := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		out = append(out, item.SellerID)
	}
	return out
}
