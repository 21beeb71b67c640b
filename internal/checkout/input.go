package checkout

import (
	"strings"

	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/internal/pricing"
	"github.com/casamarket/casa-backend/pkg/enums"
	pkgerrors "github.com/casamarket/casa-backend/pkg/errors"
)

const maxLines = 100

// LineInput is one cart line as the client sends it. Prices are never taken
// from the client.
type LineInput struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type PlaceOrderInput struct {
	CustomerID       uuid.UUID
	Lines            []LineInput
	PaymentMethod    string
	CreditToUseCents int64
	ShippingAddress  string
}

type PlaceOrderResult struct {
	OrderID         uuid.UUID      `json:"orderId"`
	PaymentMethod   string         `json:"paymentMethod"`
	NewBalanceCents int64          `json:"newBalanceCents"`
	Totals          pricing.Totals `json:"totals"`
}

// QuoteLine echoes a priced line back to the client for display.
type QuoteLine struct {
	ProductID      uuid.UUID          `json:"productId"`
	MaterialName   string             `json:"materialName"`
	SellerID       uuid.UUID          `json:"sellerId"`
	SellerName     string             `json:"sellerName"`
	Quantity       int                `json:"quantity"`
	UnitPriceCents int64              `json:"unitPriceCents"`
	Totals         pricing.LineTotals `json:"totals"`
}

type QuoteResult struct {
	Lines  []QuoteLine    `json:"lines"`
	Totals pricing.Totals `json:"totals"`
}

// mergeLines validates the cart and folds duplicate products into one line,
// keeping first-seen order.
func mergeLines(lines []LineInput) ([]LineInput, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}
	if len(lines) > maxLines {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "at most %d lines are allowed", maxLines)
	}
	merged := make([]LineInput, 0, len(lines))
	index := make(map[uuid.UUID]int, len(lines))
	for i, line := range lines {
		if line.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required").
				WithDetails(map[string]any{"line": i, "field": "productId"})
		}
		if line.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
				WithDetails(map[string]any{"line": i, "field": "quantity"})
		}
		if at, ok := index[line.ProductID]; ok {
			merged[at].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged, nil
}

// validatePlacement runs the input checks that need no storage.
func validatePlacement(input PlaceOrderInput) (PlaceOrderInput, error) {
	if input.CustomerID == uuid.Nil {
		return input, pkgerrors.New(pkgerrors.CodeUnauthorized, "customer identity missing")
	}
	lines, err := mergeLines(input.Lines)
	if err != nil {
		return input, err
	}
	input.Lines = lines

	if input.CreditToUseCents < 0 {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "credit to use cannot be negative").
			WithDetails(map[string]any{"field": "creditToUseCents"})
	}
	input.PaymentMethod = strings.TrimSpace(input.PaymentMethod)
	if input.CreditToUseCents > 0 {
		input.PaymentMethod = enums.PaymentMethodStoreCredit
	} else if input.PaymentMethod == "" {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required").
			WithDetails(map[string]any{"field": "paymentMethod"})
	} else if strings.EqualFold(input.PaymentMethod, enums.PaymentMethodStoreCredit) {
		return input, pkgerrors.New(pkgerrors.CodeValidation, "store credit payment requires creditToUseCents").
			WithDetails(map[string]any{"field": "paymentMethod"})
	}
	input.ShippingAddress = strings.TrimSpace(input.ShippingAddress)
	return input, nil
}
