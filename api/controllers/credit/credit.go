package credit

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/api/middleware"
	"github.com/casamarket/casa-backend/api/responses"
	"github.com/casamarket/casa-backend/api/validators"
	"github.com/casamarket/casa-backend/internal/ledger"
	"github.com/casamarket/casa-backend/internal/pricing"
	"github.com/casamarket/casa-backend/pkg/enums"
	"github.com/casamarket/casa-backend/pkg/logger"
)

const (
	defaultHistory = 20
	maxHistory     = 100
)

type eventDTO struct {
	ID                uuid.UUID             `json:"id"`
	Type              enums.CreditEventType `json:"type"`
	AmountCents       int64                 `json:"amountCents"`
	BalanceAfterCents int64                 `json:"balanceAfterCents"`
	OrderID           *uuid.UUID            `json:"orderId,omitempty"`
	ReturnRequestID   *uuid.UUID            `json:"returnRequestId,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
}

type balanceResponse struct {
	BalanceCents int64      `json:"balanceCents"`
	Balance      string     `json:"balance"`
	History      []eventDTO `json:"history"`
}

// Balance returns the customer's store credit with the latest ledger entries.
func Balance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, _, err := middleware.Actor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.QueryInt(r, "history", defaultHistory, 0, maxHistory)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balance, err := svc.GetBalance(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := balanceResponse{
			BalanceCents: balance,
			Balance:      pricing.FormatCents(balance),
			History:      []eventDTO{},
		}
		if limit > 0 {
			events, err := svc.History(r.Context(), customerID, limit)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			for _, e := range events {
				resp.History = append(resp.History, eventDTO{
					ID:                e.ID,
					Type:              e.Type,
					AmountCents:       e.AmountCents,
					BalanceAfterCents: e.BalanceAfterCents,
					OrderID:           e.OrderID,
					ReturnRequestID:   e.ReturnRequestID,
					CreatedAt:         e.CreatedAt,
				})
			}
		}
		responses.WriteSuccess(w, resp)
	}
}
