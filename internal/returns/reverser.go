package returns

import (
	"context"

	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/logger"
)

// NoopReverser is used while no payment provider is integrated. Approved
// ORIGINAL_PAYMENT refunds are logged for manual settlement.
type NoopReverser struct {
	Logger *logger.Logger
}

func (n NoopReverser) Reverse(ctx context.Context, request models.ReturnRequest) error {
	logg := n.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	logCtx := logg.WithFields(ctx, map[string]any{
		"return_request_id":   request.ID.String(),
		"customer_id":         request.CustomerID.String(),
		"refund_amount_cents": request.RefundAmountCents,
	})
	logg.Warn(logCtx, "original payment reversal not integrated; settle manually")
	return nil
}
