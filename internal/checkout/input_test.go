package checkout

import (
	"testing"

	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/pkg/enums"
)

func TestMergeLinesKeepsFirstSeenOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	merged, err := mergeLines([]LineInput{
		{ProductID: a, Quantity: 1},
		{ProductID: b, Quantity: 2},
		{ProductID: a, Quantity: 3},
	})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(merged) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(merged))
	}
	if merged[0].ProductID != a || merged[0].Quantity != 4 {
		t.Fatalf("unexpected first line %+v", merged[0])
	}
	if merged[1].ProductID != b || merged[1].Quantity != 2 {
		t.Fatalf("unexpected second line %+v", merged[1])
	}
}

func TestValidatePlacementForcesStoreCreditLabel(t *testing.T) {
	in, err := validatePlacement(PlaceOrderInput{
		CustomerID:       uuid.New(),
		Lines:            []LineInput{{ProductID: uuid.New(), Quantity: 1}},
		PaymentMethod:    "card",
		CreditToUseCents: 10,
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if in.PaymentMethod != enums.PaymentMethodStoreCredit {
		t.Fatalf("expected store credit label, got %q", in.PaymentMethod)
	}
}
