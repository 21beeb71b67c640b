package outbox

import "github.com/google/uuid"

type OrderPlacedEvent struct {
	OrderID            uuid.UUID   `json:"orderId"`
	CustomerID         uuid.UUID   `json:"customerId"`
	SellerIDs          []uuid.UUID `json:"sellerIds"`
	ItemCount          int         `json:"itemCount"`
	PaymentMethod      string      `json:"paymentMethod"`
	GrandTotalCents    int64       `json:"grandTotalCents"`
	CreditAppliedCents int64       `json:"creditAppliedCents"`
}

type OrderItemStatusChangedEvent struct {
	OrderItemID uuid.UUID `json:"orderItemId"`
	OrderID     uuid.UUID `json:"orderId"`
	SellerID    uuid.UUID `json:"sellerId"`
	From        string    `json:"from"`
	To          string    `json:"to"`
}

type ReturnRequestedEvent struct {
	ReturnRequestID   uuid.UUID `json:"returnRequestId"`
	OrderItemID       uuid.UUID `json:"orderItemId"`
	CustomerID        uuid.UUID `json:"customerId"`
	SellerID          uuid.UUID `json:"sellerId"`
	RefundMethod      string    `json:"refundMethod"`
	RefundAmountCents int64     `json:"refundAmountCents"`
}

type ReturnDecidedEvent struct {
	ReturnRequestID uuid.UUID `json:"returnRequestId"`
	Gate            string    `json:"gate"`
	Decision        string    `json:"decision"`
	Status          string    `json:"status"`
	RefundedCents   int64     `json:"refundedCents,omitempty"`
}

type RatingSubmittedEvent struct {
	RatingID    uuid.UUID `json:"ratingId"`
	OrderItemID uuid.UUID `json:"orderItemId"`
	ProductID   uuid.UUID `json:"productId"`
	SellerID    uuid.UUID `json:"sellerId"`
	Stars       int       `json:"stars"`
}

type HireStatusChangedEvent struct {
	HireRequestID uuid.UUID `json:"hireRequestId"`
	CustomerID    uuid.UUID `json:"customerId"`
	DesignerID    uuid.UUID `json:"designerId"`
	Status        string    `json:"status"`
}
