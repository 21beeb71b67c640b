package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
	"github.com/casamarket/casa-backend/pkg/pagination"
)

// Viewer is the authenticated principal reading an order.
type Viewer struct {
	ID   uuid.UUID
	Role enums.ActorRole
}

type OrderDTO struct {
	ID                      uuid.UUID      `json:"id"`
	CustomerID              uuid.UUID      `json:"customerId"`
	CustomerName            string         `json:"customerName"`
	ShippingAddress         string         `json:"shippingAddress"`
	PaymentMethod           string         `json:"paymentMethod"`
	SubtotalCents           int64          `json:"subtotalCents"`
	DeliveryChargeCents     int64          `json:"deliveryChargeCents"`
	InstallationChargeCents int64          `json:"installationChargeCents"`
	CasaChargeCents         int64          `json:"casaChargeCents"`
	GrandTotalCents         int64          `json:"grandTotalCents"`
	CreditAppliedCents      int64          `json:"creditAppliedCents"`
	CreatedAt               time.Time      `json:"createdAt"`
	Items                   []OrderItemDTO `json:"items"`
}

type OrderItemDTO struct {
	ID                       uuid.UUID                      `json:"id"`
	OrderID                  uuid.UUID                      `json:"orderId"`
	ProductID                uuid.UUID                      `json:"productId"`
	SellerID                 uuid.UUID                      `json:"sellerId"`
	MaterialName             string                         `json:"materialName"`
	SellerName               string                         `json:"sellerName"`
	UnitPriceCents           int64                          `json:"unitPriceCents"`
	Quantity                 int                            `json:"quantity"`
	ShippingChargeType       enums.ShippingChargeType       `json:"shippingChargeType"`
	ShippingChargeCents      int64                          `json:"shippingChargeCents"`
	InstallationAvailability enums.InstallationAvailability `json:"installationAvailability"`
	InstallationChargeCents  int64                          `json:"installationChargeCents"`
	MinDeliveryDays          int                            `json:"minDeliveryDays"`
	MaxDeliveryDays          int                            `json:"maxDeliveryDays"`
	ItemTotalCents           int64                          `json:"itemTotalCents"`
	Status                   enums.OrderItemStatus          `json:"status"`
	ReturnStatus             enums.ItemReturnStatus         `json:"returnStatus"`
	ShippingAddress          string                         `json:"shippingAddress,omitempty"`
	CustomerName             string                         `json:"customerName,omitempty"`
	CreatedAt                time.Time                      `json:"createdAt"`
}

func NewOrderDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                      order.ID,
		CustomerID:              order.CustomerID,
		CustomerName:            order.CustomerName,
		ShippingAddress:         order.ShippingAddress,
		PaymentMethod:           order.PaymentMethod,
		SubtotalCents:           order.SubtotalCents,
		DeliveryChargeCents:     order.DeliveryChargeCents,
		InstallationChargeCents: order.InstallationChargeCents,
		CasaChargeCents:         order.CasaChargeCents,
		GrandTotalCents:         order.GrandTotalCents,
		CreditAppliedCents:      order.CreditAppliedCents,
		CreatedAt:               order.CreatedAt,
		Items:                   make([]OrderItemDTO, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, NewOrderItemDTO(item))
	}
	return dto
}

func NewOrderItemDTO(item models.OrderItem) OrderItemDTO {
	dto := OrderItemDTO{
		ID:                       item.ID,
		OrderID:                  item.OrderID,
		ProductID:                item.ProductID,
		SellerID:                 item.SellerID,
		MaterialName:             item.MaterialName,
		SellerName:               item.SellerName,
		UnitPriceCents:           item.UnitPriceCents,
		Quantity:                 item.Quantity,
		ShippingChargeType:       item.ShippingChargeType,
		ShippingChargeCents:      item.ShippingChargeCents,
		InstallationAvailability: item.InstallationAvailability,
		InstallationChargeCents:  item.InstallationChargeCents,
		MinDeliveryDays:          item.MinDeliveryDays,
		MaxDeliveryDays:          item.MaxDeliveryDays,
		ItemTotalCents:           item.ItemTotalCents,
		Status:                   item.Status,
		ReturnStatus:             item.ReturnStatus,
		CreatedAt:                item.CreatedAt,
	}
	// sellers need the delivery destination on their queue
	if item.Order != nil {
		dto.ShippingAddress = item.Order.ShippingAddress
		dto.CustomerName = item.Order.CustomerName
	}
	return dto
}

func orderCursor(o OrderDTO) pagination.Cursor {
	return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
}

func itemCursor(i OrderItemDTO) pagination.Cursor {
	return pagination.Cursor{CreatedAt: i.CreatedAt, ID: i.ID}
}
