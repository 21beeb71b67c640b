package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/casamarket/casa-backend/pkg/db/models"
	"github.com/casamarket/casa-backend/pkg/enums"
)

func Customer(t testing.TB, conn *gorm.DB, creditCents int64) *models.Customer {
	t.Helper()
	c := &models.Customer{
		Email:       fmt.Sprintf("buyer-%s@example.com", uuid.NewString()[:8]),
		Name:        "Test Buyer",
		CreditCents: creditCents,
	}
	mustCreate(t, conn, c)
	return c
}

// Seller creates a seller; mutate adjusts the raw delivery-term columns.
func Seller(t testing.TB, conn *gorm.DB, mutate func(*models.Seller)) *models.Seller {
	t.Helper()
	s := &models.Seller{
		Email:           fmt.Sprintf("seller-%s@example.com", uuid.NewString()[:8]),
		Name:            "Test Seller",
		MinDeliveryDays: 2,
		MaxDeliveryDays: 7,
	}
	if mutate != nil {
		mutate(s)
	}
	mustCreate(t, conn, s)
	return s
}

func Product(t testing.TB, conn *gorm.DB, sellerID uuid.UUID, priceCents int64) *models.Product {
	t.Helper()
	p := &models.Product{
		SellerID:     sellerID,
		Name:         "Oak plank",
		PriceCents:   priceCents,
		Availability: enums.ProductAvailable,
	}
	mustCreate(t, conn, p)
	return p
}

// OrderItem inserts a single-item order for the customer in the given status.
func OrderItem(t testing.TB, conn *gorm.DB, customer *models.Customer, product *models.Product, status enums.OrderItemStatus, totalCents int64) *models.OrderItem {
	t.Helper()
	order := &models.Order{
		CustomerID:      customer.ID,
		CustomerName:    customer.Name,
		PaymentMethod:   "cash_on_delivery",
		SubtotalCents:   totalCents,
		GrandTotalCents: totalCents,
	}
	mustCreate(t, conn, order)
	item := &models.OrderItem{
		OrderID:                  order.ID,
		ProductID:                product.ID,
		SellerID:                 product.SellerID,
		MaterialName:             product.Name,
		SellerName:               "Test Seller",
		UnitPriceCents:           totalCents,
		Quantity:                 1,
		ShippingChargeType:       enums.ShippingFree,
		InstallationAvailability: enums.InstallationNone,
		ItemTotalCents:           totalCents,
		Status:                   status,
		ReturnStatus:             enums.ItemReturnNone,
	}
	mustCreate(t, conn, item)
	return item
}

func Credit(t testing.TB, conn *gorm.DB, customerID uuid.UUID) int64 {
	t.Helper()
	var c models.Customer
	if err := conn.Select("credit_cents").Take(&c, "id = ?", customerID).Error; err != nil {
		t.Fatalf("load credit: %v", err)
	}
	return c.CreditCents
}

func Count(t testing.TB, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func mustCreate(t testing.TB, conn *gorm.DB, v any) {
	t.Helper()
	if err := conn.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}
