package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is written once at checkout. TotalPrice is never recomputed from
// Items afterwards.
type Order struct {
	ID              string
	UserID          int64
	TotalPrice      decimal.Decimal
	Status          OrderStatus
	ShippingAddress string
	BillingAddress  string
	Items           []OrderItem
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem captures the unit price at checkout time so later product price
// changes do not alter historical orders.
type OrderItem struct {
	ID          int64
	OrderID     string
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

func (i OrderItem) TotalPrice() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (o Order) ItemsCount() int {
	return len(o.Items)
}
