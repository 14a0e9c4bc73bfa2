package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of order states.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderCancelled OrderStatus = "cancelled"
)

// OrderStatuses lists every status in display order.
var OrderStatuses = []OrderStatus{OrderPending, OrderConfirmed, OrderShipped, OrderCancelled}

// ParseOrderStatus validates a status coming from a form.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrInvalidStatus
}

// Order is a placed order. Only Status changes after creation.
type Order struct {
	ID            int             `json:"id"`
	UserID        int             `json:"userId"`
	User          *OrderUser      `json:"user,omitempty"`
	Items         []OrderItem     `json:"items"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	PaymentMethod string          `json:"paymentMethod"`
	Status        OrderStatus     `json:"status"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// OrderUser is the owner snapshot embedded in order responses.
type OrderUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// OrderItem is a line snapshot at purchase time.
type OrderItem struct {
	ProductID int             `json:"productId"`
	Product   *Product        `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Subtotal returns quantity × unit price.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	PaymentMethod string `json:"paymentMethod"`
}

// OrderStatusRequest is the body of PUT /orders/{id}/status.
type OrderStatusRequest struct {
	Status OrderStatus `json:"status"`
}
