package model

import "github.com/shopspring/decimal"

// CartLine is one row of the remote cart. Quantity is always at least 1; the API
// removes a line instead of keeping it at zero.
type CartLine struct {
	ID       int     `json:"id"`
	Quantity int     `json:"quantity"`
	Product  Product `json:"Product"`
}

// Subtotal returns the discounted unit price × quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.EffectivePrice().Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartResponse is the body of GET /cart.
type CartResponse struct {
	Items []CartLine `json:"items"`
}

// CartAddRequest is the body of POST /cart.
type CartAddRequest struct {
	ProductID int `json:"productId"`
	Quantity  int `json:"quantity"`
}

// CartUpdateRequest is the body of PUT /cart/{id}.
type CartUpdateRequest struct {
	Quantity int `json:"quantity"`
}
