package adapter

import (
	"dipbot/internal/adapter/enum"

	"github.com/shopspring/decimal"
)

// OrderID is the exchange-assigned order identifier. It is opaque to the strategy.
type OrderID string

func (id OrderID) IsEmpty() bool {
	return len(id) == 0
}

func (id OrderID) String() string {
	return string(id)
}

// Order is a point-in-time view of an order on the exchange. Orders are never
// amended in place; a leg that needs a new price or size gets a new order.
type Order struct {
	ID            OrderID
	ClientOrderID string
	Symbol        string
	Side          enum.OrderSide
	Kind          enum.OrderKind
	// Price is the limit price for limit orders and the trigger price for stop orders.
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Filled      decimal.Decimal
	Status      enum.OrderStatus
	UpdatedTime int64
}

// OrderRequest describes an order to submit.
type OrderRequest struct {
	Symbol        string
	Side          enum.OrderSide
	Kind          enum.OrderKind
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	ClientOrderID string
}

// IsValid reports whether the request can be submitted.
func (r OrderRequest) IsValid() bool {
	if len(r.Symbol) == 0 || !r.Side.IsAvailable() || !r.Kind.IsAvailable() {
		return false
	}
	return r.Price.IsPositive() && r.Quantity.IsPositive()
}
