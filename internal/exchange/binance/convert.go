package binance

import (
	"errors"
	"fmt"
	"strconv"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
	"dipbot/pkg/exception"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

// API error codes that mean the order is no longer on the book.
const (
	codeUnknownOrder      = -2011
	codeOrderDoesNotExist = -2013
)

func toSide(side enum.OrderSide) (futures.SideType, error) {
	switch side {
	case enum.OrderSideBuy:
		return futures.SideTypeBuy, nil
	case enum.OrderSideSell:
		return futures.SideTypeSell, nil
	default:
		return "", fmt.Errorf("%w: side %d", exception.ErrInvalidArgument, side)
	}
}

func fromSide(side futures.SideType) enum.OrderSide {
	switch side {
	case futures.SideTypeBuy:
		return enum.OrderSideBuy
	case futures.SideTypeSell:
		return enum.OrderSideSell
	default:
		return 0
	}
}

func fromType(t futures.OrderType) enum.OrderKind {
	switch t {
	case futures.OrderTypeLimit:
		return enum.OrderKindLimit
	case futures.OrderTypeStopMarket:
		return enum.OrderKindStopMarket
	default:
		return 0
	}
}

func fromStatus(s futures.OrderStatusType) enum.OrderStatus {
	switch s {
	case futures.OrderStatusTypeNew:
		return enum.OrderStatusOpen
	case futures.OrderStatusTypePartiallyFilled:
		return enum.OrderStatusPartialFilled
	case futures.OrderStatusTypeFilled:
		return enum.OrderStatusFilled
	case futures.OrderStatusTypeCanceled:
		return enum.OrderStatusCanceled
	case futures.OrderStatusTypeRejected:
		return enum.OrderStatusRejected
	case futures.OrderStatusTypeExpired:
		return enum.OrderStatusExpired
	default:
		return 0
	}
}

func parseOrderID(id adapter.OrderID) (int64, error) {
	n, err := strconv.ParseInt(id.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: order id %q", exception.ErrInvalidArgument, id)
	}
	return n, nil
}

func formatOrderID(id int64) adapter.OrderID {
	return adapter.OrderID(strconv.FormatInt(id, 10))
}

// decimalOrZero parses an exchange number string; garbage becomes zero.
func decimalOrZero(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// orderPrice picks the trigger price for stop orders, the limit price otherwise.
func orderPrice(t futures.OrderType, price, stopPrice string) decimal.Decimal {
	if t == futures.OrderTypeStopMarket {
		return decimalOrZero(stopPrice)
	}
	return decimalOrZero(price)
}

func fromOrder(o *futures.Order) adapter.Order {
	return adapter.Order{
		ID:            formatOrderID(o.OrderID),
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Side:          fromSide(o.Side),
		Kind:          fromType(o.Type),
		Price:         orderPrice(o.Type, o.Price, o.StopPrice),
		Quantity:      decimalOrZero(o.OrigQuantity),
		Filled:        decimalOrZero(o.ExecutedQuantity),
		Status:        fromStatus(o.Status),
		UpdatedTime:   o.UpdateTime,
	}
}

func fromCreateResponse(r *futures.CreateOrderResponse) adapter.Order {
	return adapter.Order{
		ID:            formatOrderID(r.OrderID),
		ClientOrderID: r.ClientOrderID,
		Symbol:        r.Symbol,
		Side:          fromSide(r.Side),
		Kind:          fromType(r.Type),
		Price:         orderPrice(r.Type, r.Price, r.StopPrice),
		Quantity:      decimalOrZero(r.OrigQuantity),
		Filled:        decimalOrZero(r.ExecutedQuantity),
		Status:        fromStatus(r.Status),
		UpdatedTime:   r.UpdateTime,
	}
}

// symbolMeta reads the tick size from the PRICE_FILTER and the declared
// quantity precision of one exchange-info entry.
func symbolMeta(s futures.Symbol) (adapter.SymbolMeta, error) {
	meta := adapter.SymbolMeta{
		Symbol:            s.Symbol,
		QuantityPrecision: int32(s.QuantityPrecision),
	}
	for _, f := range s.Filters {
		if f["filterType"] != "PRICE_FILTER" {
			continue
		}
		tick, ok := f["tickSize"].(string)
		if !ok {
			break
		}
		v, err := decimal.NewFromString(tick)
		if err != nil {
			return meta, fmt.Errorf("%w: %s tick size %q", exception.ErrInvalidSymbol, s.Symbol, tick)
		}
		meta.TickSize = v
	}
	if !meta.IsValid() {
		return meta, fmt.Errorf("%w: %s has no usable price filter", exception.ErrInvalidSymbol, s.Symbol)
	}
	return meta, nil
}

// isOrderGone reports whether err says the order is not on the book.
func isOrderGone(err error) bool {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == codeUnknownOrder || apiErr.Code == codeOrderDoesNotExist
}
