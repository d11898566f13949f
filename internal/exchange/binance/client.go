package binance

import (
	"context"
	"fmt"

	"dipbot/internal/adapter"
	"dipbot/internal/adapter/enum"
	"dipbot/pkg/exception"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// Config selects the account and the venue.
type Config struct {
	Token   adapter.Token
	Testnet bool
}

// Client is the USDⓈ-M futures connectivity layer. It signs and sends
// requests and does not retry.
type Client struct {
	cli *futures.Client
}

// New creates a client. The testnet switch is package-wide in go-binance,
// so it is set before the client is built.
func New(cfg Config) (*Client, error) {
	if cfg.Token.IsEmpty() {
		return nil, errors.Wrap(exception.ErrInvalidArgument, "binance api key and secret are required")
	}
	if cfg.Testnet {
		futures.UseTestnet = true
		logs.Info("binance futures testnet enabled")
	}
	return &Client{cli: futures.NewClient(cfg.Token.Key, cfg.Token.Secret)}, nil
}

func (c *Client) PlaceOrder(ctx context.Context, req adapter.OrderRequest) (adapter.Order, error) {
	side, err := toSide(req.Side)
	if err != nil {
		return adapter.Order{}, err
	}

	svc := c.cli.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Quantity(req.Quantity.String())
	if len(req.ClientOrderID) != 0 {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}

	switch req.Kind {
	case enum.OrderKindLimit:
		svc = svc.Type(futures.OrderTypeLimit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(req.Price.String())
	case enum.OrderKindStopMarket:
		svc = svc.Type(futures.OrderTypeStopMarket).
			StopPrice(req.Price.String())
	default:
		return adapter.Order{}, fmt.Errorf("%w: %s", exception.ErrOrderUnsupportedKind, req.Kind)
	}

	resp, err := svc.Do(ctx)
	if err != nil {
		return adapter.Order{}, errors.Wrap(err, "create order").
			With("symbol", req.Symbol).
			With("side", req.Side.String()).
			With("kind", req.Kind.String()).
			With("price", req.Price.String()).
			With("quantity", req.Quantity.String())
	}
	return fromCreateResponse(resp), nil
}

func (c *Client) CancelOrder(ctx context.Context, symbol string, id adapter.OrderID) error {
	orderID, err := parseOrderID(id)
	if err != nil {
		return err
	}
	if _, err := c.cli.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx); err != nil {
		if isOrderGone(err) {
			return fmt.Errorf("%w: %s %s", exception.ErrOrderNotFound, symbol, id)
		}
		return errors.Wrap(err, "cancel order").With("symbol", symbol).With("id", id.String())
	}
	return nil
}

func (c *Client) ListOpenOrders(ctx context.Context, symbol string) ([]adapter.Order, error) {
	orders, err := c.cli.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list open orders").With("symbol", symbol)
	}
	out := make([]adapter.Order, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, fromOrder(o))
	}
	return out, nil
}

func (c *Client) GetOrder(ctx context.Context, symbol string, id adapter.OrderID) (adapter.Order, error) {
	orderID, err := parseOrderID(id)
	if err != nil {
		return adapter.Order{}, err
	}
	o, err := c.cli.NewGetOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		if isOrderGone(err) {
			return adapter.Order{}, fmt.Errorf("%w: %s %s", exception.ErrOrderNotFound, symbol, id)
		}
		return adapter.Order{}, errors.Wrap(err, "get order").With("symbol", symbol).With("id", id.String())
	}
	return fromOrder(o), nil
}

// FetchSymbolMetadata reads tick size and quantity precision from exchange info.
func (c *Client) FetchSymbolMetadata(ctx context.Context, symbol string) (adapter.SymbolMeta, error) {
	info, err := c.cli.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return adapter.SymbolMeta{}, errors.Wrap(err, "exchange info").With("symbol", symbol)
	}
	for _, s := range info.Symbols {
		if s.Symbol == symbol {
			return symbolMeta(s)
		}
	}
	return adapter.SymbolMeta{}, fmt.Errorf("%w: %s not listed", exception.ErrInvalidSymbol, symbol)
}

// MarkPrice returns the current mark price of symbol.
func (c *Client) MarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	res, err := c.cli.NewPremiumIndexService().Symbol(symbol).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "premium index").With("symbol", symbol)
	}
	for _, p := range res {
		if p != nil && p.Symbol == symbol {
			return decimal.NewFromString(p.MarkPrice)
		}
	}
	return decimal.Zero, fmt.Errorf("%w: no mark price for %s", exception.ErrInvalidSymbol, symbol)
}
