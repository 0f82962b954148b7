// Package binance adapts the Binance spot REST API to the exchange.Client
// boundary using the adshao/go-binance SDK.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/stratbot/exchange"
)

// Client wraps the Binance spot SDK behind the exchange boundary.
type Client struct {
	api *binance.Client
}

// New creates a Binance-backed exchange client.
func New(apiKey, secretKey string) *Client {
	return &Client{api: binance.NewClient(apiKey, secretKey)}
}

// NewWithBaseURL creates a client pointed at a non-default endpoint
// (testnet or a regional mirror).
func NewWithBaseURL(apiKey, secretKey, baseURL string) *Client {
	c := New(apiKey, secretKey)
	c.api.BaseURL = baseURL
	return c
}

// FetchTicker returns the last traded price for symbol.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (exchange.Ticker, error) {
	prices, err := c.api.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return exchange.Ticker{}, fmt.Errorf("fetch ticker %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return exchange.Ticker{}, fmt.Errorf("fetch ticker %s: no price returned", symbol)
	}
	last, err := decimal.NewFromString(prices[0].Price)
	if err != nil {
		return exchange.Ticker{}, fmt.Errorf("fetch ticker %s: bad price %q: %w", symbol, prices[0].Price, err)
	}
	return exchange.Ticker{Symbol: symbol, Last: last}, nil
}

// FetchBalance returns all spot balances keyed by asset.
func (c *Client) FetchBalance(ctx context.Context) (map[string]exchange.Balance, error) {
	acct, err := c.api.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}
	out := make(map[string]exchange.Balance, len(acct.Balances))
	for _, b := range acct.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			log.Warn().Str("asset", b.Asset).Str("free", b.Free).Msg("skipping unparseable balance")
			continue
		}
		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			locked = decimal.Zero
		}
		out[b.Asset] = exchange.Balance{Asset: b.Asset, Free: free, Locked: locked}
	}
	return out, nil
}

// CreateMarketBuyOrder submits a market buy for quantity of the base asset.
func (c *Client) CreateMarketBuyOrder(ctx context.Context, symbol string, quantity decimal.Decimal) (exchange.OrderAck, error) {
	return c.createMarketOrder(ctx, symbol, binance.SideTypeBuy, quantity)
}

// CreateMarketSellOrder submits a market sell for quantity of the base asset.
func (c *Client) CreateMarketSellOrder(ctx context.Context, symbol string, quantity decimal.Decimal) (exchange.OrderAck, error) {
	return c.createMarketOrder(ctx, symbol, binance.SideTypeSell, quantity)
}

func (c *Client) createMarketOrder(ctx context.Context, symbol string, side binance.SideType, quantity decimal.Decimal) (exchange.OrderAck, error) {
	res, err := c.api.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(quantity.String()).
		Do(ctx)
	if err != nil {
		return exchange.OrderAck{}, fmt.Errorf("create market %s %s: %w", side, symbol, err)
	}
	return ackFromResponse(res), nil
}

// CreateStopOrder places a stop-loss sell triggering at stopPrice.
func (c *Client) CreateStopOrder(ctx context.Context, symbol string, quantity, stopPrice decimal.Decimal) (exchange.OrderAck, error) {
	res, err := c.api.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideTypeSell).
		Type(binance.OrderTypeStopLoss).
		Quantity(quantity.String()).
		StopPrice(stopPrice.String()).
		Do(ctx)
	if err != nil {
		return exchange.OrderAck{}, fmt.Errorf("create stop order %s @ %s: %w", symbol, stopPrice, err)
	}
	return ackFromResponse(res), nil
}

// CancelOrder cancels an open order by venue order ID.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return fmt.Errorf("cancel order: bad order id %q: %w", orderID, err)
	}
	if _, err := c.api.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx); err != nil {
		return fmt.Errorf("cancel order %s/%s: %w", symbol, orderID, err)
	}
	return nil
}

// FetchMyTrades returns the account's fills for symbol since the given time,
// oldest first. Binance only reports executed fills here, so every record
// maps to a FILLED status.
func (c *Client) FetchMyTrades(ctx context.Context, symbol string, since time.Time) ([]exchange.Trade, error) {
	svc := c.api.NewListTradesService().Symbol(symbol)
	if !since.IsZero() {
		svc = svc.StartTime(since.UnixMilli())
	}
	raw, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch my trades %s: %w", symbol, err)
	}
	trades := make([]exchange.Trade, 0, len(raw))
	for _, t := range raw {
		price, err := decimal.NewFromString(t.Price)
		if err != nil {
			log.Warn().Int64("trade_id", t.ID).Str("price", t.Price).Msg("skipping unparseable trade price")
			continue
		}
		qty, err := decimal.NewFromString(t.Quantity)
		if err != nil {
			log.Warn().Int64("trade_id", t.ID).Str("qty", t.Quantity).Msg("skipping unparseable trade quantity")
			continue
		}
		side := exchange.SideSell
		if t.IsBuyer {
			side = exchange.SideBuy
		}
		trades = append(trades, exchange.Trade{
			ID:       strconv.FormatInt(t.ID, 10),
			OrderID:  strconv.FormatInt(t.OrderID, 10),
			Symbol:   t.Symbol,
			Side:     side,
			Price:    price,
			Quantity: qty,
			Status:   exchange.TradeStatusFilled,
			Time:     time.UnixMilli(t.Time),
		})
	}
	return trades, nil
}

// FetchOrderBook returns a depth snapshot limited to the given levels.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, limit int) (exchange.OrderBook, error) {
	res, err := c.api.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
	if err != nil {
		return exchange.OrderBook{}, fmt.Errorf("fetch order book %s: %w", symbol, err)
	}
	book := exchange.OrderBook{Symbol: symbol}
	for _, b := range res.Bids {
		level, ok := parseLevel(b.Price, b.Quantity)
		if !ok {
			continue
		}
		book.Bids = append(book.Bids, level)
	}
	for _, a := range res.Asks {
		level, ok := parseLevel(a.Price, a.Quantity)
		if !ok {
			continue
		}
		book.Asks = append(book.Asks, level)
	}
	return book, nil
}

func parseLevel(price, qty string) (exchange.PriceLevel, bool) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return exchange.PriceLevel{}, false
	}
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return exchange.PriceLevel{}, false
	}
	return exchange.PriceLevel{Price: p, Quantity: q}, true
}

func ackFromResponse(res *binance.CreateOrderResponse) exchange.OrderAck {
	return exchange.OrderAck{
		OrderID:       strconv.FormatInt(res.OrderID, 10),
		ClientOrderID: res.ClientOrderID,
		Status:        statusFromBinance(res.Status),
		SubmittedAt:   time.UnixMilli(res.TransactTime),
	}
}

func statusFromBinance(s binance.OrderStatusType) exchange.TradeStatus {
	switch s {
	case binance.OrderStatusTypeFilled:
		return exchange.TradeStatusFilled
	case binance.OrderStatusTypePartiallyFilled:
		return exchange.TradeStatusPartial
	case binance.OrderStatusTypeCanceled:
		return exchange.TradeStatusCancelled
	case binance.OrderStatusTypeRejected:
		return exchange.TradeStatusRejected
	default:
		return exchange.TradeStatusOpen
	}
}
