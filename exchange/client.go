// Package exchange defines the boundary between the position lifecycle and a
// remote venue. Adapters (see exchange/binance) translate venue-specific
// wire types into the types declared here; everything above this interface
// works in decimals and is venue-agnostic.
package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// TradeStatus is the venue-reported completion state of a trade record.
type TradeStatus string

const (
	TradeStatusFilled    TradeStatus = "FILLED"
	TradeStatusPartial   TradeStatus = "PARTIAL"
	TradeStatusOpen      TradeStatus = "OPEN"
	TradeStatusCancelled TradeStatus = "CANCELLED"
	TradeStatusRejected  TradeStatus = "REJECTED"
)

// Side is the taker side of an order or trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ErrEmptyOrderBook is returned when a depth snapshot has no levels on the
// side being priced.
var ErrEmptyOrderBook = errors.New("exchange: order book side is empty")

// Ticker is a last-price snapshot for a symbol.
type Ticker struct {
	Symbol string
	Last   decimal.Decimal
}

// Balance is the free/locked amount held for one asset.
type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// OrderAck is the venue's acknowledgement of a submitted order.
type OrderAck struct {
	OrderID       string
	ClientOrderID string
	Status        TradeStatus
	SubmittedAt   time.Time
}

// Trade is a single record from the venue's trade history.
type Trade struct {
	ID       string
	OrderID  string
	Symbol   string
	Side     Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Status   TradeStatus
	Time     time.Time
}

// PriceLevel is one level of an order book side.
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBook is a depth snapshot. Bids are sorted best (highest) first,
// asks best (lowest) first.
type OrderBook struct {
	Symbol string
	Bids   []PriceLevel
	Asks   []PriceLevel
}

// BestBid returns the top bid price.
func (ob *OrderBook) BestBid() (decimal.Decimal, error) {
	if len(ob.Bids) == 0 {
		return decimal.Zero, ErrEmptyOrderBook
	}
	return ob.Bids[0].Price, nil
}

// BestAsk returns the top ask price.
func (ob *OrderBook) BestAsk() (decimal.Decimal, error) {
	if len(ob.Asks) == 0 {
		return decimal.Zero, ErrEmptyOrderBook
	}
	return ob.Asks[0].Price, nil
}

// Client is the minimal surface the position lifecycle needs from a venue.
// Implementations must be safe for concurrent use; transport concerns
// (auth, rate limits, retries) live behind this interface.
type Client interface {
	// FetchTicker returns the last traded price for symbol.
	FetchTicker(ctx context.Context, symbol string) (Ticker, error)

	// FetchBalance returns per-asset balances keyed by asset symbol.
	FetchBalance(ctx context.Context) (map[string]Balance, error)

	// CreateMarketBuyOrder submits a market buy for quantity of the base asset.
	CreateMarketBuyOrder(ctx context.Context, symbol string, quantity decimal.Decimal) (OrderAck, error)

	// CreateMarketSellOrder submits a market sell for quantity of the base asset.
	CreateMarketSellOrder(ctx context.Context, symbol string, quantity decimal.Decimal) (OrderAck, error)

	// CreateStopOrder places a protective sell that triggers at stopPrice.
	CreateStopOrder(ctx context.Context, symbol string, quantity, stopPrice decimal.Decimal) (OrderAck, error)

	// CancelOrder cancels an open order by venue order ID.
	CancelOrder(ctx context.Context, symbol, orderID string) error

	// FetchMyTrades returns the account's trade history for symbol since the
	// given time, oldest first.
	FetchMyTrades(ctx context.Context, symbol string, since time.Time) ([]Trade, error)

	// FetchOrderBook returns a depth snapshot limited to the given number of
	// levels per side.
	FetchOrderBook(ctx context.Context, symbol string, limit int) (OrderBook, error)
}
