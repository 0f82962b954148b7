package position

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/stratbot/exchange"
)

// fakeClient is a scriptable exchange.Client recording every call.
type fakeClient struct {
	mu sync.Mutex

	freeQuote decimal.Decimal
	freeBase  decimal.Decimal
	ask       decimal.Decimal
	bid       decimal.Decimal

	trades    []exchange.Trade
	tradesErr error

	buyErr     error
	sellErr    error
	stopErr    error
	cancelErr  error
	balanceErr error

	buyCalls    int
	sellCalls   int
	stopCalls   int
	cancelCalls int
	pollCalls   int

	cancelled []string

	// onBuy and onStop, when set, are invoked inside the corresponding
	// order call before returning, letting tests block mid-operation.
	onBuy  func()
	onStop func()

	nextOrderID int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		freeQuote: decimal.NewFromInt(1000),
		freeBase:  decimal.NewFromFloat(0.02),
		ask:       decimal.NewFromInt(50000),
		bid:       decimal.NewFromInt(49990),
	}
}

func (f *fakeClient) FetchTicker(ctx context.Context, symbol string) (exchange.Ticker, error) {
	return exchange.Ticker{Symbol: symbol, Last: f.ask}, nil
}

func (f *fakeClient) FetchBalance(ctx context.Context) (map[string]exchange.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	return map[string]exchange.Balance{
		"USDT": {Asset: "USDT", Free: f.freeQuote},
		"BTC":  {Asset: "BTC", Free: f.freeBase},
	}, nil
}

func (f *fakeClient) CreateMarketBuyOrder(ctx context.Context, symbol string, quantity decimal.Decimal) (exchange.OrderAck, error) {
	f.mu.Lock()
	f.buyCalls++
	cb := f.onBuy
	err := f.buyErr
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	if err != nil {
		return exchange.OrderAck{}, err
	}
	return f.ack(), nil
}

func (f *fakeClient) CreateMarketSellOrder(ctx context.Context, symbol string, quantity decimal.Decimal) (exchange.OrderAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sellCalls++
	if f.sellErr != nil {
		return exchange.OrderAck{}, f.sellErr
	}
	return f.ackLocked(), nil
}

func (f *fakeClient) CreateStopOrder(ctx context.Context, symbol string, quantity, stopPrice decimal.Decimal) (exchange.OrderAck, error) {
	f.mu.Lock()
	f.stopCalls++
	cb := f.onStop
	err := f.stopErr
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
	if err != nil {
		return exchange.OrderAck{}, err
	}
	return f.ack(), nil
}

func (f *fakeClient) CancelOrder(ctx context.Context, symbol, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeClient) FetchMyTrades(ctx context.Context, symbol string, since time.Time) ([]exchange.Trade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pollCalls++
	if f.tradesErr != nil {
		return nil, f.tradesErr
	}
	out := make([]exchange.Trade, len(f.trades))
	copy(out, f.trades)
	return out, nil
}

func (f *fakeClient) FetchOrderBook(ctx context.Context, symbol string, limit int) (exchange.OrderBook, error) {
	return exchange.OrderBook{
		Symbol: symbol,
		Bids:   []exchange.PriceLevel{{Price: f.bid, Quantity: decimal.NewFromInt(1)}},
		Asks:   []exchange.PriceLevel{{Price: f.ask, Quantity: decimal.NewFromInt(1)}},
	}, nil
}

func (f *fakeClient) ack() exchange.OrderAck {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ackLocked()
}

func (f *fakeClient) ackLocked() exchange.OrderAck {
	f.nextOrderID++
	return exchange.OrderAck{
		OrderID:     decimal.NewFromInt(int64(f.nextOrderID)).String(),
		Status:      exchange.TradeStatusOpen,
		SubmittedAt: time.Now(),
	}
}

// reportFill makes the next trade-history poll return a valid fill.
func (f *fakeClient) reportFill(side exchange.Side, price, qty decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, exchange.Trade{
		ID:       "t1",
		Symbol:   "BTCUSDT",
		Side:     side,
		Price:    price,
		Quantity: qty,
		Status:   exchange.TradeStatusFilled,
		Time:     time.Now().Add(time.Second),
	})
}

func testConfig() Config {
	stop, _ := NewPercentStop(decimal.NewFromFloat(2.0))
	return Config{
		LongSymbol:         "BTC",
		ShortSymbol:        "USDT",
		MaxUSDPosition:     decimal.NewFromInt(100),
		GainTargetPct:      decimal.NewFromFloat(3.0),
		StopCalculator:     stop,
		Trading:            true,
		TradeCheckInterval: time.Millisecond,
		MaxTradeChecks:     3,
	}
}

func newTestManager(t *testing.T, client exchange.Client, cfg Config) *Manager {
	t.Helper()
	m, err := NewManager(client, cfg)
	require.NoError(t, err)
	return m
}

func TestNewManagerValidation(t *testing.T) {
	client := newFakeClient()

	t.Run("missing symbols", func(t *testing.T) {
		cfg := testConfig()
		cfg.LongSymbol = ""
		_, err := NewManager(client, cfg)
		require.Error(t, err)
	})

	t.Run("non-positive max position", func(t *testing.T) {
		cfg := testConfig()
		cfg.MaxUSDPosition = decimal.Zero
		_, err := NewManager(client, cfg)
		require.Error(t, err)
	})

	t.Run("stop calculator required", func(t *testing.T) {
		cfg := testConfig()
		cfg.StopCalculator = nil
		_, err := NewManager(client, cfg)
		require.Error(t, err)
	})

	t.Run("stop calculator optional when disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.StopCalculator = nil
		cfg.DisableStopLoss = true
		_, err := NewManager(client, cfg)
		require.NoError(t, err)
	})

	t.Run("nil client", func(t *testing.T) {
		_, err := NewManager(nil, testConfig())
		require.Error(t, err)
	})
}

func TestOpenLongHappyPath(t *testing.T) {
	client := newFakeClient()
	entry := decimal.NewFromInt(50000)
	client.reportFill(exchange.SideBuy, entry, decimal.NewFromFloat(0.002))

	m := newTestManager(t, client, testConfig())
	require.NoError(t, m.OpenLong(context.Background()))

	assert.True(t, m.HasActivePosition())
	assert.Equal(t, 1, client.buyCalls)
	assert.Equal(t, 1, client.stopCalls)

	stop, ok := m.CurrentStopPrice()
	require.True(t, ok)
	assert.True(t, stop.Equal(decimal.NewFromInt(49000)), "stop = %s", stop)

	target, ok := m.GainTargetPrice()
	require.True(t, ok)
	assert.True(t, target.Equal(decimal.NewFromInt(51500)), "target = %s", target)

	last, ok := m.LastTradePrice()
	require.True(t, ok)
	assert.True(t, last.Equal(entry))

	pos := m.Snapshot()
	assert.Equal(t, DirectionLong, pos.Direction)
	assert.True(t, pos.EntryPrice.Equal(entry))
}

func TestOpenLongRejectedWhileActive(t *testing.T) {
	client := newFakeClient()
	client.reportFill(exchange.SideBuy, decimal.NewFromInt(50000), decimal.NewFromFloat(0.002))

	m := newTestManager(t, client, testConfig())
	require.NoError(t, m.OpenLong(context.Background()))

	err := m.OpenLong(context.Background())
	require.ErrorIs(t, err, ErrPositionActive)
	assert.Equal(t, 1, client.buyCalls, "no duplicate order submitted")
}

func TestOpenLongConflictWhileInFlight(t *testing.T) {
	client := newFakeClient()
	client.reportFill(exchange.SideBuy, decimal.NewFromInt(50000), decimal.NewFromFloat(0.002))

	inBuy := make(chan struct{})
	release := make(chan struct{})
	client.onBuy = func() {
		close(inBuy)
		<-release
	}

	m := newTestManager(t, client, testConfig())

	done := make(chan error, 1)
	go func() { done <- m.OpenLong(context.Background()) }()

	<-inBuy
	err := m.OpenLong(context.Background())
	require.ErrorIs(t, err, ErrOperationInFlight)
	assert.False(t, m.HasActivePosition(), "transient state is not active")

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, client.buyCalls)
}

func TestOpenLongHoldsStateThroughStopArming(t *testing.T) {
	client := newFakeClient()
	client.reportFill(exchange.SideBuy, decimal.NewFromInt(50000), decimal.NewFromFloat(0.002))

	inStop := make(chan struct{})
	release := make(chan struct{})
	client.onStop = func() {
		close(inStop)
		<-release
	}

	m := newTestManager(t, client, testConfig())

	done := make(chan error, 1)
	go func() { done <- m.OpenLong(context.Background()) }()

	// The entry fill is committed but the stop order is still in flight;
	// the open must not have released the machine yet.
	<-inStop
	err := m.Exit(context.Background())
	require.ErrorIs(t, err, ErrOperationInFlight)
	assert.Equal(t, 0, client.sellCalls, "conflicting exit submitted nothing")

	close(release)
	require.NoError(t, <-done)

	assert.True(t, m.HasActivePosition())
	stop, ok := m.CurrentStopPrice()
	require.True(t, ok)
	assert.True(t, stop.Equal(decimal.NewFromInt(49000)))
	assert.Equal(t, 1, client.stopCalls)
}

func TestOpenLongInsufficientCapital(t *testing.T) {
	client := newFakeClient()
	client.freeQuote = decimal.Zero

	cfg := testConfig()
	cfg.MaxUSDPosition = decimal.NewFromInt(100)
	m := newTestManager(t, client, cfg)

	err := m.OpenLong(context.Background())
	require.ErrorIs(t, err, ErrInsufficientCapital)
	assert.Equal(t, 0, client.buyCalls, "no order submitted")
	assert.False(t, m.HasActivePosition())
}

func TestOpenLongPollExhaustion(t *testing.T) {
	client := newFakeClient() // no fills reported

	m := newTestManager(t, client, testConfig())
	err := m.OpenLong(context.Background())
	require.ErrorIs(t, err, ErrOrderNotFilled)

	assert.False(t, m.HasActivePosition())
	assert.Equal(t, 3, client.pollCalls)
	assert.Equal(t, 1, client.cancelCalls, "unconfirmed order cancelled")
	assert.Equal(t, 0, client.stopCalls, "no stop for an abandoned entry")

	// The machine is back in NONE: a fresh open is accepted.
	client.reportFill(exchange.SideBuy, decimal.NewFromInt(50000), decimal.NewFromFloat(0.002))
	require.NoError(t, m.OpenLong(context.Background()))
}

func TestOpenLongStalePollRecordsRejected(t *testing.T) {
	client := newFakeClient()
	// A stale fill from before submission must not be committed.
	client.trades = append(client.trades, exchange.Trade{
		ID:       "stale",
		Symbol:   "BTCUSDT",
		Side:     exchange.SideBuy,
		Price:    decimal.NewFromInt(48000),
		Quantity: decimal.NewFromFloat(0.002),
		Status:   exchange.TradeStatusFilled,
		Time:     time.Now().Add(-time.Hour),
	})

	m := newTestManager(t, client, testConfig())
	err := m.OpenLong(context.Background())
	require.ErrorIs(t, err, ErrOrderNotFilled)
	assert.False(t, m.HasActivePosition())
}

func TestExitHappyPath(t *testing.T) {
	client := newFakeClient()
	client.reportFill(exchange.SideBuy, decimal.NewFromInt(50000), decimal.NewFromFloat(0.002))

	m := newTestManager(t, client, testConfig())
	require.NoError(t, m.OpenLong(context.Background()))

	client.reportFill(exchange.SideSell, decimal.NewFromInt(51000), decimal.NewFromFloat(0.002))
	require.NoError(t, m.Exit(context.Background()))

	assert.False(t, m.HasActivePosition())
	_, ok := m.CurrentStopPrice()
	assert.False(t, ok, "stop price unset after exit")
	assert.Equal(t, 1, client.sellCalls)
	assert.GreaterOrEqual(t, client.cancelCalls, 1, "stop order cancelled before exit")

	last, ok := m.LastTradePrice()
	require.True(t, ok)
	assert.True(t, last.Equal(decimal.NewFromInt(51000)))
}

func TestExitWithoutPosition(t *testing.T) {
	client := newFakeClient()
	m := newTestManager(t, client, testConfig())

	err := m.Exit(context.Background())
	require.ErrorIs(t, err, ErrNoActivePosition)
	assert.Equal(t, 0, client.sellCalls)
}

func TestExitExhaustionReArmsStop(t *testing.T) {
	client := newFakeClient()
	client.reportFill(exchange.SideBuy, decimal.NewFromInt(50000), decimal.NewFromFloat(0.002))

	m := newTestManager(t, client, testConfig())
	require.NoError(t, m.OpenLong(context.Background()))
	stopsAfterOpen := client.stopCalls

	// Drop the buy fill so no sell fill ever validates.
	client.mu.Lock()
	client.trades = nil
	client.mu.Unlock()

	err := m.Exit(context.Background())
	require.ErrorIs(t, err, ErrOrderNotFilled)

	assert.True(t, m.HasActivePosition(), "exit abandoned, position retained")
	assert.Equal(t, stopsAfterOpen+1, client.stopCalls, "stop re-armed after abandoned exit")
	stop, ok := m.CurrentStopPrice()
	require.True(t, ok)
	assert.True(t, stop.Equal(decimal.NewFromInt(49000)))
}

func TestAbandonedExitHoldsStateThroughReArm(t *testing.T) {
	client := newFakeClient()
	client.reportFill(exchange.SideBuy, decimal.NewFromInt(50000), decimal.NewFromFloat(0.002))

	m := newTestManager(t, client, testConfig())
	require.NoError(t, m.OpenLong(context.Background()))

	// Drop the buy fill so no sell fill ever validates, and block the
	// stop re-arm that follows the abandoned exit.
	inStop := make(chan struct{})
	release := make(chan struct{})
	client.mu.Lock()
	client.trades = nil
	client.onStop = func() {
		close(inStop)
		<-release
	}
	client.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- m.Exit(context.Background()) }()

	<-inStop
	err := m.UpdateStopPrice(context.Background(), decimal.NewFromInt(49500))
	require.ErrorIs(t, err, ErrOperationInFlight)

	close(release)
	require.ErrorIs(t, <-done, ErrOrderNotFilled)

	assert.True(t, m.HasActivePosition(), "exit abandoned, position retained")
	stop, ok := m.CurrentStopPrice()
	require.True(t, ok)
	assert.True(t, stop.Equal(decimal.NewFromInt(49000)), "original stop re-armed")
}

func TestExitExhaustionReArmFailure(t *testing.T) {
	client := newFakeClient()
	client.reportFill(exchange.SideBuy, decimal.NewFromInt(50000), decimal.NewFromFloat(0.002))

	m := newTestManager(t, client, testConfig())
	require.NoError(t, m.OpenLong(context.Background()))

	client.mu.Lock()
	client.trades = nil
	client.stopErr = assert.AnError
	client.mu.Unlock()

	err := m.Exit(context.Background())
	require.ErrorIs(t, err, ErrUnprotectedPosition)

	assert.True(t, m.HasActivePosition())
	_, ok := m.CurrentStopPrice()
	assert.False(t, ok, "no stop standing after failed re-arm")
}

func TestUpdateStopPrice(t *testing.T) {
	newLongManager := func(t *testing.T) (*Manager, *fakeClient) {
		client := newFakeClient()
		client.reportFill(exchange.SideBuy, decimal.NewFromInt(50000), decimal.NewFromFloat(0.002))
		m := newTestManager(t, client, testConfig())
		require.NoError(t, m.OpenLong(context.Background()))
		return m, client
	}

	t.Run("replaces the stop", func(t *testing.T) {
		m, client := newLongManager(t)
		cancelsBefore := client.cancelCalls

		newStop := decimal.NewFromInt(49500)
		require.NoError(t, m.UpdateStopPrice(context.Background(), newStop))

		stop, ok := m.CurrentStopPrice()
		require.True(t, ok)
		assert.True(t, stop.Equal(newStop))
		assert.Equal(t, cancelsBefore+1, client.cancelCalls)
		assert.True(t, m.HasActivePosition())
	})

	t.Run("no-op on unchanged price", func(t *testing.T) {
		m, client := newLongManager(t)
		cancelsBefore := client.cancelCalls

		require.NoError(t, m.UpdateStopPrice(context.Background(), decimal.NewFromInt(49000)))
		assert.Equal(t, cancelsBefore, client.cancelCalls, "unchanged price places no orders")
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		m, _ := newLongManager(t)
		err := m.UpdateStopPrice(context.Background(), decimal.Zero)
		require.ErrorIs(t, err, ErrInvalidPrice)
	})

	t.Run("rejects without position", func(t *testing.T) {
		m := newTestManager(t, newFakeClient(), testConfig())
		err := m.UpdateStopPrice(context.Background(), decimal.NewFromInt(49500))
		require.ErrorIs(t, err, ErrNoActivePosition)
	})

	t.Run("rejects when stop loss disabled", func(t *testing.T) {
		cfg := testConfig()
		cfg.StopCalculator = nil
		cfg.DisableStopLoss = true
		m := newTestManager(t, newFakeClient(), cfg)
		err := m.UpdateStopPrice(context.Background(), decimal.NewFromInt(49500))
		require.ErrorIs(t, err, ErrStopLossDisabled)
	})

	t.Run("replacement failure reports unprotected", func(t *testing.T) {
		m, client := newLongManager(t)
		client.mu.Lock()
		client.stopErr = assert.AnError
		client.mu.Unlock()

		err := m.UpdateStopPrice(context.Background(), decimal.NewFromInt(49500))
		require.ErrorIs(t, err, ErrUnprotectedPosition)

		_, ok := m.CurrentStopPrice()
		assert.False(t, ok, "stop record cleared")
		assert.True(t, m.HasActivePosition(), "position still held")
	})
}

func TestPaperTradingPlacesNoOrders(t *testing.T) {
	client := newFakeClient()
	cfg := testConfig()
	cfg.Trading = false

	m := newTestManager(t, client, cfg)
	require.NoError(t, m.OpenLong(context.Background()))

	assert.True(t, m.HasActivePosition())
	assert.Equal(t, 0, client.buyCalls)
	assert.Equal(t, 0, client.stopCalls)
	assert.Equal(t, 0, client.pollCalls)

	// Entry fills at the top-of-book ask.
	pos := m.Snapshot()
	assert.True(t, pos.EntryPrice.Equal(client.ask))
	stop, ok := m.CurrentStopPrice()
	require.True(t, ok)
	assert.True(t, stop.Equal(decimal.NewFromInt(49000)))

	require.NoError(t, m.Exit(context.Background()))
	assert.False(t, m.HasActivePosition())
	assert.Equal(t, 0, client.sellCalls)
}

func TestBalanceQueriesPassThrough(t *testing.T) {
	client := newFakeClient()
	m := newTestManager(t, client, testConfig())

	free, err := m.FetchFreeCapital(context.Background())
	require.NoError(t, err)
	assert.True(t, free.Equal(client.freeQuote))

	alloc, err := m.FetchAllocatedPosition(context.Background())
	require.NoError(t, err)
	assert.True(t, alloc.Equal(client.freeBase))

	client.mu.Lock()
	client.balanceErr = assert.AnError
	client.mu.Unlock()

	_, err = m.FetchFreeCapital(context.Background())
	assert.ErrorIs(t, err, assert.AnError, "exchange errors pass through unmodified")
}
