// Package position manages the lifecycle of a single trading position:
// opening an entry order, attaching risk-control orders, validating fills
// against venue-reported trade history, and exiting cleanly.
package position

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/stratbot/exchange"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSITION MANAGER - Single-position lifecycle state machine
// ═══════════════════════════════════════════════════════════════════════════════
//
// State machine:
//
//   NONE --open--> OPENING --validated fill, stop armed--> LONG
//   OPENING --poll exhausted--> NONE           (entry abandoned)
//   LONG --exit--> CLOSING --validated fill--> NONE
//   CLOSING --poll exhausted--> LONG           (exit abandoned, stop re-armed)
//   LONG --stop update--> ADJUSTING --> LONG
//
// Transient states exist only to fail conflicting operations fast; callers
// never observe them through the Direction enum. All mutation happens
// synchronously inside the calling operation; nothing owns position state
// in the background.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Direction is the caller-visible exposure of a position.
type Direction int

const (
	DirectionNone  Direction = 0
	DirectionLong  Direction = 1
	DirectionShort Direction = -1
)

func (d Direction) String() string {
	switch d {
	case DirectionLong:
		return "LONG"
	case DirectionShort:
		return "SHORT"
	default:
		return "NONE"
	}
}

// state is the internal lifecycle state, a superset of Direction.
type state int

const (
	stateNone state = iota
	stateOpening
	stateLong
	stateClosing
	stateAdjusting
)

// Order records an order submitted to the venue and not yet confirmed.
type Order struct {
	OrderID       string
	ClientOrderID string
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	SubmittedAt   time.Time
}

// StopOrder is the active venue-side protective order.
type StopOrder struct {
	OrderID  string
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Fill is a validated, committed execution. Fill callbacks receive one per
// entry and one per exit.
type Fill struct {
	Symbol   string
	Side     exchange.Side
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Time     time.Time
	Paper    bool
}

// Position is a read-only snapshot of the manager's current exposure.
type Position struct {
	Direction       Direction
	LongSymbol      string
	ShortSymbol     string
	EntryPrice      decimal.Decimal
	Quantity        decimal.Decimal
	StopPrice       decimal.Decimal
	GainTargetPrice decimal.Decimal
	OpenedAt        time.Time
}

// Config carries everything a Manager needs at construction. Poll cadence
// is per-instance so managers can run on independent schedules.
type Config struct {
	LongSymbol  string // base asset, e.g. "BTC"
	ShortSymbol string // quote asset, e.g. "USDT"

	MaxUSDPosition decimal.Decimal // cap on quote currency spent per entry
	GainTargetPct  decimal.Decimal // profit target percentage, e.g. 3.0

	StopCalculator  StopPriceCalculator // required unless DisableStopLoss
	DisableStopLoss bool

	// Trading submits real orders when true; otherwise order placement is
	// short-circuited into a simulated fill at the top of book.
	Trading bool

	OrderBookLevels    int           // depth levels fetched for entry sizing (default 20)
	TradeCheckInterval time.Duration // delay between fill-confirmation polls (default 1s)
	MaxTradeChecks     int           // poll attempt budget per operation (default 10)
}

const (
	defaultOrderBookLevels    = 20
	defaultTradeCheckInterval = time.Second
	defaultMaxTradeChecks     = 10

	// quantityPrecision bounds sizing division to the precision venues
	// accept for spot quantities.
	quantityPrecision = 8
)

func (c *Config) validate() error {
	if c.LongSymbol == "" || c.ShortSymbol == "" {
		return fmt.Errorf("position: long and short symbols are required")
	}
	if !c.MaxUSDPosition.IsPositive() {
		return fmt.Errorf("position: max usd position must be positive, got %s", c.MaxUSDPosition)
	}
	if !c.GainTargetPct.IsPositive() {
		return fmt.Errorf("position: gain target percentage must be positive, got %s", c.GainTargetPct)
	}
	if c.StopCalculator == nil && !c.DisableStopLoss {
		return fmt.Errorf("position: stop calculator is required unless stop loss is disabled")
	}
	if c.OrderBookLevels == 0 {
		c.OrderBookLevels = defaultOrderBookLevels
	}
	if c.TradeCheckInterval == 0 {
		c.TradeCheckInterval = defaultTradeCheckInterval
	}
	if c.MaxTradeChecks == 0 {
		c.MaxTradeChecks = defaultMaxTradeChecks
	}
	if c.OrderBookLevels < 0 || c.TradeCheckInterval < 0 || c.MaxTradeChecks < 0 {
		return fmt.Errorf("position: poll settings must be non-negative")
	}
	return nil
}

// Symbol is the venue pair string, e.g. "BTCUSDT".
func (c *Config) Symbol() string {
	return c.LongSymbol + c.ShortSymbol
}

// Manager owns a single position against one venue. All lifecycle-mutating
// operations are serialized through the internal state machine: a second
// operation started while one is pending fails fast instead of queueing.
// Read accessors are safe to call concurrently and observe either the pre-
// or post-transition state, never a partial update.
type Manager struct {
	cfg       Config
	symbol    string
	client    exchange.Client
	validator Validator

	mu             sync.RWMutex
	state          state
	entryPrice     decimal.Decimal
	quantity       decimal.Decimal
	gainTarget     decimal.Decimal
	lastTradePrice decimal.Decimal
	openedAt       time.Time
	stop           *StopOrder
	pending        *Order

	onFill func(Fill)
}

// NewManager creates a manager. Configuration errors fail here, not at
// first use.
func NewManager(client exchange.Client, cfg Config) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("position: exchange client is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		cfg:    cfg,
		symbol: cfg.Symbol(),
		client: client,
	}
	log.Info().
		Str("symbol", m.symbol).
		Str("max_usd_pos", cfg.MaxUSDPosition.String()).
		Str("gain_target_pct", cfg.GainTargetPct.String()).
		Bool("trading", cfg.Trading).
		Bool("stop_loss_disabled", cfg.DisableStopLoss).
		Msg("Position manager initialized")
	return m, nil
}

// SetFillCallback registers a callback invoked after each validated entry
// or exit fill is committed. Set before the first operation.
func (m *Manager) SetFillCallback(cb func(Fill)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onFill = cb
}

// ═══════════════════════════════════════════════════════════════════════════════
// OPEN
// ═══════════════════════════════════════════════════════════════════════════════

// OpenLong takes the position from NONE to LONG: sizes the entry from free
// capital and the order book, submits a market buy, polls trade history
// until the fill validates, then attaches the stop order and records the
// gain target. On poll exhaustion the entry is abandoned and state returns
// to NONE with ErrOrderNotFilled.
func (m *Manager) OpenLong(ctx context.Context) error {
	if err := m.begin(stateNone, stateOpening); err != nil {
		return err
	}

	log.Info().Str("symbol", m.symbol).Msg("📤 Opening long position")

	freeCapital, err := m.FetchFreeCapital(ctx)
	if err != nil {
		m.abort(stateNone)
		return err
	}
	if !freeCapital.IsPositive() {
		m.abort(stateNone)
		return fmt.Errorf("%w: free %s %s", ErrInsufficientCapital, m.cfg.ShortSymbol, freeCapital)
	}

	maxSpend := decimal.Min(m.cfg.MaxUSDPosition, freeCapital)
	book, err := m.client.FetchOrderBook(ctx, m.symbol, m.cfg.OrderBookLevels)
	if err != nil {
		m.abort(stateNone)
		return err
	}
	ask, err := book.BestAsk()
	if err != nil {
		m.abort(stateNone)
		return err
	}

	quantity := maxSpend.DivRound(ask, quantityPrecision)
	if !quantity.IsPositive() {
		m.abort(stateNone)
		return fmt.Errorf("%w: spend %s at ask %s sizes to zero", ErrInsufficientCapital, maxSpend, ask)
	}

	log.Info().
		Str("free_capital", freeCapital.String()).
		Str("max_spend", maxSpend.String()).
		Str("ask", ask.String()).
		Str("quantity", quantity.String()).
		Msg("Submitting market buy")

	if !m.cfg.Trading {
		fill := Fill{
			Symbol:   m.symbol,
			Side:     exchange.SideBuy,
			Price:    ask,
			Quantity: quantity,
			Time:     time.Now().UTC(),
			Paper:    true,
		}
		m.commitEntry(fill)
		return m.finishOpen(ctx, fill)
	}

	ack, err := m.client.CreateMarketBuyOrder(ctx, m.symbol, quantity)
	if err != nil {
		m.abort(stateNone)
		return err
	}
	submittedAt := time.Now().UTC()
	m.setPending(&Order{
		OrderID:       ack.OrderID,
		ClientOrderID: ack.ClientOrderID,
		Quantity:      quantity,
		Price:         ask,
		SubmittedAt:   submittedAt,
	})

	fill, err := m.awaitFill(ctx, exchange.SideBuy, submittedAt)
	if err != nil {
		m.cancelPending(ctx)
		m.abort(stateNone)
		return err
	}

	m.commitEntry(fill)
	return m.finishOpen(ctx, fill)
}

// commitEntry records a validated entry fill. The machine stays in its
// transient state until finishOpen runs, so conflicting operations keep
// failing fast while the stop order is still being armed.
func (m *Manager) commitEntry(fill Fill) {
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)

	m.mu.Lock()
	m.entryPrice = fill.Price
	m.quantity = fill.Quantity
	m.lastTradePrice = fill.Price
	m.gainTarget = fill.Price.Mul(one.Add(m.cfg.GainTargetPct.Div(hundred)))
	m.openedAt = fill.Time
	m.pending = nil
	gainTarget := m.gainTarget
	m.mu.Unlock()

	log.Info().
		Str("symbol", fill.Symbol).
		Str("entry_price", fill.Price.String()).
		Str("quantity", fill.Quantity.String()).
		Str("gain_target", gainTarget.String()).
		Bool("paper", fill.Paper).
		Msg("✅ Long position opened")
}

// finishOpen arms the stop order, commits stop and LONG state in one step,
// then fires the fill callback. The position becomes LONG even when stop
// placement failed: the exposure is live either way, and the caller learns
// about the failure through ErrUnprotectedPosition.
func (m *Manager) finishOpen(ctx context.Context, fill Fill) error {
	stop, stopErr := m.armStop(ctx)

	m.mu.Lock()
	m.stop = stop
	m.state = stateLong
	cb := m.onFill
	m.mu.Unlock()

	if cb != nil {
		cb(fill)
	}
	return stopErr
}

// armStop computes and places the stop order for the entry just recorded.
// A placement failure is surfaced as ErrUnprotectedPosition because the
// exposure is live without downside protection.
func (m *Manager) armStop(ctx context.Context) (*StopOrder, error) {
	if m.cfg.DisableStopLoss {
		log.Info().Msg("Stop loss disabled, skipping stop order")
		return nil, nil
	}

	m.mu.RLock()
	entry := m.entryPrice
	quantity := m.quantity
	m.mu.RUnlock()

	stopPrice, err := m.cfg.StopCalculator.CalculateStopPrice(entry)
	if err != nil {
		return nil, fmt.Errorf("%w: stop price calculation failed: %v", ErrUnprotectedPosition, err)
	}

	if !m.cfg.Trading {
		log.Info().Str("stop_price", stopPrice.String()).Msg("🛑 Stop recorded (paper)")
		return &StopOrder{Price: stopPrice, Quantity: quantity}, nil
	}

	ack, err := m.client.CreateStopOrder(ctx, m.symbol, quantity, stopPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnprotectedPosition, err)
	}

	log.Info().
		Str("stop_price", stopPrice.String()).
		Str("order_id", ack.OrderID).
		Msg("🛑 Stop order placed")
	return &StopOrder{OrderID: ack.OrderID, Price: stopPrice, Quantity: quantity}, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// EXIT
// ═══════════════════════════════════════════════════════════════════════════════

// Exit takes the position from LONG to NONE: cancels the stop order
// (best effort), submits a market sell for the full tracked quantity, and
// polls until the sell fill validates. On poll exhaustion the exit is
// abandoned, the position reverts to LONG and the stop order is re-armed
// so the position is never left unprotected.
func (m *Manager) Exit(ctx context.Context) error {
	if err := m.begin(stateLong, stateClosing); err != nil {
		return err
	}

	m.mu.RLock()
	quantity := m.quantity
	stop := m.stop
	m.mu.RUnlock()

	log.Info().Str("symbol", m.symbol).Str("quantity", quantity.String()).Msg("📤 Exiting position")

	// Cancellation failure does not block the exit; the venue purges the
	// stop when the balance moves, and a stuck stop is safer than a stuck
	// position.
	stopCancelled := false
	if stop != nil && stop.OrderID != "" && m.cfg.Trading {
		if err := m.client.CancelOrder(ctx, m.symbol, stop.OrderID); err != nil {
			log.Warn().Err(err).Str("order_id", stop.OrderID).Msg("⚠️ Stop cancel failed, continuing exit")
		} else {
			stopCancelled = true
		}
	}

	if !m.cfg.Trading {
		book, err := m.client.FetchOrderBook(ctx, m.symbol, m.cfg.OrderBookLevels)
		if err != nil {
			m.abort(stateLong)
			return err
		}
		bid, err := book.BestBid()
		if err != nil {
			m.abort(stateLong)
			return err
		}
		m.commitExit(Fill{
			Symbol:   m.symbol,
			Side:     exchange.SideSell,
			Price:    bid,
			Quantity: quantity,
			Time:     time.Now().UTC(),
			Paper:    true,
		})
		return nil
	}

	ack, err := m.client.CreateMarketSellOrder(ctx, m.symbol, quantity)
	if err != nil {
		return m.abandonExit(ctx, stopCancelled, err)
	}
	submittedAt := time.Now().UTC()
	m.setPending(&Order{
		OrderID:       ack.OrderID,
		ClientOrderID: ack.ClientOrderID,
		Quantity:      quantity,
		SubmittedAt:   submittedAt,
	})

	fill, err := m.awaitFill(ctx, exchange.SideSell, submittedAt)
	if err != nil {
		m.cancelPending(ctx)
		return m.abandonExit(ctx, stopCancelled, err)
	}

	m.commitExit(fill)
	return nil
}

// abandonExit reverts to LONG after a failed exit, re-arming the stop if it
// was cancelled on the way out. A re-arm failure compounds the original
// error with ErrUnprotectedPosition.
func (m *Manager) abandonExit(ctx context.Context, stopCancelled bool, cause error) error {
	// Hold CLOSING until the stop is back in place; conflicting operations
	// must keep failing fast while the re-arm is in flight.
	defer m.abort(stateLong)

	if !stopCancelled {
		return cause
	}

	m.mu.RLock()
	stop := m.stop
	quantity := m.quantity
	m.mu.RUnlock()
	if stop == nil {
		return cause
	}

	ack, err := m.client.CreateStopOrder(ctx, m.symbol, quantity, stop.Price)
	if err != nil {
		m.mu.Lock()
		m.stop = nil
		m.mu.Unlock()
		log.Error().Err(err).Msg("🚨 Stop re-arm failed after abandoned exit")
		return fmt.Errorf("%w (exit abandoned: %v)", ErrUnprotectedPosition, cause)
	}

	m.mu.Lock()
	m.stop = &StopOrder{OrderID: ack.OrderID, Price: stop.Price, Quantity: quantity}
	m.mu.Unlock()
	log.Warn().Err(cause).Str("stop_price", stop.Price.String()).Msg("Exit abandoned, stop re-armed")
	return cause
}

// commitExit clears position state after a validated sell fill.
func (m *Manager) commitExit(fill Fill) {
	m.mu.Lock()
	m.entryPrice = decimal.Zero
	m.quantity = decimal.Zero
	m.gainTarget = decimal.Zero
	m.lastTradePrice = fill.Price
	m.openedAt = time.Time{}
	m.stop = nil
	m.pending = nil
	m.state = stateNone
	cb := m.onFill
	m.mu.Unlock()

	log.Info().
		Str("symbol", fill.Symbol).
		Str("exit_price", fill.Price.String()).
		Str("quantity", fill.Quantity.String()).
		Bool("paper", fill.Paper).
		Msg("✅ Position closed")

	if cb != nil {
		cb(fill)
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// STOP MAINTENANCE
// ═══════════════════════════════════════════════════════════════════════════════

// UpdateStopPrice cancels the active stop order and places a replacement at
// price. If the replacement fails after the cancel succeeded the position
// is live without protection and ErrUnprotectedPosition is returned; this
// is the one condition a caller must never ignore.
func (m *Manager) UpdateStopPrice(ctx context.Context, price decimal.Decimal) error {
	if m.cfg.DisableStopLoss {
		return ErrStopLossDisabled
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	if err := m.begin(stateLong, stateAdjusting); err != nil {
		return err
	}
	defer m.abort(stateLong)

	m.mu.RLock()
	stop := m.stop
	quantity := m.quantity
	m.mu.RUnlock()

	if stop != nil && stop.Price.Equal(price) {
		log.Info().Str("price", price.String()).Msg("Stop price unchanged, not updating")
		return nil
	}

	log.Info().
		Str("new_price", price.String()).
		Msg("Cancel/replace stop order")

	if stop != nil && stop.OrderID != "" && m.cfg.Trading {
		if err := m.client.CancelOrder(ctx, m.symbol, stop.OrderID); err != nil {
			// Old stop still standing; position remains protected.
			return fmt.Errorf("cancel stop order: %w", err)
		}
	}

	if !m.cfg.Trading {
		m.mu.Lock()
		m.stop = &StopOrder{Price: price, Quantity: quantity}
		m.mu.Unlock()
		return nil
	}

	ack, err := m.client.CreateStopOrder(ctx, m.symbol, quantity, price)
	if err != nil {
		m.mu.Lock()
		m.stop = nil
		m.mu.Unlock()
		log.Error().Err(err).Msg("🚨 Stop replacement failed, position unprotected")
		return fmt.Errorf("%w: %v", ErrUnprotectedPosition, err)
	}

	m.mu.Lock()
	m.stop = &StopOrder{OrderID: ack.OrderID, Price: price, Quantity: quantity}
	m.mu.Unlock()
	log.Info().Str("stop_price", price.String()).Str("order_id", ack.OrderID).Msg("🛑 Stop order replaced")
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// FILL CONFIRMATION
// ═══════════════════════════════════════════════════════════════════════════════

// awaitFill polls trade history until a record validates for the given side,
// or the attempt budget runs out. A failed poll (transport error included)
// consumes an attempt; exhaustion returns ErrOrderNotFilled.
func (m *Manager) awaitFill(ctx context.Context, side exchange.Side, submittedAt time.Time) (Fill, error) {
	// Look back slightly before submission so venue clock skew cannot hide
	// the fill from the history query; the validator still enforces the
	// submission-time bound.
	since := submittedAt.Add(-time.Minute)

	for attempt := 1; attempt <= m.cfg.MaxTradeChecks; attempt++ {
		trades, err := m.client.FetchMyTrades(ctx, m.symbol, since)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("⚠️ Trade history poll failed")
		}
		// History is oldest first; walk backward so the latest records
		// are checked first.
		for i := len(trades) - 1; i >= 0; i-- {
			t := trades[i]
			var ok bool
			if side == exchange.SideBuy {
				ok = m.validator.IsValidBuy(&t, submittedAt, m.symbol)
			} else {
				ok = m.validator.IsValidSell(&t, submittedAt, m.symbol)
			}
			if ok {
				return Fill{
					Symbol:   t.Symbol,
					Side:     t.Side,
					Price:    t.Price,
					Quantity: t.Quantity,
					Time:     t.Time,
				}, nil
			}
		}

		if attempt == m.cfg.MaxTradeChecks {
			break
		}
		select {
		case <-ctx.Done():
			return Fill{}, ctx.Err()
		case <-time.After(m.cfg.TradeCheckInterval):
		}
	}

	return Fill{}, fmt.Errorf("%w: no validated %s fill after %d checks",
		ErrOrderNotFilled, side, m.cfg.MaxTradeChecks)
}

// cancelPending best-effort cancels the unconfirmed entry/exit order. The
// venue may already have filled or purged it; the caller is told about the
// indeterminate order through the returned lifecycle error, not here.
func (m *Manager) cancelPending(ctx context.Context) {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	if pending == nil || pending.OrderID == "" {
		return
	}
	if err := m.client.CancelOrder(ctx, m.symbol, pending.OrderID); err != nil {
		log.Warn().Err(err).Str("order_id", pending.OrderID).Msg("⚠️ Could not cancel unconfirmed order")
	}
}

// ═══════════════════════════════════════════════════════════════════════════════
// STATE & ACCESSORS
// ═══════════════════════════════════════════════════════════════════════════════

// begin transitions from the expected state into a transient one, failing
// fast when another operation holds the machine.
func (m *Manager) begin(from, to state) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == from {
		m.state = to
		return nil
	}
	switch m.state {
	case stateOpening, stateClosing, stateAdjusting:
		return ErrOperationInFlight
	case stateLong:
		return ErrPositionActive
	default:
		return ErrNoActivePosition
	}
}

// abort reverts a transient state after a failed or finished operation.
func (m *Manager) abort(to state) {
	m.mu.Lock()
	m.state = to
	m.pending = nil
	m.mu.Unlock()
}

func (m *Manager) setPending(o *Order) {
	m.mu.Lock()
	m.pending = o
	m.mu.Unlock()
}

// HasActivePosition reports whether a position is held. Transient
// in-flight states do not count as active.
func (m *Manager) HasActivePosition() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == stateLong
}

// CurrentStopPrice returns the active stop trigger price; false when no
// stop order is standing.
func (m *Manager) CurrentStopPrice() (decimal.Decimal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stop == nil {
		return decimal.Zero, false
	}
	return m.stop.Price, true
}

// LastTradePrice returns the price of the last validated fill; false
// before the first fill.
func (m *Manager) LastTradePrice() (decimal.Decimal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastTradePrice.IsZero() {
		return decimal.Zero, false
	}
	return m.lastTradePrice, true
}

// GainTargetPrice returns the profit target derived from the entry fill;
// false when no position is held.
func (m *Manager) GainTargetPrice() (decimal.Decimal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gainTarget.IsZero() {
		return decimal.Zero, false
	}
	return m.gainTarget, true
}

// Snapshot returns an atomic copy of the current position.
func (m *Manager) Snapshot() Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := Position{
		LongSymbol:  m.cfg.LongSymbol,
		ShortSymbol: m.cfg.ShortSymbol,
	}
	switch m.state {
	case stateLong, stateClosing, stateAdjusting:
		p.Direction = DirectionLong
		p.EntryPrice = m.entryPrice
		p.Quantity = m.quantity
		p.GainTargetPrice = m.gainTarget
		p.OpenedAt = m.openedAt
		if m.stop != nil {
			p.StopPrice = m.stop.Price
		}
	}
	return p
}

// FetchFreeCapital returns the free balance of the quote asset. Exchange
// errors pass through unmodified.
func (m *Manager) FetchFreeCapital(ctx context.Context) (decimal.Decimal, error) {
	balances, err := m.client.FetchBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return balances[m.cfg.ShortSymbol].Free, nil
}

// FetchAllocatedPosition returns the free balance of the base asset.
// Exchange errors pass through unmodified.
func (m *Manager) FetchAllocatedPosition(ctx context.Context) (decimal.Decimal, error) {
	balances, err := m.client.FetchBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return balances[m.cfg.LongSymbol].Free, nil
}
