package position

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/stratbot/feeds"
)

// StopPriceCalculator derives a stop-loss trigger price from an entry price.
// Implementations must be pure: same entry, same result, no side effects on
// manager state. Alternative strategies (volatility, trailing) plug in here
// without touching the Manager.
type StopPriceCalculator interface {
	CalculateStopPrice(entry decimal.Decimal) (decimal.Decimal, error)
}

// ═══════════════════════════════════════════════════════════════════════════════
// PERCENT STOP - Fixed percentage below entry
// ═══════════════════════════════════════════════════════════════════════════════

// PercentStop places the stop a fixed percentage below the entry price.
type PercentStop struct {
	pct decimal.Decimal
}

// NewPercentStop creates a percent stop. pct is a percentage (2.0 = 2%)
// and must be strictly positive.
func NewPercentStop(pct decimal.Decimal) (*PercentStop, error) {
	if !pct.IsPositive() {
		return nil, fmt.Errorf("stop loss percentage must be positive, got %s", pct)
	}
	return &PercentStop{pct: pct}, nil
}

// CalculateStopPrice returns entry * (1 - pct/100).
func (s *PercentStop) CalculateStopPrice(entry decimal.Decimal) (decimal.Decimal, error) {
	if !entry.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: entry %s", ErrInvalidPrice, entry)
	}
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	return entry.Mul(one.Sub(s.pct.Div(hundred))), nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// EMA STOP - Rides a moving average, floored by a max loss percentage
// ═══════════════════════════════════════════════════════════════════════════════

// EMAStop anchors the stop at the most recent value of an EMA series but
// never further from entry than maxLossPct.
type EMAStop struct {
	series     *feeds.RingBuffer
	maxLossPct decimal.Decimal
}

// NewEMAStop creates an EMA-anchored stop reading from series.
func NewEMAStop(series *feeds.RingBuffer, maxLossPct decimal.Decimal) (*EMAStop, error) {
	if series == nil {
		return nil, fmt.Errorf("EMA stop requires a sample series")
	}
	if !maxLossPct.IsPositive() {
		return nil, fmt.Errorf("max loss percentage must be positive, got %s", maxLossPct)
	}
	return &EMAStop{series: series, maxLossPct: maxLossPct}, nil
}

// CalculateStopPrice returns max(latest EMA, entry*(1-maxLossPct/100)).
// With an empty series only the percentage floor applies.
func (s *EMAStop) CalculateStopPrice(entry decimal.Decimal) (decimal.Decimal, error) {
	if !entry.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: entry %s", ErrInvalidPrice, entry)
	}
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	floor := entry.Mul(one.Sub(s.maxLossPct.Div(hundred)))

	ema, ok := s.series.MostRecent()
	if !ok || ema.LessThan(floor) {
		return floor, nil
	}
	return ema, nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// TRAILING STOP - Trails the high-water mark by a fixed distance
// ═══════════════════════════════════════════════════════════════════════════════

// TrailingStop trails the highest observed price by distancePct, never
// below the initial percentage stop. Feed observed prices via Observe.
type TrailingStop struct {
	distancePct decimal.Decimal
	base        *PercentStop
	high        decimal.Decimal
}

// NewTrailingStop creates a trailing stop. Both percentages must be
// strictly positive.
func NewTrailingStop(initialPct, distancePct decimal.Decimal) (*TrailingStop, error) {
	base, err := NewPercentStop(initialPct)
	if err != nil {
		return nil, err
	}
	if !distancePct.IsPositive() {
		return nil, fmt.Errorf("trailing distance percentage must be positive, got %s", distancePct)
	}
	return &TrailingStop{distancePct: distancePct, base: base}, nil
}

// Observe records a traded price, raising the high-water mark.
func (s *TrailingStop) Observe(price decimal.Decimal) {
	if price.GreaterThan(s.high) {
		s.high = price
	}
}

// CalculateStopPrice trails the high-water mark when it improves on the
// initial percentage stop.
func (s *TrailingStop) CalculateStopPrice(entry decimal.Decimal) (decimal.Decimal, error) {
	initial, err := s.base.CalculateStopPrice(entry)
	if err != nil {
		return decimal.Zero, err
	}
	if s.high.LessThanOrEqual(entry) {
		return initial, nil
	}
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	trailed := s.high.Mul(one.Sub(s.distancePct.Div(hundred)))
	if trailed.GreaterThan(initial) {
		return trailed, nil
	}
	return initial, nil
}
