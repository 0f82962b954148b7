package feeds

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// INDICATORS - Moving averages and slope over price samples
// ═══════════════════════════════════════════════════════════════════════════════

// ErrZeroRun is returned by Slope when the two points share an x coordinate.
var ErrZeroRun = errors.New("feeds: slope undefined for zero run")

// Point is a sample on a price series.
type Point struct {
	X decimal.Decimal // usually a timestamp
	Y decimal.Decimal // usually a price
}

// SMA returns the simple moving average of values. The second return is
// false when values is empty.
func SMA(values []decimal.Decimal) (decimal.Decimal, bool) {
	if len(values) == 0 {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))), true
}

// EMA returns the next exponential moving average given the current price
// and the previous EMA. With seeded false the price seeds the series.
func EMA(price, prevEMA decimal.Decimal, period int, seeded bool) decimal.Decimal {
	if !seeded {
		return price
	}
	k := smoothing(period)
	one := decimal.NewFromInt(1)
	return price.Mul(k).Add(prevEMA.Mul(one.Sub(k)))
}

// smoothing is the standard EMA weight 2/(period+1).
func smoothing(period int) decimal.Decimal {
	return decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period + 1)))
}

// Slope returns dy/dx between two points.
func Slope(current, previous Point) (decimal.Decimal, error) {
	dx := current.X.Sub(previous.X)
	if dx.IsZero() {
		return decimal.Zero, ErrZeroRun
	}
	return current.Y.Sub(previous.Y).Div(dx), nil
}

// ═══════════════════════════════════════════════════════════════════════════════
// EMA TRACKER - Maintains a rolling EMA series in a ring buffer
// ═══════════════════════════════════════════════════════════════════════════════

// EMATracker feeds each observed price into an EMA series backed by a
// RingBuffer, so stop calculators can read the most recent EMA value.
type EMATracker struct {
	period int
	series *RingBuffer
}

// NewEMATracker creates a tracker holding the last history EMA values.
func NewEMATracker(period, history int) (*EMATracker, error) {
	if period <= 0 {
		return nil, errors.New("feeds: EMA period must be positive")
	}
	series, err := NewRingBuffer(history)
	if err != nil {
		return nil, err
	}
	return &EMATracker{period: period, series: series}, nil
}

// Update pushes the next EMA value computed from price.
func (t *EMATracker) Update(price decimal.Decimal) {
	prev, seeded := t.series.MostRecent()
	t.series.Add(EMA(price, prev, t.period, seeded))
}

// Series exposes the EMA ring buffer, most recent value last.
func (t *EMATracker) Series() *RingBuffer {
	return t.series
}
