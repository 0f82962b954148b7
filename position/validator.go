package position

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/stratbot/exchange"
)

// Validator decides whether a venue-reported trade record is the fill for
// an order this manager submitted. Venues are eventually consistent:
// stale, cancelled and mismatched records routinely show up in trade
// history next to the real fill, and clock skew can make a fill appear
// older than its submission. Every record passes through here before it
// is committed into position state; a false result is a normal polling
// outcome, not an error.
type Validator struct{}

// IsValidBuy reports whether trade is a committed buy fill for symbol
// submitted at or after submittedAt.
func (Validator) IsValidBuy(trade *exchange.Trade, submittedAt time.Time, symbol string) bool {
	return Validator{}.isValid(trade, submittedAt, symbol, exchange.SideBuy)
}

// IsValidSell is the sell-side counterpart of IsValidBuy.
func (Validator) IsValidSell(trade *exchange.Trade, submittedAt time.Time, symbol string) bool {
	return Validator{}.isValid(trade, submittedAt, symbol, exchange.SideSell)
}

func (Validator) isValid(trade *exchange.Trade, submittedAt time.Time, symbol string, side exchange.Side) bool {
	if trade == nil {
		return false
	}
	// Symbol comparison is exact; venues that case-fold must normalize in
	// their adapter.
	if trade.Symbol != symbol {
		log.Debug().Str("got", trade.Symbol).Str("want", symbol).Msg("trade rejected: symbol mismatch")
		return false
	}
	if trade.Side != side {
		log.Debug().Str("got", string(trade.Side)).Str("want", string(side)).Msg("trade rejected: side mismatch")
		return false
	}
	// A fill cannot predate its submission; anything earlier is a stale or
	// replayed record.
	if trade.Time.Before(submittedAt) {
		log.Debug().
			Time("trade_time", trade.Time).
			Time("submitted_at", submittedAt).
			Msg("trade rejected: predates submission")
		return false
	}
	if trade.Status != exchange.TradeStatusFilled {
		log.Debug().Str("status", string(trade.Status)).Msg("trade rejected: not filled")
		return false
	}
	if !trade.Quantity.IsPositive() {
		log.Debug().Str("quantity", trade.Quantity.String()).Msg("trade rejected: non-positive quantity")
		return false
	}
	return true
}
