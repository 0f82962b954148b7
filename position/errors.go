package position

import "errors"

// Lifecycle and validation errors. Callers distinguish outcomes with
// errors.Is; wrapped causes carry the underlying exchange error.
var (
	// ErrPositionActive is returned when an open is attempted while a
	// position is already held.
	ErrPositionActive = errors.New("position: a position is already active")

	// ErrNoActivePosition is returned when an exit or stop update is
	// attempted without a held position.
	ErrNoActivePosition = errors.New("position: no active position")

	// ErrOperationInFlight is returned when an open/exit/stop-update is
	// attempted while another lifecycle operation is still pending.
	ErrOperationInFlight = errors.New("position: another operation is in flight")

	// ErrInsufficientCapital is returned when the computed entry size is
	// zero, before any order is submitted.
	ErrInsufficientCapital = errors.New("position: insufficient free capital")

	// ErrOrderNotFilled is returned when fill polling exhausts its attempt
	// budget without a validated fill.
	ErrOrderNotFilled = errors.New("position: order fill not confirmed")

	// ErrStopLossDisabled is returned by stop updates when the manager was
	// configured without stop-loss protection.
	ErrStopLossDisabled = errors.New("position: stop loss is disabled")

	// ErrInvalidPrice rejects non-positive prices.
	ErrInvalidPrice = errors.New("position: price must be positive")

	// ErrUnprotectedPosition reports that an existing stop order was
	// cancelled but its replacement could not be placed. The position is
	// live without downside protection; treat as high severity.
	ErrUnprotectedPosition = errors.New("position: stop order cancelled but replacement failed, position is unprotected")
)
