package engine

import "errors"

var (
	// ErrInvalidQuantity means the requested quantity is not a positive
	// finite number. Rejected before any lock or I/O.
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidSide     = errors.New("invalid side")

	// Business-rule rejections. No mutation happens on either.
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")

	// ErrConcurrentModification means the portfolio was contended beyond the
	// bounded lock wait or the optimistic version check failed after retries.
	ErrConcurrentModification = errors.New("concurrent modification")

	// ErrNotCancellable means the pending order already reached a terminal
	// state.
	ErrNotCancellable = errors.New("order not cancellable")

	ErrPortfolioNotFound = errors.New("portfolio not found")
	ErrOrderNotFound     = errors.New("pending order not found")

	// ErrInvariantViolation signals a ledger mutation that would produce a
	// negative balance or quantity. The engine checks business rules before
	// mutating, so hitting this is a bug.
	ErrInvariantViolation = errors.New("ledger invariant violation")
)
