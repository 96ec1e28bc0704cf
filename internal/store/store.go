package store

import (
	"context"
	"errors"

	"github.com/Anassarwar14/tradesim/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict means the portfolio row changed since it was read.
	ErrVersionConflict = errors.New("portfolio version conflict")
	// ErrStatusConflict means a pending order was not in the expected status
	// when a transition was attempted.
	ErrStatusConflict = errors.New("pending order status conflict")
)

// Store persists the four engine entities. Implementations must make
// ApplyTrade atomic: the cash update, the holding update and the transaction
// insert all commit or none do.
type Store interface {
	CreatePortfolio(ctx context.Context, p model.Portfolio) error
	GetPortfolio(ctx context.Context, id string) (model.Portfolio, error)

	// GetHolding returns ErrNotFound when the portfolio has no position in
	// the symbol.
	GetHolding(ctx context.Context, portfolioID, symbol string) (model.Holding, error)
	ListHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error)

	// ApplyTrade commits a trade against the portfolio: p carries the new
	// cash balance and the version it was read at, h the new holding state
	// (zero quantity removes the row), t the transaction record. The write
	// is conditioned on the stored version still matching p.Version;
	// ErrVersionConflict is returned otherwise and nothing is written.
	ApplyTrade(ctx context.Context, p model.Portfolio, h model.Holding, t model.Transaction) error

	ListTransactions(ctx context.Context, portfolioID string) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, id string) (model.Transaction, error)

	CreatePendingOrder(ctx context.Context, o model.PendingOrder) error
	GetPendingOrder(ctx context.Context, id string) (model.PendingOrder, error)
	ListPendingOrders(ctx context.Context, portfolioID string) ([]model.PendingOrder, error)
	// ListQueuedOrders returns every QUEUED order across portfolios in FIFO
	// submission order.
	ListQueuedOrders(ctx context.Context) ([]model.PendingOrder, error)
	// FinalizePendingOrder transitions an order to o.Status only if its
	// current status equals expected; ErrStatusConflict otherwise.
	FinalizePendingOrder(ctx context.Context, o model.PendingOrder, expected model.PendingOrderStatus) error
}
