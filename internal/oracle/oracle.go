package oracle

import (
	"context"
	"errors"

	"github.com/Anassarwar14/tradesim/internal/model"
)

var (
	// ErrUnknownSymbol means the symbol does not resolve to a quotable
	// instrument.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrPriceUnavailable means the source could not produce a positive
	// price. The caller may retry later.
	ErrPriceUnavailable = errors.New("price unavailable")
)

// PriceOracle supplies the latest executable price for a symbol. It is a
// fallible synchronous dependency; implementations must bound their own
// latency (the engine never waits on an unbounded call).
type PriceOracle interface {
	GetPrice(ctx context.Context, symbol string) (model.Quote, error)
}
