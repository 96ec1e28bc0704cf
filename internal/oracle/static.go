package oracle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Anassarwar14/tradesim/internal/model"
)

// StaticOracle serves prices from an in-memory table. Used by the sandbox
// configuration and by tests.
type StaticOracle struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

func NewStaticOracle(prices map[string]float64) *StaticOracle {
	table := make(map[string]decimal.Decimal, len(prices))
	for symbol, price := range prices {
		table[symbol] = decimal.NewFromFloat(price)
	}
	return &StaticOracle{prices: table}
}

func (o *StaticOracle) SetPrice(symbol string, price decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[symbol] = price
}

func (o *StaticOracle) RemovePrice(symbol string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.prices, symbol)
}

func (o *StaticOracle) GetPrice(_ context.Context, symbol string) (model.Quote, error) {
	o.mu.RLock()
	price, ok := o.prices[symbol]
	o.mu.RUnlock()

	if !ok {
		return model.Quote{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if !price.IsPositive() {
		return model.Quote{}, fmt.Errorf("%w: non-positive price for %s", ErrPriceUnavailable, symbol)
	}

	return model.Quote{
		Symbol: symbol,
		Price:  price,
		AsOf:   time.Now().UTC(),
	}, nil
}
