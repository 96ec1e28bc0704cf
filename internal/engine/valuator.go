package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Anassarwar14/tradesim/internal/model"
	"github.com/Anassarwar14/tradesim/internal/oracle"
	"github.com/Anassarwar14/tradesim/internal/store"
)

var _hundred = decimal.NewFromInt(100)

// Valuator computes portfolio value and unrealized P&L from current ledger
// state and live prices. It is a snapshot read: it takes no portfolio lock,
// so a valuation may trail a concurrent trade by one write.
type Valuator struct {
	store  store.Store
	oracle oracle.PriceOracle
}

func NewValuator(s store.Store, o oracle.PriceOracle) *Valuator {
	return &Valuator{store: s, oracle: o}
}

func (v *Valuator) Value(ctx context.Context, portfolioID string) (model.Valuation, error) {
	p, err := v.store.GetPortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Valuation{}, fmt.Errorf("%w: %s", ErrPortfolioNotFound, portfolioID)
		}
		return model.Valuation{}, fmt.Errorf("%w: can't read portfolio", err)
	}

	holdings, err := v.store.ListHoldings(ctx, portfolioID)
	if err != nil {
		return model.Valuation{}, fmt.Errorf("%w: can't read holdings", err)
	}

	val := model.Valuation{
		PortfolioID:   portfolioID,
		CashComponent: p.CashBalance,
		Holdings:      make([]model.HoldingValuation, 0, len(holdings)),
		AsOf:          time.Now().UTC(),
	}

	for _, h := range holdings {
		if !h.Quantity.IsPositive() {
			continue
		}

		quote, err := v.oracle.GetPrice(ctx, h.Symbol)
		if err != nil {
			return model.Valuation{}, err
		}

		marketValue := h.Quantity.Mul(quote.Price)
		costBasis := h.Quantity.Mul(h.AverageCost)
		pnl := marketValue.Sub(costBasis)
		pct := decimal.Zero
		if !costBasis.IsZero() {
			pct = pnl.Div(costBasis).Mul(_hundred)
		}

		val.Holdings = append(val.Holdings, model.HoldingValuation{
			Symbol:               h.Symbol,
			Quantity:             h.Quantity,
			AverageCost:          h.AverageCost,
			Price:                quote.Price,
			MarketValue:          marketValue,
			UnrealizedPnL:        pnl,
			UnrealizedPnLPercent: pct,
		})
		val.HoldingsComponent = val.HoldingsComponent.Add(marketValue)
	}

	val.TotalValue = val.CashComponent.Add(val.HoldingsComponent)
	return val, nil
}
