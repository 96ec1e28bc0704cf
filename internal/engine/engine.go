package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Anassarwar14/tradesim/internal/config"
	"github.com/Anassarwar14/tradesim/internal/logger"
	"github.com/Anassarwar14/tradesim/internal/marketclock"
	"github.com/Anassarwar14/tradesim/internal/model"
	"github.com/Anassarwar14/tradesim/internal/oracle"
	"github.com/Anassarwar14/tradesim/internal/store"
)

const (
	_maxConflictRetries = 3
	_conflictBackoff    = 25 * time.Millisecond
)

// Engine validates trade requests, routes them through the market-open gate
// and drives the cash and holdings ledgers atomically. All mutating paths for
// one portfolio are serialized by a per-portfolio lock; the store's version
// check backs that up.
type Engine struct {
	store  store.Store
	oracle oracle.PriceOracle
	clock  *marketclock.Clock
	logger logger.Logger

	locks           *lockRegistry
	lockWait        time.Duration
	instrumentClass string

	now func() time.Time
}

func NewEngine(
	s store.Store,
	o oracle.PriceOracle,
	clock *marketclock.Clock,
	cfg config.EngineConfig,
	logger logger.Logger) *Engine {
	return &Engine{
		store:           s,
		oracle:          o,
		clock:           clock,
		logger:          logger,
		locks:           newLockRegistry(),
		lockWait:        cfg.LockWaitTimeout,
		instrumentClass: cfg.InstrumentClass,
		now:             time.Now,
	}
}

func (e *Engine) CreatePortfolio(ctx context.Context, userID string, openingCash decimal.Decimal) (model.Portfolio, error) {
	if openingCash.IsNegative() {
		return model.Portfolio{}, fmt.Errorf("%w: negative opening cash", ErrInvalidQuantity)
	}

	p := model.Portfolio{
		ID:          uuid.NewString(),
		UserID:      userID,
		CashBalance: openingCash,
		Version:     1,
		CreatedAt:   e.now().UTC(),
	}
	if err := e.store.CreatePortfolio(ctx, p); err != nil {
		return model.Portfolio{}, fmt.Errorf("%w: can't create portfolio", err)
	}

	e.logger.Infof("created portfolio %s for user %s with cash %s", p.ID, userID, openingCash)
	return p, nil
}

func (e *Engine) GetPortfolio(ctx context.Context, id string) (model.Portfolio, error) {
	p, err := e.store.GetPortfolio(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Portfolio{}, fmt.Errorf("%w: %s", ErrPortfolioNotFound, id)
	}
	return p, err
}

// SubmitOrder runs the full order path: validate, quote, market-open gate,
// then either immediate execution or queueing. Every failure path leaves the
// ledgers untouched.
func (e *Engine) SubmitOrder(ctx context.Context, portfolioID, symbol string, side model.Side, quantity decimal.Decimal) (model.ExecutionResult, error) {
	if !side.Valid() {
		return model.ExecutionResult{}, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
	if !quantity.IsPositive() {
		return model.ExecutionResult{}, fmt.Errorf("%w: %s", ErrInvalidQuantity, quantity)
	}
	if _, err := e.GetPortfolio(ctx, portfolioID); err != nil {
		return model.ExecutionResult{}, err
	}

	quote, err := e.oracle.GetPrice(ctx, symbol)
	if err != nil {
		return model.ExecutionResult{}, err
	}

	if !e.clock.IsOpen(e.instrumentClass, e.now()) {
		o := model.PendingOrder{
			ID:             uuid.NewString(),
			PortfolioID:    portfolioID,
			Symbol:         symbol,
			Side:           side,
			Quantity:       quantity,
			ReferencePrice: quote.Price,
			SubmittedAt:    e.now().UTC(),
			Status:         model.OrderQueued,
		}
		if err := e.store.CreatePendingOrder(ctx, o); err != nil {
			return model.ExecutionResult{}, fmt.Errorf("%w: can't queue order", err)
		}

		e.logger.Infof("market closed, queued %s %s x%s for portfolio %s as %s",
			side, symbol, quantity, portfolioID, o.ID)
		return model.ExecutionResult{Pending: true, PendingOrderID: o.ID}, nil
	}

	t, err := e.execute(ctx, portfolioID, symbol, side, quantity, quote.Price, false)
	if err != nil {
		return model.ExecutionResult{}, err
	}
	return model.ExecutionResult{Transaction: &t}, nil
}

// execute serializes on the portfolio lock and applies the trade.
func (e *Engine) execute(ctx context.Context, portfolioID, symbol string, side model.Side, quantity, price decimal.Decimal, pending bool) (model.Transaction, error) {
	release, err := e.locks.acquire(ctx, portfolioID, e.lockWait)
	if err != nil {
		return model.Transaction{}, err
	}
	defer release()

	return e.executeLocked(ctx, portfolioID, symbol, side, quantity, price, pending)
}

// executeLocked assumes the caller holds the portfolio lock. Version
// conflicts are retried with backoff up to a small bound before surfacing
// ErrConcurrentModification.
func (e *Engine) executeLocked(ctx context.Context, portfolioID, symbol string, side model.Side, quantity, price decimal.Decimal, pending bool) (model.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < _maxConflictRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(_conflictBackoff << (attempt - 1))
		}

		t, err := e.tryExecute(ctx, portfolioID, symbol, side, quantity, price, pending)
		if errors.Is(err, store.ErrVersionConflict) {
			lastErr = err
			continue
		}
		return t, err
	}

	return model.Transaction{}, fmt.Errorf("%w: %s", ErrConcurrentModification, lastErr)
}

// tryExecute is one read-validate-write pass. All business checks happen
// before the first write; the cash update, holding update and transaction
// insert commit together or not at all.
func (e *Engine) tryExecute(ctx context.Context, portfolioID, symbol string, side model.Side, quantity, price decimal.Decimal, pending bool) (model.Transaction, error) {
	p, err := e.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return model.Transaction{}, err
	}

	h, err := e.store.GetHolding(ctx, portfolioID, symbol)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return model.Transaction{}, fmt.Errorf("%w: can't read holding", err)
		}
		h = model.Holding{PortfolioID: portfolioID, Symbol: symbol}
	}

	now := e.now().UTC()
	switch side {
	case model.SideBuy:
		required := quantity.Mul(price)
		if required.GreaterThan(p.CashBalance) {
			return model.Transaction{}, fmt.Errorf("%w: need %s, have %s", ErrInsufficientFunds, required, p.CashBalance)
		}
		if err := debitCash(&p, required); err != nil {
			return model.Transaction{}, err
		}
		if err := applyBuy(&h, quantity, price, now); err != nil {
			return model.Transaction{}, err
		}
	case model.SideSell:
		if quantity.GreaterThan(h.Quantity) {
			return model.Transaction{}, fmt.Errorf("%w: want %s, hold %s", ErrInsufficientShares, quantity, h.Quantity)
		}
		if err := applySell(&h, quantity, now); err != nil {
			return model.Transaction{}, err
		}
		if err := creditCash(&p, quantity.Mul(price)); err != nil {
			return model.Transaction{}, err
		}
	}

	t := model.Transaction{
		ID:           uuid.NewString(),
		PortfolioID:  portfolioID,
		Symbol:       symbol,
		Side:         side,
		Quantity:     quantity,
		PricePerUnit: price,
		ExecutedAt:   now,
		Pending:      pending,
	}
	if err := e.store.ApplyTrade(ctx, p, h, t); err != nil {
		return model.Transaction{}, err
	}

	e.logger.Infof("executed %s %s x%s @ %s for portfolio %s, cash %s",
		side, symbol, quantity, price, portfolioID, p.CashBalance)
	return t, nil
}

func (e *Engine) ListTransactions(ctx context.Context, portfolioID string) ([]model.Transaction, error) {
	if _, err := e.GetPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	return e.store.ListTransactions(ctx, portfolioID)
}
