package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Anassarwar14/tradesim/internal/model"
	"github.com/Anassarwar14/tradesim/internal/store"
)

// Sweep replays queued orders through the execution path. Orders run in FIFO
// submission order; the price is re-quoted at execution time, never the
// reference price captured at submission. A failed entry is finalized as
// FAILED with its reason and never blocks later entries or gets retried.
func (e *Engine) Sweep(ctx context.Context, now time.Time) (model.SweepResult, error) {
	res := model.SweepResult{Results: make([]model.SweepOutcome, 0)}

	if !e.clock.IsOpen(e.instrumentClass, now) {
		return res, nil
	}

	orders, err := e.store.ListQueuedOrders(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: can't list queued orders", err)
	}

	for _, o := range orders {
		outcome, ok := e.sweepOne(ctx, o)
		if !ok {
			continue
		}
		res.Processed++
		if outcome.Status == model.OrderFailed {
			res.Failed++
		}
		res.Results = append(res.Results, outcome)
	}

	if res.Processed > 0 {
		e.logger.Infof("sweep processed %d orders, %d failed", res.Processed, res.Failed)
	}
	return res, nil
}

// sweepOne executes a single queued order. The quote is fetched before the
// portfolio lock is taken so a slow oracle never stalls other trades on the
// same portfolio. The order status is re-checked under the lock: an order
// cancelled since listing is skipped, not failed.
func (e *Engine) sweepOne(ctx context.Context, o model.PendingOrder) (model.SweepOutcome, bool) {
	quote, quoteErr := e.oracle.GetPrice(ctx, o.Symbol)

	release, err := e.locks.acquire(ctx, o.PortfolioID, e.lockWait)
	if err != nil {
		// Never attempted execution, so the order stays QUEUED for the next
		// sweep.
		e.logger.Warnf("sweep skipped order %s: %s", o.ID, err)
		return model.SweepOutcome{}, false
	}
	defer release()

	current, err := e.store.GetPendingOrder(ctx, o.ID)
	if err != nil || current.Status != model.OrderQueued {
		return model.SweepOutcome{}, false
	}

	if quoteErr != nil {
		return e.finalize(ctx, o, model.OrderFailed, "", quoteErr.Error()), true
	}

	t, execErr := e.executeLocked(ctx, o.PortfolioID, o.Symbol, o.Side, o.Quantity, quote.Price, true)
	if execErr != nil {
		return e.finalize(ctx, o, model.OrderFailed, "", execErr.Error()), true
	}
	return e.finalize(ctx, o, model.OrderExecuted, t.ID, ""), true
}

func (e *Engine) finalize(ctx context.Context, o model.PendingOrder, status model.PendingOrderStatus, transactionID, reason string) model.SweepOutcome {
	o.Status = status
	o.TransactionID = transactionID
	o.FailureReason = reason
	if err := e.store.FinalizePendingOrder(ctx, o, model.OrderQueued); err != nil {
		e.logger.Errorf("%s: can't finalize pending order %s as %s", err, o.ID, status)
	}

	return model.SweepOutcome{
		OrderID:       o.ID,
		PortfolioID:   o.PortfolioID,
		Status:        status,
		TransactionID: transactionID,
		Reason:        reason,
	}
}

// CancelPendingOrder transitions a QUEUED order to CANCELLED. It serializes
// on the same portfolio lock as execution, so an order cannot be both
// cancelled and executed.
func (e *Engine) CancelPendingOrder(ctx context.Context, orderID string) (model.PendingOrder, error) {
	o, err := e.store.GetPendingOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.PendingOrder{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return model.PendingOrder{}, fmt.Errorf("%w: can't read pending order", err)
	}
	if o.Status != model.OrderQueued {
		return model.PendingOrder{}, fmt.Errorf("%w: order %s is %s", ErrNotCancellable, orderID, o.Status)
	}

	release, err := e.locks.acquire(ctx, o.PortfolioID, e.lockWait)
	if err != nil {
		return model.PendingOrder{}, err
	}
	defer release()

	o.Status = model.OrderCancelled
	if err := e.store.FinalizePendingOrder(ctx, o, model.OrderQueued); err != nil {
		if errors.Is(err, store.ErrStatusConflict) {
			return model.PendingOrder{}, fmt.Errorf("%w: order %s already finalized", ErrNotCancellable, orderID)
		}
		return model.PendingOrder{}, fmt.Errorf("%w: can't cancel pending order", err)
	}

	e.logger.Infof("cancelled pending order %s", orderID)
	return o, nil
}

func (e *Engine) ListPendingOrders(ctx context.Context, portfolioID string) ([]model.PendingOrder, error) {
	if _, err := e.GetPortfolio(ctx, portfolioID); err != nil {
		return nil, err
	}
	return e.store.ListPendingOrders(ctx, portfolioID)
}

// RunSweeper drives Sweep on a fixed interval until ctx is cancelled.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
			if _, err := e.Sweep(ctx, e.now()); err != nil {
				e.logger.Errorf("%s: sweep failed", err)
			}
		}
	}
}
