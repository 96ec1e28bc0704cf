package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Anassarwar14/tradesim/internal/model"
)

func queueOrder(t *testing.T, e *Engine, portfolioID, symbol string, side model.Side, quantity int64) string {
	t.Helper()
	e.now = func() time.Time { return _closedInstant }
	res, err := e.SubmitOrder(context.Background(), portfolioID, symbol, side, decimal.NewFromInt(quantity))
	if err != nil {
		t.Fatalf("can't queue order: %s", err)
	}
	if !res.Pending {
		t.Fatal("expected the order to queue")
	}
	e.now = func() time.Time { return _openInstant }
	return res.PendingOrderID
}

func TestSweepReQuotesAtExecution(t *testing.T) {
	e, s, o := newTestEngine(t, map[string]float64{"AAPL": 50})
	p := mustCreatePortfolio(t, e, 10000)

	orderID := queueOrder(t, e, p.ID, "AAPL", model.SideBuy, 10)
	o.SetPrice("AAPL", decimal.NewFromInt(55))

	res, err := e.Sweep(context.Background(), _openInstant)
	if err != nil {
		t.Fatalf("sweep failed: %s", err)
	}
	if res.Processed != 1 || res.Failed != 0 {
		t.Fatalf("expected 1 processed 0 failed, got %d/%d", res.Processed, res.Failed)
	}

	order, _ := s.GetPendingOrder(context.Background(), orderID)
	if order.Status != model.OrderExecuted {
		t.Fatalf("expected EXECUTED, got %s", order.Status)
	}
	if order.TransactionID == "" {
		t.Fatal("executed order must link its transaction")
	}

	tr, err := s.GetTransaction(context.Background(), order.TransactionID)
	if err != nil {
		t.Fatalf("can't read transaction: %s", err)
	}
	if !tr.PricePerUnit.Equal(decimal.NewFromInt(55)) {
		t.Fatalf("expected execution at the swept price 55, got %s", tr.PricePerUnit)
	}
	if !tr.Pending {
		t.Fatal("swept execution must be flagged as queued origin")
	}

	got, _ := s.GetPortfolio(context.Background(), p.ID)
	if !got.CashBalance.Equal(decimal.NewFromInt(9450)) {
		t.Fatalf("expected cash 9450, got %s", got.CashBalance)
	}
}

func TestSweepClosedMarketIsNoop(t *testing.T) {
	e, s, _ := newTestEngine(t, map[string]float64{"AAPL": 50})
	p := mustCreatePortfolio(t, e, 10000)
	orderID := queueOrder(t, e, p.ID, "AAPL", model.SideBuy, 10)

	res, err := e.Sweep(context.Background(), _closedInstant)
	if err != nil {
		t.Fatalf("sweep failed: %s", err)
	}
	if res.Processed != 0 {
		t.Fatalf("closed-market sweep must process nothing, got %d", res.Processed)
	}

	order, _ := s.GetPendingOrder(context.Background(), orderID)
	if order.Status != model.OrderQueued {
		t.Fatalf("expected order to stay QUEUED, got %s", order.Status)
	}
}

func TestSweepFailedOrderDoesNotBlockOthers(t *testing.T) {
	e, s, _ := newTestEngine(t, map[string]float64{"AAPL": 100})
	p := mustCreatePortfolio(t, e, 1000)

	// First in line needs 10x the available cash; the second fits.
	failingID := queueOrder(t, e, p.ID, "AAPL", model.SideBuy, 100)
	okID := queueOrder(t, e, p.ID, "AAPL", model.SideBuy, 5)

	res, err := e.Sweep(context.Background(), _openInstant)
	if err != nil {
		t.Fatalf("sweep failed: %s", err)
	}
	if res.Processed != 2 || res.Failed != 1 {
		t.Fatalf("expected 2 processed 1 failed, got %d/%d", res.Processed, res.Failed)
	}

	failed, _ := s.GetPendingOrder(context.Background(), failingID)
	if failed.Status != model.OrderFailed {
		t.Fatalf("expected FAILED, got %s", failed.Status)
	}
	if failed.FailureReason == "" {
		t.Fatal("failed order must carry its reason")
	}

	ok, _ := s.GetPendingOrder(context.Background(), okID)
	if ok.Status != model.OrderExecuted {
		t.Fatalf("expected EXECUTED, got %s", ok.Status)
	}

	got, _ := s.GetPortfolio(context.Background(), p.ID)
	if !got.CashBalance.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("expected cash 500, got %s", got.CashBalance)
	}
}

func TestSweepUnknownSymbolFails(t *testing.T) {
	e, s, o := newTestEngine(t, map[string]float64{"AAPL": 50})
	p := mustCreatePortfolio(t, e, 10000)

	orderID := queueOrder(t, e, p.ID, "AAPL", model.SideBuy, 10)
	o.RemovePrice("AAPL")

	res, err := e.Sweep(context.Background(), _openInstant)
	if err != nil {
		t.Fatalf("sweep failed: %s", err)
	}
	if res.Processed != 1 || res.Failed != 1 {
		t.Fatalf("expected 1 processed 1 failed, got %d/%d", res.Processed, res.Failed)
	}

	order, _ := s.GetPendingOrder(context.Background(), orderID)
	if order.Status != model.OrderFailed {
		t.Fatalf("expected FAILED, got %s", order.Status)
	}
}

func TestSweepIsIdempotent(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string]float64{"AAPL": 50})
	p := mustCreatePortfolio(t, e, 10000)
	queueOrder(t, e, p.ID, "AAPL", model.SideBuy, 10)

	first, err := e.Sweep(context.Background(), _openInstant)
	if err != nil {
		t.Fatalf("first sweep failed: %s", err)
	}
	if first.Processed != 1 {
		t.Fatalf("expected 1 processed, got %d", first.Processed)
	}

	second, err := e.Sweep(context.Background(), _openInstant)
	if err != nil {
		t.Fatalf("second sweep failed: %s", err)
	}
	if second.Processed != 0 {
		t.Fatalf("re-sweep must find nothing, got %d", second.Processed)
	}
}

func TestCancelPendingOrder(t *testing.T) {
	e, s, _ := newTestEngine(t, map[string]float64{"AAPL": 50})
	p := mustCreatePortfolio(t, e, 10000)
	orderID := queueOrder(t, e, p.ID, "AAPL", model.SideBuy, 10)

	cancelled, err := e.CancelPendingOrder(context.Background(), orderID)
	if err != nil {
		t.Fatalf("cancel failed: %s", err)
	}
	if cancelled.Status != model.OrderCancelled {
		t.Fatalf("expected CANCELLED, got %s", cancelled.Status)
	}

	res, err := e.Sweep(context.Background(), _openInstant)
	if err != nil {
		t.Fatalf("sweep failed: %s", err)
	}
	if res.Processed != 0 {
		t.Fatalf("cancelled order must not be swept, got %d processed", res.Processed)
	}

	got, _ := s.GetPortfolio(context.Background(), p.ID)
	if !got.CashBalance.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("cancel must not touch cash, got %s", got.CashBalance)
	}
}

func TestCancelFinalizedOrder(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string]float64{"AAPL": 50})
	p := mustCreatePortfolio(t, e, 10000)
	orderID := queueOrder(t, e, p.ID, "AAPL", model.SideBuy, 10)

	if _, err := e.Sweep(context.Background(), _openInstant); err != nil {
		t.Fatalf("sweep failed: %s", err)
	}

	_, err := e.CancelPendingOrder(context.Background(), orderID)
	if !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable, got %v", err)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	_, err := e.CancelPendingOrder(context.Background(), "no-such")
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestListPendingOrders(t *testing.T) {
	e, _, _ := newTestEngine(t, map[string]float64{"AAPL": 50, "MSFT": 80})
	p := mustCreatePortfolio(t, e, 10000)

	queueOrder(t, e, p.ID, "AAPL", model.SideBuy, 1)
	queueOrder(t, e, p.ID, "MSFT", model.SideBuy, 1)

	orders, err := e.ListPendingOrders(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("can't list pending orders: %s", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 pending orders, got %d", len(orders))
	}
}
