package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Anassarwar14/tradesim/internal/model"
)

// The functions below are the only code that writes Portfolio.CashBalance
// and Holding rows. The engine calls them under the portfolio lock after its
// business checks passed; they refuse to produce a negative balance or
// quantity, which would mean those checks were skipped.

func debitCash(p *model.Portfolio, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: debit of negative amount %s", ErrInvariantViolation, amount)
	}
	next := p.CashBalance.Sub(amount)
	if next.IsNegative() {
		return fmt.Errorf("%w: debit %s exceeds balance %s", ErrInvariantViolation, amount, p.CashBalance)
	}
	p.CashBalance = next
	return nil
}

func creditCash(p *model.Portfolio, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: credit of negative amount %s", ErrInvariantViolation, amount)
	}
	p.CashBalance = p.CashBalance.Add(amount)
	return nil
}

// applyBuy folds a purchase into the holding using weighted-average cost:
// newAvg = (oldQty*oldAvg + qty*price) / (oldQty + qty).
func applyBuy(h *model.Holding, quantity, price decimal.Decimal, now time.Time) error {
	if !quantity.IsPositive() || !price.IsPositive() {
		return fmt.Errorf("%w: buy with quantity %s price %s", ErrInvariantViolation, quantity, price)
	}

	oldCost := h.Quantity.Mul(h.AverageCost)
	newQuantity := h.Quantity.Add(quantity)
	h.AverageCost = oldCost.Add(quantity.Mul(price)).Div(newQuantity)
	h.Quantity = newQuantity
	h.LastUpdated = now
	return nil
}

// applySell reduces the holding quantity. Average cost is unchanged by a
// sell; a position reaching zero is closed.
func applySell(h *model.Holding, quantity decimal.Decimal, now time.Time) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("%w: sell with quantity %s", ErrInvariantViolation, quantity)
	}
	next := h.Quantity.Sub(quantity)
	if next.IsNegative() {
		return fmt.Errorf("%w: sell %s exceeds holding %s", ErrInvariantViolation, quantity, h.Quantity)
	}
	h.Quantity = next
	h.LastUpdated = now
	return nil
}
