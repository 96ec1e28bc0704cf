package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Transaction is an append-only record of an executed trade. It is never
// mutated after creation.
type Transaction struct {
	ID           string          `json:"id" db:"id"`
	PortfolioID  string          `json:"portfolioId" db:"portfolio_id"`
	Symbol       string          `json:"symbol" db:"symbol"`
	Side         Side            `json:"side" db:"side"`
	Quantity     decimal.Decimal `json:"quantity" db:"quantity"`
	PricePerUnit decimal.Decimal `json:"pricePerUnit" db:"price_per_unit"`
	ExecutedAt   time.Time       `json:"executedAt" db:"executed_at"`
	Pending      bool            `json:"pending" db:"pending"`
}

type PendingOrderStatus string

const (
	OrderQueued    PendingOrderStatus = "QUEUED"
	OrderExecuted  PendingOrderStatus = "EXECUTED"
	OrderFailed    PendingOrderStatus = "FAILED"
	OrderCancelled PendingOrderStatus = "CANCELLED"
)

// Terminal reports whether the status permits no further transitions.
func (s PendingOrderStatus) Terminal() bool {
	return s == OrderExecuted || s == OrderFailed || s == OrderCancelled
}

// PendingOrder holds a trade accepted while the venue was closed.
// ReferencePrice is the quote captured at submission time and is used for
// display only; execution re-quotes at sweep time.
type PendingOrder struct {
	ID             string             `json:"id" db:"id"`
	PortfolioID    string             `json:"portfolioId" db:"portfolio_id"`
	Symbol         string             `json:"symbol" db:"symbol"`
	Side           Side               `json:"side" db:"side"`
	Quantity       decimal.Decimal    `json:"quantity" db:"quantity"`
	ReferencePrice decimal.Decimal    `json:"referencePrice" db:"reference_price"`
	SubmittedAt    time.Time          `json:"submittedAt" db:"submitted_at"`
	Status         PendingOrderStatus `json:"status" db:"status"`
	FailureReason  string             `json:"failureReason,omitempty" db:"failure_reason"`
	TransactionID  string             `json:"transactionId,omitempty" db:"transaction_id"`
}
