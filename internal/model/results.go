package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExecutionResult is returned by order submission. Exactly one of Transaction
// or PendingOrderID is set: Transaction when the order executed immediately,
// PendingOrderID when the venue was closed and the order was queued.
type ExecutionResult struct {
	Pending        bool         `json:"pending"`
	Transaction    *Transaction `json:"transaction,omitempty"`
	PendingOrderID string       `json:"pendingOrderId,omitempty"`
}

type SweepOutcome struct {
	OrderID       string             `json:"orderId"`
	PortfolioID   string             `json:"portfolioId"`
	Status        PendingOrderStatus `json:"status"`
	TransactionID string             `json:"transactionId,omitempty"`
	Reason        string             `json:"reason,omitempty"`
}

type SweepResult struct {
	Processed int            `json:"processed"`
	Failed    int            `json:"failed"`
	Results   []SweepOutcome `json:"results"`
}

type HoldingValuation struct {
	Symbol               string          `json:"symbol"`
	Quantity             decimal.Decimal `json:"quantity"`
	AverageCost          decimal.Decimal `json:"averageCost"`
	Price                decimal.Decimal `json:"price"`
	MarketValue          decimal.Decimal `json:"marketValue"`
	UnrealizedPnL        decimal.Decimal `json:"unrealizedPnl"`
	UnrealizedPnLPercent decimal.Decimal `json:"unrealizedPnlPercent"`
}

type Valuation struct {
	PortfolioID       string             `json:"portfolioId"`
	TotalValue        decimal.Decimal    `json:"totalValue"`
	CashComponent     decimal.Decimal    `json:"cashComponent"`
	HoldingsComponent decimal.Decimal    `json:"holdingsComponent"`
	Holdings          []HoldingValuation `json:"holdings"`
	AsOf              time.Time          `json:"asOf"`
}
