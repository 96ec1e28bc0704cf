package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Portfolio struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"userId" db:"user_id"`
	CashBalance decimal.Decimal `json:"cashBalance" db:"cash_balance"`
	Version     int64           `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"`
}

// Holding is keyed by (PortfolioID, Symbol). AverageCost carries no meaning
// once Quantity reaches zero.
type Holding struct {
	PortfolioID string          `json:"portfolioId" db:"portfolio_id"`
	Symbol      string          `json:"symbol" db:"symbol"`
	Quantity    decimal.Decimal `json:"quantity" db:"quantity"`
	AverageCost decimal.Decimal `json:"averageCost" db:"average_cost"`
	LastUpdated time.Time       `json:"lastUpdated" db:"last_updated"`
}
