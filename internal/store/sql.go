package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Anassarwar14/tradesim/internal/model"
)

var _ Store = (*SQLStore)(nil)

const _schema = `
CREATE TABLE IF NOT EXISTS portfolios (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	cash_balance NUMERIC NOT NULL,
	version      BIGINT NOT NULL,
	created_at   TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS holdings (
	portfolio_id TEXT NOT NULL,
	symbol       TEXT NOT NULL,
	quantity     NUMERIC NOT NULL,
	average_cost NUMERIC NOT NULL,
	last_updated TIMESTAMP NOT NULL,
	PRIMARY KEY (portfolio_id, symbol)
);
CREATE TABLE IF NOT EXISTS transactions (
	id             TEXT PRIMARY KEY,
	portfolio_id   TEXT NOT NULL,
	symbol         TEXT NOT NULL,
	side           TEXT NOT NULL,
	quantity       NUMERIC NOT NULL,
	price_per_unit NUMERIC NOT NULL,
	executed_at    TIMESTAMP NOT NULL,
	pending        BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS pending_orders (
	id              TEXT PRIMARY KEY,
	portfolio_id    TEXT NOT NULL,
	symbol          TEXT NOT NULL,
	side            TEXT NOT NULL,
	quantity        NUMERIC NOT NULL,
	reference_price NUMERIC NOT NULL,
	submitted_at    TIMESTAMP NOT NULL,
	status          TEXT NOT NULL,
	failure_reason  TEXT NOT NULL DEFAULT '',
	transaction_id  TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_transactions_portfolio ON transactions (portfolio_id, executed_at);
CREATE INDEX IF NOT EXISTS idx_pending_orders_status ON pending_orders (status, submitted_at);`

const (
	_insertPortfolio = `INSERT INTO portfolios (id, user_id, cash_balance, version, created_at)
						VALUES (?,?,?,?,?)`
	_queryPortfolio = `SELECT id, user_id, cash_balance, version, created_at
						FROM portfolios WHERE id = ?`
	_updatePortfolioCash = `UPDATE portfolios SET cash_balance = ?, version = version + 1
						WHERE id = ? AND version = ?`

	_queryHolding = `SELECT portfolio_id, symbol, quantity, average_cost, last_updated
						FROM holdings WHERE portfolio_id = ? AND symbol = ?`
	_queryHoldings = `SELECT portfolio_id, symbol, quantity, average_cost, last_updated
						FROM holdings WHERE portfolio_id = ? ORDER BY symbol`
	_upsertHolding = `INSERT INTO holdings (portfolio_id, symbol, quantity, average_cost, last_updated)
						VALUES (?,?,?,?,?)
						ON CONFLICT (portfolio_id, symbol)
						DO UPDATE SET
							quantity = EXCLUDED.quantity,
							average_cost = EXCLUDED.average_cost,
							last_updated = EXCLUDED.last_updated`
	_deleteHolding = `DELETE FROM holdings WHERE portfolio_id = ? AND symbol = ?`

	_insertTransaction = `INSERT INTO transactions (id, portfolio_id, symbol, side, quantity, price_per_unit, executed_at, pending)
						VALUES (?,?,?,?,?,?,?,?)`
	_queryTransactions = `SELECT id, portfolio_id, symbol, side, quantity, price_per_unit, executed_at, pending
						FROM transactions WHERE portfolio_id = ? ORDER BY executed_at, id`
	_queryTransaction = `SELECT id, portfolio_id, symbol, side, quantity, price_per_unit, executed_at, pending
						FROM transactions WHERE id = ?`

	_insertPendingOrder = `INSERT INTO pending_orders (id, portfolio_id, symbol, side, quantity, reference_price, submitted_at, status, failure_reason, transaction_id)
						VALUES (?,?,?,?,?,?,?,?,?,?)`
	_queryPendingOrder = `SELECT id, portfolio_id, symbol, side, quantity, reference_price, submitted_at, status, failure_reason, transaction_id
						FROM pending_orders WHERE id = ?`
	_queryPendingOrders = `SELECT id, portfolio_id, symbol, side, quantity, reference_price, submitted_at, status, failure_reason, transaction_id
						FROM pending_orders WHERE portfolio_id = ? ORDER BY submitted_at, id`
	_queryQueuedOrders = `SELECT id, portfolio_id, symbol, side, quantity, reference_price, submitted_at, status, failure_reason, transaction_id
						FROM pending_orders WHERE status = ? ORDER BY submitted_at, id`
	_finalizePendingOrder = `UPDATE pending_orders SET status = ?, failure_reason = ?, transaction_id = ?
						WHERE id = ? AND status = ?`
)

// SQLStore implements Store on top of sqlx. Queries use '?' bindvars and are
// rebound per driver, so both the postgres and sqlite drivers work.
type SQLStore struct {
	db *sqlx.DB
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQLite opens (or creates) a sqlite database at path.
func OpenSQLite(path string) (*sqlx.DB, error) {
	return sqlx.Connect("sqlite", path)
}

// Migrate creates the schema when it does not exist yet.
func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, _schema); err != nil {
		return fmt.Errorf("%w: can't migrate schema", err)
	}
	return nil
}

func (s *SQLStore) CreatePortfolio(ctx context.Context, p model.Portfolio) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(_insertPortfolio),
		p.ID, p.UserID, p.CashBalance, p.Version, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: can't insert portfolio", err)
	}
	return nil
}

func (s *SQLStore) GetPortfolio(ctx context.Context, id string) (model.Portfolio, error) {
	var p model.Portfolio
	if err := s.db.GetContext(ctx, &p, s.db.Rebind(_queryPortfolio), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Portfolio{}, ErrNotFound
		}
		return model.Portfolio{}, fmt.Errorf("%w: can't query portfolio", err)
	}
	return p, nil
}

func (s *SQLStore) GetHolding(ctx context.Context, portfolioID, symbol string) (model.Holding, error) {
	var h model.Holding
	if err := s.db.GetContext(ctx, &h, s.db.Rebind(_queryHolding), portfolioID, symbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Holding{}, ErrNotFound
		}
		return model.Holding{}, fmt.Errorf("%w: can't query holding", err)
	}
	return h, nil
}

func (s *SQLStore) ListHoldings(ctx context.Context, portfolioID string) ([]model.Holding, error) {
	holdings := make([]model.Holding, 0)
	if err := s.db.SelectContext(ctx, &holdings, s.db.Rebind(_queryHoldings), portfolioID); err != nil {
		return nil, fmt.Errorf("%w: can't query holdings", err)
	}
	return holdings, nil
}

func (s *SQLStore) ApplyTrade(ctx context.Context, p model.Portfolio, h model.Holding, t model.Transaction) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: can't begin trade tx", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, tx.Rebind(_updatePortfolioCash), p.CashBalance, p.ID, p.Version)
	if err != nil {
		return fmt.Errorf("%w: can't update portfolio cash", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: can't read rows affected", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	if h.Quantity.IsZero() {
		if _, err := tx.ExecContext(ctx, tx.Rebind(_deleteHolding), h.PortfolioID, h.Symbol); err != nil {
			return fmt.Errorf("%w: can't delete holding", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, tx.Rebind(_upsertHolding),
			h.PortfolioID, h.Symbol, h.Quantity, h.AverageCost, h.LastUpdated); err != nil {
			return fmt.Errorf("%w: can't upsert holding", err)
		}
	}

	if _, err := tx.ExecContext(ctx, tx.Rebind(_insertTransaction),
		t.ID, t.PortfolioID, t.Symbol, t.Side, t.Quantity, t.PricePerUnit, t.ExecutedAt, t.Pending); err != nil {
		return fmt.Errorf("%w: can't insert transaction", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: can't commit trade tx", err)
	}
	return nil
}

func (s *SQLStore) ListTransactions(ctx context.Context, portfolioID string) ([]model.Transaction, error) {
	transactions := make([]model.Transaction, 0)
	if err := s.db.SelectContext(ctx, &transactions, s.db.Rebind(_queryTransactions), portfolioID); err != nil {
		return nil, fmt.Errorf("%w: can't query transactions", err)
	}
	return transactions, nil
}

func (s *SQLStore) GetTransaction(ctx context.Context, id string) (model.Transaction, error) {
	var t model.Transaction
	if err := s.db.GetContext(ctx, &t, s.db.Rebind(_queryTransaction), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Transaction{}, ErrNotFound
		}
		return model.Transaction{}, fmt.Errorf("%w: can't query transaction", err)
	}
	return t, nil
}

func (s *SQLStore) CreatePendingOrder(ctx context.Context, o model.PendingOrder) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(_insertPendingOrder),
		o.ID, o.PortfolioID, o.Symbol, o.Side, o.Quantity, o.ReferencePrice,
		o.SubmittedAt, o.Status, o.FailureReason, o.TransactionID)
	if err != nil {
		return fmt.Errorf("%w: can't insert pending order", err)
	}
	return nil
}

func (s *SQLStore) GetPendingOrder(ctx context.Context, id string) (model.PendingOrder, error) {
	var o model.PendingOrder
	if err := s.db.GetContext(ctx, &o, s.db.Rebind(_queryPendingOrder), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PendingOrder{}, ErrNotFound
		}
		return model.PendingOrder{}, fmt.Errorf("%w: can't query pending order", err)
	}
	return o, nil
}

func (s *SQLStore) ListPendingOrders(ctx context.Context, portfolioID string) ([]model.PendingOrder, error) {
	orders := make([]model.PendingOrder, 0)
	if err := s.db.SelectContext(ctx, &orders, s.db.Rebind(_queryPendingOrders), portfolioID); err != nil {
		return nil, fmt.Errorf("%w: can't query pending orders", err)
	}
	return orders, nil
}

func (s *SQLStore) ListQueuedOrders(ctx context.Context) ([]model.PendingOrder, error) {
	orders := make([]model.PendingOrder, 0)
	if err := s.db.SelectContext(ctx, &orders, s.db.Rebind(_queryQueuedOrders), model.OrderQueued); err != nil {
		return nil, fmt.Errorf("%w: can't query queued orders", err)
	}
	return orders, nil
}

func (s *SQLStore) FinalizePendingOrder(ctx context.Context, o model.PendingOrder, expected model.PendingOrderStatus) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(_finalizePendingOrder),
		o.Status, o.FailureReason, o.TransactionID, o.ID, expected)
	if err != nil {
		return fmt.Errorf("%w: can't finalize pending order", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: can't read rows affected", err)
	}
	if rows == 0 {
		return ErrStatusConflict
	}
	return nil
}
