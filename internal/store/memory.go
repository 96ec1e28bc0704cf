package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Anassarwar14/tradesim/internal/model"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps all state in process. It backs the sandbox configuration
// and tests.
type MemoryStore struct {
	mu sync.RWMutex

	portfolios   map[string]model.Portfolio
	holdings     map[string]map[string]model.Holding // portfolioID -> symbol
	transactions map[string]model.Transaction
	txOrder      []string
	pending      map[string]model.PendingOrder
	pendingSeq   map[string]int64
	seq          int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		portfolios:   make(map[string]model.Portfolio),
		holdings:     make(map[string]map[string]model.Holding),
		transactions: make(map[string]model.Transaction),
		pending:      make(map[string]model.PendingOrder),
		pendingSeq:   make(map[string]int64),
	}
}

func (s *MemoryStore) CreatePortfolio(_ context.Context, p model.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.portfolios[p.ID]; ok {
		return fmt.Errorf("portfolio %s already exists", p.ID)
	}
	s.portfolios[p.ID] = p
	return nil
}

func (s *MemoryStore) GetPortfolio(_ context.Context, id string) (model.Portfolio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[id]
	if !ok {
		return model.Portfolio{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) GetHolding(_ context.Context, portfolioID, symbol string) (model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holdings[portfolioID][symbol]
	if !ok {
		return model.Holding{}, ErrNotFound
	}
	return h, nil
}

func (s *MemoryStore) ListHoldings(_ context.Context, portfolioID string) ([]model.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	holdings := make([]model.Holding, 0, len(s.holdings[portfolioID]))
	for _, h := range s.holdings[portfolioID] {
		holdings = append(holdings, h)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })
	return holdings, nil
}

func (s *MemoryStore) ApplyTrade(_ context.Context, p model.Portfolio, h model.Holding, t model.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.portfolios[p.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != p.Version {
		return ErrVersionConflict
	}

	p.Version++
	s.portfolios[p.ID] = p

	if h.Quantity.IsZero() {
		delete(s.holdings[p.ID], h.Symbol)
	} else {
		if s.holdings[p.ID] == nil {
			s.holdings[p.ID] = make(map[string]model.Holding)
		}
		s.holdings[p.ID][h.Symbol] = h
	}

	s.transactions[t.ID] = t
	s.txOrder = append(s.txOrder, t.ID)
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, portfolioID string) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transactions := make([]model.Transaction, 0)
	for _, id := range s.txOrder {
		if t := s.transactions[id]; t.PortfolioID == portfolioID {
			transactions = append(transactions, t)
		}
	}
	return transactions, nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, id string) (model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return model.Transaction{}, ErrNotFound
	}
	return t, nil
}

func (s *MemoryStore) CreatePendingOrder(_ context.Context, o model.PendingOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[o.ID]; ok {
		return fmt.Errorf("pending order %s already exists", o.ID)
	}
	s.seq++
	s.pending[o.ID] = o
	s.pendingSeq[o.ID] = s.seq
	return nil
}

func (s *MemoryStore) GetPendingOrder(_ context.Context, id string) (model.PendingOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.pending[id]
	if !ok {
		return model.PendingOrder{}, ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) ListPendingOrders(_ context.Context, portfolioID string) ([]model.PendingOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]model.PendingOrder, 0)
	for _, o := range s.pending {
		if o.PortfolioID == portfolioID {
			orders = append(orders, o)
		}
	}
	s.sortBySubmission(orders)
	return orders, nil
}

func (s *MemoryStore) ListQueuedOrders(_ context.Context) ([]model.PendingOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]model.PendingOrder, 0)
	for _, o := range s.pending {
		if o.Status == model.OrderQueued {
			orders = append(orders, o)
		}
	}
	s.sortBySubmission(orders)
	return orders, nil
}

func (s *MemoryStore) FinalizePendingOrder(_ context.Context, o model.PendingOrder, expected model.PendingOrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.pending[o.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != expected {
		return ErrStatusConflict
	}
	s.pending[o.ID] = o
	return nil
}

// sortBySubmission orders by submission time, breaking ties with insertion
// sequence so FIFO holds for orders queued in the same instant.
func (s *MemoryStore) sortBySubmission(orders []model.PendingOrder) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].SubmittedAt.Equal(orders[j].SubmittedAt) {
			return orders[i].SubmittedAt.Before(orders[j].SubmittedAt)
		}
		return s.pendingSeq[orders[i].ID] < s.pendingSeq[orders[j].ID]
	})
}
