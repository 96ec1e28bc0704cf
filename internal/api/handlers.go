package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/Anassarwar14/tradesim/internal/engine"
	"github.com/Anassarwar14/tradesim/internal/logger"
	"github.com/Anassarwar14/tradesim/internal/model"
	"github.com/Anassarwar14/tradesim/internal/oracle"
)

const _maxBodyBytes = 1 << 20

// Server exposes the engine's operations over HTTP. It is a thin layer: all
// validation beyond request shape lives in the engine.
type Server struct {
	engine      *engine.Engine
	valuator    *engine.Valuator
	openingCash decimal.Decimal
	logger      logger.Logger
	router      *mux.Router
}

func NewServer(e *engine.Engine, v *engine.Valuator, openingCash decimal.Decimal, logger logger.Logger) *Server {
	s := &Server{
		engine:      e,
		valuator:    v,
		openingCash: openingCash,
		logger:      logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/portfolios", s.handleCreatePortfolio).Methods(http.MethodPost)
	r.HandleFunc("/api/portfolios/{id}", s.handleGetPortfolio).Methods(http.MethodGet)
	r.HandleFunc("/api/portfolios/{id}/orders", s.handleSubmitOrder).Methods(http.MethodPost)
	r.HandleFunc("/api/portfolios/{id}/orders/pending", s.handleListPendingOrders).Methods(http.MethodGet)
	r.HandleFunc("/api/portfolios/{id}/transactions", s.handleListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/api/portfolios/{id}/valuation", s.handleValuation).Methods(http.MethodGet)
	r.HandleFunc("/api/orders/pending/{id}", s.handleCancelPendingOrder).Methods(http.MethodDelete)
	r.HandleFunc("/api/orders/sweep", s.handleSweep).Methods(http.MethodPost)
	s.router = r

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string           `json:"userId"`
		OpeningCash *decimal.Decimal `json:"openingCash"`
	}
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("userId is required"))
		return
	}

	cash := s.openingCash
	if req.OpeningCash != nil {
		cash = *req.OpeningCash
	}

	p, err := s.engine.CreatePortfolio(r.Context(), req.UserID, cash)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.GetPortfolio(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Symbol   string          `json:"symbol"`
		Side     model.Side      `json:"side"`
		Quantity decimal.Decimal `json:"quantity"`
	}
	if err := s.readJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.engine.SubmitOrder(r.Context(), mux.Vars(r)["id"], req.Symbol, req.Side, req.Quantity)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	status := http.StatusOK
	if res.Pending {
		status = http.StatusAccepted
	}
	s.writeJSON(w, status, res)
}

func (s *Server) handleListPendingOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.engine.ListPendingOrders(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := s.engine.ListTransactions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) handleValuation(w http.ResponseWriter, r *http.Request) {
	val, err := s.valuator.Value(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, val)
}

func (s *Server) handleCancelPendingOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.engine.CancelPendingOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Sweep(r.Context(), time.Now())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) readJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, _maxBodyBytes))
	if err != nil {
		return err
	}
	return sonic.Unmarshal(body, v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		s.logger.Errorf("%s: can't marshal response", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		s.logger.Errorf("%s: can't write response", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses:
// validation and business-rule rejections are 4xx, an unavailable price
// source is 502, contention is 409.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidQuantity),
		errors.Is(err, engine.ErrInvalidSide),
		errors.Is(err, oracle.ErrUnknownSymbol):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, engine.ErrPortfolioNotFound),
		errors.Is(err, engine.ErrOrderNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, engine.ErrInsufficientFunds),
		errors.Is(err, engine.ErrInsufficientShares):
		s.writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, engine.ErrNotCancellable),
		errors.Is(err, engine.ErrConcurrentModification):
		s.writeError(w, http.StatusConflict, err)
	case errors.Is(err, oracle.ErrPriceUnavailable):
		s.writeError(w, http.StatusBadGateway, err)
	default:
		s.logger.Errorf("%s: unhandled engine error", err)
		s.writeError(w, http.StatusInternalServerError, err)
	}
}
