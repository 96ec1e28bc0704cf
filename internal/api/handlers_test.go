package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"

	"github.com/Anassarwar14/tradesim/internal/config"
	"github.com/Anassarwar14/tradesim/internal/engine"
	"github.com/Anassarwar14/tradesim/internal/logger"
	"github.com/Anassarwar14/tradesim/internal/marketclock"
	"github.com/Anassarwar14/tradesim/internal/model"
	"github.com/Anassarwar14/tradesim/internal/oracle"
	"github.com/Anassarwar14/tradesim/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	clock, err := marketclock.New(config.MarketConfig{
		Sessions: map[string]config.SessionConfig{
			"equity": {Open: "00:00", Close: "23:59", Weekdays: []string{
				"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
			}},
		},
	})
	if err != nil {
		t.Fatalf("can't build clock: %s", err)
	}

	s := store.NewMemoryStore()
	o := oracle.NewStaticOracle(map[string]float64{"AAPL": 100})
	e := engine.NewEngine(s, o, clock, config.EngineConfig{
		InstrumentClass: "equity",
		LockWaitTimeout: time.Second,
	}, logger.NewNopLogger())

	srv := httptest.NewServer(NewServer(e, engine.NewValuator(s, o), decimal.NewFromInt(10000), logger.NewNopLogger()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		raw, err := sonic.Marshal(body)
		if err != nil {
			t.Fatalf("can't marshal request: %s", err)
		}
		buf.Write(raw)
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("can't build request: %s", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %s", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("can't decode response: %s", err)
		}
	}
	return resp.StatusCode
}

func createPortfolio(t *testing.T, srv *httptest.Server) model.Portfolio {
	t.Helper()
	var p model.Portfolio
	code := doJSON(t, http.MethodPost, srv.URL+"/api/portfolios", map[string]string{"userId": "user-1"}, &p)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	return p
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/health", nil, &body); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestCreateAndGetPortfolio(t *testing.T) {
	srv := newTestServer(t)
	p := createPortfolio(t, srv)

	if p.ID == "" || !p.CashBalance.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("unexpected portfolio: %+v", p)
	}

	var got model.Portfolio
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/portfolios/"+p.ID, nil, &got); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if got.ID != p.ID {
		t.Fatalf("expected portfolio %s, got %s", p.ID, got.ID)
	}

	if code := doJSON(t, http.MethodGet, srv.URL+"/api/portfolios/no-such", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestCreatePortfolioValidation(t *testing.T) {
	srv := newTestServer(t)

	code := doJSON(t, http.MethodPost, srv.URL+"/api/portfolios", map[string]string{}, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing userId, got %d", code)
	}
}

func TestSubmitOrderFlow(t *testing.T) {
	srv := newTestServer(t)
	p := createPortfolio(t, srv)

	var res model.ExecutionResult
	code := doJSON(t, http.MethodPost, srv.URL+"/api/portfolios/"+p.ID+"/orders", map[string]any{
		"symbol":   "AAPL",
		"side":     "BUY",
		"quantity": "10",
	}, &res)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if res.Pending || res.Transaction == nil {
		t.Fatalf("expected an immediate execution, got %+v", res)
	}

	var transactions []model.Transaction
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/portfolios/"+p.ID+"/transactions", nil, &transactions); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(transactions))
	}

	var val model.Valuation
	if code := doJSON(t, http.MethodGet, srv.URL+"/api/portfolios/"+p.ID+"/valuation", nil, &val); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	// Static price, so total value still equals the opening cash.
	if !val.TotalValue.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("expected total 10000, got %s", val.TotalValue)
	}
}

func TestSubmitOrderErrors(t *testing.T) {
	srv := newTestServer(t)
	p := createPortfolio(t, srv)

	cases := []struct {
		name string
		body map[string]any
		want int
	}{
		{"bad side", map[string]any{"symbol": "AAPL", "side": "HOLD", "quantity": "1"}, http.StatusBadRequest},
		{"zero quantity", map[string]any{"symbol": "AAPL", "side": "BUY", "quantity": "0"}, http.StatusBadRequest},
		{"unknown symbol", map[string]any{"symbol": "NOPE", "side": "BUY", "quantity": "1"}, http.StatusBadRequest},
		{"insufficient funds", map[string]any{"symbol": "AAPL", "side": "BUY", "quantity": "1000"}, http.StatusUnprocessableEntity},
		{"insufficient shares", map[string]any{"symbol": "AAPL", "side": "SELL", "quantity": "1"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		if code := doJSON(t, http.MethodPost, srv.URL+"/api/portfolios/"+p.ID+"/orders", tc.body, nil); code != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, code)
		}
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	srv := newTestServer(t)

	if code := doJSON(t, http.MethodDelete, srv.URL+"/api/orders/pending/no-such", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestSweepEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var res model.SweepResult
	if code := doJSON(t, http.MethodPost, srv.URL+"/api/orders/sweep", nil, &res); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if res.Processed != 0 {
		t.Fatalf("expected an empty sweep, got %d processed", res.Processed)
	}
}
