package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/Anassarwar14/tradesim/internal/api"
	"github.com/Anassarwar14/tradesim/internal/config"
	"github.com/Anassarwar14/tradesim/internal/engine"
	"github.com/Anassarwar14/tradesim/internal/logger"
	"github.com/Anassarwar14/tradesim/internal/marketclock"
	"github.com/Anassarwar14/tradesim/internal/oracle"
	"github.com/Anassarwar14/tradesim/internal/postgres"
	"github.com/Anassarwar14/tradesim/internal/server"
	"github.com/Anassarwar14/tradesim/internal/store"
)

const _cfgFilePath = "./configs/engine.yaml"

func main() {
	zapLogger, loggerSync, err := logger.NewZapLogger(logger.Debug)
	if err != nil {
		log.Fatalf("%s: can't init logger", err)
	}
	defer loggerSync()

	if err := godotenv.Load(); err != nil {
		zapLogger.Warnf("can't detect .env file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig(_cfgFilePath)
	if err != nil {
		zapLogger.Fatalf("%s: can't load engine cfg", err)
	}

	st, closeStore, err := newStore(ctx, cfg.Store, zapLogger)
	if err != nil {
		zapLogger.Fatalf("%s: can't init store", err)
	}
	defer closeStore()

	clock, err := marketclock.New(cfg.Market)
	if err != nil {
		zapLogger.Fatalf("%s: can't init market clock", err)
	}

	priceOracle := newOracle(cfg.Oracle, zapLogger)

	eng := engine.NewEngine(st, priceOracle, clock, cfg.Engine, zapLogger)
	valuator := engine.NewValuator(st, priceOracle)

	go eng.RunSweeper(ctx, cfg.Engine.SweepInterval)

	apiServer := api.NewServer(eng, valuator, decimal.NewFromFloat(cfg.Engine.OpeningCash), zapLogger)
	httpServer := server.NewHTTPServer(ctx, cfg.Server.Port, cfg.Server.ReadHeaderTimeout, apiServer.Handler())

	zapLogger.Infof("trading engine listening on :%s, store backend %s", cfg.Server.Port, cfg.Store.Backend)
	if err := httpServer.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zapLogger.Errorf("%s: server stopped", err)
	}
}

func newStore(ctx context.Context, cfg config.StoreConfig, logger logger.Logger) (store.Store, func(), error) {
	switch cfg.Backend {
	case config.MemoryBackend:
		return store.NewMemoryStore(), func() {}, nil
	case config.PostgresBackend:
		db, err := postgres.NewDB(postgres.NewConfigFromEnv().Setup())
		if err != nil {
			return nil, nil, fmt.Errorf("%w: can't connect to postgres", err)
		}
		s := store.NewSQLStore(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, func() { db.Close() }, nil
	case config.SQLiteBackend:
		db, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: can't open sqlite at %s", err, cfg.SQLitePath)
		}
		s := store.NewSQLStore(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return s, func() { db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}

func newOracle(cfg config.OracleConfig, logger logger.Logger) oracle.PriceOracle {
	if cfg.Address != "" {
		return oracle.NewHTTPOracle(cfg, logger)
	}
	logger.Warnf("no oracle address configured, serving prices from the static table")
	return oracle.NewStaticOracle(cfg.Prices)
}
