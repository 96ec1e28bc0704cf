package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type StoreBackend string

const (
	MemoryBackend   StoreBackend = "memory"
	PostgresBackend StoreBackend = "postgres"
	SQLiteBackend   StoreBackend = "sqlite"
)

type ServerConfig struct {
	Port              string        `yaml:"port"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type StoreConfig struct {
	Backend    StoreBackend `yaml:"backend"`
	SQLitePath string       `yaml:"sqlite_path"`
}

// OracleConfig configures the price source. When Address is empty the engine
// runs against a static in-memory price table (Prices), which is the sandbox
// setup.
type OracleConfig struct {
	Address            string             `yaml:"address"`
	Timeout            time.Duration      `yaml:"timeout"`
	RateLimitPerMinute int                `yaml:"rate_limit_per_minute"`
	Prices             map[string]float64 `yaml:"prices"`
}

// SessionConfig is a daily trading window in a venue's local time.
type SessionConfig struct {
	Open     string   `yaml:"open"`
	Close    string   `yaml:"close"`
	Timezone string   `yaml:"timezone"`
	Weekdays []string `yaml:"weekdays"`
}

type MarketConfig struct {
	Sessions map[string]SessionConfig `yaml:"sessions"`
}

type EngineConfig struct {
	InstrumentClass string        `yaml:"instrument_class"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	LockWaitTimeout time.Duration `yaml:"lock_wait_timeout"`
	OpeningCash     float64       `yaml:"opening_cash"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Oracle OracleConfig `yaml:"oracle"`
	Market MarketConfig `yaml:"market"`
	Engine EngineConfig `yaml:"engine"`
}

const (
	_portDefault              = "8080"
	_readHeaderTimeoutDefault = 10 * time.Second
	_sqlitePathDefault        = "./tradesim.db"
	_oracleTimeoutDefault     = 5 * time.Second
	_oracleRateLimitDefault   = 300
	_sweepIntervalDefault     = 1 * time.Minute
	_lockWaitTimeoutDefault   = 3 * time.Second
	_openingCashDefault       = 10000
	_instrumentClassDefault   = "equity"
)

func (c *Config) ValidateAndSetup() error {
	if c.Server.Port == "" {
		c.Server.Port = _portDefault
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = _readHeaderTimeoutDefault
	}

	switch c.Store.Backend {
	case MemoryBackend, PostgresBackend, SQLiteBackend:
	case "":
		c.Store.Backend = MemoryBackend
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}
	if c.Store.Backend == SQLiteBackend && c.Store.SQLitePath == "" {
		c.Store.SQLitePath = _sqlitePathDefault
	}

	if c.Oracle.Timeout <= 0 {
		c.Oracle.Timeout = _oracleTimeoutDefault
	}
	if c.Oracle.RateLimitPerMinute <= 0 {
		c.Oracle.RateLimitPerMinute = _oracleRateLimitDefault
	}
	if c.Oracle.Address == "" && len(c.Oracle.Prices) == 0 {
		return fmt.Errorf("oracle needs an address or a static price table")
	}

	if len(c.Market.Sessions) == 0 {
		return fmt.Errorf("empty market sessions")
	}
	for class, s := range c.Market.Sessions {
		if s.Open == "" || s.Close == "" {
			return fmt.Errorf("market session %s needs open and close times", class)
		}
	}

	if c.Engine.InstrumentClass == "" {
		c.Engine.InstrumentClass = _instrumentClassDefault
	}
	if _, ok := c.Market.Sessions[c.Engine.InstrumentClass]; !ok {
		return fmt.Errorf("no market session for instrument class %s", c.Engine.InstrumentClass)
	}
	if c.Engine.SweepInterval <= 0 {
		c.Engine.SweepInterval = _sweepIntervalDefault
	}
	if c.Engine.LockWaitTimeout <= 0 {
		c.Engine.LockWaitTimeout = _lockWaitTimeoutDefault
	}
	if c.Engine.OpeningCash <= 0 {
		c.Engine.OpeningCash = _openingCashDefault
	}

	return nil
}

func LoadConfig(filename string) (Config, error) {
	var cfg Config
	input, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("%w: can't read file", err)
	}

	if err := yaml.Unmarshal(input, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: can't unmarshal config", err)
	}

	if err := cfg.ValidateAndSetup(); err != nil {
		return cfg, fmt.Errorf("%w: can't setup cfg", err)
	}

	return cfg, nil
}
