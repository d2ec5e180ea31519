// Package config loads and validates engine configuration from a YAML file,
// overridden by environment variables, and (for the headless control API)
// by per-request parameters — all three surfaces recognize identical names.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the process-wide input the cycle driver reads every cycle. It
// may be changed between cycles (via run_cycle parameters or a config
// reload), never mid-cycle.
type Config struct {
	OrderSize            decimal.Decimal `yaml:"order_size" json:"orderSize"`
	BaseSpreadBps        int             `yaml:"base_spread_bps" json:"baseSpreadBps"`
	IntervalSeconds       int             `yaml:"interval_seconds" json:"intervalSeconds"`
	MaxMarkets           int             `yaml:"max_markets" json:"maxMarkets"`
	MaxPosition          decimal.Decimal `yaml:"max_position" json:"maxPosition"`
	MinSponsorPool       float64         `yaml:"min_sponsor_pool" json:"minSponsorPool"`
	MinLiquidityDepth    float64         `yaml:"min_liquidity_depth" json:"minLiquidityDepth"`
	MinVolume24h         float64         `yaml:"min_volume_24h" json:"minVolume24h"`
	TotalCapital         decimal.Decimal `yaml:"total_capital" json:"totalCapital"`
	Paper                bool            `yaml:"paper" json:"paper"`
	ExternalOracle       bool            `yaml:"external_oracle" json:"externalOracle"`
	AggressiveShortTerm  bool            `yaml:"aggressive_short_term" json:"aggressiveShortTerm"`

	Venue VenueConfig `yaml:"venue" json:"-"`
	Store StoreConfig `yaml:"store" json:"-"`

	LogLevel  string `yaml:"log_level" json:"-"`
	LogFile   string `yaml:"log_file" json:"-"`
	ListenAddr string `yaml:"listen_addr" json:"-"`
}

// VenueConfig carries the exchange signing credentials. The signing client
// itself is an external collaborator; this is only the material it needs.
type VenueConfig struct {
	PrivateSignerKey string `yaml:"private_signer_key"`
	FunderAddress    string `yaml:"funder_address"`
	SignatureType    int    `yaml:"signature_type"`
	CatalogURL       string `yaml:"catalog_url"`
	ClobURL          string `yaml:"clob_url"`
	RewardsURL       string `yaml:"rewards_url"`
}

// StoreConfig points at the persistent relational store and the embedded
// lookup cache.
type StoreConfig struct {
	DSN      string `yaml:"dsn"`
	CacheDir string `yaml:"cache_dir"`
}

func Default() Config {
	return Config{
		OrderSize:           decimal.NewFromFloat(5),
		BaseSpreadBps:       22,
		IntervalSeconds:     30,
		MaxMarkets:          15,
		MaxPosition:         decimal.NewFromFloat(30),
		MinSponsorPool:      0,
		MinLiquidityDepth:   80,
		MinVolume24h:        1000,
		TotalCapital:        decimal.NewFromFloat(1000),
		Paper:               true,
		ExternalOracle:      false,
		AggressiveShortTerm: false,
		LogLevel:            "info",
		LogFile:             "logs/engine.log",
		ListenAddr:          ":8080",
		Store:               StoreConfig{DSN: "engine.db", CacheDir: "data/cache.badger"},
		Venue: VenueConfig{
			CatalogURL: "https://gamma-api.polymarket.com",
			ClobURL:    "https://clob.polymarket.com",
			RewardsURL: "https://polymarket.com/api/rewards",
		},
	}
}

// Load reads a YAML file (if present), applies .env + environment variable
// overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	_ = godotenv.Load()
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate enforces the data-model invariants of the configuration: order
// size and max position are capped relative to total capital, never left
// to runaway values pulled from an untrusted source.
func (c *Config) Validate() error {
	if c.TotalCapital.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("total_capital must be positive")
	}
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("interval_seconds must be positive")
	}
	if c.Venue.PrivateSignerKey == "" && !c.Paper {
		return fmt.Errorf("private_signer_key is required in live mode")
	}

	maxOrderSize := c.TotalCapital.Mul(decimal.NewFromFloat(0.08)).Floor()
	if maxOrderSize.LessThan(decimal.NewFromInt(1)) {
		maxOrderSize = decimal.NewFromInt(1)
	}
	if c.OrderSize.GreaterThan(maxOrderSize) {
		c.OrderSize = maxOrderSize
	}

	maxPositionCap := c.TotalCapital.Mul(decimal.NewFromFloat(0.48)).Floor()
	if c.MaxPosition.GreaterThan(maxPositionCap) {
		c.MaxPosition = maxPositionCap
	}

	if c.MaxMarkets <= 0 {
		c.MaxMarkets = 15
	}
	return nil
}
