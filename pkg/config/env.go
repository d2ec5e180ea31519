package config

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// applyEnvOverrides layers ENGINE_* environment variables over a config
// already populated from YAML defaults, using the same field names the
// run_cycle action parameters use (minus the ENGINE_ prefix and case).
func applyEnvOverrides(c *Config) {
	setDecimal("ENGINE_ORDER_SIZE", &c.OrderSize)
	setInt("ENGINE_BASE_SPREAD_BPS", &c.BaseSpreadBps)
	setInt("ENGINE_INTERVAL_SECONDS", &c.IntervalSeconds)
	setInt("ENGINE_MAX_MARKETS", &c.MaxMarkets)
	setDecimal("ENGINE_MAX_POSITION", &c.MaxPosition)
	setFloat("ENGINE_MIN_SPONSOR_POOL", &c.MinSponsorPool)
	setFloat("ENGINE_MIN_LIQUIDITY_DEPTH", &c.MinLiquidityDepth)
	setFloat("ENGINE_MIN_VOLUME_24H", &c.MinVolume24h)
	setDecimal("ENGINE_TOTAL_CAPITAL", &c.TotalCapital)
	setBool("ENGINE_PAPER", &c.Paper)
	setBool("ENGINE_EXTERNAL_ORACLE", &c.ExternalOracle)
	setBool("ENGINE_AGGRESSIVE_SHORT_TERM", &c.AggressiveShortTerm)

	setStr("ENGINE_PRIVATE_SIGNER_KEY", &c.Venue.PrivateSignerKey)
	setStr("ENGINE_FUNDER_ADDRESS", &c.Venue.FunderAddress)
	setInt("ENGINE_SIGNATURE_TYPE", &c.Venue.SignatureType)
	setStr("ENGINE_CATALOG_URL", &c.Venue.CatalogURL)
	setStr("ENGINE_CLOB_URL", &c.Venue.ClobURL)
	setStr("ENGINE_REWARDS_URL", &c.Venue.RewardsURL)
	setStr("ENGINE_STORE_DSN", &c.Store.DSN)
	setStr("ENGINE_CACHE_DIR", &c.Store.CacheDir)
	setStr("ENGINE_LOG_LEVEL", &c.LogLevel)
	setStr("ENGINE_LOG_FILE", &c.LogFile)
	setStr("ENGINE_LISTEN_ADDR", &c.ListenAddr)
}

func setStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDecimal(key string, dst *decimal.Decimal) {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			*dst = d
		}
	}
}
