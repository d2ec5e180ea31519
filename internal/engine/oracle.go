package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// cryptoOracleSymbols maps a title keyword to the public spot ticker symbol
// used to fetch a reference price for observability. Matching is
// case-insensitive substring, same convention as the category keyword
// tables.
var cryptoOracleSymbols = map[string]string{
	"bitcoin":  "BTCUSDT",
	"btc":      "BTCUSDT",
	"ethereum": "ETHUSDT",
	"eth":      "ETHUSDT",
	"solana":   "SOLUSDT",
}

// Oracle fetches a reference spot price from a public exchange ticker,
// purely for observability alongside the book-derived mid. Per spec.md
// §4.8/§9, it never overrides the quoting mid — that remains an open
// question the implementation deliberately does not resolve.
type Oracle struct {
	http *resty.Client
	base string
}

func NewOracle(base string) *Oracle {
	if base == "" {
		base = "https://api.binance.com"
	}
	return &Oracle{http: resty.New().SetTimeout(10 * time.Second), base: base}
}

// SymbolFor returns the ticker symbol a market title maps to, or "" if the
// title matches no known crypto keyword.
func SymbolFor(title string) string {
	lower := strings.ToLower(title)
	for kw, symbol := range cryptoOracleSymbols {
		if strings.Contains(lower, kw) {
			return symbol
		}
	}
	return ""
}

type tickerResponse struct {
	Price string `json:"price"`
}

// SpotPrice fetches the current reference spot for the given ticker
// symbol. Errors are logged and swallowed by the caller: this signal is
// advisory only and must never fail a cycle.
func (o *Oracle) SpotPrice(ctx context.Context, symbol string) (float64, error) {
	var resp tickerResponse
	r, err := o.http.R().SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&resp).
		Get(o.base + "/api/v3/ticker/price")
	if err != nil {
		return 0, fmt.Errorf("oracle: fetch %s: %w", symbol, err)
	}
	if r.IsError() {
		return 0, fmt.Errorf("oracle: %s returned %s", symbol, r.Status())
	}
	return strconv.ParseFloat(resp.Price, 64)
}

// LogReference fetches and logs the oracle spot alongside the book mid for
// one candidate, if its title matches a known crypto keyword. Failures are
// logged at info level and never propagate.
func LogReference(ctx context.Context, oracle *Oracle, title string, bookMid float64) {
	symbol := SymbolFor(title)
	if symbol == "" {
		return
	}
	spot, err := oracle.SpotPrice(ctx, symbol)
	if err != nil {
		logrus.WithError(err).WithField("symbol", symbol).Info("engine: oracle lookup failed, continuing with book mid")
		return
	}
	logrus.WithFields(logrus.Fields{
		"symbol": symbol, "oracle_spot": spot, "book_mid": bookMid,
	}).Info("engine: oracle reference (advisory only, not used in quoting)")
}
