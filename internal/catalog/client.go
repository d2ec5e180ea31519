// Package catalog fetches the top-N active markets from the market
// catalog, looks up sponsor reward pools through a layered fallback, and
// classifies each market into a keyword-driven category.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/clobmm/engine/pkg/cache"
	"github.com/clobmm/engine/pkg/ratelimit"
)

// Row is one catalog entry as returned by the markets listing endpoint.
type Row struct {
	ConditionID  string  `json:"conditionId"`
	Question     string  `json:"question"`
	Slug         string  `json:"slug"`
	ClobTokenIDs string  `json:"clobTokenIds"`
	Category     string  `json:"category"`
	Volume24hr   float64 `json:"volume24hr"`
	// RewardsMinSize and friends are the catalog-row-embedded sponsor pool
	// fields; field names vary across catalog revisions, so every
	// plausible shape is represented and SponsorPoolFromRow picks the
	// first positive value.
	RewardsDailyRate float64 `json:"rewardsDailyRate"`
	RewardsMinSize   float64 `json:"rewardsMinSize"`
}

// SponsorPoolFromRow extracts a catalog-embedded sponsor pool value, or 0
// if the row carries none.
func (r Row) SponsorPoolFromRow() float64 {
	if r.RewardsDailyRate > 0 {
		return r.RewardsDailyRate
	}
	if r.RewardsMinSize > 0 {
		return r.RewardsMinSize
	}
	return 0
}

// Client is a rate-limited, retrying HTTP client over the market catalog
// and rewards APIs.
type Client struct {
	http       *resty.Client
	limiter    *ratelimit.Manager
	catalogURL string
	rewardsURL string

	sponsorCache  *cache.SponsorPoolCache
	categoryCache *cache.CategoryCache
}

func New(catalogURL, rewardsURL string, limiter *ratelimit.Manager) *Client {
	http := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(6 * time.Second)

	return &Client{http: http, limiter: limiter, catalogURL: catalogURL, rewardsURL: rewardsURL}
}

// WithCache attaches a Badger-backed TTL cache for sponsor/category lookups
// so the layered /rewards fallback isn't repeated every cycle for markets
// that keep re-qualifying. Safe to leave unset; every lookup method falls
// back to a live fetch when no cache is attached.
func (c *Client) WithCache(store *cache.Store, sponsorTTL, categoryTTL time.Duration) *Client {
	c.sponsorCache = cache.NewSponsorPoolCache(store, sponsorTTL)
	c.categoryCache = cache.NewCategoryCache(store, categoryTTL)
	return c
}

// TopMarkets fetches up to limit markets ordered by 24h volume descending.
// If the ordered request fails, it retries once without the ordering
// parameter.
func (c *Client) TopMarkets(ctx context.Context, limit int) ([]Row, error) {
	if err := c.limiter.Wait(ctx, "catalog:markets"); err != nil {
		return nil, err
	}

	rows, err := c.fetchMarkets(ctx, limit, true)
	if err != nil {
		rows, err = c.fetchMarkets(ctx, limit, false)
		if err != nil {
			return nil, fmt.Errorf("fetch catalog markets: %w", err)
		}
	}
	return rows, nil
}

func (c *Client) fetchMarkets(ctx context.Context, limit int, ordered bool) ([]Row, error) {
	req := c.http.R().SetContext(ctx).
		SetQueryParam("limit", fmt.Sprintf("%d", limit)).
		SetQueryParam("active", "true").
		SetQueryParam("closed", "false")

	if ordered {
		req = req.SetQueryParam("order", "volume24hr").SetQueryParam("ascending", "false")
	}

	var rows []Row
	resp, err := req.SetResult(&rows).Get(c.catalogURL + "/markets")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("catalog markets returned %s", resp.Status())
	}
	return rows, nil
}
