package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/clobmm/engine/internal/domain"
)

// rewardsShape is the union of field names observed across catalog/rewards
// revisions. Accept the first positive value found, regardless of which
// field carried it.
type rewardsShape struct {
	ConditionID string  `json:"conditionId"`
	TokenID     string  `json:"token_id"`
	Amount      float64 `json:"amount"`
	Size        float64 `json:"size"`
	MinSize     float64 `json:"min_size"`
	DailyRate   float64 `json:"rewards_daily_rate"`
	MaxSpreadBp float64 `json:"max_spread_bps"`
}

func (r rewardsShape) positiveValue() float64 {
	for _, v := range []float64{r.Amount, r.Size, r.MinSize, r.DailyRate} {
		if v > 0 {
			return v
		}
	}
	return 0
}

// forceSponsorKeywords is the small set of well-known high-value market
// titles that force a nominal sponsor pool even when the rewards API is
// silent about them.
var forceSponsorKeywords = []string{
	"presidential election",
	"super bowl",
	"fed rate",
	"world cup",
}

const forceSponsorNominalPool = 50.0

// SponsorLookup fetches the sponsor pool for a candidate using the layered
// lookup: catalog row, then /rewards?conditionId, then
// /rewards?token_id, then a scan of /rewards/markets, then the keyword
// fallback. Every path is tagged for observability.
func (c *Client) SponsorLookup(ctx context.Context, row Row, tokenID, title string) (float64, domain.SponsorMethod, error) {
	if c.sponsorCache != nil {
		if cached, ok := c.sponsorCache.Get(row.ConditionID); ok {
			return cached.InexactFloat64(), domain.SponsorMethodCached, nil
		}
	}

	v, method, err := c.sponsorLookupUncached(ctx, row, tokenID, title)
	if err == nil && v > 0 && c.sponsorCache != nil {
		c.sponsorCache.Set(row.ConditionID, decimal.NewFromFloat(v))
	}
	return v, method, err
}

func (c *Client) sponsorLookupUncached(ctx context.Context, row Row, tokenID, title string) (float64, domain.SponsorMethod, error) {
	if v := row.SponsorPoolFromRow(); v > 0 {
		return v, domain.SponsorMethodCatalog, nil
	}

	if v, err := c.rewardsByConditionID(ctx, row.ConditionID); err == nil && v > 0 {
		return v, domain.SponsorMethodByMarket, nil
	}

	if v, err := c.rewardsByTokenID(ctx, tokenID); err == nil && v > 0 {
		return v, domain.SponsorMethodByToken, nil
	}

	if v, err := c.rewardsScan(ctx, row.ConditionID, tokenID); err == nil && v > 0 {
		return v, domain.SponsorMethodScan, nil
	}

	lowerTitle := strings.ToLower(title)
	for _, kw := range forceSponsorKeywords {
		if strings.Contains(lowerTitle, kw) {
			return forceSponsorNominalPool, domain.SponsorMethodKeyword, nil
		}
	}

	return 0, domain.SponsorMethodNone, nil
}

func (c *Client) rewardsByConditionID(ctx context.Context, conditionID string) (float64, error) {
	if conditionID == "" {
		return 0, nil
	}
	if err := c.limiter.Wait(ctx, "rewards:lookup"); err != nil {
		return 0, err
	}
	var row rewardsShape
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("conditionId", conditionID).
		SetResult(&row).Get(c.rewardsURL)
	if err != nil || resp.IsError() {
		return 0, fmt.Errorf("rewards by condition id failed")
	}
	return row.positiveValue(), nil
}

func (c *Client) rewardsByTokenID(ctx context.Context, tokenID string) (float64, error) {
	if tokenID == "" {
		return 0, nil
	}
	if err := c.limiter.Wait(ctx, "rewards:lookup"); err != nil {
		return 0, err
	}
	var row rewardsShape
	resp, err := c.http.R().SetContext(ctx).
		SetQueryParam("token_id", tokenID).
		SetResult(&row).Get(c.rewardsURL)
	if err != nil || resp.IsError() {
		return 0, fmt.Errorf("rewards by token id failed")
	}
	return row.positiveValue(), nil
}

func (c *Client) rewardsScan(ctx context.Context, conditionID, tokenID string) (float64, error) {
	if err := c.limiter.Wait(ctx, "rewards:lookup"); err != nil {
		return 0, err
	}
	var rows []rewardsShape
	resp, err := c.http.R().SetContext(ctx).SetResult(&rows).Get(c.rewardsURL + "/markets")
	if err != nil || resp.IsError() {
		return 0, fmt.Errorf("rewards scan failed")
	}
	for _, row := range rows {
		if row.ConditionID == conditionID || row.TokenID == tokenID {
			return row.positiveValue(), nil
		}
	}
	return 0, nil
}
