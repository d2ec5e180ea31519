package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clobmm/engine/internal/domain"
)

// Keyword tables are data, not code: three disjoint lists,
// matched case-insensitively as substrings of the market title.
var (
	tier1Keywords = []string{
		"presidential election winner",
		"fed rate decision",
		"super bowl winner",
	}

	tier2Keywords = []string{
		"fed", "inflation", "cpi", "gdp", "jobs report", // macro
		"btc", "eth", "bitcoin", "ethereum", "solana", "crypto", // crypto
		"nfl", "nba", "mlb", "premier league", "world cup", "ufc", // sports
	}

	negativeKeywords = []string{
		"by 2030", "by 2035", "by 2050", "will ai", "end of century",
	}
)

const (
	categoryBonusSponsored = 300.0
	categoryBonusTier2     = 150.0
	negativePenalty        = -400.0
)

// Classify applies the three keyword lists and the sponsor-pool bonus rule
// Tier-1 absolute priorities first, negative long-horizon names
// names next (mutually exclusive with everything else), then Tier-2
// macro/crypto/sports, then the sponsor-pool upgrade.
func Classify(title string, sponsorPool float64) (bonus float64, category domain.Category, tier1 bool) {
	lower := strings.ToLower(title)

	for _, kw := range tier1Keywords {
		if strings.Contains(lower, kw) {
			tier1 = true
			category = domain.CategoryTier1
			bonus = categoryBonusTier2
			break
		}
	}

	for _, kw := range negativeKeywords {
		if strings.Contains(lower, kw) {
			return negativePenalty, domain.CategoryLongTerm, tier1
		}
	}

	if category == "" {
		category = domain.CategoryOther
		for _, kw := range tier2Keywords {
			if strings.Contains(lower, kw) {
				category = categoryForKeyword(kw)
				bonus = categoryBonusTier2
				break
			}
		}
	}

	if sponsorPool > 0 {
		bonus += categoryBonusSponsored
		if category == domain.CategoryOther {
			category = domain.CategorySponsored
		}
	}

	return bonus, category, tier1
}

// ClassifyCached wraps Classify with the client's Badger category cache,
// keyed by condition id: classification only changes if the market's
// sponsor pool crosses zero, so a cache hit skips the keyword-table scan
// entirely for markets that keep re-qualifying cycle after cycle.
func (c *Client) ClassifyCached(conditionID, title string, sponsorPool float64) (float64, domain.Category, bool) {
	if c.categoryCache != nil {
		if raw, ok := c.categoryCache.Get(conditionID); ok {
			if bonus, category, tier1, ok := decodeClassification(raw); ok {
				return bonus, category, tier1
			}
		}
	}

	bonus, category, tier1 := Classify(title, sponsorPool)
	if c.categoryCache != nil {
		c.categoryCache.Set(conditionID, encodeClassification(bonus, category, tier1))
	}
	return bonus, category, tier1
}

func encodeClassification(bonus float64, category domain.Category, tier1 bool) string {
	return fmt.Sprintf("%v|%s|%v", bonus, category, tier1)
}

func decodeClassification(raw string) (float64, domain.Category, bool, bool) {
	parts := strings.SplitN(raw, "|", 3)
	if len(parts) != 3 {
		return 0, "", false, false
	}
	bonus, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, "", false, false
	}
	tier1, err := strconv.ParseBool(parts[2])
	if err != nil {
		return 0, "", false, false
	}
	return bonus, domain.Category(parts[1]), tier1, true
}

func categoryForKeyword(kw string) domain.Category {
	switch kw {
	case "fed", "inflation", "cpi", "gdp", "jobs report":
		return domain.CategoryMacro
	case "btc", "eth", "bitcoin", "ethereum", "solana", "crypto":
		return domain.CategoryCrypto
	default:
		return domain.CategorySports
	}
}
