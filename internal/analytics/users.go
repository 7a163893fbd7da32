package analytics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/shopspring/decimal"
)

// JoinMode selects how trades without a matching profile are treated.
type JoinMode string

const (
	// JoinInner drops trades whose user has no latest profile.
	JoinInner JoinMode = "inner"
	// JoinLeft keeps them, with empty profile attributes.
	JoinLeft JoinMode = "left"
)

// ParseJoinMode accepts "inner", "left" or empty (inner).
func ParseJoinMode(s string) (JoinMode, error) {
	switch JoinMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", JoinInner:
		return JoinInner, nil
	case JoinLeft:
		return JoinLeft, nil
	default:
		return "", fmt.Errorf("invalid join mode %q (want inner|left)", s)
	}
}

type userAcc struct {
	summary       models.UserSummary
	notionalCount int64
	symbols       map[string]struct{}
}

// UserTradingSummary joins completed trades to the latest profiles on user
// id and summarizes each user.
//
// TotalVolume is the summed notional; AvgTradeSize is that sum divided by
// the number of trades. Rows are ordered by total volume descending, ties
// by user id. limit <= 0 returns every row.
func UserTradingSummary(trades []models.CleanTrade, profiles []models.UserProfile, mode JoinMode, limit int) []models.UserSummary {
	byID := make(map[string]models.UserProfile, len(profiles))
	for _, p := range profiles {
		byID[p.UserID] = p
	}

	users := make(map[string]*userAcc)
	for _, t := range trades {
		if !t.IsCompleted || t.UserID == "" {
			continue
		}
		p, hasProfile := byID[t.UserID]
		if !hasProfile && mode != JoinLeft {
			continue
		}
		acc, ok := users[t.UserID]
		if !ok {
			acc = &userAcc{summary: newUserSummary(t.UserID, p, hasProfile), symbols: make(map[string]struct{})}
			users[t.UserID] = acc
		}
		acc.summary.TotalTrades++
		if t.NotionalValue.Valid {
			acc.summary.TotalVolume = acc.summary.TotalVolume.Add(t.NotionalValue.Decimal)
			acc.notionalCount++
		}
		if t.Symbol != "" {
			acc.symbols[t.Symbol] = struct{}{}
		}
	}

	out := make([]models.UserSummary, 0, len(users))
	for _, acc := range users {
		s := acc.summary
		s.UniqueSymbols = len(acc.symbols)
		if acc.notionalCount > 0 {
			s.AvgTradeSize = decimal.NewNullDecimal(s.TotalVolume.Div(decimal.NewFromInt(s.TotalTrades)))
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalVolume.Cmp(out[j].TotalVolume); c != 0 {
			return c > 0
		}
		return out[i].UserID < out[j].UserID
	})
	return truncate(out, limit)
}

func newUserSummary(id string, p models.UserProfile, hasProfile bool) models.UserSummary {
	s := models.UserSummary{UserID: id, HasProfile: hasProfile}
	if hasProfile {
		s.FullName = strings.TrimSpace(p.FirstName + " " + p.LastName)
		s.Email = p.Email
		s.Tier = p.Tier
		s.Country = p.Country
	}
	return s
}

// CountryDistribution sums the volume of summarized users per country,
// ordered by volume descending then country. Users without a country are
// grouped under "".
func CountryDistribution(users []models.UserSummary) []models.CountryVolume {
	byCountry := make(map[string]*models.CountryVolume)
	for _, u := range users {
		c, ok := byCountry[u.Country]
		if !ok {
			c = &models.CountryVolume{Country: u.Country}
			byCountry[u.Country] = c
		}
		c.Users++
		c.TotalVolume = c.TotalVolume.Add(u.TotalVolume)
	}
	out := make([]models.CountryVolume, 0, len(byCountry))
	for _, c := range byCountry {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalVolume.Cmp(out[j].TotalVolume); c != 0 {
			return c > 0
		}
		return out[i].Country < out[j].Country
	})
	return out
}

// TierDistribution counts summarized users per tier, ordered by count
// descending then tier. Users without a tier are counted under "".
func TierDistribution(users []models.UserSummary) []models.TierCount {
	counts := make(map[string]int)
	for _, u := range users {
		counts[u.Tier]++
	}
	out := make([]models.TierCount, 0, len(counts))
	for tier, n := range counts {
		out = append(out, models.TierCount{Tier: tier, Users: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Users != out[j].Users {
			return out[i].Users > out[j].Users
		}
		return out[i].Tier < out[j].Tier
	})
	return out
}
