package analytics

import (
	"sort"

	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/shopspring/decimal"
)

type assetKey struct{ symbol, base string }

type assetAcc struct {
	asset    models.TopAsset
	avgSum   decimal.Decimal
	avgCount int64
}

// TopPerformingAssets groups daily metrics by (symbol, base currency).
//
// Volumes, notionals, trades and unique traders are summed across days;
// the average price is the mean of the daily averages; high and low are the
// max of the daily max and the min of the daily min. Rows are ordered by
// total volume descending, ties by symbol. limit <= 0 returns every row.
func TopPerformingAssets(metrics []models.DailyMetric, limit int) []models.TopAsset {
	groups := make(map[assetKey]*assetAcc)
	for _, m := range metrics {
		k := assetKey{m.Symbol, m.BaseCurrency}
		acc, ok := groups[k]
		if !ok {
			acc = &assetAcc{asset: models.TopAsset{Symbol: m.Symbol, BaseCurrency: m.BaseCurrency}}
			groups[k] = acc
		}
		a := &acc.asset
		a.TotalVolume = a.TotalVolume.Add(m.TotalVolume)
		a.TotalNotional = a.TotalNotional.Add(m.TotalNotional)
		a.TotalTrades += m.TotalTrades
		a.UniqueTraders += m.UniqueTraders
		a.TradingDays++
		if m.AvgPrice.Valid {
			acc.avgSum = acc.avgSum.Add(m.AvgPrice.Decimal)
			acc.avgCount++
		}
		if m.MaxPrice.Valid && (!a.HighPrice.Valid || m.MaxPrice.Decimal.GreaterThan(a.HighPrice.Decimal)) {
			a.HighPrice = m.MaxPrice
		}
		if m.MinPrice.Valid && (!a.LowPrice.Valid || m.MinPrice.Decimal.LessThan(a.LowPrice.Decimal)) {
			a.LowPrice = m.MinPrice
		}
	}

	out := make([]models.TopAsset, 0, len(groups))
	for _, acc := range groups {
		a := acc.asset
		if acc.avgCount > 0 {
			a.AvgPrice = decimal.NewNullDecimal(acc.avgSum.Div(decimal.NewFromInt(acc.avgCount)))
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalVolume.Cmp(out[j].TotalVolume); c != 0 {
			return c > 0
		}
		if out[i].Symbol != out[j].Symbol {
			return out[i].Symbol < out[j].Symbol
		}
		return out[i].BaseCurrency < out[j].BaseCurrency
	})
	return truncate(out, limit)
}

func truncate[T any](rows []T, limit int) []T {
	if limit > 0 && len(rows) > limit {
		return rows[:limit]
	}
	return rows
}
