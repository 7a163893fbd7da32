package analytics

import (
	"sort"
	"strings"

	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/shopspring/decimal"
)

// Summarize computes the dashboard headline cards from daily metrics.
// AvgTradeSize is total notional ÷ total trades, zero when there are none.
func Summarize(metrics []models.DailyMetric) models.Summary {
	var s models.Summary
	symbols := make(map[string]struct{})
	exchanges := make(map[string]struct{})
	for _, m := range metrics {
		s.TotalTrades += m.TotalTrades
		s.TotalVolume = s.TotalVolume.Add(m.TotalVolume)
		s.TotalNotional = s.TotalNotional.Add(m.TotalNotional)
		s.ActiveTraders += m.UniqueTraders
		symbols[m.Symbol] = struct{}{}
		exchanges[m.Exchange] = struct{}{}

		d := m.TradeDate
		if s.FirstDate == nil || d.Before(*s.FirstDate) {
			s.FirstDate = &d
		}
		if s.LastDate == nil || d.After(*s.LastDate) {
			s.LastDate = &d
		}
	}
	s.Symbols = len(symbols)
	s.Exchanges = len(exchanges)
	if s.TotalTrades > 0 {
		s.AvgTradeSize = s.TotalNotional.Div(decimal.NewFromInt(s.TotalTrades))
	}
	return s
}

// Patterns groups trading activity by date, by exchange and by
// (date, exchange, symbol). Dates sort ascending; exchange buckets sort by
// notional descending; (date, exchange, symbol) buckets sort by date, then
// notional descending.
func Patterns(metrics []models.DailyMetric) models.TradingPatterns {
	byDate := make(map[string]*models.PatternPoint)
	byExchange := make(map[string]*models.PatternPoint)
	byDES := make(map[string]*models.PatternPoint)

	for _, m := range metrics {
		day := m.TradeDate.Format(DateLayout)
		bump(byDate, day, m)
		bump(byExchange, m.Exchange, m)
		bump(byDES, day+"|"+m.Exchange+"|"+m.Symbol, m)
	}

	p := models.TradingPatterns{
		ByDate:           flatten(byDate),
		ByExchange:       flatten(byExchange),
		ByExchangeSymbol: flatten(byDES),
	}
	sort.Slice(p.ByExchange, func(i, j int) bool {
		if c := p.ByExchange[i].TotalNotional.Cmp(p.ByExchange[j].TotalNotional); c != 0 {
			return c > 0
		}
		return p.ByExchange[i].Key < p.ByExchange[j].Key
	})
	sort.SliceStable(p.ByExchangeSymbol, func(i, j int) bool {
		a, b := p.ByExchangeSymbol[i], p.ByExchangeSymbol[j]
		da, _, _ := strings.Cut(a.Key, "|")
		db, _, _ := strings.Cut(b.Key, "|")
		if da != db {
			return da < db
		}
		return a.TotalNotional.Cmp(b.TotalNotional) > 0
	})
	return p
}

func bump(m map[string]*models.PatternPoint, key string, metric models.DailyMetric) {
	pt, ok := m[key]
	if !ok {
		pt = &models.PatternPoint{Key: key}
		m[key] = pt
	}
	pt.TotalTrades += metric.TotalTrades
	pt.TotalNotional = pt.TotalNotional.Add(metric.TotalNotional)
	pt.TotalVolume = pt.TotalVolume.Add(metric.TotalVolume)
}

func flatten(m map[string]*models.PatternPoint) []models.PatternPoint {
	out := make([]models.PatternPoint, 0, len(m))
	for _, pt := range m {
		out = append(out, *pt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SortMetricsDesc orders daily metrics newest first, then by symbol and exchange.
func SortMetricsDesc(metrics []models.DailyMetric) {
	sort.SliceStable(metrics, func(i, j int) bool {
		a, b := metrics[i], metrics[j]
		if !a.TradeDate.Equal(b.TradeDate) {
			return a.TradeDate.After(b.TradeDate)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		return a.Exchange < b.Exchange
	})
}
