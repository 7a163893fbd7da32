package transform

import (
	"sort"
	"time"

	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/shopspring/decimal"
)

type dailyKey struct {
	date     time.Time
	symbol   string
	base     string
	quote    string
	exchange string
}

type dailyAcc struct {
	metric     models.DailyMetric
	priceSum   decimal.Decimal
	priceCount int64
	traders    map[string]struct{}
}

// DailyMetrics aggregates completed trades per (trade date, symbol, base,
// quote, exchange). Trades without a trade date are skipped.
//
// VWAP is total notional ÷ total volume and is null when the volume is
// zero. The result is ordered by date, symbol and exchange.
func DailyMetrics(trades []models.CleanTrade) []models.DailyMetric {
	groups := make(map[dailyKey]*dailyAcc)
	for _, t := range trades {
		if !t.IsCompleted || t.TradeDate == nil {
			continue
		}
		k := dailyKey{
			date:     *t.TradeDate,
			symbol:   t.Symbol,
			base:     t.BaseCurrency,
			quote:    t.QuoteCurrency,
			exchange: t.Exchange,
		}
		acc, ok := groups[k]
		if !ok {
			acc = &dailyAcc{
				metric: models.DailyMetric{
					TradeDate:     k.date,
					Symbol:        k.symbol,
					BaseCurrency:  k.base,
					QuoteCurrency: k.quote,
					Exchange:      k.exchange,
				},
				traders: make(map[string]struct{}),
			}
			groups[k] = acc
		}
		acc.add(t)
	}

	out := make([]models.DailyMetric, 0, len(groups))
	for _, acc := range groups {
		out = append(out, acc.finish())
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.TradeDate.Equal(b.TradeDate) {
			return a.TradeDate.Before(b.TradeDate)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Exchange != b.Exchange {
			return a.Exchange < b.Exchange
		}
		return a.QuoteCurrency < b.QuoteCurrency
	})
	return out
}

func (a *dailyAcc) add(t models.CleanTrade) {
	m := &a.metric
	m.TotalTrades++
	m.CompletedTrades++
	switch t.Side {
	case "BUY":
		m.BuyTrades++
	case "SELL":
		m.SellTrades++
	}
	if t.Quantity.Valid {
		m.TotalVolume = m.TotalVolume.Add(t.Quantity.Decimal)
	}
	if t.NotionalValue.Valid {
		m.TotalNotional = m.TotalNotional.Add(t.NotionalValue.Decimal)
	}
	if t.Fees.Valid {
		m.TotalFees = m.TotalFees.Add(t.Fees.Decimal)
	}
	if t.Price.Valid {
		p := t.Price.Decimal
		a.priceSum = a.priceSum.Add(p)
		a.priceCount++
		if !m.MinPrice.Valid || p.LessThan(m.MinPrice.Decimal) {
			m.MinPrice = decimal.NewNullDecimal(p)
		}
		if !m.MaxPrice.Valid || p.GreaterThan(m.MaxPrice.Decimal) {
			m.MaxPrice = decimal.NewNullDecimal(p)
		}
	}
	if t.UserID != "" {
		a.traders[t.UserID] = struct{}{}
	}
}

func (a *dailyAcc) finish() models.DailyMetric {
	m := a.metric
	m.UniqueTraders = int64(len(a.traders))
	if a.priceCount > 0 {
		m.AvgPrice = decimal.NewNullDecimal(a.priceSum.Div(decimal.NewFromInt(a.priceCount)))
	}
	m.VWAP = VWAP(m.TotalNotional, m.TotalVolume)
	return m
}

// VWAP is notional ÷ volume, null when volume is zero.
func VWAP(notional, volume decimal.Decimal) decimal.NullDecimal {
	if volume.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(notional.Div(volume))
}
