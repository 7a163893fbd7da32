// Package analytics implements the read-only views served by the dashboard.
// Every function here is a pure function of the current derived snapshots.
package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/guttosm/cryptopulse/internal/domain/models"
)

// DateLayout is the format of the from/to filter values.
const DateLayout = "2006-01-02"

// Filter restricts the rows a view reads. Zero values match everything.
// From and To are inclusive calendar days.
type Filter struct {
	Symbols  []string
	Exchange string
	From     *time.Time
	To       *time.Time
}

// ParseFilter builds a Filter from dashboard query values. Symbols may be
// repeated or comma separated.
func ParseFilter(symbols []string, exchange, from, to string) (Filter, error) {
	var f Filter
	for _, s := range symbols {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				f.Symbols = append(f.Symbols, p)
			}
		}
	}
	f.Exchange = strings.ToUpper(strings.TrimSpace(exchange))

	var err error
	if f.From, err = parseDay("from", from); err != nil {
		return Filter{}, err
	}
	if f.To, err = parseDay("to", to); err != nil {
		return Filter{}, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return Filter{}, fmt.Errorf("'to' (%s) is before 'from' (%s)", to, from)
	}
	return f, nil
}

func parseDay(name, v string) (*time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil, nil
	}
	d, err := time.Parse(DateLayout, v)
	if err != nil {
		return nil, fmt.Errorf("invalid '%s' date %q (want YYYY-MM-DD): %w", name, v, err)
	}
	return &d, nil
}

func (f Filter) matchSymbol(symbol string) bool {
	if len(f.Symbols) == 0 {
		return true
	}
	for _, s := range f.Symbols {
		if strings.EqualFold(s, symbol) {
			return true
		}
	}
	return false
}

func (f Filter) matchExchange(exchange string) bool {
	return f.Exchange == "" || f.Exchange == exchange
}

func (f Filter) matchDate(d *time.Time) bool {
	if f.From == nil && f.To == nil {
		return true
	}
	if d == nil {
		return false
	}
	if f.From != nil && d.Before(*f.From) {
		return false
	}
	if f.To != nil && d.After(*f.To) {
		return false
	}
	return true
}

// Metrics returns the daily metrics matching f.
func (f Filter) Metrics(in []models.DailyMetric) []models.DailyMetric {
	out := make([]models.DailyMetric, 0, len(in))
	for _, m := range in {
		d := m.TradeDate
		if f.matchSymbol(m.Symbol) && f.matchExchange(m.Exchange) && f.matchDate(&d) {
			out = append(out, m)
		}
	}
	return out
}

// Trades returns the cleaned trades matching f.
func (f Filter) Trades(in []models.CleanTrade) []models.CleanTrade {
	out := make([]models.CleanTrade, 0, len(in))
	for _, t := range in {
		if f.matchSymbol(t.Symbol) && f.matchExchange(t.Exchange) && f.matchDate(t.TradeDate) {
			out = append(out, t)
		}
	}
	return out
}
