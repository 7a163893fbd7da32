package transform

import (
	"strings"

	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/shopspring/decimal"
)

// StatusCompleted is the trade status counted by the daily metrics.
const StatusCompleted = "COMPLETED"

// DecodeTrades types raw.user_trades rows.
func DecodeTrades(rows []models.RawRow) []models.UserTrade {
	out := make([]models.UserTrade, 0, len(rows))
	for _, r := range rows {
		t := models.UserTrade{
			TradeID:    text(r, "trade_id"),
			UserID:     text(r, "user_id"),
			Symbol:     text(r, "symbol"),
			Side:       text(r, "side"),
			Status:     text(r, "status"),
			Exchange:   text(r, "exchange"),
			OrderType:  text(r, "order_type"),
			IngestedAt: r.IngestedAt,
			SourceFile: r.SourceFile,
			RowSeq:     r.Seq,
		}
		if v, ok := r.Get("timestamp"); ok {
			t.Timestamp = ParseTimestamp(v)
		}
		if v, ok := r.Get("settlement_date"); ok {
			t.SettlementDate = ParseDate(v)
		}
		if v, ok := r.Get("quantity"); ok {
			t.Quantity = ParseDecimal(v)
		}
		if v, ok := r.Get("price"); ok {
			t.Price = ParseDecimal(v)
		}
		if v, ok := r.Get("fees"); ok {
			t.Fees = ParseDecimal(v)
		}
		out = append(out, t)
	}
	return out
}

// CleanTrades normalizes trades and computes their derived attributes.
// Trades without a trade id are dropped; input order is preserved.
func CleanTrades(trades []models.UserTrade) []models.CleanTrade {
	out := make([]models.CleanTrade, 0, len(trades))
	for _, t := range trades {
		if t.TradeID == "" {
			continue
		}
		base, quote := SplitSymbol(t.Symbol)
		c := models.CleanTrade{
			TradeID:        t.TradeID,
			UserID:         t.UserID,
			TradeTimestamp: t.Timestamp,
			Symbol:         t.Symbol,
			BaseCurrency:   base,
			QuoteCurrency:  quote,
			Side:           strings.ToUpper(t.Side),
			Quantity:       t.Quantity,
			Price:          t.Price,
			NotionalValue:  Notional(t.Quantity, t.Price),
			Status:         strings.ToUpper(t.Status),
			Exchange:       strings.ToUpper(t.Exchange),
			OrderType:      strings.ToUpper(t.OrderType),
			Fees:           t.Fees,
			SettlementDate: t.SettlementDate,
			IngestedAt:     t.IngestedAt,
			SourceFile:     t.SourceFile,
		}
		c.IsCompleted = c.Status == StatusCompleted
		if t.Timestamp != nil {
			day := truncateDay(*t.Timestamp)
			hour := t.Timestamp.UTC().Hour()
			c.TradeDate = &day
			c.TradeHour = &hour
		}
		out = append(out, c)
	}
	return out
}

// Notional is quantity × price, null when either side is null.
func Notional(qty, price decimal.NullDecimal) decimal.NullDecimal {
	if !qty.Valid || !price.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(qty.Decimal.Mul(price.Decimal))
}

// SplitSymbol splits a trading pair at its first '-', '/' or '_'.
// The quote is empty when the symbol has no separator.
func SplitSymbol(symbol string) (base, quote string) {
	i := strings.IndexAny(symbol, "-/_")
	if i < 0 {
		return symbol, ""
	}
	return symbol[:i], symbol[i+1:]
}
