package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyMetric is a row of analytics.daily_trading_metrics: completed trades
// aggregated per (trade date, symbol, base, quote, exchange).
//
// VWAP is null when TotalVolume is zero. AvgPrice, MinPrice and MaxPrice
// are null when no trade in the group carries a price.
//
// swagger:model DailyMetric
type DailyMetric struct {
	TradeDate       time.Time           `json:"trade_date"`
	Symbol          string              `json:"symbol" example:"BTC-USD"`
	BaseCurrency    string              `json:"base_currency" example:"BTC"`
	QuoteCurrency   string              `json:"quote_currency,omitempty" example:"USD"`
	Exchange        string              `json:"exchange" example:"COINBASE"`
	TotalTrades     int64               `json:"total_trades" example:"2"`
	BuyTrades       int64               `json:"buy_trades" example:"1"`
	SellTrades      int64               `json:"sell_trades" example:"1"`
	CompletedTrades int64               `json:"completed_trades" example:"2"`
	TotalVolume     decimal.Decimal     `json:"total_volume" swaggertype:"string" example:"3"`
	TotalNotional   decimal.Decimal     `json:"total_notional" swaggertype:"string" example:"300"`
	AvgPrice        decimal.NullDecimal `json:"avg_price" swaggertype:"string" example:"100"`
	MinPrice        decimal.NullDecimal `json:"min_price" swaggertype:"string" example:"100"`
	MaxPrice        decimal.NullDecimal `json:"max_price" swaggertype:"string" example:"100"`
	TotalFees       decimal.Decimal     `json:"total_fees" swaggertype:"string" example:"0.5"`
	UniqueTraders   int64               `json:"unique_traders" example:"2"`
	VWAP            decimal.NullDecimal `json:"vwap" swaggertype:"string" example:"100"`
}

// TopAsset is a row of the top-performing-assets view.
//
// swagger:model TopAsset
type TopAsset struct {
	Symbol        string              `json:"symbol" example:"BTC-USD"`
	BaseCurrency  string              `json:"base_currency" example:"BTC"`
	TotalVolume   decimal.Decimal     `json:"total_volume" swaggertype:"string" example:"12.5"`
	TotalNotional decimal.Decimal     `json:"total_notional" swaggertype:"string" example:"812500"`
	TotalTrades   int64               `json:"total_trades" example:"40"`
	UniqueTraders int64               `json:"unique_traders" example:"17"`
	AvgPrice      decimal.NullDecimal `json:"avg_price" swaggertype:"string" example:"65000"`
	HighPrice     decimal.NullDecimal `json:"high_price" swaggertype:"string" example:"67000"`
	LowPrice      decimal.NullDecimal `json:"low_price" swaggertype:"string" example:"63000"`
	TradingDays   int                 `json:"trading_days" example:"3"`
}

// UserSummary is a row of the user-trading-summary view.
//
// HasProfile is false only for rows produced by a left join where the
// trader has no latest profile; profile attributes are then empty.
//
// swagger:model UserSummary
type UserSummary struct {
	UserID        string              `json:"user_id" example:"U-42"`
	FullName      string              `json:"full_name" example:"Ada Lovelace"`
	Email         string              `json:"email,omitempty"`
	Tier          string              `json:"tier" example:"GOLD"`
	Country       string              `json:"country" example:"UK"`
	TotalTrades   int64               `json:"total_trades" example:"12"`
	TotalVolume   decimal.Decimal     `json:"total_volume" swaggertype:"string" example:"15300.25"`
	AvgTradeSize  decimal.NullDecimal `json:"avg_trade_size" swaggertype:"string" example:"1275.02"`
	UniqueSymbols int                 `json:"unique_symbols" example:"3"`
	HasProfile    bool                `json:"has_profile"`
}

// Summary holds the dashboard headline cards.
//
// ActiveTraders sums distinct traders per day and symbol, so a trader
// active on two days counts twice.
//
// swagger:model Summary
type Summary struct {
	TotalTrades   int64           `json:"total_trades" example:"120"`
	TotalVolume   decimal.Decimal `json:"total_volume" swaggertype:"string" example:"42.75"`
	TotalNotional decimal.Decimal `json:"total_notional" swaggertype:"string" example:"1250000"`
	ActiveTraders int64           `json:"active_traders" example:"35"`
	AvgTradeSize  decimal.Decimal `json:"avg_trade_size" swaggertype:"string" example:"10416.66"`
	Symbols       int             `json:"symbols" example:"6"`
	Exchanges     int             `json:"exchanges" example:"3"`
	FirstDate     *time.Time      `json:"first_date,omitempty"`
	LastDate      *time.Time      `json:"last_date,omitempty"`
}

// PatternPoint is one bucket of a trading-pattern breakdown.
type PatternPoint struct {
	Key           string          `json:"key" example:"2024-01-15"`
	TotalTrades   int64           `json:"total_trades" example:"14"`
	TotalNotional decimal.Decimal `json:"total_notional" swaggertype:"string" example:"98000"`
	TotalVolume   decimal.Decimal `json:"total_volume" swaggertype:"string" example:"2.5"`
}

// TradingPatterns breaks trading activity down by date, exchange and by
// (date, exchange, symbol).
//
// swagger:model TradingPatterns
type TradingPatterns struct {
	ByDate           []PatternPoint `json:"by_date"`
	ByExchange       []PatternPoint `json:"by_exchange"`
	ByExchangeSymbol []PatternPoint `json:"by_exchange_symbol"`
}

// TierCount is the number of summarized users in one account tier.
type TierCount struct {
	Tier  string `json:"tier" example:"GOLD"`
	Users int    `json:"users" example:"8"`
}

// CountryVolume is the traded notional of summarized users in one country.
type CountryVolume struct {
	Country     string          `json:"country" example:"UK"`
	Users       int             `json:"users" example:"5"`
	TotalVolume decimal.Decimal `json:"total_volume" swaggertype:"string" example:"48210.5"`
}

// UserDistribution breaks every summarized user down by tier and by country.
type UserDistribution struct {
	Tiers     []TierCount
	Countries []CountryVolume
}
