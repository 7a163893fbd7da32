package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserTrade is a typed row of raw.user_trades.
//
// String fields are empty when the raw value is NULL. Numeric and
// timestamp fields are invalid/nil when the raw value is NULL or unparsable.
type UserTrade struct {
	TradeID        string
	UserID         string
	Timestamp      *time.Time
	Symbol         string
	Side           string
	Quantity       decimal.NullDecimal
	Price          decimal.NullDecimal
	Status         string
	Exchange       string
	OrderType      string
	Fees           decimal.NullDecimal
	SettlementDate *time.Time
	IngestedAt     time.Time
	SourceFile     string
	RowSeq         int64
}

// CleanTrade is a row of staging.cleaned_trades: a normalized trade with
// its derived attributes.
//
// swagger:model CleanTrade
type CleanTrade struct {
	TradeID        string              `json:"trade_id" example:"T-1001"`
	UserID         string              `json:"user_id" example:"U-42"`
	TradeTimestamp *time.Time          `json:"trade_timestamp"`
	TradeDate      *time.Time          `json:"trade_date"`
	TradeHour      *int                `json:"trade_hour"`
	Symbol         string              `json:"symbol" example:"BTC-USD"`
	BaseCurrency   string              `json:"base_currency" example:"BTC"`
	QuoteCurrency  string              `json:"quote_currency,omitempty" example:"USD"`
	Side           string              `json:"side" example:"BUY"`
	Quantity       decimal.NullDecimal `json:"quantity" swaggertype:"string"`
	Price          decimal.NullDecimal `json:"price" swaggertype:"string"`
	NotionalValue  decimal.NullDecimal `json:"notional_value" swaggertype:"string"`
	Status         string              `json:"status" example:"COMPLETED"`
	Exchange       string              `json:"exchange" example:"COINBASE"`
	OrderType      string              `json:"order_type" example:"LIMIT"`
	Fees           decimal.NullDecimal `json:"fees" swaggertype:"string"`
	SettlementDate *time.Time          `json:"settlement_date"`
	IsCompleted    bool                `json:"is_completed"`
	IngestedAt     time.Time           `json:"ingested_at"`
	SourceFile     string              `json:"source_file"`
}
