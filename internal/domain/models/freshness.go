package models

import "time"

// DerivationState describes the last refresh of a derived table.
//
// swagger:model DerivationState
type DerivationState struct {
	Name        string           `json:"name" example:"daily_trading_metrics"`
	TargetLag   string           `json:"target_lag" example:"5m0s"`
	RefreshedAt *time.Time       `json:"refreshed_at,omitempty"`
	Rows        int              `json:"rows" example:"42"`
	Duration    time.Duration    `json:"duration_ns" swaggertype:"integer"`
	Watermarks  map[string]int64 `json:"watermarks,omitempty"`
	LastAttempt *time.Time       `json:"last_attempt,omitempty"`
	LastError   string           `json:"last_error,omitempty"`
}
