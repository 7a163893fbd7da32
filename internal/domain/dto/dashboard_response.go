package dto

import "github.com/guttosm/cryptopulse/internal/domain/models"

// Filters echoes the predicates applied to a dashboard query.
type Filters struct {
	Symbols  []string `json:"symbols,omitempty" example:"BTC-USD"`
	Exchange string   `json:"exchange,omitempty" example:"COINBASE"`
	From     string   `json:"from,omitempty" example:"2024-01-01"`
	To       string   `json:"to,omitempty" example:"2024-01-31"`
}

// SummaryResponse is returned by GET /api/v1/summary.
type SummaryResponse struct {
	Filters Filters        `json:"filters"`
	Summary models.Summary `json:"summary"`
}

// DailyMetricsResponse is returned by GET /api/v1/metrics/daily.
type DailyMetricsResponse struct {
	Filters Filters              `json:"filters"`
	Count   int                  `json:"count" example:"30"`
	Items   []models.DailyMetric `json:"items"`
}

// TopAssetsResponse is returned by GET /api/v1/assets/top.
type TopAssetsResponse struct {
	Filters Filters           `json:"filters"`
	Count   int               `json:"count" example:"20"`
	Items   []models.TopAsset `json:"items"`
}

// UserSummaryResponse is returned by GET /api/v1/users/summary.
type UserSummaryResponse struct {
	Filters   Filters                `json:"filters"`
	Join      string                 `json:"join" example:"inner"`
	Count     int                    `json:"count" example:"50"`
	Items     []models.UserSummary   `json:"items"`
	Tiers     []models.TierCount     `json:"tiers"`
	Countries []models.CountryVolume `json:"countries"`
}

// PatternsResponse is returned by GET /api/v1/patterns.
type PatternsResponse struct {
	Filters  Filters                `json:"filters"`
	Patterns models.TradingPatterns `json:"patterns"`
}

// FreshnessResponse is returned by GET /api/v1/freshness.
type FreshnessResponse struct {
	Derivations []models.DerivationState `json:"derivations"`
}

// StreamEvent is pushed on GET /api/v1/stream after every refresh attempt.
type StreamEvent struct {
	Type  string                 `json:"type" example:"refresh"`
	State models.DerivationState `json:"state"`
}
