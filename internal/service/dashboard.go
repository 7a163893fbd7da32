package service

import (
	"context"

	"github.com/guttosm/cryptopulse/internal/analytics"
	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/refresh"
)

// DashboardService defines the read-only queries behind the dashboard.
type DashboardService interface {
	Summary(ctx context.Context, f analytics.Filter) (models.Summary, error)
	DailyMetrics(ctx context.Context, f analytics.Filter) ([]models.DailyMetric, error)
	TopAssets(ctx context.Context, f analytics.Filter, limit int) ([]models.TopAsset, error)
	UserSummary(ctx context.Context, f analytics.Filter, mode analytics.JoinMode, limit int) ([]models.UserSummary, models.UserDistribution, error)
	Patterns(ctx context.Context, f analytics.Filter) (models.TradingPatterns, error)
	Freshness(ctx context.Context) ([]models.DerivationState, error)
}

type dashboardService struct {
	reader refresh.Reader
}

func NewDashboardService(reader refresh.Reader) DashboardService {
	return &dashboardService{reader: reader}
}

func (s *dashboardService) metrics(ctx context.Context, f analytics.Filter) ([]models.DailyMetric, error) {
	all, err := s.reader.DailyMetrics(ctx)
	if err != nil {
		return nil, err
	}
	return f.Metrics(all), nil
}

func (s *dashboardService) Summary(ctx context.Context, f analytics.Filter) (models.Summary, error) {
	m, err := s.metrics(ctx, f)
	if err != nil {
		return models.Summary{}, err
	}
	return analytics.Summarize(m), nil
}

// DailyMetrics returns the filtered time series, newest first.
func (s *dashboardService) DailyMetrics(ctx context.Context, f analytics.Filter) ([]models.DailyMetric, error) {
	m, err := s.metrics(ctx, f)
	if err != nil {
		return nil, err
	}
	analytics.SortMetricsDesc(m)
	return m, nil
}

func (s *dashboardService) TopAssets(ctx context.Context, f analytics.Filter, limit int) ([]models.TopAsset, error) {
	m, err := s.metrics(ctx, f)
	if err != nil {
		return nil, err
	}
	return analytics.TopPerformingAssets(m, limit), nil
}

// UserSummary returns the top users and the tier and country distribution
// of every user that traded under f, not only the returned page.
func (s *dashboardService) UserSummary(ctx context.Context, f analytics.Filter, mode analytics.JoinMode, limit int) ([]models.UserSummary, models.UserDistribution, error) {
	trades, err := s.reader.CleanTrades(ctx)
	if err != nil {
		return nil, models.UserDistribution{}, err
	}
	profiles, err := s.reader.LatestProfiles(ctx)
	if err != nil {
		return nil, models.UserDistribution{}, err
	}

	users := analytics.UserTradingSummary(f.Trades(trades), profiles, mode, 0)
	dist := models.UserDistribution{
		Tiers:     analytics.TierDistribution(users),
		Countries: analytics.CountryDistribution(users),
	}
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, dist, nil
}

func (s *dashboardService) Patterns(ctx context.Context, f analytics.Filter) (models.TradingPatterns, error) {
	m, err := s.metrics(ctx, f)
	if err != nil {
		return models.TradingPatterns{}, err
	}
	return analytics.Patterns(m), nil
}

func (s *dashboardService) Freshness(ctx context.Context) ([]models.DerivationState, error) {
	return s.reader.States(ctx)
}
