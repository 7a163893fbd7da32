package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guttosm/cryptopulse/internal/analytics"
	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/refresh"
)

type stubReader struct {
	profiles []models.UserProfile
	trades   []models.CleanTrade
	metrics  []models.DailyMetric
	states   []models.DerivationState
	err      error
}

func (s *stubReader) LatestProfiles(context.Context) ([]models.UserProfile, error) {
	return s.profiles, s.err
}
func (s *stubReader) CleanTrades(context.Context) ([]models.CleanTrade, error) {
	return s.trades, s.err
}
func (s *stubReader) DailyMetrics(context.Context) ([]models.DailyMetric, error) {
	return append([]models.DailyMetric(nil), s.metrics...), s.err
}
func (s *stubReader) State(_ context.Context, name string) (models.DerivationState, error) {
	return models.DerivationState{Name: name}, s.err
}
func (s *stubReader) States(context.Context) ([]models.DerivationState, error) {
	return s.states, s.err
}

func day(s string) time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return d
}

func metric(date, symbol, exchange string, trades int64, notional string) models.DailyMetric {
	n := decimal.RequireFromString(notional)
	return models.DailyMetric{
		TradeDate: day(date), Symbol: symbol, BaseCurrency: symbol[:3], Exchange: exchange,
		TotalTrades: trades, TotalNotional: n, TotalVolume: decimal.NewFromInt(trades), UniqueTraders: 1,
	}
}

func cleanTrade(id, user, symbol, notional string) models.CleanTrade {
	d := day("2024-01-15")
	return models.CleanTrade{
		TradeID: id, UserID: user, Symbol: symbol, Exchange: "BINANCE", TradeDate: &d,
		IsCompleted: true, NotionalValue: decimal.NewNullDecimal(decimal.RequireFromString(notional)),
	}
}

func fixture() *stubReader {
	return &stubReader{
		metrics: []models.DailyMetric{
			metric("2024-01-14", "BTC-USD", "BINANCE", 2, "300"),
			metric("2024-01-15", "BTC-USD", "BINANCE", 1, "100"),
			metric("2024-01-15", "ETH-USD", "KRAKEN", 4, "800"),
		},
		trades: []models.CleanTrade{
			cleanTrade("T1", "U1", "BTC-USD", "100"),
			cleanTrade("T2", "U2", "BTC-USD", "50"),
			cleanTrade("T3", "U3", "ETH-USD", "10"),
		},
		profiles: []models.UserProfile{
			{UserID: "U1", FirstName: "Ada", LastName: "Lovelace", Tier: "GOLD", Country: "UK"},
			{UserID: "U2", Tier: "GOLD", Country: "US"},
			{UserID: "U3", Tier: "SILVER", Country: "UK"},
		},
		states: []models.DerivationState{{Name: refresh.LatestProfiles}},
	}
}

func TestDashboardService_Summary(t *testing.T) {
	cases := []struct {
		name       string
		filter     analytics.Filter
		wantTrades int64
		wantAvg    string
	}{
		{"all", analytics.Filter{}, 7, "171.4285714285714286"},
		{"symbol", analytics.Filter{Symbols: []string{"btc-usd"}}, 3, "133.3333333333333333"},
		{"no match", analytics.Filter{Exchange: "COINBASE"}, 0, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewDashboardService(fixture())
			got, err := svc.Summary(context.Background(), tc.filter)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.TotalTrades != tc.wantTrades || got.AvgTradeSize.String() != tc.wantAvg {
				t.Fatalf("got trades=%d avg=%s, want %d %s", got.TotalTrades, got.AvgTradeSize, tc.wantTrades, tc.wantAvg)
			}
		})
	}
}

func TestDashboardService_DailyMetricsNewestFirst(t *testing.T) {
	svc := NewDashboardService(fixture())
	got, err := svc.DailyMetrics(context.Background(), analytics.Filter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || !got[0].TradeDate.Equal(day("2024-01-15")) || !got[2].TradeDate.Equal(day("2024-01-14")) {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestDashboardService_TopAssets(t *testing.T) {
	svc := NewDashboardService(fixture())
	got, err := svc.TopAssets(context.Background(), analytics.Filter{}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "ETH-USD" {
		t.Fatalf("unexpected top assets: %+v", got)
	}
}

func TestDashboardService_UserSummary(t *testing.T) {
	svc := NewDashboardService(fixture())
	users, dist, err := svc.UserSummary(context.Background(), analytics.Filter{}, analytics.JoinInner, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(users) != 2 || users[0].UserID != "U1" || users[0].FullName != "Ada Lovelace" {
		t.Fatalf("unexpected users: %+v", users)
	}
	tiers := dist.Tiers
	if len(tiers) != 2 || tiers[0].Tier != "GOLD" || tiers[0].Users != 2 || tiers[1].Users != 1 {
		t.Fatalf("tiers must cover every user, got %+v", tiers)
	}
	countries := dist.Countries
	if len(countries) != 2 || countries[0].Country != "UK" || countries[0].Users != 2 || countries[0].TotalVolume.String() != "110" ||
		countries[1].Country != "US" || countries[1].TotalVolume.String() != "50" {
		t.Fatalf("countries must cover every user, got %+v", countries)
	}

	users, _, err = svc.UserSummary(context.Background(), analytics.Filter{Symbols: []string{"ETH-USD"}}, analytics.JoinInner, 0)
	if err != nil || len(users) != 1 || users[0].UserID != "U3" {
		t.Fatalf("filter not applied: %+v err=%v", users, err)
	}
}

func TestDashboardService_PatternsAndFreshness(t *testing.T) {
	svc := NewDashboardService(fixture())
	p, err := svc.Patterns(context.Background(), analytics.Filter{})
	if err != nil || len(p.ByDate) != 2 || len(p.ByExchange) != 2 {
		t.Fatalf("unexpected patterns: %+v err=%v", p, err)
	}
	st, err := svc.Freshness(context.Background())
	if err != nil || len(st) != 1 {
		t.Fatalf("unexpected states: %+v err=%v", st, err)
	}
}

func TestDashboardService_PropagatesReaderErrors(t *testing.T) {
	svc := NewDashboardService(&stubReader{err: refresh.ErrNotReady})
	ctx := context.Background()

	if _, err := svc.Summary(ctx, analytics.Filter{}); !errors.Is(err, refresh.ErrNotReady) {
		t.Fatalf("summary: %v", err)
	}
	if _, err := svc.DailyMetrics(ctx, analytics.Filter{}); !errors.Is(err, refresh.ErrNotReady) {
		t.Fatalf("daily: %v", err)
	}
	if _, err := svc.TopAssets(ctx, analytics.Filter{}, 5); !errors.Is(err, refresh.ErrNotReady) {
		t.Fatalf("assets: %v", err)
	}
	if _, _, err := svc.UserSummary(ctx, analytics.Filter{}, analytics.JoinLeft, 5); !errors.Is(err, refresh.ErrNotReady) {
		t.Fatalf("users: %v", err)
	}
	if _, err := svc.Patterns(ctx, analytics.Filter{}); !errors.Is(err, refresh.ErrNotReady) {
		t.Fatalf("patterns: %v", err)
	}
}
