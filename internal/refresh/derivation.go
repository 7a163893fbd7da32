// Package refresh keeps the derived tables fresh. Each derivation is
// recomputed wholesale from the current raw snapshot when its inputs have
// changed and its freshness target has elapsed.
package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/guttosm/cryptopulse/config"
	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/storage"
	"github.com/guttosm/cryptopulse/internal/transform"
)

// Derivation names.
const (
	LatestProfiles = storage.TableLatestProfiles
	CleanedTrades  = storage.TableCleanedTrades
	DailyMetrics   = storage.TableDailyMetrics
)

// Source reads the raw layer. storage.RawRepository satisfies it.
type Source interface {
	Watermark(ctx context.Context, table models.RawTable) (models.Watermark, error)
	Snapshot(ctx context.Context, table models.RawTable) ([]models.RawRow, error)
}

// Lag is a freshness target. A Downstream lag has no interval of its own:
// the derivation is refreshed whenever a derivation reading it refreshes.
type Lag struct {
	Interval   time.Duration
	Downstream bool
}

func (l Lag) String() string {
	if l.Downstream {
		return "DOWNSTREAM"
	}
	return l.Interval.String()
}

// ComputeFunc produces a derivation's result from the raw source and the
// results of the derivations it depends on, keyed by name.
type ComputeFunc func(ctx context.Context, src Source, deps map[string]any) (value any, rows int, err error)

// MaterializeFunc persists a computed result.
type MaterializeFunc func(ctx context.Context, sink storage.DerivedRepository, value any) error

// Derivation is one node of the refresh graph.
type Derivation struct {
	Name        string
	Inputs      []models.RawTable // raw tables read directly
	DependsOn   []string          // derivations read directly; must precede this one in the graph
	Lag         Lag
	Compute     ComputeFunc
	Materialize MaterializeFunc
}

// Graph returns the three derivations in dependency order.
func Graph(cfg config.RefreshConfig) []*Derivation {
	return []*Derivation{
		{
			Name:   LatestProfiles,
			Inputs: []models.RawTable{models.TableUserProfiles},
			Lag:    Lag{Interval: cfg.ProfilesLag},
			Compute: func(ctx context.Context, src Source, _ map[string]any) (any, int, error) {
				rows, err := src.Snapshot(ctx, models.TableUserProfiles)
				if err != nil {
					return nil, 0, err
				}
				out := transform.LatestProfiles(transform.DecodeProfiles(rows))
				return out, len(out), nil
			},
			Materialize: func(ctx context.Context, sink storage.DerivedRepository, v any) error {
				return sink.ReplaceProfiles(ctx, v.([]models.UserProfile))
			},
		},
		{
			Name:   CleanedTrades,
			Inputs: []models.RawTable{models.TableUserTrades},
			Lag:    Lag{Downstream: true},
			Compute: func(ctx context.Context, src Source, _ map[string]any) (any, int, error) {
				rows, err := src.Snapshot(ctx, models.TableUserTrades)
				if err != nil {
					return nil, 0, err
				}
				out := transform.CleanTrades(transform.DecodeTrades(rows))
				return out, len(out), nil
			},
			Materialize: func(ctx context.Context, sink storage.DerivedRepository, v any) error {
				return sink.ReplaceCleanTrades(ctx, v.([]models.CleanTrade))
			},
		},
		{
			Name:      DailyMetrics,
			DependsOn: []string{CleanedTrades},
			Lag:       Lag{Interval: cfg.DailyLag},
			Compute: func(_ context.Context, _ Source, deps map[string]any) (any, int, error) {
				trades, ok := deps[CleanedTrades].([]models.CleanTrade)
				if !ok {
					return nil, 0, fmt.Errorf("%s input missing", CleanedTrades)
				}
				out := transform.DailyMetrics(trades)
				return out, len(out), nil
			},
			Materialize: func(ctx context.Context, sink storage.DerivedRepository, v any) error {
				return sink.ReplaceDailyMetrics(ctx, v.([]models.DailyMetric))
			},
		},
	}
}
