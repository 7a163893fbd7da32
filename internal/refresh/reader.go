package refresh

import (
	"context"
	"errors"
	"fmt"

	"github.com/guttosm/cryptopulse/internal/cache"
	"github.com/guttosm/cryptopulse/internal/domain/models"
)

// Reader serves the latest computed result of each derivation.
type Reader interface {
	LatestProfiles(ctx context.Context) ([]models.UserProfile, error)
	CleanTrades(ctx context.Context) ([]models.CleanTrade, error)
	DailyMetrics(ctx context.Context) ([]models.DailyMetric, error)
	State(ctx context.Context, name string) (models.DerivationState, error)
	States(ctx context.Context) ([]models.DerivationState, error)
}

// entry is the cache store payload of one derivation.
type entry[T any] struct {
	State models.DerivationState `json:"state"`
	Data  T                      `json:"data"`
}

func (s *Scheduler) LatestProfiles(context.Context) ([]models.UserProfile, error) {
	return value[[]models.UserProfile](s, LatestProfiles)
}

func (s *Scheduler) CleanTrades(context.Context) ([]models.CleanTrade, error) {
	return value[[]models.CleanTrade](s, CleanedTrades)
}

func (s *Scheduler) DailyMetrics(context.Context) ([]models.DailyMetric, error) {
	return value[[]models.DailyMetric](s, DailyMetrics)
}

func (s *Scheduler) State(_ context.Context, name string) (models.DerivationState, error) {
	n, ok := s.nodes[name]
	if !ok {
		return models.DerivationState{}, fmt.Errorf("%w: %q", ErrUnknownDerivation, name)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(n.state), nil
}

// States returns the state of every derivation in graph order.
func (s *Scheduler) States(context.Context) ([]models.DerivationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DerivationState, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, cloneState(n.state))
	}
	return out, nil
}

func value[T any](s *Scheduler, name string) (T, error) {
	var zero T
	n, ok := s.nodes[name]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrUnknownDerivation, name)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n.value == nil {
		return zero, fmt.Errorf("%w: %s", ErrNotReady, name)
	}
	v, ok := n.value.(T)
	if !ok {
		return zero, fmt.Errorf("derivation %s holds %T", name, n.value)
	}
	return v, nil
}

// StoreReader serves derivations published to a cache store by a
// scheduler running in another process.
type StoreReader struct {
	store cache.Store
	names []string
}

// NewStoreReader returns a Reader over store for the given derivations.
func NewStoreReader(store cache.Store, graph []*Derivation) *StoreReader {
	names := make([]string, len(graph))
	for i, d := range graph {
		names[i] = d.Name
	}
	return &StoreReader{store: store, names: names}
}

func (r *StoreReader) LatestProfiles(ctx context.Context) ([]models.UserProfile, error) {
	e, err := load[[]models.UserProfile](ctx, r.store, LatestProfiles)
	return e.Data, err
}

func (r *StoreReader) CleanTrades(ctx context.Context) ([]models.CleanTrade, error) {
	e, err := load[[]models.CleanTrade](ctx, r.store, CleanedTrades)
	return e.Data, err
}

func (r *StoreReader) DailyMetrics(ctx context.Context) ([]models.DailyMetric, error) {
	e, err := load[[]models.DailyMetric](ctx, r.store, DailyMetrics)
	return e.Data, err
}

func (r *StoreReader) State(ctx context.Context, name string) (models.DerivationState, error) {
	if !r.known(name) {
		return models.DerivationState{}, fmt.Errorf("%w: %q", ErrUnknownDerivation, name)
	}
	e, err := load[skipData](ctx, r.store, name)
	if errors.Is(err, ErrNotReady) {
		return models.DerivationState{Name: name}, nil
	}
	return e.State, err
}

func (r *StoreReader) States(ctx context.Context) ([]models.DerivationState, error) {
	out := make([]models.DerivationState, 0, len(r.names))
	for _, name := range r.names {
		st, err := r.State(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (r *StoreReader) known(name string) bool {
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

// skipData decodes nothing, so reading a state does not decode the result set.
type skipData struct{}

func (*skipData) UnmarshalJSON([]byte) error { return nil }

func load[T any](ctx context.Context, store cache.Store, name string) (entry[T], error) {
	var e entry[T]
	err := cache.GetJSON(ctx, store, name, &e)
	if errors.Is(err, cache.ErrMiss) {
		return e, fmt.Errorf("%w: %s", ErrNotReady, name)
	}
	if err != nil {
		return e, fmt.Errorf("read %s from cache: %w", name, err)
	}
	return e, nil
}
