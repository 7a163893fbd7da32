package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/guttosm/cryptopulse/internal/cache"
	"github.com/guttosm/cryptopulse/internal/changefeed"
	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/logger"
	"github.com/guttosm/cryptopulse/internal/storage"
)

var (
	// ErrUnknownDerivation is returned for a name outside the graph.
	ErrUnknownDerivation = errors.New("unknown derivation")
	// ErrNotReady is returned when a derivation has never been computed.
	ErrNotReady = errors.New("derivation not computed yet")
)

const (
	defaultTick = 15 * time.Second
	// maxParallel bounds concurrently refreshing chains.
	maxParallel = 4
)

// Options configures a Scheduler. Every field is optional.
type Options struct {
	Tick  time.Duration             // timer-driven evaluation interval
	Sink  storage.DerivedRepository // where results are materialized
	Store cache.Store               // where results are published for other processes
	Now   func() time.Time
}

type node struct {
	d *Derivation
	// mu serializes refreshes of this derivation across chains.
	mu sync.Mutex

	// guarded by Scheduler.mu
	value any
	state models.DerivationState
}

// Scheduler owns the derivation cache and decides when to refresh.
type Scheduler struct {
	src   Source
	sink  storage.DerivedRepository
	store cache.Store
	tick  time.Duration
	now   func() time.Time

	order []*node
	nodes map[string]*node

	mu        sync.RWMutex
	listeners map[chan models.DerivationState]struct{}

	trigger chan struct{}
}

// NewScheduler validates the graph and returns an idle scheduler.
// Dependencies must appear before the derivations that read them.
func NewScheduler(src Source, graph []*Derivation, opts Options) (*Scheduler, error) {
	s := &Scheduler{
		src:       src,
		sink:      opts.Sink,
		store:     opts.Store,
		tick:      opts.Tick,
		now:       opts.Now,
		nodes:     make(map[string]*node, len(graph)),
		listeners: make(map[chan models.DerivationState]struct{}),
		trigger:   make(chan struct{}, 1),
	}
	if s.tick <= 0 {
		s.tick = defaultTick
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}

	for _, d := range graph {
		if _, dup := s.nodes[d.Name]; dup {
			return nil, fmt.Errorf("duplicate derivation %q", d.Name)
		}
		for _, dep := range d.DependsOn {
			if _, ok := s.nodes[dep]; !ok {
				return nil, fmt.Errorf("derivation %q depends on %q, which is unknown or declared later", d.Name, dep)
			}
		}
		n := &node{d: d, state: models.DerivationState{Name: d.Name, TargetLag: d.Lag.String()}}
		s.nodes[d.Name] = n
		s.order = append(s.order, n)
	}
	return s, nil
}

// RunOnce evaluates every derivation once. With force, every derivation is
// recomputed regardless of freshness. Chains run concurrently; a failing
// derivation does not stop the others. The returned error joins every
// failure.
func (s *Scheduler) RunOnce(ctx context.Context, force bool) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(maxParallel)

	for _, target := range s.targets() {
		target := target
		g.Go(func() error {
			if err := s.runChain(ctx, target, force); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Run evaluates on every tick, on every change notification and on
// Trigger, until ctx is done.
func (s *Scheduler) Run(ctx context.Context, feed changefeed.Feed) error {
	var changes <-chan changefeed.Change
	if feed != nil {
		ch, err := feed.Subscribe(ctx)
		if err != nil {
			logger.L().Warn().Err(err).Msg("change feed unavailable; relying on the timer")
		} else {
			changes = ch
		}
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	logger.L().Info().Dur("tick", s.tick).Msg("refresh scheduler started")
	s.evaluate(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			logger.L().Info().Msg("refresh scheduler stopped")
			return nil
		case <-ticker.C:
			s.evaluate(ctx, "timer")
		case <-s.trigger:
			s.evaluate(ctx, "trigger")
		case c, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			logger.L().Debug().Str("table", string(c.Table)).Str("load_id", c.LoadID).Int("rows", c.Rows).Msg("change received")
			s.evaluate(ctx, "change")
		}
	}
}

// Trigger requests an evaluation from a running scheduler without blocking.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) evaluate(ctx context.Context, reason string) {
	if err := s.RunOnce(ctx, false); err != nil && ctx.Err() == nil {
		logger.L().Warn().Str("reason", reason).Err(err).Msg("refresh evaluation finished with failures")
	}
}

// targets are the derivations evaluated on their own; downstream-lag
// derivations only refresh as a dependency of one of them.
func (s *Scheduler) targets() []*node {
	var out []*node
	for _, n := range s.order {
		if !n.d.Lag.Downstream {
			out = append(out, n)
		}
	}
	return out
}

// runChain refreshes target, bringing its dependencies up to date first.
func (s *Scheduler) runChain(ctx context.Context, target *node, force bool) error {
	raw, err := s.watermarks(ctx, s.rawClosure(target.d))
	if err != nil {
		s.recordFailure(target, err)
		return fmt.Errorf("%s: %w", target.d.Name, err)
	}

	target.mu.Lock()
	defer target.mu.Unlock()

	if !force && !s.due(target, raw) {
		return nil
	}

	for _, dep := range s.upstream(target.d) {
		if err := s.refreshDependency(ctx, dep, raw, force); err != nil {
			err = fmt.Errorf("upstream %s failed: %w", dep.d.Name, err)
			s.recordFailure(target, err)
			return fmt.Errorf("%s: %w", target.d.Name, err)
		}
	}
	return s.refresh(ctx, target, raw)
}

func (s *Scheduler) refreshDependency(ctx context.Context, n *node, raw map[models.RawTable]models.Watermark, force bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !force && !s.stale(n, raw) {
		return nil
	}
	return s.refresh(ctx, n, raw)
}

// rowsKey names the row-count watermark of a raw table. Sequence values are
// allocated outside transactions, so a load can commit rows below the
// recorded max(row_seq); the count still moves.
func rowsKey(t models.RawTable) string { return string(t) + "#rows" }

// stale reports whether n was never computed or its inputs moved since.
func (s *Scheduler) stale(n *node, raw map[models.RawTable]models.Watermark) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := n.state
	if st.RefreshedAt == nil {
		return true
	}
	for _, t := range s.rawClosure(n.d) {
		seq, ok := st.Watermarks[string(t)]
		rows, okRows := st.Watermarks[rowsKey(t)]
		if !ok || !okRows || seq != raw[t].MaxSeq || rows != raw[t].Rows {
			return true
		}
	}
	for _, dep := range n.d.DependsOn {
		ds := s.nodes[dep].state
		if ds.RefreshedAt != nil && ds.RefreshedAt.UnixNano() != st.Watermarks[dep] {
			return true
		}
	}
	return false
}

// due reports whether a target should refresh now: never computed, or
// inputs changed and the freshness target has elapsed.
func (s *Scheduler) due(n *node, raw map[models.RawTable]models.Watermark) bool {
	if !s.stale(n, raw) {
		return false
	}
	s.mu.RLock()
	refreshed := n.state.RefreshedAt
	s.mu.RUnlock()
	return refreshed == nil || s.now().Sub(*refreshed) >= n.d.Lag.Interval
}

// refresh recomputes n. Callers hold n.mu.
func (s *Scheduler) refresh(ctx context.Context, n *node, raw map[models.RawTable]models.Watermark) error {
	start := s.now()

	deps := make(map[string]any, len(n.d.DependsOn))
	wm := make(map[string]int64)
	s.mu.RLock()
	for _, dep := range n.d.DependsOn {
		dn := s.nodes[dep]
		if dn.value == nil {
			s.mu.RUnlock()
			err := fmt.Errorf("%w: %s", ErrNotReady, dep)
			s.recordFailure(n, err)
			return err
		}
		deps[dep] = dn.value
		wm[dep] = dn.state.RefreshedAt.UnixNano()
	}
	s.mu.RUnlock()
	for _, t := range s.rawClosure(n.d) {
		wm[string(t)] = raw[t].MaxSeq
		wm[rowsKey(t)] = raw[t].Rows
	}

	value, rows, err := n.d.Compute(ctx, s.src, deps)
	if err == nil && s.sink != nil && n.d.Materialize != nil {
		err = n.d.Materialize(ctx, s.sink, value)
	}
	if err != nil {
		s.recordFailure(n, err)
		logger.L().Error().Str("derivation", n.d.Name).Err(err).Msg("refresh failed")
		return err
	}

	finished := s.now()
	s.mu.Lock()
	n.value = value
	n.state.RefreshedAt = &finished
	n.state.LastAttempt = &finished
	n.state.Rows = rows
	n.state.Duration = finished.Sub(start)
	n.state.Watermarks = wm
	n.state.LastError = ""
	st := cloneState(n.state)
	s.mu.Unlock()

	logger.L().Info().
		Str("derivation", n.d.Name).
		Int("rows", rows).
		Dur("elapsed", st.Duration).
		Msg("derivation refreshed")

	s.publish(ctx, st, value)
	return nil
}

func (s *Scheduler) recordFailure(n *node, err error) {
	at := s.now()
	s.mu.Lock()
	n.state.LastAttempt = &at
	n.state.LastError = err.Error()
	st := cloneState(n.state)
	s.mu.Unlock()
	s.broadcast(st)
}

func (s *Scheduler) publish(ctx context.Context, st models.DerivationState, value any) {
	if s.store != nil {
		if err := cache.SetJSON(ctx, s.store, st.Name, entry[any]{State: st, Data: value}); err != nil {
			logger.L().Warn().Str("derivation", st.Name).Err(err).Msg("publish to cache store failed")
		}
	}
	s.broadcast(st)
}

// watermarks reads the current watermark of each table.
func (s *Scheduler) watermarks(ctx context.Context, tables []models.RawTable) (map[models.RawTable]models.Watermark, error) {
	out := make(map[models.RawTable]models.Watermark, len(tables))
	for _, t := range tables {
		wm, err := s.src.Watermark(ctx, t)
		if err != nil {
			return nil, err
		}
		out[t] = wm
	}
	return out, nil
}

// rawClosure lists the raw tables d reads directly or through its dependencies.
func (s *Scheduler) rawClosure(d *Derivation) []models.RawTable {
	seen := map[models.RawTable]bool{}
	var out []models.RawTable
	var walk func(*Derivation)
	walk = func(d *Derivation) {
		for _, t := range d.Inputs {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
		for _, dep := range d.DependsOn {
			walk(s.nodes[dep].d)
		}
	}
	walk(d)
	return out
}

// upstream lists the transitive dependencies of d in graph order.
func (s *Scheduler) upstream(d *Derivation) []*node {
	need := map[string]bool{}
	var mark func(*Derivation)
	mark = func(d *Derivation) {
		for _, dep := range d.DependsOn {
			need[dep] = true
			mark(s.nodes[dep].d)
		}
	}
	mark(d)

	var out []*node
	for _, n := range s.order {
		if need[n.d.Name] {
			out = append(out, n)
		}
	}
	return out
}

func cloneState(st models.DerivationState) models.DerivationState {
	if st.Watermarks != nil {
		wm := make(map[string]int64, len(st.Watermarks))
		for k, v := range st.Watermarks {
			wm[k] = v
		}
		st.Watermarks = wm
	}
	return st
}
