package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guttosm/cryptopulse/config"
	"github.com/guttosm/cryptopulse/internal/cache"
	"github.com/guttosm/cryptopulse/internal/changefeed"
	"github.com/guttosm/cryptopulse/internal/domain/models"
)

var t0 = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu        sync.Mutex
	rows      map[models.RawTable][]models.RawRow
	missing   map[models.RawTable]bool
	snapshots map[models.RawTable]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		rows:      map[models.RawTable][]models.RawRow{},
		missing:   map[models.RawTable]bool{},
		snapshots: map[models.RawTable]int{},
	}
}

func (f *fakeSource) add(table models.RawTable, vals map[string]string) {
	f.mu.Lock()
	seq := int64(len(f.rows[table]) + 1)
	f.mu.Unlock()
	f.addSeq(table, seq, vals)
}

// addSeq appends a row with an explicit row_seq, as a loader that committed
// out of sequence order would.
func (f *fakeSource) addSeq(table models.RawTable, seq int64, vals map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[table] = append(f.rows[table], models.RawRow{Seq: seq, IngestedAt: t0, SourceFile: "batch.csv", Values: vals})
}

func (f *fakeSource) Watermark(_ context.Context, table models.RawTable) (models.Watermark, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.missing[table] {
		return models.Watermark{}, fmt.Errorf(`relation "raw.%s" does not exist`, table)
	}
	wm := models.Watermark{Table: table, Rows: int64(len(f.rows[table]))}
	for _, r := range f.rows[table] {
		wm.MaxSeq = max(wm.MaxSeq, r.Seq)
	}
	return wm, nil
}

func (f *fakeSource) Snapshot(_ context.Context, table models.RawTable) ([]models.RawRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots[table]++
	return append([]models.RawRow(nil), f.rows[table]...), nil
}

func (f *fakeSource) snapshotCount(table models.RawTable) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshots[table]
}

type fakeSink struct {
	mu         sync.Mutex
	profiles   []models.UserProfile
	trades     []models.CleanTrade
	metrics    []models.DailyMetric
	tradesErr  error
	replaceCnt int
}

func (s *fakeSink) ReplaceProfiles(_ context.Context, p []models.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles = p
	s.replaceCnt++
	return nil
}

func (s *fakeSink) ReplaceCleanTrades(_ context.Context, t []models.CleanTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tradesErr != nil {
		return s.tradesErr
	}
	s.trades = t
	s.replaceCnt++
	return nil
}

func (s *fakeSink) ReplaceDailyMetrics(_ context.Context, m []models.DailyMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m
	s.replaceCnt++
	return nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func trade(id, user, ts, side, qty, price, status string) map[string]string {
	return map[string]string{
		"trade_id": id, "user_id": user, "timestamp": ts, "symbol": "BTC-USD", "side": side,
		"quantity": qty, "price": price, "status": status, "exchange": "BINANCE",
	}
}

func seeded() *fakeSource {
	src := newFakeSource()
	src.add(models.TableUserTrades, trade("T1", "U1", "2024-01-15T09:00:00Z", "BUY", "1", "100", "COMPLETED"))
	src.add(models.TableUserTrades, trade("T2", "U2", "2024-01-15T10:00:00Z", "SELL", "2", "100", "COMPLETED"))
	src.add(models.TableUserTrades, trade("T3", "U1", "2024-01-15T11:00:00Z", "BUY", "1", "200", "PENDING"))
	src.add(models.TableUserProfiles, map[string]string{"user_id": "U1", "email": "old@x.io", "tier": "SILVER"})
	src.add(models.TableUserProfiles, map[string]string{"user_id": "U1", "email": "new@x.io", "tier": "GOLD"})
	return src
}

var lags = config.RefreshConfig{ProfilesLag: 0, DailyLag: 5 * time.Minute}

func newTestScheduler(t *testing.T, src Source, opts Options) (*Scheduler, *clock) {
	t.Helper()
	c := &clock{t: t0}
	opts.Now = c.now
	s, err := NewScheduler(src, Graph(lags), opts)
	require.NoError(t, err)
	return s, c
}

func TestNewScheduler_Validation(t *testing.T) {
	noop := func(context.Context, Source, map[string]any) (any, int, error) { return nil, 0, nil }

	_, err := NewScheduler(newFakeSource(), []*Derivation{
		{Name: "b", DependsOn: []string{"a"}, Compute: noop},
		{Name: "a", Compute: noop},
	}, Options{})
	assert.ErrorContains(t, err, "declared later")

	_, err = NewScheduler(newFakeSource(), []*Derivation{
		{Name: "a", Compute: noop},
		{Name: "a", Compute: noop},
	}, Options{})
	assert.ErrorContains(t, err, "duplicate")
}

func TestLagString(t *testing.T) {
	assert.Equal(t, "DOWNSTREAM", Lag{Downstream: true}.String())
	assert.Equal(t, "5m0s", Lag{Interval: 5 * time.Minute}.String())
}

func TestRunOnce_ComputesEverythingFirstTime(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	s, _ := newTestScheduler(t, seeded(), Options{Sink: sink})

	require.NoError(t, s.RunOnce(ctx, false))

	profiles, err := s.LatestProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "new@x.io", profiles[0].Email, "the latest row wins")

	trades, err := s.CleanTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, trades, 3)

	metrics, err := s.DailyMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, int64(2), metrics[0].TotalTrades)
	assert.Equal(t, "100", metrics[0].VWAP.Decimal.String())

	assert.Len(t, sink.metrics, 1)
	assert.Len(t, sink.trades, 3)
	assert.Len(t, sink.profiles, 1)

	states, err := s.States(ctx)
	require.NoError(t, err)
	require.Len(t, states, 3)
	for _, st := range states {
		assert.NotNil(t, st.RefreshedAt, st.Name)
		assert.Empty(t, st.LastError, st.Name)
	}
	assert.Equal(t, "DOWNSTREAM", states[1].TargetLag)
	assert.Equal(t, int64(3), states[1].Watermarks[string(models.TableUserTrades)])
	assert.Equal(t, int64(3), states[1].Watermarks[string(models.TableUserTrades)+"#rows"])
}

func TestRunOnce_RowsCommittedBelowRecordedMaxSeq(t *testing.T) {
	ctx := context.Background()
	src := newFakeSource()
	src.addSeq(models.TableUserTrades, 10, trade("T10", "U1", "2024-01-15T09:00:00Z", "BUY", "1", "100", "COMPLETED"))
	s, c := newTestScheduler(t, src, Options{})
	require.NoError(t, s.RunOnce(ctx, false))

	for i, id := range []string{"T1", "T2", "T3"} {
		src.addSeq(models.TableUserTrades, int64(i+1), trade(id, "U2", "2024-01-15T10:00:00Z", "SELL", "1", "100", "COMPLETED"))
	}
	c.advance(10 * time.Minute)
	require.NoError(t, s.RunOnce(ctx, false))

	metrics, err := s.DailyMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, int64(4), metrics[0].TotalTrades, "a row-count change marks the input stale even when max(row_seq) is unchanged")
	trades, err := s.CleanTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, trades, 4)
}

func TestRunOnce_UnchangedInputsAreNotRecomputed(t *testing.T) {
	ctx := context.Background()
	src := seeded()
	s, c := newTestScheduler(t, src, Options{})

	require.NoError(t, s.RunOnce(ctx, false))
	c.advance(time.Hour)
	require.NoError(t, s.RunOnce(ctx, false))

	assert.Equal(t, 1, src.snapshotCount(models.TableUserTrades))
	assert.Equal(t, 1, src.snapshotCount(models.TableUserProfiles))
}

func TestRunOnce_HonorsTargetLag(t *testing.T) {
	ctx := context.Background()
	src := seeded()
	s, c := newTestScheduler(t, src, Options{})
	require.NoError(t, s.RunOnce(ctx, false))

	src.add(models.TableUserTrades, trade("T4", "U3", "2024-01-15T12:00:00Z", "BUY", "3", "100", "COMPLETED"))
	c.advance(time.Minute)
	require.NoError(t, s.RunOnce(ctx, false))

	metrics, err := s.DailyMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), metrics[0].TotalTrades, "within the lag the old result is served")
	trades, err := s.CleanTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, trades, 3, "downstream derivations wait for their reader")

	c.advance(5 * time.Minute)
	require.NoError(t, s.RunOnce(ctx, false))

	metrics, err = s.DailyMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), metrics[0].TotalTrades)
	trades, err = s.CleanTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, trades, 4)
}

func TestRunOnce_ZeroLagRefreshesImmediately(t *testing.T) {
	ctx := context.Background()
	src := seeded()
	s, _ := newTestScheduler(t, src, Options{})
	require.NoError(t, s.RunOnce(ctx, false))

	src.add(models.TableUserProfiles, map[string]string{"user_id": "U2", "email": "u2@x.io"})
	require.NoError(t, s.RunOnce(ctx, false))

	profiles, err := s.LatestProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
}

func TestRunOnce_ForceRecomputes(t *testing.T) {
	ctx := context.Background()
	src := seeded()
	s, _ := newTestScheduler(t, src, Options{})

	require.NoError(t, s.RunOnce(ctx, false))
	require.NoError(t, s.RunOnce(ctx, true))

	assert.Equal(t, 2, src.snapshotCount(models.TableUserTrades))
	assert.Equal(t, 2, src.snapshotCount(models.TableUserProfiles))
}

func TestRunOnce_FailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	src := seeded()
	src.missing[models.TableUserProfiles] = true
	s, _ := newTestScheduler(t, src, Options{})

	err := s.RunOnce(ctx, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), LatestProfiles)

	_, err = s.LatestProfiles(ctx)
	assert.ErrorIs(t, err, ErrNotReady)

	st, err := s.State(ctx, LatestProfiles)
	require.NoError(t, err)
	assert.Nil(t, st.RefreshedAt)
	assert.NotNil(t, st.LastAttempt)
	assert.Contains(t, st.LastError, "does not exist")

	metrics, err := s.DailyMetrics(ctx)
	require.NoError(t, err)
	assert.Len(t, metrics, 1)
}

func TestRunOnce_UpstreamFailureMarksDependents(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{tradesErr: errors.New("disk full")}
	s, _ := newTestScheduler(t, seeded(), Options{Sink: sink})

	err := s.RunOnce(ctx, false)
	require.Error(t, err)

	cleaned, _ := s.State(ctx, CleanedTrades)
	assert.Equal(t, "disk full", cleaned.LastError)
	daily, _ := s.State(ctx, DailyMetrics)
	assert.Contains(t, daily.LastError, "upstream cleaned_trades failed")
	assert.Nil(t, daily.RefreshedAt)

	profiles, _ := s.State(ctx, LatestProfiles)
	assert.NotNil(t, profiles.RefreshedAt)

	sink.mu.Lock()
	sink.tradesErr = nil
	sink.mu.Unlock()
	require.NoError(t, s.RunOnce(ctx, false))
	daily, _ = s.State(ctx, DailyMetrics)
	assert.Empty(t, daily.LastError, "a later success clears the error")
}

func TestReader_UnknownAndNotReady(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestScheduler(t, seeded(), Options{})

	_, err := s.DailyMetrics(ctx)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = s.State(ctx, "weekly")
	assert.ErrorIs(t, err, ErrUnknownDerivation)
}

func TestStoreReader_ReadsPublishedResults(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	graph := Graph(lags)
	reader := NewStoreReader(store, graph)

	_, err := reader.DailyMetrics(ctx)
	assert.ErrorIs(t, err, ErrNotReady)
	st, err := reader.State(ctx, DailyMetrics)
	require.NoError(t, err)
	assert.Equal(t, DailyMetrics, st.Name)
	assert.Nil(t, st.RefreshedAt)

	s, _ := newTestScheduler(t, seeded(), Options{Store: store})
	require.NoError(t, s.RunOnce(ctx, false))

	metrics, err := reader.DailyMetrics(ctx)
	require.NoError(t, err)
	require.Len(t, metrics, 1)
	assert.Equal(t, "BTC-USD", metrics[0].Symbol)
	assert.Equal(t, "300", metrics[0].TotalNotional.String())

	profiles, err := reader.LatestProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)

	trades, err := reader.CleanTrades(ctx)
	require.NoError(t, err)
	assert.Len(t, trades, 3)

	states, err := reader.States(ctx)
	require.NoError(t, err)
	require.Len(t, states, 3)
	assert.Equal(t, 1, states[0].Rows)
	assert.NotNil(t, states[2].RefreshedAt)

	_, err = reader.State(ctx, "weekly")
	assert.ErrorIs(t, err, ErrUnknownDerivation)
}

func TestSubscribe_ReceivesStates(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestScheduler(t, seeded(), Options{})
	ch, unsubscribe := s.Subscribe()

	require.NoError(t, s.RunOnce(ctx, false))

	seen := map[string]bool{}
	for len(seen) < 3 {
		select {
		case st := <-ch:
			seen[st.Name] = true
		case <-time.After(time.Second):
			t.Fatalf("only received %v", seen)
		}
	}

	unsubscribe()
	_, open := <-ch
	assert.False(t, open)
	unsubscribe()
}

type chanFeed struct {
	changefeed.Noop
	ch chan changefeed.Change
}

func (f chanFeed) Subscribe(context.Context) (<-chan changefeed.Change, error) { return f.ch, nil }

func TestRun_RefreshesOnStartupAndOnChange(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := seeded()
	s, _ := newTestScheduler(t, src, Options{Tick: time.Hour})
	updates, unsubscribe := s.Subscribe()
	defer unsubscribe()

	feed := chanFeed{ch: make(chan changefeed.Change, 1)}
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, feed) }()

	waitFor := func(name string, rows int) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			select {
			case st := <-updates:
				if st.Name == name && st.Rows == rows {
					return
				}
			case <-deadline:
				t.Fatalf("no refresh of %s with %d rows", name, rows)
			}
		}
	}

	waitFor(LatestProfiles, 1)

	src.add(models.TableUserProfiles, map[string]string{"user_id": "U9", "email": "u9@x.io"})
	feed.ch <- changefeed.Change{Table: models.TableUserProfiles, Rows: 1}
	waitFor(LatestProfiles, 2)

	src.add(models.TableUserProfiles, map[string]string{"user_id": "U10", "email": "u10@x.io"})
	s.Trigger()
	waitFor(LatestProfiles, 3)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
