package changefeed

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/guttosm/cryptopulse/config"
	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/warehouse"
	pq "github.com/lib/pq"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SelectsFeed(t *testing.T) {
	pg := &warehouse.Warehouse{Dialect: warehouse.Postgres{}}
	sf := &warehouse.Warehouse{Dialect: warehouse.Snowflake{}}

	f, err := New(config.Config{ChangeFeed: config.ChangeFeedConfig{Kind: "none"}}, pg)
	require.NoError(t, err)
	assert.IsType(t, Noop{}, f)

	f, err = New(config.Config{ChangeFeed: config.ChangeFeedConfig{Kind: "postgres", Channel: "raw_loaded"}}, pg)
	require.NoError(t, err)
	assert.IsType(t, &Postgres{}, f)

	f, err = New(config.Config{ChangeFeed: config.ChangeFeedConfig{Kind: "kafka"}, Kafka: config.KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}}, pg)
	require.NoError(t, err)
	assert.IsType(t, &Kafka{}, f)
	require.NoError(t, f.Close())

	_, err = New(config.Config{ChangeFeed: config.ChangeFeedConfig{Kind: "postgres"}}, sf)
	assert.ErrorIs(t, err, ErrUnsupportedFeed)

	_, err = New(config.Config{ChangeFeed: config.ChangeFeedConfig{Kind: "sqs"}}, pg)
	assert.ErrorIs(t, err, ErrUnsupportedFeed)
}

func TestNoop_SubscribeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := Noop{}.Subscribe(ctx)
	require.NoError(t, err)
	require.NoError(t, Noop{}.Publish(ctx, Change{Table: models.TableUserTrades}))
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}

func TestPostgres_PublishNotifies(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_notify($1, $2)")).
		WithArgs("raw_loaded", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := NewPostgres(db, "postgres://x", "raw_loaded")
	require.NoError(t, p.Publish(context.Background(), Change{Table: models.TableUserTrades, Rows: 3}))
	require.NoError(t, mock.ExpectationsWereMet())
}

type fakeListener struct {
	notify   chan *pq.Notification
	listened string
	listenEr error
	closed   bool
}

func (f *fakeListener) Listen(ch string) error               { f.listened = ch; return f.listenEr }
func (f *fakeListener) NotifyChan() <-chan *pq.Notification { return f.notify }
func (f *fakeListener) Ping() error                          { return nil }
func (f *fakeListener) Close() error                         { f.closed = true; return nil }

func TestPostgres_SubscribeDecodesNotifications(t *testing.T) {
	fl := &fakeListener{notify: make(chan *pq.Notification, 3)}
	old := newListener
	newListener = func(string) listener { return fl }
	t.Cleanup(func() { newListener = old })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := NewPostgres(nil, "dsn", "raw_loaded").Subscribe(ctx)
	require.NoError(t, err)
	assert.Equal(t, "raw_loaded", fl.listened)

	fl.notify <- &pq.Notification{Channel: "raw_loaded", Extra: `{"table":"user_trades","load_id":"L1","rows":3}`}
	fl.notify <- &pq.Notification{Channel: "raw_loaded", Extra: `not json`}
	fl.notify <- nil

	got := <-ch
	assert.Equal(t, models.TableUserTrades, got.Table)
	assert.Equal(t, "L1", got.LoadID)
	assert.Equal(t, 3, got.Rows)

	reconnect := <-ch
	assert.Equal(t, Change{}, reconnect, "malformed payloads are skipped; reconnects yield a zero change")
}

func TestPostgres_SubscribeListenError(t *testing.T) {
	fl := &fakeListener{notify: make(chan *pq.Notification), listenEr: errors.New("denied")}
	old := newListener
	newListener = func(string) listener { return fl }
	t.Cleanup(func() { newListener = old })

	_, err := NewPostgres(nil, "dsn", "raw_loaded").Subscribe(context.Background())
	require.Error(t, err)
	assert.True(t, fl.closed)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type fakeReader struct {
	msgs   chan kafka.Message
	closed bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-f.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (f *fakeReader) Close() error { f.closed = true; return nil }

func TestKafka_PublishAndSubscribe(t *testing.T) {
	fw := &fakeWriter{}
	fr := &fakeReader{msgs: make(chan kafka.Message, 1)}
	old := newReader
	newReader = func(config.KafkaConfig) messageReader { return fr }
	t.Cleanup(func() { newReader = old })

	k := &Kafka{cfg: config.KafkaConfig{Topic: "cryptopulse.raw-loads"}, writer: fw}

	require.NoError(t, k.Publish(context.Background(), Change{Table: models.TableOrderBook, LoadID: "L2", Rows: 7}))
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "order_book", string(fw.msgs[0].Key))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := k.Subscribe(ctx)
	require.NoError(t, err)

	fr.msgs <- fw.msgs[0]
	got := <-ch
	assert.Equal(t, models.TableOrderBook, got.Table)
	assert.Equal(t, 7, got.Rows)
	assert.False(t, got.At.IsZero(), "publish stamps the change time")

	cancel()
	for range ch {
	}
	require.NoError(t, k.Close())
	assert.True(t, fr.closed)
}
