package changefeed

import (
	"context"
	"database/sql"
	"time"

	"github.com/guttosm/cryptopulse/internal/logger"
	pq "github.com/lib/pq"
)

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// listener is the subset of *pq.Listener the feed needs.
type listener interface {
	Listen(channel string) error
	NotifyChan() <-chan *pq.Notification
	Ping() error
	Close() error
}

type pqListener struct{ *pq.Listener }

func (l pqListener) NotifyChan() <-chan *pq.Notification { return l.Notify }

// newListener is an indirection for unit testing.
var newListener = func(dsn string) listener {
	l := pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.L().Warn().Err(err).Int("event", int(ev)).Msg("change feed listener event")
		}
	})
	return pqListener{l}
}

// Postgres delivers changes with NOTIFY/LISTEN on the warehouse itself.
type Postgres struct {
	db      *sql.DB
	dsn     string
	channel string
}

// NewPostgres returns a feed on the given notification channel.
func NewPostgres(db *sql.DB, dsn, channel string) *Postgres {
	return &Postgres{db: db, dsn: dsn, channel: channel}
}

func (p *Postgres) Publish(ctx context.Context, c Change) error {
	payload, err := encode(c)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", p.channel, string(payload))
	return err
}

func (p *Postgres) Subscribe(ctx context.Context) (<-chan Change, error) {
	l := newListener(p.dsn)
	if err := l.Listen(p.channel); err != nil {
		_ = l.Close()
		return nil, err
	}

	out := make(chan Change)
	go func() {
		defer close(out)
		defer func() { _ = l.Close() }()

		ticker := time.NewTicker(listenerPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-l.NotifyChan():
				if !ok {
					return
				}
				// nil after a reconnect: notifications may have been lost.
				c := Change{}
				if n != nil {
					var err error
					if c, err = decode([]byte(n.Extra)); err != nil {
						logger.L().Warn().Err(err).Str("payload", n.Extra).Msg("ignoring malformed change")
						continue
					}
				}
				if !deliver(ctx, out, c) {
					return
				}
			case <-ticker.C:
				if err := l.Ping(); err != nil {
					logger.L().Warn().Err(err).Msg("change feed listener ping failed")
				}
			}
		}
	}()
	return out, nil
}

// Close is a no-op: the warehouse owns the connection pool and each
// subscription closes its listener when its context ends.
func (p *Postgres) Close() error { return nil }
