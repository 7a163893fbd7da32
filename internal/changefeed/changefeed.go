// Package changefeed announces raw-table loads so the refresh scheduler can
// react immediately instead of waiting for its next tick.
package changefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guttosm/cryptopulse/config"
	"github.com/guttosm/cryptopulse/internal/domain/models"
	"github.com/guttosm/cryptopulse/internal/warehouse"
)

// ErrUnsupportedFeed is returned for an unknown CHANGEFEED value.
var ErrUnsupportedFeed = errors.New("unsupported change feed")

// Change announces that rows were appended to a raw table.
//
// A zero Change (empty Table) means "something may have changed"; feeds
// emit it after reconnecting, when notifications could have been missed.
type Change struct {
	Table  models.RawTable `json:"table"`
	LoadID string          `json:"load_id"`
	Rows   int             `json:"rows"`
	At     time.Time       `json:"at"`
}

// Publisher sends change notifications.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Feed publishes and delivers change notifications.
type Feed interface {
	Publisher
	// Subscribe streams notifications until ctx is done; the channel is
	// closed afterwards.
	Subscribe(ctx context.Context) (<-chan Change, error)
	Close() error
}

// New builds the feed selected by cfg.ChangeFeed.Kind.
func New(cfg config.Config, w *warehouse.Warehouse) (Feed, error) {
	switch strings.ToLower(cfg.ChangeFeed.Kind) {
	case "", "none":
		return Noop{}, nil
	case "postgres":
		if _, ok := w.Dialect.(warehouse.Postgres); !ok {
			return nil, fmt.Errorf("%w: postgres feed needs the postgres dialect", ErrUnsupportedFeed)
		}
		return NewPostgres(w.DB, w.DSN, cfg.ChangeFeed.Channel), nil
	case "kafka":
		return NewKafka(cfg.Kafka), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFeed, cfg.ChangeFeed.Kind)
	}
}

// Noop drops every notification; the scheduler then relies on its timer.
type Noop struct{}

func (Noop) Publish(context.Context, Change) error { return nil }

func (Noop) Subscribe(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (Noop) Close() error { return nil }

func encode(c Change) ([]byte, error) {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	return json.Marshal(c)
}

func decode(b []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(b, &c); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	return c, nil
}

// deliver sends c unless ctx is done first.
func deliver(ctx context.Context, out chan<- Change, c Change) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
