package changefeed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/guttosm/cryptopulse/config"
	"github.com/guttosm/cryptopulse/internal/logger"
	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// newReader is an indirection for unit testing.
var newReader = func(cfg config.KafkaConfig) messageReader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
		MaxWait:  time.Second,
	})
}

// Kafka publishes one message per loaded table, keyed by table name.
type Kafka struct {
	cfg    config.KafkaConfig
	writer messageWriter

	mu      sync.Mutex
	readers []messageReader
}

// NewKafka returns a feed writing to and reading from cfg.Topic.
func NewKafka(cfg config.KafkaConfig) *Kafka {
	return &Kafka{
		cfg: cfg,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (k *Kafka) Publish(ctx context.Context, c Change) error {
	payload, err := encode(c)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(c.Table), Value: payload})
}

func (k *Kafka) Subscribe(ctx context.Context) (<-chan Change, error) {
	r := newReader(k.cfg)
	k.mu.Lock()
	k.readers = append(k.readers, r)
	k.mu.Unlock()

	out := make(chan Change)
	go func() {
		defer close(out)
		for {
			m, err := r.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				logger.L().Error().Err(err).Str("topic", k.cfg.Topic).Msg("kafka read failed")
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
					continue
				}
			}
			c, err := decode(m.Value)
			if err != nil {
				logger.L().Warn().Err(err).Int64("offset", m.Offset).Msg("ignoring malformed change")
				continue
			}
			if !deliver(ctx, out, c) {
				return
			}
		}
	}()
	return out, nil
}

func (k *Kafka) Close() error {
	k.mu.Lock()
	readers := k.readers
	k.readers = nil
	k.mu.Unlock()

	errs := []error{k.writer.Close()}
	for _, r := range readers {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}
