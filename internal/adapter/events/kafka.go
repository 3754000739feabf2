package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"exchange-rate-facade/internal/domain/model"
	"exchange-rate-facade/pkg/logger"
)

const (
	writeTimeout = 5 * time.Second
	batchTimeout = 10 * time.Millisecond
	maxAttempts  = 3

	// publishTimeout bounds how long a registration waits on the brokers.
	publishTimeout = 2 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes OverrideRegistered events as JSON, keyed by currency pair.
type KafkaPublisher struct {
	writer messageWriter
	log    *logger.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *logger.Logger) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		BatchTimeout: batchTimeout,
		MaxAttempts:  maxAttempts,
		WriteTimeout: writeTimeout,
	}, log)
}

func newKafkaPublisher(writer messageWriter, log *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, log: log}
}

func (k *KafkaPublisher) PublishOverride(ctx context.Context, event model.OverrideRegistered) error {
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshalling override event")
	}

	msg := kafka.Message{
		Key:   []byte(model.NewPair(event.From, event.To).String()),
		Value: value,
		Time:  event.RegisteredAt,
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "writing override event")
	}

	k.log.Debug("Published override event", "from", event.From, "to", event.To)
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOverride(context.Context, model.OverrideRegistered) error { return nil }

func (NoopPublisher) Close() error { return nil }
