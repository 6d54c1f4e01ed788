package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/citytransit/transit-service/internal/config"
)

// KafkaBridge forwards dispatched domain events to a Kafka topic. Publishing
// is fire-and-forget; delivery failures surface on the producer error channel
// and are logged.
type KafkaBridge struct {
	producer sarama.AsyncProducer
	logger   *zap.Logger
	topic    string
	done     chan struct{}
}

// NewKafkaBridge initializes the async producer and starts the error handler
// goroutine.
func NewKafkaBridge(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaBridge, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_5_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Flush.Messages = 100
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Metadata.Retry.Max = 3
	saramaConfig.Metadata.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	topic := "transit.events"
	if cfg.TopicPrefix != "" {
		topic = fmt.Sprintf("%s.transit.events", cfg.TopicPrefix)
	}

	b := &KafkaBridge{
		producer: producer,
		logger:   logger,
		topic:    topic,
		done:     make(chan struct{}),
	}
	go b.handleErrors()

	logger.Info("kafka bridge initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", topic),
	)
	return b, nil
}

// Attach subscribes the bridge to every event type on the dispatcher.
func (b *KafkaBridge) Attach(dispatcher Dispatcher) {
	types := []EventType{
		EventTicketPurchased,
		EventTicketUsed,
		EventTicketCancelled,
		EventTicketsExpired,
		EventPricingUpdated,
	}
	for _, t := range types {
		dispatcher.Subscribe(t, b.publish)
	}
}

func (b *KafkaBridge) publish(_ context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.Type, err)
	}
	b.producer.Input() <- &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(event.Type),
		Value: sarama.ByteEncoder(value),
	}
	return nil
}

func (b *KafkaBridge) handleErrors() {
	for {
		select {
		case err := <-b.producer.Errors():
			if err != nil {
				b.logger.Error("kafka producer error",
					zap.Error(err.Err),
					zap.String("topic", err.Msg.Topic),
				)
			}
		case <-b.done:
			return
		}
	}
}

// Close flushes pending messages and stops the error handler.
func (b *KafkaBridge) Close() error {
	close(b.done)
	if err := b.producer.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
