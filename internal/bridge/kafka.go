package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic is the topic settlement messages are produced to.
const DefaultTopic = "amana.bridge.sync"

// KafkaOutbox produces settlement messages to a Kafka topic. Production is
// fire-and-forget; a failed delivery is logged, never surfaced to settlement.
type KafkaOutbox struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaOutbox connects to the given brokers and ensures the topic exists.
func NewKafkaOutbox(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaOutbox, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopics(ctx, 1, 1, nil, topic); err != nil {
		// Topic may already exist; anything else is reported at first produce.
		if !errors.Is(err, context.Canceled) {
			logger.Debug("bridge topic creation skipped", "topic", topic, "error", err)
		}
	}

	return &KafkaOutbox{client: client, topic: topic, logger: logger}, nil
}

func (o *KafkaOutbox) Append(ctx context.Context, message SyncMessage) error {
	raw, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal sync message: %w", err)
	}

	record := &kgo.Record{
		Topic: o.topic,
		Key:   []byte(message.ActivityID),
		Value: raw,
	}
	o.client.Produce(ctx, record, func(record *kgo.Record, err error) {
		if err != nil {
			o.logger.Warn("failed to deliver sync message",
				"activity_id", string(record.Key),
				"error", err,
			)
		}
	})
	return nil
}

func (o *KafkaOutbox) Close() {
	o.client.Close()
}
