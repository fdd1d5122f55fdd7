package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/IBM/sarama"
)

// DefaultKafkaTopic is used when no topic is configured.
const DefaultKafkaTopic = "userpipe.notifications"

// KafkaNotifier produces one message per notification, keyed by run id.
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

// NewKafkaNotifier connects a synchronous producer to brokers.
func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka notifier: at least one broker is required")
	}
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Retry.Max = 0

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return newKafkaNotifier(producer, topic), nil
}

func newKafkaNotifier(producer sarama.SyncProducer, topic string) *KafkaNotifier {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (k *KafkaNotifier) Notify(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := n.payload()
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(n.RunID),
		Value: sarama.ByteEncoder(payload),
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("producing to kafka topic %s: %w", k.topic, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}
