package outbox

import (
	"context"
	"log/slog"

	"storefront/internal/pkg/config"
	"storefront/internal/pkg/errs"

	"github.com/IBM/sarama"
)

const kindHeader = "event-kind"

func NewSyncProducer(cfg config.OutboxConfig) (sarama.SyncProducer, error) {
	sc := sarama.NewConfig()
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Retry.Max = 5
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, errs.Wrap(err, "failed to create kafka producer")
	}
	slog.Info("kafka producer initialized", "brokers", cfg.Brokers)
	return producer, nil
}

type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic}
}

// Publish keys messages by order id so the events of one order keep their
// order within a partition.
func (p *KafkaPublisher) Publish(_ context.Context, ev Event) error {
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.OrderID.String()),
		Value: sarama.ByteEncoder(ev.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte(kindHeader), Value: []byte(ev.Kind)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return errs.Wrapf(err, "failed to send %s event", ev.Kind)
	}

	slog.Debug("order event published",
		"topic", p.topic,
		"kind", ev.Kind,
		"order_id", ev.OrderID.String(),
		"partition", partition,
		"offset", offset)
	return nil
}
