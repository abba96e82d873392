package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/JuruSysadmin/JuruConnect-sub003/internal/config"
	"github.com/JuruSysadmin/JuruConnect-sub003/internal/domain"
	"github.com/JuruSysadmin/JuruConnect-sub003/pkg/log"
)

// EventExporter mirrors notification events onto an external bus so push and
// e-mail workers outside this process can pick them up. Export is best-effort
// and never blocks or fails a send.
type EventExporter interface {
	Export(event domain.NotificationEvent)
	Close() error
}

// ConfluentExporter publishes notification events to Kafka, keyed by target
// user so one user's notifications stay ordered on a partition.
type ConfluentExporter struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

func NewConfluentExporter(cfg config.KafkaConfig) (*ConfluentExporter, error) {
	if err := ensureTopic(cfg); err != nil {
		log.L().Warn().Err(err).Str("topic", cfg.Topic).Msg("failed to ensure topic, assuming it exists")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	e := &ConfluentExporter{
		producer: p,
		topic:    cfg.Topic,
		doneCh:   make(chan struct{}),
	}
	go e.deliveryReportHandler()
	return e, nil
}

// ensureTopic creates the notification topic with the configured partition
// count. Partition count matters because events are keyed by target user.
func ensureTopic(cfg config.KafkaConfig) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": cfg.Brokers})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             cfg.Topic,
		NumPartitions:     cfg.Partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}
	for _, result := range results {
		code := result.Error.Code()
		if code != kafka.ErrNoError && code != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}
	return nil
}

func (e *ConfluentExporter) deliveryReportHandler() {
	l := log.L()
	for ev := range e.producer.Events() {
		if m, ok := ev.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			l.Error().Err(m.TopicPartition.Error).Msg("kafka delivery failed")
		}
	}
	close(e.doneCh)
}

func (e *ConfluentExporter) Export(event domain.NotificationEvent) {
	value, err := json.Marshal(event)
	if err != nil {
		log.L().Error().Err(err).Msg("failed to marshal notification event")
		return
	}

	err = e.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &e.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.TargetUserID),
		Value: value,
	}, nil)
	if err != nil {
		log.L().Warn().Err(err).Str(log.FieldUserID, event.TargetUserID).Msg("failed to export notification")
	}
}

func (e *ConfluentExporter) Close() error {
	e.producer.Flush(5000)
	e.producer.Close()
	<-e.doneCh
	return nil
}

// NopExporter is used when no Kafka cluster is configured.
type NopExporter struct{}

func (NopExporter) Export(domain.NotificationEvent) {}
func (NopExporter) Close() error                    { return nil }
