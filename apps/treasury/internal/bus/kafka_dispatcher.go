package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
	"treasury/apps/treasury/internal/events"
)

// KafkaDispatcher publishes store-due events to a Kafka topic.
type KafkaDispatcher struct {
	logger        *zap.Logger
	kafkaProducer *kafka.Producer
	kafkaTopic    string
}

func NewKafkaDispatcher(kafkaBroker, kafkaTopic string, logger *zap.Logger) (*KafkaDispatcher, error) {
	// Setup Kafka producer
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaBroker,
		"acks":              "all",
		"retries":           3,
		"retry.backoff.ms":  100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaDispatcher{
		logger:        logger,
		kafkaProducer: producer,
		kafkaTopic:    kafkaTopic,
	}, nil
}

func (d *KafkaDispatcher) Publish(ctx context.Context, event events.StoreDueEvent) error {
	event.EventType = events.EventTypeStoreDue
	event.Timestamp = time.Now()

	msgBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal store due event: %w", err)
	}

	deliveryChan := make(chan kafka.Event)
	defer close(deliveryChan)

	err = d.kafkaProducer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &d.kafkaTopic, Partition: kafka.PartitionAny},
		Key:            []byte(event.StoreID), // Use store id as key for partition consistency
		Value:          msgBytes,
	}, deliveryChan)

	if err != nil {
		return fmt.Errorf("failed to produce store due event: %w", err)
	}

	// Wait for delivery confirmation
	e := <-deliveryChan
	switch ev := e.(type) {
	case *kafka.Message:
		if ev.TopicPartition.Error != nil {
			return ev.TopicPartition.Error
		}
		d.logger.Info("Published store due event",
			zap.String("store_id", event.StoreID),
			zap.Time("due_at", event.DueAt))
		return nil
	default:
		return fmt.Errorf("unexpected kafka event type: %T", e)
	}
}

func (d *KafkaDispatcher) Close() error {
	if d.kafkaProducer != nil {
		d.kafkaProducer.Close()
	}
	return nil
}
