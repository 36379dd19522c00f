package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"go.uber.org/zap"
	"treasury/apps/treasury/internal/events"
)

// KafkaConsumer subscribes to the store-due topic and invokes the registered
// handler for each event.
type KafkaConsumer struct {
	logger        *zap.Logger
	kafkaConsumer *kafka.Consumer
	kafkaTopic    string
	handler       Handler
}

func NewKafkaConsumer(kafkaBroker, kafkaTopic string, logger *zap.Logger, handler Handler) (*KafkaConsumer, error) {
	// Setup Kafka consumer
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": kafkaBroker,
		"group.id":          "treasury-order-processor",
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	return &KafkaConsumer{
		logger:        logger,
		kafkaConsumer: consumer,
		kafkaTopic:    kafkaTopic,
		handler:       handler,
	}, nil
}

func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting order processor consumer...")

	err := c.kafkaConsumer.Subscribe(c.kafkaTopic, nil)
	if err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", c.kafkaTopic, err)
	}

	for {
		if ctx.Err() != nil {
			c.logger.Info("Stopping order processor consumer")
			return nil
		}

		msg, err := c.kafkaConsumer.ReadMessage(time.Second)
		if err != nil {
			var kafkaErr kafka.Error
			if errors.As(err, &kafkaErr) && kafkaErr.Code() == kafka.ErrTimedOut {
				continue
			}
			c.logger.Error("Error reading message from Kafka", zap.Error(err))
			continue
		}

		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("Error processing message",
				zap.String("topic", *msg.TopicPartition.Topic),
				zap.Int32("partition", msg.TopicPartition.Partition),
				zap.String("key", string(msg.Key)),
				zap.Error(err))
		}
	}
}

func (c *KafkaConsumer) processMessage(ctx context.Context, msg *kafka.Message) error {
	var event events.StoreDueEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal store due event: %w", err)
	}

	if event.EventType != events.EventTypeStoreDue {
		c.logger.Warn("Unknown event type", zap.String("event_type", event.EventType))
		return nil
	}

	return c.handler(ctx, event)
}

func (c *KafkaConsumer) Close() error {
	if c.kafkaConsumer != nil {
		return c.kafkaConsumer.Close()
	}
	return nil
}
