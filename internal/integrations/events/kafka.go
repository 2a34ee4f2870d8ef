package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publish is called once per request with a single message; the writer's default
// 1s batch window would otherwise hold every mutation for that long.
const (
	kafkaBatchTimeout = 10 * time.Millisecond
	kafkaWriteTimeout = 2 * time.Second
)

// KafkaPublisher writes events keyed by issue id, so one issue's events stay ordered
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              1,
			BatchTimeout:           kafkaBatchTimeout,
			WriteTimeout:           kafkaWriteTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := kafkaMessage(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func kafkaMessage(e Event) (kafka.Message, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.IssueID),
		Value: body,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	}, nil
}
