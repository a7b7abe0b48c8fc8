package sink

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/corvusHold/sentinel/internal/events/domain"
)

// Kafka publishes events to a Kafka topic matching the event topic string.
type Kafka struct {
	name   string
	filter domain.TopicFilter
	writer *kafka.Writer
}

// NewKafka builds a kafka sink writing to the given bootstrap brokers.
func NewKafka(name string, brokers []string, filter domain.TopicFilter) *Kafka {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &Kafka{name: name, filter: filter, writer: w}
}

func (s *Kafka) Name() string { return s.name }
func (s *Kafka) Topics() domain.TopicFilter { return s.filter }

func (s *Kafka) Publish(ctx context.Context, topic string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.PublishError{Broker: s.name, Topic: topic, Err: err}
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(uuid.New().String()),
		Value: data,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return domain.PublishError{Broker: s.name, Topic: topic, Err: err}
	}
	return nil
}

func (s *Kafka) Close() error { return s.writer.Close() }
