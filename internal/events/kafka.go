// Package events publishes stored weather records to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/i474232898/weather-lookup/internal/weather"
)

// RecordEvent is the message body for one stored record.
type RecordEvent struct {
	Location weather.Location `json:"location"`
	Record   weather.Record   `json:"record"`
}

// KafkaPublisher implements weather.Publisher.
type KafkaPublisher struct {
	writer *kafkago.Writer
}

// NewKafkaPublisher creates a producer for topic. Messages are keyed by
// location id so a location's records stay ordered within a partition.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, loc weather.Location, rec weather.Record) error {
	msg, err := serializeToMessage(loc, rec)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(loc weather.Location, rec weather.Record) (kafkago.Message, error) {
	data, err := json.Marshal(RecordEvent{Location: loc, Record: rec})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize weather record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.FormatInt(loc.ID, 10)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "condition", Value: []byte(rec.Condition())},
			{Key: "recorded_at", Value: []byte(rec.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
