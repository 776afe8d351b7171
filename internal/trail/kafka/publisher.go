// Package kafka fans audit trail records out to a Kafka topic for
// downstream audit consumers. Publishing is best-effort and synchronous
// per record; the trail store remains the durable copy.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"sellergate/internal/trail"
)

// Publisher implements trail.Sink on top of a franz-go client.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// New connects a producer to the given brokers. The caller owns the
// publisher lifecycle and must Close it on shutdown.
func New(brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProduceRequestTimeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// payload is the JSON structure written to the topic. Partitioned by
// transaction ID so one transaction's records stay ordered.
type payload struct {
	ID            string             `json:"id"`
	TransactionID string             `json:"transaction_id"`
	MessageID     string             `json:"message_id"`
	Action        string             `json:"action"`
	Direction     string             `json:"direction"`
	Status        string             `json:"status"`
	Degraded      bool               `json:"degraded,omitempty"`
	Error         *trail.RecordError `json:"error,omitempty"`
	Timestamp     string             `json:"timestamp"`
	CreatedAt     string             `json:"created_at"`
}

func (p *Publisher) Publish(ctx context.Context, rec trail.Record) error {
	value, err := json.Marshal(payload{
		ID:            rec.ID,
		TransactionID: rec.TransactionID,
		MessageID:     rec.MessageID,
		Action:        rec.Action,
		Direction:     string(rec.Direction),
		Status:        string(rec.Status),
		Degraded:      rec.Degraded,
		Error:         rec.Error,
		Timestamp:     rec.Timestamp.Format(time.RFC3339Nano),
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal trail payload: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(rec.TransactionID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce trail record: %w", err)
	}
	return nil
}

// Close flushes pending produces and releases the client.
func (p *Publisher) Close() {
	p.client.Close()
}
