// Package kafka publishes audit events to a broker topic so external
// consumers can tail the trail without touching the database.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"scubaai/internal/audit"
	"scubaai/internal/platform/config"
)

// Sink produces one JSON record per audit event, keyed by user ID so a
// user's events land in one partition in order.
type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the audit topic exists. Callers
// should only construct a Sink when brokers are configured.
func New(ctx context.Context, cfg config.Kafka) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}

	if err := ensureTopic(ctx, client, cfg.Topic); err != nil {
		client.Close()
		return nil, err
	}

	return &Sink{client: client, topic: cfg.Topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)

	existing, err := adm.ListTopics(ctx, topic)
	if err != nil {
		return fmt.Errorf("list kafka topics: %w", err)
	}
	if existing.Has(topic) {
		return nil
	}

	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		return fmt.Errorf("create kafka topic %s: %w", topic, err)
	}
	return nil
}

type record struct {
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	Action    string `json:"action"`
	Subject   string `json:"subject,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Publish produces the event synchronously. The worker already runs off the
// request path, so blocking here is fine.
func (s *Sink) Publish(ctx context.Context, event audit.Event) error {
	rec := record{
		Timestamp: event.Timestamp.Format(time.RFC3339Nano),
		Action:    event.Action,
		Subject:   event.Subject,
		Detail:    event.Detail,
	}
	var key []byte
	if !event.UserID.IsNil() {
		rec.UserID = event.UserID.String()
		key = []byte(rec.UserID)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	res := s.client.ProduceSync(ctx, &kgo.Record{
		Topic: s.topic,
		Key:   key,
		Value: payload,
	})
	if err := res.FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
