package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/danmuck/notesctl/internal/sink"
)

const (
	// SinkID is the canonical sink identifier for the note event stream.
	SinkID = "sink.kafka"
)

// Sink publishes one message per note, keyed by note id.
type Sink struct {
	producer sarama.SyncProducer
	topic    string
}

// NewConfig returns the producer config the sink expects.
func NewConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	// SyncProducer requires Return.Successes.
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.MaxMessageBytes = 8 << 20
	return cfg
}

// Dial connects a sync producer to brokers.
func Dial(brokers []string, topic string) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("sink.kafka: no brokers")
	}
	producer, err := sarama.NewSyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, fmt.Errorf("sink.kafka: connect: %w", err)
	}
	return New(producer, topic)
}

// New wraps an existing producer.
func New(producer sarama.SyncProducer, topic string) (*Sink, error) {
	if producer == nil {
		return nil, fmt.Errorf("sink.kafka: nil producer")
	}
	if strings.TrimSpace(topic) == "" {
		topic = "notes"
	}
	return &Sink{producer: producer, topic: topic}, nil
}

func (s *Sink) Metadata() sink.Metadata {
	return sink.Metadata{
		ID:          SinkID,
		Name:        "Kafka",
		Description: "One JSON event per exported note",
	}
}

func (s *Sink) Write(ctx context.Context, rec sink.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("sink.kafka: marshal %d: %w", rec.ID, err)
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(rec.Key()),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("status"), Value: []byte(rec.Status)},
		},
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("sink.kafka: send %d: %w", rec.ID, err)
	}
	return nil
}

func (s *Sink) Close() error {
	return s.producer.Close()
}
