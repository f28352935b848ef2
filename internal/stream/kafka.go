package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"opensky-ingest/pkg/logger"
)

// KafkaMaxRecords caps one WriteMessages call.
const KafkaMaxRecords = 500

// MessageWriter is the subset of *kafkago.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaConfig configures the Kafka writer.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	RequiredAcks int           `yaml:"required_acks"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaSink writes to a Kafka topic keyed by partition key.
type KafkaSink struct {
	writer MessageWriter
	topic  string
}

func NewKafkaSink(writer MessageWriter, topic string) *KafkaSink {
	return &KafkaSink{writer: writer, topic: topic}
}

// NewKafkaWriter builds a synchronous writer that hashes keys to partitions.
func NewKafkaWriter(cfg KafkaConfig, log *logger.Logger) *kafkago.Writer {
	log = log.WithComponent("kafka.writer")
	return &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchSize:    KafkaMaxRecords,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		WriteTimeout: cfg.WriteTimeout,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error("writer: "+fmt.Sprintf(msg, args...))
		}),
	}
}

func (s *KafkaSink) PutRecords(ctx context.Context, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	msgs := make([]kafkago.Message, len(entries))
	for i, e := range entries {
		msgs[i] = kafkago.Message{
			Key:   []byte(e.PartitionKey),
			Value: e.Data,
			Headers: []kafkago.Header{
				{Key: "content-type", Value: []byte("application/json")},
			},
		}
	}

	err := s.writer.WriteMessages(ctx, msgs...)
	if err == nil {
		return 0, nil
	}

	// Partial failures come back as one error slot per message.
	var werrs kafkago.WriteErrors
	if errors.As(err, &werrs) {
		failed := 0
		for _, e := range werrs {
			if e != nil {
				failed++
			}
		}
		return failed, nil
	}
	return 0, fmt.Errorf("kafka write messages: %w", err)
}

func (s *KafkaSink) MaxBatchSize() int { return KafkaMaxRecords }

func (s *KafkaSink) Name() string { return "kafka:" + s.topic }

func (s *KafkaSink) Close() error { return s.writer.Close() }
