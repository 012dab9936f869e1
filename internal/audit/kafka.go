package audit

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const defaultKafkaWriteTimeout = 5 * time.Second

// MessageWriter is the subset of *kafka.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes each event as a JSON message keyed by account id, so
// events of one account stay ordered within a partition.
type KafkaSink struct {
	writer  MessageWriter
	timeout time.Duration
	logger  *zap.Logger
	failed  atomic.Uint64
}

// NewKafkaSink builds a synchronous kafka-go writer for topic.
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("audit: kafka sink requires at least one broker")
	}
	if topic == "" {
		return nil, errors.New("audit: kafka sink requires a topic")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: defaultKafkaWriteTimeout,
	}
	return NewKafkaSinkWithWriter(w, logger), nil
}

func NewKafkaSinkWithWriter(w MessageWriter, logger *zap.Logger) *KafkaSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSink{
		writer:  w,
		timeout: defaultKafkaWriteTimeout,
		logger:  logger.Named("audit.kafka"),
	}
}

// Emit runs on the dispatcher goroutine; a publish failure is logged and
// counted, never retried.
func (s *KafkaSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		s.logger.Warn("marshal audit event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(event.AccountID),
		Value: data,
		Time:  event.Timestamp,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.failed.Add(1)
		s.logger.Warn("publish audit event",
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
	}
}

func (s *KafkaSink) Failed() uint64 {
	if s == nil {
		return 0
	}
	return s.failed.Load()
}

func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
