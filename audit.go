package goIAM

import (
	"io"

	"github.com/MrEthical07/goIAM/internal/audit"
	"go.uber.org/zap"
)

// AuditEvent is one security-relevant outcome emitted by the Engine.
type AuditEvent = audit.Event

// AuditSink consumes audit events. Sinks are called from a single dispatcher
// goroutine.
type AuditSink = audit.Sink

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

type JSONWriterSink = audit.JSONWriterSink

type ZapSink = audit.ZapSink

type KafkaSink = audit.KafkaSink

// MultiSink fans every event out to each sink in order.
type MultiSink = audit.MultiSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return audit.NewZapSink(logger)
}

// NewKafkaSink publishes audit events to topic as JSON keyed by account id.
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) (*KafkaSink, error) {
	return audit.NewKafkaSink(brokers, topic, logger)
}
