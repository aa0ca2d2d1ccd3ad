package repository

import (
	"context"

	"SignalHub/internal/domain/models"
	"SignalHub/internal/domain/repository"
	pkgkafka "SignalHub/pkg/kafka"
)

// KafkaSignalSink publishes accepted signals keyed by symbol.
type KafkaSignalSink struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalSink creates Kafka publisher.
func NewKafkaSignalSink(producer *pkgkafka.Producer, topic string) repository.SignalSink {
	return &KafkaSignalSink{producer: producer, topic: topic}
}

func (p *KafkaSignalSink) Publish(ctx context.Context, s *models.Signal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), s)
}

func (p *KafkaSignalSink) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// NopSignalSink drops everything. It stands in when Kafka is disabled.
type NopSignalSink struct{}

func (NopSignalSink) Publish(context.Context, *models.Signal) error { return nil }
func (NopSignalSink) Close() error                                 { return nil }
