package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"SignalHub/internal/domain/models"
	domrepo "SignalHub/internal/domain/repository"
	pkgkafka "SignalHub/pkg/kafka"
)

// SignalAcceptor is the ingestion entry point used by transports.
type SignalAcceptor interface {
	Accept(ctx context.Context, source string, req models.SignalRequest) (*models.Signal, error)
}

// KafkaSignalsHandler consumes producer signals from Kafka and feeds the ingestor.
type KafkaSignalsHandler struct {
	topic    string
	acceptor SignalAcceptor
	metrics  domrepo.Metrics
}

func NewKafkaSignalsHandler(topic string, acceptor SignalAcceptor, metrics domrepo.Metrics) *KafkaSignalsHandler {
	return &KafkaSignalsHandler{topic: topic, acceptor: acceptor, metrics: metrics}
}

func (h *KafkaSignalsHandler) Topic() string { return h.topic }

// incoming message schema: {source, signal: {...}}
func (h *KafkaSignalsHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Source string               `json:"source"`
		Signal models.SignalRequest `json:"signal"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.recordError("consumer_unmarshal")
		return pkgkafka.Permanent(fmt.Errorf("decode signal message: %w", err))
	}
	if _, err := h.acceptor.Accept(ctx, m.Source, m.Signal); err != nil {
		if models.IsValidation(err) {
			return pkgkafka.Permanent(err)
		}
		h.recordError("consumer_accept")
		return err
	}
	return nil
}

func (h *KafkaSignalsHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

var _ pkgkafka.MessageHandler = (*KafkaSignalsHandler)(nil)
