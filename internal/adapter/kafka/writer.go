// Package kafka publishes completed assessments to an alert topic so
// downstream consumers (SMS fan-out, dashboards) can react without polling
// the service. Publishing is optional and enabled by configuration.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/pollenguard/allergy-risk/internal/config"
	"github.com/pollenguard/allergy-risk/internal/domain"
)

// Publisher produces assessment messages to the alert topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured alert topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishAssessment serializes and publishes one completed assessment. The
// message is keyed by location so alerts for the same place land on the same
// partition.
func (p *Publisher) PublishAssessment(ctx context.Context, result domain.AssessmentResult) error {
	msg, err := serializeToMessage(result)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an AssessmentResult into a Kafka message.
func serializeToMessage(result domain.AssessmentResult) (kafkago.Message, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize assessment: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(result.Location),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(result.RiskAssessment.RiskLevel)},
			{Key: "assessed_at", Value: []byte(domain.Now().UTC().Format(time.RFC3339))},
		},
	}, nil
}
