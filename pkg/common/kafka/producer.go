package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/maternia-ai/platform/pkg/common/logger"
	"github.com/maternia-ai/platform/pkg/common/models"
	"github.com/segmentio/kafka-go"
)

// AlertEvent is published whenever an assessment produces a critical
// verdict. Downstream consumers (notification service, audit trail)
// subscribe to the alert topic.
type AlertEvent struct {
	ID           string    `json:"id"`
	PatientID    string    `json:"patient_id,omitempty"`
	RiskLevel    string    `json:"risk_level"`
	RiskScore    float64   `json:"risk_score"`
	Reason       string    `json:"reason"`
	ModelVersion string    `json:"model_version"`
	Timestamp    time.Time `json:"timestamp"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{writer: writer}
}

// PublishAlert emits a critical-risk event. Publish failures are logged
// and returned but must never fail the originating assessment.
func (p *Producer) PublishAlert(ctx context.Context, patientID string, verdict models.Verdict) error {
	event := AlertEvent{
		ID:           uuid.New().String(),
		PatientID:    patientID,
		RiskLevel:    verdict.RiskLevel,
		RiskScore:    verdict.RiskScore,
		Reason:       verdict.Reason,
		ModelVersion: verdict.ModelVersion,
		Timestamp:    time.Now().UTC(),
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alert event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.ID),
		Value: eventBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte("risk.alert")},
			{Key: "risk-level", Value: []byte(verdict.RiskLevel)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"patient_id": patientID,
		}).Error("Failed to publish alert event")
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"risk_level": verdict.RiskLevel,
		"topic":      p.writer.Topic,
	}).Info("Alert event published")

	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
