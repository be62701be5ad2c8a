// Package audit publishes session state transitions (login, logout,
// revocation) so they can be reviewed outside the dashboard.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"dashboard/internal/models"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=audit.go -destination=../mocks/audit_sink.go -package=mocks

// Sink receives audit records. Publishing must not block the request path
// for long; callers pass a bounded context.
type Sink interface {
	Publish(ctx context.Context, record models.AuditRecord) error
	Close() error
}

// NewRecord stamps a record with an id and the current time.
func NewRecord(action models.AuditAction, session *models.Session) models.AuditRecord {
	record := models.AuditRecord{
		ID:     uuid.NewString(),
		Action: action,
		At:     time.Now().UTC(),
	}
	if session != nil {
		record.Username = session.Username
		record.Role = session.Role
		record.SessionID = session.ID
	}
	return record
}

type logSink struct {
	logger *zap.Logger
}

// NewLogSink writes audit records to the application log.
func NewLogSink(logger *zap.Logger) Sink {
	return &logSink{logger: logger.Named("audit")}
}

func (s *logSink) Publish(_ context.Context, record models.AuditRecord) error {
	s.logger.Info("Audit",
		zap.String("id", record.ID),
		zap.String("action", string(record.Action)),
		zap.String("username", record.Username),
		zap.String("role", string(record.Role)),
		zap.Time("at", record.At),
	)
	return nil
}

func (s *logSink) Close() error { return nil }

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaSink struct {
	writer kafkaWriter
	logger *zap.Logger
}

// NewKafkaSink publishes JSON audit records to topic, keyed by username so a
// user's records stay ordered within a partition.
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) Sink {
	return &kafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

func (s *kafkaSink) Publish(ctx context.Context, record models.AuditRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	if err := s.writer.WriteMessages(ctx, kafka.Message{Key: []byte(record.Username), Value: value}); err != nil {
		s.logger.Error("Failed to publish audit record", zap.String("action", string(record.Action)), zap.Error(err))
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}

func (s *kafkaSink) Close() error {
	return s.writer.Close()
}
