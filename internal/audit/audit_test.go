package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dashboard/internal/models"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaSink_Publish(t *testing.T) {
	t.Parallel()

	writer := &fakeWriter{}
	sink := &kafkaSink{writer: writer, logger: zap.NewNop()}

	session := &models.Session{ID: "sid", Username: "staff1", Role: models.RoleStaff}
	record := NewRecord(models.AuditLogin, session)

	require.NoError(t, sink.Publish(context.Background(), record))
	require.Len(t, writer.messages, 1)
	require.Equal(t, "staff1", string(writer.messages[0].Key))

	var got models.AuditRecord
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &got))
	require.Equal(t, models.AuditLogin, got.Action)
	require.Equal(t, "sid", got.SessionID)
	require.NotEmpty(t, got.ID)
}

func TestKafkaSink_PublishError(t *testing.T) {
	t.Parallel()

	boom := errors.New("broker down")
	sink := &kafkaSink{writer: &fakeWriter{err: boom}, logger: zap.NewNop()}

	err := sink.Publish(context.Background(), NewRecord(models.AuditLogout, nil))
	require.ErrorIs(t, err, boom)
}
