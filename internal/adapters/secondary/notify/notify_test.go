package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiback/tiback-client/internal/core/domain"
)

func sampleNotification(id *int64) domain.Notification {
	return domain.Notification{
		ID:        "01HZX",
		Type:      domain.EventNewComment,
		EntityID:  id,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Data:      json.RawMessage(`{"id_ticket":42}`),
	}
}

func TestLogSink_Publish(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	id := int64(42)

	err := NewLogSink(logger).Publish(context.Background(), sampleNotification(&id))
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "notification received", entry["msg"])
	assert.Equal(t, "notification_log", entry["component"])
	assert.Equal(t, "nuevo_comentario", entry["type"])
	assert.Equal(t, float64(42), entry["ticket_id"])
}

func TestLogSink_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	require.NoError(t, NewLogSinkWithLevel(logger, slog.LevelDebug).Publish(context.Background(), sampleNotification(nil)))
	assert.Empty(t, buf.String())
}

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("missing deadline")
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSink_Publish(t *testing.T) {
	discard := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	t.Run("keyed by ticket id", func(t *testing.T) {
		w := &recordingWriter{}
		sink := NewKafkaSinkWithWriter(w, "tiback.notifications", 0, discard)
		id := int64(42)

		require.NoError(t, sink.Publish(context.Background(), sampleNotification(&id)))

		require.Len(t, w.msgs, 1)
		msg := w.msgs[0]
		assert.Equal(t, "42", string(msg.Key))
		assert.Equal(t, "nuevo_comentario", string(msg.Headers[0].Value))

		var decoded domain.Notification
		require.NoError(t, json.Unmarshal(msg.Value, &decoded))
		assert.Equal(t, "01HZX", decoded.ID)
		assert.Equal(t, int64(42), *decoded.EntityID)
	})

	t.Run("falls back to the event type", func(t *testing.T) {
		w := &recordingWriter{}
		sink := NewKafkaSinkWithWriter(w, "t", time.Second, discard)

		require.NoError(t, sink.Publish(context.Background(), sampleNotification(nil)))
		assert.Equal(t, "nuevo_comentario", string(w.msgs[0].Key))
	})

	t.Run("write failure is returned", func(t *testing.T) {
		w := &recordingWriter{err: errors.New("broker down")}
		sink := NewKafkaSinkWithWriter(w, "t", time.Second, discard)

		err := sink.Publish(context.Background(), sampleNotification(nil))
		assert.ErrorContains(t, err, "broker down")
	})

	t.Run("close closes the writer", func(t *testing.T) {
		w := &recordingWriter{}
		require.NoError(t, NewKafkaSinkWithWriter(w, "t", 0, discard).Close())
		assert.True(t, w.closed)
	})
}

func TestNewKafkaSink_Validation(t *testing.T) {
	discard := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	_, err := NewKafkaSink(KafkaConfig{Topic: "t"}, discard)
	assert.Error(t, err)

	_, err = NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}}, discard)
	assert.Error(t, err)

	sink, err := NewKafkaSink(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"}, discard)
	require.NoError(t, err)
	assert.NoError(t, sink.Close())
}
