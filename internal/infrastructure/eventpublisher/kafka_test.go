package eventpublisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/ledgerbot/internal/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("write without deadline")
	}
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_KeysByAggregate(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w, zerolog.Nop())

	event := &domain.OutboxEvent{
		ID:            "evt-1",
		AggregateID:   "trf-1",
		AggregateType: domain.AggregateTypeTransfer,
		EventType:     domain.EventTypeTransferCompleted,
		Payload:       map[string]any{"amount": "10"},
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "trf-1", string(w.msgs[0].Key))
	assert.Equal(t, domain.EventTypeTransferCompleted, string(w.msgs[0].Headers[0].Value))

	var got envelope
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "evt-1", got.ID)
	assert.Equal(t, "10", got.Payload["amount"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WrapsWriteError(t *testing.T) {
	boom := errors.New("broker unreachable")
	p := newKafkaPublisher(&fakeWriter{err: boom}, zerolog.Nop())

	err := p.Publish(context.Background(), &domain.OutboxEvent{ID: "evt-1"})
	assert.ErrorIs(t, err, boom)
}
