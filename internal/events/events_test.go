package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEncodeDecode(t *testing.T) {
	id := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	data, err := encode(id, now)
	require.NoError(t, err)
	assert.JSONEq(t, `{"productId":"`+id.String()+`","occurredAt":"2026-03-01T12:00:00Z"}`, string(data))

	e, err := decode(data)
	require.NoError(t, err)
	assert.Equal(t, id, e.ProductID)
	assert.True(t, now.Equal(e.OccurredAt))
}

func TestDecode_Rejects(t *testing.T) {
	_, err := decode([]byte("not json"))
	assert.Error(t, err)

	_, err = decode([]byte(`{"occurredAt":"2026-03-01T12:00:00Z"}`))
	assert.Error(t, err)
}

func TestLocalBus_DeliversToAllHandlers(t *testing.T) {
	bus := NewLocalBus(discardLogger())
	id := uuid.New()

	var got []uuid.UUID
	require.NoError(t, bus.Subscribe(func(ctx context.Context, e PriceChanged) error {
		got = append(got, e.ProductID)
		return errors.New("first handler fails")
	}))
	require.NoError(t, bus.Subscribe(func(ctx context.Context, e PriceChanged) error {
		got = append(got, e.ProductID)
		return nil
	}))

	require.NoError(t, bus.PublishPriceChanged(context.Background(), id))
	assert.Equal(t, []uuid.UUID{id, id}, got)
}

func TestNATSBus_DeliverDecodesMessage(t *testing.T) {
	b := &NATSBus{subject: DefaultPriceSubject, logger: discardLogger()}
	id := uuid.New()

	var got PriceChanged
	calls := 0
	deliver := b.deliver(func(ctx context.Context, e PriceChanged) error {
		calls++
		got = e
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return nil
	})

	data, err := encode(id, time.Now())
	require.NoError(t, err)

	deliver(&nats.Msg{Subject: DefaultPriceSubject, Data: data})
	deliver(&nats.Msg{Subject: DefaultPriceSubject, Data: []byte("{}")})

	assert.Equal(t, 1, calls)
	assert.Equal(t, id, got.ProductID)
}
