package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/dukerupert/larder/internal/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	store := memory.NewAccountStore()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	require.NoError(t, store.CreateSession(ctx, &domain.Session{Token: "old", UserID: userID, ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.CreateSession(ctx, &domain.Session{Token: "edge", UserID: userID, ExpiresAt: now}))
	require.NoError(t, store.CreateSession(ctx, &domain.Session{Token: "new", UserID: userID, ExpiresAt: now.Add(time.Hour)}))

	sweeper := NewSessionSweeper(store, time.Minute, testLogger())
	sweeper.now = func() time.Time { return now }

	result, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.SessionsDeleted)

	_, err = store.GetSession(ctx, "new")
	assert.NoError(t, err)
	_, err = store.GetSession(ctx, "edge")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionSweeper_StartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sweeper := NewSessionSweeper(memory.NewAccountStore(), time.Millisecond, testLogger())

	done := make(chan error, 1)
	go func() { done <- sweeper.Start(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestNewSessionSweeper_DefaultInterval(t *testing.T) {
	sweeper := NewSessionSweeper(memory.NewAccountStore(), 0, nil)
	assert.Equal(t, DefaultSweepInterval, sweeper.interval)
}
