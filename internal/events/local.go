package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LocalBus delivers events synchronously to in-process handlers.
// Handler errors are logged, not returned to the publisher.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

var _ Bus = (*LocalBus)(nil)

func NewLocalBus(logger *slog.Logger) *LocalBus {
	return &LocalBus{logger: logger}
}

func (b *LocalBus) PublishPriceChanged(ctx context.Context, productID uuid.UUID) error {
	event := PriceChanged{ProductID: productID, OccurredAt: time.Now().UTC()}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			b.logger.Error("price change handler failed", "product_id", productID, "error", err)
		}
	}
	return nil
}

func (b *LocalBus) Subscribe(h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
	return nil
}

func (b *LocalBus) Close() error {
	return nil
}
