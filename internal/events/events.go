// Package events carries catalog price changes to the cart engine, over NATS
// in production or in-process when no broker is configured.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/larder/internal/domain"
	"github.com/google/uuid"
)

// PriceChanged announces that a product's price or discount changed.
type PriceChanged struct {
	ProductID  uuid.UUID `json:"productId"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher announces catalog price changes.
type Publisher interface {
	PublishPriceChanged(ctx context.Context, productID uuid.UUID) error
}

// Handler processes one price change.
type Handler func(ctx context.Context, event PriceChanged) error

// Bus is a Publisher that can also deliver events to a Handler.
type Bus interface {
	Publisher
	Subscribe(h Handler) error
	Close() error
}

// SyncCartsHandler re-prices every cart line for the changed product.
func SyncCartsHandler(carts domain.CartService, logger *slog.Logger) Handler {
	return func(ctx context.Context, event PriceChanged) error {
		n, err := carts.SyncProductPrice(ctx, event.ProductID)
		if err != nil {
			return fmt.Errorf("sync carts for product %s: %w", event.ProductID, err)
		}
		logger.Debug("price change applied", "product_id", event.ProductID, "carts", n)
		return nil
	}
}

func encode(productID uuid.UUID, now time.Time) ([]byte, error) {
	return json.Marshal(PriceChanged{ProductID: productID, OccurredAt: now.UTC()})
}

func decode(data []byte) (PriceChanged, error) {
	var e PriceChanged
	if err := json.Unmarshal(data, &e); err != nil {
		return e, fmt.Errorf("decode price change: %w", err)
	}
	if e.ProductID == uuid.Nil {
		return e, fmt.Errorf("decode price change: missing productId")
	}
	return e, nil
}
