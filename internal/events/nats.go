package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/larder/internal/telemetry"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// DefaultPriceSubject is used when NATS_PRICE_SUBJECT is unset.
const DefaultPriceSubject = "catalog.price.changed"

// handlerTimeout bounds one delivery to the cart engine.
const handlerTimeout = 30 * time.Second

// NATSBus publishes price changes as JSON on a NATS subject.
type NATSBus struct {
	conn    *nats.Conn
	subject string
	subs    []*nats.Subscription
	metrics *telemetry.CartMetrics
	logger  *slog.Logger
}

var _ Bus = (*NATSBus)(nil)

// ConnectNATS dials url. metrics may be nil.
func ConnectNATS(url, subject string, metrics *telemetry.CartMetrics, logger *slog.Logger) (*NATSBus, error) {
	if subject == "" {
		subject = DefaultPriceSubject
	}

	conn, err := nats.Connect(url,
		nats.Name("larder"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return &NATSBus{
		conn:    conn,
		subject: subject,
		metrics: metrics,
		logger:  logger,
	}, nil
}

func (b *NATSBus) PublishPriceChanged(ctx context.Context, productID uuid.UUID) error {
	data, err := encode(productID, time.Now())
	if err != nil {
		return err
	}
	if err := b.conn.Publish(b.subject, data); err != nil {
		b.metrics.PriceEvent("failed")
		return fmt.Errorf("publish price change: %w", err)
	}
	b.metrics.PriceEvent("published")
	return nil
}

// Subscribe joins a queue group so each event is handled by one instance.
func (b *NATSBus) Subscribe(h Handler) error {
	sub, err := b.conn.QueueSubscribe(b.subject, "cart-sync", b.deliver(h))
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.subject, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

func (b *NATSBus) deliver(h Handler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		event, err := decode(msg.Data)
		if err != nil {
			b.metrics.PriceEvent("failed")
			b.logger.Warn("dropping malformed price change", "subject", msg.Subject, "error", err)
			return
		}
		b.metrics.PriceEvent("received")

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		defer cancel()

		if err := h(ctx, event); err != nil {
			b.metrics.PriceEvent("failed")
			b.logger.Error("price change handler failed", "product_id", event.ProductID, "error", err)
		}
	}
}

// Close drains subscriptions and closes the connection.
func (b *NATSBus) Close() error {
	for _, sub := range b.subs {
		if err := sub.Unsubscribe(); err != nil {
			b.logger.Warn("nats unsubscribe failed", "error", err)
		}
	}
	return b.conn.Drain()
}
