package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CartMetrics holds Prometheus metrics for cart and catalog activity.
// A nil *CartMetrics is valid and records nothing.
type CartMetrics struct {
	CartsCreated     prometheus.Counter
	ItemsAdded       prometheus.Counter
	UnitsAdded       prometheus.Counter
	ItemsRemoved     prometheus.Counter
	QuantityChanges  prometheus.Counter
	PricesSynced     prometheus.Counter
	OperationsFailed *prometheus.CounterVec
	CatalogCache     *prometheus.CounterVec
	PriceEvents      *prometheus.CounterVec
}

// NewCartMetrics creates the cart metrics and registers them with reg.
func NewCartMetrics(reg prometheus.Registerer, namespace string) *CartMetrics {
	if namespace == "" {
		namespace = "larder"
	}
	factory := promauto.With(reg)

	return &CartMetrics{
		CartsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "created_total",
			Help:      "Total carts created",
		}),
		ItemsAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "items_added_total",
			Help:      "Total cart lines added",
		}),
		UnitsAdded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "units_added_total",
			Help:      "Total units added through new cart lines",
		}),
		ItemsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "items_removed_total",
			Help:      "Total cart lines removed",
		}),
		QuantityChanges: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "quantity_changes_total",
			Help:      "Total quantity adjustments that kept the line",
		}),
		PricesSynced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "prices_synced_total",
			Help:      "Total cart lines re-priced from the catalog",
		}),
		OperationsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "operations_failed_total",
			Help:      "Cart operations rejected or failed, by error code",
		}, []string{"op", "code"}),
		CatalogCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "cache_lookups_total",
			Help:      "Catalog cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		PriceEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "price_events_total",
			Help:      "Price change events by direction (published, received, failed)",
		}, []string{"direction"}),
	}
}

func (m *CartMetrics) CartCreated() {
	if m == nil {
		return
	}
	m.CartsCreated.Inc()
}

func (m *CartMetrics) ItemAdded(quantity int) {
	if m == nil {
		return
	}
	m.ItemsAdded.Inc()
	m.UnitsAdded.Add(float64(quantity))
}

func (m *CartMetrics) ItemRemoved() {
	if m == nil {
		return
	}
	m.ItemsRemoved.Inc()
}

func (m *CartMetrics) QuantityChanged() {
	if m == nil {
		return
	}
	m.QuantityChanges.Inc()
}

func (m *CartMetrics) PriceSynced() {
	if m == nil {
		return
	}
	m.PricesSynced.Inc()
}

// Rejected counts a failed operation under its error code.
func (m *CartMetrics) Rejected(op, code string) {
	if m == nil {
		return
	}
	m.OperationsFailed.WithLabelValues(op, code).Inc()
}

func (m *CartMetrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.CatalogCache.WithLabelValues(result).Inc()
}

func (m *CartMetrics) PriceEvent(direction string) {
	if m == nil {
		return
	}
	m.PriceEvents.WithLabelValues(direction).Inc()
}
