package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Market aggregates the marketplace operation counters.
type Market struct {
	ListingsCreated  prometheus.Counter
	OffersCreated    prometheus.Counter
	Cancellations    *prometheus.CounterVec
	Reclamations     *prometheus.CounterVec
	Settlements      *prometheus.CounterVec
	SettlementVolume prometheus.Counter
	FailedOps        *prometheus.CounterVec
}

var (
	marketOnce sync.Once
	market     *Market
)

// NewMarket registers the market metrics against the default registry.
// Safe to call more than once; the same collectors are returned.
func NewMarket() *Market {
	marketOnce.Do(func() {
		market = &Market{
			ListingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bazaar",
				Subsystem: "market",
				Name:      "listings_created_total",
				Help:      "Listings successfully created.",
			}),
			OffersCreated: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bazaar",
				Subsystem: "market",
				Name:      "offers_created_total",
				Help:      "Offers successfully created.",
			}),
			Cancellations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bazaar",
				Subsystem: "market",
				Name:      "cancellations_total",
				Help:      "Cancelled records by kind.",
			}, []string{"kind"}),
			Reclamations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bazaar",
				Subsystem: "market",
				Name:      "reclamations_total",
				Help:      "Expiry reclamations by kind.",
			}, []string{"kind"}),
			Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bazaar",
				Subsystem: "market",
				Name:      "settlements_total",
				Help:      "Completed settlements by path.",
			}, []string{"path"}),
			SettlementVolume: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "bazaar",
				Subsystem: "market",
				Name:      "settlement_volume_total",
				Help:      "Total settled value in base currency units.",
			}),
			FailedOps: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "bazaar",
				Subsystem: "market",
				Name:      "failed_operations_total",
				Help:      "Rejected operations by error kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			market.ListingsCreated,
			market.OffersCreated,
			market.Cancellations,
			market.Reclamations,
			market.Settlements,
			market.SettlementVolume,
			market.FailedOps,
		)
	})
	return market
}
