package worker

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	brokerItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_items_total",
			Help: "Processed queue items by category, status and reason",
		},
		[]string{"category", "status", "reason"},
	)

	brokerItemDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "broker_item_duration_seconds",
			Help:    "Per-item processing latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"category"},
	)

	brokerDeadLetters = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_dead_letters_total",
			Help: "Items moved to a failure hash",
		},
		[]string{"category", "reason"},
	)

	brokerCycleItems = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "broker_cycle_pending_items",
			Help: "Pending items observed at the start of the last poll cycle",
		},
		[]string{"category"},
	)
)

// InitMetrics registers the broker metrics once, labelled with the
// service identity.
func InitMetrics(serviceName, instanceID string) {
	metricsOnce.Do(func() {
		reg := prometheus.WrapRegistererWith(
			prometheus.Labels{"service": serviceName, "instance": instanceID},
			prometheus.DefaultRegisterer,
		)
		reg.MustRegister(brokerItemsTotal, brokerItemDuration, brokerDeadLetters, brokerCycleItems)
	})
}
