// Package metrics exposes the scaler's decisions and the pools' headroom to Prometheus.
package metrics

import (
	"net/http"

	"github.com/opscart/node-placeholder-scaler/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "placeholder_scaler"

// Monitor holds the scaler metrics
type Monitor struct {
	desiredReplicas    *prometheus.GaugeVec
	currentReplicas    *prometheus.GaugeVec
	poolFits           *prometheus.GaugeVec
	freeResources      *prometheus.GaugeVec
	allocatable        *prometheus.GaugeVec
	activeEvents       prometheus.Gauge
	reconciles         *prometheus.CounterVec
	unparsedQuantities *prometheus.CounterVec
	lastReconcile      prometheus.Gauge
}

// NewMonitor creates the metrics. They are not registered.
func NewMonitor() *Monitor {
	return &Monitor{
		desiredReplicas: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "desired_replicas",
			Help:      "Placeholder replicas the last reconcile asked for.",
		}, []string{"pool", "source"}),
		currentReplicas: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_replicas",
			Help:      "Placeholder replicas found before the last reconcile applied its plan.",
		}, []string{"pool"}),
		poolFits: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_fits",
			Help:      "1 if the desired replicas fit into the pool's current headroom.",
		}, []string{"pool"}),
		freeResources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_free",
			Help:      "Unrequested allocatable resources per pool (cpu in millicores, memory in MiB). Negative when over-committed.",
		}, []string{"pool", "resource"}),
		allocatable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_allocatable",
			Help:      "Allocatable resources per pool (cpu in millicores, memory in MiB).",
		}, []string{"pool", "resource"}),
		activeEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_events",
			Help:      "Calendar events covering the last reconcile.",
		}),
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciles_total",
			Help:      "Reconcile cycles by result.",
		}, []string{"result"}),
		unparsedQuantities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unparsed_quantities_total",
			Help:      "Resource quantities counted as zero because they could not be converted.",
		}, []string{"resource"}),
		lastReconcile: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_reconcile_timestamp_seconds",
			Help:      "Unix time of the last successful reconcile.",
		}),
	}
}

func (m *Monitor) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.desiredReplicas, m.currentReplicas, m.poolFits, m.freeResources, m.allocatable,
		m.activeEvents, m.reconciles, m.unparsedQuantities, m.lastReconcile,
	}
}

// Describe implements prometheus.Collector
func (m *Monitor) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector
func (m *Monitor) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// ObservePlan records the outcome of one pool plan
func (m *Monitor) ObservePlan(plan models.PoolPlan) {
	source := "default"
	if plan.TargetedByEvent {
		source = "event"
	}
	m.desiredReplicas.DeletePartialMatch(prometheus.Labels{"pool": plan.Pool})
	m.desiredReplicas.WithLabelValues(plan.Pool, source).Set(float64(plan.DesiredReplicas))
	m.currentReplicas.WithLabelValues(plan.Pool).Set(float64(plan.CurrentReplicas))
	m.poolFits.WithLabelValues(plan.Pool).Set(boolToFloat(plan.Fits))
}

// ObserveUsable records pool totals. Pools absent from usable are dropped.
func (m *Monitor) ObserveUsable(usable models.UsableByPool) {
	m.freeResources.Reset()
	m.allocatable.Reset()
	for pool := range usable {
		total := usable.PoolTotals(pool)
		name := pool.Name()
		m.freeResources.WithLabelValues(name, "cpu").Set(float64(total.CPUFreeM))
		m.freeResources.WithLabelValues(name, "memory").Set(float64(total.MemFreeMi))
		m.allocatable.WithLabelValues(name, "cpu").Set(float64(total.CPUAllocM))
		m.allocatable.WithLabelValues(name, "memory").Set(float64(total.MemAllocMi))
	}
}

// ObserveEvents records how many events are active
func (m *Monitor) ObserveEvents(n int) {
	m.activeEvents.Set(float64(n))
}

// ReconcileSucceeded counts a successful cycle finished at unix time ts
func (m *Monitor) ReconcileSucceeded(ts float64) {
	m.reconciles.WithLabelValues("success").Inc()
	m.lastReconcile.Set(ts)
}

// ReconcileFailed counts a failed cycle
func (m *Monitor) ReconcileFailed() {
	m.reconciles.WithLabelValues("error").Inc()
}

// UnparsedQuantity counts a quantity of resource ("cpu" or "memory") treated as zero
func (m *Monitor) UnparsedQuantity(resource string) {
	m.unparsedQuantities.WithLabelValues(resource).Inc()
}

// Handler returns an HTTP handler serving the metrics of reg
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
