package repo

import "github.com/prometheus/client_golang/prometheus"

var (
	storeFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "formcraft_store_fallback_total", Help: "Operations served by the volatile store after a durable failure"},
		[]string{"kind", "op"},
	)
	storeDurableUp = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "formcraft_store_durable_up", Help: "1 when the durable store is considered healthy"},
	)
)

func init() { prometheus.MustRegister(storeFallbackTotal, storeDurableUp) }
