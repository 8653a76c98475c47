// Package metrics exports save/load and pool occupancy metrics. Label values
// are bounded: op is save|load, kind is a chunk name, result comes from
// saveerr.Reason and pool is a fixed pool name.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/l1jgo/entpool/internal/saveerr"
)

type Metrics struct {
	opDuration    *prometheus.HistogramVec
	opTotal       *prometheus.CounterVec
	chunkBytes    *prometheus.HistogramVec
	poolUsed      *prometheus.GaugeVec
	poolExhausted *prometheus.CounterVec
}

// New registers every collector on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		opDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "entpool_chunk_op_duration_seconds",
			Help:    "Time spent saving or loading one chunk",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"op", "kind"}),
		opTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "entpool_chunk_ops_total",
			Help: "Chunk saves and loads by result",
		}, []string{"op", "kind", "result"}),
		chunkBytes: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "entpool_chunk_payload_bytes",
			Help:    "Compressed payload size of written chunks",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}, []string{"kind"}),
		poolUsed: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "entpool_pool_slots_used",
			Help: "Slots in use per pool",
		}, []string{"pool"}),
		poolExhausted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "entpool_pool_exhausted_total",
			Help: "Allocations refused because a pool was full",
		}, []string{"pool"}),
	}
}

// ObserveOp records one finished save or load. All methods are no-ops on a
// nil *Metrics.
func (m *Metrics) ObserveOp(op, kind string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(op, kind).Observe(took.Seconds())
	m.opTotal.WithLabelValues(op, kind, saveerr.Reason(err)).Inc()
}

func (m *Metrics) ChunkWritten(kind string, payload int) {
	if m == nil {
		return
	}
	m.chunkBytes.WithLabelValues(kind).Observe(float64(payload))
}

func (m *Metrics) PoolUsage(pool string, used int) {
	if m == nil {
		return
	}
	m.poolUsed.WithLabelValues(pool).Set(float64(used))
}

func (m *Metrics) Exhausted(pool string) {
	if m == nil {
		return
	}
	m.poolExhausted.WithLabelValues(pool).Inc()
}
