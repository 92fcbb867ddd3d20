// Package metrics tracks the process-wide resident-chunk counters and
// exposes them as Prometheus gauges for observability.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	chunkMem int64
	chunkCnt int64

	chunkMemGauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "lodtree",
		Subsystem: "chunk",
		Name:      "resident_bytes",
		Help:      "Resident chunk payload bytes across the current process.",
	}, func() float64 { return float64(ChunkMem()) })

	chunkCntGauge = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "lodtree",
		Subsystem: "chunk",
		Name:      "resident_count",
		Help:      "Number of chunks currently resident in memory.",
	}, func() float64 { return float64(ChunkCnt()) })
)

func init() {
	prometheus.MustRegister(chunkMemGauge, chunkCntGauge)
}

// AddChunk records a newly resident chunk of the given payload size,
// bumping both counters exactly once. A chunk transitions to resident
// exactly once regardless of which constructor (contiguous or sparse)
// built it.
func AddChunk(bytes int64) {
	atomic.AddInt64(&chunkMem, bytes)
	atomic.AddInt64(&chunkCnt, 1)
}

// RemoveChunk reverses AddChunk when a chunk is evicted.
func RemoveChunk(bytes int64) {
	atomic.AddInt64(&chunkMem, -bytes)
	atomic.AddInt64(&chunkCnt, -1)
}

// AddBytes adjusts the resident-byte counter without changing the
// chunk count, for in-place growth of an already-resident chunk.
func AddBytes(delta int64) {
	atomic.AddInt64(&chunkMem, delta)
}

// ChunkMem returns the current resident byte total.
func ChunkMem() int64 { return atomic.LoadInt64(&chunkMem) }

// ChunkCnt returns the current resident chunk count.
func ChunkCnt() int64 { return atomic.LoadInt64(&chunkCnt) }
