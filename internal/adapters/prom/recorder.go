// Package prom implements the metrics sink with Prometheus collectors.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bft-labs/tcpmirror/internal/ports"
)

// PeerLabel is the label carrying the inbound peer address.
const PeerLabel = "server"

// SizeBuckets are the histogram buckets for chunk sizes, in bytes, up to the
// 16 KiB read limit.
var SizeBuckets = []float64{64, 256, 1024, 4096, 8192, 16384}

// Recorder implements ports.Recorder on its own registry so that several
// mirrors (or tests) never collide on metric names.
type Recorder struct {
	registry *prometheus.Registry

	// MessageCount counts chunks read from the inbound peer.
	MessageCount *prometheus.CounterVec

	// SizeData observes the byte length of each chunk.
	SizeData *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with freshly registered collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		MessageCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "message_count",
				Help: "number of message received",
			},
			[]string{PeerLabel},
		),
		SizeData: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "size_data_bytes",
				Help:    "Data sent",
				Buckets: SizeBuckets,
			},
			[]string{PeerLabel},
		),
	}
}

// IncChunks counts one chunk from peer.
func (r *Recorder) IncChunks(peer string) {
	r.MessageCount.WithLabelValues(peer).Inc()
}

// ObserveSize records the size of one chunk from peer.
func (r *Recorder) ObserveSize(peer string, n int) {
	r.SizeData.WithLabelValues(peer).Observe(float64(n))
}

// Registry returns the registry the collectors live in.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

var _ ports.Recorder = (*Recorder)(nil)
