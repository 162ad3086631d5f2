// Package metrics exposes counters for blob serialization outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "tagcache"

	OpSerialize   = "serialize"
	OpDeserialize = "deserialize"

	ResultOK    = "ok"
	ResultError = "error"
)

var (
	blobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blobs_total",
			Help:      "The total number of blobs processed. Broken down by operation and result.",
		},
		[]string{"op", "result"},
	)

	blobBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "blob_bytes",
			Help:      "Size of blob data produced or consumed.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
		},
		[]string{"op"},
	)
)

// Registry holds every tagcache metric.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(blobs, blobBytes)
}

// Observe records one blob operation. size is ignored for failures.
func Observe(op string, size int, err error) {
	if err != nil {
		blobs.WithLabelValues(op, ResultError).Inc()
		return
	}
	blobs.WithLabelValues(op, ResultOK).Inc()
	blobBytes.WithLabelValues(op).Observe(float64(size))
}

// WriteFile dumps the registry in the text exposition format.
func WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
