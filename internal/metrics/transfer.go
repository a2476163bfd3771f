package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransferBytes counts media bytes moved through the chat platform.
	TransferBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_transfer_bytes_total",
		Help: "Total media bytes transferred, by direction (download/upload).",
	}, []string{"direction"})

	// TransferTotal counts transfers by direction and result.
	TransferTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_transfer_total",
		Help: "Total number of media transfers, by direction and result (ok/error/timeout).",
	}, []string{"direction", "result"})
)

// RecordTransfer records a finished transfer.
func RecordTransfer(direction, result string, bytes int64) {
	TransferTotal.WithLabelValues(direction, result).Inc()
	if bytes > 0 {
		TransferBytes.WithLabelValues(direction).Add(float64(bytes))
	}
}
