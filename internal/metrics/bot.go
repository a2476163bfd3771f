package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	// UpdatesTotal counts inbound chat updates by kind.
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_updates_total",
		Help: "Total number of inbound updates, by kind (command/text/media/callback/other).",
	}, []string{"kind"})

	// UpdatesInFlight is the number of updates being handled right now.
	UpdatesInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vidmark_updates_in_flight",
		Help: "Number of inbound updates currently being handled.",
	})

	// TransitionsTotal counts conversation step changes.
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_session_transitions_total",
		Help: "Total number of conversation step transitions, by from and to step.",
	}, []string{"from", "to"})

	// RejectedInputTotal counts inputs that did not fit the current step.
	RejectedInputTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_rejected_input_total",
		Help: "Total number of rejected user inputs, by step.",
	}, []string{"step"})

	// StatusEditsTotal counts status message operations by result.
	StatusEditsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_status_edits_total",
		Help: "Total number of status message operations, by op and result (ok/skipped/error).",
	}, []string{"op", "result"})

	// TelegramRequests counts Bot API calls by method and result.
	TelegramRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_telegram_requests_total",
		Help: "Total number of Bot API requests, by method and result (ok/api_error/error).",
	}, []string{"method", "result"})

	// HandlerPanics counts recovered panics in update handling and jobs.
	HandlerPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_panics_total",
		Help: "Total number of recovered panics, by component.",
	}, []string{"component"})
)

// RecordUpdate increments the update counter.
func RecordUpdate(kind string) {
	UpdatesTotal.WithLabelValues(kind).Inc()
}

// RecordTransition increments the transition counter.
func RecordTransition(from, to string) {
	TransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordRejectedInput increments the rejected input counter.
func RecordRejectedInput(step string) {
	RejectedInputTotal.WithLabelValues(step).Inc()
}

// RecordStatusEdit increments the status edit counter.
func RecordStatusEdit(op, result string) {
	StatusEditsTotal.WithLabelValues(op, result).Inc()
}

// RecordTelegramRequest increments the Bot API request counter.
func RecordTelegramRequest(method, result string) {
	TelegramRequests.WithLabelValues(method, result).Inc()
}

// RecordPanic increments the recovered panic counter.
func RecordPanic(component string) {
	HandlerPanics.WithLabelValues(component).Inc()
}

// CounterValue returns the current value of one counter in vec (for testing).
func CounterValue(vec *prometheus.CounterVec, labels ...string) float64 {
	var m dto.Metric
	if err := vec.WithLabelValues(labels...).Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
