package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_proc_terminate_total",
		Help: "Signals sent to child process groups, by signal and result (sent/esrch/error).",
	}, []string{"signal", "result"})

	procWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_proc_wait_total",
		Help: "Child process exits observed during termination, by result.",
	}, []string{"result"})

	// FFmpegExitTotal counts ffmpeg exits by exit code category.
	FFmpegExitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vidmark_ffmpeg_exit_total",
		Help: "Total number of ffmpeg process exits, by code category (ok/error/killed/empty_output).",
	}, []string{"code"})
)

// IncProcTerminate records a signal delivery attempt.
func IncProcTerminate(signal, result string) {
	procTerminateTotal.WithLabelValues(signal, result).Inc()
}

// IncProcWait records how a terminated process exited.
func IncProcWait(result string) {
	procWaitTotal.WithLabelValues(result).Inc()
}

// RecordFFmpegExit increments the ffmpeg exit counter.
func RecordFFmpegExit(code string) {
	FFmpegExitTotal.WithLabelValues(code).Inc()
}
