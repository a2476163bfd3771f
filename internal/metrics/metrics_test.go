package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordJob_IncrementsCounter(t *testing.T) {
	initial := CounterValue(JobsTotal, "completed")

	RecordJob("completed", 3.5)

	assert.Equal(t, initial+1, CounterValue(JobsTotal, "completed"))
}

func TestRecordTransfer_SkipsZeroBytes(t *testing.T) {
	initialBytes := CounterValue(TransferBytes, "upload")
	initialErrs := CounterValue(TransferTotal, "upload", "error")

	RecordTransfer("upload", "error", 0)

	assert.Equal(t, initialBytes, CounterValue(TransferBytes, "upload"))
	assert.Equal(t, initialErrs+1, CounterValue(TransferTotal, "upload", "error"))

	RecordTransfer("upload", "ok", 2048)
	assert.Equal(t, initialBytes+2048, CounterValue(TransferBytes, "upload"))
}

func TestProcCounters(t *testing.T) {
	initial := CounterValue(procTerminateTotal, "SIGTERM", "sent")
	IncProcTerminate("SIGTERM", "sent")
	assert.Equal(t, initial+1, CounterValue(procTerminateTotal, "SIGTERM", "sent"))

	initialWait := CounterValue(procWaitTotal, "forced_error")
	IncProcWait("forced_error")
	assert.Equal(t, initialWait+1, CounterValue(procWaitTotal, "forced_error"))
}
