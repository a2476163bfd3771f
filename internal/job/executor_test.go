// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
	"github.com/ManuGH/vidmark/internal/records"
	"github.com/ManuGH/vidmark/internal/testutil"
	"github.com/ManuGH/vidmark/internal/transcoder"
	"github.com/ManuGH/vidmark/internal/transfer"
	"github.com/ManuGH/vidmark/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type harness struct {
	tr       *testutil.FakeTransport
	repo     *records.MemoryRepository
	spans    *tracetest.SpanRecorder
	exec     *Executor
	workDir  string
	mu       sync.Mutex
	finished []Result
}

func newHarness(t *testing.T, tc transcoder.Transcoder, opts Options) *harness {
	t.Helper()
	h := &harness{
		tr:      testutil.NewFakeTransport(),
		repo:    records.NewMemoryRepository(),
		spans:   tracetest.NewSpanRecorder(),
		workDir: t.TempDir(),
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.spans))
	h.exec = NewExecutor(Deps{
		Transport:  h.tr,
		Transfer:   transfer.NewManager(h.tr, transfer.Options{}),
		Transcoder: tc,
		Records:    h.repo,
		Tracer:     tp.Tracer("test"),
	}, opts)
	h.exec.OnFinished = func(_ Spec, res Result) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.finished = append(h.finished, res)
	}
	h.tr.AddFile("vid1", []byte("source video bytes"))
	return h
}

func (h *harness) results() []Result {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Result(nil), h.finished...)
}

func (h *harness) spec(cfg model.Configuration) Spec {
	src := transport.MediaRef{Kind: transport.MediaVideo, FileID: "vid1", MimeType: "video/mp4", Size: 18, Duration: 10}
	return NewSpec(h.workDir, "42", "42", src, cfg, time.Unix(1700000000, 0))
}

func textConfig() model.Configuration {
	return model.Configuration{
		Kind: model.KindText, Content: "Sample", Position: model.PositionBottomRight,
		Size: model.SizeMedium, Opacity: model.Opacity50,
	}
}

// writeOutput is a transcoder that succeeds and reports progress.
func writeOutput(_ context.Context, input, _ string, output string, onProgress func(time.Duration)) error {
	if _, err := os.Stat(input); err != nil {
		return err
	}
	onProgress(5 * time.Second)
	onProgress(10 * time.Second)
	return os.WriteFile(output, []byte("watermarked"), 0o600)
}

func assertGone(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		_, err := os.Stat(p)
		assert.True(t, os.IsNotExist(err), "%s should be removed", p)
	}
}

func TestNewSpec_Paths(t *testing.T) {
	spec := NewSpec("/work", "42", "42", transport.MediaRef{}, textConfig(), time.Unix(0, 1234))
	assert.Equal(t, "/work/input_42_1234.mp4", spec.InputPath)
	assert.Equal(t, "/work/output_42_1234.mp4", spec.OutputPath)
	assert.Len(t, spec.ID, 36)

	other := NewSpec("/work", "42", "42", transport.MediaRef{}, textConfig(), time.Unix(0, 1234))
	assert.NotEqual(t, spec.ID, other.ID)
}

func TestRun_Success(t *testing.T) {
	var gotExpr string
	tc := transcoder.Func(func(ctx context.Context, in, expr, out string, fn func(time.Duration)) error {
		gotExpr = expr
		return writeOutput(ctx, in, expr, out, fn)
	})
	h := newHarness(t, tc, Options{Caption: "done"})
	spec := h.spec(textConfig())

	res := h.exec.Run(context.Background(), spec)
	require.NoError(t, res.Err)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Contains(t, gotExpr, "x=w-tw-10:y=h-th-10")

	ups := h.tr.Uploads()
	require.Len(t, ups, 1)
	assert.Equal(t, []byte("watermarked"), ups[0].Data)
	assert.Equal(t, "done", ups[0].Caption)

	// status message opened and deleted, no failure text
	assert.Len(t, h.tr.Deleted(), 1)
	assert.NotContains(t, h.tr.SentTexts(), FailureText)

	assertGone(t, spec.InputPath, spec.OutputPath)
	assert.Equal(t, []Result{res}, h.results())

	jobs, err := h.repo.RecentJobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, records.JobCompleted, jobs[0].Status)
	assert.NotNil(t, jobs[0].CompletedAt)

	var names []string
	for _, s := range h.spans.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{"job.download", "job.transform", "job.upload", "job.run"}, names)
}

func TestRun_TranscoderFailure(t *testing.T) {
	tc := transcoder.Func(func(_ context.Context, _, _, out string, _ func(time.Duration)) error {
		// partial output must be removed too
		_ = os.WriteFile(out, []byte("partial"), 0o600)
		return &transcoder.ExecutionError{ExitCode: 1, Stderr: []string{"Invalid data found"}}
	})
	h := newHarness(t, tc, Options{})
	spec := h.spec(textConfig())

	res := h.exec.Run(context.Background(), spec)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, transcoder.ErrExecution)

	last, ok := h.tr.LastSent()
	require.True(t, ok)
	assert.Equal(t, FailureText, last.Msg.Text)
	assert.Empty(t, h.tr.Uploads())
	assertGone(t, spec.InputPath, spec.OutputPath)

	results := h.results()
	require.Len(t, results, 1)
	assert.Equal(t, OutcomeFailed, results[0].Outcome)

	jobs, err := h.repo.RecentJobs(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, records.JobFailed, jobs[0].Status)
}

func TestRun_DownloadFailure(t *testing.T) {
	called := false
	tc := transcoder.Func(func(context.Context, string, string, string, func(time.Duration)) error {
		called = true
		return nil
	})
	h := newHarness(t, tc, Options{})
	h.tr.DownloadErr = errors.New("file is too big")

	res := h.exec.Run(context.Background(), h.spec(textConfig()))
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, transfer.ErrTransfer)
	assert.False(t, called)
	assert.Contains(t, h.tr.SentTexts(), FailureText)
}

func TestRun_UploadFailure(t *testing.T) {
	h := newHarness(t, transcoder.Func(writeOutput), Options{})
	h.tr.UploadErr = errors.New("request entity too large")
	spec := h.spec(textConfig())

	res := h.exec.Run(context.Background(), spec)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, transfer.ErrTransfer)
	assertGone(t, spec.InputPath, spec.OutputPath)
}

func TestRun_RemovesWatermarkImage(t *testing.T) {
	h := newHarness(t, transcoder.Func(writeOutput), Options{})
	img := filepath.Join(h.workDir, "wm_42_1.jpg")
	require.NoError(t, os.WriteFile(img, []byte("jpeg"), 0o600))

	cfg := model.Configuration{Kind: model.KindImage, Content: img, Position: model.PositionCenter, Size: model.SizeSmall, Opacity: model.Opacity100}
	res := h.exec.Run(context.Background(), h.spec(cfg))
	require.NoError(t, res.Err)
	assertGone(t, img)
}

func TestRun_TimeoutKillsAndCleansUp(t *testing.T) {
	tc := transcoder.Func(func(ctx context.Context, _, _, out string, _ func(time.Duration)) error {
		_ = os.WriteFile(out, []byte("partial"), 0o600)
		<-ctx.Done()
		return &transcoder.ExecutionError{ExitCode: -1, Err: ctx.Err()}
	})
	h := newHarness(t, tc, Options{Timeout: 50 * time.Millisecond})
	spec := h.spec(textConfig())

	res := h.exec.Run(context.Background(), spec)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Contains(t, h.tr.SentTexts(), FailureText, "the notice is sent even though the job context expired")
	assertGone(t, spec.InputPath, spec.OutputPath)
}

func TestRun_ParentCancelIsCanceledOutcome(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tc := transcoder.Func(func(ctx context.Context, _, _, _ string, _ func(time.Duration)) error {
		cancel()
		<-ctx.Done()
		return &transcoder.ExecutionError{ExitCode: -1, Err: ctx.Err()}
	})
	h := newHarness(t, tc, Options{})

	res := h.exec.Run(ctx, h.spec(textConfig()))
	assert.Equal(t, OutcomeCanceled, res.Outcome)
}

func TestRun_PanicIsRecovered(t *testing.T) {
	tc := transcoder.Func(func(context.Context, string, string, string, func(time.Duration)) error {
		panic("boom")
	})
	h := newHarness(t, tc, Options{})
	spec := h.spec(textConfig())

	var res Result
	require.NotPanics(t, func() { res = h.exec.Run(context.Background(), spec) })
	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Error(t, res.Err)
	assert.Contains(t, h.tr.SentTexts(), FailureText)
	assertGone(t, spec.InputPath)
	assert.Len(t, h.results(), 1, "OnFinished runs exactly once")
}

func TestRun_InvalidConfigFailsAfterDownload(t *testing.T) {
	h := newHarness(t, transcoder.Func(writeOutput), Options{})
	spec := h.spec(model.Configuration{Kind: model.KindText})

	res := h.exec.Run(context.Background(), spec)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assertGone(t, spec.InputPath)
}

func TestRun_StatusShowsStages(t *testing.T) {
	h := newHarness(t, transcoder.Func(writeOutput), Options{})
	res := h.exec.Run(context.Background(), h.spec(textConfig()))
	require.NoError(t, res.Err)

	var texts []string
	for _, e := range h.tr.Edits() {
		texts = append(texts, e.Text)
	}
	require.NotEmpty(t, texts)
	assert.Contains(t, texts[0], "📥 Downloading...")
	assert.Contains(t, texts, "⚙️ Processing...")
	assert.Contains(t, texts, "⚙️ Processing...\n████████░░░░░░░ 50.0%")
	assert.Contains(t, texts[len(texts)-1], "📤 Uploading...")
}
