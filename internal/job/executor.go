// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package job runs watermark jobs: download, render, upload, clean up.
package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/ManuGH/vidmark/internal/filtergraph"
	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/metrics"
	"github.com/ManuGH/vidmark/internal/records"
	"github.com/ManuGH/vidmark/internal/status"
	"github.com/ManuGH/vidmark/internal/telemetry"
	"github.com/ManuGH/vidmark/internal/transcoder"
	"github.com/ManuGH/vidmark/internal/transfer"
	"github.com/ManuGH/vidmark/internal/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// FailureText is sent to the user when a job fails for any reason.
const FailureText = "Failed to process video."

// DefaultCaption accompanies every delivered video.
const DefaultCaption = "Watermarked with ❤️ by Video Watermark Bot"

const (
	DefaultTimeout = 30 * time.Minute
	notifyTimeout  = 15 * time.Second
)

// Transferer moves media between the platform and local files.
type Transferer interface {
	Download(ctx context.Context, ref transport.MediaRef, dest string, onProgress func(transfer.Progress)) error
	Upload(ctx context.Context, chat transport.ChatID, path, caption string, onProgress func(transfer.Progress)) (transport.MessageRef, error)
}

// Deps are the collaborators of an Executor.
type Deps struct {
	Transport  transport.Transport
	Transfer   Transferer
	Transcoder transcoder.Transcoder
	Status     *status.Reporter
	Records    records.Repository // optional
	Tracer     trace.Tracer       // optional
}

// Options tunes an Executor.
type Options struct {
	Timeout  time.Duration // whole job, including the transcoder
	FontFile string
	Caption  string
}

// Executor runs one job at a time per call; it is safe for concurrent use.
type Executor struct {
	deps Deps
	opts Options
	now  func() time.Time

	// OnFinished runs after cleanup, exactly once per Run.
	OnFinished func(spec Spec, res Result)
}

// NewExecutor returns an Executor.
func NewExecutor(deps Deps, opts Options) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Caption == "" {
		opts.Caption = DefaultCaption
	}
	if deps.Tracer == nil {
		deps.Tracer = telemetry.Tracer("vidmark.job")
	}
	if deps.Status == nil {
		deps.Status = status.NewReporter(deps.Transport)
	}
	return &Executor{deps: deps, opts: opts, now: time.Now}
}

// Run executes spec to completion. It never panics and always removes the
// job's temporary files before returning.
func (e *Executor) Run(ctx context.Context, spec Spec) (res Result) {
	start := e.now()
	res = Result{JobID: spec.ID}

	ctx = log.ContextWithJobID(log.ContextWithUserID(ctx, spec.UserID), spec.ID)
	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	ctx, span := e.deps.Tracer.Start(ctx, "job.run", trace.WithAttributes(
		telemetry.JobAttributes(spec.ID, string(spec.Config.Kind), string(spec.Config.Position), string(spec.Config.Size))...,
	))
	logger := log.WithContext(ctx, log.WithComponent("job"))

	metrics.JobsActive.Inc()
	var h *status.Handle

	defer func() {
		if r := recover(); r != nil {
			metrics.RecordPanic("job")
			logger.Error().
				Str(log.FieldEvent, "job.panic").
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("job panicked")
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("job panic: %v", r)
			e.notifyFailure(ctx, spec, h)
		}
		res.Duration = e.now().Sub(start)

		e.recordStatus(ctx, spec.ID, res.Outcome)
		e.cleanup(ctx, spec)

		metrics.JobsActive.Dec()
		metrics.RecordJob(string(res.Outcome), res.Duration.Seconds())
		span.SetAttributes(attribute.String(telemetry.JobOutcomeKey, string(res.Outcome)))
		telemetry.EndSpan(span, res.Err, string(res.Outcome))

		if e.OnFinished != nil {
			e.OnFinished(spec, res)
		}
	}()

	logger.Info().
		Str(log.FieldEvent, "job.started").
		Str("kind", string(spec.Config.Kind)).
		Str("position", string(spec.Config.Position)).
		Str("size", string(spec.Config.Size)).
		Str("opacity", spec.Config.Opacity.String()).
		Msg("job started")

	h = e.deps.Status.Open(ctx, spec.ChatID, status.InitialText)
	e.createRecord(ctx, spec)

	if err := e.process(ctx, spec, h); err != nil {
		res.Err = err
		res.Outcome = OutcomeFailed
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			res.Outcome = OutcomeCanceled
		}
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "job.failed").
			Str(log.FieldOutcome, string(res.Outcome)).
			Msg("job failed")
		e.notifyFailure(ctx, spec, h)
		return res
	}

	e.deps.Status.Close(ctx, h)
	res.Outcome = OutcomeCompleted
	logger.Info().
		Str(log.FieldEvent, "job.completed").
		Dur("elapsed", e.now().Sub(start)).
		Msg("job completed")
	return res
}

func (e *Executor) process(ctx context.Context, spec Spec, h *status.Handle) error {
	rep := e.deps.Status

	// download
	stageStart := time.Now()
	dctx, dspan := e.deps.Tracer.Start(ctx, "job.download", trace.WithAttributes(
		telemetry.MediaAttributes(spec.Source.MimeType, spec.Source.Size)...,
	))
	err := e.deps.Transfer.Download(dctx, spec.Source, spec.InputPath, func(p transfer.Progress) {
		rep.Progress(ctx, h, status.StageDownload, p.Percent())
	})
	telemetry.EndSpan(dspan, err, "transfer")
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	metrics.ObserveStage("download", time.Since(stageStart).Seconds())

	// compile
	expr, err := filtergraph.Compile(spec.Config, filtergraph.Options{FontFile: e.opts.FontFile})
	if err != nil {
		return err
	}

	// transform
	stageStart = time.Now()
	rep.Update(ctx, h, string(status.StageProcess))
	tctx, tspan := e.deps.Tracer.Start(ctx, "job.transform")
	total := time.Duration(spec.Source.Duration) * time.Second
	err = e.deps.Transcoder.Transform(tctx, spec.InputPath, expr, spec.OutputPath, func(d time.Duration) {
		if total > 0 {
			rep.Progress(ctx, h, status.StageProcess, float64(d)*100/float64(total))
		}
	})
	telemetry.EndSpan(tspan, err, "transcoder")
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	metrics.ObserveStage("process", time.Since(stageStart).Seconds())

	// upload
	stageStart = time.Now()
	uctx, uspan := e.deps.Tracer.Start(ctx, "job.upload")
	_, err = e.deps.Transfer.Upload(uctx, spec.ChatID, spec.OutputPath, e.opts.Caption, func(p transfer.Progress) {
		rep.Progress(ctx, h, status.StageUpload, p.Percent())
	})
	telemetry.EndSpan(uspan, err, "transfer")
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	metrics.ObserveStage("upload", time.Since(stageStart).Seconds())
	return nil
}

// detached returns a context for bookkeeping that must run even after the
// job context was canceled or timed out.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
}

func (e *Executor) notifyFailure(ctx context.Context, spec Spec, h *status.Handle) {
	nctx, cancel := detached(ctx)
	defer cancel()
	e.deps.Status.Close(nctx, h)
	if _, err := e.deps.Transport.Send(nctx, spec.ChatID, transport.Message{Text: FailureText}); err != nil {
		logger := log.WithContext(ctx, log.WithComponent("job"))
		logger.Debug().Err(err).Msg("failure notice not delivered")
	}
}

func (e *Executor) createRecord(ctx context.Context, spec Spec) {
	if e.deps.Records == nil {
		return
	}
	err := e.deps.Records.CreateJob(ctx, records.Job{
		ID:            spec.ID,
		TelegramID:    spec.UserID,
		FileID:        spec.Source.FileID,
		Status:        records.JobProcessing,
		WatermarkType: spec.Config.Kind,
		Settings: records.JobSettings{
			Position: spec.Config.Position,
			Size:     spec.Config.Size,
			Opacity:  spec.Config.Opacity,
		},
		CreatedAt: spec.CreatedAt,
	})
	if err != nil {
		logger := log.WithContext(ctx, log.WithComponent("job"))
		logger.Warn().Err(err).Str(log.FieldEvent, "job.record_failed").Msg("job record not created")
	}
}

func (e *Executor) recordStatus(ctx context.Context, id string, outcome Outcome) {
	if e.deps.Records == nil {
		return
	}
	st := records.JobFailed
	if outcome == OutcomeCompleted {
		st = records.JobCompleted
	}
	rctx, cancel := detached(ctx)
	defer cancel()
	if err := e.deps.Records.UpdateJobStatus(rctx, id, st); err != nil {
		logger := log.WithContext(ctx, log.WithComponent("job"))
		logger.Warn().Err(err).Str(log.FieldEvent, "job.record_failed").Msg("job status not recorded")
	}
}

// cleanup removes every temp file of spec. Missing files are fine; other
// errors are logged and never change the job outcome.
func (e *Executor) cleanup(ctx context.Context, spec Spec) {
	var errs []error
	for _, path := range spec.tempFiles() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			metrics.IncCleanupErrors()
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger := log.WithContext(ctx, log.WithComponent("job"))
		logger.Warn().
			Err(err).
			Str(log.FieldEvent, "cleanup_failed").
			Msg("temporary files not removed")
	}
}
