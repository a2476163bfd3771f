// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package conversation drives the per-user dialogue that collects a
// watermark configuration and hands the finished job to the worker pool.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vidmark/internal/domain/session/model"
	"github.com/ManuGH/vidmark/internal/domain/session/store"
	"github.com/ManuGH/vidmark/internal/job"
	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/metrics"
	"github.com/ManuGH/vidmark/internal/records"
	"github.com/ManuGH/vidmark/internal/transfer"
	"github.com/ManuGH/vidmark/internal/transport"
)

const finishTimeout = 10 * time.Second

// Submitter accepts jobs without blocking. *job.Pool implements it.
type Submitter interface {
	Submit(spec job.Spec) (job.Admission, error)
}

// Downloader fetches watermark images. *transfer.Manager implements it.
type Downloader interface {
	Download(ctx context.Context, ref transport.MediaRef, dest string, onProgress func(transfer.Progress)) error
}

// Deps are the collaborators of a Handler. Records may be nil.
type Deps struct {
	Transport transport.Transport
	Store     store.Store
	Jobs      Submitter
	Media     Downloader
	Records   records.Repository
}

// Options tune input limits and texts.
type Options struct {
	WorkDir        string
	MaxSourceBytes int64 // 0 disables the check
	MaxTextRunes   int
	Links          Links
}

// Handler processes inbound updates. Updates of one user are handled one at
// a time; different users proceed in parallel.
type Handler struct {
	deps Deps
	opts Options
	now  func() time.Time

	locks keyedMutex

	mu      sync.Mutex
	running map[string]struct{} // job ids submitted by this process
}

// NewHandler builds a Handler.
func NewHandler(deps Deps, opts Options) *Handler {
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}
	if opts.MaxTextRunes <= 0 {
		opts.MaxTextRunes = model.DefaultMaxTextRunes
	}
	return &Handler{
		deps:    deps,
		opts:    opts,
		now:     time.Now,
		running: make(map[string]struct{}),
	}
}

// Handle processes one update. It never panics.
func (h *Handler) Handle(ctx context.Context, upd transport.Update) {
	if upd.UserID == "" {
		metrics.RecordUpdate("other")
		return
	}
	ctx = log.ContextWithUserID(ctx, upd.UserID)
	defer h.recoverPanic(ctx)

	unlock := h.locks.Lock(upd.UserID)
	defer unlock()

	switch {
	case upd.Callback != nil:
		metrics.RecordUpdate("callback")
		h.onCallback(ctx, upd)
	case upd.Message != nil:
		h.onMessage(ctx, upd)
	default:
		metrics.RecordUpdate("other")
	}
}

// JobFinished returns the owning session to Idle. It is safe to call from
// any goroutine and ignores jobs the session no longer points at.
func (h *Handler) JobFinished(spec job.Spec, res job.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), finishTimeout)
	defer cancel()
	ctx = log.ContextWithJobID(log.ContextWithUserID(ctx, spec.UserID), spec.ID)
	defer h.recoverPanic(ctx)

	unlock := h.locks.Lock(spec.UserID)
	defer unlock()

	h.setRunning(spec.ID, false)

	logger := log.WithComponentFromContext(ctx, "conversation")
	sess, err := h.deps.Store.Get(ctx, spec.UserID)
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "session.load_failed").Msg("could not load session after job")
		return
	}
	if sess.ActiveJobID != spec.ID {
		logger.Debug().Str(log.FieldStep, string(sess.Step)).Msg("session moved on, nothing to reset")
		return
	}
	h.fire(ctx, sess, EventJobFinished)
	sess.Reset()
	if err := h.deps.Store.Put(ctx, sess); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "session.save_failed").Msg("could not reset session after job")
		return
	}
	logger.Info().
		Str(log.FieldEvent, "session.job_finished").
		Str(log.FieldOutcome, string(res.Outcome)).
		Msg("session back to idle")
}

func (h *Handler) recoverPanic(ctx context.Context) {
	if r := recover(); r != nil {
		metrics.RecordPanic("conversation")
		logger := log.WithComponentFromContext(ctx, "conversation")
		logger.Error().
			Str(log.FieldEvent, "handler.panic").
			Interface("panic", r).
			Msg("recovered panic in update handler")
	}
}

func (h *Handler) logger(ctx context.Context) *zerolog.Logger {
	l := log.WithComponentFromContext(ctx, "conversation")
	return &l
}

func (h *Handler) onMessage(ctx context.Context, upd transport.Update) {
	msg := upd.Message
	text := strings.TrimSpace(msg.Text)

	if msg.Media == nil {
		// only known commands; other "/..." text is ordinary input
		if cmd, ok := command(text); ok && h.onCommand(ctx, upd, cmd) {
			metrics.RecordUpdate("command")
			return
		}
	}

	sess, ok := h.session(ctx, upd)
	if !ok {
		return
	}

	if msg.Media != nil {
		metrics.RecordUpdate("media")
		media := *msg.Media
		switch {
		case sess.Step == model.StepAwaitingImage && media.IsImage():
			h.onImage(ctx, sess, media)
		case isVideo(media):
			h.onVideo(ctx, sess, media)
		default:
			h.reject(ctx, sess, "unexpected media")
		}
		return
	}

	metrics.RecordUpdate("text")
	if sess.Step == model.StepAwaitingText {
		h.onText(ctx, sess, msg.Text)
		return
	}
	h.reject(ctx, sess, "unexpected text")
}

func (h *Handler) onCallback(ctx context.Context, upd transport.Update) {
	cb := upd.Callback
	answer := ""
	defer func() {
		if err := h.deps.Transport.AnswerCallback(ctx, cb.ID, answer); err != nil {
			h.logger(ctx).Debug().Err(err).Msg("answer callback failed")
		}
	}()

	sess, ok := h.session(ctx, upd)
	if !ok {
		return
	}

	choice, err := model.ParseChoice(cb.Data)
	if err != nil {
		answer = NoticeUnknown
		h.logger(ctx).Warn().Err(err).Str(log.FieldStep, string(sess.Step)).Msg("unknown button payload")
		h.reject(ctx, sess, "unknown payload")
		return
	}

	ev := choiceEvent(choice)
	if !transitions.Allowed(sess.Step, ev) {
		h.reject(ctx, sess, "button not expected")
		return
	}

	switch choice.Kind {
	case model.ChoiceKindWatermark:
		err = sess.Config.SetKind(choice.Watermark)
	case model.ChoicePosition:
		err = sess.Config.SetPosition(choice.Position)
	case model.ChoiceSize:
		err = sess.Config.SetSize(choice.Size)
	case model.ChoiceOpacity:
		err = sess.Config.SetOpacity(choice.Opacity)
	}
	if err != nil {
		answer = NoticeUnknown
		h.reject(ctx, sess, err.Error())
		return
	}

	if ev == EventOpacity {
		h.submit(ctx, sess)
		return
	}

	h.fire(ctx, sess, ev)
	if !h.save(ctx, sess) {
		return
	}
	h.prompt(ctx, sess)
}

// onCommand runs a known command and reports whether cmd was one.
func (h *Handler) onCommand(ctx context.Context, upd transport.Update, cmd string) bool {
	switch cmd {
	case "/start":
		h.onStart(ctx, upd)
	case "/cancel":
		h.onCancel(ctx, upd)
	default:
		return false
	}
	return true
}

func (h *Handler) onStart(ctx context.Context, upd transport.Update) {
	h.send(ctx, upd.ChatID, transport.Message{
		Text:    WelcomeText(upd.Username, upd.FirstName),
		Buttons: h.opts.Links.keyboard(),
	})

	if h.deps.Records != nil {
		_, err := h.deps.Records.UpsertUser(ctx, records.User{
			TelegramID: upd.UserID,
			Username:   upd.Username,
			FirstName:  upd.FirstName,
		})
		if err != nil {
			h.logger(ctx).Warn().Err(err).Str(log.FieldEvent, "user.upsert_failed").Msg("could not record user")
		}
	}

	sess, ok := h.session(ctx, upd)
	if !ok {
		return
	}
	if h.jobRunning(sess) {
		return
	}
	h.discard(ctx, sess)
	h.save(ctx, sess)
}

func (h *Handler) onCancel(ctx context.Context, upd transport.Update) {
	sess, ok := h.session(ctx, upd)
	if !ok {
		return
	}
	if !sess.Step.Configuring() {
		h.send(ctx, sess.ChatID, transport.Message{Text: NoticeNothing})
		return
	}
	h.discard(ctx, sess)
	if h.save(ctx, sess) {
		h.send(ctx, sess.ChatID, transport.Message{Text: NoticeCanceled})
	}
}

func (h *Handler) onVideo(ctx context.Context, sess *model.Session, media transport.MediaRef) {
	if h.jobRunning(sess) {
		metrics.RecordRejectedInput(string(sess.Step))
		h.send(ctx, sess.ChatID, transport.Message{Text: NoticeJobActive})
		return
	}
	if !transitions.Allowed(sess.Step, EventVideo) {
		h.reject(ctx, sess, "video while configuring")
		return
	}
	if h.opts.MaxSourceBytes > 0 && media.Size > h.opts.MaxSourceBytes {
		metrics.RecordRejectedInput(string(sess.Step))
		h.logger(ctx).Info().
			Int64(log.FieldBytes, media.Size).
			Str(log.FieldEvent, "video.too_large").
			Msg("refusing video above size limit")
		h.send(ctx, sess.ChatID, transport.Message{Text: NoticeTooLarge})
		return
	}

	sess.Config = model.Configuration{}
	sess.ActiveJobID = ""
	sess.Source = &media
	h.fire(ctx, sess, EventVideo)
	if h.save(ctx, sess) {
		h.prompt(ctx, sess)
	}
}

func (h *Handler) onText(ctx context.Context, sess *model.Session, text string) {
	if err := sess.Config.SetText(text, h.opts.MaxTextRunes); err != nil {
		metrics.RecordRejectedInput(string(sess.Step))
		h.logger(ctx).Debug().Err(err).Msg("rejected watermark text")
		h.send(ctx, sess.ChatID, transport.Message{Text: fmt.Sprintf(NoticeBadText, h.opts.MaxTextRunes)})
		return
	}
	h.fire(ctx, sess, EventText)
	if h.save(ctx, sess) {
		h.prompt(ctx, sess)
	}
}

func (h *Handler) onImage(ctx context.Context, sess *model.Session, media transport.MediaRef) {
	dest := filepath.Join(h.opts.WorkDir, fmt.Sprintf("wm_%s_%d%s", sess.UserID, h.now().UnixNano(), imageExt(media)))
	if err := h.deps.Media.Download(ctx, media, dest, nil); err != nil {
		h.logger(ctx).Warn().Err(err).Str(log.FieldFileID, media.FileID).Msg("watermark image download failed")
		h.send(ctx, sess.ChatID, transport.Message{Text: NoticeImageFail})
		return
	}
	if err := sess.Config.SetImage(dest); err != nil {
		removeQuiet(ctx, dest)
		h.reject(ctx, sess, err.Error())
		return
	}
	h.fire(ctx, sess, EventImage)
	if !h.save(ctx, sess) {
		removeQuiet(ctx, dest)
		return
	}
	h.prompt(ctx, sess)
}

// submit hands the completed configuration to the pool. A full queue keeps
// the session in AwaitingOpacity so the user can press again later.
func (h *Handler) submit(ctx context.Context, sess *model.Session) {
	logger := h.logger(ctx)
	if err := sess.Config.Validate(); err != nil || sess.Source == nil {
		logger.Error().Err(err).Str(log.FieldEvent, "job.incomplete").Msg("configuration incomplete at submit")
		h.discard(ctx, sess)
		h.save(ctx, sess)
		h.send(ctx, sess.ChatID, transport.Message{Text: NoticeSubmitFail})
		return
	}

	spec := job.NewSpec(h.opts.WorkDir, sess.UserID, sess.ChatID, *sess.Source, sess.Config, h.now())
	h.setRunning(spec.ID, true)
	adm, err := h.deps.Jobs.Submit(spec)
	if err != nil {
		h.setRunning(spec.ID, false)
		metrics.RecordRejectedInput(string(sess.Step))
		if errors.Is(err, job.ErrBusy) {
			logger.Info().Str(log.FieldEvent, "job.busy").Msg("job queue full")
			h.save(ctx, sess)
			h.send(ctx, sess.ChatID, transport.Message{Text: NoticeBusy})
			return
		}
		logger.Error().Err(err).Str(log.FieldEvent, "job.submit_failed").Msg("job submit failed")
		h.send(ctx, sess.ChatID, transport.Message{Text: NoticeSubmitFail})
		return
	}

	sess.ActiveJobID = spec.ID
	h.fire(ctx, sess, EventOpacity)
	h.save(ctx, sess)
	logger.Info().
		Str(log.FieldJobID, spec.ID).
		Str(log.FieldEvent, "job.submitted").
		Bool("queued", adm.Queued).
		Int("position", adm.Position).
		Msg("job submitted")
	if adm.Queued {
		h.send(ctx, sess.ChatID, transport.Message{Text: fmt.Sprintf(NoticeQueued, adm.Position)})
	}
}

// reject keeps the step and reprompts when the step expects input.
func (h *Handler) reject(ctx context.Context, sess *model.Session, reason string) {
	metrics.RecordRejectedInput(string(sess.Step))
	h.logger(ctx).Debug().Str(log.FieldStep, string(sess.Step)).Str("reason", reason).Msg("input rejected")
	if !sess.Step.Configuring() {
		return
	}
	if sess.Step == model.StepAwaitingImage {
		h.send(ctx, sess.ChatID, transport.Message{Text: NoticeNeedImage})
		return
	}
	h.prompt(ctx, sess)
}

// prompt asks for the input the current step expects.
func (h *Handler) prompt(ctx context.Context, sess *model.Session) {
	var msg transport.Message
	switch sess.Step {
	case model.StepAwaitingType:
		msg = transport.Message{Text: PromptType, Buttons: typeKeyboard()}
	case model.StepAwaitingText:
		msg = transport.Message{Text: PromptText}
	case model.StepAwaitingImage:
		msg = transport.Message{Text: PromptImage}
	case model.StepAwaitingPosition:
		msg = transport.Message{Text: PromptPosition, Buttons: positionKeyboard()}
	case model.StepAwaitingSize:
		msg = transport.Message{Text: PromptSize, Buttons: sizeKeyboard()}
	case model.StepAwaitingOpacity:
		msg = transport.Message{Text: PromptOpacity, Buttons: opacityKeyboard()}
	default:
		return
	}
	h.send(ctx, sess.ChatID, msg)
}

// fire moves sess along ev. Callers check Allowed first.
func (h *Handler) fire(ctx context.Context, sess *model.Session, ev Event) {
	next, err := transitions.Next(sess.Step, ev)
	if err != nil {
		h.logger(ctx).Warn().Err(err).Msg("transition refused")
		return
	}
	metrics.RecordTransition(string(sess.Step), string(next))
	h.logger(ctx).Debug().
		Str(log.FieldOldStep, string(sess.Step)).
		Str(log.FieldNewStep, string(next)).
		Msg("step changed")
	sess.Step = next
}

// discard drops an unfinished configuration and any image it downloaded.
func (h *Handler) discard(ctx context.Context, sess *model.Session) {
	if sess.Config.Kind == model.KindImage && sess.Config.Content != "" && !sess.HasActiveJob() {
		removeQuiet(ctx, sess.Config.Content)
	}
	sess.Reset()
}

func (h *Handler) session(ctx context.Context, upd transport.Update) (*model.Session, bool) {
	sess, err := h.deps.Store.Get(ctx, upd.UserID)
	if err != nil {
		h.logger(ctx).Error().Err(err).Str(log.FieldEvent, "session.load_failed").Msg("could not load session")
		return nil, false
	}
	if upd.ChatID != "" {
		sess.ChatID = upd.ChatID
	}
	return sess, true
}

func (h *Handler) save(ctx context.Context, sess *model.Session) bool {
	if err := h.deps.Store.Put(ctx, sess); err != nil {
		h.logger(ctx).Error().Err(err).Str(log.FieldEvent, "session.save_failed").Msg("could not save session")
		return false
	}
	return true
}

func (h *Handler) send(ctx context.Context, chat transport.ChatID, msg transport.Message) {
	if _, err := h.deps.Transport.Send(ctx, chat, msg); err != nil {
		h.logger(ctx).Warn().Err(err).Msg("send message failed")
	}
}

// jobRunning reports whether the session's job is still owned by this
// process. Ids left over from a previous run are treated as finished.
func (h *Handler) jobRunning(sess *model.Session) bool {
	if !sess.HasActiveJob() {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.running[sess.ActiveJobID]
	return ok
}

func (h *Handler) setRunning(id string, on bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if on {
		h.running[id] = struct{}{}
	} else {
		delete(h.running, id)
	}
}

// command extracts "/name" from "/name@bot args".
func command(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text)[0]
	name, _, _ = strings.Cut(name, "@")
	return strings.ToLower(name), true
}

// isVideo accepts native videos and documents declared as video/*.
func isVideo(m transport.MediaRef) bool {
	return m.Kind == transport.MediaVideo || m.IsVideo()
}

func imageExt(m transport.MediaRef) string {
	if m.Kind == transport.MediaPhoto {
		return ".jpg"
	}
	switch strings.ToLower(m.MimeType) {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if ext := strings.ToLower(filepath.Ext(m.FileName)); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".jpg"
}

func removeQuiet(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger := log.WithComponentFromContext(ctx, "conversation")
		logger.Warn().Err(err).Str(log.FieldPath, path).Msg("remove failed")
	}
}
