// Package cartoon drives a visitor's photo through upload, style selection
// and generation.
//
// Each session moves Upload -> StyleSelect -> Generating -> Settled. A failed
// generation returns to StyleSelect. Settled sessions can go back to
// StyleSelect (another style) or Upload (new photo).
package cartoon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/BradenHooton/inspireokc/internal/services"
)

const generationFailedMessage = "We couldn't create your cartoon. Please try again."

// Uploader stores a photo and records its metadata.
type Uploader interface {
	Upload(ctx context.Context, fingerprint string, identity *models.Identity, in services.UploadInput) (*models.Upload, error)
}

// Options tunes the cosmetic progress simulation.
type Options struct {
	// ProgressInterval is the time between progress ticks.
	ProgressInterval time.Duration
	// ProgressCeiling is the highest simulated value before the model answers.
	ProgressCeiling int
	// Step returns the increment for one tick.
	Step func() int
	// Now is the session clock.
	Now func() time.Time
}

// DefaultOptions advance 5 to 15 points every 600ms up to 90.
func DefaultOptions() Options {
	return Options{
		ProgressInterval: 600 * time.Millisecond,
		ProgressCeiling:  90,
		Step:             func() int { return 5 + rand.Intn(11) },
		Now:              time.Now,
	}
}

// Orchestrator owns the cartoon sessions.
type Orchestrator struct {
	uploader Uploader
	gate     services.LimitGate
	model    services.ImageModel
	events   services.EventRecorder
	logger   *slog.Logger
	opts     Options
	sessions *store
	wg       sync.WaitGroup
}

// New creates an Orchestrator. Zero fields of opts take their defaults.
func New(uploader Uploader, gate services.LimitGate, model services.ImageModel, events services.EventRecorder, logger *slog.Logger, opts Options) *Orchestrator {
	defaults := DefaultOptions()
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = defaults.ProgressInterval
	}
	if opts.ProgressCeiling <= 0 || opts.ProgressCeiling >= 100 {
		opts.ProgressCeiling = defaults.ProgressCeiling
	}
	if opts.Step == nil {
		opts.Step = defaults.Step
	}
	if opts.Now == nil {
		opts.Now = defaults.Now
	}

	return &Orchestrator{
		uploader: uploader,
		gate:     gate,
		model:    model,
		events:   events,
		logger:   logger,
		opts:     opts,
		sessions: newStore(opts.Now),
	}
}

// Start opens a new session at the Upload step.
func (o *Orchestrator) Start(fingerprint string, identity *models.Identity) *Session {
	return o.sessions.create(fingerprint, identity)
}

// Get returns a snapshot of the session.
func (o *Orchestrator) Get(id string) (*Session, error) {
	return o.sessions.get(id)
}

// Upload stores the photo and moves the session to StyleSelect.
// Files outside the type and size limits are rejected before storage is touched
// and the session stays at Upload.
func (o *Orchestrator) Upload(ctx context.Context, id string, in services.UploadInput) (*Session, error) {
	session, err := o.sessions.get(id)
	if err != nil {
		return nil, err
	}
	if session.Step != StepUpload {
		return nil, fmt.Errorf("%w: upload not allowed at step %s", models.ErrInvalidState, session.Step)
	}

	if err := services.ValidateUpload(in); err != nil {
		o.setError(id, err.Error())
		return nil, err
	}

	upload, err := o.uploader.Upload(ctx, session.Fingerprint, session.Identity, in)
	if err != nil {
		o.setError(id, "Upload failed. Please try again.")
		return nil, err
	}

	o.events.Record(ctx, o.event(session, models.EventUpload, map[string]string{"upload_id": upload.ID}))

	return o.sessions.update(id, func(s *Session) error {
		if s.Step != StepUpload {
			return fmt.Errorf("%w: session moved during upload", models.ErrInvalidState)
		}
		s.Step = StepStyleSelect
		s.UploadID = upload.ID
		s.SourceURL = upload.FileURL
		s.Error = ""
		return nil
	})
}

// SelectStyle records the chosen catalog style.
func (o *Orchestrator) SelectStyle(id, styleID string) (*Session, error) {
	style, ok := models.StyleByID(styleID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownStyle, styleID)
	}
	return o.sessions.update(id, func(s *Session) error {
		if s.Step != StepStyleSelect {
			return fmt.Errorf("%w: style selection not allowed at step %s", models.ErrInvalidState, s.Step)
		}
		s.StyleID = style.ID
		s.LoadingMessage = style.LoadingMessage
		return nil
	})
}

// StartGeneration checks the daily limit and launches the model call.
// It returns once the session is Generating; poll Get or call Wait for the outcome.
// A denied check returns *models.LimitExceededError and leaves the session at StyleSelect.
func (o *Orchestrator) StartGeneration(ctx context.Context, id string) (*Session, error) {
	session, err := o.sessions.get(id)
	if err != nil {
		return nil, err
	}
	if session.Step != StepStyleSelect {
		return nil, fmt.Errorf("%w: generation not allowed at step %s", models.ErrInvalidState, session.Step)
	}
	style, ok := models.StyleByID(session.StyleID)
	if !ok {
		return nil, fmt.Errorf("%w: select a style first", models.ErrInvalidState)
	}

	status, err := o.gate.CheckLimit(ctx, session.Fingerprint, session.Identity)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		_, _ = o.sessions.update(id, func(s *Session) error {
			s.Limit = status
			return nil
		})
		return nil, &models.LimitExceededError{Status: status}
	}

	done := make(chan struct{})
	started, err := o.sessions.update(id, func(s *Session) error {
		if s.Step != StepStyleSelect {
			return fmt.Errorf("%w: generation already started", models.ErrInvalidState)
		}
		s.Step = StepGenerating
		s.Progress = 0
		s.ResultURL = ""
		s.Error = ""
		s.Limit = status
		s.LoadingMessage = style.LoadingMessage
		s.done = done
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.events.Record(ctx, o.event(started, models.EventGenerateClick, map[string]string{"style": style.ID}))

	o.wg.Add(1)
	go o.run(context.WithoutCancel(ctx), started, style, done)

	return started, nil
}

// Generate starts a generation and waits for it to settle.
func (o *Orchestrator) Generate(ctx context.Context, id string) (*Session, error) {
	if _, err := o.StartGeneration(ctx, id); err != nil {
		return nil, err
	}
	if err := o.Wait(ctx, id); err != nil {
		return nil, err
	}
	session, err := o.sessions.get(id)
	if err != nil {
		return nil, err
	}
	if session.Step != StepSettled {
		return session, fmt.Errorf("%w: %s", models.ErrUpstream, session.Error)
	}
	return session, nil
}

// Wait blocks until the session's current generation settles or ctx ends.
// It returns immediately when nothing is running.
func (o *Orchestrator) Wait(ctx context.Context, id string) error {
	session, err := o.sessions.get(id)
	if err != nil {
		return err
	}
	if session.done == nil {
		return nil
	}
	select {
	case <-session.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) run(ctx context.Context, session *Session, style models.Style, done chan struct{}) {
	defer o.wg.Done()
	defer close(done)

	progressCtx, stopProgress := context.WithCancel(ctx)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		o.simulateProgress(progressCtx, session.ID)
	}()

	resultURL, err := o.model.Transform(ctx, session.SourceURL, style)

	stopProgress()
	<-progressDone

	if err != nil {
		o.logger.Error("cartoon generation failed",
			slog.String("session_id", session.ID),
			slog.String("style", style.ID),
			slog.Any("error", err))
		o.events.Record(ctx, o.event(session, models.EventGenerateFailure, map[string]string{"style": style.ID}))
		_, _ = o.sessions.update(session.ID, func(s *Session) error {
			s.Step = StepStyleSelect
			s.Progress = 0
			s.Error = generationFailedMessage
			return nil
		})
		return
	}

	status, err := o.gate.IncrementUsage(ctx, session.Fingerprint, session.Identity)
	if err != nil {
		o.logger.Error("failed to record generation usage",
			slog.String("session_id", session.ID),
			slog.Any("error", err))
		status = nil
	}

	o.events.Record(ctx, o.event(session, models.EventGenerateSuccess, map[string]string{"style": style.ID}))
	_, _ = o.sessions.update(session.ID, func(s *Session) error {
		s.Step = StepSettled
		s.Progress = 100
		s.ResultURL = resultURL
		if status != nil {
			s.Limit = status
		}
		return nil
	})
}

// TryAnotherStyle returns a settled session to style selection, keeping the photo.
func (o *Orchestrator) TryAnotherStyle(id string) (*Session, error) {
	return o.sessions.update(id, func(s *Session) error {
		if s.Step != StepSettled {
			return fmt.Errorf("%w: nothing to reset at step %s", models.ErrInvalidState, s.Step)
		}
		s.Step = StepStyleSelect
		s.StyleID = ""
		s.Progress = 0
		s.ResultURL = ""
		s.Error = ""
		s.done = nil
		return nil
	})
}

// NewPhoto returns a settled session to the upload step.
func (o *Orchestrator) NewPhoto(id string) (*Session, error) {
	return o.sessions.update(id, func(s *Session) error {
		if s.Step != StepSettled {
			return fmt.Errorf("%w: nothing to reset at step %s", models.ErrInvalidState, s.Step)
		}
		s.Step = StepUpload
		s.UploadID = ""
		s.SourceURL = ""
		s.StyleID = ""
		s.LoadingMessage = ""
		s.Progress = 0
		s.ResultURL = ""
		s.Error = ""
		s.done = nil
		return nil
	})
}

// Sweep removes sessions idle for longer than maxIdle.
func (o *Orchestrator) Sweep(maxIdle time.Duration) int {
	return o.sessions.sweep(maxIdle)
}

// Len reports the number of live sessions.
func (o *Orchestrator) Len() int {
	return o.sessions.len()
}

// Shutdown waits for running generations to settle or ctx to end.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) setError(id, message string) {
	_, err := o.sessions.update(id, func(s *Session) error {
		s.Error = message
		return nil
	})
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		o.logger.Warn("failed to record session error", slog.Any("error", err))
	}
}

func (o *Orchestrator) event(session *Session, eventType string, metadata map[string]string) *models.Event {
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["session_id"] = session.ID
	event := &models.Event{
		Type:        eventType,
		Fingerprint: session.Fingerprint,
		Page:        "teefeeme",
		Metadata:    metadata,
	}
	if session.Identity != nil {
		userID := session.Identity.UserID
		event.UserID = &userID
	}
	return event
}
