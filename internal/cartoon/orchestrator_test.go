package cartoon_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/inspireokc/internal/cartoon"
	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/BradenHooton/inspireokc/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fp = "k2j9x-1pq3z"

type eventLog struct {
	mu    sync.Mutex
	types []string
}

func (e *eventLog) Record(ctx context.Context, event *models.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, event.Type)
}

func (e *eventLog) list() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.types...)
}

type harness struct {
	orch    *cartoon.Orchestrator
	objects *services.MockObjectStore
	limits  *services.MemoryGenerationLimitStore
	model   *services.MockImageModel
	events  *eventLog
	gate    *services.GenerationLimitService
}

func newHarness(t *testing.T, opts cartoon.Options) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		objects: &services.MockObjectStore{},
		limits:  services.NewMemoryGenerationLimitStore(),
		model:   &services.MockImageModel{},
		events:  &eventLog{},
	}
	clock := func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }
	h.gate = services.NewGenerationLimitService(h.limits, &services.MockFriendRepository{}, &services.MockAdminLookup{}, clock, logger)
	uploader := services.NewUploadService(h.objects, &services.MockUploadRepository{}, "uploads", logger)
	if opts.ProgressInterval == 0 {
		opts.ProgressInterval = time.Millisecond
	}
	h.orch = cartoon.New(uploader, h.gate, h.model, h.events, logger, opts)
	return h
}

func photo(contentType string, size int64) services.UploadInput {
	return services.UploadInput{
		Filename:    "me.png",
		ContentType: contentType,
		Size:        size,
		Body:        strings.NewReader(strings.Repeat("p", int(min(size, 64)))),
	}
}

func (h *harness) readyForGeneration(t *testing.T, styleID string) *cartoon.Session {
	t.Helper()
	session := h.orch.Start(fp, nil)
	_, err := h.orch.Upload(context.Background(), session.ID, photo("image/png", 64))
	require.NoError(t, err)
	session, err = h.orch.SelectStyle(session.ID, styleID)
	require.NoError(t, err)
	return session
}

func TestOrchestrator_HappyPath(t *testing.T) {
	h := newHarness(t, cartoon.Options{})
	session := h.orch.Start(fp, nil)
	assert.Equal(t, cartoon.StepUpload, session.Step)

	session, err := h.orch.Upload(context.Background(), session.ID, photo("image/png", 64))
	require.NoError(t, err)
	assert.Equal(t, cartoon.StepStyleSelect, session.Step)
	assert.Equal(t, "upload-1", session.UploadID)
	assert.Contains(t, session.SourceURL, "uploads/"+fp+"/")

	session, err = h.orch.SelectStyle(session.ID, "watercolor")
	require.NoError(t, err)
	assert.Equal(t, "watercolor", session.StyleID)
	assert.Equal(t, "Letting the paint dry...", session.LoadingMessage)

	session, err = h.orch.Generate(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, cartoon.StepSettled, session.Step)
	assert.Equal(t, 100, session.Progress)
	assert.Equal(t, "https://cdn.test/results/watercolor.png", session.ResultURL)
	require.NotNil(t, session.Limit)
	assert.Equal(t, 0, session.Limit.Remaining)

	record, err := h.limits.GetForDate(context.Background(), fp, "2026-05-01")
	require.NoError(t, err)
	assert.Equal(t, 1, record.Count)
	assert.Equal(t, 1, h.objects.PutCalls)

	assert.Equal(t, []string{models.EventUpload, models.EventGenerateClick, models.EventGenerateSuccess}, h.events.list())
}

func TestOrchestrator_UploadRejectedBeforeStorage(t *testing.T) {
	h := newHarness(t, cartoon.Options{})
	session := h.orch.Start(fp, nil)

	_, err := h.orch.Upload(context.Background(), session.ID, photo("image/jpeg", 11<<20))
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = h.orch.Upload(context.Background(), session.ID, photo("image/gif", 1024))
	assert.ErrorIs(t, err, models.ErrValidation)

	assert.Equal(t, 0, h.objects.PutCalls)
	current, err := h.orch.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, cartoon.StepUpload, current.Step)
	assert.NotEmpty(t, current.Error)
	assert.Empty(t, h.events.list())
}

func TestOrchestrator_UploadStorageFailureStaysAtUpload(t *testing.T) {
	h := newHarness(t, cartoon.Options{})
	h.objects.PutFunc = func(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
		return errors.New("bucket gone")
	}
	session := h.orch.Start(fp, nil)

	_, err := h.orch.Upload(context.Background(), session.ID, photo("image/webp", 10))

	assert.Error(t, err)
	current, _ := h.orch.Get(session.ID)
	assert.Equal(t, cartoon.StepUpload, current.Step)
}

func TestOrchestrator_LimitReached(t *testing.T) {
	h := newHarness(t, cartoon.Options{})
	h.limits.Seed(fp, "2026-05-01", 1)
	h.model.TransformFunc = func(ctx context.Context, imageURL string, style models.Style) (string, error) {
		t.Error("model must not be called over the limit")
		return "", nil
	}
	session := h.readyForGeneration(t, "anime")

	_, err := h.orch.StartGeneration(context.Background(), session.ID)

	require.ErrorIs(t, err, models.ErrLimitReached)
	var limitErr *models.LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.False(t, limitErr.Status.Allowed)

	current, _ := h.orch.Get(session.ID)
	assert.Equal(t, cartoon.StepStyleSelect, current.Step)
	require.NotNil(t, current.Limit)
	assert.Equal(t, 0, current.Limit.Remaining)
}

func TestOrchestrator_ModelFailureReturnsToStyleSelect(t *testing.T) {
	h := newHarness(t, cartoon.Options{})
	h.model.TransformFunc = func(ctx context.Context, imageURL string, style models.Style) (string, error) {
		return "", errors.New("upstream 500")
	}
	session := h.readyForGeneration(t, "comic-book")

	current, err := h.orch.Generate(context.Background(), session.ID)

	require.ErrorIs(t, err, models.ErrUpstream)
	assert.Equal(t, cartoon.StepStyleSelect, current.Step)
	assert.Equal(t, 0, current.Progress)
	assert.NotEmpty(t, current.Error)
	assert.Empty(t, current.ResultURL)

	_, err = h.limits.GetForDate(context.Background(), fp, "2026-05-01")
	assert.ErrorIs(t, err, models.ErrNotFound, "failed generations are not counted")
	assert.Contains(t, h.events.list(), models.EventGenerateFailure)
}

func TestOrchestrator_ProgressCapsBeforeCompletion(t *testing.T) {
	h := newHarness(t, cartoon.Options{
		ProgressInterval: time.Millisecond,
		Step:             func() int { return 30 },
	})
	release := make(chan struct{})
	h.model.TransformFunc = func(ctx context.Context, imageURL string, style models.Style) (string, error) {
		<-release
		return "https://cdn.test/done.png", nil
	}
	session := h.readyForGeneration(t, "pixel-art")

	started, err := h.orch.StartGeneration(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, cartoon.StepGenerating, started.Step)
	assert.Equal(t, 0, started.Progress)

	require.Eventually(t, func() bool {
		current, _ := h.orch.Get(session.ID)
		return current.Progress == 90
	}, 2*time.Second, 2*time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	current, _ := h.orch.Get(session.ID)
	assert.Equal(t, 90, current.Progress, "never passes the ceiling while generating")
	assert.Equal(t, cartoon.StepGenerating, current.Step)

	_, err = h.orch.StartGeneration(context.Background(), session.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState, "one generation at a time")

	close(release)
	require.NoError(t, h.orch.Wait(context.Background(), session.ID))

	current, _ = h.orch.Get(session.ID)
	assert.Equal(t, cartoon.StepSettled, current.Step)
	assert.Equal(t, 100, current.Progress)
}

func TestOrchestrator_InvalidTransitions(t *testing.T) {
	h := newHarness(t, cartoon.Options{})
	session := h.orch.Start(fp, nil)

	_, err := h.orch.SelectStyle(session.ID, "anime")
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = h.orch.StartGeneration(context.Background(), session.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = h.orch.TryAnotherStyle(session.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = h.orch.NewPhoto(session.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	_, err = h.orch.Upload(context.Background(), session.ID, photo("image/png", 10))
	require.NoError(t, err)

	_, err = h.orch.StartGeneration(context.Background(), session.ID)
	assert.ErrorIs(t, err, models.ErrInvalidState, "style must be chosen first")

	_, err = h.orch.SelectStyle(session.ID, "oil-painting")
	assert.ErrorIs(t, err, models.ErrUnknownStyle)

	_, err = h.orch.Upload(context.Background(), session.ID, photo("image/png", 10))
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestOrchestrator_Resets(t *testing.T) {
	h := newHarness(t, cartoon.Options{})
	session := h.readyForGeneration(t, "anime")
	settled, err := h.orch.Generate(context.Background(), session.ID)
	require.NoError(t, err)

	again, err := h.orch.TryAnotherStyle(settled.ID)
	require.NoError(t, err)
	assert.Equal(t, cartoon.StepStyleSelect, again.Step)
	assert.Equal(t, settled.SourceURL, again.SourceURL)
	assert.Empty(t, again.StyleID)
	assert.Empty(t, again.ResultURL)
	assert.Equal(t, 0, again.Progress)

	_, err = h.orch.SelectStyle(again.ID, "anime")
	require.NoError(t, err)
	_, err = h.orch.StartGeneration(context.Background(), again.ID)
	assert.ErrorIs(t, err, models.ErrLimitReached, "anonymous visitors get one per day")
}

func TestOrchestrator_NewPhoto(t *testing.T) {
	h := newHarness(t, cartoon.Options{})
	session := h.readyForGeneration(t, "anime")
	_, err := h.orch.Generate(context.Background(), session.ID)
	require.NoError(t, err)

	fresh, err := h.orch.NewPhoto(session.ID)

	require.NoError(t, err)
	assert.Equal(t, cartoon.StepUpload, fresh.Step)
	assert.Empty(t, fresh.SourceURL)
	assert.Empty(t, fresh.UploadID)
	assert.Empty(t, fresh.ResultURL)
}

func TestOrchestrator_Sweep(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	h := newHarness(t, cartoon.Options{Now: func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}})

	h.orch.Start(fp, nil)
	h.orch.Start("other-fp", nil)
	assert.Equal(t, 2, h.orch.Len())

	assert.Equal(t, 0, h.orch.Sweep(2*time.Hour))

	mu.Lock()
	now = now.Add(3 * time.Hour)
	mu.Unlock()
	kept := h.orch.Start(fp, nil)

	assert.Equal(t, 2, h.orch.Sweep(2*time.Hour))
	assert.Equal(t, 1, h.orch.Len())
	_, err := h.orch.Get(kept.ID)
	assert.NoError(t, err)
}

func TestOrchestrator_UnknownSession(t *testing.T) {
	h := newHarness(t, cartoon.Options{})

	_, err := h.orch.Get("missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = h.orch.Upload(context.Background(), "missing", photo("image/png", 1))
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, h.orch.Wait(context.Background(), "missing"), models.ErrNotFound)
}

func TestSession_JSON(t *testing.T) {
	h := newHarness(t, cartoon.Options{})
	session := h.readyForGeneration(t, "anime")

	raw, err := json.Marshal(session)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "style", decoded["step"])
	assert.Equal(t, "anime", decoded["styleId"])
	assert.NotContains(t, decoded, "Fingerprint")
	assert.NotContains(t, decoded, "fingerprint")
}

func TestOrchestrator_Shutdown(t *testing.T) {
	h := newHarness(t, cartoon.Options{})
	release := make(chan struct{})
	h.model.TransformFunc = func(ctx context.Context, imageURL string, style models.Style) (string, error) {
		<-release
		return "https://cdn.test/x.png", nil
	}
	session := h.readyForGeneration(t, "anime")
	_, err := h.orch.StartGeneration(context.Background(), session.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, h.orch.Shutdown(ctx), context.DeadlineExceeded)

	close(release)
	assert.NoError(t, h.orch.Shutdown(context.Background()))
}
