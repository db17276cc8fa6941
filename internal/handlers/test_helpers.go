package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/BradenHooton/inspireokc/internal/auth"
	"github.com/BradenHooton/inspireokc/internal/cartoon"
	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/BradenHooton/inspireokc/internal/services"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithFingerprint attaches a resolved device fingerprint to the request
func WithFingerprint(req *http.Request, hash string) *http.Request {
	return req.WithContext(fingerprint.NewContext(req.Context(), hash))
}

// WithIdentityContext attaches an authenticated caller to the request
func WithIdentityContext(req *http.Request, userID, email string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &models.Identity{UserID: userID, Email: email}))
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockLimitChecker implements LimitChecker for testing
type MockLimitChecker struct {
	CheckLimitFunc func(ctx context.Context, fingerprint string, identity *models.Identity) (*models.LimitStatus, error)
}

func (m *MockLimitChecker) CheckLimit(ctx context.Context, fingerprint string, identity *models.Identity) (*models.LimitStatus, error) {
	if m.CheckLimitFunc == nil {
		return &models.LimitStatus{Allowed: true, Remaining: 1, DailyLimit: 1, Fingerprint: fingerprint}, nil
	}
	return m.CheckLimitFunc(ctx, fingerprint, identity)
}

// MockCartoonGenerator implements CartoonGenerator for testing
type MockCartoonGenerator struct {
	GenerateFunc func(ctx context.Context, fingerprint string, identity *models.Identity, imageURL, styleID string) (*services.GenerationResult, error)
}

func (m *MockCartoonGenerator) Generate(ctx context.Context, fingerprint string, identity *models.Identity, imageURL, styleID string) (*services.GenerationResult, error) {
	if m.GenerateFunc == nil {
		return nil, models.ErrUpstream
	}
	return m.GenerateFunc(ctx, fingerprint, identity, imageURL, styleID)
}

// MockChatStreamer implements ChatStreamer for testing
type MockChatStreamer struct {
	StreamFunc func(ctx context.Context, messages []models.ChatMessage, emit func(delta string) error) error
}

func (m *MockChatStreamer) Stream(ctx context.Context, messages []models.ChatMessage, emit func(delta string) error) error {
	if m.StreamFunc == nil {
		return nil
	}
	return m.StreamFunc(ctx, messages, emit)
}

// MockDeviceStore implements DeviceStore for testing
type MockDeviceStore struct {
	UpsertFunc func(ctx context.Context, fp *models.DeviceFingerprint) (*models.DeviceRecord, error)
}

func (m *MockDeviceStore) Upsert(ctx context.Context, fp *models.DeviceFingerprint) (*models.DeviceRecord, error) {
	if m.UpsertFunc == nil {
		return &models.DeviceRecord{ID: "device-1", Fingerprint: *fp}, nil
	}
	return m.UpsertFunc(ctx, fp)
}

// MockEventSink implements EventSink and keeps every recorded event
type MockEventSink struct {
	mu     sync.Mutex
	Events []*models.Event
}

func (m *MockEventSink) Record(ctx context.Context, event *models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

func (m *MockEventSink) HashIP(ip string) string {
	if ip == "" {
		return ""
	}
	return "hashed:" + ip
}

// Recorded returns a copy of the recorded events
func (m *MockEventSink) Recorded() []*models.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Event(nil), m.Events...)
}

// MockCartoonOrchestrator implements CartoonOrchestrator for testing
type MockCartoonOrchestrator struct {
	StartFunc           func(fingerprint string, identity *models.Identity) *cartoon.Session
	GetFunc             func(id string) (*cartoon.Session, error)
	UploadFunc          func(ctx context.Context, id string, in services.UploadInput) (*cartoon.Session, error)
	SelectStyleFunc     func(id, styleID string) (*cartoon.Session, error)
	StartGenerationFunc func(ctx context.Context, id string) (*cartoon.Session, error)
	TryAnotherStyleFunc func(id string) (*cartoon.Session, error)
	NewPhotoFunc        func(id string) (*cartoon.Session, error)
}

func (m *MockCartoonOrchestrator) Start(fingerprint string, identity *models.Identity) *cartoon.Session {
	if m.StartFunc == nil {
		return &cartoon.Session{ID: "session-1", Step: cartoon.StepUpload, Fingerprint: fingerprint, Identity: identity}
	}
	return m.StartFunc(fingerprint, identity)
}

func (m *MockCartoonOrchestrator) Get(id string) (*cartoon.Session, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(id)
}

func (m *MockCartoonOrchestrator) Upload(ctx context.Context, id string, in services.UploadInput) (*cartoon.Session, error) {
	if m.UploadFunc == nil {
		return nil, models.ErrInvalidState
	}
	return m.UploadFunc(ctx, id, in)
}

func (m *MockCartoonOrchestrator) SelectStyle(id, styleID string) (*cartoon.Session, error) {
	if m.SelectStyleFunc == nil {
		return nil, models.ErrUnknownStyle
	}
	return m.SelectStyleFunc(id, styleID)
}

func (m *MockCartoonOrchestrator) StartGeneration(ctx context.Context, id string) (*cartoon.Session, error) {
	if m.StartGenerationFunc == nil {
		return nil, models.ErrInvalidState
	}
	return m.StartGenerationFunc(ctx, id)
}

func (m *MockCartoonOrchestrator) TryAnotherStyle(id string) (*cartoon.Session, error) {
	if m.TryAnotherStyleFunc == nil {
		return nil, models.ErrInvalidState
	}
	return m.TryAnotherStyleFunc(id)
}

func (m *MockCartoonOrchestrator) NewPhoto(id string) (*cartoon.Session, error) {
	if m.NewPhotoFunc == nil {
		return nil, models.ErrInvalidState
	}
	return m.NewPhotoFunc(id)
}

// MockFriendManager implements FriendManager for testing
type MockFriendManager struct {
	ListFunc   func(ctx context.Context, limit, offset int) ([]*models.TLCFriend, error)
	GetFunc    func(ctx context.Context, id string) (*models.TLCFriend, error)
	AddFunc    func(ctx context.Context, actorID string, friend *models.TLCFriend) (*models.TLCFriend, error)
	UpdateFunc func(ctx context.Context, actorID, id string, friend *models.TLCFriend) (*models.TLCFriend, error)
	RemoveFunc func(ctx context.Context, actorID, id string) error
}

func (m *MockFriendManager) List(ctx context.Context, limit, offset int) ([]*models.TLCFriend, error) {
	if m.ListFunc == nil {
		return []*models.TLCFriend{}, nil
	}
	return m.ListFunc(ctx, limit, offset)
}

func (m *MockFriendManager) Get(ctx context.Context, id string) (*models.TLCFriend, error) {
	if m.GetFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetFunc(ctx, id)
}

func (m *MockFriendManager) Add(ctx context.Context, actorID string, friend *models.TLCFriend) (*models.TLCFriend, error) {
	if m.AddFunc == nil {
		return nil, models.ErrConflict
	}
	return m.AddFunc(ctx, actorID, friend)
}

func (m *MockFriendManager) Update(ctx context.Context, actorID, id string, friend *models.TLCFriend) (*models.TLCFriend, error) {
	if m.UpdateFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateFunc(ctx, actorID, id, friend)
}

func (m *MockFriendManager) Remove(ctx context.Context, actorID, id string) error {
	if m.RemoveFunc == nil {
		return nil
	}
	return m.RemoveFunc(ctx, actorID, id)
}
