//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/BradenHooton/inspireokc/internal/auth"
	"github.com/BradenHooton/inspireokc/internal/cartoon"
	"github.com/BradenHooton/inspireokc/internal/database"
	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/BradenHooton/inspireokc/internal/handlers"
	middlewareCustom "github.com/BradenHooton/inspireokc/internal/middleware"
	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/BradenHooton/inspireokc/internal/routes"
	"github.com/BradenHooton/inspireokc/internal/services"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
	pkglogger "github.com/BradenHooton/inspireokc/pkg/logger"
)

const testJWTSecret = "test-secret-32-characters-long-for-testing"

// SentEmail represents a captured email message
type SentEmail struct {
	To         string
	Name       string
	DailyLimit int
}

// MockEmailService captures sent emails for test assertions
type MockEmailService struct {
	SentEmails []SentEmail
	mu         sync.Mutex
}

// SendFriendWelcome records the email
func (m *MockEmailService) SendFriendWelcome(ctx context.Context, email, name string, dailyLimit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, SentEmail{To: email, Name: name, DailyLimit: dailyLimit})
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *MockEmailService) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// StubImageModel returns a fixed image and counts calls
type StubImageModel struct {
	Calls atomic.Int32
}

func (m *StubImageModel) Transform(ctx context.Context, imageURL string, style models.Style) (string, error) {
	m.Calls.Add(1)
	return "https://cdn.test/generated/" + style.ID + ".png", nil
}

// MemoryObjectStore keeps uploaded objects in memory
type MemoryObjectStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
}

func (s *MemoryObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Objects == nil {
		s.Objects = make(map[string][]byte)
	}
	s.Objects[key] = data
	return nil
}

func (s *MemoryObjectStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	Upstream     *httptest.Server
	DB           *database.DB
	Repos        *Repositories
	EmailService *MockEmailService
	ImageModel   *StubImageModel
	Events       *services.EventService
	Cartoons     *cartoon.Orchestrator
	Tokens       *auth.TokenManager
}

// NewTestServer initializes a complete HTTP server with a real database.
// The chat upstream is a local server replying with chatReply as a stream.
func NewTestServer(db *database.DB, chatReply []string) *TestServer {
	logger := slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))

	repos := InitializeRepositories(db)
	mockEmail := &MockEmailService{}
	imageModel := &StubImageModel{}
	auditLogger := pkglogger.NewAuditLogger(logger)
	upstream := httptest.NewServer(openAIStreamHandler(chatReply))

	eventService := services.NewEventService(repos.Events, "integration-salt", logger)
	limitService := services.NewGenerationLimitService(repos.Limits, repos.Friends, repos.Admins, time.Now, logger)
	generationService := services.NewGenerationService(limitService, imageModel, eventService, auditLogger, logger)
	friendService := services.NewFriendService(repos.Friends, mockEmail, auditLogger, logger)
	uploadService := services.NewUploadService(&MemoryObjectStore{}, repos.Uploads, "uploads", logger)
	chatService := services.NewChatProxyService(services.NewOpenAIClient("test-key", upstream.URL+"/v1"), "test-model", "You are a test assistant.", 256, logger)

	opts := cartoon.DefaultOptions()
	opts.ProgressInterval = 10 * time.Millisecond
	orchestrator := cartoon.New(uploadService, limitService, imageModel, eventService, logger, opts)

	tokenManager := auth.NewTokenManager(testJWTSecret, "")

	h := routes.Handlers{
		Limits:       handlers.NewLimitHandler(limitService, logger),
		Generate:     handlers.NewGenerateHandler(generationService, logger),
		Chat:         handlers.NewChatHandler(chatService, logger),
		Fingerprints: handlers.NewFingerprintHandler(repos.Devices, logger),
		Events:       handlers.NewEventHandler(eventService, &pkghttp.IPConfig{}, logger),
		Cartoons:     handlers.NewCartoonHandler(orchestrator, logger),
		Friends:      handlers.NewFriendHandler(friendService, logger),
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: "test"}))
	r.Use(chiMiddleware.Recoverer)

	routes.RegisterRoutes(r, h, routes.Dependencies{
		TokenManager: tokenManager,
		Admins:       repos.Admins,
		Sessions:     fingerprint.NewSessionStore(),
		Cookie:       middlewareCustom.CookieConfig{Name: "tfm_session", SameSite: "lax"},
		Limits:       routes.RateLimits{Chat: 1000, Generate: 1000, Upload: 1000},
		Logger:       logger,
	})

	return &TestServer{
		Server:       httptest.NewServer(r),
		Upstream:     upstream,
		DB:           db,
		Repos:        repos,
		EmailService: mockEmail,
		ImageModel:   imageModel,
		Events:       eventService,
		Cartoons:     orchestrator,
		Tokens:       tokenManager,
	}
}

// Close shuts down the test server and waits for background work
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
	if ts.Upstream != nil {
		ts.Upstream.Close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ts.Cartoons.Shutdown(ctx)
	ts.Events.Close()
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestAs makes a request carrying a fingerprint and, when userID is set, a bearer token
func (ts *TestServer) RequestAs(method, path, fp, userID, email string, body interface{}) (*http.Response, error) {
	headers := map[string]string{middlewareCustom.FingerprintHeader: fp}
	if userID != "" {
		token, err := ts.Tokens.GenerateAccessToken(userID, email, time.Hour)
		if err != nil {
			return nil, err
		}
		headers["Authorization"] = "Bearer " + token
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// GetErrorCode extracts the error code from an error response
func GetErrorCode(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if code, ok := errResp["error"].(string); ok {
		return code, nil
	}
	return "", nil
}

// openAIStreamHandler mimics the chat completions streaming endpoint
func openAIStreamHandler(reply []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for i, part := range reply {
			chunk := map[string]interface{}{
				"id":      fmt.Sprintf("chunk-%d", i),
				"object":  "chat.completion.chunk",
				"created": time.Now().Unix(),
				"model":   "test-model",
				"choices": []map[string]interface{}{
					{"index": 0, "delta": map[string]string{"content": part}},
				},
			}
			data, _ := json.Marshal(chunk)
			fmt.Fprintf(w, "data: %s\n\n", data)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}
}
