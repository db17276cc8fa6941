package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/sashabaranov/go-openai"
)

// MockFriendRepository implements FriendRepository for testing
type MockFriendRepository struct {
	GetByEmailFunc func(ctx context.Context, email string) (*models.TLCFriend, error)
	GetByIDFunc    func(ctx context.Context, id string) (*models.TLCFriend, error)
	ListFunc       func(ctx context.Context, limit, offset int) ([]*models.TLCFriend, error)
	CreateFunc     func(ctx context.Context, friend *models.TLCFriend) (*models.TLCFriend, error)
	UpdateFunc     func(ctx context.Context, id string, friend *models.TLCFriend) (*models.TLCFriend, error)
	DeleteFunc     func(ctx context.Context, id string) error
}

func (m *MockFriendRepository) GetByEmail(ctx context.Context, email string) (*models.TLCFriend, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockFriendRepository) GetByID(ctx context.Context, id string) (*models.TLCFriend, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockFriendRepository) List(ctx context.Context, limit, offset int) ([]*models.TLCFriend, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.TLCFriend{}, nil
}

func (m *MockFriendRepository) Create(ctx context.Context, friend *models.TLCFriend) (*models.TLCFriend, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, friend)
	}
	return nil, models.ErrInternalServer
}

func (m *MockFriendRepository) Update(ctx context.Context, id string, friend *models.TLCFriend) (*models.TLCFriend, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, friend)
	}
	return nil, models.ErrInternalServer
}

func (m *MockFriendRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockAdminLookup implements AdminLookup for testing
type MockAdminLookup struct {
	IsAdminFunc func(ctx context.Context, userID string) (bool, error)
}

func (m *MockAdminLookup) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if m.IsAdminFunc != nil {
		return m.IsAdminFunc(ctx, userID)
	}
	return false, nil
}

// MockEventRepository implements EventRepository for testing
type MockEventRepository struct {
	InsertFunc func(ctx context.Context, event *models.Event) error
}

func (m *MockEventRepository) Insert(ctx context.Context, event *models.Event) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, event)
	}
	return nil
}

// MockUploadRepository implements UploadRepository for testing
type MockUploadRepository struct {
	CreateFunc func(ctx context.Context, upload *models.Upload) (*models.Upload, error)
}

func (m *MockUploadRepository) Create(ctx context.Context, upload *models.Upload) (*models.Upload, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, upload)
	}
	created := *upload
	created.ID = "upload-1"
	created.CreatedAt = time.Now()
	return &created, nil
}

// MockObjectStore implements ObjectStore for testing
type MockObjectStore struct {
	PutFunc  func(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PutCalls int
	LastKey  string
	BaseURL  string
	mu       sync.Mutex
}

func (m *MockObjectStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	m.mu.Lock()
	m.PutCalls++
	m.LastKey = key
	m.mu.Unlock()
	if m.PutFunc != nil {
		return m.PutFunc(ctx, key, body, size, contentType)
	}
	_, err := io.Copy(io.Discard, body)
	return err
}

func (m *MockObjectStore) PublicURL(key string) string {
	base := m.BaseURL
	if base == "" {
		base = "https://cdn.test"
	}
	return base + "/" + key
}

// MockImageModel implements ImageModel for testing
type MockImageModel struct {
	TransformFunc func(ctx context.Context, imageURL string, style models.Style) (string, error)
}

func (m *MockImageModel) Transform(ctx context.Context, imageURL string, style models.Style) (string, error) {
	if m.TransformFunc != nil {
		return m.TransformFunc(ctx, imageURL, style)
	}
	return "https://cdn.test/results/" + style.ID + ".png", nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendFriendWelcomeFunc func(ctx context.Context, email, name string, dailyLimit int) error
}

func (m *MockEmailService) SendFriendWelcome(ctx context.Context, email, name string, dailyLimit int) error {
	if m.SendFriendWelcomeFunc != nil {
		return m.SendFriendWelcomeFunc(ctx, email, name, dailyLimit)
	}
	return nil
}

// MockChatStreamer implements ChatStreamer for testing
type MockChatStreamer struct {
	CreateChatCompletionStreamFunc func(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error)
}

func (m *MockChatStreamer) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionStream, error) {
	if m.CreateChatCompletionStreamFunc != nil {
		return m.CreateChatCompletionStreamFunc(ctx, req)
	}
	return nil, models.ErrUpstream
}

// MemoryGenerationLimitStore is an in-process GenerationLimitRepository.
// IncrementForDate holds the lock across read and write, like the SQL upsert.
type MemoryGenerationLimitStore struct {
	mu      sync.Mutex
	records map[string]*models.GenerationLimit
	// Err, when set, is returned by every call.
	Err error
}

func NewMemoryGenerationLimitStore() *MemoryGenerationLimitStore {
	return &MemoryGenerationLimitStore{records: make(map[string]*models.GenerationLimit)}
}

func limitKey(fingerprint, date string) string {
	return fingerprint + "@" + date
}

func (s *MemoryGenerationLimitStore) GetForDate(ctx context.Context, fingerprint, date string) (*models.GenerationLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	record, ok := s.records[limitKey(fingerprint, date)]
	if !ok {
		return nil, models.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *MemoryGenerationLimitStore) IncrementForDate(ctx context.Context, fingerprint, date string, isFriend bool) (*models.GenerationLimit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	key := limitKey(fingerprint, date)
	record, ok := s.records[key]
	if !ok {
		record = &models.GenerationLimit{
			ID:          key,
			Fingerprint: fingerprint,
			Date:        date,
			CreatedAt:   time.Now(),
		}
		s.records[key] = record
	}
	record.Count++
	record.IsFriend = isFriend
	record.UpdatedAt = time.Now()
	copied := *record
	return &copied, nil
}

// Seed stores a record directly.
func (s *MemoryGenerationLimitStore) Seed(fingerprint, date string, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[limitKey(fingerprint, date)] = &models.GenerationLimit{
		ID:          limitKey(fingerprint, date),
		Fingerprint: fingerprint,
		Date:        date,
		Count:       count,
	}
}
