package services

import (
	"context"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/inspireokc/internal/models"
	"golang.org/x/crypto/blake2b"
)

const eventWriteTimeout = 3 * time.Second

// EventRepository stores analytics events
type EventRepository interface {
	Insert(ctx context.Context, event *models.Event) error
}

// EventService records analytics events off the request path.
// Failures are logged and swallowed; callers never see them.
type EventService struct {
	repo   EventRepository
	salt   []byte
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewEventService creates a new EventService. salt keys the IP hash.
func NewEventService(repo EventRepository, salt string, logger *slog.Logger) *EventService {
	return &EventService{
		repo:   repo,
		salt:   []byte(salt),
		logger: logger,
	}
}

// Record stores event in the background. The write outlives ctx cancellation
// but is bounded by its own timeout. Events recorded after Close are dropped.
func (s *EventService) Record(ctx context.Context, event *models.Event) {
	if event == nil || event.Type == "" {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("event dropped after shutdown", slog.String("event_type", event.Type))
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()

		writeCtx, cancel := context.WithTimeout(detached, eventWriteTimeout)
		defer cancel()

		if err := s.repo.Insert(writeCtx, event); err != nil {
			s.logger.Warn("failed to record event",
				slog.String("event_type", event.Type),
				slog.Any("error", err))
		}
	}()
}

// Wait blocks until every pending write has finished.
func (s *EventService) Wait() {
	s.wg.Wait()
}

// Close stops accepting events and waits for pending writes.
// Record may still be called concurrently, from a generation that outlived shutdown.
func (s *EventService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
}

// HashIP returns a keyed, non-reversible digest of ip for analytics rows.
func (s *EventService) HashIP(ip string) string {
	if ip == "" {
		return ""
	}
	var key []byte
	if len(s.salt) > 0 {
		key = s.salt
		if len(key) > blake2b.Size {
			key = key[:blake2b.Size]
		}
	}
	h, err := blake2b.New256(key)
	if err != nil {
		return ""
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil)[:16])
}
