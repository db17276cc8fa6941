package cartoon

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/google/uuid"
)

// Step is the position of a session in the generation flow.
type Step int

const (
	StepUpload Step = iota
	StepStyleSelect
	StepGenerating
	StepSettled
)

var stepNames = map[Step]string{
	StepUpload:      "upload",
	StepStyleSelect: "style",
	StepGenerating:  "generating",
	StepSettled:     "settled",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

func (s Step) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Session is one visitor's walk through upload, style and generation.
type Session struct {
	ID             string              `json:"id"`
	Step           Step                `json:"step"`
	UploadID       string              `json:"uploadId,omitempty"`
	SourceURL      string              `json:"sourceUrl,omitempty"`
	StyleID        string              `json:"styleId,omitempty"`
	Progress       int                 `json:"progress"`
	LoadingMessage string              `json:"loadingMessage,omitempty"`
	ResultURL      string              `json:"resultUrl,omitempty"`
	Error          string              `json:"error,omitempty"`
	Limit          *models.LimitStatus `json:"limit,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`

	Fingerprint string           `json:"-"`
	Identity    *models.Identity `json:"-"`

	// done is closed when the running generation settles.
	done chan struct{}
}

// store holds sessions in memory. Callers only ever see copies.
type store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	now      func() time.Time
}

func newStore(now func() time.Time) *store {
	return &store{sessions: make(map[string]*Session), now: now}
}

func (s *store) create(fingerprint string, identity *models.Identity) *Session {
	now := s.now()
	session := &Session{
		ID:          uuid.NewString(),
		Step:        StepUpload,
		Fingerprint: fingerprint,
		Identity:    identity,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	snapshot := *session
	return &snapshot
}

func (s *store) get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	snapshot := *session
	return &snapshot, nil
}

// update applies fn under the lock. fn returning an error leaves the
// session untouched.
func (s *store) update(id string, fn func(*Session) error) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, models.ErrNotFound
	}

	working := *session
	if err := fn(&working); err != nil {
		return nil, err
	}
	working.UpdatedAt = s.now()
	*session = working

	snapshot := working
	return &snapshot, nil
}

// sweep drops sessions idle longer than maxIdle. Running generations are kept.
func (s *store) sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if session.Step == StepGenerating {
			continue
		}
		if session.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

func (s *store) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
