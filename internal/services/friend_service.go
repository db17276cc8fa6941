package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/inspireokc/internal/models"
	pkglogger "github.com/BradenHooton/inspireokc/pkg/logger"
)

const welcomeEmailTimeout = 10 * time.Second

// FriendRepository defines allowlist persistence
type FriendRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.TLCFriend, error)
	GetByID(ctx context.Context, id string) (*models.TLCFriend, error)
	List(ctx context.Context, limit, offset int) ([]*models.TLCFriend, error)
	Create(ctx context.Context, friend *models.TLCFriend) (*models.TLCFriend, error)
	Update(ctx context.Context, id string, friend *models.TLCFriend) (*models.TLCFriend, error)
	Delete(ctx context.Context, id string) error
}

// FriendService manages the TLC friends allowlist
type FriendService struct {
	repo   FriendRepository
	email  EmailService
	audit  *pkglogger.AuditLogger
	logger *slog.Logger
}

// NewFriendService creates a new FriendService
func NewFriendService(repo FriendRepository, email EmailService, audit *pkglogger.AuditLogger, logger *slog.Logger) *FriendService {
	return &FriendService{
		repo:   repo,
		email:  email,
		audit:  audit,
		logger: logger,
	}
}

func (s *FriendService) List(ctx context.Context, limit, offset int) ([]*models.TLCFriend, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *FriendService) Get(ctx context.Context, id string) (*models.TLCFriend, error) {
	return s.repo.GetByID(ctx, id)
}

// Add creates an allowlist entry and sends the welcome email.
// The email is best effort; the entry stands even if SES refuses it.
func (s *FriendService) Add(ctx context.Context, actorID string, friend *models.TLCFriend) (*models.TLCFriend, error) {
	friend.Email = strings.ToLower(strings.TrimSpace(friend.Email))
	friend.Name = strings.TrimSpace(friend.Name)

	created, err := s.repo.Create(ctx, friend)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, fmt.Errorf("%w: %s is already a friend", models.ErrConflict, pkglogger.SanitizedEmail(friend.Email))
		}
		return nil, fmt.Errorf("failed to create friend: %w", err)
	}

	s.audit.LogFriendAction(ctx, "friend_created", actorID, created.Email)

	mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), welcomeEmailTimeout)
	defer cancel()
	if err := s.email.SendFriendWelcome(mailCtx, created.Email, created.Name, created.EffectiveLimit()); err != nil {
		s.logger.Warn("friend created without welcome email",
			slog.String("friend_id", created.ID),
			slog.Any("error", err))
	}

	return created, nil
}

// Update changes a friend's display name or quota
func (s *FriendService) Update(ctx context.Context, actorID, id string, friend *models.TLCFriend) (*models.TLCFriend, error) {
	friend.Name = strings.TrimSpace(friend.Name)
	updated, err := s.repo.Update(ctx, id, friend)
	if err != nil {
		return nil, err
	}
	s.audit.LogFriendAction(ctx, "friend_updated", actorID, updated.Email)
	return updated, nil
}

// Remove deletes an allowlist entry; existing usage rows are untouched
func (s *FriendService) Remove(ctx context.Context, actorID, id string) error {
	friend, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.LogFriendAction(ctx, "friend_removed", actorID, friend.Email)
	return nil
}
