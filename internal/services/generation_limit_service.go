package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/inspireokc/internal/models"
	pkglogger "github.com/BradenHooton/inspireokc/pkg/logger"
)

// GenerationLimitRepository defines the usage counter operations the gate relies on
type GenerationLimitRepository interface {
	GetForDate(ctx context.Context, fingerprint, date string) (*models.GenerationLimit, error)
	IncrementForDate(ctx context.Context, fingerprint, date string, isFriend bool) (*models.GenerationLimit, error)
}

// FriendLookup finds allowlist entries by email
type FriendLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.TLCFriend, error)
}

// AdminLookup checks administrator role grants
type AdminLookup interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// GenerationLimitService decides whether a fingerprint may run another generation today
type GenerationLimitService struct {
	limits  GenerationLimitRepository
	friends FriendLookup
	admins  AdminLookup
	now     Clock
	logger  *slog.Logger
}

// NewGenerationLimitService creates a new GenerationLimitService
func NewGenerationLimitService(limits GenerationLimitRepository, friends FriendLookup, admins AdminLookup, now Clock, logger *slog.Logger) *GenerationLimitService {
	if now == nil {
		now = time.Now
	}
	return &GenerationLimitService{
		limits:  limits,
		friends: friends,
		admins:  admins,
		now:     now,
		logger:  logger,
	}
}

// Today returns the current UTC calendar date used as the usage key
func (s *GenerationLimitService) Today() string {
	return s.now().UTC().Format(models.DateLayout)
}

// CheckLimit evaluates the caller's allowance without mutating anything.
// Priority: administrator, then allowlist friend, then the anonymous default.
func (s *GenerationLimitService) CheckLimit(ctx context.Context, fingerprint string, identity *models.Identity) (*models.LimitStatus, error) {
	if fingerprint == "" {
		return nil, models.ErrMissingIdentity
	}

	if identity != nil {
		isAdmin, err := s.admins.IsAdmin(ctx, identity.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to check admin role: %w", err)
		}
		if isAdmin {
			return &models.LimitStatus{
				Allowed:     true,
				Remaining:   models.UnlimitedSentinel,
				DailyLimit:  models.UnlimitedSentinel,
				IsFriend:    false,
				IsAdmin:     true,
				Fingerprint: fingerprint,
			}, nil
		}
	}

	dailyLimit, isFriend, err := s.quotaFor(ctx, identity)
	if err != nil {
		return nil, err
	}

	used, err := s.usedToday(ctx, fingerprint)
	if err != nil {
		return nil, err
	}

	remaining := dailyLimit - used
	if remaining < 0 {
		remaining = 0
	}

	return &models.LimitStatus{
		Allowed:     remaining > 0,
		Remaining:   remaining,
		DailyLimit:  dailyLimit,
		IsFriend:    isFriend,
		IsAdmin:     false,
		Fingerprint: fingerprint,
	}, nil
}

// IncrementUsage records one successful generation and returns the refreshed status.
// The counter is bumped with a single increment-or-insert so parallel generations
// from the same fingerprint are all counted.
func (s *GenerationLimitService) IncrementUsage(ctx context.Context, fingerprint string, identity *models.Identity) (*models.LimitStatus, error) {
	if fingerprint == "" {
		return nil, models.ErrMissingIdentity
	}

	_, isFriend, err := s.quotaFor(ctx, identity)
	if err != nil {
		return nil, err
	}

	record, err := s.limits.IncrementForDate(ctx, fingerprint, s.Today(), isFriend)
	if err != nil {
		return nil, fmt.Errorf("failed to increment usage: %w", err)
	}

	s.logger.Info("generation usage recorded",
		slog.String("fingerprint", fingerprint),
		slog.String("date", record.Date),
		slog.Int("count", record.Count),
		slog.Bool("is_friend", isFriend))

	return s.CheckLimit(ctx, fingerprint, identity)
}

func (s *GenerationLimitService) quotaFor(ctx context.Context, identity *models.Identity) (int, bool, error) {
	if identity == nil || identity.Email == "" {
		return models.AnonymousDailyLimit, false, nil
	}

	friend, err := s.friends.GetByEmail(ctx, identity.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.AnonymousDailyLimit, false, nil
		}
		return 0, false, fmt.Errorf("failed to look up friend %s: %w", pkglogger.SanitizedEmail(identity.Email), err)
	}
	return friend.EffectiveLimit(), true, nil
}

// usedToday reads only today's record; rows from earlier dates never match the key.
func (s *GenerationLimitService) usedToday(ctx context.Context, fingerprint string) (int, error) {
	record, err := s.limits.GetForDate(ctx, fingerprint, s.Today())
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read usage: %w", err)
	}
	return record.Count, nil
}
