package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/inspireokc/internal/models"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
)

// LimitReachedResponse is the 429 body for a denied generation.
type LimitReachedResponse struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	Remaining  int    `json:"remaining"`
	DailyLimit int    `json:"dailyLimit"`
	IsFriend   bool   `json:"isFriend"`
}

func writeLimitReached(w http.ResponseWriter, status *models.LimitStatus) {
	resp := LimitReachedResponse{
		Error:   "limit_reached",
		Message: "You've used all of today's cartoon generations. Come back tomorrow!",
	}
	if status != nil {
		resp.Remaining = status.Remaining
		resp.DailyLimit = status.DailyLimit
		resp.IsFriend = status.IsFriend
	}
	pkghttp.WriteJSON(w, http.StatusTooManyRequests, resp)
}

// writeServiceError maps domain errors onto the JSON error envelope.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var limitErr *models.LimitExceededError
	switch {
	case errors.As(err, &limitErr):
		writeLimitReached(w, limitErr.Status)
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrUnknownStyle),
		errors.Is(err, models.ErrMissingIdentity):
		pkghttp.WriteBadRequest(w, err.Error())
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "resource not found")
	case errors.Is(err, models.ErrInvalidState):
		pkghttp.WriteConflict(w, err.Error())
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, err.Error())
	case errors.Is(err, models.ErrUpstream):
		logger.Warn("upstream failure", slog.Any("error", err))
		pkghttp.WriteBadGateway(w, "The generation service is unavailable. Please try again.")
	default:
		logger.Error("request failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "internal server error")
	}
}
