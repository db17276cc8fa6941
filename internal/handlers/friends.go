package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/inspireokc/internal/auth"
	"github.com/BradenHooton/inspireokc/internal/models"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
	"github.com/go-chi/chi/v5"
)

// FriendManager administers the friend allowlist
type FriendManager interface {
	List(ctx context.Context, limit, offset int) ([]*models.TLCFriend, error)
	Get(ctx context.Context, id string) (*models.TLCFriend, error)
	Add(ctx context.Context, actorID string, friend *models.TLCFriend) (*models.TLCFriend, error)
	Update(ctx context.Context, actorID, id string, friend *models.TLCFriend) (*models.TLCFriend, error)
	Remove(ctx context.Context, actorID, id string) error
}

// CreateFriendRequest represents the request body for adding a friend
type CreateFriendRequest struct {
	Email      string `json:"email" validate:"required,email,max=254"`
	Name       string `json:"name" validate:"required,min=1,max=100"`
	DailyLimit *int   `json:"dailyLimit" validate:"omitempty,gte=1,lte=1000"`
}

// UpdateFriendRequest replaces a friend's name and quota
type UpdateFriendRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=100"`
	DailyLimit *int   `json:"dailyLimit" validate:"omitempty,gte=1,lte=1000"`
}

// FriendResponse represents a friend in the HTTP response
type FriendResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	DailyLimit int    `json:"dailyLimit"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// ListFriendsResponse represents a page of friends
type ListFriendsResponse struct {
	Friends []*FriendResponse `json:"friends"`
	Total   int               `json:"total"`
}

func friendModelToResponse(friend *models.TLCFriend) *FriendResponse {
	return &FriendResponse{
		ID:         friend.ID,
		Email:      friend.Email,
		Name:       friend.Name,
		DailyLimit: friend.EffectiveLimit(),
		CreatedAt:  friend.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  friend.UpdatedAt.Format(time.RFC3339),
	}
}

// FriendHandler handles friend allowlist administration
type FriendHandler struct {
	friends FriendManager
	logger  *slog.Logger
}

// NewFriendHandler creates a new FriendHandler
func NewFriendHandler(friends FriendManager, logger *slog.Logger) *FriendHandler {
	return &FriendHandler{friends: friends, logger: logger}
}

// ListFriends handles GET /api/admin/friends?limit=&offset=
func (h *FriendHandler) ListFriends(w http.ResponseWriter, r *http.Request) {
	limit := 50
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > 200 {
			pkghttp.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = n
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 {
			pkghttp.WriteBadRequest(w, "Invalid offset parameter")
			return
		}
		offset = n
	}

	friends, err := h.friends.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	resp := ListFriendsResponse{Friends: make([]*FriendResponse, 0, len(friends))}
	for _, f := range friends {
		resp.Friends = append(resp.Friends, friendModelToResponse(f))
	}
	resp.Total = len(resp.Friends)

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// GetFriend handles GET /api/admin/friends/{id}
func (h *FriendHandler) GetFriend(w http.ResponseWriter, r *http.Request) {
	friend, err := h.friends.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, friendModelToResponse(friend))
}

// CreateFriend handles POST /api/admin/friends
func (h *FriendHandler) CreateFriend(w http.ResponseWriter, r *http.Request) {
	var req CreateFriendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	created, err := h.friends.Add(r.Context(), actorID(r), &models.TLCFriend{
		Email:      req.Email,
		Name:       req.Name,
		DailyLimit: req.DailyLimit,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, friendModelToResponse(created))
}

// UpdateFriend handles PUT /api/admin/friends/{id}
func (h *FriendHandler) UpdateFriend(w http.ResponseWriter, r *http.Request) {
	var req UpdateFriendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.friends.Update(r.Context(), actorID(r), chi.URLParam(r, "id"), &models.TLCFriend{
		Name:       req.Name,
		DailyLimit: req.DailyLimit,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, friendModelToResponse(updated))
}

// DeleteFriend handles DELETE /api/admin/friends/{id}
func (h *FriendHandler) DeleteFriend(w http.ResponseWriter, r *http.Request) {
	if err := h.friends.Remove(r.Context(), actorID(r), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func actorID(r *http.Request) string {
	if identity := auth.IdentityFromContext(r.Context()); identity != nil {
		return identity.UserID
	}
	return ""
}
