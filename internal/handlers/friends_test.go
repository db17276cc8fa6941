package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/inspireokc/internal/handlers"
	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestCreateFriend_Success(t *testing.T) {
	var gotActor string
	var got *models.TLCFriend
	mgr := &handlers.MockFriendManager{
		AddFunc: func(ctx context.Context, actorID string, friend *models.TLCFriend) (*models.TLCFriend, error) {
			gotActor, got = actorID, friend
			return &models.TLCFriend{
				ID: "friend-1", Email: "pal@example.com", Name: "Pal",
				DailyLimit: friend.DailyLimit, CreatedAt: time.Now(), UpdatedAt: time.Now(),
			}, nil
		},
	}
	handler := handlers.NewFriendHandler(mgr, discardLogger())

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/admin/friends", handlers.CreateFriendRequest{
		Email: "Pal@Example.com", Name: "Pal", DailyLimit: intPtr(25),
	})
	req = handlers.WithIdentityContext(req, "admin-1", "admin@example.com")
	w := httptest.NewRecorder()
	handler.CreateFriend(w, req)

	var resp handlers.FriendResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "friend-1", resp.ID)
	assert.Equal(t, 25, resp.DailyLimit)
	assert.Equal(t, "admin-1", gotActor)
	require.NotNil(t, got)
	assert.Equal(t, "Pal@Example.com", got.Email, "normalization happens in the service")
}

func TestCreateFriend_DefaultQuotaReported(t *testing.T) {
	mgr := &handlers.MockFriendManager{
		AddFunc: func(ctx context.Context, actorID string, friend *models.TLCFriend) (*models.TLCFriend, error) {
			return &models.TLCFriend{ID: "friend-2", Email: friend.Email, Name: friend.Name}, nil
		},
	}
	handler := handlers.NewFriendHandler(mgr, discardLogger())

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/admin/friends", handlers.CreateFriendRequest{
		Email: "buddy@example.com", Name: "Buddy",
	})
	w := httptest.NewRecorder()
	handler.CreateFriend(w, handlers.WithIdentityContext(req, "admin-1", ""))

	var resp handlers.FriendResponse
	handlers.AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, models.FriendDailyLimit, resp.DailyLimit)
}

func TestCreateFriend_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		body       handlers.CreateFriendRequest
		addErr     error
		wantStatus int
		wantCode   string
	}{
		{"invalid email", handlers.CreateFriendRequest{Email: "not-an-email", Name: "X"}, nil, http.StatusBadRequest, "bad_request"},
		{"missing name", handlers.CreateFriendRequest{Email: "a@b.co"}, nil, http.StatusBadRequest, "bad_request"},
		{"zero quota", handlers.CreateFriendRequest{Email: "a@b.co", Name: "A", DailyLimit: intPtr(0)}, nil, http.StatusBadRequest, "bad_request"},
		{"duplicate", handlers.CreateFriendRequest{Email: "a@b.co", Name: "A"}, fmt.Errorf("%w: a***@b.co is already a friend", models.ErrConflict), http.StatusConflict, "conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := &handlers.MockFriendManager{
				AddFunc: func(ctx context.Context, actorID string, friend *models.TLCFriend) (*models.TLCFriend, error) {
					if tt.addErr != nil {
						return nil, tt.addErr
					}
					return friend, nil
				},
			}
			handler := handlers.NewFriendHandler(mgr, discardLogger())

			w := httptest.NewRecorder()
			handler.CreateFriend(w, handlers.NewTestRequest(t, http.MethodPost, "/api/admin/friends", tt.body))

			handlers.AssertErrorResponse(t, w, tt.wantStatus, tt.wantCode)
		})
	}
}

func TestListFriends_Pagination(t *testing.T) {
	var gotLimit, gotOffset int
	mgr := &handlers.MockFriendManager{
		ListFunc: func(ctx context.Context, limit, offset int) ([]*models.TLCFriend, error) {
			gotLimit, gotOffset = limit, offset
			return []*models.TLCFriend{
				{ID: "f1", Email: "a@b.co", Name: "A"},
				{ID: "f2", Email: "c@d.co", Name: "C", DailyLimit: intPtr(3)},
			}, nil
		},
	}
	handler := handlers.NewFriendHandler(mgr, discardLogger())

	w := httptest.NewRecorder()
	handler.ListFriends(w, httptest.NewRequest(http.MethodGet, "/api/admin/friends?limit=10&offset=20", nil))

	var resp handlers.ListFriendsResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, 10, gotLimit)
	assert.Equal(t, 20, gotOffset)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 3, resp.Friends[1].DailyLimit)

	w = httptest.NewRecorder()
	handler.ListFriends(w, httptest.NewRequest(http.MethodGet, "/api/admin/friends?limit=0", nil))
	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestUpdateAndDeleteFriend(t *testing.T) {
	mgr := &handlers.MockFriendManager{
		UpdateFunc: func(ctx context.Context, actorID, id string, friend *models.TLCFriend) (*models.TLCFriend, error) {
			if id != "friend-1" {
				return nil, models.ErrNotFound
			}
			return &models.TLCFriend{ID: id, Email: "pal@example.com", Name: friend.Name, DailyLimit: friend.DailyLimit}, nil
		},
		RemoveFunc: func(ctx context.Context, actorID, id string) error {
			if id != "friend-1" {
				return models.ErrNotFound
			}
			return nil
		},
	}
	handler := handlers.NewFriendHandler(mgr, discardLogger())

	req := handlers.NewTestRequest(t, http.MethodPut, "/api/admin/friends/friend-1", handlers.UpdateFriendRequest{Name: "New Name", DailyLimit: intPtr(5)})
	w := httptest.NewRecorder()
	handler.UpdateFriend(w, handlers.WithChiRouteContext(req, map[string]string{"id": "friend-1"}))
	var resp handlers.FriendResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "New Name", resp.Name)
	assert.Equal(t, 5, resp.DailyLimit)

	req = handlers.NewTestRequest(t, http.MethodPut, "/api/admin/friends/missing", handlers.UpdateFriendRequest{Name: "X"})
	w = httptest.NewRecorder()
	handler.UpdateFriend(w, handlers.WithChiRouteContext(req, map[string]string{"id": "missing"}))
	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")

	w = httptest.NewRecorder()
	handler.DeleteFriend(w, handlers.WithChiRouteContext(httptest.NewRequest(http.MethodDelete, "/api/admin/friends/friend-1", nil), map[string]string{"id": "friend-1"}))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	handler.DeleteFriend(w, handlers.WithChiRouteContext(httptest.NewRequest(http.MethodDelete, "/api/admin/friends/missing", nil), map[string]string{"id": "missing"}))
	handlers.AssertErrorResponse(t, w, http.StatusNotFound, "not_found")
}
