//go:build integration

package integration

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/inspireokc/internal/chat"
	"github.com/BradenHooton/inspireokc/internal/models"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = SetupTestDatabase(ctx)
	if err != nil {
		panic(err)
	}

	code := m.Run()

	testDB.Teardown(ctx)
	os.Exit(code)
}

func resetDB(t *testing.T) {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
}

func TestIncrementForDate_ConcurrentCallersAllCounted(t *testing.T) {
	resetDB(t)
	ctx := context.Background()
	repos := InitializeRepositories(testDB.DB)
	fp := TestFingerprint("race")
	date := Today()

	const workers = 25
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repos.Limits.IncrementForDate(ctx, fp, date, false); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	limit, err := repos.Limits.GetForDate(ctx, fp, date)
	require.NoError(t, err)
	assert.Equal(t, workers, limit.Count)
}

func TestGetForDate_MissingRowIsNotFound(t *testing.T) {
	resetDB(t)
	repos := InitializeRepositories(testDB.DB)

	_, err := repos.Limits.GetForDate(context.Background(), TestFingerprint("none"), Today())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGenerate_AnonymousLimitEnforced(t *testing.T) {
	resetDB(t)
	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()

	fp := TestFingerprint("anon")
	body := map[string]string{"imageUrl": "https://cdn.test/in.jpg", "styleId": "anime"}

	resp, err := ts.RequestAs(http.MethodPost, "/api/generate", fp, "", "", body)
	require.NoError(t, err)
	var result struct {
		ImageURL string              `json:"imageUrl"`
		Limit    *models.LimitStatus `json:"limit"`
	}
	require.NoError(t, ParseJSONResponse(resp, &result))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://cdn.test/generated/anime.png", result.ImageURL)
	require.NotNil(t, result.Limit)
	assert.Equal(t, 0, result.Limit.Remaining)

	resp, err = ts.RequestAs(http.MethodPost, "/api/generate", fp, "", "", body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	code, err := GetErrorCode(resp)
	require.NoError(t, err)
	assert.Equal(t, "limit_reached", code)

	assert.EqualValues(t, 1, ts.ImageModel.Calls.Load())
}

func TestLimits_FriendAndAdminQuotas(t *testing.T) {
	resetDB(t)
	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()
	ctx := context.Background()

	friendEmail := TestFriendEmail("pal")
	_, err := SeedFriend(ctx, ts.Repos, friendEmail, "Pal", IntPtr(5))
	require.NoError(t, err)
	require.NoError(t, ts.Repos.Admins.Grant(ctx, "admin-1", "test"))

	friendFP := TestFingerprint("friend")
	require.NoError(t, SeedUsage(ctx, testDB.Pool, friendFP, Today(), 2))

	resp, err := ts.RequestAs(http.MethodGet, "/api/limits", friendFP, "user-1", strings.ToUpper(friendEmail), nil)
	require.NoError(t, err)
	var status models.LimitStatus
	require.NoError(t, ParseJSONResponse(resp, &status))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, status.IsFriend)
	assert.Equal(t, 5, status.DailyLimit)
	assert.Equal(t, 3, status.Remaining)

	resp, err = ts.RequestAs(http.MethodGet, "/api/limits", TestFingerprint("admin"), "admin-1", "boss@example.com", nil)
	require.NoError(t, err)
	status = models.LimitStatus{}
	require.NoError(t, ParseJSONResponse(resp, &status))
	assert.True(t, status.IsAdmin)
	assert.Equal(t, models.UnlimitedSentinel, status.Remaining)
}

func TestAdminFriends_RequireAdministrator(t *testing.T) {
	resetDB(t)
	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()
	require.NoError(t, ts.Repos.Admins.Grant(context.Background(), "admin-1", "test"))

	body := map[string]interface{}{"email": TestFriendEmail("new"), "name": "New Pal"}

	resp, err := ts.RequestAs(http.MethodPost, "/api/admin/friends", TestFingerprint("x"), "user-1", "u@example.com", body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, err = ts.RequestAs(http.MethodPost, "/api/admin/friends", TestFingerprint("x"), "admin-1", "boss@example.com", body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	last := ts.EmailService.GetLastEmail()
	require.NotNil(t, last)
	assert.Equal(t, "New Pal", last.Name)
	assert.Equal(t, models.FriendDailyLimit, last.DailyLimit)
}

func TestCartoonFlow_EndToEnd(t *testing.T) {
	resetDB(t)
	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()
	fp := TestFingerprint("flow")

	resp, err := ts.RequestAs(http.MethodPost, "/api/cartoons", fp, "", "", nil)
	require.NoError(t, err)
	var session struct {
		ID        string `json:"id"`
		Step      string `json:"step"`
		ResultURL string `json:"resultUrl"`
		Error     string `json:"error"`
	}
	require.NoError(t, ParseJSONResponse(resp, &session))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "upload", session.Step)

	uploadPhoto(t, ts, session.ID, fp)

	resp, err = ts.RequestAs(http.MethodPut, "/api/cartoons/"+session.ID+"/style", fp, "", "", map[string]string{"styleId": "comic-book"})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = ts.RequestAs(http.MethodPost, "/api/cartoons/"+session.ID+"/generate", fp, "", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, ts.Cartoons.Wait(ctx, session.ID))

	resp, err = ts.RequestAs(http.MethodGet, "/api/cartoons/"+session.ID, fp, "", "", nil)
	require.NoError(t, err)
	require.NoError(t, ParseJSONResponse(resp, &session))
	assert.Equal(t, "settled", session.Step)
	assert.Equal(t, "https://cdn.test/generated/comic-book.png", session.ResultURL)
	assert.Empty(t, session.Error)

	// The session belongs to its fingerprint
	resp, err = ts.RequestAs(http.MethodGet, "/api/cartoons/"+session.ID, TestFingerprint("other"), "", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	limit, err := ts.Repos.Limits.GetForDate(context.Background(), fp, Today())
	require.NoError(t, err)
	assert.Equal(t, 1, limit.Count)
}

func uploadPhoto(t *testing.T, ts *TestServer, sessionID, fp string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="photo"; filename="me.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0x89, 'P', 'N', 'G'}, 256))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/api/cartoons/"+sessionID+"/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Fingerprint", fp)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestChat_StreamsThroughProxy(t *testing.T) {
	ts := NewTestServer(testDB.DB, []string{"Hello", " from", " OKC"})
	defer ts.Close()

	client := chat.NewClient(ts.Server.URL + "/api/chat")
	conv := chat.NewConversation()
	conv.AddUser("What is happening this weekend?")

	require.NoError(t, client.Send(context.Background(), conv))

	last, ok := conv.Last()
	require.True(t, ok)
	assert.Equal(t, models.RoleAssistant, last.Role)
	assert.Equal(t, "Hello from OKC", last.Content)
	assert.Equal(t, chat.Idle, client.State())
}

func TestEvents_RecordedAndPruned(t *testing.T) {
	resetDB(t)
	ts := NewTestServer(testDB.DB, nil)
	defer ts.Close()
	ctx := context.Background()

	resp, err := ts.RequestAs(http.MethodPost, "/api/events", TestFingerprint("ev"), "", "", map[string]interface{}{
		"type": "view",
		"page": "/",
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	ts.Events.Wait()
	n, err := CountEvents(ctx, testDB.Pool, models.EventPageView)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	deleted, err := ts.Repos.Events.DeleteBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)
}
