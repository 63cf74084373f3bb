package httpapi_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/profile-service/internal/envelope"
	"jobmate/profile-service/internal/httpapi"
	"jobmate/profile-service/internal/messaging/messagingtest"
	"jobmate/profile-service/internal/model"
	"jobmate/profile-service/internal/posts"
	"jobmate/profile-service/internal/profile"
	"jobmate/profile-service/internal/shard"
	"jobmate/profile-service/internal/store/memstore"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := memstore.New()
	rec := &messagingtest.Recorder{}
	ch := envelope.DefaultChannels()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := st.Profiles().Insert(context.Background(), &model.Profile{
		UserID: "acme", CompanyName: model.StringPtr("Acme"), SubscriptionType: model.SubscriptionFree,
	})
	require.NoError(t, err)

	orch := shard.NewOrchestrator(rec, ch.ShardMigration, log)
	h := httpapi.NewHandler(
		profile.NewService(st, orch, rec, ch.ProfileSummary, log),
		posts.NewWorkflow(st, rec, ch.MediaUploadRequest, log),
		"test", log,
	)
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, userID, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("x-user-id", userID)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	srv := newServer(t)
	resp, body := do(t, srv, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "profile-service", body["service"])
}

func TestProfileRoutes(t *testing.T) {
	srv := newServer(t)

	resp, _ := do(t, srv, http.MethodGet, "/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := do(t, srv, http.MethodGet, "/profile", "acme", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Acme", body["companyName"])
	assert.Equal(t, false, body["isSubscriptionActive"])

	resp, body = do(t, srv, http.MethodPatch, "/profile", "acme", `{"city":"Hanoi"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hanoi", body["city"])

	resp, body = do(t, srv, http.MethodPatch, "/profile", "acme", `{"phoneNumber":"12"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "phoneNumber", body["field"])

	resp, _ = do(t, srv, http.MethodPatch, "/profile", "acme", `{"applicantSearchProfile":{"desiredTechnicalSkills":["go"]}}`)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/profiles/ghost", "acme", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateProfileRoute(t *testing.T) {
	srv := newServer(t)

	resp, body := do(t, srv, http.MethodPost, "/profile", "initech", `{"email":"hr@initech.com","companyName":"Initech"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "initech", body["userId"])
	assert.Equal(t, "FREE", body["subscriptionType"])

	resp, _ = do(t, srv, http.MethodPost, "/profile", "acme", `{"email":"hr@acme.io"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/profile", "globex", `{"userId":"hooli","email":"a@hooli.com"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = do(t, srv, http.MethodPost, "/profile", "globex", `{"email":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "email", body["field"])
}

func TestPostRoutes(t *testing.T) {
	srv := newServer(t)

	resp, body := do(t, srv, http.MethodPost, "/posts", "acme",
		`{"title":"Hiring","caption":"Go","coverImage":{"base64":"aGVsbG8=","filename":"c.png","contentType":"image/png"}}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "PENDING", body["status"])
	postID, _ := body["postId"].(string)
	require.True(t, strings.HasPrefix(postID, model.PostIDPrefix))

	resp, _ = do(t, srv, http.MethodGet, "/posts/"+postID, "globex", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, body = do(t, srv, http.MethodGet, "/posts/"+postID, "acme", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, postID, body["postId"])

	code, list := listPosts(t, srv, "/posts?status=PENDING", "acme")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, list, 1)
	code, list = listPosts(t, srv, "/posts?status=ACTIVE", "acme")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, list)
	code, _ = listPosts(t, srv, "/posts?status=pending", "acme")
	assert.Equal(t, http.StatusBadRequest, code)

	resp, body = do(t, srv, http.MethodPatch, "/posts/"+postID, "acme", `{"title":"Hiring now"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hiring now", body["title"])

	resp, _ = do(t, srv, http.MethodDelete, "/posts/"+postID, "globex", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodDelete, "/posts/"+postID, "acme", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/posts/"+postID, "acme", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodPost, "/posts", "acme", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListPostsIsNeverNull(t *testing.T) {
	srv := newServer(t)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/posts?active=true", nil)
	require.NoError(t, err)
	req.Header.Set("x-user-id", "acme")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "[]", strings.TrimSpace(string(raw)))
}

func listPosts(t *testing.T, srv *httptest.Server, path, userID string) (int, []map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("x-user-id", userID)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []map[string]any
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}
