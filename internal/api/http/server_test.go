package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appAudit "github.com/negotiation-hub/negotiation-hub/internal/application/audit"
	appAuth "github.com/negotiation-hub/negotiation-hub/internal/application/auth"
	appLifecycle "github.com/negotiation-hub/negotiation-hub/internal/application/lifecycle"
	appNegotiation "github.com/negotiation-hub/negotiation-hub/internal/application/negotiation"
	appNotification "github.com/negotiation-hub/negotiation-hub/internal/application/notification"
	appUser "github.com/negotiation-hub/negotiation-hub/internal/application/user"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/notification"
	domainUser "github.com/negotiation-hub/negotiation-hub/internal/domain/user"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/memory"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/sse"
)

const testPassword = "Str0ng!Passw0rd"

type apiEnv struct {
	server  *Server
	router  http.Handler
	hub     *sse.Hub
	auth    *appAuth.Service
	users   *appUser.Service
	tokens  map[string]string
	negRepo *memory.NegotiationRepository
}

func newAPIEnv(t *testing.T, opts Options) *apiEnv {
	t.Helper()
	logger := zerolog.Nop()

	negRepo := memory.NewNegotiationRepository()
	posts := memory.NewPostRepository()
	ledger := memory.NewLedger()
	userRepo := memory.NewUserRepository()
	hub := sse.NewHub(logger, 0)

	pipeline := appLifecycle.NewPipeline(logger,
		appLifecycle.NewStateCacheListener(negRepo),
		appLifecycle.NewPostListener(posts),
	)
	lifecycleSvc, err := appLifecycle.NewService(negRepo, ledger, pipeline, appLifecycle.DefaultPolicy(), logger)
	require.NoError(t, err)

	notificationSvc := appNotification.NewService(memory.NewNotificationRepository(), hub, negRepo, userRepo, logger)
	negotiationSvc := appNegotiation.NewService(negRepo, posts, lifecycleSvc, notificationSvc, logger)
	auditSvc := appAudit.NewService(memory.NewAuditRepository(), logger, []byte("test-key"))
	userSvc := appUser.NewService(userRepo, logger)
	authSvc := appAuth.NewService(userRepo, memory.NewSessionRepository(), time.Hour, logger)

	opts.SessionCookieName = "neg_session"
	opts.Logger = logger
	srv := NewServer(lifecycleSvc, negotiationSvc, notificationSvc, auditSvc, authSvc, userSvc, hub, opts)
	t.Cleanup(hub.Stop)

	return &apiEnv{
		server:  srv,
		router:  srv.Router(),
		hub:     hub,
		auth:    authSvc,
		users:   userSvc,
		tokens:  map[string]string{},
		negRepo: negRepo,
	}
}

// addUser creates a user and logs it in, keeping its token under name.
func (e *apiEnv) addUser(t *testing.T, name string, role domainUser.Role, resources ...string) *domainUser.User {
	t.Helper()
	ctx := context.Background()
	u, err := e.users.CreateUser(ctx, appUser.CreateInput{
		Username:  name,
		Password:  testPassword,
		Role:      role,
		Resources: resources,
	})
	require.NoError(t, err)
	res, err := e.auth.Login(ctx, name, testPassword, nil, nil)
	require.NoError(t, err)
	e.tokens[name] = res.Token
	return u
}

func (e *apiEnv) do(t *testing.T, as, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	return e.doWith(t, as, method, path, body, nil)
}

func (e *apiEnv) doWith(t *testing.T, as, method, path string, body interface{}, header http.Header) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if tok, ok := e.tokens[as]; ok {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

// seed creates an admin, a researcher, a representative of R1 and a
// negotiation on R1 owned by the researcher.
func (e *apiEnv) seed(t *testing.T) string {
	t.Helper()
	e.addUser(t, "admin", domainUser.RoleAdmin)
	e.addUser(t, "alice", domainUser.RoleResearcher)
	e.addUser(t, "rita", domainUser.RoleRepresentative, "R1")

	rec, body := e.do(t, "alice", http.MethodPost, "/v1/negotiations", map[string]interface{}{
		"resource_ids":  []string{"R1"},
		"posts_enabled": true,
		"payload":       map[string]interface{}{"project": map[string]interface{}{"title": "Cohort"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "SUBMITTED", body["state"])
	return body["id"].(string)
}

func TestAuthFlow(t *testing.T) {
	e := newAPIEnv(t, Options{})

	rec, _ := e.do(t, "", http.MethodPost, "/v1/auth/bootstrap", map[string]string{
		"username": "root.admin",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, _ = e.do(t, "", http.MethodPost, "/v1/auth/bootstrap", map[string]string{
		"username": "second",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body := e.do(t, "", http.MethodPost, "/v1/auth/login", map[string]string{
		"username": "root.admin",
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	e.tokens["root"] = body["session_token"].(string)
	assert.NotEmpty(t, rec.Result().Cookies())

	rec, body = e.do(t, "root", http.MethodGet, "/v1/auth/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "root.admin", body["username"])
	assert.Equal(t, "ADMIN", body["role"])

	rec, _ = e.do(t, "root", http.MethodPost, "/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = e.do(t, "root", http.MethodGet, "/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", body["error"])
}

func TestLoginRejectsBadPassword(t *testing.T) {
	e := newAPIEnv(t, Options{})
	e.addUser(t, "alice", domainUser.RoleResearcher)

	rec, _ := e.do(t, "", http.MethodPost, "/v1/auth/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNegotiationLifecycleOverHTTP(t *testing.T) {
	e := newAPIEnv(t, Options{})
	id := e.seed(t)
	base := "/v1/negotiations/" + id

	t.Run("researcher cannot approve", func(t *testing.T) {
		rec, body := e.do(t, "alice", http.MethodPut, base+"/lifecycle/approve", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "NOT_ALLOWED", body["error"])
	})

	t.Run("admin sees approve and decline", func(t *testing.T) {
		rec, body := e.do(t, "admin", http.MethodGet, base+"/lifecycle", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "SUBMITTED", body["state"])
		assert.ElementsMatch(t, []interface{}{"APPROVE", "DECLINE", "ABANDON"}, body["possible_events"])
	})

	t.Run("admin approves with a message", func(t *testing.T) {
		rec, body := e.do(t, "admin", http.MethodPut, base+"/lifecycle/APPROVE", map[string]string{"message": "Welcome aboard"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "IN_PROGRESS", body["state"])
		assert.Nil(t, body["warnings"])
	})

	t.Run("approving again is not applicable", func(t *testing.T) {
		rec, body := e.do(t, "admin", http.MethodPut, base+"/lifecycle/APPROVE", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "NOT_APPLICABLE", body["error"])
	})

	t.Run("unknown event is not applicable", func(t *testing.T) {
		rec, body := e.do(t, "admin", http.MethodPut, base+"/lifecycle/REOPEN", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "NOT_APPLICABLE", body["error"])
	})

	t.Run("cached state follows the ledger", func(t *testing.T) {
		rec, body := e.do(t, "alice", http.MethodGet, base, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "IN_PROGRESS", body["state"])
	})

	t.Run("message became a post", func(t *testing.T) {
		rec, body := e.do(t, "alice", http.MethodGet, base+"/posts", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		posts := body["posts"].([]interface{})
		require.Len(t, posts, 1)
		assert.Equal(t, "Welcome aboard", posts[0].(map[string]interface{})["body"])
	})

	t.Run("history lists both entries and the seed", func(t *testing.T) {
		rec, body := e.do(t, "alice", http.MethodGet, base+"/history", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		entries := body["entries"].([]interface{})
		require.Len(t, entries, 3)
		states := []interface{}{}
		for _, raw := range entries {
			states = append(states, raw.(map[string]interface{})["toState"])
		}
		assert.Contains(t, states, "SUBMITTED")
		assert.Contains(t, states, "IN_PROGRESS")
	})
}

func TestLifecycleEventWithExpectedState(t *testing.T) {
	e := newAPIEnv(t, Options{})
	id := e.seed(t)
	base := "/v1/negotiations/" + id

	rec, _ := e.do(t, "admin", http.MethodGet, base+"/lifecycle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	assert.Equal(t, `"SUBMITTED"`, etag)

	rec, body := e.doWith(t, "admin", http.MethodPut, base+"/lifecycle/APPROVE", nil, http.Header{"If-Match": {etag}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "IN_PROGRESS", body["state"])

	t.Run("stale If-Match is a conflict", func(t *testing.T) {
		rec, body := e.doWith(t, "alice", http.MethodPut, base+"/lifecycle/ABANDON", nil, http.Header{"If-Match": {etag}})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "CONFLICT", body["error"])
	})

	t.Run("stale body field is a conflict", func(t *testing.T) {
		rec, body := e.do(t, "alice", http.MethodPut, base+"/lifecycle/ABANDON", map[string]string{"expected_state": "submitted"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "CONFLICT", body["error"])
	})

	t.Run("stale resource state is a conflict", func(t *testing.T) {
		rec, _ := e.do(t, "rita", http.MethodPut, base+"/resources/R1/lifecycle/CONTACT", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec, body := e.doWith(t, "rita", http.MethodPut, base+"/resources/R1/lifecycle/MARK_AS_UNAVAILABLE", nil,
			http.Header{"If-Match": {`W/"CHECKING_AVAILABILITY"`}})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "CONFLICT", body["error"])

		rec, body = e.do(t, "rita", http.MethodGet, base+"/resources/R1/lifecycle", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "REPRESENTATIVE_CONTACTED", body["state"])
		assert.Equal(t, `"REPRESENTATIVE_CONTACTED"`, rec.Header().Get("ETag"))
	})

	t.Run("matching state applies", func(t *testing.T) {
		rec, body := e.doWith(t, "alice", http.MethodPut, base+"/lifecycle/ABANDON", nil, http.Header{"If-Match": {`"IN_PROGRESS"`}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "ABANDONED", body["state"])
	})
}

func TestResourceLifecycleOverHTTP(t *testing.T) {
	e := newAPIEnv(t, Options{})
	id := e.seed(t)
	base := "/v1/negotiations/" + id

	t.Run("resource events wait for approval", func(t *testing.T) {
		rec, _ := e.do(t, "rita", http.MethodPut, base+"/resources/R1/lifecycle/CONTACT", nil)
		assert.NotEqual(t, http.StatusOK, rec.Code)
	})

	rec, _ := e.do(t, "admin", http.MethodPut, base+"/lifecycle/APPROVE", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("representative sees its events", func(t *testing.T) {
		rec, body := e.do(t, "rita", http.MethodGet, base+"/resources/R1/lifecycle", nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "SUBMITTED", body["state"])
		assert.Equal(t, "REPRESENTATIVE", body["role"])
		assert.Equal(t, []interface{}{"CONTACT"}, body["possible_events"])
	})

	t.Run("representative contacts", func(t *testing.T) {
		rec, body := e.do(t, "rita", http.MethodPut, base+"/resources/R1/lifecycle/contact", map[string]string{"message": "On it"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "REPRESENTATIVE_CONTACTED", body["state"])
	})

	t.Run("researcher cannot mark availability", func(t *testing.T) {
		rec, body := e.do(t, "alice", http.MethodPut, base+"/resources/R1/lifecycle/MARK_AS_CHECKING_AVAILABILITY", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "NOT_ALLOWED", body["error"])
	})

	t.Run("per-resource states", func(t *testing.T) {
		rec, body := e.do(t, "alice", http.MethodGet, base+"/resources/lifecycle", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, map[string]interface{}{"R1": "REPRESENTATIVE_CONTACTED"}, body["resources"])
	})

	t.Run("unattached resource is not found", func(t *testing.T) {
		rec, body := e.do(t, "admin", http.MethodGet, base+"/resources/R9/lifecycle", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "NOT_FOUND", body["error"])
	})

	t.Run("attach seeds new resources", func(t *testing.T) {
		rec, body := e.do(t, "admin", http.MethodPost, base+"/resources", map[string]interface{}{"resource_ids": []string{"R2"}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, []interface{}{"R2"}, body["seeded"])

		rec, body = e.do(t, "admin", http.MethodPost, base+"/resources/R2/lifecycle", nil)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ALREADY_INITIALIZED", body["error"])
	})
}

func TestAccessChangeEndsSessions(t *testing.T) {
	e := newAPIEnv(t, Options{})
	id := e.seed(t)
	ctx := context.Background()
	rita, err := e.users.GetByUsername(ctx, "rita")
	require.NoError(t, err)

	rec, _ := e.do(t, "rita", http.MethodGet, "/v1/negotiations/"+id+"/resources/R1/lifecycle", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("admin resource change revokes the token", func(t *testing.T) {
		rec, _ := e.do(t, "admin", http.MethodPut, "/v1/admin/users/"+rita.UserID.String()+"/resources",
			map[string]interface{}{"resources": []string{"R2"}})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec, body := e.do(t, "rita", http.MethodGet, "/v1/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", body["error"])
	})

	t.Run("new session acts under the new grant", func(t *testing.T) {
		res, err := e.auth.Login(ctx, "rita", testPassword, nil, nil)
		require.NoError(t, err)
		e.tokens["rita"] = res.Token

		rec, body := e.do(t, "rita", http.MethodGet, "/v1/negotiations/"+id+"/resources/R1/lifecycle", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "FORBIDDEN", body["error"])
	})

	t.Run("change outside the admin API still ends the session", func(t *testing.T) {
		_, err := e.users.SetResources(ctx, rita.UserID, []string{"R1"})
		require.NoError(t, err)

		rec, body := e.do(t, "rita", http.MethodGet, "/v1/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, body["message"], "access changed")
	})
}

func TestNegotiationAccess(t *testing.T) {
	e := newAPIEnv(t, Options{})
	id := e.seed(t)
	e.addUser(t, "bobby", domainUser.RoleResearcher)
	e.addUser(t, "rick", domainUser.RoleRepresentative, "R7")

	for _, who := range []string{"bobby", "rick"} {
		rec, body := e.do(t, who, http.MethodGet, "/v1/negotiations/"+id+"/lifecycle", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, who)
		assert.Equal(t, "FORBIDDEN", body["error"], who)
	}

	rec, body := e.do(t, "admin", http.MethodGet, "/v1/negotiations/missing/lifecycle", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", body["error"])

	rec, _ = e.do(t, "", http.MethodGet, "/v1/negotiations", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = e.do(t, "bobby", http.MethodGet, "/v1/negotiations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["negotiations"])

	rec, body = e.do(t, "rita", http.MethodGet, "/v1/negotiations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["negotiations"], 1)

	rec, _ = e.do(t, "rita", http.MethodPost, "/v1/negotiations", map[string]interface{}{"resource_ids": []string{"R1"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = e.do(t, "alice", http.MethodPost, "/v1/negotiations", map[string]interface{}{
		"resource_ids": []string{"R1"},
		"payload":      []int{1, 2},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_PARAM", body["error"])
}

func TestAdminRoutes(t *testing.T) {
	e := newAPIEnv(t, Options{})
	id := e.seed(t)

	rec, _ := e.do(t, "alice", http.MethodGet, "/v1/admin/audit", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = e.do(t, "alice", http.MethodPut, "/v1/negotiations/"+id+"/posts-enabled", map[string]bool{"enabled": false})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := e.do(t, "admin", http.MethodPut, "/v1/negotiations/"+id+"/posts-enabled", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["postsEnabled"])

	rec, body = e.do(t, "admin", http.MethodGet, "/v1/admin/rules", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["negotiation"])
	assert.NotEmpty(t, body["resource"])

	rec, _ = e.do(t, "admin", http.MethodGet, "/v1/admin/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = e.do(t, "admin", http.MethodPost, "/v1/admin/users", map[string]interface{}{
		"username":  "rory",
		"password":  testPassword,
		"role":      "representative",
		"resources": []string{"R1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "REPRESENTATIVE", body["role"])

	rec, body = e.do(t, "admin", http.MethodGet, "/v1/admin/users?resource=R1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["users"], 2)

	rec, _ = e.do(t, "admin", http.MethodGet, "/v1/admin/audit?entityType=USER", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLifecycleRateLimit(t *testing.T) {
	e := newAPIEnv(t, Options{Limiter: NewRateLimiter(0.001, 1)})
	id := e.seed(t)

	rec, _ := e.do(t, "alice", http.MethodPut, "/v1/negotiations/"+id+"/lifecycle/APPROVE", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := e.do(t, "alice", http.MethodPut, "/v1/negotiations/"+id+"/lifecycle/ABANDON", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", body["error"])
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// Other users have their own bucket; reads are not limited.
	rec, _ = e.do(t, "admin", http.MethodPut, "/v1/negotiations/"+id+"/lifecycle/APPROVE", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = e.do(t, "alice", http.MethodGet, "/v1/negotiations/"+id+"/lifecycle", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNotificationsOverHTTP(t *testing.T) {
	e := newAPIEnv(t, Options{})
	e.seed(t)

	rec, body := e.do(t, "admin", http.MethodGet, "/v1/notifications", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notes := body["notifications"].([]interface{})
	require.Len(t, notes, 1)
	noteID := notes[0].(map[string]interface{})["notificationId"].(string)

	rec, _ = e.do(t, "alice", http.MethodPost, "/v1/notifications/"+noteID+"/read", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = e.do(t, "admin", http.MethodPost, "/v1/notifications/"+noteID+"/read", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "READ", body["status"])

	rec, _ = e.do(t, "admin", http.MethodPost, "/v1/notifications/not-a-uuid/read", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSSEStreamJoinsNegotiationGroup(t *testing.T) {
	e := newAPIEnv(t, Options{})
	id := e.seed(t)

	ts := httptest.NewServer(e.router)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/notifications/sse?client_id=c1&negotiation="+id, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+e.tokens["alice"])

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": connected\n", line)

	client := e.hub.GetClient("c1")
	require.NotNil(t, client)
	assert.Contains(t, client.Groups, notification.NegotiationGroup(id))

	e.hub.BroadcastToGroup(notification.NegotiationGroup(id), notification.NewSSEMessage(notification.SSEEventLifecycle, []byte(`{"toState":"IN_PROGRESS"}`)))

	_, _ = reader.ReadString('\n') // blank line after the comment
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: lifecycle\n", line)
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, "data: "))
	assert.Contains(t, line, "IN_PROGRESS")
}

func TestSSERejectsForeignNegotiation(t *testing.T) {
	e := newAPIEnv(t, Options{})
	id := e.seed(t)
	e.addUser(t, "bobby", domainUser.RoleResearcher)

	rec, body := e.do(t, "bobby", http.MethodGet, "/v1/notifications/sse?negotiation="+id, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", body["error"])
	assert.Zero(t, e.hub.GetClientCount())
}
