// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wardenauth/warden/internal/access"
	"github.com/wardenauth/warden/internal/action"
	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/auth/memory"
	"github.com/wardenauth/warden/internal/auth/mocks"
	"github.com/wardenauth/warden/internal/observability"
)

func newService(t *testing.T, users auth.UserStore) *auth.Service {
	t.Helper()
	manager, err := auth.NewSessionManager(memory.NewSessionStore())
	require.NoError(t, err)
	svc, err := auth.NewService(auth.ServiceConfig{
		Users:       users,
		Attempts:    auth.NewBucketTracker(auth.DefaultBuckets),
		Sessions:    manager,
		Permissions: access.NewEngine(),
		Executor:    action.NewMemoryExecutor(),
		Verifier:    verifier,
	})
	require.NoError(t, err)
	return svc
}

var verifier = auth.NewPasswordVerifier(auth.NewArgon2idHasherWithParams(auth.Argon2Params{Memory: 1024}))

func seededUsers(t *testing.T) *memory.UserStore {
	t.Helper()
	users := memory.NewUserStore()
	for _, u := range []struct {
		name, password string
		role           access.Role
	}{
		{"admin", "secret", access.RoleAdmin},
		{"alice", "wonderland", access.RoleEditor},
		{"bob", "builder", access.RoleUser},
	} {
		digest, err := verifier.Hash(u.password)
		require.NoError(t, err)
		user, err := auth.NewUser(u.name, "", digest, u.role)
		require.NoError(t, err)
		require.NoError(t, users.Create(context.Background(), user))
	}
	return users
}

type harness struct {
	server  *Server
	metrics *observability.Metrics
}

func newHarness(t *testing.T, users auth.UserStore) *harness {
	t.Helper()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	server, err := NewServer(Config{Service: newService(t, users), Metrics: metrics})
	require.NoError(t, err)
	return &harness{server: server, metrics: metrics}
}

func (h *harness) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/v1/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, seededUsers(t))
	rec := h.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestLogin(t *testing.T) {
	h := newHarness(t, seededUsers(t))

	rec := h.do(t, http.MethodPost, "/v1/login", "", `{"username":"alice","password":"wonderland"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, access.RoleEditor, resp.User.Role)
	assert.Len(t, resp.Token, 64)
	assert.WithinDuration(t, time.Now().Add(auth.DefaultSessionTTL), resp.ExpiresAt, time.Minute)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{name: "malformed json", body: `{"username":`, status: http.StatusBadRequest, code: CodeBadRequest},
		{name: "missing password", body: `{"username":"alice"}`, status: http.StatusBadRequest, code: CodeBadRequest},
		{name: "blank username", body: `{"username":"  ","password":"x"}`, status: http.StatusBadRequest, code: CodeBadRequest},
		{name: "wrong password", body: `{"username":"alice","password":"nope"}`, status: http.StatusUnauthorized, code: CodeInvalidCredential},
		{name: "unknown user", body: `{"username":"mallory","password":"nope"}`, status: http.StatusUnauthorized, code: CodeInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, seededUsers(t))
			rec := h.do(t, http.MethodPost, "/v1/login", "", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}

func TestLogin_Lockout(t *testing.T) {
	h := newHarness(t, seededUsers(t))
	wrong := `{"username":"bob","password":"wrong"}`

	for range auth.DefaultLockoutThreshold {
		rec := h.do(t, http.MethodPost, "/v1/login", "", wrong)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := h.do(t, http.MethodPost, "/v1/login", "", `{"username":"bob","password":"builder"}`)
	assert.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, auth.CodeAccountLocked, decodeError(t, rec).Code)
}

func TestLogin_StoreUnavailable(t *testing.T) {
	users := mocks.NewMockUserStore(t)
	users.On("Lookup", mock.Anything, "alice").Return(nil, errors.New("connection refused"))
	h := newHarness(t, users)

	rec := h.do(t, http.MethodPost, "/v1/login", "", `{"username":"alice","password":"wonderland"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	resp := decodeError(t, rec)
	assert.Equal(t, auth.CodeStoreUnavailable, resp.Code)
	assert.NotContains(t, resp.Error, "connection refused")
}

func TestSession(t *testing.T) {
	h := newHarness(t, seededUsers(t))
	token := h.login(t, "bob", "builder")

	rec := h.do(t, http.MethodGet, "/v1/session", token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	assert.Equal(t, "bob", session.Subject)
	assert.NotEmpty(t, session.ID)

	rec = h.do(t, http.MethodDelete, "/v1/session", token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodGet, "/v1/session", token, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, auth.CodeSessionInvalid, decodeError(t, rec).Code)
}

func TestSession_BadCredentials(t *testing.T) {
	h := newHarness(t, seededUsers(t))

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "wrong scheme", header: "Basic Ym9iOmJ1aWxkZXI="},
		{name: "empty bearer", header: "Bearer "},
		{name: "unknown token", header: "Bearer " + strings.Repeat("a", 64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/session", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			h.server.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, auth.CodeSessionInvalid, decodeError(t, rec).Code)
		})
	}
}

func TestActions(t *testing.T) {
	h := newHarness(t, seededUsers(t))
	admin := h.login(t, "admin", "secret")
	editor := h.login(t, "alice", "wonderland")
	user := h.login(t, "bob", "builder")

	rec := h.do(t, http.MethodPost, "/v1/actions/write", editor, `{"value":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var written action.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &written))
	require.Len(t, written.Records, 1)
	assert.Equal(t, "alice", written.Records[0].Owner)

	rec = h.do(t, http.MethodPost, "/v1/actions/read", user, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var read action.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &read))
	assert.Equal(t, int64(1), read.Affected)

	tests := []struct {
		name   string
		token  string
		action string
		body   string
		status int
		code   string
	}{
		{name: "user cannot write", token: user, action: "write", body: `{"value":"x"}`, status: http.StatusForbidden, code: auth.CodePermissionDenied},
		{name: "editor cannot delete", token: editor, action: "delete", body: `{"record_id":1}`, status: http.StatusForbidden, code: auth.CodePermissionDenied},
		{name: "user asking for unknown action", token: user, action: "launch", status: http.StatusForbidden, code: auth.CodePermissionDenied},
		{name: "admin asking for unknown action", token: admin, action: "launch", status: http.StatusNotFound, code: auth.CodeUnknownAction},
		{name: "no session", token: "", action: "read", status: http.StatusUnauthorized, code: auth.CodeSessionInvalid},
		{name: "bad body", token: admin, action: "write", body: `{"value":`, status: http.StatusBadRequest, code: CodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(t, http.MethodPost, "/v1/actions/"+tt.action, tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}

	rec = h.do(t, http.MethodPost, "/v1/actions/delete", admin, `{"record_id":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted action.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	assert.Equal(t, int64(1), deleted.Affected)
}

func TestCheckPermission(t *testing.T) {
	h := newHarness(t, seededUsers(t))

	tests := []struct {
		role    string
		action  string
		allowed bool
	}{
		{"admin", "delete", true},
		{"admin", "anything", true},
		{"editor", "write", true},
		{"editor", "delete", false},
		{"user", "read", true},
		{"user", "write", false},
		{"root", "read", false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+tt.action, func(t *testing.T) {
			rec := h.do(t, http.MethodGet, "/v1/permissions/"+tt.role+"/"+tt.action, "", "")
			require.Equal(t, http.StatusOK, rec.Code)
			var resp permissionResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.allowed, resp.Allowed)
			assert.Equal(t, tt.role, resp.Role)
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, seededUsers(t))
	rec := h.do(t, http.MethodGet, "/v1/nothing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decodeError(t, rec).Code)
}

func TestMetricsRecordRouteTemplates(t *testing.T) {
	h := newHarness(t, seededUsers(t))
	h.do(t, http.MethodGet, "/v1/permissions/user/read", "", "")
	h.do(t, http.MethodGet, "/v1/permissions/admin/write", "", "")
	h.do(t, http.MethodPost, "/v1/login", "", `{"username":"bob","password":"nope"}`)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		h.metrics.RequestsTotal.WithLabelValues("/v1/permissions/:role/:action", http.MethodGet, "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		h.metrics.RequestsTotal.WithLabelValues("/v1/login", http.MethodPost, "401")))
}

func TestRecoverPanics(t *testing.T) {
	h := newHarness(t, seededUsers(t))
	h.server.echo.GET("/boom", func(echo.Context) error { panic("kaboom") })

	rec := h.do(t, http.MethodGet, "/boom", "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, CodeInternal, resp.Code)
	assert.NotContains(t, resp.Error, "kaboom")
}

func TestServer_StartStop(t *testing.T) {
	h := newHarness(t, seededUsers(t))
	errCh, err := h.server.Start("127.0.0.1:0")
	require.NoError(t, err)

	_, err = h.server.Start("127.0.0.1:0")
	assert.Error(t, err, "double start")

	resp, err := http.Get("http://" + h.server.Addr() + "/health") //nolint:gosec,noctx // local test server
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.server.Stop(ctx))
	require.NoError(t, h.server.Stop(ctx), "stop is idempotent")

	select {
	case err, ok := <-errCh:
		if ok {
			assert.NoError(t, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error channel not closed")
	}
}
