package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/checkin-api/internal/clock"
	"github.com/vietanh2810/checkin-api/internal/config"
	"github.com/vietanh2810/checkin-api/internal/credential"
	"github.com/vietanh2810/checkin-api/internal/db"
	"github.com/vietanh2810/checkin-api/internal/domain"
	"github.com/vietanh2810/checkin-api/internal/service"
)

type testServer struct {
	*Server
	clock *clock.Fake
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.OpenSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	conf := &config.AppConfig{
		API: &config.APIConfig{
			Environment:   "test",
			JWTSigningKey: "server-test-key",
			AdminEmails:   []string{"admin@example.com"},
		},
		Gin:      &config.GinConfig{Mode: "test"},
		Postgres: &config.PostgresConfig{},
		Checkin: &config.CheckinConfig{
			WebappURL: "https://app.example.com",
			TokenTTL:  credential.DefaultTTL,
			Store:     config.StoreMemory,
		},
		Redis: &config.RedisConfig{},
	}

	c := clock.NewFake(time.Now())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := service.NewFeedHub()
	go hub.Run(ctx)

	s, err := NewServer(conf, gdb, credential.NewMemoryStore(conf.Checkin.TokenTTL, c), hub, c)
	require.NoError(t, err)

	return &testServer{Server: s, clock: c}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func (s *testServer) signupAndLogin(t *testing.T, email string) (string, domain.User) {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name": "Someone", "email": email, "password": "secret123", "confirm_password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string      `json:"token"`
		User  domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp.User
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type failureBody struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *testServer) setupActivation(t *testing.T, adminToken string, points int) domain.Activation {
	t.Helper()

	w := s.do(t, http.MethodPost, "/api/v1/events", adminToken, map[string]any{"name": "Fair", "date": "2024-06-01"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	event := decode[domain.Event](t, w)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/events/%d/activations", event.ID), adminToken,
		map[string]any{"name": "Stand A", "points": points})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	return decode[domain.Activation](t, w)
}

func (s *testServer) mint(t *testing.T, token string, activationID uint) string {
	t.Helper()

	w := s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/activations/%d/qrcode", activationID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	qr := decode[struct {
		Success       bool   `json:"success"`
		QRCodeURL     string `json:"qr_code_url"`
		QRCodeDataURL string `json:"qr_code_data_url"`
	}](t, w)
	require.True(t, qr.Success)
	require.True(t, strings.HasPrefix(qr.QRCodeDataURL, "data:image/png;base64,"))

	return qr.QRCodeURL
}

func TestServer_CheckinFlow(t *testing.T) {
	s := newTestServer(t)

	adminToken, admin := s.signupAndLogin(t, "admin@example.com")
	require.True(t, admin.IsAdmin)
	u1Token, _ := s.signupAndLogin(t, "u1@example.com")
	u2Token, u2 := s.signupAndLogin(t, "u2@example.com")

	activation := s.setupActivation(t, adminToken, 20)
	payload := s.mint(t, adminToken, activation.ID)

	w := s.do(t, http.MethodPost, "/api/v1/checkins/preview", "", map[string]string{"payload": payload})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"already_checked_in":false`)

	w = s.do(t, http.MethodPost, "/api/v1/checkins", u1Token, map[string]string{"payload": payload})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[domain.CheckinResult](t, w)
	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "20")
	assert.Equal(t, 20, result.TotalPoints)

	w = s.do(t, http.MethodPost, "/api/v1/checkins", u1Token, map[string]string{"payload": payload})
	require.Equal(t, http.StatusConflict, w.Code)
	failure := decode[failureBody](t, w)
	assert.False(t, failure.Success)
	assert.Equal(t, "duplicate_checkin", failure.Code)
	assert.Equal(t, service.ErrDuplicateCheckin.Error(), failure.Message)

	w = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/users/%d/points", u2.ID), adminToken, map[string]int{"points": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/checkins", u2Token, map[string]string{"payload": payload, "location": "Hall"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 25, decode[domain.CheckinResult](t, w).TotalPoints)

	w = s.do(t, http.MethodGet, "/api/v1/users/me", u2Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 25, decode[domain.User](t, w).TotalPoints)

	w = s.do(t, http.MethodGet, "/api/v1/checkins/me", u2Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]domain.HistoryEntry](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, "Hall", history[0].Location)
	assert.Equal(t, "Stand A", history[0].Activation.Name)

	w = s.do(t, http.MethodPost, "/api/v1/checkins/preview", u1Token, map[string]string{"payload": payload})
	assert.Contains(t, w.Body.String(), `"already_checked_in":true`)

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `checkin_submissions_total{form="url",outcome="success"} 2`)
	assert.Contains(t, w.Body.String(), `checkin_points_granted_total 40`)
}

func TestServer_CheckinFailures(t *testing.T) {
	s := newTestServer(t)

	adminToken, _ := s.signupAndLogin(t, "admin@example.com")
	userToken, _ := s.signupAndLogin(t, "u@example.com")
	activation := s.setupActivation(t, adminToken, 10)
	payload := s.mint(t, adminToken, activation.ID)

	w := s.do(t, http.MethodPost, "/api/v1/checkins", "", map[string]string{"payload": payload})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", decode[failureBody](t, w).Code)

	w = s.do(t, http.MethodPost, "/api/v1/checkins", userToken, map[string]string{"payload": "hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_token", decode[failureBody](t, w).Code)

	w = s.do(t, http.MethodPost, "/api/v1/checkins", userToken, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_token", decode[failureBody](t, w).Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/activations/%d/qrcode", activation.ID), userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "permission_denied", decode[failureBody](t, w).Code)

	w = s.do(t, http.MethodPost, "/api/v1/activations/999/qrcode", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/activations/%d", activation.ID), adminToken,
		map[string]string{"status": domain.ActivationStatusInactive})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/checkins", userToken, map[string]string{"payload": payload})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "activation_inactive", decode[failureBody](t, w).Code)

	w = s.do(t, http.MethodPatch, fmt.Sprintf("/api/v1/activations/%d", activation.ID), adminToken,
		map[string]string{"status": domain.ActivationStatusActive})
	require.Equal(t, http.StatusOK, w.Code)

	s.clock.Advance(credential.DefaultTTL + time.Second)
	w = s.do(t, http.MethodPost, "/api/v1/checkins", userToken, map[string]string{"payload": payload})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_token", decode[failureBody](t, w).Code)
}

func TestServer_MintSVG(t *testing.T) {
	s := newTestServer(t)

	adminToken, _ := s.signupAndLogin(t, "admin@example.com")
	activation := s.setupActivation(t, adminToken, 10)

	w := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/activations/%d/qrcode.svg", activation.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "<svg"))
}

func TestServer_AuthAndAdmin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "ghost@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	userToken, user := s.signupAndLogin(t, "u@example.com")
	assert.False(t, user.IsAdmin)

	w = s.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"name": "Again", "email": "u@example.com", "password": "secret123", "confirm_password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/events", userToken, map[string]any{"name": "Fair", "date": "2024-06-01"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/events/12", userToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/events/abc", userToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Feed(t *testing.T) {
	s := newTestServer(t)

	adminToken, _ := s.signupAndLogin(t, "admin@example.com")
	userToken, _ := s.signupAndLogin(t, "u@example.com")
	activation := s.setupActivation(t, adminToken, 15)

	srv := httptest.NewServer(s.Router)
	defer srv.Close()

	wsURL := strings.Replace(srv.URL, "http", "ws", 1) +
		fmt.Sprintf("/api/v1/events/%d/feed?access_token=%s", activation.EventID, url.QueryEscape(adminToken))

	_, resp, err := websocket.DefaultDialer.Dial(
		strings.Replace(wsURL, url.QueryEscape(adminToken), url.QueryEscape(userToken), 1), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	payload := s.mint(t, adminToken, activation.ID)
	w := s.do(t, http.MethodPost, "/api/v1/checkins", userToken, map[string]string{"payload": payload})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event domain.CheckinEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "checkin", event.Type)
	assert.Equal(t, activation.ID, event.ActivationID)
	assert.Equal(t, 15, event.Points)
}
