package socialstories

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/social-stories/internal/config"
)

func newTestApp(t *testing.T) (*App, http.Handler) {
	t.Helper()
	cfg := &config.Config{
		Env:              "local",
		StorageDriver:    config.DriverMemory,
		SettingsCacheTTL: time.Minute,
		HTTPServer:       config.HTTPServer{AddressHTTP: ":0", TimeoutHTTP: 5 * time.Second, IdleTimeout: time.Minute},
		JWTToken:         config.JWTToken{TokenTTL: time.Hour, Issuer: "social-stories"},
		Quota:            config.Quota{FreeStoryLimit: 3},
		RateLimit:        config.RateLimit{Backend: config.DriverMemory, GlobalRPS: 1000, GlobalBurst: 1000},
		Sweeper:          config.Sweeper{Interval: time.Minute},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	app, err := New(context.Background(), cfg, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.deps.Close() })
	return app, app.server.Handler
}

type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error"`
	Data   json.RawMessage `json:"data"`
}

func call(t *testing.T, h http.Handler, method, path, token, body string) (int, envelope) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.RemoteAddr = "198.51.100.10:40000"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 && rr.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(rr.Body.Bytes()), []byte("{")) {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	}
	return rr.Code, env
}

func registerUser(t *testing.T, h http.Handler, email string) string {
	t.Helper()
	code, env := call(t, h, http.MethodPost, "/api/v1/auth/register", "",
		`{"email":"`+email+`","password":"secret1","name":"Kid"}`)
	require.Equal(t, http.StatusCreated, code, env.Error)

	var sess struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &sess))
	require.NotEmpty(t, sess.Token)
	return sess.Token
}

func TestRoutes_FreeQuotaFlow(t *testing.T) {
	_, h := newTestApp(t)
	token := registerUser(t, h, "kid@example.com")

	story := `{"title":"Going to the dentist","content":"Today I visit the dentist."}`
	for i := 0; i < 3; i++ {
		code, env := call(t, h, http.MethodPost, "/api/v1/stories", token, story)
		require.Equal(t, http.StatusCreated, code, env.Error)
	}
	code, _ := call(t, h, http.MethodPost, "/api/v1/stories", token, story)
	assert.Equal(t, http.StatusPaymentRequired, code)

	code, env := call(t, h, http.MethodGet, "/api/v1/subscription", token, "")
	require.Equal(t, http.StatusOK, code)
	var st struct {
		StoriesGenerated     int  `json:"stories_generated"`
		RemainingFreeStories int  `json:"remaining_free_stories"`
		CanGenerateVideo     bool `json:"can_generate_video"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &st))
	assert.Equal(t, 3, st.StoriesGenerated)
	assert.Equal(t, 0, st.RemainingFreeStories)
	assert.False(t, st.CanGenerateVideo)

	code, env = call(t, h, http.MethodGet, "/api/v1/stories", token, "")
	require.Equal(t, http.StatusOK, code)
	var stories []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &stories))
	assert.Len(t, stories, 3)
}

func TestRoutes_Unauthenticated(t *testing.T) {
	_, h := newTestApp(t)

	for _, path := range []string{"/api/v1/auth/me", "/api/v1/stories", "/api/v1/admin/stats"} {
		code, env := call(t, h, http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusUnauthorized, code, path)
		assert.Equal(t, "Error", env.Status)
	}

	code, _ := call(t, h, http.MethodGet, "/api/v1/stories", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRoutes_AdminAndMaintenance(t *testing.T) {
	app, h := newTestApp(t)
	token := registerUser(t, h, "admin@example.com")

	code, _ := call(t, h, http.MethodGet, "/api/v1/admin/stats", token, "")
	require.Equal(t, http.StatusUnauthorized, code)

	n, err := app.deps.Repo.PromoteAdmins(context.Background(), []string{"admin@example.com"})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	code, _ = call(t, h, http.MethodGet, "/api/v1/admin/stats", token, "")
	require.Equal(t, http.StatusOK, code)

	code, env := call(t, h, http.MethodPut, "/api/v1/admin/settings", token, `{"maintenance_mode":true}`)
	require.Equal(t, http.StatusOK, code, env.Error)

	code, _ = call(t, h, http.MethodPost, "/api/v1/auth/register", "",
		`{"email":"late@example.com","password":"secret1","name":"Late"}`)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	code, _ = call(t, h, http.MethodPost, "/api/v1/auth/login", "",
		`{"email":"admin@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, h, http.MethodGet, "/api/v1/admin/activity", token, "")
	assert.Equal(t, http.StatusOK, code)

	code, _ = call(t, h, http.MethodGet, "/api/v1/auth/me", token, "")
	assert.Equal(t, http.StatusOK, code)
}

func TestRoutes_HealthAndMetrics(t *testing.T) {
	_, h := newTestApp(t)

	code, env := call(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", env.Status)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
