package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/livecue/component"
	apperrors "github.com/kbukum/livecue/errors"
	"github.com/kbukum/livecue/logger"
)

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "1MB", cfg.MaxBodySize)
	assert.Contains(t, cfg.CORS.AllowedMethods, "POST")
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Port: 70000}
	assert.ErrorContains(t, cfg.Validate(), "server.port")

	cfg = Config{ReadTimeout: -time.Second}
	assert.ErrorContains(t, cfg.Validate(), "server.read_timeout")

	cfg = Config{}
	cfg.RateLimit.RequestsPerMinute = -1
	assert.ErrorContains(t, cfg.Validate(), "requests_per_minute")

	cfg = Config{MaxBodySize: "a lot"}
	assert.ErrorContains(t, cfg.Validate(), "server.max_body_size")
}

func testConfig() Config {
	cfg := Config{Port: 0}
	cfg.ApplyDefaults()
	cfg.Port = 0
	return cfg
}

func TestServer_Lifecycle(t *testing.T) {
	srv := New(testConfig(), logger.Nop())
	checker := func(context.Context) []component.Health {
		return []component.Health{{Name: "capture", Status: component.StatusDegraded, Message: "restarting"}}
	}
	srv.ApplyDefaults("livecue", checker, nil)
	assert.Equal(t, "http-server", srv.Name())

	h := srv.Health(context.Background())
	assert.Equal(t, component.StatusUnhealthy, h.Status)
	assert.Equal(t, "not listening on 127.0.0.1:0", h.Message)
	require.NoError(t, srv.Start(context.Background()))
	assert.Equal(t, component.StatusHealthy, srv.Health(context.Background()).Status)
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr(), "Addr reports the bound port")
	assert.Equal(t, component.Description{Type: "http", Details: srv.Addr()}, srv.Describe())

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))

	var body struct {
		Status     string             `json:"status"`
		Service    string             `json:"service"`
		Components []component.Health `json:"components"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "livecue", body.Service)
	require.Len(t, body.Components, 1)

	require.NoError(t, srv.Stop(context.Background()))
	assert.Eventually(t, func() bool { return !srv.Listening() }, time.Second, time.Millisecond)
}

func TestServer_MetricsSections(t *testing.T) {
	srv := New(testConfig(), logger.Nop())
	srv.RegisterDefaultEndpoints("livecue", nil)
	srv.AddStats("session", func() any { return map[string]bool{"in_flight": true} })

	rec := httptest.NewRecorder()
	srv.GinEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "runtime")
	assert.JSONEq(t, `{"in_flight":true}`, string(body["session"]))
}

func TestServer_BindFailure(t *testing.T) {
	first := New(testConfig(), logger.Nop())
	require.NoError(t, first.Start(context.Background()))
	t.Cleanup(func() { _ = first.Stop(context.Background()) })

	cfg := testConfig()
	_, port, err := net.SplitHostPort(first.Addr())
	require.NoError(t, err)
	cfg.Port, err = strconv.Atoi(port)
	require.NoError(t, err)
	second := New(cfg, logger.Nop())
	err = second.Start(context.Background())
	assert.ErrorContains(t, err, "failed to bind")
	assert.False(t, second.Listening())
}

func TestRespondWithError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name   string
		err    error
		status int
		code   apperrors.ErrorCode
	}{
		{"app error", apperrors.ErrInProgress, http.StatusConflict, apperrors.ErrCodeInProgress},
		{"wrapped app error", errors.Join(errors.New("ctx"), apperrors.Timeout("llm")), http.StatusGatewayTimeout, apperrors.ErrCodeTimeout},
		{"foreign error", errors.New("secret detail"), http.StatusInternalServerError, apperrors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			RespondWithError(c, tt.err)
			assert.Equal(t, tt.status, rec.Code)

			var body apperrors.Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotContains(t, rec.Body.String(), "secret detail")
		})
	}
}
