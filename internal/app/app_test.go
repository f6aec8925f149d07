package app_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/linemk/price-guess/internal/app"
	"github.com/linemk/price-guess/internal/config"
	"github.com/linemk/price-guess/internal/lib/backendtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig(backendURL string) *config.Config {
	cfg := &config.Config{Env: "local"}
	cfg.Backend.URL = backendURL
	cfg.Game.Period = 60
	cfg.Broadcast.Driver = app.DriverMemory
	return cfg
}

func TestNewApp_Routes(t *testing.T) {
	backend := backendtest.New()
	defer backend.Close()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	application, err := app.NewApp(log, newConfig(backend.URL()))
	require.NoError(t, err)
	defer application.Close()

	srv := httptest.NewServer(application.Router())
	defer srv.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}

	resp, err := client.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/login", resp.Header.Get("Location"))

	resp, err = client.Get(srv.URL + "/auth/register")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewApp_UnknownDriver(t *testing.T) {
	cfg := newConfig("http://localhost:1")
	cfg.Broadcast.Driver = "kafka"

	_, err := app.NewApp(slog.New(slog.NewTextHandler(os.Stdout, nil)), cfg)
	assert.Error(t, err)
}

func TestRouter_CORS(t *testing.T) {
	cfg := newConfig("http://localhost:1")
	cfg.HTTPServer.AllowedOrigins = []string{"http://game.local"}

	application, err := app.NewApp(slog.New(slog.NewTextHandler(os.Stdout, nil)), cfg)
	require.NoError(t, err)
	defer application.Close()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://game.local")
	rr := httptest.NewRecorder()
	application.Router().ServeHTTP(rr, req)

	assert.Equal(t, "http://game.local", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rr.Header().Get("Access-Control-Allow-Credentials"))
}
