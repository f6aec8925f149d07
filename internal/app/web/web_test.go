package web_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linemk/price-guess/internal/app/web"
	"github.com/linemk/price-guess/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_Login(t *testing.T) {
	tpl, err := web.Load()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = tpl.Render(rr, http.StatusUnprocessableEntity, "login.html", web.FormPage{
		Title:   "Sign in",
		Message: "Invalid email or password",
		Values:  map[string]string{"email": "a@b.io", "password": "secret"},
		Errors:  map[string]string{"password": "No password provided"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Invalid email or password")
	assert.Contains(t, body, `value="a@b.io"`)
	assert.Contains(t, body, "No password provided")
	assert.NotContains(t, body, "secret")
}

func TestRender_Home(t *testing.T) {
	tpl, err := web.Load()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	err = tpl.Render(rr, http.StatusOK, "home.html", web.HomePage{
		Title:        "Game",
		User:         models.User{Username: "<player>"},
		InitialPrice: "27123.45",
		Period:       60,
	})
	require.NoError(t, err)

	body := rr.Body.String()
	assert.Contains(t, body, "&lt;player&gt;")
	assert.Contains(t, body, "27123.45")
	assert.Contains(t, body, "/game/ws")
}

func TestRender_UnknownTemplate(t *testing.T) {
	tpl, err := web.Load()
	require.NoError(t, err)
	rr := httptest.NewRecorder()
	assert.Error(t, tpl.Render(rr, http.StatusOK, "missing.html", nil))
}
