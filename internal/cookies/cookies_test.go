package cookies_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/linemk/price-guess/internal/cookies"
	"github.com/linemk/price-guess/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCookie(t *testing.T, rr *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestJar_ReadsRequestCookies(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookies.TokenName, Value: "access"})
	req.AddCookie(&http.Cookie{Name: cookies.RefreshTokenName, Value: "refresh"})

	jar := cookies.NewJar(httptest.NewRecorder(), req, cookies.Options{})

	assert.Equal(t, "access", jar.Token())
	assert.Equal(t, models.Credentials{AccessToken: "access", RefreshToken: "refresh"}, jar.Credentials())
}

func TestJar_SaveCredentials(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	jar := cookies.NewJar(rr, req, cookies.Options{})

	jar.SaveCredentials(models.Credentials{AccessToken: "a1", RefreshToken: "r1"})

	// новое значение видно в рамках того же запроса
	assert.Equal(t, "a1", jar.Token())

	c := findCookie(t, rr, cookies.TokenName)
	require.NotNil(t, c)
	assert.Equal(t, "a1", c.Value)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 60*60*24*30, c.MaxAge)

	c = findCookie(t, rr, cookies.RefreshTokenName)
	require.NotNil(t, c)
	assert.Equal(t, "r1", c.Value)
}

func TestJar_Clear(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookies.TokenName, Value: "access"})
	rr := httptest.NewRecorder()
	jar := cookies.NewJar(rr, req, cookies.Options{})

	jar.Clear()

	assert.Empty(t, jar.Token())
	c := findCookie(t, rr, cookies.TokenName)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
	assert.NotNil(t, findCookie(t, rr, cookies.RefreshTokenName))
}
