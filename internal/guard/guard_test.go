package guard_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/price-guess/internal/cookies"
	"github.com/linemk/price-guess/internal/guard"
	"github.com/linemk/price-guess/internal/page"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPageContext(token string) (*page.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookies.TokenName, Value: token})
		req.AddCookie(&http.Cookie{Name: cookies.RefreshTokenName, Value: "refresh"})
	}
	rr := httptest.NewRecorder()
	return page.NewContext(rr, req, cookies.Options{}), rr
}

func clearedCookies(rr *httptest.ResponseRecorder) map[string]bool {
	out := make(map[string]bool)
	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 {
			out[c.Name] = true
		}
	}
	return out
}

func TestWithSSRAuth_NoToken(t *testing.T) {
	called := false
	loader := guard.WithSSRAuth(func(ctx *page.Context) (page.Result, error) {
		called = true
		return page.Result{}, nil
	}, nil)

	ctx, _ := newPageContext("")
	res, err := loader(ctx)

	require.NoError(t, err)
	assert.False(t, called, "wrapped loader must not be invoked without token")
	require.NotNil(t, res.Redirect)
	assert.Equal(t, "/auth/login", res.Redirect.Destination)
	assert.False(t, res.Redirect.Permanent)
}

func TestWithSSRAuth_ValidToken(t *testing.T) {
	loader := guard.WithSSRAuth(func(ctx *page.Context) (page.Result, error) {
		return page.Result{Props: "home"}, nil
	}, nil)

	ctx, rr := newPageContext("token")
	res, err := loader(ctx)

	require.NoError(t, err)
	assert.Nil(t, res.Redirect)
	assert.Equal(t, "home", res.Props)
	assert.Empty(t, clearedCookies(rr))
}

func TestWithSSRAuth_LoaderFails(t *testing.T) {
	loader := guard.WithSSRAuth(func(ctx *page.Context) (page.Result, error) {
		return page.Result{}, errors.New("boom")
	}, nil)

	ctx, rr := newPageContext("token")
	res, err := loader(ctx)

	require.NoError(t, err)
	require.NotNil(t, res.Redirect)
	assert.Equal(t, "/auth/login", res.Redirect.Destination)

	cleared := clearedCookies(rr)
	assert.True(t, cleared[cookies.TokenName])
	assert.True(t, cleared[cookies.RefreshTokenName])
}

func TestWithSSRAuth_Roles(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "u1",
		"roles": []string{"player"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	ok := guard.WithSSRAuth(func(ctx *page.Context) (page.Result, error) {
		return page.Result{Props: "ok"}, nil
	}, &guard.Options{Roles: []string{"player"}})

	ctx, _ := newPageContext(token)
	res, err := ok(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Props)

	denied := guard.WithSSRAuth(func(ctx *page.Context) (page.Result, error) {
		return page.Result{Props: "admin"}, nil
	}, &guard.Options{Roles: []string{"admin"}})

	ctx, _ = newPageContext(token)
	res, err = denied(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.Redirect)
	assert.Equal(t, "/", res.Redirect.Destination)
}

func TestPageHandler_Redirects(t *testing.T) {
	loader := guard.WithSSRAuth(func(ctx *page.Context) (page.Result, error) {
		return page.Result{Props: "home"}, nil
	}, nil)

	h := page.Handler(loader, cookies.Options{},
		func(w http.ResponseWriter, r *http.Request, props interface{}) {
			w.WriteHeader(http.StatusOK)
		},
		func(w http.ResponseWriter, r *http.Request, err error) {
			w.WriteHeader(http.StatusInternalServerError)
		},
	)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/auth/login", rr.Header().Get("Location"))
}
