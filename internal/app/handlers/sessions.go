package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/linemk/price-guess/internal/apiclient"
	"github.com/linemk/price-guess/internal/cookies"
	"github.com/linemk/price-guess/internal/session"
)

// Sessions собирает сессию вокруг cookie одного запроса
type Sessions struct {
	Log        *slog.Logger
	BackendURL string
	Timeout    time.Duration
	Cookies    cookies.Options
	// Publisher получает событие выхода, может быть nil
	Publisher session.Publisher
	// HTTPClient для тестов, nil - клиент по умолчанию
	HTTPClient *http.Client
}

// API клиент бэкенда в серверном режиме, токены живут в jar
func (s *Sessions) API(jar *cookies.Jar) *apiclient.Client {
	return s.newAPI(jar)
}

func (s *Sessions) newAPI(jar *cookies.Jar, extra ...apiclient.Option) *apiclient.Client {
	var opts []apiclient.Option
	if s.HTTPClient != nil {
		opts = append(opts, apiclient.WithHTTPClient(s.HTTPClient))
	} else if s.Timeout > 0 {
		opts = append(opts, apiclient.WithTimeout(s.Timeout))
	}
	opts = append(opts, extra...)

	var store apiclient.TokenStore
	if jar != nil {
		store = jar
	}
	return apiclient.New(s.Log, s.BackendURL, store, opts...)
}

// ForJar сессия поверх jar; переходы сессии копятся в навигаторе
func (s *Sessions) ForJar(jar *cookies.Jar) (*session.Store, *session.RedirectNavigator) {
	nav := &session.RedirectNavigator{}
	return session.New(s.Log, s.API(jar), jar, nav, s.Publisher), nav
}

// ForRequest то же, что ForJar, для cookie запроса r
func (s *Sessions) ForRequest(w http.ResponseWriter, r *http.Request) (*session.Store, *session.RedirectNavigator, *cookies.Jar) {
	jar := cookies.NewJar(w, r, s.Cookies)
	store, nav := s.ForJar(jar)
	return store, nav, jar
}

// ForBrowser сессия для запросов, которые браузер шлёт сам (игровой websocket).
// Клиент работает в браузерном режиме: неисправимый 401 сразу закрывает сессию
// и оповещает остальные вкладки.
func (s *Sessions) ForBrowser(w http.ResponseWriter, r *http.Request) (*session.Store, *cookies.Jar) {
	jar := cookies.NewJar(w, r, s.Cookies)
	nav := &session.RedirectNavigator{}

	var store *session.Store
	api := s.newAPI(jar, apiclient.WithSignOut(func() {
		store.SignOut(r.Context())
	}))
	store = session.New(s.Log, api, jar, nav, s.Publisher)
	return store, jar
}

// redirectTarget путь из навигатора или fallback
func redirectTarget(nav *session.RedirectNavigator, fallback string) string {
	if t := nav.Target(); t != "" {
		return t
	}
	return fallback
}
