package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/price-guess/internal/app/web"
	"github.com/linemk/price-guess/internal/game"
	"github.com/linemk/price-guess/internal/guard"
	"github.com/linemk/price-guess/internal/page"
)

var ErrNoUser = errors.New("session has no user")

// homeLoader восстанавливает сессию через /auth/me и готовит данные игровой страницы
func homeLoader(sessions *Sessions, period int) page.Loader {
	return func(ctx *page.Context) (page.Result, error) {
		store, _ := sessions.ForJar(ctx.Cookies)
		if err := store.Restore(ctx.Ctx(), ctx.Request.URL.Path); err != nil {
			return page.Result{}, err
		}
		user := store.User()
		if user == nil {
			return page.Result{}, ErrNoUser
		}

		return page.Result{Props: web.HomePage{
			Title:        "Guess the price",
			User:         *user,
			Score:        store.Guess().Score.String(),
			InitialPrice: game.RefinePrice(store.InitialPrice()),
			Period:       period,
		}}, nil
	}
}

// HomeHandler GET /: игровая страница только для вошедших
func HomeHandler(log *slog.Logger, tpl *web.Templates, sessions *Sessions, period int) http.HandlerFunc {
	loader := guard.WithSSRAuth(homeLoader(sessions, period), &guard.Options{Logger: log})

	return page.Handler(loader, sessions.Cookies,
		func(w http.ResponseWriter, r *http.Request, props interface{}) {
			render(log, tpl, w, http.StatusOK, "home.html", props)
		},
		func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error("home page failed", slog.String("op", "handlers.HomeHandler"), slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
		},
	)
}

// HealthHandler GET /healthz
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
