package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/linemk/price-guess/internal/app/handlers"
	"github.com/linemk/price-guess/internal/app/web"
	"github.com/linemk/price-guess/internal/config"
	"github.com/linemk/price-guess/internal/cookies"
	"github.com/linemk/price-guess/internal/game"
	"github.com/linemk/price-guess/internal/lib/logger/handlers/urllog"
	"github.com/linemk/price-guess/internal/session/broadcast"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

const (
	DriverMemory = "memory"
	DriverNATS   = "nats"

	guessesPerSecond = 5
	guessBurst       = 5
)

type App struct {
	Config      *config.Config
	Logger      *slog.Logger
	Broadcaster broadcast.Broadcaster
	Hub         *game.Hub
	Templates   *web.Templates
	Sessions    *handlers.Sessions
	Dial        handlers.FeedDialer
	Clock       clockwork.Clock

	unsubscribe func()
}

// NewApp создаёт новый экземпляр App
func NewApp(log *slog.Logger, cfg *config.Config) (*App, error) {
	bc, err := newBroadcaster(log, cfg.Broadcast)
	if err != nil {
		return nil, errors.Wrap(err, "failed to init session broadcast")
	}

	tpl, err := web.Load()
	if err != nil {
		_ = bc.Close()
		return nil, errors.Wrap(err, "failed to load templates")
	}

	hub := game.NewHub(log)
	// выход в любой вкладке любого экземпляра закрывает игровые вьюхи пользователя
	unsubscribe, err := bc.Subscribe(hub.HandleBroadcast)
	if err != nil {
		_ = bc.Close()
		return nil, errors.Wrap(err, "failed to subscribe to session broadcast")
	}

	app := &App{
		Config:      cfg,
		Logger:      log,
		Broadcaster: bc,
		Hub:         hub,
		Templates:   tpl,
		Sessions: &handlers.Sessions{
			Log:        log,
			BackendURL: cfg.Backend.URL,
			Timeout:    cfg.Backend.Timeout,
			Cookies:    cookies.Options{MaxAge: cfg.Cookies.MaxAge, Secure: cfg.Cookies.Secure},
			Publisher:  bc,
		},
		Dial:        handlers.NewFeedDialer(log, cfg.Feed.URL),
		Clock:       clockwork.NewRealClock(),
		unsubscribe: unsubscribe,
	}

	return app, nil
}

func newBroadcaster(log *slog.Logger, cfg config.BroadcastConfig) (broadcast.Broadcaster, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return broadcast.NewMemory(), nil
	case DriverNATS:
		bc, err := broadcast.NewNATS(log, broadcast.NATSConfig{URL: cfg.NatsURL, Subject: cfg.Subject})
		if err != nil {
			return nil, err
		}
		return bc, nil
	default:
		return nil, errors.Errorf("unknown broadcast driver %q", cfg.Driver)
	}
}

// Router маршруты веб-приложения
func (a *App) Router() http.Handler {
	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(a.Logger))
	router.Use(middleware.Recoverer)

	router.Get("/healthz", handlers.HealthHandler())

	router.Route("/auth", func(r chi.Router) {
		r.Get("/login", handlers.LoginPageHandler(a.Logger, a.Templates))
		r.Post("/login", handlers.LoginHandler(a.Logger, a.Templates, a.Sessions))
		r.Get("/register", handlers.RegisterPageHandler(a.Logger, a.Templates))
		r.Post("/register", handlers.RegisterHandler(a.Logger, a.Templates, a.Sessions))
		r.Post("/logout", handlers.LogoutHandler(a.Logger, a.Sessions))
	})

	router.Get("/", handlers.HomeHandler(a.Logger, a.Templates, a.Sessions, a.Config.Game.Period))
	router.Get("/game/ws", handlers.GameSocketHandler(a.Logger, a.Sessions, handlers.GameOptions{
		Period:      a.Config.Game.Period,
		Clock:       a.Clock,
		Hub:         a.Hub,
		Dial:        a.Dial,
		GuessRate:   rate.Limit(guessesPerSecond),
		GuessBurst:  guessBurst,
		CheckOrigin: a.checkOrigin,
	}))

	if len(a.Config.HTTPServer.AllowedOrigins) == 0 {
		return router
	}
	return cors.New(cors.Options{
		AllowedOrigins:   a.Config.HTTPServer.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowCredentials: true,
	}).Handler(router)
}

// checkOrigin без списка разрешённых источников работает как gorilla по умолчанию
func (a *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range a.Config.HTTPServer.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return "http://"+r.Host == origin || "https://"+r.Host == origin
}

// Close закрывает игровые вьюхи и канал оповещений
func (a *App) Close() error {
	a.Hub.CloseAll()
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	return errors.Wrap(a.Broadcaster.Close(), "failed to close session broadcast")
}
