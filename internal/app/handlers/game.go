package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/linemk/price-guess/internal/apiclient"
	"github.com/linemk/price-guess/internal/feed"
	"github.com/linemk/price-guess/internal/game"
	"golang.org/x/time/rate"
)

const maxBrowserMessage = 1024

// FeedDialer открывает канал цен от имени владельца токена
type FeedDialer func(ctx context.Context, token string) (game.FeedConn, error)

// NewFeedDialer подключение к каналу по адресу url
func NewFeedDialer(log *slog.Logger, url string) FeedDialer {
	return func(ctx context.Context, token string) (game.FeedConn, error) {
		header := http.Header{}
		if token != "" {
			header.Set("Authorization", "Bearer "+token)
		}
		conn, err := feed.Dial(ctx, log, url, header)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

// GameOptions параметры игрового websocket
type GameOptions struct {
	Period int
	Clock  clockwork.Clock
	Hub    *game.Hub
	Dial   FeedDialer
	// GuessRate и GuessBurst ограничивают ставки одной вкладки
	GuessRate  rate.Limit
	GuessBurst int
	// CheckOrigin проверка Origin при апгрейде, nil - как в gorilla
	CheckOrigin func(r *http.Request) bool
}

// GameSocketHandler GET /game/ws: связывает вкладку браузера с раундом и каналом цен
func GameSocketHandler(log *slog.Logger, sessions *Sessions, opts GameOptions) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     opts.CheckOrigin,
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GameSocketHandler"
		logger := log.With(slog.String("op", op))

		store, jar := sessions.ForBrowser(w, r)
		if jar.Token() == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := store.Restore(r.Context(), r.URL.Path); err != nil {
			if errors.Is(err, apiclient.ErrUnauthorized) {
				logger.Info("session rejected by backend, signed out", slog.Any("error", err))
			} else {
				logger.Warn("session restore failed", slog.Any("error", err))
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		user := store.User()
		if user == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		feedConn, err := opts.Dial(r.Context(), jar.Token())
		if err != nil {
			logger.Error("failed to connect to price feed", slog.Any("error", err))
			http.Error(w, "price feed unavailable", http.StatusBadGateway)
			return
		}

		// обновлённые при восстановлении сессии cookie уходят в ответ апгрейда
		respHeader := http.Header{}
		for _, c := range w.Header().Values("Set-Cookie") {
			respHeader.Add("Set-Cookie", c)
		}
		conn, err := upgrader.Upgrade(w, r, respHeader)
		if err != nil {
			logger.Error("failed to upgrade connection", slog.Any("error", err))
			_ = feedConn.Close()
			return
		}
		conn.SetReadLimit(maxBrowserMessage)

		var limiter *rate.Limiter
		if opts.GuessRate > 0 {
			limiter = rate.NewLimiter(opts.GuessRate, opts.GuessBurst)
		}

		view := game.NewView(game.ViewConfig{
			Log:          log,
			Clock:        opts.Clock,
			Period:       opts.Period,
			User:         *user,
			InitialPrice: store.InitialPrice(),
			Score:        store.Guess().Score.String(),
			Feed:         feedConn,
			Browser:      conn,
			Limiter:      limiter,
		})
		if opts.Hub != nil {
			defer opts.Hub.Add(view)()
			logger.Debug("game view registered",
				slog.String("user_id", user.ID),
				slog.Int("open_views", opts.Hub.Count(user.ID)),
			)
		}

		if err := view.Run(r.Context()); err != nil {
			logger.Warn("game view finished with error", slog.Any("error", err))
		}
	}
}
