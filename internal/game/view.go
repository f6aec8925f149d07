package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/linemk/price-guess/internal/domain/models"
	"github.com/linemk/price-guess/internal/feed"
	"golang.org/x/time/rate"
)

// FeedConn соединение с каналом цен
type FeedConn interface {
	Listen(ctx context.Context, h feed.Handler) error
	EmitGuess(p feed.GuessPayload) error
	Close() error
}

// BrowserConn websocket вкладки браузера (*websocket.Conn подходит)
type BrowserConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	Close() error
}

// Сообщения между сервером и вкладкой
const (
	MessageState = "state"
	MessageError = "error"
	MessageGuess = "guess"
)

// ServerMessage сообщение во вкладку
type ServerMessage struct {
	Type    string    `json:"type"`
	State   *Snapshot `json:"state,omitempty"`
	Message string    `json:"message,omitempty"`
}

// ClientMessage сообщение от вкладки
type ClientMessage struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
}

type ViewConfig struct {
	Log          *slog.Logger
	Clock        clockwork.Clock
	Period       int
	User         models.User
	InitialPrice string
	Score        string
	Feed         FeedConn
	Browser      BrowserConn
	// Limiter ограничивает частоту ставок, nil - без ограничений
	Limiter *rate.Limiter
}

// View игровая вьюха одной вкладки: раунд, канал цен и websocket браузера
type View struct {
	ID      string
	UserID  string
	log     *slog.Logger
	round   *Round
	feed    FeedConn
	browser BrowserConn
	limiter *rate.Limiter

	writeMu sync.Mutex

	cancelMu sync.Mutex
	cancel   context.CancelFunc
	closed   bool
}

func NewView(cfg ViewConfig) *View {
	id := uuid.New().String()
	v := &View{
		ID:      id,
		UserID:  cfg.User.ID,
		log:     cfg.Log.With(slog.String("view_id", id), slog.String("user_id", cfg.User.ID)),
		feed:    cfg.Feed,
		browser: cfg.Browser,
		limiter: cfg.Limiter,
	}
	v.round = NewRound(RoundConfig{
		Clock:        cfg.Clock,
		Period:       cfg.Period,
		UserID:       cfg.User.ID,
		InitialPrice: cfg.InitialPrice,
		Score:        cfg.Score,
		Emit:         cfg.Feed.EmitGuess,
		OnChange:     v.pushState,
	})
	return v
}

// Run работает до закрытия вкладки, обрыва канала цен или вызова Close
func (v *View) Run(ctx context.Context) error {
	const op = "game.View.Run"
	logger := v.log.With(slog.String("op", op))

	ctx, cancel := context.WithCancel(ctx)
	v.cancelMu.Lock()
	if v.closed {
		v.cancelMu.Unlock()
		cancel()
		return nil
	}
	v.cancel = cancel
	v.cancelMu.Unlock()

	errCh := make(chan error, 2)
	listenDone := make(chan struct{})

	defer func() {
		cancel()
		// событие канала, прочитанное до закрытия, не должно перезапустить таймер
		_ = v.feed.Close()
		<-listenDone
		v.round.Stop()
		_ = v.browser.Close()
		logger.Info("game view closed")
	}()

	logger.Info("game view started")
	v.pushState(v.round.Snapshot())

	go func() {
		defer close(listenDone)
		err := v.feed.Listen(ctx, v)
		if err == nil {
			err = errFeedClosed
		}
		errCh <- err
	}()
	go func() {
		errCh <- v.readBrowser(ctx)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, errFeedClosed) {
			v.push(ServerMessage{Type: MessageError, Message: "price feed disconnected"})
			logger.Warn("price feed closed")
			return nil
		}
		if errors.Is(err, errBrowserClosed) {
			return nil
		}
		return err
	}
}

// Close завершает вьюху, например после выхода пользователя в другой вкладке
func (v *View) Close() {
	v.cancelMu.Lock()
	defer v.cancelMu.Unlock()
	v.closed = true
	if v.cancel != nil {
		v.cancel()
	}
}

var (
	errFeedClosed    = errors.New("feed closed")
	errBrowserClosed = errors.New("browser closed")
)

func (v *View) OnScore(p feed.ScorePayload) {
	v.round.OnScore(p)
}

func (v *View) OnReceived() {
	v.round.OnReceived()
}

func (v *View) readBrowser(ctx context.Context) error {
	for {
		var msg ClientMessage
		if err := v.browser.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			v.log.Debug("browser read finished", slog.Any("error", err))
			return errBrowserClosed
		}

		switch msg.Type {
		case MessageGuess:
			v.handleGuess(msg.Direction)
		default:
			v.push(ServerMessage{Type: MessageError, Message: "unknown message type"})
		}
	}
}

func (v *View) handleGuess(direction string) {
	if v.limiter != nil && !v.limiter.Allow() {
		v.push(ServerMessage{Type: MessageError, Message: "too many guesses"})
		return
	}

	d, err := ParseDirection(direction)
	if err != nil {
		v.push(ServerMessage{Type: MessageError, Message: err.Error()})
		return
	}

	if err := v.round.Guess(d); err != nil {
		v.log.Debug("guess rejected", slog.Any("error", err))
		msg := "guessing is disabled"
		if !errors.Is(err, ErrGuessingDisabled) {
			msg = "failed to send guess"
		}
		v.push(ServerMessage{Type: MessageError, Message: msg})
	}
}

func (v *View) pushState(s Snapshot) {
	v.push(ServerMessage{Type: MessageState, State: &s})
}

func (v *View) push(msg ServerMessage) {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	if err := v.browser.WriteJSON(msg); err != nil {
		v.log.Debug("failed to write to browser", slog.Any("error", err))
	}
}
