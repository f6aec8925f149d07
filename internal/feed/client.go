package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// Handler получает события канала
type Handler interface {
	OnScore(p ScorePayload)
	OnReceived()
}

// Conn соединение с каналом цен и очков. Открывается один раз на игровую вьюху,
// переподключения нет: после обрыва Listen возвращает ошибку.
type Conn struct {
	log *slog.Logger
	ws  *websocket.Conn

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}
}

// Dial открывает соединение; header может быть nil
func Dial(ctx context.Context, log *slog.Logger, url string, header http.Header) (*Conn, error) {
	const op = "feed.Dial"

	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%s: handshake failed with status %d: %w", op, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Debug("feed connected", slog.String("op", op), slog.String("url", url))
	return &Conn{
		log:    log,
		ws:     ws,
		closed: make(chan struct{}),
	}, nil
}

// Listen читает события до закрытия соединения или отмены ctx.
// Битые кадры и неизвестные события пропускаются.
func (c *Conn) Listen(ctx context.Context, h Handler) error {
	const op = "feed.Listen"
	logger := c.log.With(slog.String("op", op))

	stop := context.AfterFunc(ctx, func() {
		_ = c.Close()
	})
	defer stop()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("%s: %w", op, err)
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.Warn("malformed frame", slog.Any("error", err))
			continue
		}

		switch env.Event {
		case EventScore:
			p, err := DecodeScore(env.Data)
			if err != nil {
				logger.Warn("malformed score event", slog.Any("error", err))
				continue
			}
			h.OnScore(p)
		case EventReceived:
			h.OnReceived()
		default:
			logger.Debug("unknown event", slog.String("event", string(env.Event)))
		}
	}
}

// EmitGuess отправляет ставку
func (c *Conn) EmitGuess(p GuessPayload) error {
	frame, err := EncodeGuess(p)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closed:
		return errors.New("feed.EmitGuess: connection closed")
	default:
	}

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("feed.EmitGuess: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("feed.EmitGuess: %w", err)
	}
	return nil
}

// Close закрывает соединение, повторные вызовы ничего не делают
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.writeMu.Lock()
		_ = c.ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}
