package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig параметры подключения
type NATSConfig struct {
	URL           string
	Subject       string
	MaxReconnects int
	ReconnectWait time.Duration
}

// NATS рассылает события сессии через subject NATS между экземплярами сервера
type NATS struct {
	log     *slog.Logger
	nc      *nats.Conn
	subject string
}

func NewNATS(log *slog.Logger, cfg NATSConfig) (*NATS, error) {
	const op = "broadcast.NewNATS"

	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name("price-guess-web"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", slog.Any("error", err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", nc.ConnectedUrl()))
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect: %w", op, err)
	}

	return &NATS{log: log, nc: nc, subject: cfg.Subject}, nil
}

func (n *NATS) Publish(_ context.Context, msg Message) error {
	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("broadcast.NATS.Publish: %w", err)
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("broadcast.NATS.Publish: %w", err)
	}
	return nil
}

func (n *NATS) Subscribe(h Handler) (func(), error) {
	sub, err := n.nc.Subscribe(n.subject, func(m *nats.Msg) {
		msg, err := Decode(m.Data)
		if err != nil {
			n.log.Warn("skipping malformed session message", slog.Any("error", err))
			return
		}
		h(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("broadcast.NATS.Subscribe: %w", err)
	}
	// подписка должна дойти до сервера раньше первых публикаций
	if err := n.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("broadcast.NATS.Subscribe: flush: %w", err)
	}
	return func() {
		_ = sub.Unsubscribe()
	}, nil
}

func (n *NATS) Close() error {
	if err := n.nc.Drain(); err != nil {
		n.nc.Close()
		return err
	}
	return nil
}
