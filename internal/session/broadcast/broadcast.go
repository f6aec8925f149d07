// Package broadcast - канал оповещений о сессии между вкладками и экземплярами сервера.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
)

// MessageType тип события сессии
type MessageType string

const (
	SignOut MessageType = "signOut"
)

// Message событие сессии, в канал пишется как JSON
type Message struct {
	Type   MessageType `json:"type"`
	UserID string      `json:"userId"`
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("broadcast.Decode: %w", err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("broadcast.Decode: empty message type")
	}
	return m, nil
}

// Handler получает сообщения подписки
type Handler func(Message)

// Broadcaster публикует события сессии и раздаёт их подписчикам
type Broadcaster interface {
	Publish(ctx context.Context, msg Message) error
	// Subscribe возвращает функцию отписки
	Subscribe(h Handler) (func(), error)
	Close() error
}
