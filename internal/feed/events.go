package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventType имя события канала реального времени
type EventType string

const (
	EventScore    EventType = "score"
	EventReceived EventType = "received"
	EventGuess    EventType = "guess"
)

// Envelope кадр канала: {"event": "...", "data": ...}
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Value число или строка в зависимости от сервера, хранится текстом
type Value string

func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("feed.Value: %w", err)
	}
	*v = Value(n.String())
	return nil
}

func (v Value) String() string {
	return string(v)
}

// ScorePayload начало нового раунда
type ScorePayload struct {
	Score        Value `json:"score"`
	CurrentPrice Value `json:"currentPrice"`
	OldPrice     Value `json:"oldPrice"`
}

// GuessPayload ставка пользователя
type GuessPayload struct {
	UserID string `json:"userId"`
	Guess  string `json:"guess"`
}

// DecodeScore разбирает данные события score. Сервер присылает их
// сериализованной JSON-строкой, но обычный объект тоже принимается.
func DecodeScore(data json.RawMessage) (ScorePayload, error) {
	var p ScorePayload

	raw := bytes.TrimSpace(data)
	if len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return p, fmt.Errorf("feed.DecodeScore: %w", err)
		}
		raw = []byte(inner)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("feed.DecodeScore: %w", err)
	}
	return p, nil
}

// EncodeGuess собирает кадр guess, данные сериализуются в строку
func EncodeGuess(p GuessPayload) ([]byte, error) {
	inner, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("feed.EncodeGuess: %w", err)
	}
	data, err := json.Marshal(string(inner))
	if err != nil {
		return nil, fmt.Errorf("feed.EncodeGuess: %w", err)
	}
	return json.Marshal(Envelope{Event: EventGuess, Data: data})
}
