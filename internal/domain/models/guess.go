package models

import "encoding/json"

// Guess - результат последнего раунда пользователя.
// Бэкенд присылает score то числом, то строкой, json.Number принимает оба варианта
type Guess struct {
	ID     string      `json:"_id"`
	UserID string      `json:"userId"`
	Score  json.Number `json:"score"`
}
