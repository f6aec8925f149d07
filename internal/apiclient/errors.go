package apiclient

import (
	"errors"
	"fmt"
)

// CodeTokenExpired код ответа бэкенда, когда access-токен просрочен
const CodeTokenExpired = "token.expired"

var (
	// ErrAuthToken возвращается вне браузерного контекста на любой 401,
	// который нельзя исправить обновлением токена
	ErrAuthToken = errors.New("auth token error")
	// ErrUnauthorized возвращается после принудительного выхода пользователя
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRefreshFailed не удалось обновить пару токенов
	ErrRefreshFailed = errors.New("token refresh failed")
)

// StatusError ответ бэкенда с кодом вне 2xx
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api returned status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api returned status %d: %s", e.Status, e.Message)
}

// StatusCode достаёт код ответа из цепочки ошибок, 0 если его нет
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}
