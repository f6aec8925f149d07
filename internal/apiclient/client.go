package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/linemk/price-guess/internal/domain/models"
	"golang.org/x/sync/singleflight"
)

// TokenStore - место, где живёт пара токенов (cookie текущего запроса)
type TokenStore interface {
	Credentials() models.Credentials
	SaveCredentials(creds models.Credentials)
}

type Option func(*Client)

// WithHTTPClient подменяет http.Client, используется в тестах
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout таймаут одного запроса
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithSignOut включает браузерный режим: на неисправимый 401 вызывается signOut.
// Без этой опции клиент работает в серверном режиме и возвращает ErrAuthToken.
func WithSignOut(signOut func()) Option {
	return func(c *Client) {
		c.signOut = signOut
	}
}

// Client обёртка над REST API бэкенда.
// Добавляет Bearer-токен к каждому запросу и при ответе token.expired
// обновляет пару токенов, выполняя не больше одного обновления одновременно.
type Client struct {
	log     *slog.Logger
	baseURL string
	http    *http.Client
	store   TokenStore
	signOut func()

	mu    sync.RWMutex
	token string

	refresh singleflight.Group
}

// New создаёт клиента для бэкенда по адресу backendURL, запросы идут на backendURL/api
func New(log *slog.Logger, backendURL string, store TokenStore, opts ...Option) *Client {
	c := &Client{
		log:     log,
		baseURL: strings.TrimRight(backendURL, "/") + "/api",
		http:    &http.Client{Timeout: 10 * time.Second},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	if store != nil {
		c.token = store.Credentials().AccessToken
	}
	return c
}

// SetToken меняет заголовок Authorization по умолчанию
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token текущий access-токен клиента
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

// Do выполняет запрос; тело in кодируется в JSON, ответ декодируется в out (если out != nil).
// Запрос, упавший с token.expired, повторяется с исходными методом, путём и телом
// после обновления токена.
func (c *Client) Do(ctx context.Context, method, path string, in, out interface{}) error {
	const op = "apiclient.Do"

	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}
	}

	token := c.Token()
	status, respBody, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if status == http.StatusUnauthorized {
		apiErr := decodeStatusError(status, respBody)
		if apiErr.Code != CodeTokenExpired {
			return c.unauthorized(apiErr)
		}

		newToken, err := c.refreshToken(ctx, token)
		if err != nil {
			return err
		}

		status, respBody, err = c.send(ctx, method, path, body, newToken)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if status == http.StatusUnauthorized {
			return c.unauthorized(decodeStatusError(status, respBody))
		}
	}

	if status < 200 || status >= 300 {
		return decodeStatusError(status, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body []byte, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

// unauthorized обрабатывает 401, который нельзя исправить обновлением токена
func (c *Client) unauthorized(apiErr *StatusError) error {
	if c.signOut != nil {
		c.signOut()
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	}
	return fmt.Errorf("%w: %w", ErrAuthToken, apiErr)
}

func decodeStatusError(status int, body []byte) *StatusError {
	se := &StatusError{Status: status}

	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		se.Message = strings.TrimSpace(string(body))
		return se
	}
	se.Code = payload.Code
	se.Message = payload.Message
	if se.Message == "" {
		se.Message = payload.Error
	}
	return se
}

// errors.Is(err, ErrRefreshFailed) для ошибок обновления
func refreshError(err error) error {
	if errors.Is(err, ErrRefreshFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
}
