package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/linemk/price-guess/internal/domain/models"
)

const refreshPath = "/auth/refresh-token"

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	Tokens models.Credentials `json:"tokens"`
	// старые версии бэкенда кладут refreshToken на верхний уровень
	RefreshToken string `json:"refreshToken"`
}

// refreshToken возвращает токен, с которым нужно повторить запрос, упавший с токеном used.
// Все одновременные вызовы ждут одно и то же обновление. Если токен уже сменился
// после завершённого обновления, новый запрос на бэкенд не отправляется.
func (c *Client) refreshToken(ctx context.Context, used string) (string, error) {
	if current := c.Token(); current != "" && current != used {
		return current, nil
	}

	// обновление не должно обрываться, если отменили запрос, который его запустил
	refreshCtx := context.WithoutCancel(ctx)

	ch := c.refresh.DoChan("refresh", func() (interface{}, error) {
		if current := c.Token(); current != "" && current != used {
			return current, nil
		}
		token, err := c.doRefresh(refreshCtx)
		if err != nil && c.signOut != nil {
			c.signOut()
		}
		return token, err
	})

	// ожидающий запрос уходит по своему ctx, само обновление продолжается
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("apiclient.refreshToken: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", refreshError(res.Err)
		}
		c.log.Debug("token refreshed", slog.String("op", "apiclient.refreshToken"), slog.Bool("shared", res.Shared))
		return res.Val.(string), nil
	}
}

func (c *Client) doRefresh(ctx context.Context) (string, error) {
	const op = "apiclient.doRefresh"
	logger := c.log.With(slog.String("op", op))

	if c.store == nil {
		return "", fmt.Errorf("%s: no token store", op)
	}
	creds := c.store.Credentials()
	reqBody, err := json.Marshal(refreshRequest{RefreshToken: creds.RefreshToken})
	if err != nil {
		return "", fmt.Errorf("%s: failed to encode request: %w", op, err)
	}

	status, body, err := c.send(ctx, http.MethodPost, refreshPath, reqBody, c.Token())
	if err != nil {
		logger.Error("refresh request failed", slog.Any("error", err))
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if status < 200 || status >= 300 {
		apiErr := decodeStatusError(status, body)
		logger.Warn("refresh rejected", slog.Int("status", status), slog.String("code", apiErr.Code))
		return "", fmt.Errorf("%s: %w", op, apiErr)
	}

	var resp refreshResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	if resp.Tokens.AccessToken == "" {
		return "", fmt.Errorf("%s: empty access token in response", op)
	}
	if resp.Tokens.RefreshToken == "" {
		resp.Tokens.RefreshToken = resp.RefreshToken
	}

	c.store.SaveCredentials(resp.Tokens)
	c.SetToken(resp.Tokens.AccessToken)

	logger.Info("token pair refreshed")
	return resp.Tokens.AccessToken, nil
}
