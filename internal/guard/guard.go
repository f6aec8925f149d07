package guard

import (
	"log/slog"

	"github.com/linemk/price-guess/internal/cookies"
	"github.com/linemk/price-guess/internal/jwtclaims"
	"github.com/linemk/price-guess/internal/page"
)

const (
	LoginPath = "/auth/login"
	HomePath  = "/"
)

// Options дополнительные требования к токену; пустые списки не проверяются
type Options struct {
	Permissions []string
	Roles       []string
	Logger      *slog.Logger
}

// WithSSRAuth оборачивает загрузчик страницы.
// Без токена - редирект на вход, fn не вызывается.
// Любая ошибка fn - токены удаляются, редирект на вход.
func WithSSRAuth(fn page.Loader, opts *Options) page.Loader {
	if opts == nil {
		opts = &Options{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return func(ctx *page.Context) (page.Result, error) {
		const op = "guard.WithSSRAuth"
		logger := log.With(slog.String("op", op), slog.String("path", ctx.Request.URL.Path))

		token := ctx.Cookies.Get(cookies.TokenName)
		if token == "" {
			logger.Debug("no token, redirecting to login")
			return page.RedirectTo(LoginPath), nil
		}

		if len(opts.Permissions) > 0 || len(opts.Roles) > 0 {
			claims, err := jwtclaims.Decode(token)
			if err != nil {
				logger.Warn("malformed token", slog.Any("error", err))
				ctx.Cookies.Clear()
				return page.RedirectTo(LoginPath), nil
			}
			if !claims.HasPermissions(opts.Permissions) || !claims.HasAnyRole(opts.Roles) {
				logger.Warn("insufficient permissions", slog.String("userID", claims.Subject))
				return page.RedirectTo(HomePath), nil
			}
		}

		res, err := fn(ctx)
		if err != nil {
			logger.Warn("page load failed, clearing credentials", slog.Any("error", err))
			ctx.Cookies.Clear()
			return page.RedirectTo(LoginPath), nil
		}
		return res, nil
	}
}
