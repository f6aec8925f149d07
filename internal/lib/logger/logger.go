package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/linemk/price-guess/internal/lib/logger/handlers/slogpretty"
)

// switching logger
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// ServiceName пишется в каждую JSON-запись, чтобы отличать фронтенд от бэкенда в общих логах
const ServiceName = "price-guess-web"

// SetupLogger инициализирует логгер в зависимости от переданного окружения
func SetupLogger(env string) *slog.Logger {
	return New(env, os.Stdout)
}

// New логгер для окружения env с выводом в out.
// local - цветной вывод (pretty), dev - JSON с debug, prod - JSON с info.
// Незнакомое окружение работает как prod и сообщает об этом.
func New(env string, out io.Writer) *slog.Logger {
	switch env {
	case EnvLocal:
		return setupPrettySlog(out)
	case EnvDev:
		return jsonLogger(out, slog.LevelDebug, env)
	case EnvProd:
		return jsonLogger(out, slog.LevelInfo, env)
	default:
		log := jsonLogger(out, slog.LevelInfo, EnvProd)
		log.Warn("unknown env, falling back to prod logging", slog.String("requested_env", env))
		return log
	}
}

// Err упаковывает ошибку в атрибут "error"
func Err(err error) slog.Attr {
	return slog.Any("error", err)
}

func jsonLogger(out io.Writer, level slog.Level, env string) *slog.Logger {
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(
		slog.String("service", ServiceName),
		slog.String("env", env),
	)
}

func setupPrettySlog(out io.Writer) *slog.Logger {
	color.NoColor = false

	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(out)
	return slog.New(handler)
}
