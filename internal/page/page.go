// Package page описывает серверную загрузку страницы: загрузчик получает запрос,
// а возвращает либо данные для шаблона, либо редирект.
package page

import (
	"context"
	"net/http"

	"github.com/linemk/price-guess/internal/cookies"
)

// Context всё, что доступно загрузчику страницы
type Context struct {
	Request *http.Request
	Writer  http.ResponseWriter
	Cookies *cookies.Jar
}

func NewContext(w http.ResponseWriter, r *http.Request, opts cookies.Options) *Context {
	return &Context{
		Request: r,
		Writer:  w,
		Cookies: cookies.NewJar(w, r, opts),
	}
}

func (c *Context) Ctx() context.Context {
	return c.Request.Context()
}

// Redirect переход вместо отрисовки страницы
type Redirect struct {
	Destination string
	Permanent   bool
}

func (r *Redirect) StatusCode() int {
	if r.Permanent {
		return http.StatusPermanentRedirect
	}
	return http.StatusFound
}

// Result результат загрузчика: Redirect или Props
type Result struct {
	Props    interface{}
	Redirect *Redirect
}

// RedirectTo результат с непостоянным редиректом
func RedirectTo(path string) Result {
	return Result{Redirect: &Redirect{Destination: path}}
}

// Loader загрузчик страницы
type Loader func(ctx *Context) (Result, error)

// Handler превращает загрузчик в http.Handler; render рисует Props
func Handler(loader Loader, opts cookies.Options, render func(w http.ResponseWriter, r *http.Request, props interface{}), onError func(w http.ResponseWriter, r *http.Request, err error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := loader(NewContext(w, r, opts))
		if err != nil {
			onError(w, r, err)
			return
		}
		if res.Redirect != nil {
			http.Redirect(w, r, res.Redirect.Destination, res.Redirect.StatusCode())
			return
		}
		render(w, r, res.Props)
	}
}
