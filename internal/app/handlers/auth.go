package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/price-guess/internal/apiclient"
	"github.com/linemk/price-guess/internal/app/web"
	"github.com/linemk/price-guess/internal/forms"
	"github.com/linemk/price-guess/internal/session"
)

const (
	msgInvalidCredentials = "Invalid email or password"
	msgUserExists         = "User already exists"
	msgRegisterFailed     = "Registration failed, try again later"
)

// RegisterRequest тело POST /users
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

func loginPage(values, errs map[string]string, message string) web.FormPage {
	return web.FormPage{Title: "Sign in", Values: values, Errors: errs, Message: message}
}

func registerPage(values, errs map[string]string, message string) web.FormPage {
	return web.FormPage{Title: "Sign up", Values: values, Errors: errs, Message: message}
}

func render(log *slog.Logger, tpl *web.Templates, w http.ResponseWriter, status int, name string, data interface{}) {
	if err := tpl.Render(w, status, name, data); err != nil {
		log.Error("failed to render page", slog.String("page", name), slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// LoginPageHandler GET /auth/login
func LoginPageHandler(log *slog.Logger, tpl *web.Templates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(log, tpl, w, http.StatusOK, "login.html", loginPage(nil, nil, ""))
	}
}

// LoginHandler POST /auth/login: проверка формы, вход, редирект на главную
func LoginHandler(log *slog.Logger, tpl *web.Templates, sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		form, err := forms.ParseLogin(r)
		if err != nil {
			logger.Error("invalid request: form parsing error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		values := map[string]string{"email": form.Email}

		if errs := forms.Validate(form); len(errs) > 0 {
			logger.Debug("invalid request: validation error", slog.Int("fields", len(errs)))
			render(logger, tpl, w, http.StatusUnprocessableEntity, "login.html", loginPage(values, errs, ""))
			return
		}

		store, nav, _ := sessions.ForRequest(w, r)
		err = store.SignIn(r.Context(), session.SignInCredentials{Email: form.Email, Password: form.Password})
		if err != nil || store.IsError() {
			logger.Info("sign in failed", slog.Any("error", err))
			render(logger, tpl, w, http.StatusUnauthorized, "login.html", loginPage(values, nil, msgInvalidCredentials))
			return
		}

		http.Redirect(w, r, redirectTarget(nav, session.HomePath), http.StatusSeeOther)
	}
}

// RegisterPageHandler GET /auth/register
func RegisterPageHandler(log *slog.Logger, tpl *web.Templates) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render(log, tpl, w, http.StatusOK, "register.html", registerPage(nil, nil, ""))
	}
}

// RegisterHandler POST /auth/register: создание пользователя и переход на вход
func RegisterHandler(log *slog.Logger, tpl *web.Templates, sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		form, err := forms.ParseRegister(r)
		if err != nil {
			logger.Error("invalid request: form parsing error", slog.Any("error", err))
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		values := map[string]string{"username": form.Username, "email": form.Email}

		if errs := forms.Validate(form); len(errs) > 0 {
			logger.Debug("invalid request: validation error", slog.Int("fields", len(errs)))
			render(logger, tpl, w, http.StatusUnprocessableEntity, "register.html", registerPage(values, errs, ""))
			return
		}

		req := RegisterRequest{
			Name:     form.Username,
			Email:    form.Email,
			Password: form.Password,
			Username: form.Username,
		}
		if err := sessions.API(nil).Post(r.Context(), "/users", req, nil); err != nil {
			logger.Warn("registration failed", slog.Any("error", err))
			msg := msgRegisterFailed
			var se *apiclient.StatusError
			if errors.As(err, &se) && se.Status == http.StatusConflict {
				msg = msgUserExists
			}
			render(logger, tpl, w, http.StatusUnprocessableEntity, "register.html", registerPage(values, nil, msg))
			return
		}

		logger.Info("user registered", slog.String("email", form.Email))
		http.Redirect(w, r, session.LoginPath, http.StatusSeeOther)
	}
}

// LogoutHandler POST /auth/logout
func LogoutHandler(log *slog.Logger, sessions *Sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LogoutHandler"

		store, nav, _ := sessions.ForRequest(w, r)
		store.SignOut(r.Context())
		log.Debug("user signed out", slog.String("op", op))

		http.Redirect(w, r, redirectTarget(nav, session.LoginPath), http.StatusSeeOther)
	}
}
