package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/linemk/price-guess/internal/apiclient"
	"github.com/linemk/price-guess/internal/domain/models"
	"github.com/linemk/price-guess/internal/jwtclaims"
	"github.com/linemk/price-guess/internal/session/broadcast"
)

const (
	HomePath  = "/"
	LoginPath = "/auth/login"
)

// API часть REST-клиента, нужная сессии
type API interface {
	Get(ctx context.Context, path string, out interface{}) error
	Post(ctx context.Context, path string, in, out interface{}) error
	SetToken(token string)
}

// Credentials хранилище пары токенов (cookie)
type Credentials interface {
	apiclient.TokenStore
	Token() string
	Clear()
}

// Publisher публикация событий сессии
type Publisher interface {
	Publish(ctx context.Context, msg broadcast.Message) error
}

// SignInCredentials данные формы входа
type SignInCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResponseData ответ /auth/login и /auth/me
type ResponseData struct {
	Tokens models.Credentials `json:"tokens"`
	User   *models.User       `json:"user"`
	Guess  models.Guess       `json:"guess"`
	Price  string             `json:"price"`
}

// Store держит текущего пользователя и состояние игры на время жизни страницы
type Store struct {
	log   *slog.Logger
	api   API
	creds Credentials
	nav   Navigator
	pub   Publisher

	mu           sync.RWMutex
	user         *models.User
	guess        models.Guess
	initialPrice string
	isError      bool
	// signedOut повторный SignOut в той же сессии ничего не делает
	signedOut bool
}

// New создаёт сессию; pub может быть nil
func New(log *slog.Logger, api API, creds Credentials, nav Navigator, pub Publisher) *Store {
	return &Store{
		log:   log,
		api:   api,
		creds: creds,
		nav:   nav,
		pub:   pub,
	}
}

// SignIn входит по email и паролю. При ошибке выставляет флаг IsError
// и не меняет ни состояние, ни cookie.
func (s *Store) SignIn(ctx context.Context, creds SignInCredentials) error {
	const op = "session.SignIn"
	logger := s.log.With(slog.String("op", op), slog.String("email", creds.Email))

	var resp ResponseData
	if err := s.api.Post(ctx, "/auth/login", creds, &resp); err != nil {
		logger.Warn("login failed", slog.Any("error", err))
		s.setError(true)
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.User.IsZero() || resp.Tokens.AccessToken == "" {
		logger.Warn("login response without user or tokens")
		s.setError(true)
		return fmt.Errorf("%s: incomplete login response", op)
	}

	s.creds.SaveCredentials(resp.Tokens)
	s.api.SetToken(resp.Tokens.AccessToken)

	s.mu.Lock()
	s.user = resp.User
	s.guess = resp.Guess
	s.initialPrice = resp.Price
	s.isError = false
	s.signedOut = false
	s.mu.Unlock()

	logger.Info("user signed in", slog.String("userID", resp.User.ID))
	s.nav.Push(HomePath)
	return nil
}

// SignOut удаляет токены, оповещает другие вкладки и переводит на страницу входа.
// Клиент в браузерном режиме сам вызывает SignOut на 401, поэтому второй вызов
// до следующего входа игнорируется.
func (s *Store) SignOut(ctx context.Context) {
	const op = "session.SignOut"

	s.mu.Lock()
	if s.signedOut {
		s.mu.Unlock()
		return
	}
	s.signedOut = true
	userID := ""
	if s.user != nil {
		userID = s.user.ID
	}
	s.user = nil
	s.mu.Unlock()

	if userID == "" {
		// сессия не восстанавливалась, идентификатор берём из токена
		userID = jwtclaims.UserID(s.creds.Token())
	}
	s.creds.Clear()

	if s.pub != nil && userID != "" {
		msg := broadcast.Message{Type: broadcast.SignOut, UserID: userID}
		if err := s.pub.Publish(ctx, msg); err != nil {
			s.log.Error("failed to publish sign out", slog.String("op", op), slog.Any("error", err))
		}
	}

	s.nav.Push(LoginPath)
}

// Restore восстанавливает сессию при загрузке страницы вне /auth.
// Если токен есть, но бэкенд не вернул пользователя, сессия закрывается.
func (s *Store) Restore(ctx context.Context, path string) error {
	const op = "session.Restore"

	if isAuthRoute(path) {
		return nil
	}
	if s.creds.Token() == "" {
		return nil
	}

	var resp ResponseData
	if err := s.api.Get(ctx, "/auth/me", &resp); err != nil {
		s.log.Warn("session restore failed", slog.String("op", op), slog.Any("error", err))
		s.SignOut(ctx)
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	s.guess = resp.Guess
	s.initialPrice = resp.Price
	s.mu.Unlock()

	if resp.User.IsZero() {
		s.SignOut(ctx)
		return fmt.Errorf("%s: no user in response", op)
	}
	s.SetUser(*resp.User)
	return nil
}

func isAuthRoute(path string) bool {
	parts := strings.Split(path, "/")
	return len(parts) > 1 && parts[1] == "auth"
}

func (s *Store) setError(v bool) {
	s.mu.Lock()
	s.isError = v
	s.mu.Unlock()
}

func (s *Store) SetUser(u models.User) {
	s.mu.Lock()
	s.user = &u
	s.signedOut = false
	s.mu.Unlock()
}

func (s *Store) SetGuess(g models.Guess) {
	s.mu.Lock()
	s.guess = g
	s.mu.Unlock()
}

func (s *Store) SetInitialPrice(price string) {
	s.mu.Lock()
	s.initialPrice = price
	s.mu.Unlock()
}

// User текущий пользователь, nil если сессии нет
func (s *Store) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) Guess() models.Guess {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guess
}

func (s *Store) InitialPrice() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialPrice
}

func (s *Store) IsError() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isError
}

// IsAuthenticated ровно "пользователь установлен"
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}
