// Package backendtest поднимает поддельный REST-бэкенд игры для тестов.
package backendtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/linemk/price-guess/internal/domain/models"
	"golang.org/x/crypto/bcrypt"
)

const Secret = "backendtest-secret"

type user struct {
	models.User
	passHash []byte
	roles    []string
}

// Backend поддельный бэкенд. Access-токены, выпущенные до вызова ExpireTokens,
// считаются просроченными и получают 401 token.expired.
type Backend struct {
	Server *httptest.Server

	mu       sync.Mutex
	users    map[string]*user // ключ - email
	refresh  map[string]string
	gen      int64
	issued   int64
	price    string
	barrier  chan struct{}
	waiting  int
	barrierN int

	refreshCalls atomic.Int64
	meCalls      atomic.Int64
	refreshDelay time.Duration
	failRefresh  bool
}

func New() *Backend {
	b := &Backend{
		users:   make(map[string]*user),
		refresh: make(map[string]string),
		price:   "27123.456",
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/users", b.createUser)
		r.Post("/auth/login", b.login)
		r.Post("/auth/refresh-token", b.refreshToken)
		r.Get("/auth/me", b.me)
	})
	b.Server = httptest.NewServer(r)
	return b
}

func (b *Backend) URL() string {
	return b.Server.URL
}

func (b *Backend) Close() {
	b.Server.Close()
}

// AddUser регистрирует пользователя напрямую
func (b *Backend) AddUser(email, username, password string, roles ...string) models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)

	b.mu.Lock()
	defer b.mu.Unlock()
	u := &user{
		User: models.User{
			ID:       fmt.Sprintf("u%d", len(b.users)+1),
			Email:    email,
			Username: username,
		},
		passHash: hash,
		roles:    roles,
	}
	b.users[email] = u
	return u.User
}

// HasUser есть ли пользователь с таким email
func (b *Backend) HasUser(email string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.users[email]
	return ok
}

// IssueTokens выпускает пару токенов для пользователя
func (b *Backend) IssueTokens(email string) models.Credentials {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(b.users[email])
}

// ExpireTokens делает все выпущенные access-токены просроченными
func (b *Backend) ExpireTokens() {
	b.mu.Lock()
	b.gen++
	b.mu.Unlock()
}

// HoldExpired задерживает первые n ответов token.expired, пока их не наберётся n
func (b *Backend) HoldExpired(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.barrier = make(chan struct{})
	b.barrierN = n
	b.waiting = 0
}

func (b *Backend) SetRefreshDelay(d time.Duration) {
	b.mu.Lock()
	b.refreshDelay = d
	b.mu.Unlock()
}

func (b *Backend) SetRefreshFailure(fail bool) {
	b.mu.Lock()
	b.failRefresh = fail
	b.mu.Unlock()
}

func (b *Backend) RefreshCalls() int {
	return int(b.refreshCalls.Load())
}

func (b *Backend) MeCalls() int {
	return int(b.meCalls.Load())
}

func (b *Backend) issueLocked(u *user) models.Credentials {
	b.issued++
	claims := jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"gen":   b.gen,
		"roles": u.roles,
		"jti":   fmt.Sprintf("%d", b.issued),
		"iat":   time.Now().Unix(),
	}
	access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(Secret))
	refresh := fmt.Sprintf("refresh-%s-%d", u.ID, b.issued)
	b.refresh[refresh] = u.Email
	return models.Credentials{AccessToken: access, RefreshToken: refresh}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"code": code, "message": code})
}

func (b *Backend) createUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCode(w, http.StatusBadRequest, "invalid.request")
		return
	}
	if b.HasUser(req.Email) {
		writeCode(w, http.StatusConflict, "user.exists")
		return
	}
	u := b.AddUser(req.Email, req.Username, req.Password)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"user": u})
}

func (b *Backend) sessionPayload(u *user, tokens *models.Credentials) map[string]interface{} {
	payload := map[string]interface{}{
		"user":  u.User,
		"guess": models.Guess{ID: "g-" + u.ID, UserID: u.ID, Score: "3"},
		"price": b.price,
	}
	if tokens != nil {
		payload["tokens"] = tokens
	}
	return payload
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCode(w, http.StatusBadRequest, "invalid.request")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[req.Email]
	if !ok || bcrypt.CompareHashAndPassword(u.passHash, []byte(req.Password)) != nil {
		writeCode(w, http.StatusUnauthorized, "credentials.invalid")
		return
	}
	tokens := b.issueLocked(u)
	writeJSON(w, http.StatusOK, b.sessionPayload(u, &tokens))
}

func (b *Backend) refreshToken(w http.ResponseWriter, r *http.Request) {
	b.refreshCalls.Add(1)

	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCode(w, http.StatusBadRequest, "invalid.request")
		return
	}

	b.mu.Lock()
	delay, fail := b.refreshDelay, b.failRefresh
	b.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	email, ok := b.refresh[req.RefreshToken]
	if fail || !ok {
		writeCode(w, http.StatusUnauthorized, "refresh.invalid")
		return
	}
	delete(b.refresh, req.RefreshToken)
	tokens := b.issueLocked(b.users[email])
	writeJSON(w, http.StatusOK, map[string]interface{}{"tokens": tokens})
}

var errExpired = errors.New("expired")

// authorize проверяет Bearer-токен, возвращает errExpired для токенов прошлого поколения
func (b *Backend) authorize(r *http.Request) (*user, error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return []byte(Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	claims := token.Claims.(jwt.MapClaims)
	gen, _ := claims["gen"].(float64)
	email, _ := claims["email"].(string)

	b.mu.Lock()
	defer b.mu.Unlock()
	if int64(gen) < b.gen {
		return nil, errExpired
	}
	u, ok := b.users[email]
	if !ok {
		return nil, errors.New("unknown user")
	}
	return u, nil
}

func (b *Backend) waitBarrier() {
	b.mu.Lock()
	ch := b.barrier
	if ch == nil {
		b.mu.Unlock()
		return
	}
	b.waiting++
	if b.waiting >= b.barrierN {
		close(ch)
		b.barrier = nil
	}
	b.mu.Unlock()
	<-ch
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	b.meCalls.Add(1)

	u, err := b.authorize(r)
	if errors.Is(err, errExpired) {
		b.waitBarrier()
		writeCode(w, http.StatusUnauthorized, "token.expired")
		return
	}
	if err != nil {
		writeCode(w, http.StatusUnauthorized, "token.invalid")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.sessionPayload(u, nil))
}
