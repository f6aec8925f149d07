package cookies

import (
	"net/http"
	"sync"
	"time"

	"github.com/linemk/price-guess/internal/domain/models"
)

const (
	TokenName        = "nextauth.token"
	RefreshTokenName = "nextauth.refreshToken"

	// DefaultMaxAge 30 дней
	DefaultMaxAge = 30 * 24 * time.Hour
)

// Options параметры записываемых cookie
type Options struct {
	MaxAge time.Duration
	Secure bool
}

// Jar хранит пару токенов в cookie одного запроса.
// Записанные значения сразу видны последующим чтениям в рамках того же запроса.
type Jar struct {
	r    *http.Request
	w    http.ResponseWriter
	opts Options

	mu      sync.Mutex
	overlay map[string]*string
}

func NewJar(w http.ResponseWriter, r *http.Request, opts Options) *Jar {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	return &Jar{
		r:       r,
		w:       w,
		opts:    opts,
		overlay: make(map[string]*string),
	}
}

// Get возвращает значение cookie или пустую строку
func (j *Jar) Get(name string) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	if v, ok := j.overlay[name]; ok {
		if v == nil {
			return ""
		}
		return *v
	}
	if j.r == nil {
		return ""
	}
	c, err := j.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// Set пишет cookie с path "/" и настроенным сроком жизни
func (j *Jar) Set(name, value string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.overlay[name] = &value
	if j.w == nil {
		return
	}
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(j.opts.MaxAge.Seconds()),
		Expires:  time.Now().Add(j.opts.MaxAge),
		HttpOnly: true,
		Secure:   j.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Destroy удаляет cookie у клиента
func (j *Jar) Destroy(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.overlay[name] = nil
	if j.w == nil {
		return
	}
	http.SetCookie(j.w, &http.Cookie{
		Name:    name,
		Value:   "",
		Path:    "/",
		MaxAge:  -1,
		Expires: time.Unix(0, 0),
	})
}

// Token текущий access-токен
func (j *Jar) Token() string {
	return j.Get(TokenName)
}

// Credentials читает пару токенов
func (j *Jar) Credentials() models.Credentials {
	return models.Credentials{
		AccessToken:  j.Get(TokenName),
		RefreshToken: j.Get(RefreshTokenName),
	}
}

// SaveCredentials сохраняет пару токенов
func (j *Jar) SaveCredentials(creds models.Credentials) {
	j.Set(TokenName, creds.AccessToken)
	j.Set(RefreshTokenName, creds.RefreshToken)
}

// Clear удаляет обе cookie с токенами
func (j *Jar) Clear() {
	j.Destroy(TokenName)
	j.Destroy(RefreshTokenName)
}
