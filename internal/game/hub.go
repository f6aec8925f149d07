package game

import (
	"log/slog"
	"sync"

	"github.com/linemk/price-guess/internal/session/broadcast"
)

// Hub реестр открытых игровых вьюх по пользователям
type Hub struct {
	log *slog.Logger

	mu    sync.Mutex
	views map[string]map[string]*View // userID -> viewID -> view
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:   log,
		views: make(map[string]map[string]*View),
	}
}

// Add регистрирует вьюху, возвращает функцию удаления
func (h *Hub) Add(v *View) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	byID, ok := h.views[v.UserID]
	if !ok {
		byID = make(map[string]*View)
		h.views[v.UserID] = byID
	}
	byID[v.ID] = v

	return func() { h.remove(v) }
}

func (h *Hub) remove(v *View) {
	h.mu.Lock()
	defer h.mu.Unlock()

	byID := h.views[v.UserID]
	delete(byID, v.ID)
	if len(byID) == 0 {
		delete(h.views, v.UserID)
	}
}

// Count число открытых вьюх пользователя
func (h *Hub) Count(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.views[userID])
}

// CloseUser закрывает все вьюхи пользователя
func (h *Hub) CloseUser(userID string) int {
	h.mu.Lock()
	views := make([]*View, 0, len(h.views[userID]))
	for _, v := range h.views[userID] {
		views = append(views, v)
	}
	h.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
	return len(views)
}

// CloseAll закрывает все вьюхи, вызывается при остановке сервера
func (h *Hub) CloseAll() {
	h.mu.Lock()
	var views []*View
	for _, byID := range h.views {
		for _, v := range byID {
			views = append(views, v)
		}
	}
	h.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
}

// HandleBroadcast подписчик канала сессий: выход пользователя закрывает его вкладки
func (h *Hub) HandleBroadcast(msg broadcast.Message) {
	if msg.Type != broadcast.SignOut || msg.UserID == "" {
		return
	}
	n := h.CloseUser(msg.UserID)
	h.log.Info("user signed out, game views closed",
		slog.String("op", "game.Hub.HandleBroadcast"),
		slog.String("user_id", msg.UserID),
		slog.Int("views", n),
	)
}
