package broadcast

import (
	"context"
	"sync"
)

// Memory рассылает сообщения внутри одного процесса
type Memory struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[int]Handler)}
}

func (m *Memory) Publish(_ context.Context, msg Message) error {
	m.mu.RLock()
	handlers := make([]Handler, 0, len(m.subs))
	for _, h := range m.subs {
		handlers = append(handlers, h)
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (m *Memory) Subscribe(h Handler) (func(), error) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = h
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, id)
			m.mu.Unlock()
		})
	}, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.subs = make(map[int]Handler)
	m.mu.Unlock()
	return nil
}
