package session

import "sync"

// Navigator переход на другую страницу
type Navigator interface {
	Push(path string)
}

// RedirectNavigator запоминает последний переход, обработчик превращает его в HTTP-редирект
type RedirectNavigator struct {
	mu     sync.Mutex
	target string
}

func (n *RedirectNavigator) Push(path string) {
	n.mu.Lock()
	n.target = path
	n.mu.Unlock()
}

// Target путь последнего перехода, пустая строка если переходов не было
func (n *RedirectNavigator) Target() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}
