package game

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/linemk/price-guess/internal/feed"
)

// State состояние раунда
type State string

const (
	StateIdle     State = "idle"
	StateCounting State = "counting"
	StateExpired  State = "expired"
)

// Direction ставка: цена вырастет или упадёт
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

var (
	ErrGuessingDisabled = errors.New("guessing is disabled")
	ErrInvalidDirection = errors.New("invalid guess direction")
)

// ParseDirection проверяет направление ставки
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Up, Down:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
	}
}

// Snapshot состояние раунда для отрисовки, цены уже округлены
type Snapshot struct {
	State         State     `json:"state"`
	CurrentPrice  string    `json:"currentPrice"`
	PreviousPrice string    `json:"previousPrice"`
	Score         string    `json:"score"`
	Counter       int       `json:"counter"`
	Period        int       `json:"period"`
	Progress      int       `json:"progress"`
	Prediction    Direction `json:"prediction,omitempty"`
	Disabled      bool      `json:"disabled"`
}

// RoundConfig параметры раунда
type RoundConfig struct {
	Clock        clockwork.Clock
	Period       int
	UserID       string
	InitialPrice string
	Score        string
	// Emit отправляет ставку в канал
	Emit func(feed.GuessPayload) error
	// OnChange вызывается после каждого изменения состояния, вне блокировки
	OnChange func(Snapshot)
}

// Round один цикл угадывания: idle -> counting -> expired.
// Событие score начинает новый раунд из любого состояния.
type Round struct {
	clock    clockwork.Clock
	period   int
	userID   string
	emit     func(feed.GuessPayload) error
	onChange func(Snapshot)

	mu            sync.Mutex
	state         State
	currentPrice  string
	previousPrice string
	score         string
	counter       int
	prediction    Direction
	disabled      bool

	ticker  clockwork.Ticker
	stop    chan struct{}
	stopped bool
}

func NewRound(cfg RoundConfig) *Round {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.OnChange == nil {
		cfg.OnChange = func(Snapshot) {}
	}
	return &Round{
		clock:        cfg.Clock,
		period:       cfg.Period,
		userID:       cfg.UserID,
		emit:         cfg.Emit,
		onChange:     cfg.OnChange,
		state:        StateIdle,
		currentPrice: cfg.InitialPrice,
		score:        cfg.Score,
		disabled:     true,
	}
}

// OnScore начинает новый раунд: сбрасывает счётчик и ставку, включает кнопки
// и перезапускает секундный таймер
func (r *Round) OnScore(p feed.ScorePayload) {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopTickerLocked()

	r.currentPrice = p.CurrentPrice.String()
	r.previousPrice = p.OldPrice.String()
	r.score = p.Score.String()
	r.counter = 0
	r.prediction = ""
	r.disabled = false
	r.state = StateCounting

	r.startTickerLocked()
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.onChange(snap)
}

// OnReceived сервер принял ставку, до следующего раунда ставки закрыты
func (r *Round) OnReceived() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.disabled = true
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.onChange(snap)
}

// Guess записывает ставку и отправляет её в канал
func (r *Round) Guess(d Direction) error {
	const op = "game.Round.Guess"

	if _, err := ParseDirection(string(d)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	r.mu.Lock()
	if r.stopped || r.state != StateCounting || r.disabled {
		r.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrGuessingDisabled)
	}
	r.prediction = d
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.onChange(snap)

	if r.emit != nil {
		if err := r.emit(feed.GuessPayload{UserID: r.userID, Guess: string(d)}); err != nil {
			return fmt.Errorf("%s: failed to emit guess: %w", op, err)
		}
	}
	return nil
}

// Stop останавливает таймер, вызывается при закрытии вьюхи.
// После Stop раунд больше не реагирует на события канала.
func (r *Round) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.disabled = true
	r.stopTickerLocked()
	r.mu.Unlock()
}

func (r *Round) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Round) startTickerLocked() {
	t := r.clock.NewTicker(time.Second)
	stop := make(chan struct{})
	r.ticker = t
	r.stop = stop

	go func() {
		for {
			select {
			case <-stop:
				return
			case <-t.Chan():
				if !r.tick(stop) {
					return
				}
			}
		}
	}()
}

func (r *Round) stopTickerLocked() {
	if r.ticker == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	r.ticker = nil
	r.stop = nil
}

// tick возвращает false, когда таймер этого раунда больше не нужен
func (r *Round) tick(stop chan struct{}) bool {
	r.mu.Lock()
	if r.stop != stop {
		// тик от таймера прошлого раунда
		r.mu.Unlock()
		return false
	}

	r.counter++
	running := true
	if r.counter > r.period {
		r.state = StateExpired
		r.disabled = true
		r.stopTickerLocked()
		running = false
	}
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.onChange(snap)
	return running
}

func (r *Round) snapshotLocked() Snapshot {
	return Snapshot{
		State:         r.state,
		CurrentPrice:  RefinePrice(r.currentPrice),
		PreviousPrice: RefinePrice(r.previousPrice),
		Score:         r.score,
		Counter:       r.counter,
		Period:        r.period,
		Progress:      Progress(r.counter, r.period),
		Prediction:    r.prediction,
		Disabled:      r.disabled,
	}
}
