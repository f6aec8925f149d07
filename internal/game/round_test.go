package game_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/linemk/price-guess/internal/feed"
	"github.com/linemk/price-guess/internal/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundFixture struct {
	clock   *clockwork.FakeClock
	round   *game.Round
	changes chan game.Snapshot

	mu      sync.Mutex
	emitted []feed.GuessPayload
}

func newRoundFixture(t *testing.T, period int) *roundFixture {
	t.Helper()
	f := &roundFixture{
		clock:   clockwork.NewFakeClock(),
		changes: make(chan game.Snapshot, 100),
	}
	f.round = game.NewRound(game.RoundConfig{
		Clock:        f.clock,
		Period:       period,
		UserID:       "u1",
		InitialPrice: "100.129",
		Emit: func(p feed.GuessPayload) error {
			f.mu.Lock()
			f.emitted = append(f.emitted, p)
			f.mu.Unlock()
			return nil
		},
		OnChange: func(s game.Snapshot) { f.changes <- s },
	})
	t.Cleanup(f.round.Stop)
	return f
}

func (f *roundFixture) next(t *testing.T) game.Snapshot {
	t.Helper()
	select {
	case s := <-f.changes:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no state change")
		return game.Snapshot{}
	}
}

// advance сдвигает фальшивые часы на секунду и ждёт обработки тика
func (f *roundFixture) advance(t *testing.T) game.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(time.Second)
	return f.next(t)
}

func (f *roundFixture) assertQuiet(t *testing.T) {
	t.Helper()
	select {
	case s := <-f.changes:
		t.Fatalf("unexpected state change: %+v", s)
	case <-time.After(50 * time.Millisecond):
	}
}

func score(current, old, points string) feed.ScorePayload {
	return feed.ScorePayload{
		CurrentPrice: feed.Value(current),
		OldPrice:     feed.Value(old),
		Score:        feed.Value(points),
	}
}

func TestRound_InitialIdle(t *testing.T) {
	f := newRoundFixture(t, 3)

	s := f.round.Snapshot()
	assert.Equal(t, game.StateIdle, s.State)
	assert.True(t, s.Disabled)
	assert.Equal(t, "100.12", s.CurrentPrice)
	assert.ErrorIs(t, f.round.Guess(game.Up), game.ErrGuessingDisabled)
}

func TestRound_CountdownExpiresAfterPeriod(t *testing.T) {
	const period = 3
	f := newRoundFixture(t, period)

	f.round.OnScore(score("123.456", "120", "1"))
	s := f.next(t)
	assert.Equal(t, game.StateCounting, s.State)
	assert.Equal(t, 0, s.Counter)
	assert.False(t, s.Disabled)
	assert.Equal(t, "123.45", s.CurrentPrice)
	assert.Equal(t, "120", s.PreviousPrice)

	// счётчик растёт ровно на 1 в секунду, до period включительно ставки открыты
	for i := 1; i <= period; i++ {
		s = f.advance(t)
		assert.Equal(t, i, s.Counter)
		assert.Equal(t, game.StateCounting, s.State)
		assert.False(t, s.Disabled, "guessing must stay enabled at counter %d", i)
	}

	s = f.advance(t)
	assert.Equal(t, period+1, s.Counter)
	assert.Equal(t, game.StateExpired, s.State)
	assert.True(t, s.Disabled)
	assert.Equal(t, 100, s.Progress)

	// таймер остановлен
	f.clock.Advance(5 * time.Second)
	f.assertQuiet(t)
	assert.ErrorIs(t, f.round.Guess(game.Down), game.ErrGuessingDisabled)
}

func TestRound_ScoreResetsFromAnyState(t *testing.T) {
	f := newRoundFixture(t, 1)

	f.round.OnScore(score("10", "9", "1"))
	f.next(t)
	require.NoError(t, f.round.Guess(game.Up))
	f.next(t)
	f.round.OnReceived()
	s := f.next(t)
	require.True(t, s.Disabled)
	f.advance(t)
	s = f.advance(t)
	require.Equal(t, game.StateExpired, s.State)

	f.round.OnScore(score("11", "10", "2"))
	s = f.next(t)
	assert.Equal(t, game.StateCounting, s.State)
	assert.Equal(t, 0, s.Counter)
	assert.Empty(t, s.Prediction)
	assert.False(t, s.Disabled)
	assert.Equal(t, "2", s.Score)

	s = f.advance(t)
	assert.Equal(t, 1, s.Counter)
}

func TestRound_NewScoreReplacesTimer(t *testing.T) {
	f := newRoundFixture(t, 10)

	f.round.OnScore(score("10", "9", "1"))
	f.next(t)
	f.advance(t)
	f.advance(t)

	f.round.OnScore(score("12", "10", "1"))
	s := f.next(t)
	assert.Equal(t, 0, s.Counter)

	// один тик - значит работает только один таймер
	s = f.advance(t)
	assert.Equal(t, 1, s.Counter)
	f.assertQuiet(t)
}

func TestRound_GuessEmitsAndRecordsPrediction(t *testing.T) {
	f := newRoundFixture(t, 5)
	f.round.OnScore(score("10", "9", "1"))
	f.next(t)

	require.NoError(t, f.round.Guess(game.Down))
	s := f.next(t)
	assert.Equal(t, game.Down, s.Prediction)

	f.mu.Lock()
	require.Len(t, f.emitted, 1)
	assert.Equal(t, feed.GuessPayload{UserID: "u1", Guess: "down"}, f.emitted[0])
	f.mu.Unlock()

	// до события received ставку можно поменять
	require.NoError(t, f.round.Guess(game.Up))
	f.next(t)

	f.round.OnReceived()
	f.next(t)
	assert.ErrorIs(t, f.round.Guess(game.Up), game.ErrGuessingDisabled)
}

func TestRound_InvalidDirection(t *testing.T) {
	f := newRoundFixture(t, 5)
	f.round.OnScore(score("10", "9", "1"))
	f.next(t)

	err := f.round.Guess(game.Direction("sideways"))
	assert.True(t, errors.Is(err, game.ErrInvalidDirection))
}

func TestRound_EmitFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	round := game.NewRound(game.RoundConfig{
		Clock:  clock,
		Period: 5,
		Emit:   func(feed.GuessPayload) error { return errors.New("closed") },
	})
	defer round.Stop()

	round.OnScore(score("10", "9", "1"))
	assert.Error(t, round.Guess(game.Up))
}

func TestRound_StopCancelsTicker(t *testing.T) {
	f := newRoundFixture(t, 5)
	f.round.OnScore(score("10", "9", "1"))
	f.next(t)

	f.round.Stop()
	f.clock.Advance(3 * time.Second)
	f.assertQuiet(t)
	assert.Equal(t, 0, f.round.Snapshot().Counter)
}

func TestRound_EventsAfterStopAreIgnored(t *testing.T) {
	f := newRoundFixture(t, 5)
	f.round.OnScore(score("10", "9", "1"))
	f.next(t)

	f.round.Stop()
	f.round.OnScore(score("1", "2", "0"))
	f.round.OnReceived()
	f.assertQuiet(t)

	f.clock.Advance(3 * time.Second)
	f.assertQuiet(t)

	s := f.round.Snapshot()
	assert.Equal(t, 0, s.Counter)
	assert.Equal(t, "10", s.CurrentPrice)
	assert.True(t, s.Disabled)
	assert.ErrorIs(t, f.round.Guess(game.Up), game.ErrGuessingDisabled)
}
