/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	active := !t.stopped && !t.fired
	t.stopped = true

	return active
}

// fakeClock fires timers only when Advance is called, in deadline order.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, when: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)

	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.when.After(target) {
				continue
			}
			if next == nil || t.when.Before(next.when) {
				next = t
			}
		}
		if next == nil {
			break
		}

		next.fired = true
		c.now = next.when

		c.mu.Unlock()
		next.f()
		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

// Pending counts timers that are armed and not yet fired.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}

	return n
}

// stale returns the callbacks of timers that were stopped before firing,
// standing in for an expiry that raced with its own cancellation.
func (c *fakeClock) stale() []func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fns []func()
	for _, t := range c.timers {
		if t.stopped && !t.fired {
			fns = append(fns, t.f)
		}
	}

	return fns
}

type inbox struct {
	mu   sync.Mutex
	msgs map[string][]any
}

func newInbox() *inbox {
	return &inbox{msgs: make(map[string][]any)}
}

func (in *inbox) Send(playerID string, msg any) {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.msgs[playerID] = append(in.msgs[playerID], msg)
}

func (in *inbox) clear() {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.msgs = make(map[string][]any)
}

func messagesOf[T any](in *inbox, playerID string) []T {
	in.mu.Lock()
	defer in.mu.Unlock()

	var out []T
	for _, m := range in.msgs[playerID] {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}

	return out
}

type recorderFunc func(GameRecord)

func (f recorderFunc) RecordGame(rec GameRecord) { f(rec) }

type testEnv struct {
	reg   *Registry
	clock *fakeClock
	inbox *inbox
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()

	env := &testEnv{clock: newFakeClock(), inbox: newInbox()}

	opts := Options{
		Questions:    Questions{{Real: "real question", Fake: "fake question"}},
		Notifier:     env.inbox,
		Clock:        env.clock,
		MinPlayers:   3,
		RevealPause:  3 * time.Second,
		ResultsPause: 5 * time.Second,
		Rand: func() *rand.Rand {
			return rand.New(rand.NewPCG(1, 2))
		},
	}
	for _, m := range mutate {
		m(&opts)
	}

	env.reg = NewRegistry(opts)
	t.Cleanup(env.reg.Close)

	return env
}

var fastSettings = Settings{Rounds: 1, AnswerTime: 10, DiscussionTime: 15, VoteTime: 10}

// lobby creates a room hosted by p0 with n players p0..p(n-1).
func (env *testEnv) lobby(t *testing.T, n int) (*Room, []string) {
	t.Helper()

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i)
	}

	room, err := env.reg.CreateRoom(ids[0], "Player 0")
	require.NoError(t, err)

	for i := 1; i < n; i++ {
		_, err := env.reg.JoinRoom(room.Code(), ids[i], fmt.Sprintf("Player %d", i))
		require.NoError(t, err)
	}

	return room, ids
}

// started is lobby plus StartGame with the given settings.
func (env *testEnv) started(t *testing.T, n int, s Settings) (*Room, []string) {
	t.Helper()

	room, ids := env.lobby(t, n)
	require.NoError(t, room.StartGame(ids[0], &s))

	return room, ids
}

// toVoting advances from the start of a round to the voting phase.
func (env *testEnv) toVoting(t *testing.T, room *Room, s Settings) {
	t.Helper()

	env.clock.Advance(time.Duration(s.AnswerTime) * time.Second)
	env.clock.Advance(3 * time.Second)
	env.clock.Advance(time.Duration(s.DiscussionTime) * time.Second)

	require.Equal(t, PhaseVoting, mustState(t, room).Phase)
}

func mustState(t *testing.T, room *Room) RoomState {
	t.Helper()

	st, err := room.State()
	require.NoError(t, err)

	return st
}
