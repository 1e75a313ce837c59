/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"crypto/rand"
	"errors"
	mrand "math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	CodeLength   = 4
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeAttempts = 64
)

// Options configure a Registry. Zero values fall back to sane defaults.
type Options struct {
	Questions    QuestionSource
	Notifier     Notifier
	Clock        Clock
	Recorder     Recorder
	Logger       *zerolog.Logger
	Defaults     Settings
	MinPlayers   int
	MaxPlayers   int
	RevealPause  time.Duration
	ResultsPause time.Duration

	// Codes generates candidate room codes; Rand seeds each room's
	// random source. Both exist so tests can be deterministic.
	Codes func() string
	Rand  func() *mrand.Rand
}

// Registry owns every live room, keyed by room code.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	cfg   roomConfig
	codes func() string
	rand  func() *mrand.Rand
}

func NewRegistry(opts Options) *Registry {
	cfg := roomConfig{
		questions:    opts.Questions,
		notifier:     opts.Notifier,
		clock:        opts.Clock,
		recorder:     opts.Recorder,
		log:          zerolog.Nop(),
		defaults:     opts.Defaults.Normalize(DefaultSettings()),
		minPlayers:   max(opts.MinPlayers, 2),
		maxPlayers:   opts.MaxPlayers,
		revealPause:  opts.RevealPause,
		resultsPause: opts.ResultsPause,
	}

	if opts.Logger != nil {
		cfg.log = *opts.Logger
	}
	if cfg.questions == nil {
		q, _ := ParseQuestions(defaultQuestions)
		cfg.questions = q
	}
	if cfg.notifier == nil {
		cfg.notifier = NotifierFunc(func(string, any) {})
	}
	if cfg.clock == nil {
		cfg.clock = RealClock()
	}
	if cfg.revealPause <= 0 {
		cfg.revealPause = 3 * time.Second
	}
	if cfg.resultsPause <= 0 {
		cfg.resultsPause = 5 * time.Second
	}

	reg := &Registry{
		rooms: make(map[string]*Room),
		cfg:   cfg,
		codes: opts.Codes,
		rand:  opts.Rand,
	}
	if reg.codes == nil {
		reg.codes = randomCode
	}
	if reg.rand == nil {
		reg.rand = func() *mrand.Rand {
			return mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64()))
		}
	}

	return reg
}

// randomCode returns CodeLength characters drawn uniformly from codeAlphabet,
// discarding bytes that would bias the modulo.
func randomCode() string {
	const limit = byte(255 - (256 % len(codeAlphabet)))

	out := make([]byte, 0, CodeLength)
	buf := make([]byte, CodeLength*2)

	for len(out) < CodeLength {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		for _, b := range buf {
			if b <= limit {
				out = append(out, codeAlphabet[int(b)%len(codeAlphabet)])
				if len(out) == CodeLength {
					break
				}
			}
		}
	}

	return string(out)
}

// NormalizeCode upper-cases and trims a user-typed room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom opens a new lobby with the caller as its only player and host.
func (reg *Registry) CreateRoom(playerID, hostName string) (*Room, error) {
	name, err := cleanName(hostName)
	if err != nil {
		return nil, err
	}
	creator := Player{ID: playerID, Name: name}

	reg.mu.Lock()
	var room *Room
	for range codeAttempts {
		code := reg.codes()
		if _, taken := reg.rooms[code]; taken {
			continue
		}

		room = newRoom(code, reg.cfg, reg.rand(), creator)
		reg.rooms[code] = room
		break
	}
	reg.mu.Unlock()

	if room == nil {
		reg.cfg.log.Warn().Int("rooms", reg.Len()).Msg("room codes exhausted")
		return nil, ErrRegistryExhausted
	}

	go room.run()

	_ = room.do(func() error {
		room.sendJoined(playerID)
		return nil
	})

	reg.cfg.log.Info().Str("room", room.code).Str("host", playerID).Msg("room created")

	return room, nil
}

// JoinRoom adds a player to an existing lobby.
func (reg *Registry) JoinRoom(code, playerID, name string) (*Room, error) {
	room, ok := reg.Room(NormalizeCode(code))
	if !ok {
		return nil, ErrRoomNotFound
	}

	if err := room.join(playerID, name); err != nil {
		if errors.Is(err, ErrRoomClosed) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	return room, nil
}

// RemovePlayer takes a player out of a room, reassigning the host and
// deleting the room once it is empty. Calling it again is a no-op.
func (reg *Registry) RemovePlayer(code, playerID string) {
	room, ok := reg.Room(code)
	if !ok {
		return
	}

	empty, err := room.leave(playerID)
	if err != nil || !empty {
		return
	}

	reg.discard(room)
}

func (reg *Registry) discard(room *Room) {
	_ = room.do(func() error {
		room.cancelTimer()
		room.closed = true
		return nil
	})
	room.shutdown()

	reg.mu.Lock()
	if reg.rooms[room.code] == room {
		delete(reg.rooms, room.code)
	}
	n := len(reg.rooms)
	reg.mu.Unlock()

	reg.cfg.log.Info().Str("room", room.code).Int("rooms", n).Msg("room deleted")
}

// Room looks up a live room by code.
func (reg *Registry) Room(code string) (*Room, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[code]

	return room, ok
}

func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	return len(reg.rooms)
}

// Close shuts down every room, cancelling all pending timers.
func (reg *Registry) Close() {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		rooms = append(rooms, room)
	}
	reg.mu.Unlock()

	for _, room := range rooms {
		reg.discard(room)
	}
}
