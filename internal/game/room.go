/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

const (
	maxNameLength   = 24
	maxAnswerLength = 200
	maxChatLength   = 300
)

// roomConfig is the part of the registry options every room shares.
type roomConfig struct {
	questions    QuestionSource
	notifier     Notifier
	clock        Clock
	recorder     Recorder
	log          zerolog.Logger
	defaults     Settings
	minPlayers   int
	maxPlayers   int
	revealPause  time.Duration
	resultsPause time.Duration
}

// Room is one game session. All state below the event channel is owned by
// the goroutine running run(); other goroutines reach it only through do().
type Room struct {
	code string
	cfg  roomConfig
	rng  *rand.Rand
	log  zerolog.Logger

	events    chan func()
	done      chan struct{}
	closeOnce sync.Once

	host     string
	players  []Player
	status   Status
	phase    Phase
	settings Settings
	round    int
	question Question
	imposter string
	answers  []Answer
	votes    map[string]string
	resolved bool
	closed   bool

	timer    Timer
	timerSeq uint64
}

// newRoom returns a lobby whose only player and host is creator.
func newRoom(code string, cfg roomConfig, rng *rand.Rand, creator Player) *Room {
	return &Room{
		code:     code,
		cfg:      cfg,
		rng:      rng,
		log:      cfg.log.With().Str("room", code).Logger(),
		events:   make(chan func(), 64),
		done:     make(chan struct{}),
		host:     creator.ID,
		players:  []Player{creator},
		status:   StatusLobby,
		settings: cfg.defaults,
		votes:    make(map[string]string),
	}
}

func (r *Room) Code() string {
	return r.code
}

func (r *Room) run() {
	for {
		select {
		case fn := <-r.events:
			fn()
		case <-r.done:
			return
		}
	}
}

// do runs fn on the room goroutine and waits for its result.
func (r *Room) do(fn func() error) error {
	reply := make(chan error, 1)

	select {
	case r.events <- func() { reply <- fn() }:
	case <-r.done:
		return ErrRoomClosed
	}

	select {
	case err := <-reply:
		return err
	case <-r.done:
		return ErrRoomClosed
	}
}

// shutdown stops the event loop. The room must already be marked closed.
func (r *Room) shutdown() {
	r.closeOnce.Do(func() {
		close(r.done)
	})
}

// schedule arms the room's single phase timer, replacing any pending one.
// The callback only runs if the room is still open, still in phase, and no
// other timer has been armed or cancelled since.
func (r *Room) schedule(d time.Duration, phase Phase, next func()) {
	r.cancelTimer()
	seq := r.timerSeq

	r.timer = r.cfg.clock.AfterFunc(d, func() {
		_ = r.do(func() error {
			if r.closed || seq != r.timerSeq || r.phase != phase {
				r.log.Debug().Str("phase", string(phase)).Msg("stale timer ignored")
				return nil
			}
			r.timer = nil
			next()
			return nil
		})
	})
}

func (r *Room) cancelTimer() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.timerSeq++
}

// State returns a snapshot of the room.
func (r *Room) State() (RoomState, error) {
	var st RoomState

	err := r.do(func() error {
		if r.closed {
			return ErrRoomClosed
		}

		st = RoomState{
			Code:       r.code,
			Host:       r.host,
			Status:     r.status,
			Phase:      r.phase,
			Round:      r.round,
			Imposter:   r.imposter,
			Question:   r.question,
			Players:    append([]Player(nil), r.players...),
			Settings:   r.settings,
			Answers:    append([]Answer(nil), r.answers...),
			Votes:      make(map[string]string, len(r.votes)),
			TimerArmed: r.timer != nil,
		}
		for k, v := range r.votes {
			st.Votes[k] = v
		}

		return nil
	})

	return st, err
}

func (r *Room) indexOf(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}

	return -1
}

func (r *Room) playerViews() []PlayerView {
	views := make([]PlayerView, 0, len(r.players))
	for _, p := range r.players {
		views = append(views, PlayerView{
			ID:    p.ID,
			Name:  p.Name,
			Score: p.Score,
			Host:  p.ID == r.host,
		})
	}

	return views
}

func (r *Room) broadcast(msg any) {
	for _, p := range r.players {
		r.cfg.notifier.Send(p.ID, msg)
	}
}

func (r *Room) roomUpdated() RoomUpdatedMessage {
	return RoomUpdatedMessage{
		Type:     "roomUpdated",
		Host:     r.host,
		Status:   r.status,
		Players:  r.playerViews(),
		Settings: r.settings,
	}
}

func (r *Room) sendJoined(playerID string) {
	r.cfg.notifier.Send(playerID, RoomJoinedMessage{
		Type:       "roomJoined",
		Room:       r.code,
		You:        playerID,
		Host:       r.host,
		Players:    r.playerViews(),
		Settings:   r.settings,
		MinPlayers: r.cfg.minPlayers,
	})
}

func (r *Room) setStatus(to Status) bool {
	if !r.status.CanTransitionTo(to) {
		r.log.Warn().Str("from", string(r.status)).Str("to", string(to)).Msg("rejected status transition")
		return false
	}
	r.status = to

	return true
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrInvalidName
	}

	return name, nil
}

func cleanText(text string, limit int) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" || utf8.RuneCountInString(text) > limit {
		return "", ErrInvalidText
	}

	return text, nil
}

// join adds a player to the lobby.
func (r *Room) join(playerID, name string) error {
	name, err := cleanName(name)
	if err != nil {
		return err
	}

	return r.do(func() error {
		switch {
		case r.closed:
			return ErrRoomClosed
		case r.status != StatusLobby:
			return ErrRoomNotJoinable
		case r.indexOf(playerID) >= 0:
			return ErrAlreadyInRoom
		case r.cfg.maxPlayers > 0 && len(r.players) >= r.cfg.maxPlayers:
			return ErrRoomFull
		}

		for _, p := range r.players {
			if strings.EqualFold(p.Name, name) {
				return ErrNameConflict
			}
		}

		r.players = append(r.players, Player{ID: playerID, Name: name})

		r.log.Info().Str("player", playerID).Str("name", name).Int("players", len(r.players)).Msg("player joined")

		r.sendJoined(playerID)

		update := r.roomUpdated()
		for _, p := range r.players {
			if p.ID != playerID {
				r.cfg.notifier.Send(p.ID, update)
			}
		}

		return nil
	})
}

// leave removes a player and reports whether the room is now empty. Leaving
// twice is harmless. An emptied room is closed and its timer cancelled
// before leave returns.
func (r *Room) leave(playerID string) (bool, error) {
	var empty bool

	err := r.do(func() error {
		if r.closed {
			empty = true
			return nil
		}

		i := r.indexOf(playerID)
		if i < 0 {
			empty = len(r.players) == 0
			return nil
		}

		r.players = append(r.players[:i], r.players[i+1:]...)
		delete(r.votes, playerID)
		for j, a := range r.answers {
			if a.PlayerID == playerID {
				r.answers = append(r.answers[:j], r.answers[j+1:]...)
				break
			}
		}

		r.log.Info().Str("player", playerID).Int("players", len(r.players)).Msg("player left")

		if len(r.players) == 0 {
			r.cancelTimer()
			r.closed = true
			empty = true
			return nil
		}

		if r.host == playerID {
			r.host = r.players[0].ID
			r.log.Info().Str("host", r.host).Msg("host reassigned")
		}

		r.broadcast(r.roomUpdated())

		if r.phase == PhaseVoting {
			r.broadcast(VoteCountMessage{Type: "voteCount", Votes: len(r.votes), Total: len(r.players)})
			if r.allVoted() {
				r.resolveRound()
			}
		}

		return nil
	})
	if errors.Is(err, ErrRoomClosed) {
		return true, nil
	}

	return empty, err
}

// UpdateSettings replaces the lobby settings. Host only.
func (r *Room) UpdateSettings(playerID string, s Settings) error {
	return r.do(func() error {
		if err := r.checkHost(playerID); err != nil {
			return err
		}
		if r.status != StatusLobby {
			return ErrWrongPhase
		}

		r.settings = s.Normalize(r.cfg.defaults)
		r.broadcast(r.roomUpdated())

		return nil
	})
}

// StartGame moves the room from lobby to playing and opens round one.
// A nil s keeps the current lobby settings.
func (r *Room) StartGame(playerID string, s *Settings) error {
	return r.do(func() error {
		if err := r.checkHost(playerID); err != nil {
			return err
		}
		if r.status != StatusLobby {
			return ErrWrongPhase
		}
		if len(r.players) < r.cfg.minPlayers {
			return ErrNotEnoughPlayers
		}

		if s != nil {
			r.settings = s.Normalize(r.cfg.defaults)
		}

		r.startGame()

		return nil
	})
}

// Reset returns a running game to the lobby, cancelling any pending phase.
// Host only. A finished game cannot be reset.
func (r *Room) Reset(playerID string) error {
	return r.do(func() error {
		if err := r.checkHost(playerID); err != nil {
			return err
		}
		if r.status == StatusFinished {
			return ErrWrongPhase
		}

		if r.status == StatusPlaying {
			if !r.setStatus(StatusLobby) {
				return ErrWrongPhase
			}
			r.cancelTimer()
			r.clearRound()
			r.phase = PhaseNone
			r.round = 0
			for i := range r.players {
				r.players[i].Score = 0
			}
			r.log.Info().Msg("game reset")
		}

		r.broadcast(r.roomUpdated())

		return nil
	})
}

// SubmitAnswer records the caller's answer. The first answer stands.
func (r *Room) SubmitAnswer(playerID, text string) error {
	text, err := cleanText(text, maxAnswerLength)
	if err != nil {
		return err
	}

	return r.do(func() error {
		if err := r.checkPlaying(playerID); err != nil {
			return err
		}
		if r.phase != PhaseAnswering {
			return ErrWrongPhase
		}

		for _, a := range r.answers {
			if a.PlayerID == playerID {
				return ErrAlreadyAnswered
			}
		}

		r.answers = append(r.answers, Answer{PlayerID: playerID, Text: text})

		return nil
	})
}

// SubmitVote records the caller's vote. The first vote stands. Once every
// current player has voted the round resolves without waiting for the timer.
func (r *Room) SubmitVote(playerID, targetID string) error {
	return r.do(func() error {
		if err := r.checkPlaying(playerID); err != nil {
			return err
		}
		if r.phase != PhaseVoting {
			return ErrWrongPhase
		}
		if targetID == playerID {
			return ErrSelfVote
		}
		if r.indexOf(targetID) < 0 {
			return ErrUnknownTarget
		}
		if _, ok := r.votes[playerID]; ok {
			return ErrAlreadyVoted
		}

		r.votes[playerID] = targetID
		r.broadcast(VoteCountMessage{Type: "voteCount", Votes: len(r.votes), Total: len(r.players)})

		if r.allVoted() {
			r.resolveRound()
		}

		return nil
	})
}

// SendChat relays a chat line to everyone in the room while a game is running.
func (r *Room) SendChat(playerID, text string) error {
	text, err := cleanText(text, maxChatLength)
	if err != nil {
		return err
	}

	return r.do(func() error {
		if err := r.checkPlaying(playerID); err != nil {
			return err
		}

		p := r.players[r.indexOf(playerID)]
		r.broadcast(ChatMessage{
			Type:     "chatMessage",
			PlayerID: p.ID,
			Name:     p.Name,
			Text:     text,
		})

		return nil
	})
}

func (r *Room) checkMember(playerID string) error {
	if r.closed {
		return ErrRoomClosed
	}
	if r.indexOf(playerID) < 0 {
		return ErrNotInRoom
	}

	return nil
}

func (r *Room) checkHost(playerID string) error {
	if err := r.checkMember(playerID); err != nil {
		return err
	}
	if r.host != playerID {
		return ErrNotHost
	}

	return nil
}

func (r *Room) checkPlaying(playerID string) error {
	if err := r.checkMember(playerID); err != nil {
		return err
	}
	if r.status != StatusPlaying {
		return ErrNotPlaying
	}

	return nil
}

// allVoted compares against the current roster, not the one the round began with.
func (r *Room) allVoted() bool {
	if len(r.players) == 0 {
		return false
	}
	for _, p := range r.players {
		if _, ok := r.votes[p.ID]; !ok {
			return false
		}
	}

	return true
}
