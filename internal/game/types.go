/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

type Status string

const (
	StatusLobby    Status = "lobby"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// CanTransitionTo reports whether a room may move from s to target.
// playing -> lobby is only reachable through an explicit reset, and a
// finished room stays finished.
func (s Status) CanTransitionTo(target Status) bool {
	allowed := map[Status][]Status{
		StatusLobby:   {StatusPlaying},
		StatusPlaying: {StatusFinished, StatusLobby},
	}

	for _, next := range allowed[s] {
		if next == target {
			return true
		}
	}

	return false
}

type Phase string

const (
	PhaseNone       Phase = ""
	PhaseAnswering  Phase = "answering"
	PhaseRevealing  Phase = "revealing"
	PhaseDiscussing Phase = "discussing"
	PhaseVoting     Phase = "voting"
	PhaseResolving  Phase = "resolving"
	PhaseGameOver   Phase = "gameOver"
)

// Player is a member of a room. ID is assigned by the transport.
type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Answer is one player's submission for the current round.
type Answer struct {
	PlayerID string
	Text     string
}

// RoomState is a copy of a room's state, safe to read from any goroutine.
type RoomState struct {
	Code       string
	Host       string
	Status     Status
	Phase      Phase
	Round      int
	Imposter   string
	Question   Question
	Players    []Player
	Settings   Settings
	Answers    []Answer
	Votes      map[string]string
	TimerArmed bool
}

// Player returns the player with the given id from the snapshot.
func (s RoomState) Player(id string) (Player, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}

	return Player{}, false
}
