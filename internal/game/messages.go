/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

// Notifier delivers outbound messages to connected players. Send must not
// block: rooms call it from their event loop.
type Notifier interface {
	Send(playerID string, msg any)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(playerID string, msg any)

func (f NotifierFunc) Send(playerID string, msg any) {
	f(playerID, msg)
}

const NoAnswer = "(did not answer)"

// PlayerView is how a player appears in rosters.
type PlayerView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Host  bool   `json:"host"`
}

// RoomJoinedMessage is sent only to the player who created or joined a room.
type RoomJoinedMessage struct {
	Type       string       `json:"type"` // "roomJoined"
	Room       string       `json:"room"`
	You        string       `json:"you"`
	Host       string       `json:"host"`
	Players    []PlayerView `json:"players"`
	Settings   Settings     `json:"settings"`
	MinPlayers int          `json:"minPlayers"`
}

// RoomUpdatedMessage carries the roster after joins, leaves, host changes,
// settings changes and resets.
type RoomUpdatedMessage struct {
	Type     string       `json:"type"` // "roomUpdated"
	Host     string       `json:"host"`
	Status   Status       `json:"status"`
	Players  []PlayerView `json:"players"`
	Settings Settings     `json:"settings"`
}

type GameStartedMessage struct {
	Type     string   `json:"type"` // "gameStarted"
	Settings Settings `json:"settings"`
}

// RoundStartMessage differs per recipient: the imposter gets the fake question.
type RoundStartMessage struct {
	Type       string `json:"type"` // "roundStart"
	Round      int    `json:"round"`
	Rounds     int    `json:"rounds"`
	Question   string `json:"question"`
	IsImposter bool   `json:"isImposter"`
	Time       int    `json:"time"`
}

type RevealedAnswer struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Answer   string `json:"answer"`
	Answered bool   `json:"answered"`
}

type RevealAnswersMessage struct {
	Type     string           `json:"type"` // "revealAnswers"
	Question string           `json:"question"`
	Answers  []RevealedAnswer `json:"answers"`
	Time     int              `json:"time"`
}

type StartDiscussionMessage struct {
	Type string `json:"type"` // "startDiscussion"
	Time int    `json:"time"`
}

// Clients exclude themselves from Players when offering vote targets.
type StartVotingMessage struct {
	Type    string       `json:"type"` // "startVoting"
	Players []PlayerView `json:"players"`
	Time    int          `json:"time"`
}

type VoteCountMessage struct {
	Type  string `json:"type"` // "voteCount"
	Votes int    `json:"votes"`
	Total int    `json:"total"`
}

type RoundResultsMessage struct {
	Type           string            `json:"type"` // "roundResults"
	Round          int               `json:"round"`
	ImposterCaught bool              `json:"imposterCaught"`
	VotedOutID     string            `json:"votedOutId"`
	ImposterID     string            `json:"imposterId"`
	Question       Question          `json:"question"`
	Votes          map[string]string `json:"votes"`
	Deltas         map[string]int    `json:"deltas"`
	Players        []PlayerView      `json:"players"`
}

type GameOverMessage struct {
	Type    string       `json:"type"` // "gameOver"
	Winner  *PlayerView  `json:"winner"`
	Players []PlayerView `json:"players"`
}

type ChatMessage struct {
	Type     string `json:"type"` // "chatMessage"
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Text     string `json:"text"`
}

// ErrorMessage is sent only to the client whose action failed.
type ErrorMessage struct {
	Type   string `json:"type"` // "errorMessage"
	Reason string `json:"reason"`
}

func NewErrorMessage(err error) ErrorMessage {
	return ErrorMessage{Type: "errorMessage", Reason: err.Error()}
}
