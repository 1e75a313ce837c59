/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "time"

// Bounds for host-provided settings. Times are in seconds.
const (
	MinRounds         = 1
	MaxRounds         = 20
	MinAnswerTime     = 10
	MaxAnswerTime     = 300
	MinDiscussionTime = 15
	MaxDiscussionTime = 600
	MinVoteTime       = 10
	MaxVoteTime       = 300
)

// Settings are chosen by the host in the lobby and frozen while playing.
type Settings struct {
	Rounds         int `json:"rounds"`
	AnswerTime     int `json:"answerTime"`
	DiscussionTime int `json:"discussionTime"`
	VoteTime       int `json:"voteTime"`
}

func DefaultSettings() Settings {
	return Settings{
		Rounds:         5,
		AnswerTime:     45,
		DiscussionTime: 60,
		VoteTime:       30,
	}
}

// Normalize replaces zero fields with def and clamps everything into bounds.
func (s Settings) Normalize(def Settings) Settings {
	if s.Rounds == 0 {
		s.Rounds = def.Rounds
	}
	if s.AnswerTime == 0 {
		s.AnswerTime = def.AnswerTime
	}
	if s.DiscussionTime == 0 {
		s.DiscussionTime = def.DiscussionTime
	}
	if s.VoteTime == 0 {
		s.VoteTime = def.VoteTime
	}

	s.Rounds = clamp(s.Rounds, MinRounds, MaxRounds)
	s.AnswerTime = clamp(s.AnswerTime, MinAnswerTime, MaxAnswerTime)
	s.DiscussionTime = clamp(s.DiscussionTime, MinDiscussionTime, MaxDiscussionTime)
	s.VoteTime = clamp(s.VoteTime, MinVoteTime, MaxVoteTime)

	return s
}

func (s Settings) answerDuration() time.Duration {
	return time.Duration(s.AnswerTime) * time.Second
}

func (s Settings) discussionDuration() time.Duration {
	return time.Duration(s.DiscussionTime) * time.Second
}

func (s Settings) voteDuration() time.Duration {
	return time.Duration(s.VoteTime) * time.Second
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
