/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import "time"

// Round flow, each step running on the room goroutine:
//
//	answering --timer--> revealing --pause--> discussing --timer--> voting
//	voting --all voted | timer--> resolving --pause--> answering | game over

// Recorder receives the final standings of every finished game. RecordGame
// is called from the room goroutine and must return quickly.
type Recorder interface {
	RecordGame(rec GameRecord)
}

// GameRecord is a finished game as it is archived.
type GameRecord struct {
	Room       string    `json:"room"`
	Rounds     int       `json:"rounds"`
	Winner     Player    `json:"winner"`
	Standings  []Player  `json:"standings"`
	FinishedAt time.Time `json:"finishedAt"`
}

func (r *Room) startGame() {
	if !r.setStatus(StatusPlaying) {
		return
	}

	for i := range r.players {
		r.players[i].Score = 0
	}
	r.round = 1

	r.log.Info().Int("players", len(r.players)).Int("rounds", r.settings.Rounds).Msg("game started")

	r.broadcast(GameStartedMessage{Type: "gameStarted", Settings: r.settings})
	r.beginRound()
}

func (r *Room) clearRound() {
	r.answers = r.answers[:0]
	r.votes = make(map[string]string)
	r.imposter = ""
	r.question = Question{}
	r.resolved = false
}

func (r *Room) beginRound() {
	if len(r.players) < 2 {
		r.log.Info().Int("players", len(r.players)).Msg("too few players for another round")
		r.finishGame()
		return
	}

	r.clearRound()
	r.question = r.cfg.questions.Pick(r.rng)
	r.imposter = r.players[r.rng.IntN(len(r.players))].ID
	r.phase = PhaseAnswering

	r.log.Debug().Int("round", r.round).Str("imposter", r.imposter).Msg("round started")

	for _, p := range r.players {
		msg := RoundStartMessage{
			Type:     "roundStart",
			Round:    r.round,
			Rounds:   r.settings.Rounds,
			Question: r.question.Real,
			Time:     r.settings.AnswerTime,
		}
		if p.ID == r.imposter {
			msg.Question = r.question.Fake
			msg.IsImposter = true
		}
		r.cfg.notifier.Send(p.ID, msg)
	}

	r.schedule(r.settings.answerDuration(), PhaseAnswering, r.revealAnswers)
}

// revealAnswers only ever runs from the answer timer; answering early does
// not shorten the phase.
func (r *Room) revealAnswers() {
	r.phase = PhaseRevealing

	byPlayer := make(map[string]string, len(r.answers))
	for _, a := range r.answers {
		byPlayer[a.PlayerID] = a.Text
	}

	revealed := make([]RevealedAnswer, 0, len(r.players))
	for _, p := range r.players {
		text, ok := byPlayer[p.ID]
		if !ok {
			text = NoAnswer
		}
		revealed = append(revealed, RevealedAnswer{
			PlayerID: p.ID,
			Name:     p.Name,
			Answer:   text,
			Answered: ok,
		})
	}

	r.broadcast(RevealAnswersMessage{
		Type:     "revealAnswers",
		Question: r.question.Real,
		Answers:  revealed,
		Time:     seconds(r.cfg.revealPause),
	})

	r.schedule(r.cfg.revealPause, PhaseRevealing, r.startDiscussion)
}

func (r *Room) startDiscussion() {
	r.phase = PhaseDiscussing

	r.broadcast(StartDiscussionMessage{Type: "startDiscussion", Time: r.settings.DiscussionTime})

	r.schedule(r.settings.discussionDuration(), PhaseDiscussing, r.startVoting)
}

func (r *Room) startVoting() {
	r.phase = PhaseVoting

	r.broadcast(StartVotingMessage{
		Type:    "startVoting",
		Players: r.playerViews(),
		Time:    r.settings.VoteTime,
	})

	r.schedule(r.settings.voteDuration(), PhaseVoting, r.resolveRound)
}

// resolveRound is reached from the vote timer or from the last vote. The
// resolved flag and the timer cancellation make sure it scores once.
func (r *Room) resolveRound() {
	if r.phase != PhaseVoting || r.resolved {
		return
	}
	r.resolved = true
	r.cancelTimer()
	r.phase = PhaseResolving

	res := Resolve(r.players, r.votes, r.imposter)
	for i := range r.players {
		r.players[i].Score += res.Deltas[r.players[i].ID]
	}

	votes := make(map[string]string, len(r.votes))
	for k, v := range r.votes {
		votes[k] = v
	}

	r.log.Info().
		Int("round", r.round).
		Bool("caught", res.ImposterCaught).
		Int("votes", len(votes)).
		Msg("round resolved")

	r.broadcast(RoundResultsMessage{
		Type:           "roundResults",
		Round:          r.round,
		ImposterCaught: res.ImposterCaught,
		VotedOutID:     res.VotedOutID,
		ImposterID:     r.imposter,
		Question:       r.question,
		Votes:          votes,
		Deltas:         res.Deltas,
		Players:        r.playerViews(),
	})

	r.round++
	if r.round <= r.settings.Rounds {
		r.schedule(r.cfg.resultsPause, PhaseResolving, r.beginRound)
		return
	}

	r.finishGame()
}

func (r *Room) finishGame() {
	r.cancelTimer()
	if !r.setStatus(StatusFinished) {
		return
	}
	r.phase = PhaseGameOver

	msg := GameOverMessage{Type: "gameOver", Players: r.playerViews()}

	best, ok := leader(r.players)
	if ok {
		for _, v := range msg.Players {
			if v.ID == best.ID {
				msg.Winner = &v
				break
			}
		}
	}

	r.log.Info().Str("winner", best.ID).Int("score", best.Score).Msg("game over")

	r.broadcast(msg)

	if r.cfg.recorder != nil && ok {
		r.cfg.recorder.RecordGame(GameRecord{
			Room:       r.code,
			Rounds:     r.settings.Rounds,
			Winner:     best,
			Standings:  append([]Player(nil), r.players...),
			FinishedAt: r.cfg.clock.Now(),
		})
	}
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
