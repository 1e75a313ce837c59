/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

// Result is the outcome of one round's vote.
type Result struct {
	Deltas         map[string]int
	Tally          map[string]int
	VotedOutID     string
	ImposterCaught bool
}

// Resolve scores a round. Only votes cast by current players count, and
// only current players receive deltas. A tie or an empty vote map never
// catches the imposter.
func Resolve(players []Player, votes map[string]string, imposterID string) Result {
	present := make(map[string]bool, len(players))
	for _, p := range players {
		present[p.ID] = true
	}

	res := Result{
		Deltas: make(map[string]int, len(players)),
		Tally:  make(map[string]int),
	}
	for _, p := range players {
		res.Deltas[p.ID] = 0
	}

	for voter, target := range votes {
		if !present[voter] {
			continue
		}
		res.Tally[target]++
	}

	best, tied := 0, false
	for target, count := range res.Tally {
		switch {
		case count > best:
			best = count
			res.VotedOutID = target
			tied = false
		case count == best:
			tied = true
		}
	}
	if tied {
		res.VotedOutID = ""
	}

	res.ImposterCaught = res.VotedOutID != "" && res.VotedOutID == imposterID

	if res.ImposterCaught {
		for voter, target := range votes {
			if present[voter] && target == imposterID {
				res.Deltas[voter]++
			}
		}
	} else if present[imposterID] {
		res.Deltas[imposterID] += 2
	}

	return res
}

// leader returns the highest scorer, earliest in join order on ties.
func leader(players []Player) (Player, bool) {
	if len(players) == 0 {
		return Player{}, false
	}

	best := players[0]
	for _, p := range players[1:] {
		if p.Score > best.Score {
			best = p
		}
	}

	return best, true
}
