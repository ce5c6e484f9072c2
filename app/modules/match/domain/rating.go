package matchdomain

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

const (
	// KFactor is the Elo K used for every verified match.
	KFactor = 60.0

	eloScale        = 200.0
	eloSpread       = 400.0
	upsetMultiplier = 1.3
	maxPlayerDelta  = 0.3

	ReliabilityStep = 5
	MaxReliability  = 100
)

// PlayerRating is the rating state one player carries into a match.
type PlayerRating struct {
	PlayerID    uuid.UUID
	Skill       float64
	Played      int
	Won         int
	Reliability int
}

// RatingUpdate is the new state for one player after a verified match.
type RatingUpdate struct {
	PlayerID    uuid.UUID `json:"player_id"`
	Team        Team      `json:"team"`
	OldSkill    float64   `json:"old_skill"`
	NewSkill    float64   `json:"new_skill"`
	Won         bool      `json:"won"`
	Played      int       `json:"matches_played"`
	MatchesWon  int       `json:"matches_won"`
	Reliability int       `json:"reliability_percentage"`
}

// ComputeRatings applies one verified result to both teams. Team averages are
// scored on an Elo axis (x200), K=60, with a 1.3x upset bonus when the lower
// rated team wins. Each player's change is clamped to +-0.3 and the result to
// 1.0-7.0, rounded to one decimal.
func ComputeRatings(teamA, teamB []PlayerRating, winner Team) ([]RatingUpdate, error) {
	if len(teamA) != PlayersPerTeam || len(teamB) != PlayersPerTeam {
		return nil, fmt.Errorf("each team needs %d players, got %d and %d", PlayersPerTeam, len(teamA), len(teamB))
	}
	if winner != TeamA && winner != TeamB {
		return nil, fmt.Errorf("no winning team")
	}

	avgA, avgB := average(teamA), average(teamB)
	eloA, eloB := avgA*eloScale, avgB*eloScale
	expectedA := 1 / (1 + math.Pow(10, (eloB-eloA)/eloSpread))
	expectedB := 1 - expectedA

	actualA, actualB := 0.0, 1.0
	if winner == TeamA {
		actualA, actualB = 1.0, 0.0
	}
	deltaA := KFactor * (actualA - expectedA) / eloScale
	deltaB := KFactor * (actualB - expectedB) / eloScale

	upset := (winner == TeamA && avgA < avgB) || (winner == TeamB && avgB < avgA)
	if upset {
		deltaA *= upsetMultiplier
		deltaB *= upsetMultiplier
	}

	updates := make([]RatingUpdate, 0, len(teamA)+len(teamB))
	for _, p := range teamA {
		updates = append(updates, apply(p, TeamA, deltaA, winner == TeamA))
	}
	for _, p := range teamB {
		updates = append(updates, apply(p, TeamB, deltaB, winner == TeamB))
	}
	return updates, nil
}

func apply(p PlayerRating, team Team, delta float64, won bool) RatingUpdate {
	delta = clamp(delta, -maxPlayerDelta, maxPlayerDelta)
	u := RatingUpdate{
		PlayerID:    p.PlayerID,
		Team:        team,
		OldSkill:    p.Skill,
		NewSkill:    roundTenth(clamp(p.Skill+delta, MinSkill, MaxSkill)),
		Won:         won,
		Played:      p.Played + 1,
		MatchesWon:  p.Won,
		Reliability: min(MaxReliability, p.Reliability+ReliabilityStep),
	}
	if won {
		u.MatchesWon++
	}
	return u
}

func average(players []PlayerRating) float64 {
	var sum float64
	for _, p := range players {
		sum += p.Skill
	}
	return sum / float64(len(players))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// roundTenth rounds half up. The epsilon absorbs binary drift so
// 2.65 lands on 2.7 rather than 2.6.
func roundTenth(v float64) float64 {
	return math.Round(v*10+1e-9) / 10
}
