package ladderdomain

import (
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
)

// SetScore is one set of a ladder challenge. TeamA is always the challenger.
type SetScore struct {
	TeamA int `json:"team_a"`
	TeamB int `json:"team_b"`
}

// winner returns the side that took the set, or SideNone on a tie.
func (s SetScore) winner() Side {
	switch {
	case s.TeamA > s.TeamB:
		return SideChallenger
	case s.TeamB > s.TeamA:
		return SideDefender
	default:
		return SideNone
	}
}

func (s SetScore) bounds() (high, low int) {
	if s.TeamA > s.TeamB {
		return s.TeamA, s.TeamB
	}
	return s.TeamB, s.TeamA
}

const (
	gamesToWinSet       = 6
	superTiebreakTarget = 10
	superTiebreakMargin = 2
	maxLoserGamesInSet  = 5
)

// ValidateKGScores checks a challenge score line against the KG rules: two
// six-game sets (5-5 is settled 6-5) and a super tiebreak to 10, win by 2,
// only when the sets are split. The returned error names the first broken
// rule.
func ValidateKGScores(sets []SetScore) error {
	if len(sets) < 2 || len(sets) > 3 {
		return apperrors.Validation("must have 2 or 3 sets")
	}

	for i, set := range sets {
		if set.TeamA < 0 || set.TeamB < 0 {
			return apperrors.Validation("set %d: game counts must be non-negative", i+1)
		}
	}

	var challengerSets, defenderSets int
	for i, set := range sets[:2] {
		high, low := set.bounds()
		if high != gamesToWinSet {
			return apperrors.Validation("set %d: winner must have exactly 6 games", i+1)
		}
		if low > maxLoserGamesInSet {
			return apperrors.Validation("set %d: loser must have 0-5 games; tiebreak at 5-5 → 6-5", i+1)
		}
		if set.TeamA == set.TeamB {
			return apperrors.Validation("set %d: no tie allowed", i+1)
		}
		if set.winner() == SideChallenger {
			challengerSets++
		} else {
			defenderSets++
		}
	}

	split := challengerSets == 1 && defenderSets == 1
	if len(sets) == 2 && split {
		return apperrors.Validation("sets are split 1-1; a third set is required")
	}

	if len(sets) == 3 {
		if !split {
			return apperrors.Validation("set 3 only played if sets are split")
		}
		third := sets[2]
		high, low := third.bounds()
		if high < superTiebreakTarget {
			return apperrors.Validation("set 3: winner must reach at least 10 points")
		}
		if high-low < superTiebreakMargin {
			return apperrors.Validation("set 3: winner must win by at least 2 points")
		}
		if third.TeamA == third.TeamB {
			return apperrors.Validation("set 3: no tie allowed")
		}
		if third.winner() == SideChallenger {
			challengerSets++
		} else {
			defenderSets++
		}
	}

	if challengerSets == defenderSets {
		return apperrors.Validation("must have an overall match winner")
	}
	return nil
}

// MatchWinner returns the side that won more sets. Callers validate first.
func MatchWinner(sets []SetScore) Side {
	var challengerSets, defenderSets int
	for _, set := range sets {
		switch set.winner() {
		case SideChallenger:
			challengerSets++
		case SideDefender:
			defenderSets++
		}
	}
	switch {
	case challengerSets > defenderSets:
		return SideChallenger
	case defenderSets > challengerSets:
		return SideDefender
	default:
		return SideNone
	}
}

// ForfeitScores is the blow-out line recorded for a forfeit: two 6-0 sets in
// favour of winner.
func ForfeitScores(winner Side) []SetScore {
	if winner == SideChallenger {
		return []SetScore{{TeamA: 6, TeamB: 0}, {TeamA: 6, TeamB: 0}}
	}
	return []SetScore{{TeamA: 0, TeamB: 6}, {TeamA: 0, TeamB: 6}}
}
