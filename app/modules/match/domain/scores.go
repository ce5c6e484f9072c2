package matchdomain

import (
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
)

// SetScore is one set of an open match.
type SetScore struct {
	TeamA int `json:"team_a"`
	TeamB int `json:"team_b"`
}

// ValidateOpenScores checks an open-match score line: two or three sets,
// non-negative games with no cap, no tied set, and a set majority.
func ValidateOpenScores(sets []SetScore) error {
	if len(sets) < 2 || len(sets) > 3 {
		return apperrors.Validation("must have 2 or 3 sets")
	}
	var a, b int
	for i, set := range sets {
		if set.TeamA < 0 || set.TeamB < 0 {
			return apperrors.Validation("set %d: game counts must be non-negative", i+1)
		}
		switch {
		case set.TeamA > set.TeamB:
			a++
		case set.TeamB > set.TeamA:
			b++
		default:
			return apperrors.Validation("set %d: no tie allowed", i+1)
		}
	}
	if a == b {
		return apperrors.Validation("must have an overall match winner")
	}
	return nil
}

// Winner returns the team that took the majority of sets, or TeamNone when
// the sets are level. Scores are expected to have passed ValidateOpenScores.
func Winner(sets []SetScore) Team {
	var a, b int
	for _, set := range sets {
		switch {
		case set.TeamA > set.TeamB:
			a++
		case set.TeamB > set.TeamA:
			b++
		}
	}
	switch {
	case a > b:
		return TeamA
	case b > a:
		return TeamB
	default:
		return TeamNone
	}
}
