package ladderdomain

import (
	"sort"

	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/google/uuid"
)

// RankedTeam is the slice of a team the rotation engine needs.
type RankedTeam struct {
	ID   uuid.UUID
	Rank int
}

// RankChange moves one team from OldRank to NewRank.
type RankChange struct {
	TeamID  uuid.UUID
	OldRank int
	NewRank int
}

func findRanked(pool []RankedTeam, id uuid.UUID) (RankedTeam, bool) {
	for _, t := range pool {
		if t.ID == id {
			return t, true
		}
	}
	return RankedTeam{}, false
}

// RotateRanks computes the reassignment after a challenger win. Every team
// strictly between the defender and the challenger slides down one place,
// the defender takes R_d+1 and the challenger takes R_d. Intermediate teams
// are listed bottom-up, followed by the defender and then the challenger.
func RotateRanks(pool []RankedTeam, challengerID, defenderID uuid.UUID) ([]RankChange, error) {
	challenger, ok := findRanked(pool, challengerID)
	if !ok {
		return nil, apperrors.NotFound("challenger team %s not in pool", challengerID)
	}
	defender, ok := findRanked(pool, defenderID)
	if !ok {
		return nil, apperrors.NotFound("defender team %s not in pool", defenderID)
	}
	if challenger.Rank <= defender.Rank {
		return nil, apperrors.Conflict("challenger rank %d is not below defender rank %d", challenger.Rank, defender.Rank)
	}

	between := make([]RankedTeam, 0, challenger.Rank-defender.Rank-1)
	for _, t := range pool {
		if t.Rank > defender.Rank && t.Rank < challenger.Rank {
			between = append(between, t)
		}
	}
	sort.Slice(between, func(i, j int) bool { return between[i].Rank > between[j].Rank })

	changes := make([]RankChange, 0, len(between)+2)
	for _, t := range between {
		changes = append(changes, RankChange{TeamID: t.ID, OldRank: t.Rank, NewRank: t.Rank + 1})
	}
	changes = append(changes,
		RankChange{TeamID: defender.ID, OldRank: defender.Rank, NewRank: defender.Rank + 1},
		RankChange{TeamID: challenger.ID, OldRank: challenger.Rank, NewRank: defender.Rank},
	)
	return changes, nil
}

// RescindPenalty swaps the challenger with the team directly below it. A
// challenger already at the bottom of its pool keeps its rank.
func RescindPenalty(pool []RankedTeam, challengerID uuid.UUID) ([]RankChange, error) {
	challenger, ok := findRanked(pool, challengerID)
	if !ok {
		return nil, apperrors.NotFound("challenger team %s not in pool", challengerID)
	}
	for _, t := range pool {
		if t.Rank == challenger.Rank+1 {
			return []RankChange{
				{TeamID: challenger.ID, OldRank: challenger.Rank, NewRank: challenger.Rank + 1},
				{TeamID: t.ID, OldRank: t.Rank, NewRank: challenger.Rank},
			}, nil
		}
	}
	return nil, nil
}

// ApplyRankChanges returns a copy of pool with changes applied.
func ApplyRankChanges(pool []RankedTeam, changes []RankChange) []RankedTeam {
	next := make([]RankedTeam, len(pool))
	copy(next, pool)
	byID := make(map[uuid.UUID]int, len(changes))
	for _, c := range changes {
		byID[c.TeamID] = c.NewRank
	}
	for i := range next {
		if rank, ok := byID[next[i].ID]; ok {
			next[i].Rank = rank
		}
	}
	return next
}

// ValidateContiguousRanks checks that the pool's ranks are exactly 1..N with
// no duplicates.
func ValidateContiguousRanks(pool []RankedTeam) error {
	seen := make([]bool, len(pool)+1)
	for _, t := range pool {
		if t.Rank < 1 || t.Rank > len(pool) {
			return apperrors.Conflict("rank %d out of range for pool of %d teams", t.Rank, len(pool))
		}
		if seen[t.Rank] {
			return apperrors.Conflict("duplicate rank %d in pool", t.Rank)
		}
		seen[t.Rank] = true
	}
	return nil
}
