package ladderdomain

import (
	"testing"

	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPool(n int) []RankedTeam {
	pool := make([]RankedTeam, n)
	for i := range pool {
		pool[i] = RankedTeam{ID: uuid.New(), Rank: i + 1}
	}
	return pool
}

func rankOf(t *testing.T, pool []RankedTeam, id uuid.UUID) int {
	t.Helper()
	team, ok := findRanked(pool, id)
	require.True(t, ok)
	return team.Rank
}

func TestRotateRanks(t *testing.T) {
	pool := newPool(6)
	defender := pool[1]   // rank 2
	third := pool[2]      // rank 3
	fourth := pool[3]     // rank 4
	challenger := pool[4] // rank 5

	changes, err := RotateRanks(pool, challenger.ID, defender.ID)
	require.NoError(t, err)

	want := []RankChange{
		{TeamID: fourth.ID, OldRank: 4, NewRank: 5},
		{TeamID: third.ID, OldRank: 3, NewRank: 4},
		{TeamID: defender.ID, OldRank: 2, NewRank: 3},
		{TeamID: challenger.ID, OldRank: 5, NewRank: 2},
	}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Fatalf("RotateRanks() mismatch (-want +got):\n%s", diff)
	}

	next := ApplyRankChanges(pool, changes)
	require.NoError(t, ValidateContiguousRanks(next))
	assert.Equal(t, 1, rankOf(t, next, pool[0].ID))
	assert.Equal(t, 2, rankOf(t, next, challenger.ID))
	assert.Equal(t, 3, rankOf(t, next, defender.ID))
	assert.Equal(t, 4, rankOf(t, next, third.ID))
	assert.Equal(t, 5, rankOf(t, next, fourth.ID))
	assert.Equal(t, 6, rankOf(t, next, pool[5].ID))
}

func TestRotateRanksAdjacent(t *testing.T) {
	pool := newPool(3)
	changes, err := RotateRanks(pool, pool[2].ID, pool[1].ID)
	require.NoError(t, err)
	assert.Len(t, changes, 2)

	next := ApplyRankChanges(pool, changes)
	require.NoError(t, ValidateContiguousRanks(next))
	assert.Equal(t, 2, rankOf(t, next, pool[2].ID))
	assert.Equal(t, 3, rankOf(t, next, pool[1].ID))
}

func TestRotateRanksRejectsInvertedRanks(t *testing.T) {
	pool := newPool(4)
	_, err := RotateRanks(pool, pool[0].ID, pool[2].ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))

	_, err = RotateRanks(pool, uuid.New(), pool[2].ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestRescindPenalty(t *testing.T) {
	pool := newPool(10)
	challenger := pool[5] // rank 6
	below := pool[6]      // rank 7

	changes, err := RescindPenalty(pool, challenger.ID)
	require.NoError(t, err)

	next := ApplyRankChanges(pool, changes)
	require.NoError(t, ValidateContiguousRanks(next))
	assert.Equal(t, 7, rankOf(t, next, challenger.ID))
	assert.Equal(t, 6, rankOf(t, next, below.ID))
	for _, team := range pool {
		if team.ID == challenger.ID || team.ID == below.ID {
			continue
		}
		assert.Equal(t, team.Rank, rankOf(t, next, team.ID))
	}
}

func TestRescindPenaltyAtBottom(t *testing.T) {
	pool := newPool(4)
	changes, err := RescindPenalty(pool, pool[3].ID)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestValidateContiguousRanks(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	tests := []struct {
		name    string
		pool    []RankedTeam
		wantErr bool
	}{
		{name: "empty pool", pool: nil},
		{name: "contiguous unordered", pool: []RankedTeam{{a, 3}, {b, 1}, {c, 2}}},
		{name: "duplicate", pool: []RankedTeam{{a, 1}, {b, 1}, {c, 2}}, wantErr: true},
		{name: "gap", pool: []RankedTeam{{a, 1}, {b, 2}, {c, 4}}, wantErr: true},
		{name: "zero rank", pool: []RankedTeam{{a, 0}, {b, 1}, {c, 2}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContiguousRanks(tt.pool)
			if tt.wantErr {
				assert.True(t, apperrors.Is(err, apperrors.KindConflict))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestChallengeTransitions(t *testing.T) {
	assert.True(t, ChallengeStatusPending.CanTransitionTo(ChallengeStatusAccepted))
	assert.True(t, ChallengeStatusAccepted.CanTransitionTo(ChallengeStatusCompleted))
	assert.False(t, ChallengeStatusPending.CanTransitionTo(ChallengeStatusPendingVerification))
	assert.False(t, ChallengeStatusCompleted.CanTransitionTo(ChallengeStatusCompleted))
	assert.False(t, ChallengeStatusDisputed.IsOpen())
	assert.True(t, ChallengeStatusPendingVerification.IsOpen())
}

func TestCheckRankGap(t *testing.T) {
	assert.NoError(t, CheckRankGap(5, 2))
	assert.NoError(t, CheckRankGap(3, 2))
	assert.Error(t, CheckRankGap(6, 2))
	assert.Error(t, CheckRankGap(2, 2))
	assert.Error(t, CheckRankGap(1, 3))
}
