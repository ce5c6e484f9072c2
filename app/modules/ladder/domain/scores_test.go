package ladderdomain

import (
	"testing"

	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateKGScores(t *testing.T) {
	tests := []struct {
		name    string
		sets    []SetScore
		wantErr string
	}{
		{
			name: "straight sets",
			sets: []SetScore{{6, 3}, {6, 4}},
		},
		{
			name: "defender straight sets",
			sets: []SetScore{{2, 6}, {5, 6}},
		},
		{
			name: "tiebreak at five all settled six five",
			sets: []SetScore{{6, 5}, {6, 0}},
		},
		{
			name:    "split sets without decider",
			sets:    []SetScore{{6, 4}, {3, 6}},
			wantErr: "sets are split 1-1; a third set is required",
		},
		{
			name:    "decider won by one point",
			sets:    []SetScore{{6, 4}, {3, 6}, {10, 9}},
			wantErr: "set 3: winner must win by at least 2 points",
		},
		{
			name: "decider ten eight is two clear",
			sets: []SetScore{{6, 4}, {3, 6}, {10, 8}},
		},
		{
			name:    "extended decider one clear",
			sets:    []SetScore{{6, 4}, {3, 6}, {12, 11}},
			wantErr: "set 3: winner must win by at least 2 points",
		},
		{
			name: "decider eleven nine",
			sets: []SetScore{{6, 4}, {3, 6}, {11, 9}},
		},
		{
			name:    "one set",
			sets:    []SetScore{{6, 0}},
			wantErr: "must have 2 or 3 sets",
		},
		{
			name:    "four sets",
			sets:    []SetScore{{6, 0}, {0, 6}, {10, 5}, {6, 0}},
			wantErr: "must have 2 or 3 sets",
		},
		{
			name:    "winner seven games",
			sets:    []SetScore{{7, 5}, {6, 0}},
			wantErr: "set 1: winner must have exactly 6 games",
		},
		{
			name:    "six all in second set",
			sets:    []SetScore{{6, 3}, {6, 6}},
			wantErr: "set 2: loser must have 0-5 games; tiebreak at 5-5 → 6-5",
		},
		{
			name:    "seven six is not a legal set",
			sets:    []SetScore{{7, 6}, {6, 0}},
			wantErr: "set 1: winner must have exactly 6 games",
		},
		{
			name:    "five all in first set",
			sets:    []SetScore{{5, 5}, {6, 0}},
			wantErr: "set 1: winner must have exactly 6 games",
		},
		{
			name:    "third set after straight sets",
			sets:    []SetScore{{6, 1}, {6, 2}, {10, 3}},
			wantErr: "set 3 only played if sets are split",
		},
		{
			name:    "decider short of ten",
			sets:    []SetScore{{6, 4}, {3, 6}, {9, 4}},
			wantErr: "set 3: winner must reach at least 10 points",
		},
		{
			name:    "tied decider",
			sets:    []SetScore{{6, 4}, {3, 6}, {10, 10}},
			wantErr: "set 3: winner must win by at least 2 points",
		},
		{
			name:    "tied decider short of ten",
			sets:    []SetScore{{6, 4}, {3, 6}, {9, 9}},
			wantErr: "set 3: winner must reach at least 10 points",
		},
		{
			name:    "negative games",
			sets:    []SetScore{{6, -1}, {6, 0}},
			wantErr: "set 1: game counts must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKGScores(tt.sets)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
			assert.True(t, apperrors.Is(err, apperrors.KindValidation))
		})
	}
}

func TestMatchWinner(t *testing.T) {
	assert.Equal(t, SideChallenger, MatchWinner([]SetScore{{6, 3}, {6, 4}}))
	assert.Equal(t, SideDefender, MatchWinner([]SetScore{{6, 4}, {3, 6}, {8, 10}}))
	assert.Equal(t, SideNone, MatchWinner([]SetScore{{6, 4}, {3, 6}}))
}

func TestForfeitScores(t *testing.T) {
	challengerWin := ForfeitScores(SideChallenger)
	require.NoError(t, ValidateKGScores(challengerWin))
	assert.Equal(t, SideChallenger, MatchWinner(challengerWin))

	defenderWin := ForfeitScores(SideDefender)
	require.NoError(t, ValidateKGScores(defenderWin))
	assert.Equal(t, []SetScore{{0, 6}, {0, 6}}, defenderWin)
}
