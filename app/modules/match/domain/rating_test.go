package matchdomain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func players(skills ...float64) []PlayerRating {
	out := make([]PlayerRating, len(skills))
	for i, s := range skills {
		out[i] = PlayerRating{PlayerID: uuid.New(), Skill: s, Reliability: 50}
	}
	return out
}

func skillsByTeam(updates []RatingUpdate) map[Team][]float64 {
	out := map[Team][]float64{}
	for _, u := range updates {
		out[u.Team] = append(out[u.Team], u.NewSkill)
	}
	return out
}

func TestComputeRatings(t *testing.T) {
	tests := []struct {
		name   string
		a, b   []PlayerRating
		winner Team
		wantA  []float64
		wantB  []float64
	}{
		{
			// expected 0.5, +30 Elo = +0.15; 2.65 rounds to 2.7.
			name:   "even teams",
			a:      players(2.5, 2.5),
			b:      players(2.5, 2.5),
			winner: TeamA,
			wantA:  []float64{2.7, 2.7},
			wantB:  []float64{2.4, 2.4},
		},
		{
			// Favourite wins: expectedA ~0.76, delta ~+0.072.
			name:   "favourite wins",
			a:      players(4.0, 4.0),
			b:      players(3.0, 3.0),
			winner: TeamA,
			wantA:  []float64{4.1, 4.1},
			wantB:  []float64{2.9, 2.9},
		},
		{
			// Underdog B wins: 60*0.76/200*1.3 ~ 0.296.
			name:   "upset bonus",
			a:      players(4.0, 4.0),
			b:      players(3.0, 3.0),
			winner: TeamB,
			wantA:  []float64{3.7, 3.7},
			wantB:  []float64{3.3, 3.3},
		},
		{
			// Upset delta ~0.39 is clamped to 0.3 per player.
			name:   "upset clamps to 0.3",
			a:      players(7.0, 6.9),
			b:      players(1.0, 1.1),
			winner: TeamB,
			wantA:  []float64{6.7, 6.6},
			wantB:  []float64{1.3, 1.4},
		},
		{
			name:   "stays inside the scale",
			a:      players(7.0, 7.0),
			b:      players(1.0, 1.0),
			winner: TeamA,
			wantA:  []float64{7.0, 7.0},
			wantB:  []float64{1.0, 1.0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates, err := ComputeRatings(tt.a, tt.b, tt.winner)
			require.NoError(t, err)
			require.Len(t, updates, 4)
			got := skillsByTeam(updates)
			assert.InDeltaSlice(t, tt.wantA, got[TeamA], 1e-9)
			assert.InDeltaSlice(t, tt.wantB, got[TeamB], 1e-9)
		})
	}
}

func TestComputeRatings_Stats(t *testing.T) {
	a := players(2.5, 2.5)
	b := players(2.5, 2.5)
	a[0].Played, a[0].Won, a[0].Reliability = 10, 6, 98
	b[1].Reliability = 100

	updates, err := ComputeRatings(a, b, TeamA)
	require.NoError(t, err)

	byPlayer := map[uuid.UUID]RatingUpdate{}
	for _, u := range updates {
		byPlayer[u.PlayerID] = u
	}

	first := byPlayer[a[0].PlayerID]
	assert.True(t, first.Won)
	assert.Equal(t, 11, first.Played)
	assert.Equal(t, 7, first.MatchesWon)
	assert.Equal(t, 100, first.Reliability)
	assert.Equal(t, 2.5, first.OldSkill)

	loser := byPlayer[b[0].PlayerID]
	assert.False(t, loser.Won)
	assert.Equal(t, 1, loser.Played)
	assert.Equal(t, 0, loser.MatchesWon)
	assert.Equal(t, 55, loser.Reliability)

	assert.Equal(t, 100, byPlayer[b[1].PlayerID].Reliability)
}

func TestComputeRatings_Errors(t *testing.T) {
	_, err := ComputeRatings(players(2.5), players(2.5, 2.5), TeamA)
	assert.Error(t, err)
	_, err = ComputeRatings(players(2.5, 2.5), players(2.5, 2.5), TeamNone)
	assert.Error(t, err)
}
