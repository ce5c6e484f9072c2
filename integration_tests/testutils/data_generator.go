//go:build integration

package testutils

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/Black-And-White-Club/club-ladder/app"
	directorydomain "github.com/Black-And-White-Club/club-ladder/app/modules/directory/domain"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestDataGenerator creates players and teams for integration tests.
type TestDataGenerator struct {
	faker *gofakeit.Faker
	seed  uint64
}

// NewTestDataGenerator creates a generator; an optional seed makes runs
// reproducible.
func NewTestDataGenerator(seed ...uint64) *TestDataGenerator {
	s := uint64(time.Now().UnixNano())
	if len(seed) > 0 {
		s = seed[0]
	}
	return &TestDataGenerator{faker: gofakeit.New(s), seed: s}
}

// Player returns a profile with a rating on the 1.0-7.0 scale.
func (g *TestDataGenerator) Player() directorydomain.Player {
	avatar := g.faker.URL()
	return directorydomain.Player{
		ID:        uuid.New(),
		Name:      g.faker.Name(),
		Rating:    math.Round(g.faker.Float64Range(1, 7)*10) / 10,
		AvatarURL: &avatar,
	}
}

// TeamName returns a plausible doubles team name.
func (g *TestDataGenerator) TeamName() string {
	return g.faker.Adjective() + " " + g.faker.Animal()
}

// SeedPlayers registers n generated players with rating in the directory.
// A zero rating keeps the generated one.
func (g *TestDataGenerator) SeedPlayers(t *testing.T, a *app.App, n int, rating float64) []directorydomain.Player {
	t.Helper()
	players := make([]directorydomain.Player, n)
	for i := range players {
		p := g.Player()
		if rating != 0 {
			p.Rating = rating
		}
		require.NoError(t, a.DirectoryModule.Service.RegisterPlayer(context.Background(), p))
		players[i] = p
	}
	return players
}
