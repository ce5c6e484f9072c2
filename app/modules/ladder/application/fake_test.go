package ladderservice

import (
	"context"
	"sort"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	directorydomain "github.com/Black-And-White-Club/club-ladder/app/modules/directory/domain"
	ladderdomain "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/domain"
	ladderdb "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Ladder Repo
// ------------------------

// FakeLadderRepo is an in-memory Repository. Func fields override single
// methods for failure injection.
type FakeLadderRepo struct {
	trace []string

	teams      map[uuid.UUID]*ladderdb.Team
	challenges map[uuid.UUID]*ladderdb.Challenge
	history    []ladderdb.ChallengeHistoryEntry

	SetTeamRanksFunc     func(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey, changes []ladderdomain.RankChange) error
	UpdateTeamStatusFunc func(ctx context.Context, db bun.IDB, teamID uuid.UUID, from, to ladderdomain.TeamStatus) error
	GetPoolTeamsFunc     func(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey) ([]ladderdb.Team, error)
}

func NewFakeLadderRepo() *FakeLadderRepo {
	return &FakeLadderRepo{
		trace:      []string{},
		teams:      map[uuid.UUID]*ladderdb.Team{},
		challenges: map[uuid.UUID]*ladderdb.Challenge{},
	}
}

func (f *FakeLadderRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeLadderRepo) AcquirePoolLock(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey) error {
	f.record("AcquirePoolLock")
	return nil
}

func (f *FakeLadderRepo) GetTeam(ctx context.Context, db bun.IDB, teamID uuid.UUID) (*ladderdb.Team, error) {
	f.record("GetTeam")
	t, ok := f.teams[teamID]
	if !ok {
		return nil, ladderdb.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *FakeLadderRepo) GetPoolTeams(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey) ([]ladderdb.Team, error) {
	f.record("GetPoolTeams")
	if f.GetPoolTeamsFunc != nil {
		return f.GetPoolTeamsFunc(ctx, db, pool)
	}
	return f.poolTeams(pool), nil
}

func (f *FakeLadderRepo) poolTeams(pool ladderdomain.PoolKey) []ladderdb.Team {
	var out []ladderdb.Team
	for _, t := range f.teams {
		if t.Pool() == pool {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

func (f *FakeLadderRepo) FindPlayerTeamInPool(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey, playerID uuid.UUID) (*ladderdb.Team, error) {
	f.record("FindPlayerTeamInPool")
	for _, t := range f.poolTeams(pool) {
		if t.HasPlayer(playerID) {
			cp := t
			return &cp, nil
		}
	}
	return nil, ladderdb.ErrNotFound
}

func (f *FakeLadderRepo) InsertTeam(ctx context.Context, db bun.IDB, team *ladderdb.Team) error {
	f.record("InsertTeam")
	cp := *team
	f.teams[team.ID] = &cp
	return nil
}

func (f *FakeLadderRepo) UpdateTeamStatus(ctx context.Context, db bun.IDB, teamID uuid.UUID, from, to ladderdomain.TeamStatus) error {
	f.record("UpdateTeamStatus")
	if f.UpdateTeamStatusFunc != nil {
		return f.UpdateTeamStatusFunc(ctx, db, teamID, from, to)
	}
	t, ok := f.teams[teamID]
	if !ok || t.Status != from {
		return ladderdb.ErrStatusConflict
	}
	t.Status = to
	return nil
}

func (f *FakeLadderRepo) SetTeamRanks(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey, changes []ladderdomain.RankChange) error {
	f.record("SetTeamRanks")
	if f.SetTeamRanksFunc != nil {
		return f.SetTeamRanksFunc(ctx, db, pool, changes)
	}
	for _, c := range changes {
		t, ok := f.teams[c.TeamID]
		if !ok || t.Rank != c.OldRank || t.Pool() != pool {
			return ladderdb.ErrStatusConflict
		}
		t.Rank = c.NewRank
	}
	return nil
}

func (f *FakeLadderRepo) RecordTeamResult(ctx context.Context, db bun.IDB, teamID uuid.UUID, won bool, points int) error {
	f.record("RecordTeamResult")
	t, ok := f.teams[teamID]
	if !ok {
		return ladderdb.ErrStatusConflict
	}
	t.MatchesPlayed++
	if won {
		t.MatchesWon++
	}
	t.Points += points
	return nil
}

func (f *FakeLadderRepo) InsertChallenge(ctx context.Context, db bun.IDB, challenge *ladderdb.Challenge) error {
	f.record("InsertChallenge")
	cp := *challenge
	f.challenges[challenge.ID] = &cp
	return nil
}

func (f *FakeLadderRepo) GetChallenge(ctx context.Context, db bun.IDB, challengeID uuid.UUID) (*ladderdb.Challenge, error) {
	f.record("GetChallenge")
	c, ok := f.challenges[challengeID]
	if !ok {
		return nil, ladderdb.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *FakeLadderRepo) HasOpenChallenge(ctx context.Context, db bun.IDB, teamID uuid.UUID) (bool, error) {
	f.record("HasOpenChallenge")
	for _, c := range f.challenges {
		if (c.ChallengerTeamID == teamID || c.DefenderTeamID == teamID) && c.Status.IsOpen() {
			return true, nil
		}
	}
	return false, nil
}

func (f *FakeLadderRepo) UpdateChallenge(ctx context.Context, db bun.IDB, challenge *ladderdb.Challenge, expected ladderdomain.ChallengeStatus) error {
	f.record("UpdateChallenge")
	stored, ok := f.challenges[challenge.ID]
	if !ok || stored.Status != expected {
		return ladderdb.ErrStatusConflict
	}
	cp := *challenge
	f.challenges[challenge.ID] = &cp
	return nil
}

func (f *FakeLadderRepo) InsertHistory(ctx context.Context, db bun.IDB, entry *ladderdb.ChallengeHistoryEntry) error {
	f.record("InsertHistory")
	f.history = append(f.history, *entry)
	return nil
}

func (f *FakeLadderRepo) ListTeamHistory(ctx context.Context, db bun.IDB, teamID uuid.UUID, limit int) ([]ladderdb.ChallengeHistoryEntry, error) {
	f.record("ListTeamHistory")
	var out []ladderdb.ChallengeHistoryEntry
	for i := len(f.history) - 1; i >= 0; i-- {
		e := f.history[i]
		if e.ChallengerTeamID == teamID || e.DefenderTeamID == teamID {
			out = append(out, e)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// --- Accessors for assertions ---

func (f *FakeLadderRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeLadderRepo) Team(id uuid.UUID) ladderdb.Team {
	return *f.teams[id]
}

func (f *FakeLadderRepo) Challenge(id uuid.UUID) ladderdb.Challenge {
	return *f.challenges[id]
}

// Ensure the fake actually satisfies the interface
var _ ladderdb.Repository = (*FakeLadderRepo)(nil)

// ------------------------
// Fake collaborators
// ------------------------

type FakeDirectory struct {
	players map[uuid.UUID]directorydomain.Player
	err     error
}

func (f *FakeDirectory) GetPlayer(ctx context.Context, id uuid.UUID) (*directorydomain.Player, error) {
	if p, ok := f.players[id]; ok {
		return &p, nil
	}
	return nil, directorydomain.ErrPlayerNotFound
}

func (f *FakeDirectory) GetPlayers(ctx context.Context, ids []uuid.UUID) ([]directorydomain.Player, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []directorydomain.Player
	for _, id := range ids {
		if p, ok := f.players[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type FakeSink struct {
	events []activity.Event
}

func (f *FakeSink) Publish(ctx context.Context, e activity.Event) error {
	f.events = append(f.events, e)
	return nil
}

func (f *FakeSink) Types() []activity.EventType {
	out := make([]activity.EventType, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}
