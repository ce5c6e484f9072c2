package matchservice

import (
	"context"
	"sort"
	"time"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	directorydomain "github.com/Black-And-White-Club/club-ladder/app/modules/directory/domain"
	matchdomain "github.com/Black-And-White-Club/club-ladder/app/modules/match/domain"
	matchdb "github.com/Black-And-White-Club/club-ladder/app/modules/match/infrastructure/repositories"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Match Repo
// ------------------------

// FakeMatchRepo is an in-memory Repository. Func fields override single
// methods for failure injection.
type FakeMatchRepo struct {
	trace []string

	matches      map[uuid.UUID]*matchdb.Match
	participants map[uuid.UUID][]matchdb.MatchParticipant
	ratings      map[uuid.UUID]matchdb.PlayerRating

	RecordResponseFunc func(ctx context.Context, db bun.IDB, matchID, playerID uuid.UUID, confirmed bool) error
	UpsertRatingsFunc  func(ctx context.Context, db bun.IDB, ratings []matchdb.PlayerRating) error
	LockMatchFunc      func(ctx context.Context, db bun.IDB, matchID uuid.UUID) (*matchdb.Match, error)
}

func NewFakeMatchRepo() *FakeMatchRepo {
	return &FakeMatchRepo{
		trace:        []string{},
		matches:      map[uuid.UUID]*matchdb.Match{},
		participants: map[uuid.UUID][]matchdb.MatchParticipant{},
		ratings:      map[uuid.UUID]matchdb.PlayerRating{},
	}
}

func (f *FakeMatchRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeMatchRepo) InsertMatch(ctx context.Context, db bun.IDB, match *matchdb.Match) error {
	f.record("InsertMatch")
	cp := *match
	f.matches[match.ID] = &cp
	return nil
}

func (f *FakeMatchRepo) GetMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) (*matchdb.Match, error) {
	f.record("GetMatch")
	m, ok := f.matches[matchID]
	if !ok {
		return nil, matchdb.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *FakeMatchRepo) LockMatch(ctx context.Context, db bun.IDB, matchID uuid.UUID) (*matchdb.Match, error) {
	f.record("LockMatch")
	if f.LockMatchFunc != nil {
		return f.LockMatchFunc(ctx, db, matchID)
	}
	m, ok := f.matches[matchID]
	if !ok {
		return nil, matchdb.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *FakeMatchRepo) UpdateMatch(ctx context.Context, db bun.IDB, match *matchdb.Match, expected matchdb.State) error {
	f.record("UpdateMatch")
	stored, ok := f.matches[match.ID]
	if !ok || stored.Status != expected.Status || !sameResult(stored.ResultStatus, expected.Result) {
		return matchdb.ErrStatusConflict
	}
	cp := *match
	f.matches[match.ID] = &cp
	return nil
}

func sameResult(a, b *matchdomain.ResultStatus) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (f *FakeMatchRepo) ListDueForAutoVerify(ctx context.Context, db bun.IDB, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	f.record("ListDueForAutoVerify")
	var due []*matchdb.Match
	for _, m := range f.matches {
		if m.ResultStatus != nil && *m.ResultStatus == matchdomain.ResultPendingVerification &&
			m.ScoreSubmittedAt != nil && !m.ScoreSubmittedAt.After(cutoff) {
			due = append(due, m)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScoreSubmittedAt.Before(*due[j].ScoreSubmittedAt) })
	var ids []uuid.UUID
	for _, m := range due {
		if len(ids) == limit {
			break
		}
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (f *FakeMatchRepo) ListParticipants(ctx context.Context, db bun.IDB, matchID uuid.UUID) ([]matchdb.MatchParticipant, error) {
	f.record("ListParticipants")
	out := make([]matchdb.MatchParticipant, len(f.participants[matchID]))
	copy(out, f.participants[matchID])
	return out, nil
}

func (f *FakeMatchRepo) InsertParticipant(ctx context.Context, db bun.IDB, participant *matchdb.MatchParticipant) error {
	f.record("InsertParticipant")
	f.participants[participant.MatchID] = append(f.participants[participant.MatchID], *participant)
	return nil
}

func (f *FakeMatchRepo) find(matchID, playerID uuid.UUID) *matchdb.MatchParticipant {
	for i := range f.participants[matchID] {
		if f.participants[matchID][i].PlayerID == playerID {
			return &f.participants[matchID][i]
		}
	}
	return nil
}

func (f *FakeMatchRepo) AcceptParticipant(ctx context.Context, db bun.IDB, matchID, playerID uuid.UUID) error {
	f.record("AcceptParticipant")
	p := f.find(matchID, playerID)
	if p == nil || p.Status != matchdomain.ParticipantPending {
		return matchdb.ErrStatusConflict
	}
	p.Status = matchdomain.ParticipantAccepted
	return nil
}

func (f *FakeMatchRepo) AssignTeams(ctx context.Context, db bun.IDB, matchID uuid.UUID, teams map[uuid.UUID]matchdomain.Team) error {
	f.record("AssignTeams")
	for i := range f.participants[matchID] {
		p := &f.participants[matchID][i]
		p.Team = nil
		p.ResultConfirmed = nil
		if team, ok := teams[p.PlayerID]; ok {
			p.Team = &team
		}
	}
	return nil
}

func (f *FakeMatchRepo) RecordResponse(ctx context.Context, db bun.IDB, matchID, playerID uuid.UUID, confirmed bool) error {
	f.record("RecordResponse")
	if f.RecordResponseFunc != nil {
		return f.RecordResponseFunc(ctx, db, matchID, playerID, confirmed)
	}
	p := f.find(matchID, playerID)
	if p == nil || p.Status != matchdomain.ParticipantAccepted || p.ResultConfirmed != nil {
		return matchdb.ErrStatusConflict
	}
	p.ResultConfirmed = &confirmed
	return nil
}

func (f *FakeMatchRepo) GetRatings(ctx context.Context, db bun.IDB, playerIDs []uuid.UUID) ([]matchdb.PlayerRating, error) {
	f.record("GetRatings")
	var out []matchdb.PlayerRating
	for _, id := range playerIDs {
		if r, ok := f.ratings[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *FakeMatchRepo) LockRatings(ctx context.Context, db bun.IDB, playerIDs []uuid.UUID) ([]matchdb.PlayerRating, error) {
	f.record("LockRatings")
	var out []matchdb.PlayerRating
	for _, id := range playerIDs {
		if r, ok := f.ratings[id]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID.String() < out[j].PlayerID.String() })
	return out, nil
}

func (f *FakeMatchRepo) SeedRatings(ctx context.Context, db bun.IDB, ratings []matchdb.PlayerRating) error {
	f.record("SeedRatings")
	for _, r := range ratings {
		if _, ok := f.ratings[r.PlayerID]; !ok {
			f.ratings[r.PlayerID] = r
		}
	}
	return nil
}

func (f *FakeMatchRepo) UpsertRatings(ctx context.Context, db bun.IDB, ratings []matchdb.PlayerRating) error {
	f.record("UpsertRatings")
	if f.UpsertRatingsFunc != nil {
		return f.UpsertRatingsFunc(ctx, db, ratings)
	}
	for _, r := range ratings {
		f.ratings[r.PlayerID] = r
	}
	return nil
}

// --- Accessors for assertions ---

func (f *FakeMatchRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeMatchRepo) Match(id uuid.UUID) matchdb.Match {
	return *f.matches[id]
}

func (f *FakeMatchRepo) Participant(matchID, playerID uuid.UUID) matchdb.MatchParticipant {
	return *f.find(matchID, playerID)
}

func (f *FakeMatchRepo) Rating(playerID uuid.UUID) (matchdb.PlayerRating, bool) {
	r, ok := f.ratings[playerID]
	return r, ok
}

// Ensure the fake actually satisfies the interface
var _ matchdb.Repository = (*FakeMatchRepo)(nil)

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
