package matchservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	matchdomain "github.com/Black-And-White-Club/club-ladder/app/modules/match/domain"
	matchdb "github.com/Black-And-White-Club/club-ladder/app/modules/match/infrastructure/repositories"
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/Black-And-White-Club/club-ladder/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateMatch opens a match hosted by the caller, who joins as its first
// accepted participant.
func (s *MatchService) CreateMatch(ctx context.Context, callerID uuid.UUID, req CreateMatchRequest) (*MatchView, error) {
	result, err := withTelemetry(s, ctx, "CreateMatch", callerID.String(), func(ctx context.Context) (results.OperationResult[*MatchView, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*MatchView, error], error) {
			return s.createMatchLogic(ctx, db, callerID, req)
		})
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, matchEvent(activity.MatchCreated, &callerID, view, nil))
	return view, nil
}

func (s *MatchService) createMatchLogic(ctx context.Context, db bun.IDB, callerID uuid.UUID, req CreateMatchRequest) (results.OperationResult[*MatchView, error], error) {
	maxPlayers := req.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = defaultMaxPlayers
	}
	if maxPlayers < 2*matchdomain.PlayersPerTeam || maxPlayers > maxMaxPlayers {
		return failure[*MatchView](apperrors.Validation("max_players must be between %d and %d", 2*matchdomain.PlayersPerTeam, maxMaxPlayers))
	}
	skillMin, skillMax := req.SkillMin, req.SkillMax
	if skillMin == 0 && skillMax == 0 {
		skillMin, skillMax = matchdomain.MinSkill, matchdomain.MaxSkill
	}
	if err := matchdomain.CheckSkillRange(skillMin, skillMax); err != nil {
		return failure[*MatchView](err)
	}

	now := s.clock()
	match := &matchdb.Match{
		ID:             uuid.New(),
		CreatorID:      callerID,
		MaxPlayers:     maxPlayers,
		CurrentPlayers: 1,
		SkillMin:       skillMin,
		SkillMax:       skillMax,
		Venue:          trimmed(req.Venue),
		ScheduledAt:    req.ScheduledAt,
		Status:         matchdomain.MatchStatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.InsertMatch(ctx, db, match); err != nil {
		return infraError[*MatchView](err)
	}
	host := matchdb.MatchParticipant{
		MatchID:  match.ID,
		PlayerID: callerID,
		Status:   matchdomain.ParticipantAccepted,
		JoinedAt: now,
	}
	if err := s.repo.InsertParticipant(ctx, db, &host); err != nil {
		return infraError[*MatchView](err)
	}
	return success(&MatchView{Match: match, Participants: []matchdb.MatchParticipant{host}})
}

// GetMatch returns a match with its participants.
func (s *MatchService) GetMatch(ctx context.Context, matchID uuid.UUID) (*MatchView, error) {
	result, err := withTelemetry(s, ctx, "GetMatch", matchID.String(), func(ctx context.Context) (results.OperationResult[*MatchView, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*MatchView, error], error) {
			match, err := s.repo.GetMatch(ctx, db, matchID)
			if err != nil {
				if errors.Is(err, matchdb.ErrNotFound) {
					return failure[*MatchView](apperrors.NotFound("match %s not found", matchID))
				}
				return infraError[*MatchView](err)
			}
			participants, err := s.repo.ListParticipants(ctx, db, matchID)
			if err != nil {
				return infraError[*MatchView](err)
			}
			return success(&MatchView{Match: match, Participants: participants})
		})
	})
	return unwrap(result, err)
}

// JoinMatch asks to join an open match. The request stays pending until the
// host accepts it. The caller's skill level must lie in the match's band.
func (s *MatchService) JoinMatch(ctx context.Context, callerID, matchID uuid.UUID) (*MatchView, error) {
	result, err := withTelemetry(s, ctx, "JoinMatch", matchID.String(), func(ctx context.Context) (results.OperationResult[*MatchView, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*MatchView, error], error) {
			return s.joinMatchLogic(ctx, db, callerID, matchID)
		})
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, matchEvent(activity.MatchJoinRequested, &callerID, view, nil))
	return view, nil
}

func (s *MatchService) joinMatchLogic(ctx context.Context, db bun.IDB, callerID, matchID uuid.UUID) (results.OperationResult[*MatchView, error], error) {
	st, err := s.loadMatch(ctx, db, matchID, callerID)
	if err != nil {
		return loadFailure[*MatchView](err)
	}
	if st.match.Status != matchdomain.MatchStatusOpen {
		return failure[*MatchView](apperrors.InvalidState(string(st.match.Status), "match is not open"))
	}
	if st.caller != nil {
		return failure[*MatchView](apperrors.Conflict("you are already %s in this match", st.caller.Status))
	}

	ratings, err := s.ratingsFor(ctx, db, []uuid.UUID{callerID})
	if err != nil {
		return infraError[*MatchView](err)
	}
	if skill := ratings[callerID].Skill; skill < st.match.SkillMin || skill > st.match.SkillMax {
		return failure[*MatchView](apperrors.Validation("your skill level %.1f is outside this match's range %.1f-%.1f",
			skill, st.match.SkillMin, st.match.SkillMax))
	}

	participant := matchdb.MatchParticipant{
		MatchID:  matchID,
		PlayerID: callerID,
		Status:   matchdomain.ParticipantPending,
		JoinedAt: s.clock(),
	}
	if err := s.repo.InsertParticipant(ctx, db, &participant); err != nil {
		return infraError[*MatchView](err)
	}
	st.participants = append(st.participants, participant)
	return success(st.view())
}

// AcceptParticipant admits a pending player. Host only. The match becomes
// full when the last seat is taken.
func (s *MatchService) AcceptParticipant(ctx context.Context, callerID, matchID, playerID uuid.UUID) (*MatchView, error) {
	result, err := withTelemetry(s, ctx, "AcceptParticipant", matchID.String(), func(ctx context.Context) (results.OperationResult[*MatchView, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*MatchView, error], error) {
			return s.acceptParticipantLogic(ctx, db, callerID, matchID, playerID)
		})
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, matchEvent(activity.MatchPlayerAccepted, &callerID, view, map[string]any{"player_id": playerID}))
	return view, nil
}

func (s *MatchService) acceptParticipantLogic(ctx context.Context, db bun.IDB, callerID, matchID, playerID uuid.UUID) (results.OperationResult[*MatchView, error], error) {
	st, err := s.loadMatch(ctx, db, matchID, callerID)
	if err != nil {
		return loadFailure[*MatchView](err)
	}
	if !st.isHost(callerID) {
		return failure[*MatchView](apperrors.Authorization("only the host can accept players"))
	}
	if st.match.Status != matchdomain.MatchStatusOpen || st.match.CurrentPlayers >= st.match.MaxPlayers {
		return failure[*MatchView](apperrors.InvalidState(string(st.match.Status), "match is not open"))
	}
	target := st.participant(playerID)
	if target == nil {
		return failure[*MatchView](apperrors.NotFound("player %s has not asked to join", playerID))
	}
	if target.Status != matchdomain.ParticipantPending {
		return failure[*MatchView](apperrors.InvalidState(string(target.Status), "player is not pending"))
	}

	if err := s.repo.AcceptParticipant(ctx, db, matchID, playerID); err != nil {
		return infraError[*MatchView](asConflict(err, "player %s is no longer pending", playerID))
	}
	target.Status = matchdomain.ParticipantAccepted

	expected := st.match.State()
	st.match.CurrentPlayers++
	if st.match.CurrentPlayers == st.match.MaxPlayers {
		st.match.Status = matchdomain.MatchStatusFull
	}
	st.match.UpdatedAt = s.clock()
	if err := s.repo.UpdateMatch(ctx, db, st.match, expected); err != nil {
		return infraError[*MatchView](asConflict(err, "match %s changed concurrently", matchID))
	}
	return success(st.view())
}

// GetRating returns a player's rating record, or a fresh record at the
// starting skill level for players with no verified matches.
func (s *MatchService) GetRating(ctx context.Context, playerID uuid.UUID) (*matchdb.PlayerRating, error) {
	result, err := withTelemetry(s, ctx, "GetRating", playerID.String(), func(ctx context.Context) (results.OperationResult[*matchdb.PlayerRating, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*matchdb.PlayerRating, error], error) {
			ratings, err := s.ratingsFor(ctx, db, []uuid.UUID{playerID})
			if err != nil {
				return infraError[*matchdb.PlayerRating](err)
			}
			r := ratings[playerID]
			return success(&matchdb.PlayerRating{
				PlayerID:              playerID,
				SkillLevel:            r.Skill,
				MatchesPlayed:         r.Played,
				MatchesWon:            r.Won,
				ReliabilityPercentage: r.Reliability,
			})
		})
	})
	return unwrap(result, err)
}

// ratingsFor returns the rating state of every id. Players without a record
// start from their directory rating when it is on the scale, otherwise from
// the configured default.
func (s *MatchService) ratingsFor(ctx context.Context, db bun.IDB, ids []uuid.UUID) (map[uuid.UUID]matchdomain.PlayerRating, error) {
	rows, err := s.repo.GetRatings(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	out := ratingMap(rows)
	for _, seed := range s.seedsFor(ctx, ids, out) {
		out[seed.PlayerID] = matchdomain.PlayerRating{PlayerID: seed.PlayerID, Skill: seed.SkillLevel}
	}
	return out, nil
}

// lockRatings is ratingsFor for writers. Missing records are seeded first so
// every participant's row can be held FOR UPDATE until the transaction ends.
func (s *MatchService) lockRatings(ctx context.Context, db bun.IDB, ids []uuid.UUID) (map[uuid.UUID]matchdomain.PlayerRating, error) {
	rows, err := s.repo.GetRatings(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	if seeds := s.seedsFor(ctx, ids, ratingMap(rows)); len(seeds) > 0 {
		if err := s.repo.SeedRatings(ctx, db, seeds); err != nil {
			return nil, err
		}
	}
	rows, err = s.repo.LockRatings(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	out := ratingMap(rows)
	if len(out) != len(ids) {
		return nil, fmt.Errorf("locked %d of %d rating records", len(out), len(ids))
	}
	return out, nil
}

func (s *MatchService) seedsFor(ctx context.Context, ids []uuid.UUID, have map[uuid.UUID]matchdomain.PlayerRating) []matchdb.PlayerRating {
	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	seeds := s.directorySeeds(ctx, missing)
	out := make([]matchdb.PlayerRating, 0, len(missing))
	for _, id := range missing {
		skill, ok := seeds[id]
		if !ok {
			skill = s.cfg.DefaultSkillLevel
		}
		out = append(out, matchdb.PlayerRating{PlayerID: id, SkillLevel: skill})
	}
	return out
}

func ratingMap(rows []matchdb.PlayerRating) map[uuid.UUID]matchdomain.PlayerRating {
	out := make(map[uuid.UUID]matchdomain.PlayerRating, len(rows))
	for _, row := range rows {
		out[row.PlayerID] = matchdomain.PlayerRating{
			PlayerID:    row.PlayerID,
			Skill:       row.SkillLevel,
			Played:      row.MatchesPlayed,
			Won:         row.MatchesWon,
			Reliability: row.ReliabilityPercentage,
		}
	}
	return out
}

func (s *MatchService) directorySeeds(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]float64 {
	if len(ids) == 0 || s.directory == nil {
		return nil
	}
	players, err := s.directory.GetPlayers(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "Directory lookup failed; using default skill level",
			slog.Int("players", len(ids)),
			slog.String("error", err.Error()),
		)
		return nil
	}
	out := make(map[uuid.UUID]float64, len(players))
	for _, p := range players {
		if p.Rating >= matchdomain.MinSkill && p.Rating <= matchdomain.MaxSkill {
			out[p.ID] = p.Rating
		}
	}
	return out
}

// matchState is a match read FOR UPDATE with its participants.
type matchState struct {
	match        *matchdb.Match
	participants []matchdb.MatchParticipant
	// caller is the caller's row, nil when they have not joined.
	caller *matchdb.MatchParticipant
}

func (st *matchState) view() *MatchView {
	return &MatchView{Match: st.match, Participants: st.participants}
}

func (st *matchState) isHost(playerID uuid.UUID) bool {
	return st.match.CreatorID == playerID
}

func (st *matchState) participant(playerID uuid.UUID) *matchdb.MatchParticipant {
	for i := range st.participants {
		if st.participants[i].PlayerID == playerID {
			return &st.participants[i]
		}
	}
	return nil
}

// loadMatch locks the match row and loads its participants. callerID may be
// uuid.Nil for system callers.
func (s *MatchService) loadMatch(ctx context.Context, db bun.IDB, matchID, callerID uuid.UUID) (*matchState, error) {
	match, err := s.repo.LockMatch(ctx, db, matchID)
	if err != nil {
		if errors.Is(err, matchdb.ErrNotFound) {
			return nil, apperrors.NotFound("match %s not found", matchID)
		}
		return nil, err
	}
	participants, err := s.repo.ListParticipants(ctx, db, matchID)
	if err != nil {
		return nil, err
	}
	st := &matchState{match: match, participants: participants}
	if callerID != uuid.Nil {
		st.caller = st.participant(callerID)
	}
	return st, nil
}

// loadFailure turns an error from a read-only loading phase into a failure
// result when it belongs to the taxonomy, and an infrastructure error
// otherwise.
func loadFailure[S any](err error) (results.OperationResult[S, error], error) {
	if _, ok := apperrors.KindOf(err); ok {
		return failure[S](err)
	}
	return infraError[S](err)
}

func asConflict(err error, format string, args ...any) error {
	if errors.Is(err, matchdb.ErrStatusConflict) {
		return apperrors.Conflict(format, args...)
	}
	return err
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

func matchEvent(t activity.EventType, actorID *uuid.UUID, view *MatchView, extra map[string]any) activity.Event {
	data := map[string]any{
		"status":          view.Match.Status,
		"current_players": view.Match.CurrentPlayers,
		"max_players":     view.Match.MaxPlayers,
	}
	if view.Match.ResultStatus != nil {
		data["result_status"] = *view.Match.ResultStatus
	}
	for k, v := range extra {
		data[k] = v
	}
	players := make([]uuid.UUID, 0, len(view.Participants))
	for _, p := range view.Participants {
		if p.Status == matchdomain.ParticipantAccepted {
			players = append(players, p.PlayerID)
		}
	}
	return activity.Event{
		Type:      t,
		SubjectID: view.Match.ID,
		ActorID:   actorID,
		PlayerIDs: players,
		Data:      data,
	}
}
