package ladderservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	directorydomain "github.com/Black-And-White-Club/club-ladder/app/modules/directory/domain"
	ladderdomain "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/domain"
	ladderdb "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/repositories"
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/Black-And-White-Club/club-ladder/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const maxHistoryLimit = 200

// RegisterTeam enters the caller and a partner at the bottom of a pool.
func (s *LadderService) RegisterTeam(ctx context.Context, callerID uuid.UUID, req RegisterTeamRequest) (*ladderdb.Team, error) {
	result, err := withTelemetry(s, ctx, "RegisterTeam", req.ClubID.String(), func(ctx context.Context) (results.OperationResult[*ladderdb.Team, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*ladderdb.Team, error], error) {
			return s.registerTeamLogic(ctx, db, callerID, req)
		})
	})
	team, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, activity.Event{
		Type:      activity.TeamRegistered,
		SubjectID: team.ID,
		ActorID:   &callerID,
		PlayerIDs: []uuid.UUID{team.Player1ID, team.Player2ID},
		Data:      map[string]any{"club_id": team.ClubID, "tier": team.Tier, "rank": team.Rank},
	})
	return team, nil
}

func (s *LadderService) registerTeamLogic(ctx context.Context, db bun.IDB, callerID uuid.UUID, req RegisterTeamRequest) (results.OperationResult[*ladderdb.Team, error], error) {
	tier := strings.TrimSpace(req.Tier)
	name := strings.TrimSpace(req.Name)
	switch {
	case req.ClubID == uuid.Nil:
		return failure[*ladderdb.Team](apperrors.Validation("club_id is required"))
	case tier == "":
		return failure[*ladderdb.Team](apperrors.Validation("tier is required"))
	case name == "":
		return failure[*ladderdb.Team](apperrors.Validation("name is required"))
	case req.PartnerID == uuid.Nil:
		return failure[*ladderdb.Team](apperrors.Validation("partner_id is required"))
	case req.PartnerID == callerID:
		return failure[*ladderdb.Team](apperrors.Validation("a team needs two different players"))
	}

	pool := ladderdomain.PoolKey{ClubID: req.ClubID, Tier: tier}
	if err := s.repo.AcquirePoolLock(ctx, db, pool); err != nil {
		return infraError[*ladderdb.Team](err)
	}

	for _, playerID := range []uuid.UUID{callerID, req.PartnerID} {
		_, err := s.repo.FindPlayerTeamInPool(ctx, db, pool, playerID)
		if err == nil {
			return failure[*ladderdb.Team](apperrors.Conflict("player %s already has a team in this pool", playerID))
		}
		if !errors.Is(err, ladderdb.ErrNotFound) {
			return infraError[*ladderdb.Team](err)
		}
	}

	teams, err := s.repo.GetPoolTeams(ctx, db, pool)
	if err != nil {
		return infraError[*ladderdb.Team](err)
	}

	now := s.clock()
	team := &ladderdb.Team{
		ID:        uuid.New(),
		ClubID:    pool.ClubID,
		Tier:      pool.Tier,
		Name:      name,
		Rank:      len(teams) + 1,
		Status:    ladderdomain.TeamStatusActive,
		Player1ID: callerID,
		Player2ID: req.PartnerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertTeam(ctx, db, team); err != nil {
		return infraError[*ladderdb.Team](err)
	}
	if err := s.checkPoolInvariant(ctx, db, pool); err != nil {
		return infraError[*ladderdb.Team](err)
	}
	return success(team)
}

// GetStandings lists a pool in rank order with player profiles attached.
func (s *LadderService) GetStandings(ctx context.Context, pool ladderdomain.PoolKey) ([]Standing, error) {
	result, err := withTelemetry(s, ctx, "GetStandings", pool.String(), func(ctx context.Context) (results.OperationResult[[]Standing, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[[]Standing, error], error) {
			return s.getStandingsLogic(ctx, db, pool)
		})
	})
	return unwrap(result, err)
}

func (s *LadderService) getStandingsLogic(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey) (results.OperationResult[[]Standing, error], error) {
	teams, err := s.repo.GetPoolTeams(ctx, db, pool)
	if err != nil {
		return infraError[[]Standing](err)
	}

	ids := make([]uuid.UUID, 0, len(teams)*2)
	for _, t := range teams {
		ids = append(ids, t.Player1ID, t.Player2ID)
	}
	profiles := s.lookupPlayers(ctx, ids)

	standings := make([]Standing, 0, len(teams))
	for _, t := range teams {
		standings = append(standings, Standing{
			Rank:          t.Rank,
			TeamID:        t.ID,
			Name:          t.Name,
			Points:        t.Points,
			Status:        t.Status,
			MatchesPlayed: t.MatchesPlayed,
			MatchesWon:    t.MatchesWon,
			Players:       []directorydomain.Player{profileOf(profiles, t.Player1ID), profileOf(profiles, t.Player2ID)},
		})
	}
	return success(standings)
}

// lookupPlayers degrades to id-only profiles when the directory is missing
// or failing; standings never fail on the directory.
func (s *LadderService) lookupPlayers(ctx context.Context, ids []uuid.UUID) map[uuid.UUID]directorydomain.Player {
	if s.directory == nil || len(ids) == 0 {
		return nil
	}
	players, err := s.directory.GetPlayers(ctx, ids)
	if err != nil {
		s.logger.WarnContext(ctx, "Player directory lookup failed",
			slog.Int("players", len(ids)),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return directorydomain.Index(players)
}

func profileOf(profiles map[uuid.UUID]directorydomain.Player, id uuid.UUID) directorydomain.Player {
	if p, ok := profiles[id]; ok {
		return p
	}
	return directorydomain.Player{ID: id}
}

// GetTeamHistory returns a team's completed challenges, newest first.
func (s *LadderService) GetTeamHistory(ctx context.Context, teamID uuid.UUID, limit int) ([]ladderdb.ChallengeHistoryEntry, error) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	result, err := withTelemetry(s, ctx, "GetTeamHistory", teamID.String(), func(ctx context.Context) (results.OperationResult[[]ladderdb.ChallengeHistoryEntry, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[[]ladderdb.ChallengeHistoryEntry, error], error) {
			if _, err := s.repo.GetTeam(ctx, db, teamID); err != nil {
				if errors.Is(err, ladderdb.ErrNotFound) {
					return failure[[]ladderdb.ChallengeHistoryEntry](apperrors.NotFound("team %s not found", teamID))
				}
				return infraError[[]ladderdb.ChallengeHistoryEntry](err)
			}
			entries, err := s.repo.ListTeamHistory(ctx, db, teamID, limit)
			if err != nil {
				return infraError[[]ladderdb.ChallengeHistoryEntry](err)
			}
			return success(entries)
		})
	})
	return unwrap(result, err)
}

func rankedPool(teams []ladderdb.Team) []ladderdomain.RankedTeam {
	out := make([]ladderdomain.RankedTeam, len(teams))
	for i, t := range teams {
		out[i] = ladderdomain.RankedTeam{ID: t.ID, Rank: t.Rank}
	}
	return out
}

// checkPoolInvariant re-reads the pool and fails the transaction if its ranks
// are not exactly 1..N.
func (s *LadderService) checkPoolInvariant(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey) error {
	teams, err := s.repo.GetPoolTeams(ctx, db, pool)
	if err != nil {
		return err
	}
	if err := ladderdomain.ValidateContiguousRanks(rankedPool(teams)); err != nil {
		s.logger.ErrorContext(ctx, "Pool rank invariant violated",
			slog.String("pool", pool.String()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("pool %s: %w", pool, err)
	}
	return nil
}
