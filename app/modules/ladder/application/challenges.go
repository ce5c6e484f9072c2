package ladderservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	ladderdomain "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/domain"
	ladderdb "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/repositories"
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/Black-And-White-Club/club-ladder/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CreateChallenge issues a challenge from the caller's team in the defender's
// pool. Both teams must be active and the defender ranked 1-3 places above.
func (s *LadderService) CreateChallenge(ctx context.Context, callerID uuid.UUID, req CreateChallengeRequest) (*ChallengeOutcome, error) {
	result, err := withTelemetry(s, ctx, "CreateChallenge", req.DefenderTeamID.String(), func(ctx context.Context) (results.OperationResult[*ChallengeOutcome, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*ChallengeOutcome, error], error) {
			return s.createChallengeLogic(ctx, db, callerID, req)
		})
	})
	out, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, challengeEvent(activity.ChallengeCreated, callerID, out))
	return out, nil
}

func (s *LadderService) createChallengeLogic(ctx context.Context, db bun.IDB, callerID uuid.UUID, req CreateChallengeRequest) (results.OperationResult[*ChallengeOutcome, error], error) {
	defender, err := s.repo.GetTeam(ctx, db, req.DefenderTeamID)
	if err != nil {
		if errors.Is(err, ladderdb.ErrNotFound) {
			return failure[*ChallengeOutcome](apperrors.NotFound("defender team %s not found", req.DefenderTeamID))
		}
		return infraError[*ChallengeOutcome](err)
	}

	pool := defender.Pool()
	if err := s.repo.AcquirePoolLock(ctx, db, pool); err != nil {
		return infraError[*ChallengeOutcome](err)
	}
	// Re-read under the lock; rank and status may have moved.
	if defender, err = s.repo.GetTeam(ctx, db, req.DefenderTeamID); err != nil {
		return infraError[*ChallengeOutcome](err)
	}

	challenger, err := s.repo.FindPlayerTeamInPool(ctx, db, pool, callerID)
	if err != nil {
		if errors.Is(err, ladderdb.ErrNotFound) {
			return failure[*ChallengeOutcome](apperrors.NotFound("you have no team in pool %s", pool))
		}
		return infraError[*ChallengeOutcome](err)
	}
	if challenger.ID == defender.ID {
		return failure[*ChallengeOutcome](apperrors.Validation("a team cannot challenge itself"))
	}
	if challenger.Status != ladderdomain.TeamStatusActive {
		return failure[*ChallengeOutcome](apperrors.InvalidState(string(challenger.Status), "challenger team is not active"))
	}
	open, err := s.repo.HasOpenChallenge(ctx, db, challenger.ID)
	if err != nil {
		return infraError[*ChallengeOutcome](err)
	}
	if open {
		return failure[*ChallengeOutcome](apperrors.InvalidState(string(challenger.Status), "challenger team already holds an open challenge"))
	}
	if defender.Status != ladderdomain.TeamStatusActive {
		return failure[*ChallengeOutcome](apperrors.InvalidState(string(defender.Status), "defender team is not active"))
	}
	if err := ladderdomain.CheckRankGap(challenger.Rank, defender.Rank); err != nil {
		return failure[*ChallengeOutcome](err)
	}

	now := s.clock()
	scheduled, err := ParseScheduledDate(req.ScheduledDate, now)
	if err != nil {
		return failure[*ChallengeOutcome](err)
	}

	challenge := &ladderdb.Challenge{
		ID:               uuid.New(),
		ClubID:           pool.ClubID,
		Tier:             pool.Tier,
		ChallengerTeamID: challenger.ID,
		DefenderTeamID:   defender.ID,
		ChallengerRank:   challenger.Rank,
		DefenderRank:     defender.Rank,
		Status:           ladderdomain.ChallengeStatusPending,
		ScheduledDate:    scheduled,
		ScheduledTime:    trimmed(req.ScheduledTime),
		Venue:            trimmed(req.Venue),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.InsertChallenge(ctx, db, challenge); err != nil {
		return infraError[*ChallengeOutcome](err)
	}
	if err := s.moveTeam(ctx, db, challenger, ladderdomain.TeamStatusActive, ladderdomain.TeamStatusChallenging); err != nil {
		return infraError[*ChallengeOutcome](err)
	}
	if err := s.moveTeam(ctx, db, defender, ladderdomain.TeamStatusActive, ladderdomain.TeamStatusDefending); err != nil {
		return infraError[*ChallengeOutcome](err)
	}

	return success(&ChallengeOutcome{Challenge: challenge, Challenger: challenger, Defender: defender})
}

// GetChallenge returns a challenge by id.
func (s *LadderService) GetChallenge(ctx context.Context, challengeID uuid.UUID) (*ladderdb.Challenge, error) {
	result, err := withTelemetry(s, ctx, "GetChallenge", challengeID.String(), func(ctx context.Context) (results.OperationResult[*ladderdb.Challenge, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*ladderdb.Challenge, error], error) {
			challenge, err := s.repo.GetChallenge(ctx, db, challengeID)
			if err != nil {
				if errors.Is(err, ladderdb.ErrNotFound) {
					return failure[*ladderdb.Challenge](apperrors.NotFound("challenge %s not found", challengeID))
				}
				return infraError[*ladderdb.Challenge](err)
			}
			return success(challenge)
		})
	})
	return unwrap(result, err)
}

// AcceptChallenge moves a pending challenge to accepted. Defender only.
func (s *LadderService) AcceptChallenge(ctx context.Context, callerID, challengeID uuid.UUID) (*ChallengeOutcome, error) {
	return s.answerChallenge(ctx, "AcceptChallenge", callerID, challengeID, true)
}

// DeclineChallenge turns down a pending challenge and frees both teams.
// Defender only; ranks are untouched.
func (s *LadderService) DeclineChallenge(ctx context.Context, callerID, challengeID uuid.UUID) (*ChallengeOutcome, error) {
	return s.answerChallenge(ctx, "DeclineChallenge", callerID, challengeID, false)
}

func (s *LadderService) answerChallenge(ctx context.Context, op string, callerID, challengeID uuid.UUID, accept bool) (*ChallengeOutcome, error) {
	result, err := withTelemetry(s, ctx, op, challengeID.String(), func(ctx context.Context) (results.OperationResult[*ChallengeOutcome, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*ChallengeOutcome, error], error) {
			return s.answerChallengeLogic(ctx, db, callerID, challengeID, accept)
		})
	})
	out, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	eventType := activity.ChallengeAccepted
	if !accept {
		eventType = activity.ChallengeDeclined
	}
	s.notify(ctx, challengeEvent(eventType, callerID, out))
	return out, nil
}

func (s *LadderService) answerChallengeLogic(ctx context.Context, db bun.IDB, callerID, challengeID uuid.UUID, accept bool) (results.OperationResult[*ChallengeOutcome, error], error) {
	state, err := s.loadChallenge(ctx, db, challengeID, callerID)
	if err != nil {
		return loadFailure[*ChallengeOutcome](err)
	}
	if state.side != ladderdomain.SideDefender {
		return failure[*ChallengeOutcome](apperrors.Authorization("only the defending team can answer a challenge"))
	}
	if state.challenge.Status != ladderdomain.ChallengeStatusPending {
		return failure[*ChallengeOutcome](apperrors.InvalidState(string(state.challenge.Status), "challenge is not pending"))
	}

	if accept {
		if err := s.transition(ctx, db, state.challenge, ladderdomain.ChallengeStatusAccepted); err != nil {
			return infraError[*ChallengeOutcome](err)
		}
		return success(state.outcome())
	}

	if err := s.transition(ctx, db, state.challenge, ladderdomain.ChallengeStatusDeclined); err != nil {
		return infraError[*ChallengeOutcome](err)
	}
	if err := s.releaseTeams(ctx, db, state); err != nil {
		return infraError[*ChallengeOutcome](err)
	}
	return success(state.outcome())
}

// challengeState is a challenge loaded under its pool lock together with both
// teams and the caller's side.
type challengeState struct {
	challenge  *ladderdb.Challenge
	challenger *ladderdb.Team
	defender   *ladderdb.Team
	side       ladderdomain.Side
}

func (st *challengeState) outcome() *ChallengeOutcome {
	return &ChallengeOutcome{Challenge: st.challenge, Challenger: st.challenger, Defender: st.defender}
}

// loadChallenge locks the challenge's pool and loads it with both teams. A
// caller on neither team gets an authorization error. Nothing is written, so
// taxonomy errors from here are safe to return as failures.
func (s *LadderService) loadChallenge(ctx context.Context, db bun.IDB, challengeID, callerID uuid.UUID) (*challengeState, error) {
	challenge, err := s.repo.GetChallenge(ctx, db, challengeID)
	if err != nil {
		if errors.Is(err, ladderdb.ErrNotFound) {
			return nil, apperrors.NotFound("challenge %s not found", challengeID)
		}
		return nil, err
	}
	if err := s.repo.AcquirePoolLock(ctx, db, challenge.Pool()); err != nil {
		return nil, err
	}
	if challenge, err = s.repo.GetChallenge(ctx, db, challengeID); err != nil {
		return nil, err
	}

	challenger, err := s.repo.GetTeam(ctx, db, challenge.ChallengerTeamID)
	if err != nil {
		return nil, fmt.Errorf("load challenger team: %w", err)
	}
	defender, err := s.repo.GetTeam(ctx, db, challenge.DefenderTeamID)
	if err != nil {
		return nil, fmt.Errorf("load defender team: %w", err)
	}

	state := &challengeState{challenge: challenge, challenger: challenger, defender: defender}
	switch {
	case challenger.HasPlayer(callerID):
		state.side = ladderdomain.SideChallenger
	case defender.HasPlayer(callerID):
		state.side = ladderdomain.SideDefender
	default:
		return nil, apperrors.Authorization("you are not a participant in this challenge")
	}
	return state, nil
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

// transition persists challenge in its next status, compare-and-set on the
// status it was loaded in.
func (s *LadderService) transition(ctx context.Context, db bun.IDB, challenge *ladderdb.Challenge, next ladderdomain.ChallengeStatus) error {
	current := challenge.Status
	if !current.CanTransitionTo(next) {
		return apperrors.InvalidState(string(current), "cannot move challenge to %s", next)
	}
	challenge.Status = next
	if err := s.repo.UpdateChallenge(ctx, db, challenge, current); err != nil {
		challenge.Status = current
		return asConflict(err, "challenge %s changed concurrently", challenge.ID)
	}
	return nil
}

func (s *LadderService) moveTeam(ctx context.Context, db bun.IDB, team *ladderdb.Team, from, to ladderdomain.TeamStatus) error {
	if err := s.repo.UpdateTeamStatus(ctx, db, team.ID, from, to); err != nil {
		return asConflict(err, "team %s is no longer %s", team.ID, from)
	}
	team.Status = to
	return nil
}

// releaseTeams returns both teams of an open challenge to active.
func (s *LadderService) releaseTeams(ctx context.Context, db bun.IDB, st *challengeState) error {
	if err := s.moveTeam(ctx, db, st.challenger, ladderdomain.TeamStatusChallenging, ladderdomain.TeamStatusActive); err != nil {
		return err
	}
	return s.moveTeam(ctx, db, st.defender, ladderdomain.TeamStatusDefending, ladderdomain.TeamStatusActive)
}

func asConflict(err error, format string, args ...any) error {
	if errors.Is(err, ladderdb.ErrStatusConflict) {
		return apperrors.Conflict(format, args...)
	}
	return err
}

func challengeEvent(t activity.EventType, actorID uuid.UUID, out *ChallengeOutcome) activity.Event {
	data := map[string]any{
		"challenger_team_id": out.Challenge.ChallengerTeamID,
		"defender_team_id":   out.Challenge.DefenderTeamID,
		"status":             out.Challenge.Status,
	}
	if out.Challenge.Result != nil {
		data["result"] = *out.Challenge.Result
	}
	var players []uuid.UUID
	for _, team := range []*ladderdb.Team{out.Challenger, out.Defender} {
		if team != nil {
			players = append(players, team.Player1ID, team.Player2ID)
		}
	}
	return activity.Event{
		Type:      t,
		SubjectID: out.Challenge.ID,
		ActorID:   &actorID,
		PlayerIDs: players,
		Data:      data,
	}
}
