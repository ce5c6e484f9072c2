package ladderservice

import (
	"context"
	"fmt"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	ladderdomain "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/domain"
	ladderdb "github.com/Black-And-White-Club/club-ladder/app/modules/ladder/infrastructure/repositories"
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/Black-And-White-Club/club-ladder/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RespondChallenge rescinds or forfeits an accepted challenge.
func (s *LadderService) RespondChallenge(ctx context.Context, callerID, challengeID uuid.UUID, action ladderdomain.RespondAction) (*ChallengeOutcome, error) {
	result, err := withTelemetry(s, ctx, "RespondChallenge", challengeID.String(), func(ctx context.Context) (results.OperationResult[*ChallengeOutcome, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*ChallengeOutcome, error], error) {
			return s.respondChallengeLogic(ctx, db, callerID, challengeID, action)
		})
	})
	out, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	eventType := activity.ChallengeRescinded
	if action == ladderdomain.RespondForfeit {
		eventType = activity.ChallengeForfeited
	}
	s.notify(ctx, challengeEvent(eventType, callerID, out))
	return out, nil
}

func (s *LadderService) respondChallengeLogic(ctx context.Context, db bun.IDB, callerID, challengeID uuid.UUID, action ladderdomain.RespondAction) (results.OperationResult[*ChallengeOutcome, error], error) {
	state, err := s.loadChallenge(ctx, db, challengeID, callerID)
	if err != nil {
		return loadFailure[*ChallengeOutcome](err)
	}

	switch action {
	case ladderdomain.RespondRescind:
		if state.side != ladderdomain.SideChallenger {
			return failure[*ChallengeOutcome](apperrors.Authorization("only the challenging team can rescind"))
		}
		if state.challenge.Status != ladderdomain.ChallengeStatusAccepted {
			return failure[*ChallengeOutcome](apperrors.InvalidState(string(state.challenge.Status), "challenge is not accepted"))
		}
		if err := s.rescind(ctx, db, state); err != nil {
			return infraError[*ChallengeOutcome](err)
		}
		return success(state.outcome())

	case ladderdomain.RespondForfeit:
		if state.challenge.Status != ladderdomain.ChallengeStatusAccepted {
			return failure[*ChallengeOutcome](apperrors.InvalidState(string(state.challenge.Status), "challenge is not accepted"))
		}
		winner := state.side.Opponent()
		out, err := s.complete(ctx, db, state, winner, ladderdomain.ForfeitScores(winner), true)
		if err != nil {
			return infraError[*ChallengeOutcome](err)
		}
		return success(out)

	default:
		return failure[*ChallengeOutcome](apperrors.Validation("unsupported action %s", action))
	}
}

// rescind drops the challenger one place, swapping it with the team below,
// and closes the challenge without history.
func (s *LadderService) rescind(ctx context.Context, db bun.IDB, st *challengeState) error {
	pool := st.challenge.Pool()
	teams, err := s.repo.GetPoolTeams(ctx, db, pool)
	if err != nil {
		return err
	}
	changes, err := ladderdomain.RescindPenalty(rankedPool(teams), st.challenger.ID)
	if err != nil {
		return err
	}
	if err := s.applyRanks(ctx, db, pool, changes); err != nil {
		return err
	}
	if err := s.transition(ctx, db, st.challenge, ladderdomain.ChallengeStatusDeclined); err != nil {
		return err
	}
	if err := s.releaseTeams(ctx, db, st); err != nil {
		return err
	}
	return s.reloadTeams(ctx, db, st)
}

// SubmitScore records a KG-valid score line for an accepted challenge and
// waits for verification. Ranks and points do not change yet.
func (s *LadderService) SubmitScore(ctx context.Context, callerID, challengeID uuid.UUID, scores []ladderdomain.SetScore) (*ChallengeOutcome, error) {
	result, err := withTelemetry(s, ctx, "SubmitScore", challengeID.String(), func(ctx context.Context) (results.OperationResult[*ChallengeOutcome, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*ChallengeOutcome, error], error) {
			return s.submitScoreLogic(ctx, db, callerID, challengeID, scores)
		})
	})
	out, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, challengeEvent(activity.ChallengeScoreSubmitted, callerID, out))
	return out, nil
}

func (s *LadderService) submitScoreLogic(ctx context.Context, db bun.IDB, callerID, challengeID uuid.UUID, scores []ladderdomain.SetScore) (results.OperationResult[*ChallengeOutcome, error], error) {
	state, err := s.loadChallenge(ctx, db, challengeID, callerID)
	if err != nil {
		return loadFailure[*ChallengeOutcome](err)
	}
	if state.challenge.Status != ladderdomain.ChallengeStatusAccepted {
		return failure[*ChallengeOutcome](apperrors.InvalidState(string(state.challenge.Status), "challenge is not accepted"))
	}
	if err := ladderdomain.ValidateKGScores(scores); err != nil {
		return failure[*ChallengeOutcome](err)
	}

	outcome := ladderdomain.MatchWinner(scores).WinningResult()
	state.challenge.Scores = scores
	state.challenge.Result = &outcome
	state.challenge.SubmittedBy = &callerID
	if err := s.transition(ctx, db, state.challenge, ladderdomain.ChallengeStatusPendingVerification); err != nil {
		return infraError[*ChallengeOutcome](err)
	}
	return success(state.outcome())
}

// VerifyScore confirms or disputes a submitted score. Confirming applies the
// result: rotation and +5 for a challenger win, +3 for a defender win.
func (s *LadderService) VerifyScore(ctx context.Context, callerID, challengeID uuid.UUID, action ladderdomain.VerifyAction) (*ChallengeOutcome, error) {
	result, err := withTelemetry(s, ctx, "VerifyScore", challengeID.String(), func(ctx context.Context) (results.OperationResult[*ChallengeOutcome, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*ChallengeOutcome, error], error) {
			return s.verifyScoreLogic(ctx, db, callerID, challengeID, action)
		})
	})
	out, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	eventType := activity.ChallengeCompleted
	if action == ladderdomain.VerifyDispute {
		eventType = activity.ChallengeDisputed
	}
	s.notify(ctx, challengeEvent(eventType, callerID, out))
	return out, nil
}

func (s *LadderService) verifyScoreLogic(ctx context.Context, db bun.IDB, callerID, challengeID uuid.UUID, action ladderdomain.VerifyAction) (results.OperationResult[*ChallengeOutcome, error], error) {
	state, err := s.loadChallenge(ctx, db, challengeID, callerID)
	if err != nil {
		return loadFailure[*ChallengeOutcome](err)
	}
	if state.challenge.Status != ladderdomain.ChallengeStatusPendingVerification {
		return failure[*ChallengeOutcome](apperrors.InvalidState(string(state.challenge.Status), "challenge is not awaiting verification"))
	}

	switch action {
	case ladderdomain.VerifyDispute:
		if err := s.transition(ctx, db, state.challenge, ladderdomain.ChallengeStatusDisputed); err != nil {
			return infraError[*ChallengeOutcome](err)
		}
		if err := s.releaseTeams(ctx, db, state); err != nil {
			return infraError[*ChallengeOutcome](err)
		}
		return success(state.outcome())

	case ladderdomain.VerifyConfirm:
		if state.challenge.Result == nil {
			return infraError[*ChallengeOutcome](fmt.Errorf("challenge %s awaiting verification without a result", challengeID))
		}
		winner := ladderdomain.SideDefender
		if *state.challenge.Result == ladderdomain.ResultChallengerWon {
			winner = ladderdomain.SideChallenger
		}
		out, err := s.complete(ctx, db, state, winner, state.challenge.Scores, false)
		if err != nil {
			return infraError[*ChallengeOutcome](err)
		}
		return success(out)

	default:
		return failure[*ChallengeOutcome](apperrors.Validation("unsupported action %s", action))
	}
}

// complete applies a final result: rotation and points, stats for both
// teams, both teams back to active, the challenge completed and one history
// row. Any failure part-way aborts the whole transaction.
func (s *LadderService) complete(ctx context.Context, db bun.IDB, st *challengeState, winner ladderdomain.Side, scores []ladderdomain.SetScore, forfeit bool) (*ChallengeOutcome, error) {
	pool := st.challenge.Pool()
	challengerBefore, defenderBefore := st.challenger.Rank, st.defender.Rank

	challengerPoints, defenderPoints := 0, 0
	if winner == ladderdomain.SideChallenger {
		teams, err := s.repo.GetPoolTeams(ctx, db, pool)
		if err != nil {
			return nil, err
		}
		changes, err := ladderdomain.RotateRanks(rankedPool(teams), st.challenger.ID, st.defender.ID)
		if err != nil {
			return nil, err
		}
		if err := s.applyRanks(ctx, db, pool, changes); err != nil {
			return nil, err
		}
		challengerPoints = ladderdomain.ChallengerWinPoints
	} else {
		defenderPoints = ladderdomain.DefenderWinPoints
	}

	if err := s.repo.RecordTeamResult(ctx, db, st.challenger.ID, winner == ladderdomain.SideChallenger, challengerPoints); err != nil {
		return nil, err
	}
	if err := s.repo.RecordTeamResult(ctx, db, st.defender.ID, winner == ladderdomain.SideDefender, defenderPoints); err != nil {
		return nil, err
	}
	if err := s.releaseTeams(ctx, db, st); err != nil {
		return nil, err
	}

	now := s.clock()
	result := winner.WinningResult()
	st.challenge.Result = &result
	st.challenge.Scores = scores
	st.challenge.CompletedAt = &now
	if err := s.transition(ctx, db, st.challenge, ladderdomain.ChallengeStatusCompleted); err != nil {
		return nil, err
	}

	if err := s.reloadTeams(ctx, db, st); err != nil {
		return nil, err
	}
	entry := &ladderdb.ChallengeHistoryEntry{
		ChallengeID:          st.challenge.ID,
		ClubID:               pool.ClubID,
		Tier:                 pool.Tier,
		ChallengerTeamID:     st.challenger.ID,
		DefenderTeamID:       st.defender.ID,
		Result:               result,
		Forfeit:              forfeit,
		ChallengerRankBefore: challengerBefore,
		ChallengerRankAfter:  st.challenger.Rank,
		DefenderRankBefore:   defenderBefore,
		DefenderRankAfter:    st.defender.Rank,
		Scores:               scores,
		RecordedAt:           now,
	}
	if err := s.repo.InsertHistory(ctx, db, entry); err != nil {
		return nil, err
	}

	out := st.outcome()
	out.History = entry
	return out, nil
}

// applyRanks writes rank changes and re-checks the pool invariant before the
// transaction can commit.
func (s *LadderService) applyRanks(ctx context.Context, db bun.IDB, pool ladderdomain.PoolKey, changes []ladderdomain.RankChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := s.repo.SetTeamRanks(ctx, db, pool, changes); err != nil {
		return asConflict(err, "ranks in pool %s changed concurrently", pool)
	}
	return s.checkPoolInvariant(ctx, db, pool)
}

func (s *LadderService) reloadTeams(ctx context.Context, db bun.IDB, st *challengeState) error {
	challenger, err := s.repo.GetTeam(ctx, db, st.challenger.ID)
	if err != nil {
		return fmt.Errorf("reload challenger team: %w", err)
	}
	defender, err := s.repo.GetTeam(ctx, db, st.defender.ID)
	if err != nil {
		return fmt.Errorf("reload defender team: %w", err)
	}
	st.challenger, st.defender = challenger, defender
	return nil
}
