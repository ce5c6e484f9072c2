package matchservice

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/club-ladder/app/modules/activity"
	matchdomain "github.com/Black-And-White-Club/club-ladder/app/modules/match/domain"
	matchdb "github.com/Black-And-White-Club/club-ladder/app/modules/match/infrastructure/repositories"
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/Black-And-White-Club/club-ladder/app/shared/results"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SubmitMatchScore records the host's result for a full match and opens it
// for verification. Team assignments are stored and every earlier response
// is cleared.
func (s *MatchService) SubmitMatchScore(ctx context.Context, callerID, matchID uuid.UUID, req SubmitMatchScoreRequest) (*MatchView, error) {
	result, err := withTelemetry(s, ctx, "SubmitMatchScore", matchID.String(), func(ctx context.Context) (results.OperationResult[*MatchView, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*MatchView, error], error) {
			return s.submitMatchScoreLogic(ctx, db, callerID, matchID, req)
		})
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, matchEvent(activity.MatchScoreSubmitted, &callerID, view, map[string]any{"scores": view.Match.Scores}))
	return view, nil
}

func (s *MatchService) submitMatchScoreLogic(ctx context.Context, db bun.IDB, callerID, matchID uuid.UUID, req SubmitMatchScoreRequest) (results.OperationResult[*MatchView, error], error) {
	st, err := s.loadMatch(ctx, db, matchID, callerID)
	if err != nil {
		return loadFailure[*MatchView](err)
	}
	if !st.isHost(callerID) {
		return failure[*MatchView](apperrors.Authorization("only the host can submit the score"))
	}
	if st.match.Status != matchdomain.MatchStatusFull {
		return failure[*MatchView](apperrors.InvalidState(string(st.match.Status), "match is not full"))
	}
	if st.match.ResultStatus != nil {
		return failure[*MatchView](apperrors.InvalidState(st.match.ResultLabel(), "a score has already been submitted"))
	}
	teams, err := st.teamsFrom(req.Teams)
	if err != nil {
		return failure[*MatchView](err)
	}
	if err := matchdomain.ValidateOpenScores(req.Scores); err != nil {
		return failure[*MatchView](err)
	}

	if err := s.repo.AssignTeams(ctx, db, matchID, teams); err != nil {
		return infraError[*MatchView](asConflict(err, "participants of match %s changed concurrently", matchID))
	}
	for i := range st.participants {
		p := &st.participants[i]
		p.ResultConfirmed = nil
		p.Team = nil
		if team, ok := teams[p.PlayerID]; ok {
			p.Team = &team
		}
	}

	now := s.clock()
	expected := st.match.State()
	pending := matchdomain.ResultPendingVerification
	st.match.Scores = req.Scores
	st.match.ScoreSubmittedAt = &now
	st.match.ResultStatus = &pending
	st.match.UpdatedAt = now
	if err := s.repo.UpdateMatch(ctx, db, st.match, expected); err != nil {
		return infraError[*MatchView](asConflict(err, "match %s changed concurrently", matchID))
	}
	return success(st.view())
}

// teamsFrom checks a 2+2 assignment of four distinct accepted participants.
func (st *matchState) teamsFrom(in TeamAssignment) (map[uuid.UUID]matchdomain.Team, error) {
	if len(in.A) != matchdomain.PlayersPerTeam || len(in.B) != matchdomain.PlayersPerTeam {
		return nil, apperrors.Validation("each team must have exactly %d players", matchdomain.PlayersPerTeam)
	}
	teams := make(map[uuid.UUID]matchdomain.Team, 2*matchdomain.PlayersPerTeam)
	add := func(ids []uuid.UUID, team matchdomain.Team) error {
		for _, id := range ids {
			if _, dup := teams[id]; dup {
				return apperrors.Validation("player %s appears more than once", id)
			}
			p := st.participant(id)
			if p == nil || p.Status != matchdomain.ParticipantAccepted {
				return apperrors.Validation("player %s is not an accepted participant", id)
			}
			teams[id] = team
		}
		return nil
	}
	if err := add(in.A, matchdomain.TeamA); err != nil {
		return nil, err
	}
	if err := add(in.B, matchdomain.TeamB); err != nil {
		return nil, err
	}
	return teams, nil
}

// VerifyMatchScore answers a submitted score. Confirm and dispute come from
// accepted participants other than the host, once each. Auto-verify may be
// requested by any accepted participant once the verification window has
// passed.
//
// One confirmation finalizes the ratings of all four players; there is no
// quorum, and a later dispute cannot undo it.
func (s *MatchService) VerifyMatchScore(ctx context.Context, callerID, matchID uuid.UUID, action matchdomain.VerifyAction) (*MatchView, error) {
	return s.verify(ctx, callerID, matchID, action, s.clock())
}

// verify runs one verification. callerID is uuid.Nil for the sweep.
func (s *MatchService) verify(ctx context.Context, callerID, matchID uuid.UUID, action matchdomain.VerifyAction, now time.Time) (*MatchView, error) {
	result, err := withTelemetry(s, ctx, "VerifyMatchScore", matchID.String(), func(ctx context.Context) (results.OperationResult[*MatchView, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[*MatchView, error], error) {
			return s.verifyLogic(ctx, db, callerID, matchID, action, now)
		})
	})
	view, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	var actor *uuid.UUID
	if callerID != uuid.Nil {
		actor = &callerID
	}
	if action == matchdomain.VerifyDispute {
		s.notify(ctx, matchEvent(activity.MatchDisputed, actor, view, nil))
	} else {
		s.notify(ctx, matchEvent(activity.MatchVerified, actor, view, map[string]any{
			"auto":    action == matchdomain.VerifyAuto,
			"ratings": view.Ratings,
		}))
	}
	return view, nil
}

func (s *MatchService) verifyLogic(ctx context.Context, db bun.IDB, callerID, matchID uuid.UUID, action matchdomain.VerifyAction, now time.Time) (results.OperationResult[*MatchView, error], error) {
	st, err := s.loadMatch(ctx, db, matchID, callerID)
	if err != nil {
		return loadFailure[*MatchView](err)
	}
	accepted := st.caller != nil && st.caller.Status == matchdomain.ParticipantAccepted

	switch action {
	case matchdomain.VerifyConfirm, matchdomain.VerifyDispute:
		if !accepted {
			return failure[*MatchView](apperrors.Authorization("you are not an accepted participant in this match"))
		}
		if st.isHost(callerID) {
			return failure[*MatchView](apperrors.Authorization("the host cannot verify their own score"))
		}
		if st.caller.ResultConfirmed != nil {
			return failure[*MatchView](apperrors.Conflict("you have already responded to this score"))
		}
	case matchdomain.VerifyAuto:
		if callerID != uuid.Nil && !accepted {
			return failure[*MatchView](apperrors.Authorization("you are not an accepted participant in this match"))
		}
	default:
		return failure[*MatchView](apperrors.Validation("unknown verify action %d", action))
	}

	if st.match.ResultStatus == nil || *st.match.ResultStatus != matchdomain.ResultPendingVerification {
		return failure[*MatchView](apperrors.InvalidState(st.match.ResultLabel(), "no score is awaiting verification"))
	}

	switch action {
	case matchdomain.VerifyDispute:
		if err := s.recordResponse(ctx, db, st, callerID, false); err != nil {
			return infraError[*MatchView](err)
		}
		expected := st.match.State()
		disputed := matchdomain.ResultDisputed
		st.match.ResultStatus = &disputed
		st.match.UpdatedAt = now
		if err := s.repo.UpdateMatch(ctx, db, st.match, expected); err != nil {
			return infraError[*MatchView](asConflict(err, "match %s changed concurrently", matchID))
		}
		return success(st.view())

	case matchdomain.VerifyConfirm:
		if err := s.recordResponse(ctx, db, st, callerID, true); err != nil {
			return infraError[*MatchView](err)
		}
		return s.finalize(ctx, db, st, &callerID, now)

	case matchdomain.VerifyAuto:
		submitted := st.match.ScoreSubmittedAt
		if submitted == nil || submitted.After(now.Add(-s.cfg.AutoVerifyAfter)) {
			return failure[*MatchView](apperrors.InvalidState(st.match.ResultLabel(),
				"auto-verify is allowed %s after the score was submitted", s.cfg.AutoVerifyAfter))
		}
		return s.finalize(ctx, db, st, nil, now)
	}
	return failure[*MatchView](apperrors.Validation("unknown verify action %d", action))
}

func (s *MatchService) recordResponse(ctx context.Context, db bun.IDB, st *matchState, callerID uuid.UUID, confirmed bool) error {
	if err := s.repo.RecordResponse(ctx, db, st.match.ID, callerID, confirmed); err != nil {
		return asConflict(err, "you have already responded to this score")
	}
	st.caller.ResultConfirmed = &confirmed
	return nil
}

// finalize applies the rating engine and closes the match. verifiedBy is nil
// for auto-verification.
func (s *MatchService) finalize(ctx context.Context, db bun.IDB, st *matchState, verifiedBy *uuid.UUID, now time.Time) (results.OperationResult[*MatchView, error], error) {
	var teamA, teamB, ids []uuid.UUID
	for _, p := range st.participants {
		if p.Team == nil {
			continue
		}
		switch *p.Team {
		case matchdomain.TeamA:
			teamA = append(teamA, p.PlayerID)
		case matchdomain.TeamB:
			teamB = append(teamB, p.PlayerID)
		}
		ids = append(ids, p.PlayerID)
	}

	current, err := s.lockRatings(ctx, db, ids)
	if err != nil {
		return infraError[*MatchView](err)
	}
	pick := func(team []uuid.UUID) []matchdomain.PlayerRating {
		out := make([]matchdomain.PlayerRating, 0, len(team))
		for _, id := range team {
			out = append(out, current[id])
		}
		return out
	}
	updates, err := matchdomain.ComputeRatings(pick(teamA), pick(teamB), matchdomain.Winner(st.match.Scores))
	if err != nil {
		return infraError[*MatchView](fmt.Errorf("match %s: %w", st.match.ID, err))
	}

	rows := make([]matchdb.PlayerRating, 0, len(updates))
	for _, u := range updates {
		rows = append(rows, matchdb.PlayerRating{
			PlayerID:              u.PlayerID,
			SkillLevel:            u.NewSkill,
			MatchesPlayed:         u.Played,
			MatchesWon:            u.MatchesWon,
			ReliabilityPercentage: u.Reliability,
		})
	}
	if err := s.repo.UpsertRatings(ctx, db, rows); err != nil {
		return infraError[*MatchView](err)
	}

	expected := st.match.State()
	verified := matchdomain.ResultVerified
	st.match.ResultStatus = &verified
	st.match.Status = matchdomain.MatchStatusCompleted
	st.match.VerifiedBy = verifiedBy
	st.match.VerifiedAt = &now
	st.match.UpdatedAt = now
	if err := s.repo.UpdateMatch(ctx, db, st.match, expected); err != nil {
		return infraError[*MatchView](asConflict(err, "match %s changed concurrently", st.match.ID))
	}

	view := st.view()
	view.Ratings = updates
	return success(view)
}

// AutoVerifyDue finalizes overdue scores. A match another caller settled
// first is skipped; other failures are counted and logged, and the sweep
// moves on.
func (s *MatchService) AutoVerifyDue(ctx context.Context, now time.Time) (*SweepReport, error) {
	now = now.UTC()
	cutoff := now.Add(-s.cfg.AutoVerifyAfter)

	result, err := withTelemetry(s, ctx, "AutoVerifyDue", cutoff.Format(time.RFC3339), func(ctx context.Context) (results.OperationResult[[]uuid.UUID, error], error) {
		return runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[[]uuid.UUID, error], error) {
			ids, err := s.repo.ListDueForAutoVerify(ctx, db, cutoff, sweepBatchSize)
			if err != nil {
				return infraError[[]uuid.UUID](err)
			}
			return success(ids)
		})
	})
	ids, err := unwrap(result, err)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{Due: len(ids), Verified: []uuid.UUID{}}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		_, err := s.verify(ctx, uuid.Nil, id, matchdomain.VerifyAuto, now)
		switch {
		case err == nil:
			report.Verified = append(report.Verified, id)
		case apperrors.Is(err, apperrors.KindInvalidState),
			apperrors.Is(err, apperrors.KindConflict),
			apperrors.Is(err, apperrors.KindNotFound):
			report.Skipped++
		default:
			report.Failed++
		}
	}

	s.logger.InfoContext(ctx, "Auto-verify sweep finished",
		slog.Int("due", report.Due),
		slog.Int("verified", len(report.Verified)),
		slog.Int("skipped", report.Skipped),
		slog.Int("failed", report.Failed),
	)
	return report, nil
}
