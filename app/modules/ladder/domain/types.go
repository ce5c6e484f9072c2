package ladderdomain

import (
	"fmt"

	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
	"github.com/google/uuid"
)

// PoolKey identifies one ranking arena. Every rank query and update is scoped
// to exactly one pool.
type PoolKey struct {
	ClubID uuid.UUID
	Tier   string
}

func (p PoolKey) String() string {
	return fmt.Sprintf("%s/%s", p.ClubID, p.Tier)
}

// TeamStatus is a team's participation state inside its pool.
type TeamStatus string

const (
	TeamStatusActive      TeamStatus = "active"
	TeamStatusChallenging TeamStatus = "challenging"
	TeamStatusDefending   TeamStatus = "defending"
)

// ChallengeStatus is the state of a Challenge.
type ChallengeStatus string

const (
	ChallengeStatusPending             ChallengeStatus = "pending"
	ChallengeStatusAccepted            ChallengeStatus = "accepted"
	ChallengeStatusPendingVerification ChallengeStatus = "pending_verification"
	ChallengeStatusCompleted           ChallengeStatus = "completed"
	ChallengeStatusDisputed            ChallengeStatus = "disputed"
	ChallengeStatusDeclined            ChallengeStatus = "declined"
)

var challengeTransitions = map[ChallengeStatus][]ChallengeStatus{
	ChallengeStatusPending:             {ChallengeStatusAccepted, ChallengeStatusDeclined},
	ChallengeStatusAccepted:            {ChallengeStatusPendingVerification, ChallengeStatusCompleted, ChallengeStatusDeclined},
	ChallengeStatusPendingVerification: {ChallengeStatusCompleted, ChallengeStatusDisputed},
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
// Completed, disputed and declined are terminal.
func (s ChallengeStatus) CanTransitionTo(next ChallengeStatus) bool {
	for _, allowed := range challengeTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsOpen reports whether the challenge still holds both teams.
func (s ChallengeStatus) IsOpen() bool {
	switch s {
	case ChallengeStatusPending, ChallengeStatusAccepted, ChallengeStatusPendingVerification:
		return true
	default:
		return false
	}
}

// Result is the outcome recorded on a challenge.
type Result string

const (
	ResultChallengerWon Result = "challenger_won"
	ResultDefenderWon   Result = "defender_won"
)

// Side is one of the two teams in a challenge.
type Side int

const (
	SideNone Side = iota
	SideChallenger
	SideDefender
)

func (s Side) Opponent() Side {
	switch s {
	case SideChallenger:
		return SideDefender
	case SideDefender:
		return SideChallenger
	default:
		return SideNone
	}
}

// WinningResult is the Result recorded when s wins.
func (s Side) WinningResult() Result {
	if s == SideChallenger {
		return ResultChallengerWon
	}
	return ResultDefenderWon
}

// RespondAction is what a participant does with an accepted challenge.
type RespondAction int

const (
	RespondRescind RespondAction = iota + 1
	RespondForfeit
)

func (a RespondAction) String() string {
	switch a {
	case RespondRescind:
		return "rescind"
	case RespondForfeit:
		return "forfeit"
	default:
		return "unknown"
	}
}

// ParseRespondAction parses a wire action.
func ParseRespondAction(s string) (RespondAction, error) {
	switch s {
	case "rescind":
		return RespondRescind, nil
	case "forfeit":
		return RespondForfeit, nil
	default:
		return 0, apperrors.Validation("action must be one of rescind, forfeit")
	}
}

// VerifyAction is a participant's verdict on a submitted score.
type VerifyAction int

const (
	VerifyConfirm VerifyAction = iota + 1
	VerifyDispute
)

func (a VerifyAction) String() string {
	switch a {
	case VerifyConfirm:
		return "confirm"
	case VerifyDispute:
		return "dispute"
	default:
		return "unknown"
	}
}

// ParseVerifyAction parses a wire action.
func ParseVerifyAction(s string) (VerifyAction, error) {
	switch s {
	case "confirm":
		return VerifyConfirm, nil
	case "dispute":
		return VerifyDispute, nil
	default:
		return 0, apperrors.Validation("action must be one of confirm, dispute")
	}
}

const (
	// MinRankGap and MaxRankGap bound challenger_rank - defender_rank.
	MinRankGap = 1
	MaxRankGap = 3

	ChallengerWinPoints = 5
	DefenderWinPoints   = 3
)

// CheckRankGap rejects challenges outside the allowed reach.
func CheckRankGap(challengerRank, defenderRank int) error {
	gap := challengerRank - defenderRank
	if gap < MinRankGap || gap > MaxRankGap {
		return apperrors.Validation("can only challenge a team ranked 1-3 places above (rank gap %d)", gap)
	}
	return nil
}
