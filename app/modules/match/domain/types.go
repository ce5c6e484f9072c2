package matchdomain

import (
	"github.com/Black-And-White-Club/club-ladder/app/shared/apperrors"
)

// MatchStatus is the lifecycle state of an open match.
type MatchStatus string

const (
	MatchStatusOpen      MatchStatus = "open"
	MatchStatusFull      MatchStatus = "full"
	MatchStatusCompleted MatchStatus = "completed"
)

// ResultStatus tracks a submitted score through verification. A match with
// no submitted score has a nil ResultStatus.
type ResultStatus string

const (
	ResultPendingVerification ResultStatus = "pending_verification"
	ResultVerified            ResultStatus = "verified"
	ResultDisputed            ResultStatus = "disputed"
)

// ParticipantStatus is a player's membership in a match.
type ParticipantStatus string

const (
	ParticipantPending  ParticipantStatus = "pending"
	ParticipantAccepted ParticipantStatus = "accepted"
)

// Team is one side of a doubles match.
type Team string

const (
	TeamNone Team = ""
	TeamA    Team = "A"
	TeamB    Team = "B"
)

func (t Team) Opponent() Team {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	default:
		return TeamNone
	}
}

// PlayersPerTeam is fixed; open matches are doubles.
const PlayersPerTeam = 2

// VerifyAction is a response to a submitted match score.
type VerifyAction int

const (
	VerifyConfirm VerifyAction = iota + 1
	VerifyDispute
	// VerifyAuto finalizes an unanswered score once the verification
	// window has passed.
	VerifyAuto
)

func (a VerifyAction) String() string {
	switch a {
	case VerifyConfirm:
		return "confirm"
	case VerifyDispute:
		return "dispute"
	case VerifyAuto:
		return "auto_verify"
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
	case "auto_verify":
		return VerifyAuto, nil
	default:
		return 0, apperrors.Validation("action must be one of confirm, dispute, auto_verify")
	}
}

const (
	MinSkill = 1.0
	MaxSkill = 7.0
)

// CheckSkillRange validates a match's skill band.
func CheckSkillRange(min, max float64) error {
	if min < MinSkill || max > MaxSkill {
		return apperrors.Validation("skill range must lie within %.1f-%.1f", MinSkill, MaxSkill)
	}
	if min > max {
		return apperrors.Validation("skill_min must not exceed skill_max")
	}
	return nil
}
