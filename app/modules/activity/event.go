// Package activity is the fire-and-forget feed of things that happened on the
// ladder and in open matches. Events are published after the owning
// transaction commits; a failed publish is logged and never surfaces to the
// caller.
package activity

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an activity event. It doubles as the topic suffix.
type EventType string

const (
	TeamRegistered          EventType = "ladder.team_registered"
	ChallengeCreated        EventType = "ladder.challenge_created"
	ChallengeAccepted       EventType = "ladder.challenge_accepted"
	ChallengeDeclined       EventType = "ladder.challenge_declined"
	ChallengeRescinded      EventType = "ladder.challenge_rescinded"
	ChallengeForfeited      EventType = "ladder.challenge_forfeited"
	ChallengeScoreSubmitted EventType = "ladder.challenge_score_submitted"
	ChallengeCompleted      EventType = "ladder.challenge_completed"
	ChallengeDisputed       EventType = "ladder.challenge_disputed"

	MatchCreated        EventType = "match.created"
	MatchJoinRequested  EventType = "match.join_requested"
	MatchPlayerAccepted EventType = "match.player_accepted"
	MatchScoreSubmitted EventType = "match.score_submitted"
	MatchVerified       EventType = "match.verified"
	MatchDisputed       EventType = "match.disputed"
)

// Event is one entry in the activity feed.
type Event struct {
	Type       EventType      `json:"type"`
	SubjectID  uuid.UUID      `json:"subject_id"`
	ActorID    *uuid.UUID     `json:"actor_id,omitempty"`
	PlayerIDs  []uuid.UUID    `json:"player_ids,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Topic is the publish topic for the event.
func (e Event) Topic() string {
	return "activity." + string(e.Type)
}
