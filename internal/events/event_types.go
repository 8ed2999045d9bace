package events

import (
	"time"

	"github.com/vibecodefixers/help-request-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated    EventType = "request_created"
	EventRequestClaimed    EventType = "request_claimed"
	EventRequestStarted    EventType = "request_started"
	EventSolutionSubmitted EventType = "solution_submitted"
	EventSolutionAccepted  EventType = "solution_accepted"
	EventSolutionRejected  EventType = "solution_rejected"
	EventRequestCancelled  EventType = "request_cancelled"
	EventClaimReleased     EventType = "claim_released"
	EventRequestsExpired   EventType = "requests_expired"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	Priority domain.RequestPriority `json:"priority"`
	Type     domain.RequestType     `json:"type"`
	Title    string                 `json:"title"`
	IsPublic bool                   `json:"is_public"`
}

// RequestClaimedPayload payload.
type RequestClaimedPayload struct {
	ExpertID string `json:"expert_id"`
}

// StatusChangedPayload covers start, cancel and release transitions.
type StatusChangedPayload struct {
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
}

// SolutionSubmittedPayload payload.
type SolutionSubmittedPayload struct {
	ExpertID string `json:"expert_id"`
	Attempt  int    `json:"attempt"`
}

// SolutionAcceptedPayload payload.
type SolutionAcceptedPayload struct {
	Rating *int `json:"rating,omitempty"`
}

// SolutionRejectedPayload payload.
type SolutionRejectedPayload struct {
	Reason           string `json:"reason"`
	PreviousAttempts int    `json:"previous_attempts"`
}

// RequestsExpiredPayload payload for the sweep summary event.
type RequestsExpiredPayload struct {
	Count int64 `json:"count"`
}
