package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// RequestStatus enumerates lifecycle states for help requests.
type RequestStatus string

const (
	RequestStatusOpen       RequestStatus = "OPEN"
	RequestStatusClaimed    RequestStatus = "CLAIMED"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusCompleted  RequestStatus = "COMPLETED"
	RequestStatusCancelled  RequestStatus = "CANCELLED"
	RequestStatusExpired    RequestStatus = "EXPIRED"
)

// RequestPriority enumerates urgency levels.
type RequestPriority string

const (
	RequestPriorityLow      RequestPriority = "LOW"
	RequestPriorityNormal   RequestPriority = "NORMAL"
	RequestPriorityHigh     RequestPriority = "HIGH"
	RequestPriorityCritical RequestPriority = "CRITICAL"
)

// PriorityRank maps priorities to a sortable weight, highest first.
func PriorityRank(p RequestPriority) int {
	switch p {
	case RequestPriorityCritical:
		return 4
	case RequestPriorityHigh:
		return 3
	case RequestPriorityNormal:
		return 2
	case RequestPriorityLow:
		return 1
	default:
		return 0
	}
}

// RequestType categorizes the kind of help being asked for.
type RequestType string

const (
	RequestTypeDebugging    RequestType = "DEBUGGING"
	RequestTypeCodeReview   RequestType = "CODE_REVIEW"
	RequestTypeArchitecture RequestType = "ARCHITECTURE"
	RequestTypePerformance  RequestType = "PERFORMANCE"
	RequestTypeOther        RequestType = "OTHER"
)

// ExpertSet is a set of expert user ids. Inserts are idempotent by
// construction, which keeps the no-duplicates invariant structural.
type ExpertSet map[string]struct{}

// NewExpertSet builds a set from the given ids.
func NewExpertSet(ids ...string) ExpertSet {
	set := make(ExpertSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Add inserts id and reports whether it was newly added.
func (s ExpertSet) Add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Has reports membership.
func (s ExpertSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Values returns the members in stable order.
func (s ExpertSet) Values() []string {
	values := make([]string, 0, len(s))
	for id := range s {
		values = append(values, id)
	}
	sort.Strings(values)
	return values
}

// MarshalJSON renders the set as a JSON array.
func (s ExpertSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Values())
}

// UnmarshalJSON reads the set from a JSON array.
func (s *ExpertSet) UnmarshalJSON(data []byte) error {
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	*s = NewExpertSet(values...)
	return nil
}

// Solution holds the expert's submitted answer.
type Solution struct {
	Description string
	Code        string
	Explanation string
}

// HelpRequest is the aggregate for expert help requests.
type HelpRequest struct {
	ID               string
	RequesterID      string
	AssignedExpertID *string

	Status   RequestStatus
	Priority RequestPriority
	Type     RequestType

	Title       string
	Description string
	Language    string
	Framework   string
	CodeSnippet string
	ReproSteps  string
	Tags        []string
	IsPublic    bool

	SolutionDescription string
	SolutionCode        string
	SolutionExplanation string
	SolutionAccepted    bool
	SatisfactionRating  *int
	Feedback            string

	ViewCount         int64
	InterestedExperts ExpertSet
	DeclinedExperts   ExpertSet
	PreviousAttempts  int

	CreatedAt          time.Time
	UpdatedAt          time.Time
	ClaimedAt          *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	SolutionAcceptedAt *time.Time
	ExpiresAt          *time.Time
}

// IsTerminal reports whether no further transitions are defined.
func (r *HelpRequest) IsTerminal() bool {
	return r.Status == RequestStatusCancelled || r.Status == RequestStatusExpired
}

// IsAssignedTo reports whether expertID currently holds the claim.
func (r *HelpRequest) IsAssignedTo(expertID string) bool {
	return r.AssignedExpertID != nil && *r.AssignedExpertID == expertID
}

var allowedTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusOpen:       {RequestStatusClaimed, RequestStatusCancelled, RequestStatusExpired},
	RequestStatusClaimed:    {RequestStatusInProgress, RequestStatusOpen, RequestStatusCancelled, RequestStatusExpired},
	RequestStatusInProgress: {RequestStatusCompleted, RequestStatusCancelled},
	RequestStatusCompleted:  {RequestStatusInProgress},
	RequestStatusCancelled:  {},
	RequestStatusExpired:    {},
}

// CanTransition reports whether the state machine permits current -> next.
func CanTransition(current, next RequestStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
