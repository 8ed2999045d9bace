package domain

import "time"

// RequestChangeType captures what changed in a history entry.
type RequestChangeType string

const (
	ChangeTypeStatus     RequestChangeType = "STATUS_CHANGE"
	ChangeTypeAssignment RequestChangeType = "ASSIGNMENT_CHANGE"
	ChangeTypePriority   RequestChangeType = "PRIORITY_CHANGE"
	ChangeTypeSolution   RequestChangeType = "SOLUTION_CHANGE"
)

// RequestHistory is an immutable audit trail entry for a help request.
type RequestHistory struct {
	ID          string
	RequestID   string
	ChangedByID *string
	ChangeType  RequestChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
