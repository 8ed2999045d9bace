package dto

import (
	"time"

	"github.com/vibecodefixers/help-request-service/internal/domain"
)

// CreateHelpRequestRequest payload.
type CreateHelpRequestRequest struct {
	Type        domain.RequestType     `json:"type" validate:"omitempty,oneof=DEBUGGING CODE_REVIEW ARCHITECTURE PERFORMANCE OTHER"`
	Title       string                 `json:"title" validate:"required,min=3,max=200"`
	Description string                 `json:"description" validate:"required,min=10"`
	Language    string                 `json:"language" validate:"max=50"`
	Framework   string                 `json:"framework" validate:"max=50"`
	CodeSnippet string                 `json:"code_snippet"`
	ReproSteps  string                 `json:"repro_steps"`
	Tags        []string               `json:"tags" validate:"max=10,dive,min=1,max=30"`
	IsPublic    *bool                  `json:"is_public"`
	Priority    domain.RequestPriority `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH CRITICAL"`
}

// SubmitSolutionRequest payload.
type SubmitSolutionRequest struct {
	Description string `json:"description" validate:"required,min=10"`
	Code        string `json:"code"`
	Explanation string `json:"explanation"`
}

// AcceptSolutionRequest payload.
type AcceptSolutionRequest struct {
	Rating   *int   `json:"rating"`
	Feedback string `json:"feedback"`
}

// RejectSolutionRequest payload.
type RejectSolutionRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

// HelpRequestSummary response.
type HelpRequestSummary struct {
	ID          string                 `json:"id"`
	Status      domain.RequestStatus   `json:"status"`
	Priority    domain.RequestPriority `json:"priority"`
	Type        domain.RequestType     `json:"type"`
	Title       string                 `json:"title"`
	Language    string                 `json:"language,omitempty"`
	Framework   string                 `json:"framework,omitempty"`
	Tags        []string               `json:"tags,omitempty"`
	IsPublic    bool                   `json:"is_public"`
	ViewCount   int64                  `json:"view_count"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ExpiresAt   *time.Time             `json:"expires_at,omitempty"`
}

// SolutionResponse carries the expert's submission.
type SolutionResponse struct {
	Description string     `json:"description"`
	Code        string     `json:"code,omitempty"`
	Explanation string     `json:"explanation,omitempty"`
	Accepted    bool       `json:"accepted"`
	Rating      *int       `json:"rating,omitempty"`
	Feedback    string     `json:"feedback,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
}

// HelpRequestDetailResponse provides full request info.
type HelpRequestDetailResponse struct {
	ID                string                 `json:"id"`
	RequesterID       string                 `json:"requester_id"`
	AssignedExpertID  *string                `json:"assigned_expert_id,omitempty"`
	Status            domain.RequestStatus   `json:"status"`
	Priority          domain.RequestPriority `json:"priority"`
	Type              domain.RequestType     `json:"type"`
	Title             string                 `json:"title"`
	Description       string                 `json:"description"`
	Language          string                 `json:"language,omitempty"`
	Framework         string                 `json:"framework,omitempty"`
	CodeSnippet       string                 `json:"code_snippet,omitempty"`
	ReproSteps        string                 `json:"repro_steps,omitempty"`
	Tags              []string               `json:"tags,omitempty"`
	IsPublic          bool                   `json:"is_public"`
	Solution          *SolutionResponse      `json:"solution,omitempty"`
	ViewCount         int64                  `json:"view_count"`
	InterestedExperts []string               `json:"interested_experts"`
	PreviousAttempts  int                    `json:"previous_attempts"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
	ClaimedAt         *time.Time             `json:"claimed_at,omitempty"`
	StartedAt         *time.Time             `json:"started_at,omitempty"`
	CompletedAt       *time.Time             `json:"completed_at,omitempty"`
	ExpiresAt         *time.Time             `json:"expires_at,omitempty"`
}

// RequestHistoryResponse audit entry.
type RequestHistoryResponse struct {
	ID          string                   `json:"id"`
	ChangeType  domain.RequestChangeType `json:"change_type"`
	ChangedByID *string                  `json:"changed_by_id,omitempty"`
	OldValue    map[string]any           `json:"old_value"`
	NewValue    map[string]any           `json:"new_value"`
	CreatedAt   time.Time                `json:"created_at"`
}
