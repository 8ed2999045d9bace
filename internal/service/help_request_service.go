package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/vibecodefixers/help-request-service/internal/domain"
	"github.com/vibecodefixers/help-request-service/internal/events"
	"github.com/vibecodefixers/help-request-service/internal/repository"
	apperrors "github.com/vibecodefixers/help-request-service/pkg/util"
)

// SubscriptionGateway is the narrow billing interface the lifecycle consumes.
type SubscriptionGateway interface {
	CheckUsageLimits(ctx context.Context, userID string) (bool, error)
	GetSubscription(ctx context.Context, userID string) (*domain.Subscription, error)
	RecordUsage(ctx context.Context, userID string, kind domain.UsageKind) error
}

// HelpRequestService owns the help request state machine.
type HelpRequestService struct {
	requests      repository.HelpRequestRepository
	history       repository.RequestHistoryRepository
	subscriptions SubscriptionGateway
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	requestTTL    time.Duration
}

// HelpRequestDependencies bundles collaborators for the service.
type HelpRequestDependencies struct {
	RequestRepo  repository.HelpRequestRepository
	HistoryRepo  repository.RequestHistoryRepository
	Subscription SubscriptionGateway
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	RequestTTL   time.Duration
}

// HelpRequestCreateInput describes request creation payload.
type HelpRequestCreateInput struct {
	Type        domain.RequestType
	Title       string
	Description string
	Language    string
	Framework   string
	CodeSnippet string
	ReproSteps  string
	Tags        []string
	IsPublic    bool
	Priority    domain.RequestPriority
}

// SolutionInput describes the expert's submission.
type SolutionInput struct {
	Description string
	Code        string
	Explanation string
}

// OpenRequestFilter describes browse filters for the public board.
type OpenRequestFilter struct {
	Type      *domain.RequestType
	Priority  *domain.RequestPriority
	Language  *string
	Framework *string
	Tag       *string
	Limit     int
	Offset    int
}

// NewHelpRequestService constructs the service.
func NewHelpRequestService(deps HelpRequestDependencies) *HelpRequestService {
	ttl := deps.RequestTTL
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HelpRequestService{
		requests:      deps.RequestRepo,
		history:       deps.HistoryRepo,
		subscriptions: deps.Subscription,
		dispatcher:    deps.Dispatcher,
		logger:        logger,
		requestTTL:    ttl,
	}
}

// Create opens a new help request for a requester. The usage-limit check and
// tier lookup both complete before anything is persisted; usage is recorded
// only once the request is durably created.
func (s *HelpRequestService) Create(ctx context.Context, requester *domain.User, input HelpRequestCreateInput) (*domain.HelpRequest, error) {
	allowed, err := s.subscriptions.CheckUsageLimits(ctx, requester.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !allowed {
		return nil, apperrors.NewQuotaExceeded("question quota reached for current period", map[string]any{"user_id": requester.ID})
	}

	subscription, err := s.subscriptions.GetSubscription(ctx, requester.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.RequestPriorityNormal
	}
	// Privileged tiers get a silent bump, but an explicit choice is never
	// overridden.
	if priority == domain.RequestPriorityNormal && subscription.Tier.PriorityBoosted() {
		priority = domain.RequestPriorityHigh
	}

	requestType := input.Type
	if requestType == "" {
		requestType = domain.RequestTypeOther
	}

	expiresAt := time.Now().Add(s.requestTTL)
	request := &domain.HelpRequest{
		RequesterID:       requester.ID,
		Status:            domain.RequestStatusOpen,
		Priority:          priority,
		Type:              requestType,
		Title:             strings.TrimSpace(input.Title),
		Description:       strings.TrimSpace(input.Description),
		Language:          input.Language,
		Framework:         input.Framework,
		CodeSnippet:       input.CodeSnippet,
		ReproSteps:        input.ReproSteps,
		Tags:              input.Tags,
		IsPublic:          input.IsPublic,
		InterestedExperts: domain.NewExpertSet(),
		DeclinedExperts:   domain.NewExpertSet(),
		ExpiresAt:         &expiresAt,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, apperrors.MapError(err)
	}

	if err := s.subscriptions.RecordUsage(ctx, requester.ID, domain.UsageKindQuestion); err != nil {
		// The request is already durable; the gateway queues the increment
		// for retry, so the create is not rolled back.
		s.logger.Warn("usage recording failed after create",
			zap.String("request_id", request.ID), zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: request.ID,
		ActorID:   requester.ID,
		Payload: events.RequestCreatedPayload{
			Priority: request.Priority,
			Type:     request.Type,
			Title:    request.Title,
			IsPublic: request.IsPublic,
		},
	})
	return request, nil
}

// Get fetches a request by id. Every successful fetch counts a view,
// including the owner's and the assigned expert's own.
func (s *HelpRequestService) Get(ctx context.Context, id string) (*domain.HelpRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requests.IncrementViewCount(ctx, id); err != nil {
		return nil, apperrors.MapError(err)
	}
	request.ViewCount++
	return request, nil
}

// Claim assigns an OPEN request to an expert. Racing claimers are serialized
// by the conditional update; the loser observes a failed guard.
func (s *HelpRequestService) Claim(ctx context.Context, id string, expert *domain.User) (*domain.HelpRequest, error) {
	if !expert.IsExpert() {
		return nil, apperrors.NewForbidden("expert account required")
	}
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.DeclinedExperts.Has(expert.ID) {
		return nil, apperrors.NewForbidden("request was previously declined by this expert")
	}
	if request.Status != domain.RequestStatusOpen {
		return nil, apperrors.NewInvalidTransition("request is not open", map[string]any{"status": request.Status})
	}

	now := time.Now()
	claimed, err := s.requests.ClaimIfOpen(ctx, id, expert.ID, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !claimed {
		return nil, apperrors.NewInvalidTransition("request already claimed", nil)
	}

	request.AssignedExpertID = &expert.ID
	request.Status = domain.RequestStatusClaimed
	request.ClaimedAt = &now
	s.recordStatusChange(ctx, expert.ID, request.ID, domain.RequestStatusOpen, domain.RequestStatusClaimed)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestClaimed,
		RequestID: request.ID,
		ActorID:   expert.ID,
		Payload:   events.RequestClaimedPayload{ExpertID: expert.ID},
	})
	return request, nil
}

// StartWork moves a CLAIMED request to IN_PROGRESS for its assigned expert.
func (s *HelpRequestService) StartWork(ctx context.Context, id, expertID string) (*domain.HelpRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !request.IsAssignedTo(expertID) {
		return nil, apperrors.NewForbidden("request is not assigned to this expert")
	}
	if request.Status != domain.RequestStatusClaimed {
		return nil, apperrors.NewInvalidTransition("request is not claimed", map[string]any{"status": request.Status})
	}

	now := time.Now()
	started, err := s.requests.StartIfClaimed(ctx, id, expertID, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !started {
		return nil, apperrors.NewInvalidTransition("request is not claimed", nil)
	}

	request.Status = domain.RequestStatusInProgress
	request.StartedAt = &now
	s.recordStatusChange(ctx, expertID, request.ID, domain.RequestStatusClaimed, domain.RequestStatusInProgress)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestStarted,
		RequestID: request.ID,
		ActorID:   expertID,
		Payload: events.StatusChangedPayload{
			OldStatus: domain.RequestStatusClaimed,
			NewStatus: domain.RequestStatusInProgress,
		},
	})
	return request, nil
}

// SubmitSolution completes an IN_PROGRESS request with the expert's answer.
// On resubmission after a rejection the previous solution is overwritten.
func (s *HelpRequestService) SubmitSolution(ctx context.Context, id, expertID string, input SolutionInput) (*domain.HelpRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !request.IsAssignedTo(expertID) {
		return nil, apperrors.NewForbidden("request is not assigned to this expert")
	}
	if request.Status != domain.RequestStatusInProgress {
		return nil, apperrors.NewInvalidTransition("request is not in progress", map[string]any{"status": request.Status})
	}

	solution := domain.Solution{
		Description: strings.TrimSpace(input.Description),
		Code:        input.Code,
		Explanation: input.Explanation,
	}
	now := time.Now()
	completed, err := s.requests.CompleteIfInProgress(ctx, id, expertID, solution, now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !completed {
		return nil, apperrors.NewInvalidTransition("request is not in progress", nil)
	}

	request.Status = domain.RequestStatusCompleted
	request.SolutionDescription = solution.Description
	request.SolutionCode = solution.Code
	request.SolutionExplanation = solution.Explanation
	request.CompletedAt = &now
	s.recordStatusChange(ctx, expertID, request.ID, domain.RequestStatusInProgress, domain.RequestStatusCompleted)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventSolutionSubmitted,
		RequestID: request.ID,
		ActorID:   expertID,
		Payload: events.SolutionSubmittedPayload{
			ExpertID: expertID,
			Attempt:  request.PreviousAttempts + 1,
		},
	})
	return request, nil
}

// AcceptSolution lets the original requester accept a delivered solution.
func (s *HelpRequestService) AcceptSolution(ctx context.Context, id, userID string, rating *int, feedback string) (*domain.HelpRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != userID {
		return nil, apperrors.NewForbidden("only the requester may accept a solution")
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": *rating})
	}
	if request.Status != domain.RequestStatusCompleted {
		return nil, apperrors.NewInvalidTransition("no solution awaiting acceptance", map[string]any{"status": request.Status})
	}

	now := time.Now()
	accepted, err := s.requests.AcceptIfCompleted(ctx, id, rating, strings.TrimSpace(feedback), now)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !accepted {
		return nil, apperrors.NewInvalidTransition("no solution awaiting acceptance", nil)
	}

	request.SolutionAccepted = true
	request.SatisfactionRating = rating
	if feedback != "" {
		request.Feedback = strings.TrimSpace(feedback)
	}
	request.SolutionAcceptedAt = &now
	s.publishEvent(ctx, events.Event{
		Type:      events.EventSolutionAccepted,
		RequestID: request.ID,
		ActorID:   userID,
		Payload:   events.SolutionAcceptedPayload{Rating: rating},
	})
	return request, nil
}

// RejectSolution returns a COMPLETED request to IN_PROGRESS. This is the only
// backward transition in the machine; prior solution fields stay in place for
// the expert to overwrite on resubmission.
func (s *HelpRequestService) RejectSolution(ctx context.Context, id, userID, reason string) (*domain.HelpRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != userID {
		return nil, apperrors.NewForbidden("only the requester may reject a solution")
	}
	if request.Status != domain.RequestStatusCompleted {
		return nil, apperrors.NewInvalidTransition("no solution to reject", map[string]any{"status": request.Status})
	}

	reason = strings.TrimSpace(reason)
	rejected, err := s.requests.RejectIfCompleted(ctx, id, reason)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !rejected {
		return nil, apperrors.NewInvalidTransition("no solution to reject", nil)
	}

	request.Status = domain.RequestStatusInProgress
	request.PreviousAttempts++
	request.Feedback = reason
	s.recordStatusChange(ctx, userID, request.ID, domain.RequestStatusCompleted, domain.RequestStatusInProgress)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventSolutionRejected,
		RequestID: request.ID,
		ActorID:   userID,
		Payload: events.SolutionRejectedPayload{
			Reason:           reason,
			PreviousAttempts: request.PreviousAttempts,
		},
	})
	return request, nil
}

// Cancel closes a request that has not yet received a solution.
func (s *HelpRequestService) Cancel(ctx context.Context, id, userID string) (*domain.HelpRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.RequesterID != userID {
		return nil, apperrors.NewForbidden("only the requester may cancel")
	}
	if !domain.CanTransition(request.Status, domain.RequestStatusCancelled) {
		return nil, apperrors.NewInvalidTransition("request cannot be cancelled in current status", map[string]any{"status": request.Status})
	}

	oldStatus := request.Status
	cancelled, err := s.requests.CancelIfActive(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !cancelled {
		return nil, apperrors.NewInvalidTransition("request cannot be cancelled in current status", nil)
	}

	request.Status = domain.RequestStatusCancelled
	s.recordStatusChange(ctx, userID, request.ID, oldStatus, domain.RequestStatusCancelled)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestCancelled,
		RequestID: request.ID,
		ActorID:   userID,
		Payload: events.StatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: domain.RequestStatusCancelled,
		},
	})
	return request, nil
}

// Decline records that an expert opted out of a request, permanently barring
// them from claiming it. Repeat calls are no-ops.
func (s *HelpRequestService) Decline(ctx context.Context, id, expertID string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.requests.AddDeclinedExpert(ctx, id, expertID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ExpressInterest records that an expert is watching a request. Repeat calls
// are no-ops.
func (s *HelpRequestService) ExpressInterest(ctx context.Context, id, expertID string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.requests.AddInterestedExpert(ctx, id, expertID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// ReleaseClaim lets the assigned expert hand a CLAIMED request back to the
// pool so it does not stay stuck if they never start work.
func (s *HelpRequestService) ReleaseClaim(ctx context.Context, id, expertID string) (*domain.HelpRequest, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !request.IsAssignedTo(expertID) {
		return nil, apperrors.NewForbidden("request is not assigned to this expert")
	}
	if request.Status != domain.RequestStatusClaimed {
		return nil, apperrors.NewInvalidTransition("only a claimed request can be released", map[string]any{"status": request.Status})
	}

	released, err := s.requests.ReleaseIfClaimed(ctx, id, expertID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !released {
		return nil, apperrors.NewInvalidTransition("only a claimed request can be released", nil)
	}

	request.Status = domain.RequestStatusOpen
	request.AssignedExpertID = nil
	s.recordStatusChange(ctx, expertID, request.ID, domain.RequestStatusClaimed, domain.RequestStatusOpen)
	s.publishEvent(ctx, events.Event{
		Type:      events.EventClaimReleased,
		RequestID: request.ID,
		ActorID:   expertID,
		Payload: events.StatusChangedPayload{
			OldStatus: domain.RequestStatusClaimed,
			NewStatus: domain.RequestStatusOpen,
		},
	})
	return request, nil
}

// CheckExpired sweeps OPEN and CLAIMED requests whose deadline passed into
// EXPIRED and reports how many were moved.
func (s *HelpRequestService) CheckExpired(ctx context.Context) (int64, error) {
	count, err := s.requests.ExpireDue(ctx, time.Now())
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if count > 0 {
		s.publishEvent(ctx, events.Event{
			Type:    events.EventRequestsExpired,
			Payload: events.RequestsExpiredPayload{Count: count},
		})
	}
	return count, nil
}

// ListOpen returns public OPEN requests, most urgent and most recent first.
func (s *HelpRequestService) ListOpen(ctx context.Context, filter OpenRequestFilter) ([]domain.HelpRequest, error) {
	repoFilter := repository.HelpRequestFilter{
		Type:      filter.Type,
		Priority:  filter.Priority,
		Language:  filter.Language,
		Framework: filter.Framework,
		Tag:       filter.Tag,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	}
	result, err := s.requests.ListOpen(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// Search matches public requests by substring across title, description,
// tags, language and framework. Result size is capped.
func (s *HelpRequestService) Search(ctx context.Context, query string, limit int) ([]domain.HelpRequest, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperrors.NewValidationError("search query required", nil)
	}
	result, err := s.requests.Search(ctx, query, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListForRequester returns the requester's own requests.
func (s *HelpRequestService) ListForRequester(ctx context.Context, requesterID string, limit, offset int) ([]domain.HelpRequest, error) {
	result, err := s.requests.ListByRequester(ctx, requesterID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ListForExpert returns requests currently or previously assigned to the expert.
func (s *HelpRequestService) ListForExpert(ctx context.Context, expertID string, limit, offset int) ([]domain.HelpRequest, error) {
	result, err := s.requests.ListByExpert(ctx, expertID, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// History returns the audit trail for a request.
func (s *HelpRequestService) History(ctx context.Context, id string) ([]domain.RequestHistory, error) {
	if s.history == nil {
		return []domain.RequestHistory{}, nil
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByRequest(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *HelpRequestService) load(ctx context.Context, id string) (*domain.HelpRequest, error) {
	request, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("help request", map[string]any{"request_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return request, nil
}

func (s *HelpRequestService) recordStatusChange(ctx context.Context, actorID, requestID string, oldStatus, newStatus domain.RequestStatus) {
	if s.history == nil {
		return
	}
	entry := &domain.RequestHistory{
		RequestID:   requestID,
		ChangedByID: &actorID,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue:    map[string]any{"status": oldStatus},
		NewValue:    map[string]any{"status": newStatus},
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("history entry failed",
			zap.String("request_id", requestID), zap.Error(err))
	}
}

func (s *HelpRequestService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
