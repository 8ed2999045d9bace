package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecodefixers/help-request-service/internal/domain"
	"github.com/vibecodefixers/help-request-service/internal/repository"
	apperrors "github.com/vibecodefixers/help-request-service/pkg/util"
)

type fakeHelpRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*domain.HelpRequest
}

func newFakeHelpRequestRepo() *fakeHelpRequestRepo {
	return &fakeHelpRequestRepo{requests: make(map[string]*domain.HelpRequest)}
}

func cloneRequest(r *domain.HelpRequest) *domain.HelpRequest {
	clone := *r
	clone.Tags = append([]string(nil), r.Tags...)
	clone.InterestedExperts = domain.NewExpertSet(r.InterestedExperts.Values()...)
	clone.DeclinedExperts = domain.NewExpertSet(r.DeclinedExperts.Values()...)
	return &clone
}

func (f *fakeHelpRequestRepo) Create(_ context.Context, request *domain.HelpRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request.ID = uuid.NewString()
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	f.requests[request.ID] = cloneRequest(request)
	return nil
}

func (f *fakeHelpRequestRepo) GetByID(_ context.Context, id string) (*domain.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneRequest(request), nil
}

func (f *fakeHelpRequestRepo) IncrementViewCount(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if request, ok := f.requests[id]; ok {
		request.ViewCount++
	}
	return nil
}

func (f *fakeHelpRequestRepo) ClaimIfOpen(_ context.Context, id, expertID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok || request.Status != domain.RequestStatusOpen || request.DeclinedExperts.Has(expertID) {
		return false, nil
	}
	request.Status = domain.RequestStatusClaimed
	request.AssignedExpertID = &expertID
	request.ClaimedAt = &now
	return true, nil
}

func (f *fakeHelpRequestRepo) StartIfClaimed(_ context.Context, id, expertID string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok || request.Status != domain.RequestStatusClaimed || !request.IsAssignedTo(expertID) {
		return false, nil
	}
	request.Status = domain.RequestStatusInProgress
	request.StartedAt = &now
	return true, nil
}

func (f *fakeHelpRequestRepo) CompleteIfInProgress(_ context.Context, id, expertID string, solution domain.Solution, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok || request.Status != domain.RequestStatusInProgress || !request.IsAssignedTo(expertID) {
		return false, nil
	}
	request.Status = domain.RequestStatusCompleted
	request.SolutionDescription = solution.Description
	request.SolutionCode = solution.Code
	request.SolutionExplanation = solution.Explanation
	request.CompletedAt = &now
	return true, nil
}

func (f *fakeHelpRequestRepo) AcceptIfCompleted(_ context.Context, id string, rating *int, feedback string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok || request.Status != domain.RequestStatusCompleted {
		return false, nil
	}
	request.SolutionAccepted = true
	request.SatisfactionRating = rating
	if feedback != "" {
		request.Feedback = feedback
	}
	request.SolutionAcceptedAt = &now
	return true, nil
}

func (f *fakeHelpRequestRepo) RejectIfCompleted(_ context.Context, id, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok || request.Status != domain.RequestStatusCompleted {
		return false, nil
	}
	request.Status = domain.RequestStatusInProgress
	request.PreviousAttempts++
	request.Feedback = reason
	return true, nil
}

func (f *fakeHelpRequestRepo) CancelIfActive(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return false, nil
	}
	switch request.Status {
	case domain.RequestStatusOpen, domain.RequestStatusClaimed, domain.RequestStatusInProgress:
		request.Status = domain.RequestStatusCancelled
		return true, nil
	}
	return false, nil
}

func (f *fakeHelpRequestRepo) ReleaseIfClaimed(_ context.Context, id, expertID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok || request.Status != domain.RequestStatusClaimed || !request.IsAssignedTo(expertID) {
		return false, nil
	}
	request.Status = domain.RequestStatusOpen
	request.AssignedExpertID = nil
	return true, nil
}

func (f *fakeHelpRequestRepo) AddDeclinedExpert(_ context.Context, id, expertID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if request, ok := f.requests[id]; ok {
		request.DeclinedExperts.Add(expertID)
	}
	return nil
}

func (f *fakeHelpRequestRepo) AddInterestedExpert(_ context.Context, id, expertID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if request, ok := f.requests[id]; ok {
		request.InterestedExperts.Add(expertID)
	}
	return nil
}

func (f *fakeHelpRequestRepo) ExpireDue(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, request := range f.requests {
		if request.Status != domain.RequestStatusOpen && request.Status != domain.RequestStatusClaimed {
			continue
		}
		if request.ExpiresAt == nil || request.ExpiresAt.After(now) {
			continue
		}
		request.Status = domain.RequestStatusExpired
		count++
	}
	return count, nil
}

func (f *fakeHelpRequestRepo) ListByRequester(_ context.Context, requesterID string, _, _ int) ([]domain.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.HelpRequest
	for _, request := range f.requests {
		if request.RequesterID == requesterID {
			result = append(result, *cloneRequest(request))
		}
	}
	return result, nil
}

func (f *fakeHelpRequestRepo) ListByExpert(_ context.Context, expertID string, _, _ int) ([]domain.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.HelpRequest
	for _, request := range f.requests {
		if request.IsAssignedTo(expertID) {
			result = append(result, *cloneRequest(request))
		}
	}
	return result, nil
}

func (f *fakeHelpRequestRepo) ListOpen(_ context.Context, _ repository.HelpRequestFilter) ([]domain.HelpRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.HelpRequest
	for _, request := range f.requests {
		if request.Status == domain.RequestStatusOpen && request.IsPublic {
			result = append(result, *cloneRequest(request))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		ri, rj := domain.PriorityRank(result[i].Priority), domain.PriorityRank(result[j].Priority)
		if ri != rj {
			return ri > rj
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (f *fakeHelpRequestRepo) Search(_ context.Context, _ string, _ int) ([]domain.HelpRequest, error) {
	return nil, nil
}

type fakeSubscriptionGateway struct {
	mu        sync.Mutex
	tier      domain.SubscriptionTier
	allowed   bool
	recordErr error
	recorded  int
}

func (f *fakeSubscriptionGateway) CheckUsageLimits(context.Context, string) (bool, error) {
	return f.allowed, nil
}

func (f *fakeSubscriptionGateway) GetSubscription(_ context.Context, userID string) (*domain.Subscription, error) {
	return &domain.Subscription{UserID: userID, Tier: f.tier}, nil
}

func (f *fakeSubscriptionGateway) RecordUsage(context.Context, string, domain.UsageKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recordErr != nil {
		return f.recordErr
	}
	f.recorded++
	return nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.RequestHistory
}

func (f *fakeHistoryRepo) Create(_ context.Context, entry *domain.RequestHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = uuid.NewString()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByRequest(_ context.Context, requestID string) ([]domain.RequestHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.RequestHistory
	for _, entry := range f.entries {
		if entry.RequestID == requestID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type serviceFixture struct {
	service      *HelpRequestService
	repo         *fakeHelpRequestRepo
	subscription *fakeSubscriptionGateway
	history      *fakeHistoryRepo
}

func newFixture(tier domain.SubscriptionTier) *serviceFixture {
	repo := newFakeHelpRequestRepo()
	subscription := &fakeSubscriptionGateway{tier: tier, allowed: true}
	history := &fakeHistoryRepo{}
	svc := NewHelpRequestService(HelpRequestDependencies{
		RequestRepo:  repo,
		HistoryRepo:  history,
		Subscription: subscription,
	})
	return &serviceFixture{service: svc, repo: repo, subscription: subscription, history: history}
}

func member(id string) *domain.User {
	return &domain.User{ID: id, Role: domain.UserRoleMember, Status: domain.UserStatusActive}
}

func expert(id string) *domain.User {
	return &domain.User{ID: id, Role: domain.UserRoleExpert, Status: domain.UserStatusActive}
}

func createRequest(t *testing.T, f *serviceFixture, requester *domain.User) *domain.HelpRequest {
	t.Helper()
	request, err := f.service.Create(context.Background(), requester, HelpRequestCreateInput{
		Type:        domain.RequestTypeDebugging,
		Title:       "Nil pointer in worker pool",
		Description: "Panic when the pool drains while a task is still queued.",
		Language:    "go",
		IsPublic:    true,
	})
	require.NoError(t, err)
	return request
}

func TestCreateSetsDefaultsAndRecordsUsage(t *testing.T) {
	f := newFixture(domain.TierFree)
	requester := member("member-1")

	request := createRequest(t, f, requester)

	assert.Equal(t, domain.RequestStatusOpen, request.Status)
	assert.Equal(t, domain.RequestPriorityNormal, request.Priority)
	assert.NotEmpty(t, request.ID)
	require.NotNil(t, request.ExpiresAt)
	assert.True(t, request.ExpiresAt.After(time.Now()))
	assert.Equal(t, 1, f.subscription.recorded)
}

func TestCreateQuotaExceeded(t *testing.T) {
	f := newFixture(domain.TierFree)
	f.subscription.allowed = false

	_, err := f.service.Create(context.Background(), member("member-1"), HelpRequestCreateInput{
		Title:       "Build breaks on CI",
		Description: "Works locally, fails on the runner with a linker error.",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "QUOTA_EXCEEDED"))
	assert.Equal(t, 0, f.subscription.recorded)
}

func TestCreatePriorityEscalation(t *testing.T) {
	cases := []struct {
		name     string
		tier     domain.SubscriptionTier
		given    domain.RequestPriority
		expected domain.RequestPriority
	}{
		{"free keeps normal", domain.TierFree, domain.RequestPriorityNormal, domain.RequestPriorityNormal},
		{"vip boosts normal", domain.TierVIP, domain.RequestPriorityNormal, domain.RequestPriorityHigh},
		{"enterprise boosts default", domain.TierEnterprise, "", domain.RequestPriorityHigh},
		{"vip keeps explicit low", domain.TierVIP, domain.RequestPriorityLow, domain.RequestPriorityLow},
		{"vip keeps explicit critical", domain.TierVIP, domain.RequestPriorityCritical, domain.RequestPriorityCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(tc.tier)
			request, err := f.service.Create(context.Background(), member("member-1"), HelpRequestCreateInput{
				Title:       "Priority handling",
				Description: "Checking how priorities land per plan.",
				Priority:    tc.given,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.expected, request.Priority)
		})
	}
}

func TestCreateSurvivesUsageRecordingFailure(t *testing.T) {
	f := newFixture(domain.TierFree)
	f.subscription.recordErr = errors.New("redis down")

	request := createRequest(t, f, member("member-1"))

	stored, err := f.repo.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusOpen, stored.Status)
}

func TestGetIncrementsViewCount(t *testing.T) {
	f := newFixture(domain.TierFree)
	request := createRequest(t, f, member("member-1"))

	first, err := f.service.Get(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ViewCount)

	second, err := f.service.Get(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ViewCount)
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(domain.TierFree)
	_, err := f.service.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestClaimRequiresExpertRole(t *testing.T) {
	f := newFixture(domain.TierFree)
	request := createRequest(t, f, member("member-1"))

	_, err := f.service.Claim(context.Background(), request.ID, member("member-2"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestClaimAssignsOpenRequest(t *testing.T) {
	f := newFixture(domain.TierFree)
	request := createRequest(t, f, member("member-1"))

	claimed, err := f.service.Claim(context.Background(), request.ID, expert("expert-1"))
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusClaimed, claimed.Status)
	require.NotNil(t, claimed.AssignedExpertID)
	assert.Equal(t, "expert-1", *claimed.AssignedExpertID)
	assert.NotNil(t, claimed.ClaimedAt)
}

func TestClaimRejectedForDeclinedExpert(t *testing.T) {
	f := newFixture(domain.TierFree)
	request := createRequest(t, f, member("member-1"))

	require.NoError(t, f.service.Decline(context.Background(), request.ID, "expert-1"))

	_, err := f.service.Claim(context.Background(), request.ID, expert("expert-1"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	// Other experts are unaffected.
	_, err = f.service.Claim(context.Background(), request.ID, expert("expert-2"))
	require.NoError(t, err)
}

func TestConcurrentClaimSingleWinner(t *testing.T) {
	f := newFixture(domain.TierFree)
	request := createRequest(t, f, member("member-1"))

	const claimers = 16
	var wg sync.WaitGroup
	results := make(chan error, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.service.Claim(context.Background(), request.ID, expert(uuid.NewString()))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	winners := 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
		}
	}
	assert.Equal(t, 1, winners)

	stored, err := f.repo.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusClaimed, stored.Status)
	assert.NotNil(t, stored.AssignedExpertID)
}

func TestStartWorkRequiresAssignedExpert(t *testing.T) {
	f := newFixture(domain.TierFree)
	request := createRequest(t, f, member("member-1"))
	_, err := f.service.Claim(context.Background(), request.ID, expert("expert-1"))
	require.NoError(t, err)

	_, err = f.service.StartWork(context.Background(), request.ID, "expert-2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	started, err := f.service.StartWork(context.Background(), request.ID, "expert-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusInProgress, started.Status)
	assert.NotNil(t, started.StartedAt)
}

func TestSolutionRejectThenResubmitThenAccept(t *testing.T) {
	f := newFixture(domain.TierFree)
	requester := member("member-1")
	request := createRequest(t, f, requester)

	ctx := context.Background()
	_, err := f.service.Claim(ctx, request.ID, expert("expert-1"))
	require.NoError(t, err)
	_, err = f.service.StartWork(ctx, request.ID, "expert-1")
	require.NoError(t, err)

	completed, err := f.service.SubmitSolution(ctx, request.ID, "expert-1", SolutionInput{
		Description: "Guard the drain path",
		Code:        "if task == nil { return }",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCompleted, completed.Status)

	rejected, err := f.service.RejectSolution(ctx, request.ID, requester.ID, "still panics under load")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusInProgress, rejected.Status)
	assert.Equal(t, 1, rejected.PreviousAttempts)

	resubmitted, err := f.service.SubmitSolution(ctx, request.ID, "expert-1", SolutionInput{
		Description: "Drain under the pool lock",
	})
	require.NoError(t, err)
	assert.Equal(t, "Drain under the pool lock", resubmitted.SolutionDescription)

	rating := 4
	accepted, err := f.service.AcceptSolution(ctx, request.ID, requester.ID, &rating, "works now, thanks")
	require.NoError(t, err)
	assert.True(t, accepted.SolutionAccepted)
	require.NotNil(t, accepted.SatisfactionRating)
	assert.Equal(t, 4, *accepted.SatisfactionRating)
	assert.NotNil(t, accepted.SolutionAcceptedAt)
}

func TestAcceptSolutionRatingBounds(t *testing.T) {
	setup := func(t *testing.T) (*serviceFixture, *domain.HelpRequest, *domain.User) {
		t.Helper()
		f := newFixture(domain.TierFree)
		requester := member("member-1")
		request := createRequest(t, f, requester)
		ctx := context.Background()
		_, err := f.service.Claim(ctx, request.ID, expert("expert-1"))
		require.NoError(t, err)
		_, err = f.service.StartWork(ctx, request.ID, "expert-1")
		require.NoError(t, err)
		_, err = f.service.SubmitSolution(ctx, request.ID, "expert-1", SolutionInput{Description: "fix"})
		require.NoError(t, err)
		return f, request, requester
	}

	for _, rating := range []int{0, 6, -1} {
		f, request, requester := setup(t)
		r := rating
		_, err := f.service.AcceptSolution(context.Background(), request.ID, requester.ID, &r, "")
		require.Error(t, err, "rating %d", rating)
		assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	}

	for _, rating := range []int{1, 5} {
		f, request, requester := setup(t)
		r := rating
		accepted, err := f.service.AcceptSolution(context.Background(), request.ID, requester.ID, &r, "")
		require.NoError(t, err, "rating %d", rating)
		assert.Equal(t, rating, *accepted.SatisfactionRating)
	}

	// A nil rating is allowed.
	f, request, requester := setup(t)
	accepted, err := f.service.AcceptSolution(context.Background(), request.ID, requester.ID, nil, "")
	require.NoError(t, err)
	assert.Nil(t, accepted.SatisfactionRating)
}

func TestAcceptSolutionOnlyByRequester(t *testing.T) {
	f := newFixture(domain.TierFree)
	request := createRequest(t, f, member("member-1"))
	ctx := context.Background()
	_, err := f.service.Claim(ctx, request.ID, expert("expert-1"))
	require.NoError(t, err)
	_, err = f.service.StartWork(ctx, request.ID, "expert-1")
	require.NoError(t, err)
	_, err = f.service.SubmitSolution(ctx, request.ID, "expert-1", SolutionInput{Description: "fix"})
	require.NoError(t, err)

	_, err = f.service.AcceptSolution(ctx, request.ID, "expert-1", nil, "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestRejectSolutionOnlyFromCompleted(t *testing.T) {
	f := newFixture(domain.TierFree)
	requester := member("member-1")
	request := createRequest(t, f, requester)

	_, err := f.service.RejectSolution(context.Background(), request.ID, requester.ID, "nothing to reject")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestCancelBlockedAfterCompletion(t *testing.T) {
	f := newFixture(domain.TierFree)
	requester := member("member-1")
	request := createRequest(t, f, requester)
	ctx := context.Background()
	_, err := f.service.Claim(ctx, request.ID, expert("expert-1"))
	require.NoError(t, err)
	_, err = f.service.StartWork(ctx, request.ID, "expert-1")
	require.NoError(t, err)
	_, err = f.service.SubmitSolution(ctx, request.ID, "expert-1", SolutionInput{Description: "fix"})
	require.NoError(t, err)

	_, err = f.service.Cancel(ctx, request.ID, requester.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestCancelOpenRequest(t *testing.T) {
	f := newFixture(domain.TierFree)
	requester := member("member-1")
	request := createRequest(t, f, requester)

	_, err := f.service.Cancel(context.Background(), request.ID, "member-2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	cancelled, err := f.service.Cancel(context.Background(), request.ID, requester.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCancelled, cancelled.Status)
}

func TestExpressInterestIdempotent(t *testing.T) {
	f := newFixture(domain.TierFree)
	request := createRequest(t, f, member("member-1"))
	ctx := context.Background()

	require.NoError(t, f.service.ExpressInterest(ctx, request.ID, "expert-1"))
	require.NoError(t, f.service.ExpressInterest(ctx, request.ID, "expert-1"))
	require.NoError(t, f.service.ExpressInterest(ctx, request.ID, "expert-2"))

	stored, err := f.repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"expert-1", "expert-2"}, stored.InterestedExperts.Values())
}

func TestDeclineIdempotent(t *testing.T) {
	f := newFixture(domain.TierFree)
	request := createRequest(t, f, member("member-1"))
	ctx := context.Background()

	require.NoError(t, f.service.Decline(ctx, request.ID, "expert-1"))
	require.NoError(t, f.service.Decline(ctx, request.ID, "expert-1"))

	stored, err := f.repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"expert-1"}, stored.DeclinedExperts.Values())
	assert.Equal(t, domain.RequestStatusOpen, stored.Status)
}

func TestReleaseClaimReturnsRequestToPool(t *testing.T) {
	f := newFixture(domain.TierFree)
	request := createRequest(t, f, member("member-1"))
	ctx := context.Background()
	_, err := f.service.Claim(ctx, request.ID, expert("expert-1"))
	require.NoError(t, err)

	_, err = f.service.ReleaseClaim(ctx, request.ID, "expert-2")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	released, err := f.service.ReleaseClaim(ctx, request.ID, "expert-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusOpen, released.Status)
	assert.Nil(t, released.AssignedExpertID)

	// The request can be claimed again, including by the same expert.
	_, err = f.service.Claim(ctx, request.ID, expert("expert-1"))
	require.NoError(t, err)
}

func TestCheckExpiredSweepsOnlyDueActiveRequests(t *testing.T) {
	f := newFixture(domain.TierFree)
	ctx := context.Background()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	seed := func(status domain.RequestStatus, expiresAt *time.Time) string {
		request := &domain.HelpRequest{
			RequesterID:       "member-1",
			Status:            status,
			Priority:          domain.RequestPriorityNormal,
			Type:              domain.RequestTypeOther,
			Title:             "seed",
			Description:       "seed",
			IsPublic:          true,
			InterestedExperts: domain.NewExpertSet(),
			DeclinedExperts:   domain.NewExpertSet(),
			ExpiresAt:         expiresAt,
		}
		require.NoError(t, f.repo.Create(ctx, request))
		return request.ID
	}

	dueOpen := seed(domain.RequestStatusOpen, &past)
	dueClaimed := seed(domain.RequestStatusClaimed, &past)
	freshOpen := seed(domain.RequestStatusOpen, &future)
	inProgress := seed(domain.RequestStatusInProgress, &past)
	noDeadline := seed(domain.RequestStatusOpen, nil)

	count, err := f.service.CheckExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	expectStatus := func(id string, status domain.RequestStatus) {
		t.Helper()
		stored, err := f.repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, status, stored.Status)
	}
	expectStatus(dueOpen, domain.RequestStatusExpired)
	expectStatus(dueClaimed, domain.RequestStatusExpired)
	expectStatus(freshOpen, domain.RequestStatusOpen)
	expectStatus(inProgress, domain.RequestStatusInProgress)
	expectStatus(noDeadline, domain.RequestStatusOpen)
}

func TestSearchRequiresQuery(t *testing.T) {
	f := newFixture(domain.TierFree)
	_, err := f.service.Search(context.Background(), "   ", 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestHistoryRecordsStatusChanges(t *testing.T) {
	f := newFixture(domain.TierFree)
	request := createRequest(t, f, member("member-1"))
	ctx := context.Background()
	_, err := f.service.Claim(ctx, request.ID, expert("expert-1"))
	require.NoError(t, err)
	_, err = f.service.StartWork(ctx, request.ID, "expert-1")
	require.NoError(t, err)

	entries, err := f.service.History(ctx, request.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ChangeTypeStatus, entries[0].ChangeType)
}
