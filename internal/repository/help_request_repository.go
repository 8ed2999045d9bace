package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vibecodefixers/help-request-service/internal/domain"
)

// HelpRequestFilter captures browse parameters for open requests.
type HelpRequestFilter struct {
	Type      *domain.RequestType
	Priority  *domain.RequestPriority
	Language  *string
	Framework *string
	Tag       *string
	Limit     int
	Offset    int
}

// HelpRequestRepository encapsulates help request persistence. Transition
// methods are conditional single-row updates keyed on the expected status;
// they report false when the guard did not match, which is how concurrent
// writers are serialized.
type HelpRequestRepository interface {
	Create(ctx context.Context, request *domain.HelpRequest) error
	GetByID(ctx context.Context, id string) (*domain.HelpRequest, error)
	IncrementViewCount(ctx context.Context, id string) error

	ClaimIfOpen(ctx context.Context, id, expertID string, now time.Time) (bool, error)
	StartIfClaimed(ctx context.Context, id, expertID string, now time.Time) (bool, error)
	CompleteIfInProgress(ctx context.Context, id, expertID string, solution domain.Solution, now time.Time) (bool, error)
	AcceptIfCompleted(ctx context.Context, id string, rating *int, feedback string, now time.Time) (bool, error)
	RejectIfCompleted(ctx context.Context, id, reason string) (bool, error)
	CancelIfActive(ctx context.Context, id string) (bool, error)
	ReleaseIfClaimed(ctx context.Context, id, expertID string) (bool, error)

	AddDeclinedExpert(ctx context.Context, id, expertID string) error
	AddInterestedExpert(ctx context.Context, id, expertID string) error

	ExpireDue(ctx context.Context, now time.Time) (int64, error)

	ListByRequester(ctx context.Context, requesterID string, limit, offset int) ([]domain.HelpRequest, error)
	ListByExpert(ctx context.Context, expertID string, limit, offset int) ([]domain.HelpRequest, error)
	ListOpen(ctx context.Context, filter HelpRequestFilter) ([]domain.HelpRequest, error)
	Search(ctx context.Context, query string, limit int) ([]domain.HelpRequest, error)
}

type helpRequestRepository struct {
	pool *pgxpool.Pool
}

// NewHelpRequestRepository instantiates repository.
func NewHelpRequestRepository(pool *pgxpool.Pool) HelpRequestRepository {
	return &helpRequestRepository{pool: pool}
}

const requestColumns = `id, requester_id, assigned_expert_id, status, priority, type,
        title, description, language, framework, code_snippet, repro_steps, tags, is_public,
        solution_description, solution_code, solution_explanation, solution_accepted,
        satisfaction_rating, feedback, view_count, interested_experts, declined_experts,
        previous_attempts, created_at, updated_at, claimed_at, started_at, completed_at,
        solution_accepted_at, expires_at`

func (r *helpRequestRepository) Create(ctx context.Context, request *domain.HelpRequest) error {
	const query = `
        INSERT INTO help_requests (requester_id, status, priority, type, title, description,
            language, framework, code_snippet, repro_steps, tags, is_public, expires_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		request.RequesterID,
		request.Status,
		request.Priority,
		request.Type,
		request.Title,
		request.Description,
		request.Language,
		request.Framework,
		request.CodeSnippet,
		request.ReproSteps,
		request.Tags,
		request.IsPublic,
		request.ExpiresAt,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
}

func (r *helpRequestRepository) GetByID(ctx context.Context, id string) (*domain.HelpRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM help_requests WHERE id=$1`, requestColumns)
	row := r.pool.QueryRow(ctx, query, id)
	return scanRequestRow(row)
}

func (r *helpRequestRepository) IncrementViewCount(ctx context.Context, id string) error {
	const query = `UPDATE help_requests SET view_count = view_count + 1 WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *helpRequestRepository) ClaimIfOpen(ctx context.Context, id, expertID string, now time.Time) (bool, error) {
	const query = `
        UPDATE help_requests
        SET assigned_expert_id=$2, status=$3, claimed_at=$4, updated_at=NOW()
        WHERE id=$1 AND status=$5 AND NOT ($2 = ANY(declined_experts))`
	cmd, err := r.pool.Exec(ctx, query, id, expertID, domain.RequestStatusClaimed, now, domain.RequestStatusOpen)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *helpRequestRepository) StartIfClaimed(ctx context.Context, id, expertID string, now time.Time) (bool, error) {
	const query = `
        UPDATE help_requests
        SET status=$3, started_at=$4, updated_at=NOW()
        WHERE id=$1 AND assigned_expert_id=$2 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query, id, expertID, domain.RequestStatusInProgress, now, domain.RequestStatusClaimed)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *helpRequestRepository) CompleteIfInProgress(ctx context.Context, id, expertID string, solution domain.Solution, now time.Time) (bool, error) {
	const query = `
        UPDATE help_requests
        SET status=$3, solution_description=$4, solution_code=$5, solution_explanation=$6,
            completed_at=$7, updated_at=NOW()
        WHERE id=$1 AND assigned_expert_id=$2 AND status=$8`
	cmd, err := r.pool.Exec(ctx, query, id, expertID, domain.RequestStatusCompleted,
		solution.Description, solution.Code, solution.Explanation, now, domain.RequestStatusInProgress)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *helpRequestRepository) AcceptIfCompleted(ctx context.Context, id string, rating *int, feedback string, now time.Time) (bool, error) {
	const query = `
        UPDATE help_requests
        SET solution_accepted=TRUE, satisfaction_rating=$2,
            feedback=CASE WHEN $3 <> '' THEN $3 ELSE feedback END,
            solution_accepted_at=$4, updated_at=NOW()
        WHERE id=$1 AND status=$5`
	cmd, err := r.pool.Exec(ctx, query, id, rating, feedback, now, domain.RequestStatusCompleted)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *helpRequestRepository) RejectIfCompleted(ctx context.Context, id, reason string) (bool, error) {
	const query = `
        UPDATE help_requests
        SET status=$2, previous_attempts=previous_attempts+1, feedback=$3, updated_at=NOW()
        WHERE id=$1 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query, id, domain.RequestStatusInProgress, reason, domain.RequestStatusCompleted)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *helpRequestRepository) CancelIfActive(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE help_requests
        SET status=$2, updated_at=NOW()
        WHERE id=$1 AND status = ANY($3)`
	active := []string{
		string(domain.RequestStatusOpen),
		string(domain.RequestStatusClaimed),
		string(domain.RequestStatusInProgress),
	}
	cmd, err := r.pool.Exec(ctx, query, id, domain.RequestStatusCancelled, active)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *helpRequestRepository) ReleaseIfClaimed(ctx context.Context, id, expertID string) (bool, error) {
	const query = `
        UPDATE help_requests
        SET status=$3, assigned_expert_id=NULL, updated_at=NOW()
        WHERE id=$1 AND assigned_expert_id=$2 AND status=$4`
	cmd, err := r.pool.Exec(ctx, query, id, expertID, domain.RequestStatusOpen, domain.RequestStatusClaimed)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *helpRequestRepository) AddDeclinedExpert(ctx context.Context, id, expertID string) error {
	const query = `
        UPDATE help_requests
        SET declined_experts = array_append(declined_experts, $2), updated_at=NOW()
        WHERE id=$1 AND NOT ($2 = ANY(declined_experts))`
	_, err := r.pool.Exec(ctx, query, id, expertID)
	return err
}

func (r *helpRequestRepository) AddInterestedExpert(ctx context.Context, id, expertID string) error {
	const query = `
        UPDATE help_requests
        SET interested_experts = array_append(interested_experts, $2), updated_at=NOW()
        WHERE id=$1 AND NOT ($2 = ANY(interested_experts))`
	_, err := r.pool.Exec(ctx, query, id, expertID)
	return err
}

func (r *helpRequestRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	const query = `
        UPDATE help_requests
        SET status=$1, updated_at=NOW()
        WHERE status = ANY($2) AND expires_at IS NOT NULL AND expires_at <= $3`
	sweepable := []string{
		string(domain.RequestStatusOpen),
		string(domain.RequestStatusClaimed),
	}
	cmd, err := r.pool.Exec(ctx, query, domain.RequestStatusExpired, sweepable, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *helpRequestRepository) ListByRequester(ctx context.Context, requesterID string, limit, offset int) ([]domain.HelpRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM help_requests WHERE requester_id=$1
        ORDER BY created_at DESC LIMIT %d OFFSET %d`, requestColumns, normalizeLimit(limit), normalizeOffset(offset))
	rows, err := r.pool.Query(ctx, query, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *helpRequestRepository) ListByExpert(ctx context.Context, expertID string, limit, offset int) ([]domain.HelpRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM help_requests WHERE assigned_expert_id=$1
        ORDER BY created_at DESC LIMIT %d OFFSET %d`, requestColumns, normalizeLimit(limit), normalizeOffset(offset))
	rows, err := r.pool.Query(ctx, query, expertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *helpRequestRepository) ListOpen(ctx context.Context, filter HelpRequestFilter) ([]domain.HelpRequest, error) {
	clauses := []string{"status=$1", "is_public=TRUE"}
	args := []any{domain.RequestStatusOpen}

	if filter.Type != nil {
		args = append(args, *filter.Type)
		clauses = append(clauses, fmt.Sprintf("type=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Language != nil {
		args = append(args, *filter.Language)
		clauses = append(clauses, fmt.Sprintf("LOWER(language)=LOWER($%d)", len(args)))
	}
	if filter.Framework != nil {
		args = append(args, *filter.Framework)
		clauses = append(clauses, fmt.Sprintf("LOWER(framework)=LOWER($%d)", len(args)))
	}
	if filter.Tag != nil {
		args = append(args, *filter.Tag)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM help_requests WHERE %s
        ORDER BY CASE priority
            WHEN 'CRITICAL' THEN 4
            WHEN 'HIGH' THEN 3
            WHEN 'NORMAL' THEN 2
            WHEN 'LOW' THEN 1
            ELSE 0 END DESC, created_at DESC
        LIMIT %d OFFSET %d`,
		requestColumns, strings.Join(clauses, " AND "), normalizeLimit(filter.Limit), normalizeOffset(filter.Offset))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (r *helpRequestRepository) Search(ctx context.Context, query string, limit int) ([]domain.HelpRequest, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	sql := fmt.Sprintf(`SELECT %s FROM help_requests
        WHERE is_public=TRUE AND (
            LOWER(title) LIKE $1 OR LOWER(description) LIKE $1 OR
            LOWER(language) LIKE $1 OR LOWER(framework) LIKE $1 OR
            EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE LOWER(tag) LIKE $1)
        )
        ORDER BY created_at DESC LIMIT %d`, requestColumns, normalizeLimit(limit))

	rows, err := r.pool.Query(ctx, sql, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 20
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequestRow(row rowScanner) (*domain.HelpRequest, error) {
	var request domain.HelpRequest
	var interested, declined []string
	if err := row.Scan(
		&request.ID,
		&request.RequesterID,
		&request.AssignedExpertID,
		&request.Status,
		&request.Priority,
		&request.Type,
		&request.Title,
		&request.Description,
		&request.Language,
		&request.Framework,
		&request.CodeSnippet,
		&request.ReproSteps,
		&request.Tags,
		&request.IsPublic,
		&request.SolutionDescription,
		&request.SolutionCode,
		&request.SolutionExplanation,
		&request.SolutionAccepted,
		&request.SatisfactionRating,
		&request.Feedback,
		&request.ViewCount,
		&interested,
		&declined,
		&request.PreviousAttempts,
		&request.CreatedAt,
		&request.UpdatedAt,
		&request.ClaimedAt,
		&request.StartedAt,
		&request.CompletedAt,
		&request.SolutionAcceptedAt,
		&request.ExpiresAt,
	); err != nil {
		return nil, err
	}
	request.InterestedExperts = domain.NewExpertSet(interested...)
	request.DeclinedExperts = domain.NewExpertSet(declined...)
	return &request, nil
}

func scanRequests(rows pgx.Rows) ([]domain.HelpRequest, error) {
	var result []domain.HelpRequest
	for rows.Next() {
		request, err := scanRequestRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *request)
	}
	return result, rows.Err()
}
