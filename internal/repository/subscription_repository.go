package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vibecodefixers/help-request-service/internal/domain"
)

// SubscriptionRepository stores plan membership per user.
type SubscriptionRepository interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error)
	Upsert(ctx context.Context, subscription *domain.Subscription) error
}

type subscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository returns a Postgres-backed implementation.
func NewSubscriptionRepository(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepository{pool: pool}
}

func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	const query = `
        SELECT id, user_id, tier, created_at, updated_at
        FROM subscriptions WHERE user_id=$1`
	var subscription domain.Subscription
	if err := r.pool.QueryRow(ctx, query, userID).Scan(
		&subscription.ID,
		&subscription.UserID,
		&subscription.Tier,
		&subscription.CreatedAt,
		&subscription.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *subscriptionRepository) Upsert(ctx context.Context, subscription *domain.Subscription) error {
	const query = `
        INSERT INTO subscriptions (user_id, tier)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET tier=EXCLUDED.tier, updated_at=NOW()
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		subscription.UserID,
		subscription.Tier,
	).Scan(&subscription.ID, &subscription.CreatedAt, &subscription.UpdatedAt)
}
