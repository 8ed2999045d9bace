package domain

import "time"

// SubscriptionTier enumerates billing plans.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPro        SubscriptionTier = "pro"
	TierVIP        SubscriptionTier = "vip"
	TierEnterprise SubscriptionTier = "enterprise"
)

// PriorityBoosted reports whether the tier gets the silent NORMAL -> HIGH
// priority upgrade on new requests.
func (t SubscriptionTier) PriorityBoosted() bool {
	return t == TierVIP || t == TierEnterprise
}

// Subscription is a user's active plan.
type Subscription struct {
	ID        string
	UserID    string
	Tier      SubscriptionTier
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UsageKind labels metered operations against a subscription.
type UsageKind string

const (
	UsageKindQuestion UsageKind = "question"
)
