package models

import "time"

type Tier string

const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Paid reports whether the tier is a purchasable one. Anything else is
// treated as free.
func (t Tier) Paid() bool {
	return t == TierStandard || t == TierPremium
}

// UnlimitedQuota reports whether the tier is exempt from download metering.
func (t Tier) UnlimitedQuota() bool {
	return t == TierPremium
}

// Quality returns the content quality served to an account on this tier
// while its subscription is active.
func (t Tier) Quality() QualityTier {
	switch t {
	case TierPremium:
		return QualityOriginal
	case TierStandard:
		return QualityHD
	default:
		return QualitySD
	}
}

type Account struct {
	ID       string
	Email    string
	APIToken string

	Tier Tier
	// TierExpiry is nil for tiers that never expire.
	TierExpiry     *time.Time
	RemainingQuota int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
