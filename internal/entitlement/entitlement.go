package entitlement

import (
	"time"

	"gramload.app/cloud/models"
)

type TierKind string

const (
	KindFree    TierKind = "free"
	KindActive  TierKind = "active"
	KindExpired TierKind = "expired"
)

// Status is derived from account fields on every evaluation and is never
// persisted. Caching it would create a second source of truth that goes
// stale the moment the subscription expires or an order settles.
type Status struct {
	TierKind TierKind
	IsActive bool
	// DaysRemaining is nil for tiers without an expiry.
	DaysRemaining *int
	ExpiresAt     *time.Time
}

type Result struct {
	HasPermission bool
	HasUsage      bool
	Status        Status
}

// Evaluate derives the download entitlement from the account's subscription
// fields at the given instant. It is a pure function: no I/O, no mutation.
// Malformed or missing data resolves to no entitlement, never to access.
func Evaluate(account *models.Account, now time.Time) Result {
	if account == nil || !account.Tier.Paid() {
		return Result{
			HasUsage: account != nil && account.RemainingQuota > 0,
			Status:   Status{TierKind: KindFree},
		}
	}

	status := Status{ExpiresAt: account.TierExpiry}
	if account.TierExpiry == nil {
		// Paid tier without an expiry never lapses.
		status.TierKind = KindActive
		status.IsActive = true
	} else if account.TierExpiry.After(now) {
		status.TierKind = KindActive
		status.IsActive = true
		days := daysUntil(now, *account.TierExpiry)
		status.DaysRemaining = &days
	} else {
		status.TierKind = KindExpired
	}

	hasUsage := account.Tier.UnlimitedQuota() || account.RemainingQuota > 0

	return Result{
		// An active subscription with no remaining quota does not grant
		// permission; both conditions are required.
		HasPermission: status.IsActive && hasUsage,
		HasUsage:      hasUsage,
		Status:        status,
	}
}

// daysUntil rounds up, so one second of remaining subscription still counts
// as one day.
func daysUntil(now, expiry time.Time) int {
	until := expiry.Sub(now)
	days := int(until / (24 * time.Hour))
	if until%(24*time.Hour) > 0 {
		days++
	}
	return days
}
