package models

// Plan describes what a settled order grants: a subscription tier, a number
// of download credits, and how long the tier lasts. Orders reference plans
// by ID; the checkout flow that creates orders lives outside this service.
type Plan struct {
	ID          string
	Name        string
	Tier        Tier
	QuotaCredit int64
	// DurationDays of 0 means the granted tier never expires.
	DurationDays int
	Amount       int64
	Currency     string
}

type Catalog map[string]Plan

func (c Catalog) Lookup(id string) (Plan, bool) {
	plan, ok := c[id]
	return plan, ok
}

func DefaultCatalog() Catalog {
	return Catalog{
		"plan_standard_monthly": {
			ID:           "plan_standard_monthly",
			Name:         "Standard Monthly",
			Tier:         TierStandard,
			QuotaCredit:  200,
			DurationDays: 30,
			Amount:       990,
			Currency:     "usd",
		},
		"plan_premium_monthly": {
			ID:           "plan_premium_monthly",
			Name:         "Premium Monthly",
			Tier:         TierPremium,
			QuotaCredit:  0,
			DurationDays: 30,
			Amount:       1990,
			Currency:     "usd",
		},
		"plan_premium_lifetime": {
			ID:           "plan_premium_lifetime",
			Name:         "Premium Lifetime",
			Tier:         TierPremium,
			QuotaCredit:  0,
			DurationDays: 0,
			Amount:       9900,
			Currency:     "usd",
		},
	}
}
