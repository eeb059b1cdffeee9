package entitlement

import (
	"testing"
	"time"

	"gramload.app/cloud/models"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		account        *models.Account
		wantPermission bool
		wantUsage      bool
		wantKind       TierKind
		wantActive     bool
	}{
		{
			name:     "nil account",
			account:  nil,
			wantKind: KindFree,
		},
		{
			name:      "free tier account",
			account:   &models.Account{ID: "a1", Tier: models.TierFree, RemainingQuota: 10},
			wantUsage: true,
			wantKind:  KindFree,
		},
		{
			name: "active standard with quota",
			account: &models.Account{
				ID: "a2", Tier: models.TierStandard,
				TierExpiry:     timePtr(now.AddDate(0, 0, 30)),
				RemainingQuota: 50,
			},
			wantPermission: true,
			wantUsage:      true,
			wantKind:       KindActive,
			wantActive:     true,
		},
		{
			name: "active standard with zero quota is not enough",
			account: &models.Account{
				ID: "a3", Tier: models.TierStandard,
				TierExpiry:     timePtr(now.AddDate(0, 0, 30)),
				RemainingQuota: 0,
			},
			wantKind:   KindActive,
			wantActive: true,
		},
		{
			name: "expired standard",
			account: &models.Account{
				ID: "a4", Tier: models.TierStandard,
				TierExpiry:     timePtr(now.AddDate(0, 0, -1)),
				RemainingQuota: 50,
			},
			wantUsage: true,
			wantKind:  KindExpired,
		},
		{
			name: "premium ignores quota",
			account: &models.Account{
				ID: "a5", Tier: models.TierPremium,
				TierExpiry:     timePtr(now.AddDate(0, 0, 30)),
				RemainingQuota: 0,
			},
			wantPermission: true,
			wantUsage:      true,
			wantKind:       KindActive,
			wantActive:     true,
		},
		{
			name: "lifetime premium has no expiry",
			account: &models.Account{
				ID: "a6", Tier: models.TierPremium,
			},
			wantPermission: true,
			wantUsage:      true,
			wantKind:       KindActive,
			wantActive:     true,
		},
		{
			name:     "unknown tier string is treated as free",
			account:  &models.Account{ID: "a7", Tier: models.Tier("vip-legacy"), RemainingQuota: 0},
			wantKind: KindFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Evaluate(tt.account, now)

			if result.HasPermission != tt.wantPermission {
				t.Errorf("HasPermission = %v, want %v", result.HasPermission, tt.wantPermission)
			}
			if result.HasUsage != tt.wantUsage {
				t.Errorf("HasUsage = %v, want %v", result.HasUsage, tt.wantUsage)
			}
			if result.Status.TierKind != tt.wantKind {
				t.Errorf("TierKind = %s, want %s", result.Status.TierKind, tt.wantKind)
			}
			if result.Status.IsActive != tt.wantActive {
				t.Errorf("IsActive = %v, want %v", result.Status.IsActive, tt.wantActive)
			}
		})
	}
}

func TestEvaluate_DaysRemaining(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry *time.Time
		want   *int
	}{
		{name: "no expiry means nil days", expiry: nil, want: nil},
		{name: "exactly 30 days", expiry: timePtr(now.AddDate(0, 0, 30)), want: intPtr(30)},
		{name: "partial day rounds up", expiry: timePtr(now.Add(25 * time.Hour)), want: intPtr(2)},
		{name: "one second left still counts as a day", expiry: timePtr(now.Add(time.Second)), want: intPtr(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account := &models.Account{
				ID: "a", Tier: models.TierStandard,
				TierExpiry:     tt.expiry,
				RemainingQuota: 10,
			}
			result := Evaluate(account, now)

			switch {
			case tt.want == nil && result.Status.DaysRemaining != nil:
				t.Errorf("DaysRemaining = %d, want nil", *result.Status.DaysRemaining)
			case tt.want != nil && result.Status.DaysRemaining == nil:
				t.Errorf("DaysRemaining = nil, want %d", *tt.want)
			case tt.want != nil && *result.Status.DaysRemaining != *tt.want:
				t.Errorf("DaysRemaining = %d, want %d", *result.Status.DaysRemaining, *tt.want)
			}
		})
	}
}

func TestEvaluate_IsPure(t *testing.T) {
	now := time.Now()
	expiry := now.AddDate(0, 0, 7)
	account := &models.Account{
		ID: "a", Tier: models.TierStandard,
		TierExpiry:     &expiry,
		RemainingQuota: 5,
	}

	first := Evaluate(account, now)
	for i := 0; i < 10; i++ {
		again := Evaluate(account, now)
		if again.HasPermission != first.HasPermission ||
			again.HasUsage != first.HasUsage ||
			again.Status.TierKind != first.Status.TierKind ||
			*again.Status.DaysRemaining != *first.Status.DaysRemaining {
			t.Fatalf("Evaluation %d differed: %+v vs %+v", i, again, first)
		}
	}
	if account.RemainingQuota != 5 {
		t.Error("Evaluate must not mutate the account")
	}
}

func intPtr(i int) *int { return &i }
