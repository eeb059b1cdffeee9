package storage

import (
	"context"
	"errors"
	"time"

	"gramload.app/cloud/models"
)

// ErrOrderConflict is returned when a settlement targets an order in a
// terminal state other than paid; the order state machine has no edge out
// of failed, canceled or refunded.
var ErrOrderConflict = errors.New("order is in a terminal state")

type Storage interface {
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	FindAccountByToken(ctx context.Context, token string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error

	// DebitQuota atomically spends one download credit, refusing to take
	// the quota negative. It reports the remaining quota and whether the
	// debit happened.
	DebitQuota(ctx context.Context, accountID string) (remaining int64, debited bool, err error)

	GetOrder(ctx context.Context, id string) (*models.Order, error)
	SaveOrder(ctx context.Context, order *models.Order) error

	// SettleOrder marks a pending order paid and applies the plan's grant
	// to the owning account in one unit of work; both writes commit
	// together or neither does. Concurrent settlements of the same order
	// are serialized, so at most one delivery credits the account; the
	// others report alreadyPaid.
	SettleOrder(ctx context.Context, orderID, paymentID string, paidAt time.Time, plan models.Plan) (alreadyPaid bool, err error)

	Close() error
}

// applyGrant computes the account fields after a plan grant. An unexpired
// run of the same tier is extended rather than restarted; a plan without a
// duration clears the expiry entirely.
func applyGrant(tier models.Tier, expiry *time.Time, quota int64, plan models.Plan, paidAt time.Time) (models.Tier, *time.Time, int64) {
	quota += plan.QuotaCredit

	if plan.DurationDays == 0 {
		return plan.Tier, nil, quota
	}

	start := paidAt
	if tier == plan.Tier && expiry != nil && expiry.After(paidAt) {
		start = *expiry
	}
	newExpiry := start.AddDate(0, 0, plan.DurationDays)
	return plan.Tier, &newExpiry, quota
}
