package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gramload.app/cloud/internal/logger"
	"gramload.app/cloud/models"
	"gramload.app/cloud/storage"
)

// StatusSuccess is the gateway status value that triggers settlement; any
// other status is acknowledged without touching the order.
const StatusSuccess = "success"

type Outcome struct {
	// Settled means this delivery credited the account.
	Settled bool
	// Duplicate means the order was already paid and the delivery was a
	// no-op.
	Duplicate bool

	Order *models.Order
	Plan  models.Plan
}

// Processor verifies, de-duplicates and applies payment gateway callbacks.
// Errors it returns wrap exactly one of ErrValidation, ErrNotFound or
// ErrRetryable so the transport layer can map them to the gateway's retry
// contract.
type Processor struct {
	store     storage.Storage
	nonces    NonceStore
	plans     models.Catalog
	secret    string
	freshness time.Duration

	now func() time.Time
}

func NewProcessor(store storage.Storage, nonces NonceStore, plans models.Catalog, secret string, freshness time.Duration) *Processor {
	if freshness <= 0 {
		freshness = 5 * time.Minute
	}
	return &Processor{
		store:     store,
		nonces:    nonces,
		plans:     plans,
		secret:    secret,
		freshness: freshness,
		now:       time.Now,
	}
}

func (p *Processor) Process(ctx context.Context, payload *Payload) (Outcome, error) {
	now := p.now()

	// Freshness is checked regardless of signature validity.
	age := now.Unix() - payload.Timestamp
	if age < 0 {
		age = -age
	}
	if time.Duration(age)*time.Second > p.freshness {
		return Outcome{}, fmt.Errorf("%w: timestamp %d is outside the freshness window", ErrValidation, payload.Timestamp)
	}

	if !Verify(payload.Fields(), p.secret) {
		return Outcome{}, fmt.Errorf("%w: signature mismatch", ErrValidation)
	}

	if payload.Status != StatusSuccess {
		logger.Info("Ignoring non-success callback", map[string]interface{}{
			"order_id": payload.OrderID,
			"state":    payload.Status,
		})
		return Outcome{}, nil
	}

	order, err := p.store.GetOrder(ctx, payload.OrderID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: order lookup: %v", ErrRetryable, err)
	}
	if order == nil {
		logger.Warn("Callback for unknown order, manual reconciliation needed", map[string]interface{}{
			"order_id":   payload.OrderID,
			"payment_id": payload.PaymentID,
		})
		return Outcome{}, fmt.Errorf("%w: %s", ErrNotFound, payload.OrderID)
	}

	// Duplicate delivery of an already settled order is a no-op success;
	// this is what makes at-least-once delivery safe.
	if order.Status == models.OrderPaid {
		return Outcome{Duplicate: true, Order: order}, nil
	}
	if order.Status.Terminal() {
		return Outcome{}, fmt.Errorf("%w: order %s is %s", ErrValidation, order.ID, order.Status)
	}

	if payload.Amount != order.Amount {
		return Outcome{}, fmt.Errorf("%w: amount %d does not match order amount %d", ErrValidation, payload.Amount, order.Amount)
	}

	plan, ok := p.plans.Lookup(order.PlanID)
	if !ok {
		logger.Error("Order references unknown plan", map[string]interface{}{
			"order_id": order.ID,
			"plan_id":  order.PlanID,
		})
		return Outcome{}, fmt.Errorf("%w: order %s references unknown plan %s", ErrValidation, order.ID, order.PlanID)
	}

	// The nonce is only consulted while the order is still pending; after
	// settlement the already-paid no-op above makes replays harmless. The
	// TTL covers the entire window in which the timestamp would still
	// pass the freshness check.
	fresh, err := p.nonces.Remember(ctx, payload.Nonce, 2*p.freshness)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: nonce store: %v", ErrRetryable, err)
	}
	if !fresh {
		// Either a genuine replay, or a retry whose earlier attempt failed
		// to release its nonce. The second case leaves the order pending
		// until the nonce TTL lapses, so flag it for reconciliation.
		logger.Error("Nonce already seen for pending order, manual reconciliation may be needed", map[string]interface{}{
			"order_id":   order.ID,
			"payment_id": payload.PaymentID,
			"nonce":      payload.Nonce,
		})
		return Outcome{}, fmt.Errorf("%w: nonce already seen", ErrValidation)
	}

	alreadyPaid, err := p.store.SettleOrder(ctx, order.ID, payload.PaymentID, now, plan)
	if err != nil {
		// Release the nonce so the gateway's retry of this delivery is
		// not rejected as a replay; the order is still pending.
		if forgetErr := p.nonces.Forget(ctx, payload.Nonce); forgetErr != nil {
			logger.Error("Failed to release nonce after settlement failure", map[string]interface{}{
				"error":    forgetErr.Error(),
				"order_id": order.ID,
			})
		}
		// An order that went terminal between the lookup and the write is
		// a permanent reject, not something the gateway should retry.
		if errors.Is(err, storage.ErrOrderConflict) {
			return Outcome{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return Outcome{}, fmt.Errorf("%w: %v", ErrRetryable, err)
	}
	if alreadyPaid {
		return Outcome{Duplicate: true, Order: order, Plan: plan}, nil
	}

	logger.Info("Order settled", map[string]interface{}{
		"order_id":   order.ID,
		"account_id": order.AccountID,
		"plan_id":    plan.ID,
		"amount":     order.Amount,
	})

	settled := *order
	settled.Status = models.OrderPaid
	settled.GatewayPaymentID = payload.PaymentID
	settled.PaidAt = &now

	return Outcome{Settled: true, Order: &settled, Plan: plan}, nil
}
