package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gramload.app/cloud/models"
)

// MemoryStorage keeps everything in maps behind one mutex. Used by tests
// and local development; the mutex gives it the same serialization
// guarantees the SQLite backend gets from transactions.
type MemoryStorage struct {
	mu       sync.Mutex
	accounts map[string]models.Account
	orders   map[string]models.Order
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		accounts: make(map[string]models.Account),
		orders:   make(map[string]models.Order),
	}
}

func (m *MemoryStorage) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, exists := m.accounts[id]
	if !exists {
		return nil, nil
	}
	return &account, nil
}

func (m *MemoryStorage) FindAccountByToken(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, account := range m.accounts {
		if account.APIToken == token {
			accountCopy := account
			return &accountCopy, nil
		}
	}
	return nil, nil
}

func (m *MemoryStorage) SaveAccount(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[account.ID] = *account
	return nil
}

func (m *MemoryStorage) DebitQuota(ctx context.Context, accountID string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, exists := m.accounts[accountID]
	if !exists {
		return 0, false, fmt.Errorf("account %s not found", accountID)
	}

	if account.RemainingQuota <= 0 {
		return account.RemainingQuota, false, nil
	}

	account.RemainingQuota--
	account.UpdatedAt = time.Now()
	m.accounts[accountID] = account
	return account.RemainingQuota, true, nil
}

func (m *MemoryStorage) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, exists := m.orders[id]
	if !exists {
		return nil, nil
	}
	return &order, nil
}

func (m *MemoryStorage) SaveOrder(ctx context.Context, order *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[order.AccountID]; !exists {
		return fmt.Errorf("account %s not found", order.AccountID)
	}
	m.orders[order.ID] = *order
	return nil
}

func (m *MemoryStorage) SettleOrder(ctx context.Context, orderID, paymentID string, paidAt time.Time, plan models.Plan) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, exists := m.orders[orderID]
	if !exists {
		return false, fmt.Errorf("order %s not found", orderID)
	}

	if order.Status == models.OrderPaid {
		return true, nil
	}
	if !order.Status.CanTransition(models.OrderPaid) {
		return false, fmt.Errorf("order %s is %s: %w", orderID, order.Status, ErrOrderConflict)
	}

	account, exists := m.accounts[order.AccountID]
	if !exists {
		return false, fmt.Errorf("account %s not found", order.AccountID)
	}

	account.Tier, account.TierExpiry, account.RemainingQuota = applyGrant(
		account.Tier, account.TierExpiry, account.RemainingQuota, plan, paidAt)
	account.UpdatedAt = paidAt

	order.Status = models.OrderPaid
	order.PaidAt = &paidAt
	order.GatewayPaymentID = paymentID
	order.UpdatedAt = paidAt

	m.accounts[account.ID] = account
	m.orders[order.ID] = order
	return false, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
