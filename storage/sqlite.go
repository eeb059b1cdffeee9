package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"gramload.app/cloud/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type SQLiteStorage struct {
	db   *sql.DB
	path string
}

func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; more connections just queue on the
	// busy handler.
	db.SetMaxOpenConns(1)

	storage := &SQLiteStorage{db: db, path: path}
	if err := storage.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return storage, nil
}

func (s *SQLiteStorage) migrate() error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

const accountColumns = `id, email, api_token, tier, tier_expiry, remaining_quota, created_at, updated_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	var account models.Account
	var expiry sql.NullTime
	err := row.Scan(
		&account.ID,
		&account.Email,
		&account.APIToken,
		&account.Tier,
		&expiry,
		&account.RemainingQuota,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if expiry.Valid {
		account.TierExpiry = &expiry.Time
	}
	return &account, nil
}

func (s *SQLiteStorage) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	return scanAccount(s.db.QueryRowContext(ctx, query, id))
}

func (s *SQLiteStorage) FindAccountByToken(ctx context.Context, token string) (*models.Account, error) {
	if token == "" {
		return nil, nil
	}
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE api_token = ?`
	return scanAccount(s.db.QueryRowContext(ctx, query, token))
}

func (s *SQLiteStorage) SaveAccount(ctx context.Context, account *models.Account) error {
	query := `INSERT OR REPLACE INTO accounts (id, email, api_token, tier, tier_expiry, remaining_quota, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.APIToken,
		account.Tier,
		nullableTime(account.TierExpiry),
		account.RemainingQuota,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DebitQuota(ctx context.Context, accountID string) (remaining int64, debited bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("failed to begin debit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Conditional decrement: the WHERE clause is the atomicity guard, so
	// two concurrent debits can never take the quota negative. The readback
	// shares the transaction so it reports this debit's result, not a later
	// one's.
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET remaining_quota = remaining_quota - 1, updated_at = ?
		 WHERE id = ? AND remaining_quota > 0`,
		time.Now(), accountID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to debit quota: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, false, err
	}

	err = tx.QueryRowContext(ctx,
		`SELECT remaining_quota FROM accounts WHERE id = ?`, accountID).Scan(&remaining)
	if err == sql.ErrNoRows {
		err = fmt.Errorf("account %s not found", accountID)
		return 0, false, err
	}
	if err != nil {
		return 0, false, err
	}

	if err = tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("failed to commit debit: %w", err)
	}
	return remaining, rows > 0, nil
}

const orderColumns = `id, account_id, plan_id, amount, currency, payment_method, status, gateway_payment_id, paid_at, metadata, created_at, updated_at`

func (s *SQLiteStorage) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`

	var order models.Order
	var paidAt sql.NullTime
	var metadata string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.AccountID,
		&order.PlanID,
		&order.Amount,
		&order.Currency,
		&order.PaymentMethod,
		&order.Status,
		&order.GatewayPaymentID,
		&paidAt,
		&metadata,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}
	if metadata != "" && metadata != "{}" {
		if err := json.Unmarshal([]byte(metadata), &order.Metadata); err != nil {
			return nil, fmt.Errorf("failed to parse order metadata: %w", err)
		}
	}
	return &order, nil
}

func (s *SQLiteStorage) SaveOrder(ctx context.Context, order *models.Order) error {
	metadata := "{}"
	if len(order.Metadata) > 0 {
		bytes, err := json.Marshal(order.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode order metadata: %w", err)
		}
		metadata = string(bytes)
	}

	query := `INSERT OR REPLACE INTO orders (` + orderColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		order.ID,
		order.AccountID,
		order.PlanID,
		order.Amount,
		order.Currency,
		order.PaymentMethod,
		order.Status,
		order.GatewayPaymentID,
		nullableTime(order.PaidAt),
		metadata,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) SettleOrder(ctx context.Context, orderID, paymentID string, paidAt time.Time, plan models.Plan) (alreadyPaid bool, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// The conditional update is the row-level guard: only one concurrent
	// delivery can observe status=pending and win it.
	res, err := tx.ExecContext(ctx,
		`UPDATE orders SET status = ?, paid_at = ?, gateway_payment_id = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		models.OrderPaid, paidAt, paymentID, paidAt, orderID, models.OrderPending)
	if err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	if rows == 0 {
		var status models.OrderStatus
		err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, orderID).Scan(&status)
		if err == sql.ErrNoRows {
			err = fmt.Errorf("order %s not found", orderID)
			return false, err
		}
		if err != nil {
			return false, err
		}
		if status == models.OrderPaid {
			_ = tx.Rollback()
			return true, nil
		}
		err = fmt.Errorf("order %s is %s: %w", orderID, status, ErrOrderConflict)
		return false, err
	}

	var accountID string
	var tier models.Tier
	var expiry sql.NullTime
	var quota int64
	err = tx.QueryRowContext(ctx,
		`SELECT account_id, tier, tier_expiry, remaining_quota FROM accounts
		 JOIN orders ON orders.account_id = accounts.id WHERE orders.id = ?`,
		orderID).Scan(&accountID, &tier, &expiry, &quota)
	if err != nil {
		return false, fmt.Errorf("failed to load account for settlement: %w", err)
	}

	var currentExpiry *time.Time
	if expiry.Valid {
		currentExpiry = &expiry.Time
	}
	newTier, newExpiry, newQuota := applyGrant(tier, currentExpiry, quota, plan, paidAt)

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET tier = ?, tier_expiry = ?, remaining_quota = ?, updated_at = ? WHERE id = ?`,
		newTier, nullableTime(newExpiry), newQuota, paidAt, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to credit account: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return false, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
