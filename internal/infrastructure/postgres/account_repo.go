// Package postgres implements the banking core's persistence ports on
// PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/valueobject"
	"github.com/TRoazhon/FLOOSE-2025/pkg/money"
)

// LocalAccountRepository implements port.LocalAccountRepository using
// PostgreSQL. Balances are stored as NUMERIC and moved through the decimal
// type end to end, never through floats.
type LocalAccountRepository struct {
	pool *pgxpool.Pool
}

var _ port.LocalAccountRepository = (*LocalAccountRepository)(nil)

// NewLocalAccountRepository creates a new PostgreSQL-backed repository.
func NewLocalAccountRepository(pool *pgxpool.Pool) *LocalAccountRepository {
	return &LocalAccountRepository{pool: pool}
}

// FindByIBAN retrieves the user's account with the given IBAN.
func (r *LocalAccountRepository) FindByIBAN(ctx context.Context, userID, iban string) (model.LocalAccount, error) {
	const query = `
		SELECT id, user_id, name, bank_name, iban, balance, currency, account_type, created_at, updated_at
		FROM local_accounts
		WHERE user_id = $1 AND iban = $2
	`

	row := r.pool.QueryRow(ctx, query, userID, iban)

	var (
		id             uuid.UUID
		scannedUserID  string
		name           string
		bankName       string
		scannedIBAN    string
		balanceStr     string
		currency       string
		accountTypeStr string
		createdAt      time.Time
		updatedAt      time.Time
	)
	err := row.Scan(
		&id, &scannedUserID, &name, &bankName, &scannedIBAN,
		&balanceStr, &currency, &accountTypeStr, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LocalAccount{}, model.ErrAccountNotFound
		}
		return model.LocalAccount{}, fmt.Errorf("scan local account: %w", err)
	}

	return reconstructLocalAccount(
		id, scannedUserID, name, bankName, scannedIBAN,
		balanceStr, currency, accountTypeStr, createdAt, updatedAt,
	)
}

// Create persists a new local account.
func (r *LocalAccountRepository) Create(ctx context.Context, account model.LocalAccount) error {
	const insertSQL = `
		INSERT INTO local_accounts (
			id, user_id, name, bank_name, iban, balance, currency, account_type, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.pool.Exec(ctx, insertSQL,
		account.ID,
		account.UserID,
		account.Name,
		account.BankName,
		account.IBAN,
		account.Balance.Amount().String(),
		account.Balance.Currency().Code(),
		account.AccountType.String(),
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert local account: %w", err)
	}
	return nil
}

// ApplyBalanceAdjustment moves the account balance by delta and records an
// adjustment row, both within one transaction.
func (r *LocalAccountRepository) ApplyBalanceAdjustment(ctx context.Context, accountID uuid.UUID, delta money.Money, description string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const updateSQL = `
		UPDATE local_accounts
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
	`
	result, err := tx.Exec(ctx, updateSQL, delta.Amount().String(), accountID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	if result.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}

	const insertAdjustmentSQL = `
		INSERT INTO balance_adjustments (id, account_id, amount, currency, description, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
	`
	_, err = tx.Exec(ctx, insertAdjustmentSQL,
		uuid.New(),
		accountID,
		delta.Amount().String(),
		delta.Currency().Code(),
		description,
	)
	if err != nil {
		return fmt.Errorf("insert balance adjustment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// reconstructLocalAccount rebuilds a LocalAccount from scanned database
// values.
func reconstructLocalAccount(
	id uuid.UUID,
	userID, name, bankName, iban string,
	balanceStr, currency, accountTypeStr string,
	createdAt, updatedAt time.Time,
) (model.LocalAccount, error) {
	balance, err := money.NewFromString(balanceStr, currency)
	if err != nil {
		return model.LocalAccount{}, fmt.Errorf("invalid stored balance: %w", err)
	}

	accountType, err := valueobject.NewAccountType(accountTypeStr)
	if err != nil {
		return model.LocalAccount{}, fmt.Errorf("invalid stored account type: %w", err)
	}

	return model.LocalAccount{
		ID:          id,
		UserID:      userID,
		Name:        name,
		BankName:    bankName,
		IBAN:        iban,
		Balance:     balance,
		AccountType: accountType,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
