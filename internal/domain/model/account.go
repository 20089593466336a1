package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/valueobject"
	"github.com/TRoazhon/FLOOSE-2025/pkg/money"
)

// ExternalAccount is a bank account as reported by a provider on each fetch.
// It is never persisted by the core; the sync engine only compares it against
// locally owned accounts, matching by IBAN.
type ExternalAccount struct {
	ExternalID   string
	UserID       string
	BankID       string
	BankName     string
	IBAN         string
	Name         string
	Balance      money.Money
	AccountType  valueobject.AccountType
	LastSyncedAt time.Time
}

// LocalAccount is the locally owned ledger account the sync engine reconciles
// external state into. Beyond the IBAN used for matching and the balance used
// for delta computation, its contents belong to the budget application.
type LocalAccount struct {
	ID          uuid.UUID
	UserID      string
	Name        string
	BankName    string
	IBAN        string
	Balance     money.Money
	AccountType valueobject.AccountType
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
