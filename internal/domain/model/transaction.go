package model

import (
	"time"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/valueobject"
	"github.com/TRoazhon/FLOOSE-2025/pkg/money"
)

// Transaction is a bank transaction as reported by a provider. Amounts are
// signed: positive means credit, negative means debit. Transactions are
// fetched and counted by the sync engine but never persisted by the core.
type Transaction struct {
	ExternalID        string
	AccountExternalID string
	Amount            money.Money
	Label             string
	BookingDate       time.Time
	Category          valueobject.Category
	Merchant          string
	Reference         string
	Pending           bool
}

// IsCredit returns true for incoming amounts.
func (t Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}
