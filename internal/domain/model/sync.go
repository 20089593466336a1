package model

import (
	"time"

	"github.com/TRoazhon/FLOOSE-2025/pkg/money"
)

// SyncAction describes what the sync engine did with one external account.
type SyncAction string

const (
	SyncActionCreated  SyncAction = "created"
	SyncActionAdjusted SyncAction = "adjusted"
)

// AccountSyncEvent records one account-level outcome of a sync run.
// For adjustments, Delta carries the signed difference between the fetched
// and local balance and Reason the narrative attached to the adjustment.
type AccountSyncEvent struct {
	Action      SyncAction
	AccountName string
	IBAN        string
	Balance     money.Money
	Delta       money.Money
	Reason      string
}

// SyncOutcome is the ephemeral result of one reconciliation run, returned to
// the caller. A partial outcome is still a valid outcome: per-account fetch
// failures reduce TransactionsFetched but never abort the run.
type SyncOutcome struct {
	Created             []AccountSyncEvent
	Adjusted            []AccountSyncEvent
	TransactionsFetched int
	SyncedAt            time.Time
}

// AccountsProcessed returns the number of accounts created or adjusted.
func (o SyncOutcome) AccountsProcessed() int {
	return len(o.Created) + len(o.Adjusted)
}
