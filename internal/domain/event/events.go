// Package event defines the domain events emitted by the banking core.
package event

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the interface that all domain events must implement.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() uuid.UUID
	AggregateType() string
	OccurredAt() time.Time
}

// BaseEvent contains the common fields for all domain events.
type BaseEvent struct {
	ID             uuid.UUID `json:"event_id"`
	Type           string    `json:"event_type"`
	AggregateIDV   uuid.UUID `json:"aggregate_id"`
	AggregateTypeV string    `json:"aggregate_type"`
	Timestamp      time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) AggregateID() uuid.UUID { return e.AggregateIDV }
func (e BaseEvent) AggregateType() string { return e.AggregateTypeV }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

func newBaseEvent(eventType string, aggregateID uuid.UUID, aggregateType string) BaseEvent {
	return BaseEvent{
		ID:             uuid.New(),
		Type:           eventType,
		AggregateIDV:   aggregateID,
		AggregateTypeV: aggregateType,
		Timestamp:      time.Now().UTC(),
	}
}

// AccountLinked is emitted when the sync engine creates a local account for a
// newly discovered external account.
type AccountLinked struct {
	BaseEvent
	UserID      string `json:"user_id"`
	IBAN        string `json:"iban"`
	AccountName string `json:"account_name"`
	BankName    string `json:"bank_name"`
	Balance     string `json:"balance"`
	Currency    string `json:"currency"`
}

// NewAccountLinked creates a new AccountLinked event.
func NewAccountLinked(accountID uuid.UUID, userID, iban, accountName, bankName, balance, currency string) AccountLinked {
	return AccountLinked{
		BaseEvent:   newBaseEvent("bank.account.linked", accountID, "LocalAccount"),
		UserID:      userID,
		IBAN:        iban,
		AccountName: accountName,
		BankName:    bankName,
		Balance:     balance,
		Currency:    currency,
	}
}

// BalanceAdjusted is emitted when the sync engine applies a balance
// adjustment to an existing local account whose balance diverged from the
// provider-reported balance.
type BalanceAdjusted struct {
	BaseEvent
	UserID      string `json:"user_id"`
	IBAN        string `json:"iban"`
	AccountName string `json:"account_name"`
	Delta       string `json:"delta"`
	NewBalance  string `json:"new_balance"`
	Reason      string `json:"reason"`
}

// NewBalanceAdjusted creates a new BalanceAdjusted event.
func NewBalanceAdjusted(accountID uuid.UUID, userID, iban, accountName, delta, newBalance, reason string) BalanceAdjusted {
	return BalanceAdjusted{
		BaseEvent:   newBaseEvent("bank.account.balance_adjusted", accountID, "LocalAccount"),
		UserID:      userID,
		IBAN:        iban,
		AccountName: accountName,
		Delta:       delta,
		NewBalance:  newBalance,
		Reason:      reason,
	}
}

// SyncCompleted is emitted once per sync run with aggregate counts.
type SyncCompleted struct {
	BaseEvent
	UserID              string `json:"user_id"`
	AccountsCreated     int    `json:"accounts_created"`
	AccountsAdjusted    int    `json:"accounts_adjusted"`
	TransactionsFetched int    `json:"transactions_fetched"`
}

// NewSyncCompleted creates a new SyncCompleted event. The sync run itself is
// the aggregate, so a fresh id is used.
func NewSyncCompleted(userID string, created, adjusted, transactionsFetched int) SyncCompleted {
	return SyncCompleted{
		BaseEvent:           newBaseEvent("bank.sync.completed", uuid.New(), "BankSync"),
		UserID:              userID,
		AccountsCreated:     created,
		AccountsAdjusted:    adjusted,
		TransactionsFetched: transactionsFetched,
	}
}
