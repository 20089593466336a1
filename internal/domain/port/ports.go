// Package port defines the capability interfaces between the banking core's
// application layer and its infrastructure adapters.
package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/event"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/pkg/money"
)

// BankProvider is the capability interface every banking backend implements:
// the real PSD2 provider wrapping the OAuth2 client, and the deterministic
// simulator for environments without provider credentials. Callers are
// agnostic to which implementation is active.
type BankProvider interface {
	// Name returns the human-readable provider name, used in adjustment
	// narratives ("Synchronisation <name>").
	Name() string

	// ListBanks returns the static bank catalog.
	ListBanks() []model.Bank

	// Connect establishes (or reports) a connection between the user and the
	// given bank. Fails with model.ErrUnknownBank for unrecognized bank ids.
	Connect(ctx context.Context, userID, bankID string) (model.BankConnection, error)

	// Disconnect tears down the user's connection to the bank. Returns
	// whether a connection existed.
	Disconnect(ctx context.Context, userID, bankID string) (bool, error)

	// ConnectionStatus reports the current connection state without
	// modifying it.
	ConnectionStatus(ctx context.Context, userID, bankID string) (model.BankConnection, error)

	// FetchAccounts returns the user's external accounts, optionally
	// filtered by bank id (empty string means all banks).
	FetchAccounts(ctx context.Context, userID, bankID string) ([]model.ExternalAccount, error)

	// FetchTransactions returns the transactions of one external account,
	// sorted by booking date descending. Date bounds are inclusive; zero
	// times mean unbounded.
	FetchTransactions(ctx context.Context, userID, accountExternalID string, dateFrom, dateTo time.Time) ([]model.Transaction, error)

	// SyncAccounts refreshes provider-side account state (balances,
	// lastSyncedAt). It never touches local storage.
	SyncAccounts(ctx context.Context, userID string) (SyncAccountsResult, error)
}

// SyncAccountsResult reports a provider-internal refresh.
type SyncAccountsResult struct {
	AccountsSynced int
	Timestamp      time.Time
}

// BankAuthorizer is the OAuth2 authorization surface consumed by the
// connection use cases. The oauth.Client implements it; the simulator
// provider does not need one.
type BankAuthorizer interface {
	// BeginAuthorization issues a PKCE-protected authorization URL for the
	// user and records the attempt.
	BeginAuthorization(userID string, scopes []string) (AuthorizationRequest, error)

	// CompleteAuthorization validates the callback state, exchanges the code
	// for tokens, and stores them.
	CompleteAuthorization(ctx context.Context, code, state string) (AuthorizationGrant, error)

	// IsConnected reports whether the user holds a token that remains valid
	// for a safety margin, refreshing proactively when possible.
	IsConnected(ctx context.Context, userID string) bool

	// Disconnect removes the user's stored tokens. Idempotent; returns
	// whether a record existed.
	Disconnect(userID string) bool

	// UserInfo fetches the authenticated user's profile from the provider.
	UserInfo(ctx context.Context, userID string) (map[string]any, error)
}

// AuthorizationRequest is the result of starting an authorization flow.
type AuthorizationRequest struct {
	URL   string
	State string
}

// AuthorizationGrant is the result of a successful code exchange.
type AuthorizationGrant struct {
	UserID    string
	ExpiresIn time.Duration
	Scopes    []string
}

// LocalAccountRepository is the persistence port for locally owned accounts.
// The sync engine matches by IBAN, creates missing accounts, and applies
// balance adjustments; everything else about local accounts belongs to the
// budget application.
type LocalAccountRepository interface {
	// FindByIBAN returns the user's account with the given IBAN, or
	// model.ErrAccountNotFound.
	FindByIBAN(ctx context.Context, userID, iban string) (model.LocalAccount, error)

	// Create persists a new local account.
	Create(ctx context.Context, account model.LocalAccount) error

	// ApplyBalanceAdjustment atomically moves the account balance by delta
	// and records an adjustment row carrying the description.
	ApplyBalanceAdjustment(ctx context.Context, accountID uuid.UUID, delta money.Money, description string) error
}

// EventPublisher publishes domain events emitted by the sync engine.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, events ...event.DomainEvent) error
}
