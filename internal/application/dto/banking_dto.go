// Package dto defines the request and response shapes of the banking core's
// use cases.
package dto

import "time"

// BankResponse is one catalog entry in responses.
type BankResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LogoURL   string `json:"logo_url"`
	Country   string `json:"country"`
	Supported bool   `json:"supported"`
}

// ListBanksResponse is the DTO returned when listing available banks.
type ListBanksResponse struct {
	Banks []BankResponse `json:"banks"`
}

// BeginAuthorizationRequest starts an OAuth2 authorization flow.
type BeginAuthorizationRequest struct {
	UserID string   `json:"user_id"`
	Scopes []string `json:"scopes,omitempty"`
}

// BeginAuthorizationResponse carries the URL the user must visit.
type BeginAuthorizationResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	State            string `json:"state"`
}

// CompleteAuthorizationRequest carries the provider callback parameters.
// ErrorCode and ErrorDescription are set when the provider redirected back
// with an error instead of a code.
type CompleteAuthorizationRequest struct {
	Code             string `json:"code"`
	State            string `json:"state"`
	ErrorCode        string `json:"error,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// CompleteAuthorizationResponse reports a successful code exchange.
type CompleteAuthorizationResponse struct {
	UserID    string   `json:"user_id"`
	ExpiresIn int      `json:"expires_in"`
	Scopes    []string `json:"scopes"`
}

// ConnectBankRequest asks for a connection between a user and a bank.
type ConnectBankRequest struct {
	UserID string `json:"user_id"`
	BankID string `json:"bank_id"`
}

// ConnectionResponse is the DTO representing a bank connection in responses.
type ConnectionResponse struct {
	BankID      string     `json:"bank_id"`
	Status      string     `json:"status"`
	Connected   bool       `json:"connected"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// DisconnectBankRequest tears down a user's bank connection.
type DisconnectBankRequest struct {
	UserID string `json:"user_id"`
	BankID string `json:"bank_id"`
}

// DisconnectBankResponse reports whether a connection existed.
type DisconnectBankResponse struct {
	Disconnected bool `json:"disconnected"`
}

// SyncAccountsRequest triggers a reconciliation run for a user.
type SyncAccountsRequest struct {
	UserID string `json:"user_id"`
}

// AccountSyncEventResponse describes one account-level sync outcome.
type AccountSyncEventResponse struct {
	Action      string `json:"action"`
	AccountName string `json:"account_name"`
	IBAN        string `json:"iban"`
	Balance     string `json:"balance"`
	Delta       string `json:"delta,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// SyncAccountsResponse is the DTO returned after a reconciliation run.
type SyncAccountsResponse struct {
	Created             []AccountSyncEventResponse `json:"created"`
	Adjusted            []AccountSyncEventResponse `json:"adjusted"`
	AccountsProcessed   int                        `json:"accounts_processed"`
	TransactionsFetched int                        `json:"transactions_fetched"`
	SyncedAt            time.Time                  `json:"synced_at"`
}

// AccountResponse is the DTO representing an external account in responses.
type AccountResponse struct {
	ExternalID   string    `json:"external_id"`
	BankID       string    `json:"bank_id"`
	BankName     string    `json:"bank_name"`
	IBAN         string    `json:"iban"`
	Name         string    `json:"name"`
	Balance      string    `json:"balance"`
	Currency     string    `json:"currency"`
	AccountType  string    `json:"account_type"`
	LastSyncedAt time.Time `json:"last_synced_at"`
}

// AccountsSummaryRequest asks for the accounts summary of a user.
type AccountsSummaryRequest struct {
	UserID string `json:"user_id"`
	BankID string `json:"bank_id,omitempty"`
}

// BankGroupResponse groups a user's accounts under one bank.
type BankGroupResponse struct {
	BankID   string            `json:"bank_id"`
	BankName string            `json:"bank_name"`
	Total    string            `json:"total"`
	Accounts []AccountResponse `json:"accounts"`
}

// AccountsSummaryResponse aggregates a user's accounts by type and by bank.
type AccountsSummaryResponse struct {
	TotalBalance string              `json:"total_balance"`
	TotalsByType map[string]string   `json:"totals_by_type"`
	Banks        []BankGroupResponse `json:"banks"`
	AccountCount int                 `json:"account_count"`
}

// TransactionResponse is the DTO representing a transaction in responses.
type TransactionResponse struct {
	ExternalID  string    `json:"external_id"`
	AccountName string    `json:"account_name"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Label       string    `json:"label"`
	BookingDate time.Time `json:"booking_date"`
	Category    string    `json:"category"`
	Merchant    string    `json:"merchant,omitempty"`
	Pending     bool      `json:"pending"`
}

// RecentTransactionsRequest asks for the latest transactions across all of a
// user's accounts.
type RecentTransactionsRequest struct {
	UserID string `json:"user_id"`
	Days   int    `json:"days,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// RecentTransactionsResponse is the merged, date-descending transaction list.
type RecentTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// SpendingByCategoryRequest asks for a spending breakdown over a trailing
// window of days.
type SpendingByCategoryRequest struct {
	UserID string `json:"user_id"`
	Days   int    `json:"days,omitempty"`
}

// CategorySpendingResponse is the spend of one category within the window.
type CategorySpendingResponse struct {
	Category   string  `json:"category"`
	Total      string  `json:"total"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
}

// SpendingByCategoryResponse is the spending breakdown, largest spend first.
type SpendingByCategoryResponse struct {
	TotalSpent string                     `json:"total_spent"`
	Categories []CategorySpendingResponse `json:"categories"`
}
