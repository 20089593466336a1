package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/TRoazhon/FLOOSE-2025/internal/application/dto"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
)

const (
	defaultRecentDays  = 30
	defaultRecentLimit = 50
)

// RecentTransactionsUseCase merges the latest transactions across all of a
// user's accounts into one date-descending list.
type RecentTransactionsUseCase struct {
	provider port.BankProvider
	logger   *slog.Logger
	now      func() time.Time
}

// NewRecentTransactionsUseCase creates a new RecentTransactionsUseCase.
func NewRecentTransactionsUseCase(provider port.BankProvider, logger *slog.Logger) *RecentTransactionsUseCase {
	return &RecentTransactionsUseCase{provider: provider, logger: logger, now: time.Now}
}

// Execute fetches each account's transactions over the window, merges them,
// and returns the newest entries up to the limit. Per-account fetch failures
// are logged and skipped.
func (uc *RecentTransactionsUseCase) Execute(ctx context.Context, req dto.RecentTransactionsRequest) (dto.RecentTransactionsResponse, error) {
	days := req.Days
	if days <= 0 {
		days = defaultRecentDays
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	accounts, err := uc.provider.FetchAccounts(ctx, req.UserID, "")
	if err != nil {
		return dto.RecentTransactionsResponse{}, fmt.Errorf("fetch accounts: %w", err)
	}

	now := uc.now()
	from := now.AddDate(0, 0, -days)

	type rowWithAccount struct {
		tx      model.Transaction
		account string
	}
	var merged []rowWithAccount
	for _, account := range accounts {
		transactions, err := uc.provider.FetchTransactions(ctx, req.UserID, account.ExternalID, from, now)
		if err != nil {
			uc.logger.Warn("transaction fetch failed",
				"user_id", req.UserID,
				"account_external_id", account.ExternalID,
				"error", err,
			)
			continue
		}
		for _, tx := range transactions {
			merged = append(merged, rowWithAccount{tx: tx, account: account.Name})
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].tx.BookingDate.After(merged[j].tx.BookingDate)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	resp := dto.RecentTransactionsResponse{
		Transactions: make([]dto.TransactionResponse, 0, len(merged)),
	}
	for _, row := range merged {
		resp.Transactions = append(resp.Transactions, dto.TransactionResponse{
			ExternalID:  row.tx.ExternalID,
			AccountName: row.account,
			Amount:      row.tx.Amount.StringFixed(),
			Currency:    row.tx.Amount.Currency().Code(),
			Label:       row.tx.Label,
			BookingDate: row.tx.BookingDate,
			Category:    row.tx.Category.String(),
			Merchant:    row.tx.Merchant,
			Pending:     row.tx.Pending,
		})
	}
	return resp, nil
}
