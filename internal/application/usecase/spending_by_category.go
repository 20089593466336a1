package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/TRoazhon/FLOOSE-2025/internal/application/dto"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
	"github.com/TRoazhon/FLOOSE-2025/pkg/money"
)

const defaultSpendingDays = 30

// SpendingByCategoryUseCase breaks a user's debits down by category over a
// trailing window. Credits are excluded; only money leaving the accounts
// counts as spending.
type SpendingByCategoryUseCase struct {
	provider port.BankProvider
	logger   *slog.Logger
	now      func() time.Time
}

// NewSpendingByCategoryUseCase creates a new SpendingByCategoryUseCase.
func NewSpendingByCategoryUseCase(provider port.BankProvider, logger *slog.Logger) *SpendingByCategoryUseCase {
	return &SpendingByCategoryUseCase{provider: provider, logger: logger, now: time.Now}
}

// Execute computes per-category spend totals with percentages, largest spend
// first. Per-account fetch failures are logged and skipped.
func (uc *SpendingByCategoryUseCase) Execute(ctx context.Context, req dto.SpendingByCategoryRequest) (dto.SpendingByCategoryResponse, error) {
	days := req.Days
	if days <= 0 {
		days = defaultSpendingDays
	}

	accounts, err := uc.provider.FetchAccounts(ctx, req.UserID, "")
	if err != nil {
		return dto.SpendingByCategoryResponse{}, fmt.Errorf("fetch accounts: %w", err)
	}

	now := uc.now()
	from := now.AddDate(0, 0, -days)

	totals := make(map[string]money.Money)
	counts := make(map[string]int)
	totalSpent := money.Zero(money.EUR)

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
			if !tx.Amount.IsNegative() {
				continue
			}
			spent := tx.Amount.Abs()

			key := tx.Category.String()
			current, ok := totals[key]
			if !ok {
				current = money.Zero(spent.Currency())
			}
			summed, err := current.Add(spent)
			if err != nil {
				continue
			}
			totals[key] = summed
			counts[key]++

			if grand, err := totalSpent.Add(spent); err == nil {
				totalSpent = grand
			}
		}
	}

	resp := dto.SpendingByCategoryResponse{
		TotalSpent: totalSpent.StringFixed(),
		Categories: make([]dto.CategorySpendingResponse, 0, len(totals)),
	}
	for key, total := range totals {
		percentage := 0.0
		if !totalSpent.IsZero() {
			percentage = total.Amount().
				Div(totalSpent.Amount()).
				Mul(decimal.NewFromInt(100)).
				Round(1).
				InexactFloat64()
		}
		resp.Categories = append(resp.Categories, dto.CategorySpendingResponse{
			Category:   key,
			Total:      total.StringFixed(),
			Percentage: percentage,
			Count:      counts[key],
		})
	}
	sort.Slice(resp.Categories, func(i, j int) bool {
		if resp.Categories[i].Total == resp.Categories[j].Total {
			return resp.Categories[i].Category < resp.Categories[j].Category
		}
		return totals[resp.Categories[i].Category].Amount().
			GreaterThan(totals[resp.Categories[j].Category].Amount())
	})
	return resp, nil
}
