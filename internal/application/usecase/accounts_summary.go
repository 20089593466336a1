package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TRoazhon/FLOOSE-2025/internal/application/dto"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
	"github.com/TRoazhon/FLOOSE-2025/pkg/money"
)

// AccountsSummaryUseCase aggregates a user's external accounts: grand total,
// totals per account type, and accounts grouped per bank.
type AccountsSummaryUseCase struct {
	provider port.BankProvider
	logger   *slog.Logger
}

// NewAccountsSummaryUseCase creates a new AccountsSummaryUseCase.
func NewAccountsSummaryUseCase(provider port.BankProvider, logger *slog.Logger) *AccountsSummaryUseCase {
	return &AccountsSummaryUseCase{provider: provider, logger: logger}
}

// Execute fetches the user's accounts and builds the summary. Bank groups
// keep the provider's account order.
func (uc *AccountsSummaryUseCase) Execute(ctx context.Context, req dto.AccountsSummaryRequest) (dto.AccountsSummaryResponse, error) {
	accounts, err := uc.provider.FetchAccounts(ctx, req.UserID, req.BankID)
	if err != nil {
		return dto.AccountsSummaryResponse{}, fmt.Errorf("fetch accounts: %w", err)
	}

	total := money.Zero(money.EUR)
	totalsByType := make(map[string]money.Money)
	var bankOrder []string
	groups := make(map[string]*dto.BankGroupResponse)
	bankTotals := make(map[string]money.Money)

	for _, account := range accounts {
		total, err = total.Add(account.Balance)
		if err != nil {
			uc.logger.Warn("skipping account with mismatched currency",
				"iban", account.IBAN,
				"currency", account.Balance.Currency().Code(),
			)
			continue
		}

		typeKey := account.AccountType.String()
		typeTotal, ok := totalsByType[typeKey]
		if !ok {
			typeTotal = money.Zero(account.Balance.Currency())
		}
		if summed, err := typeTotal.Add(account.Balance); err == nil {
			totalsByType[typeKey] = summed
		}

		group, ok := groups[account.BankID]
		if !ok {
			group = &dto.BankGroupResponse{BankID: account.BankID, BankName: account.BankName}
			groups[account.BankID] = group
			bankTotals[account.BankID] = money.Zero(account.Balance.Currency())
			bankOrder = append(bankOrder, account.BankID)
		}
		if summed, err := bankTotals[account.BankID].Add(account.Balance); err == nil {
			bankTotals[account.BankID] = summed
		}
		group.Accounts = append(group.Accounts, accountResponse(account))
	}

	resp := dto.AccountsSummaryResponse{
		TotalBalance: total.StringFixed(),
		TotalsByType: make(map[string]string, len(totalsByType)),
		Banks:        make([]dto.BankGroupResponse, 0, len(bankOrder)),
		AccountCount: len(accounts),
	}
	for typeKey, typeTotal := range totalsByType {
		resp.TotalsByType[typeKey] = typeTotal.StringFixed()
	}
	for _, bankID := range bankOrder {
		group := groups[bankID]
		group.Total = bankTotals[bankID].StringFixed()
		resp.Banks = append(resp.Banks, *group)
	}
	return resp, nil
}

func accountResponse(account model.ExternalAccount) dto.AccountResponse {
	return dto.AccountResponse{
		ExternalID:   account.ExternalID,
		BankID:       account.BankID,
		BankName:     account.BankName,
		IBAN:         account.IBAN,
		Name:         account.Name,
		Balance:      account.Balance.StringFixed(),
		Currency:     account.Balance.Currency().Code(),
		AccountType:  account.AccountType.String(),
		LastSyncedAt: account.LastSyncedAt,
	}
}
