package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TRoazhon/FLOOSE-2025/internal/application/dto"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/event"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
	"github.com/TRoazhon/FLOOSE-2025/pkg/observability"
)

const (
	syncEventsTopic = "bank-sync-events"

	// transactionWindowDays is the trailing window tallied on each sync.
	transactionWindowDays = 30
)

// SyncAccountsUseCase reconciles provider-reported accounts into the local
// ledger. Accounts are matched by IBAN: unknown IBANs become new local
// accounts, diverging balances become adjustment entries. Fetched
// transactions are tallied, never persisted.
type SyncAccountsUseCase struct {
	provider  port.BankProvider
	repo      port.LocalAccountRepository
	publisher port.EventPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewSyncAccountsUseCase creates a new SyncAccountsUseCase. metrics may be
// nil in tests.
func NewSyncAccountsUseCase(
	provider port.BankProvider,
	repo port.LocalAccountRepository,
	publisher port.EventPublisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *SyncAccountsUseCase {
	return &SyncAccountsUseCase{
		provider:  provider,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}
}

// Execute runs one reconciliation pass for the user. A failure to list
// accounts fails the run; failures on individual accounts are logged and
// skipped so one broken account cannot block the rest.
func (uc *SyncAccountsUseCase) Execute(ctx context.Context, req dto.SyncAccountsRequest) (dto.SyncAccountsResponse, error) {
	started := uc.now()
	uc.logger.Info("starting account sync", "user_id", req.UserID, "provider", uc.provider.Name())

	externals, err := uc.provider.FetchAccounts(ctx, req.UserID, "")
	if err != nil {
		uc.countRun("error")
		return dto.SyncAccountsResponse{}, fmt.Errorf("fetch accounts: %w", err)
	}

	outcome := model.SyncOutcome{SyncedAt: started}
	reason := fmt.Sprintf("Synchronisation %s", uc.provider.Name())
	var events []event.DomainEvent

	for _, external := range externals {
		entry, evt, err := uc.reconcileAccount(ctx, external, reason)
		if err != nil {
			uc.logger.Error("account reconciliation failed",
				"user_id", req.UserID,
				"iban", external.IBAN,
				"error", err,
			)
			continue
		}
		switch entry.Action {
		case model.SyncActionCreated:
			outcome.Created = append(outcome.Created, entry)
		case model.SyncActionAdjusted:
			outcome.Adjusted = append(outcome.Adjusted, entry)
		}
		if evt != nil {
			events = append(events, evt)
		}

		outcome.TransactionsFetched += uc.tallyTransactions(ctx, req.UserID, external)
	}

	events = append(events, event.NewSyncCompleted(
		req.UserID,
		len(outcome.Created),
		len(outcome.Adjusted),
		outcome.TransactionsFetched,
	))
	uc.publishEvents(ctx, req.UserID, events)

	uc.countRun("success")
	uc.observe(started, outcome)

	uc.logger.Info("account sync completed",
		"user_id", req.UserID,
		"created", len(outcome.Created),
		"adjusted", len(outcome.Adjusted),
		"transactions_fetched", outcome.TransactionsFetched,
	)

	return syncResponse(outcome), nil
}

// reconcileAccount matches one external account against the local ledger and
// applies the required change. The returned entry is zero-valued when the
// balances already agree.
func (uc *SyncAccountsUseCase) reconcileAccount(ctx context.Context, external model.ExternalAccount, reason string) (model.AccountSyncEvent, event.DomainEvent, error) {
	local, err := uc.repo.FindByIBAN(ctx, external.UserID, external.IBAN)
	if errors.Is(err, model.ErrAccountNotFound) {
		return uc.createLocalAccount(ctx, external)
	}
	if err != nil {
		return model.AccountSyncEvent{}, nil, fmt.Errorf("find account by iban: %w", err)
	}

	delta, err := external.Balance.Subtract(local.Balance)
	if err != nil {
		return model.AccountSyncEvent{}, nil, fmt.Errorf("compute balance delta: %w", err)
	}
	if delta.IsZero() {
		return model.AccountSyncEvent{}, nil, nil
	}

	if err := uc.repo.ApplyBalanceAdjustment(ctx, local.ID, delta, reason); err != nil {
		return model.AccountSyncEvent{}, nil, fmt.Errorf("apply balance adjustment: %w", err)
	}

	uc.logger.Info("balance adjusted",
		"account_id", local.ID,
		"iban", external.IBAN,
		"delta", delta.StringFixed(),
	)

	entry := model.AccountSyncEvent{
		Action:      model.SyncActionAdjusted,
		AccountName: local.Name,
		IBAN:        external.IBAN,
		Balance:     external.Balance,
		Delta:       delta,
		Reason:      reason,
	}
	evt := event.NewBalanceAdjusted(
		local.ID,
		external.UserID,
		external.IBAN,
		local.Name,
		delta.StringFixed(),
		external.Balance.StringFixed(),
		reason,
	)
	return entry, evt, nil
}

func (uc *SyncAccountsUseCase) createLocalAccount(ctx context.Context, external model.ExternalAccount) (model.AccountSyncEvent, event.DomainEvent, error) {
	now := uc.now()
	local := model.LocalAccount{
		ID:          uuid.New(),
		UserID:      external.UserID,
		Name:        external.Name,
		BankName:    external.BankName,
		IBAN:        external.IBAN,
		Balance:     external.Balance,
		AccountType: external.AccountType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.repo.Create(ctx, local); err != nil {
		return model.AccountSyncEvent{}, nil, fmt.Errorf("create local account: %w", err)
	}

	uc.logger.Info("local account created",
		"account_id", local.ID,
		"iban", local.IBAN,
		"bank", local.BankName,
	)

	entry := model.AccountSyncEvent{
		Action:      model.SyncActionCreated,
		AccountName: local.Name,
		IBAN:        local.IBAN,
		Balance:     local.Balance,
	}
	evt := event.NewAccountLinked(
		local.ID,
		local.UserID,
		local.IBAN,
		local.Name,
		local.BankName,
		local.Balance.StringFixed(),
		local.Balance.Currency().Code(),
	)
	return entry, evt, nil
}

// tallyTransactions counts the account's transactions over the trailing
// window. Fetch failures are logged and count as zero; they never abort the
// sync run.
func (uc *SyncAccountsUseCase) tallyTransactions(ctx context.Context, userID string, external model.ExternalAccount) int {
	now := uc.now()
	from := now.AddDate(0, 0, -transactionWindowDays)

	transactions, err := uc.provider.FetchTransactions(ctx, userID, external.ExternalID, from, now)
	if err != nil {
		uc.logger.Warn("transaction fetch failed during sync",
			"user_id", userID,
			"account_external_id", external.ExternalID,
			"error", err,
		)
		return 0
	}
	return len(transactions)
}

func (uc *SyncAccountsUseCase) publishEvents(ctx context.Context, userID string, events []event.DomainEvent) {
	if uc.publisher == nil || len(events) == 0 {
		return
	}
	if err := uc.publisher.Publish(ctx, syncEventsTopic, events...); err != nil {
		// Event delivery is best effort; the reconciliation itself already
		// committed.
		uc.logger.Error("failed to publish sync events",
			"user_id", userID,
			"event_count", len(events),
			"error", err,
		)
	}
}

func (uc *SyncAccountsUseCase) countRun(outcome string) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.SyncRuns.WithLabelValues(outcome).Inc()
}

func (uc *SyncAccountsUseCase) observe(started time.Time, outcome model.SyncOutcome) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.SyncDuration.Observe(uc.now().Sub(started).Seconds())
	uc.metrics.AccountsReconciled.WithLabelValues(string(model.SyncActionCreated)).Add(float64(len(outcome.Created)))
	uc.metrics.AccountsReconciled.WithLabelValues(string(model.SyncActionAdjusted)).Add(float64(len(outcome.Adjusted)))
}

func syncResponse(outcome model.SyncOutcome) dto.SyncAccountsResponse {
	resp := dto.SyncAccountsResponse{
		Created:             make([]dto.AccountSyncEventResponse, 0, len(outcome.Created)),
		Adjusted:            make([]dto.AccountSyncEventResponse, 0, len(outcome.Adjusted)),
		AccountsProcessed:   outcome.AccountsProcessed(),
		TransactionsFetched: outcome.TransactionsFetched,
		SyncedAt:            outcome.SyncedAt,
	}
	for _, entry := range outcome.Created {
		resp.Created = append(resp.Created, dto.AccountSyncEventResponse{
			Action:      string(entry.Action),
			AccountName: entry.AccountName,
			IBAN:        entry.IBAN,
			Balance:     entry.Balance.StringFixed(),
		})
	}
	for _, entry := range outcome.Adjusted {
		resp.Adjusted = append(resp.Adjusted, dto.AccountSyncEventResponse{
			Action:      string(entry.Action),
			AccountName: entry.AccountName,
			IBAN:        entry.IBAN,
			Balance:     entry.Balance.StringFixed(),
			Delta:       entry.Delta.StringFixed(),
			Reason:      entry.Reason,
		})
	}
	return resp
}
