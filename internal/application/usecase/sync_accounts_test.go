package usecase_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TRoazhon/FLOOSE-2025/internal/application/dto"
	"github.com/TRoazhon/FLOOSE-2025/internal/application/usecase"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/event"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/valueobject"
	"github.com/TRoazhon/FLOOSE-2025/pkg/money"
)

// --- Mock implementations ---

type mockBankProvider struct {
	name            string
	banks           []model.Bank
	accounts        []model.ExternalAccount
	accountsErr     error
	transactions    map[string][]model.Transaction
	transactionsErr map[string]error
	connectFunc     func(ctx context.Context, userID, bankID string) (model.BankConnection, error)
	disconnected    bool
	disconnectErr   error
	status          model.BankConnection
	statusErr       error
}

func (m *mockBankProvider) Name() string {
	if m.name == "" {
		return "Crédit Agricole"
	}
	return m.name
}

func (m *mockBankProvider) ListBanks() []model.Bank { return m.banks }

func (m *mockBankProvider) Connect(ctx context.Context, userID, bankID string) (model.BankConnection, error) {
	if m.connectFunc != nil {
		return m.connectFunc(ctx, userID, bankID)
	}
	return model.BankConnection{}, fmt.Errorf("not implemented")
}

func (m *mockBankProvider) Disconnect(context.Context, string, string) (bool, error) {
	return m.disconnected, m.disconnectErr
}

func (m *mockBankProvider) ConnectionStatus(context.Context, string, string) (model.BankConnection, error) {
	return m.status, m.statusErr
}

func (m *mockBankProvider) FetchAccounts(_ context.Context, _, bankID string) ([]model.ExternalAccount, error) {
	if m.accountsErr != nil {
		return nil, m.accountsErr
	}
	if bankID == "" {
		return m.accounts, nil
	}
	var out []model.ExternalAccount
	for _, account := range m.accounts {
		if account.BankID == bankID {
			out = append(out, account)
		}
	}
	return out, nil
}

func (m *mockBankProvider) FetchTransactions(_ context.Context, _, accountExternalID string, _, _ time.Time) ([]model.Transaction, error) {
	if err := m.transactionsErr[accountExternalID]; err != nil {
		return nil, err
	}
	return m.transactions[accountExternalID], nil
}

func (m *mockBankProvider) SyncAccounts(context.Context, string) (port.SyncAccountsResult, error) {
	return port.SyncAccountsResult{}, nil
}

type mockLocalAccountRepository struct {
	byIBAN      map[string]model.LocalAccount
	findErr     error
	created     []model.LocalAccount
	createErr   error
	adjustments []appliedAdjustment
	adjustErr   error
}

type appliedAdjustment struct {
	accountID   uuid.UUID
	delta       money.Money
	description string
}

func (m *mockLocalAccountRepository) FindByIBAN(_ context.Context, _, iban string) (model.LocalAccount, error) {
	if m.findErr != nil {
		return model.LocalAccount{}, m.findErr
	}
	account, ok := m.byIBAN[iban]
	if !ok {
		return model.LocalAccount{}, model.ErrAccountNotFound
	}
	return account, nil
}

func (m *mockLocalAccountRepository) Create(_ context.Context, account model.LocalAccount) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, account)
	return nil
}

func (m *mockLocalAccountRepository) ApplyBalanceAdjustment(_ context.Context, accountID uuid.UUID, delta money.Money, description string) error {
	if m.adjustErr != nil {
		return m.adjustErr
	}
	m.adjustments = append(m.adjustments, appliedAdjustment{accountID: accountID, delta: delta, description: description})
	return nil
}

type mockEventPublisher struct {
	publishedEvents []event.DomainEvent
	publishedTopic  string
	publishErr      error
}

func (m *mockEventPublisher) Publish(_ context.Context, topic string, events ...event.DomainEvent) error {
	if m.publishErr != nil {
		return m.publishErr
	}
	m.publishedTopic = topic
	m.publishedEvents = append(m.publishedEvents, events...)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func eur(s string) money.Money {
	m, err := money.NewFromString(s, "EUR")
	if err != nil {
		panic(err)
	}
	return m
}

func externalAccount(iban, name, balance string) model.ExternalAccount {
	return model.ExternalAccount{
		ExternalID:  "ext-" + iban,
		UserID:      "user-1",
		BankID:      "ca",
		BankName:    "Crédit Agricole",
		IBAN:        iban,
		Name:        name,
		Balance:     eur(balance),
		AccountType: valueobject.AccountTypeChecking,
	}
}

// --- Tests ---

func TestSyncAccountsUseCase_Execute(t *testing.T) {
	t.Run("creates local account for unknown IBAN", func(t *testing.T) {
		provider := &mockBankProvider{
			accounts: []model.ExternalAccount{externalAccount("FR761111", "Compte Courant", "1250.50")},
		}
		repo := &mockLocalAccountRepository{byIBAN: map[string]model.LocalAccount{}}
		publisher := &mockEventPublisher{}

		uc := usecase.NewSyncAccountsUseCase(provider, repo, publisher, testLogger(), nil)
		resp, err := uc.Execute(context.Background(), dto.SyncAccountsRequest{UserID: "user-1"})
		require.NoError(t, err)

		require.Len(t, resp.Created, 1)
		assert.Empty(t, resp.Adjusted)
		assert.Equal(t, "FR761111", resp.Created[0].IBAN)
		assert.Equal(t, "1250.50", resp.Created[0].Balance)
		assert.Equal(t, 1, resp.AccountsProcessed)

		require.Len(t, repo.created, 1)
		created := repo.created[0]
		assert.NotEqual(t, uuid.Nil, created.ID)
		assert.Equal(t, "user-1", created.UserID)
		assert.True(t, created.Balance.Equal(eur("1250.50")))
		assert.Equal(t, valueobject.AccountTypeChecking, created.AccountType)

		// AccountLinked plus the terminal SyncCompleted.
		require.Len(t, publisher.publishedEvents, 2)
		assert.Equal(t, "bank.account.linked", publisher.publishedEvents[0].EventType())
		assert.Equal(t, "bank.sync.completed", publisher.publishedEvents[1].EventType())
		assert.Equal(t, "bank-sync-events", publisher.publishedTopic)
	})

	t.Run("adjusts balance when it diverges", func(t *testing.T) {
		accountID := uuid.New()
		provider := &mockBankProvider{
			accounts: []model.ExternalAccount{externalAccount("FR761111", "Compte Courant", "1037.50")},
		}
		repo := &mockLocalAccountRepository{byIBAN: map[string]model.LocalAccount{
			"FR761111": {ID: accountID, UserID: "user-1", Name: "Compte Courant", IBAN: "FR761111", Balance: eur("1000.00")},
		}}
		publisher := &mockEventPublisher{}

		uc := usecase.NewSyncAccountsUseCase(provider, repo, publisher, testLogger(), nil)
		resp, err := uc.Execute(context.Background(), dto.SyncAccountsRequest{UserID: "user-1"})
		require.NoError(t, err)

		assert.Empty(t, resp.Created)
		require.Len(t, resp.Adjusted, 1)
		assert.Equal(t, "37.50", resp.Adjusted[0].Delta)
		assert.Equal(t, "Synchronisation Crédit Agricole", resp.Adjusted[0].Reason)

		require.Len(t, repo.adjustments, 1)
		adjustment := repo.adjustments[0]
		assert.Equal(t, accountID, adjustment.accountID)
		assert.True(t, adjustment.delta.Equal(eur("37.50")))
		assert.Equal(t, "Synchronisation Crédit Agricole", adjustment.description)

		require.Len(t, publisher.publishedEvents, 2)
		assert.Equal(t, "bank.account.balance_adjusted", publisher.publishedEvents[0].EventType())
	})

	t.Run("negative delta produces debit adjustment", func(t *testing.T) {
		accountID := uuid.New()
		provider := &mockBankProvider{
			accounts: []model.ExternalAccount{externalAccount("FR761111", "Compte Courant", "900.00")},
		}
		repo := &mockLocalAccountRepository{byIBAN: map[string]model.LocalAccount{
			"FR761111": {ID: accountID, UserID: "user-1", Name: "Compte Courant", IBAN: "FR761111", Balance: eur("1000.00")},
		}}

		uc := usecase.NewSyncAccountsUseCase(provider, repo, &mockEventPublisher{}, testLogger(), nil)
		resp, err := uc.Execute(context.Background(), dto.SyncAccountsRequest{UserID: "user-1"})
		require.NoError(t, err)

		require.Len(t, resp.Adjusted, 1)
		assert.Equal(t, "-100.00", resp.Adjusted[0].Delta)
		require.Len(t, repo.adjustments, 1)
		assert.True(t, repo.adjustments[0].delta.IsNegative())
	})

	t.Run("matching balance is a no-op", func(t *testing.T) {
		provider := &mockBankProvider{
			accounts: []model.ExternalAccount{externalAccount("FR761111", "Compte Courant", "1000.00")},
		}
		repo := &mockLocalAccountRepository{byIBAN: map[string]model.LocalAccount{
			"FR761111": {ID: uuid.New(), UserID: "user-1", IBAN: "FR761111", Balance: eur("1000.00")},
		}}

		uc := usecase.NewSyncAccountsUseCase(provider, repo, &mockEventPublisher{}, testLogger(), nil)
		resp, err := uc.Execute(context.Background(), dto.SyncAccountsRequest{UserID: "user-1"})
		require.NoError(t, err)

		assert.Empty(t, resp.Created)
		assert.Empty(t, resp.Adjusted)
		assert.Equal(t, 0, resp.AccountsProcessed)
		assert.Empty(t, repo.adjustments)
	})

	t.Run("tallies transactions over the window", func(t *testing.T) {
		first := externalAccount("FR761111", "Compte Courant", "100.00")
		second := externalAccount("FR762222", "Livret A", "200.00")
		provider := &mockBankProvider{
			accounts: []model.ExternalAccount{first, second},
			transactions: map[string][]model.Transaction{
				first.ExternalID:  {{ExternalID: "tx-1"}, {ExternalID: "tx-2"}},
				second.ExternalID: {{ExternalID: "tx-3"}},
			},
		}
		repo := &mockLocalAccountRepository{byIBAN: map[string]model.LocalAccount{}}

		uc := usecase.NewSyncAccountsUseCase(provider, repo, &mockEventPublisher{}, testLogger(), nil)
		resp, err := uc.Execute(context.Background(), dto.SyncAccountsRequest{UserID: "user-1"})
		require.NoError(t, err)

		assert.Equal(t, 3, resp.TransactionsFetched)
		assert.Len(t, resp.Created, 2)
	})

	t.Run("transaction fetch failure reduces tally but run succeeds", func(t *testing.T) {
		first := externalAccount("FR761111", "Compte Courant", "100.00")
		second := externalAccount("FR762222", "Livret A", "200.00")
		provider := &mockBankProvider{
			accounts: []model.ExternalAccount{first, second},
			transactions: map[string][]model.Transaction{
				second.ExternalID: {{ExternalID: "tx-3"}},
			},
			transactionsErr: map[string]error{
				first.ExternalID: fmt.Errorf("provider timeout"),
			},
		}
		repo := &mockLocalAccountRepository{byIBAN: map[string]model.LocalAccount{}}

		uc := usecase.NewSyncAccountsUseCase(provider, repo, &mockEventPublisher{}, testLogger(), nil)
		resp, err := uc.Execute(context.Background(), dto.SyncAccountsRequest{UserID: "user-1"})
		require.NoError(t, err)

		assert.Equal(t, 1, resp.TransactionsFetched)
		assert.Len(t, resp.Created, 2)
	})

	t.Run("account list failure fails the run", func(t *testing.T) {
		provider := &mockBankProvider{accountsErr: model.ErrNotAuthenticated}
		repo := &mockLocalAccountRepository{byIBAN: map[string]model.LocalAccount{}}

		uc := usecase.NewSyncAccountsUseCase(provider, repo, &mockEventPublisher{}, testLogger(), nil)
		_, err := uc.Execute(context.Background(), dto.SyncAccountsRequest{UserID: "user-1"})
		assert.ErrorIs(t, err, model.ErrNotAuthenticated)
	})

	t.Run("per-account repository failure skips the account", func(t *testing.T) {
		provider := &mockBankProvider{
			accounts: []model.ExternalAccount{
				externalAccount("FR761111", "Compte Courant", "100.00"),
				externalAccount("FR762222", "Livret A", "200.00"),
			},
		}
		repo := &mockLocalAccountRepository{
			byIBAN:    map[string]model.LocalAccount{},
			createErr: fmt.Errorf("connection refused"),
		}

		uc := usecase.NewSyncAccountsUseCase(provider, repo, &mockEventPublisher{}, testLogger(), nil)
		resp, err := uc.Execute(context.Background(), dto.SyncAccountsRequest{UserID: "user-1"})
		require.NoError(t, err)

		assert.Empty(t, resp.Created)
		assert.Empty(t, resp.Adjusted)
	})

	t.Run("publish failure does not fail the run", func(t *testing.T) {
		provider := &mockBankProvider{
			accounts: []model.ExternalAccount{externalAccount("FR761111", "Compte Courant", "100.00")},
		}
		repo := &mockLocalAccountRepository{byIBAN: map[string]model.LocalAccount{}}
		publisher := &mockEventPublisher{publishErr: fmt.Errorf("broker unavailable")}

		uc := usecase.NewSyncAccountsUseCase(provider, repo, publisher, testLogger(), nil)
		resp, err := uc.Execute(context.Background(), dto.SyncAccountsRequest{UserID: "user-1"})
		require.NoError(t, err)
		assert.Len(t, resp.Created, 1)
	})
}
