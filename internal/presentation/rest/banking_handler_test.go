package rest_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TRoazhon/FLOOSE-2025/internal/application/dto"
	"github.com/TRoazhon/FLOOSE-2025/internal/application/usecase"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/event"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/infrastructure/provider"
	"github.com/TRoazhon/FLOOSE-2025/internal/presentation/rest"
	"github.com/TRoazhon/FLOOSE-2025/pkg/money"
)

// memoryAccountRepo is a map-backed LocalAccountRepository for handler tests.
type memoryAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]model.LocalAccount
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{accounts: make(map[string]model.LocalAccount)}
}

func (r *memoryAccountRepo) FindByIBAN(_ context.Context, userID, iban string) (model.LocalAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[userID+"/"+iban]
	if !ok {
		return model.LocalAccount{}, model.ErrAccountNotFound
	}
	return account, nil
}

func (r *memoryAccountRepo) Create(_ context.Context, account model.LocalAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[account.UserID+"/"+account.IBAN] = account
	return nil
}

func (r *memoryAccountRepo) ApplyBalanceAdjustment(_ context.Context, accountID uuid.UUID, delta money.Money, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, account := range r.accounts {
		if account.ID == accountID {
			balance, err := account.Balance.Add(delta)
			if err != nil {
				return err
			}
			account.Balance = balance
			r.accounts[key] = account
			return nil
		}
	}
	return model.ErrAccountNotFound
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, ...event.DomainEvent) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sim := provider.NewSimulator(logger)
	repo := newMemoryAccountRepo()

	handler := rest.NewBankingHandler(
		usecase.NewListBanksUseCase(sim),
		nil,
		nil,
		usecase.NewConnectBankUseCase(sim, logger),
		usecase.NewDisconnectBankUseCase(sim, logger),
		usecase.NewConnectionStatusUseCase(sim),
		usecase.NewSyncAccountsUseCase(sim, repo, noopPublisher{}, logger, nil),
		usecase.NewAccountsSummaryUseCase(sim, logger),
		usecase.NewRecentTransactionsUseCase(sim, logger),
		usecase.NewSpendingByCategoryUseCase(sim, logger),
		nil,
		logger,
	)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doRequest(t *testing.T, server *httptest.Server, method, path string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, server.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("X-User-ID", "user-1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, body
}

func TestBankingHandler_ListBanks(t *testing.T) {
	server := newTestServer(t)

	resp, body := doRequest(t, server, http.MethodGet, "/api/banks")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var banks dto.ListBanksResponse
	require.NoError(t, json.Unmarshal(body, &banks))
	assert.Len(t, banks.Banks, 8)
	assert.Equal(t, "ca", banks.Banks[0].ID)
}

func TestBankingHandler_ConnectAndSync(t *testing.T) {
	server := newTestServer(t)

	resp, body := doRequest(t, server, http.MethodPost, "/api/banks/ca/connect")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var connection dto.ConnectionResponse
	require.NoError(t, json.Unmarshal(body, &connection))
	assert.True(t, connection.Connected)

	resp, body = doRequest(t, server, http.MethodPost, "/api/bank/sync")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sync dto.SyncAccountsResponse
	require.NoError(t, json.Unmarshal(body, &sync))
	assert.NotEmpty(t, sync.Created)

	// A second sync finds the accounts already reconciled.
	resp, body = doRequest(t, server, http.MethodPost, "/api/bank/sync")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &sync))
	assert.Empty(t, sync.Created)
}

func TestBankingHandler_UnknownBank(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doRequest(t, server, http.MethodPost, "/api/banks/nope/connect")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBankingHandler_MissingUser(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/banks/ca/connect", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestBankingHandler_SummaryAndSpending(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doRequest(t, server, http.MethodPost, "/api/banks/ca/connect")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, server, http.MethodGet, "/api/bank/accounts/summary")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaryResp dto.AccountsSummaryResponse
	require.NoError(t, json.Unmarshal(body, &summaryResp))
	assert.GreaterOrEqual(t, summaryResp.AccountCount, 1)
	assert.NotEmpty(t, summaryResp.Banks)

	resp, body = doRequest(t, server, http.MethodGet, "/api/bank/spending?days=30")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var spending dto.SpendingByCategoryResponse
	require.NoError(t, json.Unmarshal(body, &spending))
	assert.NotEmpty(t, spending.Categories)

	resp, body = doRequest(t, server, http.MethodGet, "/api/bank/transactions/recent?limit=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var recent dto.RecentTransactionsResponse
	require.NoError(t, json.Unmarshal(body, &recent))
	assert.LessOrEqual(t, len(recent.Transactions), 10)
	assert.NotEmpty(t, recent.Transactions)
}

func TestBankingHandler_AuthorizeUnavailableWithSimulator(t *testing.T) {
	server := newTestServer(t)

	resp, _ := doRequest(t, server, http.MethodGet, "/api/bank/authorize")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}
