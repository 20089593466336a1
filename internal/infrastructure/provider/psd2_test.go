package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/valueobject"
	"github.com/TRoazhon/FLOOSE-2025/internal/infrastructure/oauth"
)

// newPSD2ForTest wires a PSD2 provider to an httptest API server with a valid
// token already stored for the user.
func newPSD2ForTest(t *testing.T, apiURL string) *PSD2 {
	t.Helper()

	tokens := oauth.NewMemoryTokenStore()
	tokens.Put(model.TokenRecord{
		UserID:      "user-1",
		AccessToken: "access-token",
		TokenType:   "Bearer",
		ExpiresAt:   time.Now().Add(time.Hour),
	})

	client := oauth.NewClient(oauth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example/callback",
		AuthBaseURL:  apiURL,
		APIBaseURL:   apiURL,
	}, oauth.NewMemoryAttemptStore(), tokens, testLogger(), nil)

	return NewPSD2(client, testLogger())
}

func TestPSD2FetchAccounts(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/psd2/v1/accounts", r.URL.Path)
		require.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"accounts": [
				{
					"resourceId": "acc-1",
					"iban": "FR7612345678901234567890123",
					"name": "Compte de dépôt",
					"cashAccountType": "CACC",
					"currency": "EUR",
					"balances": [
						{"balanceType": "expected", "balanceAmount": {"currency": "EUR", "amount": "1300.00"}},
						{"balanceType": "closingBooked", "balanceAmount": {"currency": "EUR", "amount": "1250.50"}}
					]
				},
				{
					"resourceId": "acc-2",
					"iban": "FR7698765432109876543210987",
					"product": "Livret A",
					"cashAccountType": "SVGS",
					"currency": "EUR",
					"balances": [
						{"balanceType": "expected", "balanceAmount": {"currency": "EUR", "amount": "8000.00"}}
					]
				}
			]
		}`))
	}))
	defer server.Close()

	provider := newPSD2ForTest(t, server.URL)
	accounts, err := provider.FetchAccounts(ctx, "user-1", "")
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	first := accounts[0]
	assert.Equal(t, "acc-1", first.ExternalID)
	assert.Equal(t, "FR7612345678901234567890123", first.IBAN)
	assert.Equal(t, "Compte de dépôt", first.Name)
	assert.Equal(t, valueobject.AccountTypeChecking, first.AccountType)
	// closingBooked wins over expected.
	assert.Equal(t, "1250.50", first.Balance.StringFixed())

	second := accounts[1]
	assert.Equal(t, valueobject.AccountTypeSavings, second.AccountType)
	// Name falls back to product.
	assert.Equal(t, "Livret A", second.Name)
	assert.Equal(t, "8000.00", second.Balance.StringFixed())
}

func TestPSD2FetchAccountsRejectsForeignBank(t *testing.T) {
	provider := newPSD2ForTest(t, "http://127.0.0.1:0")
	_, err := provider.FetchAccounts(context.Background(), "user-1", "bnp")
	assert.ErrorIs(t, err, model.ErrUnknownBank)
}

func TestPSD2FetchAccountsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	provider := newPSD2ForTest(t, server.URL)
	_, err := provider.FetchAccounts(context.Background(), "user-1", "")
	require.Error(t, err)

	var apiErr *model.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestPSD2FetchTransactions(t *testing.T) {
	ctx := context.Background()

	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/psd2/v1/accounts/acc-1/transactions", r.URL.Path)
		gotQuery = map[string]string{
			"dateFrom": r.URL.Query().Get("dateFrom"),
			"dateTo":   r.URL.Query().Get("dateTo"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"transactions": {
				"booked": [
					{
						"transactionId": "tx-1",
						"endToEndId": "E2E-001",
						"bookingDate": "2026-08-28",
						"transactionAmount": {"currency": "EUR", "amount": "-42.50"},
						"creditorName": "CARREFOUR PARIS",
						"remittanceInformationUnstructured": "CB CARREFOUR PARIS"
					},
					{
						"transactionId": "tx-2",
						"bookingDate": "2026-08-30",
						"transactionAmount": {"currency": "EUR", "amount": "2500.00"},
						"debtorName": "ACME SARL"
					}
				],
				"pending": [
					{
						"transactionId": "tx-3",
						"bookingDate": "2026-08-31",
						"transactionAmount": {"currency": "EUR", "amount": "-15.99"},
						"creditorName": "NETFLIX"
					}
				]
			}
		}`))
	}))
	defer server.Close()

	provider := newPSD2ForTest(t, server.URL)
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	transactions, err := provider.FetchTransactions(ctx, "user-1", "acc-1", from, to)
	require.NoError(t, err)
	require.Len(t, transactions, 3)

	assert.Equal(t, "2026-08-01", gotQuery["dateFrom"])
	assert.Equal(t, "2026-08-31", gotQuery["dateTo"])

	// Sorted by booking date descending, booked and pending interleaved.
	assert.Equal(t, "tx-3", transactions[0].ExternalID)
	assert.Equal(t, "tx-2", transactions[1].ExternalID)
	assert.Equal(t, "tx-1", transactions[2].ExternalID)

	pending := transactions[0]
	assert.True(t, pending.Pending)
	// No remittance information: the label falls back to the counterparty.
	assert.Equal(t, "NETFLIX", pending.Label)
	assert.Equal(t, valueobject.CategoryLeisure, pending.Category)

	credit := transactions[1]
	assert.True(t, credit.IsCredit())
	assert.Equal(t, "ACME SARL", credit.Merchant)
	assert.Equal(t, "ACME SARL", credit.Label)

	debit := transactions[2]
	assert.False(t, debit.Pending)
	assert.Equal(t, "CB CARREFOUR PARIS", debit.Label)
	assert.Equal(t, "CARREFOUR PARIS", debit.Merchant)
	assert.Equal(t, "E2E-001", debit.Reference)
	assert.Equal(t, valueobject.CategoryFood, debit.Category)
	assert.Equal(t, "-42.50", debit.Amount.StringFixed())
}

func TestPSD2FetchTransactionsNotAuthenticated(t *testing.T) {
	tokens := oauth.NewMemoryTokenStore()
	client := oauth.NewClient(oauth.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example/callback",
		AuthBaseURL:  "http://127.0.0.1:0",
		APIBaseURL:   "http://127.0.0.1:0",
	}, oauth.NewMemoryAttemptStore(), tokens, testLogger(), nil)
	provider := NewPSD2(client, testLogger())

	_, err := provider.FetchTransactions(context.Background(), "nobody", "acc-1", time.Time{}, time.Time{})
	assert.True(t, errors.Is(err, model.ErrNotAuthenticated))
}

func TestPSD2ConnectionLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown bank", func(t *testing.T) {
		provider := newPSD2ForTest(t, "http://127.0.0.1:0")
		_, err := provider.Connect(ctx, "user-1", "bnp")
		assert.ErrorIs(t, err, model.ErrUnknownBank)
		_, err = provider.ConnectionStatus(ctx, "user-1", "bnp")
		assert.ErrorIs(t, err, model.ErrUnknownBank)
	})

	t.Run("connected with valid token", func(t *testing.T) {
		provider := newPSD2ForTest(t, "http://127.0.0.1:0")

		connection, err := provider.Connect(ctx, "user-1", "ca")
		require.NoError(t, err)
		assert.Equal(t, valueobject.ConnectionStatusConnected, connection.Status)
		require.NotNil(t, connection.ExpiresAt)

		status, err := provider.ConnectionStatus(ctx, "user-1", "ca")
		require.NoError(t, err)
		assert.Equal(t, valueobject.ConnectionStatusConnected, status.Status)
	})

	t.Run("pending without token", func(t *testing.T) {
		provider := newPSD2ForTest(t, "http://127.0.0.1:0")

		connection, err := provider.Connect(ctx, "stranger", "ca")
		require.NoError(t, err)
		assert.Equal(t, valueobject.ConnectionStatusPending, connection.Status)

		status, err := provider.ConnectionStatus(ctx, "stranger", "ca")
		require.NoError(t, err)
		assert.Equal(t, valueobject.ConnectionStatusDisconnected, status.Status)
	})

	t.Run("disconnect removes tokens", func(t *testing.T) {
		provider := newPSD2ForTest(t, "http://127.0.0.1:0")

		existed, err := provider.Disconnect(ctx, "user-1", "ca")
		require.NoError(t, err)
		assert.True(t, existed)

		existed, err = provider.Disconnect(ctx, "user-1", "ca")
		require.NoError(t, err)
		assert.False(t, existed)

		status, err := provider.ConnectionStatus(ctx, "user-1", "ca")
		require.NoError(t, err)
		assert.Equal(t, valueobject.ConnectionStatusDisconnected, status.Status)
	})
}

func TestPSD2SyncAccounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accounts": [{"resourceId": "acc-1", "iban": "FR76X", "cashAccountType": "CACC",
			"balances": [{"balanceType": "closingBooked", "balanceAmount": {"currency": "EUR", "amount": "10.00"}}]}]}`))
	}))
	defer server.Close()

	provider := newPSD2ForTest(t, server.URL)
	result, err := provider.SyncAccounts(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.AccountsSynced)
	assert.False(t, result.Timestamp.IsZero())
}
