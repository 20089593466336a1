package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/valueobject"
	"github.com/TRoazhon/FLOOSE-2025/internal/infrastructure/oauth"
	"github.com/TRoazhon/FLOOSE-2025/pkg/money"
)

const (
	accountsEndpoint     = "/psd2/v1/accounts"
	transactionsEndpoint = "/psd2/v1/accounts/%s/transactions"

	// psd2DateFormat is the date-only format the PSD2 API uses for booking
	// dates and query bounds.
	psd2DateFormat = "2006-01-02"

	// psd2BankID is the catalog entry this provider serves.
	psd2BankID = "ca"
)

// PSD2 is the BankProvider backed by the Crédit Agricole PSD2 API. All calls
// go through the OAuth2 client, which handles token resolution, the single
// refresh-and-retry on 401, and error classification.
type PSD2 struct {
	client *oauth.Client
	banks  []model.Bank
	logger *slog.Logger
	now    func() time.Time
}

var _ port.BankProvider = (*PSD2)(nil)

// NewPSD2 creates the real provider over an authenticated OAuth2 client.
func NewPSD2(client *oauth.Client, logger *slog.Logger) *PSD2 {
	return &PSD2{
		client: client,
		banks:  Catalog(),
		logger: logger,
		now:    time.Now,
	}
}

// Name returns the provider name used in adjustment narratives.
func (p *PSD2) Name() string {
	return "Crédit Agricole"
}

// ListBanks returns the static catalog.
func (p *PSD2) ListBanks() []model.Bank {
	return p.banks
}

// Connect reports the connection derived from the user's token state. The
// actual authorization happens through the OAuth2 redirect flow; by the time
// Connect is called the tokens either exist or they do not.
func (p *PSD2) Connect(ctx context.Context, userID, bankID string) (model.BankConnection, error) {
	if bankID != psd2BankID {
		return model.BankConnection{}, fmt.Errorf("%w: %s", model.ErrUnknownBank, bankID)
	}
	if !p.client.IsConnected(ctx, userID) {
		return model.BankConnection{
			UserID: userID,
			BankID: bankID,
			Status: valueobject.ConnectionStatusPending,
		}, nil
	}
	return p.connectionFromToken(userID, bankID), nil
}

// Disconnect drops the user's stored tokens.
func (p *PSD2) Disconnect(_ context.Context, userID, bankID string) (bool, error) {
	if bankID != psd2BankID {
		return false, fmt.Errorf("%w: %s", model.ErrUnknownBank, bankID)
	}
	return p.client.Disconnect(userID), nil
}

// ConnectionStatus reports the connection state without refreshing tokens.
func (p *PSD2) ConnectionStatus(_ context.Context, userID, bankID string) (model.BankConnection, error) {
	if bankID != psd2BankID {
		return model.BankConnection{}, fmt.Errorf("%w: %s", model.ErrUnknownBank, bankID)
	}
	record, ok := p.client.TokenState(userID)
	if !ok {
		return model.BankConnection{
			UserID: userID,
			BankID: bankID,
			Status: valueobject.ConnectionStatusDisconnected,
		}, nil
	}
	status := valueobject.ConnectionStatusConnected
	if !p.now().Before(record.ExpiresAt) && record.RefreshToken == "" {
		status = valueobject.ConnectionStatusExpired
	}
	expires := record.ExpiresAt
	return model.BankConnection{
		UserID:    userID,
		BankID:    bankID,
		Status:    status,
		ExpiresAt: &expires,
	}, nil
}

func (p *PSD2) connectionFromToken(userID, bankID string) model.BankConnection {
	now := p.now()
	connection := model.BankConnection{
		UserID:      userID,
		BankID:      bankID,
		Status:      valueobject.ConnectionStatusConnected,
		ConnectedAt: &now,
	}
	if record, ok := p.client.TokenState(userID); ok {
		expires := record.ExpiresAt
		connection.ExpiresAt = &expires
	}
	return connection
}

type psd2Amount struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

type psd2Balance struct {
	BalanceType   string     `json:"balanceType"`
	BalanceAmount psd2Amount `json:"balanceAmount"`
}

type psd2Account struct {
	ResourceID      string        `json:"resourceId"`
	IBAN            string        `json:"iban"`
	Name            string        `json:"name"`
	Product         string        `json:"product"`
	CashAccountType string        `json:"cashAccountType"`
	Currency        string        `json:"currency"`
	Balances        []psd2Balance `json:"balances"`
}

type psd2AccountsResponse struct {
	Accounts []psd2Account `json:"accounts"`
}

type psd2Transaction struct {
	TransactionID                     string     `json:"transactionId"`
	EndToEndID                        string     `json:"endToEndId"`
	BookingDate                       string     `json:"bookingDate"`
	TransactionAmount                 psd2Amount `json:"transactionAmount"`
	CreditorName                      string     `json:"creditorName"`
	DebtorName                        string     `json:"debtorName"`
	RemittanceInformationUnstructured string     `json:"remittanceInformationUnstructured"`
}

type psd2TransactionsResponse struct {
	Transactions struct {
		Booked  []psd2Transaction `json:"booked"`
		Pending []psd2Transaction `json:"pending"`
	} `json:"transactions"`
}

// FetchAccounts lists the user's PSD2 accounts. The bank filter is accepted
// for interface symmetry; this provider only ever serves one bank.
func (p *PSD2) FetchAccounts(ctx context.Context, userID, bankID string) ([]model.ExternalAccount, error) {
	if bankID != "" && bankID != psd2BankID {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownBank, bankID)
	}

	raw, err := p.client.AuthorizedRequest(ctx, userID, http.MethodGet, accountsEndpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	var resp psd2AccountsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode accounts response: %w", err)
	}

	bank, _ := FindBank(p.banks, psd2BankID)
	now := p.now()

	accounts := make([]model.ExternalAccount, 0, len(resp.Accounts))
	for _, acc := range resp.Accounts {
		balance, err := selectBalance(acc.Balances)
		if err != nil {
			p.logger.Warn("skipping account with unreadable balance", "resource_id", acc.ResourceID, "error", err)
			continue
		}
		name := acc.Name
		if name == "" {
			name = acc.Product
		}
		accounts = append(accounts, model.ExternalAccount{
			ExternalID:   acc.ResourceID,
			UserID:       userID,
			BankID:       psd2BankID,
			BankName:     bank.Name,
			IBAN:         acc.IBAN,
			Name:         name,
			Balance:      balance,
			AccountType:  valueobject.AccountTypeFromPSD2(acc.CashAccountType),
			LastSyncedAt: now,
		})
	}
	return accounts, nil
}

// selectBalance picks the closingBooked balance when present, falling back to
// expected and then to the first reported balance.
func selectBalance(balances []psd2Balance) (money.Money, error) {
	pick := func(balanceType string) *psd2Balance {
		for i := range balances {
			if balances[i].BalanceType == balanceType {
				return &balances[i]
			}
		}
		return nil
	}

	chosen := pick("closingBooked")
	if chosen == nil {
		chosen = pick("expected")
	}
	if chosen == nil && len(balances) > 0 {
		chosen = &balances[0]
	}
	if chosen == nil {
		return money.Money{}, fmt.Errorf("no balance reported")
	}
	return parseAmount(chosen.BalanceAmount)
}

func parseAmount(amount psd2Amount) (money.Money, error) {
	currency := amount.Currency
	if currency == "" {
		currency = money.EUR.Code()
	}
	return money.NewFromString(amount.Amount, currency)
}

// FetchTransactions lists booked and pending transactions of one account,
// sorted by booking date descending. Zero date bounds are omitted from the
// query; the API treats its bounds as inclusive.
func (p *PSD2) FetchTransactions(ctx context.Context, userID, accountExternalID string, dateFrom, dateTo time.Time) ([]model.Transaction, error) {
	params := url.Values{}
	if !dateFrom.IsZero() {
		params.Set("dateFrom", dateFrom.Format(psd2DateFormat))
	}
	if !dateTo.IsZero() {
		params.Set("dateTo", dateTo.Format(psd2DateFormat))
	}

	endpoint := fmt.Sprintf(transactionsEndpoint, accountExternalID)
	raw, err := p.client.AuthorizedRequest(ctx, userID, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return nil, err
	}

	var resp psd2TransactionsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode transactions response: %w", err)
	}

	out := make([]model.Transaction, 0, len(resp.Transactions.Booked)+len(resp.Transactions.Pending))
	for _, tx := range resp.Transactions.Booked {
		mapped, err := p.mapTransaction(tx, accountExternalID, false)
		if err != nil {
			p.logger.Warn("skipping unreadable transaction", "transaction_id", tx.TransactionID, "error", err)
			continue
		}
		out = append(out, mapped)
	}
	for _, tx := range resp.Transactions.Pending {
		mapped, err := p.mapTransaction(tx, accountExternalID, true)
		if err != nil {
			p.logger.Warn("skipping unreadable transaction", "transaction_id", tx.TransactionID, "error", err)
			continue
		}
		out = append(out, mapped)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].BookingDate.After(out[j].BookingDate)
	})
	return out, nil
}

func (p *PSD2) mapTransaction(tx psd2Transaction, accountExternalID string, pending bool) (model.Transaction, error) {
	amount, err := parseAmount(tx.TransactionAmount)
	if err != nil {
		return model.Transaction{}, err
	}

	bookingDate, err := time.Parse(psd2DateFormat, tx.BookingDate)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parse booking date: %w", err)
	}

	counterparty := tx.CreditorName
	if amount.IsPositive() {
		counterparty = tx.DebtorName
	}

	label := tx.RemittanceInformationUnstructured
	if label == "" {
		label = counterparty
	}

	return model.Transaction{
		ExternalID:        tx.TransactionID,
		AccountExternalID: accountExternalID,
		Amount:            amount,
		Label:             label,
		BookingDate:       bookingDate,
		Category:          valueobject.Categorize(label, counterparty),
		Merchant:          counterparty,
		Reference:         tx.EndToEndID,
		Pending:           pending,
	}, nil
}

// SyncAccounts re-fetches the account list to refresh provider-side state and
// reports how many accounts were seen.
func (p *PSD2) SyncAccounts(ctx context.Context, userID string) (port.SyncAccountsResult, error) {
	accounts, err := p.FetchAccounts(ctx, userID, "")
	if err != nil {
		return port.SyncAccountsResult{}, err
	}
	return port.SyncAccountsResult{
		AccountsSynced: len(accounts),
		Timestamp:      p.now(),
	}, nil
}
