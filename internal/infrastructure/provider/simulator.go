package provider

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/valueobject"
	"github.com/TRoazhon/FLOOSE-2025/pkg/money"
)

// simMerchant pairs a merchant label with a typical amount in cents
// (negative = debit) and its category.
type simMerchant struct {
	name      string
	baseCents int64
	category  valueobject.Category
}

// Fixed merchant table the simulator draws transactions from.
var simMerchants = []simMerchant{
	{"Carrefour", -4567, valueobject.CategoryFood},
	{"Leclerc", -7834, valueobject.CategoryFood},
	{"Auchan", -5623, valueobject.CategoryFood},
	{"Lidl", -3245, valueobject.CategoryFood},
	{"Monoprix", -2890, valueobject.CategoryFood},
	{"Picard", -4215, valueobject.CategoryFood},
	{"SNCF", -6700, valueobject.CategoryTransport},
	{"RATP", -8410, valueobject.CategoryTransport},
	{"Total Essence", -6500, valueobject.CategoryTransport},
	{"Uber", -1850, valueobject.CategoryTransport},
	{"Bolt", -1230, valueobject.CategoryTransport},
	{"Blablacar", -2500, valueobject.CategoryTransport},
	{"EDF", -8500, valueobject.CategoryHousing},
	{"Engie", -6500, valueobject.CategoryHousing},
	{"Veolia Eau", -4500, valueobject.CategoryHousing},
	{"SFR", -3599, valueobject.CategoryBills},
	{"Orange", -4999, valueobject.CategoryBills},
	{"Free", -1999, valueobject.CategoryBills},
	{"Netflix", -1799, valueobject.CategoryLeisure},
	{"Spotify", -999, valueobject.CategoryLeisure},
	{"UGC Cinéma", -1250, valueobject.CategoryLeisure},
	{"Fnac", -3499, valueobject.CategoryLeisure},
	{"Amazon", -5678, valueobject.CategoryShopping},
	{"Decathlon", -6750, valueobject.CategoryShopping},
	{"IKEA", -12345, valueobject.CategoryShopping},
	{"Pharmacie", -2345, valueobject.CategoryHealth},
	{"Mutuelle", -4500, valueobject.CategoryHealth},
	{"Assurance Auto", -6500, valueobject.CategoryBills},
	{"Loyer", -85000, valueobject.CategoryHousing},
	{"Salaire", 250000, valueobject.CategoryIncome},
	{"Virement reçu", 15000, valueobject.CategoryIncome},
	{"Remboursement", 4500, valueobject.CategoryIncome},
}

// transactionHistoryDays is the rolling window of generated history.
const transactionHistoryDays = 90

// Simulator is the in-memory BankProvider used for development and tests.
// Account generation is deterministic per (userID, bankID): connecting the
// same user to the same bank always yields the same IBANs and starting
// balances, so fixtures are reproducible across runs.
type Simulator struct {
	mu           sync.Mutex
	banks        []model.Bank
	connections  map[string]map[string]model.BankConnection
	accounts     map[string][]model.ExternalAccount
	transactions map[string][]model.Transaction
	logger       *slog.Logger
	now          func() time.Time
}

var _ port.BankProvider = (*Simulator)(nil)

// NewSimulator creates a simulator over the static bank catalog.
func NewSimulator(logger *slog.Logger) *Simulator {
	return &Simulator{
		banks:        Catalog(),
		connections:  make(map[string]map[string]model.BankConnection),
		accounts:     make(map[string][]model.ExternalAccount),
		transactions: make(map[string][]model.Transaction),
		logger:       logger,
		now:          time.Now,
	}
}

// Name returns the provider name used in adjustment narratives.
func (s *Simulator) Name() string {
	return "Simulateur"
}

// ListBanks returns the static catalog.
func (s *Simulator) ListBanks() []model.Bank {
	return s.banks
}

// Connect establishes a simulated connection and generates the user's
// accounts for that bank.
func (s *Simulator) Connect(_ context.Context, userID, bankID string) (model.BankConnection, error) {
	bank, ok := FindBank(s.banks, bankID)
	if !ok {
		return model.BankConnection{}, fmt.Errorf("%w: %s", model.ErrUnknownBank, bankID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expires := now.Add(90 * 24 * time.Hour)
	connection := model.BankConnection{
		ID:          uuid.New(),
		UserID:      userID,
		BankID:      bankID,
		Status:      valueobject.ConnectionStatusConnected,
		ConnectedAt: &now,
		ExpiresAt:   &expires,
	}

	if s.connections[userID] == nil {
		s.connections[userID] = make(map[string]model.BankConnection)
	}
	s.connections[userID][bankID] = connection

	s.generateAccountsLocked(userID, bank)

	s.logger.Info("simulated bank connection established", "user_id", userID, "bank_id", bankID)
	return connection, nil
}

// Disconnect removes the simulated connection and its accounts.
func (s *Simulator) Disconnect(_ context.Context, userID, bankID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	connection, ok := s.connections[userID][bankID]
	if !ok || connection.Status != valueobject.ConnectionStatusConnected {
		return false, nil
	}

	connection.Status = valueobject.ConnectionStatusDisconnected
	s.connections[userID][bankID] = connection

	kept := s.accounts[userID][:0]
	for _, account := range s.accounts[userID] {
		if account.BankID != bankID {
			kept = append(kept, account)
		}
	}
	s.accounts[userID] = kept

	return true, nil
}

// ConnectionStatus reports the stored connection state.
func (s *Simulator) ConnectionStatus(_ context.Context, userID, bankID string) (model.BankConnection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if connection, ok := s.connections[userID][bankID]; ok {
		return connection, nil
	}
	return model.BankConnection{
		UserID: userID,
		BankID: bankID,
		Status: valueobject.ConnectionStatusDisconnected,
	}, nil
}

// FetchAccounts returns the user's generated accounts, optionally filtered
// by bank.
func (s *Simulator) FetchAccounts(_ context.Context, userID, bankID string) ([]model.ExternalAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.ExternalAccount
	for _, account := range s.accounts[userID] {
		if bankID == "" || account.BankID == bankID {
			out = append(out, account)
		}
	}
	return out, nil
}

// FetchTransactions returns the account's generated transaction history,
// filtered inclusively by the date bounds, sorted by booking date descending.
func (s *Simulator) FetchTransactions(_ context.Context, _ string, accountExternalID string, dateFrom, dateTo time.Time) ([]model.Transaction, error) {
	s.mu.Lock()
	if _, ok := s.transactions[accountExternalID]; !ok {
		s.transactions[accountExternalID] = s.generateTransactionsLocked(accountExternalID)
	}
	history := s.transactions[accountExternalID]
	s.mu.Unlock()

	out := make([]model.Transaction, 0, len(history))
	for _, tx := range history {
		if !dateFrom.IsZero() && tx.BookingDate.Before(dateFrom) {
			continue
		}
		if !dateTo.IsZero() && tx.BookingDate.After(dateTo) {
			continue
		}
		out = append(out, tx)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].BookingDate.After(out[j].BookingDate)
	})
	return out, nil
}

// SyncAccounts refreshes lastSyncedAt and applies a small deterministic
// balance drift to simulate account activity between syncs.
func (s *Simulator) SyncAccounts(_ context.Context, userID string) (port.SyncAccountsResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	accounts := s.accounts[userID]
	for i, account := range accounts {
		rng := seededRand(account.IBAN, now.Format("2006-01-02"))
		driftCents := rng.Int63n(15001) - 5000 // -50.00 .. +100.00
		drift := money.NewFromCents(driftCents, money.EUR)
		balance, err := account.Balance.Add(drift)
		if err == nil {
			accounts[i].Balance = balance
		}
		accounts[i].LastSyncedAt = now
	}

	return port.SyncAccountsResult{
		AccountsSynced: len(accounts),
		Timestamp:      now,
	}, nil
}

// generateAccountsLocked deterministically creates the user's accounts for a
// bank: always a checking account, and a savings account for half of the
// (user, bank) pairs.
func (s *Simulator) generateAccountsLocked(userID string, bank model.Bank) {
	for _, account := range s.accounts[userID] {
		if account.BankID == bank.ID {
			return // already generated for this pair
		}
	}

	rng := seededRand(userID, bank.ID)
	now := s.now()

	checking := model.ExternalAccount{
		ExternalID:   fmt.Sprintf("sim-%s-%s-1", bank.ID, shortHash(userID)),
		UserID:       userID,
		BankID:       bank.ID,
		BankName:     bank.Name,
		IBAN:         generateIBAN(rng),
		Name:         fmt.Sprintf("Compte Courant %s", bank.Name),
		Balance:      money.NewFromCents(50000+rng.Int63n(450001), money.EUR), // 500.00 .. 5000.00
		AccountType:  valueobject.AccountTypeChecking,
		LastSyncedAt: now,
	}
	s.accounts[userID] = append(s.accounts[userID], checking)

	if rng.Float64() > 0.5 {
		savings := model.ExternalAccount{
			ExternalID:   fmt.Sprintf("sim-%s-%s-2", bank.ID, shortHash(userID)),
			UserID:       userID,
			BankID:       bank.ID,
			BankName:     bank.Name,
			IBAN:         generateIBAN(rng),
			Name:         fmt.Sprintf("Livret A %s", bank.Name),
			Balance:      money.NewFromCents(100000+rng.Int63n(1400001), money.EUR), // 1000.00 .. 15000.00
			AccountType:  valueobject.AccountTypeSavings,
			LastSyncedAt: now,
		}
		s.accounts[userID] = append(s.accounts[userID], savings)
	}
}

// generateTransactionsLocked creates 90 days of history for an account:
// 1 to 4 transactions per day from the fixed merchant table, amounts varied
// by up to 20 percent, pending possible within the last two days.
func (s *Simulator) generateTransactionsLocked(accountExternalID string) []model.Transaction {
	rng := seededRand(accountExternalID, "transactions")
	now := s.now()

	var out []model.Transaction
	for daysAgo := 0; daysAgo < transactionHistoryDays; daysAgo++ {
		date := now.AddDate(0, 0, -daysAgo)

		perDay := 1 + rng.Intn(4)
		for i := 0; i < perDay; i++ {
			merchant := simMerchants[rng.Intn(len(simMerchants))]

			// Vary the base amount between 80% and 120%.
			cents := merchant.baseCents * (80 + rng.Int63n(41)) / 100

			out = append(out, model.Transaction{
				ExternalID:        fmt.Sprintf("%s-tx-%d-%d", accountExternalID, daysAgo, i),
				AccountExternalID: accountExternalID,
				Amount:            money.NewFromCents(cents, money.EUR),
				Label:             merchant.name,
				BookingDate:       date,
				Category:          merchant.category,
				Merchant:          merchant.name,
				Reference:         fmt.Sprintf("REF%06d", rng.Intn(900000)+100000),
				Pending:           daysAgo < 2 && rng.Float64() > 0.7,
			})
		}
	}

	s.logger.Debug("generated simulated transactions", "account_id", accountExternalID, "count", len(out))
	return out
}

// generateIBAN produces a well-formed French IBAN from the rng.
func generateIBAN(rng *rand.Rand) string {
	bankCode := 10000 + rng.Intn(90000)
	branchCode := 10000 + rng.Intn(90000)
	accountNumber := 10000000000 + rng.Int63n(90000000000)
	return fmt.Sprintf("FR76%05d%05d%011d00", bankCode, branchCode, accountNumber)
}

// seededRand builds a math/rand source from the FNV-1a hash of its parts.
func seededRand(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'|'})
	}
	return rand.New(rand.NewSource(int64(h.Sum64()))) //nolint:gosec // fixtures, not secrets
}

// shortHash returns a short stable identifier fragment for a string.
func shortHash(s string) string {
	h := fnv.New32a()
	h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
