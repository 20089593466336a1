package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/valueobject"
)

// TestReconstructLocalAccount tests the helper that maps raw database values
// back into a LocalAccount.
func TestReconstructLocalAccount(t *testing.T) {
	t.Run("successfully reconstructs account", func(t *testing.T) {
		id := uuid.New()
		now := time.Now().UTC().Truncate(time.Microsecond)

		account, err := reconstructLocalAccount(
			id, "user-1", "Compte Courant", "Crédit Agricole", "FR7612345678901234567890123",
			"1250.50", "EUR", "CHECKING",
			now, now,
		)

		require.NoError(t, err)
		assert.Equal(t, id, account.ID)
		assert.Equal(t, "user-1", account.UserID)
		assert.Equal(t, "Compte Courant", account.Name)
		assert.Equal(t, "Crédit Agricole", account.BankName)
		assert.Equal(t, "FR7612345678901234567890123", account.IBAN)
		assert.Equal(t, "1250.50", account.Balance.StringFixed())
		assert.Equal(t, "EUR", account.Balance.Currency().Code())
		assert.Equal(t, valueobject.AccountTypeChecking, account.AccountType)
		assert.Equal(t, now, account.CreatedAt)
	})

	t.Run("rejects malformed balance", func(t *testing.T) {
		_, err := reconstructLocalAccount(
			uuid.New(), "user-1", "Compte", "Banque", "FR76X",
			"not-a-number", "EUR", "CHECKING",
			time.Now(), time.Now(),
		)
		assert.Error(t, err)
	})

	t.Run("rejects unknown account type", func(t *testing.T) {
		_, err := reconstructLocalAccount(
			uuid.New(), "user-1", "Compte", "Banque", "FR76X",
			"10.00", "EUR", "CRYPTO",
			time.Now(), time.Now(),
		)
		assert.Error(t, err)
	})
}
