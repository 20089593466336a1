package valueobject

import "fmt"

// AccountType is an immutable value object representing the type of a bank account.
type AccountType struct {
	value string
}

// Known account types.
var (
	AccountTypeChecking   = AccountType{"CHECKING"}
	AccountTypeSavings    = AccountType{"SAVINGS"}
	AccountTypeInvestment = AccountType{"INVESTMENT"}
	AccountTypeLoan       = AccountType{"LOAN"}
)

var knownAccountTypes = map[string]AccountType{
	"CHECKING":   AccountTypeChecking,
	"SAVINGS":    AccountTypeSavings,
	"INVESTMENT": AccountTypeInvestment,
	"LOAN":       AccountTypeLoan,
}

// PSD2 cashAccountType codes as reported by the provider API.
var psd2AccountTypes = map[string]AccountType{
	"CACC": AccountTypeChecking,
	"SVGS": AccountTypeSavings,
	"INVS": AccountTypeInvestment,
	"LOAN": AccountTypeLoan,
}

// NewAccountType validates and creates an AccountType from a string.
func NewAccountType(s string) (AccountType, error) {
	at, ok := knownAccountTypes[s]
	if !ok {
		return AccountType{}, fmt.Errorf("unknown account type %q: expected CHECKING, SAVINGS, INVESTMENT, or LOAN", s)
	}
	return at, nil
}

// AccountTypeFromPSD2 maps a PSD2 cashAccountType code to an AccountType.
// Unrecognized codes default to CHECKING, matching provider behavior for
// plain current accounts.
func AccountTypeFromPSD2(code string) AccountType {
	if at, ok := psd2AccountTypes[code]; ok {
		return at
	}
	return AccountTypeChecking
}

// String returns the string representation of the account type.
func (t AccountType) String() string {
	return t.value
}

// IsZero returns true if the account type is empty.
func (t AccountType) IsZero() bool {
	return t.value == ""
}

// Equal returns true if two account types are equal.
func (t AccountType) Equal(other AccountType) bool {
	return t.value == other.value
}
