// Package provider contains the two BankProvider implementations: the real
// PSD2 provider wrapping the OAuth2 client, and the deterministic simulator
// used in environments without provider credentials.
package provider

import "github.com/TRoazhon/FLOOSE-2025/internal/domain/model"

// Catalog returns the static list of banks available for connection.
func Catalog() []model.Bank {
	return []model.Bank{
		{ID: "ca", Name: "Crédit Agricole", LogoURL: "/static/img/banks/credit-agricole.png", Country: "FR", Supported: true},
		{ID: "bnp", Name: "BNP Paribas", LogoURL: "/static/img/banks/bnp.png", Country: "FR", Supported: true},
		{ID: "sg", Name: "Société Générale", LogoURL: "/static/img/banks/sg.png", Country: "FR", Supported: true},
		{ID: "lcl", Name: "LCL", LogoURL: "/static/img/banks/lcl.png", Country: "FR", Supported: true},
		{ID: "boursorama", Name: "Boursorama", LogoURL: "/static/img/banks/boursorama.png", Country: "FR", Supported: true},
		{ID: "fortuneo", Name: "Fortuneo", LogoURL: "/static/img/banks/fortuneo.png", Country: "FR", Supported: true},
		{ID: "revolut", Name: "Revolut", LogoURL: "/static/img/banks/revolut.png", Country: "EU", Supported: true},
		{ID: "n26", Name: "N26", LogoURL: "/static/img/banks/n26.png", Country: "EU", Supported: true},
	}
}

// FindBank looks up a catalog entry by id.
func FindBank(banks []model.Bank, id string) (model.Bank, bool) {
	for _, b := range banks {
		if b.ID == id {
			return b, true
		}
	}
	return model.Bank{}, false
}
