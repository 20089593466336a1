// Package model defines the domain entities of the banking core: the bank
// catalog, external accounts and transactions as reported by a provider,
// locally owned accounts, connections, and the OAuth2 token and
// authorization-attempt records.
package model

// Bank is a static catalog entry describing a bank available for connection.
// Catalog entries are immutable reference data.
type Bank struct {
	ID        string
	Name      string
	LogoURL   string
	Country   string
	Supported bool
}
