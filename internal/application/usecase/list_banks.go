package usecase

import (
	"github.com/TRoazhon/FLOOSE-2025/internal/application/dto"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
)

// ListBanksUseCase lists the banks available for connection.
type ListBanksUseCase struct {
	provider port.BankProvider
}

// NewListBanksUseCase creates a new ListBanksUseCase.
func NewListBanksUseCase(provider port.BankProvider) *ListBanksUseCase {
	return &ListBanksUseCase{provider: provider}
}

// Execute returns the provider's bank catalog.
func (uc *ListBanksUseCase) Execute() dto.ListBanksResponse {
	banks := uc.provider.ListBanks()
	resp := dto.ListBanksResponse{Banks: make([]dto.BankResponse, 0, len(banks))}
	for _, bank := range banks {
		resp.Banks = append(resp.Banks, dto.BankResponse{
			ID:        bank.ID,
			Name:      bank.Name,
			LogoURL:   bank.LogoURL,
			Country:   bank.Country,
			Supported: bank.Supported,
		})
	}
	return resp
}
