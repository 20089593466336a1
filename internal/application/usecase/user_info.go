package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
)

// UserInfoUseCase fetches the provider-side profile of a connected user.
type UserInfoUseCase struct {
	authorizer port.BankAuthorizer
	logger     *slog.Logger
}

// NewUserInfoUseCase creates a new UserInfoUseCase.
func NewUserInfoUseCase(authorizer port.BankAuthorizer, logger *slog.Logger) *UserInfoUseCase {
	return &UserInfoUseCase{authorizer: authorizer, logger: logger}
}

// Execute returns the provider's userinfo claims for the user.
func (uc *UserInfoUseCase) Execute(ctx context.Context, userID string) (map[string]any, error) {
	info, err := uc.authorizer.UserInfo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	return info, nil
}
