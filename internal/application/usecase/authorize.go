package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TRoazhon/FLOOSE-2025/internal/application/dto"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
)

// BeginAuthorizationUseCase starts the OAuth2 redirect flow for a user.
type BeginAuthorizationUseCase struct {
	authorizer port.BankAuthorizer
	logger     *slog.Logger
}

// NewBeginAuthorizationUseCase creates a new BeginAuthorizationUseCase.
func NewBeginAuthorizationUseCase(authorizer port.BankAuthorizer, logger *slog.Logger) *BeginAuthorizationUseCase {
	return &BeginAuthorizationUseCase{authorizer: authorizer, logger: logger}
}

// Execute issues the authorization URL the user must visit.
func (uc *BeginAuthorizationUseCase) Execute(_ context.Context, req dto.BeginAuthorizationRequest) (dto.BeginAuthorizationResponse, error) {
	request, err := uc.authorizer.BeginAuthorization(req.UserID, req.Scopes)
	if err != nil {
		return dto.BeginAuthorizationResponse{}, fmt.Errorf("begin authorization: %w", err)
	}

	uc.logger.Info("authorization started", "user_id", req.UserID)
	return dto.BeginAuthorizationResponse{
		AuthorizationURL: request.URL,
		State:            request.State,
	}, nil
}

// CompleteAuthorizationUseCase handles the provider's redirect back to us.
type CompleteAuthorizationUseCase struct {
	authorizer port.BankAuthorizer
	logger     *slog.Logger
}

// NewCompleteAuthorizationUseCase creates a new CompleteAuthorizationUseCase.
func NewCompleteAuthorizationUseCase(authorizer port.BankAuthorizer, logger *slog.Logger) *CompleteAuthorizationUseCase {
	return &CompleteAuthorizationUseCase{authorizer: authorizer, logger: logger}
}

// Execute finishes the authorization flow. A callback carrying an error
// parameter short-circuits before any token request is made.
func (uc *CompleteAuthorizationUseCase) Execute(ctx context.Context, req dto.CompleteAuthorizationRequest) (dto.CompleteAuthorizationResponse, error) {
	if req.ErrorCode != "" {
		uc.logger.Warn("authorization refused by provider",
			"error", req.ErrorCode,
			"description", req.ErrorDescription,
		)
		return dto.CompleteAuthorizationResponse{}, &model.AuthorizationError{
			Code:        req.ErrorCode,
			Description: req.ErrorDescription,
		}
	}

	grant, err := uc.authorizer.CompleteAuthorization(ctx, req.Code, req.State)
	if err != nil {
		return dto.CompleteAuthorizationResponse{}, fmt.Errorf("complete authorization: %w", err)
	}

	uc.logger.Info("authorization completed", "user_id", grant.UserID)
	return dto.CompleteAuthorizationResponse{
		UserID:    grant.UserID,
		ExpiresIn: int(grant.ExpiresIn.Seconds()),
		Scopes:    grant.Scopes,
	}, nil
}
