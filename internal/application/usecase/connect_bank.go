package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/TRoazhon/FLOOSE-2025/internal/application/dto"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/model"
	"github.com/TRoazhon/FLOOSE-2025/internal/domain/port"
)

// ConnectBankUseCase establishes a connection between a user and a bank
// through the active provider.
type ConnectBankUseCase struct {
	provider port.BankProvider
	logger   *slog.Logger
}

// NewConnectBankUseCase creates a new ConnectBankUseCase.
func NewConnectBankUseCase(provider port.BankProvider, logger *slog.Logger) *ConnectBankUseCase {
	return &ConnectBankUseCase{provider: provider, logger: logger}
}

// Execute connects the user to the bank and reports the resulting state.
func (uc *ConnectBankUseCase) Execute(ctx context.Context, req dto.ConnectBankRequest) (dto.ConnectionResponse, error) {
	connection, err := uc.provider.Connect(ctx, req.UserID, req.BankID)
	if err != nil {
		return dto.ConnectionResponse{}, fmt.Errorf("connect bank: %w", err)
	}

	uc.logger.Info("bank connection requested",
		"user_id", req.UserID,
		"bank_id", req.BankID,
		"status", connection.Status,
	)
	return connectionResponse(connection), nil
}

// DisconnectBankUseCase tears down a user's bank connection.
type DisconnectBankUseCase struct {
	provider port.BankProvider
	logger   *slog.Logger
}

// NewDisconnectBankUseCase creates a new DisconnectBankUseCase.
func NewDisconnectBankUseCase(provider port.BankProvider, logger *slog.Logger) *DisconnectBankUseCase {
	return &DisconnectBankUseCase{provider: provider, logger: logger}
}

// Execute disconnects the user from the bank. Disconnecting an absent
// connection is not an error.
func (uc *DisconnectBankUseCase) Execute(ctx context.Context, req dto.DisconnectBankRequest) (dto.DisconnectBankResponse, error) {
	existed, err := uc.provider.Disconnect(ctx, req.UserID, req.BankID)
	if err != nil {
		return dto.DisconnectBankResponse{}, fmt.Errorf("disconnect bank: %w", err)
	}

	uc.logger.Info("bank disconnected",
		"user_id", req.UserID,
		"bank_id", req.BankID,
		"existed", existed,
	)
	return dto.DisconnectBankResponse{Disconnected: existed}, nil
}

// ConnectionStatusUseCase reports the state of a user's bank connection.
type ConnectionStatusUseCase struct {
	provider port.BankProvider
}

// NewConnectionStatusUseCase creates a new ConnectionStatusUseCase.
func NewConnectionStatusUseCase(provider port.BankProvider) *ConnectionStatusUseCase {
	return &ConnectionStatusUseCase{provider: provider}
}

// Execute reads the connection state without modifying it.
func (uc *ConnectionStatusUseCase) Execute(ctx context.Context, req dto.ConnectBankRequest) (dto.ConnectionResponse, error) {
	connection, err := uc.provider.ConnectionStatus(ctx, req.UserID, req.BankID)
	if err != nil {
		return dto.ConnectionResponse{}, fmt.Errorf("connection status: %w", err)
	}
	return connectionResponse(connection), nil
}

func connectionResponse(connection model.BankConnection) dto.ConnectionResponse {
	return dto.ConnectionResponse{
		BankID:      connection.BankID,
		Status:      string(connection.Status),
		Connected:   connection.IsConnected(),
		ConnectedAt: connection.ConnectedAt,
		ExpiresAt:   connection.ExpiresAt,
	}
}
