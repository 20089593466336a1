package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/TRoazhon/FLOOSE-2025/internal/domain/valueobject"
)

// BankConnection represents the state of a user's connection to one bank.
type BankConnection struct {
	ID          uuid.UUID
	UserID      string
	BankID      string
	Status      valueobject.ConnectionStatus
	ConnectedAt *time.Time
	ExpiresAt   *time.Time
	LastError   string
}

// IsConnected returns true if the connection is currently usable.
func (c BankConnection) IsConnected() bool {
	return c.Status == valueobject.ConnectionStatusConnected
}
