package valueobject

// ConnectionStatus represents the lifecycle state of a user's bank connection.
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "CONNECTED"
	ConnectionStatusDisconnected ConnectionStatus = "DISCONNECTED"
	ConnectionStatusPending      ConnectionStatus = "PENDING"
	ConnectionStatusExpired      ConnectionStatus = "EXPIRED"
	ConnectionStatusError        ConnectionStatus = "ERROR"
)
