package session

// WebSocket close codes from the application-defined range (RFC 6455),
// shared by internal/transport and the batch loop.
const (
	CloseUnauthenticated     = 4001
	CloseMessageRateExceeded = 4008
	CloseConnectionLifetime  = 4009
	CloseHeartbeatTimeout    = 4010
	CloseQuotaExceeded       = 4011
	CloseInternalFatal       = 1011
)
