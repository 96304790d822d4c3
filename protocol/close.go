package protocol

// Connection-level close codes. Each handshake rejection cause maps to a
// distinct code so clients can branch on it; these live in the private
// range above the RFC 6455 reserved codes.
const (
	CloseAuthRequired    = 4001 // no credential supplied
	CloseInvalidToken    = 4002 // invalid or expired credential
	CloseUserNotFound    = 4003 // credential resolved to an unknown identity
	CloseServerError     = 4004 // store failure during the handshake
	CloseSuperseded      = 4005 // a newer connection took over this identity
	CloseLivenessTimeout = 4006 // failed to acknowledge a liveness probe
)
