package core

import "context"

// TokenSource supplies the service-to-service access token attached to every
// outbound gateway call. Implementations cache a process-wide token with an
// expiry and refresh opportunistically; token issuance is idempotent, so
// concurrent refreshes are acceptable.
type TokenSource interface {
	// Token returns a currently valid access token, refreshing it if expired
	Token(ctx context.Context) (string, error)
}
