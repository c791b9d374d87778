package ports

import (
	"context"
	"errors"

	"tracking/internal/core/domain/model/identity"
)

// ErrAuthentication is returned when a credential is missing, unknown or expired.
// It is the only error that refuses or tears down a connection.
var ErrAuthentication = errors.New("authentication failed")

// IdentityProvider resolves the credential presented at connect time.
type IdentityProvider interface {
	Resolve(ctx context.Context, credentialToken string) (identity.Identity, error)
}
