// Package revocation tracks logged-out tokens by their JTI until the token
// would have expired on its own.
package revocation

import (
	"context"
	"time"
)

type Store interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Close() error
}
