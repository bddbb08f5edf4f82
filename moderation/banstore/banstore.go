// Boolean-membership ban registry, keyed by stringified user id.
//
// The engine only ever asks "is this user in the set"; the store's
// own consistency is out of scope and lookup errors are surfaced so
// the caller can fail safe.
package banstore

import (
	"context"
)

type BanStore interface {
	Contains(ctx context.Context, userID int64) (bool, error)
	Add(ctx context.Context, userID int64) error
	Remove(ctx context.Context, userID int64) error
}
