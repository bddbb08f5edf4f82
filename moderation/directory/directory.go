package directory

import (
	"context"
	"errors"
)

// Ergonomic interface for moderator roster lookups.
//
// The engine consults this on every moderator-only entry point and
// during fan-out. Some example implementations of this interface
// could be:
//   - static in-memory roster loaded from environment config
//   - API client against a team-management service
//   - client for a shared network store (eg, Redis)
type Directory interface {
	IsModerator(ctx context.Context, userID int64) (bool, error)

	// A privileged moderator is additionally permitted to see
	// submitter identity in fan-out notices.
	IsPrivileged(ctx context.Context, userID int64) (bool, error)

	Moderators(ctx context.Context) ([]int64, error)
}

// Indicates the target of a roster mutation is not a moderator.
var ErrNotModerator = errors.New("user is not a moderator")

// Indicates a roster mutation would strip the main admin of their own role.
var ErrMainAdmin = errors.New("the main admin's role cannot be changed")
