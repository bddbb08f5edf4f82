// Moderation workflow for anonymous confession submissions.
//
// This package (`github.com/secreto-bot/secreto/moderation`) contains
// the state machine that routes anonymous text submissions to a pool
// of human moderators and guarantees that exactly one verdict is
// applied per submission, even when several moderators act on it
// concurrently. The central piece is the Registry, which owns the
// pending set, the resolved set, and per-moderator rejection intents,
// and exposes a single atomic claim operation. The Engine wraps the
// Registry with intake validation, moderator fan-out, the two-step
// rejection dialogue, and best-effort resolution broadcasts.
//
// Outbound messaging and the ban registry are capability interfaces
// (Transport, banstore.BanStore) implemented elsewhere. See
// `telegram` for the Bot API transport and `cmd/secreto` for a daemon
// built on this package.
package moderation
