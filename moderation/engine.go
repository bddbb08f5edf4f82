package moderation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/secreto-bot/secreto/moderation/banstore"
	"github.com/secreto-bot/secreto/moderation/directory"
)

// Runtime for the moderation workflow: validates submissions, fans
// them out to the moderator pool, and resolves moderator verdicts
// through the Registry's atomic claim.
//
// All fields must be non-nil. ChannelID is the publish target for
// accepted confessions; BotLink is appended to published posts so
// readers can submit their own.
type Engine struct {
	Logger    *slog.Logger
	Directory directory.Directory
	Bans      banstore.BanStore
	Transport Transport
	Registry  *Registry
	ChannelID int64
	BotLink   string
}

// A moderator's verdict on a pending confession.
type Action string

const (
	ActionAccept = Action("accept")
	ActionReject = Action("reject")
)

// requireModerator is the authorization guard for moderator-only
// entry points. Directory errors deny, never admit.
func (eng *Engine) requireModerator(ctx context.Context, actorID int64) error {
	ok, err := eng.Directory.IsModerator(ctx, actorID)
	if err != nil {
		eng.Logger.Error("moderator lookup failed", "err", err, "actor", actorID)
		return ErrNotAuthorized
	}
	if !ok {
		return ErrNotAuthorized
	}
	return nil
}

// requireBanGate blocks banned submitters. Fails safe: if the ban
// store cannot be consulted the action is blocked with a generic
// authorization error rather than admitted.
func (eng *Engine) requireBanGate(ctx context.Context, userID int64) error {
	banned, err := eng.Bans.Contains(ctx, userID)
	if err != nil {
		eng.Logger.Error("ban store lookup failed", "err", err, "user", userID)
		return ErrNotAuthorized
	}
	if banned {
		return ErrBanned
	}
	return nil
}

// ProcessModeratorAction handles an accept/reject control press. The
// claim is the only synchronization point: whichever moderator's
// press claims the record owns its resolution, and every later press
// gets ErrAlreadyClaimed or ErrAlreadyResolved.
//
// Accept publishes immediately. A publish failure rolls the claim
// back so the confession stays actionable, and the caller is told via
// DeliveryError. Reject does not finalize: it installs a rejection
// intent and the moderator's next free-text message (see
// ProcessMessage) supplies the reason. A second reject before the
// first reason displaces the earlier intent and returns its record to
// the pool.
func (eng *Engine) ProcessModeratorAction(ctx context.Context, actorID int64, confessionID string, action Action) error {
	// similar to an HTTP server, we want to recover any panics from verdict handling
	defer func() {
		if r := recover(); r != nil {
			eng.Logger.Error("moderation action execution exception", "err", r, "actor", actorID, "confession", confessionID)
		}
	}()

	if err := eng.requireModerator(ctx, actorID); err != nil {
		return err
	}

	rec, err := eng.Registry.Claim(confessionID)
	if err != nil {
		claimConflicts.Inc()
		return err
	}

	switch action {
	case ActionAccept:
		return eng.acceptConfession(ctx, rec)
	case ActionReject:
		if displaced := eng.Registry.SetIntent(actorID, rec); displaced != nil {
			// the earlier reject is abandoned and its confession is
			// already back in the pending set; tell the moderator
			eng.Logger.Info("rejection intent displaced", "actor", actorID, "confession", displaced.Confession.ID)
			msg := "ℹ️ Your earlier rejection of confession " + displaced.Confession.ID + " was cancelled and it is available to the pool again."
			if err := eng.Transport.SendMessage(ctx, actorID, msg); err != nil {
				eng.Logger.Warn("displaced intent notification failed", "err", err, "actor", actorID)
			}
		}
		return nil
	default:
		eng.Registry.Unclaim(rec)
		return fmt.Errorf("unknown moderation action: %q", action)
	}
}

func (eng *Engine) acceptConfession(ctx context.Context, rec *Confession) error {
	post := fmt.Sprintf("New confession:\n\n%s\n\n📝 To share your own confession, visit %s", rec.Text, eng.BotLink)
	if err := eng.Transport.Publish(ctx, eng.ChannelID, post); err != nil {
		// rollback: the record goes back to pending so any moderator can retry
		eng.Registry.Unclaim(rec)
		publishFailures.Inc()
		eng.Logger.Error("publishing confession failed", "err", err, "confession", rec.ID)
		return &DeliveryError{Op: "publish", Err: err}
	}

	eng.Registry.MarkResolved(rec.ID)
	confessionsPublished.Inc()
	eng.Logger.Info("confession published", "confession", rec.ID, "admin", rec.AdminSubmitted)

	if !rec.AdminSubmitted {
		msg := "✅ Your confession was accepted and published on the channel."
		if err := eng.Transport.SendMessage(ctx, rec.Author.ID, msg); err != nil {
			eng.Logger.Warn("author acceptance notification failed", "err", err, "confession", rec.ID)
		}
	}

	eng.broadcastResolved(ctx, rec.ID)
	return nil
}
