package moderation

import (
	"context"
)

// Per-recipient fan-out content for one pending confession. Author
// is only populated for privileged moderators; it is computed
// per-recipient and never stored on the Confession itself.
type Notice struct {
	ConfessionID   string
	Text           string
	CharCount      int
	AdminSubmitted bool
	Author         *Author
}

// Interface for the messaging transport the engine calls.
// Implementations decide rendering and wire format; the engine only
// cares whether delivery succeeded. Notify carries accept/reject
// controls addressed by the notice's confession id.
type Transport interface {
	Notify(ctx context.Context, recipientID int64, notice *Notice) error
	SendMessage(ctx context.Context, recipientID int64, text string) error
	Publish(ctx context.Context, channelID int64, text string) error
}

// broadcastResolved tells every moderator that a confession reached
// a terminal outcome, so their stale accept/reject controls become
// inert. Purely informational: individual delivery failures are
// logged and swallowed, the correctness guarantee lives in
// Registry.Claim.
func (eng *Engine) broadcastResolved(ctx context.Context, confessionID string) {
	mods, err := eng.Directory.Moderators(ctx)
	if err != nil {
		eng.Logger.Error("listing moderators for resolution broadcast", "err", err, "confession", confessionID)
		return
	}
	for _, mod := range mods {
		msg := "✅ Confession " + confessionID + " was already handled by another moderator."
		if err := eng.Transport.SendMessage(ctx, mod, msg); err != nil {
			eng.Logger.Warn("resolution broadcast delivery failed", "err", err, "moderator", mod, "confession", confessionID)
			noticeFailures.Inc()
		}
	}
}
