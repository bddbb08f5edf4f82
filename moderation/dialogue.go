package moderation

import "context"

// What became of an incoming free-text message.
type MessageOutcome int

const (
	OutcomeNone = MessageOutcome(iota)
	// The message was accepted as a new confession.
	OutcomeSubmitted
	// The message was consumed as a rejection reason for an in-flight confession.
	OutcomeReasonCaptured
)

// ProcessMessage routes an incoming free-text message. The
// rejection-dialogue check runs strictly before generic intake: a
// moderator with an outstanding intent has their next message
// consumed as the reason no matter how short it is, so it can never
// be misrouted into the minimum-length rule. Moderators without an
// outstanding intent are directed to the admin submission command
// instead of the anonymous path.
func (eng *Engine) ProcessMessage(ctx context.Context, meta SubmissionMeta, text string) (MessageOutcome, error) {
	isMod, err := eng.Directory.IsModerator(ctx, meta.Author.ID)
	if err != nil {
		eng.Logger.Error("moderator lookup failed", "err", err, "user", meta.Author.ID)
		return OutcomeNone, ErrNotAuthorized
	}

	if isMod {
		if intent := eng.Registry.TakeIntent(meta.Author.ID); intent != nil {
			eng.finishRejection(ctx, intent, text)
			return OutcomeReasonCaptured, nil
		}
		return OutcomeNone, ErrModeratorSubmission
	}

	if err := eng.ProcessSubmission(ctx, meta, text); err != nil {
		return OutcomeNone, err
	}
	return OutcomeSubmitted, nil
}

// finishRejection closes the two-step reject flow: deliver the
// reason to the author (best-effort), mark the confession resolved,
// and let the pool know. The record left the pending set at claim
// time, so nothing here can race another moderator.
func (eng *Engine) finishRejection(ctx context.Context, intent *RejectionIntent, reason string) {
	rec := intent.Confession

	msg := "❌ Your confession was rejected.\n\n📋 Reason: " + reason
	if err := eng.Transport.SendMessage(ctx, rec.Author.ID, msg); err != nil {
		eng.Logger.Warn("rejection reason delivery failed", "err", err, "confession", rec.ID)
	}

	eng.Registry.MarkResolved(rec.ID)
	confessionsRejected.Inc()
	eng.Logger.Info("confession rejected", "confession", rec.ID)

	eng.broadcastResolved(ctx, rec.ID)
}
