package moderation

import (
	"context"
	"unicode/utf8"
)

// ProcessSubmission validates an anonymous free-text submission and,
// if accepted, records it as pending and fans it out to the moderator
// pool. The record survives partial fan-out failure: once inserted it
// stays pending regardless of which moderators were reachable.
func (eng *Engine) ProcessSubmission(ctx context.Context, meta SubmissionMeta, text string) error {
	if err := eng.requireBanGate(ctx, meta.Author.ID); err != nil {
		return err
	}

	length := utf8.RuneCountInString(text)
	if length < MinConfessionLength {
		return &TooShortError{Length: length, Deficit: MinConfessionLength - length}
	}

	rec := &Confession{
		ID:     userConfessionID(meta.MessageID, meta.Author.ID),
		Text:   text,
		Author: meta.Author,
	}
	eng.Registry.Insert(rec)
	confessionsReceived.Inc()
	eng.Logger.Info("confession received", "confession", rec.ID, "chars", length)

	eng.fanOut(ctx, rec)
	return nil
}

// ProcessAdminSubmission is the explicit command path for
// moderator-authored confessions. Length validation is skipped;
// authorization is not.
func (eng *Engine) ProcessAdminSubmission(ctx context.Context, meta SubmissionMeta, text string) error {
	if err := eng.requireModerator(ctx, meta.Author.ID); err != nil {
		return err
	}

	rec := &Confession{
		ID:             adminConfessionID(meta.MessageID, meta.Author.ID),
		Text:           text,
		Author:         meta.Author,
		AdminSubmitted: true,
	}
	eng.Registry.Insert(rec)
	confessionsReceived.Inc()
	eng.Logger.Info("admin confession received", "confession", rec.ID)

	eng.fanOut(ctx, rec)
	return nil
}

// fanOut delivers one notice per moderator. Privileged-only fields
// are attached per-recipient. A moderator being unreachable is logged
// and skipped; it neither aborts the remaining deliveries nor rolls
// back the record.
func (eng *Engine) fanOut(ctx context.Context, rec *Confession) {
	mods, err := eng.Directory.Moderators(ctx)
	if err != nil {
		eng.Logger.Error("listing moderators for fan-out", "err", err, "confession", rec.ID)
		return
	}

	for _, mod := range mods {
		notice := &Notice{
			ConfessionID:   rec.ID,
			Text:           rec.Text,
			CharCount:      utf8.RuneCountInString(rec.Text),
			AdminSubmitted: rec.AdminSubmitted,
		}
		priv, err := eng.Directory.IsPrivileged(ctx, mod)
		if err != nil {
			eng.Logger.Error("privilege lookup failed", "err", err, "moderator", mod)
		}
		if priv {
			author := rec.Author
			notice.Author = &author
		}
		if err := eng.Transport.Notify(ctx, mod, notice); err != nil {
			eng.Logger.Warn("moderator fan-out delivery failed", "err", err, "moderator", mod, "confession", rec.ID)
			noticeFailures.Inc()
		}
	}
}
