package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/secreto-bot/secreto/moderation"
	"github.com/secreto-bot/secreto/moderation/directory"
	"github.com/secreto-bot/secreto/telegram"
)

// HandleUpdate routes one webhook update into the moderation engine
// or the command handlers. Replies are best-effort; an unreachable
// chat is logged, never retried.
func (s *Server) HandleUpdate(ctx context.Context, upd *telegram.Update) {
	ctx, span := tracer.Start(ctx, "handleUpdate")
	defer span.End()

	switch {
	case upd.CallbackQuery != nil:
		s.handleCallback(ctx, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.From != nil && upd.Message.Text != "":
		if strings.HasPrefix(upd.Message.Text, "/") {
			s.handleCommand(ctx, upd.Message)
		} else {
			s.handleFreeText(ctx, upd.Message)
		}
	}
}

func (s *Server) reply(ctx context.Context, chatID int64, text string) {
	if err := s.client.SendMessage(ctx, chatID, text); err != nil {
		s.logger.Warn("reply delivery failed", "err", err, "chat", chatID)
	}
}

func (s *Server) handleFreeText(ctx context.Context, msg *telegram.Message) {
	meta := moderation.SubmissionMeta{
		MessageID: msg.MessageID,
		Author: moderation.Author{
			ID:          msg.From.ID,
			Username:    msg.From.Username,
			DisplayName: msg.From.FirstName,
		},
	}

	outcome, err := s.engine.ProcessMessage(ctx, meta, msg.Text)
	if err != nil {
		s.reply(ctx, msg.Chat.ID, renderMessageError(err))
		return
	}
	switch outcome {
	case moderation.OutcomeSubmitted:
		s.reply(ctx, msg.Chat.ID, "Your confession was sent for review. Thank you.")
	case moderation.OutcomeReasonCaptured:
		s.reply(ctx, msg.Chat.ID, "✅ Rejection reason sent to the user.")
	}
}

func renderMessageError(err error) string {
	var tooShort *moderation.TooShortError
	switch {
	case errors.Is(err, moderation.ErrBanned):
		return "🚫 You are banned from this bot."
	case errors.Is(err, moderation.ErrModeratorSubmission):
		return "ℹ️ Moderators cannot submit confessions as plain messages.\nTo confess, use: /adminconf <text>"
	case errors.As(err, &tooShort):
		return fmt.Sprintf("❌ Your confession must be at least %d characters long.\nIt currently has %d characters. Add %d more.",
			moderation.MinConfessionLength, tooShort.Length, tooShort.Deficit)
	default:
		return "🚫 You are not authorized to take this action."
	}
}

func (s *Server) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	callbacksHandled.Inc()
	if err := s.client.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		s.logger.Warn("answering callback query failed", "err", err)
	}

	action, confessionID, err := telegram.ParseCallback(cb.Data)
	if err != nil {
		s.logger.Warn("unroutable callback", "err", err, "actor", cb.From.ID)
		return
	}

	var reply string
	err = s.engine.ProcessModeratorAction(ctx, cb.From.ID, confessionID, action)
	var delivery *moderation.DeliveryError
	switch {
	case err == nil && action == moderation.ActionAccept:
		reply = "✅ Confession published."
	case err == nil:
		reply = "❌ Confession marked for rejection.\n\n📝 Send your next message with the rejection reason:"
	case errors.Is(err, moderation.ErrNotAuthorized):
		reply = "🚫 You are not authorized to take this action."
	case errors.Is(err, moderation.ErrAlreadyResolved), errors.Is(err, moderation.ErrAlreadyClaimed):
		reply = "✅ This confession was already handled by another moderator."
	case errors.As(err, &delivery):
		reply = "❌ Could not publish the confession. Check that the bot is in the channel."
	default:
		s.logger.Error("moderator action failed", "err", err, "confession", confessionID)
		reply = "❌ Something went wrong handling this action."
	}

	// replace the notice under the pressed button so its stale controls disappear
	if cb.Message != nil {
		if err := s.client.EditMessageText(ctx, cb.Message.Chat.ID, cb.Message.MessageID, reply); err != nil {
			s.logger.Warn("editing notice failed", "err", err, "chat", cb.Message.Chat.ID)
		}
		return
	}
	s.reply(ctx, cb.From.ID, reply)
}

func (s *Server) handleCommand(ctx context.Context, msg *telegram.Message) {
	commandsHandled.Inc()
	fields := strings.Fields(msg.Text)
	cmd, _, _ := strings.Cut(fields[0], "@")
	args := fields[1:]

	switch cmd {
	case "/start":
		if !s.allowByBanGate(ctx, msg) {
			return
		}
		s.reply(ctx, msg.Chat.ID, "Welcome! Share your confession and a moderator will review it shortly. It is completely anonymous; you can see the comments once it is published.")
	case "/chatid":
		if !s.allowByBanGate(ctx, msg) {
			return
		}
		s.reply(ctx, msg.Chat.ID, fmt.Sprintf("📊 Chat info:\nID: %d\nType: %s\nTitle: %s", msg.Chat.ID, msg.Chat.Type, msg.Chat.Title))
	case "/adminconf":
		s.handleAdminConfession(ctx, msg, args)
	case "/addmod":
		s.handleAddModerator(ctx, msg, args)
	case "/grantpriv":
		s.handleGrantPrivilege(ctx, msg, args)
	case "/revokepriv":
		s.handleRevokePrivilege(ctx, msg, args)
	case "/identify":
		s.handleIdentify(ctx, msg, args)
	case "/ban":
		s.handleBan(ctx, msg, args, true)
	case "/unban":
		s.handleBan(ctx, msg, args, false)
	}
}

// allowByBanGate blocks banned users from the public commands, failing safe on lookup errors.
func (s *Server) allowByBanGate(ctx context.Context, msg *telegram.Message) bool {
	banned, err := s.bans.Contains(ctx, msg.From.ID)
	if err != nil {
		s.logger.Error("ban store lookup failed", "err", err, "user", msg.From.ID)
		s.reply(ctx, msg.Chat.ID, "🚫 You are not authorized to take this action.")
		return false
	}
	if banned {
		s.reply(ctx, msg.Chat.ID, "🚫 You are banned from this bot.")
		return false
	}
	return true
}

func (s *Server) handleAdminConfession(ctx context.Context, msg *telegram.Message, args []string) {
	if len(args) == 0 {
		s.reply(ctx, msg.Chat.ID, "Usage: /adminconf <text>")
		return
	}
	meta := moderation.SubmissionMeta{
		MessageID: msg.MessageID,
		Author: moderation.Author{
			ID:          msg.From.ID,
			Username:    msg.From.Username,
			DisplayName: msg.From.FirstName,
		},
	}
	if err := s.engine.ProcessAdminSubmission(ctx, meta, strings.Join(args, " ")); err != nil {
		s.reply(ctx, msg.Chat.ID, "🚫 You are not authorized to take this action.")
		return
	}
	s.reply(ctx, msg.Chat.ID, "Your admin confession was sent for review.")
}

// requireMainAdmin gates the roster and ban commands.
func (s *Server) requireMainAdmin(ctx context.Context, msg *telegram.Message) bool {
	if !s.dir.IsMainAdmin(msg.From.ID) {
		s.reply(ctx, msg.Chat.ID, "🚫 Only the main admin can take this action.")
		return false
	}
	return true
}

func parseUserIDArg(args []string) (int64, bool) {
	if len(args) != 1 {
		return 0, false
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (s *Server) handleAddModerator(ctx context.Context, msg *telegram.Message, args []string) {
	if !s.requireMainAdmin(ctx, msg) {
		return
	}
	id, ok := parseUserIDArg(args)
	if !ok {
		s.reply(ctx, msg.Chat.ID, "Usage: /addmod <user_id>")
		return
	}
	if !s.dir.AddModerator(id) {
		s.reply(ctx, msg.Chat.ID, "That user is already a moderator.")
		return
	}
	s.reply(ctx, msg.Chat.ID, fmt.Sprintf("Moderator added: %d", id))
}

func (s *Server) handleGrantPrivilege(ctx context.Context, msg *telegram.Message, args []string) {
	if !s.requireMainAdmin(ctx, msg) {
		return
	}
	id, ok := parseUserIDArg(args)
	if !ok {
		s.reply(ctx, msg.Chat.ID, "Usage: /grantpriv <user_id>")
		return
	}
	granted, err := s.dir.GrantPrivilege(id)
	if errors.Is(err, directory.ErrNotModerator) {
		s.reply(ctx, msg.Chat.ID, "That user is not a moderator. Add them first with /addmod")
		return
	}
	if !granted {
		s.reply(ctx, msg.Chat.ID, "That moderator already has privileges.")
		return
	}
	s.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ Privileges granted to moderator %d. They can now see confession authors.", id))
}

func (s *Server) handleRevokePrivilege(ctx context.Context, msg *telegram.Message, args []string) {
	if !s.requireMainAdmin(ctx, msg) {
		return
	}
	id, ok := parseUserIDArg(args)
	if !ok {
		s.reply(ctx, msg.Chat.ID, "Usage: /revokepriv <user_id>")
		return
	}
	revoked, err := s.dir.RevokePrivilege(id)
	if errors.Is(err, directory.ErrMainAdmin) {
		s.reply(ctx, msg.Chat.ID, "❌ You cannot revoke your own privileges.")
		return
	}
	if !revoked {
		s.reply(ctx, msg.Chat.ID, "That moderator has no special privileges.")
		return
	}
	s.reply(ctx, msg.Chat.ID, fmt.Sprintf("❌ Privileges revoked from moderator %d. They can no longer see confession authors.", id))
}

func (s *Server) handleIdentify(ctx context.Context, msg *telegram.Message, args []string) {
	if !s.requireMainAdmin(ctx, msg) {
		return
	}
	id, ok := parseUserIDArg(args)
	if !ok {
		s.reply(ctx, msg.Chat.ID, "Usage: /identify <user_id>")
		return
	}
	link := fmt.Sprintf(`<a href="%s">Tap here to view the profile</a>`, telegram.ProfileLink(id))
	if err := s.client.SendHTML(ctx, msg.Chat.ID, link); err != nil {
		s.logger.Warn("identify reply failed", "err", err, "chat", msg.Chat.ID)
	}
}

func (s *Server) handleBan(ctx context.Context, msg *telegram.Message, args []string, ban bool) {
	if !s.requireMainAdmin(ctx, msg) {
		return
	}
	usage := "Usage: /ban <user_id>"
	if !ban {
		usage = "Usage: /unban <user_id>"
	}
	id, ok := parseUserIDArg(args)
	if !ok {
		s.reply(ctx, msg.Chat.ID, usage)
		return
	}
	if ban {
		if err := s.bans.Add(ctx, id); err != nil {
			s.logger.Error("ban store add failed", "err", err, "user", id)
			s.reply(ctx, msg.Chat.ID, "❌ Could not update the ban registry.")
			return
		}
		s.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ User %d has been banned.", id))
		return
	}
	if err := s.bans.Remove(ctx, id); err != nil {
		s.logger.Error("ban store remove failed", "err", err, "user", id)
		s.reply(ctx, msg.Chat.ID, "❌ Could not update the ban registry.")
		return
	}
	s.reply(ctx, msg.Chat.ID, fmt.Sprintf("✅ User %d has been unbanned.", id))
}
