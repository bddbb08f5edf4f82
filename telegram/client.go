// Telegram Bot API transport for the moderation engine.
//
// Everything goes over plain HTTPS POSTs against the Bot API; no
// long polling (the daemon receives updates via webhook). This
// package owns message rendering: the engine hands over structured
// notices and this client decides Telegram-specific presentation
// (inline keyboards, HTML deep links).
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/secreto-bot/secreto/moderation"
)

const defaultAPIHost = "https://api.telegram.org"

type Client struct {
	Host       string
	Token      string
	HTTPClient *http.Client
}

func NewClient(token string) *Client {
	return &Client{
		Host:  defaultAPIHost,
		Token: token,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

var _ moderation.Transport = (*Client)(nil)

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, params any) error {
	body, err := json.Marshal(params)
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/bot%s/%s", c.Host, c.Token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("telegram %s: unexpected response (status=%d): %w", method, resp.StatusCode, err)
	}
	if !out.OK {
		return fmt.Errorf("telegram %s failed (status=%d): %s", method, resp.StatusCode, out.Description)
	}
	return nil
}

type sendMessageParams struct {
	ChatID                int64                 `json:"chat_id"`
	Text                  string                `json:"text"`
	ParseMode             string                `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool                  `json:"disable_web_page_preview,omitempty"`
	ReplyMarkup           *InlineKeyboardMarkup `json:"reply_markup,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, recipientID int64, text string) error {
	return c.call(ctx, "sendMessage", &sendMessageParams{ChatID: recipientID, Text: text})
}

// SendHTML sends a message with Telegram HTML parse mode, for deep links.
func (c *Client) SendHTML(ctx context.Context, recipientID int64, text string) error {
	return c.call(ctx, "sendMessage", &sendMessageParams{
		ChatID:                recipientID,
		Text:                  text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
}

func (c *Client) Publish(ctx context.Context, channelID int64, text string) error {
	return c.call(ctx, "sendMessage", &sendMessageParams{ChatID: channelID, Text: text})
}

// Notify delivers a fan-out notice with accept/reject inline
// controls addressed by confession id.
func (c *Client) Notify(ctx context.Context, recipientID int64, notice *moderation.Notice) error {
	params := &sendMessageParams{
		ChatID: recipientID,
		Text:   renderNotice(notice),
		ReplyMarkup: &InlineKeyboardMarkup{
			InlineKeyboard: [][]InlineKeyboardButton{{
				{Text: "✅ Accept", CallbackData: callbackData(moderation.ActionAccept, notice.ConfessionID)},
				{Text: "❌ Reject", CallbackData: callbackData(moderation.ActionReject, notice.ConfessionID)},
			}},
		},
	}
	if notice.Author != nil {
		// privileged variant embeds an HTML profile deep link
		params.ParseMode = "HTML"
		params.DisableWebPagePreview = true
	}
	return c.call(ctx, "sendMessage", params)
}

type editMessageTextParams struct {
	ChatID    int64  `json:"chat_id"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}

// EditMessageText replaces the text (and drops the inline keyboard)
// of a previously sent message.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text string) error {
	return c.call(ctx, "editMessageText", &editMessageTextParams{ChatID: chatID, MessageID: messageID, Text: text})
}

type answerCallbackQueryParams struct {
	CallbackQueryID string `json:"callback_query_id"`
}

// AnswerCallbackQuery acknowledges a button press so the client stops showing a spinner.
func (c *Client) AnswerCallbackQuery(ctx context.Context, callbackQueryID string) error {
	return c.call(ctx, "answerCallbackQuery", &answerCallbackQueryParams{CallbackQueryID: callbackQueryID})
}

type setWebhookParams struct {
	URL string `json:"url"`
}

func (c *Client) SetWebhook(ctx context.Context, url string) error {
	return c.call(ctx, "setWebhook", &setWebhookParams{URL: url})
}

func renderNotice(n *moderation.Notice) string {
	var b strings.Builder
	if n.AdminSubmitted {
		b.WriteString("📝 New confession from a moderator:\n\n")
	} else {
		fmt.Fprintf(&b, "📝 New confession received (%d characters):\n\n", n.CharCount)
	}
	if n.Author != nil {
		b.WriteString(html.EscapeString(n.Text))
		fmt.Fprintf(&b, "\n\n👤 User: %d", n.Author.ID)
		if n.Author.Username != "" {
			fmt.Fprintf(&b, " (@%s)", n.Author.Username)
		}
		name := n.Author.Username
		if name == "" {
			name = n.Author.DisplayName
		}
		if name != "" {
			fmt.Fprintf(&b, "\n<a href=\"%s\">%s</a>", ProfileLink(n.Author.ID), html.EscapeString(name))
		}
	} else {
		b.WriteString(n.Text)
	}
	return b.String()
}

// ProfileLink builds a tg:// deep link to a user profile by numeric id.
func ProfileLink(userID int64) string {
	return fmt.Sprintf("tg://user?id=%d", userID)
}

func callbackData(action moderation.Action, confessionID string) string {
	return string(action) + ":" + confessionID
}

// ParseCallback splits inline-button callback data back into the
// moderation action and confession id.
func ParseCallback(data string) (moderation.Action, string, error) {
	action, id, found := strings.Cut(data, ":")
	if !found || id == "" {
		return "", "", fmt.Errorf("malformed callback data: %q", data)
	}
	switch moderation.Action(action) {
	case moderation.ActionAccept, moderation.ActionReject:
		return moderation.Action(action), id, nil
	default:
		return "", "", fmt.Errorf("unknown callback action: %q", action)
	}
}
