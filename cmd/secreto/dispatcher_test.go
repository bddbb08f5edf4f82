package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/secreto-bot/secreto/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiCall struct {
	Method string
	Body   map[string]any
}

// fakeBotAPI records every Bot API call the daemon makes and answers ok.
type fakeBotAPI struct {
	lk    sync.Mutex
	calls []apiCall
}

func (f *fakeBotAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		parts := strings.Split(r.URL.Path, "/")
		f.lk.Lock()
		f.calls = append(f.calls, apiCall{Method: parts[len(parts)-1], Body: body})
		f.lk.Unlock()
		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	}
}

func (f *fakeBotAPI) sentTo(chatID int64) []string {
	f.lk.Lock()
	defer f.lk.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Method == "sendMessage" && c.Body["chat_id"] == float64(chatID) {
			out = append(out, c.Body["text"].(string))
		}
	}
	return out
}

func (f *fakeBotAPI) edits() []string {
	f.lk.Lock()
	defer f.lk.Unlock()
	var out []string
	for _, c := range f.calls {
		if c.Method == "editMessageText" {
			out = append(out, c.Body["text"].(string))
		}
	}
	return out
}

const (
	testMainAdmin = int64(100)
	testModerator = int64(101)
	testChannel   = int64(-5000)
	testUser      = int64(42)
)

func newTestServer(t *testing.T) (*Server, *fakeBotAPI) {
	t.Helper()
	api := &fakeBotAPI{}
	backend := httptest.NewServer(api.handler(t))
	t.Cleanup(backend.Close)

	// NewServer registers echoprometheus collectors with the process-wide
	// default registry; give each test its own so a second server in the
	// same binary doesn't trip the duplicate-registration panic.
	origReg := prometheus.DefaultRegisterer
	prometheus.DefaultRegisterer = prometheus.NewRegistry()
	t.Cleanup(func() { prometheus.DefaultRegisterer = origReg })

	srv, err := NewServer(Config{
		BotToken:     "test-token",
		TelegramHost: backend.URL,
		ChannelID:    testChannel,
		MainAdmin:    testMainAdmin,
		Moderators:   []int64{testModerator},
		Privileged:   []int64{testMainAdmin},
		BotLink:      "https://t.me/secreto_bot",
		IntentTTL:    time.Minute,
	})
	require.NoError(t, err)
	return srv, api
}

func userMessage(from, chat int64, msgID int64, text string) *telegram.Update {
	return &telegram.Update{
		UpdateID: msgID,
		Message: &telegram.Message{
			MessageID: msgID,
			From:      &telegram.User{ID: from, Username: "someone"},
			Chat:      telegram.Chat{ID: chat, Type: "private"},
			Text:      text,
		},
	}
}

func TestDispatcherSubmissionRoundTrip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv, api := newTestServer(t)

	srv.HandleUpdate(ctx, userMessage(testUser, testUser, 1, strings.Repeat("a", 60)))

	// both moderators notified, author acknowledged
	assert.Len(api.sentTo(testMainAdmin), 1)
	assert.Len(api.sentTo(testModerator), 1)
	require.Len(t, api.sentTo(testUser), 1)
	assert.Contains(api.sentTo(testUser)[0], "sent for review")

	// the acting moderator accepts via the inline button
	srv.HandleUpdate(ctx, &telegram.Update{
		UpdateID: 2,
		CallbackQuery: &telegram.CallbackQuery{
			ID:   "cb1",
			From: telegram.User{ID: testModerator},
			Data: fmt.Sprintf("accept:user_1_%d", testUser),
			Message: &telegram.Message{
				MessageID: 77,
				Chat:      telegram.Chat{ID: testModerator},
			},
		},
	})

	published := api.sentTo(testChannel)
	require.Len(t, published, 1)
	assert.Contains(published[0], strings.Repeat("a", 60))
	assert.Contains(published[0], "https://t.me/secreto_bot")

	// author told exactly once; moderator's notice edited in place
	accepted := 0
	for _, text := range api.sentTo(testUser) {
		if strings.Contains(text, "accepted") {
			accepted++
		}
	}
	assert.Equal(1, accepted)
	require.Len(t, api.edits(), 1)
	assert.Contains(api.edits()[0], "published")
}

func TestDispatcherShortSubmission(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv, api := newTestServer(t)
	srv.HandleUpdate(ctx, userMessage(testUser, testUser, 1, "too short"))

	require.Len(t, api.sentTo(testUser), 1)
	assert.Contains(api.sentTo(testUser)[0], "at least 60 characters")
	assert.Contains(api.sentTo(testUser)[0], "Add 51 more")
	assert.Empty(api.sentTo(testModerator))
}

func TestDispatcherRejectDialogue(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv, api := newTestServer(t)
	srv.HandleUpdate(ctx, userMessage(testUser, testUser, 1, strings.Repeat("a", 60)))

	srv.HandleUpdate(ctx, &telegram.Update{
		UpdateID: 2,
		CallbackQuery: &telegram.CallbackQuery{
			ID:   "cb1",
			From: telegram.User{ID: testModerator},
			Data: fmt.Sprintf("reject:user_1_%d", testUser),
			Message: &telegram.Message{
				MessageID: 77,
				Chat:      telegram.Chat{ID: testModerator},
			},
		},
	})
	require.Len(t, api.edits(), 1)
	assert.Contains(api.edits()[0], "rejection reason")

	// the moderator's next message is the reason, even a short one
	srv.HandleUpdate(ctx, userMessage(testModerator, testModerator, 3, "off topic"))

	var gotReason bool
	for _, text := range api.sentTo(testUser) {
		if strings.Contains(text, "off topic") {
			gotReason = true
		}
	}
	assert.True(gotReason)
	assert.Empty(api.sentTo(testChannel))
}

func TestDispatcherBanCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv, api := newTestServer(t)

	// non-admin gets refused
	srv.HandleUpdate(ctx, userMessage(testModerator, testModerator, 1, fmt.Sprintf("/ban %d", testUser)))
	require.Len(t, api.sentTo(testModerator), 1)
	assert.Contains(api.sentTo(testModerator)[0], "Only the main admin")

	srv.HandleUpdate(ctx, userMessage(testMainAdmin, testMainAdmin, 2, fmt.Sprintf("/ban %d", testUser)))
	require.Len(t, api.sentTo(testMainAdmin), 1)
	assert.Contains(api.sentTo(testMainAdmin)[0], "banned")

	// banned user's submission is blocked before any fan-out
	srv.HandleUpdate(ctx, userMessage(testUser, testUser, 3, strings.Repeat("a", 60)))
	require.Len(t, api.sentTo(testUser), 1)
	assert.Contains(api.sentTo(testUser)[0], "banned")
	assert.Empty(api.sentTo(testModerator)[1:])

	srv.HandleUpdate(ctx, userMessage(testMainAdmin, testMainAdmin, 4, fmt.Sprintf("/unban %d", testUser)))
	srv.HandleUpdate(ctx, userMessage(testUser, testUser, 5, strings.Repeat("a", 60)))
	assert.Contains(api.sentTo(testUser)[len(api.sentTo(testUser))-1], "sent for review")
}

func TestDispatcherRosterCommands(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	srv, api := newTestServer(t)

	srv.HandleUpdate(ctx, userMessage(testMainAdmin, testMainAdmin, 1, "/addmod 103"))
	srv.HandleUpdate(ctx, userMessage(testMainAdmin, testMainAdmin, 2, "/grantpriv 103"))

	msgs := api.sentTo(testMainAdmin)
	require.Len(t, msgs, 2)
	assert.Contains(msgs[0], "Moderator added")
	assert.Contains(msgs[1], "Privileges granted")

	// the new moderator is part of the fan-out now
	srv.HandleUpdate(ctx, userMessage(testUser, testUser, 3, strings.Repeat("a", 60)))
	require.Len(t, api.sentTo(103), 1)
	// and privileged: sees the author line
	assert.Contains(api.sentTo(103)[0], "User: 42")
}

func TestWebhookDedupe(t *testing.T) {
	assert := assert.New(t)

	srv, api := newTestServer(t)

	payload, err := json.Marshal(userMessage(testUser, testUser, 9, "hi"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(string(payload)))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)
		assert.Equal(http.StatusOK, rec.Code)
	}

	// redelivered update handled once: one too-short reply, not two
	assert.Len(api.sentTo(testUser), 1)
}
