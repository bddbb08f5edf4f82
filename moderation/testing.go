package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/secreto-bot/secreto/moderation/banstore"
	"github.com/secreto-bot/secreto/moderation/directory"
)

// CaptureTransport records every outbound call instead of delivering
// anywhere. Safe for concurrent use. Failure knobs simulate
// unreachable recipients and a broken publish target.
type CaptureTransport struct {
	lk        sync.Mutex
	Notices   []CapturedNotice
	Messages  []CapturedMessage
	Published []CapturedPublish

	FailPublish bool
	FailNotify  map[int64]bool
}

type CapturedNotice struct {
	RecipientID int64
	Notice      *Notice
}

type CapturedMessage struct {
	RecipientID int64
	Text        string
}

type CapturedPublish struct {
	ChannelID int64
	Text      string
}

func NewCaptureTransport() *CaptureTransport {
	return &CaptureTransport{
		FailNotify: make(map[int64]bool),
	}
}

func (tr *CaptureTransport) Notify(ctx context.Context, recipientID int64, notice *Notice) error {
	tr.lk.Lock()
	defer tr.lk.Unlock()
	if tr.FailNotify[recipientID] {
		return fmt.Errorf("recipient unreachable: %d", recipientID)
	}
	tr.Notices = append(tr.Notices, CapturedNotice{RecipientID: recipientID, Notice: notice})
	return nil
}

func (tr *CaptureTransport) SendMessage(ctx context.Context, recipientID int64, text string) error {
	tr.lk.Lock()
	defer tr.lk.Unlock()
	if tr.FailNotify[recipientID] {
		return fmt.Errorf("recipient unreachable: %d", recipientID)
	}
	tr.Messages = append(tr.Messages, CapturedMessage{RecipientID: recipientID, Text: text})
	return nil
}

func (tr *CaptureTransport) Publish(ctx context.Context, channelID int64, text string) error {
	tr.lk.Lock()
	defer tr.lk.Unlock()
	if tr.FailPublish {
		return fmt.Errorf("publish target unreachable: %d", channelID)
	}
	tr.Published = append(tr.Published, CapturedPublish{ChannelID: channelID, Text: text})
	return nil
}

// MessagesTo returns the plain messages delivered to one recipient.
func (tr *CaptureTransport) MessagesTo(recipientID int64) []string {
	tr.lk.Lock()
	defer tr.lk.Unlock()
	var out []string
	for _, m := range tr.Messages {
		if m.RecipientID == recipientID {
			out = append(out, m.Text)
		}
	}
	return out
}

// MessagesToMatching counts messages to a recipient containing the given substring.
func (tr *CaptureTransport) MessagesToMatching(recipientID int64, substr string) int {
	tr.lk.Lock()
	defer tr.lk.Unlock()
	count := 0
	for _, m := range tr.Messages {
		if m.RecipientID == recipientID && strings.Contains(m.Text, substr) {
			count++
		}
	}
	return count
}

// NoticesTo returns the fan-out notices delivered to one recipient.
func (tr *CaptureTransport) NoticesTo(recipientID int64) []*Notice {
	tr.lk.Lock()
	defer tr.lk.Unlock()
	var out []*Notice
	for _, n := range tr.Notices {
		if n.RecipientID == recipientID {
			out = append(out, n.Notice)
		}
	}
	return out
}

// Fixture roster: 100 is the main admin (privileged), 101 and 102 are plain moderators.
const (
	TestMainAdmin  = int64(100)
	TestModerator  = int64(101)
	TestModerator2 = int64(102)
	TestChannelID  = int64(-100200300)
)

func EngineTestFixture() (*Engine, *CaptureTransport) {
	transport := NewCaptureTransport()
	dir := directory.NewMemDirectory(TestMainAdmin, []int64{TestModerator, TestModerator2}, []int64{TestMainAdmin})
	engine := &Engine{
		Logger:    slog.Default(),
		Directory: dir,
		Bans:      banstore.NewMemBanStore(),
		Transport: transport,
		Registry:  NewRegistry(),
		ChannelID: TestChannelID,
		BotLink:   "https://t.me/secreto_bot",
	}
	return engine, transport
}
