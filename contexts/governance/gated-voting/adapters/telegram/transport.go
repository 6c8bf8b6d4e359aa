package telegram

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"slothsafe/contexts/governance/gated-voting/application/commands"
	"slothsafe/contexts/governance/gated-voting/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"
)

// Sender is the outbound half of the Bot API.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UpdateSource is the long-polling half of the Bot API.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Conversation is the voting flow the transport drives.
type Conversation interface {
	InitiateVote(ctx context.Context, userID string) commands.Reply
	OnMessage(ctx context.Context, userID string, text string) commands.Reply
	WelcomeText(chatID int64, firstName string) (string, bool)
	StartText() string
	HelpText() string
}

// Client sends Markdown messages. Progress notices go to the chat carried by
// the request context.
type Client struct {
	sender Sender
	logger *slog.Logger
}

type chatKey struct{}

// WithChat tags ctx with the chat the current update came from.
func WithChat(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, chatKey{}, chatID)
}

func chatFrom(ctx context.Context) (int64, bool) {
	chatID, ok := ctx.Value(chatKey{}).(int64)
	return chatID, ok
}

func NewClient(sender Sender, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{sender: sender, logger: logger}
}

func (c *Client) SendText(chatID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := c.sender.Send(msg); err != nil {
		c.logger.Warn("telegram send failed",
			"event", "gated_voting_telegram_send_failed",
			"module", "governance/gated-voting",
			"layer", "adapter",
			"chat_id", chatID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}

// NotifyProgress sends text to the chat of the update being handled. Calls
// that did not start from a Telegram update are skipped.
func (c *Client) NotifyProgress(ctx context.Context, _ string, text string) error {
	chatID, ok := chatFrom(ctx)
	if !ok {
		return nil
	}
	return c.SendText(chatID, text)
}

// Transport long-polls the Bot API and routes commands, free text and
// member joins into the conversation. Updates run concurrently up to
// maxInFlight; messages from one user are handled one at a time.
type Transport struct {
	source       UpdateSource
	client       *Client
	conversation Conversation
	pollTimeout  int
	inFlight     *semaphore.Weighted
	logger       *slog.Logger

	locksMu   sync.Mutex
	userLocks map[string]*userLock
}

// userLock is dropped from the map once no update for the user holds or
// waits on it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewTransport(
	source UpdateSource,
	client *Client,
	conversation Conversation,
	pollTimeout int,
	maxInFlight int64,
	logger *slog.Logger,
) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	if pollTimeout <= 0 {
		pollTimeout = 60
	}
	if maxInFlight <= 0 {
		maxInFlight = 32
	}
	return &Transport{
		source:       source,
		client:       client,
		conversation: conversation,
		pollTimeout:  pollTimeout,
		inFlight:     semaphore.NewWeighted(maxInFlight),
		logger:       logger,
		userLocks:    make(map[string]*userLock),
	}
}

func (t *Transport) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = t.pollTimeout
	updates := t.source.GetUpdatesChan(cfg)

	t.logger.Info("telegram transport polling",
		"event", "gated_voting_telegram_started",
		"module", "governance/gated-voting",
		"layer", "adapter",
		"poll_timeout", t.pollTimeout,
	)

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			t.source.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := t.inFlight.Acquire(ctx, 1); err != nil {
				t.source.StopReceivingUpdates()
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer t.inFlight.Release(1)
				t.HandleUpdate(ctx, update)
			}()
		}
	}
}

func (t *Transport) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	if len(msg.NewChatMembers) > 0 {
		t.welcome(msg)
		return
	}
	if msg.From == nil || msg.From.IsBot {
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	unlock := t.lockUser(userID)
	defer unlock()
	ctx = WithChat(ctx, msg.Chat.ID)

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			_ = t.client.SendText(msg.Chat.ID, t.conversation.StartText())
		case "vote":
			reply := t.conversation.InitiateVote(ctx, userID)
			_ = t.client.SendText(msg.Chat.ID, reply.Text)
		case "help":
			_ = t.client.SendText(msg.Chat.ID, t.conversation.HelpText())
		}
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	reply := t.conversation.OnMessage(ctx, userID, msg.Text)
	_ = t.client.SendText(msg.Chat.ID, reply.Text)
}

func (t *Transport) welcome(msg *tgbotapi.Message) {
	for _, member := range msg.NewChatMembers {
		if member.IsBot {
			continue
		}
		text, ok := t.conversation.WelcomeText(msg.Chat.ID, member.FirstName)
		if !ok {
			return
		}
		_ = t.client.SendText(msg.Chat.ID, text)
	}
}

func (t *Transport) lockUser(userID string) func() {
	t.locksMu.Lock()
	lock, ok := t.userLocks[userID]
	if !ok {
		lock = &userLock{}
		t.userLocks[userID] = lock
	}
	lock.refs++
	t.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		t.locksMu.Lock()
		defer t.locksMu.Unlock()
		lock.refs--
		if lock.refs == 0 {
			delete(t.userLocks, userID)
		}
	}
}

func (t *Transport) lockedUsers() int {
	t.locksMu.Lock()
	defer t.locksMu.Unlock()
	return len(t.userLocks)
}

var _ ports.ProgressNotifier = (*Client)(nil)
var _ Conversation = commands.SessionUseCase{}
