// Package telegram implements the chat transport over the Telegram Bot
// API using long polling. Each Telegram chat id is one tenant id.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/haasonsaas/concierge/pkg/models"
)

const transportName = "telegram"

// Config holds Telegram transport settings.
type Config struct {
	// Token is the bot token from @BotFather (required).
	Token string

	// Logger is an optional slog.Logger instance.
	Logger *slog.Logger
}

// Validate checks the configuration and applies defaults.
func (c *Config) Validate() error {
	if c.Token == "" {
		return models.ErrValidation("telegram token is required", nil)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return nil
}

// Adapter is the Telegram transport. Inbound text messages are
// converted to tenant messages keyed by chat id; outbound delivery and
// typing presence go through the Bot API.
type Adapter struct {
	config   Config
	logger   *slog.Logger
	messages chan *models.Inbound

	mu     sync.Mutex
	bot    *bot.Bot
	cancel context.CancelFunc
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewAdapter creates a Telegram adapter.
func NewAdapter(config Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{
		config:   config,
		logger:   config.Logger.With("component", "transport", "transport", transportName),
		messages: make(chan *models.Inbound, 100),
		now:      time.Now,
	}, nil
}

// Name returns the transport name.
func (a *Adapter) Name() string { return transportName }

// Start connects the bot and begins long polling in the background.
func (a *Adapter) Start(ctx context.Context) error {
	b, err := bot.New(a.config.Token, bot.WithDefaultHandler(a.handleUpdate))
	if err != nil {
		return models.ErrTransport("create telegram bot", err)
	}

	ctx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.bot = b
	a.cancel = cancel
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer close(a.messages)
		// Blocks until the context is cancelled.
		b.Start(ctx)
		a.logger.Info("long polling stopped")
	}()

	a.logger.Info("transport started")
	return nil
}

// Stop cancels long polling and waits for the receive loop to exit.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.logger.Info("transport stopped")
		return nil
	case <-ctx.Done():
		return models.ErrTransport("stop timeout", ctx.Err())
	}
}

// Messages returns the inbound message stream.
func (a *Adapter) Messages() <-chan *models.Inbound {
	return a.messages
}

// Deliver sends text to the tenant's chat.
func (a *Adapter) Deliver(ctx context.Context, tenantID, text string) error {
	chatID, err := chatIDFromTenant(tenantID)
	if err != nil {
		return err
	}

	b := a.currentBot()
	if b == nil {
		return models.ErrTransport("transport not started", nil)
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}); err != nil {
		return models.ErrTransport(fmt.Sprintf("send message to tenant %s", tenantID), err)
	}
	return nil
}

// SendPresence shows the typing indicator in the tenant's chat.
func (a *Adapter) SendPresence(ctx context.Context, tenantID string) error {
	chatID, err := chatIDFromTenant(tenantID)
	if err != nil {
		return err
	}

	b := a.currentBot()
	if b == nil {
		return models.ErrTransport("transport not started", nil)
	}

	if _, err := b.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: tgmodels.ChatActionTyping,
	}); err != nil {
		return models.ErrTransport(fmt.Sprintf("send presence to tenant %s", tenantID), err)
	}
	return nil
}

func (a *Adapter) currentBot() *bot.Bot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.bot
}

// handleUpdate converts one Telegram update into an inbound tenant
// message. Non-text updates are ignored.
func (a *Adapter) handleUpdate(ctx context.Context, b *bot.Bot, update *tgmodels.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	inbound := &models.Inbound{
		TenantID:   strconv.FormatInt(update.Message.Chat.ID, 10),
		Text:       update.Message.Text,
		Transport:  transportName,
		ReceivedAt: a.now(),
	}

	select {
	case a.messages <- inbound:
	case <-ctx.Done():
	default:
		a.logger.Warn("inbound channel full, dropping message", "tenant_id", inbound.TenantID)
	}
}

// chatIDFromTenant maps a tenant id back to a Telegram chat id.
func chatIDFromTenant(tenantID string) (int64, error) {
	chatID, err := strconv.ParseInt(tenantID, 10, 64)
	if err != nil {
		return 0, models.ErrValidation(fmt.Sprintf("tenant id %q is not a telegram chat id", tenantID), err)
	}
	return chatID, nil
}
