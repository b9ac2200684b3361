// Package telegram connects the bot to the Telegram Bot API: it receives
// updates, routes commands, and delivers the pipeline's answers.
package telegram

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/lewisedginton/opd_consultant_bot/internal/chat"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
	"github.com/lewisedginton/opd_consultant_bot/pkg/metrics"
)

// Handler processes one inbound message end to end.
type Handler interface {
	Handle(ctx context.Context, msg chat.InboundMessage) error
}

// Config holds configuration for the Telegram connector.
type Config struct {
	BotToken string  // Bot token from @BotFather
	AdminIDs []int64 // Users allowed to run operational commands
	Debug    bool    // Enable debug logging

	// ServerURL overrides the Bot API endpoint. Used in tests.
	ServerURL string
}

// Connector represents the Telegram connector.
type Connector struct {
	bot     *bot.Bot
	handler Handler
	metrics *metrics.Metrics
	log     logger.Logger
	admins  map[int64]struct{}
	ready   atomic.Bool
}

// NewConnector creates a new Telegram connector over the given handler.
func NewConnector(config Config, handler Handler, m *metrics.Metrics, log logger.Logger) (*Connector, error) {
	if config.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	connector := &Connector{
		handler: handler,
		metrics: m,
		log:     log,
		admins:  make(map[int64]struct{}, len(config.AdminIDs)),
	}
	for _, id := range config.AdminIDs {
		connector.admins[id] = struct{}{}
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(connector.handleUpdate),
	}
	if config.Debug {
		opts = append(opts, bot.WithDebug())
	}
	if config.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(config.ServerURL), bot.WithSkipGetMe())
	}

	b, err := bot.New(config.BotToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	connector.bot = b
	connector.registerCommands()

	log.Info("Telegram bot initialized successfully")
	return connector, nil
}

// Start begins polling for updates and blocks until the context is
// cancelled.
func (c *Connector) Start(ctx context.Context) error {
	c.log.Info("Starting Telegram bot polling")
	c.ready.Store(true)
	defer c.ready.Store(false)

	c.bot.Start(ctx)
	return nil
}

// Ready reports whether the connector is polling. Used by readiness
// probes.
func (c *Connector) Ready() bool {
	return c.ready.Load()
}

// GetBotInfo returns information about the bot account.
func (c *Connector) GetBotInfo(ctx context.Context) (*models.User, error) {
	return c.bot.GetMe(ctx)
}

// handleUpdate processes updates not claimed by a command handler.
func (c *Connector) handleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if update.Message.From == nil || update.Message.From.IsBot {
		return
	}

	msg := inboundFromUpdate(update)
	c.log.Debug("Processing message",
		logger.UserIDField(msg.UserID),
		logger.ChatIDField(msg.ChatID))

	// The pipeline does its own I/O; run it off the polling goroutine so
	// one slow answer does not delay other users' updates.
	go func() {
		if err := c.handler.Handle(ctx, msg); err != nil {
			c.log.Debug("Message pipeline finished with error", logger.ErrorField(err))
		}
	}()
}

func inboundFromUpdate(update *models.Update) chat.InboundMessage {
	from := update.Message.From
	fullName := from.FirstName
	if from.LastName != "" {
		fullName += " " + from.LastName
	}
	return chat.InboundMessage{
		UpdateID:  update.ID,
		MessageID: update.Message.ID,
		ChatID:    update.Message.Chat.ID,
		UserID:    from.ID,
		Username:  from.Username,
		FullName:  fullName,
		Text:      update.Message.Text,
		SentAt:    timeFromUnix(update.Message.Date),
	}
}

// SendText delivers a text message, preferring Markdown formatting. If
// Telegram rejects the entities, the same text is resent as plain text
// rather than lost.
func (c *Connector) SendText(ctx context.Context, chatID int64, text string, replyTo int) error {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}

	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		c.log.Debug("Markdown send failed, retrying as plain text", logger.ErrorField(err))
		params.ParseMode = ""
		if _, err := c.bot.SendMessage(ctx, params); err != nil {
			return fmt.Errorf("sending message to chat %d: %w", chatID, err)
		}
	}
	return nil
}

// SendStatus posts an ephemeral progress message and returns its ID.
func (c *Connector) SendStatus(ctx context.Context, chatID int64, text string) (int, error) {
	m, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return 0, fmt.Errorf("sending status to chat %d: %w", chatID, err)
	}
	return m.ID, nil
}

// DeleteStatus removes a previously posted status message.
func (c *Connector) DeleteStatus(ctx context.Context, chatID int64, messageID int) error {
	if _, err := c.bot.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	}); err != nil {
		return fmt.Errorf("deleting message %d in chat %d: %w", messageID, chatID, err)
	}
	return nil
}

// NotifyTyping shows the typing indicator in the chat.
func (c *Connector) NotifyTyping(ctx context.Context, chatID int64) error {
	if _, err := c.bot.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	}); err != nil {
		return fmt.Errorf("sending typing action to chat %d: %w", chatID, err)
	}
	return nil
}

func (c *Connector) isAdmin(userID int64) bool {
	_, ok := c.admins[userID]
	return ok
}

func timeFromUnix(sec int) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(int64(sec), 0)
}
