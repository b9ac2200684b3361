// Package replay drains the update backlog accumulated while the bot was
// offline, sending a single apology per conversation and answering what
// can still be answered without a live dialogue.
package replay

import (
	"context"
	"fmt"

	"github.com/lewisedginton/opd_consultant_bot/internal/chat"
	"github.com/lewisedginton/opd_consultant_bot/internal/intent"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
	"github.com/lewisedginton/opd_consultant_bot/pkg/metrics"
)

// User-visible texts for the backlog drain.
const (
	apologyText = "Привет! 👋 Прошу прощения за долгое молчание — я был на техобслуживании! 🤖\n\n" +
		"Зато теперь я вернулся с *обновленной базой знаний* и новыми возможностями. " +
		"Если ваш вопрос ниже всё ещё актуален, я постараюсь на него ответить."

	scheduleDeferralText = "Я вижу, вы спрашивали про расписание. " +
		"Напишите, пожалуйста, ваши Фамилию, Имя и Отчество, и я поищу вас в списках."

	creativeDeferralText = "Я вижу ваш запрос на креатив. Повторите его, пожалуйста, — я готов!"

	replayErrorText = "К сожалению, при попытке ответить на ваш вопрос произошла ошибка. " +
		"Пожалуйста, задайте его снова."
)

// UpdateSource exposes the transport's pending update backlog.
type UpdateSource interface {
	// Pending returns buffered messages without consuming them.
	Pending(ctx context.Context) ([]chat.InboundMessage, error)

	// Acknowledge confirms every update up to and including lastUpdateID
	// so it is not delivered again by normal polling.
	Acknowledge(ctx context.Context, lastUpdateID int64) error
}

// Coordinator replays the offline backlog. Multi-turn flows cannot be
// resumed against a stale dialogue, so schedule and creative requests get
// a deferral asking the user to repeat; smalltalk and knowledge questions
// are answered outright.
type Coordinator struct {
	source    UpdateSource
	deliverer chat.Deliverer
	strategy  intent.Strategy
	metrics   *metrics.Metrics
	log       logger.Logger
}

// NewCoordinator creates a backlog drain coordinator.
func NewCoordinator(source UpdateSource, deliverer chat.Deliverer, strategy intent.Strategy, m *metrics.Metrics, log logger.Logger) *Coordinator {
	return &Coordinator{
		source:    source,
		deliverer: deliverer,
		strategy:  strategy,
		metrics:   m,
		log:       log,
	}
}

// Drain processes every pending backlog message, then acknowledges the
// whole batch with a single offset advance. Failures on individual
// messages are logged and skipped so one bad update cannot wedge the
// startup sequence.
func (c *Coordinator) Drain(ctx context.Context) error {
	pending, err := c.source.Pending(ctx)
	if err != nil {
		return fmt.Errorf("fetching pending updates: %w", err)
	}
	if len(pending) == 0 {
		c.log.Info("No backlog to replay")
		return nil
	}

	c.log.Info("Replaying offline backlog", logger.IntField("messages", len(pending)))

	apologised := make(map[int64]struct{})
	var lastUpdateID int64

	for _, msg := range pending {
		if msg.UpdateID > lastUpdateID {
			lastUpdateID = msg.UpdateID
		}
		if msg.Text == "" {
			continue
		}

		if _, seen := apologised[msg.ChatID]; !seen {
			// The conversation counts as greeted even when the apology
			// fails to send, so one broken chat gets at most one attempt.
			apologised[msg.ChatID] = struct{}{}
			if err := c.deliverer.SendText(ctx, msg.ChatID, apologyText, 0); err != nil {
				c.log.Error("Failed to send replay apology",
					logger.ChatIDField(msg.ChatID),
					logger.ErrorField(err))
			}
		}

		c.replayOne(ctx, msg)
		c.metrics.ReplayedCounter.Inc()
	}

	if err := c.source.Acknowledge(ctx, lastUpdateID); err != nil {
		return fmt.Errorf("acknowledging backlog through update %d: %w", lastUpdateID, err)
	}

	c.log.Info("Backlog replay complete",
		logger.IntField("messages", len(pending)),
		logger.IntField("conversations", len(apologised)),
		logger.Int64Field("last_update_id", lastUpdateID))
	return nil
}

// replayOne answers a single backlog message with the reduced dispatch
// table.
func (c *Coordinator) replayOne(ctx context.Context, msg chat.InboundMessage) {
	reply, err := c.replyFor(ctx, msg.Text)
	if err != nil {
		c.log.Error("Replay strategy call failed",
			logger.ChatIDField(msg.ChatID),
			logger.ErrorField(err))
		reply = replayErrorText
	}

	if err := c.deliverer.SendText(ctx, msg.ChatID, reply, msg.MessageID); err != nil {
		c.log.Error("Failed to deliver replay answer",
			logger.ChatIDField(msg.ChatID),
			logger.ErrorField(err))
	}
}

func (c *Coordinator) replyFor(ctx context.Context, text string) (string, error) {
	tag, err := c.strategy.ClassifyIntent(ctx, text)
	if err != nil {
		return "", err
	}

	switch tag {
	case intent.ScheduleLookup:
		return scheduleDeferralText, nil
	case intent.CreativeIdea, intent.CreativeTeamName:
		return creativeDeferralText, nil
	case intent.Smalltalk:
		return c.strategy.AnswerSmalltalk(ctx, text)
	default:
		return c.strategy.AnswerKnowledge(ctx, text)
	}
}
