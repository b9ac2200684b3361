package telegram

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
	"github.com/lewisedginton/opd_consultant_bot/pkg/metrics"
)

// Callback data values for the menu keyboard.
const (
	callbackMenuInfo = "show_menu_info"
	callbackExamples = "show_examples"
)

const menuText = `📖 *Что я умею:*

• Отвечать на вопросы по дисциплине «Основы проектной деятельности» — про зачёт, дедлайны, команды и документы
• Находить ваше расписание интенсивов по ФИО
• Придумывать идеи для учебных проектов
• Предлагать названия для проектной команды

Просто напишите вопрос обычным текстом — я сам пойму, что вам нужно.
Если я жду от вас ФИО, а вы передумали — напишите «стоп».`

const examplesText = `💡 *Примеры вопросов:*

• Когда у меня интенсив?
• Как проходит зачёт по ОПД?
• Что должно быть в паспорте проекта?
• Придумай идею для проекта про экологию
• Придумай название для нашей команды
• Сколько человек должно быть в команде?`

const adminDeniedText = "У вас нет прав для выполнения этой команды."

// menuTriggerPattern matches plain-text requests for the menu.
var menuTriggerPattern = regexp.MustCompile(`(?i)^\s*(меню|помощь|что ты умеешь|что ты можешь|команды)\s*$`)

func (c *Connector) registerCommands() {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/menu", bot.MatchTypePrefix, c.handleMenu)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypePrefix, c.handleStatus)
	c.bot.RegisterHandlerRegexp(bot.HandlerTypeMessageText, menuTriggerPattern, c.handleMenu)
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackMenuInfo, bot.MatchTypeExact, c.handleCallback)
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, callbackExamples, bot.MatchTypeExact, c.handleCallback)
}

func menuKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: "📖 Что я умею", CallbackData: callbackMenuInfo},
				{Text: "💡 Примеры вопросов", CallbackData: callbackExamples},
			},
		},
	}
}

func welcomeText(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "студент"
	}
	return fmt.Sprintf("Здравствуйте, %s! 👋\n\n"+
		"Я — бот-консультант по дисциплине «Основы проектной деятельности». "+
		"Отвечу на вопросы о курсе, найду ваше расписание интенсивов и помогу с идеями для проекта.", name)
}

func (c *Connector) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	c.log.Info("New user started the bot", logger.UserIDField(update.Message.From.ID))

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      update.Message.Chat.ID,
		Text:        welcomeText(update.Message.From.FirstName),
		ReplyMarkup: menuKeyboard(),
	})
	if err != nil {
		c.log.Error("Failed to send welcome message", logger.ErrorField(err))
	}
}

func (c *Connector) handleMenu(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	c.sendMenuSection(ctx, b, update.Message.Chat.ID, menuText)
}

// handleStatus is an operational command restricted to administrators.
func (c *Connector) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	if !c.isAdmin(update.Message.From.ID) {
		c.metrics.RecordRejection(metrics.ReasonNotAdmin)
		c.log.Warn("Non-admin attempted /status", logger.UserIDField(update.Message.From.ID))
		if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   adminDeniedText,
		}); err != nil {
			c.log.Error("Failed to send admin denial", logger.ErrorField(err))
		}
		return
	}

	me, err := b.GetMe(ctx)
	status := "в строю"
	username := "?"
	if err != nil {
		status = fmt.Sprintf("ошибка API: %v", err)
	} else {
		username = me.Username
	}

	text := fmt.Sprintf("🤖 @%s\nСостояние: %s\nОпрос обновлений: %v", username, status, c.Ready())
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	}); err != nil {
		c.log.Error("Failed to send status reply", logger.ErrorField(err))
	}
}

func (c *Connector) handleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	// Stop the client-side spinner regardless of what happens next.
	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	}); err != nil {
		c.log.Debug("Failed to answer callback query", logger.ErrorField(err))
	}

	msg := update.CallbackQuery.Message.Message
	if msg == nil {
		c.log.Debug("Callback query without an accessible message")
		return
	}

	switch update.CallbackQuery.Data {
	case callbackMenuInfo:
		c.sendMenuSection(ctx, b, msg.Chat.ID, menuText)
	case callbackExamples:
		c.sendMenuSection(ctx, b, msg.Chat.ID, examplesText)
	}
}

func (c *Connector) sendMenuSection(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	})
	if err != nil {
		c.log.Error("Failed to send menu section",
			logger.ChatIDField(chatID),
			logger.ErrorField(err))
	}
}
