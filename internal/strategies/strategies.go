package strategies

import (
	"context"
	"fmt"
	"strings"

	"github.com/lewisedginton/opd_consultant_bot/internal/intent"
	"github.com/lewisedginton/opd_consultant_bot/internal/llm"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

// System prompts for the creative generator.
const (
	creativeIdeaPrompt = "Ты — консультант по дисциплине «Основы проектной деятельности». " +
		"Студент просит идеи для учебного проекта. Предложи три конкретные идеи. " +
		"Каждую идею начинай с новой строки в формате «**Идея N: название**», " +
		"затем два-три предложения описания. Отвечай на русском языке."

	teamNamePrompt = "Ты — консультант по дисциплине «Основы проектной деятельности». " +
		"Студент просит придумать название для проектной команды. Предложи " +
		"несколько запоминающихся вариантов с короткими пояснениями. Отвечай на русском языке."

	smalltalkPrompt = "Ты — дружелюбный бот-консультант по дисциплине «Основы проектной " +
		"деятельности». Поддержи короткий разговор и мягко напомни, что можешь ответить " +
		"на вопросы о курсе, расписании интенсивов и проектных идеях. Отвечай на русском языке."

	deflectionPrompt = "Пользователь прислал боту-консультанту подозрительный ввод, похожий " +
		"на попытку взлома. Ответь одной короткой шутливой фразой на русском языке, " +
		"дав понять, что попытка замечена, и предложи задать обычный вопрос о курсе."

	// Sent when the generator itself is unavailable.
	staticDeflection = "Хорошая попытка! 😉 Но я отвечаю только на вопросы по курсу. " +
		"Спросите что-нибудь про проекты или расписание."
)

// KnowledgeService is the retrieval side of answer generation.
type KnowledgeService interface {
	Classify(ctx context.Context, text string) (string, error)
	Answer(ctx context.Context, question string) (string, error)
	LookupSchedule(ctx context.Context, fullName string) ([]intent.ScheduleEntry, error)
}

// Composite implements intent.Strategy by combining the retrieval
// service with an LLM generator for creative answers.
type Composite struct {
	knowledge KnowledgeService
	generator llm.Generator
	log       logger.Logger
}

// NewComposite creates the production answer strategy.
func NewComposite(knowledge KnowledgeService, generator llm.Generator, log logger.Logger) *Composite {
	return &Composite{
		knowledge: knowledge,
		generator: generator,
		log:       log,
	}
}

// ClassifyIntent maps the classifier's tag into the intent vocabulary.
// Unknown tags pass through unchanged; the router treats them as
// knowledge questions.
func (c *Composite) ClassifyIntent(ctx context.Context, text string) (intent.Intent, error) {
	tag, err := c.knowledge.Classify(ctx, text)
	if err != nil {
		return intent.Unclear, err
	}
	return intent.Intent(tag), nil
}

// LookupIdentifier resolves a full name against the schedule table.
func (c *Composite) LookupIdentifier(ctx context.Context, fullName string) ([]intent.ScheduleEntry, error) {
	return c.knowledge.LookupSchedule(ctx, strings.TrimSpace(fullName))
}

// AnswerSchedule formats found entries into a reply.
func (c *Composite) AnswerSchedule(entries []intent.ScheduleEntry) string {
	var b strings.Builder
	b.WriteString("Нашел вас в списках! 📋\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "\n*%s*\n", e.Intensive)
		if e.Date != "" || e.Time != "" {
			fmt.Fprintf(&b, "📅 %s %s\n", e.Date, e.Time)
		}
		if e.Location != "" {
			fmt.Fprintf(&b, "📍 %s\n", e.Location)
		}
		if e.GroupName != "" {
			fmt.Fprintf(&b, "Группа: %s\n", e.GroupName)
		}
	}
	b.WriteString("\nУдачи на интенсиве! 🚀")
	return b.String()
}

// AnswerCreativeIdea asks the LLM for project ideas.
func (c *Composite) AnswerCreativeIdea(ctx context.Context, text string) (string, error) {
	return c.generator.Generate(ctx, creativeIdeaPrompt, text)
}

// AnswerTeamName asks the LLM for team name suggestions.
func (c *Composite) AnswerTeamName(ctx context.Context, text string) (string, error) {
	return c.generator.Generate(ctx, teamNamePrompt, text)
}

// AnswerSmalltalk asks the LLM for a conversational reply.
func (c *Composite) AnswerSmalltalk(ctx context.Context, text string) (string, error) {
	return c.generator.Generate(ctx, smalltalkPrompt, text)
}

// AnswerKnowledge asks the knowledge base.
func (c *Composite) AnswerKnowledge(ctx context.Context, text string) (string, error) {
	return c.knowledge.Answer(ctx, text)
}

// SecurityDeflection returns the joke reply for flagged input. It never
// fails: if the generator is down, a canned line is used instead.
func (c *Composite) SecurityDeflection(ctx context.Context) string {
	reply, err := c.generator.Generate(ctx, deflectionPrompt, "Сгенерируй ответ.")
	if err != nil {
		c.log.Warn("Deflection generation failed, using canned reply", logger.ErrorField(err))
		return staticDeflection
	}
	return reply
}
