package intent

import (
	"context"
	"strings"

	"github.com/lewisedginton/opd_consultant_bot/internal/session"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

// User-visible texts for the schedule lookup flow.
const (
	identifierPrompt = "Пожалуйста, напишите ваши Фамилию, Имя и Отчество для поиска в расписании."

	lookupCancelled = "Хорошо, поиск по расписанию отменен. Чем еще могу помочь?"

	identifierRetry = "К сожалению, не удалось найти вас в списках.\n\n" +
		"Пожалуйста, попробуйте ввести Фамилию, Имя и Отчество еще раз, проверив правильность написания.\n" +
		"Если хотите отменить поиск, напишите \"стоп\"."
)

// Result is the routed outcome for a single message.
type Result struct {
	Intent Intent
	Reply  string
}

// Router is a per-user state machine with two macro-states: Idle and
// AwaitingIdentifier. Dispatch is total: every classification maps to
// exactly one handler and unknown tags fall back to the knowledge base.
type Router struct {
	sessions *session.Store
	strategy Strategy
	log      logger.Logger
}

// NewRouter creates a router over the given session store and strategy.
func NewRouter(sessions *session.Store, strategy Strategy, log logger.Logger) *Router {
	return &Router{
		sessions: sessions,
		strategy: strategy,
		log:      log,
	}
}

// Route evaluates the message against the user's session state and
// produces a reply. Errors from strategy calls are returned as-is; the
// orchestrator converts them into the generic failure reply.
func (r *Router) Route(ctx context.Context, userID int64, text string) (Result, error) {
	if r.sessions.Has(userID, session.AwaitingIdentifier) {
		return r.routeAwaitingIdentifier(ctx, userID, text)
	}
	return r.routeIdle(ctx, userID, text)
}

// routeAwaitingIdentifier handles the second turn of a schedule lookup:
// the message is either a cancellation or a full name to resolve.
func (r *Router) routeAwaitingIdentifier(ctx context.Context, userID int64, text string) (Result, error) {
	if isCancelWord(text) {
		r.sessions.Clear(userID, session.AwaitingIdentifier)
		return Result{Intent: ScheduleLookup, Reply: lookupCancelled}, nil
	}

	r.log.Info("Treating message as identifier for schedule lookup", logger.UserIDField(userID))

	entries, err := r.strategy.LookupIdentifier(ctx, text)
	if err != nil {
		// Flag stays set, the user can retry after the error reply.
		return Result{Intent: ScheduleLookup}, err
	}
	if len(entries) == 0 {
		return Result{Intent: ScheduleLookup, Reply: identifierRetry}, nil
	}

	r.sessions.Clear(userID, session.AwaitingIdentifier)
	return Result{Intent: ScheduleLookup, Reply: r.strategy.AnswerSchedule(entries)}, nil
}

// routeIdle classifies the message and dispatches to the matching
// strategy.
func (r *Router) routeIdle(ctx context.Context, userID int64, text string) (Result, error) {
	tag, err := r.strategy.ClassifyIntent(ctx, text)
	if err != nil {
		return Result{Intent: Unclear}, err
	}
	r.log.Info("Classified intent",
		logger.UserIDField(userID),
		logger.StringField("intent", string(tag)))

	result := Result{Intent: tag}
	switch tag {
	case ScheduleLookup:
		r.sessions.Set(userID, session.AwaitingIdentifier)
		result.Reply = identifierPrompt
		return result, nil
	case CreativeIdea:
		result.Reply, err = r.strategy.AnswerCreativeIdea(ctx, text)
	case CreativeTeamName:
		result.Reply, err = r.strategy.AnswerTeamName(ctx, text)
	case Smalltalk:
		result.Reply, err = r.strategy.AnswerSmalltalk(ctx, text)
	default:
		// rag_faq, unclear and anything the classifier invents.
		result.Intent = KnowledgeBase
		result.Reply, err = r.strategy.AnswerKnowledge(ctx, text)
	}
	return result, err
}

// isCancelWord reports whether the text cancels an in-progress lookup.
func isCancelWord(text string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(text))
	return trimmed == "стоп" || trimmed == "stop"
}
