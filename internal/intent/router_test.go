package intent

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/opd_consultant_bot/internal/session"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

func newTestLogger() logger.Logger {
	return logger.NewLogger(logger.Config{
		Level:  logger.DebugLevel,
		Output: io.Discard,
	})
}

// fakeStrategy is a scriptable Strategy implementation.
type fakeStrategy struct {
	classified  Intent
	classifyErr error

	entries   []ScheduleEntry
	lookupErr error

	calls []string
}

func (f *fakeStrategy) ClassifyIntent(ctx context.Context, text string) (Intent, error) {
	f.calls = append(f.calls, "classify")
	return f.classified, f.classifyErr
}

func (f *fakeStrategy) LookupIdentifier(ctx context.Context, fullName string) ([]ScheduleEntry, error) {
	f.calls = append(f.calls, "lookup")
	return f.entries, f.lookupErr
}

func (f *fakeStrategy) AnswerSchedule(entries []ScheduleEntry) string {
	f.calls = append(f.calls, "schedule")
	return "Ваше расписание: " + entries[0].Intensive
}

func (f *fakeStrategy) AnswerCreativeIdea(ctx context.Context, text string) (string, error) {
	f.calls = append(f.calls, "idea")
	return "idea reply", nil
}

func (f *fakeStrategy) AnswerTeamName(ctx context.Context, text string) (string, error) {
	f.calls = append(f.calls, "team")
	return "team reply", nil
}

func (f *fakeStrategy) AnswerSmalltalk(ctx context.Context, text string) (string, error) {
	f.calls = append(f.calls, "smalltalk")
	return "smalltalk reply", nil
}

func (f *fakeStrategy) AnswerKnowledge(ctx context.Context, text string) (string, error) {
	f.calls = append(f.calls, "knowledge")
	return "knowledge reply", nil
}

func (f *fakeStrategy) SecurityDeflection(ctx context.Context) string {
	f.calls = append(f.calls, "deflection")
	return "nice try"
}

func newTestRouter(strategy *fakeStrategy) (*Router, *session.Store) {
	sessions := session.NewStore()
	return NewRouter(sessions, strategy, newTestLogger()), sessions
}

func TestScheduleLookupEntersAwaitingState(t *testing.T) {
	strategy := &fakeStrategy{classified: ScheduleLookup}
	router, sessions := newTestRouter(strategy)

	result, err := router.Route(context.Background(), 1, "где моя следующая пара?")
	require.NoError(t, err)

	assert.Equal(t, ScheduleLookup, result.Intent)
	assert.Equal(t, identifierPrompt, result.Reply)
	assert.True(t, sessions.Has(1, session.AwaitingIdentifier))
	assert.NotContains(t, strategy.calls, "lookup", "no lookup before the identifier arrives")
}

func TestStopCancelsAwaitingState(t *testing.T) {
	for _, word := range []string{"стоп", "stop", " СТОП ", "Stop"} {
		strategy := &fakeStrategy{}
		router, sessions := newTestRouter(strategy)
		sessions.Set(1, session.AwaitingIdentifier)

		result, err := router.Route(context.Background(), 1, word)
		require.NoError(t, err)

		assert.Equal(t, lookupCancelled, result.Reply, "input %q", word)
		assert.False(t, sessions.Has(1, session.AwaitingIdentifier))
		assert.Empty(t, strategy.calls, "cancellation must not hit the strategy")
	}
}

func TestSuccessfulLookupClearsState(t *testing.T) {
	strategy := &fakeStrategy{
		entries: []ScheduleEntry{{FullName: "Иванов Иван Иванович", Intensive: "Интенсив 2"}},
	}
	router, sessions := newTestRouter(strategy)
	sessions.Set(1, session.AwaitingIdentifier)

	result, err := router.Route(context.Background(), 1, "Иванов Иван Иванович")
	require.NoError(t, err)

	assert.Contains(t, result.Reply, "Интенсив 2")
	assert.False(t, sessions.Has(1, session.AwaitingIdentifier))
}

func TestFailedLookupKeepsState(t *testing.T) {
	strategy := &fakeStrategy{entries: nil}
	router, sessions := newTestRouter(strategy)
	sessions.Set(1, session.AwaitingIdentifier)

	result, err := router.Route(context.Background(), 1, "Неизвестный Никто")
	require.NoError(t, err)

	assert.Equal(t, identifierRetry, result.Reply)
	assert.True(t, sessions.Has(1, session.AwaitingIdentifier), "retry keeps the flag set")
}

func TestLookupErrorKeepsState(t *testing.T) {
	strategy := &fakeStrategy{lookupErr: errors.New("index offline")}
	router, sessions := newTestRouter(strategy)
	sessions.Set(1, session.AwaitingIdentifier)

	_, err := router.Route(context.Background(), 1, "Иванов Иван Иванович")
	require.Error(t, err)
	assert.True(t, sessions.Has(1, session.AwaitingIdentifier))
}

func TestIdleDispatchTable(t *testing.T) {
	cases := []struct {
		classified Intent
		wantCall   string
		wantIntent Intent
	}{
		{CreativeIdea, "idea", CreativeIdea},
		{CreativeTeamName, "team", CreativeTeamName},
		{Smalltalk, "smalltalk", Smalltalk},
		{KnowledgeBase, "knowledge", KnowledgeBase},
		{Unclear, "knowledge", KnowledgeBase},
		{Intent("something_new"), "knowledge", KnowledgeBase},
	}

	for _, tc := range cases {
		strategy := &fakeStrategy{classified: tc.classified}
		router, _ := newTestRouter(strategy)

		result, err := router.Route(context.Background(), 1, "вопрос")
		require.NoError(t, err)

		assert.Contains(t, strategy.calls, tc.wantCall, "classified as %q", tc.classified)
		assert.Equal(t, tc.wantIntent, result.Intent)
		assert.NotEmpty(t, result.Reply)
	}
}

func TestClassifyErrorPropagates(t *testing.T) {
	strategy := &fakeStrategy{classifyErr: errors.New("classifier down")}
	router, _ := newTestRouter(strategy)

	_, err := router.Route(context.Background(), 1, "вопрос")
	require.Error(t, err)
}

func TestStopInIdleIsNotCancellation(t *testing.T) {
	strategy := &fakeStrategy{classified: KnowledgeBase}
	router, _ := newTestRouter(strategy)

	result, err := router.Route(context.Background(), 1, "стоп")
	require.NoError(t, err)
	assert.Equal(t, "knowledge reply", result.Reply)
}
