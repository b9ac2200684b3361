package orchestrator

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/opd_consultant_bot/internal/admission"
	"github.com/lewisedginton/opd_consultant_bot/internal/chat"
	exchangelog "github.com/lewisedginton/opd_consultant_bot/internal/exchange_log"
	"github.com/lewisedginton/opd_consultant_bot/internal/intent"
	"github.com/lewisedginton/opd_consultant_bot/internal/splitter"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
	"github.com/lewisedginton/opd_consultant_bot/pkg/metrics"
)

func newTestLogger() logger.Logger {
	return logger.NewLogger(logger.Config{
		Level:  logger.DebugLevel,
		Output: io.Discard,
	})
}

type fakeRouter struct {
	result intent.Result
	err    error
	panics bool
	calls  int
}

func (f *fakeRouter) Route(ctx context.Context, userID int64, text string) (intent.Result, error) {
	f.calls++
	if f.panics {
		panic("strategy exploded")
	}
	return f.result, f.err
}

type fakeDeflector struct{}

func (fakeDeflector) SecurityDeflection(ctx context.Context) string {
	return "Хорошая попытка! 😄"
}

type sentText struct {
	chatID  int64
	text    string
	replyTo int
}

type fakeDeliverer struct {
	sent        []sentText
	sendErrOn   map[int]error // index into sent order
	statusID    int
	statusErr   error
	deleted     []int
	typingCalls int
}

func (f *fakeDeliverer) SendText(ctx context.Context, chatID int64, text string, replyTo int) error {
	idx := len(f.sent)
	f.sent = append(f.sent, sentText{chatID: chatID, text: text, replyTo: replyTo})
	if err, ok := f.sendErrOn[idx]; ok {
		return err
	}
	return nil
}

func (f *fakeDeliverer) SendStatus(ctx context.Context, chatID int64, text string) (int, error) {
	if f.statusErr != nil {
		return 0, f.statusErr
	}
	return f.statusID, nil
}

func (f *fakeDeliverer) DeleteStatus(ctx context.Context, chatID int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeDeliverer) NotifyTyping(ctx context.Context, chatID int64) error {
	f.typingCalls++
	return nil
}

type capturingRecorder struct {
	exchanges []exchangelog.Exchange
}

func (c *capturingRecorder) Record(ctx context.Context, ex exchangelog.Exchange) error {
	c.exchanges = append(c.exchanges, ex)
	return nil
}

type fixture struct {
	orch      *Orchestrator
	router    *fakeRouter
	deliverer *fakeDeliverer
	recorder  *capturingRecorder
	guard     *admission.ConcurrencyGuard
}

func newFixture(router *fakeRouter, maxChunk int) *fixture {
	log := newTestLogger()
	deliverer := &fakeDeliverer{statusID: 777}
	recorder := &capturingRecorder{}
	guard := admission.NewConcurrencyGuard()

	orch := New(Deps{
		RateGate:  admission.NewRateGate(10*time.Second, 5),
		Guard:     guard,
		Router:    router,
		Deflector: fakeDeflector{},
		Segmenter: splitter.New(maxChunk),
		Deliverer: deliverer,
		Recorder:  recorder,
		Metrics:   metrics.NewMetrics(log),
		Logger:    log,
	})
	return &fixture{orch: orch, router: router, deliverer: deliverer, recorder: recorder, guard: guard}
}

func inbound(text string) chat.InboundMessage {
	return chat.InboundMessage{
		UpdateID:  1,
		MessageID: 55,
		ChatID:    100,
		UserID:    7,
		Username:  "student",
		FullName:  "Иван Петров",
		Text:      text,
		SentAt:    time.Now(),
	}
}

func TestHandleHappyPath(t *testing.T) {
	router := &fakeRouter{result: intent.Result{Intent: intent.KnowledgeBase, Reply: "Ответ на вопрос."}}
	fx := newFixture(router, splitter.DefaultMaxChunkSize)

	err := fx.orch.Handle(context.Background(), inbound("что такое ОПД?"))
	require.NoError(t, err)

	require.Len(t, fx.deliverer.sent, 1)
	assert.Equal(t, "Ответ на вопрос.", fx.deliverer.sent[0].text)
	assert.Equal(t, 55, fx.deliverer.sent[0].replyTo, "answer is linked to the question")
	assert.Equal(t, []int{777}, fx.deliverer.deleted, "status message is cleaned up")
	assert.Equal(t, 1, fx.deliverer.typingCalls)

	require.Len(t, fx.recorder.exchanges, 1)
	ex := fx.recorder.exchanges[0]
	assert.Equal(t, "что такое ОПД?", ex.Question)
	assert.Equal(t, "Ответ на вопрос.", ex.Answer)
	assert.Equal(t, string(intent.KnowledgeBase), ex.Intent)
	assert.Equal(t, int64(7), ex.UserID)
}

func TestHandleRateLimitIsSilent(t *testing.T) {
	router := &fakeRouter{result: intent.Result{Intent: intent.Smalltalk, Reply: "привет"}}
	fx := newFixture(router, splitter.DefaultMaxChunkSize)

	for i := 0; i < 5; i++ {
		require.NoError(t, fx.orch.Handle(context.Background(), inbound("вопрос")))
	}
	sentBefore := len(fx.deliverer.sent)

	err := fx.orch.Handle(context.Background(), inbound("шестой вопрос"))
	require.ErrorIs(t, err, ErrRateLimited)
	assert.Len(t, fx.deliverer.sent, sentBefore, "no reply on rate limit")
	assert.Equal(t, 5, router.calls)
}

func TestHandleSuspiciousInputGetsDeflection(t *testing.T) {
	router := &fakeRouter{}
	fx := newFixture(router, splitter.DefaultMaxChunkSize)

	err := fx.orch.Handle(context.Background(), inbound("SELECT * FROM users WHERE 1=1"))
	require.ErrorIs(t, err, ErrSuspiciousInput)

	require.Len(t, fx.deliverer.sent, 1)
	assert.Equal(t, "Хорошая попытка! 😄", fx.deliverer.sent[0].text)
	assert.Zero(t, router.calls, "flagged input never reaches the router")
	assert.Empty(t, fx.recorder.exchanges)
}

func TestHandleBusyUserGetsNotice(t *testing.T) {
	router := &fakeRouter{result: intent.Result{Intent: intent.Smalltalk, Reply: "привет"}}
	fx := newFixture(router, splitter.DefaultMaxChunkSize)

	require.True(t, fx.guard.TryAcquire(7), "simulate an in-flight question")

	err := fx.orch.Handle(context.Background(), inbound("еще вопрос"))
	require.ErrorIs(t, err, ErrBusy)

	require.Len(t, fx.deliverer.sent, 1)
	assert.Equal(t, busyText, fx.deliverer.sent[0].text)
	assert.Zero(t, router.calls)
}

func TestHandleReleasesGuard(t *testing.T) {
	router := &fakeRouter{result: intent.Result{Intent: intent.Smalltalk, Reply: "привет"}}
	fx := newFixture(router, splitter.DefaultMaxChunkSize)

	require.NoError(t, fx.orch.Handle(context.Background(), inbound("раз")))
	require.NoError(t, fx.orch.Handle(context.Background(), inbound("два")))
	assert.Equal(t, 2, router.calls)
}

func TestHandleRouterErrorSendsGenericReply(t *testing.T) {
	router := &fakeRouter{err: errors.New("rag service down")}
	fx := newFixture(router, splitter.DefaultMaxChunkSize)

	err := fx.orch.Handle(context.Background(), inbound("вопрос"))
	require.Error(t, err)
	assert.ErrorContains(t, err, "rag service down")

	require.Len(t, fx.deliverer.sent, 1)
	assert.Equal(t, internalErrorText, fx.deliverer.sent[0].text)
	assert.Empty(t, fx.recorder.exchanges, "failed exchanges are not recorded")
}

func TestHandleRouterPanicIsContained(t *testing.T) {
	router := &fakeRouter{panics: true}
	fx := newFixture(router, splitter.DefaultMaxChunkSize)

	var err error
	require.NotPanics(t, func() {
		err = fx.orch.Handle(context.Background(), inbound("вопрос"))
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "strategy exploded")

	require.Len(t, fx.deliverer.sent, 1)
	assert.Equal(t, internalErrorText, fx.deliverer.sent[0].text)

	// Guard released despite the panic.
	require.NoError(t, func() error {
		fx.router.panics = false
		fx.router.result = intent.Result{Intent: intent.Smalltalk, Reply: "ок"}
		return fx.orch.Handle(context.Background(), inbound("снова"))
	}())
}

func TestHandleLongReplyIsChunked(t *testing.T) {
	reply := strings.Repeat("строка текста\n", 10)
	router := &fakeRouter{result: intent.Result{Intent: intent.KnowledgeBase, Reply: reply}}
	fx := newFixture(router, 50)

	err := fx.orch.Handle(context.Background(), inbound("вопрос"))
	require.NoError(t, err)

	require.Greater(t, len(fx.deliverer.sent), 1)
	assert.Equal(t, 55, fx.deliverer.sent[0].replyTo, "only the first chunk is linked")
	for _, m := range fx.deliverer.sent[1:] {
		assert.Zero(t, m.replyTo)
	}
}

func TestHandleChunkFailureDoesNotAbortDelivery(t *testing.T) {
	reply := strings.Repeat("строка текста\n", 10)
	router := &fakeRouter{result: intent.Result{Intent: intent.KnowledgeBase, Reply: reply}}
	fx := newFixture(router, 50)
	fx.deliverer.sendErrOn = map[int]error{0: errors.New("flood control")}

	err := fx.orch.Handle(context.Background(), inbound("вопрос"))
	require.Error(t, err, "partial delivery is reported")
	assert.Greater(t, len(fx.deliverer.sent), 1, "remaining chunks are still attempted")
}

func TestHandleStatusFailureIsNotFatal(t *testing.T) {
	router := &fakeRouter{result: intent.Result{Intent: intent.Smalltalk, Reply: "привет"}}
	fx := newFixture(router, splitter.DefaultMaxChunkSize)
	fx.deliverer.statusErr = errors.New("cannot post")

	err := fx.orch.Handle(context.Background(), inbound("вопрос"))
	require.NoError(t, err)
	assert.Empty(t, fx.deliverer.deleted, "nothing to delete when status failed")
}
