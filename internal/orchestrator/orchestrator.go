// Package orchestrator runs the inbound message pipeline: admission,
// routing, answer segmentation and delivery.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/lewisedginton/opd_consultant_bot/internal/admission"
	"github.com/lewisedginton/opd_consultant_bot/internal/chat"
	exchangelog "github.com/lewisedginton/opd_consultant_bot/internal/exchange_log"
	"github.com/lewisedginton/opd_consultant_bot/internal/intent"
	"github.com/lewisedginton/opd_consultant_bot/internal/splitter"
	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
	"github.com/lewisedginton/opd_consultant_bot/pkg/metrics"
)

// User-visible pipeline texts.
const (
	busyText = "⏳ Не спеши! Я еще отвечаю на твой прошлый вопрос."

	statusText = "⏳ Думаю..."

	internalErrorText = "Произошла внутренняя ошибка. Попробуйте задать вопрос иначе."
)

// Router routes one validated message to an answer.
type Router interface {
	Route(ctx context.Context, userID int64, text string) (intent.Result, error)
}

// Deflector produces the reply sent to flagged input.
type Deflector interface {
	SecurityDeflection(ctx context.Context) string
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	RateGate  *admission.RateGate
	Guard     *admission.ConcurrencyGuard
	Router    Router
	Deflector Deflector
	Segmenter *splitter.Segmenter
	Deliverer chat.Deliverer
	Recorder  exchangelog.Recorder
	Metrics   *metrics.Metrics
	Logger    logger.Logger
}

// Orchestrator is the per-message pipeline. It is safe for concurrent
// use: each inbound message runs through Handle on its own goroutine.
type Orchestrator struct {
	rateGate  *admission.RateGate
	guard     *admission.ConcurrencyGuard
	router    Router
	deflector Deflector
	segmenter *splitter.Segmenter
	deliverer chat.Deliverer
	recorder  exchangelog.Recorder
	metrics   *metrics.Metrics
	log       logger.Logger
	now       func() time.Time
}

// New creates an orchestrator from its dependencies.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		rateGate:  deps.RateGate,
		guard:     deps.Guard,
		router:    deps.Router,
		deflector: deps.Deflector,
		segmenter: deps.Segmenter,
		deliverer: deps.Deliverer,
		recorder:  deps.Recorder,
		metrics:   deps.Metrics,
		log:       deps.Logger,
		now:       time.Now,
	}
}

// SetDeliverer installs the outbound transport. The connector both
// feeds the orchestrator and carries its replies, so one of the two has
// to be attached after construction. Must be called before Handle.
func (o *Orchestrator) SetDeliverer(d chat.Deliverer) {
	o.deliverer = d
}

// Handle processes one inbound message end to end. The returned error
// describes why no (or only a partial) answer was delivered; the user
// has already been told everything they need to know by the time it
// returns.
func (o *Orchestrator) Handle(ctx context.Context, msg chat.InboundMessage) error {
	ctx, correlationID := logger.EnsureCorrelationID(ctx)
	log := o.log.WithCorrelationID(correlationID)

	o.metrics.MessagesReceivedCounter.Inc()

	if !o.rateGate.Admit(msg.UserID) {
		o.metrics.RecordRejection(metrics.ReasonRateLimited)
		log.Warn("Rate limit exceeded, dropping message", logger.UserIDField(msg.UserID))
		return ErrRateLimited
	}

	if admission.IsSuspicious(msg.Text) {
		o.metrics.RecordRejection(metrics.ReasonSuspicious)
		log.Warn("Suspicious input flagged",
			logger.UserIDField(msg.UserID),
			logger.StringField("text", msg.Text))
		if err := o.deliverer.SendText(ctx, msg.ChatID, o.deflector.SecurityDeflection(ctx), msg.MessageID); err != nil {
			log.Error("Failed to send deflection", logger.ErrorField(err))
		}
		return ErrSuspiciousInput
	}

	if !o.guard.TryAcquire(msg.UserID) {
		o.metrics.RecordRejection(metrics.ReasonAlreadyProcessing)
		log.Info("User already has a question in flight", logger.UserIDField(msg.UserID))
		if err := o.deliverer.SendText(ctx, msg.ChatID, busyText, msg.MessageID); err != nil {
			log.Error("Failed to send busy notice", logger.ErrorField(err))
		}
		return ErrBusy
	}
	defer o.guard.Release(msg.UserID)

	askedAt := o.now()

	statusID, err := o.deliverer.SendStatus(ctx, msg.ChatID, statusText)
	if err != nil {
		log.Error("Failed to post status message", logger.ErrorField(err))
		statusID = 0
	}
	if err := o.deliverer.NotifyTyping(ctx, msg.ChatID); err != nil {
		log.Debug("Failed to send typing indicator", logger.ErrorField(err))
	}

	result, routeErr := o.route(ctx, msg)

	if statusID != 0 {
		if err := o.deliverer.DeleteStatus(ctx, msg.ChatID, statusID); err != nil {
			log.Debug("Failed to delete status message", logger.ErrorField(err))
		}
	}

	if routeErr != nil {
		log.Error("Routing failed",
			logger.UserIDField(msg.UserID),
			logger.ErrorField(routeErr))
		if err := o.deliverer.SendText(ctx, msg.ChatID, internalErrorText, msg.MessageID); err != nil {
			log.Error("Failed to send error reply", logger.ErrorField(err))
		}
		return fmt.Errorf("routing message: %w", routeErr)
	}

	o.metrics.RecordIntent(string(result.Intent))

	if err := o.recorder.Record(ctx, exchangelog.Exchange{
		UserID:     msg.UserID,
		Username:   msg.Username,
		FullName:   msg.FullName,
		Intent:     string(result.Intent),
		Question:   msg.Text,
		Answer:     result.Reply,
		AskedAt:    askedAt,
		AnsweredAt: o.now(),
	}); err != nil {
		log.Error("Failed to record exchange", logger.ErrorField(err))
	}

	return o.deliver(ctx, log, msg, result.Reply)
}

// route calls the router with duration accounting and panic containment.
// A panicking strategy must not take the polling loop down with it.
func (o *Orchestrator) route(ctx context.Context, msg chat.InboundMessage) (result intent.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("routing panicked: %v", r)
		}
	}()

	start := o.now()
	defer func() {
		o.metrics.StrategyDuration.Observe(time.Since(start).Seconds())
	}()

	return o.router.Route(ctx, msg.UserID, msg.Text)
}

// deliver segments the reply and sends the chunks in order. The first
// chunk is linked to the question; later chunks stand alone. A failed
// chunk is logged and skipped so the rest of the answer still arrives.
func (o *Orchestrator) deliver(ctx context.Context, log logger.Logger, msg chat.InboundMessage, reply string) error {
	chunks := o.segmenter.Segment(reply)
	if len(chunks) == 0 {
		log.Warn("Routed reply was empty", logger.UserIDField(msg.UserID))
		return nil
	}

	var errs *multierror.Error
	for i, chunk := range chunks {
		replyTo := 0
		if i == 0 {
			replyTo = msg.MessageID
		}
		if err := o.deliverer.SendText(ctx, msg.ChatID, chunk, replyTo); err != nil {
			o.metrics.DeliveryFailuresCounter.Inc()
			log.Error("Failed to deliver answer chunk",
				logger.ChatIDField(msg.ChatID),
				logger.IntField("chunk", i),
				logger.ErrorField(err))
			errs = multierror.Append(errs, err)
			continue
		}
		o.metrics.ChunksDeliveredCounter.Inc()
	}

	if err := errs.ErrorOrNil(); err != nil {
		return fmt.Errorf("delivering answer: %w", err)
	}
	return nil
}
