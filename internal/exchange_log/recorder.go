// Package exchangelog persists question/answer pairs for later review of
// what users ask and how the bot answered.
package exchangelog

import (
	"context"
	"sync"
	"time"

	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

// Exchange is one completed question/answer pair.
type Exchange struct {
	UserID     int64
	Username   string
	FullName   string
	Intent     string
	Question   string
	Answer     string
	AskedAt    time.Time
	AnsweredAt time.Time
}

// Recorder persists exchanges.
type Recorder interface {
	Record(ctx context.Context, ex Exchange) error
}

// NopRecorder discards every exchange. Used when logging is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Exchange) error { return nil }

const asyncRecordTimeout = 10 * time.Second

// AsyncRecorder writes exchanges in the background so a slow sink never
// delays answer delivery. Errors are logged, not surfaced.
type AsyncRecorder struct {
	next Recorder
	log  logger.Logger
	wg   sync.WaitGroup
}

// NewAsyncRecorder wraps next with fire-and-forget semantics.
func NewAsyncRecorder(next Recorder, log logger.Logger) *AsyncRecorder {
	return &AsyncRecorder{next: next, log: log}
}

// Record queues the exchange for background persistence and returns
// immediately.
func (a *AsyncRecorder) Record(_ context.Context, ex Exchange) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncRecordTimeout)
		defer cancel()
		if err := a.next.Record(ctx, ex); err != nil {
			a.log.Error("Failed to record exchange",
				logger.UserIDField(ex.UserID),
				logger.ErrorField(err))
		}
	}()
	return nil
}

// Close waits for in-flight writes to finish.
func (a *AsyncRecorder) Close() {
	a.wg.Wait()
}
