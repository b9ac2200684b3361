package metrics

import (
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/opd_consultant_bot/pkg/logger"
)

func newTestLogger() logger.Logger {
	return logger.NewLogger(logger.Config{
		Level:  logger.DebugLevel,
		Output: io.Discard,
	})
}

func TestNewMetricsRegistersCollectors(t *testing.T) {
	m := NewMetrics(newTestLogger())
	require.NotNil(t, m)

	m.MessagesReceivedCounter.Inc()
	m.ChunksDeliveredCounter.Add(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesReceivedCounter))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ChunksDeliveredCounter))
}

func TestRecordRejectionAndIntent(t *testing.T) {
	m := NewMetrics(newTestLogger())

	m.RecordRejection(ReasonRateLimited)
	m.RecordRejection(ReasonRateLimited)
	m.RecordRejection(ReasonSuspicious)
	m.RecordIntent("smalltalk")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesRejectedCounter.WithLabelValues(ReasonRateLimited)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MessagesRejectedCounter.WithLabelValues(ReasonSuspicious)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IntentCounter.WithLabelValues("smalltalk")))
}
