package api

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// mutationMetrics collects per-request timings for task mutations and logs
// them as structured fields once the response is written.
type mutationMetrics struct {
	logger            *log.Logger
	op                string
	start             time.Time
	storeDuration     time.Duration
	broadcastDuration time.Duration
	errorStage        string
}

func newMutationMetrics(logger *log.Logger, op string) *mutationMetrics {
	return &mutationMetrics{logger: logger, op: op, start: time.Now()}
}

func (m *mutationMetrics) ObserveStore(d time.Duration) {
	if d <= 0 {
		return
	}
	m.storeDuration = d
}

func (m *mutationMetrics) ObserveBroadcast(d time.Duration) {
	if d <= 0 {
		return
	}
	m.broadcastDuration = d
}

func (m *mutationMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *mutationMetrics) Log(status int, err error) {
	if m == nil || m.logger == nil {
		return
	}

	fields := log.Fields{
		"op":       m.op,
		"status":   status,
		"total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.storeDuration > 0 {
		fields["store_ms"] = durationToMillis(m.storeDuration)
	}
	if m.broadcastDuration > 0 {
		fields["broadcast_ms"] = durationToMillis(m.broadcastDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("tasks.mutation.metrics")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
