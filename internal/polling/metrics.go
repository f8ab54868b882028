package polling

import "time"

// Metrics receives polling telemetry. A nil Metrics is replaced by a no-op.
type Metrics interface {
	IncEventPublished(eventType, status string)
	ObservePoll(scope, mode, outcome string, returned int, dur time.Duration)
	IncStoreError(op string)
}

type nopMetrics struct{}

func (nopMetrics) IncEventPublished(string, string)                       {}
func (nopMetrics) ObservePoll(string, string, string, int, time.Duration) {}
func (nopMetrics) IncStoreError(string)                                   {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
