package mailqueue

import (
	"context"
	"time"

	"github.com/yungbote/ordersignal-backend/internal/domain/notification"
)

const (
	QueueKey         = "email:queue"
	DelayedKey       = "email:delayed"
	ProcessingPrefix = "email:processing:"
	InflightKey      = "email:inflight"
	InflightJobsKey  = "email:inflight:jobs"
)

// Queue is an at-least-once FIFO of email jobs. A consumed job stays
// "in flight" until it is marked processed, removed or requeued.
type Queue interface {
	Publish(ctx context.Context, job notification.EmailJob) error
	// Consume pops the next ready job. It returns nil when nothing is ready.
	Consume(ctx context.Context) (*notification.EmailJob, error)
	MarkProcessed(ctx context.Context, job notification.EmailJob) error
	// RequeueForRetry bumps RetryCount and schedules the job after an
	// exponential backoff. It returns the delay used.
	RequeueForRetry(ctx context.Context, job notification.EmailJob) (time.Duration, error)
	RemoveFromQueue(ctx context.Context, job notification.EmailJob) error
	// RecoverStale returns in-flight jobs whose visibility timeout passed to
	// the tail of the queue.
	RecoverStale(ctx context.Context) (int, error)
	Depth(ctx context.Context) (Depth, error)
}

type Depth struct {
	Ready    int64
	Delayed  int64
	InFlight int64
}

type Config struct {
	VisibilityTimeout time.Duration
	BackoffBase       time.Duration
	// PromoteBatch bounds how many due retries move to the queue per Consume.
	PromoteBatch int
	Now          func() time.Time
}

func (c Config) withDefaults() Config {
	if c.VisibilityTimeout <= 0 {
		c.VisibilityTimeout = 5 * time.Minute
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.PromoteBatch <= 0 {
		c.PromoteBatch = 100
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Backoff is base * 2^retryCount.
func Backoff(base time.Duration, retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 20 {
		retryCount = 20
	}
	return base * time.Duration(1<<uint(retryCount))
}

// Metrics receives queue and worker telemetry. A nil Metrics is replaced by
// a no-op.
type Metrics interface {
	IncEmailJob(outcome string)
	IncQueueError(op string)
}

type nopMetrics struct{}

func (nopMetrics) IncEmailJob(string)   {}
func (nopMetrics) IncQueueError(string) {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
