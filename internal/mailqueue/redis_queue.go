package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yungbote/ordersignal-backend/internal/domain/notification"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

// RedisQueue keeps ready jobs in a list, scheduled retries in a sorted set
// scored by due time, and in-flight jobs in a marker key per job plus an
// index used to find stale ones.
type RedisQueue struct {
	log     *logger.Logger
	rdb     redis.UniversalClient
	metrics Metrics
	cfg     Config
}

func NewRedisQueue(log *logger.Logger, rdb redis.UniversalClient, metrics Metrics, cfg Config) *RedisQueue {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisQueue{
		log:     log.With("service", "EmailQueue"),
		rdb:     rdb,
		metrics: metricsOrNop(metrics),
		cfg:     cfg.withDefaults(),
	}
}

func (q *RedisQueue) Publish(ctx context.Context, job notification.EmailJob) error {
	if job.EventID == "" {
		job.EventID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = q.cfg.Now().UTC()
	}
	if job.RetryCount < 0 {
		job.RetryCount = 0
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}
	if err := q.rdb.RPush(ctx, QueueKey, raw).Err(); err != nil {
		q.metrics.IncQueueError("publish")
		return fmt.Errorf("push email job: %w", err)
	}
	q.metrics.IncEmailJob("published")
	q.log.Info("Email job queued", "event_id", job.EventID, "event_type", job.EventType)
	return nil
}

func (q *RedisQueue) Consume(ctx context.Context) (*notification.EmailJob, error) {
	q.promote(ctx)

	raw, err := q.rdb.LPop(ctx, QueueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		q.metrics.IncQueueError("consume")
		return nil, fmt.Errorf("pop email job: %w", err)
	}

	var job notification.EmailJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		q.metrics.IncEmailJob("malformed")
		q.log.Error("Dropping malformed email job", "error", err)
		return nil, nil
	}
	if job.EventID == "" {
		// Producers may push straight onto the list without an id.
		job.EventID = uuid.NewString()
		if b, err := json.Marshal(job); err == nil {
			raw = string(b)
		}
	}

	deadline := q.cfg.Now().Add(q.cfg.VisibilityTimeout).UnixMilli()
	if _, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, ProcessingPrefix+job.EventID, raw, q.cfg.VisibilityTimeout)
		p.ZAdd(ctx, InflightKey, redis.Z{Score: float64(deadline), Member: job.EventID})
		p.HSet(ctx, InflightJobsKey, job.EventID, raw)
		return nil
	}); err != nil {
		// The job is already off the list; hand it out anyway.
		q.metrics.IncQueueError("mark_inflight")
		q.log.Warn("Failed to mark email job in flight", "event_id", job.EventID, "error", err)
	}
	return &job, nil
}

func (q *RedisQueue) MarkProcessed(ctx context.Context, job notification.EmailJob) error {
	if err := q.clear(ctx, job.EventID); err != nil {
		return fmt.Errorf("mark processed %s: %w", job.EventID, err)
	}
	return nil
}

func (q *RedisQueue) RemoveFromQueue(ctx context.Context, job notification.EmailJob) error {
	if err := q.clear(ctx, job.EventID); err != nil {
		return fmt.Errorf("remove %s: %w", job.EventID, err)
	}
	return nil
}

func (q *RedisQueue) RequeueForRetry(ctx context.Context, job notification.EmailJob) (time.Duration, error) {
	job.RetryCount++
	delay := Backoff(q.cfg.BackoffBase, job.RetryCount)
	raw, err := json.Marshal(job)
	if err != nil {
		return 0, fmt.Errorf("marshal email job: %w", err)
	}
	due := q.cfg.Now().Add(delay).UnixMilli()
	if _, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		q.clearIn(ctx, p, job.EventID)
		p.ZAdd(ctx, DelayedKey, redis.Z{Score: float64(due), Member: string(raw)})
		return nil
	}); err != nil {
		q.metrics.IncQueueError("requeue")
		return 0, fmt.Errorf("requeue %s: %w", job.EventID, err)
	}
	return delay, nil
}

func (q *RedisQueue) RecoverStale(ctx context.Context) (int, error) {
	n, err := recoverStale.Run(ctx, q.rdb,
		[]string{InflightKey, InflightJobsKey, QueueKey},
		q.cfg.Now().UnixMilli(), q.cfg.PromoteBatch, ProcessingPrefix,
	).Int()
	if err != nil {
		q.metrics.IncQueueError("recover")
		return 0, fmt.Errorf("recover stale email jobs: %w", err)
	}
	if n > 0 {
		q.metrics.IncEmailJob("recovered")
		q.log.Warn("Recovered stale in-flight email jobs", "count", n)
	}
	return n, nil
}

func (q *RedisQueue) Depth(ctx context.Context) (Depth, error) {
	var ready, delayed, inflight *redis.IntCmd
	if _, err := q.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		ready = p.LLen(ctx, QueueKey)
		delayed = p.ZCard(ctx, DelayedKey)
		inflight = p.ZCard(ctx, InflightKey)
		return nil
	}); err != nil {
		return Depth{}, fmt.Errorf("queue depth: %w", err)
	}
	return Depth{Ready: ready.Val(), Delayed: delayed.Val(), InFlight: inflight.Val()}, nil
}

// promote is best effort; a failure only delays retries until the next call.
func (q *RedisQueue) promote(ctx context.Context) {
	n, err := promoteDue.Run(ctx, q.rdb,
		[]string{DelayedKey, QueueKey},
		strconv.FormatInt(q.cfg.Now().UnixMilli(), 10), q.cfg.PromoteBatch,
	).Int()
	if err != nil {
		q.metrics.IncQueueError("promote")
		q.log.Warn("Failed to promote due email retries", "error", err)
		return
	}
	if n > 0 {
		q.log.Debug("Promoted due email retries", "count", n)
	}
}

func (q *RedisQueue) clear(ctx context.Context, eventID string) error {
	_, err := q.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		q.clearIn(ctx, p, eventID)
		return nil
	})
	if err != nil {
		q.metrics.IncQueueError("clear")
	}
	return err
}

func (q *RedisQueue) clearIn(ctx context.Context, p redis.Pipeliner, eventID string) {
	p.Del(ctx, ProcessingPrefix+eventID)
	p.ZRem(ctx, InflightKey, eventID)
	p.HDel(ctx, InflightJobsKey, eventID)
}
