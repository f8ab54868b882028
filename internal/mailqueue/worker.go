package mailqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/ordersignal-backend/internal/domain/notification"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

// Sender delivers a rendered email for a job.
type Sender interface {
	SendNewOrder(ctx context.Context, job notification.EmailJob) error
}

type WorkerConfig struct {
	MaxRetries int
	IdlePoll   time.Duration
	// LockKey and LockTTL configure the cross-process consumer lease. The
	// lease is only used when the worker is given a locker.
	LockKey string
	LockTTL time.Duration
	// ReaperInterval enables RecoverStale on a ticker when positive.
	ReaperInterval time.Duration
	// JobTimeout bounds one loop iteration. Stop does not cut an iteration
	// short, so this is the longest Stop waits for a send.
	JobTimeout time.Duration
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.IdlePoll <= 0 {
		c.IdlePoll = time.Second
	}
	if c.LockKey == "" {
		c.LockKey = "email:worker:lock"
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 30 * time.Second
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 30 * time.Second
	}
	return c
}

// Worker is the single consumer of the email queue.
type Worker struct {
	log      *logger.Logger
	queue    Queue
	sender   Sender
	locker   *redislock.Client
	metrics  Metrics
	validate *validator.Validate
	tracer   trace.Tracer
	cfg      WorkerConfig

	mu      sync.Mutex
	running atomic.Bool
	stop    chan struct{}
	done    chan struct{}
	lease   *redislock.Lock
}

// NewWorker builds a worker. A nil locker disables the lease.
func NewWorker(log *logger.Logger, queue Queue, sender Sender, locker *redislock.Client, metrics Metrics, cfg WorkerConfig) *Worker {
	if log == nil {
		log = logger.Nop()
	}
	return &Worker{
		log:      log.With("component", "EmailWorker"),
		queue:    queue,
		sender:   sender,
		locker:   locker,
		metrics:  metricsOrNop(metrics),
		validate: validator.New(),
		tracer:   otel.Tracer("ordersignal/mailqueue"),
		cfg:      cfg.withDefaults(),
	}
}

// Start launches the consumer loop. It reports false when the worker was
// already running. Cancelling ctx stops the loop like Stop does.
func (w *Worker) Start(ctx context.Context) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running.Load() {
		return false
	}
	w.running.Store(true)
	w.stop = make(chan struct{})
	w.done = make(chan struct{})

	w.log.Info("Starting email worker", "max_retries", w.cfg.MaxRetries, "lease", w.locker != nil, "reaper", w.cfg.ReaperInterval > 0)
	go w.run(ctx, w.stop, w.done)
	return true
}

// Stop asks the loop to exit and waits for the current iteration to finish.
// The iteration itself is not interrupted.
func (w *Worker) Stop() {
	w.mu.Lock()
	stop, done := w.stop, w.done
	w.stop = nil
	w.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
	w.log.Info("Email worker stopped")
}

func (w *Worker) Running() bool { return w.running.Load() }

func (w *Worker) run(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	loopCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
		w.releaseLease()

		w.mu.Lock()
		w.stop, w.done = nil, nil
		w.running.Store(false)
		w.mu.Unlock()
		close(done)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-stop:
			cancel()
		case <-loopCtx.Done():
		}
	}()

	if w.cfg.ReaperInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.reap(loopCtx)
		}()
	}

	for {
		if loopCtx.Err() != nil {
			return
		}
		if w.iterate(loopCtx) {
			continue
		}
		idle := time.NewTimer(w.cfg.IdlePoll)
		select {
		case <-loopCtx.Done():
			idle.Stop()
			return
		case <-idle.C:
		}
	}
}

// iterate runs one RunOnce detached from loop cancellation, so a job popped
// before shutdown is still sent and acknowledged or requeued.
func (w *Worker) iterate(loopCtx context.Context) bool {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(loopCtx), w.cfg.JobTimeout)
	defer cancel()
	return w.RunOnce(ctx)
}

// RunOnce performs a single loop iteration and reports whether a job was
// handled.
func (w *Worker) RunOnce(ctx context.Context) bool {
	if !w.holdLease(ctx) {
		return false
	}
	job, err := w.queue.Consume(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error("Failed to consume email job", "error", err)
		}
		return false
	}
	if job == nil {
		return false
	}
	w.handle(ctx, *job)
	return true
}

func (w *Worker) handle(ctx context.Context, job notification.EmailJob) {
	ctx, span := w.tracer.Start(ctx, "mailqueue.worker.job", trace.WithAttributes(
		attribute.String("email.event_id", job.EventID),
		attribute.String("email.event_type", job.EventType),
		attribute.Int("email.retry_count", job.RetryCount),
	))
	defer span.End()

	outcome, err := w.dispatch(ctx, job)
	if err == nil {
		if cerr := w.queue.MarkProcessed(ctx, job); cerr != nil {
			w.log.Warn("Failed to clear in-flight marker", "event_id", job.EventID, "error", cerr)
		}
		w.metrics.IncEmailJob(outcome)
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if job.RetryCount < w.cfg.MaxRetries {
		delay, rerr := w.queue.RequeueForRetry(ctx, job)
		if rerr != nil {
			w.log.Error("Failed to requeue email job", "event_id", job.EventID, "error", rerr)
			return
		}
		w.metrics.IncEmailJob("retried")
		w.log.Warn("Email delivery failed, retry scheduled",
			"event_id", job.EventID,
			"retry_count", job.RetryCount+1,
			"delay", delay.String(),
			"error", err,
		)
		return
	}

	w.log.Error("Email delivery failed after max retries, dropping job",
		"event_id", job.EventID,
		"event_type", job.EventType,
		"retry_count", job.RetryCount,
		"error", err,
	)
	if rerr := w.queue.RemoveFromQueue(ctx, job); rerr != nil {
		w.log.Warn("Failed to remove email job", "event_id", job.EventID, "error", rerr)
	}
	w.metrics.IncEmailJob("dropped")
}

// dispatch routes a job to its sender. Panics surface as errors so one bad
// job cannot stop the loop.
func (w *Worker) dispatch(ctx context.Context, job notification.EmailJob) (outcome string, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Email handler panic", "event_id", job.EventID, "panic", r)
			err = fmt.Errorf("email handler panic: %v", r)
		}
	}()

	switch job.EventType {
	case notification.EmailNewOrder:
		if err := w.validate.Struct(job); err != nil {
			return "", fmt.Errorf("invalid email job: %w", err)
		}
		if w.sender == nil {
			return "", errors.New("no email sender configured")
		}
		if err := w.sender.SendNewOrder(ctx, job); err != nil {
			return "", err
		}
		w.log.Info("Email sent", "event_id", job.EventID, "event_type", job.EventType, "recipient", job.RecipientEmail)
		return "sent", nil
	default:
		w.log.Warn("Unknown email event type, dropping", "event_id", job.EventID, "event_type", job.EventType)
		return "unknown_type", nil
	}
}

// holdLease obtains or refreshes the consumer lease. Without a locker the
// worker always proceeds.
func (w *Worker) holdLease(ctx context.Context) bool {
	if w.locker == nil {
		return true
	}
	if w.lease != nil {
		err := w.lease.Refresh(ctx, w.cfg.LockTTL, nil)
		if err == nil {
			return true
		}
		w.log.Warn("Lost email worker lease", "error", err)
		w.lease = nil
	}
	lock, err := w.locker.Obtain(ctx, w.cfg.LockKey, w.cfg.LockTTL, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return false
	}
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("Failed to obtain email worker lease", "error", err)
		}
		return false
	}
	w.log.Info("Acquired email worker lease", "key", w.cfg.LockKey)
	w.lease = lock
	return true
}

func (w *Worker) releaseLease() {
	if w.lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.lease.Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
		w.log.Warn("Failed to release email worker lease", "error", err)
	}
	w.lease = nil
}

func (w *Worker) reap(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.ReaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.queue.RecoverStale(ctx); err != nil && ctx.Err() == nil {
				w.log.Warn("Stale email job sweep failed", "error", err)
			}
		}
	}
}
