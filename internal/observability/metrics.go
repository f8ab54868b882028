package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/ordersignal-backend/internal/mailqueue"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

// Metrics is the process metric registry. A nil *Metrics is valid and
// records nothing, so components can be wired the same way whether metrics
// are enabled or not.
type Metrics struct {
	apiRequests    *CounterVec
	apiLatency     *HistogramVec
	apiInflight    *Gauge
	eventsTotal    *CounterVec
	pollsTotal     *CounterVec
	pollDuration   *HistogramVec
	pollReturned   *HistogramVec
	storeErrors    *CounterVec
	emailJobs      *CounterVec
	queueErrors    *CounterVec
	emailQueue     *GaugeVec
	redisUp        *Gauge
	redisPing      *Gauge
	scrapeInterval time.Duration
	all            []collector
}

func New(scrapeInterval time.Duration) *Metrics {
	if scrapeInterval <= 0 {
		scrapeInterval = 10 * time.Second
	}
	m := &Metrics{
		apiRequests: NewCounterVec("os_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec("os_api_request_duration_seconds", "API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("os_api_inflight_requests", "In-flight API requests."),
		eventsTotal: NewCounterVec("os_events_published_total", "Events published by type and status.", []string{"event_type", "status"}),
		pollsTotal:  NewCounterVec("os_polls_total", "Polls by scope, mode and outcome.", []string{"scope", "mode", "outcome"}),
		pollDuration: NewHistogramVec("os_poll_duration_seconds", "Time spent serving a poll.",
			[]string{"scope", "mode"},
			[]float64{0.005, 0.025, 0.1, 0.5, 1, 5, 10, 20, 25, 30},
		),
		pollReturned: NewHistogramVec("os_poll_returned_events", "Events returned per poll.",
			[]string{"scope"},
			[]float64{0, 1, 5, 10, 25, 50},
		),
		storeErrors: NewCounterVec("os_event_store_errors_total", "Event store failures by operation.", []string{"op"}),
		emailJobs:   NewCounterVec("os_email_jobs_total", "Email jobs by outcome.", []string{"outcome"}),
		queueErrors: NewCounterVec("os_email_queue_errors_total", "Email queue failures by operation.", []string{"op"}),
		emailQueue:  NewGaugeVec("os_email_queue_depth", "Email jobs by state.", []string{"state"}),
		redisUp:     NewGauge("os_redis_up", "Redis reachability (1 up, 0 down)."),
		redisPing:   NewGauge("os_redis_ping_seconds", "Redis ping latency in seconds."),

		scrapeInterval: scrapeInterval,
	}
	m.all = []collector{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.eventsTotal, m.pollsTotal, m.pollDuration, m.pollReturned, m.storeErrors,
		m.emailJobs, m.queueErrors, m.emailQueue,
		m.redisUp, m.redisPing,
	}
	return m
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err, "addr", addr)
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range m.all {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

func (m *Metrics) IncEventPublished(eventType, status string) {
	if m == nil {
		return
	}
	m.eventsTotal.Inc(eventType, status)
}

func (m *Metrics) ObservePoll(scope, mode, outcome string, returned int, dur time.Duration) {
	if m == nil {
		return
	}
	m.pollsTotal.Inc(scope, mode, outcome)
	m.pollDuration.Observe(dur.Seconds(), scope, mode)
	m.pollReturned.Observe(float64(returned), scope)
}

func (m *Metrics) IncStoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.Inc(op)
}

func (m *Metrics) IncEmailJob(outcome string) {
	if m == nil {
		return
	}
	m.emailJobs.Inc(outcome)
}

func (m *Metrics) IncQueueError(op string) {
	if m == nil {
		return
	}
	m.queueErrors.Inc(op)
}

// StartRedisCollector pings Redis on the scrape interval.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb redis.UniversalClient) {
	if m == nil || rdb == nil {
		return
	}
	go m.every(ctx, func() {
		start := time.Now()
		if err := rdb.Ping(ctx).Err(); err != nil {
			m.redisUp.Set(0)
			if ctx.Err() == nil {
				log.Warn("metrics: redis ping failed", "error", err)
			}
			return
		}
		m.redisUp.Set(1)
		m.redisPing.Set(time.Since(start).Seconds())
	})
}

// StartEmailQueueCollector samples email queue depth on the scrape interval.
func (m *Metrics) StartEmailQueueCollector(ctx context.Context, log *logger.Logger, q mailqueue.Queue) {
	if m == nil || q == nil {
		return
	}
	go m.every(ctx, func() { m.collectQueueDepth(ctx, log, q) })
}

func (m *Metrics) collectQueueDepth(ctx context.Context, log *logger.Logger, q mailqueue.Queue) {
	d, err := q.Depth(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("metrics: email queue depth failed", "error", err)
		}
		return
	}
	m.emailQueue.Set(float64(d.Ready), "ready")
	m.emailQueue.Set(float64(d.Delayed), "delayed")
	m.emailQueue.Set(float64(d.InFlight), "in_flight")
}

func (m *Metrics) every(ctx context.Context, fn func()) {
	ticker := time.NewTicker(m.scrapeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// StatusLabel renders an HTTP status code as a metric label.
func StatusLabel(code int) string {
	if code <= 0 {
		return "0"
	}
	return strconv.Itoa(code)
}
