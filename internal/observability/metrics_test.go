package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/ordersignal-backend/internal/mailqueue"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.IncEventPublished("ADMIN_NEW_ORDER", "ok")
	m.ObservePoll("user", "long", "empty", 0, time.Second)
	m.IncEmailJob("sent")
	m.ApiInflightInc()
	m.ApiInflightDec()
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWritePrometheus(t *testing.T) {
	m := New(time.Minute)
	m.IncEventPublished("CUSTOMER_ORDER_STATUS", "ok")
	m.IncEventPublished("CUSTOMER_ORDER_STATUS", "ok")
	m.ObservePoll("admin", "long", "events", 3, 2*time.Second)
	m.IncEmailJob("retried")
	m.IncStoreError("")

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"# TYPE os_events_published_total counter",
		`os_events_published_total{event_type="CUSTOMER_ORDER_STATUS",status="ok"} 2`,
		`os_polls_total{scope="admin",mode="long",outcome="events"} 1`,
		`os_poll_duration_seconds_bucket{scope="admin",mode="long",le="1"} 0`,
		`os_poll_duration_seconds_bucket{scope="admin",mode="long",le="5"} 1`,
		`os_poll_returned_events_bucket{scope="admin",le="+Inf"} 1`,
		`os_email_jobs_total{outcome="retried"} 1`,
		`os_event_store_errors_total{op="unknown"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

type depthQueue struct {
	mailqueue.Queue
	depth mailqueue.Depth
	err   error
}

func (q depthQueue) Depth(context.Context) (mailqueue.Depth, error) { return q.depth, q.err }

func TestCollectQueueDepth(t *testing.T) {
	m := New(time.Minute)
	m.collectQueueDepth(context.Background(), logger.Nop(), depthQueue{depth: mailqueue.Depth{Ready: 4, Delayed: 2, InFlight: 1}})

	var buf bytes.Buffer
	_ = m.emailQueue.WritePrometheus(&buf)
	for _, want := range []string{
		`os_email_queue_depth{state="ready"} 4`,
		`os_email_queue_depth{state="delayed"} 2`,
		`os_email_queue_depth{state="in_flight"} 1`,
	} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("missing %q in:\n%s", want, buf.String())
		}
	}

	// A failed sample keeps the previous values.
	m.collectQueueDepth(context.Background(), logger.Nop(), depthQueue{err: errors.New("down")})
	buf.Reset()
	_ = m.emailQueue.WritePrometheus(&buf)
	if !strings.Contains(buf.String(), `os_email_queue_depth{state="ready"} 4`) {
		t.Fatalf("depth reset on error:\n%s", buf.String())
	}
}

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,bad, x=1")
	if len(got) != 2 || got["api-key"] != "abc" || got["x"] != "1" {
		t.Fatalf("got %v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty input should give nil")
	}
}
