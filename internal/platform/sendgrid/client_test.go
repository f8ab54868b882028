package sendgrid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

func newTestClient(t *testing.T, h http.HandlerFunc, retries int) Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(logger.Nop(), Config{
		APIKey:           "test-key",
		BaseURL:          srv.URL,
		DefaultFromEmail: "orders@example.com",
		MaxRetries:       retries,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func validRequest() SendEmailRequest {
	return SendEmailRequest{
		To:      []EmailAddress{{Email: "admin@example.com"}},
		Subject: "hello",
		Text:    "body",
	}
}

func TestSendPostsMailPayload(t *testing.T) {
	var got mailSendRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" || r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected request: %s %s", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}, 0)

	res, err := c.Send(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.MessageID != "msg-1" || res.StatusCode != http.StatusAccepted {
		t.Fatalf("result: %+v", res)
	}
	if got.From.Email != "orders@example.com" || got.Subject != "hello" {
		t.Fatalf("payload: %+v", got)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}, 2)

	if _, err := c.Send(context.Background(), validRequest()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls: got=%d want=2", calls.Load())
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad from"}]}`))
	}, 3)

	_, err := c.Send(context.Background(), validRequest())
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected HTTPError 400, got %v", err)
	}
	if he.Error() != "sendgrid http 400: bad from" {
		t.Fatalf("error text: %q", he.Error())
	}
	if calls.Load() != 1 {
		t.Fatalf("calls: got=%d want=1", calls.Load())
	}
}

func TestSendValidatesRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("request should not be sent")
	}, 0)
	req := validRequest()
	req.Subject = ""
	if _, err := c.Send(context.Background(), req); err == nil {
		t.Fatalf("expected validation error")
	}
}
