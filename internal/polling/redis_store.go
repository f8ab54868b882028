package polling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/ordersignal-backend/internal/domain/events"
	"github.com/yungbote/ordersignal-backend/internal/platform/logger"
)

// RedisStore keeps each channel in a sorted set. Members are the JSON encoded
// events and scores their timestamps in Unix milliseconds.
type RedisStore struct {
	log    *logger.Logger
	rdb    redis.UniversalClient
	cfg    StoreConfig
	tracer trace.Tracer
}

func NewRedisStore(log *logger.Logger, rdb redis.UniversalClient, cfg StoreConfig) *RedisStore {
	if log == nil {
		log = logger.Nop()
	}
	return &RedisStore{
		log:    log.With("service", "RedisEventStore"),
		rdb:    rdb,
		cfg:    cfg.withDefaults(),
		tracer: otel.Tracer("ordersignal/polling"),
	}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Append(ctx context.Context, channel string, ev events.Event) (err error) {
	ctx, span := s.tracer.Start(ctx, "polling.store.append", trace.WithAttributes(
		attribute.String("poll.channel", channel),
		attribute.String("poll.event_type", ev.EventType.String()),
	))
	defer func() { endSpan(span, err) }()

	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.EventID, err)
	}
	ttl := time.Duration(ev.TTL) * time.Second
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	if _, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, channel, redis.Z{Score: score(ev.Timestamp), Member: string(raw)})
		p.Expire(ctx, channel, ttl)
		return nil
	}); err != nil {
		return fmt.Errorf("save event: %w", err)
	}

	size, err := s.rdb.ZCard(ctx, channel).Result()
	if err != nil {
		s.log.Warn("Channel size check failed", "channel", channel, "error", err)
		return nil
	}
	if size > int64(2*s.cfg.MaxPage) {
		if err := s.rdb.ZRemRangeByRank(ctx, channel, 0, size-int64(s.cfg.MaxPage)-1).Err(); err != nil {
			s.log.Warn("Channel trim failed", "channel", channel, "size", size, "error", err)
		}
	}
	s.sweep(ctx, channel)
	return nil
}

func (s *RedisStore) Read(ctx context.Context, channel, cursor string, filter events.EventType) (out []events.Event, err error) {
	ctx, span := s.tracer.Start(ctx, "polling.store.read", trace.WithAttributes(
		attribute.String("poll.channel", channel),
		attribute.Bool("poll.has_cursor", cursor != ""),
	))
	defer func() {
		span.SetAttributes(attribute.Int("poll.returned", len(out)))
		endSpan(span, err)
	}()

	now := s.cfg.Now()
	s.sweep(ctx, channel)
	minScore := "0"
	if cursor != "" {
		sc, found, ferr := s.cursorScore(ctx, channel, cursor)
		switch {
		case ferr != nil:
			s.log.Warn("Cursor lookup failed, reading from start", "channel", channel, "cursor", cursor, "error", ferr)
		case found:
			minScore = "(" + strconv.FormatFloat(sc, 'f', -1, 64)
		}
	}

	// Entries past their own TTL are dropped after the range is fetched, so
	// they still take slots in the window. A page can come back short with
	// live events behind it; the next poll resumes from the returned cursor.
	limit := s.cfg.MaxPage
	if filter != "" {
		limit *= 2
	}
	members, err := s.rdb.ZRangeByScore(ctx, channel, &redis.ZRangeBy{
		Min:   minScore,
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get events: %w", err)
	}

	out = make([]events.Event, 0, len(members))
	var stale []interface{}
	for _, m := range members {
		var ev events.Event
		if err := json.Unmarshal([]byte(m), &ev); err != nil {
			s.log.Error("Failed to decode stored event", "channel", channel, "error", err)
			continue
		}
		if ev.TTL > 0 && !now.Before(ev.ExpiresAt()) {
			stale = append(stale, m)
			continue
		}
		if filter != "" && ev.EventType != filter {
			continue
		}
		if len(out) < s.cfg.MaxPage {
			out = append(out, ev)
		}
	}

	if len(stale) > 0 {
		if err := s.rdb.ZRem(ctx, channel, stale...).Err(); err != nil {
			s.log.Warn("Failed to drop expired events", "channel", channel, "count", len(stale), "error", err)
		}
	}
	return out, nil
}

// cursorScore scans the whole channel for eventID. The channel is bounded by
// the trim policy, so the scan is at most two pages long.
func (s *RedisStore) cursorScore(ctx context.Context, channel, eventID string) (float64, bool, error) {
	entries, err := s.rdb.ZRangeWithScores(ctx, channel, 0, -1).Result()
	if err != nil {
		return 0, false, err
	}
	for _, z := range entries {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		var probe struct {
			EventID string `json:"eventId"`
		}
		if err := json.Unmarshal([]byte(member), &probe); err != nil {
			continue
		}
		if probe.EventID == eventID {
			return z.Score, true, nil
		}
	}
	return 0, false, nil
}

// sweep drops everything older than the default TTL. Shorter per-event TTLs
// are enforced by Read.
func (s *RedisStore) sweep(ctx context.Context, channel string) {
	cutoff := s.cfg.Now().Add(-s.cfg.DefaultTTL).UnixMilli()
	if err := s.rdb.ZRemRangeByScore(ctx, channel, "-inf", "("+strconv.FormatInt(cutoff, 10)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		s.log.Warn("Failed to cleanup expired events", "channel", channel, "error", err)
	}
}

func score(ts time.Time) float64 {
	return float64(ts.UnixMilli())
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
