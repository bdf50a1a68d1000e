// Package notify delivers fire-and-forget messages to named channels. The
// core never waits on acknowledgement; a lost notification is tolerable, a
// blocked pipeline is not.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/contentforge-backend/internal/platform/envutil"
	"github.com/yungbote/contentforge-backend/internal/platform/logger"
)

type Sink interface {
	Notify(ctx context.Context, channel string, message string)
}

// Pinger is implemented by sinks backed by a live connection; health probes
// use it when present.
type Pinger interface {
	Ping(ctx context.Context) error
}

type message struct {
	Channel string    `json:"channel"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

type redisSink struct {
	log    *logger.Logger
	rdb    *redis.Client
	prefix string
}

// NewRedisSink connects to REDIS_ADDR and publishes to
// "<prefix>.<channel>". Fails on construction if redis is unreachable;
// individual publishes only log.
func NewRedisSink(log *logger.Logger) (Sink, error) {
	addr := strings.TrimSpace(envutil.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	prefix := strings.TrimSpace(envutil.GetEnv("REDIS_NOTIFY_PREFIX", "notify", log))

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisSink{
		log:    log.With("service", "RedisNotifySink"),
		rdb:    rdb,
		prefix: prefix,
	}, nil
}

func (s *redisSink) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *redisSink) Notify(ctx context.Context, channel string, msg string) {
	if channel == "" || msg == "" {
		return
	}
	raw, err := json.Marshal(message{Channel: channel, Message: msg, SentAt: time.Now().UTC()})
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, s.prefix+"."+channel, raw).Err(); err != nil {
		s.log.Warn("notification publish failed", "channel", channel, "error", err.Error())
	}
}

// Noop discards everything. Default when redis is not configured, and the
// sink tests hand to components that should not notify.
type Noop struct{}

func (Noop) Notify(ctx context.Context, channel string, msg string) {}
