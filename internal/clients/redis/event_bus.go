package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xwerkax/BloomlyApp/internal/platform/logger"
)

const (
	ChannelReminders = "bloomly:reminders"
	ChannelJobs      = "bloomly:jobs"
)

// Envelope is the wire format of every message on the bus.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    time.Time       `json:"at"`
}

type EventBus interface {
	Publish(ctx context.Context, channel, event string, data any) error
	Subscribe(ctx context.Context, channel string, onMsg func(Envelope)) error
	Close() error
}

type eventBus struct {
	log *logger.Logger
	rdb *goredis.Client
}

// NewEventBus connects to addr and pings it once before returning.
func NewEventBus(addr string, log *logger.Logger) (EventBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &eventBus{
		log: log.With("client", "RedisEventBus"),
		rdb: rdb,
	}, nil
}

func (b *eventBus) Publish(ctx context.Context, channel, event string, data any) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	raw, err := json.Marshal(Envelope{Event: event, Data: body, At: time.Now().UTC()})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel, raw).Err()
}

// Subscribe delivers messages on a background goroutine until ctx is done.
func (b *eventBus) Subscribe(ctx context.Context, channel string, onMsg func(Envelope)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis event bus not initialized")
	}
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := b.rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var env Envelope
				if err := json.Unmarshal([]byte(m.Payload), &env); err != nil {
					b.log.Warn("bad event bus payload", "channel", channel, "error", err)
					continue
				}
				onMsg(env)
			}
		}
	}()
	return nil
}

func (b *eventBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
