package notifier

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Level classifies a notification for the consuming UI.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier delivers fire-and-forget notifications. Delivery failures must
// never abort the operation that triggered them.
type Notifier interface {
	Notify(level Level, message string)
	Close()
}

type event struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// RedisNotifier publishes notifications on a Redis pub/sub channel through a
// buffered dispatch queue. A full queue drops the event rather than blocking
// the caller.
type RedisNotifier struct {
	client  *redis.Client
	channel string
	jobs    chan event
	done    chan struct{}
	logger  *zap.Logger
}

// NewRedis constructs a RedisNotifier and starts its dispatcher.
func NewRedis(client *redis.Client, channel string, buffer int, logger *zap.Logger) *RedisNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	n := &RedisNotifier{
		client:  client,
		channel: channel,
		jobs:    make(chan event, buffer),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go n.dispatch()
	return n
}

// Notify enqueues a notification without blocking.
func (n *RedisNotifier) Notify(level Level, message string) {
	ev := event{Level: level, Message: message, SentAt: time.Now()}
	select {
	case n.jobs <- ev:
	default:
		n.logger.Warn("notification dropped, queue full", zap.String("message", message))
	}
}

// Close stops the dispatcher after draining queued events.
func (n *RedisNotifier) Close() {
	close(n.jobs)
	<-n.done
}

func (n *RedisNotifier) dispatch() {
	defer close(n.done)
	for ev := range n.jobs {
		payload, err := json.Marshal(ev)
		if err != nil {
			n.logger.Warn("notification marshal failed", zap.Error(err))
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
			n.logger.Warn("notification publish failed",
				zap.String("channel", n.channel),
				zap.Error(err),
			)
		}
		cancel()
	}
}

// Nop is a Notifier that discards everything. Used when notifications are
// disabled or in tests.
type Nop struct{}

func (Nop) Notify(Level, string) {}
func (Nop) Close()               {}
