// Package events announces finished renders on a Redis pub/sub channel.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "textoverlay/internal/pkg/errors"
)

const (
	TypeCompleted = "render.completed"
	TypeFailed    = "render.failed"
)

// Event is the JSON payload published for each finished render.
type Event struct {
	Type       string    `json:"type"`
	RenderID   string    `json:"renderId"`
	Key        string    `json:"key,omitempty"`
	URL        string    `json:"url,omitempty"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"durationMs"`
	At         time.Time `json:"at"`
}

// Notifier is told about every finished render.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// publisher is the part of *redis.Client used here.
type publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

type RedisNotifier struct {
	rdb     publisher
	channel string
}

func NewRedisNotifier(rdb publisher, channel string) *RedisNotifier {
	if channel == "" {
		channel = "renders"
	}
	return &RedisNotifier{rdb: rdb, channel: channel}
}

// Notify publishes e. Having no subscribers is not an error.
func (n *RedisNotifier) Notify(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return apperrors.Wrap(err, "events.Notify", "encode event")
	}
	if err := n.rdb.Publish(ctx, n.channel, payload).Err(); err != nil {
		return apperrors.WrapWithCode(err, apperrors.CodeUnavailable, "events.Notify", "publish event")
	}
	return nil
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
