package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"

	apperrors "textoverlay/internal/pkg/errors"
)

type fakeRedis struct {
	channel string
	payload []byte
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	return redis.NewIntResult(0, f.err)
}

func TestNotifyPublishesJSON(t *testing.T) {
	rdb := &fakeRedis{}
	n := NewRedisNotifier(rdb, "overlay-events")

	err := n.Notify(context.Background(), Event{
		Type:     TypeCompleted,
		RenderID: "rnd_1",
		Key:      "overlay_rnd_1.mp4",
		URL:      "https://storage.googleapis.com/b/overlay_rnd_1.mp4",
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if rdb.channel != "overlay-events" {
		t.Errorf("channel = %s", rdb.channel)
	}

	var got Event
	if err := json.Unmarshal(rdb.payload, &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if got.Type != TypeCompleted || got.RenderID != "rnd_1" || got.At.IsZero() {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestNotifyDefaultChannel(t *testing.T) {
	rdb := &fakeRedis{}
	_ = NewRedisNotifier(rdb, "").Notify(context.Background(), Event{Type: TypeFailed})
	if rdb.channel != "renders" {
		t.Errorf("channel = %s", rdb.channel)
	}
}

func TestNotifyFailure(t *testing.T) {
	rdb := &fakeRedis{err: errors.New("connection refused")}
	err := NewRedisNotifier(rdb, "c").Notify(context.Background(), Event{Type: TypeFailed})
	if !apperrors.IsCode(err, apperrors.CodeUnavailable) {
		t.Errorf("expected unavailable, got %v", err)
	}
}

func TestNop(t *testing.T) {
	if err := (Nop{}).Notify(context.Background(), Event{}); err != nil {
		t.Errorf("Nop: %v", err)
	}
}
