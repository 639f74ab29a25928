package outbox

import (
	"context"
	"encoding/json"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(rdb, "s1"), mr
}

func mustCommand(t *testing.T, kind string, v any) Command {
	t.Helper()
	c, err := NewCommand(NewID(), kind, v)
	if err != nil {
		t.Fatalf("NewCommand: %v", err)
	}
	return c
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	lineup := mustCommand(t, "SET_LINEUP", map[string]any{"type": "SET_LINEUP"})
	ab1 := mustCommand(t, "AB", map[string]any{"type": "AB", "result": "1B"})
	ab2 := mustCommand(t, "AB", map[string]any{"type": "AB", "result": "HR"})
	for _, c := range []Command{lineup, ab1, ab2} {
		if err := s.Push(ctx, c); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}

	got, err := s.Ack(ctx, "AB")
	if err != nil || got == nil {
		t.Fatalf("Ack AB: %v %v", got, err)
	}
	if got.ID != ab1.ID {
		t.Fatalf("acked %s, want oldest AB %s", got.ID, ab1.ID)
	}

	pending, _ := s.Pending(ctx)
	if len(pending) != 2 || pending[0].ID != lineup.ID || pending[1].ID != ab2.ID {
		t.Fatalf("pending order wrong: %+v", pending)
	}
	var payload map[string]any
	if err := json.Unmarshal(pending[1].Payload, &payload); err != nil || payload["result"] != "HR" {
		t.Fatalf("payload not preserved: %s", pending[1].Payload)
	}

	if got, _ := s.Ack(ctx, "RESET"); got != nil {
		t.Fatalf("unexpected ack %+v", got)
	}
	if got, _ := s.Ack(ctx, ""); got == nil || got.ID != lineup.ID {
		t.Fatalf("Ack any = %+v", got)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if pending, _ := s.Pending(ctx); len(pending) != 0 {
		t.Fatalf("pending after clear: %d", len(pending))
	}
	if got, _ := s.Ack(ctx, ""); got != nil {
		t.Fatalf("ack on empty store: %+v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	s, _ := newRedisStore(t)
	exerciseStore(t, s)
}

func TestRedisStoreTTL(t *testing.T) {
	s, mr := newRedisStore(t)
	if err := s.Push(context.Background(), mustCommand(t, "AB", map[string]string{"type": "AB"})); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if ttl := mr.TTL("outbox:s1"); ttl != ttlOutbox {
		t.Fatalf("ttl = %v", ttl)
	}
}

func TestEmptyTypeRejected(t *testing.T) {
	if _, err := NewCommand(NewID(), " ", nil); err != ErrEmptyType {
		t.Fatalf("err = %v", err)
	}
	if err := NewMemoryStore().Push(context.Background(), Command{}); err != ErrEmptyType {
		t.Fatalf("err = %v", err)
	}
}

func TestNewIDUnique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == "" || a == b {
		t.Fatalf("ids not unique: %q %q", a, b)
	}
}
