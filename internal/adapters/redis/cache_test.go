package redisad_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	redisad "feedback_board/internal/adapters/redis"
)

func TestCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	type payload struct {
		Comments []map[string]any
	}
	in := payload{Comments: []map[string]any{{"id": "c1", "rating": 5.0}}}

	if err := c.Set(ctx, "feedback:board:rows:v1", in, 60); err != nil {
		t.Fatalf("set: %v", err)
	}

	var out payload
	ok, err := c.Get(ctx, "feedback:board:rows:v1", &out)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(out.Comments) != 1 || out.Comments[0]["id"] != "c1" {
		t.Fatalf("unexpected value: %+v", out)
	}

	if err := c.Del(ctx, "feedback:board:rows:v1"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if ok, _ := c.Get(ctx, "feedback:board:rows:v1", &out); ok {
		t.Fatalf("expected miss after delete")
	}
}

func TestCache_MissIsNotAnError(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)

	var out map[string]any
	ok, err := c.Get(context.Background(), "absent", &out)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ok {
		t.Fatalf("expected miss")
	}
}

func TestCache_TTLExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	c := redisad.New(mr.Addr(), "", 0)
	ctx := context.Background()

	if err := c.Set(ctx, "k", map[string]any{"v": 1.0}, 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	mr.FastForward(31 * time.Second)

	var out map[string]any
	if ok, _ := c.Get(ctx, "k", &out); ok {
		t.Fatalf("expected miss after TTL")
	}
}
