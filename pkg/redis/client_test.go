package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestIdempotencyKeyNamespacing(t *testing.T) {
	client := &Client{}
	got := client.IdempotencyKey("purchases", "abc")
	if got != "sf:idempotency:purchases:abc" {
		t.Fatalf("unexpected key %s", got)
	}
	if counter := client.CounterKey("events"); counter != "sf:counter:events" {
		t.Fatalf("unexpected counter key %s", counter)
	}
}

func TestSetNXFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.IdempotencyKey("sales", "key-1")
	ok, err := client.SetNX(ctx, key, "pending", time.Minute)
	if err != nil || !ok {
		t.Fatalf("first SetNX should win: ok=%v err=%v", ok, err)
	}
	ok, err = client.SetNX(ctx, key, "pending", time.Minute)
	if err != nil || ok {
		t.Fatalf("second SetNX should lose: ok=%v err=%v", ok, err)
	}

	val, err := client.Get(ctx, key)
	if err != nil || val != "pending" {
		t.Fatalf("unexpected stored value %q err=%v", val, err)
	}
}

func TestGetMissingKeyIsNil(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	_, err := client.Get(ctx, "sf:idempotency:absent")
	if !IsNil(err) {
		t.Fatalf("expected redis.Nil, got %v", err)
	}
}

func TestDelRemovesKeys(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	if err := client.Set(ctx, "sf:counter:x", "1", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := client.Del(ctx, "sf:counter:x"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := client.Get(ctx, "sf:counter:x"); !IsNil(err) {
		t.Fatalf("expected key gone, got %v", err)
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
