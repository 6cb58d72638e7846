package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

const testRedisAddr = "localhost:6379"

// openTestRedis connects to a local Redis and skips the test when none is
// reachable. Keys are cleaned up afterwards.
func openTestRedis(t *testing.T, retention int) *Redis {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}

	t.Cleanup(func() {
		var cursor uint64
		for {
			keys, next, err := client.Scan(ctx, cursor, "parley:*", 100).Result()
			if err != nil {
				break
			}
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
		_ = client.Close()
	})

	return NewRedisWithClient(client, retention)
}

func TestRedisAppendAndHistory(t *testing.T) {
	ctx := context.Background()
	r := openTestRedis(t, 10)
	room := fmt.Sprintf("test-room-%d", time.Now().UnixNano())

	for _, text := range []string{"one", "two", "three"} {
		if err := r.AppendRoom(ctx, room, Message{Username: "alice", Text: text}); err != nil {
			t.Fatalf("AppendRoom failed: %v", err)
		}
	}

	history, err := r.RoomHistory(ctx, room, 0)
	if err != nil {
		t.Fatalf("RoomHistory failed: %v", err)
	}
	if len(history) != 3 || history[0].Text != "one" {
		t.Errorf("Expected append order [one two three], got %v", history)
	}

	newest, err := r.RoomHistory(ctx, room, 2)
	if err != nil {
		t.Fatalf("RoomHistory with limit failed: %v", err)
	}
	if len(newest) != 2 || newest[0].Text != "two" {
		t.Errorf("Expected newest two messages, got %v", newest)
	}

	rooms, err := r.Rooms(ctx)
	if err != nil {
		t.Fatalf("Rooms failed: %v", err)
	}
	found := false
	for _, name := range rooms {
		if name == room {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected %q in room listing, got %v", room, rooms)
	}
}

func TestRedisRetention(t *testing.T) {
	ctx := context.Background()
	r := openTestRedis(t, 3)
	room := fmt.Sprintf("test-retention-%d", time.Now().UnixNano())

	for _, text := range []string{"a", "b", "c", "d", "e"} {
		if err := r.AppendRoom(ctx, room, Message{Username: "alice", Text: text}); err != nil {
			t.Fatalf("AppendRoom failed: %v", err)
		}
	}

	history, err := r.RoomHistory(ctx, room, 0)
	if err != nil {
		t.Fatalf("RoomHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 retained messages, got %d", len(history))
	}
	if history[0].Text != "c" || history[2].Text != "e" {
		t.Errorf("Expected oldest entries dropped, got %v", history)
	}
}

func TestRedisDMCanonicalization(t *testing.T) {
	ctx := context.Background()
	r := openTestRedis(t, 10)

	if err := r.AppendDM(ctx, "alice", "bob", Message{Username: "alice", Text: "hi"}); err != nil {
		t.Fatalf("AppendDM failed: %v", err)
	}
	if err := r.AppendDM(ctx, "bob", "alice", Message{Username: "bob", Text: "yo"}); err != nil {
		t.Fatalf("AppendDM failed: %v", err)
	}

	history, err := r.DMHistory(ctx, "bob", "alice")
	if err != nil {
		t.Fatalf("DMHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("Expected both directions in one log, got %d messages", len(history))
	}
}
