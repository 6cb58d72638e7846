package store

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/redis/go-redis/v9"
)

const (
	redisRoomsKey   = "parley:rooms"
	redisRoomPrefix = "parley:room:"
	redisDMPrefix   = "parley:dm:"
)

// Redis is the shared Store backend. Logs are Redis lists: RPUSH appends
// and LTRIM enforces retention in the same pipeline, which is exactly the
// append-with-FIFO-cap contract.
type Redis struct {
	client *redis.Client
	cap    int
}

// NewRedis creates a Redis-backed store talking to addr.
func NewRedis(addr string, retention int) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		cap:    retention,
	}
}

// NewRedisWithClient wraps an existing client, mainly for tests.
func NewRedisWithClient(client *redis.Client, retention int) *Redis {
	return &Redis{client: client, cap: retention}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) EnsureRoom(ctx context.Context, room string) error {
	return r.client.SAdd(ctx, redisRoomsKey, room).Err()
}

func (r *Redis) Rooms(ctx context.Context) ([]string, error) {
	names, err := r.client.SMembers(ctx, redisRoomsKey).Result()
	if err != nil {
		return nil, err
	}
	// Set members come back in arbitrary order; sort for a stable listing.
	sort.Strings(names)
	return names, nil
}

func (r *Redis) AppendRoom(ctx context.Context, room string, msg Message) error {
	if err := r.EnsureRoom(ctx, room); err != nil {
		return err
	}
	return r.append(ctx, redisRoomPrefix+room, msg)
}

func (r *Redis) RoomHistory(ctx context.Context, room string, limit int) ([]Message, error) {
	return r.history(ctx, redisRoomPrefix+room, limit)
}

func (r *Redis) AppendDM(ctx context.Context, a, b string, msg Message) error {
	return r.append(ctx, redisDMPrefix+DMKey(a, b), msg)
}

func (r *Redis) DMHistory(ctx context.Context, a, b string) ([]Message, error) {
	return r.history(ctx, redisDMPrefix+DMKey(a, b), 0)
}

func (r *Redis) Close() error { return r.client.Close() }

func (r *Redis) append(ctx context.Context, key string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if r.cap > 0 {
		pipe.LTrim(ctx, key, int64(-r.cap), -1)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *Redis) history(ctx context.Context, key string, limit int) ([]Message, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	raw, err := r.client.LRange(ctx, key, start, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}
