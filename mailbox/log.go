package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// HistoryLog is the append-only backend behind a Mailbox. The mailbox calls
// Append from one goroutine at a time, in admission order.
type HistoryLog[Req, Resp any] interface {
	Append(ctx context.Context, e Entry[Req, Resp]) error
	Entries(ctx context.Context) ([]Entry[Req, Resp], error)
}

// MemoryLog keeps the history in process memory
type MemoryLog[Req, Resp any] struct {
	mu      sync.RWMutex
	entries []Entry[Req, Resp]
}

// NewMemoryLog creates an empty in-memory log
func NewMemoryLog[Req, Resp any]() *MemoryLog[Req, Resp] {
	return &MemoryLog[Req, Resp]{}
}

func (l *MemoryLog[Req, Resp]) Append(ctx context.Context, e Entry[Req, Resp]) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

// Entries returns a copy of the log
func (l *MemoryLog[Req, Resp]) Entries(ctx context.Context) ([]Entry[Req, Resp], error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Entry[Req, Resp](nil), l.entries...), nil
}

// RedisClient defines the Redis operations used by RedisLog.
// *redis.Client satisfies it; tests substitute a fake.
type RedisClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
}

var _ RedisClient = (*redis.Client)(nil)

// RedisLog stores the history as a Redis list of JSON documents, one per entry.
// Request and response types must be JSON-serializable.
type RedisLog[Req, Resp any] struct {
	client RedisClient
	key    string
}

// NewRedisLog creates a log backed by the list at key
func NewRedisLog[Req, Resp any](client RedisClient, key string) *RedisLog[Req, Resp] {
	return &RedisLog[Req, Resp]{
		client: client,
		key:    key,
	}
}

func (l *RedisLog[Req, Resp]) Append(ctx context.Context, e Entry[Req, Resp]) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal history entry: %w", err)
	}

	if err := l.client.RPush(ctx, l.key, data).Err(); err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

func (l *RedisLog[Req, Resp]) Entries(ctx context.Context) ([]Entry[Req, Resp], error) {
	raw, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	entries := make([]Entry[Req, Resp], 0, len(raw))
	for _, item := range raw {
		var e Entry[Req, Resp]
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
