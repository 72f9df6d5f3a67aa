package mailbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis keeps lists in memory and returns pre-resolved go-redis commands
type fakeRedis struct {
	mu    sync.Mutex
	lists map[string][]string
	err   error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{lists: make(map[string][]string)}
}

func (f *fakeRedis) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, v := range values {
		switch val := v.(type) {
		case []byte:
			f.lists[key] = append(f.lists[key], string(val))
		case string:
			f.lists[key] = append(f.lists[key], val)
		}
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewStringSliceResult(nil, f.err)
	}
	return redis.NewStringSliceResult(append([]string(nil), f.lists[key]...), nil)
}

type payload struct {
	Prompt string `json:"prompt"`
}

func TestMemoryLog(t *testing.T) {
	log := NewMemoryLog[string, string]()
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, Entry[string, string]{Seq: 1, Request: "a"}))
	require.NoError(t, log.Append(ctx, Entry[string, string]{Seq: 2, Request: "b"}))

	entries, err := log.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Request)
	assert.Equal(t, "b", entries[1].Request)
}

func TestRedisLog_RoundTrip(t *testing.T) {
	client := newFakeRedis()
	log := NewRedisLog[payload, payload](client, "taskflow:history")
	ctx := context.Background()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, log.Append(ctx, Entry[payload, payload]{
		Seq:         1,
		Request:     payload{Prompt: "first"},
		Response:    payload{Prompt: "FIRST"},
		SubmittedAt: at,
		CompletedAt: at.Add(time.Second),
	}))
	require.NoError(t, log.Append(ctx, Entry[payload, payload]{
		Seq:     2,
		Request: payload{Prompt: "second"},
		Error:   "failed",
	}))

	assert.Len(t, client.lists["taskflow:history"], 2)

	entries, err := log.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(1), entries[0].Seq)
	assert.Equal(t, "FIRST", entries[0].Response.Prompt)
	assert.True(t, entries[0].SubmittedAt.Equal(at))
	assert.True(t, entries[1].Failed())
}

func TestRedisLog_Errors(t *testing.T) {
	client := newFakeRedis()
	client.err = errors.New("connection refused")
	log := NewRedisLog[string, string](client, "history")

	err := log.Append(context.Background(), Entry[string, string]{Seq: 1})
	assert.ErrorIs(t, err, client.err)

	_, err = log.Entries(context.Background())
	assert.ErrorIs(t, err, client.err)
}

func TestRedisLog_CorruptEntry(t *testing.T) {
	client := newFakeRedis()
	client.lists["history"] = []string{"not json"}
	log := NewRedisLog[string, string](client, "history")

	_, err := log.Entries(context.Background())
	assert.Error(t, err)
}

func TestMailbox_WithRedisLog(t *testing.T) {
	client := newFakeRedis()
	mb := New(func(ctx context.Context, req payload) (payload, error) {
		return payload{Prompt: req.Prompt + "!"}, nil
	}, WithLog[payload, payload](NewRedisLog[payload, payload](client, "history")))

	tickets := []*Ticket[payload]{
		mb.SubmitAsync(context.Background(), payload{Prompt: "a"}),
		mb.SubmitAsync(context.Background(), payload{Prompt: "b"}),
	}
	for _, ticket := range tickets {
		_, err := ticket.Wait()
		require.NoError(t, err)
	}

	history, err := mb.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "a!", history[0].Response.Prompt)
	assert.Equal(t, "b!", history[1].Response.Prompt)
}
