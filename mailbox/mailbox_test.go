package mailbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_RecordsEntry(t *testing.T) {
	mb := New(func(ctx context.Context, req string) (int, error) {
		return len(req), nil
	})

	resp, err := mb.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 5, resp)

	history, err := mb.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, uint64(1), history[0].Seq)
	assert.Equal(t, "hello", history[0].Request)
	assert.Equal(t, 5, history[0].Response)
	assert.False(t, history[0].Failed())
	assert.Equal(t, uint64(1), mb.Len())
}

func TestSubmit_HistoryFollowsAdmissionOrder(t *testing.T) {
	const k = 10

	// Earlier submissions sleep longer, so they finish last
	mb := New(func(ctx context.Context, req int) (int, error) {
		time.Sleep(time.Duration(k-req) * 5 * time.Millisecond)
		return req * 2, nil
	})

	tickets := make([]*Ticket[int], k)
	for i := 0; i < k; i++ {
		tickets[i] = mb.SubmitAsync(context.Background(), i)
	}

	for i, ticket := range tickets {
		resp, err := ticket.Wait()
		require.NoError(t, err)
		assert.Equal(t, i*2, resp)
		assert.Equal(t, uint64(i+1), ticket.Seq())
	}

	history, err := mb.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, k)
	for i, entry := range history {
		assert.Equal(t, uint64(i+1), entry.Seq)
		assert.Equal(t, i, entry.Request)
	}
}

func TestSubmit_ConcurrentCallers(t *testing.T) {
	const k = 50

	mb := New(func(ctx context.Context, req int) (int, error) {
		return req, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := mb.Submit(context.Background(), i)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := mb.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, k)

	seen := make(map[int]bool)
	for i, entry := range history {
		assert.Equal(t, uint64(i+1), entry.Seq)
		seen[entry.Request] = true
	}
	assert.Len(t, seen, k)
}

func TestSubmit_FailuresAreRecorded(t *testing.T) {
	mb := New(func(ctx context.Context, req string) (string, error) {
		if req == "bad" {
			return "", errors.New("rejected")
		}
		return req, nil
	})

	_, err := mb.Submit(context.Background(), "good")
	require.NoError(t, err)
	_, err = mb.Submit(context.Background(), "bad")
	require.EqualError(t, err, "rejected")

	history, _ := mb.History(context.Background())
	require.Len(t, history, 2)
	assert.False(t, history[0].Failed())
	assert.True(t, history[1].Failed())
	assert.Equal(t, "rejected", history[1].Error)
}

func TestSubmit_PanicDoesNotStallLaterRequests(t *testing.T) {
	mb := New(func(ctx context.Context, req string) (string, error) {
		if req == "boom" {
			panic("exploded")
		}
		return req, nil
	})

	first := mb.SubmitAsync(context.Background(), "boom")
	second := mb.SubmitAsync(context.Background(), "ok")

	_, err := first.Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exploded")

	resp, err := second.Wait()
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	history, _ := mb.History(context.Background())
	require.Len(t, history, 2)
	assert.True(t, history[0].Failed())
}

func TestSubmit_AppendFailure(t *testing.T) {
	log := &failingLog{err: errors.New("disk full")}
	mb := New(func(ctx context.Context, req string) (string, error) {
		return req, nil
	}, WithLog[string, string](log))

	_, err := mb.Submit(context.Background(), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, log.err)

	// A processor error takes precedence over the append error
	mb = New(func(ctx context.Context, req string) (string, error) {
		return "", errors.New("processor failed")
	}, WithLog[string, string](log))

	_, err = mb.Submit(context.Background(), "x")
	require.EqualError(t, err, "processor failed")
}

func TestSubmit_CancelledContextStillCommits(t *testing.T) {
	mb := New(func(ctx context.Context, req string) (string, error) {
		return req, ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mb.Submit(ctx, "late")
	assert.ErrorIs(t, err, context.Canceled)

	history, _ := mb.History(context.Background())
	require.Len(t, history, 1)
	assert.True(t, history[0].Failed())
}

func TestSubmit_Timestamps(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	mb := New(func(ctx context.Context, req string) (string, error) {
		return req, nil
	}, WithClock[string, string](clock))

	_, err := mb.Submit(context.Background(), "x")
	require.NoError(t, err)

	history, _ := mb.History(context.Background())
	require.Len(t, history, 1)
	assert.Equal(t, base.Add(time.Second), history[0].SubmittedAt)
	assert.Equal(t, base.Add(2*time.Second), history[0].CompletedAt)
}

func TestSubmitAsync_SubmittedAtFollowsAdmission(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := 0
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	mb := New(func(ctx context.Context, n int) (int, error) {
		time.Sleep(time.Duration(n%5) * time.Millisecond)
		return n, nil
	}, WithClock[int, int](clock))

	const total = 200
	tickets := make([]*Ticket[int], total)
	for i := range tickets {
		tickets[i] = mb.SubmitAsync(context.Background(), total-i)
	}
	for _, tk := range tickets {
		_, err := tk.Wait()
		require.NoError(t, err)
	}

	history, err := mb.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, total)
	for i := 1; i < total; i++ {
		assert.Less(t, history[i-1].Seq, history[i].Seq)
		assert.False(t, history[i].SubmittedAt.Before(history[i-1].SubmittedAt),
			"entry %d submitted before entry %d", history[i].Seq, history[i-1].Seq)
	}
}

func TestTicket_Done(t *testing.T) {
	release := make(chan struct{})
	mb := New(func(ctx context.Context, req string) (string, error) {
		<-release
		return req, nil
	})

	ticket := mb.SubmitAsync(context.Background(), "x")
	select {
	case <-ticket.Done():
		t.Fatal("ticket resolved before processing finished")
	default:
	}

	close(release)
	select {
	case <-ticket.Done():
	case <-time.After(time.Second):
		t.Fatal("ticket did not resolve")
	}
}

func TestHistory_IsACopy(t *testing.T) {
	mb := New(func(ctx context.Context, req string) (string, error) {
		return req, nil
	})
	for i := 0; i < 3; i++ {
		_, _ = mb.Submit(context.Background(), fmt.Sprintf("r%d", i))
	}

	history, _ := mb.History(context.Background())
	history[0].Request = "changed"

	again, _ := mb.History(context.Background())
	assert.Equal(t, "r0", again[0].Request)
}

type failingLog struct {
	err error
}

func (l *failingLog) Append(ctx context.Context, e Entry[string, string]) error {
	return l.err
}

func (l *failingLog) Entries(ctx context.Context) ([]Entry[string, string], error) {
	return nil, l.err
}
