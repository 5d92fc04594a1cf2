package remote

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbindex/internal/core/domain"
)

// fakeClient embeds each text as [len(text), first byte] and records calls.
type fakeClient struct {
	mu       sync.Mutex
	calls    [][]string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	delay    time.Duration
	failOn   string
	short    bool
	closed   bool
	pingErr  error
}

func (f *fakeClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, texts)
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		if f.failOn != "" && t == f.failOn {
			return nil, errors.New("400 bad request: input rejected")
		}
		out = append(out, []float32{float32(len(t)), float32(t[0])})
	}
	if f.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeClient) Ping(context.Context) error { return f.pingErr }

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func texts(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strings.Repeat("x", i+1)
	}
	return out
}

func TestNew_Defaults(t *testing.T) {
	p := New(&fakeClient{}, Config{Model: "m"})
	assert.Equal(t, domain.DefaultBatchSize, p.batch)
	assert.Equal(t, domain.DefaultConcurrency, p.workers)
	assert.Nil(t, p.limiter)
	assert.Equal(t, 0, p.Dimensions())
	assert.Equal(t, "m", p.ModelName())
}

func TestProvider_Embed(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		client := &fakeClient{}
		got, err := New(client, Config{}).Embed(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, client.calls)
	})

	t.Run("splits into batches and keeps order", func(t *testing.T) {
		client := &fakeClient{}
		p := New(client, Config{Model: "m", BatchSize: 3})
		in := texts(7)

		got, err := p.Embed(context.Background(), in)
		require.NoError(t, err)
		require.Len(t, got, 7)
		for i, v := range got {
			assert.Equal(t, float32(i+1), v[0])
		}
		assert.Len(t, client.calls, 3)
		assert.Equal(t, 2, p.Dimensions())
	})

	t.Run("concurrent batches keep positional order", func(t *testing.T) {
		client := &fakeClient{delay: 20 * time.Millisecond}
		p := New(client, Config{BatchSize: 2, Concurrency: 4})
		in := texts(16)

		got, err := p.Embed(context.Background(), in)
		require.NoError(t, err)
		for i, v := range got {
			assert.Equal(t, float32(i+1), v[0])
		}
		assert.LessOrEqual(t, client.maxSeen.Load(), int32(4))
		assert.Greater(t, client.maxSeen.Load(), int32(1))
	})

	t.Run("concurrency one is sequential", func(t *testing.T) {
		client := &fakeClient{delay: 5 * time.Millisecond}
		_, err := New(client, Config{BatchSize: 1, Concurrency: 1}).Embed(context.Background(), texts(5))
		require.NoError(t, err)
		assert.Equal(t, int32(1), client.maxSeen.Load())
	})

	t.Run("batch failure fails the call", func(t *testing.T) {
		client := &fakeClient{failOn: "xxx"}
		_, err := New(client, Config{BatchSize: 2}).Embed(context.Background(), texts(6))
		assert.ErrorIs(t, err, domain.ErrProvider)
		assert.Contains(t, err.Error(), "input rejected")
	})

	t.Run("count mismatch", func(t *testing.T) {
		client := &fakeClient{short: true}
		_, err := New(client, Config{BatchSize: 10}).Embed(context.Background(), texts(3))
		assert.ErrorIs(t, err, domain.ErrProvider)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		client := &fakeClient{delay: time.Second}
		_, err := New(client, Config{}).Embed(ctx, texts(2))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("rate limited", func(t *testing.T) {
		client := &fakeClient{}
		p := New(client, Config{BatchSize: 1, RequestsPerSecond: 20})
		require.NotNil(t, p.limiter)

		start := time.Now()
		_, err := p.Embed(context.Background(), texts(5))
		require.NoError(t, err)
		// burst of 20 covers all five requests
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestProvider_PingClose(t *testing.T) {
	client := &fakeClient{pingErr: errors.New("401 unauthorized")}
	p := New(client, Config{Dimensions: 1536})

	assert.Equal(t, 1536, p.Dimensions())
	assert.EqualError(t, p.Ping(context.Background()), "401 unauthorized")
	require.NoError(t, p.Close())
	assert.True(t, client.closed)
}
