package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/symcached/symcached/pkg/artifact"
	"github.com/symcached/symcached/pkg/symver"
)

type fakeTranscoder struct {
	mu          sync.Mutex
	calls       []artifact.Key
	concurrent  int32
	maxObserved int32
	delay       time.Duration
}

func (f *fakeTranscoder) TryTranscode(ctx context.Context, key artifact.Key) (string, error) {
	cur := atomic.AddInt32(&f.concurrent, 1)
	defer atomic.AddInt32(&f.concurrent, -1)
	for {
		max := atomic.LoadInt32(&f.maxObserved)
		if cur <= max || atomic.CompareAndSwapInt32(&f.maxObserved, max, cur) {
			break
		}
	}

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	return "", nil
}

func (f *fakeTranscoder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func testKey(t *testing.T, age uint32) artifact.Key {
	t.Helper()
	id, err := artifact.ParseID("ABCDEF0123456789ABCDEF0123456789")
	require.NoError(t, err)
	key, err := artifact.NewKey(symver.MustParse("3.1.0"), "a.pdb", id, age)
	require.NoError(t, err)
	return key
}

func TestEnqueueProcessesKey(t *testing.T) {
	transcoder := &fakeTranscoder{}
	q := New(transcoder)
	require.NoError(t, q.Start())
	defer q.Stop()

	q.Enqueue(testKey(t, 1))

	require.Eventually(t, func() bool { return transcoder.callCount() == 1 }, time.Second, 5*time.Millisecond)
}

func TestStartTwiceIsAnError(t *testing.T) {
	q := New(&fakeTranscoder{})
	require.NoError(t, q.Start())
	defer q.Stop()
	assert.Error(t, q.Start())
}

func TestStopIsIdempotent(t *testing.T) {
	q := New(&fakeTranscoder{})
	require.NoError(t, q.Start())
	q.Stop()
	assert.NotPanics(t, func() { q.Stop() })
}

func TestDuplicateEnqueueDeduplicatesAcrossWorkers(t *testing.T) {
	transcoder := &fakeTranscoder{delay: 50 * time.Millisecond}
	q := New(transcoder)
	require.NoError(t, q.Start())
	defer q.Stop()

	key := testKey(t, 1)
	for i := 0; i < 8; i++ {
		q.Enqueue(key)
	}

	require.Eventually(t, func() bool { return transcoder.callCount() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(1), atomic.LoadInt32(&transcoder.maxObserved))
}

func TestDistinctKeysProcessConcurrently(t *testing.T) {
	transcoder := &fakeTranscoder{delay: 100 * time.Millisecond}
	q := New(transcoder)
	require.NoError(t, q.Start())
	defer q.Stop()

	q.Enqueue(testKey(t, 1))
	q.Enqueue(testKey(t, 2))

	require.Eventually(t, func() bool { return transcoder.callCount() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestDepthReflectsFIFOLength(t *testing.T) {
	transcoder := &fakeTranscoder{delay: 200 * time.Millisecond}
	q := New(transcoder)
	// Not started: items accumulate without being drained.
	q.Enqueue(testKey(t, 1))
	q.Enqueue(testKey(t, 2))
	assert.Equal(t, 2, q.Depth())
}
