package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRemover struct {
	mu      sync.Mutex
	removed []string
	err     error
}

func (r *recordingRemover) Discard(_ context.Context, names []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.removed = append(r.removed, names...)
	return nil
}

func (r *recordingRemover) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.removed...)
	sort.Strings(out)
	return out
}

func TestJanitor_RemovesQueuedImages(t *testing.T) {
	remover := &recordingRemover{}
	j := NewJanitor(3, remover, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	j.Start(ctx)

	j.EnqueueBatch([]string{"1a.jpg", "2b.jpg", "3c.jpg", "4d.jpg"})

	require.Eventually(t, func() bool {
		return len(remover.snapshot()) == 4
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"1a.jpg", "2b.jpg", "3c.jpg", "4d.jpg"}, remover.snapshot())
}

func TestJanitor_FailuresDoNotStopWorkers(t *testing.T) {
	remover := &recordingRemover{err: errors.New("permission denied")}
	j := NewJanitor(1, remover, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	j.Start(ctx)

	j.Enqueue("1a.jpg")
	time.Sleep(50 * time.Millisecond)

	remover.mu.Lock()
	remover.err = nil
	remover.mu.Unlock()

	j.Enqueue("2b.jpg")
	require.Eventually(t, func() bool {
		return len(remover.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"2b.jpg"}, remover.snapshot())
}

func TestJanitor_EnqueueNeverBlocks(t *testing.T) {
	j := NewJanitor(1, &recordingRemover{}, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < channelBuffer+10; i++ {
			j.Enqueue("same.jpg")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked with no workers running")
	}
}

func TestJanitor_ShardIndexIsStable(t *testing.T) {
	j := NewJanitor(8, &recordingRemover{}, zerolog.Nop())

	for _, name := range []string{"a.jpg", "1700000000000front.jpg", ""} {
		idx := j.shardIndex(name)
		assert.GreaterOrEqual(t, idx, 0)
		assert.Less(t, idx, 8)
		assert.Equal(t, idx, j.shardIndex(name))
	}
}

func TestNewJanitor_DefaultWorkers(t *testing.T) {
	j := NewJanitor(0, &recordingRemover{}, zerolog.Nop())
	assert.Len(t, j.workers, defaultWorkers)
}
