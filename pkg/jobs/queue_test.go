package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRoutesByType(t *testing.T) {
	mux := NewMux()
	done := make(chan string, 2)
	mux.Handle(TypeRenderReceipt, func(ctx context.Context, job Job) error {
		done <- "receipt:" + job.ID
		return nil
	})
	mux.Handle(TypeFeeNotice, func(ctx context.Context, job Job) error {
		done <- "notice:" + job.ID
		return nil
	})

	q := NewQueue("ledger", mux.Dispatch, QueueConfig{Workers: 1})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "TXN1", Type: TypeRenderReceipt}))
	require.NoError(t, q.Enqueue(Job{ID: "CS1", Type: TypeFeeNotice}))

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case v := <-done:
			got[v] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.True(t, got["receipt:TXN1"])
	assert.True(t, got["notice:CS1"])
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	var attempts int32
	done := make(chan struct{})
	handler := func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("renderer unavailable")
		}
		close(done)
		return nil
	}

	q := NewQueue("ledger", handler, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "TXN2", Type: TypeRenderReceipt}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not retried")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestMuxUnknownType(t *testing.T) {
	err := NewMux().Dispatch(context.Background(), Job{Type: "unknown"})
	assert.Error(t, err)
}

func TestEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("ledger", NewMux().Dispatch, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
}
