package async

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/joseph-ayodele/exposure-tracker/internal/common"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func waitFor(t *testing.T, q *WorkerQueue, id uuid.UUID, want State) Status {
	t.Helper()
	var st Status
	require.Eventually(t, func() bool {
		var ok bool
		st, ok = q.Status(id)
		return ok && st.State == want
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func TestWorkerQueue_RunsJobs(t *testing.T) {
	var ran atomic.Int32
	tenant := uuid.New()
	q := NewWorkerQueue(func(ctx context.Context, job Job) (any, error) {
		ran.Add(1)
		got, ok := common.TenantIDFromContext(ctx)
		if !ok || got != tenant {
			return nil, errors.New("tenant missing from context")
		}
		return job.Payload + "!", nil
	}, quietLogger(), WithWorkers(3), WithQueueSize(4))

	var ids []uuid.UUID
	for i := 0; i < 10; i++ {
		id, err := q.Enqueue(context.Background(), Job{Kind: "test", TenantID: tenant, Payload: "p"})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	for _, id := range ids {
		st := waitFor(t, q, id, StateDone)
		assert.Equal(t, "p!", st.Result)
	}
	q.Shutdown(context.Background())
	assert.Equal(t, int32(10), ran.Load())
}

func TestWorkerQueue_FailureAndPanic(t *testing.T) {
	q := NewWorkerQueue(func(ctx context.Context, job Job) (any, error) {
		if job.Payload == "panic" {
			panic("boom")
		}
		return nil, errors.New("bad report")
	}, quietLogger(), WithWorkers(1))
	defer q.Shutdown(context.Background())

	id, err := q.Enqueue(context.Background(), Job{Kind: "test"})
	require.NoError(t, err)
	st := waitFor(t, q, id, StateFailed)
	assert.Equal(t, "bad report", st.Error)

	id, err = q.Enqueue(context.Background(), Job{Kind: "test", Payload: "panic"})
	require.NoError(t, err)
	st = waitFor(t, q, id, StateFailed)
	assert.Contains(t, st.Error, "panicked")
}

func TestWorkerQueue_Timeout(t *testing.T) {
	q := NewWorkerQueue(func(ctx context.Context, job Job) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, quietLogger(), WithWorkers(1), WithJobTimeout(20*time.Millisecond))
	defer q.Shutdown(context.Background())

	id, err := q.Enqueue(context.Background(), Job{Kind: "slow"})
	require.NoError(t, err)
	st := waitFor(t, q, id, StateFailed)
	assert.Contains(t, st.Error, "deadline")
}

func TestWorkerQueue_BackpressureRespectsContext(t *testing.T) {
	release := make(chan struct{})
	q := NewWorkerQueue(func(ctx context.Context, job Job) (any, error) {
		<-release
		return nil, nil
	}, quietLogger(), WithWorkers(1), WithQueueSize(1))

	// one running, one buffered
	_, err := q.Enqueue(context.Background(), Job{Kind: "a"})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(q.ch) == 0 }, time.Second, time.Millisecond)
	_, err = q.Enqueue(context.Background(), Job{Kind: "b"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = q.Enqueue(ctx, Job{Kind: "c"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	q.Shutdown(context.Background())
}

func TestWorkerQueue_ClosedAfterShutdown(t *testing.T) {
	q := NewWorkerQueue(func(ctx context.Context, job Job) (any, error) { return nil, nil }, quietLogger())
	q.Shutdown(context.Background())
	q.Shutdown(context.Background())

	_, err := q.Enqueue(context.Background(), Job{Kind: "late"})
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, err, common.ErrUnavailable)

	_, ok := q.Status(uuid.New())
	assert.False(t, ok)
}

func TestWorkerQueue_ShutdownReleasesBlockedEnqueue(t *testing.T) {
	release := make(chan struct{})
	q := NewWorkerQueue(func(ctx context.Context, job Job) (any, error) {
		<-release
		return nil, nil
	}, quietLogger(), WithWorkers(1), WithQueueSize(1))

	running, err := q.Enqueue(context.Background(), Job{Kind: "a"})
	require.NoError(t, err)
	waitFor(t, q, running, StateRunning)
	_, err = q.Enqueue(context.Background(), Job{Kind: "b"})
	require.NoError(t, err)

	blocked := Job{ID: uuid.New(), Kind: "c"}
	errc := make(chan error, 1)
	go func() {
		_, err := q.Enqueue(context.Background(), blocked)
		errc <- err
	}()
	require.Eventually(t, func() bool {
		_, ok := q.Status(blocked.ID)
		return ok
	}, time.Second, time.Millisecond)

	shutdown := make(chan struct{})
	go func() {
		defer close(shutdown)
		q.Shutdown(context.Background())
	}()

	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue stayed blocked after shutdown")
	}
	_, ok := q.Status(blocked.ID)
	assert.False(t, ok)

	close(release)
	<-shutdown
}
