package browser_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ramosmx/clubpilot/pkg/browser"
	"github.com/ramosmx/clubpilot/pkg/browser/browsertest"
)

func newTestPool(t *testing.T, capability browser.Capability, cfg browser.PoolConfig) *browser.Pool {
	t.Helper()
	pool := browser.NewPool(capability, cfg)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}

func TestPoolCeilingNeverExceeded(t *testing.T) {
	const ceiling = 3
	pool := newTestPool(t, browsertest.NewFakeCapability(), browser.PoolConfig{
		MaxSessions: ceiling,
	})

	var (
		inFlight atomic.Int64
		peak     atomic.Int64
		wg       sync.WaitGroup
	)

	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			session, err := pool.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}

			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inFlight.Add(-1)
			pool.Release(session)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(ceiling))
	assert.Equal(t, 0, pool.Status().Active)
}

func TestPoolFIFOAdmission(t *testing.T) {
	pool := newTestPool(t, browsertest.NewFakeCapability(), browser.PoolConfig{
		MaxSessions: 2,
	})

	first, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	second, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	admitted := make(chan int, 2)
	var wg sync.WaitGroup

	// Third and fourth requests queue in arrival order.
	for _, id := range []int{3, 4} {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			session, err := pool.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire %d: %v", id, err)
				return
			}
			admitted <- id
			pool.Release(session)
		}(id)
		time.Sleep(50 * time.Millisecond) // let the waiter enqueue
	}

	select {
	case id := <-admitted:
		t.Fatalf("request %d admitted before capacity freed", id)
	case <-time.After(50 * time.Millisecond):
	}

	pool.Release(first)
	require.Equal(t, 3, <-admitted, "waiters must be admitted in arrival order")

	pool.Release(second)
	require.Equal(t, 4, <-admitted)
	wg.Wait()
}

func TestPoolReleaseIdempotent(t *testing.T) {
	capability := browsertest.NewFakeCapability()
	pool := newTestPool(t, capability, browser.PoolConfig{MaxSessions: 1})

	session, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	pool.Release(session)
	pool.Release(session)
	pool.Release(session)

	require.Equal(t, browser.StateClosed, session.State())
	require.Equal(t, 1, capability.Handles()[0].CloseCalls(), "handle must be released exactly once")

	// The slot must still be usable: a double release must not have
	// over-credited the semaphore.
	again, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	blockedCtx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(blockedCtx)
	require.Error(t, err, "capacity 1 pool must still admit only one session")
	pool.Release(again)
}

func TestPoolAcquireTimeout(t *testing.T) {
	pool := newTestPool(t, browsertest.NewFakeCapability(), browser.PoolConfig{
		MaxSessions:    1,
		AcquireTimeout: 30 * time.Millisecond,
	})

	session, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	_, err = pool.Acquire(context.Background())
	require.ErrorIs(t, err, browser.ErrPoolExhausted)

	pool.Release(session)
}

func TestPoolAcquireCancelledWhileQueued(t *testing.T) {
	pool := newTestPool(t, browsertest.NewFakeCapability(), browser.PoolConfig{
		MaxSessions: 1,
	})

	session, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := pool.Acquire(ctx)
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	// The cancelled waiter must not have consumed the slot.
	pool.Release(session)
	again, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(again)
}

func TestPoolHandleFailureDoesNotConsumeSlot(t *testing.T) {
	capability := browsertest.NewFakeCapability()
	capability.NewHandleErr = errors.New("engine crashed")
	pool := newTestPool(t, capability, browser.PoolConfig{MaxSessions: 1})

	_, err := pool.Acquire(context.Background())
	require.Error(t, err)

	capability.NewHandleErr = nil
	session, err := pool.Acquire(context.Background())
	require.NoError(t, err, "failed construction must free its slot")
	pool.Release(session)
}

func TestPoolSweepClosesExpiredSessions(t *testing.T) {
	capability := browsertest.NewFakeCapability()
	pool := newTestPool(t, capability, browser.PoolConfig{
		MaxSessions: 2,
		SessionTTL:  time.Minute,
		IdleAfter:   time.Second,
	})

	session, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	// Not yet expired.
	pool.Sweep(time.Now())
	require.Equal(t, browser.StateActive, session.State())

	// Past the idle grace but under the TTL: demoted, still open.
	pool.Sweep(time.Now().Add(30 * time.Second))
	require.Equal(t, browser.StateIdle, session.State())
	require.Equal(t, 1, pool.Status().Idle)

	// Past the TTL: force-closed.
	pool.Sweep(time.Now().Add(2 * time.Minute))
	require.Equal(t, browser.StateClosed, session.State())
	require.True(t, capability.Handles()[0].Closed())
	require.Equal(t, browser.PoolStatus{Capacity: 2}, pool.Status())

	// A late Release of the swept session is a no-op.
	pool.Release(session)
	require.Equal(t, 1, capability.Handles()[0].CloseCalls())

	// The swept slot is available again.
	a, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	b, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(a)
	pool.Release(b)
}

func TestPoolStatusCounts(t *testing.T) {
	pool := newTestPool(t, browsertest.NewFakeCapability(), browser.PoolConfig{
		MaxSessions: 4,
	})

	a, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	b, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	status := pool.Status()
	assert.Equal(t, 2, status.Active)
	assert.Equal(t, 0, status.Idle)
	assert.Equal(t, 4, status.Capacity)

	pool.Release(a)
	pool.Release(b)
	assert.Equal(t, browser.PoolStatus{Capacity: 4}, pool.Status())
}
