package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// PoolConfig configures the session pool.
type PoolConfig struct {
	// MaxSessions is the hard concurrency ceiling.
	MaxSessions int

	// AcquireTimeout bounds how long Acquire waits for a free slot.
	// Zero means wait until the caller's context is done.
	AcquireTimeout time.Duration

	// SessionTTL force-closes sessions idle past this window. Zero
	// disables the sweep.
	SessionTTL time.Duration

	// SweepInterval is how often the TTL sweep runs.
	SweepInterval time.Duration

	// IdleAfter demotes active sessions to Idle after this much
	// inactivity, for status reporting.
	IdleAfter time.Duration

	// HandleOptions are the default options for new capability handles.
	HandleOptions HandleOptions
}

// PoolStatus is a point-in-time view of the pool, used for readiness
// reporting and metrics.
type PoolStatus struct {
	Active   int `json:"active"`
	Idle     int `json:"idle"`
	Capacity int `json:"capacity"`
}

// Pool creates, tracks and destroys capability handles under a fixed
// concurrency ceiling. Admission is FIFO: a weighted semaphore queues
// waiters in arrival order and cancellation dequeues a waiter without
// consuming a slot.
type Pool struct {
	capability Capability
	cfg        PoolConfig
	sem        *semaphore.Weighted

	mu       sync.Mutex
	sessions map[string]*Session

	stopSweep chan struct{}
	stopOnce  sync.Once
	sweepWG   sync.WaitGroup
}

// NewPool creates a pool over the given capability. Call Close when done
// to stop the TTL sweep and release remaining sessions.
func NewPool(capability Capability, cfg PoolConfig) *Pool {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleAfter <= 0 {
		cfg.IdleAfter = 30 * time.Second
	}

	p := &Pool{
		capability: capability,
		cfg:        cfg,
		sem:        semaphore.NewWeighted(int64(cfg.MaxSessions)),
		sessions:   make(map[string]*Session),
		stopSweep:  make(chan struct{}),
	}

	if cfg.SessionTTL > 0 {
		p.sweepWG.Add(1)
		go p.sweepLoop()
	}

	return p
}

// Acquire blocks until a slot is free, then creates a new session with its
// own isolated capability handle. Waiters are admitted in FIFO order.
//
// A handle construction failure does not consume a slot. Exceeding the
// acquisition timeout returns ErrPoolExhausted; cancellation of the
// caller's context returns the context error.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	return p.acquire(ctx, p.cfg.HandleOptions)
}

// AcquireWithState is Acquire with a storage-state file restored into the
// new context, so a previously saved login can be reused.
func (p *Pool) AcquireWithState(ctx context.Context, storageStatePath string) (*Session, error) {
	opts := p.cfg.HandleOptions
	opts.StorageStatePath = storageStatePath
	return p.acquire(ctx, opts)
}

func (p *Pool) acquire(ctx context.Context, opts HandleOptions) (*Session, error) {
	acquireCtx := ctx
	if p.cfg.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, p.cfg.AcquireTimeout)
		defer cancel()
	}

	if err := p.sem.Acquire(acquireCtx, 1); err != nil {
		if ctx.Err() != nil {
			// The caller went away while queued.
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: no slot within %s", ErrPoolExhausted, p.cfg.AcquireTimeout)
	}

	handle, err := p.capability.NewHandle(ctx, opts)
	if err != nil {
		p.sem.Release(1)
		return nil, fmt.Errorf("failed to create capability handle: %w", err)
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		Handle:    handle,
		CreatedAt: now,
		lastUsed:  now,
		state:     StateActive,
	}

	p.mu.Lock()
	p.sessions[session.ID] = session
	p.mu.Unlock()

	return session, nil
}

// Release closes the session's capability handle and frees its slot. It is
// unconditional and idempotent: callers run it on every exit path, and a
// session already swept by the TTL loop is a no-op.
func (p *Pool) Release(session *Session) {
	if session == nil {
		return
	}
	if !session.beginClose() {
		return
	}

	_ = session.Handle.Close()
	session.markClosed()

	p.mu.Lock()
	delete(p.sessions, session.ID)
	p.mu.Unlock()

	p.sem.Release(1)
}

// Status reports active and idle session counts.
func (p *Pool) Status() PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := PoolStatus{Capacity: p.cfg.MaxSessions}
	for _, s := range p.sessions {
		switch s.State() {
		case StateActive:
			status.Active++
		case StateIdle:
			status.Idle++
		}
	}
	return status
}

// sweepLoop periodically demotes stale sessions to Idle and force-closes
// sessions idle past the TTL, bounding leaked-but-unclosed sessions from
// connectivity bugs.
func (p *Pool) sweepLoop() {
	defer p.sweepWG.Done()

	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Sweep(time.Now())
		case <-p.stopSweep:
			return
		}
	}
}

// Sweep runs one TTL pass at the given instant. Exposed so the sweep is
// testable without waiting on the ticker.
func (p *Pool) Sweep(now time.Time) {
	p.mu.Lock()
	var expired []*Session
	for _, s := range p.sessions {
		s.markIdleIfStale(now, p.cfg.IdleAfter)
		if p.cfg.SessionTTL > 0 && now.Sub(s.LastUsedAt()) > p.cfg.SessionTTL {
			expired = append(expired, s)
		}
	}
	p.mu.Unlock()

	for _, s := range expired {
		p.Release(s)
	}
}

// Close stops the sweep and releases all remaining sessions.
func (p *Pool) Close() error {
	p.stopOnce.Do(func() { close(p.stopSweep) })
	p.sweepWG.Wait()

	p.mu.Lock()
	remaining := make([]*Session, 0, len(p.sessions))
	for _, s := range p.sessions {
		remaining = append(remaining, s)
	}
	p.mu.Unlock()

	var errs []error
	for _, s := range remaining {
		if s.beginClose() {
			if err := s.Handle.Close(); err != nil {
				errs = append(errs, err)
			}
			s.markClosed()
			p.mu.Lock()
			delete(p.sessions, s.ID)
			p.mu.Unlock()
			p.sem.Release(1)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
