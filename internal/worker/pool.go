// Package worker runs blocking operations off the caller's goroutine and
// hands back futures. A pool bounds how many operations run at once.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxWorkers is used when NewPool is given a non-positive limit.
const DefaultMaxWorkers = 3

// ErrPoolClosed is returned by futures submitted after Close.
var ErrPoolClosed = errors.New("worker pool is closed")

// Pool bounds concurrent operations with a weighted semaphore.
type Pool struct {
	sem    *semaphore.Weighted
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPool creates a pool running at most maxWorkers operations at once.
func NewPool(maxWorkers int, logger zerolog.Logger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = DefaultMaxWorkers
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		sem:    semaphore.NewWeighted(int64(maxWorkers)),
		ctx:    ctx,
		cancel: cancel,
		log:    logger.With().Str("module", "worker").Logger(),
	}
}

// Close stops accepting work, cancels operations still waiting for a slot
// and waits for running ones to finish. Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

// Future is the eventual result of a submitted operation.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

func (f *Future[T]) resolve(value T, err error) {
	f.value = value
	f.err = err
	close(f.done)
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the operation finishes and returns its outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Wait is Result bounded by ctx. The operation keeps running if ctx ends first.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit runs fn on the pool. fn gets ctx, which is also cancelled when the
// pool closes.
func Submit[T any](p *Pool, ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	f := newFuture[T]()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		var zero T
		f.resolve(zero, ErrPoolClosed)
		return f
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()

		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stop := context.AfterFunc(p.ctx, cancel)
		defer stop()

		if err := p.sem.Acquire(runCtx, 1); err != nil {
			var zero T
			f.resolve(zero, fmt.Errorf("failed to get a worker: %w", err))
			return
		}
		defer p.sem.Release(1)

		f.resolve(run(p, runCtx, fn))
	}()

	return f
}

// run calls fn and turns a panic into an error so one bad operation
// cannot take the process down.
func run[T any](p *Pool, ctx context.Context, fn func(ctx context.Context) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Interface("panic", r).Msg("Operation panicked")
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return fn(ctx)
}
