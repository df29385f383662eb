// Package scheduler sequences all state mutation on one logical owner. Commands
// are handled one at a time in submission order. Side effects run as
// background tasks that report back by submitting further commands to the
// tail of the same queue.
package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"walletflow/internal/log"
)

// Handler processes one command on the owner goroutine. It must not block.
type Handler[C any] func(ctx context.Context, cmd C)

// Timer is the subset of *time.Timer the scheduler needs.
type Timer interface {
	Stop() bool
}

// AfterFunc starts a timer that calls f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type slot struct {
	gen   uint64
	timer Timer
}

// Scheduler is a single-owner command queue.
type Scheduler[C any] struct {
	handle    Handler[C]
	logger    *log.Logger
	afterFunc AfterFunc

	mu      sync.Mutex
	queue   []C
	slots   map[string]*slot
	gen     uint64
	stopped bool
	wake    chan struct{}

	tasks    errgroup.Group
	inflight sync.WaitGroup
	baseCtx  context.Context
	cancel   context.CancelFunc
}

type Option[C any] func(*Scheduler[C])

// WithAfterFunc replaces the timer source, used by tests to drive delays by hand.
func WithAfterFunc[C any](fn AfterFunc) Option[C] {
	return func(s *Scheduler[C]) { s.afterFunc = fn }
}

func New[C any](handle Handler[C], logger *log.Logger, opts ...Option[C]) *Scheduler[C] {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler[C]{
		handle:    handle,
		logger:    logger.WithComponent(log.ComponentScheduler),
		afterFunc: realAfterFunc,
		slots:     make(map[string]*slot),
		wake:      make(chan struct{}, 1),
		baseCtx:   ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit appends commands to the tail of the queue. Safe from any goroutine.
func (s *Scheduler[C]) Submit(cmds ...C) {
	if len(cmds) == 0 {
		return
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, cmds...)
	s.mu.Unlock()
	s.signal()
}

func (s *Scheduler[C]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Go runs task in the background. The commands it returns are submitted in
// order once it completes. Tasks are never cancelled individually; they see
// the scheduler context, which is cancelled only by Stop.
func (s *Scheduler[C]) Go(task func(ctx context.Context) []C) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	s.tasks.Go(func() error {
		defer s.inflight.Done()
		s.Submit(task(s.baseCtx)...)
		return nil
	})
}

// After submits cmd once d has elapsed. It cannot be cancelled.
func (s *Scheduler[C]) After(d time.Duration, cmd C) {
	s.afterFunc(d, func() { s.Submit(cmd) })
}

// Slot submits cmd after d under the given name, cancelling whatever was
// pending in that slot. At most one command per slot is ever pending.
func (s *Scheduler[C]) Slot(name string, d time.Duration, cmd C) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.cancelLocked(name)
	s.gen++
	gen := s.gen
	sl := &slot{gen: gen}
	s.slots[name] = sl
	s.mu.Unlock()

	timer := s.afterFunc(d, func() {
		s.mu.Lock()
		current, ok := s.slots[name]
		if !ok || current.gen != gen {
			s.mu.Unlock()
			return
		}
		delete(s.slots, name)
		s.mu.Unlock()
		s.Submit(cmd)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.slots[name]; ok && current == sl {
		sl.timer = timer
		return
	}
	// replaced or cancelled while the timer was being armed
	timer.Stop()
}

// Cancel drops the pending command in the named slot, if any.
func (s *Scheduler[C]) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelLocked(name)
}

func (s *Scheduler[C]) cancelLocked(name string) bool {
	sl, ok := s.slots[name]
	if !ok {
		return false
	}
	delete(s.slots, name)
	if sl.timer != nil {
		sl.timer.Stop()
	}
	s.logger.Debug("Slot cancelled", log.FieldSlot, name)
	return true
}

// Pending reports whether the named slot holds a command.
func (s *Scheduler[C]) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.slots[name]
	return ok
}

func (s *Scheduler[C]) pop() (C, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero C
	if len(s.queue) == 0 {
		return zero, false
	}
	cmd := s.queue[0]
	s.queue[0] = zero
	s.queue = s.queue[1:]
	return cmd, true
}

// RunPending handles every queued command, including the ones submitted while
// handling, and returns how many were processed. It does not wait for tasks.
func (s *Scheduler[C]) RunPending(ctx context.Context) int {
	n := 0
	for ctx.Err() == nil {
		cmd, ok := s.pop()
		if !ok {
			break
		}
		s.handle(ctx, cmd)
		n++
	}
	return n
}

// Drain handles commands until the queue is empty and no background task is
// in flight. Timers are not waited for.
func (s *Scheduler[C]) Drain(ctx context.Context) error {
	for {
		s.RunPending(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		done := make(chan struct{})
		go func() {
			s.inflight.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		s.mu.Lock()
		empty := len(s.queue) == 0
		s.mu.Unlock()
		if empty {
			return nil
		}
	}
}

// Run is the owner loop. It returns when ctx is cancelled or Stop is called,
// after background tasks have finished.
func (s *Scheduler[C]) Run(ctx context.Context) error {
	s.logger.Info("Scheduler started")
	defer s.logger.Info("Scheduler stopped")
	for {
		s.RunPending(ctx)
		select {
		case <-ctx.Done():
			s.Stop()
			return nil
		case <-s.baseCtx.Done():
			return s.tasks.Wait()
		case <-s.wake:
		}
	}
}

// Stop rejects further submissions, cancels every slot and the task context,
// and waits for running tasks.
func (s *Scheduler[C]) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for name := range s.slots {
		s.cancelLocked(name)
	}
	s.mu.Unlock()
	s.cancel()
	_ = s.tasks.Wait()
}

// Stopped reports whether Stop has been called.
func (s *Scheduler[C]) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
