package scheduler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithQueueSize sets the capacity of the loop's task queue. Default 256.
func WithQueueSize(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.queueSize = n
		}
	}
}

// WithLogger sets the logger used to report recovered task panics.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = logger
	}
}

// Loop is a Scheduler backed by real timers and a single goroutine that
// runs every task. Timer callbacks only post into the loop's queue, so
// scheduled tasks never run concurrently with work submitted via Post or
// Do.
//
// Hosts that share a manager with a Loop must make all of their own calls
// through Do or Post. Do called from a task already running on the loop
// runs its function inline.
type Loop struct {
	queueSize int
	logger    *slog.Logger

	// owner is the loop goroutine's ID while it runs, zero otherwise.
	owner atomic.Uint64

	mu      sync.Mutex
	queue   chan func()
	seq     uint64
	timers  map[uint64]*time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	started bool
}

var _ Scheduler = (*Loop)(nil)

// NewLoop creates a Loop. Call Start before posting work.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		queueSize: 256,
		logger:    slog.Default(),
		timers:    make(map[uint64]*time.Timer),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the loop goroutine. It stops when ctx is cancelled or
// Stop is called.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return ErrAlreadyStarted
	}
	l.started = true
	l.queue = make(chan func(), l.queueSize)
	l.ctx, l.cancel = context.WithCancel(ctx)
	l.stopped = make(chan struct{})
	go l.run()
	return nil
}

func (l *Loop) run() {
	defer close(l.stopped)
	l.owner.Store(goroutineID())
	defer l.owner.Store(0)
	for {
		select {
		case <-l.ctx.Done():
			return
		case fn := <-l.queue:
			l.safeRun(fn)
		}
	}
}

func (l *Loop) safeRun(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("scheduler task panicked", slog.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

// Stop cancels pending timers, stops the loop and waits for the task in
// progress to finish. Queued tasks that have not started are dropped.
func (l *Loop) Stop() error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return ErrNotStarted
	}
	for id, t := range l.timers {
		t.Stop()
		delete(l.timers, id)
	}
	cancel, stopped := l.cancel, l.stopped
	l.mu.Unlock()

	cancel()
	<-stopped
	return nil
}

// Post queues fn to run on the loop goroutine and returns immediately.
func (l *Loop) Post(fn func()) error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return ErrNotStarted
	}
	ctx, queue := l.ctx, l.queue
	l.mu.Unlock()

	if ctx.Err() != nil {
		return ErrStopped
	}
	select {
	case <-ctx.Done():
		return ErrStopped
	case queue <- fn:
		return nil
	}
}

// Do runs fn on the loop goroutine and waits for it to return. Called
// from the loop goroutine itself, it runs fn immediately.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.onLoop() {
		fn()
		return nil
	}

	done := make(chan struct{})
	if err := l.Post(func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}

	l.mu.Lock()
	loopCtx := l.ctx
	l.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-loopCtx.Done():
		return ErrStopped
	}
}

// Schedule implements Scheduler. When the delay elapses task is posted to
// the loop. Tasks whose timers fire after Stop are dropped.
func (l *Loop) Schedule(delay time.Duration, task func()) TaskID {
	id := newTaskID()

	l.mu.Lock()
	defer l.mu.Unlock()
	key := l.seq
	l.seq++
	l.timers[key] = time.AfterFunc(delay, func() {
		l.mu.Lock()
		_, live := l.timers[key]
		delete(l.timers, key)
		l.mu.Unlock()
		if !live {
			return
		}
		if err := l.Post(task); err != nil {
			l.logger.Debug("scheduled task dropped",
				slog.String("task_id", string(id)),
				slog.String("error", err.Error()))
		}
	})
	return id
}

// Pending returns the number of timers that have not fired yet.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

func (l *Loop) onLoop() bool {
	owner := l.owner.Load()
	return owner != 0 && owner == goroutineID()
}

// goroutineID reads the calling goroutine's ID from its stack header,
// which starts with "goroutine N [".
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}
