package scheduler

import (
	"sort"
	"sync"
	"time"
)

type manualTask struct {
	id   TaskID
	due  time.Time
	seq  uint64
	task func()
}

// Manual is a Scheduler driven by a virtual clock. Tasks run only when
// the clock is moved with Advance or RunAll, on the caller's goroutine.
// Tasks due at the same instant run in the order they were scheduled.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	queue []manualTask
}

var _ Scheduler = (*Manual)(nil)

// NewManual creates a Manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Schedule implements Scheduler. A non-positive delay makes the task due
// at the current virtual time; it still waits for Advance.
func (m *Manual) Schedule(delay time.Duration, task func()) TaskID {
	m.mu.Lock()
	defer m.mu.Unlock()

	if delay < 0 {
		delay = 0
	}
	id := newTaskID()
	m.queue = append(m.queue, manualTask{
		id:   id,
		due:  m.now.Add(delay),
		seq:  m.seq,
		task: task,
	})
	m.seq++
	return id
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of tasks not yet run.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Advance moves the clock forward by d, running every task that falls due
// on the way in due-time order. Tasks scheduled by running tasks are run
// too if they fall due within the window. It returns the number of tasks
// run.
func (m *Manual) Advance(d time.Duration) int {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	ran := 0
	for {
		next, ok := m.popDue(target)
		if !ok {
			break
		}
		next.task()
		ran++
	}

	m.mu.Lock()
	if target.After(m.now) {
		m.now = target
	}
	m.mu.Unlock()
	return ran
}

// RunAll advances the clock until no tasks remain and returns the number
// of tasks run. Tasks that keep rescheduling themselves make it loop
// forever.
func (m *Manual) RunAll() int {
	ran := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return ran
		}
		m.sortQueue()
		d := m.queue[0].due.Sub(m.now)
		m.mu.Unlock()
		ran += m.Advance(d)
	}
}

// popDue removes and returns the earliest task due at or before target,
// moving the clock to its due time.
func (m *Manual) popDue(target time.Time) (manualTask, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 {
		return manualTask{}, false
	}
	m.sortQueue()
	next := m.queue[0]
	if next.due.After(target) {
		return manualTask{}, false
	}
	m.queue = m.queue[1:]
	if next.due.After(m.now) {
		m.now = next.due
	}
	return next, true
}

func (m *Manual) sortQueue() {
	sort.SliceStable(m.queue, func(i, j int) bool {
		if !m.queue[i].due.Equal(m.queue[j].due) {
			return m.queue[i].due.Before(m.queue[j].due)
		}
		return m.queue[i].seq < m.queue[j].seq
	})
}
