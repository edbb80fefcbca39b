package scheduler

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Errors returned by Loop.
var (
	ErrNotStarted     = errors.New("scheduler loop not started")
	ErrAlreadyStarted = errors.New("scheduler loop already started")
	ErrStopped        = errors.New("scheduler loop stopped")
)

// TaskID identifies a scheduled task.
type TaskID string

// Scheduler runs tasks after a delay. Implementations run every task on
// one logical thread, never concurrently with each other.
//
// There is no cancellation: once scheduled a task always runs, unless the
// scheduler itself is shut down.
type Scheduler interface {
	Schedule(delay time.Duration, task func()) TaskID
}

func newTaskID() TaskID {
	return TaskID("task-" + uuid.New().String())
}
