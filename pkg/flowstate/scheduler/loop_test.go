package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_DoRunsOnLoop(t *testing.T) {
	l := NewLoop()
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestLoop_NestedDoRunsInline(t *testing.T) {
	l := NewLoop()
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	var order []string
	done := make(chan error, 1)
	go func() {
		done <- l.Do(context.Background(), func() {
			order = append(order, "outer")
			err := l.Do(context.Background(), func() { order = append(order, "inner") })
			order = append(order, "after inner")
			if err != nil {
				order = append(order, err.Error())
			}
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Do called from the loop goroutine did not return")
	}
	assert.Equal(t, []string{"outer", "inner", "after inner"}, order)
}

func TestLoop_DoFromScheduledTask(t *testing.T) {
	l := NewLoop()
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	fired := make(chan bool, 1)
	l.Schedule(time.Millisecond, func() {
		ran := false
		err := l.Do(context.Background(), func() { ran = true })
		fired <- err == nil && ran
	})

	select {
	case ok := <-fired:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task blocked in Do")
	}
}

func TestLoop_ScheduleKeepsEveryTimer(t *testing.T) {
	l := NewLoop()
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	var wg sync.WaitGroup
	wg.Add(50)
	ids := make(map[TaskID]bool)
	for i := 0; i < 50; i++ {
		id := l.Schedule(time.Millisecond, wg.Done)
		assert.Len(t, string(id), len("task-")+36)
		ids[id] = true
	}
	assert.Len(t, ids, 50)

	wg.Wait()
	require.Eventually(t, func() bool { return l.Pending() == 0 }, time.Second, time.Millisecond)
}

func TestLoop_ScheduleSerializesWithDo(t *testing.T) {
	l := NewLoop()
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	// counter is only touched on the loop goroutine; the race detector
	// would flag any concurrent access.
	counter := 0
	var wg sync.WaitGroup
	wg.Add(20)
	for i := 0; i < 10; i++ {
		l.Schedule(time.Millisecond, func() {
			counter++
			wg.Done()
		})
		go func() {
			_ = l.Do(context.Background(), func() {
				counter++
				wg.Done()
			})
		}()
	}
	wg.Wait()

	var got int
	require.NoError(t, l.Do(context.Background(), func() { got = counter }))
	assert.Equal(t, 20, got)
	assert.Equal(t, 0, l.Pending())
}

func TestLoop_RecoversPanics(t *testing.T) {
	l := NewLoop()
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	require.NoError(t, l.Post(func() { panic("boom") }))

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
}

func TestLoop_Lifecycle(t *testing.T) {
	l := NewLoop(WithQueueSize(4))

	assert.ErrorIs(t, l.Post(func() {}), ErrNotStarted)
	assert.ErrorIs(t, l.Stop(), ErrNotStarted)

	require.NoError(t, l.Start(context.Background()))
	assert.ErrorIs(t, l.Start(context.Background()), ErrAlreadyStarted)

	l.Schedule(time.Hour, func() {})
	assert.Equal(t, 1, l.Pending())

	require.NoError(t, l.Stop())
	assert.Equal(t, 0, l.Pending())
	assert.ErrorIs(t, l.Post(func() {}), ErrStopped)
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
}

func TestLoop_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop()
	require.NoError(t, l.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		return l.Post(func() {}) == ErrStopped
	}, time.Second, 5*time.Millisecond)
}

func TestLoop_DoHonorsCallerContext(t *testing.T) {
	l := NewLoop()
	require.NoError(t, l.Start(context.Background()))
	defer l.Stop()

	release := make(chan struct{})
	require.NoError(t, l.Post(func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Do(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}
