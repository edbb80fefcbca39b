// Package scheduler runs delayed work for a flowstate manager.
//
// A manager is single-threaded: store writes, assignment cascades and
// event dispatch all happen on one logical thread. Delayed assignments
// must therefore come back to that same thread when they fire. Both
// implementations here guarantee it.
//
// # Manual
//
// Manual keeps a virtual clock. Nothing runs until the owner calls
// Advance, and then due tasks run synchronously on the caller's
// goroutine, ordered by due time and then by scheduling order. Tests and
// simulations use it to get reproducible timing:
//
//	clock := scheduler.NewManual(time.Unix(0, 0))
//	clock.Schedule(250*time.Millisecond, func() { fmt.Println("fired") })
//	clock.Advance(100 * time.Millisecond) // nothing
//	clock.Advance(200 * time.Millisecond) // prints: fired
//
// # Loop
//
// Loop owns a goroutine and a task queue. Real timers post scheduled
// tasks into the queue; hosts post their own work with Post or Do:
//
//	loop := scheduler.NewLoop()
//	loop.Start(ctx)
//	defer loop.Stop()
//
//	m, _ := flowstate.New(nil, flowstate.WithScheduler(loop))
//	loop.Do(ctx, func() { m.SetState(map[string]any{"a": 1}) })
package scheduler
