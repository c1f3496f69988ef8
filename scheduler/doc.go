// Package scheduler runs background jobs one at a time in FIFO order.
//
// Jobs are plain values naming a Kind and a target entity. Handlers for each
// kind are registered in a Registry before the Scheduler starts; the
// Scheduler owns an unbounded queue, a single dispatcher goroutine and a
// one-slot ants worker pool.
//
// Basic usage:
//
//	registry := scheduler.NewRegistry()
//	registry.Register(scheduler.KindProcessResource, processFn, onPanic)
//	s, err := scheduler.New(registry)
//	s.Start()
//	defer s.Stop(10 * time.Second)
//	s.Enqueue(scheduler.NewJob(scheduler.KindProcessResource, resourceID))
package scheduler
