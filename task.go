package girder

import (
	"fmt"
	"runtime/debug"
)

// PanicError carries a recovered panic value and its stack trace across
// the chain's error channel.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.Value)
}

// Task is a pending unit of work returned by an asynchronous middleware.
// It settles exactly once, when fn returns or panics.
type Task struct {
	s *signal
}

// Go runs fn on its own goroutine and returns the Task tracking it.
// A panic inside fn settles the task with a *PanicError.
//
// A middleware that needs a teardown phase returns girder.Go of a function
// that proceeds, waits on the returned handle, and then runs its teardown:
//
//	func traced(req, res any, next *girder.Next) (*girder.Task, error) {
//		start := time.Now()
//		return girder.Go(func() error {
//			err := next.Proceed().Wait()
//			log.Printf("handled in %s", time.Since(start))
//			return err
//		}), nil
//	}
func Go(fn func() error) *Task {
	t := &Task{s: newSignal()}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				t.s.settle(&PanicError{Value: r, Stack: string(debug.Stack())})
			}
		}()
		t.s.settle(fn())
	}()
	return t
}

// Wait blocks until the task settles and returns its result.
func (t *Task) Wait() error {
	return t.s.wait()
}

// Done returns a channel closed when the task settles.
func (t *Task) Done() <-chan struct{} {
	return t.s.done
}

// Err returns the task's result. It must only be called after the task
// has settled.
func (t *Task) Err() error {
	return t.s.err
}
