package girder

import (
	"errors"
	"runtime/debug"
	"sync"
)

// Terminal is the handler at the end of a chain. It receives the two
// opaque context values and reports success or failure.
type Terminal func(req, res any) error

// Middleware runs ahead of the terminal handler. It receives the two opaque
// context values plus the continuation for the remainder of the chain, and
// finishes in one of three ways:
//
//   - (nil, nil): synchronous success. The remainder runs next (immediately,
//     if the middleware never called next.Proceed itself).
//   - (nil, err) or a panic: synchronous failure. The chain aborts and the
//     remainder is never started.
//   - (*Task, nil): a pending unit of work, usually created with Go. The
//     remainder runs once the task calls next.Proceed; the chain's result
//     follows the task's own settlement.
//
// A middleware that wants a teardown phase proceeds inside its task, waits
// on the returned handle, and runs its post-work after the wait returns.
//
// The outcomes are disjoint: a non-nil error wins over a returned task.
// Such a task is abandoned; a late Proceed from it does not start the
// remainder, and its handle settles with the frame's failure.
type Middleware func(req, res any, next *Next) (*Task, error)

// Bound is a fully assembled chain: a single callable over the two context
// values that blocks until the whole chain settles and returns its outcome.
type Bound func(req, res any) error

// ErrAborted is the failure recorded when a middleware calls Next.Abort
// with a nil error.
var ErrAborted = errors.New("girder: chain aborted")

// Chain is an ordered middleware list awaiting a terminal handler.
type Chain struct {
	stages []Middleware
}

// New builds a Chain from middleware in execution order.
func New(stages ...Middleware) *Chain {
	return &Chain{stages: stages}
}

// Then binds a terminal handler to the chain, yielding the bound callable.
// The chain may be bound to any number of terminal handlers; each Bound is
// independent and safe for concurrent use.
func (c *Chain) Then(term Terminal) Bound {
	stages := append([]Middleware(nil), c.stages...)
	return func(req, res any) error {
		return run(stages, term, req, res)
	}
}

// RunChain executes middleware in order ahead of term, passing every stage
// the same two context values. It blocks until the chain settles and returns
// the first error encountered, or nil if every stage succeeded.
func RunChain(stages []Middleware, term Terminal, req, res any) error {
	return run(stages, term, req, res)
}

func run(stages []Middleware, term Terminal, req, res any) error {
	if len(stages) == 0 {
		return invokeTerminal(term, req, res)
	}
	f := &frame{
		rest:     stages[1:],
		term:     term,
		req:      req,
		res:      res,
		outcome:  newSignal(),
		teardown: newSignal(),
		started:  make(chan struct{}),
	}
	return f.resolve(stages[0])
}

// frame covers one middleware and everything after it. Each frame settles
// its outcome signal exactly once and releases its teardown signal exactly
// once, after the remainder of the chain has concluded.
type frame struct {
	rest []Middleware
	term Terminal
	req  any
	res  any

	outcome  *signal // the frame's final result
	teardown *signal // the remainder's result, gating head's teardown phase

	startOnce sync.Once
	started   chan struct{} // closed when the remainder begins
}

func (f *frame) resolve(head Middleware) error {
	task, err := f.invoke(head)
	switch {
	case err != nil:
		// Synchronous failure. This frame never starts the remainder.
		f.outcome.settle(err)

	case task == nil:
		// Synchronous success. Unless head aborted on its way out, this
		// frame's result is the remainder's result: start it if head
		// didn't proceed already, then follow the teardown signal.
		if !f.outcome.fired() {
			f.start()
			f.outcome.settle(f.teardown.wait())
		}

	default:
		// Pending head. A task that settles before ever proceeding is the
		// whole story: success passes through, failure propagates, and the
		// remainder never runs. Once head proceeds, the frame follows the
		// task's own settlement; the remainder's result reaches the task
		// first, through the teardown handle it is waiting on.
		select {
		case <-f.outcome.done:
			// Settled early via Abort.
		case <-task.Done():
			f.outcome.settle(task.Err())
		case <-f.started:
			f.outcome.settle(task.Wait())
		}
	}
	return f.outcome.wait()
}

// invoke calls head with this frame's continuation, converting a panic
// into a synchronous failure.
func (f *frame) invoke(head Middleware) (t *Task, err error) {
	defer func() {
		if r := recover(); r != nil {
			t = nil
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return head(f.req, f.res, &Next{frame: f})
}

// start launches the remainder of the chain at most once and releases the
// teardown signal with its result when it settles.
func (f *frame) start() {
	f.startOnce.Do(func() {
		if f.outcome.fired() {
			// The frame already settled (sync failure or abort). The
			// remainder never runs; release any handle waiters with the
			// frame's outcome.
			f.teardown.settle(f.outcome.wait())
			return
		}
		close(f.started)
		go func() {
			f.teardown.settle(run(f.rest, f.term, f.req, f.res))
		}()
	})
}

func invokeTerminal(term Terminal, req, res any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
		}
	}()
	return term(req, res)
}

// Next is the continuation handed to the active middleware. It is valid
// only for the duration of that middleware's frame.
type Next struct {
	frame *frame
}

// Proceed starts the remainder of the chain (first call wins) and returns
// the handle that settles once the remainder, terminal handler included,
// has fully resolved. Waiting on the handle is what gives a
// middleware its teardown phase; the remainder runs on its own goroutine,
// so waiting is safe from synchronous middleware too.
func (n *Next) Proceed() *Handle {
	n.frame.start()
	return &Handle{s: n.frame.teardown}
}

// Abort records err as the chain's failure immediately (first settlement
// wins) and returns it so the middleware can propagate it through the
// normal error channel:
//
//	return nil, next.Abort(err)
//
// Aborting never un-runs stages that already started; it only decides the
// outcome.
func (n *Next) Abort(err error) error {
	if err == nil {
		err = ErrAborted
	}
	n.frame.outcome.settle(err)
	return err
}

// Handle is the wait-handle for a frame's remainder, returned by Proceed.
type Handle struct {
	s *signal
}

// Wait blocks until the remainder of the chain has settled and returns
// its result.
func (h *Handle) Wait() error {
	return h.s.wait()
}

// Done returns a channel closed when the remainder has settled.
func (h *Handle) Done() <-chan struct{} {
	return h.s.done
}
