package girder

import "sync"

// signal is a single-fire success/failure slot. The first settle wins;
// later settles are dropped. wait blocks until the signal has fired.
//
// Frames use one signal for their overall outcome and one as the teardown
// gate released after the remainder of the chain has resolved.
type signal struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newSignal() *signal {
	return &signal{done: make(chan struct{})}
}

// settle fires the signal with err (nil means success). Only the first
// call has any effect.
func (s *signal) settle(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// wait blocks until the signal fires and returns its result.
func (s *signal) wait() error {
	<-s.done
	return s.err
}

// fired reports whether the signal has already settled.
func (s *signal) fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
