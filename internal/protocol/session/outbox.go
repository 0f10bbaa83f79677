package session

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrBackpressure  = errors.New("session: outbox full")
	ErrSessionClosed = errors.New("session: closed")
)

// outbox is the bounded queue between Send callers and the one writer
// goroutine that owns the transport's write side.
type outbox struct {
	ch   chan []byte
	done chan struct{}

	once sync.Once
	mu   sync.Mutex
	err  error
}

func newOutbox(depth int) *outbox {
	return &outbox{
		ch:   make(chan []byte, depth),
		done: make(chan struct{}),
	}
}

func (o *outbox) enqueue(buf []byte, timeout time.Duration) error {
	select {
	case <-o.done:
		return ErrSessionClosed
	default:
	}
	select {
	case o.ch <- buf:
		return nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case o.ch <- buf:
		return nil
	case <-o.done:
		return ErrSessionClosed
	case <-timer.C:
		return fmt.Errorf("%w: no space after %s", ErrBackpressure, timeout)
	}
}

// run drains the queue through write until the outbox closes or a write fails.
func (o *outbox) run(write func([]byte) error, onFail func(error)) {
	for {
		select {
		case <-o.done:
			return
		case buf := <-o.ch:
			if err := write(buf); err != nil {
				onFail(err)
				return
			}
		}
	}
}

// shutdown closes the outbox once, remembering the first cause.
func (o *outbox) shutdown(cause error) bool {
	first := false
	o.once.Do(func() {
		first = true
		o.mu.Lock()
		o.err = cause
		o.mu.Unlock()
		close(o.done)
	})
	return first
}

func (o *outbox) cause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}
