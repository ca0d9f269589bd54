package room

import (
	"errors"
	"sync"
)

// Reasons an outbox was closed, as reported by Outbox.Err.
var (
	ErrOutboxClosed = errors.New("outbox closed")
	ErrOutboxFull   = errors.New("outbox full")
	ErrReplaced     = errors.New("replaced by a newer connection")
)

// Outbox is the bounded queue between a room and one connection's writer.
// Pushes never block: a full or closed outbox refuses the message.
type Outbox struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once

	mu  sync.Mutex
	err error
}

func NewOutbox(size int) *Outbox {
	if size < 1 {
		size = 1
	}
	return &Outbox{
		ch:   make(chan []byte, size),
		done: make(chan struct{}),
	}
}

// Push queues msg and reports whether it was accepted.
func (o *Outbox) Push(msg []byte) bool {
	select {
	case <-o.done:
		return false
	default:
	}
	select {
	case o.ch <- msg:
		return true
	default:
		return false
	}
}

// C is read by the connection's writer.
func (o *Outbox) C() <-chan []byte { return o.ch }

// Done is closed once the outbox has been closed.
func (o *Outbox) Done() <-chan struct{} { return o.done }

// Close tells the writer to stop. The data channel itself is never closed,
// so a racing Push cannot panic.
func (o *Outbox) Close() { o.CloseWith(ErrOutboxClosed) }

// CloseWith is Close with a reason. Only the first reason is kept.
func (o *Outbox) CloseWith(reason error) {
	o.once.Do(func() {
		o.mu.Lock()
		o.err = reason
		o.mu.Unlock()
		close(o.done)
	})
}

// Err returns why the outbox was closed, or nil while it is open.
func (o *Outbox) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.err
}
