package snapshot

import (
	"context"
	"image"
	"sync"
	"sync/atomic"

	"github.com/mohammed-shakir/static-snapshot/internal/core/staticapi"
)

// Handler receives either an image or an error, never both.
type Handler func(img image.Image, err error)

// Queue runs completion callbacks on one execution context. Dispatch
// reports false when fn will never run.
type Queue interface {
	Dispatch(fn func()) bool
}

// QueueFunc adapts a caller-owned dispatcher, such as an event loop.
type QueueFunc func(fn func())

func (f QueueFunc) Dispatch(fn func()) bool {
	f(fn)
	return true
}

// SerialQueue runs callbacks one at a time, in submission order, on a
// single goroutine.
type SerialQueue struct {
	ch   chan func()
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewSerialQueue(buffer int) *SerialQueue {
	if buffer < 0 {
		buffer = 0
	}
	q := &SerialQueue{ch: make(chan func(), buffer), done: make(chan struct{})}
	q.wg.Add(1)
	go q.loop()
	return q
}

func (q *SerialQueue) loop() {
	defer q.wg.Done()
	for {
		select {
		case fn := <-q.ch:
			fn()
		case <-q.done:
			return
		}
	}
}

func (q *SerialQueue) Dispatch(fn func()) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.ch <- fn:
		return true
	case <-q.done:
		return false
	}
}

// Close stops the queue. Callbacks not yet started are dropped.
func (q *SerialQueue) Close() {
	q.once.Do(func() { close(q.done) })
	q.wg.Wait()
}

const (
	taskRunning int32 = iota
	taskDelivering
	taskCompleted
	taskCancelled
)

// Task is a fetch in flight.
type Task struct {
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
}

// Cancel aborts the request and suppresses the handler while the fetch is
// still in flight. Once the fetch has returned the result is delivered
// regardless and Cancel reports false.
func (t *Task) Cancel() bool {
	won := t.state.CompareAndSwap(taskRunning, taskCancelled)
	t.cancel()
	return won
}

// Done is closed once the task has settled, delivered or not. A queue
// closed with the delivery still pending never settles the task.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancelled reports whether Cancel won.
func (t *Task) Cancelled() bool { return t.state.Load() == taskCancelled }

// FetchAsync runs Fetch on its own goroutine and delivers the result to h
// on the client's queue, at most once. Configuration errors are delivered
// the same way.
func (c *Client) FetchAsync(ctx context.Context, req staticapi.Request, h Handler) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		res, err := c.Fetch(ctx, req)
		cancel()
		var img image.Image
		if err == nil {
			img = res.Image
		}
		if !t.state.CompareAndSwap(taskRunning, taskDelivering) {
			close(t.done)
			return
		}
		deliver := func() {
			defer close(t.done)
			t.state.Store(taskCompleted)
			if h != nil {
				h(img, err)
			}
		}
		if !c.queue.Dispatch(deliver) {
			close(t.done)
		}
	}()
	return t
}
