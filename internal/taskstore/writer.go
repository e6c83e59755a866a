package taskstore

import (
	"context"
	"sync"
)

type writeJob struct {
	value string
	// ack, when set, marks a flush barrier: it is closed once every job queued
	// before it has been written and its failures handed to the error handler.
	ack chan struct{}
}

// writer drains queued snapshots to the kv store in FIFO order.
type writer struct {
	queue   chan writeJob
	notices *notifier
	done    chan struct{}
}

func (s *Store) startWriter() {
	w := &writer{
		queue:   make(chan writeJob, s.queueSize),
		notices: newNotifier(s.onError),
		done:    make(chan struct{}),
	}
	s.w = w
	go w.notices.run()
	go s.drain(w)
}

func (s *Store) drain(w *writer) {
	defer close(w.done)
	for job := range w.queue {
		if job.ack != nil {
			w.notices.push(notice{ack: job.ack})
			continue
		}
		// Writes run to completion; there is no caller left to cancel them.
		if err := s.write(context.Background(), job.value); err != nil {
			s.record(err)
			w.notices.push(notice{err: err})
		}
	}
	w.notices.close()
	<-w.notices.done
}

type notice struct {
	err error
	ack chan struct{}
}

// notifier runs the error handler on its own goroutine. push never blocks, so
// a handler that is slow or calls back into the Store cannot stall the writer.
type notifier struct {
	handle func(error)

	mu     sync.Mutex
	cond   *sync.Cond
	items  []notice
	closed bool
	done   chan struct{}
}

func newNotifier(handle func(error)) *notifier {
	n := &notifier{handle: handle, done: make(chan struct{})}
	n.cond = sync.NewCond(&n.mu)
	return n
}

func (n *notifier) push(item notice) {
	n.mu.Lock()
	n.items = append(n.items, item)
	n.mu.Unlock()
	n.cond.Signal()
}

func (n *notifier) close() {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()
	n.cond.Signal()
}

func (n *notifier) run() {
	defer close(n.done)
	for {
		n.mu.Lock()
		for len(n.items) == 0 && !n.closed {
			n.cond.Wait()
		}
		if len(n.items) == 0 {
			n.mu.Unlock()
			return
		}
		item := n.items[0]
		n.items[0] = notice{}
		n.items = n.items[1:]
		n.mu.Unlock()

		switch {
		case item.ack != nil:
			close(item.ack)
		case n.handle != nil:
			n.handle(item.err)
		}
	}
}
