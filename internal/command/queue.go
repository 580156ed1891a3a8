package command

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrQueueFull is returned by Enqueue on a bounded queue at capacity.
var ErrQueueFull = errors.New("command queue full")

// Queue is a multi-producer, single-consumer command buffer.
//
// Enqueue is safe from any goroutine and never blocks on the consumer.
// DrainAll must only be called from the consumer. Commands from one
// producer come out in the order that producer enqueued them; there is no
// ordering guarantee between independent producers.
type Queue struct {
	mu      sync.Mutex
	pending []Command
	limit   int

	accepted atomic.Uint64
	rejected atomic.Uint64
}

// NewQueue creates a queue. limit <= 0 means unbounded.
func NewQueue(limit int) *Queue {
	if limit < 0 {
		limit = 0
	}
	return &Queue{limit: limit}
}

// Enqueue appends cmd. It only fails when the queue is bounded and full;
// the rejected command is discarded and the buffered ones are kept.
func (q *Queue) Enqueue(cmd Command) error {
	q.mu.Lock()
	if q.limit > 0 && len(q.pending) >= q.limit {
		q.mu.Unlock()
		q.rejected.Add(1)
		return ErrQueueFull
	}
	q.pending = append(q.pending, cmd)
	q.mu.Unlock()

	q.accepted.Add(1)
	return nil
}

// DrainAll removes and returns every buffered command. It returns nil when
// the queue is empty.
func (q *Queue) DrainAll() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	drained := q.pending
	q.pending = make([]Command, 0, cap(drained))
	return drained
}

// Len returns the number of buffered commands.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stats returns how many commands were accepted and rejected so far.
func (q *Queue) Stats() (accepted, rejected uint64) {
	return q.accepted.Load(), q.rejected.Load()
}
