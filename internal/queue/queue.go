// Package queue implements the per-target delivery queue: an unbounded FIFO
// of chunks with one producer and one consumer.
package queue

import (
	"context"
	"sync"

	ring "github.com/eapache/queue"

	"github.com/bft-labs/tcpmirror/internal/domain"
)

// Queue is an unbounded FIFO of chunks.
// Push never blocks, so a slow consumer can never stall the producer; Pop
// blocks until a chunk is available or the context is done.
type Queue struct {
	mu    sync.Mutex
	items *ring.Queue
	ready chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		items: ring.New(),
		ready: make(chan struct{}, 1),
	}
}

// Push appends c to the tail of the queue.
func (q *Queue) Push(c domain.Chunk) {
	q.mu.Lock()
	q.items.Add(c)
	q.mu.Unlock()
	q.signal()
}

// Pop removes and returns the head of the queue, waiting for one to arrive if
// the queue is empty.
func (q *Queue) Pop(ctx context.Context) (domain.Chunk, error) {
	for {
		q.mu.Lock()
		if q.items.Length() > 0 {
			c := q.items.Remove().(domain.Chunk)
			more := q.items.Length() > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			return c, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.Chunk{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// Drain discards every pending chunk and returns how many were dropped.
func (q *Queue) Drain() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := q.items.Length()
	if n > 0 {
		q.items = ring.New()
	}
	return n
}

// Len returns the number of pending chunks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// signal wakes a waiting Pop without blocking.
func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
