package session

import (
	"sync"

	"github.com/verbalabs/verba/pkg/audio"
)

// sendQueue buffers outbound capture chunks produced before the service has
// confirmed the session open. It is bounded; when full, the oldest chunk is
// dropped so the flushed backlog stays fresh.
type sendQueue struct {
	mu      sync.Mutex
	items   []audio.Blob
	max     int
	dropped int
}

func newSendQueue(max int) *sendQueue {
	if max <= 0 {
		max = 32
	}
	return &sendQueue{max: max}
}

func (q *sendQueue) Push(b audio.Blob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.max {
		q.items = q.items[1:]
		q.dropped++
	}
	q.items = append(q.items, b)
}

// Drain returns every queued chunk in order and empties the queue.
func (q *sendQueue) Drain() []audio.Blob {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *sendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *sendQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
