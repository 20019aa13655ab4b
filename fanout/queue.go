// Package fanout implements the real-time delivery core: per-subscriber
// queues, the per-room subscription registry multiplexing one transport
// subscription across local subscribers, the send-message dispatcher, and
// the subscription endpoint consumed by the API layer.
package fanout

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"sync"
)

// Queue decouples push-based delivery from pull-based consumption for one
// subscriber. Enqueue is O(1) and never suspends, so one slow consumer
// cannot stall the shared delivery callback. The buffer is unbounded.
//
// Queue supports a single consumer, which matches one subscription stream.
type Queue struct {
	mu     sync.Mutex
	items  []domain.Message
	wake   chan struct{}
	closed bool
}

func NewQueue() *Queue {
	return &Queue{wake: make(chan struct{}, 1)}
}

// Enqueue appends the message to the tail and wakes a waiting consumer.
// Messages enqueued after Close are discarded.
func (q *Queue) Enqueue(m domain.Message) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, m)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue returns the head message, suspending until one arrives, the queue
// closes, or ctx is cancelled. There is no polling: the consumer sleeps on
// the wake channel until Enqueue or Close signals it.
func (q *Queue) Dequeue(ctx context.Context) (domain.Message, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			head := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return head, nil
		}
		if q.closed {
			q.mu.Unlock()
			return domain.Message{}, errors.ErrStreamClosed
		}
		q.mu.Unlock()

		select {
		case <-q.wake:
		case <-ctx.Done():
			return domain.Message{}, ctx.Err()
		}
	}
}

// Close marks the queue ended. Pending and future Dequeue calls resolve with
// ErrStreamClosed once the buffer is drained. Idempotent.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Len reports the number of buffered messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
