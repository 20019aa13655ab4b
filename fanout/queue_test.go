package fanout

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueue_PreservesEnqueueOrder(t *testing.T) {
	req := require.New(t)
	queue := NewQueue()

	for i := 0; i < 5; i++ {
		queue.Enqueue(domain.Message{ID: fmt.Sprintf("msg-%d", i)})
	}

	for i := 0; i < 5; i++ {
		message, err := queue.Dequeue(context.Background())
		req.NoError(err)
		req.Equal(fmt.Sprintf("msg-%d", i), message.ID)
	}
}

func TestQueue_DequeueSuspendsUntilEnqueue(t *testing.T) {
	req := require.New(t)
	queue := NewQueue()

	done := make(chan domain.Message, 1)
	go func() {
		message, err := queue.Dequeue(context.Background())
		if err == nil {
			done <- message
		}
	}()

	// Give the consumer time to park before waking it
	time.Sleep(20 * time.Millisecond)
	queue.Enqueue(domain.Message{ID: "wake-up"})

	select {
	case message := <-done:
		req.Equal("wake-up", message.ID)
	case <-time.After(1 * time.Second):
		req.Fail("Dequeue did not wake after Enqueue")
	}
}

func TestQueue_CloseWakesPendingDequeue(t *testing.T) {
	req := require.New(t)
	queue := NewQueue()

	done := make(chan error, 1)
	go func() {
		_, err := queue.Dequeue(context.Background())
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	queue.Close()

	select {
	case err := <-done:
		req.ErrorIs(err, errors.ErrStreamClosed)
	case <-time.After(1 * time.Second):
		req.Fail("Dequeue did not resolve after Close")
	}
}

func TestQueue_DrainsBufferedItemsBeforeReportingClosed(t *testing.T) {
	req := require.New(t)
	queue := NewQueue()

	queue.Enqueue(domain.Message{ID: "buffered"})
	queue.Close()

	message, err := queue.Dequeue(context.Background())
	req.NoError(err)
	req.Equal("buffered", message.ID)

	_, err = queue.Dequeue(context.Background())
	req.ErrorIs(err, errors.ErrStreamClosed)
}

func TestQueue_EnqueueAfterCloseIsDiscarded(t *testing.T) {
	req := require.New(t)
	queue := NewQueue()

	queue.Close()
	queue.Enqueue(domain.Message{ID: "too-late"})

	req.Zero(queue.Len())
}

func TestQueue_DequeueHonorsCancellation(t *testing.T) {
	req := require.New(t)
	queue := NewQueue()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := queue.Dequeue(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		req.ErrorIs(err, context.Canceled)
	case <-time.After(1 * time.Second):
		req.Fail("Dequeue did not resolve after cancellation")
	}
}
