package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/ticketflow/internal/events"
)

type recordingHandler struct {
	mu      sync.Mutex
	seen    []string
	release chan struct{}
}

func (h *recordingHandler) Handle(_ context.Context, event events.Event) error {
	if h.release != nil {
		<-h.release
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event.ID)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func TestPoolDrainsOnStop(t *testing.T) {
	h := &recordingHandler{}
	pool := NewNotificationPool(h, 3, 16, nil)
	dispatcher := events.NewInMemoryDispatcher(nil)
	StartNotificationWorker(dispatcher, pool, events.EventTicketDecided, events.EventCommentAdded)

	for i := 0; i < 10; i++ {
		if err := dispatcher.Publish(context.Background(), events.Event{ID: string(rune('a' + i)), Type: events.EventTicketDecided}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := pool.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if got := h.count(); got != 10 {
		t.Fatalf("handled = %d, want 10", got)
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	pool := NewNotificationPool(&recordingHandler{}, 1, 1, nil)
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := pool.Enqueue(context.Background(), events.Event{}); !errors.Is(err, ErrStopped) {
		t.Fatalf("Enqueue() error = %v, want ErrStopped", err)
	}
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestEnqueueReportsFullQueue(t *testing.T) {
	h := &recordingHandler{release: make(chan struct{})}
	pool := NewNotificationPool(h, 1, 1, nil)

	// The worker may already hold the first event, so fill until refused.
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = pool.Enqueue(context.Background(), events.Event{ID: "x"})
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("Enqueue() error = %v, want ErrQueueFull", err)
	}
	close(h.release)
	if err := pool.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
