package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketflow/internal/events"
)

// ErrQueueFull is returned when an event cannot be queued without blocking.
var ErrQueueFull = errors.New("notification queue full")

// ErrStopped is returned once the pool no longer accepts events.
var ErrStopped = errors.New("notification pool stopped")

// Handler processes one event off the queue.
type Handler interface {
	Handle(ctx context.Context, event events.Event) error
}

// NotificationPool delivers events on a fixed set of goroutines so that
// publishers never wait on delivery.
type NotificationPool struct {
	handler Handler
	logger  *zap.Logger
	queue   chan events.Event
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewNotificationPool starts workers goroutines draining a queue of size
// queueSize.
func NewNotificationPool(handler Handler, workers, queueSize int, logger *zap.Logger) *NotificationPool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &NotificationPool{
		handler: handler,
		logger:  logger,
		queue:   make(chan events.Event, queueSize),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Enqueue queues event without blocking.
func (p *NotificationPool) Enqueue(_ context.Context, event events.Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new events and waits for queued ones to drain or ctx to end.
func (p *NotificationPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *NotificationPool) run() {
	defer p.wg.Done()
	for event := range p.queue {
		if err := p.handler.Handle(context.Background(), event); err != nil {
			p.logger.Warn("notification handling failed",
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}

// StartNotificationWorker subscribes the pool to eventTypes on dispatcher.
// A full queue is reported to the dispatcher, which logs it.
func StartNotificationWorker(dispatcher events.Dispatcher, pool *NotificationPool, eventTypes ...events.EventType) {
	if dispatcher == nil || pool == nil {
		return
	}
	for _, t := range eventTypes {
		dispatcher.Subscribe(t, pool.Enqueue)
	}
}
