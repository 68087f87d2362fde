package audit

import (
	"context"
	"log/slog"
	"time"
)

// Worker consumes audit events from a channel and persists them through a
// Publisher, keeping event emission off the request path. Emission never
// blocks: when the inbox is full the event is dropped and counted against
// the logger, because audit backpressure must not stall decision sealing.
type Worker struct {
	publisher *Publisher
	inbox     chan Event
	logger    *slog.Logger
}

func NewWorker(store Store, buffer int, logger *slog.Logger) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	return &Worker{publisher: NewPublisher(store), inbox: make(chan Event, buffer), logger: logger}
}

// Enqueue hands an event to the worker without blocking. The timestamp is
// stamped here so the record carries the emission time, not the drain time.
func (w *Worker) Enqueue(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case w.inbox <- event:
	default:
		if w.logger != nil {
			w.logger.Warn("audit inbox full, event dropped", "action", event.Action)
		}
	}
}

// Run drains the inbox until ctx is cancelled, then flushes what is queued.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case event := <-w.inbox:
					if err := w.publisher.Emit(context.Background(), event); err != nil {
						return err
					}
				default:
					return ctx.Err()
				}
			}
		case event := <-w.inbox:
			if err := w.publisher.Emit(ctx, event); err != nil {
				if w.logger != nil {
					w.logger.Error("audit append failed", "action", event.Action, "error", err.Error())
				}
			}
		}
	}
}
