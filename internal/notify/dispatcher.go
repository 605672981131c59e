// Package notify delivers committed checklist transitions to the outside
// world. Delivery is best effort: it runs detached from the request that
// produced the intent, under its own deadline, and failures are only logged.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/castle/internal/metrics"
	"github.com/dukerupert/castle/internal/model"
)

// Sink is one delivery channel. Deliver should honour ctx and return nil for
// intent kinds it does not handle.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, intent model.Intent) error
}

// Dispatcher fans each intent out to every sink in parallel.
type Dispatcher struct {
	sinks   []Sink
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(logger *slog.Logger, timeout time.Duration, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks:   sinks,
		timeout: timeout,
		logger:  logger,
	}
}

// Dispatch schedules delivery and returns immediately.
func (d *Dispatcher) Dispatch(intent model.Intent) {
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.logger.Warn("dispatcher closed, dropping intent", "intent_id", intent.ID, "kind", intent.Kind)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		d.deliver(intent)
	}()
}

func (d *Dispatcher) deliver(intent model.Intent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var g errgroup.Group
	for _, s := range d.sinks {
		g.Go(func() error {
			return d.deliverTo(ctx, s, intent)
		})
	}
	if err := g.Wait(); err != nil {
		d.logger.Debug("intent delivered with failures", "intent_id", intent.ID, "kind", intent.Kind)
	}
}

func (d *Dispatcher) deliverTo(ctx context.Context, s Sink, intent model.Intent) (err error) {
	start := time.Now()
	result := "ok"
	defer func() {
		if r := recover(); r != nil {
			result = "panic"
			err = fmt.Errorf("%s sink panicked: %v", s.Name(), r)
		}
		if err != nil {
			d.logger.Warn("notification failed",
				"intent_id", intent.ID,
				"kind", intent.Kind,
				"sink", s.Name(),
				"error", err,
			)
		}
		metrics.ObserveDelivery(s.Name(), result, time.Since(start))
	}()

	if err := s.Deliver(ctx, intent); err != nil {
		result = "error"
		if errors.Is(err, context.DeadlineExceeded) {
			result = "timeout"
		}
		return fmt.Errorf("%s: %w", s.Name(), err)
	}
	return nil
}

// Close stops accepting intents and waits for in-flight deliveries, or for
// ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for deliveries: %w", ctx.Err())
	}
}
