// Package events publishes domain events after a state change has committed.
// Delivery is best effort: a failed send is logged and never undoes the change.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names a domain event.
type Type string

const (
	OrderPlaced        Type = "order.placed"
	OrderStatusChanged Type = "order.status_changed"
	PaymentSucceeded   Type = "payment.succeeded"
	PaymentFailed      Type = "payment.failed"
	CouponIssued       Type = "coupon.issued"
)

// Event is the envelope written to every sink.
type Event struct {
	ID             string            `json:"id"`
	Type           Type              `json:"type"`
	OrderID        string            `json:"orderId"`
	Status         string            `json:"status,omitempty"`
	PreviousStatus string            `json:"previousStatus,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
	OccurredAt     time.Time         `json:"occurredAt"`
}

// Sink delivers one event.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Emitter stamps events and hands them to a sink. A nil *Emitter, or one
// without a sink, drops everything.
type Emitter struct {
	sink    Sink
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewEmitter returns an emitter writing to sink.
func NewEmitter(sink Sink, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{sink: sink, logger: logger, nowFunc: time.Now}
}

// Emit fills ID and OccurredAt when empty and sends e.
func (em *Emitter) Emit(ctx context.Context, e Event) {
	if em == nil || em.sink == nil {
		return
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = em.nowFunc().UTC()
	}
	if err := em.sink.Send(ctx, e); err != nil {
		em.logger.WarnContext(ctx, "event publish failed",
			slog.String("event_type", string(e.Type)),
			slog.String("order_id", e.OrderID),
			slog.Any("error", err),
		)
	}
}

// Memory keeps events in a slice. Used by tests and RUN_LOCAL without a queue.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func (m *Memory) Send(ctx context.Context, e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

// Events returns a copy of everything sent so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// OfType filters Events by type.
func (m *Memory) OfType(t Type) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
