// Package orders owns the order lifecycle: placement, the status state machine,
// and the read paths over the kitchen queue.
package orders

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
	"github.com/imrishuroy/go-queue-orderflow/internal/catalog"
	"github.com/imrishuroy/go-queue-orderflow/internal/events"
	"github.com/imrishuroy/go-queue-orderflow/internal/identity"
	"github.com/imrishuroy/go-queue-orderflow/internal/lock"
	"github.com/imrishuroy/go-queue-orderflow/internal/money"
)

// MaxWriteAttempts bounds how often a mutation re-reads after losing a version race.
const MaxWriteAttempts = 5

// EngineConfig groups the engine's collaborators.
type EngineConfig struct {
	Store   *Store
	Catalog catalog.Catalog
	Users   identity.Directory
	Locks   *lock.Keyed
	Events  *events.Emitter
	Logger  *slog.Logger
}

// Engine applies lifecycle operations to stored orders.
type Engine struct {
	store   *Store
	catalog catalog.Catalog
	users   identity.Directory
	locks   *lock.Keyed
	events  *events.Emitter
	logger  *slog.Logger
	nowFunc func() time.Time
	newID   func() string
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Locks == nil {
		cfg.Locks = lock.NewKeyed()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:   cfg.Store,
		catalog: cfg.Catalog,
		users:   cfg.Users,
		locks:   cfg.Locks,
		events:  cfg.Events,
		logger:  cfg.Logger,
		nowFunc: time.Now,
		newID:   uuid.NewString,
	}
}

// PlaceOrder resolves itemIDs through the catalog and stores a PLACED order.
func (e *Engine) PlaceOrder(ctx context.Context, customerID string, itemIDs []string) (*Order, error) {
	if customerID == "" {
		return nil, apperr.Invalid("customer id is required")
	}
	if len(itemIDs) == 0 {
		return nil, apperr.Invalid("an order needs at least one item")
	}
	items, err := e.catalog.ResolveItems(ctx, itemIDs)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, err
		}
		return nil, apperr.Internal(err, "could not resolve menu items")
	}

	lines := make([]Line, 0, len(items))
	prices := make([]money.Amount, 0, len(items))
	for _, it := range items {
		lines = append(lines, Line{ItemID: it.ID, Name: it.Name, Price: it.Price, PrepMinutes: it.PrepMinutes})
		prices = append(prices, it.Price)
	}
	o := Order{
		OrderID:     e.newID(),
		CustomerID:  customerID,
		Items:       lines,
		TotalAmount: money.Sum(prices...),
		Status:      StatusPlaced,
		OrderTime:   e.nowFunc().UTC(),
	}
	created, err := e.store.Create(ctx, o)
	if err != nil {
		return nil, apperr.Internal(err, "could not store order")
	}

	e.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", created.OrderID),
		slog.String("customer_id", customerID),
		slog.Int("items", len(lines)),
		slog.String("total", created.TotalAmount.String()),
	)
	e.events.Emit(ctx, events.Event{
		Type:    events.OrderPlaced,
		OrderID: created.OrderID,
		Status:  string(created.Status),
		Attributes: map[string]string{
			"customer_id":  customerID,
			"total_amount": created.TotalAmount.String(),
		},
	})
	return &created, nil
}

// GetOrder returns the order or NotFound.
func (e *Engine) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := e.store.Get(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err, "could not load order")
	}
	if o == nil {
		return nil, apperr.NotFound("order %s not found", orderID)
	}
	return o, nil
}

// ListOrdersByUser returns a customer's orders, newest first.
func (e *Engine) ListOrdersByUser(ctx context.Context, customerID string) ([]Order, error) {
	all, err := e.store.Scan(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "could not list orders")
	}
	out := make([]Order, 0)
	for _, o := range all {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	newestFirst(out)
	return out, nil
}

// ListAllOrders returns every order, newest first.
func (e *Engine) ListAllOrders(ctx context.Context) ([]Order, error) {
	all, err := e.store.Scan(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "could not list orders")
	}
	if all == nil {
		all = []Order{}
	}
	newestFirst(all)
	return all, nil
}

// TransitionStatus is the staff path: any edge of the lifecycle graph is allowed,
// payment state is not consulted. Moving to the current status returns the order unchanged.
func (e *Engine) TransitionStatus(ctx context.Context, orderID string, to Status) (*Order, error) {
	if _, ok := transitions[to]; !ok {
		return nil, apperr.Invalid("unknown order status %q", to)
	}
	return e.mutate(ctx, orderID, func(o Order, now time.Time) (Order, bool, error) {
		return Advance(o, to, now)
	})
}

// CancelOwnOrder lets the customer who placed an order cancel it while it is still PLACED.
func (e *Engine) CancelOwnOrder(ctx context.Context, orderID, requesterID string) (*Order, error) {
	return e.mutate(ctx, orderID, func(o Order, now time.Time) (Order, bool, error) {
		u, err := e.users.ResolveUser(ctx, requesterID)
		if err != nil {
			return o, false, apperr.Internal(err, "could not resolve requester")
		}
		if u == nil || u.ID != o.CustomerID {
			return o, false, apperr.Unauthorized("not allowed to cancel order %s", o.OrderID)
		}
		if o.Status != StatusPlaced {
			return o, false, apperr.InvalidTransition("order %s is %s; only PLACED orders can be cancelled", o.OrderID, o.Status)
		}
		return Advance(o, StatusCancelled, now)
	})
}

// EstimatedWaitTime returns the prep-minute sum of every active order up to and
// including orderID. Inactive orders wait 0.
func (e *Engine) EstimatedWaitTime(ctx context.Context, orderID string) (int, error) {
	target, err := e.GetOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	if !target.Status.Active() {
		return 0, nil
	}
	all, err := e.store.Scan(ctx)
	if err != nil {
		return 0, apperr.Internal(err, "could not scan orders")
	}
	return WaitMinutes(WithTarget(ActiveQueue(all), *target), orderID), nil
}

// QueueSize counts active orders.
func (e *Engine) QueueSize(ctx context.Context) (int, error) {
	stats, err := e.QueueStats(ctx)
	if err != nil {
		return 0, err
	}
	return stats.Active, nil
}

// QueueStats is one scan's view of the kitchen queue.
type QueueStats struct {
	Active          int
	TailWaitMinutes int
}

// QueueStats scans once and reports the queue length and the wait of its last order.
func (e *Engine) QueueStats(ctx context.Context) (QueueStats, error) {
	all, err := e.store.Scan(ctx)
	if err != nil {
		return QueueStats{}, apperr.Internal(err, "could not scan orders")
	}
	q := ActiveQueue(all)
	return QueueStats{Active: len(q), TailWaitMinutes: TailWaitMinutes(q)}, nil
}

// mutate runs fn under the order's lock and stores its result with a version
// check, re-reading when another process won the race.
func (e *Engine) mutate(ctx context.Context, orderID string, fn func(o Order, now time.Time) (Order, bool, error)) (*Order, error) {
	unlock := e.locks.Lock(orderID)
	defer unlock()

	for attempt := 1; attempt <= MaxWriteAttempts; attempt++ {
		cur, err := e.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		next, changed, err := fn(*cur, e.nowFunc().UTC())
		if err != nil {
			return nil, err
		}
		if !changed {
			return cur, nil
		}
		stored, err := e.store.Update(ctx, next)
		if errors.Is(err, ErrVersionMismatch) {
			e.logger.DebugContext(ctx, "order version race, retrying",
				slog.String("order_id", orderID), slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, apperr.Internal(err, "could not update order")
		}

		e.logger.InfoContext(ctx, "order status changed",
			slog.String("order_id", orderID),
			slog.String("from", string(cur.Status)),
			slog.String("status", string(stored.Status)),
		)
		e.events.Emit(ctx, events.Event{
			Type:           events.OrderStatusChanged,
			OrderID:        orderID,
			Status:         string(stored.Status),
			PreviousStatus: string(cur.Status),
		})
		return &stored, nil
	}
	return nil, apperr.Internal(ErrVersionMismatch, "order %s is changing too quickly, try again", orderID)
}

func newestFirst(list []Order) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].OrderTime.Equal(list[j].OrderTime) {
			return list[i].OrderTime.After(list[j].OrderTime)
		}
		return list[i].OrderID > list[j].OrderID
	})
}
