// Package coupons issues the one redemption code a paid order receives.
package coupons

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
	"github.com/imrishuroy/go-queue-orderflow/internal/aws"
	"github.com/imrishuroy/go-queue-orderflow/internal/events"
	"github.com/imrishuroy/go-queue-orderflow/internal/lock"
	"github.com/imrishuroy/go-queue-orderflow/internal/orders"
)

const maxIssueAttempts = 5

// IssuerConfig groups the issuer's collaborators.
type IssuerConfig struct {
	Client    aws.DynamoDBAPI
	Coupons   *Store
	Orders    *orders.Store
	Locks     *lock.Keyed
	Generator Generator
	Prefix    string
	Events    *events.Emitter
	Logger    *slog.Logger
}

// Issuer creates coupons idempotently: an order gets at most one code, ever.
type Issuer struct {
	client  aws.DynamoDBAPI
	coupons *Store
	orders  *orders.Store
	locks   *lock.Keyed
	gen     Generator
	prefix  string
	events  *events.Emitter
	logger  *slog.Logger
	nowFunc func() time.Time
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	if cfg.Generator == nil {
		cfg.Generator = NewRandGenerator()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "CPN"
	}
	if cfg.Locks == nil {
		cfg.Locks = lock.NewKeyed()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Issuer{
		client:  cfg.Client,
		coupons: cfg.Coupons,
		orders:  cfg.Orders,
		locks:   cfg.Locks,
		gen:     cfg.Generator,
		prefix:  cfg.Prefix,
		events:  cfg.Events,
		logger:  cfg.Logger,
		nowFunc: time.Now,
	}
}

// Plan returns the coupon for o and the writes that would create it. When the
// order already has a coupon, the existing one comes back with no writes. The
// caller commits the writes in its own transaction together with an order put
// carrying CouponCode, and must hold the order's lock.
func (i *Issuer) Plan(ctx context.Context, o orders.Order) (Coupon, []types.TransactWriteItem, error) {
	existing, err := i.coupons.GetByOrder(ctx, o.OrderID)
	if err != nil {
		return Coupon{}, nil, apperr.Internal(err, "could not load coupon")
	}
	if existing != nil {
		return *existing, nil, nil
	}
	suffix, err := i.gen.Suffix()
	if err != nil {
		return Coupon{}, nil, apperr.Internal(err, "could not generate coupon code")
	}
	c := Coupon{
		Code:      FormatCode(i.prefix, o.OrderID, suffix),
		OrderID:   o.OrderID,
		CreatedAt: i.nowFunc().UTC(),
	}
	items, err := i.coupons.PutTx(c)
	if err != nil {
		return Coupon{}, nil, apperr.Internal(err, "could not stage coupon")
	}
	return c, items, nil
}

// IssueForOrder returns the order's coupon, creating it on first call. The
// coupon and the order's CouponCode are written in one transaction.
func (i *Issuer) IssueForOrder(ctx context.Context, orderID string) (*Coupon, error) {
	unlock := i.locks.Lock(orderID)
	defer unlock()

	for attempt := 1; attempt <= maxIssueAttempts; attempt++ {
		o, err := i.orders.Get(ctx, orderID)
		if err != nil {
			return nil, apperr.Internal(err, "could not load order")
		}
		if o == nil {
			return nil, apperr.NotFound("order %s not found", orderID)
		}
		c, writes, err := i.Plan(ctx, *o)
		if err != nil {
			return nil, err
		}
		if len(writes) == 0 {
			return &c, nil
		}

		o.CouponCode = c.Code
		put, _, err := i.orders.UpdateTx(*o)
		if err != nil {
			return nil, apperr.Internal(err, "could not stage order")
		}
		err = aws.TransactWrite(ctx, i.client, append(writes, put)...)
		if errors.Is(err, aws.ErrTransactionConflict) {
			// code collision, a concurrent issuer, or an order version race
			i.logger.DebugContext(ctx, "coupon issue conflict, retrying",
				slog.String("order_id", orderID), slog.Int("attempt", attempt), slog.Any("error", err))
			continue
		}
		if err != nil {
			return nil, apperr.Internal(err, "could not store coupon")
		}
		i.Announce(ctx, c)
		return &c, nil
	}
	return nil, apperr.Internal(aws.ErrTransactionConflict, "could not issue coupon for order %s, try again", orderID)
}

// Announce logs and emits a newly committed coupon.
func (i *Issuer) Announce(ctx context.Context, c Coupon) {
	i.logger.InfoContext(ctx, "coupon issued", slog.String("order_id", c.OrderID), slog.String("coupon_code", c.Code))
	i.events.Emit(ctx, events.Event{
		Type:       events.CouponIssued,
		OrderID:    c.OrderID,
		Attributes: map[string]string{"coupon_code": c.Code},
	})
}

// GetByOrder returns (nil, nil) when the order has no coupon yet.
func (i *Issuer) GetByOrder(ctx context.Context, orderID string) (*Coupon, error) {
	c, err := i.coupons.GetByOrder(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err, "could not load coupon")
	}
	return c, nil
}

// GetByCode returns (nil, nil) for unknown codes.
func (i *Issuer) GetByCode(ctx context.Context, code string) (*Coupon, error) {
	c, err := i.coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, apperr.Internal(err, "could not load coupon")
	}
	return c, nil
}
