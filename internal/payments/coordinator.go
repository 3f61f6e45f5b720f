// Package payments takes payment for orders, directly or through a gateway
// intent, and on success moves the order into the kitchen and issues its coupon.
package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
	"github.com/imrishuroy/go-queue-orderflow/internal/aws"
	"github.com/imrishuroy/go-queue-orderflow/internal/coupons"
	"github.com/imrishuroy/go-queue-orderflow/internal/events"
	"github.com/imrishuroy/go-queue-orderflow/internal/lock"
	"github.com/imrishuroy/go-queue-orderflow/internal/orders"
)

const maxCommitAttempts = 5

// ReasonVerificationFailed marks an Outcome whose signature did not check out.
const ReasonVerificationFailed = "verification_failed"

// GatewaySettings holds what the coordinator needs to talk to the gateway.
// WebhookSecret signs checkout confirmations; EndpointSecret verifies Stripe
// webhook deliveries.
type GatewaySettings struct {
	KeyID          string
	WebhookSecret  string
	EndpointSecret string
	Currency       string
	Timeout        time.Duration
}

// Config groups the coordinator's collaborators. Gateway may be nil when no
// gateway is configured; the intent flow then reports Unconfigured.
type Config struct {
	Client   aws.DynamoDBAPI
	Payments *Store
	Orders   *orders.Store
	Coupons  *coupons.Issuer
	Locks    *lock.Keyed
	Gateway  Gateway
	Settings GatewaySettings
	Events   *events.Emitter
	Logger   *slog.Logger
}

// Coordinator runs both payment flows.
type Coordinator struct {
	client   aws.DynamoDBAPI
	payments *Store
	orders   *orders.Store
	coupons  *coupons.Issuer
	locks    *lock.Keyed
	gateway  Gateway
	settings GatewaySettings
	events   *events.Emitter
	logger   *slog.Logger
	nowFunc  func() time.Time
	newID    func() string
	newTxnID func(now time.Time) string
}

func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Locks == nil {
		cfg.Locks = lock.NewKeyed()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Settings.Currency == "" {
		cfg.Settings.Currency = "INR"
	}
	if cfg.Settings.Timeout <= 0 {
		cfg.Settings.Timeout = 10 * time.Second
	}
	return &Coordinator{
		client:   cfg.Client,
		payments: cfg.Payments,
		orders:   cfg.Orders,
		coupons:  cfg.Coupons,
		locks:    cfg.Locks,
		gateway:  cfg.Gateway,
		settings: cfg.Settings,
		events:   cfg.Events,
		logger:   cfg.Logger,
		nowFunc:  time.Now,
		newID:    uuid.NewString,
		newTxnID: mockTransactionID,
	}
}

// CreatePayment records a direct payment. MOCK and RAZORPAY succeed at once and
// move the order to PREPARING with a coupon; any other method is stored FAILED.
// A second call after success returns the recorded payment.
func (c *Coordinator) CreatePayment(ctx context.Context, orderID, method string) (*Outcome, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		return nil, apperr.Invalid("payment method is required")
	}
	return c.commit(ctx, orderID, func(o orders.Order, cur *Payment, now time.Time) (*Payment, error) {
		if !autoSucceeds(method) {
			return &Payment{
				PaymentID:   c.newID(),
				OrderID:     o.OrderID,
				Status:      StatusFailed,
				Method:      method,
				Amount:      o.TotalAmount.MinorUnits(),
				Currency:    c.settings.Currency,
				PaymentTime: now,
			}, nil
		}
		return &Payment{
			PaymentID:     c.newID(),
			OrderID:       o.OrderID,
			Status:        StatusSuccess,
			Method:        method,
			TransactionID: c.newTxnID(now),
			Amount:        o.TotalAmount.MinorUnits(),
			Currency:      c.settings.Currency,
			PaymentTime:   now,
		}, nil
	})
}

// CreateIntent opens a gateway intent for the order total and records it as
// the order's PENDING attempt. The gateway call is bounded by the configured
// timeout and never retried here.
func (c *Coordinator) CreateIntent(ctx context.Context, orderID string) (*IntentResult, error) {
	if c.gateway == nil || c.settings.KeyID == "" {
		return nil, apperr.Unconfigured("payment gateway is not configured")
	}
	o, err := c.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	cur, err := c.payments.GetCurrent(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err, "could not load payment")
	}
	if cur != nil && cur.Status == StatusSuccess {
		return nil, apperr.InvalidTransition("order %s is already paid", orderID)
	}

	req := IntentRequest{
		Amount:   o.TotalAmount.MinorUnits(),
		Currency: c.settings.Currency,
		Receipt:  "rcpt_" + orderID,
		OrderID:  orderID,
	}
	callCtx, cancel := context.WithTimeout(ctx, c.settings.Timeout)
	intent, err := c.gateway.CreateIntent(callCtx, req)
	if err != nil {
		err = classifyGatewayError(callCtx, err)
		cancel()
		c.logger.WarnContext(ctx, "gateway intent failed",
			slog.String("order_id", orderID), slog.String("kind", string(apperr.KindOf(err))), slog.Any("error", err))
		return nil, err
	}
	cancel()

	if intent.Amount == 0 {
		intent.Amount = req.Amount
	}
	if intent.Currency == "" {
		intent.Currency = req.Currency
	}
	if intent.Method == "" {
		intent.Method = MethodRazorpay
	}

	out, err := c.commit(ctx, orderID, func(o orders.Order, cur *Payment, now time.Time) (*Payment, error) {
		p := Payment{
			PaymentID:   c.newID(),
			OrderID:     orderID,
			Status:      StatusPending,
			PaymentTime: now,
		}
		if cur != nil && cur.Status == StatusPending {
			p = *cur
		}
		p.Method = intent.Method
		p.GatewayOrderID = intent.ID
		p.TransactionID = ""
		p.Amount = intent.Amount
		p.Currency = intent.Currency
		return &p, nil
	})
	if err != nil {
		return nil, err
	}
	if out.Payment.Status == StatusSuccess {
		// paid while the gateway call was in flight
		return nil, apperr.InvalidTransition("order %s is already paid", orderID)
	}

	return &IntentResult{
		IntentID: intent.ID,
		Amount:   intent.Amount,
		Currency: intent.Currency,
		KeyID:    c.settings.KeyID,
		OrderID:  orderID,
	}, nil
}

// VerifyIntent checks the checkout signature and, when it matches, marks the
// payment SUCCESS, moves the order to PREPARING and issues its coupon in one
// transaction. A bad signature is not an error: the Outcome carries
// StatusFailed with ReasonVerificationFailed and nothing is written. Intents
// opened with Stripe are confirmed by ConfirmWebhook and rejected here.
func (c *Coordinator) VerifyIntent(ctx context.Context, orderID, gatewayOrderID, gatewayPaymentID, signature string) (*Outcome, error) {
	if c.settings.WebhookSecret == "" {
		return nil, apperr.Unconfigured("payment verification secret is not configured")
	}
	if !VerifySignature(gatewayOrderID, gatewayPaymentID, signature, c.settings.WebhookSecret) {
		c.logger.WarnContext(ctx, "payment signature mismatch", slog.String("order_id", orderID))
		return c.rejected(ctx, orderID)
	}
	return c.confirm(ctx, confirmation{
		orderID:       orderID,
		intentID:      gatewayOrderID,
		transactionID: gatewayPaymentID,
		method:        MethodRazorpay,
	})
}

// confirmation is an authenticated claim that an intent was paid.
type confirmation struct {
	orderID       string
	intentID      string
	transactionID string
	method        string
	// known requires the order's current attempt to be this intent.
	known bool
}

// confirm records a verified payment. A claim naming another intent, or one
// confirmed through a different scheme than it was opened with, is rejected.
func (c *Coordinator) confirm(ctx context.Context, cf confirmation) (*Outcome, error) {
	out, err := c.commit(ctx, cf.orderID, func(o orders.Order, cur *Payment, now time.Time) (*Payment, error) {
		if cf.known && (cur == nil || cur.GatewayOrderID == "") {
			return nil, errIntentMismatch
		}
		if cur != nil && cur.GatewayOrderID != "" && (cur.GatewayOrderID != cf.intentID || cur.Method != cf.method) {
			return nil, errIntentMismatch
		}
		p := Payment{
			PaymentID:   c.newID(),
			OrderID:     cf.orderID,
			Method:      cf.method,
			Amount:      o.TotalAmount.MinorUnits(),
			Currency:    c.settings.Currency,
			PaymentTime: now,
		}
		if cur != nil && cur.Status == StatusPending {
			p = *cur
			p.PaymentTime = now
		}
		p.Status = StatusSuccess
		p.TransactionID = cf.transactionID
		p.GatewayOrderID = cf.intentID
		return &p, nil
	})
	if errors.Is(err, errIntentMismatch) {
		c.logger.WarnContext(ctx, "confirmation for a different intent",
			slog.String("order_id", cf.orderID), slog.String("intent_id", cf.intentID), slog.String("method", cf.method))
		return c.rejected(ctx, cf.orderID)
	}
	return out, err
}

// GetPaymentByOrder returns the order's current attempt or NotFound.
func (c *Coordinator) GetPaymentByOrder(ctx context.Context, orderID string) (*Payment, error) {
	p, err := c.payments.GetCurrent(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err, "could not load payment")
	}
	if p == nil {
		return nil, apperr.NotFound("no payment for order %s", orderID)
	}
	return p, nil
}

var errIntentMismatch = errors.New("verification names a different intent")

func (c *Coordinator) rejected(ctx context.Context, orderID string) (*Outcome, error) {
	o, err := c.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &Outcome{
		Payment: Payment{OrderID: orderID, Status: StatusFailed},
		Order:   *o,
		Reason:  ReasonVerificationFailed,
	}, nil
}

// commit runs one payment mutation for an order under its lock. decide sees
// the order and the current attempt and returns the attempt to store. When the
// attempt is SUCCESS the order moves to PREPARING and the coupon is planned in
// the same transaction. If the order is already paid, the recorded outcome is
// returned and decide is not called.
func (c *Coordinator) commit(ctx context.Context, orderID string, decide func(o orders.Order, cur *Payment, now time.Time) (*Payment, error)) (*Outcome, error) {
	unlock := c.locks.Lock(orderID)
	defer unlock()

	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		o, err := c.loadOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		cur, err := c.payments.GetCurrent(ctx, orderID)
		if err != nil {
			return nil, apperr.Internal(err, "could not load payment")
		}
		if cur != nil && cur.Status == StatusSuccess {
			return &Outcome{Payment: *cur, Order: *o, CouponCode: o.CouponCode}, nil
		}

		now := c.nowFunc().UTC()
		p, err := decide(*o, cur, now)
		if err != nil {
			return nil, err
		}
		p.UpdatedAt = now

		next := *o
		var writes, couponWrites []types.TransactWriteItem
		var coupon coupons.Coupon
		if p.Status == StatusSuccess {
			if !o.Status.Active() {
				return nil, apperr.InvalidTransition("order %s is %s and cannot take payment", orderID, o.Status)
			}
			next, _, err = orders.Advance(*o, orders.StatusPreparing, now)
			if err != nil {
				return nil, err
			}
			coupon, couponWrites, err = c.coupons.Plan(ctx, next)
			if err != nil {
				return nil, err
			}
			next.CouponCode = coupon.Code
		}

		paymentWrites, err := c.payments.PutTx(*p, cur)
		if err != nil {
			return nil, apperr.Internal(err, "could not stage payment")
		}
		writes = append(writes, paymentWrites...)
		writes = append(writes, couponWrites...)
		stored := *o
		switch {
		case next.Status != o.Status || next.CouponCode != o.CouponCode:
			put, updated, err := c.orders.UpdateTx(next)
			if err != nil {
				return nil, apperr.Internal(err, "could not stage order")
			}
			writes = append(writes, put)
			stored = updated
		case p.Status == StatusSuccess:
			// order already PREPARING with its coupon; still pin its version
			writes = append(writes, c.orders.VersionCheckTx(*o))
		}

		err = aws.TransactWrite(ctx, c.client, writes...)
		if errors.Is(err, aws.ErrTransactionConflict) {
			c.logger.DebugContext(ctx, "payment commit conflict, retrying",
				slog.String("order_id", orderID), slog.Int("attempt", attempt), slog.Any("error", err))
			continue
		}
		if err != nil {
			return nil, apperr.Internal(err, "could not record payment")
		}

		c.announce(ctx, *o, stored, *p, len(couponWrites) > 0, coupon)
		return &Outcome{Payment: *p, Order: stored, CouponCode: stored.CouponCode}, nil
	}
	return nil, apperr.Internal(aws.ErrTransactionConflict, "order %s is changing too quickly, try again", orderID)
}

func (c *Coordinator) announce(ctx context.Context, before, after orders.Order, p Payment, newCoupon bool, coupon coupons.Coupon) {
	c.logger.InfoContext(ctx, "payment recorded",
		slog.String("order_id", p.OrderID),
		slog.String("payment_id", p.PaymentID),
		slog.String("status", string(p.Status)),
		slog.String("method", p.Method),
	)
	switch p.Status {
	case StatusSuccess:
		c.events.Emit(ctx, events.Event{
			Type:       events.PaymentSucceeded,
			OrderID:    p.OrderID,
			Status:     string(p.Status),
			Attributes: map[string]string{"payment_id": p.PaymentID, "method": p.Method},
		})
	case StatusFailed:
		c.events.Emit(ctx, events.Event{
			Type:       events.PaymentFailed,
			OrderID:    p.OrderID,
			Status:     string(p.Status),
			Attributes: map[string]string{"payment_id": p.PaymentID, "method": p.Method},
		})
	}
	if before.Status != after.Status {
		c.events.Emit(ctx, events.Event{
			Type:           events.OrderStatusChanged,
			OrderID:        after.OrderID,
			Status:         string(after.Status),
			PreviousStatus: string(before.Status),
		})
	}
	if newCoupon {
		c.coupons.Announce(ctx, coupon)
	}
}

func (c *Coordinator) loadOrder(ctx context.Context, orderID string) (*orders.Order, error) {
	o, err := c.orders.Get(ctx, orderID)
	if err != nil {
		return nil, apperr.Internal(err, "could not load order")
	}
	if o == nil {
		return nil, apperr.NotFound("order %s not found", orderID)
	}
	return o, nil
}

// mockTransactionID returns TXN-<unix millis>-<6 hex>.
func mockTransactionID(now time.Time) string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("TXN-%d", now.UnixMilli())
	}
	return fmt.Sprintf("TXN-%d-%s", now.UnixMilli(), strings.ToUpper(hex.EncodeToString(b)))
}
