package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
	"github.com/imrishuroy/go-queue-orderflow/internal/orders"
)

const (
	eventIntentSucceeded = "payment_intent.succeeded"
	eventIntentFailed    = "payment_intent.payment_failed"
)

// ConfirmWebhook checks a Stripe delivery against the endpoint secret and
// applies payment_intent outcomes to the order named in the intent metadata.
// Only the order's current Stripe intent is confirmed. Events that do not
// concern an order return a nil Outcome so the delivery is acknowledged.
func (c *Coordinator) ConfirmWebhook(ctx context.Context, payload []byte, sigHeader string) (*Outcome, error) {
	if c.settings.EndpointSecret == "" {
		return nil, apperr.Unconfigured("stripe webhook secret is not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, c.settings.EndpointSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		c.logger.WarnContext(ctx, "webhook signature rejected", slog.Any("error", err))
		return nil, apperr.Invalid("webhook signature verification failed")
	}

	typ := string(event.Type)
	if typ != eventIntentSucceeded && typ != eventIntentFailed {
		c.logger.DebugContext(ctx, "webhook event ignored", slog.String("event_id", event.ID), slog.String("type", typ))
		return nil, nil
	}
	if event.Data == nil {
		return nil, apperr.Invalid("webhook event carries no data")
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, apperr.Invalid("webhook event is not a payment intent")
	}
	orderID := pi.Metadata["order_id"]
	if orderID == "" {
		c.logger.WarnContext(ctx, "payment intent has no order", slog.String("intent_id", pi.ID))
		return nil, nil
	}

	if typ == eventIntentFailed {
		return c.failIntent(ctx, orderID, pi.ID)
	}
	txnID := pi.ID
	if pi.LatestCharge != nil && pi.LatestCharge.ID != "" {
		txnID = pi.LatestCharge.ID
	}
	return c.confirm(ctx, confirmation{
		orderID:       orderID,
		intentID:      pi.ID,
		transactionID: txnID,
		method:        MethodStripe,
		known:         true,
	})
}

// failIntent marks the order's pending attempt FAILED when it is intentID.
// Anything else is stale and ignored.
func (c *Coordinator) failIntent(ctx context.Context, orderID, intentID string) (*Outcome, error) {
	out, err := c.commit(ctx, orderID, func(o orders.Order, cur *Payment, now time.Time) (*Payment, error) {
		if cur == nil || cur.Status != StatusPending || cur.GatewayOrderID != intentID {
			return nil, errIntentMismatch
		}
		p := *cur
		p.Status = StatusFailed
		return &p, nil
	})
	if errors.Is(err, errIntentMismatch) {
		c.logger.InfoContext(ctx, "stale intent failure ignored", slog.String("order_id", orderID), slog.String("intent_id", intentID))
		return nil, nil
	}
	return out, err
}
