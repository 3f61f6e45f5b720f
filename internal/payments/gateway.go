package payments

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
)

// IntentRequest asks the gateway to open a payment intent.
type IntentRequest struct {
	Amount   int64 // minor units
	Currency string
	Receipt  string
	OrderID  string
}

// Intent is the gateway's record of an in-progress payment. Method names the
// scheme that later confirms it; empty means a signed checkout (RAZORPAY).
type Intent struct {
	ID       string
	Method   string
	Amount   int64
	Currency string
}

// Gateway creates payment intents with an external provider.
type Gateway interface {
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)
}

// StripeGateway creates Stripe PaymentIntents.
type StripeGateway struct {
	api *client.API
}

// NewStripeGateway builds a client whose HTTP timeout matches timeout. The SDK's
// own network retries are off: a retried create could open a second intent.
func NewStripeGateway(secretKey string, timeout time.Duration) *StripeGateway {
	return newStripeGateway(secretKey, &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
	})
}

func newStripeGateway(secretKey string, cfg *stripe.BackendConfig) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, cfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, cfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, cfg),
	})
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Receipt),
	}
	params.Context = ctx
	params.AddMetadata("receipt", req.Receipt)
	params.AddMetadata("order_id", req.OrderID)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, err
	}
	return Intent{
		ID:       pi.ID,
		Method:   MethodStripe,
		Amount:   pi.Amount,
		Currency: strings.ToUpper(string(pi.Currency)),
	}, nil
}

// classifyGatewayError maps a failed gateway call to UpstreamTimeout or
// UpstreamError. Provider detail stays in the wrapped cause.
func classifyGatewayError(ctx context.Context, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return apperr.UpstreamTimeout(err, "payment gateway did not answer in time, try again")
	}
	return apperr.UpstreamError(err, "payment gateway rejected the request")
}
