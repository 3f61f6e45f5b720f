package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v81"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
)

func stripeTestGateway(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *StripeGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newStripeGateway("sk_test_123", &stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
}

func TestStripeGateway_CreateIntent(t *testing.T) {
	var form map[string][]string
	g := stripeTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payment_intents" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_3Nabc","object":"payment_intent","amount":8000,"currency":"inr","status":"requires_payment_method"}`))
	}, 2*time.Second)

	intent, err := g.CreateIntent(context.Background(), IntentRequest{
		Amount: 8000, Currency: "INR", Receipt: "rcpt_o-1", OrderID: "o-1",
	})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.ID != "pi_3Nabc" || intent.Amount != 8000 || intent.Currency != "INR" {
		t.Fatalf("unexpected intent %+v", intent)
	}
	if form.Get("amount") != "8000" || form.Get("currency") != "inr" || form.Get("metadata[receipt]") != "rcpt_o-1" {
		t.Fatalf("unexpected form %v", form)
	}
}

func TestStripeGateway_TimeoutIsClassified(t *testing.T) {
	g := stripeTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}, 50*time.Millisecond)

	ctx := context.Background()
	_, err := g.CreateIntent(ctx, IntentRequest{Amount: 100, Currency: "INR"})
	if err == nil {
		t.Fatal("expected timeout")
	}
	if got := classifyGatewayError(ctx, err); !apperr.IsKind(got, apperr.KindUpstreamTimeout) {
		t.Fatalf("expected upstream_timeout, got %v", got)
	}
}

func TestStripeGateway_APIErrorIsUpstreamError(t *testing.T) {
	g := stripeTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Amount must be at least 50"}}`))
	}, time.Second)

	ctx := context.Background()
	_, err := g.CreateIntent(ctx, IntentRequest{Amount: 1, Currency: "INR"})
	if got := classifyGatewayError(ctx, err); !apperr.IsKind(got, apperr.KindUpstreamError) {
		t.Fatalf("expected upstream_error, got %v", got)
	}
}
