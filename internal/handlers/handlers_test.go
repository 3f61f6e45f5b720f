package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/imrishuroy/go-queue-orderflow/internal/aws/awsmock"
	"github.com/imrishuroy/go-queue-orderflow/internal/catalog"
	"github.com/imrishuroy/go-queue-orderflow/internal/coupons"
	"github.com/imrishuroy/go-queue-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-queue-orderflow/internal/identity"
	"github.com/imrishuroy/go-queue-orderflow/internal/lock"
	"github.com/imrishuroy/go-queue-orderflow/internal/money"
	"github.com/imrishuroy/go-queue-orderflow/internal/orders"
	"github.com/imrishuroy/go-queue-orderflow/internal/payments"
)

const (
	webhookSecret  = "whsec_test"
	endpointSecret = "whsec_endpoint"
	jwtSecret      = "jwt_test"
)

type stubGateway struct {
	err    error
	n      int
	method string
}

func (g *stubGateway) CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error) {
	if g.err != nil {
		return payments.Intent{}, g.err
	}
	g.n++
	return payments.Intent{ID: "pi_" + req.OrderID, Method: g.method, Amount: req.Amount, Currency: req.Currency}, nil
}

type fixture struct {
	router  *gin.Engine
	db      *awsmock.Dynamo
	gateway *stubGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := awsmock.NewDynamo(map[string]string{
		"orders":      "order_id",
		"payments":    "pk",
		"coupons":     "pk",
		"idempotency": "idempotency_key",
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	locks := lock.NewKeyed()
	orderStore := orders.NewStore(db, "orders")

	engine := orders.NewEngine(orders.EngineConfig{
		Store: orderStore,
		Catalog: catalog.Static{
			"dosa": {ID: "dosa", Name: "Masala Dosa", Price: money.MustParse("50"), PrepMinutes: 5},
			"chai": {ID: "chai", Name: "Chai", Price: money.MustParse("30"), PrepMinutes: 7},
		},
		Users: identity.Static{
			"u-1": {ID: "u-1", Username: "asha"},
			"u-2": {ID: "u-2", Username: "ravi"},
		},
		Locks:  locks,
		Logger: logger,
	})
	issuer := coupons.NewIssuer(coupons.IssuerConfig{
		Client:  db,
		Coupons: coupons.NewStore(db, "coupons", nil, logger),
		Orders:  orderStore,
		Locks:   locks,
		Logger:  logger,
	})
	gw := &stubGateway{}
	coord := payments.NewCoordinator(payments.Config{
		Client:   db,
		Payments: payments.NewStore(db, "payments"),
		Orders:   orderStore,
		Coupons:  issuer,
		Locks:    locks,
		Gateway:  gw,
		Settings: payments.GatewaySettings{
			KeyID:          "key_test",
			WebhookSecret:  webhookSecret,
			EndpointSecret: endpointSecret,
			Timeout:        time.Second,
		},
		Logger: logger,
	})

	reg := prometheus.NewRegistry()
	r := API(Config{
		Engine:      engine,
		Payments:    coord,
		Coupons:     issuer,
		Idempotency: idempotency.NewStore(db, "idempotency", time.Hour),
		JWTSecret:   jwtSecret,
		Metrics:     NewServerMetrics("queue", "api", reg),
		Gatherer:    reg,
		Logger:      logger,
	})
	return &fixture{router: r, db: db, gateway: gw}
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func (f *fixture) placeOrder(t *testing.T, customer string) orders.Order {
	t.Helper()
	w := f.do(t, http.MethodPost, "/orders", gin.H{"customerId": customer, "itemIds": []string{"dosa", "chai"}}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("place order: %d %s", w.Code, w.Body.String())
	}
	return decode[orders.Order](t, w)
}

func bearer(t *testing.T, subject string) map[string]string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: subject}).SignedString([]byte(jwtSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + tok}
}

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retriable bool   `json:"retriable"`
}

func TestPayAndIssueCoupon(t *testing.T) {
	f := newFixture(t)

	o := f.placeOrder(t, "u-1")
	if o.Status != orders.StatusPlaced || !o.TotalAmount.Equal(money.FromInt(80)) {
		t.Fatalf("unexpected order: %+v", o)
	}

	w := f.do(t, http.MethodPost, "/payments/intent", gin.H{"orderId": o.OrderID}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("intent: %d %s", w.Code, w.Body.String())
	}
	intent := decode[payments.IntentResult](t, w)
	if intent.Amount != 8000 || intent.KeyID != "key_test" || intent.OrderID != o.OrderID {
		t.Fatalf("unexpected intent: %+v", intent)
	}

	verify := gin.H{
		"orderId":          o.OrderID,
		"gatewayOrderId":   intent.IntentID,
		"gatewayPaymentId": "pay_1",
		"signature":        payments.Sign(intent.IntentID, "pay_1", webhookSecret),
	}
	w = f.do(t, http.MethodPost, "/payments/verify", verify, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: %d %s", w.Code, w.Body.String())
	}
	first := decode[paymentResponse](t, w)
	if first.PaymentStatus != payments.StatusSuccess || first.CouponCode == "" || first.TransactionID != "pay_1" {
		t.Fatalf("unexpected verify response: %+v", first)
	}
	if first.OrderSummary.Status != orders.StatusPreparing {
		t.Fatalf("order should be PREPARING, got %s", first.OrderSummary.Status)
	}

	w = f.do(t, http.MethodPost, "/payments/verify", verify, nil)
	again := decode[paymentResponse](t, w)
	if w.Code != http.StatusOK || again.CouponCode != first.CouponCode || again.PaymentStatus != payments.StatusSuccess {
		t.Fatalf("re-verify changed the outcome: %d %+v", w.Code, again)
	}

	w = f.do(t, http.MethodGet, "/coupons/order/"+o.OrderID, nil, nil)
	if cp := decode[coupons.Coupon](t, w); w.Code != http.StatusOK || cp.Code != first.CouponCode {
		t.Fatalf("coupon by order: %d %+v", w.Code, cp)
	}
	w = f.do(t, http.MethodGet, "/coupons/"+first.CouponCode, nil, nil)
	if cp := decode[coupons.Coupon](t, w); w.Code != http.StatusOK || cp.OrderID != o.OrderID {
		t.Fatalf("coupon by code: %d %+v", w.Code, cp)
	}
	w = f.do(t, http.MethodGet, "/payments/order/"+o.OrderID, nil, nil)
	if p := decode[payments.Payment](t, w); w.Code != http.StatusOK || p.Status != payments.StatusSuccess {
		t.Fatalf("payment by order: %d %+v", w.Code, p)
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	f := newFixture(t)
	o := f.placeOrder(t, "u-1")

	w := f.do(t, http.MethodPost, "/payments/verify", gin.H{
		"orderId":          o.OrderID,
		"gatewayOrderId":   "pi_x",
		"gatewayPaymentId": "pay_1",
		"signature":        payments.Sign("pi_x", "pay_1", "wrong-secret"),
	}, nil)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d %s", w.Code, w.Body.String())
	}
	resp := decode[paymentResponse](t, w)
	if resp.PaymentStatus != payments.StatusFailed || resp.Error != payments.ReasonVerificationFailed || resp.CouponCode != "" {
		t.Fatalf("unexpected rejection: %+v", resp)
	}

	w = f.do(t, http.MethodGet, "/coupons/order/"+o.OrderID, nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("no coupon expected, got %d", w.Code)
	}
}

func TestVerifyRejectsNonHexSignature(t *testing.T) {
	f := newFixture(t)
	o := f.placeOrder(t, "u-1")

	sig := []byte(payments.Sign("pi_"+o.OrderID, "pay_1", webhookSecret))
	sig[0] = 'z'
	w := f.do(t, http.MethodPost, "/payments/verify", gin.H{
		"orderId":          o.OrderID,
		"gatewayOrderId":   "pi_" + o.OrderID,
		"gatewayPaymentId": "pay_1",
		"signature":        string(sig),
	}, nil)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d %s", w.Code, w.Body.String())
	}
	resp := decode[paymentResponse](t, w)
	if resp.PaymentStatus != payments.StatusFailed || resp.Error != payments.ReasonVerificationFailed {
		t.Fatalf("unexpected rejection: %+v", resp)
	}

	if resp.OrderSummary.Status != orders.StatusPlaced {
		t.Fatalf("order moved to %s on a rejected signature", resp.OrderSummary.Status)
	}
}

func (f *fixture) deliver(t *testing.T, typ, secret, intentID, orderID string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(gin.H{
		"id":     "evt_1",
		"object": "event",
		"type":   typ,
		"data": gin.H{"object": gin.H{
			"id":       intentID,
			"object":   "payment_intent",
			"metadata": gin.H{"order_id": orderID},
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret})
	req := httptest.NewRequest(http.MethodPost, "/payments/webhook", bytes.NewReader(signed.Payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestStripeWebhookConfirmsIntent(t *testing.T) {
	f := newFixture(t)
	f.gateway.method = payments.MethodStripe
	o := f.placeOrder(t, "u-1")

	w := f.do(t, http.MethodPost, "/payments/intent", gin.H{"orderId": o.OrderID}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("intent: %d %s", w.Code, w.Body.String())
	}
	intent := decode[payments.IntentResult](t, w)

	if w := f.deliver(t, "payment_intent.succeeded", "whsec_wrong", intent.IntentID, o.OrderID); w.Code != http.StatusBadRequest {
		t.Fatalf("bad signature: expected 400, got %d %s", w.Code, w.Body.String())
	}
	if w := f.deliver(t, "customer.created", endpointSecret, intent.IntentID, o.OrderID); w.Code != http.StatusOK {
		t.Fatalf("ignored event: expected 200, got %d", w.Code)
	} else if resp := decode[webhookResponse](t, w); !resp.Received || resp.PaymentStatus != "" {
		t.Fatalf("ignored event body: %+v", resp)
	}

	w = f.deliver(t, "payment_intent.succeeded", endpointSecret, intent.IntentID, o.OrderID)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook: %d %s", w.Code, w.Body.String())
	}
	resp := decode[webhookResponse](t, w)
	if resp.PaymentStatus != payments.StatusSuccess || resp.CouponCode == "" || resp.OrderID != o.OrderID {
		t.Fatalf("unexpected webhook response: %+v", resp)
	}

	w = f.do(t, http.MethodGet, "/payments/order/"+o.OrderID, nil, nil)
	if p := decode[payments.Payment](t, w); p.Method != payments.MethodStripe || p.TransactionID != intent.IntentID {
		t.Fatalf("payment by order: %+v", p)
	}
	w = f.do(t, http.MethodGet, "/orders/"+o.OrderID, nil, nil)
	if got := decode[orders.Order](t, w); got.Status != orders.StatusPreparing || got.CouponCode != resp.CouponCode {
		t.Fatalf("order after webhook: %+v", got)
	}
}

func TestIntentGatewayTimeoutIsRetriable(t *testing.T) {
	f := newFixture(t)
	o := f.placeOrder(t, "u-1")
	f.gateway.err = context.DeadlineExceeded

	w := f.do(t, http.MethodPost, "/payments/intent", gin.H{"orderId": o.OrderID}, nil)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d %s", w.Code, w.Body.String())
	}
	body := decode[errorBody](t, w)
	if body.Error != "upstream_timeout" || !body.Retriable {
		t.Fatalf("unexpected body: %+v", body)
	}
	if strings.Contains(w.Body.String(), "deadline") {
		t.Fatalf("cause leaked to client: %s", w.Body.String())
	}
}

func TestPlaceOrderIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	body := gin.H{"customerId": "u-1", "itemIds": []string{"dosa"}}
	key := map[string]string{"Idempotency-Key": "k-1"}

	w1 := f.do(t, http.MethodPost, "/orders", body, key)
	if w1.Code != http.StatusCreated {
		t.Fatalf("first: %d %s", w1.Code, w1.Body.String())
	}
	w2 := f.do(t, http.MethodPost, "/orders", body, key)
	if w2.Code != http.StatusCreated || w2.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay, got %d headers=%v", w2.Code, w2.Header())
	}
	if decode[orders.Order](t, w1).OrderID != decode[orders.Order](t, w2).OrderID {
		t.Fatal("replay returned a different order")
	}
	if n := f.db.Len("orders"); n != 1 {
		t.Fatalf("expected 1 stored order, got %d", n)
	}

	w3 := f.do(t, http.MethodPost, "/orders", gin.H{"customerId": "u-1", "itemIds": []string{"chai"}}, key)
	if w3.Code != http.StatusBadRequest {
		t.Fatalf("reused key with another body: expected 400, got %d", w3.Code)
	}

	// without a key every call creates an order
	f.do(t, http.MethodPost, "/orders", body, nil)
	f.do(t, http.MethodPost, "/orders", body, nil)
	if n := f.db.Len("orders"); n != 3 {
		t.Fatalf("expected 3 stored orders, got %d", n)
	}
}

func TestIdempotencyKeyReleasedAfterPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := awsmock.NewDynamo(map[string]string{"idempotency": "idempotency_key"})
	store := idempotency.NewStore(db, "idempotency", time.Hour)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	calls := 0
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/things", Idempotent(store, logger), func(c *gin.Context) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		c.JSON(http.StatusCreated, gin.H{"n": calls})
	})
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/things", strings.NewReader(`{"a":1}`))
		req.Header.Set(idempotencyHeader, "k-panic")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := send(); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from recovery, got %d", w.Code)
	}
	rec, err := store.Get(context.Background(), "k-panic")
	if err != nil || rec == nil || rec.Status != idempotency.StatusFailed {
		t.Fatalf("key after panic = %+v, %v", rec, err)
	}

	w := send()
	if w.Code != http.StatusCreated || calls != 2 {
		t.Fatalf("retry should run the handler again: %d calls=%d", w.Code, calls)
	}
	if w = send(); w.Header().Get("Idempotent-Replayed") != "true" || calls != 2 {
		t.Fatalf("third call should replay: %v calls=%d", w.Header(), calls)
	}
}

func TestCreatePaymentIdempotencyKey(t *testing.T) {
	f := newFixture(t)
	o := f.placeOrder(t, "u-1")
	key := map[string]string{"Idempotency-Key": "pay-1"}
	body := gin.H{"orderId": o.OrderID, "method": "mock"}

	w1 := f.do(t, http.MethodPost, "/payments", body, key)
	w2 := f.do(t, http.MethodPost, "/payments", body, key)
	if w1.Code != http.StatusCreated || w2.Code != http.StatusCreated {
		t.Fatalf("codes: %d %d", w1.Code, w2.Code)
	}
	r1, r2 := decode[paymentResponse](t, w1), decode[paymentResponse](t, w2)
	if r1.PaymentStatus != payments.StatusSuccess || r1.PaymentID != r2.PaymentID || r1.CouponCode != r2.CouponCode {
		t.Fatalf("replay mismatch: %+v vs %+v", r1, r2)
	}
	if !strings.HasPrefix(r1.TransactionID, "TXN-") {
		t.Fatalf("unexpected transaction id %q", r1.TransactionID)
	}
}

func TestCancelOwnOrder(t *testing.T) {
	f := newFixture(t)
	o := f.placeOrder(t, "u-1")
	path := "/orders/" + o.OrderID + "/cancel"

	if w := f.do(t, http.MethodPost, path, nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, path, nil, map[string]string{"Authorization": "Bearer garbage"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPost, path, nil, bearer(t, "u-2")); w.Code != http.StatusForbidden {
		t.Fatalf("other user: expected 403, got %d", w.Code)
	}

	w := f.do(t, http.MethodPost, path, nil, bearer(t, "u-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("owner cancel: %d %s", w.Code, w.Body.String())
	}
	got := decode[orders.Order](t, w)
	if got.Status != orders.StatusCancelled || got.CompletedTime == nil {
		t.Fatalf("unexpected cancelled order: %+v", got)
	}

	w = f.do(t, http.MethodPost, path, nil, bearer(t, "u-1"))
	if w.Code != http.StatusConflict || decode[errorBody](t, w).Error != "invalid_transition" {
		t.Fatalf("second cancel: %d %s", w.Code, w.Body.String())
	}
}

func TestStatusUpdatesAndQueue(t *testing.T) {
	f := newFixture(t)
	a := f.placeOrder(t, "u-1")
	b := f.placeOrder(t, "u-2")

	w := f.do(t, http.MethodGet, "/orders/queue-size", nil, nil)
	if got := decode[map[string]int](t, w)["queueSize"]; got != 2 {
		t.Fatalf("queue size: %d", got)
	}

	if w := f.do(t, http.MethodPut, "/orders/"+a.OrderID+"/status", gin.H{"status": "SHIPPED"}, nil); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown status: expected 400, got %d", w.Code)
	}
	if w := f.do(t, http.MethodPut, "/orders/"+a.OrderID+"/status", gin.H{"status": "READY"}, nil); w.Code != http.StatusConflict {
		t.Fatalf("PLACED -> READY: expected 409, got %d", w.Code)
	}
	for _, s := range []string{"PREPARING", "READY"} {
		w := f.do(t, http.MethodPut, "/orders/"+a.OrderID+"/status", gin.H{"status": s}, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("-> %s: %d %s", s, w.Code, w.Body.String())
		}
	}

	w = f.do(t, http.MethodGet, "/orders/queue-size", nil, nil)
	if got := decode[map[string]int](t, w)["queueSize"]; got != 1 {
		t.Fatalf("queue size after READY: %d", got)
	}

	w = f.do(t, http.MethodGet, "/orders/"+b.OrderID+"/wait-time", nil, nil)
	wait := decode[struct {
		OrderID string `json:"orderId"`
		Minutes int    `json:"estimatedWaitMinutes"`
	}](t, w)
	if wait.OrderID != b.OrderID || wait.Minutes != 12 {
		t.Fatalf("wait time: %+v", wait)
	}
	w = f.do(t, http.MethodGet, "/orders/"+a.OrderID+"/wait-time", nil, nil)
	if got := decode[map[string]any](t, w)["estimatedWaitMinutes"]; got != float64(0) {
		t.Fatalf("READY order should wait 0, got %v", got)
	}
	if w := f.do(t, http.MethodGet, "/orders/missing/wait-time", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("missing order: expected 404, got %d", w.Code)
	}
}

func TestReadPaths(t *testing.T) {
	f := newFixture(t)
	a := f.placeOrder(t, "u-1")
	f.placeOrder(t, "u-2")

	w := f.do(t, http.MethodGet, "/orders/"+a.OrderID, nil, nil)
	if got := decode[orders.Order](t, w); w.Code != http.StatusOK || got.OrderID != a.OrderID || len(got.Items) != 2 {
		t.Fatalf("get order: %d %+v", w.Code, got)
	}
	if w := f.do(t, http.MethodGet, "/orders/nope", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("get missing: %d", w.Code)
	}

	w = f.do(t, http.MethodGet, "/orders/user/u-1", nil, nil)
	if list := decode[[]orders.Order](t, w); len(list) != 1 || list[0].OrderID != a.OrderID {
		t.Fatalf("by user: %+v", list)
	}
	w = f.do(t, http.MethodGet, "/orders/user/nobody", nil, nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("empty list should render [], got %s", w.Body.String())
	}
	w = f.do(t, http.MethodGet, "/orders", nil, nil)
	if list := decode[[]orders.Order](t, w); len(list) != 2 {
		t.Fatalf("all orders: %d", len(list))
	}

	if w := f.do(t, http.MethodGet, "/payments/order/"+a.OrderID, nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("payment before paying: %d", w.Code)
	}
	if w := f.do(t, http.MethodGet, "/coupons/NOPE", nil, nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown coupon: %d", w.Code)
	}
}

func TestPlaceOrderErrors(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/orders", gin.H{"customerId": "u-1", "itemIds": []string{}}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty items: %d", w.Code)
	}
	w = f.do(t, http.MethodPost, "/orders", gin.H{"customerId": "u-1", "itemIds": []string{"pizza"}}, nil)
	if w.Code != http.StatusNotFound || decode[errorBody](t, w).Error != "not_found" {
		t.Fatalf("unknown item: %d %s", w.Code, w.Body.String())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK || w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("health: %d %v", w.Code, w.Header())
	}
	f.do(t, http.MethodGet, "/orders/queue-size", nil, nil)

	w = f.do(t, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `queue_api_http_requests_total{handler="/orders/queue-size",status="200"} 1`) {
		t.Fatalf("request counter missing:\n%s", w.Body.String())
	}
}
