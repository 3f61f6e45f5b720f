package payments

import (
	"strings"
	"time"

	"github.com/imrishuroy/go-queue-orderflow/internal/money"
	"github.com/imrishuroy/go-queue-orderflow/internal/orders"
)

// Status of one payment attempt. It only ever moves PENDING -> SUCCESS or PENDING -> FAILED.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

const (
	MethodMock     = "MOCK"
	MethodRazorpay = "RAZORPAY"
	MethodStripe   = "STRIPE"
)

// autoSucceeds reports whether a direct payment with method succeeds without a gateway round trip.
func autoSucceeds(method string) bool {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case MethodMock, MethodRazorpay:
		return true
	}
	return false
}

// Payment is one attempt to pay for an order.
type Payment struct {
	PaymentID      string    `dynamodbav:"payment_id" json:"paymentId"`
	OrderID        string    `dynamodbav:"order_id" json:"orderId"`
	Status         Status    `dynamodbav:"status" json:"paymentStatus"`
	Method         string    `dynamodbav:"method" json:"paymentMethod"`
	TransactionID  string    `dynamodbav:"transaction_id,omitempty" json:"transactionId,omitempty"`
	GatewayOrderID string    `dynamodbav:"gateway_order_id,omitempty" json:"gatewayOrderId,omitempty"`
	Amount         int64     `dynamodbav:"amount" json:"amount"` // minor units
	Currency       string    `dynamodbav:"currency" json:"currency"`
	PaymentTime    time.Time `dynamodbav:"payment_time" json:"paymentTime"`
	UpdatedAt      time.Time `dynamodbav:"updated_at" json:"updatedAt"`
}

// record is the stored shape: PAYMENT#<id> keeps every attempt, ORDER#<orderId>
// holds the order's current attempt.
type record struct {
	PK string `dynamodbav:"pk"`
	Payment
}

func paymentKey(id string) string { return "PAYMENT#" + id }

func orderKey(orderID string) string { return "ORDER#" + orderID }

// OrderSummary is the slice of the order echoed back after a payment.
type OrderSummary struct {
	TotalAmount money.Amount  `json:"totalAmount"`
	Status      orders.Status `json:"status"`
}

// Outcome is what a direct payment or a verification produced.
type Outcome struct {
	Payment    Payment
	Order      orders.Order
	CouponCode string
	// Reason is set when a verification was rejected.
	Reason string
}

// Summary returns the order summary of the outcome.
func (o Outcome) Summary() OrderSummary {
	return OrderSummary{TotalAmount: o.Order.TotalAmount, Status: o.Order.Status}
}

// IntentResult is returned to the client to open the gateway checkout.
type IntentResult struct {
	IntentID string `json:"intentId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"keyId"`
	OrderID  string `json:"orderId"`
}
