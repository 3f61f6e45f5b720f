package validation

// PlaceOrderRequest is the payload for POST /orders
type PlaceOrderRequest struct {
	CustomerID string   `json:"customerId" validate:"required"`                  // identity-store user id
	ItemIDs    []string `json:"itemIds" validate:"required,min=1,dive,required"` // catalog ids, repeats allowed
}

// UpdateStatusRequest is the payload for PUT /orders/:id/status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,order_status"`
}

// CreatePaymentRequest is the payload for POST /payments
type CreatePaymentRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Method  string `json:"method" validate:"required"` // MOCK, RAZORPAY or anything else (recorded as FAILED)
}

// CreateIntentRequest is the payload for POST /payments/intent
type CreateIntentRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

// VerifyPaymentRequest is the payload for POST /payments/verify, as returned
// by the gateway's client-side checkout.
type VerifyPaymentRequest struct {
	OrderID          string `json:"orderId" validate:"required"`
	GatewayOrderID   string `json:"gatewayOrderId" validate:"required"`
	GatewayPaymentID string `json:"gatewayPaymentId" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}
