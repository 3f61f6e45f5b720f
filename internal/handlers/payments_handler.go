package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-queue-orderflow/internal/payments"
	"github.com/imrishuroy/go-queue-orderflow/internal/validation"
)

// paymentResponse is the body returned by POST /payments and /payments/verify.
type paymentResponse struct {
	PaymentStatus payments.Status       `json:"paymentStatus"`
	PaymentID     string                `json:"paymentId,omitempty"`
	TransactionID string                `json:"transactionId,omitempty"`
	OrderID       string                `json:"orderId"`
	CouponCode    string                `json:"couponCode,omitempty"`
	OrderSummary  payments.OrderSummary `json:"orderSummary"`
	Error         string                `json:"error,omitempty"`
}

func newPaymentResponse(out *payments.Outcome) paymentResponse {
	return paymentResponse{
		PaymentStatus: out.Payment.Status,
		PaymentID:     out.Payment.PaymentID,
		TransactionID: out.Payment.TransactionID,
		OrderID:       out.Order.OrderID,
		CouponCode:    out.CouponCode,
		OrderSummary:  out.Summary(),
		Error:         out.Reason,
	}
}

func (h *Handler) CreatePayment(c *gin.Context) {
	var req validation.CreatePaymentRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	out, err := h.payments.CreatePayment(c.Request.Context(), req.OrderID, req.Method)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Set(resourceIDKey, out.Payment.PaymentID)
	c.JSON(http.StatusCreated, newPaymentResponse(out))
}

func (h *Handler) CreateIntent(c *gin.Context) {
	var req validation.CreateIntentRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	intent, err := h.payments.CreateIntent(c.Request.Context(), req.OrderID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, intent)
}

func (h *Handler) VerifyPayment(c *gin.Context) {
	var req validation.VerifyPaymentRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}

	out, err := h.payments.VerifyIntent(c.Request.Context(), req.OrderID, req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	if out.Reason != "" {
		status = http.StatusPaymentRequired
	}
	c.JSON(status, newPaymentResponse(out))
}

const maxWebhookBody = 65536

// webhookResponse acknowledges a Stripe delivery. Payment fields are set when
// the event changed or confirmed an order's payment.
type webhookResponse struct {
	Received      bool            `json:"received"`
	PaymentStatus payments.Status `json:"paymentStatus,omitempty"`
	OrderID       string          `json:"orderId,omitempty"`
	CouponCode    string          `json:"couponCode,omitempty"`
	Error         string          `json:"error,omitempty"`
}

func (h *Handler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "invalid_request", "message": "webhook body too large"})
		return
	}

	out, err := h.payments.ConfirmWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	resp := webhookResponse{Received: true}
	if out != nil {
		resp.PaymentStatus = out.Payment.Status
		resp.OrderID = out.Order.OrderID
		resp.CouponCode = out.CouponCode
		resp.Error = out.Reason
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetPaymentByOrder(c *gin.Context) {
	p, err := h.payments.GetPaymentByOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
