// Package handlers exposes the order, payment and coupon operations over gin.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/imrishuroy/go-queue-orderflow/internal/coupons"
	"github.com/imrishuroy/go-queue-orderflow/internal/idempotency"
	"github.com/imrishuroy/go-queue-orderflow/internal/orders"
	"github.com/imrishuroy/go-queue-orderflow/internal/payments"
	"github.com/imrishuroy/go-queue-orderflow/internal/validation"
)

// Config groups dependencies for the router.
type Config struct {
	Engine      *orders.Engine
	Payments    *payments.Coordinator
	Coupons     *coupons.Issuer
	Idempotency *idempotency.Store // nil disables Idempotency-Key handling
	JWTSecret   string
	Metrics     *ServerMetrics      // nil disables request metrics
	Gatherer    prometheus.Gatherer // served on /metrics when set
	Logger      *slog.Logger
}

// Handler holds the route implementations.
type Handler struct {
	engine   *orders.Engine
	payments *payments.Coordinator
	coupons  *coupons.Issuer
	v        *validatorv10.Validate
	logger   *slog.Logger
}

func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		engine:   cfg.Engine,
		payments: cfg.Payments,
		coupons:  cfg.Coupons,
		v:        validation.New(),
		logger:   cfg.Logger,
	}
}

// API builds the gin engine with every route registered.
func API(cfg Config) *gin.Engine {
	h := NewHandler(cfg)
	logger := h.logger

	r := gin.New()
	r.Use(RequestLogger(logger), gin.Recovery())
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}

	r.GET("/health", HealthCheck)
	if cfg.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(MetricsHandler(cfg.Gatherer)))
	}

	idem := Idempotent(cfg.Idempotency, logger)
	auth := Authentication(cfg.JWTSecret, logger)

	o := r.Group("/orders")
	{
		o.POST("", idem, h.PlaceOrder)
		o.GET("", h.ListAllOrders)
		o.GET("/queue-size", h.QueueSize)
		o.GET("/user/:userId", h.ListOrdersByUser)
		o.GET("/:id", h.GetOrder)
		o.PUT("/:id/status", h.UpdateStatus)
		o.POST("/:id/cancel", auth, h.CancelOwnOrder)
		o.GET("/:id/wait-time", h.EstimatedWaitTime)
	}

	p := r.Group("/payments")
	{
		p.POST("", idem, h.CreatePayment)
		p.POST("/intent", h.CreateIntent)
		p.POST("/verify", h.VerifyPayment)
		p.POST("/webhook", h.StripeWebhook)
		p.GET("/order/:orderId", h.GetPaymentByOrder)
	}

	cp := r.Group("/coupons")
	{
		cp.GET("/order/:orderId", h.GetCouponByOrder)
		cp.GET("/:code", h.GetCouponByCode)
	}

	return r
}

func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
