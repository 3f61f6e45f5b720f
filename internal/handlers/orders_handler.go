package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-queue-orderflow/internal/orders"
	"github.com/imrishuroy/go-queue-orderflow/internal/validation"
)

func (h *Handler) PlaceOrder(c *gin.Context) {
	var req validation.PlaceOrderRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		// BindAndValidate already wrote a 400
		return
	}

	o, err := h.engine.PlaceOrder(c.Request.Context(), req.CustomerID, req.ItemIDs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.Set(resourceIDKey, o.OrderID)
	c.Header("Location", fmt.Sprintf("/orders/%s", o.OrderID))
	c.JSON(http.StatusCreated, o)
}

func (h *Handler) GetOrder(c *gin.Context) {
	o, err := h.engine.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) ListOrdersByUser(c *gin.Context) {
	list, err := h.engine.ListOrdersByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) ListAllOrders(c *gin.Context) {
	list, err := h.engine.ListAllOrders(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var req validation.UpdateStatusRequest
	if err := validation.BindAndValidate(c, &req, h.v); err != nil {
		return
	}
	// the validator already accepted it
	to, _ := orders.ParseStatus(req.Status)

	o, err := h.engine.TransitionStatus(c.Request.Context(), c.Param("id"), to)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) CancelOwnOrder(c *gin.Context) {
	o, err := h.engine.CancelOwnOrder(c.Request.Context(), c.Param("id"), c.GetString(requesterIDKey))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) EstimatedWaitTime(c *gin.Context) {
	id := c.Param("id")
	minutes, err := h.engine.EstimatedWaitTime(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderId": id, "estimatedWaitMinutes": minutes})
}

func (h *Handler) QueueSize(c *gin.Context) {
	n, err := h.engine.QueueSize(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queueSize": n})
}
