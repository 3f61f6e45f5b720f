package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
)

func (h *Handler) GetCouponByOrder(c *gin.Context) {
	orderID := c.Param("orderId")
	cp, err := h.coupons.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if cp == nil {
		writeError(c, h.logger, apperr.NotFound("no coupon for order %s", orderID))
		return
	}
	c.JSON(http.StatusOK, cp)
}

func (h *Handler) GetCouponByCode(c *gin.Context) {
	code := c.Param("code")
	cp, err := h.coupons.GetByCode(c.Request.Context(), code)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if cp == nil {
		writeError(c, h.logger, apperr.NotFound("coupon %s not found", code))
		return
	}
	c.JSON(http.StatusOK, cp)
}
