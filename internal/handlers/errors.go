package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindNotFound:           http.StatusNotFound,
	apperr.KindInvalidTransition:  http.StatusConflict,
	apperr.KindUnauthorized:       http.StatusForbidden,
	apperr.KindUnconfigured:       http.StatusServiceUnavailable,
	apperr.KindVerificationFailed: http.StatusPaymentRequired,
	apperr.KindUpstreamTimeout:    http.StatusGatewayTimeout,
	apperr.KindUpstreamError:      http.StatusBadGateway,
	apperr.KindInvalid:            http.StatusBadRequest,
	apperr.KindInternal:           http.StatusInternalServerError,
}

// writeError renders err as {"error": kind, "message": msg}. Causes are
// logged, never sent to the client.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Internal(err, "internal error")
	}
	status, ok := kindStatus[ae.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "request failed",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("kind", string(ae.Kind)),
			slog.Any("err", err))
	}

	body := gin.H{"error": string(ae.Kind), "message": ae.Message}
	if ae.Retriable() {
		body["retriable"] = true
	}
	c.AbortWithStatusJSON(status, body)
}
