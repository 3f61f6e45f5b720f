package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
)

const (
	requestIDKey   = "request_id"
	requesterIDKey = "requester_id"
)

// RequestLogger tags each request with an id and logs one line when it ends.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-Id", id)

		c.Next()

		logger.InfoContext(c.Request.Context(), "request",
			slog.String("request_id", id),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Int64("latency_ms", time.Since(start).Milliseconds()),
		)
	}
}

// Authentication requires an HS256 bearer token and stores its subject as the
// requester id. Without a secret the protected routes report Unconfigured.
func Authentication(secret string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			writeError(c, logger, apperr.Unconfigured("authentication is not configured"))
			return
		}

		raw, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "missing bearer token"})
			return
		}

		var claims jwt.RegisteredClaims
		_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || claims.Subject == "" {
			if err == nil {
				err = errors.New("token has no subject")
			}
			logger.WarnContext(c.Request.Context(), "rejected bearer token",
				slog.String("request_id", c.GetString(requestIDKey)),
				slog.String("err", err.Error()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated", "message": "invalid bearer token"})
			return
		}

		c.Set(requesterIDKey, claims.Subject)
		c.Next()
	}
}
