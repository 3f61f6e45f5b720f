package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-queue-orderflow/internal/apperr"
	"github.com/imrishuroy/go-queue-orderflow/internal/idempotency"
)

const (
	idempotencyHeader = "Idempotency-Key"
	resourceIDKey     = "resource_id"
)

// bodyRecorder keeps a copy of what the handler wrote so it can be replayed.
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotent makes a POST safe to retry when the client sends an
// Idempotency-Key: the first completed response is stored and replayed for
// the same key and body. 5xx responses are not kept, so the retry runs again.
func Idempotent(store *idempotency.Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			writeError(c, logger, apperr.Invalid("could not read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		scope := c.Request.Method + " " + c.FullPath()

		rec, started, err := store.Begin(ctx, key, scope, hex.EncodeToString(sum[:]))
		if errors.Is(err, idempotency.ErrKeyReused) {
			writeError(c, logger, apperr.Invalid("idempotency key was used for a different request"))
			return
		}
		if err != nil {
			writeError(c, logger, apperr.Internal(err, "idempotency check failed"))
			return
		}
		if !started {
			replay(c, rec)
			return
		}

		rw := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rw
		defer func() {
			// a panicking handler must not leave the key IN_PROGRESS
			if p := recover(); p != nil {
				markFailed(c, store, logger, key, "handler panicked")
				panic(p)
			}
		}()
		c.Next()

		status := rw.Status()
		if status >= http.StatusInternalServerError {
			markFailed(c, store, logger, key, http.StatusText(status))
			return
		}
		if err := store.MarkDone(ctx, key, c.GetString(resourceIDKey), rw.buf.String(), status); err != nil {
			logger.ErrorContext(ctx, "mark idempotency done", slog.String("key", key), slog.Any("err", err))
		}
	}
}

func markFailed(c *gin.Context, store *idempotency.Store, logger *slog.Logger, key, note string) {
	ctx := c.Request.Context()
	if err := store.MarkFailed(ctx, key, note); err != nil {
		logger.ErrorContext(ctx, "mark idempotency failed", slog.String("key", key), slog.Any("err", err))
	}
}

func replay(c *gin.Context, rec *idempotency.Record) {
	switch {
	case rec != nil && rec.Status == idempotency.StatusDone:
		c.Header("Idempotent-Replayed", "true")
		if rec.ResourceID != "" {
			c.Header("X-Resource-Id", rec.ResourceID)
		}
		c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
		c.Abort()
	default:
		c.AbortWithStatusJSON(http.StatusAccepted, gin.H{"message": "request already in progress"})
	}
}
