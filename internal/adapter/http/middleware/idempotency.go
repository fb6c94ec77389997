package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"account-transfer-service/internal/core/ports"
	"account-transfer-service/pkg/apperror"
	"account-transfer-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 128
	reservationTTL       = 30 * time.Second
)

// cachedResponse is what gets stored per idempotency key.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored 2xx response for a repeated
// Idempotency-Key, so a retried withdraw or transfer is applied once.
// Requests without the header pass through. Cache errors degrade to
// pass-through as well.
func Idempotency(cache ports.IdempotencyCache, ttl time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLen {
			response.Error(c, apperror.Validation("Idempotency-Key must be at most 128 characters"))
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		scoped := c.Request.Method + ":" + c.Request.URL.Path + ":" + key
		l := log.With().Str("idempotency_key", key).Str("request_id", response.RequestID(c)).Logger()

		raw, err := cache.Get(ctx, scoped)
		if err != nil {
			l.Warn().Err(err).Msg("idempotency lookup failed, processing request")
			c.Next()
			return
		}
		if replay(c, raw, l) {
			return
		}

		reserved, err := cache.Reserve(ctx, scoped, reservationTTL)
		if err != nil {
			l.Warn().Err(err).Msg("idempotency reservation failed, processing request")
			c.Next()
			return
		}
		if !reserved {
			response.Error(c, apperror.ErrIdempotencyInFlight())
			c.Abort()
			return
		}

		// The request context may be gone by the time the handler returns.
		storeCtx := context.WithoutCancel(ctx)
		defer func() {
			if err := cache.Release(storeCtx, scoped); err != nil {
				l.Warn().Err(err).Msg("idempotency release failed")
			}
		}()

		// A request holding the same key may have stored its response and
		// released the lock between the lookup above and Reserve.
		raw, err = cache.Get(ctx, scoped)
		if err != nil {
			l.Warn().Err(err).Msg("idempotency lookup failed, processing request")
		} else if replay(c, raw, l) {
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			return
		}

		entry, err := json.Marshal(cachedResponse{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		})
		if err != nil {
			l.Warn().Err(err).Msg("idempotency entry marshal failed")
			return
		}
		if err := cache.Set(storeCtx, scoped, entry, ttl); err != nil {
			l.Warn().Err(err).Msg("idempotency store failed")
		}
	}
}

// replay writes a stored response and aborts the chain. It reports false
// when raw holds nothing usable.
func replay(c *gin.Context, raw []byte, l zerolog.Logger) bool {
	if raw == nil {
		return false
	}
	var cached cachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		l.Warn().Msg("discarding unreadable idempotency entry")
		return false
	}
	c.Header(HeaderReplayed, "true")
	c.Data(cached.Status, cached.ContentType, cached.Body)
	c.Abort()
	return true
}
