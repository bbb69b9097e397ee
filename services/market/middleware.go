package market

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/stores/idempotency"
	"golang.org/x/time/rate"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderIdempotencyHit = "X-Idempotency-Hit"

	callerKey = "callerAccountID"

	maxIdempotencyKeyLength = 255
)

// requestIDMiddleware keeps an incoming X-Request-ID or assigns a new one.
func requestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return uuid.NewString()
		},
	})
}

// rateLimitMiddleware throttles each caller, identified by the identity header
// or else the client address, to market_rateLimitPerSecond requests. It returns
// nil when no limit is configured.
func (h *HTTP) rateLimitMiddleware() echo.MiddlewareFunc {
	limit := h.settings.Market.RateLimit
	if limit <= 0 {
		return nil
	}

	burst := h.settings.Market.RateLimitBurst
	if burst <= 0 {
		burst = int(limit) + 1
	}

	header := h.settings.Market.IdentityHeader

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			if id := strings.TrimSpace(c.Request().Header.Get(header)); id != "" {
				return "account:" + id, nil
			}

			return "ip:" + c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, _ error) error {
			prometheusMarketRateLimited.Inc()
			return h.sendError(c, errors.NewTooManyRequestsError("rate limit exceeded for %s", identifier))
		},
	})
}

// identityMiddleware rejects requests without a valid caller account id.
func (h *HTTP) identityMiddleware() echo.MiddlewareFunc {
	header := h.settings.Market.IdentityHeader

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			value := strings.TrimSpace(c.Request().Header.Get(header))
			if value == "" {
				return h.sendError(c, errors.NewUnauthorizedError("missing %s header", header))
			}

			callerID, err := strconv.ParseInt(value, 10, 64)
			if err != nil || callerID <= 0 {
				return h.sendError(c, errors.NewUnauthorizedError("invalid %s header: %q", header, value))
			}

			c.Set(callerKey, callerID)

			return next(c)
		}
	}
}

func callerID(c echo.Context) int64 {
	id, _ := c.Get(callerKey).(int64)
	return id
}

// idempotencyMiddleware replays the first response recorded for an
// Idempotency-Key. Keys are scoped to the caller, method and path. The key is
// reserved before the handler runs, a second request arriving while the first
// is in flight gets 409. Server errors are not recorded so the request can be
// retried.
func (h *HTTP) idempotencyMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			key := req.Header.Get(HeaderIdempotencyKey)
			if h.idempotency == nil || req.Method != http.MethodPost || key == "" {
				return next(c)
			}

			if len(key) > maxIdempotencyKeyLength {
				return h.sendError(c, errors.NewInvalidArgumentError("%s longer than %d characters", HeaderIdempotencyKey, maxIdempotencyKeyLength))
			}

			scopedKey := fmt.Sprintf("%d:%s:%s:%s", callerID(c), req.Method, req.URL.Path, key)

			recorded, err := h.idempotency.Reserve(req.Context(), scopedKey, h.settings.Idempotency.PendingTTL)
			if err != nil {
				return h.sendError(c, err)
			}

			if recorded != nil {
				if recorded.Pending {
					prometheusMarketIdempotency.WithLabelValues("pending").Inc()
					return h.sendError(c, errors.NewConflictError("request with %s %s is still being processed", HeaderIdempotencyKey, key))
				}

				prometheusMarketIdempotency.WithLabelValues("hit").Inc()

				c.Response().Header().Set(HeaderIdempotencyHit, "true")

				return c.Blob(recorded.Status, recorded.ContentType, recorded.Body)
			}

			prometheusMarketIdempotency.WithLabelValues("miss").Inc()

			// the record outlives the request
			ctx := context.WithoutCancel(req.Context())
			completed := false

			defer func() {
				if completed {
					return
				}

				if err := h.idempotency.Release(ctx, scopedKey); err != nil {
					h.logger.Errorf("[Market_http] failed to release idempotency key %s: %v", key, err)
				}
			}()

			record := middleware.BodyDump(func(c echo.Context, _, resBody []byte) {
				status := c.Response().Status
				if status >= http.StatusInternalServerError {
					return
				}

				resp := &idempotency.Response{
					Status:      status,
					ContentType: c.Response().Header().Get(echo.HeaderContentType),
					Body:        resBody,
				}

				if err := h.idempotency.Complete(ctx, scopedKey, resp, h.settings.Idempotency.TTL); err != nil {
					h.logger.Errorf("[Market_http] failed to record idempotency key %s: %v", key, err)
					return
				}

				completed = true
			})

			return record(next)(c)
		}
	}
}
