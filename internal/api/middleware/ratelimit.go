package middleware

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/signatech/account-service/internal/api/metrics"
	"github.com/signatech/account-service/internal/core/domain"
)

// Limiter decides whether a client may make another request in a class.
type Limiter interface {
	Allow(ctx context.Context, class domain.EndpointClass, client string) error
}

// RateLimit applies limiter to every request, keyed by the client IP.
func RateLimit(limiter Limiter, class domain.EndpointClass) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := limiter.Allow(c.Request().Context(), class, c.RealIP()); err != nil {
				var rle *domain.RateLimitError
				if errors.As(err, &rle) {
					metrics.RateLimitedTotal.WithLabelValues(string(class)).Inc()
				}
				return err
			}
			return next(c)
		}
	}
}
