package audit

import (
	"context"

	"github.com/labstack/echo/v4"
)

// Info carries the request metadata recorded alongside audit rows.
type Info struct {
	IPAddress string
	UserAgent string
}

type contextKey string

const infoKey contextKey = "audit_info"

// WithInfo returns a context carrying request metadata.
func WithInfo(ctx context.Context, info *Info) context.Context {
	return context.WithValue(ctx, infoKey, info)
}

// InfoFromContext retrieves request metadata, or nil outside a request.
func InfoFromContext(ctx context.Context) *Info {
	info, _ := ctx.Value(infoKey).(*Info)
	return info
}

// Middleware captures the caller address and user agent for audit rows
// written later in the request.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			info := &Info{
				IPAddress: c.RealIP(),
				UserAgent: c.Request().UserAgent(),
			}
			ctx := WithInfo(c.Request().Context(), info)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
