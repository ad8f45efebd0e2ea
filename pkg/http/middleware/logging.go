package middleware

import (
	"time"

	"Aktiemotor/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs each request at debug, 4xx at warn and 5xx at error.
func RequestLogging(l *logger.Logger) echo.MiddlewareFunc {
	if l == nil {
		l = logger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			status := c.Response().Status
			fields := []logger.Field{
				logger.String("method", c.Request().Method),
				logger.String("route", routeLabel(c)),
				logger.Int("status", status),
				logger.Duration("latency", time.Since(start)),
				logger.String("remote", c.RealIP()),
			}
			switch {
			case status >= 500:
				if err != nil {
					fields = append(fields, logger.Error(err))
				}
				l.Error("http request failed", fields...)
			case status >= 400:
				l.Warn("http request rejected", fields...)
			default:
				l.Debug("http request", fields...)
			}
			return nil
		}
	}
}
