package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/econopulse/optionpulse/pkg/logger"
)

// RequestLogging emits one structured line per request. 5xx responses log at
// error level so upstream provider trouble stands out in the stream.
func RequestLogging(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("path", req.URL.Path),
				logger.String("ip", c.RealIP()),
				logger.Int("status", status),
				logger.Duration("duration", time.Since(start)),
			}
			if status >= 500 {
				log.Error("request", fields...)
			} else {
				log.Info("request", fields...)
			}

			return err
		}
	}
}
