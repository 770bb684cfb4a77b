package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const LoggerKey = "logger"

// InjectLogger кладёт в контекст логгер с method/path и пишет итог запроса.
func InjectLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			reqLogger := logger.With(
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
			)
			c.Set(LoggerKey, reqLogger)

			err := next(c)

			reqLogger.Debug("запрос обработан",
				zap.Int("status", c.Response().Status),
				zap.Duration("took", time.Since(start)),
			)
			return err
		}
	}
}

// LoggerFrom достаёт логгер запроса, иначе возвращает fallback.
func LoggerFrom(c echo.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := c.Get(LoggerKey).(*zap.Logger); ok {
		return l
	}
	return fallback
}
