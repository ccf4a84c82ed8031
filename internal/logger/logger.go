// Package logger builds the process zap logger and the Fiber request logging
// middleware.
package logger

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	RequestIDHeader = "X-Request-ID"
	ctxLoggerKey    = "logger"
	ctxRequestIDKey = "request_id"
)

// New returns a JSON logger in production and a console logger otherwise.
// An unknown level falls back to info.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	cfg.Level.SetLevel(lvl)

	return cfg.Build()
}

// Middleware tags every request with an id, stores a child logger in the
// context and writes one access line when the handler returns.
func Middleware(base *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)
		c.Locals(ctxRequestIDKey, requestID)

		log := base.With(zap.String("request_id", requestID))
		c.Locals(ctxLoggerKey, log)

		err := c.Next()

		// the error handler has not run yet, so take the status from the error
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		fields := []zapcore.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request failed", fields...)
		case status >= fiber.StatusBadRequest:
			log.Warn("request rejected", fields...)
		default:
			log.Info("request completed", fields...)
		}

		return err
	}
}

// FromCtx returns the request logger, or a no-op logger outside the middleware.
func FromCtx(c *fiber.Ctx) *zap.Logger {
	if log, ok := c.Locals(ctxLoggerKey).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// RequestID returns the id assigned by Middleware.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(ctxRequestIDKey).(string)
	return id
}
