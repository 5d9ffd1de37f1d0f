package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Setup installs a text handler on stderr as the default logger.
func Setup(logLevel string) {
	SetupWriter(os.Stderr, logLevel)
}

func SetupWriter(w io.Writer, logLevel string) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(logLevel),
	})))
}

// ParseLevel maps debug, info, warn and error onto slog levels. Anything else is info.
func ParseLevel(logLevel string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(logLevel)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}

// RequestLogger logs one line per request.
func RequestLogger() gin.HandlerFunc {
	logger := WithModule("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			logger.ErrorContext(c.Request.Context(), "request failed", attrs...)
		case status >= 400:
			logger.WarnContext(c.Request.Context(), "request rejected", attrs...)
		default:
			logger.DebugContext(c.Request.Context(), "request served", attrs...)
		}
	}
}
