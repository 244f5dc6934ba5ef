package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Logger wraps slog.Logger with domain specific helpers
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to stdout
func New() *Logger {
	return NewWithWriter(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// NewWithWriter creates a logger writing to w at the given level
func NewWithWriter(w io.Writer, levelStr string) *Logger {
	level := getLogLevel(levelStr)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	// Text for development, JSON for everything else
	var handler slog.Handler
	if gin.Mode() == gin.DebugMode {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func getLogLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRequestID adds request ID to logger context
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("request_id", requestID))}
}

// WithActor adds the acting employee to logger context
func (l *Logger) WithActor(actorID int64) *Logger {
	return &Logger{Logger: l.Logger.With(slog.Int64("actor_id", actorID))}
}

// WithError adds error to logger context
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With(slog.String("error", err.Error()))}
}

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(c *gin.Context, duration time.Duration) {
	l.Logger.InfoContext(c.Request.Context(),
		"HTTP Request",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.String("query", c.Request.URL.RawQuery),
		slog.Int("status", c.Writer.Status()),
		slog.Duration("duration", duration),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", c.GetString("request_id")),
		slog.Int("size", c.Writer.Size()),
	)
}

// LogHTTPError logs an HTTP error
func (l *Logger) LogHTTPError(c *gin.Context, err error, statusCode int) {
	l.Logger.ErrorContext(c.Request.Context(),
		"HTTP Error",
		slog.String("method", c.Request.Method),
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", statusCode),
		slog.String("error", err.Error()),
		slog.String("request_id", c.GetString("request_id")),
	)
}

// Business logic logging methods

// LogTicketCreated logs a committed ticket composition
func (l *Logger) LogTicketCreated(ctx context.Context, reservationID int64, paymentID *int64, tripID, actorID int64) {
	attrs := []any{
		slog.Int64("reservation_id", reservationID),
		slog.Int64("trip_id", tripID),
		slog.Int64("actor_id", actorID),
	}
	if paymentID != nil {
		attrs = append(attrs, slog.Int64("payment_id", *paymentID))
	}
	l.Logger.InfoContext(ctx, "Ticket Created", attrs...)
}

// LogReservationTransition logs a lifecycle transition
func (l *Logger) LogReservationTransition(ctx context.Context, reservationID int64, action string, actorID int64, changed bool) {
	l.Logger.InfoContext(ctx,
		"Reservation Transition",
		slog.Int64("reservation_id", reservationID),
		slog.String("action", action),
		slog.Int64("actor_id", actorID),
		slog.Bool("changed", changed),
	)
}

// LogSyncBatch logs the outcome of a ticket batch, server or client side
func (l *Logger) LogSyncBatch(ctx context.Context, deviceID string, total, succeeded, replayed int) {
	l.Logger.InfoContext(ctx,
		"Ticket Batch Processed",
		slog.String("device_id", deviceID),
		slog.Int("total", total),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", total-succeeded),
		slog.Int("replayed", replayed),
	)
}

// LogRateLimitExceeded logs rate limit exceeded
func (l *Logger) LogRateLimitExceeded(ctx context.Context, ip, endpoint string) {
	l.Logger.WarnContext(ctx,
		"Rate Limit Exceeded",
		slog.String("ip", ip),
		slog.String("endpoint", endpoint),
	)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	args := make([]interface{}, 0, len(fields)*2+2)
	args = append(args, slog.String("error", err.Error()))
	for k, v := range fields {
		args = append(args, slog.Any(k, v))
	}
	l.Logger.ErrorContext(ctx, msg, args...)
}

var defaultLogger = New()

// GetDefault returns the default logger instance
func GetDefault() *Logger {
	return defaultLogger
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
