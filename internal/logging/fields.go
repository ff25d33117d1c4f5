package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"encodegate/internal/services"
)

// Structured keys shared by every component.
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldImage         = "image"
	FieldContainerID   = "container_id"
	FieldContainerName = "container_name"
	FieldPrefix        = "prefix"
	// FieldEventType classifies a record for log queries, e.g. "image_pull_failed".
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to try next.
	FieldErrorHint = "error_hint"
	// FieldImpact says what the failure means for jobs or containers.
	FieldImpact = "impact"
	// FieldAlert marks records an operator should be paged or notified about.
	FieldAlert = "alert"
)

const (
	defaultErrorHint = "check the encodegate log for the preceding engine error"
	defaultImpact    = "the operation finished without doing all of its work"
)

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

func Bool(key string, value bool) slog.Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) slog.Attr { return slog.Duration(key, value) }

// Bytes renders a byte count in human units such as "42 MB".
func Bytes(key string, value int64) slog.Attr {
	return slog.String(key, humanize.Bytes(uint64(max(value, 0))))
}

// Alert tags a record with an alert name.
func Alert(name string) slog.Attr { return slog.String(FieldAlert, name) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// NewComponentLogger tags logger with a component name. A nil logger
// becomes a no-op logger.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(FieldComponent, component)
}

// WithContext adds the request id and target image carried by ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldRequestID, rid))
	}
	if image, ok := services.ImageFromContext(ctx); ok {
		args = append(args, slog.String(FieldImage, image))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact. Missing ones get defaults.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	logEvent(logger, slog.LevelWarn, msg, eventType, true, attrs)
}

// ErrorWithContext logs an error that always carries event_type and error_hint.
func ErrorWithContext(logger *slog.Logger, msg, eventType string, attrs ...slog.Attr) {
	logEvent(logger, slog.LevelError, msg, eventType, false, attrs)
}

func logEvent(logger *slog.Logger, level slog.Level, msg, eventType string, withImpact bool, attrs []slog.Attr) {
	if logger == nil {
		return
	}
	var hasEvent, hasHint, hasImpact bool
	for _, a := range attrs {
		switch a.Key {
		case FieldEventType:
			hasEvent = true
		case FieldErrorHint:
			hasHint = true
		case FieldImpact:
			hasImpact = true
		}
	}
	if !hasEvent {
		attrs = append(attrs, String(FieldEventType, eventType))
	}
	if !hasHint {
		attrs = append(attrs, String(FieldErrorHint, defaultErrorHint))
	}
	if withImpact && !hasImpact {
		attrs = append(attrs, String(FieldImpact, defaultImpact))
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}
