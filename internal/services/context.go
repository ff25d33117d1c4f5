package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	imageKey     contextKey = "image"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithImage annotates context with the worker image an operation targets.
func WithImage(ctx context.Context, image string) context.Context {
	if image == "" {
		return ctx
	}
	return context.WithValue(ctx, imageKey, image)
}

// ImageFromContext returns the worker image name if present.
func ImageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(imageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
