package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a request-scoped logger in the context.
// The ops server puts one there per request, tagged with the request ID.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the request-scoped logger, or a no-op logger outside a request.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// AddFields adds fields to the request's canonical log line.
// It is a no-op on a context without ContextWithFields.
func AddFields(ctx context.Context, fields ...zap.Field) {
	if h, ok := ctx.Value(fieldsKey{}).(*fieldHolder); ok {
		h.fields = append(h.fields, fields...)
	}
}

type fieldsKey struct{}

type fieldHolder struct{ fields []zap.Field }

// ContextWithFields prepares ctx to collect fields from AddFields.
// The returned function reports what was collected.
func ContextWithFields(ctx context.Context) (context.Context, func() []zap.Field) {
	h := &fieldHolder{}
	return context.WithValue(ctx, fieldsKey{}, h), func() []zap.Field { return h.fields }
}
