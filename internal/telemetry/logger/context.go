package logger

import "context"

// ctxKey is a private type so values set here cannot collide with
// context keys from other packages.
type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
	connIDKey
)

// WithLogger returns a context carrying l.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger carried by ctx, or the default logger
// when none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithRequestID tags ctx with an admin HTTP request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the ID set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithConnID tags ctx with a RESP connection ID.
func WithConnID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, connIDKey, id)
}

// ConnIDFromContext returns the ID set by WithConnID, or "".
func ConnIDFromContext(ctx context.Context) string {
	return stringValue(ctx, connIDKey)
}

func stringValue(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// L returns the context's logger enriched with whichever request and
// connection IDs the context carries.
func L(ctx context.Context) Logger {
	var tags []any
	if id := RequestIDFromContext(ctx); id != "" {
		tags = append(tags, "request_id", id)
	}
	if id := ConnIDFromContext(ctx); id != "" {
		tags = append(tags, "conn_id", id)
	}
	l := FromContext(ctx)
	if len(tags) == 0 {
		return l
	}
	return l.With(tags...)
}
