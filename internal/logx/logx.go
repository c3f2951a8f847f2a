package logx

import (
	"context"

	"pkt.systems/balletsubmit/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	endpointKey contextKey = iota
	requestIDKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithEndpoint annotates the logger with the endpoint name if present.
func WithEndpoint(ctx context.Context, endpoint schema.EndpointName) pslog.Logger {
	log := pslog.Ctx(ctx)
	if endpoint != "" {
		if current, ok := ctx.Value(endpointKey).(schema.EndpointName); ok && current == endpoint {
			return log
		}
		log = log.With("endpoint", endpoint)
	}
	return log
}

// WithRequest annotates the logger with endpoint and request id.
func WithRequest(ctx context.Context, endpoint schema.EndpointName, requestID string) pslog.Logger {
	log := WithEndpoint(ctx, endpoint)
	if requestID != "" {
		if current, ok := ctx.Value(requestIDKey).(string); ok && current == requestID {
			return log
		}
		log = log.With("request_id", requestID)
	}
	return log
}

// WithSubmission annotates the logger with submission metadata.
func WithSubmission(log pslog.Logger, code string) pslog.Logger {
	return log.With("code_len", len(code))
}

// ContextWithEndpoint stores the endpoint marker on the context for log de-duplication.
func ContextWithEndpoint(ctx context.Context, endpoint schema.EndpointName) context.Context {
	if ctx == nil || endpoint == "" {
		return ctx
	}
	return context.WithValue(ctx, endpointKey, endpoint)
}

// ContextWithRequestID stores the request id on the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestID returns the request id stored on the context, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ContextWithRequestLogger attaches the logger and request id marker to the context.
func ContextWithRequestLogger(ctx context.Context, log pslog.Logger, requestID string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithRequestID(ctx, requestID)
}
