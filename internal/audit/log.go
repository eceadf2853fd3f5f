package audit

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"formgate.org/internal/auth"
	"formgate.org/internal/obs"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and admin context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	zfields := []zap.Field{
		zap.String("type", "audit"),
		zap.String("event", event),
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		zfields = append(zfields, zap.String("request_id", rid))
	}
	if p, ok := auth.PrincipalFromContext(ctx); ok {
		zfields = append(zfields, zap.String("admin", p.Username), zap.String("auth_method", p.Method))
	}
	copyFields := make(map[string]any, len(fields))
	for k, v := range fields {
		copyFields[k] = v
	}
	zfields = append(zfields, zap.Any("fields", copyFields))

	obs.Logger().Info("audit", zfields...)
	return nil
}
