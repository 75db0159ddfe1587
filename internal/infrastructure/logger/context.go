package logger

import (
	"context"

	"go.uber.org/zap"
)

// contextKey is a type for context keys used by the logger package
type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// FundIDKey is the context key for the fund a request concerns
	FundIDKey contextKey = "fund_id"
	// PrincipalIDKey is the context key for the calling principal
	PrincipalIDKey contextKey = "principal_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op
// logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds request ID to context and returns an enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithFundID adds the fund ID to context and returns an enriched logger
func WithFundID(ctx context.Context, logger *zap.Logger, fundID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, FundIDKey, fundID)
	enriched := logger.With(zap.String("fund_id", fundID))
	return WithContext(ctx, enriched), enriched
}

// WithPrincipalID adds the calling principal to context and returns an
// enriched logger
func WithPrincipalID(ctx context.Context, logger *zap.Logger, principalID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, PrincipalIDKey, principalID)
	enriched := logger.With(zap.String("principal_id", principalID))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetFundID retrieves the fund ID from context
func GetFundID(ctx context.Context) string {
	if fundID, ok := ctx.Value(FundIDKey).(string); ok {
		return fundID
	}
	return ""
}

// GetPrincipalID retrieves the calling principal from context
func GetPrincipalID(ctx context.Context) string {
	if principalID, ok := ctx.Value(PrincipalIDKey).(string); ok {
		return principalID
	}
	return ""
}
