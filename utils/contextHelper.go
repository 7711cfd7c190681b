package utils

import "context"

type ContextKey string

const (
	ContextKeyCorrelationId ContextKey = "correlationId"
)

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return context.WithValue(ctx, ContextKeyCorrelationId, correlationId)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	value, ok := ctx.Value(ContextKeyCorrelationId).(string)
	return value, ok
}
