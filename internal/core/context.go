package core

import "context"

type runIDKey struct{}
type cycleKey struct{}

func WithRunID(ctx context.Context, runID string) context.Context {
	if ctx == nil || runID == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey{}, runID)
}

func WithCycle(ctx context.Context, kind CycleKind) context.Context {
	if ctx == nil || kind == "" {
		return ctx
	}
	return context.WithValue(ctx, cycleKey{}, kind)
}

func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(runIDKey{}).(string); ok {
		return v
	}
	return ""
}

func CycleFromContext(ctx context.Context) CycleKind {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(cycleKey{}).(CycleKind); ok {
		return v
	}
	return ""
}
