package agent

import "context"

type contextKey int

const (
	runIDKey contextKey = iota
	speakerKey
)

func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

func RunIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(runIDKey).(string); ok {
		return v
	}
	return ""
}

// ContextWithSpeaker marks ctx with the participant whose turn is running.
func ContextWithSpeaker(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, speakerKey, name)
}

func SpeakerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(speakerKey).(string); ok {
		return v
	}
	return ""
}
