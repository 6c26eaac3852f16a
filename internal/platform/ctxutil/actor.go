package ctxutil

import (
	"context"
	"strings"
)

type requestDataKey struct{}

// RequestData carries the authenticated caller for audit columns (created_by, changed_by).
type RequestData struct {
	Actor string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(Default(ctx), requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// ActorOr returns the request actor, or fallback when no authenticated actor is attached.
func ActorOr(ctx context.Context, fallback string) string {
	if rd := GetRequestData(ctx); rd != nil && strings.TrimSpace(rd.Actor) != "" {
		return strings.TrimSpace(rd.Actor)
	}
	return strings.TrimSpace(fallback)
}
